package session

import "context"

// LocalBroadcaster is used when a single instance owns the persister. Local
// listeners are already notified by the Store, so there is nothing to carry.
type LocalBroadcaster struct{}

func (LocalBroadcaster) Publish(context.Context, Change) error { return nil }

func (LocalBroadcaster) Listen(ctx context.Context, _ func(Change)) error {
	<-ctx.Done()
	return nil
}

func (LocalBroadcaster) Close() error { return nil }

var _ Broadcaster = LocalBroadcaster{}
