package amqp

import (
	"context"
	"time"

	"finboard/internal/log"
	"finboard/internal/session"
)

// Broadcaster adapts a Client to session.Broadcaster.
type Broadcaster struct {
	client *Client
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) bool
}

func NewBroadcaster(client *Client, logger *log.Logger) *Broadcaster {
	if logger == nil {
		logger = log.Discard()
	}
	return &Broadcaster{client: client, logger: logger.WithComponent(log.ComponentAMQP), sleep: sleepCtx}
}

func (b *Broadcaster) Publish(ctx context.Context, c session.Change) error {
	return b.client.PublishSessionChanged(ctx, NewSessionChangedMessage(c))
}

// Listen consumes until ctx is done, reconnecting with exponential backoff.
func (b *Broadcaster) Listen(ctx context.Context, fn func(session.Change)) error {
	attempt := 0
	for {
		started := time.Now()
		err := b.client.ConsumeSessionChanged(ctx, func(m *SessionChangedMessage) error {
			fn(m.Change())
			return nil
		})
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > time.Minute {
			attempt = 0
		}
		wait := exponentialBackoff(attempt)
		attempt++
		b.logger.WarnContext(ctx, "Session change consumer stopped, retrying",
			log.FieldError, errString(err),
			"retry_in", wait.String())
		if !b.sleep(ctx, wait) {
			return nil
		}
	}
}

func (b *Broadcaster) Close() error { return b.client.Close() }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func errString(err error) string {
	if err == nil {
		return "consumer ended"
	}
	return err.Error()
}

var _ session.Broadcaster = (*Broadcaster)(nil)
