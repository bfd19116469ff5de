package session

import "context"

type (
	// Persister stores the three session fields of a profile. Save and Delete must
	// each be a single write so no reader ever sees a partial session.
	Persister interface {
		// Load returns the zero Session when nothing is stored.
		Load(ctx context.Context, profile string) (Session, error)
		Save(ctx context.Context, profile string, s Session) error
		Delete(ctx context.Context, profile string) error
	}

	// Broadcaster carries Changes between instances sharing a Persister.
	Broadcaster interface {
		Publish(ctx context.Context, c Change) error
		// Listen delivers remote changes to fn until ctx is done.
		Listen(ctx context.Context, fn func(Change)) error
		Close() error
	}

	// Handler observes session changes. It may be invoked more than once for
	// the same transition.
	Handler func(Change)
)
