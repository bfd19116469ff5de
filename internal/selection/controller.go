package selection

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBusy is returned while a destructive action of the same list is in flight.
	ErrBusy = errors.New("a delete is already in progress")
	// ErrNothingToDelete is returned when the action has no targets.
	ErrNothingToDelete = errors.New("nothing to delete")
	// ErrUnsupported is returned by deleters without a collection endpoint.
	ErrUnsupported = errors.New("operation not supported")
)

// Scope fixes what "Delete All" means for a resource.
type Scope int

const (
	// AllVisible deletes exactly the ids on screen.
	AllVisible Scope = iota
	// AllCollection calls the backend's delete-all endpoint.
	AllCollection
)

func (s Scope) String() string {
	if s == AllCollection {
		return "collection"
	}
	return "visible"
}

// Deleter performs the backend calls for one resource.
type Deleter interface {
	DeleteSelected(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
}

// Resource describes one list's destructive behaviour.
type Resource struct {
	Name    string
	Scope   Scope
	Deleter Deleter
	// Refetch reloads the list and returns the ids now present.
	Refetch func(ctx context.Context) ([]string, error)
}

// Outcome reports what Run did.
type Outcome struct {
	Action     Action
	Remaining  []string
	RefetchErr error
}

// Controller owns one list instance's selection and busy flag.
type Controller struct {
	set  *Set
	busy atomic.Bool
}

func NewController() *Controller {
	return &Controller{set: NewSet()}
}

func (c *Controller) Set() *Set { return c.set }

// Busy reports whether a destructive action is running.
func (c *Controller) Busy() bool { return c.busy.Load() }

// Run executes the derived action against res. Whether the delete succeeds or
// fails, the selection is cleared and the list refetched. Deletes are never retried.
func (c *Controller) Run(ctx context.Context, res Resource, visible []string) (Outcome, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrBusy
	}
	defer c.busy.Store(false)

	out := Outcome{Action: c.set.Action(visible)}
	if len(out.Action.Targets) == 0 {
		return out, ErrNothingToDelete
	}

	var err error
	if out.Action.All && res.Scope == AllCollection {
		err = res.Deleter.DeleteAll(ctx)
	} else {
		err = res.Deleter.DeleteSelected(ctx, out.Action.Targets)
	}
	if err != nil {
		err = fmt.Errorf("delete %s: %w", res.Name, err)
	}

	c.set.Clear()
	if res.Refetch != nil {
		ids, rerr := res.Refetch(ctx)
		if rerr != nil {
			out.RefetchErr = rerr
		} else {
			out.Remaining = ids
			c.set.Reconcile(ids)
		}
	}
	return out, err
}

// Funcs adapts two functions to a Deleter. A nil All yields ErrUnsupported.
type Funcs struct {
	Selected func(ctx context.Context, ids []string) error
	All      func(ctx context.Context) error
}

func (f Funcs) DeleteSelected(ctx context.Context, ids []string) error {
	return f.Selected(ctx, ids)
}

func (f Funcs) DeleteAll(ctx context.Context) error {
	if f.All == nil {
		return ErrUnsupported
	}
	return f.All(ctx)
}

// EachDeleter deletes a selection one id at a time, for resources whose
// backend has only a single-item delete.
type EachDeleter struct {
	Delete      func(ctx context.Context, id string) error
	Concurrency int
}

// DeleteSelected issues every delete even when some fail and joins the errors.
func (d EachDeleter) DeleteSelected(ctx context.Context, ids []string) error {
	limit := d.Concurrency
	if limit <= 0 {
		limit = 4
	}
	var g errgroup.Group
	g.SetLimit(limit)
	errs := make([]error, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			if err := d.Delete(ctx, id); err != nil {
				errs[i] = fmt.Errorf("%s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (EachDeleter) DeleteAll(context.Context) error { return ErrUnsupported }

var (
	_ Deleter = Funcs{}
	_ Deleter = EachDeleter{}
)
