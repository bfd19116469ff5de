// Package notify queues transient user feedback per profile.
//
// Notify never blocks and returns nothing. Queued notifications leave with the
// next response to that profile (HX-Trigger) or over its event stream,
// whichever comes first; each is delivered once.
package notify

import (
	"sync"
	"time"
)

// Kind is the notification style.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Info    Kind = "info"
)

// Display durations in milliseconds.
const (
	DefaultDurationMs = 3000
	ErrorDurationMs   = 5000
)

// DurationFor returns how long a notification of kind stays on screen.
func DurationFor(kind Kind) int {
	if kind == Error {
		return ErrorDurationMs
	}
	return DefaultDurationMs
}

// Notification is one queued notice. Field names match the browser handler.
type Notification struct {
	Kind       Kind      `json:"type"`
	Message    string    `json:"message"`
	DurationMs int       `json:"duration"`
	At         time.Time `json:"-"`
}

const defaultQueueSize = 16

// Channel is safe for concurrent use.
type Channel struct {
	mu      sync.Mutex
	queues  map[string][]Notification
	waiters map[string]map[chan struct{}]struct{}
	max     int
	now     func() time.Time
}

// NewChannel keeps at most max notifications per profile; older ones are dropped.
func NewChannel(max int) *Channel {
	if max <= 0 {
		max = defaultQueueSize
	}
	return &Channel{
		queues:  make(map[string][]Notification),
		waiters: make(map[string]map[chan struct{}]struct{}),
		max:     max,
		now:     time.Now,
	}
}

// Notify queues a notice for profile.
func (c *Channel) Notify(profile, message string, kind Kind) {
	if profile == "" || message == "" {
		return
	}
	n := Notification{Kind: kind, Message: message, DurationMs: DurationFor(kind), At: c.now()}

	c.mu.Lock()
	q := append(c.queues[profile], n)
	if len(q) > c.max {
		q = q[len(q)-c.max:]
	}
	c.queues[profile] = q
	for ch := range c.waiters[profile] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// Drain removes and returns the profile's queue in arrival order.
func (c *Channel) Drain(profile string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	q := c.queues[profile]
	delete(c.queues, profile)
	return q
}

// Pending reports the queue length.
func (c *Channel) Pending(profile string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queues[profile])
}

// Wait returns a channel signalled whenever a notice is queued for profile.
// Call cancel when done.
func (c *Channel) Wait(profile string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	if c.waiters[profile] == nil {
		c.waiters[profile] = make(map[chan struct{}]struct{})
	}
	c.waiters[profile][ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.waiters[profile], ch)
			if len(c.waiters[profile]) == 0 {
				delete(c.waiters, profile)
			}
			c.mu.Unlock()
		})
	}
}

// Sweep drops notifications older than maxAge and reports how many went.
func (c *Channel) Sweep(maxAge time.Duration) int {
	cutoff := c.now().Add(-maxAge)
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped := 0
	for profile, q := range c.queues {
		kept := q[:0]
		for _, n := range q {
			if n.At.Before(cutoff) {
				dropped++
				continue
			}
			kept = append(kept, n)
		}
		if len(kept) == 0 {
			delete(c.queues, profile)
		} else {
			c.queues[profile] = kept
		}
	}
	return dropped
}
