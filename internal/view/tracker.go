package view

import "sync"

// Tracker implements "last request wins" per triggering input. Every request
// takes a ticket for its key; when the result arrives only the newest ticket
// may apply it.
type Tracker struct {
	mu  sync.Mutex
	seq map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{seq: make(map[string]uint64)}
}

// Ticket identifies one in-flight request for a key.
type Ticket struct {
	t   *Tracker
	key string
	n   uint64
}

// Begin supersedes every earlier ticket for key.
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq[key]++
	return Ticket{t: t, key: key, n: t.seq[key]}
}

// Current reports whether no newer ticket for the same key has been issued.
func (tk Ticket) Current() bool {
	if tk.t == nil {
		return false
	}
	tk.t.mu.Lock()
	defer tk.t.mu.Unlock()
	return tk.t.seq[tk.key] == tk.n
}
