package notify

import "sync"

// Once suppresses repeats of a logical condition. Each key fires at most once
// until Reset. Give every page instance its own Once so instances never
// suppress each other.
type Once struct {
	mu    sync.Mutex
	fired map[string]struct{}
}

func NewOnce() *Once {
	return &Once{fired: make(map[string]struct{})}
}

// Fire runs fn if key has not fired yet and reports whether it ran.
func (o *Once) Fire(key string, fn func()) bool {
	o.mu.Lock()
	if _, done := o.fired[key]; done {
		o.mu.Unlock()
		return false
	}
	o.fired[key] = struct{}{}
	o.mu.Unlock()
	fn()
	return true
}

// Fired reports whether key has fired since its last reset.
func (o *Once) Fired(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.fired[key]
	return ok
}

// Reset re-arms key, typically after the operation succeeds.
func (o *Once) Reset(key string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.fired, key)
}

// ResetAll re-arms every key.
func (o *Once) ResetAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fired = make(map[string]struct{})
}
