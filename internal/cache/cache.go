package cache

import "sync"

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries on demand.
type Cleaner interface {
	CleanExpired() int
}

// Manager groups caches so a scheduled job can sweep them together.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
}

// NewManager creates a new cache manager
func NewManager() *Manager {
	return &Manager{caches: make(map[string]Cleaner)}
}

// Register adds a cache under a name used in sweep reports.
func (m *Manager) Register(name string, cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = cache
}

// CleanAll sweeps every registered cache and reports evictions per cache.
func (m *Manager) CleanAll() map[string]int {
	m.mu.Lock()
	caches := make(map[string]Cleaner, len(m.caches))
	for k, v := range m.caches {
		caches[k] = v
	}
	m.mu.Unlock()

	cleaned := make(map[string]int, len(caches))
	for name, c := range caches {
		cleaned[name] = c.CleanExpired()
	}
	return cleaned
}
