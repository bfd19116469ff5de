package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"finboard/internal/cache"
	"finboard/internal/log"
)

// Store is the single source of truth for sessions. Reads go through a small
// cache that is dropped for a profile on every local or remote change.
type Store struct {
	persister   Persister
	broadcaster Broadcaster
	cache       *cache.LRUCache[Session]
	origin      string
	logger      *log.Logger

	writeMu sync.Mutex

	// gen counts cache invalidations. A load only fills the cache when no
	// invalidation happened while it ran.
	genMu sync.Mutex
	gen   uint64

	listenMu  sync.RWMutex
	listeners map[uint64]Handler
	nextID    uint64

	now func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

func WithLogger(l *log.Logger) StoreOption {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentSession) }
}

// NewStore wires a persister and a broadcaster. A nil broadcaster means local only.
func NewStore(p Persister, b Broadcaster, opts ...StoreOption) *Store {
	if b == nil {
		b = LocalBroadcaster{}
	}
	s := &Store{
		persister:   p,
		broadcaster: b,
		cache:       cache.NewLRUCache[Session](1024, 30*time.Second),
		origin:      uuid.NewString(),
		logger:      log.Discard(),
		listeners:   make(map[uint64]Handler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Origin identifies this instance in broadcast changes.
func (s *Store) Origin() string { return s.origin }

// Get returns the profile's session, or the zero Session.
func (s *Store) Get(ctx context.Context, profile string) (Session, error) {
	if profile == "" {
		return Session{}, nil
	}
	if cached, ok := s.cache.Get(profile); ok {
		return cached, nil
	}
	s.genMu.Lock()
	started := s.gen
	s.genMu.Unlock()

	sess, err := s.persister.Load(ctx, profile)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	s.genMu.Lock()
	if s.gen == started {
		s.cache.Set(profile, sess)
	}
	s.genMu.Unlock()
	return sess, nil
}

// invalidate drops the cached session and keeps loads in flight from caching.
func (s *Store) invalidate(profile string) {
	s.genMu.Lock()
	s.gen++
	s.cache.Delete(profile)
	s.genMu.Unlock()
}

// Set stores a complete sign-in for the profile.
func (s *Store) Set(ctx context.Context, profile string, sess Session) error {
	if profile == "" {
		return ErrNoProfile
	}
	if err := sess.Validate(); err != nil {
		return err
	}
	return s.write(ctx, profile, sess, func() error {
		return s.persister.Save(ctx, profile, sess)
	})
}

// Clear removes all three fields as one change.
func (s *Store) Clear(ctx context.Context, profile string) error {
	if profile == "" {
		return ErrNoProfile
	}
	return s.write(ctx, profile, Session{}, func() error {
		return s.persister.Delete(ctx, profile)
	})
}

func (s *Store) write(ctx context.Context, profile string, next Session, persist func() error) error {
	s.writeMu.Lock()
	old, err := s.persister.Load(ctx, profile)
	if err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("load session: %w", err)
	}
	if err := persist(); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("persist session: %w", err)
	}
	s.invalidate(profile)
	s.writeMu.Unlock()

	if old == next {
		return nil
	}

	change := Change{Profile: profile, Old: old, New: next, Origin: s.origin, At: s.now()}
	s.dispatch(change)

	if err := s.broadcaster.Publish(ctx, change); err != nil {
		// The write succeeded; other instances catch up on their next read miss.
		s.logger.WarnContext(ctx, "Failed to broadcast session change",
			log.FieldProfile, profile, log.FieldError, err)
	}
	return nil
}

// OnChange registers h for every change of every profile. The returned func
// unregisters it.
func (s *Store) OnChange(h Handler) func() {
	s.listenMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = h
	s.listenMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenMu.Lock()
			delete(s.listeners, id)
			s.listenMu.Unlock()
		})
	}
}

// dispatch calls the listeners registered at this moment, synchronously.
func (s *Store) dispatch(c Change) {
	s.listenMu.RLock()
	handlers := make([]Handler, 0, len(s.listeners))
	for _, h := range s.listeners {
		handlers = append(handlers, h)
	}
	s.listenMu.RUnlock()

	for _, h := range handlers {
		h(c)
	}
}

// Run applies remote changes until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Listening for remote session changes", log.FieldOrigin, s.origin)
	return s.broadcaster.Listen(ctx, func(c Change) {
		s.applyRemote(ctx, c)
	})
}

// applyRemote re-reads the persister instead of trusting the message payload.
func (s *Store) applyRemote(ctx context.Context, c Change) {
	if c.Origin == s.origin {
		return
	}
	s.invalidate(c.Profile)
	fresh, err := s.persister.Load(ctx, c.Profile)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to reload session after remote change",
			log.FieldProfile, c.Profile, log.FieldError, err)
		return
	}
	c.New = fresh
	s.logger.DebugContext(ctx, "Applied remote session change",
		log.FieldProfile, c.Profile, log.FieldOrigin, c.Origin)
	s.dispatch(c)
}

// Close releases the broadcaster.
func (s *Store) Close() error {
	return s.broadcaster.Close()
}
