// Package memory keeps sessions in process memory. It is the default backend
// for a single instance and the backend used by tests.
package memory

import (
	"context"
	"sync"

	"finboard/internal/session"
)

type Store struct {
	mu       sync.Mutex
	sessions map[string]session.Session
	links    map[string]map[string]string
}

func New() *Store {
	return &Store{
		sessions: make(map[string]session.Session),
		links:    make(map[string]map[string]string),
	}
}

func (s *Store) Load(_ context.Context, profile string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[profile], nil
}

func (s *Store) Save(_ context.Context, profile string, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[profile] = sess
	return nil
}

// Delete drops the session and every report link of the profile.
func (s *Store) Delete(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, profile)
	delete(s.links, profile)
	return nil
}

// Profiles lists profiles with a stored session.
func (s *Store) Profiles(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for p := range s.sessions {
		out = append(out, p)
	}
	return out, nil
}

// SaveLink stores the latest report URL of a kind for the profile.
func (s *Store) SaveLink(_ context.Context, profile, kind, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.links[profile] == nil {
		s.links[profile] = make(map[string]string)
	}
	s.links[profile][kind] = url
	return nil
}

// Link returns "" when no report of that kind was generated for the profile.
func (s *Store) Link(_ context.Context, profile, kind string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[profile][kind], nil
}

// DropLinks removes every stored link of the profile.
func (s *Store) DropLinks(_ context.Context, profile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, profile)
	return nil
}

var _ session.Persister = (*Store)(nil)
