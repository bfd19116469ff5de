package services

import (
	"context"
	"errors"
	"fmt"

	"finboard/internal/core"
	"finboard/internal/session"
)

// ErrPasswordRequired is a form error: the account action needs the password.
var ErrPasswordRequired = errors.New("password is required")

// ProfileService backs the signed-in user's own profile page.
type ProfileService struct {
	api      API
	sessions *session.Store
}

func NewProfileService(api API, sessions *session.Store) *ProfileService {
	return &ProfileService{api: api, sessions: sessions}
}

func (s *ProfileService) Load(ctx context.Context, sess session.Session) (core.User, error) {
	u, err := s.api.Profile(ctx, sess.UserID)
	if err != nil {
		return core.User{}, fmt.Errorf("fetch profile: %w", err)
	}
	return u, nil
}

// Deactivate deactivates the caller's account and signs the profile out.
func (s *ProfileService) Deactivate(ctx context.Context, profile string, sess session.Session, password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	msg, err := s.api.DeactivateUser(ctx, sess.UserID, "", password)
	if err != nil {
		return "", fmt.Errorf("deactivate account: %w", err)
	}
	if err := s.sessions.Clear(ctx, profile); err != nil {
		return "", err
	}
	return orDefault(msg.Message, "Account deactivated successfully."), nil
}

// DeleteAccount deletes the caller's account and signs the profile out.
func (s *ProfileService) DeleteAccount(ctx context.Context, profile string, sess session.Session, password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	msg, err := s.api.DeleteUser(ctx, sess.UserID, "", password)
	if err != nil {
		return "", fmt.Errorf("delete account: %w", err)
	}
	if err := s.sessions.Clear(ctx, profile); err != nil {
		return "", err
	}
	return orDefault(msg.Message, "Account deleted successfully."), nil
}
