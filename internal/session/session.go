// Package session keeps the signed-in actor for each browser profile.
//
// A profile is an opaque id carried by a signed cookie. Its session is three
// fields persisted together; the Store is the only reader and writer, and every
// change is announced to local listeners and to other instances.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"finboard/internal/core"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrNoProfile      = errors.New("no profile in context")
)

// Session is the signed-in actor. The zero value is the anonymous session.
type Session struct {
	UserID string `json:"id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=user admin"`
	RoleID string `json:"role_id"`
}

// Authenticated reports whether a user id is present. A role without a user id
// does not count.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// IsZero reports whether no field is set.
func (s Session) IsZero() bool {
	return s == Session{}
}

// IsAdmin reports an authenticated admin.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && s.Role == core.RoleAdmin
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func sessionValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a session before it is stored. Only complete sign-ins are stored;
// clearing goes through Store.Clear.
func (s Session) Validate() error {
	if err := sessionValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidSession, fe.Field(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	return nil
}

// Change describes one observable transition of a profile's session.
type Change struct {
	Profile string    `json:"profile"`
	Old     Session   `json:"old"`
	New     Session   `json:"new"`
	Origin  string    `json:"origin"`
	At      time.Time `json:"at"`
}

// Cleared reports a transition to the anonymous session.
func (c Change) Cleared() bool {
	return c.New.IsZero() && !c.Old.IsZero()
}
