// Package guard decides whether a route renders for the current session.
package guard

import (
	"context"
	"fmt"
	"net/http"

	"finboard/internal/log"
	"finboard/internal/session"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Spec is attached to a route subtree. An empty RequiredRole admits any
// authenticated session.
type Spec struct {
	RequiredRole string
}

// MismatchPolicy chooses where a signed-in user with the wrong role goes.
type MismatchPolicy int

const (
	// MismatchToLogin sends the user to the login page.
	MismatchToLogin MismatchPolicy = iota
	// MismatchToHome sends the user to the landing page.
	MismatchToHome
)

// ParsePolicy maps the GUARD_MISMATCH setting.
func ParsePolicy(s string) (MismatchPolicy, error) {
	switch s {
	case "", "login":
		return MismatchToLogin, nil
	case "home":
		return MismatchToHome, nil
	}
	return MismatchToLogin, fmt.Errorf("unknown mismatch policy %q", s)
}

func (p MismatchPolicy) String() string {
	if p == MismatchToHome {
		return "home"
	}
	return "login"
}

// Decision is either Render or a redirect target.
type Decision struct {
	Redirect string
}

// Render reports whether the route may render.
func (d Decision) Render() bool { return d.Redirect == "" }

// Decide evaluates spec against sess. It holds no state, so callers evaluate it
// on every navigation.
func Decide(spec Spec, sess session.Session, policy MismatchPolicy) Decision {
	if !sess.Authenticated() {
		return Decision{Redirect: LoginPath}
	}
	if spec.RequiredRole != "" && sess.Role != spec.RequiredRole {
		if policy == MismatchToHome {
			return Decision{Redirect: HomePath}
		}
		return Decision{Redirect: LoginPath}
	}
	return Decision{}
}

// SessionReader is the part of the session store the guard needs.
type SessionReader interface {
	Get(ctx context.Context, profile string) (session.Session, error)
}

type sessionKey struct{}

// SessionFrom returns the session the guard admitted for this request.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(session.Session)
	return s, ok
}

// WithSession stores a session the way Guard.Require does. Used by tests and by
// handlers that read the session outside a guarded route.
func WithSession(ctx context.Context, s session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Guard wraps handlers with route protection.
type Guard struct {
	sessions SessionReader
	policy   MismatchPolicy
	logger   *log.Logger
}

func New(sessions SessionReader, policy MismatchPolicy, logger *log.Logger) *Guard {
	if logger == nil {
		logger = log.Discard()
	}
	return &Guard{sessions: sessions, policy: policy, logger: logger.WithComponent(log.ComponentGuard)}
}

// Policy returns the configured mismatch policy.
func (g *Guard) Policy() MismatchPolicy { return g.policy }

// Require re-reads the session on every request and either serves next or redirects.
func (g *Guard) Require(spec Spec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var sess session.Session
		if profile, err := session.ProfileFrom(ctx); err == nil {
			sess, err = g.sessions.Get(ctx, profile)
			if err != nil {
				g.logger.ErrorContext(ctx, "Failed to read session", log.FieldError, err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
		}

		d := Decide(spec, sess, g.policy)
		if !d.Render() {
			g.logger.DebugContext(ctx, "Route access denied",
				log.FieldPath, r.URL.Path,
				log.FieldRole, sess.Role,
				"required_role", spec.RequiredRole,
				"redirect", d.Redirect)
			Redirect(w, r, d.Redirect)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
	})
}

// Redirect sends the browser to target. htmx requests get HX-Redirect so the
// whole page navigates instead of swapping the login page into a fragment.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
