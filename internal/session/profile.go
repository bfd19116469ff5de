package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// CookieName holds the signed profile id.
const CookieName = "finboard_profile"

type profileKey struct{}

// ProfileClaims is the JWT payload of the profile cookie.
type ProfileClaims struct {
	ProfileID string `json:"pid"`
	jwt.RegisteredClaims
}

// Profiles issues and verifies profile cookies.
type Profiles struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewProfiles(signingKey string, ttl time.Duration, secure bool) *Profiles {
	return &Profiles{key: []byte(signingKey), ttl: ttl, secure: secure, now: time.Now}
}

// Issue signs a new profile id.
func (p *Profiles) Issue() (token, profile string, err error) {
	profile = uuid.NewString()
	now := p.now()
	claims := ProfileClaims{
		ProfileID: profile,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return "", "", fmt.Errorf("sign profile: %w", err)
	}
	return token, profile, nil
}

// Parse verifies a cookie value and returns its profile id.
func (p *Profiles) Parse(token string) (string, error) {
	claims := &ProfileClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.key, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.ProfileID == "" {
		return "", jwt.ErrSignatureInvalid
	}
	return claims.ProfileID, nil
}

// Middleware attaches the request's profile id to its context, issuing a fresh
// profile when the cookie is missing, tampered or expired.
func (p *Profiles) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var profile string
		if c, err := r.Cookie(CookieName); err == nil {
			profile, _ = p.Parse(c.Value)
		}
		if profile == "" {
			token, id, err := p.Issue()
			if err != nil {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			profile = id
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(p.ttl / time.Second),
				HttpOnly: true,
				Secure:   p.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(WithProfile(r.Context(), profile)))
	})
}

// WithProfile returns a context carrying the profile id.
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, profileKey{}, profile)
}

// ProfileFrom returns the profile id stored by Middleware.
func ProfileFrom(ctx context.Context) (string, error) {
	if p, ok := ctx.Value(profileKey{}).(string); ok && p != "" {
		return p, nil
	}
	return "", ErrNoProfile
}
