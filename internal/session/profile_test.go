package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const key = "0123456789abcdef0123456789abcdef"

func TestProfiles_IssueAndParse(t *testing.T) {
	p := NewProfiles(key, time.Hour, false)
	token, id, err := p.Issue()
	require.NoError(t, err)

	got, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	other := NewProfiles("another-key-another-key-another-k", time.Hour, false)
	_, err = other.Parse(token)
	assert.Error(t, err, "token signed with a different key")
}

func TestProfiles_Expired(t *testing.T) {
	p := NewProfiles(key, time.Minute, false)
	p.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := p.Issue()
	require.NoError(t, err)

	_, err = p.Parse(token)
	assert.Error(t, err)
}

func TestProfiles_Middleware(t *testing.T) {
	p := NewProfiles(key, time.Hour, true)
	var seen string
	h := p.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ProfileFrom(r.Context())
	}))

	// first visit issues a cookie
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	first := seen
	require.NotEmpty(t, first)

	// returning visit keeps the profile and sets nothing
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, first, seen)
	assert.Empty(t, rec.Result().Cookies())

	// tampered cookie yields a new profile
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookies[0].Value + "x"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, first, seen)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestProfileFrom_Missing(t *testing.T) {
	_, err := ProfileFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, ErrNoProfile)
}
