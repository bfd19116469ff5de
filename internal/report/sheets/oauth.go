package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// AuthTimeout bounds how long Authorize waits for the browser callback.
var AuthTimeout = 5 * time.Minute

// OAuthConfig parses an OAuth client JSON for the spreadsheets scope.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// OAuthClientJSON reads GOOGLE_OAUTH_CLIENT_JSON, or the file named by
// GOOGLE_OAUTH_CLIENT_FILE. It returns nil when neither is set.
func OAuthClientJSON() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"))
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client file: %w", err)
	}
	return raw, nil
}

// Authorize runs the installed-app flow. The callback is served on ln and
// prompt receives the URL the user has to open.
func Authorize(ctx context.Context, cfg *oauth2.Config, ln net.Listener, prompt func(url string)) (*oauth2.Token, error) {
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/callback"
	state := uuid.NewString()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("oauth error: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("oauth state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("oauth callback without code")
		default:
			res.code = q.Get("code")
		}
		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
		}
		select {
		case done <- res:
		default:
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	prompt(cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(ctx, AuthTimeout)
	defer cancel()
	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		tok, err := cfg.Exchange(ctx, res.code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
}

// SaveToken writes tok to path, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func loadToken(path string) (*oauth2.Token, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	return &tok, nil
}

// userCredentials returns a client option for a saved OAuth user token, or
// nil when GOOGLE_OAUTH_TOKEN_FILE is unset.
func userCredentials(ctx context.Context) (goption.ClientOption, error) {
	tokenFile := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE"))
	if tokenFile == "" {
		return nil, nil
	}
	clientJSON, err := OAuthClientJSON()
	if err != nil {
		return nil, err
	}
	if clientJSON == nil {
		return nil, errors.New("GOOGLE_OAUTH_TOKEN_FILE needs GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	cfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}
	tok, err := loadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return goption.WithTokenSource(cfg.TokenSource(ctx, tok)), nil
}
