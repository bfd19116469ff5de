package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call.
type Kind string

const (
	// KindNetwork means no usable response arrived.
	KindNetwork Kind = "network"
	// KindServer means the backend answered with a non-2xx status.
	KindServer Kind = "server"
	// KindDecode means a 2xx body could not be decoded.
	KindDecode Kind = "decode"
)

// Fallback messages shown when the backend gives nothing better.
const (
	MsgNetwork = "Unable to reach the server. Check your connection and try again."
	MsgServer  = "Something went wrong. Please try again."
	MsgDecode  = "The server sent an unexpected response."
)

// Failure is the one error shape every call returns. Status is 0 unless the
// backend answered.
type Failure struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s failure (status %d): %s", f.Kind, f.Status, f.Message)
	}
	return fmt.Sprintf("%s failure: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Unauthorized reports a 401 from the backend, meaning the session is stale.
func (f *Failure) Unauthorized() bool {
	return f.Kind == KindServer && f.Status == http.StatusUnauthorized
}

// AsFailure normalizes any error into a Failure. It returns nil for nil.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

// IsUnauthorized reports whether err is a backend 401.
func IsUnauthorized(err error) bool {
	var f *Failure
	return errors.As(err, &f) && f.Unauthorized()
}

// UserMessage returns the user-facing text for err, or fallback when err is not a Failure.
func UserMessage(err error, fallback string) string {
	var f *Failure
	if errors.As(err, &f) && f.Message != "" {
		return f.Message
	}
	return fallback
}

func networkFailure(err error) *Failure {
	msg := MsgNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "The server took too long to respond."
	}
	return &Failure{Kind: KindNetwork, Message: msg, Err: err}
}

func serverFailure(status int, body []byte) *Failure {
	msg := messageFrom(body)
	if msg == "" {
		msg = MsgServer
	}
	return &Failure{Kind: KindServer, Status: status, Message: msg}
}

// messageFrom extracts the backend's explanation from an error body. It knows
// {"message": ...}, {"error": ...} and {"detail": ...}, where detail may be a
// string or a list of {"msg": ...} validation entries.
func messageFrom(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "detail", "error"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &list) == nil {
			var msgs []string
			for _, item := range list {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	return ""
}
