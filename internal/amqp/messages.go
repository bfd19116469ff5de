package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"finboard/internal/session"
)

// SessionChangedMessage announces that a profile's session changed.
// It carries no session data; receivers re-read the shared persister.
type SessionChangedMessage struct {
	Profile   string    `json:"profile"`
	Origin    string    `json:"origin"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionChangedMessage builds the message for a local change.
func NewSessionChangedMessage(c session.Change) *SessionChangedMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &SessionChangedMessage{
		Profile:   c.Profile,
		Origin:    c.Origin,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SessionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// Change converts the message back into a session change without payload.
func (m *SessionChangedMessage) Change() session.Change {
	return session.Change{Profile: m.Profile, Origin: m.Origin, At: m.Timestamp}
}

// SessionChangedMessageFromJSON decodes and validates a message.
func SessionChangedMessageFromJSON(data []byte) (*SessionChangedMessage, error) {
	var msg SessionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Profile == "" {
		return nil, errors.New("session change message without profile")
	}
	return &msg, nil
}
