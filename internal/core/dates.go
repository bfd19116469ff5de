package core

import (
	"fmt"
	"strings"
	"time"
)

// Layouts the backend is known to emit.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseDate accepts ISO and DD/MM/YYYY forms and returns the date at day precision
// in UTC. Timestamps keep their calendar day as written; no zone conversion happens.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// ParseISODate parses a YYYY-MM-DD date input value.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// ISOToDMY rewrites a YYYY-MM-DD date input value as DD/MM/YYYY, the backend's
// wire format for report ranges. The value must be a real calendar date.
func ISOToDMY(iso string) (string, error) {
	t, err := ParseISODate(iso)
	if err != nil {
		return "", err
	}
	return FormatDMY(t), nil
}

// FormatDMY formats t as DD/MM/YYYY.
func FormatDMY(t time.Time) string {
	return t.Format("02/01/2006")
}

// FormatISO formats t as YYYY-MM-DD, the value HTML date inputs expect.
func FormatISO(t time.Time) string {
	return t.Format("2006-01-02")
}
