package core

import (
	"errors"
	"testing"
	"time"
)

func TestISOToDMY(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2025-02-01", "01/02/2025", false},
		{"2025-02-10", "10/02/2025", false},
		{"1999-12-31", "31/12/1999", false},
		{"2025-02-30", "", true},
		{"01/02/2025", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ISOToDMY(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ISOToDMY(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidDate) {
				t.Errorf("error should wrap ErrInvalidDate, got %v", err)
			}
			if got != tt.want {
				t.Errorf("ISOToDMY(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2025-01-31",
		"2025-01-31T18:22:01.123Z",
		"2025-01-31T18:22:01+02:00",
		"31/01/2025",
		"31/01/2025 09:15",
		"31/01/2025 09:15:59",
	} {
		got, err := ParseDate(in)
		if err != nil || !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseDate("yesterday"); err == nil {
		t.Error("expected error for free text")
	}
}
