package timeutil

import (
	"testing"
	"time"
)

func TestParseNaive(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-01T12:30:45", time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)},
		{"2024-03-01T12:30:45.250000", time.Date(2024, 3, 1, 12, 30, 45, 250_000_000, time.UTC)},
		{"2024-03-01 12:30:45", time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRejectsOffsets(t *testing.T) {
	bad := []string{
		"2024-03-01T12:30:45Z",
		"2024-03-01T12:30:45+01:00",
		"2024-03-01T12:30:45-05:30",
		"2024-03-01T12:30:45.5z",
		"not a date",
		"",
	}
	for _, in := range bad {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	orig := time.Date(2024, 3, 1, 12, 30, 45, 250_000_000, time.UTC)
	got, err := Parse(Format(orig))
	if err != nil {
		t.Fatalf("round trip parse error: %v", err)
	}
	if !got.Equal(orig) {
		t.Fatalf("round trip = %v, want %v", got, orig)
	}
}
