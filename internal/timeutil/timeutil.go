// Package timeutil handles the offset-free timestamp convention used for
// all message dates. Timestamps are stored and served as naive ISO 8601
// strings; any timezone suffix (even "Z") is rejected, because the values
// are in an absolute time standard rather than UTC.
package timeutil

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical wire format for message timestamps.
const Layout = "2006-01-02T15:04:05.999999"

var parseLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Now returns the current time truncated to microseconds, matching the
// precision of the timestamp columns.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Parse parses a naive ISO 8601 timestamp. Any timezone suffix is an error.
func Parse(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if hasOffset(v) {
		return time.Time{}, fmt.Errorf("timestamp %q must not have a time zone suffix", value)
	}
	for _, layout := range parseLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// Format renders a timestamp in the canonical naive form.
func Format(t time.Time) string {
	return t.Format(Layout)
}

func hasOffset(v string) bool {
	if strings.HasSuffix(v, "Z") || strings.HasSuffix(v, "z") {
		return true
	}
	// An offset is a +hh:mm or -hh:mm suffix after the time portion.
	// The date portion itself contains '-' separators, so only look at
	// text beyond the first 'T' or ' ' separator.
	sep := strings.IndexAny(v, "T ")
	if sep < 0 {
		return false
	}
	rest := v[sep+1:]
	return strings.ContainsAny(rest, "+-")
}
