// Package chrono is the timestamp codec shared by every layer.
//
// All instants are held as UTC with microsecond precision. Input carrying a
// "Z" marker or an explicit offset is converted to UTC and the offset dropped;
// offset-less input is read as UTC. Output is always ISO-8601 with a "Z".
package chrono

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the serialized form. Trailing zero fractions are elided.
const Layout = "2006-01-02T15:04:05.999999Z07:00"

// parseLayouts are tried in order. Fractional seconds are accepted by all of
// them even though none spells the fraction out.
var parseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parse reads an ISO-8601 timestamp and returns the equivalent UTC instant,
// truncated to microseconds.
func Parse(text string) (time.Time, error) {
	t, err := ParseExact(text)
	if err != nil {
		return time.Time{}, err
	}
	return Normalize(t), nil
}

// ParseExact is Parse without the truncation. Query bounds use it so that a
// sub-microsecond bound is compared as given.
func ParseExact(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse timestamp: empty input")
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp: unrecognized format %q", text)
}

// Format renders t as ISO-8601 in UTC.
func Format(t time.Time) string {
	return Normalize(t).Format(Layout)
}

// Normalize converts t to UTC, truncates it to microseconds and drops any
// monotonic clock reading. Parse(Format(t)) == t holds for every normalized t
// in years 0 through 9999; Format output outside that range does not parse.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Ptr normalizes t and returns a pointer to the copy.
func Ptr(t time.Time) *time.Time {
	n := Normalize(t)
	return &n
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the normalized wall-clock time.
func (SystemClock) Now() time.Time {
	return Normalize(time.Now())
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f and normalizes the result.
func (f ClockFunc) Now() time.Time {
	return Normalize(f())
}
