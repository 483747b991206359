package helper_util

import (
	"fmt"
	"time"
)

// ParseClock parses an HH:MM clock string into minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// InClockWindow reports whether the clock value (minutes since midnight)
// falls inside [start, end]. Windows where start > end wrap past midnight.
func InClockWindow(clock, start, end int) bool {
	if start <= end {
		return clock >= start && clock <= end
	}
	return clock >= start || clock <= end
}

// ParseTime parses an RFC3339 timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	return t, err
}
