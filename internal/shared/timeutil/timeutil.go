// Package timeutil centralizes timestamp and date formatting for stored
// entities.
package timeutil

import "time"

// TimestampLayout is the storage format for entity timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// DateLayout is the storage format for calendar dates.
const DateLayout = "2006-01-02"

// Now returns the current UTC time as a storage timestamp.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Today returns the current UTC calendar date.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// ParseTimestamp parses a storage timestamp, accepting RFC 3339 variants.
func ParseTimestamp(value string) (time.Time, error) {
	if t, err := time.Parse(TimestampLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
