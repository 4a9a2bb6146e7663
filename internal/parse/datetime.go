package parse

import (
	"fmt"
	"strings"
	"time"
)

// Normalized storage formats for slots and bookings.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Date normalizes an ISO-8601 date string to DateLayout. A full datetime
// is accepted and truncated to its date part.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date: %q", raw)
}

// TimeOfDay normalizes a time-of-day string to TimeLayout. "HH:MM" and
// "HH:MM:SS" are accepted; a trailing "Z" is stripped first, since browser
// form widgets and the chat model occasionally append one.
func TimeOfDay(raw string) (string, error) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "Z"))
	if s == "" {
		return "", fmt.Errorf("empty time")
	}

	for _, layout := range []string{TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time: %q", raw)
}

// Instant combines a normalized date and time-of-day into a point in time.
func Instant(date, timeOfDay string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, loc)
}
