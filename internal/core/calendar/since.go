package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseSince resolves a lower time bound relative to now. It accepts an
// RFC 3339 timestamp, a YYYY-MM-DD date (midnight UTC), a day count such
// as "7d", or a Go duration such as "36h".
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty since value")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return time.Time{}, fmt.Errorf("invalid day count %q", s)
		}
		return now.UTC().AddDate(0, 0, -n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid since value %q: want a date, RFC 3339 time, day count or duration", s)
	}
	return now.UTC().Add(-d), nil
}
