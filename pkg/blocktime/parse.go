package blocktime

import (
	"fmt"
	"strings"
	"time"
)

// Accepted input layouts for window bounds. All are interpreted as UTC.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02",
	time.RFC3339,
}

// ParseUTC parses a user-supplied timestamp string.
func ParseUTC(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (want e.g. 2006-01-02 15:04:05)", s)
}

// ParseRange parses and validates a pair of bounds. A future end bound is
// clamped to now with a warning rather than rejected.
func ParseRange(startStr, endStr string) (TimeRange, []string, error) {
	var warnings []string

	start, err := ParseUTC(startStr)
	if err != nil {
		return TimeRange{}, nil, fmt.Errorf("start: %w", err)
	}
	end, err := ParseUTC(endStr)
	if err != nil {
		return TimeRange{}, nil, fmt.Errorf("end: %w", err)
	}

	now := time.Now().UTC()
	if end.After(now) {
		warnings = append(warnings, fmt.Sprintf("end %s is in the future, clamped to now", end.Format(time.RFC3339)))
		end = now
	}

	tr := TimeRange{Start: start, End: end}
	if err := tr.Validate(); err != nil {
		return TimeRange{}, warnings, err
	}
	if end.Sub(start) > 30*24*time.Hour {
		warnings = append(warnings, "window spans more than 30 days; expect a slow run")
	}
	return tr, warnings, nil
}
