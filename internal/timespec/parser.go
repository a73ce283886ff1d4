package timespec

import (
	"fmt"
	"time"
)

// dateLayout is the date picker format used by the police dashboard.
const dateLayout = "2006-01-02"

// ParseAt parses a time specification into a Unix timestamp (milliseconds).
// Supports three formats:
//   - Go duration format: "1h", "30m", "1h30m", "72h"
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
//   - Calendar dates: "2025-10-29" (midnight in loc)
//
// Duration specifications are relative to now (subtracted from it).
// For example, "1h" means "1 hour ago".
func ParseAt(spec string, now time.Time, loc *time.Location) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if t, err := time.ParseInLocation(dateLayout, spec, loc); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("invalid time specification: %s (duration must not be negative)", spec)
		}
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use a duration like '1h30m', a date like '2025-10-29' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRangeAt parses a since/until pair into a time range.
// Returns (sinceTimestampMs, untilTimestampMs, error).
// Zero values indicate "no bound" for that end of the range.
// A calendar date as until covers that whole day, so the bound is the last
// millisecond before the next midnight in loc.
//
// Validates that since < until if both are specified.
func ParseRangeAt(since, until string, now time.Time, loc *time.Location) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = ParseAt(since, now, loc)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid since: %w", err)
		}
	}

	if until != "" {
		if day, dateErr := time.ParseInLocation(dateLayout, until, loc); dateErr == nil {
			untilMS = day.AddDate(0, 0, 1).UnixMilli() - 1
		} else if untilMS, err = ParseAt(until, now, loc); err != nil {
			return 0, 0, fmt.Errorf("invalid until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("since must be before until")
	}

	return sinceMS, untilMS, nil
}
