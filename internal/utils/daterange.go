package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseDateRange turns "today", "week" or "month" into a half-open
// [from, to) window of whole UTC days ending tomorrow at midnight. An empty
// range means no bounds.
func ParseDateRange(rng string, now time.Time) (from, to *time.Time, err error) {
	rng = strings.ToLower(strings.TrimSpace(rng))
	if rng == "" || rng == "all" {
		return nil, nil, nil
	}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1)

	var start time.Time
	switch rng {
	case "today":
		start = today
	case "week":
		start = today.AddDate(0, 0, -7)
	case "month":
		start = today.AddDate(0, 0, -30)
	default:
		return nil, nil, fmt.Errorf("unknown range %q", rng)
	}
	return &start, &end, nil
}
