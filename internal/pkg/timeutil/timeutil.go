package timeutil

import "time"

// All persisted timestamps are RFC 3339 UTC strings so sort-key ordering
// matches chronological ordering.

func NowISO() string {
	return FormatISO(time.Now())
}

func FormatISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func ParseISO(value string) (time.Time, error) {
	return time.Parse(time.RFC3339, value)
}

// Day truncates an ISO timestamp to its calendar date, for per-day buckets.
func Day(value string) string {
	if len(value) >= 10 {
		return value[:10]
	}
	return value
}
