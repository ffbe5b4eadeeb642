package sqlitestore

import "time"

// isoLayout matches spec: ISO-8601 UTC, second precision, trailing Z.
const isoLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(isoLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(isoLayout, s)
}
