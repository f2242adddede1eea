package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DayKeyLayout is the calendar-day label used by every bucketed series.
	DayKeyLayout = "2006-01-02"
	// TimestampLayout is the canonical datetime form of rendered timestamps.
	TimestampLayout = "2006-01-02 15:04:05"
)

type (
	// TimeRange is a closed [Start, End] window in UNIX seconds.
	TimeRange struct {
		Start int64
		End   int64
	}

	// DateBucket is one point of a date-labeled count series.
	DateBucket struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}

	// DayCount is a raw per-day aggregate as fetched from a store.
	DayCount struct {
		Day   string
		Count int
	}
)

func (r TimeRange) IsZero() bool { return r.Start == 0 && r.End == 0 }

func (r TimeRange) Contains(ts int64) bool { return ts >= r.Start && ts <= r.End }

// LastNDays returns the n-day window ending offsetDays before now.
// The end is clamped to 23:59:59 UTC of its day; the start sits (n-1) days
// earlier, mirroring the day-inclusive windows the dashboards expect.
func LastNDays(now time.Time, n, offsetDays int) TimeRange {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC).
		AddDate(0, 0, -offsetDays)
	start := end.AddDate(0, 0, -(n - 1))
	return TimeRange{Start: start.Unix(), End: end.Unix()}
}

// DateKeys returns the last n calendar-day labels in UTC, oldest first,
// ending at the day of now.
func DateKeys(now time.Time, n int) []string {
	now = now.UTC()
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, now.AddDate(0, 0, -i).Format(DayKeyLayout))
	}
	return keys
}

// Bucketize zero-fills the last n days then accumulates the given per-day
// counts into them. Days outside the window are dropped; days with no rows
// stay zero. The output has exactly n points in chronological order.
func Bucketize(now time.Time, rows []DayCount, n int) []DateBucket {
	keys := DateKeys(now, n)
	mapping := make(map[string]int, n)
	for _, k := range keys {
		mapping[k] = 0
	}
	for _, row := range rows {
		if _, ok := mapping[row.Day]; ok {
			mapping[row.Day] += row.Count
		}
	}
	buckets := make([]DateBucket, 0, n)
	for _, k := range keys {
		buckets = append(buckets, DateBucket{Date: FormatTimestamp(k), Count: mapping[k]})
	}
	return buckets
}

// DayKey returns the UTC calendar-day label of a UNIX timestamp.
func DayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(DayKeyLayout)
}

// DaysSince returns the number of whole calendar days between the day of ts
// and the day of now (UTC).
func DaysSince(now time.Time, ts int64) int {
	nowDay := now.UTC().Truncate(24 * time.Hour)
	tsDay := time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)
	return int(nowDay.Sub(tsDay).Hours() / 24)
}

// FormatTimestamp renders any timestamp representation the upstream stores
// produce into the canonical "YYYY-MM-DD HH:MM:SS" form. Upstream data
// quality varies, so this is deliberately lenient: nil yields the empty
// string, epoch numbers and ISO-8601 strings are normalized, and anything
// unrecognized is stringified as-is rather than failing.
func FormatTimestamp(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format(TimestampLayout)
	case int:
		return time.Unix(int64(v), 0).UTC().Format(TimestampLayout)
	case int64:
		return time.Unix(v, 0).UTC().Format(TimestampLayout)
	case float64:
		return time.Unix(int64(v), 0).UTC().Format(TimestampLayout)
	case string:
		s := strings.Replace(v, "T", " ", 1)
		for _, layout := range []string{TimestampLayout, DayKeyLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format(TimestampLayout)
			}
		}
		return v
	default:
		return fmt.Sprint(value)
	}
}

// ParseTimestamp is the inverse of FormatTimestamp for well-formed values.
// ok is false when the input cannot be interpreted as a datetime.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.Replace(s, "T", " ", 1)
	for _, layout := range []string{TimestampLayout, DayKeyLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
