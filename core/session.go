package core

import (
	"sort"
	"time"
)

// Session gap heuristic: an inter-event gap within [1, 30] minutes
// (inclusive) counts as engaged time-on-task; shorter gaps are duplicate
// noise, longer ones abandoned sessions. Fixed design parameter.
const (
	minSessionGapMinutes = 1
	maxSessionGapMinutes = 30
)

// ActivityEvent is one raw activity-log row: a discrete action, not a
// duration.
type ActivityEvent struct {
	UserID    int
	Timestamp int64
}

// HoursBucket is one point of a date-labeled time-on-task series.
type HoursBucket struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// sessionGaps walks the events of each user in timestamp order and returns
// the gap lengths (minutes) that pass the heuristic, together with the
// timestamp of the later event of each counted gap.
func sessionGaps(events []ActivityEvent) (gaps []float64, at []int64) {
	sorted := make([]ActivityEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].UserID != sorted[j].UserID {
			return sorted[i].UserID < sorted[j].UserID
		}
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	lastByUser := make(map[int]int64)
	for _, ev := range sorted {
		if last, ok := lastByUser[ev.UserID]; ok {
			gapMin := float64(ev.Timestamp-last) / 60
			if gapMin >= minSessionGapMinutes && gapMin <= maxSessionGapMinutes {
				gaps = append(gaps, gapMin)
				at = append(at, ev.Timestamp)
			}
		}
		lastByUser[ev.UserID] = ev.Timestamp
	}
	return gaps, at
}

// AvgSessionHours infers the average engaged-session length, in hours, from
// sparse activity timestamps of one or more users. 0 when no gap qualifies.
func AvgSessionHours(events []ActivityEvent) float64 {
	gaps, _ := sessionGaps(events)
	if len(gaps) == 0 {
		return 0
	}
	var sum float64
	for _, g := range gaps {
		sum += g
	}
	return RoundTo(sum/float64(len(gaps))/60, 2)
}

// TotalSessionHours sums every qualifying gap, in hours.
func TotalSessionHours(events []ActivityEvent) float64 {
	gaps, _ := sessionGaps(events)
	var sum float64
	for _, g := range gaps {
		sum += g
	}
	return RoundTo(sum/60, 2)
}

// SessionHoursPerDay buckets inferred time-on-task by the calendar day of
// the later event of each counted gap, zero-filling the last n days.
func SessionHoursPerDay(now time.Time, events []ActivityEvent, n int) []HoursBucket {
	keys := DateKeys(now, n)
	perDay := make(map[string]float64, n)
	for _, k := range keys {
		perDay[k] = 0
	}
	gaps, at := sessionGaps(events)
	for i, g := range gaps {
		day := DayKey(at[i])
		if _, ok := perDay[day]; ok {
			perDay[day] += g / 60
		}
	}
	buckets := make([]HoursBucket, 0, n)
	for _, k := range keys {
		buckets = append(buckets, HoursBucket{Date: FormatTimestamp(k), Hours: RoundTo(perDay[k], 2)})
	}
	return buckets
}
