package core

import (
	"testing"
	"time"
)

var testNow = time.Date(2021, 3, 15, 10, 30, 0, 0, time.UTC)

func TestDateKeys(t *testing.T) {
	for _, n := range []int{1, 7, 30} {
		keys := DateKeys(testNow, n)
		if len(keys) != n {
			t.Fatalf("DateKeys(%d) returned %d keys", n, len(keys))
		}
		if keys[n-1] != "2021-03-15" {
			t.Errorf("DateKeys(%d) last = %s, want today", n, keys[n-1])
		}
		seen := make(map[string]bool)
		for i, k := range keys {
			if seen[k] {
				t.Errorf("DateKeys(%d): duplicate key %s", n, k)
			}
			seen[k] = true
			if i > 0 && k <= keys[i-1] {
				t.Errorf("DateKeys(%d): not ascending at %d: %s <= %s", n, i, k, keys[i-1])
			}
		}
	}
}

func TestBucketize(t *testing.T) {
	rows := []DayCount{
		{Day: "2021-03-15", Count: 3},
		{Day: "2021-03-13", Count: 2},
		{Day: "2021-03-13", Count: 1},
		{Day: "2020-01-01", Count: 99}, // outside window, dropped
	}
	buckets := Bucketize(testNow, rows, 7)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	var sum int
	for _, b := range buckets {
		sum += b.Count
	}
	if sum != 6 {
		t.Errorf("sum = %d, want 6 (matching events only)", sum)
	}
	if buckets[6].Date != "2021-03-15 00:00:00" || buckets[6].Count != 3 {
		t.Errorf("today bucket = %+v", buckets[6])
	}
	if buckets[4].Count != 3 {
		t.Errorf("2021-03-13 bucket = %+v, want accumulated 3", buckets[4])
	}
	if buckets[0].Count != 0 {
		t.Errorf("oldest bucket should be zero-filled, got %+v", buckets[0])
	}
}

func TestLastNDays(t *testing.T) {
	win := LastNDays(testNow, 7, 0)
	end := time.Unix(win.End, 0).UTC()
	if end.Format(TimestampLayout) != "2021-03-15 23:59:59" {
		t.Errorf("end = %s", end.Format(TimestampLayout))
	}
	start := time.Unix(win.Start, 0).UTC()
	if start.Format(TimestampLayout) != "2021-03-09 23:59:59" {
		t.Errorf("start = %s", start.Format(TimestampLayout))
	}

	prev := LastNDays(testNow, 7, 7)
	if prev.End >= win.Start {
		t.Errorf("prior week window overlaps current: %+v vs %+v", prev, win)
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{name: "nil", in: nil, want: ""},
		{name: "time", in: time.Date(2021, 3, 15, 8, 0, 30, 0, time.UTC), want: "2021-03-15 08:00:30"},
		{name: "zero time", in: time.Time{}, want: ""},
		{name: "epoch int64", in: int64(1615795230), want: "2021-03-15 08:00:30"},
		{name: "epoch float", in: float64(1615795230), want: "2021-03-15 08:00:30"},
		{name: "date string", in: "2021-03-15", want: "2021-03-15 00:00:00"},
		{name: "iso string", in: "2021-03-15T08:00:30", want: "2021-03-15 08:00:30"},
		{name: "garbage string kept as-is", in: "not-a-date", want: "not-a-date"},
		{name: "unknown type coerced", in: 12.5, want: "1970-01-01 00:00:12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimestamp(tt.in); got != tt.want {
				t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	ts := int64(1615795230)
	formatted := FormatTimestamp(ts)
	parsed, ok := ParseTimestamp(formatted)
	if !ok {
		t.Fatalf("ParseTimestamp(%q) failed", formatted)
	}
	if parsed.Unix() != ts {
		t.Errorf("round-trip: got %d, want %d", parsed.Unix(), ts)
	}
}

func TestDaysSince(t *testing.T) {
	ts := time.Date(2021, 3, 8, 23, 0, 0, 0, time.UTC).Unix()
	if got := DaysSince(testNow, ts); got != 7 {
		t.Errorf("DaysSince = %d, want 7", got)
	}
}
