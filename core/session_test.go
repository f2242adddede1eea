package core

import (
	"testing"
	"time"
)

func TestAvgSessionHours(t *testing.T) {
	base := time.Date(2021, 3, 15, 9, 0, 0, 0, time.UTC).Unix()

	t.Run("only engaged gaps count", func(t *testing.T) {
		// 10 min gap counts; the following 50 min gap is an abandoned session.
		events := []ActivityEvent{
			{UserID: 1, Timestamp: base},
			{UserID: 1, Timestamp: base + 600},
			{UserID: 1, Timestamp: base + 3600},
		}
		if got, want := AvgSessionHours(events), RoundTo(10.0/60, 2); got != want {
			t.Errorf("AvgSessionHours = %v, want %v", got, want)
		}
		if got, want := TotalSessionHours(events), RoundTo(10.0/60, 2); got != want {
			t.Errorf("TotalSessionHours = %v, want %v", got, want)
		}
	})

	t.Run("zero gap is noise", func(t *testing.T) {
		events := []ActivityEvent{
			{UserID: 1, Timestamp: base},
			{UserID: 1, Timestamp: base},
		}
		if got := AvgSessionHours(events); got != 0 {
			t.Errorf("AvgSessionHours = %v, want 0", got)
		}
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		events := []ActivityEvent{
			{UserID: 1, Timestamp: base},
			{UserID: 1, Timestamp: base + 60},   // exactly 1 min
			{UserID: 1, Timestamp: base + 1860}, // exactly 30 min later
		}
		if got, want := TotalSessionHours(events), RoundTo(31.0/60, 2); got != want {
			t.Errorf("TotalSessionHours = %v, want %v", got, want)
		}
	})

	t.Run("interleaved users are grouped first", func(t *testing.T) {
		// A 5 min gap per user; naive sequential walking would see none.
		events := []ActivityEvent{
			{UserID: 1, Timestamp: base},
			{UserID: 2, Timestamp: base + 30},
			{UserID: 1, Timestamp: base + 300},
			{UserID: 2, Timestamp: base + 330},
		}
		if got, want := TotalSessionHours(events), RoundTo(10.0/60, 2); got != want {
			t.Errorf("TotalSessionHours = %v, want %v", got, want)
		}
	})

	t.Run("no events", func(t *testing.T) {
		if got := AvgSessionHours(nil); got != 0 {
			t.Errorf("AvgSessionHours(nil) = %v, want 0", got)
		}
	})
}

func TestSessionHoursPerDay(t *testing.T) {
	now := time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)
	yesterday := time.Date(2021, 3, 14, 9, 0, 0, 0, time.UTC).Unix()
	today := time.Date(2021, 3, 15, 9, 0, 0, 0, time.UTC).Unix()

	events := []ActivityEvent{
		{UserID: 1, Timestamp: yesterday},
		{UserID: 1, Timestamp: yesterday + 600}, // 10 min yesterday
		{UserID: 1, Timestamp: today},
		{UserID: 1, Timestamp: today + 1200}, // 20 min today
	}
	buckets := SessionHoursPerDay(now, events, 7)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want 7", len(buckets))
	}
	if got, want := buckets[5].Hours, RoundTo(10.0/60, 2); got != want {
		t.Errorf("yesterday = %v, want %v", got, want)
	}
	if got, want := buckets[6].Hours, RoundTo(20.0/60, 2); got != want {
		t.Errorf("today = %v, want %v", got, want)
	}
	for i := 0; i < 5; i++ {
		if buckets[i].Hours != 0 {
			t.Errorf("bucket %d should be zero-filled, got %v", i, buckets[i].Hours)
		}
	}
}
