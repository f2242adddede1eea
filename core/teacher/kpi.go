package teacher

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kipimo/core"
)

// snapshot are one window's headline metrics.
type snapshot struct {
	students   int
	completion float64
	avgHours   float64
	dropout    float64
	ungraded   int
}

// windowSnapshot measures one [days]-long window ending offsetDays back.
// Completion and hours consider only students active inside the window;
// dropout is the share of the full roster that never showed up.
func (svc *Service) windowSnapshot(ctx context.Context, now time.Time, courseIDs, students []int, days, offsetDays int) snapshot {
	window := core.LastNDays(now, days, offsetDays)

	active, err := svc.courses.QueryActiveStudents(ctx, courseIDs, window)
	if !svc.soft(err, "active students") {
		active = nil
	}

	var (
		totalAct int
		doneAct  int
		events   []core.ActivityEvent
		ungraded int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.GetTotalActivities(gctx, courseIDs); svc.soft(err, "total activities") {
			totalAct = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetWindowCompletions(gctx, courseIDs, active, window); svc.soft(err, "window completions") {
			doneAct = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseActivityLog(gctx, courseIDs, active, window); svc.soft(err, "window activity log") {
			events = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetUngradedCount(gctx, courseIDs, students, window); svc.soft(err, "window ungraded") {
			ungraded = v
		}
		return nil
	})
	_ = g.Wait()

	return snapshot{
		students:   len(active),
		completion: core.SafeRate(float64(doneAct), float64(totalAct*len(active)), 100, 1),
		avgHours:   core.AvgSessionHours(events),
		dropout:    core.SafeRate(float64(len(students)-len(active)), float64(len(students)), 100, 1),
		ungraded:   ungraded,
	}
}

// deltaPct is the relative change between a current and a prior value. A
// zero prior reads as no change rather than an infinite one.
func deltaPct(current, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	return core.RoundTo((current-prev)/prev*100, 1)
}

func compare(current, prevWeek, prevMonth float64) KPI {
	return KPI{
		Current:       current,
		PrevWeek:      prevWeek,
		PrevMonth:     prevMonth,
		DeltaWeekPct:  deltaPct(current, prevWeek),
		DeltaMonthPct: deltaPct(current, prevMonth),
	}
}

// windowedKPIs compares the current 7-day window against the week and the
// 30-day month before it, then derives the periodic trend series.
func (svc *Service) windowedKPIs(ctx context.Context, now time.Time, courseIDs, students []int) (KPICompare, Trends) {
	current := svc.windowSnapshot(ctx, now, courseIDs, students, 7, 0)
	prevWeek := svc.windowSnapshot(ctx, now, courseIDs, students, 7, 7)
	prevMonth := svc.windowSnapshot(ctx, now, courseIDs, students, 30, 30)

	kpi := KPICompare{
		Students:   compare(float64(current.students), float64(prevWeek.students), float64(prevMonth.students)),
		Completion: compare(current.completion, prevWeek.completion, prevMonth.completion),
		AvgHours:   compare(current.avgHours, prevWeek.avgHours, prevMonth.avgHours),
		Dropout:    compare(current.dropout, prevWeek.dropout, prevMonth.dropout),
		Ungraded:   compare(float64(current.ungraded), float64(prevWeek.ungraded), float64(prevMonth.ungraded)),
	}

	trends := Trends{
		Weekly:    svc.trendSeries(ctx, now, courseIDs, students, 7, 8, "W"),
		Monthly:   svc.trendSeries(ctx, now, courseIDs, students, 30, 6, "M"),
		Quarterly: svc.trendSeries(ctx, now, courseIDs, students, 90, 4, "Q"),
		Yearly:    svc.trendSeries(ctx, now, courseIDs, students, 365, 3, "Y"),
	}
	return kpi, trends
}

// trendSeries walks `points` back-to-back windows of periodDays, oldest
// first, labeled prefix1..prefixN. Completion here spans the full roster so
// the series stays comparable as the active set shifts between periods.
func (svc *Service) trendSeries(ctx context.Context, now time.Time, courseIDs, students []int, periodDays, points int, prefix string) []TrendPoint {
	series := make([]TrendPoint, 0, points)
	for i := points - 1; i >= 0; i-- {
		window := core.LastNDays(now, periodDays, periodDays*i)

		active, err := svc.courses.QueryActiveStudents(ctx, courseIDs, window)
		if !svc.soft(err, "active students") {
			active = nil
		}
		var (
			totalAct int
			doneAct  int
			events   []core.ActivityEvent
		)
		if v, err := svc.courses.GetTotalActivities(ctx, courseIDs); svc.soft(err, "total activities") {
			totalAct = v
		}
		if v, err := svc.courses.GetWindowCompletions(ctx, courseIDs, students, window); svc.soft(err, "window completions") {
			doneAct = v
		}
		if v, err := svc.courses.QueryCourseActivityLog(ctx, courseIDs, active, window); svc.soft(err, "window activity log") {
			events = v
		}

		series = append(series, TrendPoint{
			Label:      fmt.Sprintf("%s%d", prefix, points-i),
			Start:      core.FormatTimestamp(window.Start),
			End:        core.FormatTimestamp(window.End),
			Completion: core.SafeRate(float64(doneAct), float64(totalAct*len(students)), 100, 1),
			AvgHours:   core.AvgSessionHours(events),
			Dropout:    core.SafeRate(float64(len(students)-len(active)), float64(len(students)), 100, 1),
		})
	}
	return series
}
