package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/identity"
)

// ErrNotFound is returned when the student or the requested course enrollment does not exist.
var ErrNotFound = errors.New("not found")

// CourseRepository provides the learning-store reads the student reports need.
type CourseRepository interface {
	GetOverallCourses(ctx context.Context, userID int) (core.CourseTotals, error)
	QueryCourseProgress(ctx context.Context, userID, courseID int) ([]core.CourseProgressRow, error)
	QueryContinueLearning(ctx context.Context, userID int) ([]core.ContinueRow, error)
	QueryAvgGradeByCourse(ctx context.Context, userID int) ([]core.CourseValue, error)
	QueryMissingAssignments(ctx context.Context, userID, limit int) ([]core.AssignmentRow, error)
	QueryDueSoonAssignments(ctx context.Context, userID, days, limit int) ([]core.AssignmentRow, error)
	QueryCompletionsPerDay(ctx context.Context, userID, days int) ([]core.DayCount, error)
	GetLastActivity(ctx context.Context, userID int) (int64, error)
	GetCourseTeacherName(ctx context.Context, courseID int) (string, error)
	GetCourseTags(ctx context.Context, courseID int) ([]string, error)
	GetStudentMissingCount(ctx context.Context, userID, courseID int) (int, error)
	QueryCourseModules(ctx context.Context, userID, courseID int) ([]core.ModuleRow, error)
	QueryActivityLog(ctx context.Context, userID, courseID, days int) ([]core.ActivityEvent, error)
	GetCourseLastActivity(ctx context.Context, userID, courseID int) (int64, error)
}

// EngagementRepository provides the community-store reads keyed by the shared external id.
type EngagementRepository interface {
	GetEngagementCounts(ctx context.Context, externalID string) (core.EngagementCounts, error)
	QueryPostsPerDay(ctx context.Context, externalID string, days int) ([]core.DayCount, error)
}

type Service struct {
	courses  CourseRepository
	engage   EngagementRepository
	resolver *identity.Resolver
	log      core.Logger
	now      func() time.Time
}

func NewService(courses CourseRepository, engage EngagementRepository, resolver *identity.Resolver, logger core.Logger) *Service {
	return &Service{
		courses:  courses,
		engage:   engage,
		resolver: resolver,
		log:      logger,
		now:      time.Now,
	}
}

// soft logs a failed per-metric fetch and reports whether the value is usable.
// Reports degrade to zero values instead of failing outright.
func (svc *Service) soft(err error, metric string) bool {
	if err != nil {
		svc.log.Warn(fmt.Sprintf("student: %s unavailable: %v", metric, err))
		return false
	}
	return true
}

// Overall builds the student's cross-store dashboard.
func (svc *Service) Overall(ctx context.Context, userID int) (Overall, error) {
	extID, err := svc.resolver.ResolveExternalID(ctx, userID)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return Overall{}, ErrNotFound
		}
		return Overall{}, errors.Wrap(err, "resolving student account")
	}
	now := svc.now().UTC()

	var (
		totals      core.CourseTotals
		gradeRows   []core.CourseValue
		missingRows []core.AssignmentRow
		dueSoonRows []core.AssignmentRow
		learnDaily  []core.DayCount
		engDaily    []core.DayCount
		contRows    []core.ContinueRow
		engCounts   core.EngagementCounts
		lastTS      int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.GetOverallCourses(gctx, userID); svc.soft(err, "course totals") {
			totals = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryAvgGradeByCourse(gctx, userID); svc.soft(err, "grades") {
			gradeRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryMissingAssignments(gctx, userID, 20); svc.soft(err, "missing assignments") {
			missingRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryDueSoonAssignments(gctx, userID, 7, 20); svc.soft(err, "due soon assignments") {
			dueSoonRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCompletionsPerDay(gctx, userID, 7); svc.soft(err, "learning activity") {
			learnDaily = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetLastActivity(gctx, userID); svc.soft(err, "last activity") {
			lastTS = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryContinueLearning(gctx, userID); svc.soft(err, "continue learning") {
			contRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.GetEngagementCounts(gctx, extID); svc.soft(err, "engagement counts") {
			engCounts = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryPostsPerDay(gctx, extID, 7); svc.soft(err, "engagement activity") {
			engDaily = v
		}
		return nil
	})
	_ = g.Wait()

	var gradeSum float64
	for _, row := range gradeRows {
		gradeSum += row.Value
	}
	avgGradeAll := core.SafeRate(gradeSum, float64(len(gradeRows)), 1, 1)

	learnBuckets := core.Bucketize(now, learnDaily, 7)
	var totalHours float64
	var activeDays int
	for _, b := range learnBuckets {
		// each logged completion approximates a quarter hour of work
		totalHours += float64(b.Count) * 0.25
		if b.Count > 0 {
			activeDays++
		}
	}

	res := Overall{
		Courses: CourseTotals{
			Total:          totals.Total,
			Completed:      totals.Completed,
			CompletionRate: core.CompletionPercent(totals.Completed, totals.Total),
		},
		Summary: Summary{
			TotalCourses:     totals.Total,
			CompletedCourses: totals.Completed,
			CompletionRate:   core.CompletionPercent(totals.Completed, totals.Total),
			AvgGradeAll:      avgGradeAll,
		},
		Activity: ActivitySummary{
			TotalHours: core.RoundTo(totalHours, 2),
			ActiveDays: activeDays,
		},
		Totals: TaskTotals{
			MissingTasks: len(missingRows),
			DueSoonTasks: len(dueSoonRows),
		},
		Engagement: engCounts,
		Trend: Trend{
			LearningDaily:   learnBuckets,
			EngagementDaily: core.Bucketize(now, engDaily, 7),
		},
		MissingTasks:     tasks(missingRows),
		DueSoonTasks:     tasks(dueSoonRows),
		ContinueLearning: continueCourses(now, contRows),
	}
	if lastTS > 0 {
		res.LastActive = core.FormatTimestamp(lastTS)
		days := core.DaysSince(now, lastTS)
		res.DaysInactive = &days
		res.Activity.LastActive = res.LastActive
		res.Activity.DaysInactive = &days
	}
	return res, nil
}

// PerCourse builds the detail report for one of the student's enrollments.
func (svc *Service) PerCourse(ctx context.Context, userID, courseID int) (PerCourse, error) {
	if _, err := svc.resolver.ResolveExternalID(ctx, userID); err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return PerCourse{}, ErrNotFound
		}
		return PerCourse{}, errors.Wrap(err, "resolving student account")
	}
	now := svc.now().UTC()

	rows, err := svc.courses.QueryCourseProgress(ctx, userID, courseID)
	if err != nil {
		return PerCourse{}, errors.Wrap(err, "querying course progress")
	}
	if len(rows) == 0 {
		return PerCourse{}, ErrNotFound
	}
	row := rows[0]

	var (
		teacherName string
		tags        []string
		gradeRows   []core.CourseValue
		missingCnt  int
		modules     []core.ModuleRow
		events      []core.ActivityEvent
		lastTS      int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.GetCourseTeacherName(gctx, courseID); svc.soft(err, "teacher name") {
			teacherName = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetCourseTags(gctx, courseID); svc.soft(err, "course tags") {
			tags = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryAvgGradeByCourse(gctx, userID); svc.soft(err, "grades") {
			gradeRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetStudentMissingCount(gctx, userID, courseID); svc.soft(err, "missing count") {
			missingCnt = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseModules(gctx, userID, courseID); svc.soft(err, "course modules") {
			modules = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryActivityLog(gctx, userID, courseID, 7); svc.soft(err, "activity log") {
			events = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetCourseLastActivity(gctx, userID, courseID); svc.soft(err, "course last activity") {
			lastTS = v
		}
		return nil
	})
	_ = g.Wait()

	var avgGrade float64
	for _, gr := range gradeRows {
		if gr.CourseID == courseID {
			avgGrade = core.RoundTo(gr.Value, 1)
			break
		}
	}

	progressPct := core.CompletionPercent(row.CompletedActivities, row.TotalActivities)
	// dirty upstream rows can report more completions than activities
	remaining := 100 - progressPct
	if remaining < 0 {
		remaining = 0
	}
	hoursPerDay := core.SessionHoursPerDay(now, events, 7)
	var timeSpent float64
	for _, h := range hoursPerDay {
		timeSpent += h.Hours
	}
	timeSpent = core.RoundTo(timeSpent, 2)

	activities := make([]Activity, 0, len(modules))
	for i, m := range modules {
		completed := m.CompletionRequired && (m.CompletionState == 1 || m.CompletionState == 2)
		activities = append(activities, Activity{
			ActivityID:   m.ModuleID,
			ActivityName: fmt.Sprintf("Activity %d", i+1),
			Completed:    completed,
		})
	}

	if tags == nil {
		tags = []string{}
	}
	res := PerCourse{
		CourseInfo: CourseInfo{
			CourseID:            row.CourseID,
			CourseName:          row.CourseName,
			TeacherName:         teacherName,
			Tags:                tags,
			TotalActivities:     row.TotalActivities,
			CompletedActivities: row.CompletedActivities,
		},
		Progress: Progress{
			ProgressPercent: progressPct,
			CompletionRate:  progressPct,
			Completed:       row.Completed,
		},
		AvgGradePct:          avgGrade,
		MissingTasks:         missingCnt,
		TimeSpentHours:       timeSpent,
		LearningHoursPerWeek: timeSpent,
		HoursPerDay:          hoursPerDay,
		ProgressDonut: ProgressDonut{
			Progress: progressPct,
			Done:     remaining,
		},
		Activities: activities,
	}
	if lastTS > 0 {
		res.LastActive = core.FormatTimestamp(lastTS)
		days := core.DaysSince(now, lastTS)
		res.DaysInactive = &days
	}
	return res, nil
}

func tasks(rows []core.AssignmentRow) []Task {
	out := make([]Task, 0, len(rows))
	for _, row := range rows {
		t := Task{
			CourseID:       row.CourseID,
			CourseName:     row.CourseName,
			AssignmentID:   row.AssignmentID,
			AssignmentName: row.AssignmentName,
		}
		if row.DueTS > 0 {
			t.DueDate = core.FormatTimestamp(row.DueTS)
		}
		out = append(out, t)
	}
	return out
}

func continueCourses(now time.Time, rows []core.ContinueRow) []ContinueCourse {
	out := make([]ContinueCourse, 0, len(rows))
	for _, row := range rows {
		cc := ContinueCourse{
			CourseProgress: CourseProgress{
				CourseID:            row.CourseID,
				CourseName:          row.CourseName,
				Completed:           false,
				ProgressPercent:     core.CompletionPercent(row.CompletedActivities, row.TotalActivities),
				TotalActivities:     row.TotalActivities,
				CompletedActivities: row.CompletedActivities,
			},
		}
		if row.LastTS > 0 {
			cc.LastActive = core.FormatTimestamp(row.LastTS)
			days := core.DaysSince(now, row.LastTS)
			cc.DaysInactive = &days
		}
		out = append(out, cc)
	}
	return out
}
