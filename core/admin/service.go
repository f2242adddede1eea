package admin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kipimo/core"
)

// CourseRepository provides the platform-wide learning-store reads.
type CourseRepository interface {
	QueryLastActivityByUserAll(ctx context.Context, userIDs []int) ([]core.UserTimestamp, error)
	QueryActiveUsersPerDay(ctx context.Context, userIDs []int, days int) ([]core.DayCount, error)
	QueryLogVolumePerDay(ctx context.Context, days int) ([]core.DayCount, error)
	QueryConcurrentUsers(ctx context.Context, window core.TimeRange) ([]core.TimeCount, error)
	QueryCompletionsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error)
	GetOverdueAssignmentsCount(ctx context.Context) (int, error)
	QueryAllCourses(ctx context.Context) ([]core.CourseRef, error)
	QueryCourseEnrolCounts(ctx context.Context, courseIDs []int) ([]core.CourseCount, error)
	QueryCourseMissingCounts(ctx context.Context, courseIDs []int) ([]core.CourseCount, error)
	GetCompletionOverall(ctx context.Context) (core.CourseTotals, error)
	QueryAllStudents(ctx context.Context) ([]int, error)
	QueryProgressByUser(ctx context.Context, userIDs []int) ([]core.UserProgressRow, error)
	QueryCompletionRatePerDay(ctx context.Context, days int) ([]core.DayValue, error)
}

// EngagementRepository provides the platform-wide community-store reads.
type EngagementRepository interface {
	GetTotalAccounts(ctx context.Context) (int, error)
	QueryAccountsByRole(ctx context.Context) ([]core.RoleCount, error)
	CountNewAccounts(ctx context.Context, since time.Time) (int, error)
	QueryLinkedAccounts(ctx context.Context) ([]core.Account, error)
	QueryMentorLoad(ctx context.Context, limit int) ([]core.MentorLoadRow, error)
	QueryPostsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error)
	QueryCommentsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error)
	GetTotalEngagement(ctx context.Context) (core.EngagementCounts, error)
	QueryPostCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error)
	QueryCommentCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error)
	QueryReactionCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error)
	QueryAllAccounts(ctx context.Context) ([]core.Account, error)
	GetIdeasTotal(ctx context.Context) (int, error)
	QueryIdeasByStatus(ctx context.Context) ([]core.StatusCount, error)
	CountPendingIdeas(ctx context.Context) (int, error)
	GetMatchStats(ctx context.Context, now time.Time) (core.MatchStats, error)
	GetPitchTotals(ctx context.Context) (total int, funding float64, err error)
	QueryIdeasPerDay(ctx context.Context, days int) ([]core.DayCount, error)
	QueryPitchPerDay(ctx context.Context, days int) ([]core.PitchDayRow, error)
}

type Service struct {
	courses CourseRepository
	engage  EngagementRepository
	log     core.Logger
	now     func() time.Time
}

func NewService(courses CourseRepository, engage EngagementRepository, logger core.Logger) *Service {
	return &Service{
		courses: courses,
		engage:  engage,
		log:     logger,
		now:     time.Now,
	}
}

func (svc *Service) soft(err error, metric string) bool {
	if err != nil {
		svc.log.Warn(fmt.Sprintf("admin: %s unavailable: %v", metric, err))
		return false
	}
	return true
}

// Overall builds the platform health dashboard.
func (svc *Service) Overall(ctx context.Context) (Overall, error) {
	totalUsers, err := svc.engage.GetTotalAccounts(ctx)
	if err != nil {
		return Overall{}, errors.Wrap(err, "counting accounts")
	}
	now := svc.now().UTC()

	var (
		roleRows       []core.RoleCount
		newWeek        int
		newMonth       int
		linked         []core.Account
		mentorLoad     []core.MentorLoadRow
		logRows        []core.DayCount
		completionRows []core.DayCount
		concurrentRows []core.TimeCount
		postRows       []core.DayCount
		commentRows    []core.DayCount
		overdue        int
		ideaPending    int
		matchStats     core.MatchStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.engage.QueryAccountsByRole(gctx); svc.soft(err, "accounts by role") {
			roleRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.CountNewAccounts(gctx, now.AddDate(0, 0, -7)); svc.soft(err, "new accounts week") {
			newWeek = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.CountNewAccounts(gctx, now.AddDate(0, 0, -30)); svc.soft(err, "new accounts month") {
			newMonth = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryLinkedAccounts(gctx); svc.soft(err, "linked accounts") {
			linked = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryMentorLoad(gctx, 20); svc.soft(err, "mentor load") {
			mentorLoad = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryLogVolumePerDay(gctx, 7); svc.soft(err, "log volume") {
			logRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCompletionsPerDayAll(gctx, 7); svc.soft(err, "completions") {
			completionRows = v
		}
		return nil
	})
	// concurrency looks at a rolling day, not a calendar one
	day := core.TimeRange{Start: now.Add(-24 * time.Hour).Unix(), End: now.Unix()}
	g.Go(func() error {
		if v, err := svc.courses.QueryConcurrentUsers(gctx, day); svc.soft(err, "concurrent users") {
			concurrentRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryPostsPerDayAll(gctx, 7); svc.soft(err, "posts") {
			postRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryCommentsPerDayAll(gctx, 7); svc.soft(err, "comments") {
			commentRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetOverdueAssignmentsCount(gctx); svc.soft(err, "overdue assignments") {
			overdue = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.CountPendingIdeas(gctx); svc.soft(err, "pending ideas") {
			ideaPending = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.GetMatchStats(gctx, now); svc.soft(err, "match stats") {
			matchStats = v
		}
		return nil
	})
	_ = g.Wait()

	linkedIDs := make([]int, 0, len(linked))
	for _, acc := range linked {
		if acc.InternalID > 0 {
			linkedIDs = append(linkedIDs, acc.InternalID)
		}
	}

	// Activity is measured on linked accounts only; an account the learning
	// store has never seen counts as inactive.
	var active7, active30 int
	if len(linkedIDs) > 0 {
		if lastRows, err := svc.courses.QueryLastActivityByUserAll(ctx, linkedIDs); svc.soft(err, "last activity") {
			for _, ts := range core.UserTimestampMap(lastRows) {
				days := core.DaysSince(now, ts)
				if days <= 7 {
					active7++
				}
				if days <= 30 {
					active30++
				}
			}
		}
	}

	trend := []UsersTrendPoint{}
	if len(linkedIDs) > 0 {
		var trendRows []core.DayCount
		if v, err := svc.courses.QueryActiveUsersPerDay(ctx, linkedIDs, 7); svc.soft(err, "active users trend") {
			trendRows = v
		}
		byDay := core.DayCountMap(trendRows)
		for _, key := range core.DateKeys(now, 7) {
			trend = append(trend, UsersTrendPoint{Date: core.FormatTimestamp(key), ActiveUsers: byDay[key]})
		}
	}

	roles := make(map[string]int, len(roleRows))
	for _, row := range roleRows {
		role := row.Role
		if role == "" {
			role = "unknown"
		}
		roles[role] = row.Count
	}

	logByDay := core.DayCountMap(logRows)
	completionByDay := core.DayCountMap(completionRows)
	postByDay := core.DayCountMap(postRows)
	commentByDay := core.DayCountMap(commentRows)
	volume := make([]LogPoint, 0, 7)
	mix := make([]EventMixPoint, 0, 7)
	for _, key := range core.DateKeys(now, 7) {
		date := core.FormatTimestamp(key)
		volume = append(volume, LogPoint{Date: date, Logs: logByDay[key]})
		mix = append(mix, EventMixPoint{
			Date:       date,
			Activity:   logByDay[key],
			Completion: completionByDay[key],
			Posts:      postByDay[key],
			Comments:   commentByDay[key],
		})
	}

	concurrent := make([]ConcurrentPoint, 0, len(concurrentRows))
	for _, row := range concurrentRows {
		concurrent = append(concurrent, ConcurrentPoint{Date: core.FormatTimestamp(row.TS), Users: row.Count})
	}

	if mentorLoad == nil {
		mentorLoad = []core.MentorLoadRow{}
	}
	return Overall{
		Users: UserStats{
			Total:       totalUsers,
			ByRole:      roles,
			NewWeek:     newWeek,
			NewMonth:    newMonth,
			Active7d:    active7,
			Inactive7d:  max(0, len(linkedIDs)-active7),
			Active30d:   active30,
			Inactive30d: max(0, len(linkedIDs)-active30),
			Trend7d:     trend,
		},
		Logs:            LogStats{Volume7d: volume, EventMix7d: mix},
		ConcurrentUsers: concurrent,
		MentorLoadTop:   mentorLoad,
		Alerts: Alerts{
			AssignmentOverdue:  overdue,
			IdeaPendingReview:  ideaPending,
			MentorMatchOverdue: matchStats.Overdue,
		},
	}, nil
}

// Learning builds the platform-wide learning report.
func (svc *Service) Learning(ctx context.Context) (Learning, error) {
	courses, err := svc.courses.QueryAllCourses(ctx)
	if err != nil {
		return Learning{}, errors.Wrap(err, "querying courses")
	}
	now := svc.now().UTC()

	courseIDs := make([]int, 0, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.CourseID)
	}

	var (
		completion   core.CourseTotals
		students     []int
		enrolRows    []core.CourseCount
		missingRows  []core.CourseCount
		trendRows    []core.DayValue
		progressRows []core.UserProgressRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.GetCompletionOverall(gctx); svc.soft(err, "completion overall") {
			completion = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryAllStudents(gctx); svc.soft(err, "students") {
			students = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseEnrolCounts(gctx, courseIDs); svc.soft(err, "enrol counts") {
			enrolRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseMissingCounts(gctx, courseIDs); svc.soft(err, "missing counts") {
			missingRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCompletionRatePerDay(gctx, 30); svc.soft(err, "completion trend") {
			trendRows = v
		}
		return nil
	})
	_ = g.Wait()

	if len(students) > 0 {
		if v, err := svc.courses.QueryProgressByUser(ctx, students); svc.soft(err, "progress") {
			progressRows = v
		}
	}
	var avgProgress float64
	if len(progressRows) > 0 {
		var sum float64
		for _, row := range progressRows {
			sum += core.SafeRate(float64(row.CompletedActivities), float64(row.TotalActivities), 100, 1)
		}
		avgProgress = core.RoundTo(sum/float64(len(progressRows)), 1)
	}

	enrolCounts := core.CourseCountMap(enrolRows)
	missingCounts := core.CourseCountMap(missingRows)

	byEnrol := make([]TopCourse, 0, len(courses))
	missing := make([]MissingCourse, 0, len(courses))
	for _, c := range courses {
		enrol := enrolCounts[c.CourseID]
		miss := missingCounts[c.CourseID]
		byEnrol = append(byEnrol, TopCourse{
			CourseID:   c.CourseID,
			CourseName: c.CourseName,
			EnrolCount: enrol,
		})
		missing = append(missing, MissingCourse{
			CourseID:     c.CourseID,
			CourseName:   c.CourseName,
			MissingCount: miss,
			EnrolCount:   enrol,
			MissingRate:  core.SafeRate(float64(miss), float64(enrol), 100, 1),
		})
	}
	sort.SliceStable(byEnrol, func(i, j int) bool { return byEnrol[i].EnrolCount > byEnrol[j].EnrolCount })
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].MissingRate > missing[j].MissingRate })
	if len(byEnrol) > 5 {
		byEnrol = byEnrol[:5]
	}
	if len(missing) > 5 {
		missing = missing[:5]
	}

	trendByDay := make(map[string]float64, len(trendRows))
	for _, row := range trendRows {
		trendByDay[row.Day] = row.Value
	}
	trend := make([]CompletionPoint, 0, 30)
	for _, key := range core.DateKeys(now, 30) {
		trend = append(trend, CompletionPoint{Date: core.FormatTimestamp(key), CompletionPct: trendByDay[key]})
	}

	return Learning{
		CoursesTotal:       len(courses),
		CompletionRate:     core.SafeRate(float64(completion.Completed), float64(completion.Total), 100, 1),
		AvgProgressPct:     avgProgress,
		TopCoursesByEnroll: byEnrol,
		TopMissingCourses:  missing,
		CompletionTrend30d: trend,
	}, nil
}

// Engagement builds the platform-wide community report.
func (svc *Service) Engagement(ctx context.Context) (Engagement, error) {
	totals, err := svc.engage.GetTotalEngagement(ctx)
	if err != nil {
		return Engagement{}, errors.Wrap(err, "counting engagement")
	}
	now := svc.now().UTC()

	var (
		postAuthors     []core.AuthorCount
		commentAuthors  []core.AuthorCount
		reactionAuthors []core.AuthorCount
		accounts        []core.Account
		postRows        []core.DayCount
		commentRows     []core.DayCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.engage.QueryPostCountsByAuthor(gctx); svc.soft(err, "post authors") {
			postAuthors = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryCommentCountsByAuthor(gctx); svc.soft(err, "comment authors") {
			commentAuthors = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryReactionCountsByAuthor(gctx); svc.soft(err, "reaction authors") {
			reactionAuthors = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryAllAccounts(gctx); svc.soft(err, "accounts") {
			accounts = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryPostsPerDayAll(gctx, 30); svc.soft(err, "posts timeline") {
			postRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryCommentsPerDayAll(gctx, 30); svc.soft(err, "comments timeline") {
			commentRows = v
		}
		return nil
	})
	_ = g.Wait()

	// Engagement score is the plain sum of a user's posts, comments and
	// reactions.
	score := map[string]int{}
	order := []string{}
	add := func(rows []core.AuthorCount) {
		for _, row := range rows {
			if _, ok := score[row.UserID]; !ok {
				order = append(order, row.UserID)
			}
			score[row.UserID] += row.Count
		}
	}
	add(postAuthors)
	add(commentAuthors)
	add(reactionAuthors)
	sort.SliceStable(order, func(i, j int) bool { return score[order[i]] > score[order[j]] })
	if len(order) > 5 {
		order = order[:5]
	}

	byID := make(map[string]core.Account, len(accounts))
	for _, acc := range accounts {
		byID[acc.ExternalID] = acc
	}
	topUsers := make([]TopUser, 0, len(order))
	for _, uid := range order {
		acc := byID[uid]
		topUsers = append(topUsers, TopUser{
			UserID:          uid,
			Username:        acc.Username,
			LinkedUserID:    acc.InternalID,
			EngagementScore: score[uid],
		})
	}

	postByDay := core.DayCountMap(postRows)
	commentByDay := core.DayCountMap(commentRows)
	timeline := make([]EngagementPoint, 0, 30)
	for _, key := range core.DateKeys(now, 30) {
		timeline = append(timeline, EngagementPoint{
			Date:     core.FormatTimestamp(key),
			Posts:    postByDay[key],
			Comments: commentByDay[key],
		})
	}

	return Engagement{
		Totals:      totals,
		TopUsers:    topUsers,
		Timeline30d: timeline,
	}, nil
}

// Ideas builds the platform-wide venture pipeline report.
func (svc *Service) Ideas(ctx context.Context) (Ideas, error) {
	total, err := svc.engage.GetIdeasTotal(ctx)
	if err != nil {
		return Ideas{}, errors.Wrap(err, "counting ideas")
	}
	now := svc.now().UTC()

	var (
		statusRows []core.StatusCount
		matchStats core.MatchStats
		pitchTotal int
		funding    float64
		ideaRows   []core.DayCount
		pitchRows  []core.PitchDayRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.engage.QueryIdeasByStatus(gctx); svc.soft(err, "ideas by status") {
			statusRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.GetMatchStats(gctx, now); svc.soft(err, "match stats") {
			matchStats = v
		}
		return nil
	})
	g.Go(func() error {
		if t, f, err := svc.engage.GetPitchTotals(gctx); svc.soft(err, "pitch totals") {
			pitchTotal, funding = t, f
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryIdeasPerDay(gctx, 30); svc.soft(err, "ideas trend") {
			ideaRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryPitchPerDay(gctx, 30); svc.soft(err, "pitch trend") {
			pitchRows = v
		}
		return nil
	})
	_ = g.Wait()

	byStatus := make(map[string]int, len(statusRows))
	for _, row := range statusRows {
		byStatus[row.Status] = row.Count
	}

	ideaByDay := core.DayCountMap(ideaRows)
	pitchByDay := make(map[string]core.PitchDayRow, len(pitchRows))
	for _, row := range pitchRows {
		pitchByDay[row.Day] = row
	}
	ideasTrend := make([]IdeaTrendPoint, 0, 30)
	pitchTrend := make([]PitchTrendPoint, 0, 30)
	for _, key := range core.DateKeys(now, 30) {
		date := core.FormatTimestamp(key)
		ideasTrend = append(ideasTrend, IdeaTrendPoint{Date: date, Ideas: ideaByDay[key]})
		row := pitchByDay[key]
		pitchTrend = append(pitchTrend, PitchTrendPoint{
			Date:         date,
			PitchCount:   row.Count,
			FundingTotal: row.Funding,
		})
	}

	return Ideas{
		IdeasTotal:    total,
		IdeasByStatus: byStatus,
		MentorMatch:   matchStats,
		Pitch:         PitchTotals{Total: pitchTotal, FundingTotal: funding},
		IdeasTrend30d: ideasTrend,
		PitchTrend30d: pitchTrend,
	}, nil
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
