package teacher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/identity"
)

// ErrNotFound is returned when the teacher has no courses or the requested
// course is not theirs.
var ErrNotFound = errors.New("not found")

// CourseRepository provides the learning-store reads the teacher reports need.
// Batch lookups take id sets and return one row per id that has data; callers
// treat absent ids as zero activity. A zero TimeRange means all time.
type CourseRepository interface {
	QueryTeacherCourses(ctx context.Context, teacherID int) ([]core.CourseRef, error)
	QueryStudentsInCourses(ctx context.Context, courseIDs []int) ([]int, error)
	QueryCourseEnrolCounts(ctx context.Context, courseIDs []int) ([]core.CourseCount, error)
	QueryCourseCompletion(ctx context.Context, courseIDs []int) ([]core.CourseCompletionRow, error)
	QueryLastActivityByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserTimestamp, error)
	QueryProgressByUser(ctx context.Context, userIDs []int) ([]core.UserProgressRow, error)
	QueryCourseActivityLog(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) ([]core.ActivityEvent, error)
	GetUngradedCount(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error)
	QueryActiveStudents(ctx context.Context, courseIDs []int, window core.TimeRange) ([]int, error)
	GetTotalActivities(ctx context.Context, courseIDs []int) (int, error)
	GetWindowCompletions(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error)
	GetCourseName(ctx context.Context, courseID int) (string, error)
	GetCourseRating(ctx context.Context, courseID int) (core.CourseRating, error)
	QueryAvgGradeByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserValue, error)
	QueryMissingByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserCount, error)
	QueryMissingDetails(ctx context.Context, courseID int) ([]core.AssignmentUserRow, error)
	QueryUngradedDetails(ctx context.Context, courseID int) ([]core.AssignmentUserRow, error)
	QueryUserNames(ctx context.Context, userIDs []int) ([]core.UserName, error)
}

// EngagementRepository provides the community-store forum reads.
type EngagementRepository interface {
	QueryForumsByOwner(ctx context.Context, externalID string) ([]core.ForumRow, error)
	QueryForumPostsPerDay(ctx context.Context, forumIDs []string, days int) ([]core.DayCount, error)
	QueryForumCommentsPerDay(ctx context.Context, forumIDs []string, days int) ([]core.DayCount, error)
	GetForumTotals(ctx context.Context, forumIDs []string) (posts, comments int, err error)
	QueryTopForumContributors(ctx context.Context, forumIDs []string, limit int) ([]core.ContributorRow, error)
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

func (svc *Service) soft(err error, metric string) bool {
	if err != nil {
		svc.log.Warn(fmt.Sprintf("teacher: %s unavailable: %v", metric, err))
		return false
	}
	return true
}

// Overall builds the teacher's cross-course dashboard. A teacher with no
// courses is reported as not found rather than as an empty dashboard.
func (svc *Service) Overall(ctx context.Context, teacherID int) (Overall, error) {
	courses, err := svc.courses.QueryTeacherCourses(ctx, teacherID)
	if err != nil {
		return Overall{}, errors.Wrap(err, "querying teacher courses")
	}
	if len(courses) == 0 {
		return Overall{}, ErrNotFound
	}
	now := svc.now().UTC()

	courseIDs := make([]int, 0, len(courses))
	courseNames := make(map[int]string, len(courses))
	for _, c := range courses {
		courseIDs = append(courseIDs, c.CourseID)
		courseNames[c.CourseID] = c.CourseName
	}

	students, err := svc.courses.QueryStudentsInCourses(ctx, courseIDs)
	if err != nil {
		return Overall{}, errors.Wrap(err, "querying enrolled students")
	}
	totalStudents := len(students)

	var (
		enrolRows      []core.CourseCount
		completionRows []core.CourseCompletionRow
		lastRows       []core.UserTimestamp
		progressRows   []core.UserProgressRow
		events         []core.ActivityEvent
		ungraded       int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseEnrolCounts(gctx, courseIDs); svc.soft(err, "enrol counts") {
			enrolRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseCompletion(gctx, courseIDs); svc.soft(err, "course completion") {
			completionRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryLastActivityByUser(gctx, courseIDs, students); svc.soft(err, "last activity") {
			lastRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryProgressByUser(gctx, students); svc.soft(err, "progress") {
			progressRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryCourseActivityLog(gctx, courseIDs, students, core.TimeRange{}); svc.soft(err, "activity log") {
			events = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetUngradedCount(gctx, courseIDs, students, core.TimeRange{}); svc.soft(err, "ungraded count") {
			ungraded = v
		}
		return nil
	})
	_ = g.Wait()

	enrolCounts := core.CourseCountMap(enrolRows)

	// Roster-wide avg completion per course: completions over activities
	// times head count.
	completionMap := make(map[int]float64, len(completionRows))
	for _, row := range completionRows {
		denom := float64(row.TotalActivities * enrolCounts[row.CourseID])
		completionMap[row.CourseID] = core.SafeRate(float64(row.CompletedActivities), denom, 100, 1)
	}

	// A student missing from the activity log never showed up, which counts
	// as inactive at every threshold.
	lastByUser := core.UserTimestampMap(lastRows)
	var inactive7, inactive30 int
	for _, uid := range students {
		ts, ok := lastByUser[uid]
		if !ok {
			inactive7++
			inactive30++
			continue
		}
		days := core.DaysSince(now, ts)
		if days >= 7 {
			inactive7++
		}
		if days >= 30 {
			inactive30++
		}
	}

	var completionRate float64
	if len(progressRows) > 0 {
		var sum float64
		for _, row := range progressRows {
			sum += float64(core.CompletionPercent(row.CompletedActivities, row.TotalActivities))
		}
		completionRate = core.RoundTo(sum/float64(len(progressRows)), 1)
	}

	dropoutRate := core.SafeRate(float64(inactive30), float64(totalStudents), 100, 1)

	forums, forumActivity := svc.forumMetrics(ctx, teacherID, now)

	myCourses := make([]CourseCard, 0, len(courseIDs))
	for _, cid := range courseIDs {
		myCourses = append(myCourses, CourseCard{
			CourseID:      cid,
			CourseName:    courseNames[cid],
			AvgCompletion: completionMap[cid],
			TotalStudents: enrolCounts[cid],
		})
	}

	kpi, trends := svc.windowedKPIs(ctx, now, courseIDs, students)

	return Overall{
		TeacherID:               teacherID,
		TotalStudents:           totalStudents,
		TotalCourses:            len(courseIDs),
		InactiveStudents7d:      inactive7,
		InactiveStudents30d:     inactive30,
		CompletionRate:          completionRate,
		AvgLearningHoursPerWeek: core.AvgSessionHours(events),
		DropoutRate:             dropoutRate,
		UngradedSubmissions:     ungraded,
		TotalForums:             len(forums),
		Forums:                  forums,
		ForumActivity:           forumActivity,
		MyCourses:               myCourses,
		KPICompare:              kpi,
		Trends:                  trends,
	}, nil
}

// forumMetrics builds the community-side half of the dashboard. The teacher
// may have no account on the community system at all; every part degrades to
// empty rather than failing the report.
func (svc *Service) forumMetrics(ctx context.Context, teacherID int, now time.Time) ([]Forum, ForumActivity) {
	activity := ForumActivity{
		Timeline:        []TimelinePoint{},
		TopContributors: []Contributor{},
	}

	extID, err := svc.resolver.ResolveExternalID(ctx, teacherID)
	if !svc.soft(err, "community account") {
		return []Forum{}, activity
	}
	forumRows, err := svc.engage.QueryForumsByOwner(ctx, extID)
	if !svc.soft(err, "forums") {
		return []Forum{}, activity
	}

	forums := make([]Forum, 0, len(forumRows))
	forumIDs := make([]string, 0, len(forumRows))
	for _, row := range forumRows {
		forumIDs = append(forumIDs, row.ForumID)
		last := row.LastPostAt
		if row.LastCommentAt.After(last) {
			last = row.LastCommentAt
		}
		forums = append(forums, Forum{
			ForumID:       row.ForumID,
			ForumName:     row.ForumName,
			Role:          row.Role,
			TotalPosts:    row.TotalPosts,
			TotalComments: row.TotalComments,
			TotalMembers:  row.TotalMembers,
			LastActivity:  core.FormatTimestamp(last),
		})
	}
	if len(forumIDs) == 0 {
		return forums, activity
	}

	var (
		postRows, commentRows []core.DayCount
		totalPosts            int
		totalComments         int
		contribRows           []core.ContributorRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.engage.QueryForumPostsPerDay(gctx, forumIDs, 7); svc.soft(err, "forum posts") {
			postRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryForumCommentsPerDay(gctx, forumIDs, 7); svc.soft(err, "forum comments") {
			commentRows = v
		}
		return nil
	})
	g.Go(func() error {
		if p, c, err := svc.engage.GetForumTotals(gctx, forumIDs); svc.soft(err, "forum totals") {
			totalPosts, totalComments = p, c
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.engage.QueryTopForumContributors(gctx, forumIDs, 5); svc.soft(err, "top contributors") {
			contribRows = v
		}
		return nil
	})
	_ = g.Wait()

	postByDay := core.DayCountMap(postRows)
	commentByDay := core.DayCountMap(commentRows)
	for _, key := range core.DateKeys(now, 7) {
		activity.Timeline = append(activity.Timeline, TimelinePoint{
			Date:     core.FormatTimestamp(key),
			Posts:    postByDay[key],
			Comments: commentByDay[key],
		})
	}
	activity.ActivityBreakdown = ActivityBreakdown{Posts: totalPosts, Comments: totalComments}

	if len(contribRows) > 0 {
		ids := make([]string, 0, len(contribRows))
		for _, row := range contribRows {
			ids = append(ids, row.UserID)
		}
		accounts, err := svc.resolver.ResolveMany(ctx, ids)
		if !svc.soft(err, "contributor names") {
			accounts = map[string]core.Account{}
		}
		for _, row := range contribRows {
			name := row.UserID
			if acc, ok := accounts[row.UserID]; ok && acc.Username != "" {
				name = acc.Username
			}
			activity.TopContributors = append(activity.TopContributors, Contributor{
				UserID:   row.UserID,
				Name:     name,
				Posts:    row.Posts,
				Comments: row.Comments,
				Total:    row.Posts + row.Comments,
			})
		}
	}
	return forums, activity
}

// PerCourse builds the grading detail for one taught course.
func (svc *Service) PerCourse(ctx context.Context, teacherID, courseID int) (PerCourse, error) {
	courses, err := svc.courses.QueryTeacherCourses(ctx, teacherID)
	if err != nil {
		return PerCourse{}, errors.Wrap(err, "querying teacher courses")
	}
	var owned bool
	for _, c := range courses {
		if c.CourseID == courseID {
			owned = true
			break
		}
	}
	if !owned {
		return PerCourse{}, ErrNotFound
	}

	students, err := svc.courses.QueryStudentsInCourses(ctx, []int{courseID})
	if err != nil {
		return PerCourse{}, errors.Wrap(err, "querying enrolled students")
	}

	var (
		courseName                   string
		rating                       core.CourseRating
		gradeRows                    []core.UserValue
		missingRows                  []core.UserCount
		missingDetails, ungradedRows []core.AssignmentUserRow
		nameRows                     []core.UserName
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if v, err := svc.courses.GetCourseName(gctx, courseID); svc.soft(err, "course name") {
			courseName = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.GetCourseRating(gctx, courseID); svc.soft(err, "course rating") {
			rating = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryAvgGradeByUser(gctx, []int{courseID}, students); svc.soft(err, "grades") {
			gradeRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryMissingByUser(gctx, []int{courseID}, students); svc.soft(err, "missing counts") {
			missingRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryMissingDetails(gctx, courseID); svc.soft(err, "missing details") {
			missingDetails = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryUngradedDetails(gctx, courseID); svc.soft(err, "ungraded details") {
			ungradedRows = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := svc.courses.QueryUserNames(gctx, students); svc.soft(err, "student names") {
			nameRows = v
		}
		return nil
	})
	_ = g.Wait()

	var avgGrade float64
	if len(gradeRows) > 0 {
		var sum float64
		for _, row := range gradeRows {
			sum += row.Value
		}
		avgGrade = sum / float64(len(gradeRows))
	}

	names := make(map[int]string, len(nameRows))
	for _, row := range nameRows {
		names[row.UserID] = row.Name
	}

	missingPerStudent := make(map[string]int, len(missingRows))
	var missingTotal int
	for _, row := range missingRows {
		missingPerStudent[strconv.Itoa(row.UserID)] = row.Count
		missingTotal += row.Count
	}

	return PerCourse{
		CourseID:           courseID,
		CourseName:         courseName,
		TotalStudents:      len(students),
		AvgGradePct:        core.RoundTo(avgGrade, 1),
		MissingSubmissions: missingTotal,
		CourseRating:       rating,
		MissingPerStudent:  missingPerStudent,
		MissingDetails:     studentAssignments(missingDetails, names),
		UngradedDetails:    studentAssignments(ungradedRows, names),
	}, nil
}

func studentAssignments(rows []core.AssignmentUserRow, names map[int]string) []StudentAssignment {
	out := make([]StudentAssignment, 0, len(rows))
	for _, row := range rows {
		name := strings.TrimSpace(row.FirstName + " " + row.LastName)
		if row.FirstName == "" {
			name = names[row.UserID]
			if name == "" {
				name = "Unknown"
			}
		}
		sa := StudentAssignment{
			StudentID:      row.UserID,
			StudentName:    name,
			AssignmentID:   row.AssignmentID,
			AssignmentName: row.AssignmentName,
		}
		if row.DueTS > 0 {
			sa.DueDate = core.FormatTimestamp(row.DueTS)
		}
		out = append(out, sa)
	}
	return out
}
