package admin

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kipimo/core"
	dummydb "github.com/trezcool/kipimo/storage/database/dummy"
)

var testNow = time.Date(2021, 3, 15, 12, 0, 0, 0, time.UTC)

func at(base time.Time, days, hour, min int) int64 {
	d := base.AddDate(0, 0, days)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, time.UTC).Unix()
}

func setup(t *testing.T) (*Service, *dummydb.DB) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatal(err)
	}
	db.Now = func() time.Time { return testNow }

	svc := NewService(dummydb.NewCourseRepository(db), dummydb.NewEngagementRepository(db), core.NopLogger{})
	svc.now = db.Now
	return svc, db
}

func seedPlatform(db *dummydb.DB) {
	db.AddAccount(core.Account{ExternalID: "stu-1", InternalID: 7, Username: "amina", Role: "student", CreatedAt: testNow.AddDate(0, 0, -2)})
	db.AddAccount(core.Account{ExternalID: "stu-2", InternalID: 8, Username: "brian", Role: "student", CreatedAt: testNow.AddDate(0, 0, -20)})
	db.AddAccount(core.Account{ExternalID: "tch-1", InternalID: 3, Username: "grace", Role: "teacher", CreatedAt: testNow.AddDate(0, 0, -100)})
	db.AddAccount(core.Account{ExternalID: "inv-1", Username: "wanjiru", Role: "investor", CreatedAt: testNow.AddDate(0, 0, -100)})

	db.AddCourse(dummydb.CourseRecord{CourseRef: core.CourseRef{CourseID: 101, CourseName: "Go Basics"}, TeacherID: 3})
	db.AddCourse(dummydb.CourseRecord{CourseRef: core.CourseRef{CourseID: 102, CourseName: "SQL Fundamentals"}, TeacherID: 3})
	db.AddStudents(7, 8)
	db.Enrol(101, 7, 8)
	db.Enrol(102, 7)

	db.AddProgress(7, core.CourseProgressRow{CourseID: 101, CourseName: "Go Basics", TotalActivities: 4, CompletedActivities: 2})
	db.AddProgress(7, core.CourseProgressRow{CourseID: 102, CourseName: "SQL Fundamentals", Completed: true, TotalActivities: 2, CompletedActivities: 2})
	db.AddProgress(8, core.CourseProgressRow{CourseID: 101, CourseName: "Go Basics", TotalActivities: 4, CompletedActivities: 1})

	db.AddEvents(
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 0)},
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 30)},
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, 0, 9, 0)},
		dummydb.EventRecord{UserID: 8, CourseID: 101, Timestamp: at(testNow, -10, 14, 0)},
	)
	db.AddCompletions(
		dummydb.CompletionRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 9, 0), State: 1},
	)
	db.AddAssignments(
		dummydb.AssignmentRecord{UserID: 7, CourseID: 101, AssignmentID: 11, DueTS: at(testNow, -5, 12, 0), Submitted: true},
		dummydb.AssignmentRecord{UserID: 8, CourseID: 101, AssignmentID: 12, DueTS: at(testNow, -2, 12, 0)},
	)

	db.AddPost(dummydb.PostRecord{ID: "p1", ForumID: "f1", AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1)})
	db.AddPost(dummydb.PostRecord{ID: "p2", ForumID: "f1", AuthorID: "stu-2", CreatedAt: testNow.Add(-2 * time.Hour)})
	db.AddComment(dummydb.CommentRecord{ID: "c1", PostID: "p1", AuthorID: "stu-2", CreatedAt: testNow.AddDate(0, 0, -1)})
	db.AddReaction(dummydb.ReactionRecord{AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1)})

	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-1", Name: "Solar Kiosk", Status: "active"},
		AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1),
	})
	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-2", Name: "Agri App", Status: "submitted"},
		AuthorID: "stu-2", CreatedAt: testNow.AddDate(0, 0, -2),
	})
	db.AddMatch(core.MatchRow{MatchID: "m1", StudentID: "stu-1", MentorID: "mnt-1", IdeaID: "idea-1", Status: "active", DueDate: testNow.AddDate(0, 0, -3)})
	db.AddMatch(core.MatchRow{MatchID: "m2", StudentID: "stu-2", MentorID: "mnt-1", IdeaID: "idea-2", Status: "active", DueDate: testNow.AddDate(0, 0, 2)})
	db.AddPitch(dummydb.PitchRecord{
		PitchRow:   core.PitchRow{IdeaID: "idea-1", Status: core.PitchApprove, Funding: 2000, EventDate: testNow.AddDate(0, 0, 3)},
		InvestorID: "inv-1", CreatedAt: testNow.AddDate(0, 0, -1),
	})
}

func TestService_Overall(t *testing.T) {
	svc, db := setup(t)
	seedPlatform(db)

	res, err := svc.Overall(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 4, res.Users.Total)
	assert.Equal(t, map[string]int{"student": 2, "teacher": 1, "investor": 1}, res.Users.ByRole)
	assert.Equal(t, 1, res.Users.NewWeek)
	assert.Equal(t, 2, res.Users.NewMonth)
	assert.Equal(t, 1, res.Users.Active7d)
	assert.Equal(t, 2, res.Users.Inactive7d)
	assert.Equal(t, 2, res.Users.Active30d)
	assert.Equal(t, 1, res.Users.Inactive30d)
	if assert.Len(t, res.Users.Trend7d, 7) {
		assert.Equal(t, 1, res.Users.Trend7d[5].ActiveUsers)
		assert.Equal(t, 1, res.Users.Trend7d[6].ActiveUsers)
		assert.Equal(t, 0, res.Users.Trend7d[0].ActiveUsers)
	}

	if assert.Len(t, res.Logs.Volume7d, 7) {
		assert.Equal(t, 2, res.Logs.Volume7d[5].Logs)
		assert.Equal(t, 1, res.Logs.Volume7d[6].Logs)
	}
	if assert.Len(t, res.Logs.EventMix7d, 7) {
		yesterday := res.Logs.EventMix7d[5]
		assert.Equal(t, 2, yesterday.Activity)
		assert.Equal(t, 1, yesterday.Completion)
		assert.Equal(t, 1, yesterday.Posts)
		assert.Equal(t, 1, yesterday.Comments)
	}

	// today's 09:00 event is the only one inside the rolling day
	if assert.Len(t, res.ConcurrentUsers, 1) {
		assert.Equal(t, ConcurrentPoint{Date: "2021-03-15 09:00:00", Users: 1}, res.ConcurrentUsers[0])
	}

	if assert.Len(t, res.MentorLoadTop, 1) {
		assert.Equal(t, core.MentorLoadRow{MentorID: "mnt-1", MatchCount: 2}, res.MentorLoadTop[0])
	}
	assert.Equal(t, Alerts{AssignmentOverdue: 1, IdeaPendingReview: 1, MentorMatchOverdue: 1}, res.Alerts)
}

func TestService_Learning(t *testing.T) {
	svc, db := setup(t)
	seedPlatform(db)

	res, err := svc.Learning(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 2, res.CoursesTotal)
	assert.Equal(t, 33.3, res.CompletionRate)
	// user 7 sits at 66.7%, user 8 at 25%
	assert.Equal(t, 45.9, res.AvgProgressPct)

	if assert.Len(t, res.TopCoursesByEnroll, 2) {
		assert.Equal(t, TopCourse{CourseID: 101, CourseName: "Go Basics", EnrolCount: 2}, res.TopCoursesByEnroll[0])
		assert.Equal(t, TopCourse{CourseID: 102, CourseName: "SQL Fundamentals", EnrolCount: 1}, res.TopCoursesByEnroll[1])
	}
	if assert.Len(t, res.TopMissingCourses, 2) {
		assert.Equal(t, MissingCourse{
			CourseID: 101, CourseName: "Go Basics",
			MissingCount: 1, EnrolCount: 2, MissingRate: 50,
		}, res.TopMissingCourses[0])
		assert.Equal(t, 102, res.TopMissingCourses[1].CourseID)
	}
	if assert.Len(t, res.CompletionTrend30d, 30) {
		assert.Equal(t, 100.0, res.CompletionTrend30d[28].CompletionPct)
		assert.Equal(t, 0.0, res.CompletionTrend30d[29].CompletionPct)
	}
}

func TestService_Engagement(t *testing.T) {
	svc, db := setup(t)
	seedPlatform(db)

	res, err := svc.Engagement(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, core.EngagementCounts{Posts: 2, Comments: 1, Reactions: 1}, res.Totals)
	if assert.Len(t, res.TopUsers, 2) {
		assert.Equal(t, TopUser{UserID: "stu-1", Username: "amina", LinkedUserID: 7, EngagementScore: 2}, res.TopUsers[0])
		assert.Equal(t, TopUser{UserID: "stu-2", Username: "brian", LinkedUserID: 8, EngagementScore: 2}, res.TopUsers[1])
	}
	if assert.Len(t, res.Timeline30d, 30) {
		assert.Equal(t, 1, res.Timeline30d[28].Posts)
		assert.Equal(t, 1, res.Timeline30d[28].Comments)
		assert.Equal(t, 1, res.Timeline30d[29].Posts)
		assert.Equal(t, 0, res.Timeline30d[29].Comments)
	}
}

func TestService_Ideas(t *testing.T) {
	svc, db := setup(t)
	seedPlatform(db)

	res, err := svc.Ideas(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, 2, res.IdeasTotal)
	assert.Equal(t, map[string]int{"active": 1, "submitted": 1}, res.IdeasByStatus)
	assert.Equal(t, core.MatchStats{Total: 2, Overdue: 1, Upcoming: 1}, res.MentorMatch)
	assert.Equal(t, PitchTotals{Total: 1, FundingTotal: 2000}, res.Pitch)
	if assert.Len(t, res.IdeasTrend30d, 30) {
		assert.Equal(t, 1, res.IdeasTrend30d[27].Ideas)
		assert.Equal(t, 1, res.IdeasTrend30d[28].Ideas)
	}
	if assert.Len(t, res.PitchTrend30d, 30) {
		assert.Equal(t, PitchTrendPoint{Date: "2021-03-14 00:00:00", PitchCount: 1, FundingTotal: 2000}, res.PitchTrend30d[28])
	}
}
