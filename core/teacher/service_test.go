package teacher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/identity"
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

	engage := dummydb.NewEngagementRepository(db)
	svc := NewService(dummydb.NewCourseRepository(db), engage, identity.NewResolver(engage), core.NopLogger{})
	svc.now = db.Now
	return svc, db
}

// seedTeacher gives teacher 3 two courses with two students. Student 7 was
// active yesterday, student 8 last showed up ten days ago.
func seedTeacher(db *dummydb.DB) {
	db.AddAccount(core.Account{ExternalID: "tch-1", InternalID: 3, Username: "grace", Role: "teacher"})
	db.AddAccount(core.Account{ExternalID: "stu-1", InternalID: 7, Username: "amina", Role: "student"})
	db.AddAccount(core.Account{ExternalID: "stu-2", InternalID: 8, Username: "brian", Role: "student"})
	db.AddUser(dummydb.UserRecord{UserID: 7, FirstName: "Amina", LastName: "Yusuf"})
	db.AddUser(dummydb.UserRecord{UserID: 8, FirstName: "Brian", LastName: "Otieno"})

	db.AddCourse(dummydb.CourseRecord{
		CourseRef: core.CourseRef{CourseID: 101, CourseName: "Go Basics"},
		TeacherID: 3, TeacherName: "Grace Otieno",
		Rating: core.CourseRating{AvgRating: 4.5, NumRatings: 10},
	})
	db.AddCourse(dummydb.CourseRecord{
		CourseRef: core.CourseRef{CourseID: 102, CourseName: "SQL Fundamentals"},
		TeacherID: 3,
	})
	db.AddStudents(7, 8)
	db.Enrol(101, 7, 8)
	db.Enrol(102, 7)

	db.SetModules(101, 7, []core.ModuleRow{
		{ModuleID: 21, CompletionRequired: true, CompletionState: 1},
		{ModuleID: 22, CompletionRequired: true},
		{ModuleID: 23},
		{ModuleID: 24, CompletionRequired: true, CompletionState: 2},
	})

	db.AddProgress(7, core.CourseProgressRow{CourseID: 101, CourseName: "Go Basics", TotalActivities: 4, CompletedActivities: 2})
	db.AddProgress(7, core.CourseProgressRow{CourseID: 102, CourseName: "SQL Fundamentals", Completed: true, TotalActivities: 4, CompletedActivities: 4})
	db.AddProgress(8, core.CourseProgressRow{CourseID: 101, CourseName: "Go Basics", TotalActivities: 4, CompletedActivities: 1})

	db.AddEvents(
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 0)},
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 30)},
		dummydb.EventRecord{UserID: 8, CourseID: 101, Timestamp: at(testNow, -10, 14, 0)},
	)
	db.AddCompletions(
		dummydb.CompletionRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 9, 0), State: 1},
	)
	db.AddAssignments(
		dummydb.AssignmentRecord{
			UserID: 7, CourseID: 101, CourseName: "Go Basics",
			AssignmentID: 11, AssignmentName: "Interfaces Essay",
			DueTS: at(testNow, -5, 12, 0), Submitted: true,
		},
		dummydb.AssignmentRecord{
			UserID: 8, CourseID: 101, CourseName: "Go Basics",
			AssignmentID: 12, AssignmentName: "Channels Quiz",
			DueTS: at(testNow, -2, 12, 0),
		},
	)
	db.AddGrades(
		dummydb.GradeRecord{UserID: 7, CourseID: 101, Percent: 80},
		dummydb.GradeRecord{UserID: 8, CourseID: 101, Percent: 60},
	)

	db.AddForum(dummydb.ForumRecord{ID: "f1", Name: "General", AuthorID: "tch-1", CreatedAt: testNow.AddDate(0, 0, -30)})
	db.AddForumUser(dummydb.ForumUserRecord{ForumID: "f1", UserID: "stu-1", Role: "member"})
	db.AddForumUser(dummydb.ForumUserRecord{ForumID: "f1", UserID: "stu-2", Role: "member"})
	yesterday := testNow.AddDate(0, 0, -1)
	db.AddPost(dummydb.PostRecord{ID: "p1", ForumID: "f1", AuthorID: "stu-1", CreatedAt: yesterday.Add(-2 * time.Hour)})
	db.AddPost(dummydb.PostRecord{ID: "p2", ForumID: "f1", AuthorID: "stu-2", CreatedAt: testNow.Add(-3 * time.Hour)})
	db.AddComment(dummydb.CommentRecord{ID: "c1", PostID: "p1", AuthorID: "stu-2", CreatedAt: yesterday.Add(-time.Hour)})
}

func TestService_Overall(t *testing.T) {
	svc, db := setup(t)
	seedTeacher(db)

	res, err := svc.Overall(context.Background(), 3)
	assert.NoError(t, err)

	assert.Equal(t, 3, res.TeacherID)
	assert.Equal(t, 2, res.TotalStudents)
	assert.Equal(t, 2, res.TotalCourses)
	assert.Equal(t, 1, res.InactiveStudents7d)
	assert.Equal(t, 0, res.InactiveStudents30d)
	assert.Equal(t, 50.0, res.CompletionRate)
	// one 30-minute session gap across the roster
	assert.Equal(t, 0.5, res.AvgLearningHoursPerWeek)
	assert.Equal(t, 0.0, res.DropoutRate)
	assert.Equal(t, 1, res.UngradedSubmissions)

	if assert.Len(t, res.MyCourses, 2) {
		assert.Equal(t, CourseCard{CourseID: 101, CourseName: "Go Basics", AvgCompletion: 33.3, TotalStudents: 2}, res.MyCourses[0])
		assert.Equal(t, CourseCard{CourseID: 102, CourseName: "SQL Fundamentals", AvgCompletion: 0, TotalStudents: 1}, res.MyCourses[1])
	}

	assert.Equal(t, 1, res.TotalForums)
	if assert.Len(t, res.Forums, 1) {
		f := res.Forums[0]
		assert.Equal(t, "f1", f.ForumID)
		assert.Equal(t, "General", f.ForumName)
		assert.Equal(t, "author", f.Role)
		assert.Equal(t, 2, f.TotalPosts)
		assert.Equal(t, 1, f.TotalComments)
		assert.Equal(t, 2, f.TotalMembers)
		assert.Equal(t, "2021-03-15 09:00:00", f.LastActivity)
	}
	if assert.Len(t, res.ForumActivity.Timeline, 7) {
		assert.Equal(t, "2021-03-14 00:00:00", res.ForumActivity.Timeline[5].Date)
		assert.Equal(t, 1, res.ForumActivity.Timeline[5].Posts)
		assert.Equal(t, 1, res.ForumActivity.Timeline[5].Comments)
		assert.Equal(t, 1, res.ForumActivity.Timeline[6].Posts)
		assert.Equal(t, 0, res.ForumActivity.Timeline[6].Comments)
	}
	assert.Equal(t, ActivityBreakdown{Posts: 2, Comments: 1}, res.ForumActivity.ActivityBreakdown)
	if assert.Len(t, res.ForumActivity.TopContributors, 2) {
		assert.Equal(t, Contributor{UserID: "stu-2", Name: "brian", Posts: 1, Comments: 1, Total: 2}, res.ForumActivity.TopContributors[0])
		assert.Equal(t, Contributor{UserID: "stu-1", Name: "amina", Posts: 1, Comments: 0, Total: 1}, res.ForumActivity.TopContributors[1])
	}

	// only student 7 was active in the current week; student 8 fell in the
	// week before
	assert.Equal(t, KPI{Current: 1, PrevWeek: 1}, res.KPICompare.Students)
	assert.Equal(t, KPI{Current: 33.3}, res.KPICompare.Completion)
	assert.Equal(t, KPI{Current: 0.5}, res.KPICompare.AvgHours)
	assert.Equal(t, KPI{Current: 50, PrevWeek: 50}, res.KPICompare.Dropout)
	assert.Equal(t, KPI{Current: 1}, res.KPICompare.Ungraded)

	assert.Len(t, res.Trends.Weekly, 8)
	assert.Len(t, res.Trends.Monthly, 6)
	assert.Len(t, res.Trends.Quarterly, 4)
	assert.Len(t, res.Trends.Yearly, 3)
	latest := res.Trends.Weekly[7]
	assert.Equal(t, "W8", latest.Label)
	assert.Equal(t, 16.7, latest.Completion)
	assert.Equal(t, 0.5, latest.AvgHours)
	assert.Equal(t, 50.0, latest.Dropout)
}

func TestService_Overall_noCourses(t *testing.T) {
	svc, db := setup(t)
	seedTeacher(db)

	_, err := svc.Overall(context.Background(), 99)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_PerCourse(t *testing.T) {
	svc, db := setup(t)
	seedTeacher(db)

	res, err := svc.PerCourse(context.Background(), 3, 101)
	assert.NoError(t, err)

	assert.Equal(t, 101, res.CourseID)
	assert.Equal(t, "Go Basics", res.CourseName)
	assert.Equal(t, 2, res.TotalStudents)
	assert.Equal(t, 70.0, res.AvgGradePct)
	assert.Equal(t, 1, res.MissingSubmissions)
	assert.Equal(t, core.CourseRating{AvgRating: 4.5, NumRatings: 10}, res.CourseRating)
	assert.Equal(t, map[string]int{"8": 1}, res.MissingPerStudent)

	if assert.Len(t, res.MissingDetails, 1) {
		assert.Equal(t, StudentAssignment{
			StudentID: 8, StudentName: "Brian Otieno",
			AssignmentID: 12, AssignmentName: "Channels Quiz",
			DueDate: "2021-03-13 12:00:00",
		}, res.MissingDetails[0])
	}
	if assert.Len(t, res.UngradedDetails, 1) {
		assert.Equal(t, StudentAssignment{
			StudentID: 7, StudentName: "Amina Yusuf",
			AssignmentID: 11, AssignmentName: "Interfaces Essay",
			DueDate: "2021-03-10 12:00:00",
		}, res.UngradedDetails[0])
	}
}

func TestService_PerCourse_notOwned(t *testing.T) {
	svc, db := setup(t)
	seedTeacher(db)

	_, err := svc.PerCourse(context.Background(), 3, 999)
	assert.Equal(t, ErrNotFound, err)
}

func TestDeltaPct(t *testing.T) {
	assert.Equal(t, 0.0, deltaPct(5, 0))
	assert.Equal(t, 25.0, deltaPct(5, 4))
	assert.Equal(t, -50.0, deltaPct(2, 4))
}
