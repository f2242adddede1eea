package student

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

func seedStudent(db *dummydb.DB) {
	db.AddAccount(core.Account{
		ExternalID: "stu-1",
		InternalID: 7,
		Username:   "amina",
		Role:       "student",
		CreatedAt:  testNow.AddDate(0, 0, -100),
	})
	db.AddUser(dummydb.UserRecord{UserID: 7, FirstName: "Amina", LastName: "Yusuf"})

	db.AddCourse(dummydb.CourseRecord{
		CourseRef:   core.CourseRef{CourseID: 101, CourseName: "Go Basics"},
		TeacherID:   3,
		TeacherName: "Grace Otieno",
		Tags:        []string{"golang", "backend"},
		Rating:      core.CourseRating{AvgRating: 4.5, NumRatings: 10},
	})
	db.AddProgress(7, core.CourseProgressRow{
		CourseID: 101, CourseName: "Go Basics",
		TotalActivities: 4, CompletedActivities: 2,
	})
	db.AddProgress(7, core.CourseProgressRow{
		CourseID: 102, CourseName: "SQL Fundamentals", Completed: true,
		TotalActivities: 2, CompletedActivities: 2,
	})
	db.AddGrades(
		dummydb.GradeRecord{UserID: 7, CourseID: 101, Percent: 80},
		dummydb.GradeRecord{UserID: 7, CourseID: 102, Percent: 90},
	)
	db.AddAssignments(
		dummydb.AssignmentRecord{
			UserID: 7, CourseID: 101, CourseName: "Go Basics",
			AssignmentID: 11, AssignmentName: "Interfaces Essay",
			DueTS: at(testNow, -2, 12, 0),
		},
		dummydb.AssignmentRecord{
			UserID: 7, CourseID: 101, CourseName: "Go Basics",
			AssignmentID: 12, AssignmentName: "Channels Quiz",
			DueTS: at(testNow, 2, 12, 0),
		},
		dummydb.AssignmentRecord{
			UserID: 7, CourseID: 102, CourseName: "SQL Fundamentals",
			AssignmentID: 13, AssignmentName: "Joins Lab",
			DueTS: at(testNow, -5, 12, 0), Submitted: true, Graded: true,
		},
	)
	db.AddCompletions(
		dummydb.CompletionRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 9, 0), State: 1},
		dummydb.CompletionRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 9, 30), State: 1},
		dummydb.CompletionRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, 0, 8, 0), State: 2},
	)
	db.AddEvents(
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 0)},
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, -1, 10, 30)},
		dummydb.EventRecord{UserID: 7, CourseID: 101, Timestamp: at(testNow, 0, 11, 0)},
	)
	db.SetModules(101, 7, []core.ModuleRow{
		{ModuleID: 21, CompletionRequired: true, CompletionState: 1},
		{ModuleID: 22, CompletionRequired: true},
		{ModuleID: 23},
		{ModuleID: 24, CompletionRequired: true, CompletionState: 2},
	})

	db.AddPost(dummydb.PostRecord{AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1)})
	db.AddPost(dummydb.PostRecord{AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -10)})
	db.AddComment(dummydb.CommentRecord{AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1)})
	db.AddReaction(dummydb.ReactionRecord{AuthorID: "stu-1", CreatedAt: testNow})
}

func TestService_Overall(t *testing.T) {
	svc, db := setup(t)
	seedStudent(db)
	ctx := context.Background()

	res, err := svc.Overall(ctx, 7)
	assert.NoError(t, err)

	assert.Equal(t, 2, res.Courses.Total)
	assert.Equal(t, 1, res.Courses.Completed)
	assert.Equal(t, 50, res.Courses.CompletionRate)
	assert.Equal(t, 85.0, res.Summary.AvgGradeAll)

	assert.Equal(t, 1, res.Totals.MissingTasks)
	assert.Equal(t, 1, res.Totals.DueSoonTasks)
	if assert.Len(t, res.MissingTasks, 1) {
		assert.Equal(t, "Interfaces Essay", res.MissingTasks[0].AssignmentName)
		assert.Equal(t, "2021-03-13 12:00:00", res.MissingTasks[0].DueDate)
	}
	if assert.Len(t, res.DueSoonTasks, 1) {
		assert.Equal(t, "Channels Quiz", res.DueSoonTasks[0].AssignmentName)
	}

	// 3 completions, a quarter hour each, over 2 distinct days
	assert.Equal(t, 0.75, res.Activity.TotalHours)
	assert.Equal(t, 2, res.Activity.ActiveDays)

	assert.Equal(t, core.EngagementCounts{Posts: 2, Comments: 1, Reactions: 1}, res.Engagement)

	if assert.Len(t, res.Trend.LearningDaily, 7) {
		assert.Equal(t, "2021-03-14 00:00:00", res.Trend.LearningDaily[5].Date)
		assert.Equal(t, 2, res.Trend.LearningDaily[5].Count)
		assert.Equal(t, 1, res.Trend.LearningDaily[6].Count)
	}
	if assert.Len(t, res.Trend.EngagementDaily, 7) {
		// the 10-day-old post falls outside the window
		assert.Equal(t, 1, res.Trend.EngagementDaily[5].Count)
		assert.Equal(t, 0, res.Trend.EngagementDaily[0].Count)
	}

	if assert.Len(t, res.ContinueLearning, 1) {
		cc := res.ContinueLearning[0]
		assert.Equal(t, 101, cc.CourseID)
		assert.Equal(t, 50, cc.ProgressPercent)
		assert.Equal(t, "2021-03-15 11:00:00", cc.LastActive)
	}

	assert.Equal(t, "2021-03-15 11:00:00", res.LastActive)
	if assert.NotNil(t, res.DaysInactive) {
		assert.Equal(t, 0, *res.DaysInactive)
	}
}

func TestService_Overall_unknownStudent(t *testing.T) {
	svc, db := setup(t)
	seedStudent(db)

	_, err := svc.Overall(context.Background(), 999)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_PerCourse(t *testing.T) {
	svc, db := setup(t)
	seedStudent(db)
	ctx := context.Background()

	res, err := svc.PerCourse(ctx, 7, 101)
	assert.NoError(t, err)

	assert.Equal(t, 101, res.CourseInfo.CourseID)
	assert.Equal(t, "Go Basics", res.CourseInfo.CourseName)
	assert.Equal(t, "Grace Otieno", res.CourseInfo.TeacherName)
	assert.Equal(t, []string{"golang", "backend"}, res.CourseInfo.Tags)
	assert.Equal(t, 4, res.CourseInfo.TotalActivities)
	assert.Equal(t, 2, res.CourseInfo.CompletedActivities)

	assert.Equal(t, 50, res.Progress.ProgressPercent)
	assert.False(t, res.Progress.Completed)
	assert.Equal(t, 50, res.ProgressDonut.Progress)
	assert.Equal(t, 50, res.ProgressDonut.Done)

	assert.Equal(t, 80.0, res.AvgGradePct)
	assert.Equal(t, 1, res.MissingTasks)

	// one qualifying 30-minute gap yesterday
	assert.Equal(t, 0.5, res.TimeSpentHours)
	if assert.Len(t, res.HoursPerDay, 7) {
		assert.Equal(t, 0.5, res.HoursPerDay[5].Hours)
	}

	if assert.Len(t, res.Activities, 4) {
		assert.Equal(t, "Activity 1", res.Activities[0].ActivityName)
		assert.True(t, res.Activities[0].Completed)
		assert.False(t, res.Activities[1].Completed)
		assert.False(t, res.Activities[2].Completed)
		assert.True(t, res.Activities[3].Completed)
	}

	assert.Equal(t, "2021-03-15 11:00:00", res.LastActive)
	if assert.NotNil(t, res.DaysInactive) {
		assert.Equal(t, 0, *res.DaysInactive)
	}
}

func TestService_PerCourse_notEnrolled(t *testing.T) {
	svc, db := setup(t)
	seedStudent(db)

	_, err := svc.PerCourse(context.Background(), 7, 999)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_PerCourse_overCompleted(t *testing.T) {
	svc, db := setup(t)
	seedStudent(db)

	// upstream sometimes reports more completions than activities
	db.AddProgress(7, core.CourseProgressRow{
		CourseID: 103, CourseName: "Data Wrangling",
		TotalActivities: 4, CompletedActivities: 5,
	})

	res, err := svc.PerCourse(context.Background(), 7, 103)
	assert.NoError(t, err)
	assert.Equal(t, 125, res.ProgressDonut.Progress)
	assert.Equal(t, 0, res.ProgressDonut.Done)
}
