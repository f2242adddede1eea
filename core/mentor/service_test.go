package mentor

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

// seedMentor gives mentor 5 two matches: one fresh idea with an approved
// pitch, one older idea past its deadline.
func seedMentor(db *dummydb.DB) {
	db.AddAccount(core.Account{ExternalID: "mnt-1", InternalID: 5, Username: "james", Role: "mentor"})
	db.AddAccount(core.Account{ExternalID: "mnt-2", InternalID: 6, Username: "lucy", Role: "mentor"})
	db.AddAccount(core.Account{ExternalID: "stu-1", InternalID: 7, Username: "amina", Role: "student"})
	db.AddAccount(core.Account{ExternalID: "stu-2", InternalID: 8, Username: "brian", Role: "student"})
	db.AddUser(dummydb.UserRecord{UserID: 7, FirstName: "Amina", LastName: "Yusuf"})
	db.AddUser(dummydb.UserRecord{UserID: 8, FirstName: "Brian", LastName: "Otieno"})

	db.AddProgress(7, core.CourseProgressRow{CourseID: 101, TotalActivities: 8, CompletedActivities: 6})
	db.AddProgress(8, core.CourseProgressRow{CourseID: 101, TotalActivities: 4, CompletedActivities: 1})
	db.AddGrades(
		dummydb.GradeRecord{UserID: 7, CourseID: 101, Percent: 80},
		dummydb.GradeRecord{UserID: 8, CourseID: 101, Percent: 60},
	)

	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-1", Name: "Solar Kiosk", Status: "active", Tags: "energy"},
		AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -1),
	})
	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-2", Name: "Agri App", Status: "draft"},
		AuthorID: "stu-2", CreatedAt: testNow.AddDate(0, 0, -30),
	})
	db.AddMatch(core.MatchRow{
		MatchID: "m1", StudentID: "stu-1", MentorID: "mnt-1", IdeaID: "idea-1",
		Status: "active", DueDate: testNow.AddDate(0, 0, 2), CreatedAt: testNow.AddDate(0, 0, -1),
	})
	db.AddMatch(core.MatchRow{
		MatchID: "m2", StudentID: "stu-2", MentorID: "mnt-1", IdeaID: "idea-2",
		Status: "paused", DueDate: testNow.AddDate(0, 0, -3), CreatedAt: testNow.AddDate(0, 0, -30),
	})
	db.AddPitch(dummydb.PitchRecord{
		PitchRow: core.PitchRow{
			IdeaID: "idea-1", Status: core.PitchApprove, Funding: 2000,
			EventDate: time.Date(2021, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		InvestorID: "inv-1", CreatedAt: testNow.AddDate(0, 0, -5),
	})
}

func TestService_Overall(t *testing.T) {
	svc, db := setup(t)
	seedMentor(db)

	res, err := svc.Overall(context.Background(), 5)
	assert.NoError(t, err)

	assert.Equal(t, 5, res.MentorID)
	assert.Equal(t, 2, res.TotalIdeas)
	assert.Equal(t, 2, res.TotalMentees)
	assert.Equal(t, 50.0, res.AvgProgressPct)
	assert.Equal(t, 70.0, res.AvgGradePct)
	assert.Equal(t, 1, res.OverdueActions)
	assert.Equal(t, 1, res.UpcomingDeadlines7d)
	assert.Equal(t, 1, res.DealReadyIdeas)
	assert.Equal(t, 1, res.NewIdeas)

	if assert.Len(t, res.IdeasTable, 2) {
		assert.Equal(t, IdeaSummary{
			IdeaID: "idea-1", IdeaName: "Solar Kiosk", IdeaStatus: "active",
			StudentID: "stu-1", StudentName: "Amina Yusuf", PitchStatus: "approve",
		}, res.IdeasTable[0])
		assert.Equal(t, IdeaSummary{
			IdeaID: "idea-2", IdeaName: "Agri App", IdeaStatus: "draft",
			StudentID: "stu-2", StudentName: "Brian Otieno",
		}, res.IdeasTable[1])
	}
	if assert.Len(t, res.NewIdeasTable, 1) {
		assert.Equal(t, "idea-1", res.NewIdeasTable[0].IdeaID)
	}
	if assert.Len(t, res.ReadyToInvestTable, 1) {
		assert.Equal(t, ReadyIdea{
			IdeaID: "idea-1", IdeaName: "Solar Kiosk", IdeaStatus: "active",
			StudentID: "stu-1", StudentName: "Amina Yusuf",
			PitchScore: 82, PitchStatus: "approve",
			PitchEventDate: "2021-03-10 09:00:00",
		}, res.ReadyToInvestTable[0])
	}
	if assert.Len(t, res.MyMentoringTable, 2) {
		assert.Equal(t, MentoringItem{IdeaID: "idea-1", IdeaName: "Solar Kiosk", Process: "active", ProgressPercent: 75}, res.MyMentoringTable[0])
		assert.Equal(t, MentoringItem{IdeaID: "idea-2", IdeaName: "Agri App", Process: "paused", ProgressPercent: 25}, res.MyMentoringTable[1])
	}
}

func TestService_Overall_notFound(t *testing.T) {
	svc, db := setup(t)
	seedMentor(db)
	ctx := context.Background()

	_, err := svc.Overall(ctx, 999)
	assert.Equal(t, ErrNotFound, err)

	// a known mentor without matches reads the same as an unknown one
	_, err = svc.Overall(ctx, 6)
	assert.Equal(t, ErrNotFound, err)
}

func TestService_PerIdea(t *testing.T) {
	svc, db := setup(t)
	seedMentor(db)
	ctx := context.Background()

	res, err := svc.PerIdea(ctx, 5, "idea-1")
	assert.NoError(t, err)
	assert.Equal(t, 5, res.MentorID)
	if assert.Len(t, res.Ideas, 1) {
		item := res.Ideas[0]
		assert.Equal(t, "stu-1", item.StudentUserID)
		assert.Equal(t, "Amina Yusuf", item.FullName)
		assert.Equal(t, "Solar Kiosk", item.IdeaName)
		assert.Equal(t, 75.0, item.ProgressPercent)
		if assert.NotNil(t, item.PitchScore) {
			assert.Equal(t, 82.0, *item.PitchScore)
		}
		assert.Equal(t, "approve", item.PitchStatus)
		assert.Equal(t, "active", item.IdeaStatus)
	}

	all, err := svc.PerIdea(ctx, 5, "")
	assert.NoError(t, err)
	assert.Len(t, all.Ideas, 2)

	_, err = svc.PerIdea(ctx, 5, "idea-x")
	assert.Equal(t, ErrNotFound, err)
}
