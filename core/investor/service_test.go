package investor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/kipimo/core"
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

	svc := NewService(dummydb.NewEngagementRepository(db), core.NopLogger{})
	svc.now = db.Now
	return svc, db
}

// seedInvestor gives investor inv-1 two pitches: an approved funded one and a
// fresh submission pitching next week.
func seedInvestor(db *dummydb.DB) {
	db.AddAccount(core.Account{ExternalID: "inv-1", Username: "wanjiru", Role: "investor"})
	db.AddAccount(core.Account{ExternalID: "stu-1", InternalID: 7, Username: "amina", Role: "student"})
	db.AddAccount(core.Account{ExternalID: "mnt-1", InternalID: 5, Username: "james", Role: "mentor"})

	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-1", Name: "Solar Kiosk", Status: "active", Tags: "energy,green"},
		AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -20),
	})
	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow:  core.IdeaRow{IdeaID: "idea-2", Name: "Agri App", Status: "draft"},
		AuthorID: "stu-1", CreatedAt: testNow.AddDate(0, 0, -2),
	})
	db.AddPitch(dummydb.PitchRecord{
		PitchRow: core.PitchRow{
			IdeaID: "idea-1", Status: core.PitchApprove, Funding: 2000,
			EventDate: time.Date(2021, 3, 10, 9, 0, 0, 0, time.UTC),
		},
		InvestorID: "inv-1", CreatedAt: testNow.AddDate(0, 0, -10),
	})
	db.AddPitch(dummydb.PitchRecord{
		PitchRow: core.PitchRow{
			IdeaID: "idea-2", Status: "submitted",
			EventDate: time.Date(2021, 3, 17, 10, 0, 0, 0, time.UTC),
		},
		InvestorID: "inv-1", CreatedAt: testNow.AddDate(0, 0, -2),
	})
	db.AddMatch(core.MatchRow{
		MatchID: "m1", StudentID: "stu-1", MentorID: "mnt-1", IdeaID: "idea-1",
		Status: "active", DueDate: time.Date(2021, 3, 20, 12, 0, 0, 0, time.UTC),
	})
	db.AddWorkflow(core.WorkflowRow{InstanceID: "idea-1", CompletionPercent: 40})
	db.AddWorkflow(core.WorkflowRow{InstanceID: "idea-1", CompletionPercent: 60})
	db.AddWorkflow(core.WorkflowRow{CompletionPercent: 99})
}

func TestService_Overall(t *testing.T) {
	svc, db := setup(t)
	seedInvestor(db)

	res, err := svc.Overall(context.Background(), "inv-1")
	assert.NoError(t, err)

	assert.Equal(t, "inv-1", res.InvestorID)
	assert.Equal(t, 2, res.PitchTotal)
	assert.Equal(t, 2000.0, res.FundingTotal)
	assert.Equal(t, 1, res.UpcomingPitches7d)
	assert.Equal(t, 1, res.ReadyToInvest)

	if assert.Len(t, res.RankingTable, 2) {
		assert.Equal(t, RankedIdea{
			IdeaID: "idea-1", IdeaName: "Solar Kiosk", IdeaStatus: "active",
			Domain: "energy", PitchStatus: "approve", Funding: 2000,
			EventDate: "2021-03-10 09:00:00", PitchScore: 82, ProgressPercent: 60,
		}, res.RankingTable[0])
		assert.Equal(t, RankedIdea{
			IdeaID: "idea-2", IdeaName: "Agri App", IdeaStatus: "draft",
			Domain: "unknown", PitchStatus: "submitted",
			EventDate: "2021-03-17 10:00:00", PitchScore: 50,
		}, res.RankingTable[1])
	}
	if assert.Len(t, res.InvestedIdeas, 1) {
		assert.Equal(t, "idea-1", res.InvestedIdeas[0].IdeaID)
	}
	if assert.Len(t, res.NewIdeas, 1) {
		assert.Equal(t, "idea-2", res.NewIdeas[0].IdeaID)
	}
	assert.Equal(t, map[string]int{"energy": 1, "unknown": 1}, res.IdeaByDomain)
}

func TestService_Overall_noPitches(t *testing.T) {
	svc, db := setup(t)
	seedInvestor(db)

	_, err := svc.Overall(context.Background(), "inv-x")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_InvestedIdeas(t *testing.T) {
	svc, db := setup(t)
	seedInvestor(db)

	res, err := svc.InvestedIdeas(context.Background(), "inv-1")
	assert.NoError(t, err)
	assert.Equal(t, 1, res.TotalInvested)
	if assert.Len(t, res.Ideas, 1) {
		assert.Equal(t, InvestedIdea{
			IdeaID: "idea-1", IdeaName: "Solar Kiosk", IdeaStatus: "active",
			Domain: "energy", PitchStatus: "approve", Funding: 2000,
			EventDate: "2021-03-10 09:00:00",
		}, res.Ideas[0])
	}
}

func TestService_PerIdea(t *testing.T) {
	svc, db := setup(t)
	seedInvestor(db)
	ctx := context.Background()

	all, err := svc.PerIdea(ctx, "inv-1", "", "", "")
	assert.NoError(t, err)
	assert.Len(t, all.Ideas, 2)

	res, err := svc.PerIdea(ctx, "inv-1", "idea-1", "", "")
	assert.NoError(t, err)
	if assert.Len(t, res.Ideas, 1) {
		item := res.Ideas[0]
		assert.Equal(t, "Solar Kiosk", item.IdeaName)
		assert.Equal(t, Person{UserID: "stu-1", Name: "amina"}, item.Student)
		assert.Equal(t, Person{UserID: "mnt-1", Name: "james"}, item.Mentor)
		assert.Equal(t, PitchInfo{
			Status: "approve", Funding: 2000,
			EventDate: "2021-03-10 09:00:00", Score: 82,
		}, item.Pitch)
		assert.Equal(t, "2021-03-20 12:00:00", item.Match.DueDate)
	}

	byMentor, err := svc.PerIdea(ctx, "inv-1", "", "mnt-1", "")
	assert.NoError(t, err)
	assert.Len(t, byMentor.Ideas, 1)

	_, err = svc.PerIdea(ctx, "inv-1", "", "", "stu-x")
	assert.Equal(t, ErrNotFound, err)
}

func TestService_OverallDomainCounts(t *testing.T) {
	svc, db := setup(t)
	db.AddAccount(core.Account{ExternalID: "inv-1", Username: "wanjiru", Role: "investor"})

	// one more pitch than the ranking table holds; the lowest-scored one
	// falls off the table but must still count towards its domain
	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow: core.IdeaRow{IdeaID: "idea-a", Name: "Drip Farm", Status: "active", Tags: "agritech"},
	})
	db.AddIdea(dummydb.IdeaRecord{
		IdeaRow: core.IdeaRow{IdeaID: "idea-b", Name: "Pay Later", Status: "active", Tags: "fintech"},
	})
	for i := 0; i < 50; i++ {
		db.AddPitch(dummydb.PitchRecord{
			PitchRow:   core.PitchRow{IdeaID: "idea-a", Status: core.PitchApprove, Funding: 2000},
			InvestorID: "inv-1",
		})
	}
	db.AddPitch(dummydb.PitchRecord{
		PitchRow:   core.PitchRow{IdeaID: "idea-b", Status: core.PitchReject},
		InvestorID: "inv-1",
	})

	res, err := svc.Overall(context.Background(), "inv-1")
	assert.NoError(t, err)

	assert.Len(t, res.RankingTable, 50)
	assert.Equal(t, map[string]int{"agritech": 50, "fintech": 1}, res.IdeaByDomain)
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "energy", domain("energy,green"))
	assert.Equal(t, "fintech", domain("fintech"))
	assert.Equal(t, "unknown", domain(""))
}
