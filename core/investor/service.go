package investor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
)

// ErrNotFound is returned when the investor has no pitches at all.
var ErrNotFound = errors.New("not found")

// rankingLimit caps the ranking table. Ties keep their input order.
const rankingLimit = 50

// EngagementRepository provides the community-store pitch, idea and workflow
// reads. Investors exist only on the community system, so everything is keyed
// by the external id.
type EngagementRepository interface {
	GetPitchSummary(ctx context.Context, investorID string, upcoming core.TimeRange) (core.PitchSummary, error)
	QueryInvestorPitches(ctx context.Context, investorID string) ([]core.InvestorPitchRow, error)
	QueryWorkflowProgress(ctx context.Context) ([]core.WorkflowRow, error)
	QueryInvestedIdeas(ctx context.Context, investorID string) ([]core.InvestorPitchRow, error)
	QueryIdeaDetails(ctx context.Context, investorID string) ([]core.IdeaDetailRow, error)
}

type Service struct {
	engage EngagementRepository
	log    core.Logger
	now    func() time.Time
}

func NewService(engage EngagementRepository, logger core.Logger) *Service {
	return &Service{
		engage: engage,
		log:    logger,
		now:    time.Now,
	}
}

func (svc *Service) soft(err error, metric string) bool {
	if err != nil {
		svc.log.Warn(fmt.Sprintf("investor: %s unavailable: %v", metric, err))
		return false
	}
	return true
}

// domain is the idea's first tag; untagged ideas group under "unknown".
func domain(tags string) string {
	if tags == "" {
		return "unknown"
	}
	return strings.SplitN(tags, ",", 2)[0]
}

// Overall builds the investor's deal-flow dashboard. An investor with no
// pitches is reported as not found.
func (svc *Service) Overall(ctx context.Context, investorID string) (Overall, error) {
	pitchRows, err := svc.engage.QueryInvestorPitches(ctx, investorID)
	if err != nil {
		return Overall{}, errors.Wrap(err, "querying investor pitches")
	}
	if len(pitchRows) == 0 {
		return Overall{}, ErrNotFound
	}
	now := svc.now().UTC()

	var summary core.PitchSummary
	upcoming := core.TimeRange{Start: now.Unix(), End: now.AddDate(0, 0, 7).Unix()}
	if v, err := svc.engage.GetPitchSummary(ctx, investorID, upcoming); svc.soft(err, "pitch summary") {
		summary = v
	}

	// Idea progress comes from the workflow engine; its store may be down
	// without sinking the whole report.
	progress := map[string]int{}
	if rows, err := svc.engage.QueryWorkflowProgress(ctx); svc.soft(err, "workflow progress") {
		for _, row := range rows {
			if row.InstanceID == "" {
				continue
			}
			if row.CompletionPercent > progress[row.InstanceID] {
				progress[row.InstanceID] = row.CompletionPercent
			}
		}
	}

	// domain counts cover every pitch, not just the ranked slice
	byDomain := make(map[string]int)
	for _, row := range pitchRows {
		byDomain[domain(row.Tags)]++
	}

	ranked := make([]RankedIdea, 0, len(pitchRows))
	for _, row := range pitchRows {
		ri := RankedIdea{
			IdeaID:          row.IdeaID,
			IdeaName:        row.IdeaName,
			IdeaStatus:      row.IdeaStatus,
			Domain:          domain(row.Tags),
			PitchStatus:     row.Status,
			Funding:         row.Funding,
			PitchScore:      core.PitchScore(row.Status, row.Funding),
			ProgressPercent: progress[row.IdeaID],
		}
		if !row.EventDate.IsZero() {
			ri.EventDate = core.FormatTimestamp(row.EventDate)
		}
		ranked = append(ranked, ri)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].PitchScore > ranked[j].PitchScore })
	if len(ranked) > rankingLimit {
		ranked = ranked[:rankingLimit]
	}

	var ready int
	invested := make([]RankedIdea, 0, len(ranked))
	fresh := make([]RankedIdea, 0, len(ranked))
	for _, ri := range ranked {
		if ri.PitchScore >= 80 {
			ready++
		}
		if ri.PitchStatus == core.PitchApprove && ri.Funding > 0 {
			invested = append(invested, ri)
		} else {
			fresh = append(fresh, ri)
		}
	}

	return Overall{
		InvestorID:        investorID,
		PitchTotal:        summary.Total,
		FundingTotal:      summary.FundingTotal,
		UpcomingPitches7d: summary.Upcoming,
		ReadyToInvest:     ready,
		InvestedIdeas:     invested,
		NewIdeas:          fresh,
		RankingTable:      ranked,
		IdeaByDomain:      byDomain,
	}, nil
}

// InvestedIdeas lists the investor's funded, approved pitches, most recent
// event first.
func (svc *Service) InvestedIdeas(ctx context.Context, investorID string) (InvestedIdeas, error) {
	rows, err := svc.engage.QueryInvestedIdeas(ctx, investorID)
	if err != nil {
		return InvestedIdeas{}, errors.Wrap(err, "querying invested ideas")
	}

	ideas := make([]InvestedIdea, 0, len(rows))
	for _, row := range rows {
		idea := InvestedIdea{
			IdeaID:      row.IdeaID,
			IdeaName:    row.IdeaName,
			IdeaStatus:  row.IdeaStatus,
			Domain:      domain(row.Tags),
			PitchStatus: row.Status,
			Funding:     row.Funding,
		}
		if !row.EventDate.IsZero() {
			idea.EventDate = core.FormatTimestamp(row.EventDate)
		}
		ideas = append(ideas, idea)
	}
	return InvestedIdeas{
		InvestorID:    investorID,
		TotalInvested: len(ideas),
		Ideas:         ideas,
	}, nil
}

// PerIdea lists the investor's pitched ideas with their student, mentor and
// match context, filtered by any combination of idea, mentor and student.
// No surviving row means not found.
func (svc *Service) PerIdea(ctx context.Context, investorID, ideaID, mentorID, studentID string) (PerIdea, error) {
	rows, err := svc.engage.QueryIdeaDetails(ctx, investorID)
	if err != nil {
		return PerIdea{}, errors.Wrap(err, "querying idea details")
	}

	items := make([]IdeaItem, 0, len(rows))
	for _, row := range rows {
		if ideaID != "" && row.IdeaID != ideaID {
			continue
		}
		if mentorID != "" && row.MentorID != mentorID {
			continue
		}
		if studentID != "" && row.StudentID != studentID {
			continue
		}
		item := IdeaItem{
			IdeaID:     row.IdeaID,
			IdeaName:   row.IdeaName,
			IdeaStatus: row.IdeaStatus,
			Student:    Person{UserID: row.StudentID, Name: row.StudentName},
			Mentor:     Person{UserID: row.MentorID, Name: row.MentorName},
			Pitch: PitchInfo{
				Status:  row.PitchStatus,
				Funding: row.Funding,
				Score:   core.PitchScore(row.PitchStatus, row.Funding),
			},
		}
		if !row.EventDate.IsZero() {
			item.Pitch.EventDate = core.FormatTimestamp(row.EventDate)
		}
		if !row.DueDate.IsZero() {
			item.Match.DueDate = core.FormatTimestamp(row.DueDate)
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return PerIdea{}, ErrNotFound
	}
	return PerIdea{Ideas: items}, nil
}
