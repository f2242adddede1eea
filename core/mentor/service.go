package mentor

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/identity"
)

// ErrNotFound is returned when the mentor has no matches or the requested
// idea is not among them.
var ErrNotFound = errors.New("not found")

// CourseRepository provides the learning-store reads for mentees, keyed by
// their internal user ids across all their courses.
type CourseRepository interface {
	QueryProgressByUser(ctx context.Context, userIDs []int) ([]core.UserProgressRow, error)
	QueryAvgGradeByUserAll(ctx context.Context, userIDs []int) ([]core.UserValue, error)
	QueryMissingByUserAll(ctx context.Context, userIDs []int) ([]core.UserCount, error)
	QueryUserNames(ctx context.Context, userIDs []int) ([]core.UserName, error)
}

// EngagementRepository provides the community-store match, idea and pitch
// reads.
type EngagementRepository interface {
	QueryMatchesByMentor(ctx context.Context, mentorID string) ([]core.MatchRow, error)
	QueryIdeas(ctx context.Context, ideaIDs []string) ([]core.IdeaRow, error)
	QueryPitches(ctx context.Context, ideaIDs []string) ([]core.PitchRow, error)
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
		svc.log.Warn(fmt.Sprintf("mentor: %s unavailable: %v", metric, err))
		return false
	}
	return true
}

// row is one mentor match joined across both stores. Learning metrics default
// to zero when the mentee has no linked learning account.
type row struct {
	match       core.MatchRow
	studentName string
	idea        core.IdeaRow
	progressPct float64
	avgGradePct float64
	missing     int
	pitchScore  *float64
	pitchStatus string
	pitchEvent  time.Time
}

// buildRows resolves the mentor's matches and merges per-mentee learning
// metrics and per-idea pitch data into one row per match.
func (svc *Service) buildRows(ctx context.Context, mentorID int) ([]row, error) {
	extID, err := svc.resolver.ResolveExternalID(ctx, mentorID)
	if err != nil {
		if errors.Cause(err) == identity.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "resolving mentor account")
	}

	matches, err := svc.engage.QueryMatchesByMentor(ctx, extID)
	if err != nil {
		return nil, errors.Wrap(err, "querying mentor matches")
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}

	studentIDs := make([]string, 0, len(matches))
	ideaIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.StudentID != "" {
			studentIDs = append(studentIDs, m.StudentID)
		}
		if m.IdeaID != "" {
			ideaIDs = append(ideaIDs, m.IdeaID)
		}
	}

	accounts, err := svc.resolver.ResolveMany(ctx, studentIDs)
	if !svc.soft(err, "mentee accounts") {
		accounts = map[string]core.Account{}
	}
	internalIDs := make([]int, 0, len(accounts))
	for _, acc := range accounts {
		if acc.InternalID > 0 {
			internalIDs = append(internalIDs, acc.InternalID)
		}
	}

	var (
		progressRows []core.UserProgressRow
		gradeRows    []core.UserValue
		missingRows  []core.UserCount
		nameRows     []core.UserName
		ideaRows     []core.IdeaRow
		pitchRows    []core.PitchRow
	)
	if v, err := svc.courses.QueryProgressByUser(ctx, internalIDs); svc.soft(err, "progress") {
		progressRows = v
	}
	if v, err := svc.courses.QueryAvgGradeByUserAll(ctx, internalIDs); svc.soft(err, "grades") {
		gradeRows = v
	}
	if v, err := svc.courses.QueryMissingByUserAll(ctx, internalIDs); svc.soft(err, "missing counts") {
		missingRows = v
	}
	if v, err := svc.courses.QueryUserNames(ctx, internalIDs); svc.soft(err, "mentee names") {
		nameRows = v
	}
	if v, err := svc.engage.QueryIdeas(ctx, ideaIDs); svc.soft(err, "ideas") {
		ideaRows = v
	}
	if v, err := svc.engage.QueryPitches(ctx, ideaIDs); svc.soft(err, "pitches") {
		pitchRows = v
	}

	progressPct := make(map[int]float64, len(progressRows))
	for _, r := range progressRows {
		progressPct[r.UserID] = core.SafeRate(float64(r.CompletedActivities), float64(r.TotalActivities), 100, 1)
	}
	grades := core.UserValueMap(gradeRows)
	missing := core.UserCountMap(missingRows)
	names := make(map[int]string, len(nameRows))
	for _, r := range nameRows {
		names[r.UserID] = r.Name
	}
	ideas := make(map[string]core.IdeaRow, len(ideaRows))
	for _, r := range ideaRows {
		ideas[r.IdeaID] = r
	}
	pitches := make(map[string]core.PitchRow, len(pitchRows))
	for _, r := range pitchRows {
		pitches[r.IdeaID] = r
	}

	rows := make([]row, 0, len(matches))
	for _, m := range matches {
		acc := accounts[m.StudentID]
		name := names[acc.InternalID]
		if name == "" {
			name = acc.Username
		}
		if name == "" {
			name = "Unknown"
		}

		r := row{
			match:       m,
			studentName: name,
			idea:        ideas[m.IdeaID],
			progressPct: core.RoundTo(progressPct[acc.InternalID], 1),
			avgGradePct: core.RoundTo(grades[acc.InternalID], 1),
			missing:     missing[acc.InternalID],
		}
		r.idea.IdeaID = m.IdeaID
		if p, ok := pitches[m.IdeaID]; ok {
			score := core.PitchScore(p.Status, p.Funding)
			r.pitchScore = &score
			r.pitchStatus = p.Status
			r.pitchEvent = p.EventDate
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// Overall builds the mentor's portfolio dashboard.
func (svc *Service) Overall(ctx context.Context, mentorID int) (Overall, error) {
	rows, err := svc.buildRows(ctx, mentorID)
	if err != nil {
		return Overall{}, err
	}
	now := svc.now().UTC()
	today := now.Truncate(24 * time.Hour)

	mentees := map[string]struct{}{}
	ideaSet := map[string]struct{}{}
	var progressSum, gradeSum float64
	for _, r := range rows {
		if r.match.StudentID != "" {
			mentees[r.match.StudentID] = struct{}{}
		}
		if r.match.IdeaID != "" {
			ideaSet[r.match.IdeaID] = struct{}{}
		}
		progressSum += r.progressPct
		gradeSum += r.avgGradePct
	}
	totalMentees := len(mentees)

	var overdue, upcoming int
	for _, r := range rows {
		if r.match.DueDate.IsZero() {
			continue
		}
		due := r.match.DueDate.UTC().Truncate(24 * time.Hour)
		days := int(due.Sub(today).Hours() / 24)
		if days < 0 {
			overdue++
		}
		if days >= 0 && days <= 7 {
			upcoming++
		}
	}

	cutoff := now.AddDate(0, 0, -7)
	var newIdeas []row
	for _, r := range rows {
		if !r.match.CreatedAt.IsZero() && !r.match.CreatedAt.Before(cutoff) {
			newIdeas = append(newIdeas, r)
		}
	}

	var dealReady []row
	for _, r := range rows {
		if r.pitchScore != nil && *r.pitchScore >= 80 {
			dealReady = append(dealReady, r)
		}
	}

	ideasTable := make([]IdeaSummary, 0, len(rows))
	mentoringTable := make([]MentoringItem, 0, len(rows))
	for _, r := range rows {
		ideasTable = append(ideasTable, IdeaSummary{
			IdeaID:      r.match.IdeaID,
			IdeaName:    r.idea.Name,
			IdeaStatus:  r.idea.Status,
			StudentID:   r.match.StudentID,
			StudentName: r.studentName,
			PitchStatus: r.pitchStatus,
		})
		mentoringTable = append(mentoringTable, MentoringItem{
			IdeaID:          r.match.IdeaID,
			IdeaName:        r.idea.Name,
			Process:         r.match.Status,
			ProgressPercent: r.progressPct,
		})
	}

	newIdeasTable := make([]IdeaSummary, 0, len(newIdeas))
	for _, r := range newIdeas {
		newIdeasTable = append(newIdeasTable, IdeaSummary{
			IdeaID:      r.match.IdeaID,
			IdeaName:    r.idea.Name,
			IdeaStatus:  r.idea.Status,
			StudentID:   r.match.StudentID,
			StudentName: r.studentName,
		})
	}

	readyTable := make([]ReadyIdea, 0, len(dealReady))
	for _, r := range dealReady {
		ri := ReadyIdea{
			IdeaID:      r.match.IdeaID,
			IdeaName:    r.idea.Name,
			IdeaStatus:  r.idea.Status,
			StudentID:   r.match.StudentID,
			StudentName: r.studentName,
			PitchScore:  *r.pitchScore,
			PitchStatus: r.pitchStatus,
		}
		if !r.pitchEvent.IsZero() {
			ri.PitchEventDate = core.FormatTimestamp(r.pitchEvent)
		}
		readyTable = append(readyTable, ri)
	}

	return Overall{
		MentorID:            mentorID,
		TotalIdeas:          len(ideaSet),
		TotalMentees:        totalMentees,
		AvgProgressPct:      core.SafeRate(progressSum, float64(totalMentees), 1, 1),
		AvgGradePct:         core.SafeRate(gradeSum, float64(totalMentees), 1, 1),
		OverdueActions:      overdue,
		UpcomingDeadlines7d: upcoming,
		DealReadyIdeas:      len(dealReady),
		NewIdeas:            len(newIdeas),
		IdeasTable:          ideasTable,
		NewIdeasTable:       newIdeasTable,
		ReadyToInvestTable:  readyTable,
		MyMentoringTable:    mentoringTable,
	}, nil
}

// PerIdea lists the mentor's matches, optionally filtered to one idea.
// An empty ideaID returns all of them.
func (svc *Service) PerIdea(ctx context.Context, mentorID int, ideaID string) (PerIdea, error) {
	rows, err := svc.buildRows(ctx, mentorID)
	if err != nil {
		return PerIdea{}, err
	}
	if ideaID != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if r.match.IdeaID == ideaID {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
		if len(rows) == 0 {
			return PerIdea{}, ErrNotFound
		}
	}

	items := make([]IdeaDetail, 0, len(rows))
	for _, r := range rows {
		items = append(items, IdeaDetail{
			StudentUserID:   r.match.StudentID,
			FullName:        r.studentName,
			IdeaID:          r.match.IdeaID,
			IdeaName:        r.idea.Name,
			ProgressPercent: r.progressPct,
			PitchScore:      r.pitchScore,
			PitchStatus:     r.pitchStatus,
			IdeaStatus:      r.idea.Status,
		})
	}
	return PerIdea{MentorID: mentorID, Ideas: items}, nil
}
