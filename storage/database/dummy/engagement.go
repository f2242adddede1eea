package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/kipimo/core"
)

// engagementRepository must stay import-free of the role packages so their
// in-package tests can seed it; compliance checks live in compliance_test.go.
type engagementRepository struct {
	db *DB
}

func NewEngagementRepository(db *DB) *engagementRepository {
	return &engagementRepository{db: db}
}

func stringSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// dayCutoff is 00:00:00 UTC, days-1 days ago.
func (repo *engagementRepository) dayCutoff(days int) time.Time {
	now := repo.db.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(days - 1))
}

//
// identity
//

func (repo *engagementRepository) GetAccountByInternalID(_ context.Context, internalID int) (core.Account, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	for _, acc := range repo.db.engage.accounts {
		if acc.InternalID == internalID && internalID != 0 {
			return acc, nil
		}
	}
	return core.Account{}, core.ErrAccountNotFound
}

func (repo *engagementRepository) GetAccountByExternalID(_ context.Context, externalID string) (core.Account, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	for _, acc := range repo.db.engage.accounts {
		if acc.ExternalID == externalID {
			return acc, nil
		}
	}
	return core.Account{}, core.ErrAccountNotFound
}

func (repo *engagementRepository) QueryAccountsByExternalIDs(_ context.Context, externalIDs []string) ([]core.Account, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	wanted := stringSet(externalIDs)
	var accounts []core.Account
	for _, acc := range repo.db.engage.accounts {
		if wanted[acc.ExternalID] {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

//
// student reads
//

func (repo *engagementRepository) GetEngagementCounts(_ context.Context, externalID string) (core.EngagementCounts, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var counts core.EngagementCounts
	for _, p := range repo.db.engage.posts {
		if p.AuthorID == externalID {
			counts.Posts++
		}
	}
	for _, c := range repo.db.engage.comments {
		if c.AuthorID == externalID {
			counts.Comments++
		}
	}
	for _, r := range repo.db.engage.reactions {
		if r.AuthorID == externalID {
			counts.Reactions++
		}
	}
	return counts, nil
}

func (repo *engagementRepository) QueryPostsPerDay(_ context.Context, externalID string, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, p := range repo.db.engage.posts {
		if p.AuthorID == externalID && !p.CreatedAt.Before(cutoff) {
			byDay[p.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

//
// teacher reads
//

func (repo *engagementRepository) QueryForumsByOwner(_ context.Context, externalID string) ([]core.ForumRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	memberRole := make(map[string]string)
	for _, fu := range repo.db.engage.forumUser {
		if fu.UserID == externalID {
			memberRole[fu.ForumID] = fu.Role
		}
	}

	var rows []core.ForumRow
	for _, f := range repo.db.engage.forums {
		role, member := memberRole[f.ID]
		owns := f.AuthorID == externalID
		manages := member && (role == "author" || role == "admin" || role == "inspector")
		if !owns && !manages {
			continue
		}
		if role == "" {
			role = "author"
		}
		row := core.ForumRow{ForumID: f.ID, ForumName: f.Name, Role: role}
		postForum := make(map[string]string)
		for _, p := range repo.db.engage.posts {
			if p.ForumID == f.ID {
				row.TotalPosts++
				postForum[p.ID] = f.ID
				if p.CreatedAt.After(row.LastPostAt) {
					row.LastPostAt = p.CreatedAt
				}
			}
		}
		for _, c := range repo.db.engage.comments {
			if postForum[c.PostID] == f.ID {
				row.TotalComments++
				if c.CreatedAt.After(row.LastCommentAt) {
					row.LastCommentAt = c.CreatedAt
				}
			}
		}
		for _, fu := range repo.db.engage.forumUser {
			if fu.ForumID == f.ID {
				row.TotalMembers++
			}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].ForumID < rows[j].ForumID })
	return rows, nil
}

// forumPosts collects the ids of posts belonging to the given forums.
func (repo *engagementRepository) forumPosts(forums map[string]bool) map[string]bool {
	posts := make(map[string]bool)
	for _, p := range repo.db.engage.posts {
		if forums[p.ForumID] {
			posts[p.ID] = true
		}
	}
	return posts
}

func (repo *engagementRepository) QueryForumPostsPerDay(_ context.Context, forumIDs []string, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	forums := stringSet(forumIDs)
	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, p := range repo.db.engage.posts {
		if forums[p.ForumID] && !p.CreatedAt.Before(cutoff) {
			byDay[p.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *engagementRepository) QueryForumCommentsPerDay(_ context.Context, forumIDs []string, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	posts := repo.forumPosts(stringSet(forumIDs))
	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, c := range repo.db.engage.comments {
		if posts[c.PostID] && !c.CreatedAt.Before(cutoff) {
			byDay[c.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *engagementRepository) GetForumTotals(_ context.Context, forumIDs []string) (posts, comments int, err error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	inForums := repo.forumPosts(stringSet(forumIDs))
	posts = len(inForums)
	for _, c := range repo.db.engage.comments {
		if inForums[c.PostID] {
			comments++
		}
	}
	return posts, comments, nil
}

func (repo *engagementRepository) QueryTopForumContributors(_ context.Context, forumIDs []string, limit int) ([]core.ContributorRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	forums := stringSet(forumIDs)
	inForums := repo.forumPosts(forums)
	byAuthor := make(map[string]*core.ContributorRow)
	var order []string
	contributor := func(id string) *core.ContributorRow {
		if row, ok := byAuthor[id]; ok {
			return row
		}
		row := &core.ContributorRow{UserID: id}
		byAuthor[id] = row
		order = append(order, id)
		return row
	}
	for _, p := range repo.db.engage.posts {
		if forums[p.ForumID] {
			contributor(p.AuthorID).Posts++
		}
	}
	for _, c := range repo.db.engage.comments {
		if inForums[c.PostID] {
			contributor(c.AuthorID).Comments++
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := byAuthor[order[i]], byAuthor[order[j]]
		return a.Posts+a.Comments > b.Posts+b.Comments
	})
	if len(order) > limit {
		order = order[:limit]
	}
	rows := make([]core.ContributorRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byAuthor[id])
	}
	return rows, nil
}

//
// mentor reads
//

func (repo *engagementRepository) QueryMatchesByMentor(_ context.Context, mentorID string) ([]core.MatchRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var rows []core.MatchRow
	for _, m := range repo.db.engage.matches {
		if m.MentorID == mentorID {
			rows = append(rows, m)
		}
	}
	return rows, nil
}

func (repo *engagementRepository) QueryIdeas(_ context.Context, ideaIDs []string) ([]core.IdeaRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	wanted := stringSet(ideaIDs)
	var rows []core.IdeaRow
	for _, idea := range repo.db.engage.ideas {
		if wanted[idea.IdeaID] {
			rows = append(rows, idea.IdeaRow)
		}
	}
	return rows, nil
}

func (repo *engagementRepository) QueryPitches(_ context.Context, ideaIDs []string) ([]core.PitchRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	wanted := stringSet(ideaIDs)
	var rows []core.PitchRow
	for _, p := range repo.db.engage.pitches {
		if wanted[p.IdeaID] {
			rows = append(rows, p.PitchRow)
		}
	}
	return rows, nil
}

//
// investor reads
//

func (repo *engagementRepository) idea(ideaID string) (IdeaRecord, bool) {
	for _, idea := range repo.db.engage.ideas {
		if idea.IdeaID == ideaID {
			return idea, true
		}
	}
	return IdeaRecord{}, false
}

func (repo *engagementRepository) GetPitchSummary(_ context.Context, investorID string, upcoming core.TimeRange) (core.PitchSummary, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var summary core.PitchSummary
	for _, p := range repo.db.engage.pitches {
		if p.InvestorID != investorID {
			continue
		}
		summary.Total++
		summary.FundingTotal += p.Funding
		if !p.EventDate.IsZero() && upcoming.Contains(p.EventDate.Unix()) {
			summary.Upcoming++
		}
	}
	return summary, nil
}

func (repo *engagementRepository) investorPitchRow(p PitchRecord) core.InvestorPitchRow {
	row := core.InvestorPitchRow{
		IdeaID:    p.IdeaID,
		Status:    p.Status,
		Funding:   p.Funding,
		EventDate: p.EventDate,
	}
	if idea, ok := repo.idea(p.IdeaID); ok {
		row.IdeaName = idea.Name
		row.IdeaStatus = idea.Status
		row.Tags = idea.Tags
	}
	return row
}

func (repo *engagementRepository) QueryInvestorPitches(_ context.Context, investorID string) ([]core.InvestorPitchRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var rows []core.InvestorPitchRow
	for _, p := range repo.db.engage.pitches {
		if p.InvestorID == investorID {
			rows = append(rows, repo.investorPitchRow(p))
		}
	}
	return rows, nil
}

func (repo *engagementRepository) QueryInvestedIdeas(_ context.Context, investorID string) ([]core.InvestorPitchRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var rows []core.InvestorPitchRow
	for _, p := range repo.db.engage.pitches {
		if p.InvestorID == investorID && p.Status == core.PitchApprove && p.Funding > 0 {
			if _, ok := repo.idea(p.IdeaID); ok {
				rows = append(rows, repo.investorPitchRow(p))
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].EventDate.After(rows[j].EventDate) })
	return rows, nil
}

func (repo *engagementRepository) QueryWorkflowProgress(_ context.Context) ([]core.WorkflowRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	return append([]core.WorkflowRow(nil), repo.db.engage.workflows...), nil
}

func (repo *engagementRepository) QueryIdeaDetails(_ context.Context, investorID string) ([]core.IdeaDetailRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	username := make(map[string]string, len(repo.db.engage.accounts))
	for _, acc := range repo.db.engage.accounts {
		username[acc.ExternalID] = acc.Username
	}
	matchByIdea := make(map[string]core.MatchRow)
	for _, m := range repo.db.engage.matches {
		matchByIdea[m.IdeaID] = m
	}

	var rows []core.IdeaDetailRow
	for _, p := range repo.db.engage.pitches {
		if p.InvestorID != investorID {
			continue
		}
		idea, ok := repo.idea(p.IdeaID)
		if !ok {
			continue
		}
		row := core.IdeaDetailRow{
			IdeaID:      idea.IdeaID,
			IdeaName:    idea.Name,
			IdeaStatus:  idea.Status,
			StudentID:   idea.AuthorID,
			StudentName: username[idea.AuthorID],
			PitchStatus: p.Status,
			Funding:     p.Funding,
			EventDate:   p.EventDate,
		}
		if m, ok := matchByIdea[idea.IdeaID]; ok {
			row.MentorID = m.MentorID
			row.MentorName = username[m.MentorID]
			row.DueDate = m.DueDate
		}
		rows = append(rows, row)
	}
	return rows, nil
}

//
// admin reads
//

func (repo *engagementRepository) GetTotalAccounts(_ context.Context) (int, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	return len(repo.db.engage.accounts), nil
}

func (repo *engagementRepository) QueryAccountsByRole(_ context.Context) ([]core.RoleCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, acc := range repo.db.engage.accounts {
		if _, ok := counts[acc.Role]; !ok {
			order = append(order, acc.Role)
		}
		counts[acc.Role]++
	}
	sort.Strings(order)
	rows := make([]core.RoleCount, 0, len(order))
	for _, role := range order {
		rows = append(rows, core.RoleCount{Role: role, Count: counts[role]})
	}
	return rows, nil
}

func (repo *engagementRepository) CountNewAccounts(_ context.Context, since time.Time) (int, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var cnt int
	for _, acc := range repo.db.engage.accounts {
		if !acc.CreatedAt.Before(since) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *engagementRepository) QueryLinkedAccounts(_ context.Context) ([]core.Account, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var accounts []core.Account
	for _, acc := range repo.db.engage.accounts {
		if acc.InternalID != 0 {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (repo *engagementRepository) QueryAllAccounts(_ context.Context) ([]core.Account, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	return append([]core.Account(nil), repo.db.engage.accounts...), nil
}

func (repo *engagementRepository) QueryMentorLoad(_ context.Context, limit int) ([]core.MentorLoadRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, m := range repo.db.engage.matches {
		if _, ok := counts[m.MentorID]; !ok {
			order = append(order, m.MentorID)
		}
		counts[m.MentorID]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	rows := make([]core.MentorLoadRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, core.MentorLoadRow{MentorID: id, MatchCount: counts[id]})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryPostsPerDayAll(_ context.Context, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, p := range repo.db.engage.posts {
		if !p.CreatedAt.Before(cutoff) {
			byDay[p.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *engagementRepository) QueryCommentsPerDayAll(_ context.Context, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, c := range repo.db.engage.comments {
		if !c.CreatedAt.Before(cutoff) {
			byDay[c.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *engagementRepository) GetTotalEngagement(_ context.Context) (core.EngagementCounts, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	return core.EngagementCounts{
		Posts:     len(repo.db.engage.posts),
		Comments:  len(repo.db.engage.comments),
		Reactions: len(repo.db.engage.reactions),
	}, nil
}

func authorCounts(counts map[string]int, order []string) []core.AuthorCount {
	rows := make([]core.AuthorCount, 0, len(order))
	for _, id := range order {
		rows = append(rows, core.AuthorCount{UserID: id, Count: counts[id]})
	}
	return rows
}

func (repo *engagementRepository) QueryPostCountsByAuthor(_ context.Context) ([]core.AuthorCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, p := range repo.db.engage.posts {
		if _, ok := counts[p.AuthorID]; !ok {
			order = append(order, p.AuthorID)
		}
		counts[p.AuthorID]++
	}
	return authorCounts(counts, order), nil
}

func (repo *engagementRepository) QueryCommentCountsByAuthor(_ context.Context) ([]core.AuthorCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, c := range repo.db.engage.comments {
		if _, ok := counts[c.AuthorID]; !ok {
			order = append(order, c.AuthorID)
		}
		counts[c.AuthorID]++
	}
	return authorCounts(counts, order), nil
}

func (repo *engagementRepository) QueryReactionCountsByAuthor(_ context.Context) ([]core.AuthorCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, r := range repo.db.engage.reactions {
		if _, ok := counts[r.AuthorID]; !ok {
			order = append(order, r.AuthorID)
		}
		counts[r.AuthorID]++
	}
	return authorCounts(counts, order), nil
}

func (repo *engagementRepository) GetIdeasTotal(_ context.Context) (int, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	return len(repo.db.engage.ideas), nil
}

func (repo *engagementRepository) QueryIdeasByStatus(_ context.Context) ([]core.StatusCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, idea := range repo.db.engage.ideas {
		if _, ok := counts[idea.Status]; !ok {
			order = append(order, idea.Status)
		}
		counts[idea.Status]++
	}
	sort.Strings(order)
	rows := make([]core.StatusCount, 0, len(order))
	for _, status := range order {
		rows = append(rows, core.StatusCount{Status: status, Count: counts[status]})
	}
	return rows, nil
}

func (repo *engagementRepository) CountPendingIdeas(_ context.Context) (int, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	var cnt int
	for _, idea := range repo.db.engage.ideas {
		if idea.Status == "submitted" || idea.Status == "underreview" {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *engagementRepository) GetMatchStats(_ context.Context, now time.Time) (core.MatchStats, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	now = now.UTC()
	horizon := now.AddDate(0, 0, 7)
	var stats core.MatchStats
	for _, m := range repo.db.engage.matches {
		stats.Total++
		if m.DueDate.IsZero() {
			continue
		}
		switch {
		case m.DueDate.Before(now):
			if m.Status != "approve" && m.Status != "reject" && m.Status != "completed" {
				stats.Overdue++
			}
		case !m.DueDate.After(horizon):
			stats.Upcoming++
		}
	}
	return stats, nil
}

func (repo *engagementRepository) GetPitchTotals(_ context.Context) (total int, funding float64, err error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	for _, p := range repo.db.engage.pitches {
		total++
		funding += p.Funding
	}
	return total, funding, nil
}

func (repo *engagementRepository) QueryIdeasPerDay(_ context.Context, days int) ([]core.DayCount, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	cutoff := repo.dayCutoff(days)
	byDay := make(map[string]int)
	for _, idea := range repo.db.engage.ideas {
		if !idea.CreatedAt.Before(cutoff) {
			byDay[idea.CreatedAt.UTC().Format(core.DayKeyLayout)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *engagementRepository) QueryPitchPerDay(_ context.Context, days int) ([]core.PitchDayRow, error) {
	repo.db.engage.RLock()
	defer repo.db.engage.RUnlock()

	cutoff := repo.dayCutoff(days)
	counts := make(map[string]int)
	funding := make(map[string]float64)
	for _, p := range repo.db.engage.pitches {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		day := p.CreatedAt.UTC().Format(core.DayKeyLayout)
		counts[day]++
		funding[day] += p.Funding
	}
	keys := make([]string, 0, len(counts))
	for d := range counts {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	rows := make([]core.PitchDayRow, 0, len(keys))
	for _, d := range keys {
		rows = append(rows, core.PitchDayRow{Day: d, Count: counts[d], Funding: funding[d]})
	}
	return rows, nil
}
