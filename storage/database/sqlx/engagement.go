package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/admin"
	"github.com/trezcool/kipimo/core/identity"
	"github.com/trezcool/kipimo/core/investor"
	"github.com/trezcool/kipimo/core/mentor"
	"github.com/trezcool/kipimo/core/student"
	"github.com/trezcool/kipimo/core/teacher"
)

// engagementRepository reads the community store. Its tables are unprefixed
// and keep their own string ids; the account table carries the optional link
// to a course-store user id.
type engagementRepository struct {
	db *sqlx.DB
}

// interface compliance checks
var (
	_ identity.Repository           = (*engagementRepository)(nil)
	_ student.EngagementRepository  = (*engagementRepository)(nil)
	_ teacher.EngagementRepository  = (*engagementRepository)(nil)
	_ mentor.EngagementRepository   = (*engagementRepository)(nil)
	_ investor.EngagementRepository = (*engagementRepository)(nil)
	_ admin.EngagementRepository    = (*engagementRepository)(nil)
)

func NewEngagementRepository(db *sqlx.DB) *engagementRepository {
	return &engagementRepository{db: db}
}

func (repo *engagementRepository) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, params, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding query params")
	}
	return repo.db.SelectContext(ctx, dest, repo.db.Rebind(q), params...)
}

type accountScan struct {
	ExternalID string         `db:"userId"`
	InternalID sql.NullInt64  `db:"moodleUserId"`
	Username   sql.NullString `db:"username"`
	Role       sql.NullString `db:"role"`
	CreatedAt  sql.NullTime   `db:"createdAt"`
}

func (s accountScan) account() core.Account {
	return core.Account{
		ExternalID: s.ExternalID,
		InternalID: int(s.InternalID.Int64),
		Username:   s.Username.String,
		Role:       s.Role.String,
		CreatedAt:  s.CreatedAt.Time,
	}
}

const accountCols = `a.userId, a.moodleUserId, a.username, r.name AS role, a.createdAt
	FROM account a
	LEFT JOIN role r ON r.id = a.roleId`

//
// identity
//

func (repo *engagementRepository) GetAccountByInternalID(ctx context.Context, internalID int) (core.Account, error) {
	var scan accountScan
	err := repo.db.GetContext(ctx, &scan, "SELECT "+accountCols+" WHERE a.moodleUserId = ?", internalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Account{}, identity.ErrNotFound
		}
		return core.Account{}, errors.Wrap(err, "querying account by internal id")
	}
	return scan.account(), nil
}

func (repo *engagementRepository) GetAccountByExternalID(ctx context.Context, externalID string) (core.Account, error) {
	var scan accountScan
	err := repo.db.GetContext(ctx, &scan, "SELECT "+accountCols+" WHERE a.userId = ?", externalID)
	if err != nil {
		if err == sql.ErrNoRows {
			return core.Account{}, identity.ErrNotFound
		}
		return core.Account{}, errors.Wrap(err, "querying account by external id")
	}
	return scan.account(), nil
}

func (repo *engagementRepository) QueryAccountsByExternalIDs(ctx context.Context, externalIDs []string) ([]core.Account, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	var scans []accountScan
	if err := repo.selectIn(ctx, &scans, "SELECT "+accountCols+" WHERE a.userId IN (?)", externalIDs); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accounts(scans), nil
}

//
// student reads
//

func (repo *engagementRepository) GetEngagementCounts(ctx context.Context, externalID string) (core.EngagementCounts, error) {
	var counts core.EngagementCounts
	for _, c := range []struct {
		table string
		dest  *int
	}{
		{"post", &counts.Posts},
		{"comment", &counts.Comments},
		{"reaction", &counts.Reactions},
	} {
		q := "SELECT COUNT(*) FROM " + c.table + " WHERE authorId = ?"
		if err := repo.db.GetContext(ctx, c.dest, q, externalID); err != nil {
			return core.EngagementCounts{}, errors.Wrapf(err, "counting %ss", c.table)
		}
	}
	return counts, nil
}

func (repo *engagementRepository) QueryPostsPerDay(ctx context.Context, externalID string, days int) ([]core.DayCount, error) {
	var scans []dayCountScan
	q := `
		SELECT DATE_FORMAT(createdAt, '%Y-%m-%d') AS d, COUNT(*) AS c
		FROM post
		WHERE authorId = ?
		  AND createdAt >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY)
		GROUP BY d`
	if err := repo.db.SelectContext(ctx, &scans, q, externalID, days-1); err != nil {
		return nil, errors.Wrap(err, "querying posts per day")
	}
	return dayCounts(scans), nil
}

//
// teacher reads
//

func (repo *engagementRepository) QueryForumsByOwner(ctx context.Context, externalID string) ([]core.ForumRow, error) {
	var scans []struct {
		ForumID       string         `db:"forum_id"`
		ForumName     sql.NullString `db:"forum_name"`
		Role          sql.NullString `db:"role"`
		TotalPosts    int            `db:"post_count"`
		TotalComments int            `db:"comment_count"`
		TotalMembers  int            `db:"member_count"`
		LastPostAt    sql.NullTime   `db:"last_post_at"`
		LastCommentAt sql.NullTime   `db:"last_comment_at"`
	}
	q := `
		SELECT
		  f.id AS forum_id,
		  f.name AS forum_name,
		  COALESCE(fu.role, 'author') AS role,
		  (SELECT COUNT(*) FROM post p WHERE p.forumId = f.id) AS post_count,
		  (SELECT COUNT(*) FROM comment c
		     JOIN post p2 ON p2.id = c.postId
		     WHERE p2.forumId = f.id) AS comment_count,
		  (SELECT COUNT(*) FROM forumuser fu2 WHERE fu2.forumId = f.id) AS member_count,
		  (SELECT MAX(p3.createdAt) FROM post p3 WHERE p3.forumId = f.id) AS last_post_at,
		  (SELECT MAX(c3.createdAt) FROM comment c3
		     JOIN post p4 ON p4.id = c3.postId
		     WHERE p4.forumId = f.id) AS last_comment_at
		FROM forum f
		LEFT JOIN forumuser fu ON fu.forumId = f.id AND fu.userId = ?
		WHERE f.authorId = ?
		   OR (fu.userId = ? AND fu.role IN ('author','admin','inspector'))
		ORDER BY f.createdAt DESC`
	if err := repo.db.SelectContext(ctx, &scans, q, externalID, externalID, externalID); err != nil {
		return nil, errors.Wrap(err, "querying forums")
	}
	rows := make([]core.ForumRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.ForumRow{
			ForumID:       s.ForumID,
			ForumName:     s.ForumName.String,
			Role:          s.Role.String,
			TotalPosts:    s.TotalPosts,
			TotalComments: s.TotalComments,
			TotalMembers:  s.TotalMembers,
			LastPostAt:    s.LastPostAt.Time,
			LastCommentAt: s.LastCommentAt.Time,
		})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryForumPostsPerDay(ctx context.Context, forumIDs []string, days int) ([]core.DayCount, error) {
	if len(forumIDs) == 0 {
		return nil, nil
	}
	var scans []dayCountScan
	q := `
		SELECT DATE_FORMAT(createdAt, '%Y-%m-%d') AS d, COUNT(*) AS c
		FROM post
		WHERE forumId IN (?)
		  AND createdAt >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY)
		GROUP BY d`
	if err := repo.selectIn(ctx, &scans, q, forumIDs, days-1); err != nil {
		return nil, errors.Wrap(err, "querying forum posts per day")
	}
	return dayCounts(scans), nil
}

func (repo *engagementRepository) QueryForumCommentsPerDay(ctx context.Context, forumIDs []string, days int) ([]core.DayCount, error) {
	if len(forumIDs) == 0 {
		return nil, nil
	}
	var scans []dayCountScan
	q := `
		SELECT DATE_FORMAT(c.createdAt, '%Y-%m-%d') AS d, COUNT(*) AS c
		FROM comment c
		JOIN post p ON p.id = c.postId
		WHERE p.forumId IN (?)
		  AND c.createdAt >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY)
		GROUP BY d`
	if err := repo.selectIn(ctx, &scans, q, forumIDs, days-1); err != nil {
		return nil, errors.Wrap(err, "querying forum comments per day")
	}
	return dayCounts(scans), nil
}

func (repo *engagementRepository) GetForumTotals(ctx context.Context, forumIDs []string) (posts, comments int, err error) {
	if len(forumIDs) == 0 {
		return 0, 0, nil
	}
	q, params, err := sqlx.In(`SELECT COUNT(*) FROM post WHERE forumId IN (?)`, forumIDs)
	if err != nil {
		return 0, 0, errors.Wrap(err, "expanding query params")
	}
	if err = repo.db.GetContext(ctx, &posts, repo.db.Rebind(q), params...); err != nil {
		return 0, 0, errors.Wrap(err, "counting forum posts")
	}
	q, params, err = sqlx.In(`
		SELECT COUNT(*)
		FROM comment c
		JOIN post p ON p.id = c.postId
		WHERE p.forumId IN (?)`, forumIDs)
	if err != nil {
		return 0, 0, errors.Wrap(err, "expanding query params")
	}
	if err = repo.db.GetContext(ctx, &comments, repo.db.Rebind(q), params...); err != nil {
		return 0, 0, errors.Wrap(err, "counting forum comments")
	}
	return posts, comments, nil
}

func (repo *engagementRepository) QueryTopForumContributors(ctx context.Context, forumIDs []string, limit int) ([]core.ContributorRow, error) {
	if len(forumIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		UserID   string `db:"authorId"`
		Posts    int    `db:"posts"`
		Comments int    `db:"comments"`
	}
	q := `
		SELECT authorId, SUM(posts) AS posts, SUM(comments) AS comments
		FROM (
		  SELECT authorId, COUNT(*) AS posts, 0 AS comments
		  FROM post
		  WHERE forumId IN (?)
		  GROUP BY authorId
		  UNION ALL
		  SELECT c.authorId, 0 AS posts, COUNT(*) AS comments
		  FROM comment c
		  JOIN post p ON p.id = c.postId
		  WHERE p.forumId IN (?)
		  GROUP BY c.authorId
		) t
		GROUP BY authorId
		ORDER BY (SUM(posts) + SUM(comments)) DESC
		LIMIT ?`
	if err := repo.selectIn(ctx, &scans, q, forumIDs, forumIDs, limit); err != nil {
		return nil, errors.Wrap(err, "querying forum contributors")
	}
	rows := make([]core.ContributorRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.ContributorRow(s))
	}
	return rows, nil
}

//
// mentor reads
//

func (repo *engagementRepository) QueryMatchesByMentor(ctx context.Context, mentorID string) ([]core.MatchRow, error) {
	var scans []struct {
		MatchID   string         `db:"id"`
		StudentID sql.NullString `db:"studentId"`
		MentorID  sql.NullString `db:"mentorId"`
		IdeaID    sql.NullString `db:"ideaId"`
		Status    sql.NullString `db:"status"`
		DueDate   sql.NullTime   `db:"dueDate"`
		CreatedAt sql.NullTime   `db:"createdAt"`
	}
	q := `
		SELECT id, studentId, mentorId, ideaId, status, dueDate, createdAt
		FROM studentmentormatch
		WHERE mentorId = ?`
	if err := repo.db.SelectContext(ctx, &scans, q, mentorID); err != nil {
		return nil, errors.Wrap(err, "querying mentor matches")
	}
	rows := make([]core.MatchRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.MatchRow{
			MatchID:   s.MatchID,
			StudentID: s.StudentID.String,
			MentorID:  s.MentorID.String,
			IdeaID:    s.IdeaID.String,
			Status:    s.Status.String,
			DueDate:   s.DueDate.Time,
			CreatedAt: s.CreatedAt.Time,
		})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryIdeas(ctx context.Context, ideaIDs []string) ([]core.IdeaRow, error) {
	if len(ideaIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		IdeaID string         `db:"id"`
		Name   sql.NullString `db:"name"`
		Status sql.NullString `db:"status"`
		Tags   sql.NullString `db:"tags"`
	}
	q := `SELECT id, name, status, tags FROM businessidea WHERE id IN (?)`
	if err := repo.selectIn(ctx, &scans, q, ideaIDs); err != nil {
		return nil, errors.Wrap(err, "querying ideas")
	}
	rows := make([]core.IdeaRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.IdeaRow{
			IdeaID: s.IdeaID,
			Name:   s.Name.String,
			Status: s.Status.String,
			Tags:   s.Tags.String,
		})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryPitches(ctx context.Context, ideaIDs []string) ([]core.PitchRow, error) {
	if len(ideaIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		IdeaID    string          `db:"ideaId"`
		Status    sql.NullString  `db:"status"`
		Funding   sql.NullFloat64 `db:"funding"`
		EventDate sql.NullTime    `db:"eventDate"`
	}
	q := `SELECT ideaId, status, funding, eventDate FROM pitchperfect WHERE ideaId IN (?)`
	if err := repo.selectIn(ctx, &scans, q, ideaIDs); err != nil {
		return nil, errors.Wrap(err, "querying pitches")
	}
	rows := make([]core.PitchRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.PitchRow{
			IdeaID:    s.IdeaID,
			Status:    s.Status.String,
			Funding:   s.Funding.Float64,
			EventDate: s.EventDate.Time,
		})
	}
	return rows, nil
}

//
// investor reads
//

type investorPitchScan struct {
	IdeaID     string          `db:"ideaId"`
	IdeaName   sql.NullString  `db:"ideaName"`
	IdeaStatus sql.NullString  `db:"ideaStatus"`
	Tags       sql.NullString  `db:"tags"`
	Status     sql.NullString  `db:"status"`
	Funding    sql.NullFloat64 `db:"funding"`
	EventDate  sql.NullTime    `db:"eventDate"`
}

func investorPitches(scans []investorPitchScan) []core.InvestorPitchRow {
	rows := make([]core.InvestorPitchRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.InvestorPitchRow{
			IdeaID:     s.IdeaID,
			IdeaName:   s.IdeaName.String,
			IdeaStatus: s.IdeaStatus.String,
			Tags:       s.Tags.String,
			Status:     s.Status.String,
			Funding:    s.Funding.Float64,
			EventDate:  s.EventDate.Time,
		})
	}
	return rows
}

func (repo *engagementRepository) GetPitchSummary(ctx context.Context, investorID string, upcoming core.TimeRange) (core.PitchSummary, error) {
	var summary core.PitchSummary
	q := `SELECT COUNT(*) FROM pitchperfect WHERE investorId = ?`
	if err := repo.db.GetContext(ctx, &summary.Total, q, investorID); err != nil {
		return core.PitchSummary{}, errors.Wrap(err, "counting pitches")
	}
	var funding sql.NullFloat64
	q = `SELECT SUM(funding) FROM pitchperfect WHERE investorId = ?`
	if err := repo.db.GetContext(ctx, &funding, q, investorID); err != nil {
		return core.PitchSummary{}, errors.Wrap(err, "summing funding")
	}
	summary.FundingTotal = funding.Float64
	q = `
		SELECT COUNT(*)
		FROM pitchperfect
		WHERE eventDate IS NOT NULL
		  AND investorId = ?
		  AND eventDate BETWEEN FROM_UNIXTIME(?) AND FROM_UNIXTIME(?)`
	if err := repo.db.GetContext(ctx, &summary.Upcoming, q, investorID, upcoming.Start, upcoming.End); err != nil {
		return core.PitchSummary{}, errors.Wrap(err, "counting upcoming pitches")
	}
	return summary, nil
}

func (repo *engagementRepository) QueryInvestorPitches(ctx context.Context, investorID string) ([]core.InvestorPitchRow, error) {
	var scans []investorPitchScan
	q := `
		SELECT p.ideaId, p.status, p.funding, p.eventDate,
		       b.name AS ideaName, b.status AS ideaStatus, b.tags
		FROM pitchperfect p
		LEFT JOIN businessidea b ON b.id = p.ideaId
		WHERE p.investorId = ?`
	if err := repo.db.SelectContext(ctx, &scans, q, investorID); err != nil {
		return nil, errors.Wrap(err, "querying investor pitches")
	}
	return investorPitches(scans), nil
}

func (repo *engagementRepository) QueryInvestedIdeas(ctx context.Context, investorID string) ([]core.InvestorPitchRow, error) {
	var scans []investorPitchScan
	q := `
		SELECT p.ideaId, p.status, p.funding, p.eventDate,
		       b.name AS ideaName, b.status AS ideaStatus, b.tags
		FROM pitchperfect p
		JOIN businessidea b ON b.id = p.ideaId
		WHERE p.investorId = ?
		  AND p.status = 'approve'
		  AND p.funding IS NOT NULL AND p.funding > 0
		ORDER BY p.eventDate DESC`
	if err := repo.db.SelectContext(ctx, &scans, q, investorID); err != nil {
		return nil, errors.Wrap(err, "querying invested ideas")
	}
	return investorPitches(scans), nil
}

func (repo *engagementRepository) QueryWorkflowProgress(ctx context.Context) ([]core.WorkflowRow, error) {
	var scans []struct {
		InstanceID        string        `db:"instanceId"`
		CompletionPercent sql.NullInt64 `db:"completionPercentage"`
	}
	q := `
		SELECT uwi.instanceId, uwi.completionPercentage
		FROM userworkflowinstance uwi
		WHERE uwi.instanceId IS NOT NULL`
	if err := repo.db.SelectContext(ctx, &scans, q); err != nil {
		return nil, errors.Wrap(err, "querying workflow progress")
	}
	rows := make([]core.WorkflowRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.WorkflowRow{
			InstanceID:        s.InstanceID,
			CompletionPercent: int(s.CompletionPercent.Int64),
		})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryIdeaDetails(ctx context.Context, investorID string) ([]core.IdeaDetailRow, error) {
	var scans []struct {
		IdeaID      string          `db:"ideaId"`
		IdeaName    sql.NullString  `db:"ideaName"`
		IdeaStatus  sql.NullString  `db:"ideaStatus"`
		StudentID   sql.NullString  `db:"studentId"`
		StudentName sql.NullString  `db:"studentName"`
		MentorID    sql.NullString  `db:"mentorId"`
		MentorName  sql.NullString  `db:"mentorName"`
		PitchStatus sql.NullString  `db:"pitchStatus"`
		Funding     sql.NullFloat64 `db:"funding"`
		EventDate   sql.NullTime    `db:"eventDate"`
		DueDate     sql.NullTime    `db:"dueDate"`
	}
	q := `
		SELECT
		  b.id AS ideaId,
		  b.name AS ideaName,
		  b.status AS ideaStatus,
		  b.authorId AS studentId,
		  p.status AS pitchStatus,
		  p.funding AS funding,
		  p.eventDate AS eventDate,
		  m.mentorId AS mentorId,
		  m.dueDate AS dueDate,
		  a.username AS studentName,
		  am.username AS mentorName
		FROM businessidea b
		LEFT JOIN pitchperfect p ON p.ideaId = b.id
		LEFT JOIN studentmentormatch m ON m.ideaId = b.id
		LEFT JOIN account a ON a.userId = b.authorId
		LEFT JOIN account am ON am.userId = m.mentorId
		WHERE p.investorId = ?`
	if err := repo.db.SelectContext(ctx, &scans, q, investorID); err != nil {
		return nil, errors.Wrap(err, "querying idea details")
	}
	rows := make([]core.IdeaDetailRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.IdeaDetailRow{
			IdeaID:      s.IdeaID,
			IdeaName:    s.IdeaName.String,
			IdeaStatus:  s.IdeaStatus.String,
			StudentID:   s.StudentID.String,
			StudentName: s.StudentName.String,
			MentorID:    s.MentorID.String,
			MentorName:  s.MentorName.String,
			PitchStatus: s.PitchStatus.String,
			Funding:     s.Funding.Float64,
			EventDate:   s.EventDate.Time,
			DueDate:     s.DueDate.Time,
		})
	}
	return rows, nil
}

//
// admin reads
//

func (repo *engagementRepository) GetTotalAccounts(ctx context.Context) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM account`); err != nil {
		return 0, errors.Wrap(err, "counting accounts")
	}
	return cnt, nil
}

func (repo *engagementRepository) QueryAccountsByRole(ctx context.Context) ([]core.RoleCount, error) {
	var scans []struct {
		Role  sql.NullString `db:"role"`
		Count int            `db:"count"`
	}
	q := `
		SELECT r.name AS role, COUNT(*) AS count
		FROM account a
		LEFT JOIN role r ON r.id = a.roleId
		GROUP BY r.name`
	if err := repo.db.SelectContext(ctx, &scans, q); err != nil {
		return nil, errors.Wrap(err, "querying accounts by role")
	}
	rows := make([]core.RoleCount, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.RoleCount{Role: s.Role.String, Count: s.Count})
	}
	return rows, nil
}

func (repo *engagementRepository) CountNewAccounts(ctx context.Context, since time.Time) (int, error) {
	var cnt int
	q := `SELECT COUNT(*) FROM account WHERE createdAt >= ?`
	if err := repo.db.GetContext(ctx, &cnt, q, since.UTC()); err != nil {
		return 0, errors.Wrap(err, "counting new accounts")
	}
	return cnt, nil
}

func (repo *engagementRepository) QueryLinkedAccounts(ctx context.Context) ([]core.Account, error) {
	var scans []accountScan
	if err := repo.db.SelectContext(ctx, &scans, "SELECT "+accountCols+" WHERE a.moodleUserId IS NOT NULL"); err != nil {
		return nil, errors.Wrap(err, "querying linked accounts")
	}
	return accounts(scans), nil
}

func (repo *engagementRepository) QueryAllAccounts(ctx context.Context) ([]core.Account, error) {
	var scans []accountScan
	if err := repo.db.SelectContext(ctx, &scans, "SELECT "+accountCols); err != nil {
		return nil, errors.Wrap(err, "querying accounts")
	}
	return accounts(scans), nil
}

func (repo *engagementRepository) QueryMentorLoad(ctx context.Context, limit int) ([]core.MentorLoadRow, error) {
	var scans []struct {
		MentorID   sql.NullString `db:"mentorId"`
		MatchCount int            `db:"c"`
	}
	q := `
		SELECT mentorId, COUNT(*) AS c
		FROM studentmentormatch
		GROUP BY mentorId
		ORDER BY c DESC
		LIMIT ?`
	if err := repo.db.SelectContext(ctx, &scans, q, limit); err != nil {
		return nil, errors.Wrap(err, "querying mentor load")
	}
	rows := make([]core.MentorLoadRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.MentorLoadRow{MentorID: s.MentorID.String, MatchCount: s.MatchCount})
	}
	return rows, nil
}

func (repo *engagementRepository) queryPerDay(ctx context.Context, table string, days int) ([]core.DayCount, error) {
	var scans []dayCountScan
	q := `
		SELECT DATE_FORMAT(createdAt, '%Y-%m-%d') AS d, COUNT(*) AS c
		FROM ` + table + `
		WHERE createdAt >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY)
		GROUP BY d`
	if err := repo.db.SelectContext(ctx, &scans, q, days-1); err != nil {
		return nil, errors.Wrapf(err, "querying %ss per day", table)
	}
	return dayCounts(scans), nil
}

func (repo *engagementRepository) QueryPostsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error) {
	return repo.queryPerDay(ctx, "post", days)
}

func (repo *engagementRepository) QueryCommentsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error) {
	return repo.queryPerDay(ctx, "comment", days)
}

func (repo *engagementRepository) QueryIdeasPerDay(ctx context.Context, days int) ([]core.DayCount, error) {
	return repo.queryPerDay(ctx, "businessidea", days)
}

func (repo *engagementRepository) GetTotalEngagement(ctx context.Context) (core.EngagementCounts, error) {
	var counts core.EngagementCounts
	for _, c := range []struct {
		table string
		dest  *int
	}{
		{"post", &counts.Posts},
		{"comment", &counts.Comments},
		{"reaction", &counts.Reactions},
	} {
		if err := repo.db.GetContext(ctx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
			return core.EngagementCounts{}, errors.Wrapf(err, "counting %ss", c.table)
		}
	}
	return counts, nil
}

func (repo *engagementRepository) queryCountsByAuthor(ctx context.Context, table string) ([]core.AuthorCount, error) {
	var scans []struct {
		UserID sql.NullString `db:"authorId"`
		Count  int            `db:"c"`
	}
	q := `SELECT authorId, COUNT(*) AS c FROM ` + table + ` GROUP BY authorId`
	if err := repo.db.SelectContext(ctx, &scans, q); err != nil {
		return nil, errors.Wrapf(err, "querying %s counts by author", table)
	}
	rows := make([]core.AuthorCount, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.AuthorCount{UserID: s.UserID.String, Count: s.Count})
	}
	return rows, nil
}

func (repo *engagementRepository) QueryPostCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error) {
	return repo.queryCountsByAuthor(ctx, "post")
}

func (repo *engagementRepository) QueryCommentCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error) {
	return repo.queryCountsByAuthor(ctx, "comment")
}

func (repo *engagementRepository) QueryReactionCountsByAuthor(ctx context.Context) ([]core.AuthorCount, error) {
	return repo.queryCountsByAuthor(ctx, "reaction")
}

func (repo *engagementRepository) GetIdeasTotal(ctx context.Context) (int, error) {
	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, `SELECT COUNT(*) FROM businessidea`); err != nil {
		return 0, errors.Wrap(err, "counting ideas")
	}
	return cnt, nil
}

func (repo *engagementRepository) QueryIdeasByStatus(ctx context.Context) ([]core.StatusCount, error) {
	var scans []struct {
		Status sql.NullString `db:"status"`
		Count  int            `db:"c"`
	}
	q := `SELECT status, COUNT(*) AS c FROM businessidea GROUP BY status`
	if err := repo.db.SelectContext(ctx, &scans, q); err != nil {
		return nil, errors.Wrap(err, "querying ideas by status")
	}
	rows := make([]core.StatusCount, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.StatusCount{Status: s.Status.String, Count: s.Count})
	}
	return rows, nil
}

func (repo *engagementRepository) CountPendingIdeas(ctx context.Context) (int, error) {
	var cnt int
	q := `SELECT COUNT(*) FROM businessidea WHERE status IN ('submitted','underreview')`
	if err := repo.db.GetContext(ctx, &cnt, q); err != nil {
		return 0, errors.Wrap(err, "counting pending ideas")
	}
	return cnt, nil
}

func (repo *engagementRepository) GetMatchStats(ctx context.Context, now time.Time) (core.MatchStats, error) {
	now = now.UTC()
	var stats core.MatchStats
	if err := repo.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM studentmentormatch`); err != nil {
		return core.MatchStats{}, errors.Wrap(err, "counting matches")
	}
	q := `
		SELECT COUNT(*)
		FROM studentmentormatch
		WHERE dueDate IS NOT NULL
		  AND dueDate < ?
		  AND status NOT IN ('approve','reject','completed')`
	if err := repo.db.GetContext(ctx, &stats.Overdue, q, now); err != nil {
		return core.MatchStats{}, errors.Wrap(err, "counting overdue matches")
	}
	q = `
		SELECT COUNT(*)
		FROM studentmentormatch
		WHERE dueDate IS NOT NULL
		  AND dueDate BETWEEN ? AND ?`
	if err := repo.db.GetContext(ctx, &stats.Upcoming, q, now, now.AddDate(0, 0, 7)); err != nil {
		return core.MatchStats{}, errors.Wrap(err, "counting upcoming matches")
	}
	return stats, nil
}

func (repo *engagementRepository) GetPitchTotals(ctx context.Context) (total int, funding float64, err error) {
	if err = repo.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM pitchperfect`); err != nil {
		return 0, 0, errors.Wrap(err, "counting pitches")
	}
	var sum sql.NullFloat64
	if err = repo.db.GetContext(ctx, &sum, `SELECT SUM(funding) FROM pitchperfect`); err != nil {
		return 0, 0, errors.Wrap(err, "summing funding")
	}
	return total, sum.Float64, nil
}

func (repo *engagementRepository) QueryPitchPerDay(ctx context.Context, days int) ([]core.PitchDayRow, error) {
	var scans []struct {
		Day     string          `db:"d"`
		Count   int             `db:"c"`
		Funding sql.NullFloat64 `db:"f"`
	}
	q := `
		SELECT DATE_FORMAT(createdAt, '%Y-%m-%d') AS d,
		       COUNT(*) AS c,
		       SUM(funding) AS f
		FROM pitchperfect
		WHERE createdAt >= DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY)
		GROUP BY d`
	if err := repo.db.SelectContext(ctx, &scans, q, days-1); err != nil {
		return nil, errors.Wrap(err, "querying pitches per day")
	}
	rows := make([]core.PitchDayRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.PitchDayRow{Day: s.Day, Count: s.Count, Funding: s.Funding.Float64})
	}
	return rows, nil
}

func accounts(scans []accountScan) []core.Account {
	rows := make([]core.Account, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, s.account())
	}
	return rows
}
