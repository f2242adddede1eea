package core

import "time"

// Typed rows returned by the two store collaborators. Every aggregator input
// is one of these; the engine never sees raw column maps, so a query/consumer
// key mismatch is a compile error rather than a silently-zero metric.
//
// Timestamps from the course store's activity log are UNIX seconds (0 means
// "never"); datetime columns from the engagement store are time.Time (zero
// value means NULL).

type (
	// Account is one engagement-system account, optionally linked to a
	// course-system user. InternalID 0 means the account has no course-system
	// counterpart.
	Account struct {
		ExternalID string
		InternalID int
		Username   string
		Role       string
		CreatedAt  time.Time
	}

	CourseRef struct {
		CourseID   int
		CourseName string
	}

	CourseProgressRow struct {
		CourseID            int
		CourseName          string
		Completed           bool
		TotalActivities     int
		CompletedActivities int
	}

	// ContinueRow is an unfinished enrollment with its latest activity.
	ContinueRow struct {
		CourseID            int
		CourseName          string
		TotalActivities     int
		CompletedActivities int
		LastTS              int64
	}

	// CourseTotals is an enrolled/completed course count pair.
	CourseTotals struct {
		Total     int
		Completed int
	}

	AssignmentRow struct {
		CourseID       int
		CourseName     string
		AssignmentID   int
		AssignmentName string
		DueTS          int64
	}

	// AssignmentUserRow is an assignment row attributed to one student
	// (missing or ungraded submission detail).
	AssignmentUserRow struct {
		UserID         int
		FirstName      string
		LastName       string
		AssignmentID   int
		AssignmentName string
		DueTS          int64
	}

	CourseValue struct {
		CourseID int
		Value    float64
	}

	CourseCount struct {
		CourseID int
		Count    int
	}

	CourseTimestamp struct {
		CourseID int
		LastTS   int64
	}

	CourseCompletionRow struct {
		CourseID            int
		TotalActivities     int
		CompletedActivities int
	}

	UserValue struct {
		UserID int
		Value  float64
	}

	UserCount struct {
		UserID int
		Count  int
	}

	UserTimestamp struct {
		UserID int
		LastTS int64
	}

	UserProgressRow struct {
		UserID              int
		TotalActivities     int
		CompletedActivities int
	}

	UserName struct {
		UserID int
		Name   string
	}

	ModuleRow struct {
		ModuleID           int
		CompletionRequired bool
		CompletionState    int
	}

	CourseRating struct {
		AvgRating  float64 `json:"avg_rating"`
		NumRatings int     `json:"num_ratings"`
	}

	// TimeCount is one interval bucket of a sub-daily series.
	TimeCount struct {
		TS    int64
		Count int
	}

	DayValue struct {
		Day   string
		Value float64
	}

	EngagementCounts struct {
		Posts     int `json:"posts"`
		Comments  int `json:"comments"`
		Reactions int `json:"reactions"`
	}

	ForumRow struct {
		ForumID       string
		ForumName     string
		Role          string
		TotalPosts    int
		TotalComments int
		TotalMembers  int
		LastPostAt    time.Time
		LastCommentAt time.Time
	}

	ContributorRow struct {
		UserID   string
		Posts    int
		Comments int
	}

	MatchRow struct {
		MatchID   string
		StudentID string
		MentorID  string
		IdeaID    string
		Status    string
		DueDate   time.Time
		CreatedAt time.Time
	}

	IdeaRow struct {
		IdeaID string
		Name   string
		Status string
		Tags   string
	}

	PitchRow struct {
		IdeaID    string
		Status    string
		Funding   float64
		EventDate time.Time
	}

	// InvestorPitchRow is a pitch joined with its idea.
	InvestorPitchRow struct {
		IdeaID     string
		IdeaName   string
		IdeaStatus string
		Tags       string
		Status     string
		Funding    float64
		EventDate  time.Time
	}

	// PitchSummary are an investor's headline pitch numbers.
	PitchSummary struct {
		Total        int
		FundingTotal float64
		Upcoming     int
	}

	// IdeaDetailRow is an idea joined with its pitch, mentor match and the
	// involved accounts.
	IdeaDetailRow struct {
		IdeaID      string
		IdeaName    string
		IdeaStatus  string
		StudentID   string
		StudentName string
		MentorID    string
		MentorName  string
		PitchStatus string
		Funding     float64
		EventDate   time.Time
		DueDate     time.Time
	}

	WorkflowRow struct {
		InstanceID        string
		CompletionPercent int
	}

	RoleCount struct {
		Role  string
		Count int
	}

	StatusCount struct {
		Status string
		Count  int
	}

	AuthorCount struct {
		UserID string
		Count  int
	}

	MentorLoadRow struct {
		MentorID   string `json:"mentorId"`
		MatchCount int    `json:"matchCount"`
	}

	// PitchDayRow is one day of pitch volume and funding.
	PitchDayRow struct {
		Day     string
		Count   int
		Funding float64
	}

	// MatchStats are platform-wide mentor-match counts.
	MatchStats struct {
		Total    int `json:"total"`
		Overdue  int `json:"overdue"`
		Upcoming int `json:"upcoming7d"`
	}
)

// UserValueMap folds value rows into a per-user map for merge-by-identity.
func UserValueMap(rows []UserValue) map[int]float64 {
	m := make(map[int]float64, len(rows))
	for _, r := range rows {
		m[r.UserID] = r.Value
	}
	return m
}

func UserCountMap(rows []UserCount) map[int]int {
	m := make(map[int]int, len(rows))
	for _, r := range rows {
		m[r.UserID] = r.Count
	}
	return m
}

func UserTimestampMap(rows []UserTimestamp) map[int]int64 {
	m := make(map[int]int64, len(rows))
	for _, r := range rows {
		if r.LastTS > 0 {
			m[r.UserID] = r.LastTS
		}
	}
	return m
}

func CourseCountMap(rows []CourseCount) map[int]int {
	m := make(map[int]int, len(rows))
	for _, r := range rows {
		m[r.CourseID] = r.Count
	}
	return m
}

func DayCountMap(rows []DayCount) map[string]int {
	m := make(map[string]int, len(rows))
	for _, r := range rows {
		m[r.Day] = r.Count
	}
	return m
}
