package admin

import "github.com/trezcool/kipimo/core"

type (
	UsersTrendPoint struct {
		Date        string `json:"date"`
		ActiveUsers int    `json:"activeUsers"`
	}

	UserStats struct {
		Total       int               `json:"total"`
		ByRole      map[string]int    `json:"byRole"`
		NewWeek     int               `json:"newWeek"`
		NewMonth    int               `json:"newMonth"`
		Active7d    int               `json:"active7d"`
		Inactive7d  int               `json:"inactive7d"`
		Active30d   int               `json:"active30d"`
		Inactive30d int               `json:"inactive30d"`
		Trend7d     []UsersTrendPoint `json:"trend7d"`
	}

	LogPoint struct {
		Date string `json:"date"`
		Logs int    `json:"logs"`
	}

	// EventMixPoint is one day's event volume split by kind across both
	// stores.
	EventMixPoint struct {
		Date       string `json:"date"`
		Activity   int    `json:"activity"`
		Completion int    `json:"completion"`
		Posts      int    `json:"posts"`
		Comments   int    `json:"comments"`
	}

	LogStats struct {
		Volume7d   []LogPoint      `json:"volume7d"`
		EventMix7d []EventMixPoint `json:"eventMix7d"`
	}

	// ConcurrentPoint is one five-minute bucket of distinct active users.
	ConcurrentPoint struct {
		Date  string `json:"date"`
		Users int    `json:"users"`
	}

	Alerts struct {
		AssignmentOverdue  int `json:"assignmentOverdue"`
		IdeaPendingReview  int `json:"ideaPendingReview"`
		MentorMatchOverdue int `json:"mentorMatchOverdue"`
	}

	Overall struct {
		Users           UserStats            `json:"users"`
		Logs            LogStats             `json:"logs"`
		ConcurrentUsers []ConcurrentPoint    `json:"concurrentUsers"`
		MentorLoadTop   []core.MentorLoadRow `json:"mentorLoadTop"`
		Alerts          Alerts               `json:"alerts"`
	}

	TopCourse struct {
		CourseID   int    `json:"courseId"`
		CourseName string `json:"courseName"`
		EnrolCount int    `json:"enrolCount"`
	}

	MissingCourse struct {
		CourseID     int     `json:"courseId"`
		CourseName   string  `json:"courseName"`
		MissingCount int     `json:"missingCount"`
		EnrolCount   int     `json:"enrolCount"`
		MissingRate  float64 `json:"missingRate"`
	}

	CompletionPoint struct {
		Date          string  `json:"date"`
		CompletionPct float64 `json:"completionPct"`
	}

	Learning struct {
		CoursesTotal       int               `json:"coursesTotal"`
		CompletionRate     float64           `json:"completionRate"`
		AvgProgressPct     float64           `json:"avgProgressPct"`
		TopCoursesByEnroll []TopCourse       `json:"topCoursesByEnroll"`
		TopMissingCourses  []MissingCourse   `json:"topMissingCourses"`
		CompletionTrend30d []CompletionPoint `json:"completionTrend30d"`
	}

	TopUser struct {
		UserID          string `json:"userId"`
		Username        string `json:"username"`
		LinkedUserID    int    `json:"linkedUserId,omitempty"`
		EngagementScore int    `json:"engagementScore"`
	}

	EngagementPoint struct {
		Date     string `json:"date"`
		Posts    int    `json:"posts"`
		Comments int    `json:"comments"`
	}

	Engagement struct {
		Totals      core.EngagementCounts `json:"totals"`
		TopUsers    []TopUser             `json:"topUsers"`
		Timeline30d []EngagementPoint     `json:"timeline30d"`
	}

	IdeaTrendPoint struct {
		Date  string `json:"date"`
		Ideas int    `json:"ideas"`
	}

	PitchTrendPoint struct {
		Date         string  `json:"date"`
		PitchCount   int     `json:"pitchCount"`
		FundingTotal float64 `json:"fundingTotal"`
	}

	PitchTotals struct {
		Total        int     `json:"total"`
		FundingTotal float64 `json:"fundingTotal"`
	}

	Ideas struct {
		IdeasTotal    int               `json:"ideasTotal"`
		IdeasByStatus map[string]int    `json:"ideasByStatus"`
		MentorMatch   core.MatchStats   `json:"mentorMatch"`
		Pitch         PitchTotals       `json:"pitch"`
		IdeasTrend30d []IdeaTrendPoint  `json:"ideasTrend30d"`
		PitchTrend30d []PitchTrendPoint `json:"pitchTrend30d"`
	}
)
