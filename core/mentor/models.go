package mentor

type (
	// IdeaSummary is one mentored idea with its student.
	IdeaSummary struct {
		IdeaID      string `json:"ideaId"`
		IdeaName    string `json:"ideaName"`
		IdeaStatus  string `json:"ideaStatus"`
		StudentID   string `json:"studentId"`
		StudentName string `json:"studentName"`
		PitchStatus string `json:"pitchStatus,omitempty"`
	}

	// ReadyIdea is a mentored idea whose pitch clears the deal-ready bar.
	ReadyIdea struct {
		IdeaID         string  `json:"ideaId"`
		IdeaName       string  `json:"ideaName"`
		IdeaStatus     string  `json:"ideaStatus"`
		StudentID      string  `json:"studentId"`
		StudentName    string  `json:"studentName"`
		PitchScore     float64 `json:"pitchScore"`
		PitchStatus    string  `json:"pitchStatus"`
		PitchEventDate string  `json:"pitchEventDate,omitempty"`
	}

	MentoringItem struct {
		IdeaID          string  `json:"ideaId"`
		IdeaName        string  `json:"ideaName"`
		Process         string  `json:"process"`
		ProgressPercent float64 `json:"progressPercent"`
	}

	Overall struct {
		MentorID            int             `json:"mentor_id"`
		TotalIdeas          int             `json:"total_ideas"`
		TotalMentees        int             `json:"total_mentees"`
		AvgProgressPct      float64         `json:"avg_progress_pct"`
		AvgGradePct         float64         `json:"avg_grade_pct"`
		OverdueActions      int             `json:"overdue_actions"`
		UpcomingDeadlines7d int             `json:"upcoming_deadlines_7d"`
		DealReadyIdeas      int             `json:"deal_ready_ideas"`
		NewIdeas            int             `json:"new_ideas"`
		IdeasTable          []IdeaSummary   `json:"ideas_table"`
		NewIdeasTable       []IdeaSummary   `json:"new_ideas_table"`
		ReadyToInvestTable  []ReadyIdea     `json:"ready_to_invest_table"`
		MyMentoringTable    []MentoringItem `json:"my_mentoring_table"`
	}

	IdeaDetail struct {
		StudentUserID   string   `json:"student_userid"`
		FullName        string   `json:"fullname"`
		IdeaID          string   `json:"idea_id"`
		IdeaName        string   `json:"idea_name"`
		ProgressPercent float64  `json:"progress_percent"`
		PitchScore      *float64 `json:"pitch_score"`
		PitchStatus     string   `json:"pitch_status,omitempty"`
		IdeaStatus      string   `json:"idea_status"`
	}

	PerIdea struct {
		MentorID int          `json:"mentor_id"`
		Ideas    []IdeaDetail `json:"ideas"`
	}
)
