package investor

type (
	// RankedIdea is one pitched idea with its viability score.
	RankedIdea struct {
		IdeaID          string  `json:"ideaId"`
		IdeaName        string  `json:"ideaName"`
		IdeaStatus      string  `json:"ideaStatus"`
		Domain          string  `json:"domain"`
		PitchStatus     string  `json:"pitchStatus"`
		Funding         float64 `json:"funding"`
		EventDate       string  `json:"eventDate,omitempty"`
		PitchScore      float64 `json:"pitchScore"`
		ProgressPercent int     `json:"progressPercent"`
	}

	Overall struct {
		InvestorID        string         `json:"investorId"`
		PitchTotal        int            `json:"pitchTotal"`
		FundingTotal      float64        `json:"fundingTotal"`
		UpcomingPitches7d int            `json:"upcomingPitches7d"`
		ReadyToInvest     int            `json:"readyToInvest"`
		InvestedIdeas     []RankedIdea   `json:"investedIdeas"`
		NewIdeas          []RankedIdea   `json:"newIdeas"`
		RankingTable      []RankedIdea   `json:"rankingTable"`
		IdeaByDomain      map[string]int `json:"ideaByDomain"`
	}

	InvestedIdea struct {
		IdeaID      string  `json:"ideaId"`
		IdeaName    string  `json:"ideaName"`
		IdeaStatus  string  `json:"ideaStatus"`
		Domain      string  `json:"domain"`
		PitchStatus string  `json:"pitchStatus"`
		Funding     float64 `json:"funding"`
		EventDate   string  `json:"eventDate,omitempty"`
	}

	InvestedIdeas struct {
		InvestorID    string         `json:"investorId"`
		TotalInvested int            `json:"totalInvested"`
		Ideas         []InvestedIdea `json:"ideas"`
	}

	Person struct {
		UserID string `json:"userId"`
		Name   string `json:"name"`
	}

	PitchInfo struct {
		Status    string  `json:"status"`
		Funding   float64 `json:"funding"`
		EventDate string  `json:"eventDate,omitempty"`
		Score     float64 `json:"score"`
	}

	MatchInfo struct {
		DueDate string `json:"dueDate,omitempty"`
	}

	IdeaItem struct {
		IdeaID     string    `json:"ideaId"`
		IdeaName   string    `json:"ideaName"`
		IdeaStatus string    `json:"ideaStatus"`
		Student    Person    `json:"student"`
		Mentor     Person    `json:"mentor"`
		Pitch      PitchInfo `json:"pitch"`
		Match      MatchInfo `json:"match"`
	}

	PerIdea struct {
		Ideas []IdeaItem `json:"ideas"`
	}
)
