package teacher

import "github.com/trezcool/kipimo/core"

type (
	// Forum is one discussion space the teacher authors or moderates.
	Forum struct {
		ForumID       string `json:"forumId"`
		ForumName     string `json:"forumName"`
		Role          string `json:"role"`
		TotalPosts    int    `json:"totalPosts"`
		TotalComments int    `json:"totalComments"`
		TotalMembers  int    `json:"totalMembers"`
		LastActivity  string `json:"lastActivity,omitempty"`
	}

	TimelinePoint struct {
		Date     string `json:"date"`
		Posts    int    `json:"posts"`
		Comments int    `json:"comments"`
	}

	ActivityBreakdown struct {
		Posts    int `json:"posts"`
		Comments int `json:"comments"`
	}

	Contributor struct {
		UserID   string `json:"userId"`
		Name     string `json:"name"`
		Posts    int    `json:"posts"`
		Comments int    `json:"comments"`
		Total    int    `json:"total"`
	}

	ForumActivity struct {
		Timeline          []TimelinePoint   `json:"timeline"`
		ActivityBreakdown ActivityBreakdown `json:"activityBreakdown"`
		TopContributors   []Contributor     `json:"topContributors"`
	}

	// CourseCard is one taught course with its roster-wide completion.
	CourseCard struct {
		CourseID      int     `json:"courseId"`
		CourseName    string  `json:"courseName"`
		AvgCompletion float64 `json:"avgCompletion"`
		TotalStudents int     `json:"totalStudents"`
		Image         *string `json:"image"`
	}

	// KPI compares one metric's current 7-day value against the windows one
	// week and one month back.
	KPI struct {
		Current       float64 `json:"current"`
		PrevWeek      float64 `json:"prevWeek"`
		PrevMonth     float64 `json:"prevMonth"`
		DeltaWeekPct  float64 `json:"deltaWeekPct"`
		DeltaMonthPct float64 `json:"deltaMonthPct"`
	}

	KPICompare struct {
		Students   KPI `json:"students"`
		Completion KPI `json:"completion"`
		AvgHours   KPI `json:"avgHours"`
		Dropout    KPI `json:"dropout"`
		Ungraded   KPI `json:"ungraded"`
	}

	TrendPoint struct {
		Label      string  `json:"label"`
		Start      string  `json:"start"`
		End        string  `json:"end"`
		Completion float64 `json:"completion"`
		AvgHours   float64 `json:"avgHours"`
		Dropout    float64 `json:"dropout"`
	}

	Trends struct {
		Weekly    []TrendPoint `json:"weekly"`
		Monthly   []TrendPoint `json:"monthly"`
		Quarterly []TrendPoint `json:"quarterly"`
		Yearly    []TrendPoint `json:"yearly"`
	}

	Overall struct {
		TeacherID               int           `json:"teacher_id"`
		TotalStudents           int           `json:"total_students"`
		TotalCourses            int           `json:"total_courses"`
		InactiveStudents7d      int           `json:"inactive_students_7d"`
		InactiveStudents30d     int           `json:"inactive_students_30d"`
		CompletionRate          float64       `json:"completion_rate"`
		AvgLearningHoursPerWeek float64       `json:"avg_learning_hours_per_week"`
		DropoutRate             float64       `json:"dropout_rate"`
		UngradedSubmissions     int           `json:"ungraded_submissions"`
		TotalForums             int           `json:"total_forums"`
		Forums                  []Forum       `json:"forums"`
		ForumActivity           ForumActivity `json:"forumActivity"`
		MyCourses               []CourseCard  `json:"my_courses"`
		KPICompare              KPICompare    `json:"kpi_compare"`
		Trends                  Trends        `json:"trends"`
	}

	// StudentAssignment is a missing or ungraded submission attributed to one
	// student.
	StudentAssignment struct {
		StudentID      int    `json:"studentId"`
		StudentName    string `json:"studentName"`
		AssignmentID   int    `json:"assignmentId"`
		AssignmentName string `json:"assignmentName"`
		DueDate        string `json:"dueDate,omitempty"`
	}

	PerCourse struct {
		CourseID           int                 `json:"course_id"`
		CourseName         string              `json:"course_name"`
		TotalStudents      int                 `json:"total_students"`
		AvgGradePct        float64             `json:"avg_grade_pct"`
		MissingSubmissions int                 `json:"missing_submissions"`
		CourseRating       core.CourseRating   `json:"course_rating"`
		MissingPerStudent  map[string]int      `json:"missing_per_student"`
		MissingDetails     []StudentAssignment `json:"missing_details"`
		UngradedDetails    []StudentAssignment `json:"ungraded_submissions"`
	}
)
