package student

import "github.com/trezcool/kipimo/core"

type (
	// CourseProgress is one enrollment with derived progress.
	CourseProgress struct {
		CourseID            int    `json:"courseId"`
		CourseName          string `json:"courseName"`
		Completed           bool   `json:"completed"`
		ProgressPercent     int    `json:"progressPercent"`
		TotalActivities     int    `json:"totalActivities"`
		CompletedActivities int    `json:"completedActivities"`
	}

	// ContinueCourse is an unfinished enrollment ordered by recency.
	ContinueCourse struct {
		CourseProgress
		LastActive   string `json:"lastActive,omitempty"`
		DaysInactive *int   `json:"daysInactive,omitempty"`
	}

	CourseTotals struct {
		Total          int `json:"total"`
		Completed      int `json:"completed"`
		CompletionRate int `json:"completionRate"`
	}

	Summary struct {
		TotalCourses     int     `json:"totalCourses"`
		CompletedCourses int     `json:"completedCourses"`
		CompletionRate   int     `json:"completionRate"`
		AvgGradeAll      float64 `json:"avgGradeAll"`
	}

	ActivitySummary struct {
		TotalHours   float64 `json:"totalHours7d"`
		ActiveDays   int     `json:"activeDays7d"`
		LastActive   string  `json:"lastActive,omitempty"`
		DaysInactive *int    `json:"daysInactive,omitempty"`
	}

	TaskTotals struct {
		MissingTasks int `json:"missingTasks"`
		DueSoonTasks int `json:"dueSoonTasks"`
	}

	Task struct {
		CourseID       int    `json:"courseId"`
		CourseName     string `json:"courseName"`
		AssignmentID   int    `json:"assignmentId"`
		AssignmentName string `json:"assignmentName"`
		DueDate        string `json:"dueDate,omitempty"`
	}

	Trend struct {
		LearningDaily   []core.DateBucket `json:"learningDaily"`
		EngagementDaily []core.DateBucket `json:"engagementDaily"`
	}

	Overall struct {
		Courses          CourseTotals          `json:"courses"`
		Summary          Summary               `json:"summary"`
		Activity         ActivitySummary       `json:"activity"`
		Totals           TaskTotals            `json:"totals"`
		Engagement       core.EngagementCounts `json:"engagement"`
		Trend            Trend                 `json:"trend"`
		MissingTasks     []Task                `json:"missingTasks"`
		DueSoonTasks     []Task                `json:"dueSoonTasks"`
		ContinueLearning []ContinueCourse      `json:"continueLearning"`
		LastActive       string                `json:"lastActive,omitempty"`
		DaysInactive     *int                  `json:"daysInactive,omitempty"`
	}

	CourseInfo struct {
		CourseID            int      `json:"courseId"`
		CourseName          string   `json:"courseName"`
		TeacherName         string   `json:"teacherName,omitempty"`
		Tags                []string `json:"tags"`
		TotalActivities     int      `json:"totalActivities"`
		CompletedActivities int      `json:"completedActivities"`
	}

	Progress struct {
		ProgressPercent int  `json:"progressPercent"`
		CompletionRate  int  `json:"completionRate"`
		Completed       bool `json:"completed"`
	}

	ProgressDonut struct {
		Progress int `json:"progress"`
		Done     int `json:"done"`
	}

	Activity struct {
		ActivityID   int    `json:"activityId"`
		ActivityName string `json:"activityName"`
		Completed    bool   `json:"completed"`
	}

	PerCourse struct {
		CourseInfo           CourseInfo         `json:"courseInfo"`
		Progress             Progress           `json:"progress"`
		AvgGradePct          float64            `json:"avgGradePct"`
		MissingTasks         int                `json:"missingTasks"`
		LastActive           string             `json:"lastActive,omitempty"`
		DaysInactive         *int               `json:"daysInactive,omitempty"`
		TimeSpentHours       float64            `json:"timeSpentHours"`
		LearningHoursPerWeek float64            `json:"learningHoursPerWeek"`
		HoursPerDay          []core.HoursBucket `json:"hoursPerDay"`
		ProgressDonut        ProgressDonut      `json:"progressDonut"`
		Activities           []Activity         `json:"activities"`
	}
)
