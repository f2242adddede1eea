package dummydb

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kipimo/core"
)

// DB is an in-memory stand-in for the two MySQL stores. Tables are seeded
// directly by tests; Now is settable so time-window reads stay deterministic.
type (
	DB struct {
		Now func() time.Time

		course *courseTables
		engage *engagementTables
	}

	courseTables struct {
		sync.RWMutex
		courses     map[int]*CourseRecord
		enrolments  map[int][]int // courseID -> userIDs
		students    []int
		users       map[int]UserRecord
		progress    []core.CourseProgressRow // one row per (user, course)
		progressBy  map[int][]int            // userID -> indices into progress
		modules     map[int]map[int][]core.ModuleRow
		events      []EventRecord
		completions []CompletionRecord
		assignments []AssignmentRecord
		grades      []GradeRecord
	}

	engagementTables struct {
		sync.RWMutex
		accounts  []core.Account
		posts     []PostRecord
		comments  []CommentRecord
		reactions []ReactionRecord
		forums    []ForumRecord
		forumUser []ForumUserRecord
		matches   []core.MatchRow
		ideas     []IdeaRecord
		pitches   []PitchRecord
		workflows []core.WorkflowRow
	}

	CourseRecord struct {
		core.CourseRef
		TeacherID   int
		TeacherName string
		Tags        []string
		Rating      core.CourseRating
	}

	UserRecord struct {
		UserID    int
		FirstName string
		LastName  string
	}

	// EventRecord is one activity-log line.
	EventRecord struct {
		UserID    int
		CourseID  int
		Timestamp int64
	}

	// CompletionRecord is one activity completion; State follows the course
	// store's completion states (1 complete, 2 complete-pass).
	CompletionRecord struct {
		UserID    int
		CourseID  int
		Timestamp int64
		State     int
	}

	AssignmentRecord struct {
		UserID         int
		CourseID       int
		CourseName     string
		AssignmentID   int
		AssignmentName string
		DueTS          int64
		Submitted      bool
		Graded         bool
	}

	GradeRecord struct {
		UserID   int
		CourseID int
		Percent  float64
	}

	PostRecord struct {
		ID        string
		ForumID   string
		AuthorID  string
		CreatedAt time.Time
	}

	CommentRecord struct {
		ID        string
		PostID    string
		AuthorID  string
		CreatedAt time.Time
	}

	ReactionRecord struct {
		AuthorID  string
		CreatedAt time.Time
	}

	ForumRecord struct {
		ID        string
		Name      string
		AuthorID  string
		CreatedAt time.Time
	}

	ForumUserRecord struct {
		ForumID string
		UserID  string
		Role    string
	}

	IdeaRecord struct {
		core.IdeaRow
		AuthorID  string
		CreatedAt time.Time
	}

	PitchRecord struct {
		core.PitchRow
		InvestorID string
		CreatedAt  time.Time
	}
)

func Open() (*DB, error) {
	db := &DB{
		Now: time.Now,
		course: &courseTables{
			courses:    make(map[int]*CourseRecord),
			enrolments: make(map[int][]int),
			users:      make(map[int]UserRecord),
			progressBy: make(map[int][]int),
			modules:    make(map[int]map[int][]core.ModuleRow),
		},
		engage: &engagementTables{},
	}
	return db, nil
}

// NewID returns a generated string id for community-store records.
func NewID() string { return uuid.New().String() }

//
// course-store seeding
//

func (db *DB) AddCourse(rec CourseRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	c := rec
	db.course.courses[rec.CourseID] = &c
}

func (db *DB) Enrol(courseID int, userIDs ...int) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.enrolments[courseID] = append(db.course.enrolments[courseID], userIDs...)
}

func (db *DB) AddStudents(userIDs ...int) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.students = append(db.course.students, userIDs...)
}

func (db *DB) AddUser(rec UserRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.users[rec.UserID] = rec
}

func (db *DB) AddProgress(userID int, row core.CourseProgressRow) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.progress = append(db.course.progress, row)
	db.course.progressBy[userID] = append(db.course.progressBy[userID], len(db.course.progress)-1)
}

func (db *DB) SetModules(courseID, userID int, rows []core.ModuleRow) {
	db.course.Lock()
	defer db.course.Unlock()
	if db.course.modules[courseID] == nil {
		db.course.modules[courseID] = make(map[int][]core.ModuleRow)
	}
	db.course.modules[courseID][userID] = rows
}

func (db *DB) AddEvents(recs ...EventRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.events = append(db.course.events, recs...)
}

func (db *DB) AddCompletions(recs ...CompletionRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.completions = append(db.course.completions, recs...)
}

func (db *DB) AddAssignments(recs ...AssignmentRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.assignments = append(db.course.assignments, recs...)
}

func (db *DB) AddGrades(recs ...GradeRecord) {
	db.course.Lock()
	defer db.course.Unlock()
	db.course.grades = append(db.course.grades, recs...)
}

//
// community-store seeding
//

func (db *DB) AddAccount(acc core.Account) {
	db.engage.Lock()
	defer db.engage.Unlock()
	db.engage.accounts = append(db.engage.accounts, acc)
}

func (db *DB) AddPost(rec PostRecord) string {
	db.engage.Lock()
	defer db.engage.Unlock()
	if rec.ID == "" {
		rec.ID = NewID()
	}
	db.engage.posts = append(db.engage.posts, rec)
	return rec.ID
}

func (db *DB) AddComment(rec CommentRecord) string {
	db.engage.Lock()
	defer db.engage.Unlock()
	if rec.ID == "" {
		rec.ID = NewID()
	}
	db.engage.comments = append(db.engage.comments, rec)
	return rec.ID
}

func (db *DB) AddReaction(rec ReactionRecord) {
	db.engage.Lock()
	defer db.engage.Unlock()
	db.engage.reactions = append(db.engage.reactions, rec)
}

func (db *DB) AddForum(rec ForumRecord) string {
	db.engage.Lock()
	defer db.engage.Unlock()
	if rec.ID == "" {
		rec.ID = NewID()
	}
	db.engage.forums = append(db.engage.forums, rec)
	return rec.ID
}

func (db *DB) AddForumUser(rec ForumUserRecord) {
	db.engage.Lock()
	defer db.engage.Unlock()
	db.engage.forumUser = append(db.engage.forumUser, rec)
}

func (db *DB) AddMatch(rec core.MatchRow) string {
	db.engage.Lock()
	defer db.engage.Unlock()
	if rec.MatchID == "" {
		rec.MatchID = NewID()
	}
	db.engage.matches = append(db.engage.matches, rec)
	return rec.MatchID
}

func (db *DB) AddIdea(rec IdeaRecord) string {
	db.engage.Lock()
	defer db.engage.Unlock()
	if rec.IdeaID == "" {
		rec.IdeaID = NewID()
	}
	db.engage.ideas = append(db.engage.ideas, rec)
	return rec.IdeaID
}

func (db *DB) AddPitch(rec PitchRecord) {
	db.engage.Lock()
	defer db.engage.Unlock()
	db.engage.pitches = append(db.engage.pitches, rec)
}

func (db *DB) AddWorkflow(rec core.WorkflowRow) {
	db.engage.Lock()
	defer db.engage.Unlock()
	db.engage.workflows = append(db.engage.workflows, rec)
}
