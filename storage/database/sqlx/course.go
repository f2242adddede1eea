package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kipimo/core"
	"github.com/trezcool/kipimo/core/admin"
	"github.com/trezcool/kipimo/core/mentor"
	"github.com/trezcool/kipimo/core/student"
	"github.com/trezcool/kipimo/core/teacher"
)

// courseRepository reads the course-delivery store. All tables share a
// configurable prefix; queries interpolate it via table().
type courseRepository struct {
	db     *sqlx.DB
	prefix string
}

// interface compliance checks
var (
	_ student.CourseRepository = (*courseRepository)(nil)
	_ teacher.CourseRepository = (*courseRepository)(nil)
	_ mentor.CourseRepository  = (*courseRepository)(nil)
	_ admin.CourseRepository   = (*courseRepository)(nil)
)

func NewCourseRepository(db *sqlx.DB, tablePrefix string) *courseRepository {
	return &courseRepository{db: db, prefix: tablePrefix}
}

func (repo *courseRepository) table(name string) string {
	return repo.prefix + name
}

// selectIn expands id-set params with sqlx.In and runs the query.
func (repo *courseRepository) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, params, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding query params")
	}
	return repo.db.SelectContext(ctx, dest, repo.db.Rebind(q), params...)
}

func (repo *courseRepository) getIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, params, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding query params")
	}
	return repo.db.GetContext(ctx, dest, repo.db.Rebind(q), params...)
}

// windowCond renders a closed timestamp range condition for col, or matches
// everything when the window is zero.
func windowCond(col string, window core.TimeRange, args *[]interface{}) string {
	if window.IsZero() {
		return "1=1"
	}
	*args = append(*args, window.Start, window.End)
	return col + " BETWEEN ? AND ?"
}

type (
	courseProgressScan struct {
		CourseID            int            `db:"course_id"`
		CourseName          sql.NullString `db:"course_name"`
		Completed           bool           `db:"completed"`
		TotalActivities     int            `db:"total_activities"`
		CompletedActivities int            `db:"completed_activities"`
	}

	continueScan struct {
		CourseID            int            `db:"course_id"`
		CourseName          sql.NullString `db:"course_name"`
		TotalActivities     int            `db:"total_activities"`
		CompletedActivities int            `db:"completed_activities"`
		LastTS              sql.NullInt64  `db:"last_ts"`
	}

	assignmentScan struct {
		CourseID       int            `db:"course_id"`
		CourseName     sql.NullString `db:"course_name"`
		AssignmentID   int            `db:"assignment_id"`
		AssignmentName sql.NullString `db:"assignment_name"`
		DueTS          sql.NullInt64  `db:"due_ts"`
	}

	assignmentUserScan struct {
		UserID         int            `db:"user_id"`
		FirstName      sql.NullString `db:"firstname"`
		LastName       sql.NullString `db:"lastname"`
		AssignmentID   int            `db:"assignment_id"`
		AssignmentName sql.NullString `db:"assignment_name"`
		DueTS          sql.NullInt64  `db:"due_ts"`
	}

	dayCountScan struct {
		Day   string `db:"d"`
		Count int    `db:"c"`
	}

	dayValueScan struct {
		Day   string  `db:"d"`
		Value float64 `db:"v"`
	}
)

//
// student reads
//

func (repo *courseRepository) GetOverallCourses(ctx context.Context, userID int) (core.CourseTotals, error) {
	var totals core.CourseTotals
	q := fmt.Sprintf(`
		SELECT COUNT(DISTINCT c.id)
		FROM %s c
		JOIN %s e ON e.courseid = c.id
		JOIN %s ue ON ue.enrolid = e.id
		WHERE ue.userid = ? AND c.id != 1`,
		repo.table("course"), repo.table("enrol"), repo.table("user_enrolments"))
	if err := repo.db.GetContext(ctx, &totals.Total, q, userID); err != nil {
		return core.CourseTotals{}, errors.Wrap(err, "counting courses")
	}

	q = fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s cc
		WHERE cc.userid = ? AND cc.timecompleted IS NOT NULL`,
		repo.table("course_completions"))
	if err := repo.db.GetContext(ctx, &totals.Completed, q, userID); err != nil {
		return core.CourseTotals{}, errors.Wrap(err, "counting completed courses")
	}
	return totals, nil
}

func (repo *courseRepository) QueryCourseProgress(ctx context.Context, userID, courseID int) ([]core.CourseProgressRow, error) {
	courseFilter := ""
	args := []interface{}{userID, userID, userID}
	if courseID > 0 {
		courseFilter = " AND c.id = ?"
		args = append(args, courseID)
	}
	q := fmt.Sprintf(`
		SELECT
		  c.id AS course_id,
		  c.fullname AS course_name,
		  MAX(CASE WHEN cc.timecompleted IS NOT NULL THEN 1 ELSE 0 END) AS completed,
		  COALESCE(SUM(CASE WHEN cm.completion > 0 THEN 1 ELSE 0 END), 0) AS total_activities,
		  COALESCE(SUM(CASE WHEN cmc.completionstate IN (1,2) THEN 1 ELSE 0 END), 0) AS completed_activities
		FROM %s c
		JOIN %s e ON e.courseid = c.id
		JOIN %s ue ON ue.enrolid = e.id
		LEFT JOIN %s cc ON cc.course = c.id AND cc.userid = ?
		LEFT JOIN %s cm ON cm.course = c.id
		LEFT JOIN %s cmc ON cmc.coursemoduleid = cm.id AND cmc.userid = ?
		WHERE ue.userid = ? AND c.id != 1%s
		GROUP BY c.id, c.fullname`,
		repo.table("course"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("course_completions"), repo.table("course_modules"),
		repo.table("course_modules_completion"), courseFilter)

	var scans []courseProgressScan
	if err := repo.db.SelectContext(ctx, &scans, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying course progress")
	}
	rows := make([]core.CourseProgressRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.CourseProgressRow{
			CourseID:            s.CourseID,
			CourseName:          s.CourseName.String,
			Completed:           s.Completed,
			TotalActivities:     s.TotalActivities,
			CompletedActivities: s.CompletedActivities,
		})
	}
	return rows, nil
}

func (repo *courseRepository) QueryContinueLearning(ctx context.Context, userID int) ([]core.ContinueRow, error) {
	q := fmt.Sprintf(`
		SELECT
		  c.id AS course_id,
		  c.fullname AS course_name,
		  COALESCE(SUM(CASE WHEN cm.completion > 0 THEN 1 ELSE 0 END), 0) AS total_activities,
		  COALESCE(SUM(CASE WHEN cmc.completionstate IN (1,2) THEN 1 ELSE 0 END), 0) AS completed_activities,
		  MAX(log.timecreated) AS last_ts
		FROM %s c
		JOIN %s e ON e.courseid = c.id
		JOIN %s ue ON ue.enrolid = e.id AND ue.userid = ?
		LEFT JOIN %s cc ON cc.course = c.id AND cc.userid = ?
		LEFT JOIN %s cm ON cm.course = c.id
		LEFT JOIN %s cmc ON cmc.coursemoduleid = cm.id AND cmc.userid = ?
		LEFT JOIN %s log ON log.courseid = c.id AND log.userid = ?
		WHERE c.id != 1 AND cc.timecompleted IS NULL
		GROUP BY c.id, c.fullname
		ORDER BY last_ts DESC`,
		repo.table("course"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("course_completions"), repo.table("course_modules"),
		repo.table("course_modules_completion"), repo.table("logstore_standard_log"))

	var scans []continueScan
	if err := repo.db.SelectContext(ctx, &scans, q, userID, userID, userID, userID); err != nil {
		return nil, errors.Wrap(err, "querying continue learning")
	}
	rows := make([]core.ContinueRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.ContinueRow{
			CourseID:            s.CourseID,
			CourseName:          s.CourseName.String,
			TotalActivities:     s.TotalActivities,
			CompletedActivities: s.CompletedActivities,
			LastTS:              s.LastTS.Int64,
		})
	}
	return rows, nil
}

func (repo *courseRepository) QueryAvgGradeByCourse(ctx context.Context, userID int) ([]core.CourseValue, error) {
	q := fmt.Sprintf(`
		SELECT gi.courseid AS courseid, AVG(gg.finalgrade / NULLIF(gi.grademax, 0)) * 100 AS value
		FROM %s gi
		JOIN %s gg ON gg.itemid = gi.id
		WHERE gg.userid = ?
		  AND gi.courseid IS NOT NULL
		  AND gi.grademax > 0
		  AND gg.finalgrade IS NOT NULL
		GROUP BY gi.courseid`,
		repo.table("grade_items"), repo.table("grade_grades"))

	var rows []core.CourseValue
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying grades by course")
	}
	return rows, nil
}

func (repo *courseRepository) queryAssignments(ctx context.Context, q string, args ...interface{}) ([]core.AssignmentRow, error) {
	var scans []assignmentScan
	if err := repo.db.SelectContext(ctx, &scans, q, args...); err != nil {
		return nil, err
	}
	rows := make([]core.AssignmentRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.AssignmentRow{
			CourseID:       s.CourseID,
			CourseName:     s.CourseName.String,
			AssignmentID:   s.AssignmentID,
			AssignmentName: s.AssignmentName.String,
			DueTS:          s.DueTS.Int64,
		})
	}
	return rows, nil
}

func (repo *courseRepository) QueryMissingAssignments(ctx context.Context, userID, limit int) ([]core.AssignmentRow, error) {
	q := fmt.Sprintf(`
		SELECT
		  c.id AS course_id,
		  c.fullname AS course_name,
		  a.id AS assignment_id,
		  a.name AS assignment_name,
		  a.duedate AS due_ts
		FROM %s a
		JOIN %s c ON c.id = a.course
		JOIN %s e ON e.courseid = c.id
		JOIN %s ue ON ue.enrolid = e.id AND ue.userid = ?
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ? AND s.latest = 1
		WHERE a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')
		ORDER BY a.duedate ASC
		LIMIT ?`,
		repo.table("assign"), repo.table("course"), repo.table("enrol"),
		repo.table("user_enrolments"), repo.table("assign_submission"))

	rows, err := repo.queryAssignments(ctx, q, userID, userID, limit)
	return rows, errors.Wrap(err, "querying missing assignments")
}

func (repo *courseRepository) QueryDueSoonAssignments(ctx context.Context, userID, days, limit int) ([]core.AssignmentRow, error) {
	q := fmt.Sprintf(`
		SELECT
		  c.id AS course_id,
		  c.fullname AS course_name,
		  a.id AS assignment_id,
		  a.name AS assignment_name,
		  a.duedate AS due_ts
		FROM %s a
		JOIN %s c ON c.id = a.course
		JOIN %s e ON e.courseid = c.id
		JOIN %s ue ON ue.enrolid = e.id AND ue.userid = ?
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ? AND s.latest = 1
		WHERE a.duedate > 0
		  AND a.duedate >= UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND a.duedate <= UNIX_TIMESTAMP(DATE_ADD(UTC_TIMESTAMP(), INTERVAL ? DAY))
		  AND (s.id IS NULL OR s.status != 'submitted')
		ORDER BY a.duedate ASC
		LIMIT ?`,
		repo.table("assign"), repo.table("course"), repo.table("enrol"),
		repo.table("user_enrolments"), repo.table("assign_submission"))

	rows, err := repo.queryAssignments(ctx, q, userID, userID, days, limit)
	return rows, errors.Wrap(err, "querying due soon assignments")
}

func (repo *courseRepository) QueryCompletionsPerDay(ctx context.Context, userID, days int) ([]core.DayCount, error) {
	q := fmt.Sprintf(`
		SELECT FROM_UNIXTIME(cmc.timemodified, '%%Y-%%m-%%d') AS d, COUNT(*) AS c
		FROM %s cmc
		WHERE cmc.userid = ?
		  AND cmc.timemodified >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		GROUP BY d`,
		repo.table("course_modules_completion"))

	var scans []dayCountScan
	if err := repo.db.SelectContext(ctx, &scans, q, userID, days-1); err != nil {
		return nil, errors.Wrap(err, "querying completions per day")
	}
	return dayCounts(scans), nil
}

func (repo *courseRepository) GetLastActivity(ctx context.Context, userID int) (int64, error) {
	var ts sql.NullInt64
	q := fmt.Sprintf(`SELECT MAX(timecreated) FROM %s WHERE userid = ?`, repo.table("logstore_standard_log"))
	if err := repo.db.GetContext(ctx, &ts, q, userID); err != nil {
		return 0, errors.Wrap(err, "querying last activity")
	}
	return ts.Int64, nil
}

func (repo *courseRepository) GetCourseLastActivity(ctx context.Context, userID, courseID int) (int64, error) {
	var ts sql.NullInt64
	q := fmt.Sprintf(
		`SELECT MAX(timecreated) FROM %s WHERE userid = ? AND courseid = ?`,
		repo.table("logstore_standard_log"))
	if err := repo.db.GetContext(ctx, &ts, q, userID, courseID); err != nil {
		return 0, errors.Wrap(err, "querying course last activity")
	}
	return ts.Int64, nil
}

func (repo *courseRepository) GetCourseTeacherName(ctx context.Context, courseID int) (string, error) {
	var name struct {
		FirstName sql.NullString `db:"firstname"`
		LastName  sql.NullString `db:"lastname"`
	}
	q := fmt.Sprintf(`
		SELECT u.firstname, u.lastname
		FROM %s ra
		JOIN %s ctx ON ctx.id = ra.contextid AND ctx.contextlevel = 50
		JOIN %s u ON u.id = ra.userid
		WHERE ctx.instanceid = ? AND ra.roleid IN (3,4)
		ORDER BY ra.id ASC
		LIMIT 1`,
		repo.table("role_assignments"), repo.table("context"), repo.table("user"))
	if err := repo.db.GetContext(ctx, &name, q, courseID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "querying course teacher")
	}
	return strings.TrimSpace(name.FirstName.String + " " + name.LastName.String), nil
}

func (repo *courseRepository) GetCourseTags(ctx context.Context, courseID int) ([]string, error) {
	var raw sql.NullString
	q := fmt.Sprintf(`SELECT tags FROM %s WHERE id = ?`, repo.table("course"))
	if err := repo.db.GetContext(ctx, &raw, q, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "querying course tags")
	}
	var tags []string
	for _, t := range strings.Split(raw.String, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

func (repo *courseRepository) GetStudentMissingCount(ctx context.Context, userID, courseID int) (int, error) {
	var cnt int
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s a
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ? AND s.latest = 1
		WHERE a.course = ?
		  AND a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')`,
		repo.table("assign"), repo.table("assign_submission"))
	if err := repo.db.GetContext(ctx, &cnt, q, userID, courseID); err != nil {
		return 0, errors.Wrap(err, "counting missing assignments")
	}
	return cnt, nil
}

func (repo *courseRepository) QueryCourseModules(ctx context.Context, userID, courseID int) ([]core.ModuleRow, error) {
	var scans []struct {
		ModuleID           int           `db:"module_id"`
		CompletionRequired int           `db:"completion_required"`
		CompletionState    sql.NullInt64 `db:"completion_state"`
	}
	q := fmt.Sprintf(`
		SELECT cm.id AS module_id,
		       cm.completion AS completion_required,
		       cmc.completionstate AS completion_state
		FROM %s cm
		LEFT JOIN %s cmc ON cmc.coursemoduleid = cm.id AND cmc.userid = ?
		WHERE cm.course = ?
		ORDER BY cm.id ASC`,
		repo.table("course_modules"), repo.table("course_modules_completion"))
	if err := repo.db.SelectContext(ctx, &scans, q, userID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying course modules")
	}
	rows := make([]core.ModuleRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.ModuleRow{
			ModuleID:           s.ModuleID,
			CompletionRequired: s.CompletionRequired > 0,
			CompletionState:    int(s.CompletionState.Int64),
		})
	}
	return rows, nil
}

func (repo *courseRepository) QueryActivityLog(ctx context.Context, userID, courseID, days int) ([]core.ActivityEvent, error) {
	var scans []struct {
		UserID int   `db:"userid"`
		TS     int64 `db:"timecreated"`
	}
	q := fmt.Sprintf(`
		SELECT userid, timecreated
		FROM %s
		WHERE userid = ? AND courseid = ?
		  AND timecreated >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		ORDER BY timecreated ASC`,
		repo.table("logstore_standard_log"))
	if err := repo.db.SelectContext(ctx, &scans, q, userID, courseID, days-1); err != nil {
		return nil, errors.Wrap(err, "querying activity log")
	}
	events := make([]core.ActivityEvent, 0, len(scans))
	for _, s := range scans {
		events = append(events, core.ActivityEvent{UserID: s.UserID, Timestamp: s.TS})
	}
	return events, nil
}

//
// teacher reads
//

func (repo *courseRepository) QueryTeacherCourses(ctx context.Context, teacherID int) ([]core.CourseRef, error) {
	var scans []struct {
		CourseID   int            `db:"course_id"`
		CourseName sql.NullString `db:"course_name"`
	}
	q := fmt.Sprintf(`
		SELECT c.id AS course_id, c.fullname AS course_name
		FROM %s ra
		JOIN %s ctx ON ctx.id = ra.contextid AND ctx.contextlevel = 50
		JOIN %s c ON c.id = ctx.instanceid
		WHERE ra.userid = ? AND ra.roleid IN (3,4)
		GROUP BY c.id, c.fullname`,
		repo.table("role_assignments"), repo.table("context"), repo.table("course"))
	if err := repo.db.SelectContext(ctx, &scans, q, teacherID); err != nil {
		return nil, errors.Wrap(err, "querying teacher courses")
	}
	refs := make([]core.CourseRef, 0, len(scans))
	for _, s := range scans {
		refs = append(refs, core.CourseRef{CourseID: s.CourseID, CourseName: s.CourseName.String})
	}
	return refs, nil
}

func (repo *courseRepository) QueryStudentsInCourses(ctx context.Context, courseIDs []int) ([]int, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var ids []int
	q := fmt.Sprintf(`
		SELECT DISTINCT ra.userid
		FROM %s ra
		JOIN %s ctx ON ctx.id = ra.contextid AND ctx.contextlevel = 50
		WHERE ra.roleid = 5 AND ctx.instanceid IN (?)`,
		repo.table("role_assignments"), repo.table("context"))
	if err := repo.selectIn(ctx, &ids, q, courseIDs); err != nil {
		return nil, errors.Wrap(err, "querying students in courses")
	}
	return ids, nil
}

func (repo *courseRepository) QueryCourseEnrolCounts(ctx context.Context, courseIDs []int) ([]core.CourseCount, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var rows []core.CourseCount
	q := fmt.Sprintf(`
		SELECT e.courseid AS courseid, COUNT(DISTINCT ue.userid) AS count
		FROM %s e
		JOIN %s ue ON ue.enrolid = e.id
		WHERE e.courseid IN (?)
		GROUP BY e.courseid`,
		repo.table("enrol"), repo.table("user_enrolments"))
	if err := repo.selectIn(ctx, &rows, q, courseIDs); err != nil {
		return nil, errors.Wrap(err, "querying enrol counts")
	}
	return rows, nil
}

func (repo *courseRepository) QueryCourseCompletion(ctx context.Context, courseIDs []int) ([]core.CourseCompletionRow, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		CourseID            int `db:"course_id"`
		TotalActivities     int `db:"total_activities"`
		CompletedActivities int `db:"completed_activities"`
	}
	q := fmt.Sprintf(`
		SELECT cm.course AS course_id,
		       COALESCE(SUM(CASE WHEN cm.completion > 0 THEN 1 ELSE 0 END), 0) AS total_activities,
		       COALESCE(SUM(CASE WHEN cmc.completionstate IN (1,2) THEN 1 ELSE 0 END), 0) AS completed_activities
		FROM %s cm
		LEFT JOIN %s cmc ON cmc.coursemoduleid = cm.id
		WHERE cm.course IN (?)
		GROUP BY cm.course`,
		repo.table("course_modules"), repo.table("course_modules_completion"))
	if err := repo.selectIn(ctx, &scans, q, courseIDs); err != nil {
		return nil, errors.Wrap(err, "querying course completion")
	}
	rows := make([]core.CourseCompletionRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.CourseCompletionRow(s))
	}
	return rows, nil
}

func (repo *courseRepository) QueryLastActivityByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserTimestamp, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		UserID int           `db:"userid"`
		LastTS sql.NullInt64 `db:"last_ts"`
	}
	q := fmt.Sprintf(`
		SELECT userid, MAX(timecreated) AS last_ts
		FROM %s
		WHERE courseid IN (?) AND userid IN (?)
		GROUP BY userid`,
		repo.table("logstore_standard_log"))
	if err := repo.selectIn(ctx, &scans, q, courseIDs, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying last activity by user")
	}
	rows := make([]core.UserTimestamp, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.UserTimestamp{UserID: s.UserID, LastTS: s.LastTS.Int64})
	}
	return rows, nil
}

func (repo *courseRepository) QueryAvgGradeByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserValue, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return nil, nil
	}
	var rows []core.UserValue
	q := fmt.Sprintf(`
		SELECT gg.userid AS userid, AVG(gg.finalgrade / NULLIF(gi.grademax,0)) * 100 AS value
		FROM %s gi
		JOIN %s gg ON gg.itemid = gi.id
		WHERE gi.courseid IN (?)
		  AND gg.userid IN (?)
		  AND gi.grademax > 0
		  AND gg.finalgrade IS NOT NULL
		GROUP BY gg.userid`,
		repo.table("grade_items"), repo.table("grade_grades"))
	if err := repo.selectIn(ctx, &rows, q, courseIDs, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying grades by user")
	}
	return rows, nil
}

func (repo *courseRepository) QueryMissingByUser(ctx context.Context, courseIDs, userIDs []int) ([]core.UserCount, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return nil, nil
	}
	var rows []core.UserCount
	q := fmt.Sprintf(`
		SELECT ue.userid AS userid, COUNT(*) AS count
		FROM %s a
		JOIN %s e ON e.courseid = a.course
		JOIN %s ue ON ue.enrolid = e.id
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ue.userid AND s.latest = 1
		WHERE a.course IN (?)
		  AND ue.userid IN (?)
		  AND a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')
		GROUP BY ue.userid`,
		repo.table("assign"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("assign_submission"))
	if err := repo.selectIn(ctx, &rows, q, courseIDs, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying missing by user")
	}
	return rows, nil
}

func (repo *courseRepository) QueryProgressByUser(ctx context.Context, userIDs []int) ([]core.UserProgressRow, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		UserID              int `db:"user_id"`
		TotalActivities     int `db:"total_activities"`
		CompletedActivities int `db:"completed_activities"`
	}
	q := fmt.Sprintf(`
		SELECT ue.userid AS user_id,
		       COALESCE(SUM(CASE WHEN cm.completion > 0 THEN 1 ELSE 0 END), 0) AS total_activities,
		       COALESCE(SUM(CASE WHEN cmc.completionstate IN (1,2) THEN 1 ELSE 0 END), 0) AS completed_activities
		FROM %s ue
		JOIN %s e ON e.id = ue.enrolid
		JOIN %s cm ON cm.course = e.courseid
		LEFT JOIN %s cmc ON cmc.coursemoduleid = cm.id AND cmc.userid = ue.userid
		WHERE ue.userid IN (?)
		GROUP BY ue.userid`,
		repo.table("user_enrolments"), repo.table("enrol"), repo.table("course_modules"),
		repo.table("course_modules_completion"))
	if err := repo.selectIn(ctx, &scans, q, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying progress by user")
	}
	rows := make([]core.UserProgressRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.UserProgressRow(s))
	}
	return rows, nil
}

func (repo *courseRepository) QueryCourseActivityLog(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) ([]core.ActivityEvent, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return nil, nil
	}
	var args []interface{}
	cond := windowCond("timecreated", window, &args)
	var scans []struct {
		UserID int   `db:"userid"`
		TS     int64 `db:"timecreated"`
	}
	q := fmt.Sprintf(`
		SELECT userid, timecreated
		FROM %s
		WHERE courseid IN (?) AND userid IN (?) AND %s
		ORDER BY userid, timecreated`,
		repo.table("logstore_standard_log"), cond)
	if err := repo.selectIn(ctx, &scans, q, append([]interface{}{courseIDs, userIDs}, args...)...); err != nil {
		return nil, errors.Wrap(err, "querying course activity log")
	}
	events := make([]core.ActivityEvent, 0, len(scans))
	for _, s := range scans {
		events = append(events, core.ActivityEvent{UserID: s.UserID, Timestamp: s.TS})
	}
	return events, nil
}

func (repo *courseRepository) GetUngradedCount(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return 0, nil
	}
	dueCond := "a.duedate > 0 AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())"
	var args []interface{}
	if !window.IsZero() {
		dueCond = "a.duedate BETWEEN ? AND ?"
		args = append(args, window.Start, window.End)
	}
	var cnt int
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s s
		JOIN %s a ON a.id = s.assignment
		LEFT JOIN %s gi ON gi.itemmodule = 'assign' AND gi.iteminstance = a.id
		LEFT JOIN %s gg ON gg.itemid = gi.id AND gg.userid = s.userid
		WHERE a.course IN (?)
		  AND s.userid IN (?)
		  AND s.status = 'submitted'
		  AND %s
		  AND gg.id IS NULL`,
		repo.table("assign_submission"), repo.table("assign"), repo.table("grade_items"),
		repo.table("grade_grades"), dueCond)
	if err := repo.getIn(ctx, &cnt, q, append([]interface{}{courseIDs, userIDs}, args...)...); err != nil {
		return 0, errors.Wrap(err, "counting ungraded submissions")
	}
	return cnt, nil
}

func (repo *courseRepository) QueryActiveStudents(ctx context.Context, courseIDs []int, window core.TimeRange) ([]int, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var ids []int
	q := fmt.Sprintf(`
		SELECT DISTINCT ra.userid
		FROM %s log
		JOIN %s ra ON ra.userid = log.userid
		JOIN %s ctx ON ctx.id = ra.contextid AND ctx.contextlevel = 50
		WHERE log.courseid IN (?)
		  AND log.timecreated BETWEEN ? AND ?
		  AND ctx.instanceid = log.courseid
		  AND ra.roleid = 5`,
		repo.table("logstore_standard_log"), repo.table("role_assignments"), repo.table("context"))
	if err := repo.selectIn(ctx, &ids, q, courseIDs, window.Start, window.End); err != nil {
		return nil, errors.Wrap(err, "querying active students")
	}
	return ids, nil
}

func (repo *courseRepository) GetTotalActivities(ctx context.Context, courseIDs []int) (int, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	var cnt int
	q := fmt.Sprintf(`
		SELECT COALESCE(SUM(CASE WHEN completion > 0 THEN 1 ELSE 0 END), 0)
		FROM %s
		WHERE course IN (?)`,
		repo.table("course_modules"))
	if err := repo.getIn(ctx, &cnt, q, courseIDs); err != nil {
		return 0, errors.Wrap(err, "counting activities")
	}
	return cnt, nil
}

func (repo *courseRepository) GetWindowCompletions(ctx context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error) {
	if len(courseIDs) == 0 || len(userIDs) == 0 {
		return 0, nil
	}
	var cnt int
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s cmc
		JOIN %s cm ON cm.id = cmc.coursemoduleid
		WHERE cm.course IN (?)
		  AND cmc.userid IN (?)
		  AND cmc.completionstate IN (1,2)
		  AND cmc.timemodified BETWEEN ? AND ?`,
		repo.table("course_modules_completion"), repo.table("course_modules"))
	if err := repo.getIn(ctx, &cnt, q, courseIDs, userIDs, window.Start, window.End); err != nil {
		return 0, errors.Wrap(err, "counting window completions")
	}
	return cnt, nil
}

func (repo *courseRepository) GetCourseName(ctx context.Context, courseID int) (string, error) {
	var name sql.NullString
	q := fmt.Sprintf(`SELECT fullname FROM %s WHERE id = ?`, repo.table("course"))
	if err := repo.db.GetContext(ctx, &name, q, courseID); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", errors.Wrap(err, "querying course name")
	}
	return name.String, nil
}

func (repo *courseRepository) GetCourseRating(ctx context.Context, courseID int) (core.CourseRating, error) {
	var scan struct {
		AvgRating  sql.NullFloat64 `db:"avg_rating"`
		NumRatings int             `db:"num_ratings"`
	}
	q := fmt.Sprintf(`
		SELECT AVG(gg.finalgrade / NULLIF(gi.grademax, 0)) * 5 AS avg_rating,
		       COUNT(*) AS num_ratings
		FROM %s gi
		JOIN %s gg ON gg.itemid = gi.id
		WHERE gi.courseid = ?
		  AND gi.grademax > 0
		  AND gg.finalgrade IS NOT NULL`,
		repo.table("grade_items"), repo.table("grade_grades"))
	if err := repo.db.GetContext(ctx, &scan, q, courseID); err != nil {
		return core.CourseRating{}, errors.Wrap(err, "querying course rating")
	}
	return core.CourseRating{
		AvgRating:  core.RoundTo(scan.AvgRating.Float64, 1),
		NumRatings: scan.NumRatings,
	}, nil
}

func (repo *courseRepository) queryAssignmentUsers(ctx context.Context, q string, args ...interface{}) ([]core.AssignmentUserRow, error) {
	var scans []assignmentUserScan
	if err := repo.db.SelectContext(ctx, &scans, q, args...); err != nil {
		return nil, err
	}
	rows := make([]core.AssignmentUserRow, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.AssignmentUserRow{
			UserID:         s.UserID,
			FirstName:      s.FirstName.String,
			LastName:       s.LastName.String,
			AssignmentID:   s.AssignmentID,
			AssignmentName: s.AssignmentName.String,
			DueTS:          s.DueTS.Int64,
		})
	}
	return rows, nil
}

func (repo *courseRepository) QueryMissingDetails(ctx context.Context, courseID int) ([]core.AssignmentUserRow, error) {
	q := fmt.Sprintf(`
		SELECT ue.userid AS user_id,
		       u.firstname, u.lastname,
		       a.id AS assignment_id,
		       a.name AS assignment_name,
		       a.duedate AS due_ts
		FROM %s a
		JOIN %s e ON e.courseid = a.course
		JOIN %s ue ON ue.enrolid = e.id
		JOIN %s u ON u.id = ue.userid
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ue.userid AND s.latest = 1
		WHERE a.course = ?
		  AND a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')
		ORDER BY a.duedate ASC`,
		repo.table("assign"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("user"), repo.table("assign_submission"))

	rows, err := repo.queryAssignmentUsers(ctx, q, courseID)
	return rows, errors.Wrap(err, "querying missing details")
}

func (repo *courseRepository) QueryUngradedDetails(ctx context.Context, courseID int) ([]core.AssignmentUserRow, error) {
	q := fmt.Sprintf(`
		SELECT s.userid AS user_id,
		       u.firstname, u.lastname,
		       a.id AS assignment_id,
		       a.name AS assignment_name,
		       a.duedate AS due_ts
		FROM %s s
		JOIN %s a ON a.id = s.assignment
		JOIN %s u ON u.id = s.userid
		JOIN %s gi ON gi.itemmodule = 'assign' AND gi.iteminstance = a.id
		LEFT JOIN %s gg ON gg.itemid = gi.id AND gg.userid = s.userid
		WHERE a.course = ?
		  AND s.status = 'submitted'
		  AND s.latest = 1
		  AND (gg.id IS NULL OR gg.finalgrade IS NULL)
		ORDER BY s.id DESC`,
		repo.table("assign_submission"), repo.table("assign"), repo.table("user"),
		repo.table("grade_items"), repo.table("grade_grades"))

	rows, err := repo.queryAssignmentUsers(ctx, q, courseID)
	return rows, errors.Wrap(err, "querying ungraded details")
}

func (repo *courseRepository) QueryUserNames(ctx context.Context, userIDs []int) ([]core.UserName, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		UserID    int            `db:"id"`
		FirstName sql.NullString `db:"firstname"`
		LastName  sql.NullString `db:"lastname"`
	}
	q := fmt.Sprintf(`SELECT id, firstname, lastname FROM %s WHERE id IN (?)`, repo.table("user"))
	if err := repo.selectIn(ctx, &scans, q, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying user names")
	}
	rows := make([]core.UserName, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.UserName{
			UserID: s.UserID,
			Name:   strings.TrimSpace(s.FirstName.String + " " + s.LastName.String),
		})
	}
	return rows, nil
}

//
// mentor reads (all-course variants)
//

func (repo *courseRepository) QueryAvgGradeByUserAll(ctx context.Context, userIDs []int) ([]core.UserValue, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []core.UserValue
	q := fmt.Sprintf(`
		SELECT gg.userid AS userid, AVG(gg.finalgrade / NULLIF(gi.grademax,0)) * 100 AS value
		FROM %s gi
		JOIN %s gg ON gg.itemid = gi.id
		WHERE gg.userid IN (?)
		  AND gi.grademax > 0
		  AND gg.finalgrade IS NOT NULL
		GROUP BY gg.userid`,
		repo.table("grade_items"), repo.table("grade_grades"))
	if err := repo.selectIn(ctx, &rows, q, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying grades by user")
	}
	return rows, nil
}

func (repo *courseRepository) QueryMissingByUserAll(ctx context.Context, userIDs []int) ([]core.UserCount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []core.UserCount
	q := fmt.Sprintf(`
		SELECT ue.userid AS userid, COUNT(*) AS count
		FROM %s a
		JOIN %s e ON e.courseid = a.course
		JOIN %s ue ON ue.enrolid = e.id
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ue.userid AND s.latest = 1
		WHERE ue.userid IN (?)
		  AND a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')
		GROUP BY ue.userid`,
		repo.table("assign"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("assign_submission"))
	if err := repo.selectIn(ctx, &rows, q, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying missing by user")
	}
	return rows, nil
}

//
// admin reads
//

func (repo *courseRepository) QueryLastActivityByUserAll(ctx context.Context, userIDs []int) ([]core.UserTimestamp, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var scans []struct {
		UserID int           `db:"userid"`
		LastTS sql.NullInt64 `db:"last_ts"`
	}
	q := fmt.Sprintf(`
		SELECT userid, MAX(timecreated) AS last_ts
		FROM %s
		WHERE userid IN (?)
		GROUP BY userid`,
		repo.table("logstore_standard_log"))
	if err := repo.selectIn(ctx, &scans, q, userIDs); err != nil {
		return nil, errors.Wrap(err, "querying last activity by user")
	}
	rows := make([]core.UserTimestamp, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.UserTimestamp{UserID: s.UserID, LastTS: s.LastTS.Int64})
	}
	return rows, nil
}

func (repo *courseRepository) QueryActiveUsersPerDay(ctx context.Context, userIDs []int, days int) ([]core.DayCount, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var scans []dayCountScan
	q := fmt.Sprintf(`
		SELECT FROM_UNIXTIME(timecreated, '%%Y-%%m-%%d') AS d, COUNT(DISTINCT userid) AS c
		FROM %s
		WHERE userid IN (?)
		  AND timecreated >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		GROUP BY d`,
		repo.table("logstore_standard_log"))
	if err := repo.selectIn(ctx, &scans, q, userIDs, days-1); err != nil {
		return nil, errors.Wrap(err, "querying active users per day")
	}
	return dayCounts(scans), nil
}

func (repo *courseRepository) QueryLogVolumePerDay(ctx context.Context, days int) ([]core.DayCount, error) {
	var scans []dayCountScan
	q := fmt.Sprintf(`
		SELECT FROM_UNIXTIME(timecreated, '%%Y-%%m-%%d') AS d, COUNT(*) AS c
		FROM %s
		WHERE timecreated >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		GROUP BY d`,
		repo.table("logstore_standard_log"))
	if err := repo.db.SelectContext(ctx, &scans, q, days-1); err != nil {
		return nil, errors.Wrap(err, "querying log volume")
	}
	return dayCounts(scans), nil
}

func (repo *courseRepository) QueryConcurrentUsers(ctx context.Context, window core.TimeRange) ([]core.TimeCount, error) {
	var scans []struct {
		TS    int64 `db:"t"`
		Count int   `db:"c"`
	}
	q := fmt.Sprintf(`
		SELECT FLOOR(timecreated/300)*300 AS t, COUNT(DISTINCT userid) AS c
		FROM %s
		WHERE timecreated BETWEEN ? AND ?
		GROUP BY t
		ORDER BY t`,
		repo.table("logstore_standard_log"))
	if err := repo.db.SelectContext(ctx, &scans, q, window.Start, window.End); err != nil {
		return nil, errors.Wrap(err, "querying concurrent users")
	}
	rows := make([]core.TimeCount, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.TimeCount(s))
	}
	return rows, nil
}

func (repo *courseRepository) QueryCompletionsPerDayAll(ctx context.Context, days int) ([]core.DayCount, error) {
	var scans []dayCountScan
	q := fmt.Sprintf(`
		SELECT FROM_UNIXTIME(cmc.timemodified, '%%Y-%%m-%%d') AS d, COUNT(*) AS c
		FROM %s cmc
		WHERE cmc.timemodified >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		GROUP BY d`,
		repo.table("course_modules_completion"))
	if err := repo.db.SelectContext(ctx, &scans, q, days-1); err != nil {
		return nil, errors.Wrap(err, "querying completions per day")
	}
	return dayCounts(scans), nil
}

func (repo *courseRepository) GetOverdueAssignmentsCount(ctx context.Context) (int, error) {
	var cnt int
	q := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s a
		JOIN %s e ON e.courseid = a.course
		JOIN %s ue ON ue.enrolid = e.id
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ue.userid AND s.latest = 1
		WHERE a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')`,
		repo.table("assign"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("assign_submission"))
	if err := repo.db.GetContext(ctx, &cnt, q); err != nil {
		return 0, errors.Wrap(err, "counting overdue assignments")
	}
	return cnt, nil
}

func (repo *courseRepository) QueryAllCourses(ctx context.Context) ([]core.CourseRef, error) {
	var scans []struct {
		CourseID   int            `db:"id"`
		CourseName sql.NullString `db:"fullname"`
	}
	q := fmt.Sprintf(`SELECT id, fullname FROM %s WHERE id != 1`, repo.table("course"))
	if err := repo.db.SelectContext(ctx, &scans, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	refs := make([]core.CourseRef, 0, len(scans))
	for _, s := range scans {
		refs = append(refs, core.CourseRef{CourseID: s.CourseID, CourseName: s.CourseName.String})
	}
	return refs, nil
}

func (repo *courseRepository) QueryCourseMissingCounts(ctx context.Context, courseIDs []int) ([]core.CourseCount, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}
	var rows []core.CourseCount
	q := fmt.Sprintf(`
		SELECT a.course AS courseid, COUNT(*) AS count
		FROM %s a
		JOIN %s e ON e.courseid = a.course
		JOIN %s ue ON ue.enrolid = e.id
		LEFT JOIN %s s ON s.assignment = a.id AND s.userid = ue.userid AND s.latest = 1
		WHERE a.course IN (?)
		  AND a.duedate > 0
		  AND a.duedate < UNIX_TIMESTAMP(UTC_TIMESTAMP())
		  AND (s.id IS NULL OR s.status != 'submitted')
		GROUP BY a.course`,
		repo.table("assign"), repo.table("enrol"), repo.table("user_enrolments"),
		repo.table("assign_submission"))
	if err := repo.selectIn(ctx, &rows, q, courseIDs); err != nil {
		return nil, errors.Wrap(err, "querying course missing counts")
	}
	return rows, nil
}

func (repo *courseRepository) GetCompletionOverall(ctx context.Context) (core.CourseTotals, error) {
	var totals core.CourseTotals
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, repo.table("course_completions"))
	if err := repo.db.GetContext(ctx, &totals.Total, q); err != nil {
		return core.CourseTotals{}, errors.Wrap(err, "counting completions")
	}
	q = fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE timecompleted IS NOT NULL`, repo.table("course_completions"))
	if err := repo.db.GetContext(ctx, &totals.Completed, q); err != nil {
		return core.CourseTotals{}, errors.Wrap(err, "counting completed")
	}
	return totals, nil
}

func (repo *courseRepository) QueryAllStudents(ctx context.Context) ([]int, error) {
	var ids []int
	q := fmt.Sprintf(`
		SELECT DISTINCT ra.userid
		FROM %s ra
		JOIN %s ctx ON ctx.id = ra.contextid AND ctx.contextlevel = 50
		WHERE ra.roleid = 5`,
		repo.table("role_assignments"), repo.table("context"))
	if err := repo.db.SelectContext(ctx, &ids, q); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return ids, nil
}

func (repo *courseRepository) QueryCompletionRatePerDay(ctx context.Context, days int) ([]core.DayValue, error) {
	var scans []dayValueScan
	q := fmt.Sprintf(`
		SELECT FROM_UNIXTIME(cmc.timemodified, '%%Y-%%m-%%d') AS d,
		       ROUND(100.0 * SUM(CASE WHEN cmc.completionstate IN (1,2) THEN 1 ELSE 0 END) / NULLIF(COUNT(*),0), 1) AS v
		FROM %s cmc
		WHERE cmc.timemodified >= UNIX_TIMESTAMP(DATE_SUB(UTC_TIMESTAMP(), INTERVAL ? DAY))
		GROUP BY d`,
		repo.table("course_modules_completion"))
	if err := repo.db.SelectContext(ctx, &scans, q, days-1); err != nil {
		return nil, errors.Wrap(err, "querying completion rate per day")
	}
	rows := make([]core.DayValue, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.DayValue{Day: s.Day, Value: s.Value})
	}
	return rows, nil
}

func dayCounts(scans []dayCountScan) []core.DayCount {
	rows := make([]core.DayCount, 0, len(scans))
	for _, s := range scans {
		rows = append(rows, core.DayCount{Day: s.Day, Count: s.Count})
	}
	return rows
}
