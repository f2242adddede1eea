package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/kipimo/core"
)

// courseRepository must stay import-free of the role packages so their
// in-package tests can seed it; compliance checks live in compliance_test.go.
type courseRepository struct {
	db *DB
}

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

func intSet(ids []int) map[int]bool {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// lastNDaysCutoff is the UNIX second of 00:00:00 UTC, days-1 days ago.
func (repo *courseRepository) lastNDaysCutoff(days int) int64 {
	now := repo.db.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(days - 1))
	return start.Unix()
}

func dayKey(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(core.DayKeyLayout)
}

func sortedDayCounts(byDay map[string]int) []core.DayCount {
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	rows := make([]core.DayCount, 0, len(days))
	for _, d := range days {
		rows = append(rows, core.DayCount{Day: d, Count: byDay[d]})
	}
	return rows
}

func (repo *courseRepository) missing(rec AssignmentRecord, now int64) bool {
	return !rec.Submitted && rec.DueTS > 0 && rec.DueTS < now
}

//
// student reads
//

func (repo *courseRepository) GetOverallCourses(_ context.Context, userID int) (core.CourseTotals, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var totals core.CourseTotals
	for _, i := range repo.db.course.progressBy[userID] {
		totals.Total++
		if repo.db.course.progress[i].Completed {
			totals.Completed++
		}
	}
	return totals, nil
}

func (repo *courseRepository) QueryCourseProgress(_ context.Context, userID, courseID int) ([]core.CourseProgressRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var rows []core.CourseProgressRow
	for _, i := range repo.db.course.progressBy[userID] {
		row := repo.db.course.progress[i]
		if courseID > 0 && row.CourseID != courseID {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (repo *courseRepository) QueryContinueLearning(_ context.Context, userID int) ([]core.ContinueRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	lastByCourse := make(map[int]int64)
	for _, ev := range repo.db.course.events {
		if ev.UserID == userID && ev.Timestamp > lastByCourse[ev.CourseID] {
			lastByCourse[ev.CourseID] = ev.Timestamp
		}
	}
	var rows []core.ContinueRow
	for _, i := range repo.db.course.progressBy[userID] {
		p := repo.db.course.progress[i]
		if p.Completed {
			continue
		}
		rows = append(rows, core.ContinueRow{
			CourseID:            p.CourseID,
			CourseName:          p.CourseName,
			TotalActivities:     p.TotalActivities,
			CompletedActivities: p.CompletedActivities,
			LastTS:              lastByCourse[p.CourseID],
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].LastTS > rows[j].LastTS })
	return rows, nil
}

func (repo *courseRepository) QueryAvgGradeByCourse(_ context.Context, userID int) ([]core.CourseValue, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, g := range repo.db.course.grades {
		if g.UserID == userID {
			sums[g.CourseID] += g.Percent
			counts[g.CourseID]++
		}
	}
	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]core.CourseValue, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, core.CourseValue{CourseID: id, Value: sums[id] / float64(counts[id])})
	}
	return rows, nil
}

func (repo *courseRepository) QueryMissingAssignments(_ context.Context, userID, limit int) ([]core.AssignmentRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	var rows []core.AssignmentRow
	for _, rec := range repo.db.course.assignments {
		if rec.UserID == userID && repo.missing(rec, now) {
			rows = append(rows, assignmentRow(rec))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DueTS < rows[j].DueTS })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (repo *courseRepository) QueryDueSoonAssignments(_ context.Context, userID, days, limit int) ([]core.AssignmentRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	horizon := now + int64(days)*86400
	var rows []core.AssignmentRow
	for _, rec := range repo.db.course.assignments {
		if rec.UserID == userID && !rec.Submitted && rec.DueTS >= now && rec.DueTS <= horizon {
			rows = append(rows, assignmentRow(rec))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DueTS < rows[j].DueTS })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func assignmentRow(rec AssignmentRecord) core.AssignmentRow {
	return core.AssignmentRow{
		CourseID:       rec.CourseID,
		CourseName:     rec.CourseName,
		AssignmentID:   rec.AssignmentID,
		AssignmentName: rec.AssignmentName,
		DueTS:          rec.DueTS,
	}
}

func (repo *courseRepository) QueryCompletionsPerDay(_ context.Context, userID, days int) ([]core.DayCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	cutoff := repo.lastNDaysCutoff(days)
	byDay := make(map[string]int)
	for _, c := range repo.db.course.completions {
		if c.UserID == userID && c.Timestamp >= cutoff {
			byDay[dayKey(c.Timestamp)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *courseRepository) GetLastActivity(_ context.Context, userID int) (int64, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var last int64
	for _, ev := range repo.db.course.events {
		if ev.UserID == userID && ev.Timestamp > last {
			last = ev.Timestamp
		}
	}
	return last, nil
}

func (repo *courseRepository) GetCourseLastActivity(_ context.Context, userID, courseID int) (int64, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var last int64
	for _, ev := range repo.db.course.events {
		if ev.UserID == userID && ev.CourseID == courseID && ev.Timestamp > last {
			last = ev.Timestamp
		}
	}
	return last, nil
}

func (repo *courseRepository) GetCourseTeacherName(_ context.Context, courseID int) (string, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.courses[courseID]; ok {
		return c.TeacherName, nil
	}
	return "", nil
}

func (repo *courseRepository) GetCourseTags(_ context.Context, courseID int) ([]string, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.courses[courseID]; ok {
		return c.Tags, nil
	}
	return nil, nil
}

func (repo *courseRepository) GetStudentMissingCount(_ context.Context, userID, courseID int) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	var cnt int
	for _, rec := range repo.db.course.assignments {
		if rec.UserID == userID && rec.CourseID == courseID && repo.missing(rec, now) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *courseRepository) QueryCourseModules(_ context.Context, userID, courseID int) ([]core.ModuleRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	return repo.db.course.modules[courseID][userID], nil
}

func (repo *courseRepository) QueryActivityLog(_ context.Context, userID, courseID, days int) ([]core.ActivityEvent, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	cutoff := repo.lastNDaysCutoff(days)
	var events []core.ActivityEvent
	for _, ev := range repo.db.course.events {
		if ev.UserID == userID && ev.CourseID == courseID && ev.Timestamp >= cutoff {
			events = append(events, core.ActivityEvent{UserID: ev.UserID, Timestamp: ev.Timestamp})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp < events[j].Timestamp })
	return events, nil
}

//
// teacher reads
//

func (repo *courseRepository) QueryTeacherCourses(_ context.Context, teacherID int) ([]core.CourseRef, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var refs []core.CourseRef
	for _, c := range repo.db.course.courses {
		if c.TeacherID == teacherID {
			refs = append(refs, c.CourseRef)
		}
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CourseID < refs[j].CourseID })
	return refs, nil
}

func (repo *courseRepository) QueryStudentsInCourses(_ context.Context, courseIDs []int) ([]int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	students := intSet(repo.db.course.students)
	seen := make(map[int]bool)
	var ids []int
	for _, cid := range courseIDs {
		for _, uid := range repo.db.course.enrolments[cid] {
			if students[uid] && !seen[uid] {
				seen[uid] = true
				ids = append(ids, uid)
			}
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *courseRepository) QueryCourseEnrolCounts(_ context.Context, courseIDs []int) ([]core.CourseCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	rows := make([]core.CourseCount, 0, len(courseIDs))
	for _, cid := range courseIDs {
		seen := make(map[int]bool)
		for _, uid := range repo.db.course.enrolments[cid] {
			seen[uid] = true
		}
		rows = append(rows, core.CourseCount{CourseID: cid, Count: len(seen)})
	}
	return rows, nil
}

// requiredModules counts a course's completion-tracked activities; module
// lists are seeded per user so the widest view wins.
func (repo *courseRepository) requiredModules(courseID int) int {
	var total int
	for _, mods := range repo.db.course.modules[courseID] {
		var cnt int
		for _, m := range mods {
			if m.CompletionRequired {
				cnt++
			}
		}
		if cnt > total {
			total = cnt
		}
	}
	return total
}

func (repo *courseRepository) QueryCourseCompletion(_ context.Context, courseIDs []int) ([]core.CourseCompletionRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	rows := make([]core.CourseCompletionRow, 0, len(courseIDs))
	for _, cid := range courseIDs {
		row := core.CourseCompletionRow{CourseID: cid, TotalActivities: repo.requiredModules(cid)}
		for _, mods := range repo.db.course.modules[cid] {
			for _, m := range mods {
				if m.CompletionRequired && (m.CompletionState == 1 || m.CompletionState == 2) {
					row.CompletedActivities++
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (repo *courseRepository) QueryLastActivityByUser(_ context.Context, courseIDs, userIDs []int) ([]core.UserTimestamp, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses, users := intSet(courseIDs), intSet(userIDs)
	last := make(map[int]int64)
	for _, ev := range repo.db.course.events {
		if courses[ev.CourseID] && users[ev.UserID] && ev.Timestamp > last[ev.UserID] {
			last[ev.UserID] = ev.Timestamp
		}
	}
	return userTimestamps(last), nil
}

func (repo *courseRepository) QueryLastActivityByUserAll(_ context.Context, userIDs []int) ([]core.UserTimestamp, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	users := intSet(userIDs)
	last := make(map[int]int64)
	for _, ev := range repo.db.course.events {
		if users[ev.UserID] && ev.Timestamp > last[ev.UserID] {
			last[ev.UserID] = ev.Timestamp
		}
	}
	return userTimestamps(last), nil
}

func userTimestamps(last map[int]int64) []core.UserTimestamp {
	ids := make([]int, 0, len(last))
	for id := range last {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]core.UserTimestamp, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, core.UserTimestamp{UserID: id, LastTS: last[id]})
	}
	return rows
}

func (repo *courseRepository) QueryProgressByUser(_ context.Context, userIDs []int) ([]core.UserProgressRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	rows := make([]core.UserProgressRow, 0, len(userIDs))
	for _, uid := range userIDs {
		row := core.UserProgressRow{UserID: uid}
		for _, i := range repo.db.course.progressBy[uid] {
			p := repo.db.course.progress[i]
			row.TotalActivities += p.TotalActivities
			row.CompletedActivities += p.CompletedActivities
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (repo *courseRepository) QueryCourseActivityLog(_ context.Context, courseIDs, userIDs []int, window core.TimeRange) ([]core.ActivityEvent, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses, users := intSet(courseIDs), intSet(userIDs)
	var events []core.ActivityEvent
	for _, ev := range repo.db.course.events {
		if !courses[ev.CourseID] || !users[ev.UserID] {
			continue
		}
		if !window.IsZero() && !window.Contains(ev.Timestamp) {
			continue
		}
		events = append(events, core.ActivityEvent{UserID: ev.UserID, Timestamp: ev.Timestamp})
	}
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].UserID != events[j].UserID {
			return events[i].UserID < events[j].UserID
		}
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, nil
}

func (repo *courseRepository) GetUngradedCount(_ context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses, users := intSet(courseIDs), intSet(userIDs)
	now := repo.db.Now().UTC().Unix()
	var cnt int
	for _, rec := range repo.db.course.assignments {
		if !courses[rec.CourseID] || !users[rec.UserID] || !rec.Submitted || rec.Graded {
			continue
		}
		if window.IsZero() {
			if rec.DueTS > 0 && rec.DueTS < now {
				cnt++
			}
		} else if window.Contains(rec.DueTS) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *courseRepository) QueryActiveStudents(_ context.Context, courseIDs []int, window core.TimeRange) ([]int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses := intSet(courseIDs)
	students := intSet(repo.db.course.students)
	seen := make(map[int]bool)
	var ids []int
	for _, ev := range repo.db.course.events {
		if courses[ev.CourseID] && students[ev.UserID] && window.Contains(ev.Timestamp) && !seen[ev.UserID] {
			seen[ev.UserID] = true
			ids = append(ids, ev.UserID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (repo *courseRepository) GetTotalActivities(_ context.Context, courseIDs []int) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var total int
	for _, cid := range courseIDs {
		total += repo.requiredModules(cid)
	}
	return total, nil
}

func (repo *courseRepository) GetWindowCompletions(_ context.Context, courseIDs, userIDs []int, window core.TimeRange) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	courses, users := intSet(courseIDs), intSet(userIDs)
	var cnt int
	for _, c := range repo.db.course.completions {
		if courses[c.CourseID] && users[c.UserID] && (c.State == 1 || c.State == 2) && window.Contains(c.Timestamp) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *courseRepository) GetCourseName(_ context.Context, courseID int) (string, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.courses[courseID]; ok {
		return c.CourseName, nil
	}
	return "", nil
}

func (repo *courseRepository) GetCourseRating(_ context.Context, courseID int) (core.CourseRating, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if c, ok := repo.db.course.courses[courseID]; ok {
		return c.Rating, nil
	}
	return core.CourseRating{}, nil
}

func (repo *courseRepository) QueryAvgGradeByUser(_ context.Context, courseIDs, userIDs []int) ([]core.UserValue, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	return repo.avgGrades(intSet(courseIDs), intSet(userIDs)), nil
}

func (repo *courseRepository) QueryAvgGradeByUserAll(_ context.Context, userIDs []int) ([]core.UserValue, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	return repo.avgGrades(nil, intSet(userIDs)), nil
}

func (repo *courseRepository) avgGrades(courses, users map[int]bool) []core.UserValue {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, g := range repo.db.course.grades {
		if !users[g.UserID] {
			continue
		}
		if courses != nil && !courses[g.CourseID] {
			continue
		}
		sums[g.UserID] += g.Percent
		counts[g.UserID]++
	}
	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]core.UserValue, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, core.UserValue{UserID: id, Value: sums[id] / float64(counts[id])})
	}
	return rows
}

func (repo *courseRepository) QueryMissingByUser(_ context.Context, courseIDs, userIDs []int) ([]core.UserCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	return repo.missingCounts(intSet(courseIDs), intSet(userIDs)), nil
}

func (repo *courseRepository) QueryMissingByUserAll(_ context.Context, userIDs []int) ([]core.UserCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	return repo.missingCounts(nil, intSet(userIDs)), nil
}

func (repo *courseRepository) missingCounts(courses, users map[int]bool) []core.UserCount {
	now := repo.db.Now().UTC().Unix()
	counts := make(map[int]int)
	for _, rec := range repo.db.course.assignments {
		if !users[rec.UserID] {
			continue
		}
		if courses != nil && !courses[rec.CourseID] {
			continue
		}
		if repo.missing(rec, now) {
			counts[rec.UserID]++
		}
	}
	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	rows := make([]core.UserCount, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, core.UserCount{UserID: id, Count: counts[id]})
	}
	return rows
}

func (repo *courseRepository) QueryMissingDetails(_ context.Context, courseID int) ([]core.AssignmentUserRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	var rows []core.AssignmentUserRow
	for _, rec := range repo.db.course.assignments {
		if rec.CourseID == courseID && repo.missing(rec, now) {
			rows = append(rows, repo.assignmentUserRow(rec))
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].DueTS < rows[j].DueTS })
	return rows, nil
}

func (repo *courseRepository) QueryUngradedDetails(_ context.Context, courseID int) ([]core.AssignmentUserRow, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var rows []core.AssignmentUserRow
	for _, rec := range repo.db.course.assignments {
		if rec.CourseID == courseID && rec.Submitted && !rec.Graded {
			rows = append(rows, repo.assignmentUserRow(rec))
		}
	}
	return rows, nil
}

func (repo *courseRepository) assignmentUserRow(rec AssignmentRecord) core.AssignmentUserRow {
	u := repo.db.course.users[rec.UserID]
	return core.AssignmentUserRow{
		UserID:         rec.UserID,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		AssignmentID:   rec.AssignmentID,
		AssignmentName: rec.AssignmentName,
		DueTS:          rec.DueTS,
	}
}

func (repo *courseRepository) QueryUserNames(_ context.Context, userIDs []int) ([]core.UserName, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var rows []core.UserName
	for _, uid := range userIDs {
		if u, ok := repo.db.course.users[uid]; ok {
			name := u.FirstName
			if u.LastName != "" {
				name += " " + u.LastName
			}
			rows = append(rows, core.UserName{UserID: uid, Name: name})
		}
	}
	return rows, nil
}

//
// admin reads
//

func (repo *courseRepository) QueryActiveUsersPerDay(_ context.Context, userIDs []int, days int) ([]core.DayCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	users := intSet(userIDs)
	cutoff := repo.lastNDaysCutoff(days)
	seen := make(map[string]map[int]bool)
	for _, ev := range repo.db.course.events {
		if !users[ev.UserID] || ev.Timestamp < cutoff {
			continue
		}
		day := dayKey(ev.Timestamp)
		if seen[day] == nil {
			seen[day] = make(map[int]bool)
		}
		seen[day][ev.UserID] = true
	}
	byDay := make(map[string]int, len(seen))
	for day, us := range seen {
		byDay[day] = len(us)
	}
	return sortedDayCounts(byDay), nil
}

func (repo *courseRepository) QueryLogVolumePerDay(_ context.Context, days int) ([]core.DayCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	cutoff := repo.lastNDaysCutoff(days)
	byDay := make(map[string]int)
	for _, ev := range repo.db.course.events {
		if ev.Timestamp >= cutoff {
			byDay[dayKey(ev.Timestamp)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *courseRepository) QueryConcurrentUsers(_ context.Context, window core.TimeRange) ([]core.TimeCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	// 5-minute buckets
	buckets := make(map[int64]map[int]bool)
	for _, ev := range repo.db.course.events {
		if !window.Contains(ev.Timestamp) {
			continue
		}
		b := ev.Timestamp / 300 * 300
		if buckets[b] == nil {
			buckets[b] = make(map[int]bool)
		}
		buckets[b][ev.UserID] = true
	}
	ts := make([]int64, 0, len(buckets))
	for t := range buckets {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	rows := make([]core.TimeCount, 0, len(ts))
	for _, t := range ts {
		rows = append(rows, core.TimeCount{TS: t, Count: len(buckets[t])})
	}
	return rows, nil
}

func (repo *courseRepository) QueryCompletionsPerDayAll(_ context.Context, days int) ([]core.DayCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	cutoff := repo.lastNDaysCutoff(days)
	byDay := make(map[string]int)
	for _, c := range repo.db.course.completions {
		if c.Timestamp >= cutoff {
			byDay[dayKey(c.Timestamp)]++
		}
	}
	return sortedDayCounts(byDay), nil
}

func (repo *courseRepository) GetOverdueAssignmentsCount(_ context.Context) (int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	var cnt int
	for _, rec := range repo.db.course.assignments {
		if repo.missing(rec, now) {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]core.CourseRef, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	refs := make([]core.CourseRef, 0, len(repo.db.course.courses))
	for _, c := range repo.db.course.courses {
		refs = append(refs, c.CourseRef)
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].CourseID < refs[j].CourseID })
	return refs, nil
}

func (repo *courseRepository) QueryCourseMissingCounts(_ context.Context, courseIDs []int) ([]core.CourseCount, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	now := repo.db.Now().UTC().Unix()
	courses := intSet(courseIDs)
	counts := make(map[int]int)
	for _, rec := range repo.db.course.assignments {
		if courses[rec.CourseID] && repo.missing(rec, now) {
			counts[rec.CourseID]++
		}
	}
	rows := make([]core.CourseCount, 0, len(counts))
	for _, cid := range courseIDs {
		if n, ok := counts[cid]; ok {
			rows = append(rows, core.CourseCount{CourseID: cid, Count: n})
		}
	}
	return rows, nil
}

func (repo *courseRepository) GetCompletionOverall(_ context.Context) (core.CourseTotals, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	var totals core.CourseTotals
	for _, p := range repo.db.course.progress {
		totals.Total++
		if p.Completed {
			totals.Completed++
		}
	}
	return totals, nil
}

func (repo *courseRepository) QueryAllStudents(_ context.Context) ([]int, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	ids := append([]int(nil), repo.db.course.students...)
	sort.Ints(ids)
	return ids, nil
}

func (repo *courseRepository) QueryCompletionRatePerDay(_ context.Context, days int) ([]core.DayValue, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	cutoff := repo.lastNDaysCutoff(days)
	total := make(map[string]int)
	done := make(map[string]int)
	for _, c := range repo.db.course.completions {
		if c.Timestamp < cutoff {
			continue
		}
		day := dayKey(c.Timestamp)
		total[day]++
		if c.State == 1 || c.State == 2 {
			done[day]++
		}
	}
	keys := make([]string, 0, len(total))
	for d := range total {
		keys = append(keys, d)
	}
	sort.Strings(keys)
	rows := make([]core.DayValue, 0, len(keys))
	for _, d := range keys {
		rows = append(rows, core.DayValue{Day: d, Value: core.SafeRate(float64(done[d]), float64(total[d]), 100, 1)})
	}
	return rows, nil
}
