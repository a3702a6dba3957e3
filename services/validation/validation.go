package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"schoolsync_go/models"
)

// Result collects everything wrong with a record. Callers log and skip
// invalid records instead of failing the batch.
type Result struct {
	Errors []string
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) add(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

var (
	isoDateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe    = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

// IsValidTime accepts HH:MM between 00:00 and 23:59. Blank is valid
// because the portal omits times on some lessons.
func IsValidTime(t string) bool {
	if t == "" {
		return true
	}
	return timeRe.MatchString(t)
}

func isISODate(d string) bool {
	return isoDateRe.MatchString(d)
}

// ValidateTask checks a task before it is written to the store.
func ValidateTask(t models.Task) Result {
	var r Result
	if strings.TrimSpace(t.Title) == "" {
		r.add("title must not be blank")
	}
	if utf8.RuneCountInString(t.Title) > 200 {
		r.add("title exceeds 200 characters")
	}
	if utf8.RuneCountInString(t.Description) > 1000 {
		r.add("description exceeds 1000 characters")
	}
	if t.Deadline != "" && !isISODate(t.Deadline) {
		r.add("deadline %q is not a yyyy-MM-dd date", t.Deadline)
	}
	switch t.Status {
	case models.TaskStatusActive, models.TaskStatusCompleted, models.TaskStatusArchived:
	default:
		r.add("status %q is not one of active, completed, archived", t.Status)
	}
	return r
}

// ValidateScheduleEntry checks a fetched lesson.
func ValidateScheduleEntry(e models.ScheduleEntry) Result {
	var r Result
	if !isISODate(e.Date) {
		r.add("date %q is not a yyyy-MM-dd date", e.Date)
	}
	if !IsValidTime(e.StartTime) {
		r.add("start time %q is not HH:MM", e.StartTime)
	}
	if !IsValidTime(e.EndTime) {
		r.add("end time %q is not HH:MM", e.EndTime)
	}
	if e.WeekType < models.WeekTypeOdd || e.WeekType > models.WeekTypeBoth {
		r.add("week type %d is out of range 0..2", e.WeekType)
	}
	return r
}

// ValidateSubject checks a subject record.
func ValidateSubject(s models.Subject) Result {
	var r Result
	if strings.TrimSpace(s.Name) == "" {
		r.add("subject name must not be blank")
	}
	if utf8.RuneCountInString(s.Name) > 200 {
		r.add("subject name exceeds 200 characters")
	}
	return r
}

// ValidateTeacher checks a teacher record.
func ValidateTeacher(t models.Teacher) Result {
	var r Result
	if strings.TrimSpace(t.Name) == "" {
		r.add("teacher name must not be blank")
	}
	if utf8.RuneCountInString(t.Name) > 100 {
		r.add("teacher name exceeds 100 characters")
	}
	return r
}

// ValidateStudentInfo checks a scraped profile.
func ValidateStudentInfo(s models.StudentInfo) Result {
	var r Result
	if strings.TrimSpace(s.FullName) == "" {
		r.add("student name must not be blank")
	}
	if strings.TrimSpace(s.GroupName) == "" {
		r.add("group name must not be blank")
	}
	return r
}
