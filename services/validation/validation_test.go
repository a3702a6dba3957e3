package validation

import (
	"strings"
	"testing"

	"schoolsync_go/models"
)

func TestIsValidTime(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"08:30", true},
		{"8:30", true},
		{"23:59", true},
		{"00:00", true},
		{"24:00", false},
		{"12:60", false},
		{"1230", false},
		{"ab:cd", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			if got := IsValidTime(tc.input); got != tc.want {
				t.Errorf("IsValidTime(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestValidateTask(t *testing.T) {
	valid := models.Task{Title: "ДЗ: математика", Deadline: "2025-09-20", Status: models.TaskStatusActive}

	cases := []struct {
		name    string
		mutate  func(*models.Task)
		wantErr bool
	}{
		{"valid task", func(*models.Task) {}, false},
		{"blank deadline allowed", func(t *models.Task) { t.Deadline = "" }, false},
		{"blank title", func(t *models.Task) { t.Title = "   " }, true},
		{"title too long", func(t *models.Task) { t.Title = strings.Repeat("я", 201) }, true},
		{"title at limit", func(t *models.Task) { t.Title = strings.Repeat("я", 200) }, false},
		{"description too long", func(t *models.Task) { t.Description = strings.Repeat("x", 1001) }, true},
		{"portal-format deadline rejected", func(t *models.Task) { t.Deadline = "20.09.2025" }, true},
		{"unknown status", func(t *models.Task) { t.Status = "done" }, true},
		{"completed status", func(t *models.Task) { t.Status = models.TaskStatusCompleted }, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			task := valid
			tc.mutate(&task)
			r := ValidateTask(task)
			if r.Valid() == tc.wantErr {
				t.Errorf("ValidateTask errors = %v, wantErr = %v", r.Errors, tc.wantErr)
			}
		})
	}
}

func TestValidateScheduleEntry(t *testing.T) {
	valid := models.ScheduleEntry{Date: "2025-09-15", StartTime: "08:30", EndTime: "10:00", WeekType: 1}

	cases := []struct {
		name    string
		mutate  func(*models.ScheduleEntry)
		wantErr bool
	}{
		{"valid entry", func(*models.ScheduleEntry) {}, false},
		{"blank times allowed", func(e *models.ScheduleEntry) { e.StartTime, e.EndTime = "", "" }, false},
		{"portal-format date", func(e *models.ScheduleEntry) { e.Date = "15.09.2025" }, true},
		{"bad start time", func(e *models.ScheduleEntry) { e.StartTime = "25:00" }, true},
		{"week type both", func(e *models.ScheduleEntry) { e.WeekType = models.WeekTypeBoth }, false},
		{"week type out of range", func(e *models.ScheduleEntry) { e.WeekType = 3 }, true},
		{"negative week type", func(e *models.ScheduleEntry) { e.WeekType = -1 }, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			entry := valid
			tc.mutate(&entry)
			r := ValidateScheduleEntry(entry)
			if r.Valid() == tc.wantErr {
				t.Errorf("ValidateScheduleEntry errors = %v, wantErr = %v", r.Errors, tc.wantErr)
			}
		})
	}
}

func TestValidateSubjectAndTeacher(t *testing.T) {
	if r := ValidateSubject(models.Subject{Name: "Математический анализ"}); !r.Valid() {
		t.Errorf("valid subject rejected: %v", r.Errors)
	}
	if r := ValidateSubject(models.Subject{Name: ""}); r.Valid() {
		t.Error("blank subject name accepted")
	}
	if r := ValidateSubject(models.Subject{Name: strings.Repeat("а", 201)}); r.Valid() {
		t.Error("over-long subject name accepted")
	}
	if r := ValidateTeacher(models.Teacher{Name: "Иванов Иван Иванович"}); !r.Valid() {
		t.Errorf("valid teacher rejected: %v", r.Errors)
	}
	if r := ValidateTeacher(models.Teacher{Name: strings.Repeat("а", 101)}); r.Valid() {
		t.Error("over-long teacher name accepted")
	}
}

func TestValidateStudentInfo(t *testing.T) {
	if r := ValidateStudentInfo(models.StudentInfo{FullName: "Петров Пётр", GroupName: "ИС-21"}); !r.Valid() {
		t.Errorf("valid student info rejected: %v", r.Errors)
	}
	if r := ValidateStudentInfo(models.StudentInfo{FullName: "", GroupName: "ИС-21"}); r.Valid() {
		t.Error("blank student name accepted")
	}
	if r := ValidateStudentInfo(models.StudentInfo{FullName: "Петров Пётр", GroupName: " "}); r.Valid() {
		t.Error("blank group accepted")
	}
}
