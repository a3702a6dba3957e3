package utils

import (
	"strings"
	"time"
)

const (
	dbDateLayout     = "2006-01-02"
	portalDateLayout = "02.01.2006"
)

// ToDatabaseDate converts a portal date (dd.MM.yyyy) to the storage
// format (yyyy-MM-dd). Unparseable input is returned unchanged so the
// caller's validator can reject it with the original text intact.
func ToDatabaseDate(portalDate string) string {
	t, err := time.Parse(portalDateLayout, strings.TrimSpace(portalDate))
	if err != nil {
		return portalDate
	}
	return t.Format(dbDateLayout)
}

// WeekTypeForDate returns 1 for even ISO weeks and 0 for odd ones.
// Unparseable dates fall back to 0.
func WeekTypeForDate(date string) int {
	t, err := time.Parse(dbDateLayout, date)
	if err != nil {
		return 0
	}
	_, week := t.ISOWeek()
	if week%2 == 0 {
		return 1
	}
	return 0
}

// CurrentWeekType returns the week type of today.
func CurrentWeekType() int {
	return WeekTypeForDate(time.Now().Format(dbDateLayout))
}

var relativeDays = map[string]int{
	"сегодня":    0,
	"завтра":     1,
	"послезавтра": 2,
	"вчера":      -1,
	"позавчера":  -2,
}

var weekdayNames = map[string]time.Weekday{
	"понедельник": time.Monday,
	"вторник":     time.Tuesday,
	"среду":       time.Wednesday,
	"среда":       time.Wednesday,
	"четверг":     time.Thursday,
	"пятницу":     time.Friday,
	"пятница":     time.Friday,
	"субботу":     time.Saturday,
	"суббота":     time.Saturday,
	"воскресенье": time.Sunday,
}

// ParseRelativeDate resolves Russian relative-day words and weekday
// names mentioned in free text to an absolute date. Weekday names mean
// the next occurrence strictly after today. Returns false when the
// text mentions no recognizable date word.
func ParseRelativeDate(text string) (string, bool) {
	return parseRelativeDateFrom(text, time.Now())
}

func parseRelativeDateFrom(text string, now time.Time) (string, bool) {
	lower := strings.ToLower(text)

	// "послезавтра" contains "завтра", so longer keys must win.
	if strings.Contains(lower, "послезавтра") {
		return now.AddDate(0, 0, 2).Format(dbDateLayout), true
	}
	if strings.Contains(lower, "позавчера") {
		return now.AddDate(0, 0, -2).Format(dbDateLayout), true
	}
	for word, offset := range relativeDays {
		if strings.Contains(lower, word) {
			return now.AddDate(0, 0, offset).Format(dbDateLayout), true
		}
	}
	for name, weekday := range weekdayNames {
		if strings.Contains(lower, name) {
			offset := int(weekday - now.Weekday())
			if offset <= 0 {
				offset += 7
			}
			return now.AddDate(0, 0, offset).Format(dbDateLayout), true
		}
	}
	return "", false
}

// CurrentDate returns today in storage format.
func CurrentDate() string {
	return time.Now().Format(dbDateLayout)
}

// DateWithOffset returns today shifted by the given number of days.
func DateWithOffset(days int) string {
	return time.Now().AddDate(0, 0, days).Format(dbDateLayout)
}

// DaysBetween returns the whole-day distance from one storage date to
// another. Unparseable input yields 0.
func DaysBetween(from, to string) int {
	a, err := time.Parse(dbDateLayout, from)
	if err != nil {
		return 0
	}
	b, err := time.Parse(dbDateLayout, to)
	if err != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// IsDatePassed reports whether the date lies strictly before today.
func IsDatePassed(date string) bool {
	t, err := time.Parse(dbDateLayout, date)
	if err != nil {
		return false
	}
	today, _ := time.Parse(dbDateLayout, time.Now().Format(dbDateLayout))
	return t.Before(today)
}

// WeekDates returns the Monday-to-Sunday dates of the week containing
// the given date.
func WeekDates(forDate string) []string {
	t, err := time.Parse(dbDateLayout, forDate)
	if err != nil {
		return nil
	}
	offset := int(t.Weekday() - time.Monday)
	if offset < 0 {
		offset += 7
	}
	monday := t.AddDate(0, 0, -offset)
	dates := make([]string, 7)
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i).Format(dbDateLayout)
	}
	return dates
}
