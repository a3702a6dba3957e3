package classifier

import (
	"regexp"
	"strconv"
	"strings"
)

// Message categories. PRACTICE is only ever reached through the file
// name heuristic; no body keywords score it.
const (
	TypeSchedule    = "SCHEDULE"
	TypeReplacement = "REPLACEMENT"
	TypeHomework    = "HOMEWORK"
	TypeExam        = "EXAM"
	TypePractice    = "PRACTICE"
	TypeOther       = "OTHER"
)

// Result is the outcome of classifying one message.
type Result struct {
	Type       string
	Confidence float64
	Extracted  map[string][]string
}

var scheduleKeywords = []string{
	"расписание", "расписани", "schedule", "понедельник", "вторник", "среда",
	"четверг", "пятница", "суббота", "неделя", "пар", "урок",
}

var replacementKeywords = []string{
	"замена", "добавление", "добавлен", "отмена", "перенос", "пересдача", "вместо", "изменение",
}

var homeworkKeywords = []string{
	"домаш", "дз", "домашка", "задание", "упражнение", "лабораторная",
	"практическая", "лаб", "проект", "курсовая", "exercise", "homework",
}

var examKeywords = []string{
	"экзамен", "зачёт", "зачет", "билет", "вопрос", "тест", "практика",
}

// categoryOrder fixes the tie break: the first category with the
// maximum score wins.
var categoryOrder = []string{
	TypeSchedule, TypeReplacement, TypeHomework, TypeExam, TypePractice, TypeOther,
}

// Classify scores the message body against the keyword lists, adds a
// file-name bonus, and extracts structured fragments. Deterministic and
// safe for concurrent use. Pass fileName "" for plain text messages.
func Classify(content, fileName string) Result {
	lowerContent := strings.ToLower(content)
	lowerFileName := strings.ToLower(fileName)

	scores := map[string]float64{}
	score := func(category string, keywords []string) {
		for _, kw := range keywords {
			if strings.Contains(lowerContent, kw) {
				scores[category]++
			}
		}
	}
	score(TypeSchedule, scheduleKeywords)
	score(TypeReplacement, replacementKeywords)
	score(TypeHomework, homeworkKeywords)
	score(TypeExam, examKeywords)

	if fileName != "" {
		switch {
		case strings.Contains(lowerFileName, "расписание") || strings.Contains(lowerFileName, "schedule"):
			scores[TypeSchedule] += 2
		case strings.Contains(lowerFileName, "замен") || strings.Contains(lowerFileName, "replacement"):
			scores[TypeReplacement] += 2
		case strings.Contains(lowerFileName, "домаш") || strings.Contains(lowerFileName, "homework") ||
			strings.Contains(lowerFileName, "дз"):
			scores[TypeHomework] += 2
		case strings.Contains(lowerFileName, "экзамен") || strings.Contains(lowerFileName, "exam") ||
			strings.Contains(lowerFileName, "зачет"):
			scores[TypeExam] += 2
		case strings.Contains(lowerFileName, "практик") || strings.Contains(lowerFileName, "practice") ||
			strings.Contains(lowerFileName, "лаб"):
			scores[TypePractice] += 2
		}
	}

	best := TypeOther
	var bestScore float64
	for _, category := range categoryOrder {
		if scores[category] > bestScore {
			best = category
			bestScore = scores[category]
		}
	}

	confidence := bestScore / float64(len(scheduleKeywords)+1)
	if confidence < 0.3 && bestScore < 2 {
		best = TypeOther
	}

	return Result{Type: best, Confidence: confidence, Extracted: extractStructured(content)}
}

var (
	// \b is ASCII-only in Go regexps, so boundaries next to Cyrillic
	// letters are dropped rather than silently never matching.
	groupRe   = regexp.MustCompile(`\b\d{1,3}[А-ЯЁа-яёA-Za-z]{0,3}-?\d{0,2}`)
	pairRe    = regexp.MustCompile(`(?i)([1-6])[-\s]?я?\s*пара`)
	roomRe    = regexp.MustCompile(`(?i)(?:каб\.?|ауд\.?|room)\s*(\d{1,4}[A-Za-zА-Яа-яёЁ]?)`)
	dateRe    = regexp.MustCompile(`\b\d{1,2}\.\d{1,2}\.\d{2,4}\b`)
	teacherRe = regexp.MustCompile(`[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+)?`)
)

// extractStructured pulls group numbers, pair numbers, rooms, dates and
// capitalized name sequences out of the text, independent of category.
func extractStructured(content string) map[string][]string {
	data := map[string][]string{}

	if groups := dedupe(groupRe.FindAllString(content, -1)); len(groups) > 0 {
		data["groups"] = groups
	}

	var pairs []string
	for _, m := range pairRe.FindAllStringSubmatch(content, -1) {
		if _, err := strconv.Atoi(m[1]); err == nil {
			pairs = append(pairs, m[1])
		}
	}
	if pairs = dedupe(pairs); len(pairs) > 0 {
		data["pairs"] = pairs
	}

	var rooms []string
	for _, m := range roomRe.FindAllStringSubmatch(content, -1) {
		rooms = append(rooms, m[1])
	}
	if rooms = dedupe(rooms); len(rooms) > 0 {
		data["rooms"] = rooms
	}

	if dates := dedupe(dateRe.FindAllString(content, -1)); len(dates) > 0 {
		data["dates"] = dates
	}

	if teachers := dedupe(teacherRe.FindAllString(content, -1)); len(teachers) > 0 {
		data["teachers"] = teachers
	}

	return data
}

// dedupe removes duplicates keeping first-occurrence order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
