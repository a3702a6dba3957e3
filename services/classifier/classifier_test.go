package classifier

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name           string
		content        string
		fileName       string
		wantType       string
		wantConfidence float64
	}{
		{
			name:           "schedule text",
			content:        "Расписание на понедельник",
			wantType:       TypeSchedule,
			wantConfidence: 3.0 / 13.0,
		},
		{
			name:           "replacement text",
			content:        "завтра замена: вместо физики будет математика",
			wantType:       TypeReplacement,
			wantConfidence: 2.0 / 13.0,
		},
		{
			name:           "homework text",
			content:        "домашнее задание: упражнение 5",
			wantType:       TypeHomework,
			wantConfidence: 3.0 / 13.0,
		},
		{
			name:           "exam text",
			content:        "вопросы к экзамену, билеты",
			wantType:       TypeExam,
			wantConfidence: 3.0 / 13.0,
		},
		{
			name:           "neutral text",
			content:        "привет, как дела",
			wantType:       TypeOther,
			wantConfidence: 0,
		},
		{
			name:           "single weak hit falls to other",
			content:        "какой сегодня урок",
			wantType:       TypeOther,
			wantConfidence: 1.0 / 13.0,
		},
		{
			name:           "tie goes to schedule",
			content:        "урок, пара, проект, дз",
			wantType:       TypeSchedule,
			wantConfidence: 2.0 / 13.0,
		},
		{
			name:           "practice only via file name",
			content:        "см. вложение",
			fileName:       "лабораторная_работа_3.docx",
			wantType:       TypePractice,
			wantConfidence: 2.0 / 13.0,
		},
		{
			name:           "file name bonus is exclusive first match",
			content:        "",
			fileName:       "расписание_замен.pdf",
			wantType:       TypeSchedule,
			wantConfidence: 2.0 / 13.0,
		},
		{
			name:           "file name adds to body score",
			content:        "домашка по матанализу, задание в файле",
			fileName:       "дз_5.pdf",
			wantType:       TypeHomework,
			wantConfidence: 5.0 / 13.0,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.content, tc.fileName)
			if got.Type != tc.wantType {
				t.Errorf("type = %q, want %q", got.Type, tc.wantType)
			}
			if !almostEqual(got.Confidence, tc.wantConfidence) {
				t.Errorf("confidence = %v, want %v", got.Confidence, tc.wantConfidence)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	content := "урок, пара, проект, дз"
	first := Classify(content, "")
	for i := 0; i < 50; i++ {
		got := Classify(content, "")
		if got.Type != first.Type || got.Confidence != first.Confidence {
			t.Fatalf("run %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestExtractStructured(t *testing.T) {
	cases := []struct {
		name    string
		content string
		key     string
		want    []string
	}{
		{"group token", "группа 101ИС-21 собирается в холле", "groups", []string{"101ИС-21"}},
		{"pair number", "3 пара отменяется", "pairs", []string{"3"}},
		{"pair with suffix", "2-я пара в другом корпусе", "pairs", []string{"2"}},
		{"room after аудитория", "ауд. 305", "rooms", []string{"305"}},
		{"room with letter", "каб 12А", "rooms", []string{"12А"}},
		{"dotted date", "перенос на 15.09.2025", "dates", []string{"15.09.2025"}},
		{"teacher full name", "ведёт Иванов Иван Иванович", "teachers", []string{"Иванов Иван Иванович"}},
		{
			"duplicates collapse in order",
			"1 пара и снова 1 пара, потом 2 пара",
			"pairs",
			[]string{"1", "2"},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.content, "").Extracted
			if !reflect.DeepEqual(got[tc.key], tc.want) {
				t.Errorf("extracted[%q] = %v, want %v", tc.key, got[tc.key], tc.want)
			}
		})
	}

	if got := Classify("привет", "").Extracted; len(got) != 0 {
		t.Errorf("expected no extracted data, got %v", got)
	}
}
