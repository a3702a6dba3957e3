package portal

import (
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func docFromHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("building document: %v", err)
	}
	return doc
}

const scheduleHTML = `
<div class="schedule-day">
  <div class="schedule-date">15.09.2025</div>
  <div class="schedule-lesson">
    <span class="subject">Математика</span>
    <span class="time">08:30 - 10:00</span>
    <span class="teacher">Иванов Иван</span>
    <span class="homework">№ 315, 316</span>
  </div>
  <div class="lesson">
    <span class="lesson-subject">Физика</span>
    <span class="lesson-time">10:15-11:45</span>
  </div>
  <div class="lesson"><span class="note">окно</span></div>
</div>
<div class="day-schedule">
  <div class="date">не дата</div>
  <div class="lesson"><span class="subject">Химия</span></div>
</div>`

func TestParseSchedulePage(t *testing.T) {
	rows := parseSchedulePage(docFromHTML(t, scheduleHTML), "2025-01-01")

	if len(rows) != 3 {
		t.Fatalf("parsed %d rows, want 3 (lesson without subject must be dropped)", len(rows))
	}

	first := rows[0]
	if first.Date != "2025-09-15" || first.Subject != "Математика" ||
		first.StartTime != "08:30" || first.EndTime != "10:00" ||
		first.Teacher != "Иванов Иван" || first.Homework != "№ 315, 316" {
		t.Errorf("unexpected first row: %+v", first)
	}

	second := rows[1]
	if second.Subject != "Физика" || second.StartTime != "10:15" || second.EndTime != "11:45" {
		t.Errorf("unexpected second row: %+v", second)
	}
	if second.Teacher != "" || second.Homework != "" {
		t.Errorf("missing optional fields must stay blank: %+v", second)
	}

	third := rows[2]
	if third.Date != "2025-01-01" {
		t.Errorf("unparseable day date must fall back, got %q", third.Date)
	}
	if third.StartTime != "" || third.EndTime != "" {
		t.Errorf("lesson without time must have blank times: %+v", third)
	}
}

const homeworkHTML = `
<div class="homework-day">
  <div class="homework-date">16.09.2025</div>
  <div class="homework-item">
    <div class="homework-subject">Информатика</div>
    <div class="homework-text">Лабораторная работа 2</div>
    <a href="/files/lab2.pdf">lab2.pdf</a>
    <a href="https://cdn.example/method.doc">методичка</a>
    <a href="/nameless"></a>
  </div>
  <div class="hw-item"><div class="description">без предмета</div></div>
</div>
<div class="hw-day">
  <div class="hw-item"><div class="subject">Блок без даты</div></div>
</div>`

func TestParseHomeworkPage(t *testing.T) {
	items := parseHomeworkPage(docFromHTML(t, homeworkHTML))

	if len(items) != 1 {
		t.Fatalf("parsed %d items, want 1 (no subject or no block date must drop)", len(items))
	}

	item := items[0]
	if item.Deadline != "2025-09-16" || item.Subject != "Информатика" ||
		item.Description != "Лабораторная работа 2" {
		t.Errorf("unexpected item: %+v", item)
	}
	if len(item.Attachments) != 2 {
		t.Fatalf("got %d attachments, want 2 (nameless link must be dropped)", len(item.Attachments))
	}
	if item.Attachments[0].Href != "/files/lab2.pdf" || item.Attachments[0].Name != "lab2.pdf" {
		t.Errorf("unexpected attachment: %+v", item.Attachments[0])
	}
}

const messagesHTML = `
<div class="message">
  <div class="message-title">Расписание</div>
  <div class="message-body">Новое расписание на неделю</div>
  <div class="message-date">15.09.2025</div>
  <div class="message-sender">Деканат</div>
</div>
<div class="announcement">
  <div class="content">Вопросы к экзамену прикреплены</div>
</div>`

func TestParseMessagesPage(t *testing.T) {
	items := parseMessagesPage(docFromHTML(t, messagesHTML))

	if len(items) != 2 {
		t.Fatalf("parsed %d messages, want 2", len(items))
	}
	if items[0].Sender != "Деканат" || items[0].Date != "15.09.2025" {
		t.Errorf("unexpected first message: %+v", items[0])
	}
	if got := items[0].FullContent(); got != "Расписание\nНовое расписание на неделю" {
		t.Errorf("full content = %q", got)
	}
	if got := items[1].FullContent(); got != "Вопросы к экзамену прикреплены" {
		t.Errorf("title-less full content = %q", got)
	}
}

const announcementsHTML = `
<a href="/docs/замены_15.09.pdf">Замены на 15.09</a>
<a href="/docs/menu.pdf">Меню столовой</a>
<a href="/docs/order.doc">Приказ</a>`

func TestParsePDFLinks(t *testing.T) {
	links := parsePDFLinks(docFromHTML(t, announcementsHTML))
	if len(links) != 2 {
		t.Fatalf("parsed %d links, want 2 (.doc must be skipped)", len(links))
	}
	if !isReplacementFile(links[0].Name) {
		t.Errorf("%q should be recognized as a replacement file", links[0].Name)
	}
	if isReplacementFile(links[1].Name) {
		t.Errorf("%q should not be recognized as a replacement file", links[1].Name)
	}
}

func TestIsReplacementFile(t *testing.T) {
	cases := []struct {
		title string
		want  bool
	}{
		{"Замены на понедельник", true},
		{"ИЗМЕНЕНИЯ в расписании", true},
		{"schedule changes", true},
		{"replacement list", true},
		{"Меню столовой", false},
		{"", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			if got := isReplacementFile(tc.title); got != tc.want {
				t.Errorf("isReplacementFile(%q) = %v, want %v", tc.title, got, tc.want)
			}
		})
	}
}

func TestReplacementDate(t *testing.T) {
	cases := []struct {
		name string
		file string
		want string
	}{
		{"date in name", "Замены на 15.09.2025.pdf", "2025-09-15"},
		{"date mid-name", "15.09.2025 изменения.pdf", "2025-09-15"},
		{"no date", "Замены на понедельник.pdf", ""},
		{"impossible date", "Замены на 99.99.2025.pdf", ""},
		{"empty name", "", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := replacementDate(tc.file); got != tc.want {
				t.Errorf("replacementDate(%q) = %q, want %q", tc.file, got, tc.want)
			}
		})
	}
}

func TestContainsExamKeywords(t *testing.T) {
	if !containsExamKeywords("вопросы к экзамену") {
		t.Error("exam text not detected")
	}
	if !containsExamKeywords("контрольная в пятницу") {
		t.Error("контрольная not detected")
	}
	if containsExamKeywords("просто объявление") {
		t.Error("false positive on neutral text")
	}
}

func TestClassifyAuthResponse(t *testing.T) {
	token := func(v string) []*http.Cookie {
		return []*http.Cookie{{Name: sessionCookie, Value: v}}
	}

	cases := []struct {
		name      string
		status    int
		body      string
		cookies   []*http.Cookie
		wantToken string
		wantKind  Kind
	}{
		{"bad credentials in 200 body", 200, "Неверный пароль", token("x"), "", KindCredentials},
		{"generic error in body", 200, "internal error occurred", token("x"), "", KindAuth},
		{"server status", 502, "", token("x"), "", KindServer},
		{"no token cookie", 200, "ok", nil, "", KindAuth},
		{"success", 200, "welcome", token("abc123"), "abc123", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := classifyAuthResponse(tc.status, tc.body, tc.cookies)
			if got != tc.wantToken {
				t.Errorf("token = %q, want %q", got, tc.wantToken)
			}
			if tc.wantKind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Kind != tc.wantKind {
				t.Errorf("error = %v, want kind %q", err, tc.wantKind)
			}
		})
	}
}

func TestAbsoluteURL(t *testing.T) {
	c := &Client{baseURL: "https://portal.example"}
	if got := c.absoluteURL("/files/a.pdf"); got != "https://portal.example/files/a.pdf" {
		t.Errorf("relative href resolved to %q", got)
	}
	if got := c.absoluteURL("http://cdn.example/a.pdf"); got != "http://cdn.example/a.pdf" {
		t.Errorf("absolute href must pass through, got %q", got)
	}
}
