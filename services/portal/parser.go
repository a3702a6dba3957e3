package portal

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"schoolsync_go/utils"
)

// The portal renders the same data under several markup variants, so
// every selector below is a comma-grouped fallback list and the first
// matching node wins.

// textFirst returns the trimmed text of the first node matching any of
// the grouped selectors.
func textFirst(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}

func isISODate(d string) bool {
	_, err := time.Parse("2006-01-02", d)
	return err == nil
}

// classifyAuthResponse maps the authorization response to a session
// token or a typed failure. The portal signals bad credentials inside
// an HTTP 200 body, so the body is inspected before the status code.
func classifyAuthResponse(statusCode int, body string, cookies []*http.Cookie) (string, *SyncError) {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "неверный пароль"):
		return "", &SyncError{Kind: KindCredentials, Msg: "portal rejected login or password"}
	case strings.Contains(lower, "error"):
		return "", &SyncError{Kind: KindAuth, Msg: "portal reported an authorization error"}
	case statusCode != http.StatusOK:
		return "", &SyncError{Kind: KindServer, Msg: "portal returned status " + http.StatusText(statusCode)}
	}
	var token string
	for _, ck := range cookies {
		if ck.Name == sessionCookie {
			token = ck.Value
		}
	}
	if token == "" {
		return "", &SyncError{Kind: KindAuth, Msg: "no session token in authorization response"}
	}
	return token, nil
}

type lessonRow struct {
	Date      string
	Subject   string
	Teacher   string
	StartTime string
	EndTime   string
	Homework  string
}

// parseSchedulePage extracts lesson rows from the schedule page. Days
// without a parseable date fall back to fallbackDate; lessons without a
// subject are dropped.
func parseSchedulePage(doc *goquery.Document, fallbackDate string) []lessonRow {
	var rows []lessonRow

	doc.Find(".schedule-day, .day-schedule").Each(func(_ int, day *goquery.Selection) {
		date := utils.ToDatabaseDate(textFirst(day, ".schedule-date, .date"))
		if !isISODate(date) {
			date = fallbackDate
		}

		day.Find(".schedule-lesson, .lesson, tr").Each(func(_ int, lesson *goquery.Selection) {
			subject := textFirst(lesson, ".subject, .lesson-subject")
			if subject == "" {
				return
			}

			times := strings.SplitN(textFirst(lesson, ".time, .lesson-time"), "-", 2)
			start := utils.Truncate(strings.TrimSpace(times[0]), 5)
			end := ""
			if len(times) > 1 {
				end = utils.Truncate(strings.TrimSpace(times[1]), 5)
			}

			rows = append(rows, lessonRow{
				Date:      date,
				Subject:   subject,
				Teacher:   textFirst(lesson, ".teacher, .lesson-teacher"),
				StartTime: start,
				EndTime:   end,
				Homework:  textFirst(lesson, ".homework, .hw"),
			})
		})
	})
	return rows
}

type linkRef struct {
	Name string
	Href string
}

type homeworkItem struct {
	Deadline    string
	Subject     string
	Description string
	Attachments []linkRef
}

// parseHomeworkPage extracts homework items with their attachment links.
func parseHomeworkPage(doc *goquery.Document) []homeworkItem {
	var items []homeworkItem

	doc.Find(".homework-day, .hw-day").Each(func(_ int, block *goquery.Selection) {
		rawDate := textFirst(block, ".homework-date, .date")
		if rawDate == "" {
			return
		}
		deadline := utils.ToDatabaseDate(rawDate)

		block.Find(".homework-item, .hw-item").Each(func(_ int, node *goquery.Selection) {
			subject := textFirst(node, ".homework-subject, .subject")
			if subject == "" {
				return
			}
			item := homeworkItem{
				Deadline:    deadline,
				Subject:     subject,
				Description: textFirst(node, ".homework-text, .hw-text, .description"),
			}
			node.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				name := strings.TrimSpace(a.Text())
				if name != "" && href != "" {
					item.Attachments = append(item.Attachments, linkRef{Name: name, Href: href})
				}
			})
			items = append(items, item)
		})
	})
	return items
}

type messageItem struct {
	Title   string
	Content string
	Date    string
	Sender  string
}

// FullContent joins title and body the way they are stored and matched
// against keywords.
func (m messageItem) FullContent() string {
	if m.Title == "" {
		return m.Content
	}
	return m.Title + "\n" + m.Content
}

// parseMessagesPage extracts portal messages and announcements.
func parseMessagesPage(doc *goquery.Document) []messageItem {
	var items []messageItem

	doc.Find(".message, .msg-item, .announcement").Each(func(_ int, m *goquery.Selection) {
		items = append(items, messageItem{
			Title:   textFirst(m, ".message-title, .title, .msg-title"),
			Content: textFirst(m, ".message-body, .content, .msg-body"),
			Date:    textFirst(m, ".message-date, .date, .msg-date"),
			Sender:  textFirst(m, ".message-sender, .sender, .author"),
		})
	})
	return items
}

// parsePDFLinks extracts PDF links from the announcements page.
func parsePDFLinks(doc *goquery.Document) []linkRef {
	var links []linkRef
	doc.Find("a[href$='.pdf']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href != "" {
			links = append(links, linkRef{Name: strings.TrimSpace(a.Text()), Href: href})
		}
	})
	return links
}

// parseProfile extracts the student name and group from the landing page.
func parseProfile(doc *goquery.Document) (name, group string) {
	name = textFirst(doc.Selection, ".user-name, .profile-name, [class*='name']")
	group = textFirst(doc.Selection, ".group-info, .class-info, [class*='group']")
	return name, group
}

var examKeywords = []string{"экзамен", "зачет", "билет", "вопрос", "тест", "контрольная", "пересдача"}

func containsExamKeywords(lower string) bool {
	for _, kw := range examKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isReplacementFile(title string) bool {
	lower := strings.ToLower(title)
	return strings.Contains(lower, "замен") || strings.Contains(lower, "replacement") ||
		strings.Contains(lower, "изменен") || strings.Contains(lower, "change")
}

var fileDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)

// replacementDate pulls the announced date out of a replacement file
// name, as in "Замены на 15.09.2025.pdf". Blank when the name carries
// no parseable date.
func replacementDate(name string) string {
	raw := fileDateRe.FindString(name)
	if raw == "" {
		return ""
	}
	d := utils.ToDatabaseDate(raw)
	if !isISODate(d) {
		return ""
	}
	return d
}
