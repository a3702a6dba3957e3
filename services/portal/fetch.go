package portal

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"schoolsync_go/models"
	"schoolsync_go/services/classifier"
	"schoolsync_go/services/validation"
	"schoolsync_go/utils"
)

// ensureTeacher finds a teacher by name or creates one with a
// name-derived id. Returns nil when the name is blank or invalid.
func (c *Client) ensureTeacher(name string) *uint {
	if name == "" {
		return nil
	}
	var existing models.Teacher
	if err := c.db.Where("name = ?", name).First(&existing).Error; err == nil {
		return &existing.ID
	}
	teacher := models.Teacher{ID: c.nameIdent.IDFor(name), Name: name}
	if r := validation.ValidateTeacher(teacher); !r.Valid() {
		logrus.WithField("errors", r.Errors).Warn("invalid teacher skipped")
		return nil
	}
	if err := c.upsert(&teacher); err != nil {
		logrus.WithField("error", err.Error()).Error("saving teacher")
		return nil
	}
	return &teacher.ID
}

// ensureSubject finds a subject by name or creates one with a
// name-derived id, so repeated fetches converge on a single row.
func (c *Client) ensureSubject(name string, teacherID *uint, integrationID uint) (models.Subject, bool) {
	var existing models.Subject
	if err := c.db.Where("name = ?", name).First(&existing).Error; err == nil {
		return existing, true
	}
	subject := models.Subject{
		ID:            c.nameIdent.IDFor(name),
		Name:          name,
		TeacherID:     teacherID,
		IntegrationID: &integrationID,
	}
	if r := validation.ValidateSubject(subject); !r.Valid() {
		logrus.WithField("errors", r.Errors).Warn("invalid subject skipped")
		return subject, false
	}
	if err := c.upsert(&subject); err != nil {
		logrus.WithField("error", err.Error()).Error("saving subject")
		return subject, false
	}
	return subject, true
}

// FetchSchedule scrapes the schedule page. One malformed lesson is
// skipped, never the whole page; zero persisted lessons is a parse
// error because it means the markup changed underneath us.
func (c *Client) FetchSchedule(ctx context.Context) error {
	doc, integ, err := c.fetchDocument(ctx, "/journal-schedule-action")
	if err != nil {
		return err
	}

	weekType := utils.CurrentWeekType()
	rows := parseSchedulePage(doc, utils.CurrentDate())

	processedLessons := 0
	processedHomeworks := 0

	for _, row := range rows {
		if row.StartTime != "" && !validation.IsValidTime(row.StartTime) {
			logrus.WithField("time", row.StartTime).Warn("lesson with malformed start time skipped")
			continue
		}

		teacherID := c.ensureTeacher(row.Teacher)
		subject, ok := c.ensureSubject(row.Subject, teacherID, integ.ID)
		if !ok {
			continue
		}

		entry := models.ScheduleEntry{
			ID:        c.freshIdent.IDFor(""),
			Date:      row.Date,
			SubjectID: subject.ID,
			StartTime: row.StartTime,
			EndTime:   row.EndTime,
			WeekType:  weekType,
		}
		if r := validation.ValidateScheduleEntry(entry); !r.Valid() {
			logrus.WithField("errors", r.Errors).Warn("invalid schedule entry skipped")
			continue
		}
		if err := c.db.Create(&entry).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving schedule entry")
			continue
		}
		processedLessons++

		if row.Homework == "" || utf8.RuneCountInString(row.Homework) > 1000 {
			continue
		}
		task := models.Task{
			ID:            c.freshIdent.IDFor(""),
			SubjectID:     subject.ID,
			Title:         "ДЗ: " + utils.Truncate(row.Subject, 20),
			Description:   row.Homework,
			Deadline:      row.Date,
			Status:        models.TaskStatusActive,
			IntegrationID: &integ.ID,
		}
		if r := validation.ValidateTask(task); !r.Valid() {
			logrus.WithField("errors", r.Errors).Warn("invalid homework task skipped")
			continue
		}
		if err := c.db.Create(&task).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving homework task")
			continue
		}
		processedHomeworks++
	}

	logrus.WithFields(logrus.Fields{
		"lessons":   processedLessons,
		"homeworks": processedHomeworks,
	}).Info("schedule fetch completed")

	if processedLessons == 0 {
		return &SyncError{Kind: KindParse, Msg: "no lessons found on schedule page"}
	}
	return nil
}

// FetchTasks scrapes the homework page into tasks plus attachment refs.
func (c *Client) FetchTasks(ctx context.Context) error {
	doc, integ, err := c.fetchDocument(ctx, "/journal-homework-action")
	if err != nil {
		return err
	}

	processedTasks := 0
	processedFiles := 0

	for _, item := range parseHomeworkPage(doc) {
		subject, ok := c.ensureSubject(item.Subject, nil, integ.ID)
		if !ok {
			continue
		}

		task := models.Task{
			ID:            c.freshIdent.IDFor(""),
			SubjectID:     subject.ID,
			Title:         "Задание: " + item.Subject,
			Description:   item.Description,
			Deadline:      item.Deadline,
			Status:        models.TaskStatusActive,
			IntegrationID: &integ.ID,
		}
		if r := validation.ValidateTask(task); !r.Valid() {
			logrus.WithField("errors", r.Errors).Warn("invalid task skipped")
			continue
		}
		if err := c.db.Create(&task).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving task")
			continue
		}
		processedTasks++

		for _, a := range item.Attachments {
			ref := models.FileRef{
				ID:     c.freshIdent.IDFor(""),
				TaskID: &task.ID,
				Name:   a.Name,
				URL:    c.absoluteURL(a.Href),
			}
			if err := c.db.Create(&ref).Error; err != nil {
				logrus.WithField("error", err.Error()).Error("saving attachment ref")
				continue
			}
			processedFiles++
		}
	}

	logrus.WithFields(logrus.Fields{
		"tasks": processedTasks,
		"files": processedFiles,
	}).Info("tasks fetch completed")
	return nil
}

// FetchMessages scrapes the messages page, classifies each message and
// derives a preparation task from exam-related ones.
func (c *Client) FetchMessages(ctx context.Context) error {
	doc, integ, err := c.fetchDocument(ctx, "/messages")
	if err != nil {
		return err
	}

	processed := 0

	for _, item := range parseMessagesPage(doc) {
		fullContent := item.FullContent()
		cls := classifier.Classify(fullContent, "")

		msg := models.Message{
			ID:            c.freshIdent.IDFor(""),
			IntegrationID: &integ.ID,
			Source:        ServiceName,
			Title:         item.Title,
			Content:       fullContent,
			Sender:        item.Sender,
			ReceivedAt:    item.Date,
			MessageType:   cls.Type,
			Confidence:    cls.Confidence,
			ExtractedData: marshalExtracted(cls.Extracted),
		}
		if err := c.db.Create(&msg).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving message")
			continue
		}
		processed++

		if containsExamKeywords(strings.ToLower(fullContent)) {
			c.createTaskFromMessage(msg, integ.ID)
		}
	}

	logrus.WithField("messages", processed).Info("messages fetch completed")
	return nil
}

// createTaskFromMessage turns an exam-related message into a
// preparation task. The deadline comes from the message date when it
// parses, otherwise from a relative-date word in the text.
func (c *Client) createTaskFromMessage(msg models.Message, integrationID uint) {
	deadline := utils.ToDatabaseDate(msg.ReceivedAt)
	if !isISODate(deadline) {
		if d, ok := utils.ParseRelativeDate(msg.Content); ok {
			deadline = d
		} else {
			deadline = ""
		}
	}

	task := models.Task{
		ID:            c.freshIdent.IDFor(""),
		Title:         "Вопросы для подготовки",
		Description:   msg.Content,
		Deadline:      deadline,
		Status:        models.TaskStatusActive,
		IntegrationID: &integrationID,
	}
	if r := validation.ValidateTask(task); !r.Valid() {
		logrus.WithField("errors", r.Errors).Warn("invalid task from message skipped")
		return
	}
	if err := c.db.Create(&task).Error; err != nil {
		logrus.WithField("error", err.Error()).Error("saving task from message")
		return
	}
	logrus.WithField("title", task.Title).Info("created task from exam message")
}

// FetchReplacements scrapes the announcements page for replacement
// PDFs. Each file becomes a dated replacement record plus a file ref,
// so the schedule read path can cross-reference it by date.
func (c *Client) FetchReplacements(ctx context.Context) error {
	doc, integ, err := c.fetchDocument(ctx, "/announcements")
	if err != nil {
		return err
	}

	processed := 0

	for _, link := range parsePDFLinks(doc) {
		if !isReplacementFile(link.Name) {
			continue
		}
		repl := models.Replacement{
			Date:          replacementDate(link.Name),
			Note:          link.Name,
			IntegrationID: &integ.ID,
		}
		if err := c.db.Create(&repl).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving replacement")
			continue
		}
		ref := models.FileRef{
			ID:            c.freshIdent.IDFor(""),
			ReplacementID: &repl.ID,
			Name:          link.Name,
			URL:           c.absoluteURL(link.Href),
		}
		if err := c.db.Create(&ref).Error; err != nil {
			logrus.WithField("error", err.Error()).Error("saving replacement file ref")
			continue
		}
		processed++
	}

	logrus.WithField("files", processed).Info("replacements fetch completed")
	return nil
}

// FetchStudentInfo scrapes the profile block from the portal landing page.
func (c *Client) FetchStudentInfo(ctx context.Context) error {
	doc, integ, err := c.fetchDocument(ctx, "/")
	if err != nil {
		return err
	}

	name, group := parseProfile(doc)
	if name == "" {
		return &SyncError{Kind: KindParse, Msg: "student name not found on profile page"}
	}
	if group == "" {
		group = "Неизвестно"
	}

	info := models.StudentInfo{
		StudentID:     integ.ID,
		FullName:      name,
		GroupName:     group,
		IntegrationID: integ.ID,
		LastUpdated:   time.Now().Format("2006-01-02 15:04:05"),
	}
	if r := validation.ValidateStudentInfo(info); !r.Valid() {
		return &SyncError{Kind: KindParse, Msg: "scraped student info is invalid: " + strings.Join(r.Errors, "; ")}
	}
	if err := c.upsert(&info); err != nil {
		logrus.WithField("error", err.Error()).Error("saving student info")
		return &SyncError{Kind: KindParse, Msg: "persisting student info", Err: err}
	}

	logrus.WithFields(logrus.Fields{"name": name, "group": group}).Info("student info fetched")
	return nil
}
