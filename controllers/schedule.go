package controllers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/utils"
)

type ScheduleController struct{}

// dayEntry is one lesson joined with its subject and teacher names.
type dayEntry struct {
	models.ScheduleEntry
	SubjectName string `json:"subject_name"`
	TeacherName string `json:"teacher_name"`
}

// dayScheduleQuery builds the joined lesson query for one date. The
// teacher is reached through the subject; schedule entries carry no
// teacher column of their own.
func dayScheduleQuery(db *gorm.DB, date string) *gorm.DB {
	return db.Model(&models.ScheduleEntry{}).
		Select("schedule_entries.*, subjects.name AS subject_name, teachers.name AS teacher_name").
		Joins("LEFT JOIN subjects ON subjects.id = schedule_entries.subject_id").
		Joins("LEFT JOIN teachers ON teachers.id = subjects.teacher_id").
		Where("schedule_entries.date = ?", date).
		Order("schedule_entries.start_time ASC")
}

func scheduleForDate(date string) ([]dayEntry, []models.Replacement, error) {
	var entries []dayEntry
	if err := dayScheduleQuery(database.DB, date).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	var replacements []models.Replacement
	if err := database.DB.Where("date = ?", date).Find(&replacements).Error; err != nil {
		return nil, nil, err
	}

	return entries, replacements, nil
}

// GetDay returns the schedule for one date (today by default), with
// any replacements announced for that date alongside.
func (sc *ScheduleController) GetDay(c *fiber.Ctx) error {
	date := c.Query("date", utils.CurrentDate())
	date = utils.ToDatabaseDate(date)

	entries, replacements, err := scheduleForDate(date)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch schedule",
		})
	}

	return c.JSON(fiber.Map{
		"date":         date,
		"week_type":    utils.WeekTypeForDate(date),
		"entries":      entries,
		"replacements": replacements,
	})
}

// GetWeek returns the schedule for the week containing the given date.
func (sc *ScheduleController) GetWeek(c *fiber.Ctx) error {
	date := c.Query("date", utils.CurrentDate())
	date = utils.ToDatabaseDate(date)

	days := make([]fiber.Map, 0, 7)
	for _, d := range utils.WeekDates(date) {
		entries, replacements, err := scheduleForDate(d)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to fetch schedule",
			})
		}
		days = append(days, fiber.Map{
			"date":         d,
			"entries":      entries,
			"replacements": replacements,
		})
	}

	return c.JSON(fiber.Map{
		"week_type": utils.WeekTypeForDate(date),
		"days":      days,
	})
}

// GetReplacements lists replacement announcements, newest first.
func (sc *ScheduleController) GetReplacements(c *fiber.Ctx) error {
	var replacements []models.Replacement
	if err := database.DB.Order("date DESC, created_at DESC").Limit(100).Find(&replacements).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch replacements",
		})
	}
	return c.JSON(fiber.Map{"replacements": replacements})
}
