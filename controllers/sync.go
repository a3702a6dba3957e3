package controllers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/services/archive"
	syncsvc "schoolsync_go/services/sync"
)

// SyncController triggers sync jobs and exposes their history.
type SyncController struct {
	scheduler *syncsvc.Scheduler
	archives  *archive.Service
}

func NewSyncController(scheduler *syncsvc.Scheduler, archives *archive.Service) *SyncController {
	return &SyncController{scheduler: scheduler, archives: archives}
}

// TriggerSync starts a sync round in the background. The kind query
// parameter narrows the round to one data source.
func (sc *SyncController) TriggerSync(c *fiber.Ctx) error {
	kind := c.Query("kind", "full")

	var run func(context.Context) syncsvc.Outcome
	switch kind {
	case "full":
		run = sc.scheduler.RunFullSync
	case "schedule":
		run = sc.scheduler.RunScheduleSync
	case "tasks":
		run = sc.scheduler.RunTasksSync
	case "messages":
		run = sc.scheduler.RunMessagesSync
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown sync kind: " + kind,
		})
	}

	go run(context.Background())

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Sync started",
		"kind":    kind,
	})
}

// GetSyncLogs returns recent sync outcomes, newest first.
func (sc *SyncController) GetSyncLogs(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	q := database.DB.Order("created_at DESC").Limit(limit)
	if kind := c.Query("kind"); kind != "" {
		q = q.Where("kind = ?", kind)
	}

	var logs []models.SyncLog
	if err := q.Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch sync logs",
		})
	}

	return c.JSON(fiber.Map{"logs": logs})
}

// GetSyncStatus returns the most recent outcome per sync kind.
func (sc *SyncController) GetSyncStatus(c *fiber.Ctx) error {
	kinds := []string{"full", "schedule", "tasks", "messages", "chat"}
	status := fiber.Map{}
	for _, kind := range kinds {
		var last models.SyncLog
		if err := database.DB.Where("kind = ?", kind).Order("created_at DESC").First(&last).Error; err == nil {
			status[kind] = last
		}
	}
	return c.JSON(fiber.Map{"status": status})
}

// GetArchives lists sync log archives shipped to S3.
func (sc *SyncController) GetArchives(c *fiber.Ctx) error {
	archives, err := sc.archives.GetArchives()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"archives": archives})
}

// DownloadArchive streams one archive zip back to the caller.
func (sc *SyncController) DownloadArchive(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid archive id",
		})
	}

	reader, fileName, err := sc.archives.DownloadArchive(uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "application/zip")
	c.Set("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	return c.SendStream(reader)
}
