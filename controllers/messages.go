package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"schoolsync_go/database"
	"schoolsync_go/models"
)

type MessageController struct{}

// GetMessages lists classified messages, newest first. Filters:
// type (SCHEDULE, HOMEWORK, ...), source, search.
func (mc *MessageController) GetMessages(c *fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 100
	}

	q := database.DB.Model(&models.Message{})
	if msgType := c.Query("type"); msgType != "" {
		q = q.Where("message_type = ?", msgType)
	}
	if source := c.Query("source"); source != "" {
		q = q.Where("source = ?", source)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("title LIKE ? OR content LIKE ?", like, like)
	}

	var messages []models.Message
	if err := q.Order("received_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch messages",
		})
	}

	return c.JSON(fiber.Map{"messages": messages})
}

// GetMessage returns one message.
func (mc *MessageController) GetMessage(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	var msg models.Message
	if err := database.DB.First(&msg, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	}

	return c.JSON(fiber.Map{"message": msg})
}
