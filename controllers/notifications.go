package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"schoolsync_go/middleware"
	"schoolsync_go/services/notifications"
)

type NotificationController struct {
	svc *notifications.Service
}

func NewNotificationController(svc *notifications.Service) *NotificationController {
	return &NotificationController{svc: svc}
}

// GetNotifications lists the caller's notifications.
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	unreadOnly := c.Query("unread") == "true"
	items, err := nc.svc.ForUser(user.ID, unreadOnly)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch notifications",
		})
	}
	return c.JSON(fiber.Map{"notifications": items})
}

// MarkRead marks one notification as read.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid notification id"})
	}

	if err := nc.svc.MarkRead(user.ID, uint(id)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notification read",
		})
	}
	return c.JSON(fiber.Map{"message": "Notification marked read"})
}

// MarkAllRead marks every unread notification read.
func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	if err := nc.svc.MarkAllRead(user.ID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notifications read",
		})
	}
	return c.JSON(fiber.Map{"message": "All notifications marked read"})
}
