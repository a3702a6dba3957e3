package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/services/validation"
	"schoolsync_go/utils"
)

type TaskController struct{}

// GetTasks lists tasks with optional status, deadline and search
// filters, newest deadline last.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	q := database.DB.Model(&models.Task{})

	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if before := c.Query("deadline_before"); before != "" {
		q = q.Where("deadline != '' AND deadline <= ?", utils.ToDatabaseDate(before))
	}
	if after := c.Query("deadline_after"); after != "" {
		q = q.Where("deadline != '' AND deadline >= ?", utils.ToDatabaseDate(after))
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		q = q.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if within := c.Query("due_within"); within != "" {
		days, err := strconv.Atoi(within)
		if err != nil || days < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid due_within value"})
		}
		q = q.Where("deadline != '' AND deadline >= ? AND deadline <= ?",
			utils.CurrentDate(), utils.DateWithOffset(days))
	}

	var tasks []models.Task
	if err := q.Order("deadline ASC, id ASC").Find(&tasks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch tasks",
		})
	}

	return c.JSON(fiber.Map{"tasks": tasks})
}

// GetTask returns one task with its attachments.
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	var task models.Task
	if err := database.DB.First(&task, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	var files []models.FileRef
	database.DB.Where("task_id = ?", task.ID).Find(&files)

	resp := fiber.Map{"task": task, "files": files}
	if task.Deadline != "" && task.Status == models.TaskStatusActive {
		resp["overdue"] = utils.IsDatePassed(task.Deadline)
		resp["days_left"] = utils.DaysBetween(utils.CurrentDate(), task.Deadline)
	}

	return c.JSON(resp)
}

// UpdateTask applies user edits to a task. Only validated fields are
// persisted; a rejected payload leaves the row untouched.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	var task models.Task
	if err := database.DB.First(&task, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Deadline    *string `json:"deadline"`
		Status      *string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Deadline != nil {
		task.Deadline = utils.ToDatabaseDate(*req.Deadline)
	}
	if req.Status != nil {
		task.Status = *req.Status
	}

	if result := validation.ValidateTask(task); !result.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Task validation failed",
			"errors": result.Errors,
		})
	}

	if err := database.DB.Save(&task).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update task",
		})
	}

	return c.JSON(fiber.Map{"message": "Task updated", "task": task})
}

// UpdateTaskStatus is a shortcut for completing or archiving a task.
func (tc *TaskController) UpdateTaskStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	switch req.Status {
	case models.TaskStatusActive, models.TaskStatusCompleted, models.TaskStatusArchived:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task status"})
	}

	result := database.DB.Model(&models.Task{}).Where("id = ?", uint(id)).Update("status", req.Status)
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update task status",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	return c.JSON(fiber.Map{"message": "Task status updated"})
}

// DeleteTask removes a task and its attachments.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid task id"})
	}

	database.DB.Where("task_id = ?", uint(id)).Delete(&models.FileRef{})
	result := database.DB.Delete(&models.Task{}, uint(id))
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete task",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Task not found"})
	}

	return c.JSON(fiber.Map{"message": "Task deleted"})
}
