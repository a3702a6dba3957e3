package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	syncsvc "schoolsync_go/services/sync"
)

// ConflictController exposes the pending task conflict queue.
type ConflictController struct {
	resolver *syncsvc.ConflictResolver
}

func NewConflictController(resolver *syncsvc.ConflictResolver) *ConflictController {
	return &ConflictController{resolver: resolver}
}

// GetConflicts lists pending conflicts.
func (cc *ConflictController) GetConflicts(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"conflicts": cc.resolver.Conflicts(),
		"count":     cc.resolver.Count(),
	})
}

// ResolveConflict applies a resolution to one pending conflict.
// Strategy is "local", "remote" or "merge"; merge takes per-field
// overrides, defaulting unlisted fields to the remote side.
func (cc *ConflictController) ResolveConflict(c *fiber.Ctx) error {
	entityID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid conflict id"})
	}

	var req struct {
		Strategy  string            `json:"strategy" validate:"required"`
		Overrides map[string]string `json:"overrides"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var resolution syncsvc.Resolution
	switch req.Strategy {
	case "local":
		resolution = syncsvc.UseLocal{}
	case "remote":
		resolution = syncsvc.UseRemote{}
	case "merge":
		resolution = syncsvc.Merge{Overrides: req.Overrides}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown strategy: " + req.Strategy})
	}

	for _, conflict := range cc.resolver.Conflicts() {
		if conflict.EntityID != uint(entityID) {
			continue
		}
		if err := cc.resolver.Resolve(conflict, resolution); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to resolve conflict",
			})
		}
		return c.JSON(fiber.Map{"message": "Conflict resolved"})
	}

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conflict not found"})
}
