package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"schoolsync_go/database"
)

// HealthController reports process and dependency health.
type HealthController struct {
	startedAt time.Time
}

func NewHealthController() *HealthController {
	return &HealthController{startedAt: time.Now()}
}

// GetHealthStatus checks the database and Redis and reports overall
// status. Redis being down degrades the service but does not fail it.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	status := "ok"
	statusCode := fiber.StatusOK

	dbStatus := "ok"
	if sqlDB, err := database.DB.DB(); err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
	}

	redisStatus := "ok"
	if rc := database.GetRedisClient(); rc == nil {
		redisStatus = "unavailable"
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		redisStatus = "error: " + err.Error()
	}
	if redisStatus != "ok" && status == "ok" {
		status = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":  status,
		"uptime":  time.Since(hc.startedAt).String(),
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}
