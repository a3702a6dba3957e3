package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm/clause"

	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/services/portal"
)

// IntegrationController manages external service credentials.
type IntegrationController struct {
	portalClient *portal.Client
}

func NewIntegrationController(portalClient *portal.Client) *IntegrationController {
	return &IntegrationController{portalClient: portalClient}
}

// GetIntegrations lists configured integrations. Secrets never leave
// the server; only the login and configured flag are reported.
func (ic *IntegrationController) GetIntegrations(c *fiber.Ctx) error {
	var integrations []models.Integration
	if err := database.DB.Find(&integrations).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch integrations",
		})
	}

	out := make([]fiber.Map, 0, len(integrations))
	for _, integ := range integrations {
		out = append(out, fiber.Map{
			"id":         integ.ID,
			"service":    integ.Service,
			"login":      integ.Login,
			"configured": integ.Login != "" && integ.PasswordEnc != "",
			"updated_at": integ.UpdatedAt,
		})
	}
	return c.JSON(fiber.Map{"integrations": out})
}

// UpsertPortalCredentials stores or replaces the portal login.
func (ic *IntegrationController) UpsertPortalCredentials(c *fiber.Ctx) error {
	var req struct {
		Login    string `json:"login" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil || req.Login == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Login and password are required"})
	}

	integ := models.Integration{
		Service:     portal.ServiceName,
		Login:       req.Login,
		PasswordEnc: req.Password,
	}
	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "service"}},
		DoUpdates: clause.AssignmentColumns([]string{"login", "password_enc", "token"}),
	}).Create(&integ).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save credentials",
		})
	}

	return c.JSON(fiber.Map{"message": "Portal credentials saved"})
}

// TestPortalConnection tries to authorize against the portal with the
// stored credentials.
func (ic *IntegrationController) TestPortalConnection(c *fiber.Ctx) error {
	if err := ic.portalClient.Authorize(context.Background()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"ok": true, "message": "Portal authorization succeeded"})
}
