package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"schoolsync_go/database"
	"schoolsync_go/models"
	"schoolsync_go/services/chat"
)

// ChatController drives the messenger session: authorization, chat
// selection and history sync.
type ChatController struct {
	svc *chat.Service
}

func NewChatController(svc *chat.Service) *ChatController {
	return &ChatController{svc: svc}
}

// requireService rejects the request when no messenger bridge is
// configured. The boolean tells the handler whether to proceed; the
// error is the already-written 503 response.
func (cc *ChatController) requireService(c *fiber.Ctx) (bool, error) {
	if cc.svc == nil {
		return false, c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Messenger bridge is not configured",
		})
	}
	return true, nil
}

// GetAuthState reports where the messenger login flow currently is.
func (cc *ChatController) GetAuthState(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}
	return c.JSON(fiber.Map{"state": cc.svc.AuthState()})
}

func (cc *ChatController) submitCredential(c *fiber.Ctx, send func(string) error) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	var req struct {
		Value string `json:"value" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil || req.Value == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := send(req.Value); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"state": cc.svc.AuthState()})
}

// SubmitPhone sends the phone number to the messenger SDK.
func (cc *ChatController) SubmitPhone(c *fiber.Ctx) error {
	return cc.submitCredential(c, cc.svc.SendPhone)
}

// SubmitCode sends the confirmation code.
func (cc *ChatController) SubmitCode(c *fiber.Ctx) error {
	return cc.submitCredential(c, cc.svc.SendCode)
}

// SubmitPassword sends the two-factor password.
func (cc *ChatController) SubmitPassword(c *fiber.Ctx) error {
	return cc.submitCredential(c, cc.svc.SendPassword)
}

// GetChats lists chats available in the messenger account.
func (cc *ChatController) GetChats(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	limit, err := strconv.Atoi(c.Query("limit", "200"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = 200
	}

	chats, err := cc.svc.GetChats(limit)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"chats": chats})
}

// GetSelectedChats returns the chats currently monitored.
func (cc *ChatController) GetSelectedChats(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}
	return c.JSON(fiber.Map{"selected": cc.svc.SelectedChats()})
}

// SelectChats replaces the monitored chat set.
func (cc *ChatController) SelectChats(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	var req struct {
		Chats []chat.ChatInfo `json:"chats"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := cc.svc.SelectChats(req.Chats); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Chat selection updated", "count": len(req.Chats)})
}

// SyncHistory pulls recent history for every selected chat in the
// background and records the outcome as a sync log entry.
func (cc *ChatController) SyncHistory(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit < 1 || limit > 1000 {
		limit = 100
	}

	go func() {
		ok := cc.svc.SyncSelectedChats(limit)
		entry := models.SyncLog{Kind: "chat", Success: ok, Outcome: "success", Message: "chat history synchronized"}
		if !ok {
			entry.Outcome = "retry"
			entry.Message = "some chats failed to sync"
		}
		database.DB.Create(&entry)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "Chat history sync started"})
}

// GetChatMessages lists ingested messages for one chat.
func (cc *ChatController) GetChatMessages(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	chatID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid chat id"})
	}

	messages, err := cc.svc.MessagesForChat(chatID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// GetClassifiedMessages lists ingested messages of one category across
// all chats.
func (cc *ChatController) GetClassifiedMessages(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	messageType := c.Query("type")
	if messageType == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "type query parameter is required"})
	}

	messages, err := cc.svc.MessagesByType(messageType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// DeleteChatMessage removes one ingested message together with its
// archived media.
func (cc *ChatController) DeleteChatMessage(c *fiber.Ctx) error {
	if ok, err := cc.requireService(c); !ok {
		return err
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	if err := cc.svc.DeleteMessage(messageID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete message"})
	}
	return c.JSON(fiber.Map{"message": "Chat message deleted"})
}
