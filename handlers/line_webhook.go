package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/line/line-bot-sdk-go/linebot"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolsync_go/config"
	"schoolsync_go/models"
	"schoolsync_go/services/classifier"
	"schoolsync_go/utils"
)

// LineWebhookHandler ingests school announcements posted to LINE
// groups as a secondary message source next to the portal.
type LineWebhookHandler struct {
	DB    *gorm.DB
	Bot   *linebot.Client
	ident models.FreshIdentity
}

func NewLineWebhookHandler(db *gorm.DB) *LineWebhookHandler {
	secret := config.AppConfig.LineChannelSecret
	token := config.AppConfig.LineChannelToken

	if secret == "" || token == "" {
		logrus.Warn("LINE credentials missing: webhook disabled")
		return &LineWebhookHandler{DB: db, Bot: nil}
	}

	bot, err := linebot.New(secret, token)
	if err != nil {
		logrus.WithError(err).Fatal("cannot create LINE bot client")
	}
	return &LineWebhookHandler{DB: db, Bot: bot}
}

// Handle receives webhook events. The 200 goes back before processing
// so LINE's delivery check never times out on a slow database.
func (h *LineWebhookHandler) Handle(c *fiber.Ctx) error {
	if h.Bot == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	signature := c.Get("X-Line-Signature")
	if signature == "" {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !validateSignature(config.AppConfig.LineChannelSecret, c.Body(), signature) {
		logrus.Warn("LINE webhook signature mismatch")
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	go h.processEvents(append([]byte(nil), c.Body()...))

	return c.SendStatus(fiber.StatusOK)
}

func (h *LineWebhookHandler) processEvents(body []byte) {
	var webhook struct {
		Events []*linebot.Event `json:"events"`
	}
	if err := json.Unmarshal(body, &webhook); err != nil {
		logrus.WithError(err).Error("failed to parse LINE event JSON")
		return
	}

	for _, event := range webhook.Events {
		if event.Type != linebot.EventTypeMessage {
			continue
		}
		text, ok := event.Message.(*linebot.TextMessage)
		if !ok || text.Text == "" {
			continue
		}
		h.ingestText(event, text.Text)
	}
}

func (h *LineWebhookHandler) ingestText(event *linebot.Event, text string) {
	text = utils.SanitizeString(text)
	if text == "" {
		return
	}

	sender := event.Source.UserID
	if event.Source.GroupID != "" {
		sender = event.Source.GroupID
	}

	result := classifier.Classify(text, "")

	msg := models.Message{
		ID:          h.ident.IDFor(""),
		Source:      "line",
		Content:     text,
		Sender:      sender,
		ReceivedAt:  time.Now().Format("2006-01-02 15:04:05"),
		MessageType: result.Type,
		Confidence:  result.Confidence,
	}
	if len(result.Extracted) > 0 {
		if b, err := json.Marshal(result.Extracted); err == nil {
			msg.ExtractedData = models.JSON(b)
		}
	}

	if err := h.DB.Create(&msg).Error; err != nil {
		logrus.WithError(err).Error("failed to save LINE message")
		return
	}

	logrus.WithFields(logrus.Fields{
		"type":       msg.MessageType,
		"confidence": msg.Confidence,
	}).Info("LINE message ingested")
}

func validateSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
