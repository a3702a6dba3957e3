package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"schoolsync_go/models"
)

const queueKey = "notifications:queue"

// WSHub pushes created notifications to connected clients.
type WSHub interface {
	BroadcastToUser(userID uint, msgType string, data interface{})
	Broadcast(msgType string, data interface{})
}

// Service creates notifications through a Redis queue, with a direct
// database fallback when Redis is unavailable.
type Service struct {
	db    *gorm.DB
	redis *redis.Client
	hub   WSHub

	stop chan struct{}
}

type queued struct {
	UserID  uint   `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewService(db *gorm.DB, redisClient *redis.Client, hub WSHub) *Service {
	return &Service{db: db, redis: redisClient, hub: hub}
}

// Create queues a notification for one user. When the queue is down
// the notification is written straight to the database so it is never
// lost, only delivered without batching.
func (s *Service) Create(userID uint, title, message, notifType string) error {
	item := queued{UserID: userID, Title: title, Message: message, Type: notifType}

	if s.redis != nil {
		payload, err := json.Marshal(item)
		if err == nil {
			if err := s.redis.RPush(context.Background(), queueKey, payload).Err(); err == nil {
				return nil
			}
			logrus.Warn("notification queue unavailable, writing directly")
		}
	}
	return s.createDirect(item)
}

// CreateForRole queues the same notification for every active user
// with the given role.
func (s *Service) CreateForRole(role, title, message, notifType string) error {
	var users []models.User
	if err := s.db.Where("role = ? AND status = ?", role, "active").Find(&users).Error; err != nil {
		return err
	}
	for _, u := range users {
		if err := s.Create(u.ID, title, message, notifType); err != nil {
			return err
		}
	}
	return nil
}

// NotifySyncOutcome tells administrators how a sync round went. Every
// outcome is pushed live over the hub; only degraded ones become
// stored notifications.
func (s *Service) NotifySyncOutcome(kind, outcome, detail string) {
	if s.hub != nil {
		s.hub.Broadcast("sync_status", map[string]string{"kind": kind, "outcome": outcome})
	}
	if outcome == "success" {
		return
	}
	notifType := "warning"
	title := "Синхронизация будет повторена"
	if outcome == "failure" {
		notifType = "error"
		title = "Ошибка синхронизации"
	}
	if err := s.CreateForRole("admin", title, kind+": "+detail, notifType); err != nil {
		logrus.WithField("error", err.Error()).Error("creating sync outcome notification")
	}
}

func (s *Service) createDirect(item queued) error {
	n := models.Notification{
		UserID:  item.UserID,
		Title:   item.Title,
		Message: item.Message,
		Type:    item.Type,
	}
	if err := s.db.Create(&n).Error; err != nil {
		return err
	}
	s.push(n)
	return nil
}

func (s *Service) push(n models.Notification) {
	if s.hub != nil {
		s.hub.BroadcastToUser(n.UserID, "notification", n)
	}
}

// StartWorker drains the Redis queue into the database in small
// batches. No-op when Redis is not configured.
func (s *Service) StartWorker() {
	if s.redis == nil || s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.flushBatch()
			case <-s.stop:
				s.flushBatch()
				return
			}
		}
	}()
}

// StopWorker flushes whatever is queued and stops the worker.
func (s *Service) StopWorker() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}

func (s *Service) flushBatch() {
	ctx := context.Background()

	items, err := s.redis.LRange(ctx, queueKey, 0, 49).Result()
	if err != nil || len(items) == 0 {
		return
	}
	if err := s.redis.LTrim(ctx, queueKey, int64(len(items)), -1).Err(); err != nil {
		logrus.WithField("error", err.Error()).Error("trimming notification queue")
		return
	}

	for _, raw := range items {
		var item queued
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			logrus.WithField("error", err.Error()).Warn("dropping malformed queued notification")
			continue
		}
		if err := s.createDirect(item); err != nil {
			logrus.WithField("error", err.Error()).Error("persisting queued notification")
		}
	}
}

// ForUser returns a user's notifications, newest first.
func (s *Service) ForUser(userID uint, unreadOnly bool) ([]models.Notification, error) {
	q := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	var out []models.Notification
	err := q.Order("created_at DESC").Limit(100).Find(&out).Error
	return out, err
}

// MarkRead marks one notification as read for its owner.
func (s *Service) MarkRead(userID, notificationID uint) error {
	now := time.Now()
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Updates(map[string]interface{}{"read": true, "read_at": &now}).Error
}

// MarkAllRead marks every unread notification of a user as read.
func (s *Service) MarkAllRead(userID uint) error {
	now := time.Now()
	return s.db.Model(&models.Notification{}).
		Where("user_id = ? AND `read` = ?", userID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now}).Error
}
