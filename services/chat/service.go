package chat

import (
	"encoding/json"
	"errors"
	"strings"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schoolsync_go/models"
	"schoolsync_go/services/classifier"
	"schoolsync_go/services/extract"
	"schoolsync_go/utils"
)

// extractableExtensions lists the document types worth downloading;
// anything else is ingested as a plain text message.
var extractableExtensions = []string{"pdf", "docx", "xlsx", "jpg", "jpeg", "png"}

const (
	requestTimeout  = 30 * time.Second
	authWaitTimeout = 60 * time.Second
	fileWaitTimeout = 60 * time.Second

	ingestQueueSize = 256
)

// ErrTimeout is returned when the messenger SDK does not answer a
// request in time. A timed-out request never hangs the caller.
var ErrTimeout = errors.New("chat request timed out")

// ErrNotReady is returned for data requests before authorization
// completes.
var ErrNotReady = errors.New("chat session is not authorized")

// Archiver stores downloaded chat documents for retention. Optional.
type Archiver interface {
	UploadLocalFile(localPath, fileName string) (string, error)
	DeleteFile(fileURL string) error
}

// Service ingests messages from a messenger through a Transport. Live
// messages flow through a fire-and-forget queue so a poison message
// never stalls the event loop.
type Service struct {
	db        *gorm.DB
	transport Transport
	archiver  Archiver

	mu        stdsync.Mutex
	authState AuthState
	pending   map[string]chan Event
	selected  map[int64]bool

	ingest chan InboundMessage
	done   chan struct{}
	wg     stdsync.WaitGroup

	reqTimeout  time.Duration
	authTimeout time.Duration
	fileTimeout time.Duration
}

func NewService(db *gorm.DB, transport Transport, archiver Archiver) *Service {
	return &Service{
		db:        db,
		transport: transport,
		archiver:  archiver,
		authState: StateWaitPhone,
		pending:   make(map[string]chan Event),
		selected:  make(map[int64]bool),
		ingest:    make(chan InboundMessage, ingestQueueSize),
		done:      make(chan struct{}),

		reqTimeout:  requestTimeout,
		authTimeout: authWaitTimeout,
		fileTimeout: fileWaitTimeout,
	}
}

// Start loads the selected-chat set and launches the event and ingest
// loops.
func (s *Service) Start() {
	s.loadSelectedChats()

	s.wg.Add(2)
	go s.eventLoop()
	go s.ingestLoop()
}

// Close shuts the transport and stops the loops. The session falls
// back to the beginning of the auth flow.
func (s *Service) Close() {
	if err := s.transport.Close(); err != nil {
		logrus.WithField("error", err.Error()).Error("closing chat transport")
	}
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	s.authState = StateWaitPhone
	s.mu.Unlock()
}

func (s *Service) eventLoop() {
	defer s.wg.Done()
	updates := s.transport.Updates()
	for {
		select {
		case <-s.done:
			return
		case evt, ok := <-updates:
			if !ok {
				return
			}
			s.dispatch(evt)
		}
	}
}

func (s *Service) dispatch(evt Event) {
	if evt.RequestID != "" {
		s.mu.Lock()
		ch, ok := s.pending[evt.RequestID]
		s.mu.Unlock()
		if ok {
			select {
			case ch <- evt:
			default:
			}
		}
		return
	}

	switch evt.Kind {
	case EvAuthState:
		s.mu.Lock()
		s.authState = evt.AuthState
		s.mu.Unlock()
		logrus.WithField("state", string(evt.AuthState)).Info("chat auth state changed")
	case EvNewMessage:
		for _, msg := range evt.Messages {
			s.enqueue(msg)
		}
	}
}

// enqueue hands a live message to the ingest queue without blocking
// the event loop; overflow is dropped with a log line.
func (s *Service) enqueue(msg InboundMessage) {
	s.mu.Lock()
	skip := len(s.selected) > 0 && !s.selected[msg.ChatID]
	s.mu.Unlock()
	if skip {
		return
	}

	select {
	case s.ingest <- msg:
	default:
		logrus.WithField("message_id", msg.ID).Warn("ingest queue full, message dropped")
	}
}

func (s *Service) ingestLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.ingest:
			s.safeProcess(msg)
		}
	}
}

// safeProcess isolates one message: a panic or error affects only
// this message, never the queue.
func (s *Service) safeProcess(msg InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"message_id": msg.ID,
				"panic":      r,
			}).Error("chat message processing panicked")
		}
	}()
	if err := s.processMessage(msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"message_id": msg.ID,
			"error":      err.Error(),
		}).Error("processing chat message")
	}
}

// AuthState returns the current session state.
func (s *Service) AuthState() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authState
}

// SendPhone, SendCode and SendPassword drive the auth flow. They are
// fire-and-forget: the resulting state arrives as an auth event.
func (s *Service) SendPhone(phone string) error {
	return s.transport.Send(Request{Kind: ReqSendPhone, Value: phone})
}

func (s *Service) SendCode(code string) error {
	return s.transport.Send(Request{Kind: ReqSendCode, Value: code})
}

func (s *Service) SendPassword(password string) error {
	return s.transport.Send(Request{Kind: ReqSendPassword, Value: password})
}

// WaitForReady polls until the session is authorized or the auth wait
// timeout expires.
func (s *Service) WaitForReady() bool {
	deadline := time.Now().Add(s.authTimeout)
	for time.Now().Before(deadline) {
		if s.AuthState() == StateReady {
			return true
		}
		select {
		case <-s.done:
			return false
		case <-time.After(200 * time.Millisecond):
		}
	}
	return false
}

// request sends one correlated request and waits for its response.
func (s *Service) request(req Request, timeout time.Duration) (Event, error) {
	req.ID = uuid.NewString()
	ch := make(chan Event, 1)

	s.mu.Lock()
	s.pending[req.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, req.ID)
		s.mu.Unlock()
	}()

	if err := s.transport.Send(req); err != nil {
		return Event{}, err
	}

	select {
	case evt := <-ch:
		if evt.Err != "" {
			return evt, errors.New(evt.Err)
		}
		return evt, nil
	case <-time.After(timeout):
		return Event{}, ErrTimeout
	case <-s.done:
		return Event{}, ErrNotReady
	}
}

// GetChats lists available chats.
func (s *Service) GetChats(limit int) ([]ChatInfo, error) {
	if s.AuthState() != StateReady {
		return nil, ErrNotReady
	}
	evt, err := s.request(Request{Kind: ReqGetChats, Limit: limit}, s.reqTimeout)
	if err != nil {
		return nil, err
	}
	return evt.Chats, nil
}

// GetChatHistory fetches the most recent messages of one chat.
func (s *Service) GetChatHistory(chatID int64, limit int) ([]InboundMessage, error) {
	if s.AuthState() != StateReady {
		return nil, ErrNotReady
	}
	evt, err := s.request(Request{Kind: ReqGetHistory, ChatID: chatID, Limit: limit}, s.reqTimeout)
	if err != nil {
		return nil, err
	}
	return evt.Messages, nil
}

// SelectChats replaces the set of chats whose messages are ingested
// and persists it.
func (s *Service) SelectChats(chats []ChatInfo) error {
	s.mu.Lock()
	s.selected = make(map[int64]bool, len(chats))
	for _, c := range chats {
		s.selected[c.ID] = true
	}
	s.mu.Unlock()

	if err := s.db.Where("1 = 1").Delete(&models.SelectedChat{}).Error; err != nil {
		return err
	}
	for _, c := range chats {
		row := models.SelectedChat{ChatID: c.ID, Title: c.Title}
		if err := s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// SelectedChats returns the persisted selection.
func (s *Service) SelectedChats() []models.SelectedChat {
	var rows []models.SelectedChat
	s.db.Find(&rows)
	return rows
}

func (s *Service) loadSelectedChats() {
	var rows []models.SelectedChat
	if err := s.db.Find(&rows).Error; err != nil {
		logrus.WithField("error", err.Error()).Error("loading selected chats")
		return
	}
	s.mu.Lock()
	s.selected = make(map[int64]bool, len(rows))
	for _, row := range rows {
		s.selected[row.ChatID] = true
	}
	s.mu.Unlock()
}

// SyncSelectedChats ingests recent history of every selected chat.
// Each chat is isolated: one failing chat does not stop the others.
func (s *Service) SyncSelectedChats(limitPerChat int) bool {
	if s.AuthState() != StateReady {
		logrus.Warn("chat sync skipped, session not authorized")
		return false
	}

	s.mu.Lock()
	chatIDs := make([]int64, 0, len(s.selected))
	for id := range s.selected {
		chatIDs = append(chatIDs, id)
	}
	s.mu.Unlock()

	if len(chatIDs) == 0 {
		logrus.Info("no selected chats to sync")
		return true
	}

	for _, chatID := range chatIDs {
		messages, err := s.GetChatHistory(chatID, limitPerChat)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"chat_id": chatID,
				"error":   err.Error(),
			}).Error("syncing chat history")
			continue
		}
		for _, msg := range messages {
			s.safeProcess(msg)
		}
	}
	return true
}

// downloadFile asks the transport for a local copy of a document.
func (s *Service) downloadFile(fileID string) (string, error) {
	evt, err := s.request(Request{Kind: ReqDownloadFile, FileID: fileID}, s.fileTimeout)
	if err != nil {
		return "", err
	}
	if evt.File == nil || !evt.File.Completed {
		return "", errors.New("file download did not complete")
	}
	return evt.File.LocalPath, nil
}

// processMessage turns one inbound message into a stored ChatMessage.
// Document messages are downloaded and text-extracted first; an
// extraction failure forces the OTHER category with token confidence
// so a garbled file never masquerades as a classified document.
func (s *Service) processMessage(msg InboundMessage) error {
	content := msg.Text
	mediaURL := msg.FileName
	failed := false

	if msg.FileName != "" && msg.FileID != "" && utils.IsValidFileExtension(msg.FileName, extractableExtensions) {
		localPath, err := s.downloadFile(msg.FileID)
		if err != nil {
			content += " [Документ не скачан]"
			failed = true
		} else {
			fileText := extract.Text(localPath, msg.FileName)
			content += "\n\n[Содержимое файла]:\n" + fileText
			if extract.IsFailure(fileText) {
				failed = true
			}
			if s.archiver != nil {
				if url, err := s.archiver.UploadLocalFile(localPath, msg.FileName); err == nil {
					mediaURL = url
				} else {
					logrus.WithField("error", err.Error()).Warn("archiving chat document")
				}
			}
		}
	}

	var cls classifier.Result
	if failed {
		cls = classifier.Result{Type: classifier.TypeOther, Confidence: 0.1}
	} else {
		cls = classifier.Classify(content, msg.FileName)
	}

	row := models.ChatMessage{
		ID:            msg.ID,
		ChatID:        msg.ChatID,
		SenderName:    msg.SenderName,
		Content:       content,
		MediaURL:      mediaURL,
		Date:          msg.Date.Format("2006-01-02 15:04:05"),
		MessageType:   cls.Type,
		Confidence:    cls.Confidence,
		ExtractedData: marshalExtracted(cls.Extracted),
	}
	return s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// DeleteMessage removes one stored chat message and, when present, its
// archived media copy.
func (s *Service) DeleteMessage(messageID int64) error {
	var row models.ChatMessage
	if err := s.db.First(&row, messageID).Error; err != nil {
		return err
	}
	if s.archiver != nil && strings.Contains(row.MediaURL, ".amazonaws.com/") {
		if err := s.archiver.DeleteFile(row.MediaURL); err != nil {
			logrus.WithField("error", err.Error()).Warn("deleting archived chat document")
		}
	}
	return s.db.Delete(&models.ChatMessage{}, messageID).Error
}

// MessagesByType returns stored chat messages of one category.
func (s *Service) MessagesByType(messageType string) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := s.db.Where("message_type = ?", messageType).Order("date DESC").Find(&rows).Error
	return rows, err
}

// MessagesForChat returns the stored messages of one chat.
func (s *Service) MessagesForChat(chatID int64) ([]models.ChatMessage, error) {
	var rows []models.ChatMessage
	err := s.db.Where("chat_id = ?", chatID).Order("date DESC").Find(&rows).Error
	return rows, err
}

func marshalExtracted(data map[string][]string) models.JSON {
	if len(data) == 0 {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return models.JSON(b)
}
