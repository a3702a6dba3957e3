package models

import (
	"database/sql/driver"
	"time"
)

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Task status values
const (
	TaskStatusActive    = "active"
	TaskStatusCompleted = "completed"
	TaskStatusArchived  = "archived"
)

// Week type values for schedule entries
const (
	WeekTypeOdd  = 0
	WeekTypeEven = 1
	WeekTypeBoth = 2
)

// Integration holds credentials and the current session token for one
// external service (portal, telegram, line). The token is refreshed on
// every successful authorization.
type Integration struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Service     string    `json:"service" gorm:"size:50;not null;uniqueIndex"`
	Login       string    `json:"login" gorm:"size:255"`
	PasswordEnc string    `json:"-" gorm:"size:255"`
	Token       string    `json:"-" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Subject identity is derived from the subject name, so two fetches of
// the same name resolve to the same row.
type Subject struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name          string    `json:"name" gorm:"size:200;not null"`
	TeacherID     *uint     `json:"teacher_id"`
	IntegrationID *uint     `json:"integration_id"`
	CreatedAt     time.Time `json:"created_at"`

	Teacher *Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Teacher uses the same name-keyed identity rule as Subject.
type Teacher struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleEntry is one fetched lesson. Rows are appended per fetch;
// the read API collapses them by (date, subject, start_time).
type ScheduleEntry struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Date            string    `json:"date" gorm:"size:10;not null;index"`
	SubjectID       uint      `json:"subject_id"`
	StartTime       string    `json:"start_time" gorm:"size:5"`
	EndTime         string    `json:"end_time" gorm:"size:5"`
	IsReplacement   bool      `json:"is_replacement" gorm:"default:false"`
	ReplacementNote string    `json:"replacement_note" gorm:"size:500"`
	WeekType        int       `json:"week_type"` // 0 odd, 1 even, 2 both
	CreatedAt       time.Time `json:"created_at"`

	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// Task is the only record kind users edit locally, so its id must stay
// stable across sync rounds for conflict detection to pair copies.
type Task struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	SubjectID     uint      `json:"subject_id"`
	Title         string    `json:"title" gorm:"size:200;not null"`
	Description   string    `json:"description" gorm:"type:text"`
	Deadline      string    `json:"deadline" gorm:"size:10;index"`
	Status        string    `json:"status" gorm:"size:50;not null;default:'active'"`
	IntegrationID *uint     `json:"integration_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Subject Subject `json:"subject,omitempty" gorm:"foreignKey:SubjectID"`
}

// Message is an ingested portal message or announcement. Append-only.
type Message struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	IntegrationID *uint     `json:"integration_id"`
	Source        string    `json:"source" gorm:"size:50;not null"`
	Title         string    `json:"title" gorm:"size:500"`
	Content       string    `json:"content" gorm:"type:text"`
	Sender        string    `json:"sender" gorm:"size:255"`
	ReceivedAt    string    `json:"received_at" gorm:"size:20"`
	MessageType   string    `json:"message_type" gorm:"size:20;index"`
	Confidence    float64   `json:"confidence"`
	ExtractedData JSON      `json:"extracted_data" gorm:"type:json"`
	CreatedAt     time.Time `json:"created_at"`
}

// Replacement is cross-referenced into the schedule at read time, never
// denormalized into ScheduleEntry rows at write time.
type Replacement struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	ScheduleID    uint      `json:"schedule_id" gorm:"index"`
	Date          string    `json:"date" gorm:"size:10;index"`
	NewTime       string    `json:"new_time" gorm:"size:20"`
	NewSubject    string    `json:"new_subject" gorm:"size:200"`
	Location      string    `json:"location" gorm:"size:100"`
	Note          string    `json:"note" gorm:"size:500"`
	IntegrationID *uint     `json:"integration_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// FileRef links an attachment URL to the task or replacement it came from.
type FileRef struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	TaskID        *uint     `json:"task_id" gorm:"index"`
	ReplacementID *uint     `json:"replacement_id"`
	Name          string    `json:"name" gorm:"size:255;not null"`
	URL           string    `json:"url" gorm:"size:1000;not null"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is an ingested messenger message. The id is the
// service-native message id, unique within a chat, so upserts key on it
// directly instead of a generated id.
type ChatMessage struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ChatID        int64     `json:"chat_id" gorm:"index"`
	SenderName    string    `json:"sender_name" gorm:"size:255"`
	Content       string    `json:"content" gorm:"type:text"`
	MediaURL      string    `json:"media_url" gorm:"size:1000"`
	Date          string    `json:"date" gorm:"size:20"`
	MessageType   string    `json:"message_type" gorm:"size:20;index"`
	Confidence    float64   `json:"confidence"`
	ExtractedData JSON      `json:"extracted_data" gorm:"type:json"`
	CreatedAt     time.Time `json:"created_at"`
}

// SelectedChat marks a chat whose history and live messages get ingested.
type SelectedChat struct {
	ChatID    int64     `json:"chat_id" gorm:"primaryKey;autoIncrement:false"`
	Title     string    `json:"title" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
}

// StudentInfo is the scraped portal profile of the account owner.
type StudentInfo struct {
	StudentID     uint      `json:"student_id" gorm:"primaryKey;autoIncrement:false"`
	FullName      string    `json:"full_name" gorm:"size:255;not null"`
	GroupName     string    `json:"group_name" gorm:"size:100"`
	IntegrationID uint      `json:"integration_id"`
	LastUpdated   string    `json:"last_updated" gorm:"size:20"`
	CreatedAt     time.Time `json:"created_at"`
}

// User is an API account for this service.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Username  string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	Role      string    `json:"role" gorm:"size:50;not null;default:'student'"` // student, admin
	Status    string    `json:"status" gorm:"size:50;not null;default:'active'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is surfaced to API clients and over the WebSocket hub.
type Notification struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	Title     string     `json:"title" gorm:"size:255;not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	Type      string     `json:"type" gorm:"size:50;not null"` // info, warning, error, success
	Read      bool       `json:"read" gorm:"default:false"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// SyncLog records the outcome of one sync round for diagnostics.
type SyncLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"size:50;not null;index"` // full, schedule, tasks, messages, chat
	Success   bool      `json:"success"`
	Outcome   string    `json:"outcome" gorm:"size:20"` // success, retry, failure
	Message   string    `json:"message" gorm:"type:text"`
	Details   JSON      `json:"details" gorm:"type:json"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

// SyncArchive tracks SyncLog batches shipped to S3.
type SyncArchive struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending'"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
}
