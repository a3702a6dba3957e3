package chat

import "time"

// AuthState is the messenger session state.
type AuthState string

const (
	StateWaitPhone    AuthState = "WAIT_PHONE"
	StateWaitCode     AuthState = "WAIT_CODE"
	StateWaitPassword AuthState = "WAIT_PASSWORD"
	StateReady        AuthState = "READY"
)

// Request kinds understood by a Transport.
const (
	ReqSendPhone    = "send_phone"
	ReqSendCode     = "send_code"
	ReqSendPassword = "send_password"
	ReqGetChats     = "get_chats"
	ReqGetHistory   = "get_chat_history"
	ReqDownloadFile = "download_file"
)

// Request is one command sent to the messenger SDK. ID is a locally
// generated correlation id echoed back in the matching response event.
type Request struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	ChatID int64  `json:"chat_id,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	FileID string `json:"file_id,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Event kinds emitted by a Transport.
const (
	EvResponse   = "response"
	EvNewMessage = "new_message"
	EvAuthState  = "auth_state"
)

// ChatInfo describes one chat available for selection.
type ChatInfo struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// InboundMessage is one messenger message before ingestion.
type InboundMessage struct {
	ID         int64     `json:"id"`
	ChatID     int64     `json:"chat_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	FileName   string    `json:"file_name,omitempty"`
	FileID     string    `json:"file_id,omitempty"`
	Date       time.Time `json:"date"`
}

// FileResult reports a finished file download.
type FileResult struct {
	FileID    string `json:"file_id"`
	LocalPath string `json:"local_path"`
	Completed bool   `json:"completed"`
}

// Event is one message from the messenger SDK: either a response to a
// pending request (RequestID set) or an unsolicited update.
type Event struct {
	RequestID string           `json:"request_id,omitempty"`
	Kind      string           `json:"kind"`
	AuthState AuthState        `json:"auth_state,omitempty"`
	Chats     []ChatInfo       `json:"chats,omitempty"`
	Messages  []InboundMessage `json:"messages,omitempty"`
	File      *FileResult      `json:"file,omitempty"`
	Err       string           `json:"error,omitempty"`
}

// Transport is the boundary to the messenger SDK. The SDK is a black
// box: the service only sends requests and consumes the event stream.
type Transport interface {
	Send(Request) error
	Updates() <-chan Event
	Close() error
}
