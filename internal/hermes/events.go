package hermes

import "time"

// Subjects published by the relay and the records service.
const (
	SubjectChatCompleted = "tabchat.chat.completed"
	SubjectChatFailed    = "tabchat.chat.failed"
	SubjectRecordCreated = "tabchat.records.created"
	SubjectRecordUpdated = "tabchat.records.updated"
	SubjectRecordDeleted = "tabchat.records.deleted"
	SubjectAll           = "tabchat.>"
)

// ChatEvent describes one relayed turn. Message bodies are not included.
type ChatEvent struct {
	RequestID   string    `json:"request_id"`
	SessionID   string    `json:"session_id,omitempty"`
	Upstream    string    `json:"upstream"`
	PageURL     string    `json:"page_url,omitempty"`
	PageTitle   string    `json:"page_title,omitempty"`
	InputLen    int       `json:"input_len"`
	ResponseLen int       `json:"response_len"`
	HistoryLen  int       `json:"history_len"`
	Status      int       `json:"status"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// RecordEvent is emitted when a record is created, updated or deleted.
type RecordEvent struct {
	ID        string    `json:"id"`
	Company   string    `json:"company,omitempty"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
