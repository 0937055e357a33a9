package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LogType enumerates the bot's auditable events.
type LogType string

const (
	LogMessageReceived    LogType = "message_received"
	LogMessageSent        LogType = "message_sent"
	LogServiceCallCreated LogType = "service_call_created"
	LogCustomerIdentified LogType = "customer_identified"
	LogCustomerNotFound   LogType = "customer_not_found"
	LogBotError           LogType = "bot_error"
	LogSessionStarted     LogType = "session_started"
	LogSessionEnded       LogType = "session_ended"
)

// Caption returns the human-facing Hebrew caption for the log type.
func (t LogType) Caption() string {
	switch t {
	case LogMessageReceived:
		return "הודעה התקבלה"
	case LogMessageSent:
		return "הודעה נשלחה"
	case LogServiceCallCreated:
		return "קריאת שירות נוצרה"
	case LogCustomerIdentified:
		return "לקוח זוהה"
	case LogCustomerNotFound:
		return "לקוח לא נמצא"
	case LogBotError:
		return "שגיאת בוט"
	case LogSessionStarted:
		return "שיחה החלה"
	case LogSessionEnded:
		return "שיחה הסתיימה"
	default:
		return string(t)
	}
}

// WhatsAppLog is an append-only audit record. Entries are immutable once
// written: nothing in the system updates or deletes them.
type WhatsAppLog struct {
	ID                   string    `json:"id" gorm:"primaryKey;size:36"`
	Phone                string    `json:"phone" gorm:"index"`
	CustomerID           string    `json:"customer_id"`
	LogType              LogType   `json:"log_type" gorm:"index"`
	Details              string    `json:"details"`
	RelatedMessageID     string    `json:"related_message_id"`
	RelatedServiceCallID string    `json:"related_service_call_id"`
	CreatedAt            time.Time `json:"created_at"`
}

// BeforeCreate hook to auto-generate the log ID
func (l *WhatsAppLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// LogQuery filters the log list for the dashboard endpoints.
type LogQuery struct {
	Filter   string  `json:"filter"`
	LogType  LogType `json:"log_type"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}
