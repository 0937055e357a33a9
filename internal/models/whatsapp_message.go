package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageDirection says whether a message came from or went to the customer.
type MessageDirection string

const (
	DirectionIncoming MessageDirection = "incoming"
	DirectionOutgoing MessageDirection = "outgoing"
)

// MessageStatus is the processing state of an inbound message.
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusProcessed MessageStatus = "processed"
	MessageStatusFailed    MessageStatus = "failed"
)

// WhatsAppMessage is the durable record of one inbound text. Inbound
// messages are created pending and flipped to processed once the bot
// has produced a reply, or failed when processing errored.
type WhatsAppMessage struct {
	ID                   string           `json:"id" gorm:"primaryKey;size:36"`
	Phone                string           `json:"phone" gorm:"index"`
	CustomerID           string           `json:"customer_id"`
	CustomerName         string           `json:"customer_name"`
	MessageText          string           `json:"message_text"`
	Direction            MessageDirection `json:"direction" gorm:"default:incoming"`
	Status               MessageStatus    `json:"status" gorm:"index;default:pending"`
	RelatedServiceCallID string           `json:"related_service_call_id"`
	CreatedAt            time.Time        `json:"created_at"`
}

// BeforeCreate hook to auto-generate the message ID
func (m *WhatsAppMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MessageQuery filters the message list for the dashboard endpoints.
type MessageQuery struct {
	Filter    string           `json:"filter"`
	Status    MessageStatus    `json:"status"`
	Direction MessageDirection `json:"direction"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
}
