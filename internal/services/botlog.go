package services

import (
	"log"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

// BotLogService appends immutable audit entries for everything the bot
// does. A failed log write must never break message processing, so
// errors are reported to the process log and swallowed.
type BotLogService struct {
	store storage.Store
}

// NewBotLogService creates a new bot log service
func NewBotLogService(store storage.Store) *BotLogService {
	return &BotLogService{store: store}
}

// Write appends an audit entry.
func (s *BotLogService) Write(phone, customerID string, kind models.LogType, details string) {
	s.WriteRelated(phone, customerID, kind, details, "", "")
}

// WriteRelated appends an audit entry correlated with a message and/or
// service call.
func (s *BotLogService) WriteRelated(phone, customerID string, kind models.LogType, details, messageID, serviceCallID string) {
	entry := &models.WhatsAppLog{
		Phone:                phone,
		CustomerID:           customerID,
		LogType:              kind,
		Details:              details,
		RelatedMessageID:     messageID,
		RelatedServiceCallID: serviceCallID,
	}

	if _, err := s.store.CreateLog(entry); err != nil {
		log.Printf("❌ Failed to write bot log (%s): %v", kind, err)
	}
}
