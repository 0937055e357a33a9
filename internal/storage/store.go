package storage

import (
	"errors"
	"time"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Customer operations
	CreateCustomer(customer *models.Customer) (*models.Customer, error)
	GetCustomer(id string) (*models.Customer, error)
	GetCustomerByPhone(phone string) (*models.Customer, error)

	// Service call operations
	CreateServiceCall(call *models.ServiceCall) (*models.ServiceCall, error)
	GetServiceCall(id string) (*models.ServiceCall, error)
	GetOpenServiceCalls(customerID string) ([]*models.ServiceCall, error)
	CountOpenServiceCalls() (int64, error)
	CountServiceCallsSince(since time.Time) (int64, error)

	// Message operations
	CreateMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error)
	UpdateMessageStatus(id string, status models.MessageStatus) error
	SearchMessages(query *models.MessageQuery) ([]*models.WhatsAppMessage, int64, error)
	CountMessagesByStatus(status models.MessageStatus) (int64, error)
	CountMessagesSince(since time.Time) (int64, error)

	// Log operations (append-only; there is deliberately no update or delete)
	CreateLog(entry *models.WhatsAppLog) (*models.WhatsAppLog, error)
	SearchLogs(query *models.LogQuery) ([]*models.WhatsAppLog, int64, error)
}
