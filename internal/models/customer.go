package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents a customer identified by their mobile phone.
// The bot creates customers automatically on first contact and never
// mutates them afterwards.
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name"`
	Mobile    string    `json:"mobile" gorm:"index"` // Local format, e.g. "0501234567"
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook to auto-generate the customer ID
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
