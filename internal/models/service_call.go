package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceCallType is the kind of service a customer asks for.
type ServiceCallType string

const (
	ServiceTypeCameras     ServiceCallType = "cameras"
	ServiceTypeChains      ServiceCallType = "chains"
	ServiceTypeSafety      ServiceCallType = "safety"
	ServiceTypeMaintenance ServiceCallType = "maintenance"
	ServiceTypeOther       ServiceCallType = "other"
)

// serviceTypeMenu maps the bot's numeric menu keys to service types.
// Order matters: it is the order the menu is presented in.
var serviceTypeMenu = []struct {
	Key  string
	Type ServiceCallType
}{
	{"1", ServiceTypeCameras},
	{"2", ServiceTypeChains},
	{"3", ServiceTypeSafety},
	{"4", ServiceTypeMaintenance},
	{"5", ServiceTypeOther},
}

// ServiceTypeFromMenuKey resolves a menu selection ("1".."5") to a service type.
func ServiceTypeFromMenuKey(key string) (ServiceCallType, bool) {
	for _, entry := range serviceTypeMenu {
		if entry.Key == key {
			return entry.Type, true
		}
	}
	return "", false
}

// MenuKey returns the numeric menu key for a service type ("" if unlisted).
func (t ServiceCallType) MenuKey() string {
	for _, entry := range serviceTypeMenu {
		if entry.Type == t {
			return entry.Key
		}
	}
	return ""
}

// Caption returns the human-facing Hebrew caption for the service type.
func (t ServiceCallType) Caption() string {
	switch t {
	case ServiceTypeCameras:
		return "מצלמות לעגורנים"
	case ServiceTypeChains:
		return "שרשראות הרמה"
	case ServiceTypeSafety:
		return "ציוד בטיחות"
	case ServiceTypeMaintenance:
		return "תחזוקה שוטפת"
	case ServiceTypeOther:
		return "אחר"
	default:
		return "כללי"
	}
}

// ServiceCallStatus tracks the lifecycle of a service call.
type ServiceCallStatus string

const (
	StatusOpen       ServiceCallStatus = "open"
	StatusInProgress ServiceCallStatus = "in_progress"
	StatusClosed     ServiceCallStatus = "closed"
	StatusCancelled  ServiceCallStatus = "cancelled"
)

// Caption returns the human-facing Hebrew caption for the status.
func (s ServiceCallStatus) Caption() string {
	switch s {
	case StatusOpen:
		return "פתוח"
	case StatusInProgress:
		return "בטיפול"
	case StatusClosed:
		return "סגור"
	case StatusCancelled:
		return "בוטל"
	default:
		return string(s)
	}
}

// ServiceCall is the work order created as the terminal artifact of the
// bot's "new service call" conversation branch (or by back-office staff).
type ServiceCall struct {
	ID             string            `json:"id" gorm:"primaryKey;size:36"`
	CallNumber     int               `json:"call_number" gorm:"autoIncrement;uniqueIndex"`
	CustomerID     string            `json:"customer_id" gorm:"index"`
	Address        string            `json:"address"`
	Site           string            `json:"site"`
	Description    string            `json:"description"`
	ContactName    string            `json:"contact_name"`
	ContactMobile  string            `json:"contact_mobile"`
	ServiceType    ServiceCallType   `json:"service_type"`
	Status         ServiceCallStatus `json:"status" gorm:"index;default:open"`
	LastUpdateDate time.Time         `json:"last_update_date"`
	CreatedAt      time.Time         `json:"created_at"`
}

// BeforeCreate hook to auto-generate the call ID and defaults.
// CallNumber is assigned by the persistence layer, never here.
func (s *ServiceCall) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = StatusOpen
	}
	if s.LastUpdateDate.IsZero() {
		s.LastUpdateDate = time.Now()
	}
	return nil
}

// IsOpen reports whether the call still needs attention.
func (s *ServiceCall) IsOpen() bool {
	return s.Status == StatusOpen || s.Status == StatusInProgress
}
