package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

// CustomerResolver maps a phone number to a customer, creating one on
// first contact. Resolution is keyed by phone only, so redelivered
// webhooks for the same phone always land on the same customer.
type CustomerResolver struct {
	store  storage.Store
	botLog *BotLogService
}

// NewCustomerResolver creates a new customer resolver
func NewCustomerResolver(store storage.Store, botLog *BotLogService) *CustomerResolver {
	return &CustomerResolver{
		store:  store,
		botLog: botLog,
	}
}

// Resolve finds the customer for a phone number, or creates one named
// after the gateway-supplied sender name. The second return value is
// true when the customer was created by this call.
func (r *CustomerResolver) Resolve(phone, senderName string) (*models.Customer, bool, error) {
	customer, err := r.store.GetCustomerByPhone(phone)
	if err == nil {
		r.botLog.Write(phone, customer.ID, models.LogCustomerIdentified,
			fmt.Sprintf("לקוח זוהה: %s", customer.Name))
		return customer, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("customer lookup for %s: %w", phone, err)
	}

	r.botLog.Write(phone, "", models.LogCustomerNotFound,
		fmt.Sprintf("לקוח לא נמצא עבור מספר: %s", phone))

	name := strings.TrimSpace(senderName)
	if name == "" {
		name = fmt.Sprintf("לקוח חדש - %s", phone)
	}

	customer, err = r.store.CreateCustomer(&models.Customer{
		Name:   name,
		Mobile: phone,
	})
	if err != nil {
		return nil, false, fmt.Errorf("customer create for %s: %w", phone, err)
	}

	r.botLog.Write(phone, customer.ID, models.LogCustomerIdentified,
		fmt.Sprintf("לקוח חדש נוצר אוטומטית: %s", customer.Name))
	log.Printf("🆕 Created new customer for phone %s: %s", phone, customer.Name)

	return customer, true, nil
}
