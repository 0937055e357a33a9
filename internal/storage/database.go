package storage

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	store := &DatabaseStore{db: db}
	store.ensureCallNumberSequence()
	return store
}

// ensureCallNumberSequence bumps the call number serial so customer-facing
// call numbers start at 1001 even on a fresh database.
func (d *DatabaseStore) ensureCallNumberSequence() {
	var last int64
	row := d.db.Raw(`SELECT last_value FROM service_calls_call_number_seq`).Row()
	if err := row.Scan(&last); err != nil {
		log.Printf("⚠️  Could not read call number sequence: %v", err)
		return
	}

	if last < startingCallNumber {
		if err := d.db.Exec(
			`SELECT setval('service_calls_call_number_seq'::regclass, ?, false)`,
			startingCallNumber,
		).Error; err != nil {
			log.Printf("⚠️  Could not advance call number sequence: %v", err)
		}
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Customer operations

func (d *DatabaseStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	if err := d.db.Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (d *DatabaseStore) GetCustomer(id string) (*models.Customer, error) {
	var customer models.Customer
	if err := d.db.First(&customer, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &customer, nil
}

func (d *DatabaseStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	var customer models.Customer
	if err := d.db.First(&customer, "mobile = ?", phone).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &customer, nil
}

// Service call operations

func (d *DatabaseStore) CreateServiceCall(call *models.ServiceCall) (*models.ServiceCall, error) {
	if err := d.db.Create(call).Error; err != nil {
		return nil, err
	}
	return call, nil
}

func (d *DatabaseStore) GetServiceCall(id string) (*models.ServiceCall, error) {
	var call models.ServiceCall
	if err := d.db.First(&call, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return &call, nil
}

func (d *DatabaseStore) GetOpenServiceCalls(customerID string) ([]*models.ServiceCall, error) {
	var calls []*models.ServiceCall
	err := d.db.
		Where("customer_id = ? AND status IN ?", customerID,
			[]models.ServiceCallStatus{models.StatusOpen, models.StatusInProgress}).
		Order("created_at DESC").
		Find(&calls).Error
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (d *DatabaseStore) CountOpenServiceCalls() (int64, error) {
	var count int64
	err := d.db.Model(&models.ServiceCall{}).
		Where("status IN ?", []models.ServiceCallStatus{models.StatusOpen, models.StatusInProgress}).
		Count(&count).Error
	return count, err
}

func (d *DatabaseStore) CountServiceCallsSince(since time.Time) (int64, error) {
	var count int64
	err := d.db.Model(&models.ServiceCall{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// Message operations

func (d *DatabaseStore) CreateMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error) {
	if err := d.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (d *DatabaseStore) UpdateMessageStatus(id string, status models.MessageStatus) error {
	result := d.db.Model(&models.WhatsAppMessage{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DatabaseStore) SearchMessages(query *models.MessageQuery) ([]*models.WhatsAppMessage, int64, error) {
	tx := d.db.Model(&models.WhatsAppMessage{})

	if query.Filter != "" {
		like := "%" + query.Filter + "%"
		tx = tx.Where("phone LIKE ? OR customer_name LIKE ? OR message_text LIKE ?", like, like, like)
	}
	if query.Status != "" {
		tx = tx.Where("status = ?", query.Status)
	}
	if query.Direction != "" {
		tx = tx.Where("direction = ?", query.Direction)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []*models.WhatsAppMessage
	page, pageSize := pageBounds(query.Page, query.PageSize, 50)
	err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

func (d *DatabaseStore) CountMessagesByStatus(status models.MessageStatus) (int64, error) {
	var count int64
	err := d.db.Model(&models.WhatsAppMessage{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (d *DatabaseStore) CountMessagesSince(since time.Time) (int64, error) {
	var count int64
	err := d.db.Model(&models.WhatsAppMessage{}).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// Log operations

func (d *DatabaseStore) CreateLog(entry *models.WhatsAppLog) (*models.WhatsAppLog, error) {
	if err := d.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (d *DatabaseStore) SearchLogs(query *models.LogQuery) ([]*models.WhatsAppLog, int64, error) {
	tx := d.db.Model(&models.WhatsAppLog{})

	if query.Filter != "" {
		like := "%" + query.Filter + "%"
		tx = tx.Where("phone LIKE ? OR details LIKE ?", like, like)
	}
	if query.LogType != "" {
		tx = tx.Where("log_type = ?", query.LogType)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*models.WhatsAppLog
	page, pageSize := pageBounds(query.Page, query.PageSize, 100)
	err := tx.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func pageBounds(page, pageSize, defaultSize int) (int, int) {
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if page <= 0 {
		page = 1
	}
	return page, pageSize
}
