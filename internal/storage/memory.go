package storage

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// Call numbers are a customer-facing sequence that starts above 1000 so
// they never look like menu choices or internal ids.
const startingCallNumber = 1001

// MemoryStore holds all data in memory for tests and local development
type MemoryStore struct {
	customers map[string]*models.Customer
	calls     map[string]*models.ServiceCall
	messages  map[string]*models.WhatsAppMessage
	logs      []*models.WhatsAppLog

	// Mutexes for thread safety
	customerMu sync.RWMutex
	callMu     sync.RWMutex
	messageMu  sync.RWMutex
	logMu      sync.RWMutex

	callCounter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:   make(map[string]*models.Customer),
		calls:       make(map[string]*models.ServiceCall),
		messages:    make(map[string]*models.WhatsAppMessage),
		callCounter: startingCallNumber - 1,
	}
}

// Customer operations

func (m *MemoryStore) CreateCustomer(customer *models.Customer) (*models.Customer, error) {
	m.customerMu.Lock()
	defer m.customerMu.Unlock()

	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now()
	}

	stored := *customer
	m.customers[customer.ID] = &stored
	return customer, nil
}

func (m *MemoryStore) GetCustomer(id string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	customer, exists := m.customers[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *customer
	return &copied, nil
}

func (m *MemoryStore) GetCustomerByPhone(phone string) (*models.Customer, error) {
	m.customerMu.RLock()
	defer m.customerMu.RUnlock()

	for _, customer := range m.customers {
		if customer.Mobile == phone {
			copied := *customer
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// Service call operations

func (m *MemoryStore) CreateServiceCall(call *models.ServiceCall) (*models.ServiceCall, error) {
	m.callMu.Lock()
	defer m.callMu.Unlock()

	if call.ID == "" {
		call.ID = uuid.NewString()
	}
	if call.Status == "" {
		call.Status = models.StatusOpen
	}

	m.callCounter++
	call.CallNumber = m.callCounter
	now := time.Now()
	call.CreatedAt = now
	call.LastUpdateDate = now

	stored := *call
	m.calls[call.ID] = &stored
	return call, nil
}

func (m *MemoryStore) GetServiceCall(id string) (*models.ServiceCall, error) {
	m.callMu.RLock()
	defer m.callMu.RUnlock()

	call, exists := m.calls[id]
	if !exists {
		return nil, ErrNotFound
	}
	copied := *call
	return &copied, nil
}

func (m *MemoryStore) GetOpenServiceCalls(customerID string) ([]*models.ServiceCall, error) {
	m.callMu.RLock()
	defer m.callMu.RUnlock()

	var calls []*models.ServiceCall
	for _, call := range m.calls {
		if call.CustomerID == customerID && call.IsOpen() {
			copied := *call
			calls = append(calls, &copied)
		}
	}

	// Newest first
	sort.Slice(calls, func(i, j int) bool {
		return calls[i].CreatedAt.After(calls[j].CreatedAt)
	})
	return calls, nil
}

func (m *MemoryStore) CountOpenServiceCalls() (int64, error) {
	m.callMu.RLock()
	defer m.callMu.RUnlock()

	var count int64
	for _, call := range m.calls {
		if call.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountServiceCallsSince(since time.Time) (int64, error) {
	m.callMu.RLock()
	defer m.callMu.RUnlock()

	var count int64
	for _, call := range m.calls {
		if !call.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Message operations

func (m *MemoryStore) CreateMessage(msg *models.WhatsAppMessage) (*models.WhatsAppMessage, error) {
	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Status == "" {
		msg.Status = models.MessageStatusPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	stored := *msg
	m.messages[msg.ID] = &stored
	return msg, nil
}

func (m *MemoryStore) UpdateMessageStatus(id string, status models.MessageStatus) error {
	m.messageMu.Lock()
	defer m.messageMu.Unlock()

	msg, exists := m.messages[id]
	if !exists {
		return ErrNotFound
	}
	msg.Status = status
	return nil
}

func (m *MemoryStore) SearchMessages(query *models.MessageQuery) ([]*models.WhatsAppMessage, int64, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	var matches []*models.WhatsAppMessage
	for _, msg := range m.messages {
		if query.Status != "" && msg.Status != query.Status {
			continue
		}
		if query.Direction != "" && msg.Direction != query.Direction {
			continue
		}
		if query.Filter != "" &&
			!strings.Contains(msg.Phone, query.Filter) &&
			!strings.Contains(msg.CustomerName, query.Filter) &&
			!strings.Contains(msg.MessageText, query.Filter) {
			continue
		}
		copied := *msg
		matches = append(matches, &copied)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	return paginate(matches, query.Page, query.PageSize, 50), total, nil
}

func (m *MemoryStore) CountMessagesByStatus(status models.MessageStatus) (int64, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	var count int64
	for _, msg := range m.messages {
		if msg.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) CountMessagesSince(since time.Time) (int64, error) {
	m.messageMu.RLock()
	defer m.messageMu.RUnlock()

	var count int64
	for _, msg := range m.messages {
		if !msg.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Log operations

func (m *MemoryStore) CreateLog(entry *models.WhatsAppLog) (*models.WhatsAppLog, error) {
	m.logMu.Lock()
	defer m.logMu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	stored := *entry
	m.logs = append(m.logs, &stored)
	return entry, nil
}

func (m *MemoryStore) SearchLogs(query *models.LogQuery) ([]*models.WhatsAppLog, int64, error) {
	m.logMu.RLock()
	defer m.logMu.RUnlock()

	var matches []*models.WhatsAppLog
	for _, entry := range m.logs {
		if query.LogType != "" && entry.LogType != query.LogType {
			continue
		}
		if query.Filter != "" &&
			!strings.Contains(entry.Phone, query.Filter) &&
			!strings.Contains(entry.Details, query.Filter) {
			continue
		}
		copied := *entry
		matches = append(matches, &copied)
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := int64(len(matches))
	return paginate(matches, query.Page, query.PageSize, 100), total, nil
}

func paginate[T any](items []T, page, pageSize, defaultSize int) []T {
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
