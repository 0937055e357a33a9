package services

import (
	"log"
	"sync"
	"time"

	"github.com/biztechoff/servicedesk-backend/internal/models"
)

// ConversationState is the ephemeral per-phone progress marker through
// the menu-driven dialogue. It lives only in memory and only for the
// lifetime of the conversation; the state machine is the sole mutator.
type ConversationState struct {
	Step         Step
	CustomerID   string
	CustomerName string

	// In-progress service request fields
	ServiceType models.ServiceCallType
	Address     string
	Description string

	LastActivity time.Time
}

// ClearRequest drops the transient service-request fields after the
// call has been created (or abandoned).
func (s *ConversationState) ClearRequest() {
	s.ServiceType = ""
	s.Address = ""
	s.Description = ""
}

type conversationEntry struct {
	mu      sync.Mutex
	state   ConversationState
	evicted bool // set by the sweep under mu; holders must re-fetch
}

// ConversationStore maps phone numbers to in-flight conversations.
// Access is serialized per phone: two webhook deliveries for the same
// phone are processed strictly one after another, while different
// phones proceed in parallel. A periodic sweep evicts conversations
// idle for more than the TTL.
type ConversationStore struct {
	mu            sync.Mutex
	conversations map[string]*conversationEntry

	botLog     *BotLogService
	ttl        time.Duration
	sweepEvery time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewConversationStore creates a new conversation store
func NewConversationStore(botLog *BotLogService) *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversationEntry),
		botLog:        botLog,
		ttl:           30 * time.Minute,
		sweepEvery:    5 * time.Minute,
		done:          make(chan struct{}),
	}
}

// Start launches the inactivity sweep. Safe to call once.
func (cs *ConversationStore) Start() {
	cs.startOnce.Do(func() {
		go cs.sweepLoop()
		log.Println("✅ Conversation inactivity sweep started")
	})
}

// Stop halts the inactivity sweep.
func (cs *ConversationStore) Stop() {
	cs.stopOnce.Do(func() {
		close(cs.done)
		log.Println("⏹️  Conversation inactivity sweep stopped")
	})
}

// WithLock runs fn with exclusive ownership of the phone's conversation
// state, creating a fresh IDLE state if none exists. A state idle past
// the TTL is reset before fn runs, so a message after a long silence
// starts a new conversation even if the sweep has not fired yet.
// LastActivity is stamped after fn returns.
func (cs *ConversationStore) WithLock(phone string, fn func(state *ConversationState)) {
	for {
		cs.mu.Lock()
		entry, exists := cs.conversations[phone]
		if !exists {
			entry = &conversationEntry{
				state: ConversationState{Step: StepIdle, LastActivity: time.Now()},
			}
			cs.conversations[phone] = entry
		}
		cs.mu.Unlock()

		entry.mu.Lock()
		if entry.evicted {
			// Lost a race with the sweep; the map no longer holds this
			// entry, so start over with a fresh one.
			entry.mu.Unlock()
			continue
		}

		if time.Since(entry.state.LastActivity) > cs.ttl {
			entry.state = ConversationState{Step: StepIdle, LastActivity: time.Now()}
		}

		func() {
			defer entry.mu.Unlock()
			defer func() { entry.state.LastActivity = time.Now() }()
			fn(&entry.state)
		}()
		return
	}
}

// ActiveCount reports how many conversations are currently live.
func (cs *ConversationStore) ActiveCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.conversations)
}

func (cs *ConversationStore) sweepLoop() {
	ticker := time.NewTicker(cs.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-cs.done:
			return
		case <-ticker.C:
			cs.sweep()
		}
	}
}

// sweep evicts conversations idle past the TTL. It never evicts a
// conversation mid-transition: the per-phone lock is tried without
// blocking and busy entries are left for the next cycle.
func (cs *ConversationStore) sweep() {
	type evictedConv struct {
		phone      string
		customerID string
	}
	var removed []evictedConv

	cs.mu.Lock()
	for phone, entry := range cs.conversations {
		if !entry.mu.TryLock() {
			continue // transition in flight
		}

		if time.Since(entry.state.LastActivity) > cs.ttl {
			entry.evicted = true
			delete(cs.conversations, phone)
			removed = append(removed, evictedConv{phone, entry.state.CustomerID})
		}

		entry.mu.Unlock()
	}
	cs.mu.Unlock()

	for _, e := range removed {
		cs.botLog.Write(e.phone, e.customerID, models.LogSessionEnded,
			"שיחה הסתיימה עקב חוסר פעילות")
		log.Printf("🧹 Swept idle conversation for %s", e.phone)
	}
}
