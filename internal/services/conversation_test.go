package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

func newTestConversationStore() (*ConversationStore, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewConversationStore(NewBotLogService(store)), store
}

func TestWithLockCreatesFreshState(t *testing.T) {
	cs, _ := newTestConversationStore()

	cs.WithLock("0501234567", func(state *ConversationState) {
		assert.Equal(t, StepIdle, state.Step)
		state.Step = StepMainMenu
	})

	assert.Equal(t, 1, cs.ActiveCount())

	cs.WithLock("0501234567", func(state *ConversationState) {
		assert.Equal(t, StepMainMenu, state.Step)
	})
}

func TestWithLockSerializesPerPhone(t *testing.T) {
	cs, _ := newTestConversationStore()

	// A plain int mutated concurrently would trip the race detector if
	// two holders of the same phone ever overlapped.
	var transitions int
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cs.WithLock("0501234567", func(state *ConversationState) {
				transitions++
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, transitions)
	assert.Equal(t, 1, cs.ActiveCount())
}

func TestWithLockIndependentPhones(t *testing.T) {
	cs, _ := newTestConversationStore()

	cs.WithLock("0501111111", func(state *ConversationState) {
		state.Step = StepEnterAddress
	})
	cs.WithLock("0502222222", func(state *ConversationState) {
		assert.Equal(t, StepIdle, state.Step)
	})

	assert.Equal(t, 2, cs.ActiveCount())
}

func TestWithLockResetsStaleState(t *testing.T) {
	cs, _ := newTestConversationStore()

	cs.WithLock("0501234567", func(state *ConversationState) {
		state.Step = StepEnterDescription
		state.Address = "הרצל 10"
	})

	// Backdate past the TTL, as if the customer went silent.
	cs.mu.Lock()
	cs.conversations["0501234567"].state.LastActivity = time.Now().Add(-time.Hour)
	cs.mu.Unlock()

	cs.WithLock("0501234567", func(state *ConversationState) {
		assert.Equal(t, StepIdle, state.Step)
		assert.Empty(t, state.Address)
	})
}

func TestSweepEvictsIdleConversations(t *testing.T) {
	cs, store := newTestConversationStore()

	cs.WithLock("0501234567", func(state *ConversationState) {
		state.CustomerID = "cust-1"
		state.Step = StepMainMenu
	})

	cs.mu.Lock()
	cs.conversations["0501234567"].state.LastActivity = time.Now().Add(-time.Hour)
	cs.mu.Unlock()

	cs.sweep()

	assert.Zero(t, cs.ActiveCount())

	logs, total, err := store.SearchLogs(&models.LogQuery{LogType: models.LogSessionEnded})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, "0501234567", logs[0].Phone)
	assert.Equal(t, "cust-1", logs[0].CustomerID)
}

func TestSweepKeepsRecentConversations(t *testing.T) {
	cs, _ := newTestConversationStore()

	cs.WithLock("0501234567", func(state *ConversationState) {})
	cs.sweep()

	assert.Equal(t, 1, cs.ActiveCount())
}

func TestSweepSkipsConversationInFlight(t *testing.T) {
	cs, _ := newTestConversationStore()

	entered := make(chan struct{})
	release := make(chan struct{})
	go cs.WithLock("0501234567", func(state *ConversationState) {
		close(entered)
		<-release
	})

	<-entered
	cs.sweep()
	assert.Equal(t, 1, cs.ActiveCount())

	close(release)
}
