package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

type capturedSend struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

// botFixture is a full bot wired to an in-memory store and a fake gateway
// that records every outbound message.
type botFixture struct {
	bot   *BotService
	store *storage.MemoryStore

	mu    sync.Mutex
	sends []capturedSend
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()

	f := &botFixture{store: storage.NewMemoryStore()}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var send capturedSend
		require.NoError(t, json.NewDecoder(r.Body).Decode(&send))
		f.mu.Lock()
		f.sends = append(f.sends, send)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"idMessage": "MSG1"})
	}))
	t.Cleanup(server.Close)

	botLog := NewBotLogService(f.store)
	gateway := NewGreenAPIService(server.URL, "1101000001", "token", botLog)
	conversations := NewConversationStore(botLog)
	resolver := NewCustomerResolver(f.store, botLog)
	msgs := testMessages()

	f.bot = NewBotService(f.store, gateway, resolver, conversations, botLog, msgs)
	return f
}

func (f *botFixture) send(t *testing.T, text string) {
	t.Helper()
	err := f.bot.HandleInbound(&InboundMessage{
		Phone:      "0501234567",
		Text:       text,
		SenderName: "דנה כהן",
	})
	require.NoError(t, err)
}

func (f *botFixture) lastSend(t *testing.T) capturedSend {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sends)
	return f.sends[len(f.sends)-1]
}

func TestHandleInboundFullServiceCallFlow(t *testing.T) {
	f := newBotFixture(t)

	f.send(t, "שלום")
	assert.Contains(t, f.lastSend(t).Message, "ברוכים הבאים") // first contact greeting
	assert.Equal(t, "972501234567@c.us", f.lastSend(t).ChatID)

	f.send(t, "1")
	assert.Contains(t, f.lastSend(t).Message, "סוג השירות")

	f.send(t, "1")
	assert.Contains(t, f.lastSend(t).Message, "כתובת")

	f.send(t, "הרצל 10, תל אביב")
	assert.Contains(t, f.lastSend(t).Message, "תאר")

	f.send(t, "המצלמה בעגורן לא משדרת")
	assert.Contains(t, f.lastSend(t).Message, "#1001")

	// Customer auto-created from the sender name, exactly one call opened.
	customer, err := f.store.GetCustomerByPhone("0501234567")
	require.NoError(t, err)
	assert.Equal(t, "דנה כהן", customer.Name)

	calls, err := f.store.GetOpenServiceCalls(customer.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, 1001, calls[0].CallNumber)
	assert.Equal(t, models.ServiceTypeCameras, calls[0].ServiceType)
	assert.Equal(t, "הרצל 10, תל אביב", calls[0].Address)
	assert.Equal(t, "המצלמה בעגורן לא משדרת", calls[0].Description)
	assert.Equal(t, "0501234567", calls[0].ContactMobile)

	created, _, err := f.store.SearchLogs(&models.LogQuery{LogType: models.LogServiceCallCreated})
	require.NoError(t, err)
	assert.Len(t, created, 1)

	// All inbound messages end up processed.
	pending, err := f.store.CountMessagesByStatus(models.MessageStatusPending)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestHandleInboundSecondMessageGreetsByName(t *testing.T) {
	f := newBotFixture(t)

	f.send(t, "היי")

	// A second conversation for the same phone resolves to the same
	// customer and gets the known-customer greeting.
	f.bot.conversations.mu.Lock()
	f.bot.conversations.conversations["0501234567"].state.Step = StepIdle
	f.bot.conversations.mu.Unlock()

	f.send(t, "היי")
	assert.Contains(t, f.lastSend(t).Message, "דנה כהן")
}

func TestHandleInboundMediaRecordedNotRouted(t *testing.T) {
	f := newBotFixture(t)

	err := f.bot.HandleInbound(&InboundMessage{
		Phone:      "0501234567",
		Text:       "[imageMessage]",
		SenderName: "דנה",
	})
	require.NoError(t, err)

	// Recorded, but no conversation started and nothing sent back.
	f.mu.Lock()
	assert.Empty(t, f.sends)
	f.mu.Unlock()
	assert.Zero(t, f.bot.conversations.ActiveCount())

	pending, err := f.store.CountMessagesByStatus(models.MessageStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestHandleInboundConcurrentDuplicatesCreateOneCall(t *testing.T) {
	f := newBotFixture(t)

	// Walk the conversation to the description step.
	f.send(t, "שלום")
	f.send(t, "1")
	f.send(t, "1")
	f.send(t, "הרצל 10, תל אביב")

	// A redelivery storm of the final answer. Per-phone serialization
	// means the first one creates the call and resets the conversation;
	// the rest restart the greeting instead of opening duplicates.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.bot.HandleInbound(&InboundMessage{
				Phone:      "0501234567",
				Text:       "המצלמה בעגורן לא משדרת",
				SenderName: "דנה כהן",
			})
		}()
	}
	wg.Wait()

	customer, err := f.store.GetCustomerByPhone("0501234567")
	require.NoError(t, err)
	calls, err := f.store.GetOpenServiceCalls(customer.ID)
	require.NoError(t, err)
	assert.Len(t, calls, 1)
}

func TestHandleInboundMarksProcessedBeforeLockRelease(t *testing.T) {
	f := newBotFixture(t)

	// Hold the phone's conversation lock so the transition cannot start.
	locked := make(chan struct{})
	release := make(chan struct{})
	go f.bot.conversations.WithLock("0501234567", func(state *ConversationState) {
		close(locked)
		<-release
	})
	<-locked

	done := make(chan error, 1)
	go func() {
		done <- f.bot.HandleInbound(&InboundMessage{
			Phone:      "0501234567",
			Text:       "שלום",
			SenderName: "דנה כהן",
		})
	}()

	// The inbound record is created before the lock is acquired, but it
	// must stay pending until the transition completes.
	require.Eventually(t, func() bool {
		pending, err := f.store.CountMessagesByStatus(models.MessageStatusPending)
		return err == nil && pending == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	pending, err := f.store.CountMessagesByStatus(models.MessageStatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	close(release)
	require.NoError(t, <-done)

	processed, err := f.store.CountMessagesByStatus(models.MessageStatusProcessed)
	require.NoError(t, err)
	assert.Equal(t, int64(1), processed)
}

func TestHandleInboundTrimsInput(t *testing.T) {
	f := newBotFixture(t)

	f.send(t, "שלום")
	f.send(t, "  1  ")
	assert.Contains(t, f.lastSend(t).Message, "סוג השירות")
}
