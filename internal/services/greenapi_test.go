package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*GreenAPIService, *storage.MemoryStore) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store := storage.NewMemoryStore()
	gateway := NewGreenAPIService(server.URL, "1101000001", "test-token", NewBotLogService(store))
	return gateway, store
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string

	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"idMessage": "ABC123"})
	})

	resp, err := gateway.SendMessage("0501234567", "שלום")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", resp.IDMessage)
	assert.Equal(t, "/waInstance1101000001/sendMessage/test-token", gotPath)
	assert.Equal(t, "972501234567@c.us", gotBody["chatId"])
	assert.Equal(t, "שלום", gotBody["message"])
}

func TestSendMessageGatewayError(t *testing.T) {
	gateway, store := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusBadGateway)
	})

	_, err := gateway.SendMessage("0501234567", "שלום")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	_, total, logErr := store.SearchLogs(&models.LogQuery{LogType: models.LogBotError})
	require.NoError(t, logErr)
	assert.Equal(t, int64(1), total)
}

func TestParseNotificationTextMessage(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	payload := `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {
			"chatId": "972501234567@c.us",
			"senderName": "דנה כהן"
		},
		"messageData": {
			"typeMessage": "textMessage",
			"textMessageData": {"textMessage": "שלום"}
		}
	}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	msg := gateway.ParseNotification(&n)
	require.NotNil(t, msg)
	assert.Equal(t, "0501234567", msg.Phone)
	assert.Equal(t, "שלום", msg.Text)
	assert.Equal(t, "דנה כהן", msg.SenderName)
	assert.True(t, msg.IsText())
}

func TestParseNotificationExtendedText(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	payload := `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {
			"sender": "972501234567@c.us",
			"senderContactName": "יוסי"
		},
		"messageData": {
			"typeMessage": "extendedTextMessage",
			"extendedTextMessageData": {"text": "1"}
		}
	}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	msg := gateway.ParseNotification(&n)
	require.NotNil(t, msg)
	assert.Equal(t, "0501234567", msg.Phone)
	assert.Equal(t, "1", msg.Text)
	assert.Equal(t, "יוסי", msg.SenderName)
}

func TestParseNotificationIgnoresNonIncoming(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	n := &Notification{TypeWebhook: "outgoingMessageStatus"}
	assert.Nil(t, gateway.ParseNotification(n))
	assert.Nil(t, gateway.ParseNotification(nil))
}

func TestParseNotificationIgnoresMissingSender(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	n := &Notification{TypeWebhook: webhookTypeIncoming}
	assert.Nil(t, gateway.ParseNotification(n))
}

func TestParseNotificationIgnoresMissingMessageData(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	payload := `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {
			"chatId": "972501234567@c.us",
			"senderName": "דנה כהן"
		}
	}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	assert.Nil(t, gateway.ParseNotification(&n))
}

func TestParseNotificationMediaPlaceholder(t *testing.T) {
	gateway, _ := newTestGateway(t, nil)

	payload := `{
		"typeWebhook": "incomingMessageReceived",
		"senderData": {"chatId": "972501234567@c.us"},
		"messageData": {"typeMessage": "imageMessage"}
	}`

	var n Notification
	require.NoError(t, json.Unmarshal([]byte(payload), &n))

	msg := gateway.ParseNotification(&n)
	require.NotNil(t, msg)
	assert.Equal(t, "[imageMessage]", msg.Text)
	assert.False(t, msg.IsText())
}

func TestReceiveNotificationEmptyQueue(t *testing.T) {
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	envelope, err := gateway.ReceiveNotification()
	require.NoError(t, err)
	assert.Nil(t, envelope)
}

func TestReceiveAndDeleteNotification(t *testing.T) {
	var deletedPath string
	gateway, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deletedPath = r.URL.Path
			_, _ = w.Write([]byte(`{"result":true}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"receiptId": 42,
			"body": {
				"typeWebhook": "incomingMessageReceived",
				"senderData": {"chatId": "972501234567@c.us"},
				"messageData": {
					"typeMessage": "textMessage",
					"textMessageData": {"textMessage": "2"}
				}
			}
		}`))
	})

	envelope, err := gateway.ReceiveNotification()
	require.NoError(t, err)
	require.NotNil(t, envelope)
	assert.Equal(t, 42, envelope.ReceiptID)
	assert.Equal(t, webhookTypeIncoming, envelope.Body.TypeWebhook)

	require.NoError(t, gateway.DeleteNotification(envelope.ReceiptID))
	assert.Equal(t, "/waInstance1101000001/deleteNotification/test-token/42", deletedPath)
}
