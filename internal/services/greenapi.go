package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/phone"
)

const (
	webhookTypeIncoming = "incomingMessageReceived"

	typeTextMessage         = "textMessage"
	typeExtendedTextMessage = "extendedTextMessage"

	// Outbound bodies are truncated to this many runes in audit logs.
	logPreviewLen = 100
)

// GreenAPIService sends and receives WhatsApp messages through the
// Green API gateway.
type GreenAPIService struct {
	baseURL    string
	instanceID string
	token      string
	client     *http.Client
	botLog     *BotLogService
}

// NewGreenAPIService creates a gateway client with explicit configuration.
func NewGreenAPIService(baseURL, instanceID, token string, botLog *BotLogService) *GreenAPIService {
	return &GreenAPIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		instanceID: instanceID,
		token:      token,
		client:     &http.Client{Timeout: 10 * time.Second},
		botLog:     botLog,
	}
}

// NewGreenAPIServiceFromEnv creates a gateway client from environment variables.
func NewGreenAPIServiceFromEnv(botLog *BotLogService) (*GreenAPIService, error) {
	baseURL := os.Getenv("BOT_GREEN_API_URL")
	if baseURL == "" {
		baseURL = "https://api.green-api.com"
	}

	instanceID := os.Getenv("BOT_INSTANCE_ID")
	token := os.Getenv("BOT_TOKEN")
	if instanceID == "" || token == "" {
		return nil, fmt.Errorf("missing Green API credentials in environment variables")
	}

	return NewGreenAPIService(baseURL, instanceID, token, botLog), nil
}

// SendResponse is the gateway's reply to a send request.
type SendResponse struct {
	IDMessage string `json:"idMessage"`
}

// SendMessage sends one text message to a phone number. One attempt
// only: failures are logged as bot errors and returned, never retried.
func (g *GreenAPIService) SendMessage(phoneNumber, message string) (*SendResponse, error) {
	chatID := phone.ToChatID(phoneNumber)
	url := fmt.Sprintf("%s/waInstance%s/sendMessage/%s", g.baseURL, g.instanceID, g.token)

	body, err := json.Marshal(map[string]string{
		"chatId":  chatID,
		"message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal send payload: %w", err)
	}

	resp, err := g.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		g.botLog.Write(phoneNumber, "", models.LogBotError,
			fmt.Sprintf("שגיאה בשליחת הודעה: %v", err))
		return nil, fmt.Errorf("gateway send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		g.botLog.Write(phoneNumber, "", models.LogBotError,
			fmt.Sprintf("שגיאה בשליחת הודעה: status %d", resp.StatusCode))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode,
			strings.TrimSpace(string(data)))
	}

	var result SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode send response: %w", err)
	}

	g.botLog.Write(phoneNumber, "", models.LogMessageSent,
		fmt.Sprintf("הודעה נשלחה: %s", preview(message)))
	log.Printf("✅ Message sent to %s: %s", phoneNumber, result.IDMessage)

	return &result, nil
}

// Notification is a Green API webhook payload.
type Notification struct {
	TypeWebhook string `json:"typeWebhook"`
	Timestamp   int64  `json:"timestamp"`
	IDMessage   string `json:"idMessage"`
	SenderData  struct {
		ChatID            string `json:"chatId"`
		ChatName          string `json:"chatName"`
		Sender            string `json:"sender"`
		SenderName        string `json:"senderName"`
		SenderContactName string `json:"senderContactName"`
	} `json:"senderData"`
	MessageData struct {
		TypeMessage     string `json:"typeMessage"`
		TextMessageData *struct {
			TextMessage string `json:"textMessage"`
		} `json:"textMessageData"`
		ExtendedTextMessageData *struct {
			Text string `json:"text"`
		} `json:"extendedTextMessageData"`
	} `json:"messageData"`
}

// InboundMessage is a parsed incoming text ready for the bot.
type InboundMessage struct {
	Phone      string
	Text       string
	SenderName string
}

// IsText reports whether the inbound payload carried real text, as
// opposed to a bracketed placeholder for media/location/etc. Only real
// text is routed into the conversation flow.
func (m *InboundMessage) IsText() bool {
	return !strings.HasPrefix(m.Text, "[")
}

// ParseNotification extracts an inbound message from a webhook payload.
// Returns nil for anything that is not an incoming message (status
// updates, instance events) or that lacks sender data — those are
// acknowledged upstream and otherwise ignored.
func (g *GreenAPIService) ParseNotification(n *Notification) *InboundMessage {
	if n == nil || n.TypeWebhook != webhookTypeIncoming {
		return nil
	}

	chatID := n.SenderData.ChatID
	if chatID == "" {
		chatID = n.SenderData.Sender
	}
	if chatID == "" {
		log.Println("⚠️  Notification missing sender data, ignoring")
		return nil
	}

	senderName := n.SenderData.SenderName
	if senderName == "" {
		senderName = n.SenderData.SenderContactName
	}

	if n.MessageData.TypeMessage == "" {
		log.Println("⚠️  Notification missing message data, ignoring")
		return nil
	}

	var text string
	switch {
	case n.MessageData.TypeMessage == typeTextMessage && n.MessageData.TextMessageData != nil:
		text = n.MessageData.TextMessageData.TextMessage
	case n.MessageData.TypeMessage == typeExtendedTextMessage && n.MessageData.ExtendedTextMessageData != nil:
		text = n.MessageData.ExtendedTextMessageData.Text
	default:
		// Image/audio/location and friends are recorded as a tag, not
		// fed into the state machine.
		text = fmt.Sprintf("[%s]", n.MessageData.TypeMessage)
	}

	return &InboundMessage{
		Phone:      phone.FromChatID(chatID),
		Text:       text,
		SenderName: senderName,
	}
}

// NotificationEnvelope wraps a polled notification with the receipt id
// needed to acknowledge it.
type NotificationEnvelope struct {
	ReceiptID int          `json:"receiptId"`
	Body      Notification `json:"body"`
}

// ReceiveNotification long-polls the gateway for one pending
// notification. Returns nil when none is waiting.
func (g *GreenAPIService) ReceiveNotification() (*NotificationEnvelope, error) {
	url := fmt.Sprintf("%s/waInstance%s/receiveNotification/%s?receiveTimeout=5",
		g.baseURL, g.instanceID, g.token)

	resp, err := g.client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("gateway poll failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("gateway poll returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "null" {
		return nil, nil
	}

	var envelope NotificationEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	return &envelope, nil
}

// DeleteNotification acknowledges a polled notification so the gateway
// stops redelivering it.
func (g *GreenAPIService) DeleteNotification(receiptID int) error {
	url := fmt.Sprintf("%s/waInstance%s/deleteNotification/%s/%d",
		g.baseURL, g.instanceID, g.token, receiptID)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete notification failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("delete notification returned %d", resp.StatusCode)
	}
	return nil
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= logPreviewLen {
		return s
	}
	return string(runes[:logPreviewLen])
}
