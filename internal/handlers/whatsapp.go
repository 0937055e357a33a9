package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/phone"
	"github.com/biztechoff/servicedesk-backend/internal/services"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

// WhatsAppHandler handles the gateway webhook, manual sends and the
// dashboard queries.
type WhatsAppHandler struct {
	store   storage.Store
	bot     *services.BotService
	gateway *services.GreenAPIService
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(store storage.Store, bot *services.BotService, gateway *services.GreenAPIService) *WhatsAppHandler {
	return &WhatsAppHandler{
		store:   store,
		bot:     bot,
		gateway: gateway,
	}
}

// HandleWebhook processes incoming gateway notifications. Anything that
// is not an incoming text message is acknowledged and ignored, so the
// gateway never sees a reason to redeliver.
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var notification services.Notification
	if err := json.Unmarshal(c.Body(), &notification); err != nil {
		log.Printf("⚠️  Unparseable webhook body, acknowledging anyway: %v", err)
		return c.SendStatus(fiber.StatusOK)
	}

	inbound := h.gateway.ParseNotification(&notification)
	if inbound == nil {
		log.Printf("Ignoring webhook type: %s", notification.TypeWebhook)
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.bot.HandleInbound(inbound); err != nil {
		log.Printf("❌ Webhook processing failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "processing failed",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

// SendRequest is the manual-send payload.
type SendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// HandleSend sends one message on behalf of back-office staff.
func (h *WhatsAppHandler) HandleSend(c *fiber.Ctx) error {
	var req SendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Phone == "" || req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "phone and message are required",
		})
	}

	if !phone.IsPlausible(req.Phone) {
		log.Printf("⚠️  Sending to implausible phone number: %s", req.Phone)
	}

	resp, err := h.gateway.SendMessage(req.Phone, req.Message)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "send failed",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"id_message": resp.IDMessage,
	})
}

// GetMessages lists recorded messages for the dashboard.
func (h *WhatsAppHandler) GetMessages(c *fiber.Ctx) error {
	query := &models.MessageQuery{
		Filter:    c.Query("filter"),
		Status:    models.MessageStatus(c.Query("status")),
		Direction: models.MessageDirection(c.Query("direction")),
		Page:      c.QueryInt("page", 1),
		PageSize:  c.QueryInt("pageSize", 50),
	}

	messages, total, err := h.store.SearchMessages(query)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"messages":      messages,
		"total_records": total,
	})
}

// GetLogs lists bot audit entries for the dashboard.
func (h *WhatsAppHandler) GetLogs(c *fiber.Ctx) error {
	query := &models.LogQuery{
		Filter:   c.Query("filter"),
		LogType:  models.LogType(c.Query("logType")),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("pageSize", 100),
	}

	logs, total, err := h.store.SearchLogs(query)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"logs":          logs,
		"total_records": total,
	})
}

// GetServiceCall returns one service call with its customer for the
// dashboard detail view.
func (h *WhatsAppHandler) GetServiceCall(c *fiber.Ctx) error {
	call, err := h.store.GetServiceCall(c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "service call not found",
			})
		}
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	response := fiber.Map{"service_call": call}

	// The customer may have been deleted by back-office staff; the call
	// is still worth showing.
	customer, err := h.store.GetCustomer(call.CustomerID)
	if err == nil {
		response["customer"] = customer
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(response)
}

// GetStats returns the dashboard counters.
func (h *WhatsAppHandler) GetStats(c *fiber.Ctx) error {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	pending, err := h.store.CountMessagesByStatus(models.MessageStatusPending)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	openCalls, err := h.store.CountOpenServiceCalls()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	todayMessages, err := h.store.CountMessagesSince(today)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	todayCalls, err := h.store.CountServiceCallsSince(today)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	return c.JSON(fiber.Map{
		"pending_messages":    pending,
		"open_service_calls":  openCalls,
		"today_messages":      todayMessages,
		"today_service_calls": todayCalls,
	})
}
