package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

// BotService wires the conversation flow to the outside world: it
// resolves customers, records inbound messages, advances the state
// machine under the per-phone lock and executes the resulting effects.
type BotService struct {
	store         storage.Store
	gateway       *GreenAPIService
	resolver      *CustomerResolver
	conversations *ConversationStore
	botLog        *BotLogService
	flow          *Flow
	msgs          *Messages
}

// NewBotService creates a new bot service
func NewBotService(
	store storage.Store,
	gateway *GreenAPIService,
	resolver *CustomerResolver,
	conversations *ConversationStore,
	botLog *BotLogService,
	msgs *Messages,
) *BotService {
	return &BotService{
		store:         store,
		gateway:       gateway,
		resolver:      resolver,
		conversations: conversations,
		botLog:        botLog,
		flow:          NewFlow(msgs),
		msgs:          msgs,
	}
}

// HandleInbound processes one parsed inbound message end to end. The
// returned error means the message could not be taken in at all
// (customer resolution or message record failed); transition-level
// failures are recovered internally with a user-facing fallback.
func (b *BotService) HandleInbound(in *InboundMessage) error {
	log.Printf("📱 Message from %s (%s): %s", in.Phone, in.SenderName, preview(in.Text))

	customer, created, err := b.resolver.Resolve(in.Phone, in.SenderName)
	if err != nil {
		b.botLog.Write(in.Phone, "", models.LogBotError,
			fmt.Sprintf("שגיאה בזיהוי לקוח: %v", err))
		if _, sendErr := b.gateway.SendMessage(in.Phone, b.msgs.CreateFailed()); sendErr != nil {
			log.Printf("❌ Fallback message not delivered to %s: %v", in.Phone, sendErr)
		}
		return err
	}

	record, err := b.store.CreateMessage(&models.WhatsAppMessage{
		Phone:        in.Phone,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		MessageText:  in.Text,
		Direction:    models.DirectionIncoming,
		Status:       models.MessageStatusPending,
	})
	if err != nil {
		b.botLog.Write(in.Phone, customer.ID, models.LogBotError,
			fmt.Sprintf("שגיאה בשמירת הודעה: %v", err))
		return fmt.Errorf("record inbound message: %w", err)
	}

	b.botLog.WriteRelated(in.Phone, customer.ID, models.LogMessageReceived,
		fmt.Sprintf("הודעה התקבלה: %s", preview(in.Text)), record.ID, "")

	// Media and other non-text content is recorded but never routed
	// into the conversation flow.
	if !in.IsText() {
		return nil
	}

	b.conversations.WithLock(in.Phone, func(state *ConversationState) {
		state.CustomerID = customer.ID
		state.CustomerName = customer.Name

		ctx := FlowContext{
			Customer:     customer,
			FirstContact: created,
		}
		if state.Step == StepIdle || state.Step == StepMainMenu {
			openCalls, err := b.store.GetOpenServiceCalls(customer.ID)
			if err != nil {
				b.botLog.Write(in.Phone, customer.ID, models.LogBotError,
					fmt.Sprintf("שגיאה בשליפת קריאות פתוחות: %v", err))
			}
			ctx.OpenCalls = openCalls
		}

		effects := b.flow.Advance(state, strings.TrimSpace(in.Text), ctx)
		b.applyEffects(in.Phone, record.ID, state, effects)

		// Marked processed before the lock is released: the next message
		// for this phone never observes a half-finished transition.
		if err := b.store.UpdateMessageStatus(record.ID, models.MessageStatusProcessed); err != nil {
			log.Printf("⚠️  Could not mark message %s processed: %v", record.ID, err)
		}
	})

	return nil
}

// applyEffects executes a transition's effects in order. Send failures
// are logged by the gateway and swallowed; a failed service call
// creation drops the conversation back to the main menu so the customer
// does not have to sit through the whole greeting again.
func (b *BotService) applyEffects(phoneNumber, messageID string, state *ConversationState, effects []Effect) {
	for _, effect := range effects {
		switch e := effect.(type) {
		case EffectSendText:
			if _, err := b.gateway.SendMessage(phoneNumber, e.Text); err != nil {
				log.Printf("❌ Send to %s failed: %v", phoneNumber, err)
			}

		case EffectLog:
			b.botLog.WriteRelated(phoneNumber, state.CustomerID, e.Kind, e.Details, messageID, "")

		case EffectCreateCall:
			call := e.Call
			call.ContactMobile = phoneNumber

			created, err := b.store.CreateServiceCall(&call)
			if err != nil {
				log.Printf("❌ Failed to create service call for %s: %v", phoneNumber, err)
				b.botLog.WriteRelated(phoneNumber, state.CustomerID, models.LogBotError,
					fmt.Sprintf("שגיאה ביצירת קריאת שירות: %v", err), messageID, "")
				if _, sendErr := b.gateway.SendMessage(phoneNumber, b.msgs.CreateFailed()); sendErr != nil {
					log.Printf("❌ Fallback message not delivered to %s: %v", phoneNumber, sendErr)
				}
				state.Step = StepMainMenu
				continue
			}

			if _, err := b.gateway.SendMessage(phoneNumber, b.msgs.Confirmation(created)); err != nil {
				log.Printf("❌ Confirmation not delivered to %s: %v", phoneNumber, err)
			}
			b.botLog.WriteRelated(phoneNumber, state.CustomerID, models.LogServiceCallCreated,
				fmt.Sprintf("קריאת שירות #%d נוצרה", created.CallNumber), messageID, created.ID)

			state.ClearRequest()
			state.Step = StepIdle
		}
	}
}
