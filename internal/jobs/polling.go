package jobs

import (
	"log"
	"sync"
	"time"

	"github.com/biztechoff/servicedesk-backend/internal/services"
)

// NotificationPoller pulls pending notifications from the gateway for
// deployments that cannot expose a public webhook URL. Each polled
// notification runs through the same pipeline as a webhook delivery and
// is acknowledged afterwards so the gateway stops holding it.
type NotificationPoller struct {
	gateway *services.GreenAPIService
	bot     *services.BotService

	mu        sync.Mutex
	isRunning bool
	done      chan struct{}
}

// NewNotificationPoller creates a new notification poller
func NewNotificationPoller(gateway *services.GreenAPIService, bot *services.BotService) *NotificationPoller {
	return &NotificationPoller{
		gateway: gateway,
		bot:     bot,
	}
}

// Start begins polling in the background
func (p *NotificationPoller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		log.Println("Notification poller already running")
		return
	}

	p.isRunning = true
	p.done = make(chan struct{})
	go p.pollLoop(p.done)

	log.Println("✅ Notification polling started")
}

// Stop halts polling
func (p *NotificationPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning {
		return
	}

	p.isRunning = false
	close(p.done)
	log.Println("⏹️  Notification polling stopped")
}

func (p *NotificationPoller) pollLoop(done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		envelope, err := p.gateway.ReceiveNotification()
		if err != nil {
			log.Printf("⚠️  Poll error: %v", err)
			select {
			case <-done:
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		if envelope == nil {
			continue // long-poll timed out with nothing pending
		}

		if inbound := p.gateway.ParseNotification(&envelope.Body); inbound != nil {
			if err := p.bot.HandleInbound(inbound); err != nil {
				log.Printf("❌ Polled message processing failed: %v", err)
			}
		}

		// Acknowledge even ignored notification types, otherwise the
		// gateway keeps redelivering them.
		if err := p.gateway.DeleteNotification(envelope.ReceiptID); err != nil {
			log.Printf("⚠️  Could not acknowledge notification %d: %v", envelope.ReceiptID, err)
		}
	}
}
