package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/biztechoff/servicedesk-backend/internal/handlers"
	"github.com/biztechoff/servicedesk-backend/internal/middleware"
	"github.com/biztechoff/servicedesk-backend/internal/services"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, bot *services.BotService, gateway *services.GreenAPIService) {
	whatsappHandler := handlers.NewWhatsAppHandler(store, bot, gateway)
	healthHandler := handlers.NewHealthHandler("1.0.0")

	app.Get("/health", healthHandler.Check)

	// All WhatsApp endpoints share the webhook secret: the gateway's
	// webhook URL and the dashboard both carry ?key=<secret>.
	wapp := app.Group("/api/wapp", middleware.RequireAPIKey())

	wapp.Post("/received", whatsappHandler.HandleWebhook)
	wapp.Post("/send", whatsappHandler.HandleSend)

	// Dashboard queries
	wapp.Get("/messages", whatsappHandler.GetMessages)
	wapp.Get("/logs", whatsappHandler.GetLogs)
	wapp.Get("/stats", whatsappHandler.GetStats)
	wapp.Get("/calls/:id", whatsappHandler.GetServiceCall)
}
