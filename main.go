package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/biztechoff/servicedesk-backend/database"
	"github.com/biztechoff/servicedesk-backend/internal/jobs"
	"github.com/biztechoff/servicedesk-backend/internal/models"
	"github.com/biztechoff/servicedesk-backend/internal/routes"
	"github.com/biztechoff/servicedesk-backend/internal/services"
	"github.com/biztechoff/servicedesk-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}

		log.Printf("🔍 BOT_INSTANCE_ID exists: %v", os.Getenv("BOT_INSTANCE_ID") != "")
		log.Printf("🔍 BOT_TOKEN exists: %v", os.Getenv("BOT_TOKEN") != "")
		log.Printf("🔍 SERVER_API_KEY exists: %v", os.Getenv("SERVER_API_KEY") != "")
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Customer{},
			&models.ServiceCall{},
			&models.WhatsAppMessage{},
			&models.WhatsAppLog{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Initialize services
	botLog := services.NewBotLogService(store)

	gateway, err := services.NewGreenAPIServiceFromEnv(botLog)
	if err != nil {
		log.Fatal("Failed to initialize Green API service:", err)
	}
	log.Println("✅ Green API gateway initialized")

	msgs := services.NewMessagesFromEnv()
	resolver := services.NewCustomerResolver(store, botLog)
	conversations := services.NewConversationStore(botLog)
	conversations.Start()

	bot := services.NewBotService(store, gateway, resolver, conversations, botLog, msgs)

	// Notification polling for deployments without a public webhook URL
	var poller *jobs.NotificationPoller
	if os.Getenv("BOT_POLLING") == "true" {
		poller = jobs.NewNotificationPoller(gateway, bot)
		poller.Start()
	}

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "ServiceDesk Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Root endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service": "ServiceDesk Backend API",
			"version": "1.0.0",
			"status":  "healthy",
			"storage": getStorageType(),
			"bot": fiber.Map{
				"active_conversations": conversations.ActiveCount(),
				"polling":              poller != nil,
			},
		}

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			dbStatus := "connected"
			if err != nil {
				dbStatus = "error: " + err.Error()
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error: " + err.Error()
			}

			var customerCount, callCount, messageCount, logCount int64
			database.DB.Model(&models.Customer{}).Count(&customerCount)
			database.DB.Model(&models.ServiceCall{}).Count(&callCount)
			database.DB.Model(&models.WhatsAppMessage{}).Count(&messageCount)
			database.DB.Model(&models.WhatsAppLog{}).Count(&logCount)

			response["database"] = fiber.Map{
				"status":        dbStatus,
				"customers":     customerCount,
				"service_calls": callCount,
				"messages":      messageCount,
				"logs":          logCount,
			}
		}

		return c.JSON(response)
	})

	// Setup routes
	routes.SetupRoutes(app, store, bot, gateway)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "3002"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		if poller != nil {
			poller.Stop()
		}
		conversations.Stop()
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 ServiceDesk Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 WhatsApp gateway: %s", getGatewayStatus())
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getGatewayStatus() string {
	if os.Getenv("BOT_INSTANCE_ID") == "" {
		return "Not configured"
	}
	return "Configured"
}
