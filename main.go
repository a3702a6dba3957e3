package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"schoolsync_go/config"
	"schoolsync_go/database"
	"schoolsync_go/database/seeders"
	"schoolsync_go/handlers"
	"schoolsync_go/middleware"
	"schoolsync_go/routes"
	"schoolsync_go/services/archive"
	"schoolsync_go/services/chat"
	"schoolsync_go/services/notifications"
	"schoolsync_go/services/portal"
	syncsvc "schoolsync_go/services/sync"
	"schoolsync_go/services/websocket"
	"schoolsync_go/storage"
)

func init() {
	setupLogging()
	config.LoadConfig()
	database.Connect()
	seeders.SeedAll()
}

func main() {
	wsHub := websocket.NewHub()
	go wsHub.Run()

	notifService := notifications.NewService(database.DB, database.GetRedisClient(), wsHub)
	if config.AppConfig.UseRedisNotifications {
		notifService.StartWorker()
	}

	resolver := syncsvc.NewConflictResolver(database.DB)
	portalClient := portal.NewClient(database.DB, config.AppConfig.PortalBaseURL, resolver)

	scheduler := syncsvc.NewScheduler(database.DB, portalClient, config.AppConfig.SyncCron, notifService)
	if err := scheduler.Start(); err != nil {
		logrus.WithError(err).Fatal("starting sync scheduler")
	}

	archiveService := archive.NewService(database.DB)
	archiveService.StartMaintenanceScheduler()

	chatService := setupChatService()

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggerMiddleware())

	routes.SetupRoutes(app, routes.Deps{
		Hub:          wsHub,
		Scheduler:    scheduler,
		Resolver:     resolver,
		PortalClient: portalClient,
		ChatService:  chatService,
		Notifier:     notifService,
		Archives:     archiveService,
	})

	if config.AppConfig.LineChannelSecret != "" && config.AppConfig.LineChannelToken != "" {
		lineHandler := handlers.NewLineWebhookHandler(database.DB)
		app.Post("/line/webhook", lineHandler.Handle)
		logrus.Info("LINE webhook enabled at /line/webhook")
	} else {
		logrus.Info("LINE webhook disabled: missing channel secret or token")
	}

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Route not found",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		logrus.Info("shutting down")
		if chatService != nil {
			chatService.Close()
		}
		scheduler.Stop()
		notifService.StopWorker()
		if err := app.Shutdown(); err != nil {
			logrus.WithError(err).Error("shutting down http server")
		}
	}()

	logrus.WithFields(logrus.Fields{
		"port": config.AppConfig.Port,
		"env":  config.AppConfig.AppEnv,
	}).Info("server starting")

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}

	database.Close()
}

// setupChatService wires the messenger bridge when one is configured.
// The service is optional: without a bridge URL the chat endpoints
// report the feature as unavailable.
func setupChatService() *chat.Service {
	if config.AppConfig.ChatBridgeURL == "" {
		logrus.Info("messenger bridge not configured, chat ingestion disabled")
		return nil
	}

	transport, err := chat.DialBridge(config.AppConfig.ChatBridgeURL)
	if err != nil {
		logrus.WithError(err).Error("connecting to messenger bridge, chat ingestion disabled")
		return nil
	}

	var archiver chat.Archiver
	if storageService, err := storage.NewStorageService(); err == nil {
		archiver = storageService
	} else {
		logrus.WithError(err).Warn("S3 storage unavailable, chat documents kept locally only")
	}

	svc := chat.NewService(database.DB, transport, archiver)
	svc.Start()
	return svc
}

// setupLogging configures the logging system
func setupLogging() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		log.Printf("Warning: Could not create logs directory: %v", err)
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})

	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if os.Getenv("APP_ENV") == "development" {
		logrus.SetOutput(os.Stdout)
	} else {
		file, err := os.OpenFile("logs/app.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logrus.SetOutput(file)
		}
	}
}

// customErrorHandler handles application errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"error":  err.Error(),
		"path":   c.Path(),
		"method": c.Method(),
		"ip":     c.IP(),
		"status": code,
	}).Error("Request error")

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
