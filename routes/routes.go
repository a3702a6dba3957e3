package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"schoolsync_go/controllers"
	"schoolsync_go/middleware"
	"schoolsync_go/services/archive"
	"schoolsync_go/services/chat"
	"schoolsync_go/services/notifications"
	"schoolsync_go/services/portal"
	syncsvc "schoolsync_go/services/sync"
	"schoolsync_go/services/websocket"
)

// Deps carries the services the route handlers are wired to.
type Deps struct {
	Hub          *websocket.Hub
	Scheduler    *syncsvc.Scheduler
	Resolver     *syncsvc.ConflictResolver
	PortalClient *portal.Client
	ChatService  *chat.Service
	Notifier     *notifications.Service
	Archives     *archive.Service
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, deps Deps) {
	authController := &controllers.AuthController{}
	taskController := &controllers.TaskController{}
	scheduleController := &controllers.ScheduleController{}
	messageController := &controllers.MessageController{}
	healthController := controllers.NewHealthController()
	syncController := controllers.NewSyncController(deps.Scheduler, deps.Archives)
	conflictController := controllers.NewConflictController(deps.Resolver)
	chatController := controllers.NewChatController(deps.ChatService)
	integrationController := controllers.NewIntegrationController(deps.PortalClient)
	notificationController := controllers.NewNotificationController(deps.Notifier)
	wsController := controllers.NewWebSocketController(deps.Hub)

	app.Get("/health", healthController.GetHealthStatus)

	api := app.Group("/api")

	// Public routes
	api.Post("/auth/login", authController.Login)

	// WebSocket endpoint authenticates via token query parameter
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", wsController.WebSocketHandler())

	// Protected routes
	protected := api.Group("", middleware.JWTMiddleware())

	protected.Post("/auth/logout", authController.Logout)
	protected.Get("/auth/profile", authController.GetProfile)
	protected.Put("/auth/password", authController.ChangePassword)
	protected.Post("/auth/register", middleware.RequireAdmin(), authController.Register)

	// Schedule
	protected.Get("/schedule", scheduleController.GetDay)
	protected.Get("/schedule/week", scheduleController.GetWeek)
	protected.Get("/schedule/replacements", scheduleController.GetReplacements)

	// Tasks
	protected.Get("/tasks", taskController.GetTasks)
	protected.Get("/tasks/:id", taskController.GetTask)
	protected.Put("/tasks/:id", taskController.UpdateTask)
	protected.Patch("/tasks/:id/status", taskController.UpdateTaskStatus)
	protected.Delete("/tasks/:id", taskController.DeleteTask)

	// Messages
	protected.Get("/messages", messageController.GetMessages)
	protected.Get("/messages/:id", messageController.GetMessage)

	// Notifications
	protected.Get("/notifications", notificationController.GetNotifications)
	protected.Patch("/notifications/read-all", notificationController.MarkAllRead)
	protected.Patch("/notifications/:id/read", notificationController.MarkRead)

	// Sync management (admin only)
	admin := protected.Group("", middleware.RequireAdmin())

	admin.Post("/sync", syncController.TriggerSync)
	admin.Get("/sync/logs", syncController.GetSyncLogs)
	admin.Get("/sync/status", syncController.GetSyncStatus)
	admin.Get("/sync/archives", syncController.GetArchives)
	admin.Get("/sync/archives/:id/download", syncController.DownloadArchive)

	admin.Get("/conflicts", conflictController.GetConflicts)
	admin.Post("/conflicts/:id/resolve", conflictController.ResolveConflict)

	admin.Get("/integrations", integrationController.GetIntegrations)
	admin.Put("/integrations/portal", integrationController.UpsertPortalCredentials)
	admin.Post("/integrations/portal/test", integrationController.TestPortalConnection)

	// Messenger session
	admin.Get("/chats/auth", chatController.GetAuthState)
	admin.Post("/chats/auth/phone", chatController.SubmitPhone)
	admin.Post("/chats/auth/code", chatController.SubmitCode)
	admin.Post("/chats/auth/password", chatController.SubmitPassword)
	admin.Get("/chats", chatController.GetChats)
	admin.Get("/chats/selected", chatController.GetSelectedChats)
	admin.Put("/chats/selected", chatController.SelectChats)
	admin.Post("/chats/sync", chatController.SyncHistory)
	admin.Get("/chats/messages", chatController.GetClassifiedMessages)
	admin.Get("/chats/:id/messages", chatController.GetChatMessages)
	admin.Delete("/chats/messages/:id", chatController.DeleteChatMessage)

	admin.Get("/ws/stats", wsController.GetWebSocketStats)
}
