package http

import (
	"time"

	"github.com/freelance-escrow/backend/internal/config"
	"github.com/freelance-escrow/backend/internal/http/handlers"
	"github.com/freelance-escrow/backend/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SetupRouter wires the HTTP boundary. rdb may be nil; rate limiting is
// skipped without it.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	milestoneHandler *handlers.MilestoneHandler,
	walletHandler *handlers.WalletHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		// Open CORS for the demo frontend; restrict in production.
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "XRPL freelance milestone escrow backend running",
		})
	})

	api := app.Group("/api")
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))
	}

	// Wallet (demo-only faucet)
	api.Post("/wallet", walletHandler.CreateWallet)

	// Milestones
	api.Post("/milestone/create", milestoneHandler.CreateMilestone)
	api.Post("/milestone/approve", milestoneHandler.ApproveMilestone)
	api.Get("/milestones", milestoneHandler.ListMilestones)

	// WebSocket event stream
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
