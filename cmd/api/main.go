package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freelance-escrow/backend/internal/config"
	"github.com/freelance-escrow/backend/internal/db"
	"github.com/freelance-escrow/backend/internal/events"
	apphttp "github.com/freelance-escrow/backend/internal/http"
	"github.com/freelance-escrow/backend/internal/http/handlers"
	"github.com/freelance-escrow/backend/internal/ledger"
	"github.com/freelance-escrow/backend/internal/repositories"
	"github.com/freelance-escrow/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Milestone store: Postgres when a DSN is configured, the bundled
	// SQLite file otherwise.
	var milestoneRepo repositories.MilestoneRepo
	if cfg.UsePostgres() {
		pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		milestoneRepo = repositories.NewPostgresMilestoneRepo(pool)
	} else {
		sqlDB, err := db.OpenSQLite(cfg.DBPath, log)
		if err != nil {
			log.Fatal("failed to open sqlite database", zap.Error(err))
		}
		defer sqlDB.Close()
		milestoneRepo = repositories.NewSQLiteMilestoneRepo(sqlDB)
	}

	// Redis is optional; without it events stay in-process and rate
	// limiting is off.
	var (
		rdb *redis.Client
		bus events.Bus
	)
	if cfg.RedisURL != "" {
		var err error
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		bus = events.NewRedisBus(rdb, log)
	} else {
		bus = events.NewMemoryBus(log)
	}

	// Ledger gateway: constructed once, owned by the process lifecycle.
	ledgerClient := ledger.NewClient(cfg.XRPLRPCURL, cfg.XRPLFaucetURL, ledger.ClientOptions{
		Timeout:      cfg.LedgerCallTimeout,
		PollInterval: cfg.LedgerPollInterval,
		PollAttempts: cfg.LedgerPollAttempts,
	}, log)

	// Services
	escrowService := services.NewEscrowService(milestoneRepo, ledgerClient, bus, log)
	walletService := services.NewWalletService(ledgerClient, log)

	// Handlers
	milestoneHandler := handlers.NewMilestoneHandler(escrowService, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	wsHub := handlers.NewWSHub(bus, log)
	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, milestoneHandler, walletHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr), zap.String("xrpl_rpc", cfg.XRPLRPCURL))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
