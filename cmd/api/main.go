package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"go-retail-core/internal/config"
	"go-retail-core/internal/handler"
	"go-retail-core/internal/idempotency"
	"go-retail-core/internal/middleware"
	"go-retail-core/internal/model"
	"go-retail-core/internal/outbox"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/service"
	"go-retail-core/internal/ws"
	"go-retail-core/pkg/database"
	"go-retail-core/pkg/jwt"
	"go-retail-core/pkg/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. Config and logging
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Mode:       cfg.Log.Mode,
		Level:      cfg.Log.Level,
		FileEnable: cfg.Log.FileEnable,
		Filename:   cfg.Log.Filename,
	})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.ConnectDB(database.Options{
		URL:      cfg.Database.URL,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		TimeZone: cfg.Database.TimeZone,
		LogSQL:   cfg.Database.LogSQL,
	})
	if err != nil {
		zap.S().Fatalw("database connection failed", "error", err)
	}
	// Auto Migrate (a separate migration tool is the better fit in production)
	if err := db.AutoMigrate(model.All()...); err != nil {
		zap.S().Fatalw("migration failed", "error", err)
	}

	// 3. WebSocket hub
	wsHub := ws.NewHub()

	// 4. Dependency injection
	productRepo := repository.NewProductRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	outboxRepo := repository.NewOutboxRepo(db)
	staffRepo := repository.NewStaffRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	dashRepo := repository.NewDashboardRepo(db)

	var idem idempotency.Store = idempotency.Noop{}
	if cfg.Redis.Addr != "" {
		idem = idempotency.NewRedisStore(idempotency.NewRedisClient(cfg.Redis.Addr))
	}

	tokens := jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authService := service.NewAuthService(staffRepo, privilegeRepo, tokens, wsHub, cfg.JWT.IdleTimeout)
	ledger := service.NewStockLedger(productRepo, movementRepo, outboxRepo, db, cfg.TxMaxAttempts)
	directory := service.NewCustomerDirectory(customerRepo)
	refunds := service.NewRefundProcessor(saleRepo, outboxRepo, ledger, directory, db, cfg.TxMaxAttempts)
	committer := service.NewTransactionCommitter(saleRepo, outboxRepo, ledger, directory, refunds, idem, db, cfg.TxMaxAttempts)
	builder := service.NewSaleBuilder(productRepo, service.NewDeliveryRates(cfg.Delivery), cfg.Pricing.DefaultTaxRate)

	// 5. Seed privileges and the first manager
	if err := privilegeRepo.SeedDefaults(); err != nil {
		zap.S().Warnw("failed to seed privileges", "error", err)
	}
	if err := authService.EnsureManager(cfg.Manager.Email, cfg.Manager.Password, cfg.Manager.Name); err != nil {
		zap.S().Warnw("failed to create bootstrap manager", "error", err)
	}

	// 6. Outbox relay
	publishers := []outbox.Publisher{outbox.NewFeedPublisher(wsHub)}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := outbox.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TopicPrefix)
		defer kp.Close()
		publishers = append(publishers, kp)
	}
	if cfg.SMTP.Host != "" {
		publishers = append(publishers, outbox.NewReceiptMailer(cfg.SMTP))
	}
	relay := outbox.NewRelay(outboxRepo, cfg.Outbox.BatchSize, cfg.Outbox.MaxAttempts, publishers...)
	sched, err := relay.Schedule(ctx, cfg.Outbox.Interval)
	if err != nil {
		zap.S().Fatalw("failed to schedule outbox relay", "error", err)
	}

	// 7. Fiber
	app := fiber.New(fiber.Config{
		AppName: "Retail Core v1.0",
	})

	app.Use(fiberlog.New())
	app.Use(recover.New())
	app.Use(cors.New())

	system := model.Actor{ID: cfg.SystemActorID, Name: cfg.SystemActorName}
	protected := handler.Register(app, handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Inventory: handler.NewInventoryHandler(service.NewProductService(productRepo), ledger),
		Sale:      handler.NewSaleHandler(builder, committer, refunds),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(dashRepo)),
	}, middleware.RequireAuth(authService), system)

	// Privileges Route (list all available privileges)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		if !wsHub.Join(c) {
			return
		}
		defer wsHub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Run until signalled, then drain
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		zap.S().Infow("listening", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("shutting down server...")
		<-sched.Stop().Done()
		return app.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Errorw("server stopped with error", "error", err)
	}
	zap.S().Info("server exited")
}
