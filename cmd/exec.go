package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"festival-ledger/config"
	"festival-ledger/internal/handlers"
	"festival-ledger/internal/ledger"
	"festival-ledger/internal/payment"
	"festival-ledger/internal/services"
	_ "festival-ledger/migrations"
	"festival-ledger/monitoring"
	"festival-ledger/security"
	"festival-ledger/utils"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
)

const sinkMetricsInterval = 15 * time.Second

func Start() error {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	// Payment asset behind a circuit breaker
	asset, err := payment.NewAsset(payment.Kind(cfg.PaymentAsset), payment.Options{
		Name:     cfg.PaymentAssetName,
		Operator: cfg.TokenOperator,
		Redis:    redisClient,
	})
	if err != nil {
		return err
	}
	asset = payment.WithBreaker(asset, utils.NewCircuitBreakerWithSettings("payment-"+cfg.PaymentAsset, utils.Settings{
		MaxRequests: cfg.BreakerMaxRequests,
		Timeout:     cfg.BreakerTimeout,
	}))

	// Event sinks
	monitor := monitoring.NewMonitor()
	projector := services.NewProjector(redisClient, cfg.EventBuffer)
	notifier := services.NewNotifier(services.NewPubNubPublisher(cfg), cfg.PubNubChannel, cfg.EventBuffer)
	runID, err := utils.GenerateCode(8)
	if err != nil {
		return err
	}
	archiver := services.NewArchiver(app, runID, cfg.EventBuffer)

	monitor.Watch("projector", projector)
	monitor.Watch("notifier", notifier)
	monitor.Watch("archiver", archiver)

	l, err := ledger.New(ledger.Config{
		Admin:            cfg.AdminAccount,
		Treasury:         cfg.TreasuryAccount,
		CommissionRate:   cfg.CommissionRate,
		ZeroCommission:   cfg.CommissionRate.IsZero(),
		RequireFacePrice: cfg.RequireFacePrice,
		Logger:           slog.Default(),
	}, asset, monitor, projector, notifier, archiver)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	log.Printf("Ledger ready: run=%s admin=%s treasury=%s asset=%s commission=%s",
		runID, cfg.AdminAccount, cfg.TreasuryAccount, asset.Name(), l.CommissionRate())

	// Initialize handlers
	festivalHandler := handlers.NewFestivalHandler(l, monitor)
	ticketHandler := handlers.NewTicketHandler(l, monitor)
	roleHandler := handlers.NewRoleHandler(l, monitor)
	adminHandler := handlers.NewAdminHandler(l, archiver, projector, redisClient)
	paymentHandler := handlers.NewPaymentHandler(asset)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.RateLimitPerMinute)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.IsDevelopment(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	go handleShutdown(cancel)

	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		// Sinks start once migrations have been applied
		go projector.Run(ctx)
		go notifier.Run(ctx)
		go archiver.Run(ctx)
		go monitor.Run(ctx, sinkMetricsInterval)

		if cfg.EnableMetrics {
			go func() {
				if err := monitoring.Serve(ctx, ":"+cfg.MetricsPort); err != nil {
					slog.Error("monitoring.Serve()", "error", err)
				}
			}()
		}

		api := e.Router.Group("/api/v1")
		api.BindFunc(rateLimiter.Middleware())

		// Festival endpoints
		api.GET("/festivals/active", festivalHandler.ListActive)
		api.GET("/festivals/{id}", festivalHandler.Get)
		api.POST("/festivals", festivalHandler.Create)
		api.POST("/festivals/{id}/deactivate", festivalHandler.Deactivate)
		api.POST("/festivals/{id}/purchase", festivalHandler.Purchase)
		api.POST("/festivals/{id}/bulk-mint", festivalHandler.BulkMint)

		// Ticket endpoints
		api.GET("/tickets", ticketHandler.ListByOwner)
		api.GET("/tickets/{id}", ticketHandler.Get)
		api.POST("/tickets/{id}/list", ticketHandler.List)
		api.POST("/tickets/{id}/unlist", ticketHandler.Unlist)
		api.POST("/tickets/{id}/buy", ticketHandler.Buy)
		api.GET("/market/tickets", ticketHandler.Market)

		// Role endpoints
		api.GET("/roles/{role}", roleHandler.Members)
		api.GET("/roles/{role}/{account}", roleHandler.HasRole)
		api.POST("/roles/grant", roleHandler.Grant)
		api.POST("/roles/revoke", roleHandler.Revoke)
		api.POST("/roles/renounce", roleHandler.Renounce)

		// Ledger read side
		api.GET("/commission", adminHandler.Commission)
		api.GET("/events", adminHandler.Events)
		api.GET("/events/archive", adminHandler.ArchivedEvents)
		api.GET("/balances/{account}", paymentHandler.Balance)

		// Funding endpoints for local testing
		if cfg.IsDevelopment() {
			api.POST("/dev/deposit", paymentHandler.Deposit)
			api.POST("/dev/approve", paymentHandler.Approve)
		}

		// Health check
		e.Router.GET("/health", adminHandler.Health)

		log.Println("Server routes registered")

		return e.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
	return nil
}

// handleShutdown handles graceful shutdown
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, flushing event sinks...")
	cancel()
}
