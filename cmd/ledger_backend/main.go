package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/banking_ledger/internal/adapters/events/kafka"
	"github.com/SscSPs/banking_ledger/internal/adapters/settlement/httpgateway"
	"github.com/SscSPs/banking_ledger/internal/adapters/settlement/simulated"
	portsrepo "github.com/SscSPs/banking_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/banking_ledger/internal/core/ports/services"
	"github.com/SscSPs/banking_ledger/internal/core/services"
	"github.com/SscSPs/banking_ledger/internal/handlers"
	"github.com/SscSPs/banking_ledger/internal/middleware"
	"github.com/SscSPs/banking_ledger/internal/platform/config"
	"github.com/SscSPs/banking_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/banking_ledger/internal/repositories/memory"
	"github.com/SscSPs/banking_ledger/internal/utils"
	"github.com/SscSPs/banking_ledger/pkg/database"
	"github.com/gin-gonic/gin"
)

// @title Banking Ledger API
// @version 1.0
// @description Accounts, transfers, loan payments and external settlement.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, health, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	publisher := newPublisher(cfg, logger)
	notifier := services.NewNotifier(publisher, cfg.EventPublishLimit)

	container := services.NewServiceContainer(cfg, repos, services.Collaborators{
		Gateway:  newGateway(cfg, logger),
		Notifier: notifier,
	})

	posthogClient := utils.InitializePosthogClient(cfg.PosthogAPIKey, cfg.PosthogEndpoint, logger)
	defer posthogClient.Close()

	limiterInstance, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Failed to configure rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		logger.Error("Failed to register validators", slog.String("error", err.Error()))
		os.Exit(1)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	handlers.RegisterRoutes(r, cfg, container, handlers.RouteDeps{
		Limiter: limiterInstance,
		Posthog: posthogClient,
		Health:  health,
	})

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		services.NewReconciler(container.Settlement, container.Idempotency, cfg.ReconcileInterval).Run(workerCtx)
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
	stopWorker()
	<-workerDone
	notifier.Wait()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close event publisher", slog.String("error", err.Error()))
		}
	}
	logger.Info("Shutdown complete")
}

// openStore connects the configured ledger store, running migrations for postgres.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, handlers.HealthCheck, func(), error) {
	if cfg.StorageDriver == config.StorageMemory {
		logger.Warn("Using the in-memory ledger store; balances are lost on restart")
		return portsrepo.RepositoryProvider{
			Ledger:      memory.NewStore(memory.WithLockTimeout(cfg.LedgerLockTimeout)),
			Idempotency: memory.NewIdempotencyRepository(),
		}, nil, func() {}, nil
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, database.PoolOptions{ConnectTimeout: 5 * time.Second})
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, nil, err
	}
	if err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir, logger); err != nil {
		database.ClosePgxPool(dbPool)
		return portsrepo.RepositoryProvider{}, nil, nil, err
	}
	var health handlers.HealthCheck
	if cfg.EnableDBCheck {
		health = dbPool.Ping
	}
	return pgsql.NewRepositoryProvider(dbPool, cfg.LedgerLockTimeout), health, func() { database.ClosePgxPool(dbPool) }, nil
}

func newGateway(cfg *config.Config, logger *slog.Logger) portssvc.SettlementGateway {
	if cfg.SettlementDriver == config.SettlementHTTP {
		logger.Info("Using HTTP settlement gateway", slog.String("base_url", cfg.SettlementBaseURL))
		return httpgateway.NewClient(cfg.SettlementBaseURL, cfg.SettlementAPIKey, nil)
	}
	logger.Info("Using simulated settlement gateway", slog.Int64("seed", cfg.SimulatedSettlementSeed))
	return simulated.NewGateway(cfg.SimulatedSettlementSeed)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) portssvc.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("KAFKA_BROKERS not set, transaction notifications are disabled")
		return nil
	}
	logger.Info("Publishing transaction events to Kafka", slog.String("topic", cfg.KafkaTopic))
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}
