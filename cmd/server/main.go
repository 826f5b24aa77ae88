package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apporder "github.com/ecom/order-backend/internal/application/order"
	orderdomain "github.com/ecom/order-backend/internal/domain/order"
	"github.com/ecom/order-backend/internal/domain/shared"
	"github.com/ecom/order-backend/internal/infrastructure/auth"
	"github.com/ecom/order-backend/internal/infrastructure/cache"
	"github.com/ecom/order-backend/internal/infrastructure/config"
	"github.com/ecom/order-backend/internal/infrastructure/event"
	"github.com/ecom/order-backend/internal/infrastructure/gateway"
	"github.com/ecom/order-backend/internal/infrastructure/logger"
	"github.com/ecom/order-backend/internal/infrastructure/migration"
	"github.com/ecom/order-backend/internal/infrastructure/persistence"
	"github.com/ecom/order-backend/internal/interfaces/http/handler"
	"github.com/ecom/order-backend/internal/interfaces/http/router"
)

func main() {
	configPath := flag.String("config", "", "directory containing config.toml")
	migrationsPath := flag.String("migrations", "migrations", "directory containing migration files")
	runMigrations := flag.Bool("migrate", false, "run pending migrations before serving")
	flag.Parse()

	if err := run(*configPath, *migrationsPath, *runMigrations); err != nil {
		fmt.Fprintf(os.Stderr, "server exited with error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, migrationsPath string, runMigrations bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting order backend",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if runMigrations {
		if err := migrateUp(db, migrationsPath, log); err != nil {
			return err
		}
	}

	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		return fmt.Errorf("failed to create jwt service: %w", err)
	}

	inventoryClient, err := gateway.NewInventoryClient(cfg.Inventory, log)
	if err != nil {
		return fmt.Errorf("failed to create inventory client: %w", err)
	}
	identityClient, err := gateway.NewIdentityClient(cfg.Identity, log)
	if err != nil {
		return fmt.Errorf("failed to create identity client: %w", err)
	}

	pricing, err := pricingFromConfig(cfg.Pricing)
	if err != nil {
		return fmt.Errorf("invalid pricing config: %w", err)
	}

	orderRepo := persistence.NewOrderRepository(db.DB)
	discrepancyRepo := persistence.NewDiscrepancyRepository(db.DB)

	service := apporder.NewService(orderRepo, discrepancyRepo, inventoryClient, identityClient, pricing, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewLoggingHandler(log))
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}
	defer func() { _ = bus.Stop(context.Background()) }()
	service.SetEventPublisher(bus)

	if cfg.Idempotency.Enabled {
		store, closeStore, err := newIdempotencyStore(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create idempotency store: %w", err)
		}
		defer closeStore()
		service.SetIdempotencyStore(store, shared.IdempotencyConfig{
			Enabled: true,
			TTL:     cfg.Idempotency.TTL,
		})
	}

	mode := gin.ReleaseMode
	if cfg.IsDevelopment() {
		mode = gin.DebugMode
	}

	engine := router.New(router.Config{
		Mode:           mode,
		JWTService:     jwtService,
		Logger:         log,
		RequestTimeout: cfg.HTTP.WriteTimeout,
	},
		[]router.EngineRegistrar{handler.NewSystemHandler(db, cfg.App.Version)},
		[]router.RouteRegistrar{handler.NewOrderHandler(service, log)},
	)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

func migrateUp(db *persistence.Database, migrationsPath string, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle: %w", err)
	}

	migrator, err := migration.New(sqlDB, migrationsPath, log)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		return err
	}
	return nil
}

func pricingFromConfig(cfg config.PricingConfig) (orderdomain.PricingPolicy, error) {
	taxRate, err := decimal.NewFromString(cfg.TaxRate)
	if err != nil {
		return orderdomain.PricingPolicy{}, fmt.Errorf("tax_rate: %w", err)
	}
	shippingFee, err := decimal.NewFromString(cfg.ShippingFee)
	if err != nil {
		return orderdomain.PricingPolicy{}, fmt.Errorf("shipping_fee: %w", err)
	}
	threshold, err := decimal.NewFromString(cfg.FreeShippingThreshold)
	if err != nil {
		return orderdomain.PricingPolicy{}, fmt.Errorf("free_shipping_threshold: %w", err)
	}
	return orderdomain.PricingPolicy{
		TaxRate:               taxRate,
		ShippingFee:           shippingFee,
		FreeShippingThreshold: threshold,
	}, nil
}

func newIdempotencyStore(cfg *config.Config, log *zap.Logger) (shared.IdempotencyStore, func(), error) {
	if cfg.Redis.Enabled {
		store, err := cache.NewRedisIdempotencyStore(cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using Redis idempotency store", zap.String("addr", cfg.Redis.Addr()))
		return store, func() { _ = store.Close() }, nil
	}

	store := cache.NewInMemoryIdempotencyStore()
	log.Info("Using in-memory idempotency store")
	return store, func() { _ = store.Close() }, nil
}
