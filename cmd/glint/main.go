package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/glintcare/glintcare/internal/app"
	"github.com/glintcare/glintcare/internal/backup"
	"github.com/glintcare/glintcare/internal/customers"
	"github.com/glintcare/glintcare/internal/identity"
	"github.com/glintcare/glintcare/internal/invoices"
	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/observability"
	"github.com/glintcare/glintcare/internal/payments"
	"github.com/glintcare/glintcare/internal/platform/blob"
	"github.com/glintcare/glintcare/internal/platform/cache"
	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/rbac"
	"github.com/glintcare/glintcare/internal/redemptions"
	"github.com/glintcare/glintcare/internal/reports"
	"github.com/glintcare/glintcare/internal/returns"
	"github.com/glintcare/glintcare/internal/settings"
	"github.com/glintcare/glintcare/internal/shared"
	"github.com/glintcare/glintcare/internal/users"
	"github.com/glintcare/glintcare/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing degraded", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	blobStore, err := blob.New(blob.Config{
		Endpoint:  cfg.BackupEndpoint,
		Region:    cfg.BackupRegion,
		Bucket:    cfg.BackupBucket,
		AccessKey: cfg.BackupAccessKey,
		SecretKey: cfg.BackupSecretKey,
		UseSSL:    cfg.BackupUseSSL,
	})
	if err != nil {
		logger.Warn("blob store unavailable, backups disabled", slog.Any("error", err))
	} else if err := blobStore.EnsureBucket(ctx); err != nil {
		logger.Warn("ensure backup bucket", slog.Any("error", err))
	}

	idempotencyStore := shared.NewIdempotencyStore(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rbacService)

	identityMiddleware := &identity.Middleware{
		Header:   cfg.IdentityHeader,
		Resolver: usersService,
		Logger:   logger,
	}

	settingsStore := settings.NewStore(pool)

	loyaltyRepo := loyalty.NewRepository(pool)
	loyaltyService := loyalty.NewService(loyaltyRepo, settingsStore, logger)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo)

	productsRepo := products.NewRepository(pool)
	productsService := products.NewService(productsRepo)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache)

	invoicesRepo := invoices.NewRepository(pool, loyaltyRepo)
	invoicesService := invoices.NewService(invoicesRepo, productsRepo, customersRepo, reportsService)

	paymentsRepo := payments.NewRepository(pool)
	paymentsService := payments.NewService(paymentsRepo, reportsService)

	redemptionsRepo := redemptions.NewRepository(pool, loyaltyRepo)
	redemptionsService := redemptions.NewService(redemptionsRepo, productsRepo, idempotencyStore)

	returnsRepo := returns.NewRepository(pool)
	returnsService := returns.NewService(returnsRepo)

	var backupHandler *backup.Handler
	if blobStore != nil {
		backupService := backup.NewService(backup.NewDumper(pool), blobStore, logger)
		backupHandler = backup.NewHandler(logger, backupService, rbacMiddleware)
	}

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:   logger,
		Config:   cfg,
		Identity: identityMiddleware,
		Metrics:  metrics,

		CustomersHandler:   customers.NewHandler(logger, customersService, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, productsService, rbacMiddleware),
		InvoicesHandler:    invoices.NewHandler(logger, invoicesService, rbacMiddleware),
		PaymentsHandler:    payments.NewHandler(logger, paymentsService, rbacMiddleware),
		LoyaltyHandler:     loyalty.NewHandler(logger, loyaltyService, rbacMiddleware),
		RedemptionsHandler: redemptions.NewHandler(logger, redemptionsService, rbacMiddleware),
		ReturnsHandler:     returns.NewHandler(logger, returnsService, rbacMiddleware),
		ReportsHandler:     reports.NewHandler(logger, reportsService, rbacMiddleware),
		RolesHandler:       rbac.NewHandler(logger, rbacService, rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		SettingsHandler:    settings.NewHandler(logger, settingsStore, rbacMiddleware),
		BackupHandler:      backupHandler,
		JobsHandler:        jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
