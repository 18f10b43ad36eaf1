package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/glintcare/glintcare/internal/app"
	"github.com/glintcare/glintcare/internal/backup"
	"github.com/glintcare/glintcare/internal/customers"
	"github.com/glintcare/glintcare/internal/invoices"
	jobmetrics "github.com/glintcare/glintcare/internal/jobs"
	"github.com/glintcare/glintcare/internal/loyalty"
	"github.com/glintcare/glintcare/internal/platform/blob"
	"github.com/glintcare/glintcare/internal/platform/db"
	"github.com/glintcare/glintcare/internal/products"
	"github.com/glintcare/glintcare/internal/settings"
	"github.com/glintcare/glintcare/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	blobStore, err := blob.New(blob.Config{
		Endpoint:  cfg.BackupEndpoint,
		Region:    cfg.BackupRegion,
		Bucket:    cfg.BackupBucket,
		AccessKey: cfg.BackupAccessKey,
		SecretKey: cfg.BackupSecretKey,
		UseSSL:    cfg.BackupUseSSL,
	})
	if err != nil {
		logger.Error("init blob store", slog.Any("error", err))
		os.Exit(1)
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		logger.Error("ensure backup bucket", slog.Any("error", err))
		os.Exit(1)
	}

	settingsStore := settings.NewStore(pool)
	stored, err := settingsStore.Load(ctx)
	if err != nil {
		logger.Error("load settings", slog.Any("error", err))
		os.Exit(1)
	}

	loyaltyRepo := loyalty.NewRepository(pool)
	loyaltyService := loyalty.NewService(loyaltyRepo, settingsStore, logger)

	invoicesRepo := invoices.NewRepository(pool, loyaltyRepo)
	invoicesService := invoices.NewService(invoicesRepo, products.NewRepository(pool), customers.NewRepository(pool), nil)

	backupService := backup.NewService(backup.NewDumper(pool), blobStore, logger)

	cron, err := jobs.BuildCron(stored)
	if err != nil {
		logger.Error("build cron schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: jobs.NewHandlers(jobs.Deps{
			Backup:   backupService,
			Invoices: invoicesService,
			Loyalty:  loyaltyService,
			Metrics:  jobmetrics.NewMetrics(nil),
			Logger:   logger,
		}),
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
