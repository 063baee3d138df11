// Package main is the entry point for the distro background worker.
// It repairs drifted invoice payment statuses and logs the receivable aging
// summary on a schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	corelock "distro/internal/core/lock"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/reports"
	"distro/internal/infrastructure/config"
	redislocker "distro/internal/infrastructure/lock"
	"distro/internal/infrastructure/numerator"
	"distro/internal/infrastructure/storage/postgres"
	"distro/internal/infrastructure/storage/postgres/document_repo"
	"distro/internal/infrastructure/storage/postgres/register_repo"
	"distro/internal/infrastructure/storage/postgres/report_repo"
	"distro/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting distro worker")

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	defer closeLocker()

	invoices := sales_invoice.NewService(
		document_repo.NewSalesInvoiceRepo(txManager),
		stock.NewService(register_repo.NewStockRepo(txManager)),
		numerator.New(txManager.ContextQuerier()),
		txManager,
		locker,
	)
	aging := reports.NewService(report_repo.NewReportRepo(txManager), txManager)

	w := NewWorker(cfg, invoices, aging, pool, log)
	if err := w.Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		os.Exit(1)
	}

	log.Info("worker stopped")
}

// newLocker returns the Redis locker when REDIS_ADDRESS is set and an
// in-process locker otherwise.
func newLocker(ctx context.Context, cfg config.Config) (corelock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return corelock.NewKeyedMutex(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}

	return redislocker.NewRedisLocker(rdb, cfg.Lock), func() { _ = rdb.Close() }, nil
}
