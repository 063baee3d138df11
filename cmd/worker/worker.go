package main

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"distro/internal/core/apperror"
	appctx "distro/internal/core/context"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/receivable"
	"distro/internal/domain/reports"
	"distro/internal/infrastructure/config"
	"distro/internal/infrastructure/storage/postgres"
	"distro/pkg/logger"
)

// Worker runs the periodic jobs.
type Worker struct {
	cfg      config.Config
	invoices *sales_invoice.Service
	aging    *reports.Service
	pool     *postgres.Pool
	log      *logger.Logger
}

// NewWorker creates a worker.
func NewWorker(
	cfg config.Config,
	invoices *sales_invoice.Service,
	aging *reports.Service,
	pool *postgres.Pool,
	log *logger.Logger,
) *Worker {
	return &Worker{
		cfg:      cfg,
		invoices: invoices,
		aging:    aging,
		pool:     pool,
		log:      log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled or a job fails fatally.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(ctx, w.cfg.ReconcileInterval, w.reconcile)
	})

	if w.cfg.AgingInterval > 0 {
		g.Go(func() error {
			return every(ctx, w.cfg.AgingInterval, w.logAging)
		})
	}

	g.Go(func() error {
		return every(ctx, time.Minute, func(ctx context.Context) {
			w.pool.LogStats(ctx)
		})
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// every runs job immediately and then on each tick until ctx ends.
// Each run gets its own trace context so its log lines correlate.
func every(ctx context.Context, interval time.Duration, job func(ctx context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job(appctx.WithTrace(ctx, appctx.NewTraceContext()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// reconcile re-derives stored payment statuses that drifted from amounts.
func (w *Worker) reconcile(ctx context.Context) {
	started := time.Now()
	repaired, err := w.invoices.RederiveStatuses(ctx, w.cfg.ReconcileBatch)
	if err != nil {
		switch {
		case ctx.Err() != nil:
		case apperror.IsConcurrentModification(err):
			w.log.WithContext(ctx).Warnw("status re-derivation raced a writer, retrying next run", "error", err, "repaired", repaired)
		default:
			w.log.WithContext(ctx).Errorw("status re-derivation failed", "error", err, "repaired", repaired)
		}
		return
	}
	if repaired > 0 {
		w.log.WithContext(ctx).Infow("repaired invoice statuses", "count", repaired, "duration", time.Since(started))
	}
}

// logAging writes the receivable aging summary.
func (w *Worker) logAging(ctx context.Context) {
	report, err := w.aging.AgingReport(ctx, reports.AgingFilter{})
	if err != nil {
		if ctx.Err() == nil {
			w.log.WithContext(ctx).Errorw("aging report failed", "error", err)
		}
		return
	}

	kv := []any{"as_of", report.AsOf, "customers", len(report.Rows), "invoices", report.TotalItems, "total", report.Totals.Total.StringFixed(2)}
	for _, b := range receivable.Buckets {
		kv = append(kv, string(b), report.Totals.Money[b].StringFixed(2))
	}
	w.log.WithContext(ctx).Infow("receivable aging", kv...)
}
