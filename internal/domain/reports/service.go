package reports

import (
	"context"
	"fmt"
	"time"

	"distro/internal/core/tx"
	"distro/internal/domain/receivable"
	"distro/pkg/logger"
)

// Service provides report generation operations.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
	now       func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, txManager: txManager, now: time.Now}
}

// AgingReport buckets the open balance of every matching invoice by age.
func (s *Service) AgingReport(ctx context.Context, filter AgingFilter) (*AgingReport, error) {
	// Default to current time if not specified
	if filter.AsOf == nil {
		now := s.now().UTC()
		filter.AsOf = &now
	}

	var items []receivable.OpenItem
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.repo.ListOpenItems(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list open items: %w", err)
	}

	customers, grand := receivable.Age(items, *filter.AsOf)

	report := &AgingReport{
		AsOf:   *filter.AsOf,
		Rows:   make([]AgingRow, 0, len(customers)),
		Totals: newBucketAmounts(grand),
	}
	for _, c := range customers {
		report.Rows = append(report.Rows, AgingRow{
			CustomerID: c.CustomerID,
			Invoices:   c.Invoices,
			Buckets:    newBucketAmounts(c.Totals),
		})
		report.TotalItems += c.Invoices
	}

	logger.Debug(ctx, "aging report built",
		"customers", len(report.Rows),
		"invoices", report.TotalItems,
		"total", grand.Sum().String(),
	)
	return report, nil
}
