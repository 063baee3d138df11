package memory

import (
	"context"
	"slices"

	"distro/internal/domain/receivable"
	"distro/internal/domain/reports"
)

// ListOpenItems implements reports.Repository over the stored invoices.
func (r *InvoiceRepo) ListOpenItems(_ context.Context, filter reports.AgingFilter) ([]receivable.OpenItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []receivable.OpenItem
	for _, doc := range r.docs {
		if !doc.IsApproved() || !doc.Amounts.Balance().IsPositive() {
			continue
		}
		if len(filter.CustomerIDs) > 0 && !slices.Contains(filter.CustomerIDs, doc.CustomerID) {
			continue
		}
		if filter.BranchID != nil && doc.BranchID != *filter.BranchID {
			continue
		}
		if filter.AsOf != nil && doc.Date.After(*filter.AsOf) {
			continue
		}
		out = append(out, receivable.OpenItem{
			InvoiceID:   doc.ID,
			CustomerID:  doc.CustomerID,
			InvoiceDate: doc.Date,
			Amounts:     doc.Amounts,
		})
	}
	return out, nil
}

var _ reports.Repository = (*InvoiceRepo)(nil)
