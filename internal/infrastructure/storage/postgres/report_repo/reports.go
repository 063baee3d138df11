// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"distro/internal/core/entity"
	"distro/internal/domain/receivable"
	"distro/internal/domain/reports"
	"distro/internal/infrastructure/storage/postgres"
)

const salesInvoiceTable = "doc_sales_invoices"

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// openItemsQuery selects approved invoices with an outstanding balance.
func (r *ReportRepo) openItemsQuery(filter reports.AgingFilter) squirrel.SelectBuilder {
	q := r.builder.Select(
		"id", "customer_id", "date",
		"total_value", "total_returned_value", "paid_amount",
	).From(salesInvoiceTable).
		Where(squirrel.Eq{"status": entity.StatusApproved}).
		Where(squirrel.Expr("total_value - total_returned_value - paid_amount > 0"))

	if len(filter.CustomerIDs) > 0 {
		q = q.Where(squirrel.Eq{"customer_id": filter.CustomerIDs})
	}

	if filter.BranchID != nil {
		q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
	}

	if filter.AsOf != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.AsOf})
	}

	return q.OrderBy("customer_id", "date", "id")
}

// ListOpenItems returns the invoices that take part in receivable aging.
func (r *ReportRepo) ListOpenItems(ctx context.Context, filter reports.AgingFilter) ([]receivable.OpenItem, error) {
	sql, args, err := r.openItemsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []receivable.OpenItem
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select open items: %w", err)
	}

	return items, nil
}

var _ reports.Repository = (*ReportRepo)(nil)
