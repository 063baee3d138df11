package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/infrastructure/storage/postgres"
)

const (
	salesInvoiceTable     = "doc_sales_invoices"
	salesInvoiceLineTable = "doc_sales_invoice_lines"
)

// SalesInvoiceRepo implements sales_invoice.Repository.
type SalesInvoiceRepo struct {
	*BaseDocumentRepo[*sales_invoice.SalesInvoice]
	lines *LineTable[sales_invoice.Line]
}

// NewSalesInvoiceRepo creates a new sales invoice repository.
func NewSalesInvoiceRepo(txm *postgres.TxManager) *SalesInvoiceRepo {
	return &SalesInvoiceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			salesInvoiceTable,
			postgres.ExtractDBColumns[sales_invoice.SalesInvoice](),
			func() *sales_invoice.SalesInvoice { return &sales_invoice.SalesInvoice{} },
		),
		lines: NewLineTable[sales_invoice.Line](txm, salesInvoiceLineTable),
	}
}

// UpdateAmounts writes the money triple and the derived fields.
func (r *SalesInvoiceRepo) UpdateAmounts(ctx context.Context, doc *sales_invoice.SalesInvoice) error {
	version, err := r.UpdateColumns(ctx, doc.ID, doc.Version, map[string]any{
		"total_value":          doc.TotalValue,
		"total_returned_value": doc.TotalReturnedValue,
		"paid_amount":          doc.PaidAmount,
		"payment_status":       doc.PaymentStatus,
		"balance":              doc.Balance,
	})
	if err != nil {
		return err
	}
	doc.Version = version
	return nil
}

// GetLines returns the invoice lines.
func (r *SalesInvoiceRepo) GetLines(ctx context.Context, docID id.ID) ([]sales_invoice.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the invoice lines.
func (r *SalesInvoiceRepo) SaveLines(ctx context.Context, docID id.ID, lines []sales_invoice.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

// List retrieves invoices with filtering.
func (r *SalesInvoiceRepo) List(ctx context.Context, filter sales_invoice.ListFilter) (domain.ListResult[*sales_invoice.SalesInvoice], error) {
	return r.BaseDocumentRepo.List(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
		if filter.BranchID != nil {
			q = q.Where(squirrel.Eq{"branch_id": *filter.BranchID})
		}
		if filter.PaymentStatus != nil {
			q = q.Where(squirrel.Eq{"payment_status": *filter.PaymentStatus})
		}
		if filter.DateFrom != nil {
			q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
		}
		if filter.DateTo != nil {
			q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
		}
		return q
	})
}

// openBalance matches approved invoices still owing money.
var openBalance = squirrel.And{
	squirrel.Eq{"status": entity.StatusApproved},
	squirrel.Expr("total_value - total_returned_value - paid_amount > 0"),
}

// ListOpenByCustomer returns approved invoices of a customer with a
// positive balance, oldest first.
func (r *SalesInvoiceRepo) ListOpenByCustomer(ctx context.Context, customerID id.ID) ([]*sales_invoice.SalesInvoice, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(openBalance).
		OrderBy("date", "id")
	return r.Select(ctx, q)
}

// ListAfter pages through all invoice headers in id order.
func (r *SalesInvoiceRepo) ListAfter(ctx context.Context, afterID id.ID, limit int) ([]*sales_invoice.SalesInvoice, error) {
	q := r.baseSelect().
		Where(squirrel.Gt{"id": afterID}).
		OrderBy("id").
		Limit(uint64(max(1, limit)))
	return r.Select(ctx, q)
}

var _ sales_invoice.Repository = (*SalesInvoiceRepo)(nil)
