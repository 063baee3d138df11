package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/sales_return"
	"distro/internal/infrastructure/storage/postgres"
)

const (
	salesReturnTable     = "doc_sales_returns"
	salesReturnLineTable = "doc_sales_return_lines"
)

// SalesReturnRepo implements sales_return.Repository.
type SalesReturnRepo struct {
	*BaseDocumentRepo[*sales_return.SalesReturn]
	lines *LineTable[sales_return.Line]
}

// NewSalesReturnRepo creates a new sales return repository.
func NewSalesReturnRepo(txm *postgres.TxManager) *SalesReturnRepo {
	return &SalesReturnRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			salesReturnTable,
			postgres.ExtractDBColumns[sales_return.SalesReturn](),
			func() *sales_return.SalesReturn { return &sales_return.SalesReturn{} },
		),
		lines: NewLineTable[sales_return.Line](txm, salesReturnLineTable),
	}
}

// GetLines returns the return lines.
func (r *SalesReturnRepo) GetLines(ctx context.Context, docID id.ID) ([]sales_return.Line, error) {
	return r.lines.Get(ctx, docID)
}

// SaveLines replaces the return lines.
func (r *SalesReturnRepo) SaveLines(ctx context.Context, docID id.ID, lines []sales_return.Line) error {
	return r.lines.Replace(ctx, docID, lines)
}

// ListApprovedLinesByInvoice returns every line of every approved return
// written against the invoice.
func (r *SalesReturnRepo) ListApprovedLinesByInvoice(ctx context.Context, invoiceID id.ID) ([]sales_return.Line, error) {
	// Question placeholders; the outer builder renumbers them.
	approved := squirrel.
		Select("id").
		From(salesReturnTable).
		Where(squirrel.Eq{"invoice_id": invoiceID, "status": entity.StatusApproved})

	sub, args, err := approved.ToSql()
	if err != nil {
		return nil, err
	}
	return r.lines.Select(ctx, squirrel.Expr("document_id IN ("+sub+")", args...))
}

// List retrieves returns with filtering.
func (r *SalesReturnRepo) List(ctx context.Context, filter sales_return.ListFilter) (domain.ListResult[*sales_return.SalesReturn], error) {
	return r.BaseDocumentRepo.List(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.InvoiceID != nil {
			q = q.Where(squirrel.Eq{"invoice_id": *filter.InvoiceID})
		}
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
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

var _ sales_return.Repository = (*SalesReturnRepo)(nil)
