package sales_return

import (
	"context"
	"time"

	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/sales_invoice"
)

// Repository defines operations for sales returns.
type Repository interface {
	Create(ctx context.Context, doc *SalesReturn) error
	GetByID(ctx context.Context, docID id.ID) (*SalesReturn, error)

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// ListApprovedLinesByInvoice returns every line of every approved
	// return written against the invoice.
	ListApprovedLinesByInvoice(ctx context.Context, invoiceID id.ID) ([]Line, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesReturn], error)
}

// InvoiceStore is the part of the invoice repository a return needs.
type InvoiceStore interface {
	GetByID(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error)
	GetLines(ctx context.Context, docID id.ID) ([]sales_invoice.Line, error)
	UpdateAmounts(ctx context.Context, doc *sales_invoice.SalesInvoice) error
}

// ListFilter for filtering sales returns.
type ListFilter struct {
	domain.ListFilter

	InvoiceID  *id.ID
	CustomerID *id.ID
	DateFrom   *time.Time
	DateTo     *time.Time
}
