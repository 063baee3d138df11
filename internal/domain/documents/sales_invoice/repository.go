package sales_invoice

import (
	"context"
	"time"

	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/receivable"
)

// Repository defines operations for sales invoices.
type Repository interface {
	Create(ctx context.Context, doc *SalesInvoice) error
	GetByID(ctx context.Context, docID id.ID) (*SalesInvoice, error)
	GetByNumber(ctx context.Context, number string) (*SalesInvoice, error)

	// GetForUpdate reads the header with a row lock.
	GetForUpdate(ctx context.Context, docID id.ID) (*SalesInvoice, error)

	// UpdateAmounts writes the money triple and derived fields with an
	// optimistic version check and bumps doc.Version on success.
	UpdateAmounts(ctx context.Context, doc *SalesInvoice) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesInvoice], error)

	// ListOpenByCustomer returns approved invoices of a customer with a
	// positive balance, oldest first, without lines.
	ListOpenByCustomer(ctx context.Context, customerID id.ID) ([]*SalesInvoice, error)

	// ListAfter pages through all invoice headers in id order.
	ListAfter(ctx context.Context, afterID id.ID, limit int) ([]*SalesInvoice, error)
}

// ListFilter for filtering sales invoices.
type ListFilter struct {
	domain.ListFilter

	CustomerID    *id.ID
	BranchID      *id.ID
	PaymentStatus *receivable.PaymentStatus
	DateFrom      *time.Time
	DateTo        *time.Time
}
