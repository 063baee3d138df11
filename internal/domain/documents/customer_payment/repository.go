package customer_payment

import (
	"context"
	"time"

	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/sales_invoice"
)

// Repository defines operations for customer payments.
type Repository interface {
	Create(ctx context.Context, doc *CustomerPayment) error

	// Update writes the header with an optimistic version check.
	Update(ctx context.Context, doc *CustomerPayment) error

	GetByID(ctx context.Context, docID id.ID) (*CustomerPayment, error)

	GetAllocations(ctx context.Context, docID id.ID) ([]Allocation, error)
	SaveAllocations(ctx context.Context, docID id.ID, allocs []Allocation) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*CustomerPayment], error)
}

// InvoiceStore is the part of the invoice repository a payment needs.
type InvoiceStore interface {
	GetByID(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error)
	GetForUpdate(ctx context.Context, docID id.ID) (*sales_invoice.SalesInvoice, error)
	UpdateAmounts(ctx context.Context, doc *sales_invoice.SalesInvoice) error
	ListOpenByCustomer(ctx context.Context, customerID id.ID) ([]*sales_invoice.SalesInvoice, error)
}

// ListFilter for filtering customer payments.
type ListFilter struct {
	domain.ListFilter

	CustomerID    *id.ID
	PaymentMethod *Method
	DateFrom      *time.Time
	DateTo        *time.Time
}
