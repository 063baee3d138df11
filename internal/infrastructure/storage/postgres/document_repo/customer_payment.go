package document_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"distro/internal/core/id"
	"distro/internal/domain"
	"distro/internal/domain/documents/customer_payment"
	"distro/internal/infrastructure/storage/postgres"
)

const (
	customerPaymentTable    = "doc_customer_payments"
	paymentAllocationsTable = "doc_customer_payment_allocations"
)

// CustomerPaymentRepo implements customer_payment.Repository.
type CustomerPaymentRepo struct {
	*BaseDocumentRepo[*customer_payment.CustomerPayment]
	allocations *LineTable[customer_payment.Allocation]
}

// NewCustomerPaymentRepo creates a new customer payment repository.
func NewCustomerPaymentRepo(txm *postgres.TxManager) *CustomerPaymentRepo {
	return &CustomerPaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			customerPaymentTable,
			postgres.ExtractDBColumns[customer_payment.CustomerPayment](),
			func() *customer_payment.CustomerPayment { return &customer_payment.CustomerPayment{} },
		),
		allocations: NewLineTable[customer_payment.Allocation](txm, paymentAllocationsTable),
	}
}

// Update writes the header with an optimistic version check.
func (r *CustomerPaymentRepo) Update(ctx context.Context, doc *customer_payment.CustomerPayment) error {
	version, err := r.BaseDocumentRepo.Update(ctx, doc)
	if err != nil {
		return err
	}
	doc.Version = version
	return nil
}

// GetAllocations returns the allocation rows of a payment.
func (r *CustomerPaymentRepo) GetAllocations(ctx context.Context, docID id.ID) ([]customer_payment.Allocation, error) {
	return r.allocations.Get(ctx, docID)
}

// SaveAllocations replaces the allocation rows of a payment.
func (r *CustomerPaymentRepo) SaveAllocations(ctx context.Context, docID id.ID, allocs []customer_payment.Allocation) error {
	return r.allocations.Replace(ctx, docID, allocs)
}

// List retrieves payments with filtering.
func (r *CustomerPaymentRepo) List(ctx context.Context, filter customer_payment.ListFilter) (domain.ListResult[*customer_payment.CustomerPayment], error) {
	return r.BaseDocumentRepo.List(ctx, filter.ListFilter, func(q squirrel.SelectBuilder) squirrel.SelectBuilder {
		if filter.CustomerID != nil {
			q = q.Where(squirrel.Eq{"customer_id": *filter.CustomerID})
		}
		if filter.PaymentMethod != nil {
			q = q.Where(squirrel.Eq{"payment_method": *filter.PaymentMethod})
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

var _ customer_payment.Repository = (*CustomerPaymentRepo)(nil)
