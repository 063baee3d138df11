// Package customer_payment provides the CustomerPayment document and the
// allocation engine that spreads a payment over a customer's open invoices.
package customer_payment

import (
	"context"

	"distro/internal/core/apperror"
	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/types"
)

// Method is how the customer paid.
type Method string

const (
	MethodCash         Method = "cash"
	MethodBankTransfer Method = "bank_transfer"
	MethodCheque       Method = "cheque"
	MethodMobileMoney  Method = "mobile_money"
)

// Allocation is the part of a payment assigned to one invoice.
type Allocation struct {
	AllocationID id.ID            `db:"allocation_id" json:"allocationId"`
	LineNo       int              `db:"line_no" json:"lineNo"`
	InvoiceID    id.ID            `db:"invoice_id" json:"invoiceId"`
	Amount       types.MinorUnits `db:"amount" json:"amount"`
}

// CustomerPayment is money received from a customer.
// Amount is always the sum of the allocations; it is never entered.
type CustomerPayment struct {
	entity.Document

	CustomerID    id.ID            `db:"customer_id" json:"customerId"`
	PaymentMethod Method           `db:"payment_method" json:"paymentMethod"`
	CollectorID   string           `db:"collector_id" json:"collectorId,omitempty"`
	Reference     string           `db:"reference" json:"reference,omitempty"`
	Amount        types.MinorUnits `db:"amount" json:"amount"`

	Allocations []Allocation `db:"-" json:"allocations"`
}

// NewCustomerPayment creates a draft payment.
func NewCustomerPayment(branchID, customerID id.ID) *CustomerPayment {
	return &CustomerPayment{
		Document:    entity.NewDocument(branchID),
		CustomerID:  customerID,
		Allocations: make([]Allocation, 0),
	}
}

// SetAllocations replaces the allocations, dropping zero rows, and
// recomputes Amount.
func (p *CustomerPayment) SetAllocations(allocs []Allocation) {
	p.Allocations = make([]Allocation, 0, len(allocs))
	amounts := make([]types.MinorUnits, 0, len(allocs))
	for _, a := range allocs {
		if a.Amount.IsZero() {
			continue
		}
		if id.IsNil(a.AllocationID) {
			a.AllocationID = id.New()
		}
		a.LineNo = len(p.Allocations) + 1
		p.Allocations = append(p.Allocations, a)
		amounts = append(amounts, a.Amount)
	}
	p.Amount = types.SumMinorUnits(amounts...)
}

// AllocatedTo returns the amount allocated to an invoice.
func (p *CustomerPayment) AllocatedTo(invoiceID id.ID) types.MinorUnits {
	var total types.MinorUnits
	for _, a := range p.Allocations {
		if a.InvoiceID == invoiceID {
			total += a.Amount
		}
	}
	return total
}

// InvoiceIDs returns the distinct invoices the payment is allocated to, sorted.
func (p *CustomerPayment) InvoiceIDs() []id.ID {
	ids := make([]id.ID, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.InvoiceID)
	}
	return id.SortedUnique(ids)
}

// InvoiceKeys returns the lock keys of the payment's invoices.
func (p *CustomerPayment) InvoiceKeys() []string {
	keys := make([]string, 0, len(p.Allocations))
	for _, invID := range p.InvoiceIDs() {
		keys = append(keys, lock.InvoiceKey(invID))
	}
	return keys
}

// Validate implements entity.Validatable.
func (p *CustomerPayment) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(p.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if len(p.Allocations) == 0 {
		return apperror.NewValidation("at least one allocation is required").
			WithDetail("field", "allocations")
	}

	for _, a := range p.Allocations {
		if id.IsNil(a.InvoiceID) {
			return apperror.NewValidation("invoice is required").
				WithDetail("field", "allocations").
				WithDetail("lineNo", a.LineNo)
		}
		if !a.Amount.IsPositive() {
			return apperror.NewValidation("allocation must be positive").
				WithDetail("field", "allocations").
				WithDetail("lineNo", a.LineNo)
		}
	}

	if !p.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}
	return nil
}
