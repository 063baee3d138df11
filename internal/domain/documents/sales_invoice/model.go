// Package sales_invoice provides the SalesInvoice document.
package sales_invoice

import (
	"context"
	"fmt"

	"distro/internal/core/apperror"
	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/types"
	"distro/internal/domain/receivable"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
)

// SalesInvoice records goods sold to a customer from a branch.
//
// TotalValue, TotalReturnedValue and PaidAmount are stored; PaymentStatus
// and Balance are always re-derived from them.
type SalesInvoice struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	receivable.Amounts

	PaymentStatus receivable.PaymentStatus `db:"payment_status" json:"paymentStatus"`
	Balance       types.MinorUnits         `db:"balance" json:"balance"`

	// Table part: sold goods
	Lines []Line `db:"-" json:"lines"`
}

// NewSalesInvoice creates a new invoice.
func NewSalesInvoice(branchID, customerID id.ID) *SalesInvoice {
	inv := &SalesInvoice{
		Document:   entity.NewDocument(branchID),
		CustomerID: customerID,
		Lines:      make([]Line, 0),
	}
	inv.Rederive()
	return inv
}

// AddLine appends a line and recalculates totals.
func (s *SalesInvoice) AddLine(item uom.Item, qty uom.Pair, pricePrimary, priceBase, discount types.MinorUnits) Line {
	line := NewLine(item, qty, pricePrimary, priceBase, discount)
	line.LineNo = len(s.Lines) + 1
	s.Lines = append(s.Lines, line)
	s.RecalculateTotals()
	return line
}

// RecalculateTotals recomputes line totals and TotalValue from the lines,
// then re-derives status.
func (s *SalesInvoice) RecalculateTotals() {
	parts := make([]types.MinorUnits, 0, len(s.Lines))
	for i := range s.Lines {
		s.Lines[i].LineNo = i + 1
		s.Lines[i].LineTotal = s.Lines[i].Calculate()
		parts = append(parts, s.Lines[i].BilledTotal())
	}
	s.TotalValue = types.SumMinorUnits(parts...)
	s.Rederive()
}

// Rederive sets PaymentStatus and Balance from the stored amounts.
func (s *SalesInvoice) Rederive() {
	d := receivable.Derive(s.Amounts)
	s.PaymentStatus = d.Status
	s.Balance = d.Balance
}

// Drifted reports whether the stored derived fields disagree with the amounts.
func (s *SalesInvoice) Drifted() bool {
	d := receivable.Derive(s.Amounts)
	return s.PaymentStatus != d.Status || s.Balance != d.Balance
}

// Line returns the line with the given id.
func (s *SalesInvoice) Line(lineID id.ID) (Line, bool) {
	for _, l := range s.Lines {
		if l.LineID == lineID {
			return l, true
		}
	}
	return Line{}, false
}

// ApplyReturn adds returned value and re-derives status.
// Returned value can never exceed the billed total, and a return may not
// leave the invoice paid above its new net total.
func (s *SalesInvoice) ApplyReturn(value types.MinorUnits) error {
	if value.IsNegative() {
		return apperror.NewValidation("returned value cannot be negative")
	}
	next := s.Amounts
	next.TotalReturnedValue += value

	if next.TotalReturnedValue > next.TotalValue {
		return apperror.NewBusinessRule(apperror.CodeReturnExceedsSold,
			"Returned value exceeds the invoice total.").
			WithDetail("invoice_id", s.ID.String()).
			WithDetail("total_value", next.TotalValue.String()).
			WithDetail("returned_value", next.TotalReturnedValue.String())
	}
	if next.Overpaid() {
		return apperror.NewBusinessRule(apperror.CodeReturnExceedsUnpaid,
			"Return would leave the invoice paid above its net total.").
			WithDetail("invoice_id", s.ID.String()).
			WithDetail("net_total", next.NetTotal().String()).
			WithDetail("paid_amount", next.PaidAmount.String())
	}

	s.Amounts = next
	s.Rederive()
	return nil
}

// ApplyPayment adds amount (negative to reverse) to PaidAmount.
// A positive amount may not exceed the current balance.
func (s *SalesInvoice) ApplyPayment(amount types.MinorUnits) error {
	if amount.IsPositive() && amount > s.Amounts.Balance() {
		return apperror.NewAllocationExceedsBalance(s.ID.String(), int64(amount), int64(s.Amounts.Balance()))
	}
	next := s.Amounts
	next.PaidAmount += amount
	if next.PaidAmount.IsNegative() {
		return apperror.NewInternal(fmt.Errorf("paid amount of invoice %s would become negative", s.ID))
	}

	s.Amounts = next
	s.Rederive()
	return nil
}

// Validate implements entity.Validatable.
func (s *SalesInvoice) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(s.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for _, line := range s.Lines {
		if err := line.ValidateForSubmission(); err != nil {
			return err
		}
	}

	return nil
}

// StockKeys returns the lock keys of every item-stock row the invoice touches.
func (s *SalesInvoice) StockKeys() []string {
	keys := make([]string, 0, len(s.Lines))
	for _, l := range s.Lines {
		keys = append(keys, lock.StockKey(l.ItemID, s.BranchID))
	}
	return keys
}

// StockRequirements returns the quantities the invoice takes from stock.
func (s *SalesInvoice) StockRequirements() []stock.Requirement {
	reqs := make([]stock.Requirement, 0, len(s.Lines))
	for _, l := range s.Lines {
		reqs = append(reqs, stock.Requirement{ItemID: l.ItemID, Qty: l.Qty()})
	}
	return reqs
}
