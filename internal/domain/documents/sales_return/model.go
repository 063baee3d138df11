// Package sales_return provides the SalesReturn document: goods coming back
// against a previously approved sales invoice.
package sales_return

import (
	"context"

	"distro/internal/core/apperror"
	"distro/internal/core/entity"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/types"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
)

// SalesReturn records goods returned against one invoice.
type SalesReturn struct {
	entity.Document

	InvoiceID  id.ID `db:"invoice_id" json:"invoiceId"`
	CustomerID id.ID `db:"customer_id" json:"customerId"`

	// TotalValue is the sum of line values (cents).
	TotalValue types.MinorUnits `db:"total_value" json:"totalValue"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one returned quantity of one invoice line.
// Prices, discount and factor are copied from the invoice line on approval.
type Line struct {
	LineID        id.ID `db:"line_id" json:"lineId"`
	LineNo        int   `db:"line_no" json:"lineNo"`
	InvoiceLineID id.ID `db:"invoice_line_id" json:"invoiceLineId"`
	ItemID        id.ID `db:"item_id" json:"itemId"`
	FactorToBase  int64 `db:"factor_to_base" json:"factorToBase"`

	QtyReturnPrimary int64 `db:"qty_return_primary" json:"qtyReturnPrimary"`
	QtyReturnBase    int64 `db:"qty_return_base" json:"qtyReturnBase"`

	SellingPricePrimary types.MinorUnits `db:"selling_price_primary" json:"sellingPricePrimary"`
	SellingPriceBase    types.MinorUnits `db:"selling_price_base" json:"sellingPriceBase"`
	DiscountPerUnit     types.MinorUnits `db:"discount_per_unit" json:"discountPerUnit"`

	// Value is the money this line removes from the invoice.
	Value types.MinorUnits `db:"value" json:"value"`
}

// Qty returns the returned quantity in dual form.
func (l Line) Qty() uom.Pair {
	return uom.Pair{Primary: l.QtyReturnPrimary, Base: l.QtyReturnBase}
}

// TotalBase returns the returned quantity in base units.
func (l Line) TotalBase() int64 {
	return l.Qty().TotalBase(l.FactorToBase)
}

// NewSalesReturn creates a draft return for an invoice.
func NewSalesReturn(branchID, invoiceID id.ID) *SalesReturn {
	return &SalesReturn{
		Document:  entity.NewDocument(branchID),
		InvoiceID: invoiceID,
		Lines:     make([]Line, 0),
	}
}

// AddLine appends a requested quantity for an invoice line.
func (r *SalesReturn) AddLine(invoiceLineID id.ID, qty uom.Pair) {
	r.Lines = append(r.Lines, Line{
		LineID:           id.New(),
		LineNo:           len(r.Lines) + 1,
		InvoiceLineID:    invoiceLineID,
		QtyReturnPrimary: qty.Primary,
		QtyReturnBase:    qty.Base,
	})
}

// DropEmptyLines removes lines with nothing to return and renumbers the rest.
func (r *SalesReturn) DropEmptyLines() {
	kept := r.Lines[:0]
	for _, l := range r.Lines {
		if l.Qty().IsZero() {
			continue
		}
		l.LineNo = len(kept) + 1
		kept = append(kept, l)
	}
	r.Lines = kept
}

// Validate implements entity.Validatable.
func (r *SalesReturn) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.InvoiceID) {
		return apperror.NewValidation("invoice is required").
			WithDetail("field", "invoiceId")
	}

	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line with a quantity is required").
			WithDetail("field", "lines")
	}

	for _, l := range r.Lines {
		if id.IsNil(l.InvoiceLineID) {
			return apperror.NewValidation("invoice line is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", l.LineNo)
		}
		if l.Qty().HasNegative() {
			return apperror.NewValidation("quantities cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", l.LineNo)
		}
	}

	return nil
}

// StockRequirements returns the quantities coming back into stock.
func (r *SalesReturn) StockRequirements() []stock.Requirement {
	reqs := make([]stock.Requirement, 0, len(r.Lines))
	for _, l := range r.Lines {
		reqs = append(reqs, stock.Requirement{ItemID: l.ItemID, Qty: l.Qty()})
	}
	return reqs
}

// StockKeys returns the lock keys of the stock rows the return touches.
func (r *SalesReturn) StockKeys() []string {
	keys := make([]string, 0, len(r.Lines))
	for _, l := range r.Lines {
		keys = append(keys, lock.StockKey(l.ItemID, r.BranchID))
	}
	return keys
}
