package sales_return

import (
	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
)

// DraftLine is one invoice line offered for return.
// A fully returned line is shown with zero quantities and is not editable.
type DraftLine struct {
	InvoiceLineID id.ID     `json:"invoiceLineId"`
	ItemID        id.ID     `json:"itemId"`
	HasBaseUOM    bool      `json:"hasBaseUom"`
	Sold          uom.Pair  `json:"sold"`
	Remaining     Remaining `json:"remaining"`
	Qty           uom.Pair  `json:"qty"`
	Editable      bool      `json:"editable"`
}

// NewDraftLine builds the form row of an invoice line given its prior returns.
func NewDraftLine(line sales_invoice.Line, prior []uom.Pair) DraftLine {
	rem := ComputeRemaining(line.Qty(), line.Factor(), prior)
	return DraftLine{
		InvoiceLineID: line.LineID,
		ItemID:        line.ItemID,
		HasBaseUOM:    line.HasBaseUOM,
		Sold:          line.Qty(),
		Remaining:     rem,
		Editable:      !rem.FullyReturned(),
	}
}

// Set applies an edit of one field, clamping it to the remaining capacity.
func (d *DraftLine) Set(field uom.Field, value int64) uom.Cap {
	if !d.HasBaseUOM && field == uom.FieldBase {
		res := uom.Clamp(value, 0, stock.ReasonNoBaseUnit)
		d.Qty = d.Qty.With(field, res.Value)
		return res
	}
	res := d.Remaining.Validate(d.Qty, field, value)
	d.Qty = d.Qty.With(field, res.Value)
	return res
}

// Draft is the return form of one invoice.
type Draft struct {
	InvoiceID  id.ID       `json:"invoiceId"`
	CustomerID id.ID       `json:"customerId"`
	BranchID   id.ID       `json:"branchId"`
	Lines      []DraftLine `json:"lines"`
}

// Set edits one row of the draft.
func (d *Draft) Set(invoiceLineID id.ID, field uom.Field, value int64) (uom.Cap, error) {
	if !field.Valid() {
		return uom.Cap{}, apperror.NewValidation("unknown quantity field").WithDetail("field", string(field))
	}
	for i := range d.Lines {
		if d.Lines[i].InvoiceLineID == invoiceLineID {
			return d.Lines[i].Set(field, value), nil
		}
	}
	return uom.Cap{}, apperror.NewNotFound("invoice line", invoiceLineID.String())
}

// ToReturn turns the non-empty rows into a return document.
func (d *Draft) ToReturn() *SalesReturn {
	ret := NewSalesReturn(d.BranchID, d.InvoiceID)
	ret.CustomerID = d.CustomerID
	for _, l := range d.Lines {
		if l.Qty.IsZero() {
			continue
		}
		ret.AddLine(l.InvoiceLineID, l.Qty)
		ret.Lines[len(ret.Lines)-1].ItemID = l.ItemID
	}
	return ret
}
