package sales_invoice

import (
	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/uom"
)

// Line is one sold item of an invoice.
//
// FactorToBase and HasBaseUOM are copied from the item when the line is
// written, so later item edits do not change historical documents.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ItemID       id.ID `db:"item_id" json:"itemId"`
	FactorToBase int64 `db:"factor_to_base" json:"factorToBase"`
	HasBaseUOM   bool  `db:"has_base_uom" json:"hasBaseUom"`

	PrimaryQty int64 `db:"primary_qty" json:"primaryQty"`
	BaseQty    int64 `db:"base_qty" json:"baseQty"`

	// LegacyQty is set only on rows written before dual quantities existed.
	LegacyQty *int64 `db:"legacy_qty" json:"-"`

	SellingPricePrimary types.MinorUnits `db:"selling_price_primary" json:"sellingPricePrimary"`
	SellingPriceBase    types.MinorUnits `db:"selling_price_base" json:"sellingPriceBase"`
	DiscountPerUnit     types.MinorUnits `db:"discount_per_unit" json:"discountPerUnit"`
	LineTotal           types.MinorUnits `db:"line_total" json:"lineTotal"`
}

// NewLine creates a line for item with the current item factor frozen in.
func NewLine(item uom.Item, qty uom.Pair, pricePrimary, priceBase, discount types.MinorUnits) Line {
	l := Line{
		LineID:              id.New(),
		ItemID:              item.ID,
		FactorToBase:        item.Factor(),
		HasBaseUOM:          item.HasBaseUOM(),
		PrimaryQty:          qty.Primary,
		BaseQty:             qty.Base,
		SellingPricePrimary: pricePrimary,
		SellingPriceBase:    priceBase,
		DiscountPerUnit:     discount,
	}
	l.LineTotal = l.Calculate()
	return l
}

// Qty returns the sold quantity in dual form.
func (l Line) Qty() uom.Pair {
	return uom.Pair{Primary: l.PrimaryQty, Base: l.BaseQty}
}

// Factor returns the frozen conversion factor.
func (l Line) Factor() int64 {
	return max(1, l.FactorToBase)
}

// SoldTotalBase returns the sold quantity in base units.
func (l Line) SoldTotalBase() int64 {
	return l.Qty().TotalBase(l.Factor())
}

// Calculate returns the raw line total. It is not floored here.
func (l Line) Calculate() types.MinorUnits {
	return CalculateLineTotal(l.Qty(), l.SellingPricePrimary, l.SellingPriceBase, l.DiscountPerUnit)
}

// BilledTotal is the line's contribution to the invoice total, floored at zero.
func (l Line) BilledTotal() types.MinorUnits {
	return l.LineTotal.NonNegative()
}

// NormalizeLegacy maps a legacy single-quantity row onto dual quantities.
// It is applied once when the row is read and is a no-op for current rows.
func (l *Line) NormalizeLegacy() {
	if l.LegacyQty == nil || !l.Qty().IsZero() {
		return
	}
	p := uom.FromLegacy(*l.LegacyQty, l.HasBaseUOM)
	l.PrimaryQty, l.BaseQty = p.Primary, p.Base
	l.LegacyQty = nil
}

// CalculateLineTotal computes
// base*priceBase + primary*pricePrimary - discount.
// The discount is a flat amount per line.
func CalculateLineTotal(qty uom.Pair, pricePrimary, priceBase, discount types.MinorUnits) types.MinorUnits {
	return priceBase.MulQty(qty.Base) + pricePrimary.MulQty(qty.Primary) - discount
}

// ValidateForSubmission checks the line can be billed.
func (l Line) ValidateForSubmission() error {
	if id.IsNil(l.ItemID) {
		return lineError(l, "item is required", "itemId")
	}
	if l.Qty().HasNegative() {
		return lineError(l, "quantities cannot be negative", "quantity")
	}
	if l.Qty().IsZero() {
		return lineError(l, "quantity is required", "quantity")
	}
	if !l.HasBaseUOM && l.BaseQty > 0 {
		return lineError(l, "item has no base unit", "baseQty")
	}
	if l.PrimaryQty > 0 && !l.SellingPricePrimary.IsPositive() {
		return lineError(l, "selling price is required for primary quantity", "sellingPricePrimary")
	}
	if l.BaseQty > 0 && !l.SellingPriceBase.IsPositive() {
		return lineError(l, "selling price is required for base quantity", "sellingPriceBase")
	}
	if l.DiscountPerUnit.IsNegative() {
		return lineError(l, "discount cannot be negative", "discountPerUnit")
	}
	return nil
}

func lineError(l Line, msg, field string) error {
	return apperror.NewValidation(msg).
		WithDetail("field", field).
		WithDetail("lineNo", l.LineNo)
}
