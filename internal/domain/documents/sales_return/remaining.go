package sales_return

import (
	"github.com/shopspring/decimal"

	"distro/internal/core/types"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/uom"
)

// Return cap reasons.
const (
	ReasonExceedsRemaining uom.Reason = "exceeds_remaining"
	ReasonFullyReturned    uom.Reason = "fully_returned"
)

// Remaining is the returnable capacity of one invoice line.
type Remaining struct {
	SoldTotalBase      int64    `json:"soldTotalBase"`
	ReturnedTotalBase  int64    `json:"returnedTotalBase"`
	RemainingTotalBase int64    `json:"remainingTotalBase"`
	Split              uom.Pair `json:"split"`
	Factor             int64    `json:"factor"`
}

// FullyReturned reports whether nothing is left to return.
func (r Remaining) FullyReturned() bool {
	return r.RemainingTotalBase == 0
}

// ComputeRemaining aggregates prior approved returns of one line against
// what was sold. Every quantity is converted with the line's frozen factor.
func ComputeRemaining(sold uom.Pair, factor int64, prior []uom.Pair) Remaining {
	soldTotal := sold.TotalBase(factor)
	var returned int64
	for _, p := range prior {
		returned += p.TotalBase(factor)
	}
	remaining := max(0, soldTotal-returned)
	return Remaining{
		SoldTotalBase:      soldTotal,
		ReturnedTotalBase:  returned,
		RemainingTotalBase: remaining,
		Split:              uom.SplitFromTotalBase(remaining, factor),
		Factor:             max(1, factor),
	}
}

// Validate checks a proposed edit of one field of a return row.
// A fully returned line only accepts zero.
func (r Remaining) Validate(current uom.Pair, field uom.Field, newValue int64) uom.Cap {
	if r.FullyReturned() {
		if newValue == 0 {
			return uom.Cap{}
		}
		return uom.Cap{Capped: true, Reason: ReasonFullyReturned}
	}
	maxValue := uom.SolveMax(field, current, r.Factor, r.RemainingTotalBase)
	return uom.Clamp(newValue, maxValue, ReasonExceedsRemaining)
}

// Allows reports whether qty fits in the remaining capacity.
func (r Remaining) Allows(qty uom.Pair) bool {
	return !qty.HasNegative() && qty.TotalBase(r.Factor) <= r.RemainingTotalBase
}

// LineValue is the money removed from the invoice by returning
// requestTotalBase units of line.
//
// The value is the pro-rata share of the billed line total, rounded to cents
// once. The return that exhausts the line takes exactly what is left, so the
// returned values of a line always sum to its billed total.
func LineValue(line sales_invoice.Line, requestTotalBase, priorTotalBase int64, priorValue types.MinorUnits) types.MinorUnits {
	sold := line.SoldTotalBase()
	if sold <= 0 || requestTotalBase <= 0 {
		return 0
	}
	left := (line.BilledTotal() - priorValue).NonNegative()
	if priorTotalBase+requestTotalBase >= sold {
		return left
	}

	share := decimal.NewFromInt(int64(line.BilledTotal())).
		Mul(decimal.NewFromInt(requestTotalBase)).
		Div(decimal.NewFromInt(sold)).
		Round(0).
		IntPart()
	return min(types.MinorUnits(share), left)
}
