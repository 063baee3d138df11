package stock

import (
	"distro/internal/core/apperror"
	"distro/internal/domain/uom"
)

// Stock cap reasons.
const (
	ReasonNoBaseUnit     uom.Reason = "no_base_unit"
	ReasonOnHandPrimary  uom.Reason = "on_hand_primary"
	ReasonRunningBalance uom.Reason = "running_balance"
)

// Validate checks a proposed edit of one field of a line against stock.
//
// Primary-only items are capped at the sealed packs on hand and never accept
// base quantities. Dual-unit items are held to two caps at once: packs sold
// never exceed packs on hand, and packs*factor + pieces never exceed the
// running balance. Max is the largest value of field that satisfies both,
// with the other field of current held fixed.
func Validate(meta Meta, current uom.Pair, field uom.Field, newValue int64) uom.Cap {
	maxValue := MaxFor(meta, current, field)

	res := uom.Clamp(newValue, maxValue, ReasonRunningBalance)
	if !res.Capped || res.Reason == uom.ReasonNegative {
		return res
	}

	switch {
	case !meta.HasBaseUOM && field == uom.FieldBase:
		res.Reason = ReasonNoBaseUnit
	case !meta.HasBaseUOM:
		res.Reason = ReasonOnHandPrimary
	case field == uom.FieldPrimary && newValue > max(0, meta.OnHandPrimary) &&
		meta.OnHandPrimary <= balanceMax(meta, current, field):
		res.Reason = ReasonOnHandPrimary
	}
	return res
}

// MaxFor returns the largest permissible value of field for the given row.
func MaxFor(meta Meta, current uom.Pair, field uom.Field) int64 {
	if !meta.HasBaseUOM {
		if field == uom.FieldBase {
			return 0
		}
		return max(0, meta.OnHandPrimary)
	}
	if field == uom.FieldPrimary {
		return min(max(0, meta.OnHandPrimary), balanceMax(meta, current, field))
	}
	return balanceMax(meta, current, field)
}

func balanceMax(meta Meta, current uom.Pair, field uom.Field) int64 {
	return uom.SolveMax(field, current, meta.Factor, meta.RunningBalance)
}

// Fits reports whether qty satisfies every cap. It never clamps.
func Fits(meta Meta, qty uom.Pair) (bool, uom.Reason) {
	if qty.HasNegative() {
		return false, uom.ReasonNegative
	}
	if !meta.HasBaseUOM {
		if qty.Base > 0 {
			return false, ReasonNoBaseUnit
		}
		if qty.Primary > meta.OnHandPrimary {
			return false, ReasonOnHandPrimary
		}
		return true, uom.ReasonNone
	}
	if qty.Primary > meta.OnHandPrimary {
		return false, ReasonOnHandPrimary
	}
	if qty.TotalBase(meta.Factor) > meta.RunningBalance {
		return false, ReasonRunningBalance
	}
	return true, uom.ReasonNone
}

// Check is the hard form of Fits used at commit time.
func Check(snap Snapshot, qty uom.Pair) error {
	meta := snap.Meta()
	ok, reason := Fits(meta, qty)
	if ok {
		return nil
	}

	item := snap.Item()
	unit := item.PrimaryUOM
	requested, available := qty.Primary, meta.OnHandPrimary
	switch reason {
	case ReasonRunningBalance:
		unit = item.BaseUOM
		requested, available = qty.TotalBase(meta.Factor), meta.RunningBalance
	case ReasonNoBaseUnit:
		requested, available = qty.Base, 0
	}
	return apperror.NewInsufficientStock(snap.ItemID.String(), unit, requested, available).
		WithDetail("branch_id", snap.BranchID.String()).
		WithDetail("reason", string(reason))
}
