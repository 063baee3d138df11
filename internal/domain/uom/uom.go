// Package uom converts between the dual unit-of-measure quantity model
// (whole primary packs plus loose base pieces) and a single total-base scalar.
//
// All functions are pure. Quantities are whole units; fractional input is
// truncated toward zero before it reaches this package.
package uom

import (
	"fmt"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/types"
)

// Field names one side of a dual quantity.
type Field string

const (
	FieldPrimary Field = "primary"
	FieldBase    Field = "base"
)

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	return f == FieldPrimary || f == FieldBase
}

// Reason explains why a proposed value was capped.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonNegative Reason = "negative"
)

// Cap is the outcome of validating one field edit against a limit.
// Capped results are advisory: the caller clamps the input to Value.
type Cap struct {
	Value  int64  `json:"value"`
	Max    int64  `json:"max"`
	Capped bool   `json:"capped"`
	Reason Reason `json:"reason,omitempty"`
}

// Clamp caps newValue into [0, maxValue]. limitReason is reported when the
// upper bound is hit.
func Clamp(newValue, maxValue int64, limitReason Reason) Cap {
	maxValue = max(0, maxValue)
	switch {
	case newValue < 0:
		return Cap{Value: 0, Max: maxValue, Capped: true, Reason: ReasonNegative}
	case newValue > maxValue:
		return Cap{Value: maxValue, Max: maxValue, Capped: true, Reason: limitReason}
	default:
		return Cap{Value: newValue, Max: maxValue}
	}
}

// Item carries the unit metadata of an item master record.
// The factor of a document line is frozen when the line is written.
type Item struct {
	ID           id.ID  `db:"item_id" json:"itemId"`
	PrimaryUOM   string `db:"primary_uom" json:"primaryUom"`
	BaseUOM      string `db:"base_uom" json:"baseUom,omitempty"`
	FactorToBase int64  `db:"factor_to_base" json:"factorToBase"`
}

// HasBaseUOM reports whether the item can be broken into base units.
func (i Item) HasBaseUOM() bool {
	return i.BaseUOM != ""
}

// Factor returns the effective conversion factor.
// Primary-only items use 1; a non-positive stored factor is treated as 1.
func (i Item) Factor() int64 {
	if !i.HasBaseUOM() {
		return 1
	}
	return normalizeFactor(i.FactorToBase)
}

// Validate checks the item master invariants.
func (i Item) Validate() error {
	if i.PrimaryUOM == "" {
		return apperror.NewValidation("primary unit is required").
			WithDetail("field", "primaryUom")
	}
	if i.HasBaseUOM() && i.FactorToBase < 1 {
		return apperror.NewValidation("factor to base must be a positive integer").
			WithDetail("field", "factorToBase").
			WithDetail("value", i.FactorToBase)
	}
	return nil
}

// Pair is a quantity in dual form.
type Pair struct {
	Primary int64 `json:"primary"`
	Base    int64 `json:"base"`
}

// NewPair builds a Pair from raw (possibly fractional) input, truncating both sides.
func NewPair(primary, base types.Quantity) Pair {
	return Pair{Primary: primary.Whole(), Base: base.Whole()}
}

// IsZero reports whether both sides are zero.
func (p Pair) IsZero() bool {
	return p.Primary == 0 && p.Base == 0
}

// HasNegative reports whether either side is below zero.
func (p Pair) HasNegative() bool {
	return p.Primary < 0 || p.Base < 0
}

// Get returns the value of one field.
func (p Pair) Get(f Field) int64 {
	if f == FieldBase {
		return p.Base
	}
	return p.Primary
}

// With returns a copy of p with field f set to v.
func (p Pair) With(f Field, v int64) Pair {
	if f == FieldBase {
		p.Base = v
	} else {
		p.Primary = v
	}
	return p
}

// TotalBase converts p with the given factor.
func (p Pair) TotalBase(factor int64) int64 {
	return ToTotalBase(p.Primary, p.Base, factor)
}

// Add sums two pairs side by side without normalizing.
func (p Pair) Add(o Pair) Pair {
	return Pair{Primary: p.Primary + o.Primary, Base: p.Base + o.Base}
}

func (p Pair) String() string {
	return fmt.Sprintf("%d+%d", p.Primary, p.Base)
}

// ToTotalBase returns max(0, primary*max(1,factor) + base).
func ToTotalBase(primary, base, factor int64) int64 {
	return max(0, primary*normalizeFactor(factor)+base)
}

// SplitFromTotalBase expresses total in canonical form:
// primary = floor(total/factor), base = total mod factor.
//
// This is value-preserving only. Several pairs share a total and the split
// always returns the one with the fewest packs, so it must not be used to
// restore a user's literal split.
func SplitFromTotalBase(total, factor int64) Pair {
	f := normalizeFactor(factor)
	if total <= 0 {
		return Pair{}
	}
	return Pair{Primary: total / f, Base: total % f}
}

// SolveMax returns the largest value of field that keeps
// current.With(field, v).TotalBase(factor) <= capTotal, holding the other
// field fixed. The result is never negative.
func SolveMax(field Field, current Pair, factor, capTotal int64) int64 {
	f := normalizeFactor(factor)
	switch field {
	case FieldBase:
		return max(0, capTotal-max(0, current.Primary)*f)
	default:
		room := capTotal - max(0, current.Base)
		if room <= 0 {
			return 0
		}
		return room / f
	}
}

// FromLegacy maps a legacy single-quantity line onto the dual model.
// The legacy quantity is the primary quantity for primary-only items and is
// dropped (zero) for dual-unit items, whose legacy quantity unit is unknown.
// This is a data-migration shim, applied once when a legacy row is read.
func FromLegacy(qty int64, hasBaseUOM bool) Pair {
	if hasBaseUOM {
		return Pair{}
	}
	return Pair{Primary: max(0, qty)}
}

func normalizeFactor(factor int64) int64 {
	return max(1, factor)
}
