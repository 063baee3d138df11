package sales_invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/receivable"
	"distro/internal/domain/uom"
)

var (
	boxOfTen = uom.Item{ID: id.New(), PrimaryUOM: "box", BaseUOM: "pc", FactorToBase: 10}
	bottle   = uom.Item{ID: id.New(), PrimaryUOM: "bottle"}
)

func TestCalculateLineTotal(t *testing.T) {
	tests := []struct {
		name     string
		qty      uom.Pair
		primary  types.MinorUnits
		base     types.MinorUnits
		discount types.MinorUnits
		want     types.MinorUnits
	}{
		{name: "primary only", qty: uom.Pair{Primary: 3}, primary: 1200, want: 3600},
		{name: "base only", qty: uom.Pair{Base: 7}, base: 130, want: 910},
		{name: "both units", qty: uom.Pair{Primary: 2, Base: 5}, primary: 1200, base: 130, want: 3050},
		{name: "flat discount", qty: uom.Pair{Primary: 2, Base: 5}, primary: 1200, base: 130, discount: 50, want: 3000},
		{name: "discount above gross", qty: uom.Pair{Primary: 1}, primary: 100, discount: 150, want: -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateLineTotal(tt.qty, tt.primary, tt.base, tt.discount)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSalesInvoice_TotalsFloorNegativeLines(t *testing.T) {
	inv := NewSalesInvoice(id.New(), id.New())
	inv.AddLine(boxOfTen, uom.Pair{Primary: 2}, 1000, 100, 0)
	inv.AddLine(bottle, uom.Pair{Primary: 1}, 100, 0, 150)

	assert.Equal(t, types.MinorUnits(-50), inv.Lines[1].LineTotal)
	assert.Equal(t, types.MinorUnits(2000), inv.TotalValue)
	assert.Equal(t, receivable.StatusUnpaid, inv.PaymentStatus)
	assert.Equal(t, types.MinorUnits(2000), inv.Balance)
}

func TestLine_ValidateForSubmission(t *testing.T) {
	tests := []struct {
		name  string
		line  Line
		field string
	}{
		{name: "valid", line: NewLine(boxOfTen, uom.Pair{Primary: 1, Base: 2}, 100, 10, 0)},
		{name: "missing item", line: Line{PrimaryQty: 1, SellingPricePrimary: 100}, field: "itemId"},
		{name: "zero quantity", line: NewLine(boxOfTen, uom.Pair{}, 100, 10, 0), field: "quantity"},
		{name: "negative quantity", line: NewLine(boxOfTen, uom.Pair{Primary: -1}, 100, 10, 0), field: "quantity"},
		{name: "base on primary-only item", line: NewLine(bottle, uom.Pair{Base: 1}, 100, 10, 0), field: "baseQty"},
		{name: "base without price", line: NewLine(boxOfTen, uom.Pair{Base: 1}, 100, 0, 0), field: "sellingPriceBase"},
		{name: "primary without price", line: NewLine(boxOfTen, uom.Pair{Primary: 1}, 0, 10, 0), field: "sellingPricePrimary"},
		{name: "negative discount", line: NewLine(boxOfTen, uom.Pair{Primary: 1}, 100, 0, -1), field: "discountPerUnit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.ValidateForSubmission()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestSalesInvoice_Validate(t *testing.T) {
	ctx := context.Background()

	inv := NewSalesInvoice(id.New(), id.Nil())
	inv.AddLine(bottle, uom.Pair{Primary: 1}, 100, 0, 0)
	assert.True(t, apperror.HasCode(inv.Validate(ctx), apperror.CodeValidation))

	inv = NewSalesInvoice(id.New(), id.New())
	assert.Error(t, inv.Validate(ctx))

	inv.AddLine(bottle, uom.Pair{Primary: 1}, 100, 0, 0)
	assert.NoError(t, inv.Validate(ctx))
}

func TestLine_NormalizeLegacy(t *testing.T) {
	qty := int64(6)

	primaryOnly := Line{LegacyQty: &qty}
	primaryOnly.NormalizeLegacy()
	assert.Equal(t, uom.Pair{Primary: 6}, primaryOnly.Qty())
	assert.Nil(t, primaryOnly.LegacyQty)

	dual := Line{LegacyQty: &qty, HasBaseUOM: true, FactorToBase: 12}
	dual.NormalizeLegacy()
	assert.Equal(t, uom.Pair{}, dual.Qty())

	current := Line{PrimaryQty: 2, LegacyQty: &qty}
	current.NormalizeLegacy()
	assert.Equal(t, uom.Pair{Primary: 2}, current.Qty())
}

func paidInvoice(total, returned, paid types.MinorUnits) *SalesInvoice {
	inv := NewSalesInvoice(id.New(), id.New())
	inv.Amounts = receivable.Amounts{TotalValue: total, TotalReturnedValue: returned, PaidAmount: paid}
	inv.Rederive()
	return inv
}

func TestSalesInvoice_ApplyReturn(t *testing.T) {
	inv := paidInvoice(100000, 0, 0)
	require.NoError(t, inv.ApplyReturn(20000))
	assert.Equal(t, types.MinorUnits(20000), inv.TotalReturnedValue)
	assert.Equal(t, types.MinorUnits(80000), inv.Balance)

	err := inv.ApplyReturn(90000)
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsSold))
	assert.Equal(t, types.MinorUnits(20000), inv.TotalReturnedValue)

	paid := paidInvoice(100000, 0, 90000)
	err = paid.ApplyReturn(20000)
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsUnpaid))
	assert.Equal(t, types.MinorUnits(0), paid.TotalReturnedValue)

	assert.Error(t, inv.ApplyReturn(-1))
}

func TestSalesInvoice_ApplyPayment(t *testing.T) {
	inv := paidInvoice(100000, 20000, 0)

	require.NoError(t, inv.ApplyPayment(30000))
	assert.Equal(t, receivable.StatusPartiallyPaid, inv.PaymentStatus)
	assert.Equal(t, types.MinorUnits(50000), inv.Balance)

	err := inv.ApplyPayment(50001)
	assert.True(t, apperror.HasCode(err, apperror.CodeAllocationExceedsBalance))

	require.NoError(t, inv.ApplyPayment(50000))
	assert.Equal(t, receivable.StatusPaid, inv.PaymentStatus)
	assert.Equal(t, types.MinorUnits(0), inv.Balance)

	require.NoError(t, inv.ApplyPayment(-80000))
	assert.Equal(t, receivable.StatusUnpaid, inv.PaymentStatus)

	assert.Error(t, inv.ApplyPayment(-1))
}

func TestSalesInvoice_Drifted(t *testing.T) {
	inv := paidInvoice(100000, 0, 100000)
	assert.False(t, inv.Drifted())

	inv.PaymentStatus = receivable.StatusPartiallyPaid
	assert.True(t, inv.Drifted())

	inv.Rederive()
	assert.False(t, inv.Drifted())
}
