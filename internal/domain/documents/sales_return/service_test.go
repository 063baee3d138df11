package sales_return_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/numerator"
	"distro/internal/core/types"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/documents/sales_return"
	"distro/internal/domain/receivable"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
	"distro/internal/infrastructure/storage/memory"
)

type fixture struct {
	returns  *sales_return.Service
	invoices *memory.InvoiceRepo
	stock    *memory.StockRepo
	branch   id.ID
	item     uom.Item
	invoice  *sales_invoice.SalesInvoice
}

// newFixture sells 10 boxes of 10 pieces at 12.00 a box.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		invoices: memory.NewInvoiceRepo(),
		stock:    memory.NewStockRepo(),
		branch:   id.New(),
		item:     uom.Item{ID: id.New(), PrimaryUOM: "box", BaseUOM: "pc", FactorToBase: 10},
	}
	f.stock.Put(f.item, f.branch, uom.Pair{Primary: 20})

	returns := memory.NewReturnRepo()
	stockSvc := stock.NewService(f.stock)
	gen := numerator.NewMemory()
	locker := lock.NewKeyedMutex()
	txm := memory.NewTxManager(f.invoices, returns, f.stock)

	invoices := sales_invoice.NewService(f.invoices, stockSvc, gen, txm, locker)
	f.returns = sales_return.NewService(returns, f.invoices, stockSvc, gen, txm, locker)

	f.invoice = sales_invoice.NewSalesInvoice(f.branch, id.New())
	f.invoice.AddLine(f.item, uom.Pair{Primary: 10}, 1200, 0, 0)
	require.NoError(t, invoices.Create(ctx, f.invoice))
	return f
}

func (f *fixture) lineID() id.ID {
	return f.invoice.Lines[0].LineID
}

func (f *fixture) approve(ctx context.Context, qty uom.Pair) (*sales_return.SalesReturn, error) {
	ret := sales_return.NewSalesReturn(f.branch, f.invoice.ID)
	ret.AddLine(f.lineID(), qty)
	return ret, f.returns.Approve(ctx, ret)
}

func TestService_Approve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ret, err := f.approve(ctx, uom.Pair{Primary: 3})
	require.NoError(t, err)
	assert.Contains(t, ret.Number, "SR-")
	assert.Equal(t, types.MinorUnits(3600), ret.TotalValue)
	assert.Equal(t, f.item.ID, ret.Lines[0].ItemID)
	assert.Equal(t, types.MinorUnits(1200), ret.Lines[0].SellingPricePrimary)

	inv, err := f.invoices.GetByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(3600), inv.TotalReturnedValue)
	assert.Equal(t, types.MinorUnits(8400), inv.Balance)

	snap, err := f.stock.GetSnapshot(ctx, f.item.ID, f.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(13), snap.OnHandPrimary)
	assert.Equal(t, int64(130), snap.RunningBalance)
}

func TestService_Approve_RejectsOverRemaining(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.approve(ctx, uom.Pair{Primary: 3})
	require.NoError(t, err)

	line, err := f.returns.PrepareLine(ctx, f.invoice.ID, f.lineID())
	require.NoError(t, err)
	assert.Equal(t, int64(70), line.Remaining.RemainingTotalBase)
	assert.Equal(t, uom.Pair{Primary: 7}, line.Remaining.Split)

	_, err = f.approve(ctx, uom.Pair{Primary: 8})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsSold))
	appErr, _ := apperror.AsAppError(err)
	assert.EqualValues(t, 7, appErr.Details["max_primary"])

	inv, err := f.invoices.GetByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, types.MinorUnits(3600), inv.TotalReturnedValue)
}

func TestService_Approve_SameLineTwiceInOneReturn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ret := sales_return.NewSalesReturn(f.branch, f.invoice.ID)
	ret.AddLine(f.lineID(), uom.Pair{Primary: 6})
	ret.AddLine(f.lineID(), uom.Pair{Primary: 5})

	err := f.returns.Approve(ctx, ret)
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsSold))
}

func TestService_Approve_ConservesValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, qty := range []uom.Pair{{Base: 33}, {Primary: 2, Base: 1}, {Base: 46}} {
		_, err := f.approve(ctx, qty)
		require.NoError(t, err)
	}

	inv, err := f.invoices.GetByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.TotalValue, inv.TotalReturnedValue)
	assert.Equal(t, types.MinorUnits(0), inv.Balance)
	assert.Equal(t, receivable.StatusUnpaid, inv.PaymentStatus)

	draft, err := f.returns.PrepareDraft(ctx, f.invoice.ID)
	require.NoError(t, err)
	require.Len(t, draft.Lines, 1)
	assert.False(t, draft.Lines[0].Editable)

	_, err = f.approve(ctx, uom.Pair{Base: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsSold))
}

func TestService_Approve_ExceedsUnpaid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	inv, err := f.invoices.GetByID(ctx, f.invoice.ID)
	require.NoError(t, err)
	require.NoError(t, inv.ApplyPayment(10000))
	require.NoError(t, f.invoices.UpdateAmounts(ctx, inv))

	_, err = f.approve(ctx, uom.Pair{Primary: 3})
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnExceedsUnpaid))

	_, err = f.approve(ctx, uom.Pair{Primary: 1})
	assert.NoError(t, err)
}

func TestService_Approve_EmptyReturn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.approve(ctx, uom.Pair{})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
