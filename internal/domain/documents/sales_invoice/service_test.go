package sales_invoice_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/lock"
	"distro/internal/core/numerator"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/receivable"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
	"distro/internal/infrastructure/storage/memory"
)

type fixture struct {
	svc      *sales_invoice.Service
	invoices *memory.InvoiceRepo
	stock    *memory.StockRepo
	branch   id.ID
	item     uom.Item
}

func newFixture(onHand uom.Pair) *fixture {
	f := &fixture{
		invoices: memory.NewInvoiceRepo(),
		stock:    memory.NewStockRepo(),
		branch:   id.New(),
		item:     uom.Item{ID: id.New(), PrimaryUOM: "box", BaseUOM: "pc", FactorToBase: 10},
	}
	f.stock.Put(f.item, f.branch, onHand)
	f.svc = sales_invoice.NewService(
		f.invoices,
		stock.NewService(f.stock),
		numerator.NewMemory(),
		memory.NewTxManager(f.invoices, f.stock),
		lock.NewKeyedMutex(),
	)
	return f
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 5, Base: 3})

	inv := sales_invoice.NewSalesInvoice(f.branch, id.New())
	inv.AddLine(f.item, uom.Pair{Primary: 2, Base: 5}, 1200, 130, 50)

	require.NoError(t, f.svc.Create(ctx, inv))
	assert.Contains(t, inv.Number, "SI-")
	assert.True(t, inv.IsApproved())

	saved, err := f.svc.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, saved.Lines, 1)
	assert.Equal(t, inv.TotalValue, saved.TotalValue)
	assert.Equal(t, receivable.StatusUnpaid, saved.PaymentStatus)

	snap, err := f.stock.GetSnapshot(ctx, f.item.ID, f.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(28), snap.RunningBalance)
	assert.Equal(t, int64(2), snap.OnHandPrimary)

	moves, err := f.stock.GetMovementsByRecorder(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, stock.MovementExpense, moves[0].Kind)
}

func TestService_Create_RejectsOverRunningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 5, Base: 3})

	inv := sales_invoice.NewSalesInvoice(f.branch, id.New())
	inv.AddLine(f.item, uom.Pair{Primary: 5, Base: 4}, 1200, 130, 0)

	err := f.svc.Create(ctx, inv)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	_, err = f.invoices.GetByID(ctx, inv.ID)
	assert.True(t, apperror.IsNotFound(err))

	snap, err := f.stock.GetSnapshot(ctx, f.item.ID, f.branch)
	require.NoError(t, err)
	assert.Equal(t, int64(53), snap.RunningBalance)
}

func TestService_Create_AggregatesLinesOfSameItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 5, Base: 3})

	// Each line fits alone; together they need 60 pieces.
	inv := sales_invoice.NewSalesInvoice(f.branch, id.New())
	inv.AddLine(f.item, uom.Pair{Primary: 3}, 1200, 0, 0)
	inv.AddLine(f.item, uom.Pair{Primary: 3}, 1200, 0, 0)

	err := f.svc.Create(ctx, inv)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))
}

func TestService_Create_InvalidLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 5})

	inv := sales_invoice.NewSalesInvoice(f.branch, id.New())
	inv.AddLine(f.item, uom.Pair{Primary: 1}, 0, 0, 0)

	err := f.svc.Create(ctx, inv)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestService_RederiveStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 50})

	var ids []id.ID
	for range 3 {
		inv := sales_invoice.NewSalesInvoice(f.branch, id.New())
		inv.AddLine(f.item, uom.Pair{Primary: 1}, 1000, 0, 0)
		require.NoError(t, f.svc.Create(ctx, inv))
		ids = append(ids, inv.ID)
	}

	// Corrupt the stored derived fields of one invoice.
	broken, err := f.invoices.GetByID(ctx, ids[1])
	require.NoError(t, err)
	broken.PaymentStatus = receivable.StatusPaid
	broken.Balance = 0
	require.NoError(t, f.invoices.UpdateAmounts(ctx, broken))

	repaired, err := f.svc.RederiveStatuses(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)

	fixed, err := f.invoices.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, receivable.StatusUnpaid, fixed.PaymentStatus)
	assert.False(t, fixed.Drifted())

	repaired, err = f.svc.RederiveStatuses(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, repaired)
}

func TestService_ListOpenForCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(uom.Pair{Primary: 50})
	customer := id.New()

	for range 2 {
		inv := sales_invoice.NewSalesInvoice(f.branch, customer)
		inv.AddLine(f.item, uom.Pair{Primary: 1}, 1000, 0, 0)
		require.NoError(t, f.svc.Create(ctx, inv))
	}
	other := sales_invoice.NewSalesInvoice(f.branch, id.New())
	other.AddLine(f.item, uom.Pair{Primary: 1}, 1000, 0, 0)
	require.NoError(t, f.svc.Create(ctx, other))

	open, err := f.svc.ListOpenForCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Len(t, open, 2)
}
