package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/receivable"
	"distro/internal/domain/reports"
	"distro/internal/infrastructure/storage/memory"
)

func storeInvoice(t *testing.T, repo *memory.InvoiceRepo, customerID id.ID, date time.Time, total, paid string) {
	t.Helper()
	inv := sales_invoice.NewSalesInvoice(id.New(), customerID)
	inv.Date = date
	inv.Amounts = receivable.Amounts{
		TotalValue: types.MustMinorUnits(total),
		PaidAmount: types.MustMinorUnits(paid),
	}
	inv.MarkApproved()
	inv.Rederive()
	require.NoError(t, repo.Create(context.Background(), inv))
}

func TestService_AgingReport(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	repo := memory.NewInvoiceRepo()

	alice, bob := id.New(), id.New()
	storeInvoice(t, repo, alice, asOf.AddDate(0, 0, -95), "500.00", "0")
	storeInvoice(t, repo, alice, asOf.AddDate(0, 0, -10), "200.00", "50.00")
	storeInvoice(t, repo, bob, asOf.AddDate(0, 0, -45), "80.00", "0")
	storeInvoice(t, repo, bob, asOf.AddDate(0, 0, -5), "80.00", "80.00")

	svc := reports.NewService(repo, memory.NewTxManager(repo))
	report, err := svc.AgingReport(ctx, reports.AgingFilter{AsOf: &asOf})
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalItems)
	require.Len(t, report.Rows, 2)

	grand := report.Totals.Minor
	assert.Equal(t, types.MustMinorUnits("500.00"), grand[receivable.Bucket90Plus])
	assert.Equal(t, types.MustMinorUnits("150.00"), grand[receivable.Bucket0To30])
	assert.Equal(t, types.MustMinorUnits("80.00"), grand[receivable.Bucket31To60])
	assert.True(t, types.MustMoney("730").Equal(report.Totals.Total))

	for _, row := range report.Rows {
		if row.CustomerID == alice {
			assert.Equal(t, 2, row.Invoices)
			assert.True(t, types.MustMoney("500").Equal(row.Buckets.Money[receivable.Bucket90Plus]))
		}
	}
}

func TestService_AgingReport_CustomerFilter(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	repo := memory.NewInvoiceRepo()

	alice, bob := id.New(), id.New()
	storeInvoice(t, repo, alice, asOf.AddDate(0, 0, -1), "10.00", "0")
	storeInvoice(t, repo, bob, asOf.AddDate(0, 0, -1), "20.00", "0")

	report, err := reports.NewService(repo, memory.NewTxManager(repo)).AgingReport(ctx, reports.AgingFilter{AsOf: &asOf, CustomerIDs: []id.ID{bob}})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, bob, report.Rows[0].CustomerID)
	assert.Equal(t, types.MustMinorUnits("20.00"), report.Totals.Minor.Sum())
}
