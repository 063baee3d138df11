package receivable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/id"
	"distro/internal/core/types"
)

func amounts(total, returned, paid string) Amounts {
	return Amounts{
		TotalValue:         types.MustMinorUnits(total),
		TotalReturnedValue: types.MustMinorUnits(returned),
		PaidAmount:         types.MustMinorUnits(paid),
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		in      Amounts
		status  PaymentStatus
		balance string
	}{
		{"returned then paid in full", amounts("1000", "200", "800"), StatusPaid, "0.00"},
		{"untouched", amounts("1000", "0", "0"), StatusUnpaid, "1000.00"},
		{"partial", amounts("1000", "0", "250.50"), StatusPartiallyPaid, "749.50"},
		{"partial after return", amounts("1000", "300", "100"), StatusPartiallyPaid, "600.00"},
		{"fully returned nothing paid", amounts("500", "500", "0"), StatusUnpaid, "0.00"},
		{"fully returned after payment", amounts("500", "500", "100"), StatusPaid, "0.00"},
		{"negative paid is unpaid", amounts("500", "0", "-1"), StatusUnpaid, "501.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Derive(tt.in)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.balance, d.Balance.String())
		})
	}
}

func TestDerive_IsPure(t *testing.T) {
	in := amounts("1234.56", "34.56", "600")
	first := Derive(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Derive(in))
	}
}

func TestDaysOutstanding(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysOutstanding(now, now))
	assert.Equal(t, 1, DaysOutstanding(time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC), now))
	assert.Equal(t, 0, DaysOutstanding(now.AddDate(0, 0, 5), now))
	assert.Equal(t, 95, DaysOutstanding(now.AddDate(0, 0, -95), now))
}

func TestBucketFor(t *testing.T) {
	cases := map[int]Bucket{
		0: Bucket0To30, 30: Bucket0To30,
		31: Bucket31To60, 60: Bucket31To60,
		61: Bucket61To90, 90: Bucket61To90,
		91: Bucket90Plus, 400: Bucket90Plus,
	}
	for days, want := range cases {
		assert.Equal(t, want, BucketFor(days), "days=%d", days)
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	alice, bob := id.New(), id.New()

	items := []OpenItem{
		{InvoiceID: id.New(), CustomerID: alice, InvoiceDate: now.AddDate(0, 0, -95), Amounts: amounts("500", "0", "0")},
		{InvoiceID: id.New(), CustomerID: alice, InvoiceDate: now.AddDate(0, 0, -10), Amounts: amounts("300", "0", "100")},
		{InvoiceID: id.New(), CustomerID: bob, InvoiceDate: now.AddDate(0, 0, -45), Amounts: amounts("80", "0", "0")},
		{InvoiceID: id.New(), CustomerID: bob, InvoiceDate: now.AddDate(0, 0, -200), Amounts: amounts("80", "0", "80")},
	}

	rows, grand := Age(items, now)
	require.Len(t, rows, 2)

	byCustomer := map[id.ID]CustomerAging{}
	for _, r := range rows {
		byCustomer[r.CustomerID] = r
	}

	a := byCustomer[alice]
	assert.Equal(t, "500.00", a.Totals[Bucket90Plus].String())
	assert.Equal(t, "200.00", a.Totals[Bucket0To30].String())
	assert.Equal(t, 2, a.Invoices)

	b := byCustomer[bob]
	assert.Equal(t, "80.00", b.Totals[Bucket31To60].String())
	assert.Equal(t, 1, b.Invoices)
	assert.Zero(t, b.Totals[Bucket90Plus])

	assert.Equal(t, "780.00", grand.Sum().String())
	assert.Equal(t, -1, id.Compare(rows[0].CustomerID, rows[1].CustomerID))
}
