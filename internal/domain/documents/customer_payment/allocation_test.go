package customer_payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/documents/sales_invoice"
	"distro/internal/domain/receivable"
)

func openInvoice(customerID id.ID, total, paid string) *sales_invoice.SalesInvoice {
	inv := sales_invoice.NewSalesInvoice(id.New(), customerID)
	inv.Amounts = receivable.Amounts{
		TotalValue: types.MustMinorUnits(total),
		PaidAmount: types.MustMinorUnits(paid),
	}
	inv.Rederive()
	return inv
}

func TestClampAllocation(t *testing.T) {
	tests := []struct {
		name    string
		amount  types.MinorUnits
		balance types.MinorUnits
		want    MoneyCap
	}{
		{name: "within balance", amount: 500, balance: 1000, want: MoneyCap{Value: 500, Max: 1000}},
		{name: "exact balance", amount: 1000, balance: 1000, want: MoneyCap{Value: 1000, Max: 1000}},
		{name: "above balance", amount: 1001, balance: 1000, want: MoneyCap{Value: 1000, Max: 1000, Capped: true, Reason: ReasonExceedsBalance}},
		{name: "negative", amount: -5, balance: 1000, want: MoneyCap{Value: 0, Max: 1000, Capped: true, Reason: ReasonNegative}},
		{name: "no balance", amount: 5, balance: -20, want: MoneyCap{Value: 0, Max: 0, Capped: true, Reason: ReasonExceedsBalance}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampAllocation(tt.amount, tt.balance))
		})
	}
}

func TestDraft_TotalIsSumOfAllocations(t *testing.T) {
	customer := id.New()
	a := openInvoice(customer, "1000.00", "0")
	b := openInvoice(customer, "450.00", "0")

	d := NewDraft(customer, []*sales_invoice.SalesInvoice{a, b})
	require.Len(t, d.Rows, 2)

	res, err := d.SetAllocationMoney(a.ID, types.MustMoney("600.00"))
	require.NoError(t, err)
	assert.False(t, res.Capped)

	res, err = d.SetAllocationMoney(b.ID, types.MustMoney("450.00"))
	require.NoError(t, err)
	assert.False(t, res.Capped)

	assert.Equal(t, types.MustMinorUnits("1050.00"), d.Total())
	assert.Len(t, d.Allocations(), 2)
}

func TestDraft_SetAllocationClamps(t *testing.T) {
	customer := id.New()
	inv := openInvoice(customer, "450.00", "100.00")
	d := NewDraft(customer, []*sales_invoice.SalesInvoice{inv})

	res, err := d.SetAllocationMoney(inv.ID, types.MustMoney("400.005"))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, types.MustMinorUnits("350.00"), res.Value)
	assert.Equal(t, res.Value, d.Total())

	_, err = d.SetAllocation(id.New(), 100)
	assert.True(t, apperror.IsNotFound(err))
}

func TestDraft_RoundsCentsOnce(t *testing.T) {
	customer := id.New()
	var invoices []*sales_invoice.SalesInvoice
	for range 10 {
		invoices = append(invoices, openInvoice(customer, "1.00", "0"))
	}
	d := NewDraft(customer, invoices)

	for _, inv := range invoices {
		_, err := d.SetAllocationMoney(inv.ID, types.MustMoney("0.1"))
		require.NoError(t, err)
	}
	assert.Equal(t, types.MustMinorUnits("1.00"), d.Total())
}

func TestDraft_ZeroRowsDropped(t *testing.T) {
	customer := id.New()
	a := openInvoice(customer, "10.00", "0")
	b := openInvoice(customer, "10.00", "0")
	paid := openInvoice(customer, "10.00", "10.00")

	d := NewDraft(customer, []*sales_invoice.SalesInvoice{a, b, paid})
	assert.Len(t, d.Rows, 2)

	_, err := d.SetAllocation(a.ID, 300)
	require.NoError(t, err)

	allocs := d.Allocations()
	require.Len(t, allocs, 1)
	assert.Equal(t, a.ID, allocs[0].InvoiceID)
}

func TestEditDraft_AddsBackOwnAllocations(t *testing.T) {
	customer := id.New()
	a := openInvoice(customer, "100.00", "100.00")
	b := openInvoice(customer, "100.00", "40.00")

	p := NewCustomerPayment(id.New(), customer)
	p.SetAllocations([]Allocation{
		{InvoiceID: a.ID, Amount: types.MustMinorUnits("100.00")},
		{InvoiceID: b.ID, Amount: types.MustMinorUnits("40.00")},
	})

	d := NewEditDraft(p, []*sales_invoice.SalesInvoice{a, b})
	require.True(t, d.EditMode())
	require.Len(t, d.Rows, 2)
	assert.Equal(t, types.MustMinorUnits("100.00"), d.Rows[0].Balance)
	assert.Equal(t, types.MustMinorUnits("100.00"), d.Rows[1].Balance)
	assert.Equal(t, p.Amount, d.Total())

	// Move everything to b.
	_, err := d.SetAllocation(a.ID, 0)
	require.NoError(t, err)
	res, err := d.SetAllocationMoney(b.ID, types.MustMoney("140.00"))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, types.MustMinorUnits("100.00"), d.Total())

	err = d.SetCustomer(id.New(), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeCustomerLocked))
	assert.NoError(t, d.SetCustomer(customer, nil))
}

func TestCustomerPayment_SetAllocations(t *testing.T) {
	p := NewCustomerPayment(id.New(), id.New())
	p.SetAllocations([]Allocation{
		{InvoiceID: id.New(), Amount: 0},
		{InvoiceID: id.New(), Amount: 125},
		{InvoiceID: id.New(), Amount: 75},
	})

	require.Len(t, p.Allocations, 2)
	assert.Equal(t, 1, p.Allocations[0].LineNo)
	assert.Equal(t, types.MinorUnits(200), p.Amount)
	assert.False(t, id.IsNil(p.Allocations[0].AllocationID))
}

func TestSubmission_Validate(t *testing.T) {
	valid := Submission{BranchID: id.New(), CustomerID: id.New(), PaymentMethod: MethodCash}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		edit  func(s *Submission)
		field string
	}{
		{name: "missing customer", edit: func(s *Submission) { s.CustomerID = id.Nil() }, field: "CustomerID"},
		{name: "missing method", edit: func(s *Submission) { s.PaymentMethod = "" }, field: "PaymentMethod"},
		{name: "unknown method", edit: func(s *Submission) { s.PaymentMethod = "barter" }, field: "PaymentMethod"},
		{name: "collector required", edit: func(s *Submission) { s.CollectorRequired = true }, field: "CollectorID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.edit(&s)
			err := s.Validate()
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}

	withCollector := valid
	withCollector.CollectorRequired = true
	withCollector.CollectorID = "u-17"
	assert.NoError(t, withCollector.Validate())
}
