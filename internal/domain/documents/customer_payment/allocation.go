package customer_payment

import (
	"time"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/documents/sales_invoice"
)

// Allocation cap reasons.
const (
	ReasonNone           = ""
	ReasonNegative       = "negative"
	ReasonExceedsBalance = "exceeds_balance"
)

// MoneyCap is the result of clamping an allocation edit.
type MoneyCap struct {
	Value  types.MinorUnits `json:"value"`
	Max    types.MinorUnits `json:"max"`
	Capped bool             `json:"capped"`
	Reason string           `json:"reason,omitempty"`
}

// ClampAllocation bounds amount into [0, balance].
func ClampAllocation(amount, balance types.MinorUnits) MoneyCap {
	balance = balance.NonNegative()
	switch {
	case amount.IsNegative():
		return MoneyCap{Value: 0, Max: balance, Capped: true, Reason: ReasonNegative}
	case amount > balance:
		return MoneyCap{Value: balance, Max: balance, Capped: true, Reason: ReasonExceedsBalance}
	default:
		return MoneyCap{Value: amount, Max: balance}
	}
}

// OpenInvoice is one allocation row of the payment form.
// Balance is what the row may receive; in edit mode it includes what this
// payment already allocated to the invoice.
type OpenInvoice struct {
	InvoiceID id.ID            `json:"invoiceId"`
	Number    string           `json:"number"`
	Date      time.Time        `json:"date"`
	NetTotal  types.MinorUnits `json:"netTotal"`
	Balance   types.MinorUnits `json:"balance"`
	Amount    types.MinorUnits `json:"amount"`
}

// Draft is the allocation state of a payment being entered or edited.
type Draft struct {
	PaymentID  id.ID         `json:"paymentId"`
	CustomerID id.ID         `json:"customerId"`
	Rows       []OpenInvoice `json:"rows"`
}

// NewDraft builds an empty allocation form from the customer's open invoices.
func NewDraft(customerID id.ID, invoices []*sales_invoice.SalesInvoice) *Draft {
	d := &Draft{CustomerID: customerID}
	d.Rows = rowsFor(invoices, nil)
	return d
}

// NewEditDraft builds the form for an existing payment. Each row's balance
// gets back what the payment itself allocated, so the amounts can be
// redistributed; the customer cannot change.
//
// invoices must include every invoice the payment is allocated to, even
// those it has fully paid.
func NewEditDraft(p *CustomerPayment, invoices []*sales_invoice.SalesInvoice) *Draft {
	d := &Draft{PaymentID: p.ID, CustomerID: p.CustomerID}
	d.Rows = rowsFor(invoices, p)
	return d
}

func rowsFor(invoices []*sales_invoice.SalesInvoice, own *CustomerPayment) []OpenInvoice {
	rows := make([]OpenInvoice, 0, len(invoices))
	seen := make(map[id.ID]bool, len(invoices))
	for _, inv := range invoices {
		if seen[inv.ID] {
			continue
		}
		seen[inv.ID] = true

		row := OpenInvoice{
			InvoiceID: inv.ID,
			Number:    inv.Number,
			Date:      inv.Date,
			NetTotal:  inv.NetTotal(),
			Balance:   inv.Amounts.Balance(),
		}
		if own != nil {
			allocated := own.AllocatedTo(inv.ID)
			row.Balance += allocated
			row.Amount = allocated
		}
		if row.Balance.IsZero() {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// EditMode reports whether the draft edits a saved payment.
func (d *Draft) EditMode() bool {
	return !id.IsNil(d.PaymentID)
}

// SetCustomer switches the form to another customer's open invoices.
// A saved payment cannot be re-targeted.
func (d *Draft) SetCustomer(customerID id.ID, invoices []*sales_invoice.SalesInvoice) error {
	if d.EditMode() && customerID != d.CustomerID {
		return apperror.NewBusinessRule(apperror.CodeCustomerLocked,
			"The customer of a saved payment cannot be changed.").
			WithDetail("payment_id", d.PaymentID.String()).
			WithDetail("customer_id", d.CustomerID.String())
	}
	d.CustomerID = customerID
	d.Rows = rowsFor(invoices, nil)
	return nil
}

// SetAllocation changes the amount of one row, clamped into [0, balance].
func (d *Draft) SetAllocation(invoiceID id.ID, amount types.MinorUnits) (MoneyCap, error) {
	for i := range d.Rows {
		if d.Rows[i].InvoiceID != invoiceID {
			continue
		}
		res := ClampAllocation(amount, d.Rows[i].Balance)
		d.Rows[i].Amount = res.Value
		return res, nil
	}
	return MoneyCap{}, apperror.NewNotFound("open invoice", invoiceID.String())
}

// SetAllocationMoney is SetAllocation for a decimal input; the value is
// rounded to cents once.
func (d *Draft) SetAllocationMoney(invoiceID id.ID, amount types.Money) (MoneyCap, error) {
	return d.SetAllocation(invoiceID, types.MinorUnitsFromMoney(amount))
}

// Total is the derived payment amount.
func (d *Draft) Total() types.MinorUnits {
	amounts := make([]types.MinorUnits, 0, len(d.Rows))
	for _, r := range d.Rows {
		amounts = append(amounts, r.Amount)
	}
	return types.SumMinorUnits(amounts...)
}

// Allocations returns the rows with a positive amount.
func (d *Draft) Allocations() []Allocation {
	out := make([]Allocation, 0, len(d.Rows))
	for _, r := range d.Rows {
		if !r.Amount.IsPositive() {
			continue
		}
		out = append(out, Allocation{InvoiceID: r.InvoiceID, Amount: r.Amount})
	}
	return out
}
