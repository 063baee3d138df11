// Package receivable derives invoice payment status, outstanding balance and
// receivable aging. Everything here is a pure function of its inputs.
package receivable

import (
	"distro/internal/core/types"
)

// PaymentStatus is the derived settlement state of an invoice.
type PaymentStatus string

const (
	StatusUnpaid        PaymentStatus = "unpaid"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusPaid          PaymentStatus = "paid"
)

// Amounts is the stored money triple of an invoice, in cents.
type Amounts struct {
	TotalValue         types.MinorUnits `db:"total_value" json:"totalValue"`
	TotalReturnedValue types.MinorUnits `db:"total_returned_value" json:"totalReturnedValue"`
	PaidAmount         types.MinorUnits `db:"paid_amount" json:"paidAmount"`
}

// NetTotal is the value still owed for goods kept by the customer.
func (a Amounts) NetTotal() types.MinorUnits {
	return a.TotalValue - a.TotalReturnedValue
}

// Balance is max(0, net total - paid).
func (a Amounts) Balance() types.MinorUnits {
	return (a.NetTotal() - a.PaidAmount).NonNegative()
}

// DeriveStatus derives the payment status.
//
// An invoice whose net total is zero or below (fully returned) is paid if
// anything was ever paid against it and unpaid otherwise.
func (a Amounts) DeriveStatus() PaymentStatus {
	net := a.NetTotal()
	switch {
	case a.PaidAmount <= 0:
		return StatusUnpaid
	case net <= 0 || a.PaidAmount >= net:
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

// Overpaid reports whether paid exceeds the net total.
func (a Amounts) Overpaid() bool {
	return a.PaidAmount > a.NetTotal()
}

// Derived is the full derived state of an invoice.
type Derived struct {
	Status   PaymentStatus    `json:"paymentStatus"`
	Balance  types.MinorUnits `json:"balance"`
	NetTotal types.MinorUnits `json:"netTotal"`
}

// Derive recomputes status and balance from scratch.
func Derive(a Amounts) Derived {
	return Derived{
		Status:   a.DeriveStatus(),
		Balance:  a.Balance(),
		NetTotal: a.NetTotal(),
	}
}
