package receivable

import (
	"slices"
	"time"

	"distro/internal/core/id"
	"distro/internal/core/types"
)

// Bucket labels an aging day range.
type Bucket string

const (
	Bucket0To30  Bucket = "0_30"
	Bucket31To60 Bucket = "31_60"
	Bucket61To90 Bucket = "61_90"
	Bucket90Plus Bucket = "90_plus"
)

// Buckets lists the labels in report order.
var Buckets = []Bucket{Bucket0To30, Bucket31To60, Bucket61To90, Bucket90Plus}

// DaysOutstanding counts whole calendar days between the invoice date and
// now, both taken as UTC dates. Future-dated invoices count as 0.
func DaysOutstanding(invoiceDate, now time.Time) int {
	from := truncateDay(invoiceDate)
	to := truncateDay(now)
	if !to.After(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BucketFor classifies an age in days.
func BucketFor(days int) Bucket {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// OpenItem is one invoice considered for aging.
type OpenItem struct {
	InvoiceID   id.ID     `db:"id"`
	CustomerID  id.ID     `db:"customer_id"`
	InvoiceDate time.Time `db:"date"`
	Amounts
}

// Totals holds balances per bucket.
type Totals map[Bucket]types.MinorUnits

// Add accumulates amount into bucket b.
func (t Totals) Add(b Bucket, amount types.MinorUnits) {
	t[b] += amount
}

// Sum returns the balance across all buckets.
func (t Totals) Sum() types.MinorUnits {
	var sum types.MinorUnits
	for _, b := range Buckets {
		sum += t[b]
	}
	return sum
}

// CustomerAging is the aging line of one customer.
type CustomerAging struct {
	CustomerID id.ID
	Totals     Totals
	Invoices   int
}

// Age buckets the outstanding balance of items per customer.
// Items with no balance are skipped. Customers are returned in id order.
func Age(items []OpenItem, now time.Time) ([]CustomerAging, Totals) {
	byCustomer := make(map[id.ID]*CustomerAging)
	grand := Totals{}

	for _, it := range items {
		balance := it.Balance()
		if !balance.IsPositive() {
			continue
		}
		b := BucketFor(DaysOutstanding(it.InvoiceDate, now))

		row, ok := byCustomer[it.CustomerID]
		if !ok {
			row = &CustomerAging{CustomerID: it.CustomerID, Totals: Totals{}}
			byCustomer[it.CustomerID] = row
		}
		row.Totals.Add(b, balance)
		row.Invoices++
		grand.Add(b, balance)
	}

	rows := make([]CustomerAging, 0, len(byCustomer))
	for _, row := range byCustomer {
		rows = append(rows, *row)
	}
	slices.SortFunc(rows, func(a, b CustomerAging) int {
		return id.Compare(a.CustomerID, b.CustomerID)
	})
	return rows, grand
}
