// Package reports provides receivable reporting.
package reports

import (
	"time"

	"distro/internal/core/id"
	"distro/internal/core/types"
	"distro/internal/domain/receivable"
)

// AgingFilter selects the invoices of an aging report.
type AgingFilter struct {
	// AsOf is the report date (defaults to now)
	AsOf *time.Time

	CustomerIDs []id.ID
	BranchID    *id.ID
}

// BucketAmounts is a per-bucket breakdown in both cents and decimal.
type BucketAmounts struct {
	Minor receivable.Totals                 `json:"-"`
	Money map[receivable.Bucket]types.Money `json:"amounts"`
	Total types.Money                       `json:"total"`
}

func newBucketAmounts(t receivable.Totals) BucketAmounts {
	out := BucketAmounts{
		Minor: t,
		Money: make(map[receivable.Bucket]types.Money, len(receivable.Buckets)),
		Total: t.Sum().ToMoney(),
	}
	for _, b := range receivable.Buckets {
		out.Money[b] = t[b].ToMoney()
	}
	return out
}

// AgingRow is the aging line of one customer.
type AgingRow struct {
	CustomerID id.ID         `json:"customerId"`
	Invoices   int           `json:"invoices"`
	Buckets    BucketAmounts `json:"buckets"`
}

// AgingReport is the receivable aging of open invoices.
type AgingReport struct {
	AsOf       time.Time     `json:"asOf"`
	Rows       []AgingRow    `json:"rows"`
	TotalItems int           `json:"totalItems"`
	Totals     BucketAmounts `json:"totals"`
}
