package reports

import (
	"context"

	"distro/internal/domain/receivable"
)

// Repository defines report data access interface.
type Repository interface {
	// ListOpenItems returns approved invoices with a positive balance.
	ListOpenItems(ctx context.Context, filter AgingFilter) ([]receivable.OpenItem, error)
}
