// Package domain provides types shared by the document packages.
package domain

import (
	"distro/internal/core/id"
)

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// Search matches the document number
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	// IncludeVoided includes voided documents
	IncludeVoided bool

	// OrderBy specifies sorting (e.g., "date", "-number")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit:   50,
		OrderBy: "-date",
	}
}

// Page clamps Limit into [1, max] and Offset to non-negative.
func (f ListFilter) Page(maxLimit int) (limit, offset int) {
	limit = f.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	return limit, max(0, f.Offset)
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}
