package numerator

import (
	"context"
	"time"
)

// Generator generates sequential document numbers.
// The PostgreSQL implementation lives in infrastructure/numerator.
type Generator interface {
	// GetNextNumber generates the next document number.
	// Pattern: PREFIX-YEAR-XXXXX (e.g., SI-2026-00001)
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber sets the current sequence value (for data migration).
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
