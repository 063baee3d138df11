package stock

import (
	"context"

	"distro/internal/core/id"
)

// Repository defines operations for the stock register.
type Repository interface {
	// GetSnapshot returns the stock of an item in a branch.
	// An item without a stock row yields a zero snapshot; an unknown item is NotFound.
	GetSnapshot(ctx context.Context, itemID, branchID id.ID) (Snapshot, error)

	// GetSnapshotForUpdate is GetSnapshot with a row lock held until the
	// surrounding transaction ends.
	GetSnapshotForUpdate(ctx context.Context, itemID, branchID id.ID) (Snapshot, error)

	// SaveSnapshot upserts the stock row of an item in a branch.
	SaveSnapshot(ctx context.Context, snap Snapshot) error

	// CreateMovements appends journal lines (used during approval).
	CreateMovements(ctx context.Context, movements []Movement) error

	// GetMovementsByRecorder lists the journal lines written by one document.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]Movement, error)
}
