package stock

import (
	"context"
	"fmt"
	"slices"
	"time"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/domain/uom"
	"distro/pkg/logger"
)

// Service provides business operations for the stock register.
// Transactions and per-entity locks are managed by the calling document service.
type Service struct {
	repo Repository
}

// NewService creates a new stock register service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Availability returns the current snapshot for a form row, without locking.
func (s *Service) Availability(ctx context.Context, itemID, branchID id.ID) (Snapshot, error) {
	return s.repo.GetSnapshot(ctx, itemID, branchID)
}

// ValidateEdit runs the availability validator against the current snapshot.
func (s *Service) ValidateEdit(ctx context.Context, branchID, itemID id.ID, current uom.Pair, field uom.Field, newValue int64) (uom.Cap, error) {
	if !field.Valid() {
		return uom.Cap{}, apperror.NewValidation("unknown quantity field").WithDetail("field", string(field))
	}
	snap, err := s.repo.GetSnapshot(ctx, itemID, branchID)
	if err != nil {
		return uom.Cap{}, fmt.Errorf("get snapshot for %s: %w", itemID, err)
	}
	return Validate(snap.Meta(), current, field, newValue), nil
}

// CheckLines re-validates a whole document against live stock.
// Requirements are summed per item first, and rows are locked in item id
// order. Any violation rejects the document; nothing is clamped.
// Must be called within a transaction.
func (s *Service) CheckLines(ctx context.Context, branchID id.ID, reqs []Requirement) (map[id.ID]Snapshot, error) {
	agg := Aggregate(reqs)
	slices.SortFunc(agg, func(a, b Requirement) int { return id.Compare(a.ItemID, b.ItemID) })

	snaps := make(map[id.ID]Snapshot, len(agg))
	for _, r := range agg {
		snap, err := s.repo.GetSnapshotForUpdate(ctx, r.ItemID, branchID)
		if err != nil {
			return nil, fmt.Errorf("get snapshot for %s: %w", r.ItemID, err)
		}
		if err := Check(snap, r.Qty); err != nil {
			logger.Warn(ctx, "stock check rejected",
				"item_id", r.ItemID,
				"branch_id", branchID,
				"requested", r.Qty.String(),
				"on_hand_primary", snap.OnHandPrimary,
				"running_balance", snap.RunningBalance,
			)
			return nil, err
		}
		snaps[r.ItemID] = snap
	}
	return snaps, nil
}

// RecordExpense checks and consumes stock for a document.
// Must be called within a transaction.
func (s *Service) RecordExpense(ctx context.Context, rec Recorder, branchID id.ID, reqs []Requirement) error {
	snaps, err := s.CheckLines(ctx, branchID, reqs)
	if err != nil {
		return err
	}
	return s.apply(ctx, rec, MovementExpense, branchID, reqs, func(r Requirement) (Snapshot, error) {
		return snaps[r.ItemID].Consume(r.Qty), nil
	})
}

// RecordReceipt puts stock back into a branch (approved returns).
// Must be called within a transaction.
func (s *Service) RecordReceipt(ctx context.Context, rec Recorder, branchID id.ID, reqs []Requirement) error {
	agg := Aggregate(reqs)
	slices.SortFunc(agg, func(a, b Requirement) int { return id.Compare(a.ItemID, b.ItemID) })

	return s.apply(ctx, rec, MovementReceipt, branchID, agg, func(r Requirement) (Snapshot, error) {
		snap, err := s.repo.GetSnapshotForUpdate(ctx, r.ItemID, branchID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("get snapshot for %s: %w", r.ItemID, err)
		}
		return snap.Restock(r.Qty), nil
	})
}

func (s *Service) apply(
	ctx context.Context,
	rec Recorder,
	kind MovementKind,
	branchID id.ID,
	reqs []Requirement,
	next func(Requirement) (Snapshot, error),
) error {
	agg := Aggregate(reqs)
	if len(agg) == 0 {
		return nil
	}

	now := time.Now().UTC()
	movements := make([]Movement, 0, len(agg))
	for _, r := range agg {
		snap, err := next(r)
		if err != nil {
			return err
		}
		snap.UpdatedAt = now
		if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot for %s: %w", r.ItemID, err)
		}
		movements = append(movements, Movement{
			ID:           id.New(),
			RecorderID:   rec.ID,
			RecorderType: rec.Type,
			Kind:         kind,
			ItemID:       r.ItemID,
			BranchID:     branchID,
			PrimaryQty:   r.Qty.Primary,
			BaseQty:      r.Qty.Base,
			TotalBase:    r.Qty.TotalBase(snap.Item().Factor()),
			CreatedAt:    now,
		})
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"kind", string(kind),
		"recorder_id", rec.ID,
	)
	return nil
}
