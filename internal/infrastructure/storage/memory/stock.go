// Package memory provides in-process implementations of the domain
// repositories. They keep the version checks of the postgres repositories
// and are used by single-node tools and service tests.
package memory

import (
	"context"
	"sync"

	"distro/internal/core/apperror"
	"distro/internal/core/id"
	"distro/internal/domain/registers/stock"
	"distro/internal/domain/uom"
)

type stockKey struct{ item, branch id.ID }

// StockRepo implements stock.Repository.
type StockRepo struct {
	mu        sync.Mutex
	items     map[id.ID]uom.Item
	snaps     map[stockKey]stock.Snapshot
	movements []stock.Movement
}

// NewStockRepo creates an empty stock register.
func NewStockRepo() *StockRepo {
	return &StockRepo{
		items: make(map[id.ID]uom.Item),
		snaps: make(map[stockKey]stock.Snapshot),
	}
}

// Put registers item and sets its stock in a branch.
func (r *StockRepo) Put(item uom.Item, branchID id.ID, onHand uom.Pair) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	r.snaps[stockKey{item.ID, branchID}] = stock.NewSnapshot(item, branchID, onHand)
}

func (r *StockRepo) GetSnapshot(_ context.Context, itemID, branchID id.ID) (stock.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.snaps[stockKey{itemID, branchID}]; ok {
		return s, nil
	}
	item, ok := r.items[itemID]
	if !ok {
		return stock.Snapshot{}, apperror.NewNotFound("item", itemID.String())
	}
	return stock.NewSnapshot(item, branchID, uom.Pair{}), nil
}

func (r *StockRepo) GetSnapshotForUpdate(ctx context.Context, itemID, branchID id.ID) (stock.Snapshot, error) {
	return r.GetSnapshot(ctx, itemID, branchID)
}

func (r *StockRepo) SaveSnapshot(_ context.Context, snap stock.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[stockKey{snap.ItemID, snap.BranchID}] = snap
	return nil
}

func (r *StockRepo) CreateMovements(_ context.Context, movements []stock.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *StockRepo) GetMovementsByRecorder(_ context.Context, recorderID id.ID) ([]stock.Movement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []stock.Movement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

var _ stock.Repository = (*StockRepo)(nil)
