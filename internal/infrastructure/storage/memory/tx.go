package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"distro/internal/core/tx"
)

// Store is an in-memory repository whose state can be saved and restored.
type Store interface {
	snapshot() (restore func())
}

type txKey struct{}

// TxManager implements tx.Manager over the in-memory stores.
// Transactions are serialized; a failed transaction restores every store
// to its state when the transaction began.
type TxManager struct {
	mu     sync.Mutex
	stores []Store
}

// NewTxManager creates a transaction manager over the given stores.
func NewTxManager(stores ...Store) *TxManager {
	return &TxManager{stores: stores}
}

// RunInTransaction implements tx.Manager.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.snapshot())
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// ReadOnly implements tx.ReadOnlyManager. Writes inside fn are not prevented.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

var _ tx.ReadOnlyManager = (*TxManager)(nil)

func (r *StockRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	snaps, movements := maps.Clone(r.snaps), slices.Clone(r.movements)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.snaps, r.movements = snaps, movements
	}
}

func (r *InvoiceRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs, lines := maps.Clone(r.docs), maps.Clone(r.lines)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.docs, r.lines = docs, lines
	}
}

func (r *ReturnRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs, lines := maps.Clone(r.docs), maps.Clone(r.lines)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.docs, r.lines = docs, lines
	}
}

func (r *PaymentRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs, allocs := maps.Clone(r.docs), maps.Clone(r.allocs)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.docs, r.allocs = docs, allocs
	}
}
