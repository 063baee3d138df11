// Package lock defines the per-entity serialization point used around
// "read balance, validate, commit" sequences.
package lock

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"distro/internal/core/id"
)

// Release frees every key obtained by one Acquire call.
type Release func(ctx context.Context)

// Locker serializes writers per key.
// Acquire must obtain the keys in the order given; callers pass sorted keys.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// InvoiceKey is the lock key guarding one invoice balance.
func InvoiceKey(invoiceID id.ID) string {
	return "invoice:" + invoiceID.String()
}

// StockKey is the lock key guarding one item-stock row of a branch.
func StockKey(itemID, branchID id.ID) string {
	return fmt.Sprintf("stock:%s:%s", itemID, branchID)
}

// SortedKeys returns keys sorted and de-duplicated.
func SortedKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// AcquireAll is a nil-safe helper: a nil Locker yields a no-op release.
func AcquireAll(ctx context.Context, l Locker, keys []string) (Release, error) {
	if l == nil || len(keys) == 0 {
		return func(context.Context) {}, nil
	}
	return l.Acquire(ctx, SortedKeys(keys)...)
}

// KeyedMutex is an in-process Locker for single-instance deployments and tests.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty in-process locker.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Acquire blocks until every key is held or ctx is done.
func (m *KeyedMutex) Acquire(ctx context.Context, keys ...string) (Release, error) {
	held := make([]string, 0, len(keys))
	release := func(context.Context) {
		for i := len(held) - 1; i >= 0; i-- {
			m.unlock(held[i])
		}
	}

	for _, key := range keys {
		if err := m.lock(ctx, key); err != nil {
			release(ctx)
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		held = append(held, key)
	}
	return release, nil
}

func (m *KeyedMutex) lock(ctx context.Context, key string) error {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.drop(key, e)
		return ctx.Err()
	}
}

func (m *KeyedMutex) unlock(key string) {
	m.mu.Lock()
	e, ok := m.locks[key]
	m.mu.Unlock()
	if !ok {
		return
	}
	<-e.ch
	m.drop(key, e)
}

func (m *KeyedMutex) drop(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

var _ Locker = (*KeyedMutex)(nil)
