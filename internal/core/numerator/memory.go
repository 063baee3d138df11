package numerator

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Generator for tests and single-node tools.
// Every strategy behaves as strict.
type Memory struct {
	mu   sync.Mutex
	seqs map[string]int64
}

// NewMemory creates an empty in-memory generator.
func NewMemory() *Memory {
	return &Memory{seqs: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (m *Memory) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cfg.Key(period)
	m.seqs[key]++
	return cfg.Format(period, m.seqs[key]), nil
}

// SetNextNumber implements Generator.
func (m *Memory) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqs[cfg.Key(period)] = value
	return nil
}

var _ Generator = (*Memory)(nil)
