package store

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process report store for tests and ephemeral runs.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]Report
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]Report)}
}

func (m *Memory) Insert(_ context.Context, r *Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.ID] = *r
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *Memory) List(_ context.Context, opts ListOptions) ([]Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]Report, 0, len(m.reports))
	for _, r := range m.reports {
		if opts.Level != "" && r.RiskLevel != opts.Level {
			continue
		}
		if opts.Format != "" && r.Format != opts.Format {
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].CreatedAt.After(reports[j].CreatedAt)
	})

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if opts.Offset >= len(reports) {
		return nil, nil
	}
	reports = reports[opts.Offset:]
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.reports)), nil
}

func (m *Memory) Close() error { return nil }
