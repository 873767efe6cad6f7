package repository

import (
	"context"
	"sort"
	"sync"

	"ORBLab/internal/domain/models"
	domrepo "ORBLab/internal/domain/repository"
)

// MemoryOutcomeStorage keeps rows in a map keyed by OutcomeRow.Key. Used by
// the "memory" backend and in tests.
type MemoryOutcomeStorage struct {
	mu   sync.RWMutex
	rows map[string]models.OutcomeRow
}

var _ domrepo.OutcomeStorage = (*MemoryOutcomeStorage)(nil)

func NewMemoryOutcomeStorage() *MemoryOutcomeStorage {
	return &MemoryOutcomeStorage{rows: make(map[string]models.OutcomeRow)}
}

func (m *MemoryOutcomeStorage) Init(context.Context) error { return nil }

func (m *MemoryOutcomeStorage) Upsert(_ context.Context, rows []models.OutcomeRow) error {
	if err := refuseDiagnostic(rows); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.rows[r.Key()] = r
	}
	return nil
}

func (m *MemoryOutcomeStorage) Query(_ context.Context, q domrepo.OutcomeQuery) ([]models.OutcomeRow, error) {
	m.mu.RLock()
	out := make([]models.OutcomeRow, 0, len(m.rows))
	for _, r := range m.rows {
		if q.StrategyID != "" && r.StrategyID != q.StrategyID {
			continue
		}
		if q.Track != "" && r.Track != q.Track {
			continue
		}
		if q.From != "" && r.TradeDate < q.From {
			continue
		}
		if q.To != "" && r.TradeDate > q.To {
			continue
		}
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Len returns the number of stored keys.
func (m *MemoryOutcomeStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows)
}

func (m *MemoryOutcomeStorage) Health(context.Context) error { return nil }
func (m *MemoryOutcomeStorage) Close() error                 { return nil }
