// Package store provides in-memory payout.HistoryStore implementations.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/insafmmkurram-create/web/payout"
)

// =============================================================================
// MEMORY STORE - In-memory history (for testing)
// =============================================================================

// Memory keeps one record list per household, at most one record per date.
type Memory struct {
	mu       sync.RWMutex
	payments map[payout.HouseholdID][]payout.PaymentRecord
	writes   int
}

func NewMemory() *Memory {
	return &Memory{payments: make(map[payout.HouseholdID][]payout.PaymentRecord)}
}

// UpsertPayment overwrites the record for rec.Date, or appends a new one.
func (m *Memory) UpsertPayment(_ context.Context, rec payout.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writes++
	recs := m.payments[rec.HouseholdID]
	for i, existing := range recs {
		if existing.Date.Equal(rec.Date) {
			rec.CreatedAt = existing.CreatedAt
			recs[i] = rec
			return nil
		}
	}
	m.payments[rec.HouseholdID] = append(recs, rec)
	return nil
}

func (m *Memory) HouseholdPayments(_ context.Context, id payout.HouseholdID) ([]payout.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := slices.Clone(m.payments[id])
	sortNewestFirst(result)
	return result, nil
}

func (m *Memory) AllPayments(_ context.Context) ([]payout.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []payout.PaymentRecord
	for _, recs := range m.payments {
		result = append(result, recs...)
	}
	sortNewestFirst(result)
	return result, nil
}

// Writes returns the number of UpsertPayment calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func sortNewestFirst(recs []payout.PaymentRecord) {
	slices.SortStableFunc(recs, func(a, b payout.PaymentRecord) int {
		if c := b.Date.Time().Compare(a.Date.Time()); c != 0 {
			return c
		}
		if a.HouseholdID < b.HouseholdID {
			return -1
		}
		if a.HouseholdID > b.HouseholdID {
			return 1
		}
		return 0
	})
}
