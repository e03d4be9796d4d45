/*
history.go - Payment history (merge-by-date)

PURPOSE:
  Persists reviewed distribution results as dated PaymentRecords. Each
  household has one collection of records keyed by date.

CRITICAL INVARIANTS:
  1. At most one PaymentRecord per (household, date)
  2. Saving an existing (household, date) OVERWRITES it; it never appends
  3. The engine never deletes records
  4. Committing the same (date, results) twice leaves the same state

CONCURRENCY:
  Each household is a separate read-merge-write. Households are written in
  parallel (bounded by Recorder.Workers). Writes to the same household are
  serialized by a per-household lock. There is no cross-household
  transaction: a failed commit may leave earlier households saved.
  Two processes committing the same household and date race, last write wins.

SEE ALSO:
  - store/memory.go: In-memory HistoryStore
  - store/sqlite/sqlite.go: SQLite HistoryStore (ON CONFLICT upsert)
*/
package payout

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// PAYMENT RECORD
// =============================================================================

// StatusReceived is the default status of a committed payment.
const StatusReceived = "received"

type PaymentRecord struct {
	ID            string
	HouseholdID   HouseholdID
	Date          Date
	ApplicantName string
	NIC           string
	AccountNumber string
	BankName      string
	Amount        decimal.Decimal
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var recordNamespace = uuid.MustParse("5b0a3c54-7c8e-4d59-9b9e-2f6f1d1f7a10")

// RecordID is the stable ID of a household's record for a date.
func RecordID(id HouseholdID, date Date) string {
	return uuid.NewSHA1(recordNamespace, []byte(string(id)+"|"+date.String())).String()
}

// HistoryStore persists payment records.
type HistoryStore interface {
	// UpsertPayment saves rec, overwriting the household's record for
	// rec.Date if one exists. CreatedAt of an existing record is kept.
	UpsertPayment(ctx context.Context, rec PaymentRecord) error

	// HouseholdPayments returns a household's records, newest date first.
	HouseholdPayments(ctx context.Context, id HouseholdID) ([]PaymentRecord, error)

	// AllPayments returns every household's every record, newest date first.
	AllPayments(ctx context.Context) ([]PaymentRecord, error)
}

// =============================================================================
// RECORDER - History commit
// =============================================================================

// DefaultCommitWorkers bounds parallel household writes.
const DefaultCommitWorkers = 8

type Recorder struct {
	Store   HistoryStore
	Now     func() time.Time
	Workers int

	locks keyedMutex
}

func NewRecorder(store HistoryStore) *Recorder {
	return &Recorder{Store: store, Now: time.Now, Workers: DefaultCommitWorkers}
}

func (r *Recorder) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Commit saves one record per result for date, merging by date.
// A result listed twice for the same household keeps the last occurrence.
func (r *Recorder) Commit(ctx context.Context, date Date, results []DistributionResult) error {
	now := r.now()
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidDate)
	}
	if date.After(DateOf(now)) {
		return fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date)
	}
	if len(results) == 0 {
		return ErrEmptyDistribution
	}

	byHousehold := make(map[HouseholdID]DistributionResult, len(results))
	order := make([]HouseholdID, 0, len(results))
	for _, res := range results {
		if _, seen := byHousehold[res.HouseholdID]; !seen {
			order = append(order, res.HouseholdID)
		}
		byHousehold[res.HouseholdID] = res
	}

	workers := r.Workers
	if workers <= 0 {
		workers = DefaultCommitWorkers
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range order {
		res := byHousehold[id]
		g.Go(func() error {
			return r.commitOne(gctx, date, res, now)
		})
	}
	return g.Wait()
}

func (r *Recorder) commitOne(ctx context.Context, date Date, res DistributionResult, now time.Time) error {
	unlock := r.locks.Lock(string(res.HouseholdID))
	defer unlock()

	rec := PaymentRecord{
		ID:            RecordID(res.HouseholdID, date),
		HouseholdID:   res.HouseholdID,
		Date:          date,
		ApplicantName: res.ApplicantName,
		NIC:           res.NIC,
		AccountNumber: res.AccountNumber,
		BankName:      res.BankName,
		Amount:        res.TotalAmount,
		Status:        StatusReceived,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := r.Store.UpsertPayment(ctx, rec); err != nil {
		return fmt.Errorf("save payment for %s on %s: %w", res.HouseholdID, date, err)
	}
	return nil
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock locks key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// =============================================================================
// BROWSING
// =============================================================================

// DateGroup is every record saved for one date.
type DateGroup struct {
	Date    Date
	Records []PaymentRecord
	Total   decimal.Decimal
}

// GroupByDate groups records by date, newest date first. Records inside a
// group are ordered by applicant name.
func GroupByDate(records []PaymentRecord) []DateGroup {
	index := make(map[Date]int)
	var groups []DateGroup
	for _, rec := range records {
		i, ok := index[rec.Date]
		if !ok {
			i = len(groups)
			index[rec.Date] = i
			groups = append(groups, DateGroup{Date: rec.Date, Total: decimal.Zero})
		}
		groups[i].Records = append(groups[i].Records, rec)
		groups[i].Total = groups[i].Total.Add(rec.Amount)
	}

	slices.SortFunc(groups, func(a, b DateGroup) int {
		return b.Date.Time().Compare(a.Date.Time())
	})
	for _, g := range groups {
		slices.SortStableFunc(g.Records, func(a, b PaymentRecord) int {
			return strings.Compare(strings.ToLower(a.ApplicantName), strings.ToLower(b.ApplicantName))
		})
	}
	return groups
}

// FilterRecords keeps the records whose name, NIC, account number, bank
// name or status contains query (case-insensitive). An empty query keeps all.
func FilterRecords(records []PaymentRecord, query string) []PaymentRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return records
	}
	var out []PaymentRecord
	for _, rec := range records {
		for _, field := range []string{rec.ApplicantName, rec.NIC, rec.AccountNumber, rec.BankName, rec.Status} {
			if strings.Contains(strings.ToLower(field), q) {
				out = append(out, rec)
				break
			}
		}
	}
	return out
}
