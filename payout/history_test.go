package payout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insafmmkurram-create/web/payout"
	"github.com/insafmmkurram-create/web/payout/store"
)

func newTestRecorder(s payout.HistoryStore) *payout.Recorder {
	r := payout.NewRecorder(s)
	r.Now = func() time.Time { return testNow }
	return r
}

func sampleResults() []payout.DistributionResult {
	return []payout.DistributionResult{
		{HouseholdID: "h1", ApplicantName: "Zubair", NIC: "35202-1", AccountNumber: "PK01", BankName: "HBL", TotalAmount: amount("200.00")},
		{HouseholdID: "h2", ApplicantName: "amina", NIC: "35202-2", AccountNumber: "PK02", BankName: "MCB", TotalAmount: amount("150.50")},
	}
}

func TestCommit_IsIdempotent(t *testing.T) {
	// GIVEN: an empty history
	// WHEN: committing the same results for the same date twice
	// THEN: each household has exactly one record, equal after both commits

	ctx := context.Background()
	mem := store.NewMemory()
	rec := newTestRecorder(mem)
	date := payout.NewDate(2026, time.October, 1)

	require.NoError(t, rec.Commit(ctx, date, sampleResults()))
	first, err := mem.AllPayments(ctx)
	require.NoError(t, err)

	require.NoError(t, rec.Commit(ctx, date, sampleResults()))
	second, err := mem.AllPayments(ctx)
	require.NoError(t, err)

	assert.Len(t, second, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 4, mem.Writes())
}

func TestCommit_MergesByDate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := newTestRecorder(mem)
	oct1 := payout.NewDate(2026, time.October, 1)
	sep1 := payout.NewDate(2026, time.September, 1)

	require.NoError(t, rec.Commit(ctx, sep1, sampleResults()[:1]))

	// a later commit overwrites only the same date
	createdAt := testNow
	rec.Now = func() time.Time { return testNow.Add(time.Hour) }
	require.NoError(t, rec.Commit(ctx, oct1, sampleResults()[:1]))

	updated := sampleResults()[:1]
	updated[0].TotalAmount = amount("999.99")
	rec.Now = func() time.Time { return testNow.Add(2 * time.Hour) }
	require.NoError(t, rec.Commit(ctx, sep1, updated))

	recs, err := mem.HouseholdPayments(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, oct1, recs[0].Date)
	assertAmount(t, "200.00", recs[0].Amount)

	assert.Equal(t, sep1, recs[1].Date)
	assertAmount(t, "999.99", recs[1].Amount)
	assert.Equal(t, createdAt, recs[1].CreatedAt)
	assert.Equal(t, testNow.Add(2*time.Hour), recs[1].UpdatedAt)
	assert.Equal(t, payout.StatusReceived, recs[1].Status)
	assert.Equal(t, payout.RecordID("h1", sep1), recs[1].ID)
}

func TestCommit_DuplicateHouseholdKeepsLast(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := newTestRecorder(mem)

	results := sampleResults()
	dup := results[0]
	dup.TotalAmount = amount("1.00")
	results = append(results, dup)

	require.NoError(t, rec.Commit(ctx, payout.NewDate(2026, time.October, 1), results))

	recs, err := mem.HouseholdPayments(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assertAmount(t, "1.00", recs[0].Amount)
	assert.Equal(t, 2, mem.Writes())
}

func TestCommit_Rejections(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	rec := newTestRecorder(mem)

	err := rec.Commit(ctx, payout.Date{}, sampleResults())
	assert.ErrorIs(t, err, payout.ErrInvalidDate)

	tomorrow := payout.DateOf(testNow).AddDays(1)
	err = rec.Commit(ctx, tomorrow, sampleResults())
	assert.ErrorIs(t, err, payout.ErrInvalidDate)
	assert.True(t, payout.IsClientError(err))

	err = rec.Commit(ctx, payout.DateOf(testNow), nil)
	assert.ErrorIs(t, err, payout.ErrEmptyDistribution)

	assert.Zero(t, mem.Writes())

	// today is allowed
	require.NoError(t, rec.Commit(ctx, payout.DateOf(testNow), sampleResults()))
}

// trackingStore records how many writes run at once for each household.
type trackingStore struct {
	*store.Memory

	mu       sync.Mutex
	inFlight map[payout.HouseholdID]int
	maxSeen  map[payout.HouseholdID]int
}

func (s *trackingStore) UpsertPayment(ctx context.Context, rec payout.PaymentRecord) error {
	s.mu.Lock()
	s.inFlight[rec.HouseholdID]++
	if s.inFlight[rec.HouseholdID] > s.maxSeen[rec.HouseholdID] {
		s.maxSeen[rec.HouseholdID] = s.inFlight[rec.HouseholdID]
	}
	s.mu.Unlock()

	time.Sleep(time.Millisecond)
	err := s.Memory.UpsertPayment(ctx, rec)

	s.mu.Lock()
	s.inFlight[rec.HouseholdID]--
	s.mu.Unlock()
	return err
}

func TestCommit_SerializesWritesPerHousehold(t *testing.T) {
	// GIVEN: several concurrent commits touching the same households
	// THEN: no two writes for one household overlap, and one record per date remains

	ctx := context.Background()
	ts := &trackingStore{
		Memory:   store.NewMemory(),
		inFlight: make(map[payout.HouseholdID]int),
		maxSeen:  make(map[payout.HouseholdID]int),
	}
	rec := newTestRecorder(ts)
	date := payout.NewDate(2026, time.October, 1)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, rec.Commit(ctx, date, sampleResults()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ts.maxSeen["h1"])
	assert.Equal(t, 1, ts.maxSeen["h2"])

	all, err := ts.AllPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGroupByDate(t *testing.T) {
	sep := payout.NewDate(2026, time.September, 1)
	oct := payout.NewDate(2026, time.October, 1)
	records := []payout.PaymentRecord{
		{HouseholdID: "h1", Date: sep, ApplicantName: "Zubair", Amount: amount("10")},
		{HouseholdID: "h1", Date: oct, ApplicantName: "Zubair", Amount: amount("20")},
		{HouseholdID: "h2", Date: oct, ApplicantName: "amina", Amount: amount("5.50")},
	}

	groups := payout.GroupByDate(records)
	require.Len(t, groups, 2)

	assert.Equal(t, oct, groups[0].Date)
	assertAmount(t, "25.50", groups[0].Total)
	require.Len(t, groups[0].Records, 2)
	assert.Equal(t, "amina", groups[0].Records[0].ApplicantName)

	assert.Equal(t, sep, groups[1].Date)
	assertAmount(t, "10.00", groups[1].Total)
}

func TestFilterRecords(t *testing.T) {
	records := []payout.PaymentRecord{
		{ApplicantName: "Zubair", NIC: "35202-1", AccountNumber: "PK01", BankName: "HBL", Status: "received"},
		{ApplicantName: "Amina", NIC: "35202-2", AccountNumber: "PK02", BankName: "Meezan", Status: "received"},
	}

	assert.Len(t, payout.FilterRecords(records, ""), 2)
	assert.Len(t, payout.FilterRecords(records, "  "), 2)
	assert.Len(t, payout.FilterRecords(records, "RECEIVED"), 2)

	got := payout.FilterRecords(records, "meez")
	require.Len(t, got, 1)
	assert.Equal(t, "Amina", got[0].ApplicantName)

	got = payout.FilterRecords(records, "pk01")
	require.Len(t, got, 1)
	assert.Equal(t, "Zubair", got[0].ApplicantName)

	assert.Empty(t, payout.FilterRecords(records, "nobody"))
}

func TestRecordID_Stable(t *testing.T) {
	d := payout.NewDate(2026, time.October, 1)
	assert.Equal(t, payout.RecordID("h1", d), payout.RecordID("h1", d))
	assert.NotEqual(t, payout.RecordID("h1", d), payout.RecordID("h2", d))
	assert.NotEqual(t, payout.RecordID("h1", d), payout.RecordID("h1", d.AddDays(1)))
}
