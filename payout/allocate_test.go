package payout_test

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insafmmkurram-create/web/payout"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var testNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func newTestEngine() *payout.Engine {
	return &payout.Engine{Now: func() time.Time { return testNow }}
}

// bornYearsAgo returns a birth date exactly n years before testNow.
func bornYearsAgo(n int) *time.Time {
	t := time.Date(testNow.Year()-n, testNow.Month(), testNow.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

func share(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), msgAndArgs...)
}

func resultFor(t *testing.T, alloc *payout.Allocation, id payout.HouseholdID) payout.DistributionResult {
	t.Helper()
	for _, r := range alloc.Results {
		if r.HouseholdID == id {
			return r
		}
	}
	t.Fatalf("no result for household %s", id)
	return payout.DistributionResult{}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestAllocate_SingleMaleApplicant_GetsWholeMalePool(t *testing.T) {
	// GIVEN: one household, male applicant aged 40, no dependents
	// WHEN: distributing 1000
	// THEN: applicant share 100 of a male total of 100 -> 300.00

	households := []payout.Household{
		{ID: "h1", ApplicantName: "Akbar", DateOfBirth: bornYearsAgo(40), Gender: "male"},
	}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)
	require.Len(t, alloc.Results, 1)

	assertAmount(t, "300.00", alloc.Results[0].TotalAmount)
	assert.Equal(t, payout.CategoryMale, alloc.Results[0].PrimaryCategory)
	assertAmount(t, "100.00", alloc.ShareTotals[payout.CategoryMale])
}

func TestAllocate_FemaleApplicantWithMinorDependent(t *testing.T) {
	// GIVEN: female applicant aged 40 with a minor dependent holding a 40 share
	// WHEN: distributing 1000
	// THEN: applicant gets the whole female pool (150), the minor the whole
	//       minor pool (50), household total 200.00

	households := []payout.Household{{
		ID: "h1", ApplicantName: "Bibi", DateOfBirth: bornYearsAgo(40), Gender: "female",
		Dependents: []payout.Dependent{
			{Name: "Gul", DateOfBirth: bornYearsAgo(10), Gender: "female", Share: share(40)},
		},
	}}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	shares := payout.ResolveShares(households[0])
	assertAmount(t, "60.00", shares.Applicant)
	assertAmount(t, "40.00", shares.Dependents[0])

	assertAmount(t, "200.00", alloc.Results[0].TotalAmount)
	assert.Equal(t, payout.CategoryFemale, alloc.Results[0].PrimaryCategory)
	assertAmount(t, "60.00", alloc.ShareTotals[payout.CategoryFemale])
	assertAmount(t, "40.00", alloc.ShareTotals[payout.CategoryMinor])
}

func TestAllocate_TwoMaleHouseholds_SplitMalePoolByShare(t *testing.T) {
	// GIVEN: two male applicants; the second has a female dependent with share 50
	// WHEN: distributing 1000
	// THEN: male total is 150: h1 = 300*100/150 = 200, h2 applicant = 100,
	//       and h2's dependent takes the whole female pool (150)

	households := []payout.Household{
		{ID: "h1", ApplicantName: "Aslam", DateOfBirth: bornYearsAgo(50), Gender: "male"},
		{ID: "h2", ApplicantName: "Bashir", DateOfBirth: bornYearsAgo(45), Gender: "m",
			Dependents: []payout.Dependent{
				{Name: "Sana", DateOfBirth: bornYearsAgo(42), Gender: "female", Share: share(50)},
			}},
	}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	assertAmount(t, "150.00", alloc.ShareTotals[payout.CategoryMale])
	assertAmount(t, "200.00", resultFor(t, alloc, "h1").TotalAmount)
	assertAmount(t, "250.00", resultFor(t, alloc, "h2").TotalAmount)
}

func TestAllocate_InvalidAmount_Rejected(t *testing.T) {
	households := []payout.Household{{ID: "h1", ApplicantName: "A", Gender: "male"}}

	for _, total := range []string{"0", "-5", "-0.01"} {
		t.Run(total, func(t *testing.T) {
			alloc, err := newTestEngine().Allocate(amount(total), households)
			assert.Nil(t, alloc)
			assert.ErrorIs(t, err, payout.ErrInvalidAmount)

			var amountErr *payout.InvalidAmountError
			assert.ErrorAs(t, err, &amountErr)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "1000", want: "1000"},
		{input: " 2500.50 ", want: "2500.5"},
		{input: "1e3", want: "1000"},
		{input: "", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "NaN", wantErr: true},
		{input: "0", wantErr: true},
		{input: "-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := payout.ParseAmount(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, payout.ErrInvalidAmount)
				assert.True(t, payout.IsClientError(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(amount(tt.want)), "got %s", got)
		})
	}
}

func TestAmountFromFloat_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 0, -1} {
		_, err := payout.AmountFromFloat(f)
		assert.ErrorIs(t, err, payout.ErrInvalidAmount, "input %v", f)
	}

	d, err := payout.AmountFromFloat(1000.25)
	require.NoError(t, err)
	assertAmount(t, "1000.25", d)
}

func TestAllocate_MissingShare_ExcludedFromDenominator(t *testing.T) {
	// GIVEN: a female applicant with two adult female dependents, one whose
	//        share is missing and one with share 30
	// WHEN: distributing 1000
	// THEN: the missing-share dependent is not a recipient; the female total
	//       is 70 + 30 = 100 and the household receives the whole female pool

	households := []payout.Household{{
		ID: "h1", ApplicantName: "Rukhsana", DateOfBirth: bornYearsAgo(60), Gender: "female",
		Dependents: []payout.Dependent{
			{Name: "No share", DateOfBirth: bornYearsAgo(30), Gender: "female"},
			{Name: "Thirty", DateOfBirth: bornYearsAgo(28), Gender: "female", Share: share(30)},
		},
	}}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	assertAmount(t, "100.00", alloc.ShareTotals[payout.CategoryFemale])
	assert.Equal(t, 2, alloc.PeopleCounts[payout.CategoryFemale])
	assertAmount(t, "150.00", alloc.Results[0].TotalAmount)
	assert.Contains(t, alloc.Defaults, payout.DefaultEvent{HouseholdID: "h1", Person: 0, Kind: payout.DefaultShareMissing})
}

func TestAllocate_ZeroShareDependent_DoesNotDiluteOthers(t *testing.T) {
	// GIVEN: two households with minor dependents; one declares share 0
	// WHEN: distributing 1000
	// THEN: the other minor gets the whole minor pool

	households := []payout.Household{
		{ID: "h1", ApplicantName: "A", DateOfBirth: bornYearsAgo(40), Gender: "male",
			Dependents: []payout.Dependent{{Name: "kid", DateOfBirth: bornYearsAgo(5), Share: share(0)}}},
		{ID: "h2", ApplicantName: "B", DateOfBirth: bornYearsAgo(40), Gender: "female",
			Dependents: []payout.Dependent{{Name: "kid", DateOfBirth: bornYearsAgo(6), Share: share(20)}}},
	}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	assert.Equal(t, 1, alloc.PeopleCounts[payout.CategoryMinor])
	// h1: applicant share 100 -> whole male pool
	assertAmount(t, "300.00", resultFor(t, alloc, "h1").TotalAmount)
	// h2: applicant 80 -> whole female pool, kid -> whole minor pool
	assertAmount(t, "200.00", resultFor(t, alloc, "h2").TotalAmount)
}

func TestAllocate_NoCategoryData_DefaultsToMaleWithZeroAllowed(t *testing.T) {
	// GIVEN: an applicant with no birth date, no gender, and dependents whose
	//        shares exceed 100
	// WHEN: distributing
	// THEN: the applicant is male with share 0 and still appears in the output

	households := []payout.Household{{
		ID: "h1", ApplicantName: "Unknown",
		Dependents: []payout.Dependent{
			{Name: "a", DateOfBirth: bornYearsAgo(8), Share: share(80)},
			{Name: "b", DateOfBirth: bornYearsAgo(9), Share: share(50)},
		},
	}}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)
	require.Len(t, alloc.Results, 1)

	res := alloc.Results[0]
	assert.Equal(t, payout.CategoryMale, res.PrimaryCategory)
	// only minors receive money: the whole minor pool
	assertAmount(t, "50.00", res.TotalAmount)

	kinds := map[payout.DefaultKind]bool{}
	for _, ev := range alloc.Defaults {
		kinds[ev.Kind] = true
	}
	assert.True(t, kinds[payout.DefaultGender])
	assert.True(t, kinds[payout.DefaultBirthDate])
	assert.True(t, kinds[payout.DefaultSharesOverflow])
}

func TestAllocate_UnrecognizedInputsFollowDefaultRules(t *testing.T) {
	// GIVEN: a padded gender and a day-first birth date
	_, ok := payout.ParseBirthDate("13-01-2015")
	require.False(t, ok)
	households := []payout.Household{
		{ID: "h1", ApplicantName: "Bilal", DateOfBirth: bornYearsAgo(40), Gender: " f "},
		{ID: "h2", ApplicantName: "Hina", DateOfBirth: nil, Gender: "female"},
	}

	// WHEN: distributing 1000
	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	// THEN: the padded gender counts as male, the unknown age keeps the gender
	assert.Equal(t, payout.CategoryMale, resultFor(t, alloc, "h1").PrimaryCategory)
	assertAmount(t, "300.00", resultFor(t, alloc, "h1").TotalAmount)
	assert.Equal(t, payout.CategoryFemale, resultFor(t, alloc, "h2").PrimaryCategory)
	assertAmount(t, "150.00", resultFor(t, alloc, "h2").TotalAmount)
	assert.Contains(t, alloc.Defaults, payout.DefaultEvent{HouseholdID: "h1", Person: payout.Applicant, Kind: payout.DefaultGender})
	assert.Contains(t, alloc.Defaults, payout.DefaultEvent{HouseholdID: "h2", Person: payout.Applicant, Kind: payout.DefaultBirthDate})
}

func TestAllocate_RoundsOncePerHousehold(t *testing.T) {
	// GIVEN: three male households; the first also has two male dependents
	//        with shares that produce repeating decimals
	// WHEN: distributing 100
	// THEN: the household total is rounded after summing, not per person

	households := []payout.Household{
		{ID: "h1", ApplicantName: "A", DateOfBirth: bornYearsAgo(40), Gender: "male",
			Dependents: []payout.Dependent{
				{DateOfBirth: bornYearsAgo(20), Gender: "male", Share: share(1)},
				{DateOfBirth: bornYearsAgo(21), Gender: "male", Share: share(1)},
			}},
		{ID: "h2", ApplicantName: "B", DateOfBirth: bornYearsAgo(40), Gender: "male"},
		{ID: "h3", ApplicantName: "C", DateOfBirth: bornYearsAgo(40), Gender: "male"},
	}

	alloc, err := newTestEngine().Allocate(amount("100"), households)
	require.NoError(t, err)

	// male total = 98 + 1 + 1 + 100 + 100 = 300, pool 30 -> 0.1 per share point
	assertAmount(t, "10.00", resultFor(t, alloc, "h1").TotalAmount)
	assertAmount(t, "10.00", resultFor(t, alloc, "h2").TotalAmount)

	// 7 equal households on a pool of 300: 42.857142... rounds to 42.86 each
	seven := make([]payout.Household, 7)
	for i := range seven {
		seven[i] = payout.Household{ID: payout.HouseholdID(rune('a' + i)), ApplicantName: string(rune('A' + i)), Gender: "male", DateOfBirth: bornYearsAgo(30)}
	}
	alloc, err = newTestEngine().Allocate(amount("1000"), seven)
	require.NoError(t, err)
	for _, r := range alloc.Results {
		assertAmount(t, "42.86", r.TotalAmount)
	}
	assertAmount(t, "300.02", alloc.Total)
}

func TestAllocate_HalfUpRounding(t *testing.T) {
	// GIVEN: a single male household and a pool whose male slice ends in 5
	//        at the third decimal (0.30 * 0.05 = 0.015)
	// THEN: halves round up
	alloc, err := newTestEngine().Allocate(amount("0.05"), []payout.Household{
		{ID: "h1", ApplicantName: "A", Gender: "male", DateOfBirth: bornYearsAgo(30)},
	})
	require.NoError(t, err)
	assertAmount(t, "0.02", alloc.Results[0].TotalAmount)

	// 0.30 * 0.25 = 0.075 -> 0.08
	alloc, err = newTestEngine().Allocate(amount("0.25"), []payout.Household{
		{ID: "h1", ApplicantName: "A", Gender: "male", DateOfBirth: bornYearsAgo(30)},
	})
	require.NoError(t, err)
	assertAmount(t, "0.08", alloc.Results[0].TotalAmount)
}

// =============================================================================
// ORDERING
// =============================================================================

func TestAllocate_SortsByCategoryThenName(t *testing.T) {
	households := []payout.Household{
		{ID: "minor", ApplicantName: "Aamir", DateOfBirth: bornYearsAgo(16), Gender: "male"},
		{ID: "f-zara", ApplicantName: "Zara", DateOfBirth: bornYearsAgo(30), Gender: "female"},
		{ID: "m-bilal", ApplicantName: "bilal", DateOfBirth: bornYearsAgo(30), Gender: "male"},
		{ID: "f-ayesha", ApplicantName: "Ayesha", DateOfBirth: bornYearsAgo(30), Gender: "F"},
		{ID: "m-adil", ApplicantName: "Adil", DateOfBirth: bornYearsAgo(30), Gender: "M"},
	}

	alloc, err := newTestEngine().Allocate(amount("1000"), households)
	require.NoError(t, err)

	var got []payout.HouseholdID
	for _, r := range alloc.Results {
		got = append(got, r.HouseholdID)
	}
	assert.Equal(t, []payout.HouseholdID{"m-adil", "m-bilal", "f-ayesha", "f-zara", "minor"}, got)
}

func TestAllocation_Select(t *testing.T) {
	households := []payout.Household{
		{ID: "h1", ApplicantName: "A", Gender: "male", DateOfBirth: bornYearsAgo(30)},
		{ID: "h2", ApplicantName: "B", Gender: "male", DateOfBirth: bornYearsAgo(30)},
		{ID: "h3", ApplicantName: "C", Gender: "male", DateOfBirth: bornYearsAgo(30)},
	}
	alloc, err := newTestEngine().Allocate(amount("900"), households)
	require.NoError(t, err)

	assert.Len(t, alloc.Select(nil), 3)

	picked := alloc.Select([]payout.HouseholdID{"h3", "h1", "missing"})
	require.Len(t, picked, 2)
	assert.Equal(t, payout.HouseholdID("h1"), picked[0].HouseholdID)
	assert.Equal(t, payout.HouseholdID("h3"), picked[1].HouseholdID)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestSplitPool_Conservation(t *testing.T) {
	for _, s := range []string{"1000", "1000.01", "0.03", "123456.789", "7"} {
		total := amount(s)
		pools := payout.SplitPool(total)
		assert.True(t, pools.Sum().Equal(total), "pools of %s sum to %s", s, pools.Sum())
	}
}

func mixedHouseholds() []payout.Household {
	return []payout.Household{
		{ID: "h1", ApplicantName: "Plain", DateOfBirth: bornYearsAgo(40), Gender: "male"},
		{ID: "h2", ApplicantName: "Family", DateOfBirth: bornYearsAgo(38), Gender: "female",
			Dependents: []payout.Dependent{
				{DateOfBirth: bornYearsAgo(12), Share: share(20)},
				{DateOfBirth: bornYearsAgo(14), Gender: "m", Share: share(15)},
				{DateOfBirth: bornYearsAgo(19), Gender: "male", Share: share(25)},
			}},
		{ID: "h3", ApplicantName: "Overflow", Gender: "other",
			Dependents: []payout.Dependent{
				{DateOfBirth: bornYearsAgo(30), Gender: "f", Share: share(70)},
				{DateOfBirth: bornYearsAgo(3), Share: share(60)},
			}},
		{ID: "h4", ApplicantName: "Negative", DateOfBirth: bornYearsAgo(70), Gender: "FEMALE",
			Dependents: []payout.Dependent{
				{DateOfBirth: bornYearsAgo(33), Gender: "female", Share: share(-10)},
				{DateOfBirth: bornYearsAgo(1), Gender: "male", Share: share(33.3)},
			}},
		{ID: "h5", ApplicantName: "No data"},
		{ID: "h6", ApplicantName: "Teen applicant", DateOfBirth: bornYearsAgo(17), Gender: "female"},
	}
}

func TestAllocate_NonNegative(t *testing.T) {
	alloc, err := newTestEngine().Allocate(amount("98765.43"), mixedHouseholds())
	require.NoError(t, err)
	require.Len(t, alloc.Results, 6)

	for _, r := range alloc.Results {
		assert.False(t, r.TotalAmount.IsNegative(), "household %s", r.HouseholdID)
	}
}

func TestAllocate_CategoryConservation(t *testing.T) {
	// Every category has recipients, so the whole people pool is paid out
	// up to one cent of drift per household.
	total := amount("98765.43")
	alloc, err := newTestEngine().Allocate(total, mixedHouseholds())
	require.NoError(t, err)

	for _, c := range payout.Categories {
		require.Positive(t, alloc.PeopleCounts[c], "category %s", c)
	}

	paid := alloc.Pools.Male.Add(alloc.Pools.Female).Add(alloc.Pools.Minor)
	drift := alloc.Total.Sub(paid).Abs()
	tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(len(alloc.Results))))
	assert.True(t, drift.LessThanOrEqual(tolerance), "drift %s > %s", drift, tolerance)
}

func TestAllocate_SingleCategoryConservation(t *testing.T) {
	// Only female recipients: the female pool is conserved within 0.01 per person
	var households []payout.Household
	for i, s := range []float64{10, 20, 33.3, 0, 45} {
		households = append(households, payout.Household{
			ID: payout.HouseholdID(rune('a' + i)), ApplicantName: "F", DateOfBirth: bornYearsAgo(30 + i), Gender: "female",
			Dependents: []payout.Dependent{{DateOfBirth: bornYearsAgo(40), Gender: "f", Share: share(s)}},
		})
	}

	alloc, err := newTestEngine().Allocate(amount("1234.56"), households)
	require.NoError(t, err)

	people := alloc.PeopleCounts[payout.CategoryFemale]
	tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(people)))
	drift := alloc.Total.Sub(alloc.Pools.Female).Abs()
	assert.True(t, drift.LessThanOrEqual(tolerance), "drift %s > %s", drift, tolerance)
}

func TestAllocate_EmptyHouseholds(t *testing.T) {
	alloc, err := newTestEngine().Allocate(amount("1000"), nil)
	require.NoError(t, err)
	assert.Empty(t, alloc.Results)
	assert.True(t, alloc.Total.IsZero())
	assert.True(t, alloc.Pools.Sum().Equal(amount("1000")))
}
