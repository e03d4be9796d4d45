/*
allocate.go - Two-pass category allocation

ALGORITHM:
  1. Validate the pool amount (> 0), else InvalidAmountError
  2. Split the pool: business 50%, male 30%, female 15%, minor 5%
  3. Pass 1: enumerate every person (each applicant, plus every dependent
     with a share > 0), classify them and sum the shares per category
  4. Pass 2: per household, each person receives
         pool[category] * share / shareTotal[category]
     (0 when the category total is 0) and the household total is the sum,
     rounded ONCE to 2 decimals
  5. Sort by applicant category (male, female, minor), then applicant name

ROUNDING:
  decimal.Round rounds half away from zero. Payouts are never negative, so
  this is half-up: 0.125 -> 0.13. Intermediate values keep
  decimal.DivisionPrecision digits.

FAIRNESS:
  A dependent whose resolved share is 0 is not a recipient and does not
  enter the category denominator, so declaring a zero share never dilutes
  the other people in that category.

SEE ALSO:
  - classify.go, shares.go: the two leaf steps
  - history.go: committing results
*/
package payout

import (
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// =============================================================================
// AMOUNT VALIDATION
// =============================================================================

// ParseAmount parses a user-entered pool amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InvalidAmountError{Input: s, Reason: "not a number"}
	}
	return d, validateAmount(d)
}

// AmountFromFloat converts a numeric pool amount, rejecting NaN and infinities.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, &InvalidAmountError{Reason: "not a finite number"}
	}
	d := decimal.NewFromFloat(f)
	return d, validateAmount(d)
}

func validateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return &InvalidAmountError{Input: d.String(), Reason: "must be greater than zero"}
	}
	return nil
}

// SplitPool computes the fixed-percentage slices of total.
func SplitPool(total decimal.Decimal) CategoryPools {
	return CategoryPools{
		Business: total.Mul(WeightBusiness),
		Male:     total.Mul(WeightMale),
		Female:   total.Mul(WeightFemale),
		Minor:    total.Mul(WeightMinor),
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs allocations. The zero value is usable: it reads the wall
// clock and discards log output.
type Engine struct {
	Now    func() time.Time
	Logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{Now: time.Now, Logger: logger}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// person is one recipient found in pass 1.
type person struct {
	category Category
	share    decimal.Decimal
}

// Allocate distributes total across households.
// The only failure is an invalid amount; every household given appears
// in the results, possibly with a zero total.
func (e *Engine) Allocate(total decimal.Decimal, households []Household) (*Allocation, error) {
	if err := validateAmount(total); err != nil {
		return nil, err
	}

	now := e.now()
	pools := SplitPool(total)

	// Pass 1: enumerate people and sum shares per category
	shareTotals := make(map[Category]decimal.Decimal, len(Categories))
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		shareTotals[c] = decimal.Zero
	}

	var defaults []DefaultEvent
	people := make([][]person, len(households))
	for i, h := range households {
		ps, events := enumerate(h, now)
		people[i] = ps
		defaults = append(defaults, events...)
		for _, p := range ps {
			shareTotals[p.category] = shareTotals[p.category].Add(p.share)
			counts[p.category]++
		}
	}

	// Pass 2: per-household totals
	results := make([]DistributionResult, len(households))
	sum := decimal.Zero
	for i, h := range households {
		amount := decimal.Zero
		for _, p := range people[i] {
			amount = amount.Add(payoutFor(p, pools, shareTotals))
		}
		amount = amount.Round(2)
		sum = sum.Add(amount)

		results[i] = DistributionResult{
			HouseholdID:     h.ID,
			ApplicantName:   h.ApplicantName,
			NIC:             h.NIC,
			AccountNumber:   h.AccountNumber,
			BankName:        h.BankName,
			TotalAmount:     amount,
			PrimaryCategory: people[i][0].category,
		}
	}

	sortResults(results)
	e.logDefaults(defaults)

	return &Allocation{
		Results:      results,
		Pools:        pools,
		ShareTotals:  shareTotals,
		PeopleCounts: counts,
		Total:        sum,
		Defaults:     defaults,
	}, nil
}

// enumerate lists the recipients of a household. The applicant is always
// first, even with a zero share.
func enumerate(h Household, now time.Time) ([]person, []DefaultEvent) {
	shares, defaults := resolveShares(h)

	cat, kinds := classify(h.DateOfBirth, h.Gender, now)
	for _, k := range kinds {
		defaults = append(defaults, DefaultEvent{HouseholdID: h.ID, Person: Applicant, Kind: k})
	}
	people := []person{{category: cat, share: shares.Applicant}}

	for i, d := range h.Dependents {
		share := shares.Dependents[i]
		if !share.IsPositive() {
			continue
		}
		cat, kinds := classify(d.DateOfBirth, d.Gender, now)
		for _, k := range kinds {
			defaults = append(defaults, DefaultEvent{HouseholdID: h.ID, Person: i, Kind: k})
		}
		people = append(people, person{category: cat, share: share})
	}
	return people, defaults
}

func payoutFor(p person, pools CategoryPools, totals map[Category]decimal.Decimal) decimal.Decimal {
	total := totals[p.category]
	if !total.IsPositive() || !p.share.IsPositive() {
		return decimal.Zero
	}
	return pools.For(p.category).Mul(p.share).Div(total)
}

// sortResults orders by category rank, then applicant name. Ties keep input order.
func sortResults(results []DistributionResult) {
	col := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(results, func(a, b DistributionResult) int {
		if d := a.PrimaryCategory.rank() - b.PrimaryCategory.rank(); d != 0 {
			return d
		}
		return col.CompareString(a.ApplicantName, b.ApplicantName)
	})
}

func (e *Engine) logDefaults(events []DefaultEvent) {
	if e.Logger == nil || len(events) == 0 {
		return
	}
	byKind := make(map[DefaultKind]int)
	for _, ev := range events {
		byKind[ev.Kind]++
		e.Logger.Debug("input defaulted",
			"household", ev.HouseholdID, "person", ev.PersonLabel(), "index", ev.Person, "kind", ev.Kind)
	}
	attrs := make([]any, 0, 2*len(byKind))
	for kind, n := range byKind {
		attrs = append(attrs, string(kind), n)
	}
	e.Logger.Warn("allocation used default rules", attrs...)
}
