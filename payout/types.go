/*
Package payout provides the benefit distribution engine.

PURPOSE:
  Splits a payout pool across accepted households. Every person in a
  household (the primary applicant plus declared dependents) is placed in
  one demographic category, and each category receives a fixed slice of the
  pool that is shared out in proportion to the people's declared shares.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: minor, male or female
  - Household / Dependent: the engine's validated input records
  - CategoryPools: the fixed-percentage slices of the pool
  - DistributionResult: one computed row per household

CATEGORY WEIGHTS:
  business 50% (reported, never distributed)
  male     30%
  female   15%
  minor     5%

DESIGN PRINCIPLES:
  1. Precision: amounts and shares are decimal.Decimal, rounded once per household
  2. Leniency: malformed person data degrades to documented defaults, never errors
  3. Purity: Allocate has no side effects besides logging; persistence lives in history.go

USAGE:
  engine := payout.NewEngine(logger)
  alloc, err := engine.Allocate(decimal.NewFromInt(1000), households)
  if errors.Is(err, payout.ErrInvalidAmount) {
      // ask for another amount
  }

SEE ALSO:
  - classify.go: Category Classifier
  - shares.go: Share Resolver
  - allocate.go: Allocation Engine
  - history.go: History commit (merge-by-date)
*/
package payout

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATEGORY
// =============================================================================

type Category string

const (
	CategoryMale   Category = "male"
	CategoryFemale Category = "female"
	CategoryMinor  Category = "minor"
)

// Categories lists the people categories in display order.
var Categories = []Category{CategoryMale, CategoryFemale, CategoryMinor}

// Label returns the human-readable category name.
func (c Category) Label() string {
	switch c {
	case CategoryMale:
		return "Male"
	case CategoryFemale:
		return "Female"
	case CategoryMinor:
		return "Below 18"
	default:
		return string(c)
	}
}

func (c Category) rank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return 0
}

var (
	WeightBusiness = decimal.RequireFromString("0.50")
	WeightMale     = decimal.RequireFromString("0.30")
	WeightFemale   = decimal.RequireFromString("0.15")
	WeightMinor    = decimal.RequireFromString("0.05")
)

// MinorAgeLimit is the age below which a person is classified as a minor.
const MinorAgeLimit = 18

// =============================================================================
// HOUSEHOLD - Engine input
// =============================================================================

type HouseholdID string

// Household is one accepted applicant plus their dependents.
// Display fields are opaque and copied to the result as-is.
type Household struct {
	ID            HouseholdID
	ApplicantName string
	NIC           string
	AccountNumber string
	BankName      string

	DateOfBirth *time.Time // nil = unknown
	Gender      string

	Dependents []Dependent
}

// Dependent is a family member attached to a household.
type Dependent struct {
	Name        string
	DateOfBirth *time.Time
	Gender      string

	// Share is the declared percentage (0-100) of the household total.
	// nil means absent or non-numeric and counts as 0.
	Share *decimal.Decimal
}

// =============================================================================
// POOLS AND RESULTS
// =============================================================================

// CategoryPools holds the amount reserved for each bucket.
type CategoryPools struct {
	Business decimal.Decimal
	Male     decimal.Decimal
	Female   decimal.Decimal
	Minor    decimal.Decimal
}

// For returns the pool of a people category.
func (p CategoryPools) For(c Category) decimal.Decimal {
	switch c {
	case CategoryMale:
		return p.Male
	case CategoryFemale:
		return p.Female
	case CategoryMinor:
		return p.Minor
	default:
		return decimal.Zero
	}
}

// Sum returns business + male + female + minor.
func (p CategoryPools) Sum() decimal.Decimal {
	return p.Business.Add(p.Male).Add(p.Female).Add(p.Minor)
}

// DistributionResult is one household's computed payout.
// It is recomputed on every run and never persisted directly.
type DistributionResult struct {
	HouseholdID   HouseholdID
	ApplicantName string
	NIC           string
	AccountNumber string
	BankName      string

	// TotalAmount is applicant + dependents, rounded once to 2 decimals.
	TotalAmount decimal.Decimal

	// PrimaryCategory is the applicant's category. Display and sort only.
	PrimaryCategory Category
}

// Allocation is the output of a single engine run.
type Allocation struct {
	Results      []DistributionResult
	Pools        CategoryPools
	ShareTotals  map[Category]decimal.Decimal
	PeopleCounts map[Category]int

	// Total is the sum of the rounded household totals.
	Total decimal.Decimal

	// Defaults lists every input that was normalized by a default rule.
	Defaults []DefaultEvent
}

// Select returns the results for the given households, preserving order.
// An empty selection returns every result.
func (a *Allocation) Select(ids []HouseholdID) []DistributionResult {
	if len(ids) == 0 {
		return append([]DistributionResult(nil), a.Results...)
	}
	want := make(map[HouseholdID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []DistributionResult
	for _, r := range a.Results {
		if want[r.HouseholdID] {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// DEFAULT EVENTS - Inputs normalized instead of rejected
// =============================================================================

type DefaultKind string

const (
	DefaultGender         DefaultKind = "gender_defaulted"        // unrecognized gender, counted as male
	DefaultBirthDate      DefaultKind = "birth_date_unknown"      // age indeterminate, not a minor
	DefaultShareMissing   DefaultKind = "share_missing"           // absent/non-numeric share, counted as 0
	DefaultShareNegative  DefaultKind = "share_negative"          // negative share clamped to 0
	DefaultSharesOverflow DefaultKind = "dependent_shares_exceed" // dependents above 100, applicant clamped to 0
)

// Applicant is the Person value used for the primary applicant in DefaultEvent.
const Applicant = -1

type DefaultEvent struct {
	HouseholdID HouseholdID
	Person      int // Applicant, or dependent index
	Kind        DefaultKind
}

func (e DefaultEvent) PersonLabel() string {
	if e.Person == Applicant {
		return "applicant"
	}
	return "dependent"
}
