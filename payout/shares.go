package payout

import "github.com/shopspring/decimal"

// =============================================================================
// SHARE RESOLVER
// =============================================================================

var hundred = decimal.NewFromInt(100)

// HouseholdShares is each person's normalized percentage of the household.
type HouseholdShares struct {
	Applicant  decimal.Decimal
	Dependents map[int]decimal.Decimal // keyed by dependent index
}

// ResolveShares computes the applicant and dependent shares of a household.
//
// Dependents keep their declared share clamped to >= 0 (absent counts as 0).
// The applicant gets the remainder max(0, 100 - sum), or 100 when there are
// no dependents at all.
func ResolveShares(h Household) HouseholdShares {
	s, _ := resolveShares(h)
	return s
}

func resolveShares(h Household) (HouseholdShares, []DefaultEvent) {
	var defaults []DefaultEvent
	shares := HouseholdShares{
		Applicant:  hundred,
		Dependents: make(map[int]decimal.Decimal, len(h.Dependents)),
	}
	if len(h.Dependents) == 0 {
		return shares, nil
	}

	sum := decimal.Zero
	for i, d := range h.Dependents {
		share := decimal.Zero
		switch {
		case d.Share == nil:
			defaults = append(defaults, DefaultEvent{HouseholdID: h.ID, Person: i, Kind: DefaultShareMissing})
		case d.Share.IsNegative():
			defaults = append(defaults, DefaultEvent{HouseholdID: h.ID, Person: i, Kind: DefaultShareNegative})
		default:
			share = *d.Share
		}
		shares.Dependents[i] = share
		sum = sum.Add(share)
	}

	if sum.GreaterThan(hundred) {
		defaults = append(defaults, DefaultEvent{HouseholdID: h.ID, Person: Applicant, Kind: DefaultSharesOverflow})
		shares.Applicant = decimal.Zero
	} else {
		shares.Applicant = hundred.Sub(sum)
	}
	return shares, defaults
}
