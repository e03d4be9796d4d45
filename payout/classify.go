package payout

import (
	"strings"
	"time"
)

// =============================================================================
// CATEGORY CLASSIFIER
// =============================================================================

// Classify assigns a person to exactly one category as of now.
//
// Age takes precedence over gender: anyone younger than MinorAgeLimit is a
// minor. Otherwise "male"/"m" and "female"/"f" (any case) are recognized and
// everything else, including an empty gender, counts as male.
// A nil birth date means the age is unknown and the person is not a minor.
func Classify(dob *time.Time, gender string, now time.Time) Category {
	c, _ := classify(dob, gender, now)
	return c
}

// classify also reports which default rules fired.
func classify(dob *time.Time, gender string, now time.Time) (Category, []DefaultKind) {
	var defaults []DefaultKind
	if dob == nil {
		defaults = append(defaults, DefaultBirthDate)
	} else if AgeAt(*dob, now) < MinorAgeLimit {
		return CategoryMinor, nil
	}

	switch strings.ToLower(gender) {
	case "male", "m":
		return CategoryMale, defaults
	case "female", "f":
		return CategoryFemale, defaults
	}
	return CategoryMale, append(defaults, DefaultGender)
}
