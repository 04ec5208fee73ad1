// Package validate checks individual questionnaire answers against a fixed
// table of per-field rules.
package validate

import "strings"

// RuleKind tags the variant held by a Rule.
type RuleKind int

const (
	NumericOnly RuleKind = iota + 1
	Phone
	Birthdate
	YearRange
	USState
	NonEmpty
)

func (k RuleKind) String() string {
	switch k {
	case NumericOnly:
		return "numeric"
	case Phone:
		return "phone"
	case Birthdate:
		return "birthdate"
	case YearRange:
		return "year-range"
	case USState:
		return "us-state"
	case NonEmpty:
		return "non-empty"
	}
	return "unknown"
}

// Rule is one validator variant together with its parameters. Only the
// fields relevant to Kind are read.
type Rule struct {
	Kind RuleKind

	// Phone
	Digits int

	// Birthdate: eligible when the age is above MinAge (with the month/day
	// tie-break at exactly MinAge) and below MaxAge. The verdict is stored
	// under EligibilityKey.
	MinAge         int
	MaxAge         int
	EligibilityKey string

	// YearRange: currentYear - year must fall in [0, MaxYearsBack).
	MaxYearsBack int

	// USState
	Codes map[string]bool
}

// AdultKey is the answer key the birthdate rule writes its verdict to.
const AdultKey = "isAdult"

var usStateCodes = codeSet(
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
	"DC", "AS", "GU", "MP", "PR", "VI", "UM",
)

func codeSet(codes ...string) map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[strings.ToUpper(c)] = true
	}
	return m
}

// DefaultRules is the registry of the questionnaire's validated fields.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"dateOfBirth":     {Kind: Birthdate, MinAge: 18, MaxAge: 110, EligibilityKey: AdultKey},
		"phoneNumber":     {Kind: Phone, Digits: 10},
		"zipCode":         {Kind: NumericOnly},
		"diagnosisYear":   {Kind: YearRange, MaxYearsBack: 110},
		"state":           {Kind: USState, Codes: usStateCodes},
		"firstName":       {Kind: NonEmpty},
		"lastName":        {Kind: NonEmpty},
		"consentFullName": {Kind: NonEmpty},
		"streetAddress":   {Kind: NonEmpty},
		"city":            {Kind: NonEmpty},
	}
}
