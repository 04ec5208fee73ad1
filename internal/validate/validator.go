package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/regform/regform/internal/answers"
)

const (
	msgRequired     = "This field is required."
	msgNumeric      = "Please enter numbers only."
	msgPhone        = "Please enter a 10-digit phone number."
	msgBirthdate    = "Please enter a valid date of birth."
	msgUnderage     = "You must be at least 18 years old to participate."
	msgYear         = "Please enter a valid year."
	msgState        = "Please enter a valid 2-letter US state code."
	birthdateLayout = "2006-01-02"
)

var numericRe = regexp.MustCompile(`^[0-9]*$`)

// Validator checks field values against a rule table. Rules read the value
// persisted in the store so a stale control cannot mask a saved answer.
type Validator struct {
	rules map[string]Rule
	store answers.Store
	now   func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source used for age and year checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a Validator over store. A nil rules map uses DefaultRules.
func New(store answers.Store, rules map[string]Rule, opts ...Option) *Validator {
	if rules == nil {
		rules = DefaultRules()
	}
	v := &Validator{rules: rules, store: store, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Rule returns the rule registered for fieldID.
func (v *Validator) Rule(fieldID string) (Rule, bool) {
	r, ok := v.rules[fieldID]
	return r, ok
}

// Validate returns a user-facing message when the field's value breaks its
// rule, or "" when it is valid. current is used only when nothing has been
// persisted for the field yet. Fields without a rule are always valid and an
// optional empty field never fails.
func (v *Validator) Validate(fieldID, current string, required bool) (string, error) {
	rule, ok := v.rules[fieldID]
	if !ok {
		return "", nil
	}

	value, stored, err := v.store.Get(fieldID)
	if err != nil {
		return "", fmt.Errorf("validating %s: %w", fieldID, err)
	}
	if !stored {
		value = current
	}
	value = strings.TrimSpace(value)

	if value == "" {
		if rule.Kind == Birthdate && rule.EligibilityKey != "" {
			if err := v.store.Delete(rule.EligibilityKey); err != nil {
				return "", fmt.Errorf("clearing %s: %w", rule.EligibilityKey, err)
			}
		}
		if required {
			return msgRequired, nil
		}
		return "", nil
	}

	switch rule.Kind {
	case NumericOnly:
		if !numericRe.MatchString(value) {
			return msgNumeric, nil
		}
	case Phone:
		if !numericRe.MatchString(value) || len(value) != rule.Digits {
			return msgPhone, nil
		}
	case Birthdate:
		return v.checkBirthdate(rule, value)
	case YearRange:
		year, err := strconv.Atoi(value)
		if err != nil {
			return msgYear, nil
		}
		if diff := v.now().UTC().Year() - year; diff < 0 || diff >= rule.MaxYearsBack {
			return msgYear, nil
		}
	case USState:
		if !rule.Codes[strings.ToUpper(value)] {
			return msgState, nil
		}
	case NonEmpty:
		// any non-empty value passes
	}
	return "", nil
}

func (v *Validator) checkBirthdate(rule Rule, value string) (string, error) {
	born, err := time.Parse(birthdateLayout, value)
	eligible := err == nil && AgeEligible(born, v.now(), rule.MinAge, rule.MaxAge)

	if rule.EligibilityKey != "" {
		if err := v.store.Set(rule.EligibilityKey, strconv.FormatBool(eligible)); err != nil {
			return "", fmt.Errorf("storing %s: %w", rule.EligibilityKey, err)
		}
	}

	switch {
	case err != nil:
		return msgBirthdate, nil
	case eligible:
		return "", nil
	case yearsBetween(born, v.now()) >= rule.MaxAge || born.After(v.now()):
		return msgBirthdate, nil
	default:
		return msgUnderage, nil
	}
}

func yearsBetween(born, now time.Time) int {
	return now.UTC().Year() - born.UTC().Year()
}

// AgeEligible applies the age band on UTC calendar fields: the year
// difference must be above minAge and below maxAge, or exactly minAge with a
// later month, or exactly minAge in the same month with a later day.
func AgeEligible(born, now time.Time, minAge, maxAge int) bool {
	born, now = born.UTC(), now.UTC()
	age := now.Year() - born.Year()
	switch {
	case age > minAge && age < maxAge:
		return true
	case age == minAge && now.Month() > born.Month():
		return true
	case age == minAge && now.Month() == born.Month() && now.Day() > born.Day():
		return true
	}
	return false
}
