package submission

import "github.com/regform/regform/internal/answers"

// State is what the status page tells the visitor.
type State string

const (
	StateSubmitted       State = "submitted"
	StateFailed          State = "failed"
	StateIneligible      State = "ineligible"
	StateConsentDeclined State = "consent-declined"
	StateInProgress      State = "in-progress"
)

// StateOf derives the status page state from the flags. The submission
// outcome takes precedence, then eligibility, then consent.
func StateOf(store answers.Store) (State, error) {
	read := func(f answers.Flag) (answers.Status, error) { return answers.ReadFlag(store, f) }

	sub, err := read(answers.FlagSubmissionSuccess)
	if err != nil {
		return "", err
	}
	switch sub {
	case answers.True:
		return StateSubmitted, nil
	case answers.False:
		return StateFailed, nil
	}

	elig, err := read(answers.FlagMeetsEligibility)
	if err != nil {
		return "", err
	}
	if elig == answers.False {
		return StateIneligible, nil
	}

	consent, err := read(answers.FlagConsentGiven)
	if err != nil {
		return "", err
	}
	if consent == answers.False {
		return StateConsentDeclined, nil
	}
	return StateInProgress, nil
}
