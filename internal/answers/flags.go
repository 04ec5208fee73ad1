package answers

import "fmt"

// Flag is a reserved Answer Store key tracking cross-page progress.
type Flag string

const (
	FlagMeetsEligibility    Flag = "FLAG-meetsEligibilityCriteria"
	FlagConsentGiven        Flag = "FLAG-isConsentGiven"
	FlagApplicationComplete Flag = "FLAG-isApplicationComplete"
	FlagSubmissionSuccess   Flag = "FLAG-submissionSuccess"
)

// Flags lists every reserved key.
var Flags = []Flag{FlagMeetsEligibility, FlagConsentGiven, FlagApplicationComplete, FlagSubmissionSuccess}

// IsFlag reports whether key is reserved.
func IsFlag(key string) bool {
	for _, f := range Flags {
		if string(f) == key {
			return true
		}
	}
	return false
}

// Status is the tri-state value of a flag. The zero value is Unknown, which
// is stored as an absent key.
type Status int

const (
	Unknown Status = iota
	True
	False
)

// StatusOf converts a bool to True or False.
func StatusOf(b bool) Status {
	if b {
		return True
	}
	return False
}

func (s Status) String() string {
	switch s {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// ParseStatus decodes a stored value. Anything other than "true" or "false"
// is Unknown.
func ParseStatus(raw string, ok bool) Status {
	if !ok {
		return Unknown
	}
	switch raw {
	case "true":
		return True
	case "false":
		return False
	default:
		return Unknown
	}
}

// ReadFlag returns the current status of f.
func ReadFlag(s Store, f Flag) (Status, error) {
	raw, ok, err := s.Get(string(f))
	if err != nil {
		return Unknown, fmt.Errorf("reading flag %s: %w", f, err)
	}
	return ParseStatus(raw, ok), nil
}

// WriteFlag stores st under f. Writing Unknown removes the key.
func WriteFlag(s Store, f Flag, st Status) error {
	var err error
	if st == Unknown {
		err = s.Delete(string(f))
	} else {
		err = s.Set(string(f), st.String())
	}
	if err != nil {
		return fmt.Errorf("writing flag %s: %w", f, err)
	}
	return nil
}
