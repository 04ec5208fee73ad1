package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Attempt records the outcome of one call to the registry API. It never
// carries answer values.
type Attempt struct {
	ID        string
	SessionID string
	Kind      string // "consent" or "submission"
	Outcome   string // "accepted", "rejected", "failed"
	Error     string
	CreatedAt time.Time
}
