// Package janitor purges the answers of abandoned questionnaire sessions.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const defaultBatch = 100

// SessionStore abstracts the retention queries. Implemented by
// storage.Store.
type SessionStore interface {
	IdleSessions(cutoff time.Time, limit int) ([]string, error)
	ClearAnswers(sessionID string) error
}

// Worker removes every answer of sessions idle for longer than the
// retention period.
type Worker struct {
	store     SessionStore
	retention time.Duration
	poll      time.Duration
	batch     int
	now       func() time.Time
	logger    *slog.Logger
}

// NewWorker creates a Worker. If pollInterval is <= 0, it defaults to one
// hour.
func NewWorker(store SessionStore, retention, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	return &Worker{
		store:     store,
		retention: retention,
		poll:      pollInterval,
		batch:     defaultBatch,
		now:       time.Now,
		logger:    slog.Default(),
	}
}

// Run purges until ctx is cancelled. A full batch is followed immediately by
// another pass; otherwise the worker sleeps for the poll interval.
func (w *Worker) Run(ctx context.Context) {
	if w.retention <= 0 {
		w.logger.Info("session retention disabled")
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}

		more, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("janitor iteration failed", "error", err)
		}
		if more {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce purges one batch of idle sessions. It returns true when the batch
// was full and more sessions may be waiting.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	cutoff := w.now().UTC().Add(-w.retention)
	ids, err := w.store.IdleSessions(cutoff, w.batch)
	if err != nil {
		return false, fmt.Errorf("listing idle sessions: %w", err)
	}

	purged := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err := w.store.ClearAnswers(id); err != nil {
			w.logger.Warn("failed to purge session", "session", id, "error", err)
			continue
		}
		purged++
	}
	if purged > 0 {
		w.logger.Info("purged idle sessions", "count", purged, "cutoff", cutoff.Format(time.RFC3339))
	}
	return purged > 0 && len(ids) == w.batch, nil
}
