// Package submission is the final submission gate: it checks the progress
// flags, posts the whole Answer Store to the registry and records exactly
// one outcome flag per attempt.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/registry"
)

// Registry sends the full answer set.
type Registry interface {
	SubmitApplication(ctx context.Context, req registry.Request) (registry.Outcome, error)
}

// Result describes what the gate did.
type Result int

const (
	// Aborted: no CAPTCHA token; nothing changed.
	Aborted Result = iota
	// NotReady: a progress flag is not true; no call was made.
	NotReady
	// Succeeded: the registry accepted the answers and the store was cleared.
	Succeeded
	// Failed: the registry call failed; answers are kept for a retry.
	Failed
)

func (r Result) String() string {
	switch r {
	case Aborted:
		return "aborted"
	case NotReady:
		return "not-ready"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// required lists the flags that must all be true before submitting.
var required = []answers.Flag{
	answers.FlagMeetsEligibility,
	answers.FlagApplicationComplete,
	answers.FlagConsentGiven,
}

type Gate struct {
	registry Registry
	logger   *slog.Logger
}

func NewGate(reg Registry, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{registry: reg, logger: logger}
}

// Ready reports whether every required flag is true.
func Ready(store answers.Store) (bool, error) {
	for _, f := range required {
		st, err := answers.ReadFlag(store, f)
		if err != nil {
			return false, err
		}
		if st != answers.True {
			return false, nil
		}
	}
	return true, nil
}

// Submit runs one submission attempt for the session's store.
func (g *Gate) Submit(ctx context.Context, sessionID string, store answers.Store, captchaToken string) (Result, error) {
	if strings.TrimSpace(captchaToken) == "" {
		return Aborted, nil
	}

	ready, err := Ready(store)
	if err != nil {
		return NotReady, err
	}
	if !ready {
		return NotReady, nil
	}

	if err := answers.WriteFlag(store, answers.FlagSubmissionSuccess, answers.Unknown); err != nil {
		return Failed, err
	}
	payload, err := store.All()
	if err != nil {
		return Failed, fmt.Errorf("collecting answers: %w", err)
	}

	outcome, callErr := g.registry.SubmitApplication(ctx, registry.Request{
		SessionID:    sessionID,
		CaptchaToken: captchaToken,
		Answers:      payload,
	})
	if outcome != registry.Accepted {
		g.logger.Warn("submission failed", "session", sessionID, "outcome", outcome, "error", callErr)
		if err := answers.WriteFlag(store, answers.FlagSubmissionSuccess, answers.False); err != nil {
			return Failed, err
		}
		return Failed, nil
	}

	if err := store.Clear(); err != nil {
		g.logger.Error("clearing answers after submission", "session", sessionID, "error", err)
		err = fmt.Errorf("clearing answers after submission: %w", err)
		if ferr := answers.WriteFlag(store, answers.FlagSubmissionSuccess, answers.False); ferr != nil {
			err = errors.Join(err, ferr)
		}
		return Failed, err
	}
	if err := answers.WriteFlag(store, answers.FlagSubmissionSuccess, answers.True); err != nil {
		return Succeeded, err
	}
	g.logger.Info("submission accepted", "session", sessionID)
	return Succeeded, nil
}
