package submission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/registry"
)

type fakeRegistry struct {
	outcome registry.Outcome
	err     error
	calls   []registry.Request
}

func (f *fakeRegistry) SubmitApplication(_ context.Context, req registry.Request) (registry.Outcome, error) {
	f.calls = append(f.calls, req)
	return f.outcome, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyStore() *answers.Memory {
	s := answers.NewMemory(map[string]string{"firstName": "Ada", "symptoms": "fever,rash"})
	for _, f := range required {
		answers.WriteFlag(s, f, answers.True)
	}
	return s
}

func TestSubmit_SuccessClearsStore(t *testing.T) {
	store := readyStore()
	reg := &fakeRegistry{outcome: registry.Accepted}

	res, err := NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, "tok")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res != Succeeded {
		t.Errorf("result = %s, want succeeded", res)
	}

	all, _ := store.All()
	want := map[string]string{string(answers.FlagSubmissionSuccess): "true"}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("store after success (-want +got):\n%s", diff)
	}

	if len(reg.calls) != 1 {
		t.Fatalf("calls = %d", len(reg.calls))
	}
	sent := reg.calls[0].Answers
	if sent["firstName"] != "Ada" || sent["symptoms"] != "fever,rash" {
		t.Errorf("payload = %v", sent)
	}
	if reg.calls[0].CaptchaToken != "tok" {
		t.Errorf("token = %q", reg.calls[0].CaptchaToken)
	}
}

func TestSubmit_AnyFlagNotTrueMakesNoCall(t *testing.T) {
	for _, f := range required {
		for _, st := range []answers.Status{answers.False, answers.Unknown} {
			store := readyStore()
			answers.WriteFlag(store, f, st)
			reg := &fakeRegistry{outcome: registry.Accepted}

			res, err := NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, "tok")
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if res != NotReady {
				t.Errorf("%s=%s: result = %s, want not-ready", f, st, res)
			}
			if len(reg.calls) != 0 {
				t.Errorf("%s=%s: registry called", f, st)
			}
		}
	}
}

func TestSubmit_MissingCaptchaAbortsSilently(t *testing.T) {
	store := readyStore()
	store.Set(string(answers.FlagSubmissionSuccess), "false")
	before, _ := store.All()
	reg := &fakeRegistry{outcome: registry.Accepted}

	res, err := NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, " ")
	if err != nil || res != Aborted {
		t.Fatalf("result = %s, err = %v", res, err)
	}
	after, _ := store.All()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("store changed on abort (-before +after):\n%s", diff)
	}
	if len(reg.calls) != 0 {
		t.Error("registry called without a token")
	}
}

func TestSubmit_FailureKeepsAnswers(t *testing.T) {
	for _, outcome := range []registry.Outcome{registry.Failed, registry.Rejected} {
		store := readyStore()
		reg := &fakeRegistry{outcome: outcome, err: errors.New("status 500")}

		res, err := NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, "tok")
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if res != Failed {
			t.Errorf("%s: result = %s", outcome, res)
		}
		if v, _, _ := store.Get("firstName"); v != "Ada" {
			t.Errorf("%s: answers lost", outcome)
		}
		if st, _ := answers.ReadFlag(store, answers.FlagSubmissionSuccess); st != answers.False {
			t.Errorf("%s: submissionSuccess = %s", outcome, st)
		}
	}
}

func TestSubmit_PriorOutcomeClearedBeforeAttempt(t *testing.T) {
	store := readyStore()
	store.Set(string(answers.FlagSubmissionSuccess), "false")

	var sawFlag bool
	reg := &inspectingRegistry{fn: func(req registry.Request) {
		_, sawFlag = req.Answers[string(answers.FlagSubmissionSuccess)]
	}}
	NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, "tok")
	if sawFlag {
		t.Error("previous outcome flag was sent with the new attempt")
	}
}

// clearFailingStore refuses to clear, so the outcome must still be recorded.
type clearFailingStore struct {
	*answers.Memory
}

func (clearFailingStore) Clear() error { return errors.New("disk full") }

func TestSubmit_ClearFailureRecordsFailedOutcome(t *testing.T) {
	store := clearFailingStore{readyStore()}
	store.Set(string(answers.FlagSubmissionSuccess), "true")
	reg := &fakeRegistry{outcome: registry.Accepted}

	res, err := NewGate(reg, quietLogger()).Submit(context.Background(), "sess", store, "tok")
	if err == nil {
		t.Fatal("expected the clear error to be returned")
	}
	if res != Failed {
		t.Errorf("result = %s, want failed", res)
	}
	if st, _ := answers.ReadFlag(store, answers.FlagSubmissionSuccess); st != answers.False {
		t.Errorf("submissionSuccess = %s, want false", st)
	}
	if got, _ := StateOf(store); got != StateFailed {
		t.Errorf("StateOf = %s, want %s", got, StateFailed)
	}
}

type inspectingRegistry struct {
	fn func(registry.Request)
}

func (r *inspectingRegistry) SubmitApplication(_ context.Context, req registry.Request) (registry.Outcome, error) {
	r.fn(req)
	return registry.Accepted, nil
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name  string
		flags map[answers.Flag]string
		want  State
	}{
		{"fresh", nil, StateInProgress},
		{"submitted", map[answers.Flag]string{answers.FlagSubmissionSuccess: "true"}, StateSubmitted},
		{"failed", map[answers.Flag]string{answers.FlagSubmissionSuccess: "false", answers.FlagMeetsEligibility: "true"}, StateFailed},
		{"ineligible", map[answers.Flag]string{answers.FlagMeetsEligibility: "false"}, StateIneligible},
		{"declined", map[answers.Flag]string{answers.FlagMeetsEligibility: "true", answers.FlagConsentGiven: "false"}, StateConsentDeclined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := answers.NewMemory(nil)
			for f, v := range tt.flags {
				store.Set(string(f), v)
			}
			got, err := StateOf(store)
			if err != nil {
				t.Fatalf("StateOf: %v", err)
			}
			if got != tt.want {
				t.Errorf("StateOf = %s, want %s", got, tt.want)
			}
		})
	}
}
