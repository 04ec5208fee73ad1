// Package flow is the questionnaire's page-navigation state machine: the
// required-field check and per-page transition run on "continue", and the
// entry guards that keep pages reachable only in order.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/regform/regform/internal/answers"
	"github.com/regform/regform/internal/registry"
	"github.com/regform/regform/internal/schema"
	"github.com/regform/regform/internal/validate"
)

// Answer keys the transitions read.
const (
	KeyLivesInUS      = "livesInUS"
	KeyDiagnosis      = "hasQualifyingDiagnosis"
	KeySignatureDate  = "consentSignatureDate"
	signatureLayout   = "2006-01-02"
	msgRequired       = "This field is required."
	msgResign         = "Please sign and date the consent form again today."
	msgCaptcha        = "Please complete the CAPTCHA before continuing."
	msgConsentFailure = "We could not record your consent. Please try again."
)

// Registry sends the consent-page answers to the remote registry.
type Registry interface {
	SubmitConsent(ctx context.Context, req registry.Request) (registry.Outcome, error)
}

// Input is the per-request state a transition works on. Posted controls
// must already be persisted to Store.
type Input struct {
	SessionID    string
	Store        answers.Store
	CaptchaToken string
}

// Result is the outcome of a continue action. A zero Next means navigation
// was blocked: FieldID names the field to mark and focus, or Alert is set
// when the message is page-level.
type Result struct {
	Next    schema.Page
	FieldID string
	Message string
	Alert   bool
}

// Blocked reports whether the user stays on the page.
func (r Result) Blocked() bool { return r.Next == "" }

// Controller evaluates transitions.
type Controller struct {
	schemas  schema.Loader
	registry Registry
	rules    map[string]validate.Rule
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source for the same-day signature check and
// the validators.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRules replaces the default validator registry.
func WithRules(rules map[string]validate.Rule) Option {
	return func(c *Controller) { c.rules = rules }
}

// WithLogger sets the logger used for transition outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func New(schemas schema.Loader, reg Registry, opts ...Option) *Controller {
	c := &Controller{
		schemas:  schemas,
		registry: reg,
		rules:    validate.DefaultRules(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validator returns a validator over store sharing the controller's rules
// and clock.
func (c *Controller) Validator(store answers.Store) *validate.Validator {
	return validate.New(store, c.rules, validate.WithClock(c.now))
}

// Continue runs the required-field check for page and, when it passes, the
// page's transition.
func (c *Controller) Continue(ctx context.Context, page schema.Page, in Input) (Result, error) {
	s, err := c.schemas.Load(ctx, page)
	if err != nil {
		return Result{}, fmt.Errorf("loading %s schema: %w", page, err)
	}

	blocked, err := c.checkRequired(s, in.Store)
	if err != nil || blocked.FieldID != "" {
		return blocked, err
	}

	switch page {
	case schema.Screener:
		return c.fromScreener(in.Store)
	case schema.Consent:
		return c.fromConsent(ctx, s, in)
	case schema.PersonalInfo:
		return Result{Next: schema.HealthInfo}, nil
	case schema.HealthInfo:
		if err := answers.WriteFlag(in.Store, answers.FlagApplicationComplete, answers.True); err != nil {
			return Result{}, err
		}
		return Result{Next: schema.SubmissionApproval}, nil
	}
	return Result{}, fmt.Errorf("page %s has no continue action", page)
}

// checkRequired returns a blocking Result for the first required field
// without an answer, in page order. Free-text fields with a validator rule
// also block on an invalid value, except the birthdate rule, which only
// refreshes the stored adult verdict.
func (c *Controller) checkRequired(s *schema.Schema, store answers.Store) (Result, error) {
	v := c.Validator(store)
	for _, f := range s.Inputs() {
		raw, ok, err := store.Get(f.ID)
		if err != nil {
			return Result{}, err
		}
		if f.IsFreeText() {
			msg, err := v.Validate(f.ID, "", f.Required)
			if err != nil {
				return Result{}, err
			}
			if rule, _ := v.Rule(f.ID); rule.Kind == validate.Birthdate {
				msg = ""
			}
			if msg != "" {
				return Result{FieldID: f.ID, Message: msg}, nil
			}
		}
		if f.Required && !answered(f, raw, ok) {
			return Result{FieldID: f.ID, Message: msgRequired}, nil
		}
	}
	return Result{}, nil
}

func answered(f schema.Field, raw string, ok bool) bool {
	if !ok {
		return false
	}
	switch {
	case f.IsMulti():
		return len(answers.Split(raw)) > 0
	case f.IsSingleChoice():
		return f.HasOption(raw)
	case f.Kind == schema.KindAgreeCheckbox:
		return raw == "true"
	default:
		return strings.TrimSpace(raw) != ""
	}
}

func (c *Controller) fromScreener(store answers.Store) (Result, error) {
	eligible, err := Eligible(store)
	if err != nil {
		return Result{}, err
	}
	if err := answers.WriteFlag(store, answers.FlagMeetsEligibility, answers.StatusOf(eligible)); err != nil {
		return Result{}, err
	}
	if !eligible {
		if err := answers.WriteFlag(store, answers.FlagApplicationComplete, answers.True); err != nil {
			return Result{}, err
		}
		return Result{Next: schema.SubmissionState}, nil
	}
	// Drop the completion an earlier ineligible verdict recorded.
	if err := answers.WriteFlag(store, answers.FlagApplicationComplete, answers.Unknown); err != nil {
		return Result{}, err
	}
	return Result{Next: schema.Consent}, nil
}

// Eligible is the conjunction of the stored adult verdict, US residency and
// the qualifying diagnosis answer.
func Eligible(store answers.Store) (bool, error) {
	want := map[string]string{
		validate.AdultKey: "true",
		KeyLivesInUS:      "yes",
		KeyDiagnosis:      "yes",
	}
	for key, expected := range want {
		v, _, err := store.Get(key)
		if err != nil {
			return false, err
		}
		if v != expected {
			return false, nil
		}
	}
	return true, nil
}

func (c *Controller) fromConsent(ctx context.Context, s *schema.Schema, in Input) (Result, error) {
	signed, _, err := in.Store.Get(KeySignatureDate)
	if err != nil {
		return Result{}, err
	}
	if signed != c.now().UTC().Format(signatureLayout) {
		return Result{FieldID: KeySignatureDate, Message: msgResign}, nil
	}
	if strings.TrimSpace(in.CaptchaToken) == "" {
		return Result{Message: msgCaptcha, Alert: true}, nil
	}

	payload, err := Subset(in.Store, s.InputIDs())
	if err != nil {
		return Result{}, err
	}
	outcome, err := c.registry.SubmitConsent(ctx, registry.Request{
		SessionID:    in.SessionID,
		CaptchaToken: in.CaptchaToken,
		Answers:      payload,
	})
	c.logger.Info("consent submitted", "session", in.SessionID, "outcome", outcome)

	switch outcome {
	case registry.Accepted:
		if err := answers.WriteFlag(in.Store, answers.FlagConsentGiven, answers.True); err != nil {
			return Result{}, err
		}
		return Result{Next: schema.PersonalInfo}, nil
	case registry.Rejected:
		if err := answers.WriteFlag(in.Store, answers.FlagConsentGiven, answers.False); err != nil {
			return Result{}, err
		}
		return Result{Next: schema.SubmissionState}, nil
	default:
		if err != nil {
			c.logger.Warn("consent submission failed", "session", in.SessionID, "error", err)
		}
		return Result{Message: msgConsentFailure, Alert: true}, nil
	}
}

// Subset collects the stored answers for ids, skipping missing keys.
func Subset(store answers.Store, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		v, ok, err := store.Get(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = v
		}
	}
	return out, nil
}

// Guard returns the page a visitor must be sent to instead of page, or ""
// when page may be shown. Consent and later pages need eligibility: an
// unanswered screener goes to the instructions, a failed one to the status
// page. Personal and health pages also need consent.
func Guard(store answers.Store, page schema.Page) (schema.Page, error) {
	switch page {
	case schema.Consent, schema.PersonalInfo, schema.HealthInfo:
	default:
		return "", nil
	}

	eligible, err := answers.ReadFlag(store, answers.FlagMeetsEligibility)
	if err != nil {
		return "", err
	}
	switch eligible {
	case answers.Unknown:
		return schema.Instructions, nil
	case answers.False:
		return schema.SubmissionState, nil
	}

	if page == schema.Consent {
		return "", nil
	}
	consent, err := answers.ReadFlag(store, answers.FlagConsentGiven)
	if err != nil {
		return "", err
	}
	if consent != answers.True {
		return schema.Consent, nil
	}
	return "", nil
}
