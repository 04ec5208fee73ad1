// Package registry posts questionnaire answers to the remote patient
// registry API.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/regform/regform/internal/storage"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512

	// CaptchaHeader carries the CAPTCHA response token.
	CaptchaHeader = "X-Captcha-Token"
)

// Kind is the registry endpoint an attempt targets.
type Kind string

const (
	KindConsent    Kind = "consent"
	KindSubmission Kind = "submission"
)

// Outcome is the reduced result of one registry call.
type Outcome string

const (
	// Accepted: 2xx with a success signal.
	Accepted Outcome = "accepted"
	// Rejected: a well-formed 2xx response without a success signal.
	Rejected Outcome = "rejected"
	// Failed: transport error, non-2xx status, or a malformed body.
	Failed Outcome = "failed"
)

// Request is one submission: the answers to send and the CAPTCHA token
// authorizing it.
type Request struct {
	SessionID    string
	CaptchaToken string
	Answers      map[string]string
}

type response struct {
	Success *bool  `json:"success"`
	Message string `json:"message,omitempty"`
}

// AttemptLog records the outcome of every call. Implemented by
// *storage.Store.
type AttemptLog interface {
	SaveAttempt(a storage.Attempt) error
}

// Client talks to the registry API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	attempts   AttemptLog
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates a registry client for the given endpoint. apiKey may be
// empty; timeout <= 0 uses the default.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
}

// WithAttemptLog makes the client record every call.
func (c *Client) WithAttemptLog(l AttemptLog) *Client {
	c.attempts = l
	return c
}

// WithLogger sets the client's logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// SubmitConsent posts the consent-page answers.
func (c *Client) SubmitConsent(ctx context.Context, req Request) (Outcome, error) {
	return c.submit(ctx, KindConsent, req)
}

// SubmitApplication posts the full answer set.
func (c *Client) SubmitApplication(ctx context.Context, req Request) (Outcome, error) {
	return c.submit(ctx, KindSubmission, req)
}

func (c *Client) submit(ctx context.Context, kind Kind, req Request) (Outcome, error) {
	outcome, err := c.post(ctx, kind, req)
	c.record(kind, req.SessionID, outcome, err)
	return outcome, err
}

func (c *Client) post(ctx context.Context, kind Kind, req Request) (Outcome, error) {
	body, err := json.Marshal(req.Answers)
	if err != nil {
		return Failed, fmt.Errorf("marshaling %s answers: %w", kind, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+string(kind), bytes.NewReader(body))
	if err != nil {
		return Failed, fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(httpReq, req.CaptchaToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Failed, fmt.Errorf("posting %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Failed, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Failed, fmt.Errorf("decoding %s response: %w", kind, err)
	}
	if r.Success == nil || !*r.Success {
		return Rejected, nil
	}
	return Accepted, nil
}

func (c *Client) setHeaders(req *http.Request, captcha string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CaptchaHeader, captcha)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *Client) record(kind Kind, sessionID string, outcome Outcome, callErr error) {
	if c.attempts == nil {
		return
	}
	a := storage.Attempt{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Kind:      string(kind),
		Outcome:   string(outcome),
		CreatedAt: c.now().UTC(),
	}
	if callErr != nil {
		a.Error = callErr.Error()
	}
	if err := c.attempts.SaveAttempt(a); err != nil {
		c.logger.Warn("failed to record registry attempt", "kind", kind, "error", err)
	}
}
