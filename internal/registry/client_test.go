package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/regform/regform/internal/storage"
)

type memAttempts struct {
	mu   sync.Mutex
	list []storage.Attempt
	err  error
}

func (m *memAttempts) SaveAttempt(a storage.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append(m.list, a)
	return m.err
}

func TestSubmitConsent_Accepted(t *testing.T) {
	var gotBody map[string]string
	var gotPath, gotCaptcha, gotAuth, gotType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCaptcha = r.Header.Get(CaptchaHeader)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, `{"success": true}`)
	}))
	defer srv.Close()

	log := &memAttempts{}
	c := NewClient(srv.URL+"/", "secret", time.Second).WithAttemptLog(log)

	outcome, err := c.SubmitConsent(context.Background(), Request{
		SessionID:    "sess-1",
		CaptchaToken: "tok-123",
		Answers:      map[string]string{"consentFullName": "Ada Lovelace"},
	})
	if err != nil {
		t.Fatalf("SubmitConsent: %v", err)
	}
	if outcome != Accepted {
		t.Errorf("outcome = %s, want accepted", outcome)
	}
	if gotPath != "/consent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotCaptcha != "tok-123" {
		t.Errorf("captcha header = %q", gotCaptcha)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("content-type = %q", gotType)
	}
	if diff := cmp.Diff(map[string]string{"consentFullName": "Ada Lovelace"}, gotBody); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}

	if len(log.list) != 1 {
		t.Fatalf("attempts recorded = %d, want 1", len(log.list))
	}
	a := log.list[0]
	if a.SessionID != "sess-1" || a.Kind != "consent" || a.Outcome != "accepted" || a.Error != "" || a.ID == "" {
		t.Errorf("attempt = %+v", a)
	}
}

func TestSubmit_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Outcome
		wantErr bool
	}{
		{"success", 200, `{"success":true}`, Accepted, false},
		{"created", 201, `{"success":true}`, Accepted, false},
		{"explicit false", 200, `{"success":false}`, Rejected, false},
		{"no signal", 200, `{"message":"received"}`, Rejected, false},
		{"malformed", 200, `not json`, Failed, true},
		{"server error", 502, `bad gateway`, Failed, true},
		{"client error", 400, `{"success":true}`, Failed, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "", time.Second)
			outcome, err := c.SubmitApplication(context.Background(), Request{Answers: map[string]string{}})
			if outcome != tt.want {
				t.Errorf("outcome = %s, want %s", outcome, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubmit_NoAuthorizationWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submission" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if h := r.Header.Get("Authorization"); h != "" {
			t.Errorf("unexpected Authorization header %q", h)
		}
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", 0).SubmitApplication(context.Background(), Request{}); err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}
}

func TestSubmit_TransportFailureIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	log := &memAttempts{}
	c := NewClient(url, "", time.Second).WithAttemptLog(log)
	outcome, err := c.SubmitApplication(context.Background(), Request{SessionID: "s"})
	if outcome != Failed || err == nil {
		t.Fatalf("outcome = %s, err = %v; want failed with error", outcome, err)
	}
	if len(log.list) != 1 || log.list[0].Outcome != "failed" || log.list[0].Error == "" {
		t.Errorf("attempts = %+v", log.list)
	}
}

func TestSubmit_TimeoutFromConfig(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, "", 50*time.Millisecond)
	_, err := c.SubmitConsent(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSubmit_AttemptLogErrorDoesNotChangeOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	log := &memAttempts{err: errors.New("disk full")}
	outcome, err := NewClient(srv.URL, "", time.Second).WithAttemptLog(log).
		SubmitConsent(context.Background(), Request{})
	if err != nil || outcome != Accepted {
		t.Errorf("outcome = %s, err = %v", outcome, err)
	}
}

func TestSubmit_ErrorIncludesStatusBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "captcha rejected", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).SubmitConsent(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "captcha rejected") {
		t.Errorf("err = %v", err)
	}
}
