package janitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/regform/regform/internal/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func quietWorker(store SessionStore, retention time.Duration, now time.Time) *Worker {
	w := NewWorker(store, retention, 10*time.Millisecond)
	w.now = func() time.Time { return now }
	w.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return w
}

func TestRunOnce_PurgesOnlyIdleSessions(t *testing.T) {
	store := openTestStore(t)
	store.SetAnswer("s1", "firstName", "Ada")
	store.SetAnswer("s1", "FLAG-isConsentGiven", "true")
	store.SetAnswer("s2", "firstName", "Grace")

	// Everything was written "now"; a clock a day ahead with a one-hour
	// retention makes both idle, a clock at the write time makes neither.
	w := quietWorker(store, time.Hour, time.Now())
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if all, _ := store.AllAnswers("s1"); len(all) != 2 {
		t.Errorf("fresh data purged: %v", all)
	}

	w = quietWorker(store, time.Hour, time.Now().Add(24*time.Hour))
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	for _, id := range []string{"s1", "s2"} {
		if all, _ := store.AllAnswers(id); len(all) != 0 {
			t.Errorf("session %s not purged: %v", id, all)
		}
	}
}

type fakeStore struct {
	mu      sync.Mutex
	idle    []string
	cleared []string
	failOn  string
	listErr error
}

func (f *fakeStore) IdleSessions(_ time.Time, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	n := min(limit, len(f.idle))
	out := append([]string(nil), f.idle[:n]...)
	return out, nil
}

func (f *fakeStore) ClearAnswers(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id == f.failOn {
		return errors.New("locked")
	}
	f.cleared = append(f.cleared, id)
	for i, s := range f.idle {
		if s == id {
			f.idle = append(f.idle[:i], f.idle[i+1:]...)
			break
		}
	}
	return nil
}

func TestRunOnce_FullBatchReportsMore(t *testing.T) {
	f := &fakeStore{}
	for i := range 5 {
		f.idle = append(f.idle, fmt.Sprintf("s%d", i))
	}
	w := quietWorker(f, time.Hour, time.Now())
	w.batch = 2

	more, err := w.RunOnce(context.Background())
	if err != nil || !more {
		t.Fatalf("first pass: more=%v err=%v", more, err)
	}
	w.RunOnce(context.Background())
	more, _ = w.RunOnce(context.Background())
	if more {
		t.Error("partial batch should not report more")
	}
	if len(f.cleared) != 5 {
		t.Errorf("cleared = %v", f.cleared)
	}
}

func TestRunOnce_ClearFailureContinues(t *testing.T) {
	f := &fakeStore{idle: []string{"a", "b", "c"}, failOn: "b"}
	w := quietWorker(f, time.Hour, time.Now())
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(f.cleared) != 2 || f.cleared[0] != "a" || f.cleared[1] != "c" {
		t.Errorf("cleared = %v", f.cleared)
	}
}

func TestRunOnce_ListError(t *testing.T) {
	f := &fakeStore{listErr: errors.New("db closed")}
	if _, err := quietWorker(f, time.Hour, time.Now()).RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := &fakeStore{idle: []string{"a"}}
	w := quietWorker(f, time.Hour, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		f.mu.Lock()
		n := len(f.cleared)
		f.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("session was not purged")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_DisabledRetentionReturns(t *testing.T) {
	w := quietWorker(&fakeStore{idle: []string{"a"}}, 0, time.Now())
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when retention is disabled")
	}
}
