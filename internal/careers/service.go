package careers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Fetcher returns the board's jobs. Implemented by *Client.
type Fetcher interface {
	Jobs(ctx context.Context) ([]Job, error)
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Service serves the grouped listing, caching it for a TTL. A failed fetch
// yields an empty listing and is not cached. Concurrent misses share one
// fetch, and the cache lock is never held while it runs.
type Service struct {
	fetcher  Fetcher
	priority []string
	clock    Clock
	ttl      time.Duration
	logger   *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	cached   *Listing
	cachedAt time.Time
	gen      uint64
}

// NewService creates a Service. A nil priority uses DefaultPriority.
func NewService(f Fetcher, priority []string, ttl time.Duration) *Service {
	return NewServiceWithClock(f, priority, ttl, realClock{})
}

// NewServiceWithClock creates a Service with a custom clock (for testing).
func NewServiceWithClock(f Fetcher, priority []string, ttl time.Duration, clock Clock) *Service {
	if priority == nil {
		priority = DefaultPriority
	}
	return &Service{
		fetcher:  f,
		priority: priority,
		clock:    clock,
		ttl:      ttl,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger used for fetch failures.
func (s *Service) WithLogger(l *slog.Logger) *Service {
	s.logger = l
	return s
}

func (s *Service) fresh() bool {
	return s.cached != nil && s.clock.Now().Before(s.cachedAt.Add(s.ttl))
}

func (s *Service) cachedListing() (Listing, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fresh() {
		return *s.cached, s.gen, true
	}
	return Listing{}, s.gen, false
}

// Listing returns the current listing. The fetch outlives a cancelled
// caller so the other callers waiting on it still get a result.
func (s *Service) Listing(ctx context.Context) Listing {
	if l, _, ok := s.cachedListing(); ok {
		return l
	}

	v, _, _ := s.group.Do("listing", func() (any, error) {
		l, gen, ok := s.cachedListing()
		if ok {
			return l, nil
		}

		jobs, err := s.fetcher.Jobs(context.WithoutCancel(ctx))
		if err != nil {
			s.logger.Warn("careers fetch failed", "error", err)
			return Listing{}, nil
		}
		l = Build(jobs, s.priority)

		s.mu.Lock()
		if s.gen == gen {
			s.cached = &l
			s.cachedAt = s.clock.Now()
		}
		s.mu.Unlock()
		return l, nil
	})
	return v.(Listing)
}

// Invalidate drops the cached listing. A fetch already in flight is not
// cached when it completes.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.gen++
	s.group.Forget("listing")
}
