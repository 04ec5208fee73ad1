package schema

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

//go:embed data/*.json
var embedded embed.FS

// Embedded returns the built-in page schemas rooted so that "consent.json"
// resolves directly.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err)
	}
	return sub
}

// Loader fetches the schema of a form page.
type Loader interface {
	Load(ctx context.Context, page Page) (*Schema, error)
}

// FSLoader reads "{page}.json" files from a filesystem.
type FSLoader struct {
	fsys fs.FS
}

func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

func (l *FSLoader) Load(_ context.Context, page Page) (*Schema, error) {
	data, err := fs.ReadFile(l.fsys, string(page)+".json")
	if err != nil {
		return nil, fmt.Errorf("reading %s schema: %w", page, err)
	}
	return Parse(page, data)
}

const maxSchemaSize = 1 << 20

// HTTPLoader fetches schemas from "{baseURL}/data/{page}.json".
type HTTPLoader struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPLoader(baseURL string, client *http.Client) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPLoader{baseURL: strings.TrimRight(baseURL, "/"), httpClient: client}
}

func (l *HTTPLoader) Load(ctx context.Context, page Page) (*Schema, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+page.SchemaPath(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s schema: %w", page, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s schema: unexpected status %d", page, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSchemaSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s schema: %w", page, err)
	}
	return Parse(page, data)
}

// Cache memoizes schemas from an underlying Loader. Schemas are immutable
// once loaded.
type Cache struct {
	loader Loader

	mu      sync.RWMutex
	schemas map[Page]*Schema
}

func NewCache(l Loader) *Cache {
	return &Cache{loader: l, schemas: make(map[Page]*Schema)}
}

func (c *Cache) Load(ctx context.Context, page Page) (*Schema, error) {
	c.mu.RLock()
	s, ok := c.schemas[page]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := c.loader.Load(ctx, page)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.schemas[page]; ok {
		return existing, nil
	}
	c.schemas[page] = s
	return s, nil
}

// Preload loads every form page concurrently so malformed schemas surface at
// startup rather than on first visit.
func (c *Cache) Preload(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, page := range FormPages {
		g.Go(func() error {
			if _, err := c.Load(gCtx, page); err != nil {
				return fmt.Errorf("preloading %s: %w", page, err)
			}
			return nil
		})
	}
	return g.Wait()
}
