// Package careers builds the careers listing from a public job board: fetch,
// group by department, merge per-location requisitions and render.
package careers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Job is one requisition as returned by the job board.
type Job struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	AbsoluteURL string       `json:"absolute_url"`
	Location    Location     `json:"location"`
	Departments []Department `json:"departments"`
	Content     string       `json:"content,omitempty"`
}

type Location struct {
	Name string `json:"name"`
}

type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type jobList struct {
	Jobs []Job `json:"jobs"`
}

// Client fetches a board's published jobs.
type Client struct {
	baseURL    string
	org        string
	httpClient *http.Client
}

// NewClient creates a job board client. timeout <= 0 uses the default.
func NewClient(baseURL, org string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		org:        org,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Jobs returns every published job with its content.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	endpoint := fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", c.baseURL, url.PathEscape(c.org))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting jobs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var list jobList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decoding jobs: %w", err)
	}
	if list.Jobs == nil {
		return []Job{}, nil
	}
	return list.Jobs, nil
}
