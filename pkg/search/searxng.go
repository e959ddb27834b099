// Package search provides web search backends.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ncolesummers/deep-research-agent/pkg/domain"
)

// SearXNGClient implements domain.SearchClient against a SearXNG instance's
// JSON API.
type SearXNGClient struct {
	baseURL    string
	httpClient *http.Client
	defaults   domain.SearchOptions
}

type searxngResponse struct {
	Results []struct {
		URL           string  `json:"url"`
		Title         string  `json:"title"`
		Content       string  `json:"content"`
		Engine        string  `json:"engine"`
		Score         float64 `json:"score"`
		PublishedDate *string `json:"publishedDate"`
	} `json:"results"`
}

// NewSearXNGClient creates a client. defaults fill any option left zero in a
// Search call.
func NewSearXNGClient(baseURL string, timeout time.Duration, defaults domain.SearchOptions) *SearXNGClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SearXNGClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		defaults:   defaults,
	}
}

// Search performs a web search
func (c *SearXNGClient) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	if opts.MaxResults == 0 {
		opts.MaxResults = c.defaults.MaxResults
	}
	if opts.Language == "" {
		opts.Language = c.defaults.Language
	}
	if opts.TimeRange == "" {
		opts.TimeRange = c.defaults.TimeRange
	}
	opts.SafeSearch = opts.SafeSearch || c.defaults.SafeSearch

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if opts.TimeRange != "" {
		params.Set("time_range", opts.TimeRange)
	}
	if opts.SafeSearch {
		params.Set("safesearch", "1")
	} else {
		params.Set("safesearch", "0")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("searxng returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		result := domain.SearchResult{
			Title:   strings.TrimSpace(r.Title),
			URL:     r.URL,
			Snippet: strings.TrimSpace(r.Content),
			Engine:  r.Engine,
			Score:   r.Score,
		}
		if r.PublishedDate != nil {
			result.PublishedAt = *r.PublishedDate
		}
		results = append(results, result)
		if opts.MaxResults > 0 && len(results) >= opts.MaxResults {
			break
		}
	}
	return results, nil
}
