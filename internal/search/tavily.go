// Package search provides web search clients used to ground report
// generation. The only implementation talks to the Tavily search API via
// plain HTTP — no additional SDK dependencies are required.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Result is a single web search hit.
type Result struct {
	// Title is the page title.
	Title string
	// URL is the page address.
	URL string
	// Content is the extract Tavily returns for the page.
	Content string
	// Score is Tavily's relevance score for the hit.
	Score float64
}

// Searcher is the interface for running a web search. Implementations must be
// safe to call from multiple goroutines.
type Searcher interface {
	// Search returns up to maxResults hits for the query.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// defaultMaxResults caps a search when the caller passes 0.
const defaultMaxResults = 5

// TavilyClient implements Searcher against the Tavily REST API.
type TavilyClient struct {
	// baseURL is the API base (e.g. "https://api.tavily.com").
	baseURL string
	// apiKey is the Tavily API key.
	apiKey string
	// maxResults caps results when the caller passes 0.
	maxResults int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// TavilyConfig holds the settings for constructing a TavilyClient.
type TavilyConfig struct {
	// BaseURL is the API base URL (default: "https://api.tavily.com").
	BaseURL string
	// APIKey is the Tavily API key.
	APIKey string
	// MaxResults caps results when Search is called with maxResults=0
	// (default: 5).
	MaxResults int
}

// NewTavilyClient constructs a TavilyClient from the given config.
func NewTavilyClient(cfg *TavilyConfig) *TavilyClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.tavily.com"
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &TavilyClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// NewTavilyFromEnv constructs a TavilyClient from TAVILY_API_KEY and
// TAVILY_MAX_RESULTS. It returns an error when the key is missing so report
// generation fails at startup rather than on the first request.
func NewTavilyFromEnv() (*TavilyClient, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("search: TAVILY_API_KEY is required for web search")
	}
	maxResults := 0
	if v := os.Getenv("TAVILY_MAX_RESULTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			maxResults = i
		}
	}
	return NewTavilyClient(&TavilyConfig{APIKey: apiKey, MaxResults: maxResults}), nil
}

// tavilySearchRequest is the JSON body sent to the Tavily /search endpoint.
type tavilySearchRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// tavilySearchResponse is the JSON body returned from the /search endpoint.
type tavilySearchResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
	Error string `json:"error,omitempty"`
}

// Search runs a Tavily web search and returns the hits in API order.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = c.maxResults
	}

	body := tavilySearchRequest{
		APIKey:     c.apiKey,
		Query:      query,
		MaxResults: maxResults,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	url := c.baseURL + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result tavilySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != "" {
			msg = result.Error
		}
		return nil, fmt.Errorf("tavily: %s", msg)
	}

	hits := make([]Result, 0, len(result.Results))
	for _, r := range result.Results {
		hits = append(hits, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		})
	}
	return hits, nil
}
