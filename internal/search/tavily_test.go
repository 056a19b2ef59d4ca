package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTavilySearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req tavilySearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.APIKey != "tvly-test" {
			t.Errorf("api_key = %q", req.APIKey)
		}
		if req.MaxResults != 3 {
			t.Errorf("max_results = %d, want 3", req.MaxResults)
		}
		w.Write([]byte(`{"results":[
			{"title":"Bitcoin ETF inflows","url":"https://example.com/etf","content":"Spot ETF inflows rose.","score":0.93},
			{"title":"Halving explained","url":"https://example.com/halving","content":"Block subsidy halves.","score":0.88}
		]}`))
	}))
	defer srv.Close()

	c := NewTavilyClient(&TavilyConfig{BaseURL: srv.URL, APIKey: "tvly-test"})
	hits, err := c.Search(context.Background(), "bitcoin news", 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("want 2 hits, got %d", len(hits))
	}
	if hits[0].Title != "Bitcoin ETF inflows" || hits[0].URL != "https://example.com/etf" {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
}

func TestTavilySearch_DefaultMaxResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req tavilySearchRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.MaxResults != 5 {
			t.Errorf("max_results = %d, want default 5", req.MaxResults)
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	c := NewTavilyClient(&TavilyConfig{BaseURL: srv.URL, APIKey: "tvly-test"})
	if _, err := c.Search(context.Background(), "q", 0); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
}

func TestTavilySearch_APIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewTavilyClient(&TavilyConfig{BaseURL: srv.URL, APIKey: "bad"})
	_, err := c.Search(context.Background(), "q", 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error should carry the API message, got %q", err.Error())
	}
}

func TestNewTavilyFromEnv_MissingKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	if _, err := NewTavilyFromEnv(); err == nil {
		t.Fatal("expected error when TAVILY_API_KEY is unset")
	}
}
