package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Result is one entry returned by the search API.
type Result struct {
	URL     string
	Title   string
	Snippet string
}

// Client is the narrow contract to the external search engine. Implementations
// may fail per query with rate-limit or quota errors; the searcher treats
// those as skippable.
type Client interface {
	Search(ctx context.Context, query string, num, start int) ([]Result, error)
}

// SerpClient queries a SerpAPI-compatible Google search endpoint.
type SerpClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSerpClient creates a search client for the given endpoint.
func NewSerpClient(baseURL, apiKey string, httpClient *http.Client) *SerpClient {
	return &SerpClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// serpResponse mirrors the fields of the SerpAPI response we consume.
type serpResponse struct {
	OrganicResults []struct {
		Link    string `json:"link"`
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

// Search runs one paged query against the engine.
func (c *SerpClient) Search(ctx context.Context, query string, num, start int) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(num))
	params.Set("start", strconv.Itoa(start))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var sr serpResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("search API error: %s", sr.Error)
	}

	results := make([]Result, 0, len(sr.OrganicResults))
	for _, r := range sr.OrganicResults {
		results = append(results, Result{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	return results, nil
}
