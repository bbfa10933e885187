package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smallnest/multiagent/config"
)

// ErrMissingBraveKey is returned when no Brave Search API key is configured.
var ErrMissingBraveKey = errors.New("BRAVE_API_KEY not set")

// BraveSearch is a tool that uses the Brave Search API to search the web.
type BraveSearch struct {
	APIKey  string
	BaseURL string
	Count   int
	Country string
	Lang    string

	client *resty.Client
}

type BraveOption func(*BraveSearch)

// WithBraveBaseURL sets the base URL for the Brave Search API.
func WithBraveBaseURL(baseURL string) BraveOption {
	return func(b *BraveSearch) {
		b.BaseURL = baseURL
	}
}

// WithBraveCount sets the number of results to return (1-20).
func WithBraveCount(count int) BraveOption {
	return func(b *BraveSearch) {
		b.Count = min(max(count, 1), 20)
	}
}

// WithBraveCountry sets the country code for search results (e.g., "US", "CN").
func WithBraveCountry(country string) BraveOption {
	return func(b *BraveSearch) {
		b.Country = country
	}
}

// WithBraveLang sets the language code for search results (e.g., "en", "zh").
func WithBraveLang(lang string) BraveOption {
	return func(b *BraveSearch) {
		b.Lang = lang
	}
}

// NewBraveSearch creates a new BraveSearch tool.
// If apiKey is empty, the configured BRAVE_API_KEY is used.
func NewBraveSearch(apiKey string, opts ...BraveOption) (*BraveSearch, error) {
	if apiKey == "" {
		apiKey = config.Get().BraveAPIKey
	}
	if apiKey == "" {
		return nil, ErrMissingBraveKey
	}

	b := &BraveSearch{
		APIKey:  apiKey,
		BaseURL: "https://api.search.brave.com/res/v1/web/search",
		Count:   10,
		Country: "US",
		Lang:    "en",
		client:  resty.New().SetTimeout(30 * time.Second),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Name returns the name of the tool.
func (b *BraveSearch) Name() string {
	return "web_search"
}

// Description returns the description of the tool.
func (b *BraveSearch) Description() string {
	return "Search the web with Brave Search. " +
		"Useful for finding current information and answering questions. " +
		"Input should be a search query."
}

// Parameters implements Tool.
func (b *BraveSearch) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Search query",
			},
		},
		"required": []string{"query"},
	}
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// Call executes the search. The input is a query or {"query": "..."}.
func (b *BraveSearch) Call(ctx context.Context, input string) (string, error) {
	query := input
	if strings.HasPrefix(strings.TrimSpace(input), "{") {
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		query = args.Query
	}

	req := b.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetHeader("X-Subscription-Token", b.APIKey).
		SetQueryParam("q", query).
		SetQueryParam("count", strconv.Itoa(b.Count)).
		SetResult(&braveResponse{})
	if b.Country != "" {
		req.SetQueryParam("country", b.Country)
	}
	if b.Lang != "" {
		req.SetQueryParam("search_lang", b.Lang)
	}

	resp, err := req.Get(b.BaseURL)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("brave api returned status: %d", resp.StatusCode())
	}

	result := resp.Result().(*braveResponse)

	var sb strings.Builder
	for i, item := range result.Web.Results {
		fmt.Fprintf(&sb, "%d. Title: %s\nURL: %s\nDescription: %s\n\n",
			i+1, item.Title, item.URL, item.Description)
	}

	if sb.Len() == 0 {
		return "No results found", nil
	}

	return sb.String(), nil
}

var _ Tool = (*BraveSearch)(nil)
