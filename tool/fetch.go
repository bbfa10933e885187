package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ErrEmptyPage is returned when a fetched page has no readable text.
var ErrEmptyPage = errors.New("page has no text content")

// FetchURL downloads a web page and returns its visible text.
type FetchURL struct {
	MaxChars int
	Selector string

	client *resty.Client
}

type FetchOption func(*FetchURL)

// WithFetchMaxChars limits the returned text. Zero disables the limit.
func WithFetchMaxChars(n int) FetchOption {
	return func(f *FetchURL) {
		f.MaxChars = n
	}
}

// WithFetchSelector restricts extraction to the elements matching a CSS selector.
func WithFetchSelector(selector string) FetchOption {
	return func(f *FetchURL) {
		f.Selector = selector
	}
}

// WithFetchTimeout sets the HTTP timeout.
func WithFetchTimeout(d time.Duration) FetchOption {
	return func(f *FetchURL) {
		f.client.SetTimeout(d)
	}
}

// NewFetchURL creates a fetch_url tool.
func NewFetchURL(opts ...FetchOption) *FetchURL {
	f := &FetchURL{
		MaxChars: maxReadChars,
		Selector: "body",
		client:   resty.New().SetTimeout(30 * time.Second),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns the name of the tool.
func (f *FetchURL) Name() string {
	return "fetch_url"
}

// Description returns the description of the tool.
func (f *FetchURL) Description() string {
	return "Fetch a web page and return its title and text content. " +
		"Input should be an http or https URL."
}

// Parameters implements Tool.
func (f *FetchURL) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL of the page to fetch",
			},
		},
		"required": []string{"url"},
	}
}

// Call fetches the page. The input is a URL or {"url": "..."}.
func (f *FetchURL) Call(ctx context.Context, input string) (string, error) {
	url := strings.TrimSpace(input)
	if strings.HasPrefix(url, "{") {
		var args struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(url), &args); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		url = args.URL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "", fmt.Errorf("unsupported url: %q", url)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html").
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return "", fmt.Errorf("failed to fetch %s: status code %d", url, resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	var parts []string
	doc.Find(f.Selector).Each(func(_ int, s *goquery.Selection) {
		if text := collapseSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	text := strings.Join(parts, "\n")
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyPage, url)
	}

	if f.MaxChars > 0 {
		if runes := []rune(text); len(runes) > f.MaxChars {
			text = string(runes[:f.MaxChars]) + "\n... (truncated)"
		}
	}

	if title != "" {
		return fmt.Sprintf("Title: %s\n\n%s", title, text), nil
	}
	return text, nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var _ Tool = (*FetchURL)(nil)
