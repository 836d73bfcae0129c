// Package tools holds the web-search clients the research steps consult.
// Search failures are reported inside SearchResult rather than returned, so
// a step can always fall back to a degraded prompt.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey = errors.New("SERPER_API_KEY is not set")
	ErrEmptyQuery    = errors.New("empty search query")
	ErrTransport     = errors.New("search request failed")
	ErrFormat        = errors.New("unexpected search response")
)

const (
	DefaultLimit = 5
	MaxLimit     = 10

	// MaxResponseBytes caps how much of a provider response is read.
	MaxResponseBytes = 4 << 20
)

// Placeholders used when the provider omits a field.
const (
	NoTitle       = "No title"
	NoSnippet     = "No snippet"
	UnknownSource = "Unknown source"
	UnknownDate   = "Unknown date"
)

// Hit is one search result with best-effort fields.
type Hit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Link    string `json:"link"`
}

// SearchResult is either a set of hits or an error marker. Callers must check
// Failed before using the hits.
type SearchResult struct {
	Organic []Hit
	News    []Hit
	Err     error
}

func (r SearchResult) Failed() bool { return r.Err != nil }

// Empty reports whether the search succeeded but returned nothing.
func (r SearchResult) Empty() bool { return len(r.Organic) == 0 && len(r.News) == 0 }

// Searcher is implemented by every search backend.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) SearchResult
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Serper queries google.serper.dev.
type Serper struct {
	APIKey   string
	Endpoint string
	Doer     Doer
}

func NewSerper(apiKey, endpoint string, timeout time.Duration) *Serper {
	return &Serper{
		APIKey:   apiKey,
		Endpoint: endpoint,
		Doer:     &http.Client{Timeout: timeout},
	}
}

type serperHit struct {
	Title       string `json:"title"`
	Snippet     string `json:"snippet"`
	Link        string `json:"link"`
	Source      string `json:"source"`
	DisplayLink string `json:"displayLink"`
	Date        string `json:"date"`
}

type serperResponse struct {
	Organic []serperHit `json:"organic"`
	News    []serperHit `json:"news"`
}

// Search issues exactly one POST. A missing key is reported without any
// network call.
func (s *Serper) Search(ctx context.Context, query string, limit int) SearchResult {
	if s.APIKey == "" {
		return SearchResult{Err: ErrMissingAPIKey}
	}
	if strings.TrimSpace(query) == "" {
		return SearchResult{Err: ErrEmptyQuery}
	}
	limit = clampLimit(limit)

	doer := s.Doer
	if doer == nil {
		doer = &http.Client{Timeout: 20 * time.Second}
	}

	payload, err := json.Marshal(map[string]any{"q": query, "num": limit})
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: marshal request: %w", ErrFormat, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: create request: %w", ErrTransport, err)}
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := doer.Do(req)
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: read body: %w", ErrTransport, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return SearchResult{Err: fmt.Errorf("%w: serper %d: %s", ErrTransport, resp.StatusCode, truncate(string(body), 300))}
	}

	var raw serperResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return SearchResult{Err: fmt.Errorf("%w: %w", ErrFormat, err)}
	}

	return SearchResult{
		Organic: toHits(raw.Organic, limit),
		News:    toHits(raw.News, limit),
	}
}

func toHits(raw []serperHit, limit int) []Hit {
	hits := make([]Hit, 0, min(len(raw), limit))
	for i, r := range raw {
		if i >= limit {
			break
		}
		source := r.Source
		if source == "" {
			source = r.DisplayLink
		}
		hits = append(hits, Hit{
			Title:   orDefault(r.Title, NoTitle),
			Snippet: orDefault(r.Snippet, NoSnippet),
			Source:  orDefault(source, UnknownSource),
			Date:    orDefault(r.Date, UnknownDate),
			Link:    r.Link,
		})
	}
	return hits
}

func clampLimit(limit int) int {
	if limit < 1 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
