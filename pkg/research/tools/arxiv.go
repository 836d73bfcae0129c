package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ArxivEntry holds one entry of the arXiv Atom feed.
type ArxivEntry struct {
	Title     string      `xml:"title"`
	Summary   string      `xml:"summary"`
	Published string      `xml:"published"`
	Link      []ArxivLink `xml:"link"`
}

type ArxivLink struct {
	Href string `xml:"href,attr"`
	Type string `xml:"type,attr"`
}

type ArxivFeed struct {
	XMLName xml.Name     `xml:"feed"`
	Entry   []ArxivEntry `xml:"entry"`
}

// Arxiv searches the public arXiv API. It needs no credential.
type Arxiv struct {
	Endpoint string
	Doer     Doer
}

func NewArxiv(timeout time.Duration) *Arxiv {
	return &Arxiv{
		Endpoint: "https://export.arxiv.org/api/query",
		Doer:     &http.Client{Timeout: timeout},
	}
}

// Search maps feed entries onto organic hits.
func (a *Arxiv) Search(ctx context.Context, query string, limit int) SearchResult {
	if strings.TrimSpace(query) == "" {
		return SearchResult{Err: ErrEmptyQuery}
	}
	limit = clampLimit(limit)

	doer := a.Doer
	if doer == nil {
		doer = &http.Client{Timeout: 20 * time.Second}
	}

	params := url.Values{}
	params.Add("search_query", "all:"+query)
	params.Add("max_results", strconv.Itoa(limit))
	params.Add("start", "0")
	apiURL := a.Endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: create request: %w", ErrTransport, err)}
	}

	resp, err := doer.Do(req)
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: %w", ErrTransport, err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return SearchResult{Err: fmt.Errorf("%w: read body: %w", ErrTransport, err)}
	}
	if resp.StatusCode != http.StatusOK {
		slog.Debug("arXiv returned non-200 status code", "status", resp.StatusCode)
		return SearchResult{Err: fmt.Errorf("%w: arxiv %d: %s", ErrTransport, resp.StatusCode, truncate(string(body), 300))}
	}

	var feed ArxivFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return SearchResult{Err: fmt.Errorf("%w: %w", ErrFormat, err)}
	}

	hits := make([]Hit, 0, min(len(feed.Entry), limit))
	for i, entry := range feed.Entry {
		if i >= limit {
			break
		}
		hits = append(hits, Hit{
			Title:   orDefault(collapse(entry.Title), NoTitle),
			Snippet: orDefault(collapse(entry.Summary), NoSnippet),
			Source:  "arXiv",
			Date:    orDefault(entry.Published, UnknownDate),
			Link:    pdfLink(entry.Link),
		})
	}

	return SearchResult{Organic: hits}
}

func pdfLink(links []ArxivLink) string {
	for _, link := range links {
		if link.Type == "application/pdf" {
			return link.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}

// collapse folds the hard line breaks arXiv puts in titles and abstracts.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
