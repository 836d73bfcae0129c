package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const arxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Large Language Models
      in the Classroom</title>
    <summary>  We study tutoring
      systems. </summary>
    <published>2025-01-02T00:00:00Z</published>
    <link href="http://arxiv.org/abs/2501.00001v1" rel="alternate" type="text/html"/>
    <link href="http://arxiv.org/pdf/2501.00001v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <title>Second</title>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		_, _ = w.Write([]byte(arxivFeed))
	}))
	defer srv.Close()

	a := &Arxiv{Endpoint: srv.URL, Doer: srv.Client()}
	res := a.Search(context.Background(), "AI in education", 3)

	require.False(t, res.Failed(), "unexpected error: %v", res.Err)
	assert.Equal(t, "all:AI in education", gotQuery)
	require.Len(t, res.Organic, 2)
	assert.Equal(t, Hit{
		Title:   "Large Language Models in the Classroom",
		Snippet: "We study tutoring systems.",
		Source:  "arXiv",
		Date:    "2025-01-02T00:00:00Z",
		Link:    "http://arxiv.org/pdf/2501.00001v1",
	}, res.Organic[0])
	assert.Equal(t, NoSnippet, res.Organic[1].Snippet)
	assert.Equal(t, UnknownDate, res.Organic[1].Date)
}

func TestArxivErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := &Arxiv{Endpoint: srv.URL, Doer: srv.Client()}
	assert.ErrorIs(t, a.Search(context.Background(), "q", 2).Err, ErrTransport)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<feed><entry>"))
	}))
	defer bad.Close()

	a = &Arxiv{Endpoint: bad.URL, Doer: bad.Client()}
	assert.ErrorIs(t, a.Search(context.Background(), "q", 2).Err, ErrFormat)
}
