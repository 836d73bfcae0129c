package research

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mikeboe/topic-report/pkg/research/tools"
)

func hits(n int) []tools.Hit {
	out := make([]tools.Hit, n)
	for i := range out {
		out[i] = tools.Hit{
			Title:   fmt.Sprintf("title %d", i+1),
			Snippet: fmt.Sprintf("snippet %d", i+1),
			Source:  "src",
			Date:    tools.UnknownDate,
			Link:    fmt.Sprintf("https://example.com/%d", i+1),
		}
	}
	return out
}

func TestAcademicContext(t *testing.T) {
	got := academicContext(tools.SearchResult{Organic: hits(5)})
	assert.Contains(t, got, "1. title 1: snippet 1")
	assert.Contains(t, got, "3. title 3: snippet 3")
	assert.NotContains(t, got, "title 4")

	assert.Equal(t, NoRecentData, academicContext(tools.SearchResult{}))
	assert.Equal(t, NoRecentData, academicContext(tools.SearchResult{Organic: hits(2), Err: errors.New("boom")}))
}

func TestNewsContext(t *testing.T) {
	t.Run("news section", func(t *testing.T) {
		got := newsContext(tools.SearchResult{News: hits(7), Organic: []tools.Hit{{Title: "organic"}}})
		assert.Equal(t, NewsHits, strings.Count(got, `"title"`))
		assert.NotContains(t, got, "organic")
	})

	t.Run("falls back to organic", func(t *testing.T) {
		got := newsContext(tools.SearchResult{Organic: hits(1)})
		assert.Contains(t, got, `"title": "title 1"`)
		assert.Contains(t, got, `"date": "`+tools.UnknownDate+`"`)
	})

	t.Run("nothing found", func(t *testing.T) {
		assert.Equal(t, NoRecentData, newsContext(tools.SearchResult{}))
	})
}

func TestIndustryContext(t *testing.T) {
	got := industryContext(tools.SearchResult{Organic: hits(6)})
	assert.True(t, strings.HasPrefix(got, "Recent industry coverage:\n"))
	assert.Contains(t, got, "[Read more](https://example.com/5)")
	assert.NotContains(t, got, "title 6")

	assert.Equal(t, NoRecentData, industryContext(tools.SearchResult{Err: tools.ErrTransport}))
}

func TestMergeUserPrompt(t *testing.T) {
	got := mergeUserPrompt("edge AI", "acad", NoNews, "ind")
	assert.Contains(t, got, "'edge AI'")
	assert.Contains(t, got, "TL;DR")
	assert.Contains(t, got, "Academic highlights:\nacad")
	assert.Contains(t, got, "News insights:\n"+NoNews)
	assert.True(t, strings.HasSuffix(got, "'"+Attribution+"'"))
}
