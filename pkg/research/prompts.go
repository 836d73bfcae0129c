package research

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikeboe/topic-report/pkg/research/tools"
)

const (
	AcademicHits = 3
	NewsHits     = 5
	IndustryHits = 5
)

// NoRecentData replaces the search context when a search fails or comes back empty.
const NoRecentData = "No recent data was found for this topic."

// Attribution closes every merged report.
const Attribution = "Generated by topic-report AI research assistant."

const (
	NoAcademic = "No academic research found."
	NoNews     = "No news found."
	NoIndustry = "No industry insights found."
)

func academicQuery(topic string) string {
	return "latest academic research and papers about " + topic
}

func newsQuery(topic string) string {
	return "latest news about " + topic
}

func industryQuery(topic string) string {
	return topic + " startup funding OR product launch OR market trends"
}

const academicSystemPrompt = `You are an expert at finding and summarizing academic research.
Use the provided search results to enhance your knowledge with up-to-date information.`

func academicUserPrompt(topic, context string) string {
	return fmt.Sprintf(`Summarize the latest academic research, key papers, and leading experts for the topic: '%s'.

%s

Mention at least two papers, breakthroughs, and trends. If search results are available, incorporate them into your response. Otherwise, rely on your training knowledge.`, topic, context)
}

const newsSystemPrompt = `You are a news analyst that provides concise, factual summaries of current events.`

func newsUserPrompt(topic, context string) string {
	return fmt.Sprintf(`Provide a summary of the latest news about '%s'.

%s

Focus on the most important developments and their implications. Include dates and sources where available. If no recent news is found, state that clearly and provide general information.`, topic, context)
}

const industrySystemPrompt = `You are a market analyst who tracks startups, funding rounds, product launches and market trends.`

func industryUserPrompt(topic, context string) string {
	return fmt.Sprintf(`Write a short industry snapshot for '%s'.

%s

Cover notable companies, funding, product launches and market direction. Keep it to a few bullet points and cite sources where available.`, topic, context)
}

const mergeSystemPrompt = `You are an expert analyst that synthesizes information from multiple sources into a comprehensive report.`

func mergeUserPrompt(topic, academic, news, industry string) string {
	return fmt.Sprintf(`You are an expert research summarizer. Given the following research, write a concise, well-structured '360° Topic Report' on '%s'.

Start with a 1-line TL;DR.

Academic highlights:
%s

News insights:
%s

Industry snapshot:
%s

Format with sections, use clear bullet points, include references to sources where available, and end with: '%s'`, topic, academic, news, industry, Attribution)
}

func academicContext(res tools.SearchResult) string {
	if res.Failed() || len(res.Organic) == 0 {
		return NoRecentData
	}
	var sb strings.Builder
	sb.WriteString("Recent search results:\n")
	for i, hit := range res.Organic[:min(len(res.Organic), AcademicHits)] {
		fmt.Fprintf(&sb, "%d. %s: %s\n", i+1, hit.Title, hit.Snippet)
	}
	return sb.String()
}

type newsItem struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// newsContext prefers the news section and falls back to organic hits.
func newsContext(res tools.SearchResult) string {
	if res.Failed() {
		return NoRecentData
	}
	hits := res.News
	if len(hits) == 0 {
		hits = res.Organic
	}
	if len(hits) == 0 {
		return NoRecentData
	}

	items := make([]newsItem, 0, NewsHits)
	for _, hit := range hits[:min(len(hits), NewsHits)] {
		items = append(items, newsItem{Title: hit.Title, Source: hit.Source, Date: hit.Date, Snippet: hit.Snippet})
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return NoRecentData
	}
	return "Here are some recent search results (use them if relevant):\n" + string(data)
}

func industryContext(res tools.SearchResult) string {
	if res.Failed() || len(res.Organic) == 0 {
		return NoRecentData
	}
	lines := make([]string, 0, IndustryHits)
	for _, hit := range res.Organic[:min(len(res.Organic), IndustryHits)] {
		lines = append(lines, fmt.Sprintf("- **%s**\n  %s\n  [Read more](%s)", hit.Title, hit.Snippet, hit.Link))
	}
	return "Recent industry coverage:\n" + strings.Join(lines, "\n")
}
