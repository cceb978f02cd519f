// Package websearch implements the web search capability against the
// DuckDuckGo instant-answer API.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/somshekargr/studybuddy/internal/core"
	"github.com/somshekargr/studybuddy/internal/models"
)

const (
	defaultEndpoint = "https://api.duckduckgo.com/"
	defaultTimeout  = 10 * time.Second
)

type DuckDuckGo struct {
	client   *http.Client
	endpoint string
}

var _ core.WebSearcher = (*DuckDuckGo)(nil)

func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		client:   &http.Client{Timeout: defaultTimeout},
		endpoint: defaultEndpoint,
	}
}

// ddgResponse is the subset of the instant-answer payload we read.
type ddgResponse struct {
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Heading       string     `json:"Heading"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

type ddgTopic struct {
	Text     string `json:"Text"`
	FirstURL string `json:"FirstURL"`
}

// Search returns up to maxResults hits. Errors surface to the caller, which
// treats them as "no web context" rather than failing the chat turn.
func (d *DuckDuckGo) Search(ctx context.Context, query string, maxResults int) ([]models.WebResult, error) {
	if maxResults <= 0 {
		maxResults = 5
	}

	u := fmt.Sprintf("%s?q=%s&format=json&no_html=1&skip_disambig=1", d.endpoint, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search: status %d", resp.StatusCode)
	}

	var payload ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode web search response: %w", err)
	}

	var results []models.WebResult
	if payload.AbstractText != "" {
		results = append(results, models.WebResult{
			Title:   payload.Heading,
			URL:     payload.AbstractURL,
			Snippet: payload.AbstractText,
		})
	}
	for _, t := range payload.RelatedTopics {
		if len(results) >= maxResults {
			break
		}
		if t.Text == "" || t.FirstURL == "" {
			continue
		}
		results = append(results, models.WebResult{
			Title:   t.Text,
			URL:     t.FirstURL,
			Snippet: t.Text,
		})
	}
	return results, nil
}
