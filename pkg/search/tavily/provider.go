package tavily

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

	"claudebuddy-be/pkg/search"
)

const DefaultBaseURL = "https://api.tavily.com"

// ErrMissingAPIKey is returned when the provider is built without credentials.
var ErrMissingAPIKey = errors.New("tavily api key is not configured")

type TavilyProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

var _ search.Provider = &TavilyProvider{}

func NewTavilyProvider(apiKey string) (*TavilyProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &TavilyProvider{
		BaseURL: DefaultBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type searchRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type searchResult struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent *string `json:"raw_content"`
	Score      float64 `json:"score"`
}

type searchResponse struct {
	Query   string         `json:"query"`
	Results []searchResult `json:"results"`
}

func (t *TavilyProvider) Name() string { return "tavily" }

func (t *TavilyProvider) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	payload := searchRequest{
		Query:             req.Query,
		SearchDepth:       req.Depth,
		MaxResults:        req.MaxResults,
		IncludeRawContent: req.IncludeFullText,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(t.BaseURL, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var out searchResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]search.Result, 0, len(out.Results))
	for _, r := range out.Results {
		res := search.Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
		}
		if r.RawContent != nil {
			res.RawContent = *r.RawContent
		}
		if res.Title == "" {
			res.Title = "Untitled"
		}
		results = append(results, res)
	}
	return results, nil
}
