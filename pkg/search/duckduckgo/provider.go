package duckduckgo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"claudebuddy-be/pkg/search"

	"golang.org/x/net/html"
)

const (
	DefaultBaseURL = "https://html.duckduckgo.com/html/"
	maxBodyBytes   = 1 << 20
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// DuckDuckGoProvider scrapes the keyless HTML endpoint. It returns snippets
// only; full page text is never available.
type DuckDuckGoProvider struct {
	BaseURL string
	Client  *http.Client
}

var _ search.Provider = &DuckDuckGoProvider{}

func NewDuckDuckGoProvider() *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (d *DuckDuckGoProvider) Name() string { return "duckduckgo" }

func (d *DuckDuckGoProvider) Search(ctx context.Context, req search.Request) ([]search.Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("duckduckgo: empty query")
	}

	endpoint := d.BaseURL + "?q=" + url.QueryEscape(req.Query)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo error: status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return ParseResults(doc, req.MaxResults), nil
}

// ParseResults walks a result page and extracts at most limit results.
// Scores decrease with rank since the page carries none.
func ParseResults(doc *html.Node, limit int) []search.Result {
	if limit <= 0 {
		limit = 10
	}

	var out []search.Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") && !hasClass(n, "result--ad") {
			if r, ok := extract(n); ok {
				out = append(out, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for i := range out {
		out[i].Score = 1 - float64(i)/float64(len(out)+1)
	}
	return out
}

func extract(n *html.Node) (search.Result, bool) {
	var r search.Result
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			switch {
			case hasClass(n, "result__a"):
				r.URL = resolveRedirect(attr(n, "href"))
				r.Title = text(n)
			case hasClass(n, "result__snippet"):
				r.Content = text(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r, r.URL != "" && r.Title != ""
}

// resolveRedirect unwraps "//duckduckgo.com/l/?uddg=<target>" links.
func resolveRedirect(href string) string {
	if !strings.Contains(href, "duckduckgo.com/l/") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("uddg")
}

func hasClass(n *html.Node, class string) bool {
	for _, f := range strings.Fields(attr(n, "class")) {
		if f == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
