package search

import (
	"context"
)

// Request describes one web search.
type Request struct {
	Query           string
	MaxResults      int
	Depth           string // "basic" or "advanced", providers may ignore it
	IncludeFullText bool
}

// Result is a single ranked document returned by a provider.
type Result struct {
	Title      string
	URL        string
	Content    string
	RawContent string // full page text when the provider supports it
	Score      float64
}

// Provider defines the contract for any web search backend
type Provider interface {
	Search(ctx context.Context, req Request) ([]Result, error)

	// Name identifies the backend in logs and health output
	Name() string
}
