package factory

import (
	"fmt"
	"strings"

	"claudebuddy-be/pkg/search"
	"claudebuddy-be/pkg/search/duckduckgo"
	"claudebuddy-be/pkg/search/tavily"
)

func NewSearchProvider(providerType, tavilyAPIKey string) (search.Provider, error) {
	switch strings.ToLower(providerType) {
	case "", "tavily":
		p, err := tavily.NewTavilyProvider(tavilyAPIKey)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "duckduckgo", "ddg":
		return duckduckgo.NewDuckDuckGoProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", providerType)
	}
}
