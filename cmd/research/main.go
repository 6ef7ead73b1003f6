package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/pkg/export"
	"claudebuddy-be/pkg/llm/factory"
	"claudebuddy-be/pkg/research"
	searchFactory "claudebuddy-be/pkg/search/factory"

	"github.com/fatih/color"
)

// Runs one research task in-process and prints its event log.
//
//	go run ./cmd/research -rounds 3 -target ~/code/myproj "how do I shard a postgres table"
func main() {
	rounds := flag.Int("rounds", 0, "maximum search rounds (default from RESEARCH_DEFAULT_MAX_SEARCHES)")
	target := flag.String("target", "", "project directory the report is saved under")
	depth := flag.String("depth", research.DepthAdvanced, "search depth: basic or advanced")
	flag.Parse()

	query := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if query == "" {
		color.Red("Usage: research [flags] <query>")
		os.Exit(2)
	}

	cfg := config.Load()
	if *rounds == 0 {
		*rounds = cfg.Research.DefaultMaxSearches
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:        cfg.Ai.LLMProvider,
		Model:           cfg.Ai.LLMModel,
		AnthropicAPIKey: cfg.Keys.Anthropic,
		GeminiAPIKey:    cfg.Keys.GoogleGemini,
		OllamaBaseURL:   cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		color.Red("LLM provider: %v", err)
		os.Exit(1)
	}
	searcher, err := searchFactory.NewSearchProvider(cfg.Ai.SearchProvider, cfg.Keys.Tavily)
	if err != nil {
		color.Red("Search provider: %v", err)
		os.Exit(1)
	}

	engine := research.NewEngine(provider, searcher, export.NewMarkdownSaver(cfg.Research.OutputDir), research.Options{
		ProviderTimeout:  cfg.Research.ProviderTimeout,
		SynthesisTimeout: cfg.Research.SynthesisTimeout,
	}, logger.NewIsolatedLogger(cfg.App.LogFilePath))

	session, err := research.NewSession(research.SessionParams{
		Query:          query,
		TargetLocation: *target,
		RoundLimit:     *rounds,
		SearchDepth:    *depth,
	})
	if err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	// First Ctrl-C asks the engine to stop at the next round boundary.
	go func() {
		<-ctx.Done()
		if session.RequestCancel() == nil {
			color.Yellow("\nCancelling after the current round...")
		}
	}()

	color.Cyan("🔎 Researching: %s (up to %d rounds)\n", query, *rounds)
	go engine.Run(context.Background(), session)

	cursor := 0
	for {
		batch, closed, err := session.Events().Wait(context.Background(), cursor)
		if err != nil {
			color.Red("%v", err)
			os.Exit(1)
		}
		for _, evt := range batch {
			printEvent(evt)
			cursor = evt.Index + 1
		}
		if closed {
			break
		}
	}

	snap := session.Snapshot()
	switch snap.Phase {
	case research.PhaseCompleted:
		fmt.Println()
		fmt.Println(snap.Summary)
		if snap.SavedLocation != "" {
			color.Green("\nSaved to %s", snap.SavedLocation)
		}
		if snap.Notice != "" {
			color.Yellow("%s", snap.Notice)
		}
	case research.PhaseFailed:
		color.Red("Research failed: %s", snap.ErrorDetail)
		os.Exit(1)
	}
}

func printEvent(evt research.Event) {
	line := fmt.Sprintf("[%d] %-9s %s", evt.Index, evt.Kind, describe(evt.Payload))
	switch evt.Kind {
	case research.EventComplete:
		color.Green("%s", line)
	case research.EventError:
		color.Red("%s", line)
	case research.EventCancelled:
		color.Yellow("%s", line)
	case research.EventProgress:
		color.Blue("%s", line)
	default:
		fmt.Println(line)
	}
}

func describe(payload map[string]interface{}) string {
	if msg, ok := payload["message"].(string); ok {
		return msg
	}
	parts := make([]string, 0, len(payload))
	for k, v := range payload {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, " ")
}
