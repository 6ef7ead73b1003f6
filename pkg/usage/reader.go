package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	statsCacheFile = "statsCache.json"
	configFile     = "config.json"
	projectsDir    = "projects"
)

type DailyActivity struct {
	Date          string `json:"date"`
	MessageCount  int    `json:"messageCount"`
	SessionCount  int    `json:"sessionCount"`
	ToolCallCount int    `json:"toolCallCount"`
}

type DailyModelTokens struct {
	Date          string           `json:"date"`
	TokensByModel map[string]int64 `json:"tokensByModel"`
}

// StatsCache is the subset of statsCache.json the dashboard understands.
// Raw keeps the whole document so unknown fields are passed through.
type StatsCache struct {
	TotalSessions    int                   `json:"totalSessions"`
	ModelUsage       map[string]ModelUsage `json:"modelUsage"`
	DailyActivity    []DailyActivity       `json:"dailyActivity"`
	DailyModelTokens []DailyModelTokens    `json:"dailyModelTokens"`

	Raw map[string]interface{} `json:"-"`
}

// Stats combines the stats cache with a few settings from config.json.
type Stats struct {
	Cache        StatsCache
	StartupCount int
	Theme        string
	AutoUpdates  bool
}

type claudeConfig struct {
	NumStartups int     `json:"numStartups"`
	Theme       *string `json:"theme"`
	AutoUpdate  *bool   `json:"autoUpdate"`
}

// Reader reads the local Claude Code data directory.
type Reader struct {
	ClaudeDir string
}

// NewReader falls back to ~/.claude when dir is empty.
func NewReader(dir string) *Reader {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".claude")
		}
	}
	return &Reader{ClaudeDir: dir}
}

// DataExists reports whether the data dir and its projects folder exist.
func (r *Reader) DataExists() bool {
	return isDir(r.ClaudeDir) && isDir(filepath.Join(r.ClaudeDir, projectsDir))
}

func (r *Reader) LoadStats() (*Stats, error) {
	out := &Stats{Theme: "dark", AutoUpdates: true}

	raw, err := readJSON(filepath.Join(r.ClaudeDir, statsCacheFile))
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &out.Cache); err != nil {
			return nil, fmt.Errorf("decode %s: %w", statsCacheFile, err)
		}
		if err := json.Unmarshal(raw, &out.Cache.Raw); err != nil {
			return nil, fmt.Errorf("decode %s: %w", statsCacheFile, err)
		}
	}

	raw, err = readJSON(filepath.Join(r.ClaudeDir, configFile))
	if err != nil {
		return nil, err
	}
	if raw != nil {
		var cfg claudeConfig
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", configFile, err)
		}
		out.StartupCount = cfg.NumStartups
		if cfg.Theme != nil {
			out.Theme = *cfg.Theme
		}
		if cfg.AutoUpdate != nil {
			out.AutoUpdates = *cfg.AutoUpdate
		}
	}
	return out, nil
}

type ActivityPoint struct {
	Date      string `json:"date"`
	Messages  int    `json:"messages"`
	Sessions  int    `json:"sessions"`
	ToolCalls int    `json:"toolCalls"`
}

type TokenPoint struct {
	Date   string `json:"date"`
	Tokens int64  `json:"tokens"`
}

type Charts struct {
	DailyActivity []ActivityPoint `json:"dailyActivity"`
	DailyTokens   []TokenPoint    `json:"dailyTokens"`
}

// BuildCharts flattens the cache into per-day series.
func BuildCharts(c StatsCache) Charts {
	charts := Charts{
		DailyActivity: make([]ActivityPoint, 0, len(c.DailyActivity)),
		DailyTokens:   make([]TokenPoint, 0, len(c.DailyModelTokens)),
	}
	for _, d := range c.DailyActivity {
		charts.DailyActivity = append(charts.DailyActivity, ActivityPoint{
			Date:      d.Date,
			Messages:  d.MessageCount,
			Sessions:  d.SessionCount,
			ToolCalls: d.ToolCallCount,
		})
	}
	for _, d := range c.DailyModelTokens {
		var total int64
		for _, n := range d.TokensByModel {
			total += n
		}
		charts.DailyTokens = append(charts.DailyTokens, TokenPoint{Date: d.Date, Tokens: total})
	}
	return charts
}

// readJSON returns nil without error when the file does not exist.
func readJSON(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
