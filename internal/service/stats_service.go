package service

import (
	"context"
	"runtime"
	"time"

	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/pkg/usage"

	"github.com/patrickmn/go-cache"
)

const (
	statsLogModule = "STATS"
	statsCacheKey  = "stats"

	AppVersion = "2.0.0"

	noDataMessage = "No Claude Code data found. Start using Claude Code to see your stats here!"
)

type IStatsService interface {
	Health(ctx context.Context) *dto.HealthResponse
	Stats(ctx context.Context) (*dto.StatsResponse, error)
}

type statsService struct {
	reader *usage.Reader
	cache  *cache.Cache
	logger logger.ILogger
}

// NewStatsService caches the computed stats for ttl; ttl <= 0 disables caching.
func NewStatsService(reader *usage.Reader, ttl time.Duration, log logger.ILogger) IStatsService {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 2*ttl)
	}
	return &statsService{reader: reader, cache: c, logger: log}
}

func (s *statsService) Health(ctx context.Context) *dto.HealthResponse {
	return &dto.HealthResponse{
		Status:        "ok",
		Version:       AppVersion,
		ClaudeDir:     s.reader.ClaudeDir,
		HasClaudeData: s.reader.DataExists(),
		Platform:      runtime.GOOS,
		GoVersion:     runtime.Version(),
	}
}

func (s *statsService) Stats(ctx context.Context) (*dto.StatsResponse, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(statsCacheKey); ok {
			return cached.(*dto.StatsResponse), nil
		}
	}

	res, err := s.build()
	if err != nil {
		s.logger.Error(statsLogModule, "Failed to read usage stats", map[string]interface{}{
			"claude_dir": s.reader.ClaudeDir,
			"error":      err.Error(),
		})
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetDefault(statsCacheKey, res)
	}
	return res, nil
}

func (s *statsService) build() (*dto.StatsResponse, error) {
	if !s.reader.DataExists() {
		return &dto.StatsResponse{
			Stats: map[string]interface{}{
				"totalSessions": 0,
				"modelUsage":    map[string]interface{}{},
				"dailyActivity": []interface{}{},
			},
			Theme:       "dark",
			AutoUpdates: true,
			Costs:       usage.CalculateModelCosts(nil),
			Charts:      usage.BuildCharts(usage.StatsCache{}),
			Message:     noDataMessage,
		}, nil
	}

	stats, err := s.reader.LoadStats()
	if err != nil {
		return nil, err
	}

	raw := stats.Cache.Raw
	if raw == nil {
		raw = map[string]interface{}{}
	}

	return &dto.StatsResponse{
		Stats:        raw,
		StartupCount: stats.StartupCount,
		Theme:        stats.Theme,
		AutoUpdates:  stats.AutoUpdates,
		Costs:        usage.CalculateModelCosts(stats.Cache.ModelUsage),
		Charts:       usage.BuildCharts(stats.Cache),
	}, nil
}
