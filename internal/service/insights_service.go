package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claudebuddy-be/internal/dto"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/pkg/usage"

	"github.com/patrickmn/go-cache"
)

const (
	insightsLogModule = "INSIGHTS"

	defaultErrorWindowDays = 7
	defaultTaskWindowDays  = 30

	productivityCacheKey = "productivity"
	noProductivityData   = "No Claude Code data found."
)

type IInsightsService interface {
	History(ctx context.Context) ([]usage.HistoryDay, error)
	HistorySession(ctx context.Context, sessionID string) (*usage.ConversationLog, error)
	Projects(ctx context.Context) ([]usage.Project, error)
	Session(ctx context.Context, projectID, sessionID string) (*usage.SessionDetail, error)
	SessionCode(ctx context.Context, projectID, sessionID string) (*usage.SessionCode, error)
	Daily(ctx context.Context, req *dto.DailyInsightsRequest) (*usage.DailyInsights, error)
	Errors(ctx context.Context, req *dto.InsightsWindowRequest) (*usage.ErrorInsights, error)
	Tasks(ctx context.Context, req *dto.InsightsWindowRequest) (*usage.TaskInsights, error)
	Productivity(ctx context.Context, req *dto.RefreshRequest) (*usage.Productivity, error)
}

type insightsService struct {
	reader *usage.Reader
	cache  *cache.Cache
	logger logger.ILogger
	now    func() time.Time
}

// NewInsightsService caches the window and productivity reports for ttl;
// ttl <= 0 disables caching. Browsing endpoints always read from disk.
func NewInsightsService(reader *usage.Reader, ttl time.Duration, log logger.ILogger) IInsightsService {
	var c *cache.Cache
	if ttl > 0 {
		c = cache.New(ttl, 2*ttl)
	}
	return &insightsService{reader: reader, cache: c, logger: log, now: time.Now}
}

func (s *insightsService) History(ctx context.Context) ([]usage.HistoryDay, error) {
	days, err := s.reader.History()
	if err != nil {
		return nil, s.fail("Failed to read prompt history", err)
	}
	return days, nil
}

func (s *insightsService) HistorySession(ctx context.Context, sessionID string) (*usage.ConversationLog, error) {
	log, err := s.reader.FindConversation(sessionID)
	if err != nil {
		return nil, s.fail("Failed to load conversation", err)
	}
	return log, nil
}

func (s *insightsService) Projects(ctx context.Context) ([]usage.Project, error) {
	projects, err := s.reader.Projects()
	if err != nil {
		return nil, s.fail("Failed to list projects", err)
	}
	return projects, nil
}

func (s *insightsService) Session(ctx context.Context, projectID, sessionID string) (*usage.SessionDetail, error) {
	detail, err := s.reader.Session(projectID, sessionID)
	if err != nil {
		return nil, s.fail("Failed to load session", err)
	}
	return detail, nil
}

func (s *insightsService) SessionCode(ctx context.Context, projectID, sessionID string) (*usage.SessionCode, error) {
	code, err := s.reader.SessionCode(projectID, sessionID)
	if err != nil {
		return nil, s.fail("Failed to load session code", err)
	}
	return code, nil
}

func (s *insightsService) Daily(ctx context.Context, req *dto.DailyInsightsRequest) (*usage.DailyInsights, error) {
	sessions, err := s.reader.Activity(ctx)
	if err != nil {
		return nil, s.fail("Failed to scan sessions", err)
	}
	return usage.Daily(sessions, req.Date, s.now())
}

func (s *insightsService) Errors(ctx context.Context, req *dto.InsightsWindowRequest) (*usage.ErrorInsights, error) {
	days := req.Days
	if days == 0 {
		days = defaultErrorWindowDays
	}
	res, err := cached(s, fmt.Sprintf("insights_errors_%d", days), req.Refresh, func() (*usage.ErrorInsights, error) {
		sessions, err := s.reader.Activity(ctx)
		if err != nil {
			return nil, err
		}
		return usage.FindErrorPatterns(sessions, days, s.now()), nil
	})
	if err != nil {
		return nil, s.fail("Failed to compute error patterns", err)
	}
	return res, nil
}

func (s *insightsService) Tasks(ctx context.Context, req *dto.InsightsWindowRequest) (*usage.TaskInsights, error) {
	days := req.Days
	if days == 0 {
		days = defaultTaskWindowDays
	}
	res, err := cached(s, fmt.Sprintf("insights_tasks_%d", days), req.Refresh, func() (*usage.TaskInsights, error) {
		sessions, err := s.reader.Activity(ctx)
		if err != nil {
			return nil, err
		}
		return usage.InferTasks(sessions, days, s.now()), nil
	})
	if err != nil {
		return nil, s.fail("Failed to compute task insights", err)
	}
	return res, nil
}

func (s *insightsService) Productivity(ctx context.Context, req *dto.RefreshRequest) (*usage.Productivity, error) {
	res, err := cached(s, productivityCacheKey, req.Refresh, func() (*usage.Productivity, error) {
		if !s.reader.DataExists() {
			empty := usage.ComputeProductivity(nil, s.now())
			empty.Message = noProductivityData
			return empty, nil
		}
		sessions, err := s.reader.Activity(ctx)
		if err != nil {
			return nil, err
		}
		return usage.ComputeProductivity(sessions, s.now()), nil
	})
	if err != nil {
		return nil, s.fail("Failed to compute productivity", err)
	}
	return res, nil
}

// cached serves key from the cache unless refresh is "1", storing whatever
// compute returns.
func cached[T any](s *insightsService, key, refresh string, compute func() (*T, error)) (*T, error) {
	if s.cache != nil && refresh != "1" {
		if hit, ok := s.cache.Get(key); ok {
			return hit.(*T), nil
		}
	}
	res, err := compute()
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDefault(key, res)
	}
	return res, nil
}

// fail logs unexpected read errors; missing sessions and bad identifiers are
// the caller's problem and pass through quietly.
func (s *insightsService) fail(msg string, err error) error {
	if !errors.Is(err, usage.ErrNotFound) && !errors.Is(err, usage.ErrInvalidInput) {
		s.logger.Error(insightsLogModule, msg, map[string]interface{}{
			"claude_dir": s.reader.ClaudeDir,
			"error":      err.Error(),
		})
	}
	return err
}
