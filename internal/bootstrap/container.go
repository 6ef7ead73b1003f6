package bootstrap

import (
	"context"
	"log"
	"time"

	"claudebuddy-be/internal/config"
	"claudebuddy-be/internal/controller"
	"claudebuddy-be/internal/model"
	"claudebuddy-be/internal/pkg/logger"
	"claudebuddy-be/internal/repository/contract"
	"claudebuddy-be/internal/repository/implementation"
	"claudebuddy-be/internal/repository/memory"
	"claudebuddy-be/internal/service"
	"claudebuddy-be/internal/websocket"
	"claudebuddy-be/pkg/database"
	"claudebuddy-be/pkg/export"
	"claudebuddy-be/pkg/llm"
	"claudebuddy-be/pkg/llm/factory"
	pktNats "claudebuddy-be/pkg/nats"
	"claudebuddy-be/pkg/research"
	"claudebuddy-be/pkg/search"
	searchFactory "claudebuddy-be/pkg/search/factory"
	"claudebuddy-be/pkg/usage"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResearchController controller.IResearchController
	StatsController    controller.IStatsController
	InsightsController controller.IInsightsController

	// Background services, started and stopped by main.go
	ResearchService  service.IResearchService
	LifecycleService service.ILifecycleService
	WebSocketHub     *websocket.Hub

	Logger *logger.ZapLogger

	closers []func()
}

// NewContainer wires every component. Optional infrastructure (database,
// NATS, Redis) is skipped with a warning when unconfigured or unreachable;
// a missing LLM or search backend surfaces as a configuration error on the
// first research request.
func NewContainer(ctx context.Context, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Logging
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	c.Logger = sysLogger

	// 2. Report archive
	var reports contract.ResearchReportRepository
	if db := openDatabase(cfg); db != nil {
		reports = implementation.NewResearchReportRepository(db)
		c.closers = append(c.closers, func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		})
	}

	// 3. Capabilities
	var llmProvider llm.LLMProvider
	provider, err := factory.NewLLMProvider(ctx, factory.Config{
		Provider:        cfg.Ai.LLMProvider,
		Model:           cfg.Ai.LLMModel,
		AnthropicAPIKey: cfg.Keys.Anthropic,
		GeminiAPIKey:    cfg.Keys.GoogleGemini,
		OllamaBaseURL:   cfg.Ai.OllamaBaseURL,
	})
	if err != nil {
		log.Printf("[WARN] LLM provider unavailable: %v", err)
	} else {
		llmProvider = provider
		log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)
	}

	var searcher search.Provider
	sp, err := searchFactory.NewSearchProvider(cfg.Ai.SearchProvider, cfg.Keys.Tavily)
	if err != nil {
		log.Printf("[WARN] Search provider unavailable: %v", err)
	} else {
		searcher = sp
		log.Printf("[INFO] Using Search Provider: %s", sp.Name())
	}

	// 4. Engine and task registry
	engine := research.NewEngine(
		llmProvider,
		searcher,
		export.NewMarkdownSaver(cfg.Research.OutputDir),
		research.Options{
			ProviderTimeout:  cfg.Research.ProviderTimeout,
			SynthesisTimeout: cfg.Research.SynthesisTimeout,
		},
		sysLogger,
	)
	tasks := memory.NewTaskRepository(cfg.Research.TaskTTL)

	// 5. Event fan-out
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { pubSub.Close() })

	var publisher service.EventPublisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			publisher = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}

	rdb := openRedis(ctx, cfg)
	if rdb != nil {
		c.closers = append(c.closers, func() { rdb.Close() })
	}
	wsHub := websocket.NewHub(rdb, logger.NewIsolatedLogger("logs/notification.log"))
	go wsHub.Run(ctx)
	c.WebSocketHub = wsHub

	lifecycle := service.NewLifecycleService(pubSub, tasks, reports, publisher, wsHub, sysLogger)
	engine.OnEvent(lifecycle.Hook())
	c.LifecycleService = lifecycle

	// 6. Services
	c.ResearchService = service.NewResearchService(engine, tasks, reports, cfg.Research, sysLogger)
	claudeData := usage.NewReader(cfg.Stats.ClaudeDir)
	statsService := service.NewStatsService(claudeData, cfg.Stats.CacheTTL, sysLogger)
	insightsService := service.NewInsightsService(claudeData, cfg.Stats.InsightsCacheTTL, sysLogger)

	// 7. Controllers
	c.ResearchController = controller.NewResearchController(c.ResearchService, wsHub)
	c.StatsController = controller.NewStatsController(statsService, sysLogger)
	c.InsightsController = controller.NewInsightsController(insightsService)

	return c
}

// Close stops running research and releases connections in reverse order.
func (c *Container) Close(ctx context.Context) {
	if err := c.ResearchService.Shutdown(ctx); err != nil {
		log.Printf("[WARN] Research tasks did not stop in time: %v", err)
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}

func openDatabase(cfg *config.Config) *gorm.DB {
	if cfg.Database.Connection == "" {
		log.Println("[INFO] DB_CONNECTION_STRING not set, research reports are not archived")
		return nil
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.App.IsProduction())
	if err != nil {
		log.Printf("[WARN] Unable to connect to GORM DB: %v", err)
		return nil
	}
	if err := db.AutoMigrate(&model.ResearchReport{}); err != nil {
		log.Printf("[WARN] AutoMigrate failed: %v", err)
	}
	return db
}

func openRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.App.RedisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}
