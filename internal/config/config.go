package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Keys      APIKeys
	Ai        AIConfig
	Research  ResearchConfig
	Stats     StatsConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	ClientDistDir      string
	JwtSecret          string // empty disables API auth
	NatsURL            string // empty disables the NATS publisher
	RedisURL           string // empty keeps the websocket hub local
}

func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type DatabaseConfig struct {
	Connection string // empty disables the report archive
}

type APIKeys struct {
	Anthropic    string
	Tavily       string
	GoogleGemini string
}

type AIConfig struct {
	LLMProvider    string // "anthropic", "gemini" or "ollama"
	LLMModel       string
	OllamaBaseURL  string
	SearchProvider string // "tavily" or "duckduckgo"
}

type ResearchConfig struct {
	DefaultMaxSearches int
	MaxActiveTasks     int
	ProviderTimeout    time.Duration
	SynthesisTimeout   time.Duration
	TaskTTL            time.Duration
	OutputDir          string
}

type StatsConfig struct {
	ClaudeDir        string
	CacheTTL         time.Duration
	InsightsCacheTTL time.Duration
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8765"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "claudebuddy.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			ClientDistDir:      getEnv("CLIENT_DIST_DIR", "../client/dist"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Anthropic:    getEnv("ANTHROPIC_API_KEY", ""),
			Tavily:       getEnv("TAVILY_API_KEY", ""),
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", "anthropic"),
			LLMModel:       getEnv("LLM_MODEL", ""),
			OllamaBaseURL:  getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			SearchProvider: getEnv("SEARCH_PROVIDER", "tavily"),
		},
		Research: ResearchConfig{
			DefaultMaxSearches: getEnvAsInt("RESEARCH_DEFAULT_MAX_SEARCHES", 5),
			MaxActiveTasks:     getEnvAsInt("RESEARCH_MAX_ACTIVE_TASKS", 4),
			ProviderTimeout:    getEnvAsDuration("RESEARCH_PROVIDER_TIMEOUT", 30*time.Second),
			SynthesisTimeout:   getEnvAsDuration("RESEARCH_SYNTHESIS_TIMEOUT", 120*time.Second),
			TaskTTL:            getEnvAsDuration("RESEARCH_TASK_TTL", time.Hour),
			OutputDir:          getEnv("RESEARCH_OUTPUT_DIR", "research"),
		},
		Stats: StatsConfig{
			ClaudeDir:        getEnv("CLAUDE_DIR", ""),
			CacheTTL:         getEnvAsDuration("STATS_CACHE_TTL", 30*time.Second),
			InsightsCacheTTL: getEnvAsDuration("INSIGHTS_CACHE_TTL", 5*time.Minute),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getEnvAsBool("OTEL_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
