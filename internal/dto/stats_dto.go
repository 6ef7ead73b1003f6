package dto

import "claudebuddy-be/pkg/usage"

type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	ClaudeDir     string `json:"claudeDir"`
	HasClaudeData bool   `json:"hasClaudeData"`
	Platform      string `json:"platform"`
	GoVersion     string `json:"goVersion"`
}

type StatsResponse struct {
	Stats        map[string]interface{} `json:"stats"`
	StartupCount int                    `json:"startupCount"`
	Theme        string                 `json:"theme"`
	AutoUpdates  bool                   `json:"autoUpdates"`
	Costs        usage.CostSummary      `json:"costs"`
	Charts       usage.Charts           `json:"charts"`
	Message      string                 `json:"message,omitempty"`
}

type LogListRequest struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=1000"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

type RefreshRequest struct {
	Refresh string `query:"refresh" validate:"omitempty,oneof=0 1"`
}

type DailyInsightsRequest struct {
	Date    string `query:"date" validate:"omitempty,datetime=2006-01-02"`
	Refresh string `query:"refresh" validate:"omitempty,oneof=0 1"`
}

type InsightsWindowRequest struct {
	Days    int    `query:"days" validate:"omitempty,min=1,max=90"`
	Refresh string `query:"refresh" validate:"omitempty,oneof=0 1"`
}
