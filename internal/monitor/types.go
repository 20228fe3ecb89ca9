package monitor

import (
	"time"

	"sovereign-sentinel/internal/riskctx"
)

// EventType 表示监控事件类型。
type EventType string

const (
	EventContextRefreshed     EventType = "context_refreshed"
	EventContextRefreshFailed EventType = "context_refresh_failed"
	EventPortfolioAnalyzed    EventType = "portfolio_analyzed"
	EventExtractionFailed     EventType = "extraction_failed"
	EventStressTested         EventType = "stress_tested"
)

// ParseEventType 校验事件类型，空字符串表示不过滤。
func ParseEventType(value string) (EventType, bool) {
	switch t := EventType(value); t {
	case "", EventContextRefreshed, EventContextRefreshFailed, EventPortfolioAnalyzed, EventExtractionFailed, EventStressTested:
		return t, true
	default:
		return "", false
	}
}

// Event 封装通用监控事件。
type Event struct {
	ID        int64       `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RefreshPayload 记录一次成功的风险上下文刷新。
type RefreshPayload struct {
	Context   riskctx.RiskContext `json:"context"`
	ElapsedMs int64               `json:"elapsed_ms"`
}

// RefreshFailedPayload 记录刷新失败。
type RefreshFailedPayload struct {
	Error     string `json:"error"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// AnalysisPayload 记录一次组合分析的摘要。
type AnalysisPayload struct {
	Source         string         `json:"source,omitempty"`
	Method         string         `json:"analysis_method"`
	TotalLoans     int            `json:"total_loans"`
	FlaggedCount   int            `json:"flagged_count"`
	ContextID      string         `json:"context_id,omitempty"`
	LevelCounts    map[string]int `json:"level_counts"`
	FlaggedLoanIDs []string       `json:"flagged_loan_ids"`
}

// ExtractionFailedPayload 记录数据抽取失败。
type ExtractionFailedPayload struct {
	Source       string `json:"source"`
	ConnectionID string `json:"connection_id"`
	Error        string `json:"error"`
}

// StressPayload 记录一次压力测试。
type StressPayload struct {
	TotalLoans int      `json:"total_loans"`
	Scenarios  []string `json:"scenarios"`
}
