package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
	"sovereign-sentinel/internal/store"
)

const maxListLimit = 1000

// Service 负责持久化监控事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS monitor_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_monitor_events_type ON monitor_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monitor_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

func (s *Service) record(ctx context.Context, typ EventType, payload interface{}, failMsg string) {
	if err := s.Record(ctx, Event{Type: typ, Payload: payload}); err != nil {
		s.logger.Warn(failMsg, zap.Error(err))
	}
}

// RefreshSucceeded 实现 riskctx.Observer。
func (s *Service) RefreshSucceeded(ctx context.Context, snapshot riskctx.RiskContext, elapsed time.Duration) {
	s.record(ctx, EventContextRefreshed, RefreshPayload{
		Context:   snapshot,
		ElapsedMs: elapsed.Milliseconds(),
	}, "记录刷新事件失败")
}

// RefreshFailed 实现 riskctx.Observer。
func (s *Service) RefreshFailed(ctx context.Context, err error, elapsed time.Duration) {
	s.record(ctx, EventContextRefreshFailed, RefreshFailedPayload{
		Error:     err.Error(),
		ElapsedMs: elapsed.Milliseconds(),
	}, "记录刷新失败事件失败")
}

// RecordAnalysis 记录组合分析摘要。
func (s *Service) RecordAnalysis(ctx context.Context, source string, contextID string, analysis risk.Analysis) {
	levels := make(map[string]int, len(risk.Levels()))
	ids := make([]string, 0, len(analysis.Flagged))
	for _, fl := range analysis.Flagged {
		levels[fl.RiskLevel.String()]++
		ids = append(ids, fl.LoanID)
	}
	s.record(ctx, EventPortfolioAnalyzed, AnalysisPayload{
		Source:         source,
		Method:         string(analysis.Method),
		TotalLoans:     analysis.TotalLoans,
		FlaggedCount:   analysis.FlaggedCount,
		ContextID:      contextID,
		LevelCounts:    levels,
		FlaggedLoanIDs: ids,
	}, "记录分析事件失败")
}

// RecordExtractionFailure 记录数据抽取失败。
func (s *Service) RecordExtractionFailure(ctx context.Context, source, connectionID string, err error) {
	s.record(ctx, EventExtractionFailed, ExtractionFailedPayload{
		Source:       source,
		ConnectionID: connectionID,
		Error:        err.Error(),
	}, "记录抽取失败事件失败")
}

// RecordStress 记录压力测试。
func (s *Service) RecordStress(ctx context.Context, totalLoans int, scenarios []string) {
	s.record(ctx, EventStressTested, StressPayload{
		TotalLoans: totalLoans,
		Scenarios:  scenarios,
	}, "记录压力测试事件失败")
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT id, event_type, payload, created_at FROM monitor_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			id      int64
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&id, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = s.now()
		}

		events = append(events, Event{
			ID:        id,
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
	}

	return events, nil
}
