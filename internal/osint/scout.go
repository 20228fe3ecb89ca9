package osint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sovereign-sentinel/internal/riskctx"
)

const maxSources = 20

// Assessor 将收集到的信号转换为风险上下文，通常由大模型实现。
type Assessor interface {
	Assess(ctx context.Context, results []TopicSignals) (riskctx.RiskContext, error)
}

// Scout 并发扫描全部主题并生成风险上下文快照。
type Scout struct {
	source    SignalSource
	topics    []Topic
	assessor  Assessor
	heuristic Heuristic
	logger    *zap.Logger
	now       func() time.Time
}

// NewScout 创建扫描器，assessor 为 nil 时只使用关键词启发式。
func NewScout(source SignalSource, topics []Topic, assessor Assessor, logger *zap.Logger) (*Scout, error) {
	if source == nil {
		return nil, errors.New("osint: source 不能为空")
	}
	if len(topics) == 0 {
		return nil, errors.New("osint: 至少需要一个扫描主题")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scout{
		source:   source,
		topics:   append([]Topic(nil), topics...),
		assessor: assessor,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Topics 返回扫描主题。
func (s *Scout) Topics() []Topic {
	return append([]Topic(nil), s.topics...)
}

// Capture 实现 riskctx.Source。任一主题失败则整体失败。
func (s *Scout) Capture(ctx context.Context) (riskctx.RiskContext, error) {
	results := make([]TopicSignals, len(s.topics))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, topic := range s.topics {
		group.Go(func() error {
			signals, err := s.source.Query(groupCtx, topic)
			if err != nil {
				return err
			}
			results[i] = TopicSignals{Topic: topic, Signals: signals}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return riskctx.RiskContext{}, fmt.Errorf("osint: 扫描失败: %w", err)
	}

	rc := s.assess(ctx, results)
	rc.Sources = collectSources(results)
	rc.CapturedAt = s.now()

	s.logger.Info("OSINT 扫描完成",
		zap.Int("topics", len(results)),
		zap.Int("global_risk_score", rc.GlobalRiskScore),
		zap.String("sentiment", string(rc.Sentiment)),
		zap.String("method", rc.Method),
	)
	return rc, nil
}

func (s *Scout) assess(ctx context.Context, results []TopicSignals) riskctx.RiskContext {
	if s.assessor != nil {
		rc, err := s.assessor.Assess(ctx, results)
		if err == nil {
			rc.Method = "ai"
			return rc
		}
		s.logger.Warn("AI 评估失败，回退到关键词评估", zap.Error(err))
	}
	return s.heuristic.Assess(results)
}

func collectSources(results []TopicSignals) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, ts := range results {
		for _, sig := range ts.Signals {
			if sig.URL == "" {
				continue
			}
			if _, ok := seen[sig.URL]; ok {
				continue
			}
			seen[sig.URL] = struct{}{}
			out = append(out, sig.URL)
			if len(out) == maxSources {
				return out
			}
		}
	}
	return out
}
