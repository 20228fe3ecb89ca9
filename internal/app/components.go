package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"sovereign-sentinel/internal/ai"
	"sovereign-sentinel/internal/capability"
	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/connector"
	"sovereign-sentinel/internal/metrics"
	"sovereign-sentinel/internal/monitor"
	"sovereign-sentinel/internal/notify"
	"sovereign-sentinel/internal/osint"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/store"
	"sovereign-sentinel/internal/stress"
)

// buildScout 创建 OSINT 扫描器，assessor 不可用时只使用关键词评估。
func buildScout(cfg config.OSINTConfig, assessor capability.Capability[*ai.Client], logger *zap.Logger) (*osint.Scout, error) {
	client, err := osint.NewSearchClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	var a osint.Assessor
	if c, ok := assessor.Get(); ok {
		a = c
	}
	return osint.NewScout(client, osint.TopicsFromConfig(cfg.Topics), a, logger)
}

// buildRegistry 注册所有已配置凭据的数据源，一个都没有时返回错误。
func buildRegistry(cfg *config.Config, logger *zap.Logger) (*connector.Registry, error) {
	registry := connector.NewRegistry(logger)

	composio, err := connector.NewComposioClient(cfg.Composio, logger)
	if err == nil {
		xero, xeroErr := connector.NewXeroConnector(composio)
		if xeroErr != nil {
			return nil, xeroErr
		}
		quickbooks, qbErr := connector.NewQuickBooksConnector(composio)
		if qbErr != nil {
			return nil, qbErr
		}
		registry.Register(connector.SourceXero, xero)
		registry.Register(connector.SourceQuickBooks, quickbooks)
	} else {
		logger.Info("Xero / QuickBooks 未启用", zap.Error(err))
	}

	if stripe, stripeErr := connector.NewStripeConnector(cfg.Stripe.APIKey); stripeErr == nil {
		registry.Register(connector.SourceStripe, stripe)
	} else {
		logger.Info("Stripe 未启用", zap.Error(stripeErr))
	}

	if registry.Len() == 0 {
		return nil, errors.New("未配置任何数据源凭据 (composio / stripe)")
	}
	return registry, nil
}

// buildRisk 根据阈值配置创建分类器与组合分析器。
func buildRisk(cfg config.RiskConfig, m *metrics.Metrics) (*risk.Classifier, *risk.Analyzer, error) {
	policy := risk.PolicyFromConfig(cfg)
	if err := policy.Validate(); err != nil {
		return nil, nil, err
	}
	classifier := risk.NewClassifier(policy)
	flagger := risk.NewFlagger(classifier, risk.WithRecorder(m))
	auditor := risk.NewSectorAuditor(cfg.RiskySectors, nil)
	return classifier, risk.NewAnalyzer(flagger, auditor, m), nil
}

func buildStress(classifier *risk.Classifier, logger *zap.Logger) (*stress.Engine, error) {
	if classifier == nil {
		return nil, errors.New("分类器不可用")
	}
	return stress.NewEngine(classifier, logger)
}

// buildJournal 打开 SQLite 并初始化事件表。
func buildJournal(cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, *monitor.Service, error) {
	st, err := store.NewSQLite(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc, err := monitor.NewService(st, logger)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, svc, nil
}

func buildNotifier(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (*notify.Publisher, error) {
	return notify.NewPublisher(ctx, cfg, logger)
}

// logUnavailable 记录不可用的可选组件。
func logUnavailable[T any](logger *zap.Logger, component string, c capability.Capability[T]) {
	if c.IsAvailable() {
		logger.Info("组件已启用", zap.String("component", component))
		return
	}
	logger.Warn("组件不可用，相关接口将返回 503",
		zap.String("component", component),
		zap.String("reason", c.Reason()),
	)
}
