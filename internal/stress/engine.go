package stress

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
)

type classifiedLoan struct {
	balance        decimal.Decimal
	classification risk.Classification
}

// Engine 在多个假设上下文下重放同一组合，不计入分类指标。
type Engine struct {
	classifier *risk.Classifier
	flagger    *risk.Flagger
	logger     *zap.Logger
}

// NewEngine 构建压力测试引擎。
func NewEngine(classifier *risk.Classifier, logger *zap.Logger) (*Engine, error) {
	if classifier == nil {
		return nil, fmt.Errorf("stress: classifier 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		classifier: classifier,
		flagger:    risk.NewFlagger(classifier),
		logger:     logger,
	}, nil
}

// Run 并发执行全部场景，结果顺序为 current 在前，其后与输入一致。
func (e *Engine) Run(ctx context.Context, loans []loan.Record, current riskctx.RiskContext, scenarios []Scenario) ([]Result, error) {
	if err := ValidateScenarios(scenarios); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(scenarios)+1)
	contexts := make([]riskctx.RiskContext, 0, len(scenarios)+1)
	names = append(names, CurrentScenario)
	contexts = append(contexts, current)
	for _, s := range scenarios {
		names = append(names, s.Name)
		contexts = append(contexts, s.Context())
	}

	results := make([]Result, len(contexts))
	group, groupCtx := errgroup.WithContext(ctx)
	for i := range contexts {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			results[i] = e.runScenario(names[i], contexts[i], loans)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("stress: 执行中断: %w", err)
	}

	e.logger.Info("压力测试完成",
		zap.Int("loans", len(loans)),
		zap.Int("scenarios", len(results)),
	)
	return results, nil
}

func (e *Engine) runScenario(name string, rc riskctx.RiskContext, loans []loan.Record) Result {
	classified := make([]classifiedLoan, 0, len(loans))
	for _, rec := range loans {
		classified = append(classified, classifiedLoan{
			balance:        rec.OutstandingBalance.Decimal,
			classification: e.classifier.Classify(rec, rc),
		})
	}
	return summarize(name, rc, classified, e.flagger.Flag(loans, rc))
}
