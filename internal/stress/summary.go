package stress

import (
	"math"

	"github.com/shopspring/decimal"

	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
)

// Result 汇总单个场景下的组合表现。
type Result struct {
	Name                            string              `json:"name"`
	Context                         riskctx.RiskContext `json:"context"`
	FlaggedCount                    int                 `json:"flagged_count"`
	FlaggedExposure                 loan.Amount         `json:"flagged_exposure"`
	ExpectedLoss                    loan.Amount         `json:"expected_loss"`
	AverageShadowDefaultProbability float64             `json:"average_shadow_default_probability"`
	LevelCounts                     map[string]int      `json:"level_counts"`
	TopExposures                    []string            `json:"top_exposures"`
}

const topExposureCount = 5

// summarize 根据全部分类与标记结果计算场景指标。
func summarize(name string, rc riskctx.RiskContext, classified []classifiedLoan, flagged []risk.FlaggedLoan) Result {
	levels := make(map[string]int, len(risk.Levels()))
	for _, l := range risk.Levels() {
		levels[l.String()] = 0
	}

	expectedLoss := decimal.Zero
	sumPD := 0.0
	for _, c := range classified {
		levels[c.classification.RiskLevel.String()]++
		pd := decimal.NewFromFloat(c.classification.ShadowDefaultProbability)
		expectedLoss = expectedLoss.Add(c.balance.Mul(pd))
		sumPD += c.classification.ShadowDefaultProbability
	}

	avgPD := 0.0
	if len(classified) > 0 {
		avgPD = math.Round(sumPD/float64(len(classified))*10_000) / 10_000
	}

	exposure := decimal.Zero
	for _, fl := range flagged {
		exposure = exposure.Add(fl.OutstandingBalance.Decimal)
	}

	ranked := risk.RankByExposure(flagged)
	top := make([]string, 0, topExposureCount)
	for i := 0; i < len(ranked) && i < topExposureCount; i++ {
		top = append(top, ranked[i].LoanID)
	}

	return Result{
		Name:                            name,
		Context:                         rc,
		FlaggedCount:                    len(flagged),
		FlaggedExposure:                 loan.NewAmount(exposure),
		ExpectedLoss:                    loan.NewAmount(expectedLoss.Round(2)),
		AverageShadowDefaultProbability: avgPD,
		LevelCounts:                     levels,
		TopExposures:                    top,
	}
}
