package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/riskctx"
)

func newLoan(id string, interest loan.InterestType, balance int64, industry string) loan.Record {
	return loan.Record{
		LoanID:             id,
		Borrower:           "Borrower " + id,
		Industry:           industry,
		InterestType:       interest,
		PrincipalAmount:    loan.AmountFromInt(balance),
		OutstandingBalance: loan.AmountFromInt(balance),
	}
}

func TestClassify_PIKHighBalanceCriticalContext(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	rec := newLoan("L1", loan.InterestPIK, 12_000_000, "Energy")
	rc := riskctx.RiskContext{
		GlobalRiskScore: 80,
		AffectedSectors: []string{"energy"},
		Sentiment:       riskctx.SentimentCritical,
	}

	got := c.Classify(rec, rc)

	assert.Equal(t, LevelCritical, got.RiskLevel)
	assert.Equal(t, 0.95, got.ShadowDefaultProbability)
	assert.True(t, got.IsPIKRisk)
	assert.Equal(t, []string{
		"PIK interest type",
		"High outstanding balance",
		"High global risk score (80)",
		"Industry affected by geopolitical events: Energy",
		"Critical geopolitical sentiment",
	}, got.RiskFactors)
	assert.Equal(t, "CRITICAL: Borrower L1 has PIK loan with 12,000,000 outstanding. Immediate review required.", got.Recommendation)
}

func TestClassify_SmallCashLoanNeutralContext(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L2", loan.InterestCash, 1_000_000, "Retail"), riskctx.Baseline())

	assert.Equal(t, LevelLow, got.RiskLevel)
	assert.Equal(t, 0.05, got.ShadowDefaultProbability)
	assert.Empty(t, got.RiskFactors)
	assert.False(t, got.IsPIKRisk)
	assert.Equal(t, "LOW RISK: Borrower L2 - Standard monitoring.", got.Recommendation)
}

func TestClassify_ModerateBalanceRaisesToMedium(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L3", loan.InterestCash, 6_000_000, "Retail"), riskctx.Baseline())

	assert.Equal(t, LevelMedium, got.RiskLevel)
	assert.Equal(t, []string{"Moderate outstanding balance"}, got.RiskFactors)
	assert.Equal(t, 0.15, got.ShadowDefaultProbability)
	assert.Equal(t, "MEDIUM RISK: Borrower L3 - Monitor closely.", got.Recommendation)
}

func TestClassify_ModerateFactorRecordedEvenWhenAlreadyHigh(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L4", loan.InterestPIK, 6_000_000, "Retail"), riskctx.Baseline())

	assert.Equal(t, LevelHigh, got.RiskLevel)
	assert.Equal(t, []string{"PIK interest type", "Moderate outstanding balance"}, got.RiskFactors)
	assert.Equal(t, "HIGH RISK: Borrower L4 - PIK interest type, Moderate outstanding balance. Review recommended.", got.Recommendation)
	assert.Equal(t, 0.5, got.ShadowDefaultProbability)
}

func TestClassify_HighBalanceCashIsHighNotCritical(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L5", loan.InterestCash, 20_000_000, "Retail"), riskctx.Baseline())

	assert.Equal(t, LevelHigh, got.RiskLevel)
	assert.Equal(t, 0.45, got.ShadowDefaultProbability)
}

func TestClassify_ContextEscalatesOneStepPerFactor(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	rec := newLoan("L6", loan.InterestCash, 100, "Shipping")

	onlyScore := c.Classify(rec, riskctx.RiskContext{GlobalRiskScore: 71})
	assert.Equal(t, LevelMedium, onlyScore.RiskLevel)
	assert.Equal(t, 0.25, onlyScore.ShadowDefaultProbability)

	scoreAndSector := c.Classify(rec, riskctx.RiskContext{GlobalRiskScore: 71, AffectedSectors: []string{"SHIPPING"}})
	assert.Equal(t, LevelHigh, scoreAndSector.RiskLevel)
	assert.Equal(t,
		"HIGH RISK: Borrower L6 - High global risk score (71), Industry affected by geopolitical events: Shipping. Review recommended.",
		scoreAndSector.Recommendation)

	atThreshold := c.Classify(rec, riskctx.RiskContext{GlobalRiskScore: 70})
	assert.Equal(t, LevelLow, atThreshold.RiskLevel)
}

func TestClassify_CriticalSentimentLiftsToHigh(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L7", loan.InterestCash, 100, "Retail"), riskctx.RiskContext{Sentiment: riskctx.SentimentCritical})

	assert.Equal(t, LevelHigh, got.RiskLevel)
	assert.Equal(t, []string{"Critical geopolitical sentiment"}, got.RiskFactors)
}

func TestClassify_CriticalSentimentMatchedWithoutNormalize(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	got := c.Classify(newLoan("L8", loan.InterestCash, 20_000_000, "Retail"), riskctx.RiskContext{Sentiment: " CRITICAL "})

	assert.Equal(t, LevelHigh, got.RiskLevel)
	assert.Equal(t, []string{"High outstanding balance", "Critical geopolitical sentiment"}, got.RiskFactors)
}

func TestClassify_MonotonicInScore(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	loans := []loan.Record{
		newLoan("a", loan.InterestCash, 100, "Energy"),
		newLoan("b", loan.InterestPIK, 7_000_000, "Energy"),
		newLoan("c", loan.InterestHybrid, 11_000_000, "Retail"),
	}
	for _, rec := range loans {
		prev := LevelLow
		prevPD := 0.0
		for score := 0; score <= 100; score += 5 {
			got := c.Classify(rec, riskctx.RiskContext{GlobalRiskScore: score, AffectedSectors: []string{"energy"}})
			assert.GreaterOrEqual(t, got.RiskLevel, prev, "loan %s score %d", rec.LoanID, score)
			assert.GreaterOrEqual(t, got.ShadowDefaultProbability, prevPD)
			prev = got.RiskLevel
			prevPD = got.ShadowDefaultProbability
		}
	}
}

func TestClassify_ProbabilityBoundsAndIdempotence(t *testing.T) {
	c := NewClassifier(DefaultPolicy())
	contexts := []riskctx.RiskContext{
		riskctx.Baseline(),
		{GlobalRiskScore: 100, AffectedSectors: []string{"energy"}, Sentiment: riskctx.SentimentCritical},
		{GlobalRiskScore: 50, Sentiment: riskctx.SentimentElevated},
	}
	for _, interest := range []loan.InterestType{loan.InterestCash, loan.InterestPIK, loan.InterestHybrid} {
		for _, balance := range []int64{0, 5_000_000, 5_000_001, 10_000_001, 500_000_000} {
			rec := newLoan("x", interest, balance, "Energy")
			for _, rc := range contexts {
				first := c.Classify(rec, rc)
				assert.GreaterOrEqual(t, first.ShadowDefaultProbability, 0.05)
				assert.LessOrEqual(t, first.ShadowDefaultProbability, 0.95)
				assert.Equal(t, first, c.Classify(rec, rc))
			}
		}
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.RiskConfig{HighBalance: 2_000_000, ModerateBalance: 1_000_000, ScoreThreshold: 50})
	assert.True(t, p.HighBalance.Equal(decimal.NewFromInt(2_000_000)))
	assert.Equal(t, 50, p.ScoreThreshold)

	c := NewClassifier(p)
	got := c.Classify(newLoan("cfg", loan.InterestCash, 1_500_000, "Retail"), riskctx.RiskContext{GlobalRiskScore: 60})
	assert.Equal(t, LevelHigh, got.RiskLevel)

	defaults := PolicyFromConfig(config.RiskConfig{})
	assert.Equal(t, DefaultPolicy().ScoreThreshold, defaults.ScoreThreshold)
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	inverted := DefaultPolicy()
	inverted.ModerateBalance = decimal.NewFromInt(20_000_000)
	require.Error(t, inverted.Validate())

	outOfRange := DefaultPolicy()
	outOfRange.ScoreThreshold = 101
	require.Error(t, outOfRange.Validate())
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":          "0",
		"999":        "999",
		"1000":       "1,000",
		"12000000.5": "12,000,000",
		"1234567.51": "1,234,568",
	}
	for in, want := range cases {
		d, err := decimal.NewFromString(in)
		require.NoError(t, err)
		assert.Equal(t, want, formatAmount(d), in)
	}
}

func TestLevel_JSONRoundTrip(t *testing.T) {
	for _, l := range Levels() {
		raw, err := l.MarshalJSON()
		require.NoError(t, err)
		var back Level
		require.NoError(t, back.UnmarshalJSON(raw))
		assert.Equal(t, l, back)
	}
	_, err := ParseLevel("severe")
	require.Error(t, err)
}
