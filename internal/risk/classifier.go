package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/riskctx"
)

const (
	factorPIK               = "PIK interest type"
	factorHighBalance       = "High outstanding balance"
	factorModerateBalance   = "Moderate outstanding balance"
	factorCriticalSentiment = "Critical geopolitical sentiment"

	maxShadowProbability = 0.95
)

var baseProbability = map[Level]float64{
	LevelLow:      0.05,
	LevelMedium:   0.15,
	LevelHigh:     0.35,
	LevelCritical: 0.60,
}

// Policy 为分类阈值。
type Policy struct {
	HighBalance     decimal.Decimal
	ModerateBalance decimal.Decimal
	ScoreThreshold  int
}

// DefaultPolicy 返回 10M / 5M / 70 的默认阈值。
func DefaultPolicy() Policy {
	return Policy{
		HighBalance:     decimal.NewFromInt(10_000_000),
		ModerateBalance: decimal.NewFromInt(5_000_000),
		ScoreThreshold:  70,
	}
}

// PolicyFromConfig 从配置构造阈值，缺省项使用默认值。
func PolicyFromConfig(cfg config.RiskConfig) Policy {
	p := DefaultPolicy()
	if cfg.HighBalance > 0 {
		p.HighBalance = decimal.NewFromFloat(cfg.HighBalance)
	}
	if cfg.ModerateBalance > 0 {
		p.ModerateBalance = decimal.NewFromFloat(cfg.ModerateBalance)
	}
	if cfg.ScoreThreshold > 0 {
		p.ScoreThreshold = cfg.ScoreThreshold
	}
	return p
}

// Validate 检查阈值的相对关系。
func (p Policy) Validate() error {
	if !p.ModerateBalance.IsPositive() || !p.HighBalance.IsPositive() {
		return errors.New("risk: 余额阈值必须大于0")
	}
	if !p.ModerateBalance.LessThan(p.HighBalance) {
		return fmt.Errorf("risk: moderate_balance %s 必须小于 high_balance %s", p.ModerateBalance, p.HighBalance)
	}
	if p.ScoreThreshold < 0 || p.ScoreThreshold > 100 {
		return fmt.Errorf("risk: score_threshold %d 必须位于[0,100]", p.ScoreThreshold)
	}
	return nil
}

// Classifier 根据贷款条款与风险上下文给出确定性分类。
type Classifier struct {
	policy Policy
}

// NewClassifier 创建分类器。
func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Policy 返回当前阈值。
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify 依次评估五个因子，等级只升不降。
func (c *Classifier) Classify(rec loan.Record, rc riskctx.RiskContext) Classification {
	level := LevelLow
	factors := make([]string, 0, 5)

	isPIK := rec.InterestType.IsPIK()
	if isPIK {
		level = LevelHigh
		factors = append(factors, factorPIK)
	}

	highBalance := rec.OutstandingBalance.GreaterThan(c.policy.HighBalance)
	switch {
	case highBalance:
		if level == LevelHigh {
			level = LevelCritical
		} else {
			level = maxLevel(level, LevelHigh)
		}
		factors = append(factors, factorHighBalance)
	case rec.OutstandingBalance.GreaterThan(c.policy.ModerateBalance):
		if level == LevelLow {
			level = LevelMedium
		}
		factors = append(factors, factorModerateBalance)
	}

	highScore := rc.GlobalRiskScore > c.policy.ScoreThreshold
	if highScore {
		level = escalate(level)
		factors = append(factors, fmt.Sprintf("High global risk score (%d)", rc.GlobalRiskScore))
	}

	if rc.HasSector(rec.Industry) {
		level = escalate(level)
		factors = append(factors, fmt.Sprintf("Industry affected by geopolitical events: %s", rec.Industry))
	}

	if rc.IsCritical() {
		if level < LevelHigh {
			level = LevelHigh
		}
		factors = append(factors, factorCriticalSentiment)
	}

	return Classification{
		RiskLevel:                level,
		RiskFactors:              factors,
		Recommendation:           recommendation(level, rec, factors),
		IsPIKRisk:                isPIK,
		ShadowDefaultProbability: shadowProbability(level, isPIK, highBalance, highScore),
	}
}

// escalate 将 low 提升到 medium、medium 提升到 high，更高等级不变。
func escalate(level Level) Level {
	switch level {
	case LevelLow:
		return LevelMedium
	case LevelMedium:
		return LevelHigh
	default:
		return level
	}
}

func maxLevel(a, b Level) Level {
	if a > b {
		return a
	}
	return b
}

func recommendation(level Level, rec loan.Record, factors []string) string {
	switch level {
	case LevelCritical:
		return fmt.Sprintf("CRITICAL: %s has PIK loan with %s outstanding. Immediate review required.",
			rec.Borrower, formatAmount(rec.OutstandingBalance.Decimal))
	case LevelHigh:
		top := factors
		if len(top) > 2 {
			top = top[:2]
		}
		return fmt.Sprintf("HIGH RISK: %s - %s. Review recommended.", rec.Borrower, strings.Join(top, ", "))
	case LevelMedium:
		return fmt.Sprintf("MEDIUM RISK: %s - Monitor closely.", rec.Borrower)
	default:
		return fmt.Sprintf("LOW RISK: %s - Standard monitoring.", rec.Borrower)
	}
}

func shadowProbability(level Level, isPIK, highBalance, highScore bool) float64 {
	p := baseProbability[level]
	if isPIK {
		p += 0.15
	}
	if highBalance {
		p += 0.10
	}
	if highScore {
		p += 0.10
	}
	p = math.Min(p, maxShadowProbability)
	return math.Round(p*10_000) / 10_000
}

// formatAmount 四舍五入到整数并加千位分隔符，例如 12,000,001。
func formatAmount(amount decimal.Decimal) string {
	digits := amount.RoundBank(0).Abs().StringFixed(0)

	var b strings.Builder
	if amount.RoundBank(0).IsNegative() {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
