package risk

import (
	"strings"
	"time"

	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/riskctx"
)

// DefaultRiskySectors 是传统审计默认关注的行业。
var DefaultRiskySectors = []string{"energy", "currency", "sovereign debt"}

// SectorAuditor 是不依赖风险评分的传统规则审计：PIK 或高危行业即标记。
type SectorAuditor struct {
	sectors []string
	now     func() time.Time
}

// NewSectorAuditor 创建传统审计器，sectors 为空时使用默认行业。
func NewSectorAuditor(sectors []string, now func() time.Time) *SectorAuditor {
	cleaned := make([]string, 0, len(sectors))
	for _, s := range sectors {
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultRiskySectors...)
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &SectorAuditor{sectors: cleaned, now: now}
}

// Sectors 返回审计关注的行业。
func (a *SectorAuditor) Sectors() []string {
	return append([]string(nil), a.sectors...)
}

// Audit 标记 PIK 或处于高危行业的贷款，两者同时满足时为 critical。
func (a *SectorAuditor) Audit(loans []loan.Record, rc riskctx.RiskContext) []FlaggedLoan {
	flaggedAt := a.now()
	event := correlatedEvent(rc)

	out := make([]FlaggedLoan, 0)
	for _, rec := range loans {
		isPIK := rec.InterestType.IsPIK()
		risky := a.isRiskySector(rec.Industry)
		if !isPIK && !risky {
			continue
		}

		factors := make([]string, 0, 2)
		if isPIK {
			factors = append(factors, factorPIK)
		}
		if risky {
			factors = append(factors, "Risky sector: "+rec.Industry)
		}

		level := LevelHigh
		if isPIK && risky {
			level = LevelCritical
		}

		out = append(out, FlaggedLoan{
			Record:                   rec.Clone(),
			FlagReason:               "Forensic audit: " + strings.Join(factors, ", "),
			RiskLevel:                level,
			CorrelatedEvent:          event,
			FlaggedAt:                flaggedAt,
			RiskFactors:              factors,
			ShadowDefaultProbability: shadowProbability(level, isPIK, false, false),
		})
	}
	return out
}

func (a *SectorAuditor) isRiskySector(industry string) bool {
	for _, s := range a.sectors {
		if strings.EqualFold(s, strings.TrimSpace(industry)) {
			return true
		}
	}
	return false
}
