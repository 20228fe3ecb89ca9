package stress

import (
	"errors"
	"fmt"
	"strings"

	"sovereign-sentinel/internal/riskctx"
)

// CurrentScenario 是基于当前（或基线）上下文的场景名称，总是排在第一位。
const CurrentScenario = "current"

// MaxScenarios 限制单次请求的假设场景数量。
const MaxScenarios = 20

// Scenario 是一个假设的风险上下文。
type Scenario struct {
	Name            string   `json:"name" binding:"required"`
	GlobalRiskScore int      `json:"global_risk_score" binding:"min=0,max=100"`
	AffectedSectors []string `json:"affected_sectors"`
	Sentiment       string   `json:"sentiment" binding:"omitempty,oneof=neutral elevated critical"`
	CorrelatedEvent string   `json:"correlated_event"`
}

// Context 将场景转换为规范化的风险上下文。
func (s Scenario) Context() riskctx.RiskContext {
	event := strings.TrimSpace(s.CorrelatedEvent)
	if event == "" {
		event = s.Name
	}
	return riskctx.RiskContext{
		GlobalRiskScore: s.GlobalRiskScore,
		AffectedSectors: s.AffectedSectors,
		Sentiment:       riskctx.ParseSentiment(s.Sentiment),
		CorrelatedEvent: event,
		Method:          "scenario",
	}.Normalize()
}

// ValidateScenarios 检查数量与名称唯一性。
func ValidateScenarios(scenarios []Scenario) error {
	if len(scenarios) > MaxScenarios {
		return fmt.Errorf("stress: 场景数量不能超过 %d", MaxScenarios)
	}
	var errs []error
	seen := make(map[string]struct{}, len(scenarios))
	for i, s := range scenarios {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("stress: 第 %d 个场景缺少名称", i+1))
		case name == CurrentScenario:
			errs = append(errs, fmt.Errorf("stress: 场景名称 %q 为保留名称", s.Name))
		default:
			if _, dup := seen[name]; dup {
				errs = append(errs, fmt.Errorf("stress: 场景名称 %q 重复", s.Name))
			}
			seen[name] = struct{}{}
		}
	}
	return errors.Join(errs...)
}
