package ai

import (
	"errors"
	"fmt"
	"strings"

	"sovereign-sentinel/internal/riskctx"
)

// Assessment 表示大模型返回的地缘风险评估。
type Assessment struct {
	GlobalRiskScore int      `json:"global_risk_score"`
	AffectedSectors []string `json:"affected_sectors"`
	Sentiment       string   `json:"sentiment"`
	CorrelatedEvent string   `json:"correlated_event"`
	Reasoning       string   `json:"reasoning"`
}

var validSentiments = map[string]struct{}{
	"neutral":  {},
	"elevated": {},
	"critical": {},
}

// Validate 校验评估字段合法性。
func (a Assessment) Validate() error {
	if a.GlobalRiskScore < 0 || a.GlobalRiskScore > 100 {
		return fmt.Errorf("global_risk_score 必须位于 [0,100]，当前为 %d", a.GlobalRiskScore)
	}
	sentiment := strings.ToLower(strings.TrimSpace(a.Sentiment))
	if sentiment == "" {
		return errors.New("sentiment 不能为空")
	}
	if _, ok := validSentiments[sentiment]; !ok {
		return fmt.Errorf("sentiment 字段取值非法: %s", a.Sentiment)
	}
	if strings.TrimSpace(a.CorrelatedEvent) == "" {
		return errors.New("correlated_event 不能为空")
	}
	return nil
}

// RiskContext 转换为风险上下文。
func (a Assessment) RiskContext() riskctx.RiskContext {
	return riskctx.RiskContext{
		GlobalRiskScore: a.GlobalRiskScore,
		AffectedSectors: append([]string(nil), a.AffectedSectors...),
		Sentiment:       riskctx.ParseSentiment(a.Sentiment),
		CorrelatedEvent: strings.TrimSpace(a.CorrelatedEvent),
	}
}
