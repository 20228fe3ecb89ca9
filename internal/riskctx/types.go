package riskctx

import (
	"encoding/json"
	"strings"
	"time"
)

// Sentiment 表示地缘情绪等级。
type Sentiment string

const (
	SentimentNeutral  Sentiment = "neutral"
	SentimentElevated Sentiment = "elevated"
	SentimentCritical Sentiment = "critical"
)

// ParseSentiment 解析情绪等级，未知取值按 neutral 处理。
func ParseSentiment(value string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(value))) {
	case SentimentCritical:
		return SentimentCritical
	case SentimentElevated:
		return SentimentElevated
	default:
		return SentimentNeutral
	}
}

// UnmarshalJSON 将任意字符串规整为合法情绪等级。
func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSentiment(raw)
	return nil
}

// DefaultCorrelatedEvent 用于尚无快照时的基线上下文。
const DefaultCorrelatedEvent = "Current geopolitical events"

// RiskContext 是某一时刻的聚合风险信号快照，发布后只读。
type RiskContext struct {
	ID              string    `json:"id"`
	Version         uint64    `json:"version"`
	GlobalRiskScore int       `json:"global_risk_score"`
	AffectedSectors []string  `json:"affected_sectors"`
	Sentiment       Sentiment `json:"sentiment"`
	CorrelatedEvent string    `json:"correlated_event"`
	CapturedAt      time.Time `json:"captured_at"`
	Method          string    `json:"method,omitempty"`
	Sources         []string  `json:"sources,omitempty"`
}

// Baseline 返回全部字段取默认值的中性上下文。
func Baseline() RiskContext {
	return RiskContext{
		AffectedSectors: []string{},
		Sentiment:       SentimentNeutral,
		CorrelatedEvent: DefaultCorrelatedEvent,
	}
}

// Normalize 返回填充默认值后的副本：评分截断到 [0,100]，情绪缺省为 neutral。
func (c RiskContext) Normalize() RiskContext {
	out := c
	switch {
	case out.GlobalRiskScore < 0:
		out.GlobalRiskScore = 0
	case out.GlobalRiskScore > 100:
		out.GlobalRiskScore = 100
	}
	out.Sentiment = ParseSentiment(string(out.Sentiment))

	sectors := make([]string, 0, len(c.AffectedSectors))
	for _, s := range c.AffectedSectors {
		if s = strings.TrimSpace(s); s != "" {
			sectors = append(sectors, s)
		}
	}
	out.AffectedSectors = sectors

	if c.Sources != nil {
		out.Sources = append([]string(nil), c.Sources...)
	}
	return out
}

// Clone 返回不共享切片的副本。
func (c RiskContext) Clone() RiskContext {
	out := c
	out.AffectedSectors = cloneStrings(c.AffectedSectors)
	out.Sources = cloneStrings(c.Sources)
	return out
}

// HasSector 不区分大小写地判断行业是否在受影响行业中。
func (c RiskContext) HasSector(industry string) bool {
	for _, s := range c.AffectedSectors {
		if strings.EqualFold(s, industry) {
			return true
		}
	}
	return false
}

// IsCritical 判断情绪是否为 critical，未经 Normalize 的大小写变体同样识别。
func (c RiskContext) IsCritical() bool {
	return ParseSentiment(string(c.Sentiment)) == SentimentCritical
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
