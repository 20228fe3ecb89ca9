package risk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sovereign-sentinel/internal/loan"
)

// Level 是有序的风险等级：low < medium < high < critical。
type Level int

const (
	LevelLow Level = iota
	LevelMedium
	LevelHigh
	LevelCritical
)

var levelNames = [...]string{"low", "medium", "high", "critical"}

// Levels 按严重程度升序列出全部等级。
func Levels() []Level {
	return []Level{LevelLow, LevelMedium, LevelHigh, LevelCritical}
}

func (l Level) String() string {
	if l < LevelLow || l > LevelCritical {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel 不区分大小写地解析等级名称。
func ParseLevel(value string) (Level, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for i, name := range levelNames {
		if name == v {
			return Level(i), nil
		}
	}
	return LevelLow, fmt.Errorf("risk: 未知风险等级 %q", value)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLevel(raw)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Flaggable 表示该等级需要进入审查名单。
func (l Level) Flaggable() bool {
	return l >= LevelHigh
}

// Classification 为单笔贷款的分类结果。
type Classification struct {
	RiskLevel                Level    `json:"risk_level"`
	RiskFactors              []string `json:"risk_factors"`
	Recommendation           string   `json:"recommendation"`
	IsPIKRisk                bool     `json:"is_pik_risk"`
	ShadowDefaultProbability float64  `json:"shadow_default_probability"`
}

// FlaggedLoan 是被标记的贷款：原始记录副本加上标记信息。
type FlaggedLoan struct {
	loan.Record
	FlagReason               string    `json:"flag_reason"`
	RiskLevel                Level     `json:"risk_level"`
	CorrelatedEvent          string    `json:"correlated_event"`
	FlaggedAt                time.Time `json:"flagged_at"`
	RiskFactors              []string  `json:"risk_factors,omitempty"`
	ShadowDefaultProbability float64   `json:"shadow_default_probability"`
}
