package risk

import (
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/riskctx"
)

// Method 标识组合分析所用的方法。
type Method string

const (
	MethodAI          Method = "ai"
	MethodTraditional Method = "traditional"
)

// MethodFor 将 use_ai 开关映射为分析方法。
func MethodFor(useAI bool) Method {
	if useAI {
		return MethodAI
	}
	return MethodTraditional
}

// Analysis 为一次组合分析的结果，Flagged 已按敞口排序。
type Analysis struct {
	TotalLoans   int           `json:"total_loans"`
	FlaggedCount int           `json:"flagged_count"`
	Method       Method        `json:"analysis_method"`
	Flagged      []FlaggedLoan `json:"flagged_loans"`
}

// Analyzer 组合分类标记、传统审计与排序。
type Analyzer struct {
	flagger  *Flagger
	auditor  *SectorAuditor
	recorder Recorder
}

// NewAnalyzer 创建组合分析器。
func NewAnalyzer(flagger *Flagger, auditor *SectorAuditor, recorder Recorder) *Analyzer {
	if flagger == nil {
		flagger = NewFlagger(nil, WithRecorder(recorder))
	}
	if auditor == nil {
		auditor = NewSectorAuditor(nil, nil)
	}
	return &Analyzer{flagger: flagger, auditor: auditor, recorder: recorder}
}

// Flagger 返回评分标记器。
func (a *Analyzer) Flagger() *Flagger {
	return a.flagger
}

// Analyze 对组合执行分析并按未偿余额排序。
func (a *Analyzer) Analyze(loans []loan.Record, rc riskctx.RiskContext, method Method) Analysis {
	var flagged []FlaggedLoan
	if method == MethodTraditional {
		flagged = a.auditor.Audit(loans, rc)
	} else {
		method = MethodAI
		flagged = a.flagger.Flag(loans, rc)
	}
	if a.recorder != nil {
		a.recorder.LoansFlagged(method, len(flagged))
	}

	return Analysis{
		TotalLoans:   len(loans),
		FlaggedCount: len(flagged),
		Method:       method,
		Flagged:      RankByExposure(flagged),
	}
}
