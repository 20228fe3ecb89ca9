package risk

import (
	"sort"
	"time"

	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/riskctx"
)

// Recorder 接收分类与标记统计，nil 表示不记录。
type Recorder interface {
	ClassificationObserved(level Level)
	LoansFlagged(method Method, count int)
}

// Flagger 对组合逐笔分类，保留 high 与 critical 的贷款。
type Flagger struct {
	classifier *Classifier
	now        func() time.Time
	recorder   Recorder
}

// FlaggerOption 配置 Flagger。
type FlaggerOption func(*Flagger)

// WithFlaggerClock 指定标记时间来源。
func WithFlaggerClock(now func() time.Time) FlaggerOption {
	return func(f *Flagger) {
		if now != nil {
			f.now = now
		}
	}
}

// WithRecorder 注册统计接收者。
func WithRecorder(r Recorder) FlaggerOption {
	return func(f *Flagger) {
		f.recorder = r
	}
}

// NewFlagger 创建组合标记器。
func NewFlagger(classifier *Classifier, opts ...FlaggerOption) *Flagger {
	if classifier == nil {
		classifier = NewClassifier(DefaultPolicy())
	}
	f := &Flagger{
		classifier: classifier,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Classifier 返回底层分类器。
func (f *Flagger) Classifier() *Classifier {
	return f.classifier
}

// Flag 按输入顺序返回需要审查的贷款，输入切片不被修改。
func (f *Flagger) Flag(loans []loan.Record, rc riskctx.RiskContext) []FlaggedLoan {
	flaggedAt := f.now()
	event := correlatedEvent(rc)

	out := make([]FlaggedLoan, 0)
	for _, rec := range loans {
		c := f.classifier.Classify(rec, rc)
		if f.recorder != nil {
			f.recorder.ClassificationObserved(c.RiskLevel)
		}
		if !c.RiskLevel.Flaggable() {
			continue
		}
		out = append(out, FlaggedLoan{
			Record:                   rec.Clone(),
			FlagReason:               c.Recommendation,
			RiskLevel:                c.RiskLevel,
			CorrelatedEvent:          event,
			FlaggedAt:                flaggedAt,
			RiskFactors:              c.RiskFactors,
			ShadowDefaultProbability: c.ShadowDefaultProbability,
		})
	}
	return out
}

// RankByExposure 按未偿余额降序返回新切片，余额相同保持原顺序。
func RankByExposure(flagged []FlaggedLoan) []FlaggedLoan {
	ranked := make([]FlaggedLoan, len(flagged))
	copy(ranked, flagged)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].OutstandingBalance.GreaterThan(ranked[j].OutstandingBalance.Decimal)
	})
	return ranked
}

func correlatedEvent(rc riskctx.RiskContext) string {
	if rc.CorrelatedEvent == "" {
		return riskctx.DefaultCorrelatedEvent
	}
	return rc.CorrelatedEvent
}
