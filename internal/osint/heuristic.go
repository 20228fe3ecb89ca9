package osint

import (
	"strings"
	"unicode"

	"sovereign-sentinel/internal/riskctx"
)

const (
	criticalWeight = 15
	elevatedWeight = 5
	maxScore       = 100

	sectorThreshold   = 40
	criticalThreshold = 70
	elevatedThreshold = 40
)

var (
	criticalKeywords = []string{"war", "sanction", "default", "invasion", "collapse", "embargo", "coup"}
	elevatedKeywords = []string{"tension", "volatility", "protest", "downgrade", "inflation", "tariff"}
)

// Heuristic 在没有大模型时用关键词为信号打分。
type Heuristic struct{}

// Assess 汇总全部主题的关键词命中，生成风险上下文。
func (Heuristic) Assess(results []TopicSignals) riskctx.RiskContext {
	total := 0
	bestScore := 0
	bestTitle := ""
	sectors := make([]string, 0)
	seen := make(map[string]struct{})

	for _, ts := range results {
		topicScore := 0
		for _, sig := range ts.Signals {
			s := scoreText(sig.Title + " " + sig.Snippet)
			topicScore += s
			if s > bestScore {
				bestScore = s
				bestTitle = sig.Title
			}
		}
		total += topicScore

		sector := strings.TrimSpace(ts.Topic.Sector)
		if sector == "" || capScore(topicScore) < sectorThreshold {
			continue
		}
		key := strings.ToLower(sector)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		sectors = append(sectors, sector)
	}

	score := capScore(total)
	rc := riskctx.RiskContext{
		GlobalRiskScore: score,
		AffectedSectors: sectors,
		Sentiment:       sentimentFor(score),
		CorrelatedEvent: riskctx.DefaultCorrelatedEvent,
		Method:          "heuristic",
	}
	if bestTitle != "" {
		rc.CorrelatedEvent = bestTitle
	}
	return rc
}

func sentimentFor(score int) riskctx.Sentiment {
	switch {
	case score >= criticalThreshold:
		return riskctx.SentimentCritical
	case score >= elevatedThreshold:
		return riskctx.SentimentElevated
	default:
		return riskctx.SentimentNeutral
	}
}

func capScore(score int) int {
	if score > maxScore {
		return maxScore
	}
	return score
}

// scoreText 对每个关键词最多计一次。
func scoreText(text string) int {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	score := 0
	for _, kw := range criticalKeywords {
		if containsKeyword(tokens, kw) {
			score += criticalWeight
		}
	}
	for _, kw := range elevatedKeywords {
		if containsKeyword(tokens, kw) {
			score += elevatedWeight
		}
	}
	return score
}

func containsKeyword(tokens []string, kw string) bool {
	for _, tok := range tokens {
		if tok == kw || tok == kw+"s" {
			return true
		}
		if len(kw) >= 6 && strings.HasPrefix(tok, kw) {
			return true
		}
	}
	return false
}
