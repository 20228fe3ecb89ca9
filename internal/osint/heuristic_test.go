package osint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sovereign-sentinel/internal/riskctx"
)

func TestScoreText(t *testing.T) {
	assert.Equal(t, 0, scoreText("Software warning for quarterly results"))
	assert.Equal(t, 15, scoreText("War breaks out"))
	assert.Equal(t, 30, scoreText("New sanctions after the invasion"))
	assert.Equal(t, 20, scoreText("Tariffs spark fears of default"))
	assert.Equal(t, 15, scoreText("war war war"))
}

func TestHeuristic_QuietNewsIsNeutral(t *testing.T) {
	rc := Heuristic{}.Assess([]TopicSignals{{
		Topic:   Topic{Query: "energy", Sector: "energy"},
		Signals: []Signal{{Title: "Markets calm ahead of holiday"}},
	}})

	assert.Equal(t, 0, rc.GlobalRiskScore)
	assert.Empty(t, rc.AffectedSectors)
	assert.Equal(t, riskctx.SentimentNeutral, rc.Sentiment)
	assert.Equal(t, riskctx.DefaultCorrelatedEvent, rc.CorrelatedEvent)
	assert.Equal(t, "heuristic", rc.Method)
}

func TestHeuristic_SevereNewsMarksSectors(t *testing.T) {
	rc := Heuristic{}.Assess([]TopicSignals{
		{
			Topic: Topic{Query: "oil supply", Sector: "Energy"},
			Signals: []Signal{
				{Title: "Embargo on crude exports", Snippet: "sanctions widen as war escalates"},
				{Title: "Pipeline collapse fears"},
			},
		},
		{
			Topic:   Topic{Query: "fx", Sector: "currency"},
			Signals: []Signal{{Title: "Currency volatility rises"}},
		},
	})

	assert.Equal(t, 65, rc.GlobalRiskScore)
	assert.Equal(t, []string{"Energy"}, rc.AffectedSectors)
	assert.Equal(t, riskctx.SentimentElevated, rc.Sentiment)
	assert.Equal(t, "Embargo on crude exports", rc.CorrelatedEvent)
}

func TestHeuristic_ScoreIsCapped(t *testing.T) {
	signals := make([]Signal, 0, 10)
	for i := 0; i < 10; i++ {
		signals = append(signals, Signal{Title: "war invasion coup embargo"})
	}
	rc := Heuristic{}.Assess([]TopicSignals{{Topic: Topic{Query: "q"}, Signals: signals}})

	assert.Equal(t, 100, rc.GlobalRiskScore)
	assert.Equal(t, riskctx.SentimentCritical, rc.Sentiment)
	assert.Empty(t, rc.AffectedSectors)
}
