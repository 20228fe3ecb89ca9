package riskctx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseline(t *testing.T) {
	b := Baseline()
	assert.Equal(t, 0, b.GlobalRiskScore)
	assert.Empty(t, b.AffectedSectors)
	assert.Equal(t, SentimentNeutral, b.Sentiment)
	assert.Equal(t, DefaultCorrelatedEvent, b.CorrelatedEvent)
}

func TestSentiment_UnknownValuesBecomeNeutral(t *testing.T) {
	var c RiskContext
	require.NoError(t, json.Unmarshal([]byte(`{"sentiment":"panicky","global_risk_score":30}`), &c))
	assert.Equal(t, SentimentNeutral, c.Sentiment)

	require.NoError(t, json.Unmarshal([]byte(`{"sentiment":"Elevated"}`), &c))
	assert.Equal(t, SentimentElevated, c.Sentiment)
}

func TestRiskContext_NormalizeClampsAndCopies(t *testing.T) {
	src := RiskContext{GlobalRiskScore: -5, Sources: []string{"https://a"}}
	out := src.Normalize()

	assert.Equal(t, 0, out.GlobalRiskScore)
	assert.Equal(t, SentimentNeutral, out.Sentiment)
	assert.NotNil(t, out.AffectedSectors)

	out.Sources[0] = "mutated"
	assert.Equal(t, "https://a", src.Sources[0])
}

func TestRiskContext_HasSectorIgnoresCase(t *testing.T) {
	c := RiskContext{AffectedSectors: []string{"Energy", "Sovereign Debt"}}
	assert.True(t, c.HasSector("energy"))
	assert.True(t, c.HasSector("SOVEREIGN DEBT"))
	assert.False(t, c.HasSector("retail"))
}

func TestRiskContext_IsCriticalIgnoresCase(t *testing.T) {
	assert.True(t, RiskContext{Sentiment: SentimentCritical}.IsCritical())
	assert.True(t, RiskContext{Sentiment: "CRITICAL"}.IsCritical())
	assert.False(t, RiskContext{Sentiment: "elevated"}.IsCritical())
	assert.False(t, RiskContext{}.IsCritical())
}
