package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
	"sovereign-sentinel/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	require.NoError(t, err)
	return svc
}

func TestService_RecordsRefreshOutcomes(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RefreshSucceeded(ctx, riskctx.RiskContext{ID: "ctx-1", GlobalRiskScore: 55}, 1500*time.Millisecond)
	svc.RefreshFailed(ctx, errors.New("search timeout"), time.Second)

	events, err := svc.ListEvents(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventContextRefreshFailed, events[0].Type)
	assert.Equal(t, EventContextRefreshed, events[1].Type)
	assert.Greater(t, events[0].ID, events[1].ID)

	var payload RefreshPayload
	require.NoError(t, json.Unmarshal(events[1].Payload.(json.RawMessage), &payload))
	assert.Equal(t, "ctx-1", payload.Context.ID)
	assert.EqualValues(t, 1500, payload.ElapsedMs)
}

func TestService_ListEventsFiltersByType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordExtractionFailure(ctx, "xero", "conn-1", errors.New("expired token"))
	svc.RecordStress(ctx, 3, []string{"current", "war"})
	svc.RecordAnalysis(ctx, "", "ctx-9", risk.Analysis{
		TotalLoans:   2,
		FlaggedCount: 1,
		Method:       risk.MethodAI,
		Flagged: []risk.FlaggedLoan{{
			Record:    loan.Record{LoanID: "L-1"},
			RiskLevel: risk.LevelCritical,
		}},
	})

	events, err := svc.ListEvents(ctx, EventPortfolioAnalyzed, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	var payload AnalysisPayload
	require.NoError(t, json.Unmarshal(events[0].Payload.(json.RawMessage), &payload))
	assert.Equal(t, "ai", payload.Method)
	assert.Equal(t, []string{"L-1"}, payload.FlaggedLoanIDs)
	assert.Equal(t, 1, payload.LevelCounts["critical"])
	assert.Equal(t, "ctx-9", payload.ContextID)

	limited, err := svc.ListEvents(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestParseEventType(t *testing.T) {
	typ, ok := ParseEventType("context_refreshed")
	assert.True(t, ok)
	assert.Equal(t, EventContextRefreshed, typ)

	_, ok = ParseEventType("")
	assert.True(t, ok)

	_, ok = ParseEventType("order_filled")
	assert.False(t, ok)
}

func TestNewService_RequiresStore(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)
}
