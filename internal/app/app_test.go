package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sovereign-sentinel/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Environment: "test"},
		HTTP: config.HTTPConfig{
			Addr:            "127.0.0.1:0",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    5 * time.Second,
			ShutdownTimeout: 2 * time.Second,
		},
		Scan: config.ScanConfig{Interval: time.Hour, RefreshTimeout: 5 * time.Second},
		Risk: config.RiskConfig{HighBalance: 10_000_000, ModerateBalance: 5_000_000, ScoreThreshold: 70},
		OSINT: config.OSINTConfig{
			BaseURL:           "http://127.0.0.1:1",
			Timeout:           2 * time.Second,
			RequestsPerSecond: 100,
			MaxRetryElapsed:   time.Second,
			ResultsPerTopic:   3,
			Topics: []config.TopicConfig{
				{Query: "energy sanctions", Sector: "energy"},
				{Query: "global conflict"},
			},
		},
		OpenAI:   config.OpenAIConfig{Timeout: time.Second},
		Database: config.DatabaseConfig{InMemory: true, MaxOpenConns: 1},
		Logging:  config.LoggingConfig{Level: "debug", Encoding: "json", Development: true, OutputPaths: []string{"stdout"}},
	}
}

func getJSON(t *testing.T, h http.Handler, target string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec.Code, body
}

func TestNew_DegradesOptionalCollaborators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Nil(t, a.provider)
	assert.Nil(t, a.scheduler)

	code, health := getJSON(t, a.Handler(), "/health")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, health["scheduler_running"])
	assert.Equal(t, false, health["research_agent_available"])
	assert.Equal(t, true, health["financial_agent_available"])
	assert.Equal(t, false, health["ai_assessor_available"])
	assert.Equal(t, false, health["notifier_available"])

	code, _ = getJSON(t, a.Handler(), "/api/risk/latest")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, events := getJSON(t, a.Handler(), "/api/events")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), events["count"])
}

func TestNew_StripeKeyEnablesResearch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.Stripe.APIKey = "sk_test_123"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, health := getJSON(t, a.Handler(), "/health")
	assert.Equal(t, true, health["research_agent_available"])
}

func TestNew_RefreshFeedsJournalAndLatest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	search := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[
			{"url":"https://news.example/a","title":"War widens as sanctions hit pipeline","description":"embargo and invasion fears"},
			{"url":"https://news.example/b","title":"Markets see volatility","description":"tension rises"}
		]}`))
	}))
	t.Cleanup(search.Close)

	cfg := testConfig()
	cfg.OSINT.APIKey = "key"
	cfg.OSINT.BaseURL = search.URL

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NotNil(t, a.provider)

	code, _ := getJSON(t, a.Handler(), "/api/risk/latest")
	assert.Equal(t, http.StatusNotFound, code)

	rc, err := a.provider.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "heuristic", rc.Method)
	assert.Positive(t, rc.GlobalRiskScore)
	a.provider.Wait()

	code, latest := getJSON(t, a.Handler(), "/api/risk/latest")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, rc.ID, latest["id"])

	code, events := getJSON(t, a.Handler(), "/api/events?type=context_refreshed")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), events["count"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.OSINT.APIKey = "key"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, a.scheduler.IsRunning, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, a.scheduler.IsRunning())
}

func TestServeListener_ServesUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveListener(ctx, srv, ln, time.Second, zap.NewNop()) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	cancel()
	require.NoError(t, <-done)
}

func TestServeHTTP_ListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	srv := &http.Server{Addr: ln.Addr().String()}
	err = serveHTTP(context.Background(), srv, time.Second, zap.NewNop())
	require.Error(t, err)
}
