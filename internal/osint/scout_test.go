package osint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/riskctx"
)

type fakeSource struct {
	mu      sync.Mutex
	signals map[string][]Signal
	fail    map[string]error
	queried []string
}

func (f *fakeSource) Query(_ context.Context, topic Topic) ([]Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, topic.Query)
	if err := f.fail[topic.Query]; err != nil {
		return nil, err
	}
	return f.signals[topic.Query], nil
}

type fakeAssessor struct {
	rc  riskctx.RiskContext
	err error
}

func (f fakeAssessor) Assess(context.Context, []TopicSignals) (riskctx.RiskContext, error) {
	return f.rc, f.err
}

var testTopics = []Topic{
	{Query: "energy crisis", Sector: "energy"},
	{Query: "sovereign debt", Sector: "sovereign debt"},
}

func TestScout_CaptureWithHeuristic(t *testing.T) {
	src := &fakeSource{signals: map[string][]Signal{
		"energy crisis":  {{Title: "War hits gas supply", URL: "https://a"}, {Title: "Embargo widens", URL: "https://b"}, {Title: "Sanctions", URL: "https://a"}},
		"sovereign debt": {{Title: "Bond auction goes smoothly", URL: "https://c"}},
	}}
	scout, err := NewScout(src, testTopics, nil, nil)
	require.NoError(t, err)
	scout.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	rc, err := scout.Capture(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"energy crisis", "sovereign debt"}, src.queried)
	assert.Equal(t, 45, rc.GlobalRiskScore)
	assert.Equal(t, []string{"energy"}, rc.AffectedSectors)
	assert.Equal(t, "heuristic", rc.Method)
	assert.Equal(t, []string{"https://a", "https://b", "https://c"}, rc.Sources)
	assert.Equal(t, 2026, rc.CapturedAt.Year())
}

func TestScout_AnyTopicFailureFailsCapture(t *testing.T) {
	src := &fakeSource{fail: map[string]error{"sovereign debt": errors.New("quota exceeded")}}
	scout, err := NewScout(src, testTopics, nil, nil)
	require.NoError(t, err)

	_, err = scout.Capture(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestScout_PrefersAssessor(t *testing.T) {
	src := &fakeSource{}
	scout, err := NewScout(src, testTopics, fakeAssessor{rc: riskctx.RiskContext{
		GlobalRiskScore: 77,
		Sentiment:       riskctx.SentimentCritical,
		CorrelatedEvent: "Strait closure",
	}}, nil)
	require.NoError(t, err)

	rc, err := scout.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 77, rc.GlobalRiskScore)
	assert.Equal(t, "ai", rc.Method)
}

func TestScout_FallsBackWhenAssessorFails(t *testing.T) {
	src := &fakeSource{signals: map[string][]Signal{"energy crisis": {{Title: "coup"}}}}
	scout, err := NewScout(src, testTopics, fakeAssessor{err: errors.New("rate limited")}, nil)
	require.NoError(t, err)

	rc, err := scout.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "heuristic", rc.Method)
	assert.Equal(t, 15, rc.GlobalRiskScore)
}

func TestNewScout_Validates(t *testing.T) {
	_, err := NewScout(nil, testTopics, nil, nil)
	require.Error(t, err)
	_, err = NewScout(&fakeSource{}, nil, nil, nil)
	require.Error(t, err)
}

func TestSearchClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "oil embargo", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("num_web_results"))
		assert.Equal(t, "k", r.Header.Get("X-API-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[{"url":"https://news/1","title":" Embargo ","description":"desc","snippets":["more"]}]}`))
	}))
	defer srv.Close()

	client, err := NewSearchClient(config.OSINTConfig{
		APIKey:            "k",
		BaseURL:           srv.URL + "/",
		Timeout:           time.Second,
		RequestsPerSecond: 50,
		MaxRetryElapsed:   time.Second,
		ResultsPerTopic:   3,
	}, nil)
	require.NoError(t, err)

	signals, err := client.Query(context.Background(), Topic{Query: "oil embargo"})
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, "Embargo", signals[0].Title)
	assert.Equal(t, "desc more", signals[0].Snippet)
	assert.Equal(t, "https://news/1", signals[0].URL)
}

func TestNewSearchClient_RequiresKey(t *testing.T) {
	_, err := NewSearchClient(config.OSINTConfig{BaseURL: "http://x"}, nil)
	require.Error(t, err)
}

func TestTopicsFromConfig(t *testing.T) {
	topics := TopicsFromConfig([]config.TopicConfig{{Query: "a", Sector: "energy"}, {Query: ""}})
	assert.Equal(t, []Topic{{Query: "a", Sector: "energy"}}, topics)
}
