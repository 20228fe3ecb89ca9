package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/riskctx"
)

type fakeRedis struct {
	channel  string
	messages [][]byte
	err      error
	closed   bool
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	if b, ok := message.([]byte); ok {
		f.messages = append(f.messages, b)
	}
	return redis.NewIntResult(1, f.err)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_PublishesCommittedContext(t *testing.T) {
	fake := &fakeRedis{}
	p := newPublisher(fake, "risk:updates", nil)

	p.RefreshSucceeded(context.Background(), riskctx.RiskContext{ID: "abc", Version: 3, GlobalRiskScore: 72}, time.Second)
	p.RefreshFailed(context.Background(), errors.New("ignored"), time.Second)

	assert.Equal(t, "risk:updates", fake.channel)
	require.Len(t, fake.messages, 1)

	var n Notification
	require.NoError(t, json.Unmarshal(fake.messages[0], &n))
	assert.Equal(t, "risk_context_refreshed", n.Event)
	assert.Equal(t, "abc", n.Context.ID)
	assert.EqualValues(t, 3, n.Context.Version)

	require.NoError(t, p.Close())
	assert.True(t, fake.closed)
}

func TestPublisher_PublishError(t *testing.T) {
	p := newPublisher(&fakeRedis{err: errors.New("READONLY")}, "", nil)
	assert.Equal(t, "sentinel:risk_context", p.Channel())

	err := p.Publish(context.Background(), riskctx.RiskContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
}

func TestNewPublisher_RequiresAddress(t *testing.T) {
	_, err := NewPublisher(context.Background(), config.NotifyConfig{}, nil)
	require.Error(t, err)
}
