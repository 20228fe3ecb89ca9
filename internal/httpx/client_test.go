package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func testClient() *Client {
	return NewClient(Options{Timeout: time.Second, RequestsPerSec: 100, MaxRetryElapsed: 2 * time.Second}, nil)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	hits := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Inc() < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := testClient().GetJSON(context.Background(), srv.URL, http.Header{"X-API-Key": {"secret"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	hits := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Inc()
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	err := testClient().GetJSON(context.Background(), srv.URL, nil, nil)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "bad key", statusErr.Body)
	assert.EqualValues(t, 1, hits.Load())
}

func TestClient_PostJSONReplaysBody(t *testing.T) {
	hits := atomic.NewInt32(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		assert.Equal(t, `{"a":1}`, string(buf[:n]))
		if hits.Inc() == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := testClient().PostJSON(context.Background(), srv.URL, nil, map[string]int{"a": 1}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestClient_StopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := testClient().GetJSON(ctx, srv.URL, nil, nil)
	require.Error(t, err)
}

func TestHTTPStatusError_Retryable(t *testing.T) {
	assert.True(t, (&HTTPStatusError{StatusCode: 429}).Retryable())
	assert.True(t, (&HTTPStatusError{StatusCode: 502}).Retryable())
	assert.False(t, (&HTTPStatusError{StatusCode: 404}).Retryable())
}
