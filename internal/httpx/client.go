package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 4 << 20

// Options 为出站 HTTP 客户端参数。
type Options struct {
	Timeout         time.Duration
	RequestsPerSec  int
	MaxRetryElapsed time.Duration
}

// Client 是带限流与指数退避重试的 HTTP 客户端。
type Client struct {
	http     *http.Client
	limiter  *rate.Limiter
	maxRetry time.Duration
	logger   *zap.Logger
}

// NewClient 创建客户端，零值参数使用默认值。
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryElapsed <= 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:     &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second/time.Duration(opts.RequestsPerSec)), opts.RequestsPerSec),
		maxRetry: opts.MaxRetryElapsed,
		logger:   logger,
	}
}

// RequestBuilder 每次重试都重新构造请求，保证请求体可重放。
type RequestBuilder func(ctx context.Context) (*http.Request, error)

// Do 发送请求并返回 2xx 响应体。429 与 5xx 会重试，其余 4xx 直接失败。
func (c *Client) Do(ctx context.Context, build RequestBuilder) ([]byte, error) {
	var body []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := build(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("httpx: 构造请求失败: %w", err))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("httpx: 读取响应失败: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &HTTPStatusError{StatusCode: resp.StatusCode, Body: truncate(data, 512)}
			if !statusErr.Retryable() {
				return backoff.Permanent(statusErr)
			}
			c.logger.Debug("请求失败，准备重试",
				zap.String("url", req.URL.Redacted()),
				zap.Int("status", resp.StatusCode),
			)
			return statusErr
		}

		body = data
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxRetry

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON 发送 GET 请求并解析 JSON 响应。
func (c *Client) GetJSON(ctx context.Context, url string, headers http.Header, out any) error {
	data, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		copyHeaders(req, headers)
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	return decode(data, out)
}

// PostJSON 以 JSON 编码 payload 发送 POST 请求并解析响应。
func (c *Client) PostJSON(ctx context.Context, url string, headers http.Header, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("httpx: 序列化请求失败: %w", err)
	}
	data, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		copyHeaders(req, headers)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	return decode(data, out)
}

func decode(data []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpx: 解析响应失败: %w", err)
	}
	return nil
}

func copyHeaders(req *http.Request, headers http.Header) {
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}

// HTTPStatusError 表示非 2xx 响应。
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("unexpected status %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Retryable 报告该状态码是否值得重试。
func (e *HTTPStatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
