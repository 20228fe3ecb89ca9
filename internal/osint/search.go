package osint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/httpx"
)

// SignalSource 按主题查询外部信号。
type SignalSource interface {
	Query(ctx context.Context, topic Topic) ([]Signal, error)
}

// SearchClient 调用网页搜索 API 获取新闻信号。
type SearchClient struct {
	baseURL string
	apiKey  string
	limit   int
	http    *httpx.Client
	logger  *zap.Logger
}

// NewSearchClient 创建搜索客户端，未配置 api_key 时返回错误。
func NewSearchClient(cfg config.OSINTConfig, logger *zap.Logger) (*SearchClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("osint: api_key 未配置")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("osint: base_url 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := cfg.ResultsPerTopic
	if limit <= 0 {
		limit = 5
	}

	return &SearchClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limit:   limit,
		http: httpx.NewClient(httpx.Options{
			Timeout:         cfg.Timeout,
			RequestsPerSec:  cfg.RequestsPerSecond,
			MaxRetryElapsed: cfg.MaxRetryElapsed,
		}, logger),
		logger: logger,
	}, nil
}

type searchResponse struct {
	Hits []struct {
		URL         string   `json:"url"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Snippets    []string `json:"snippets"`
	} `json:"hits"`
}

// Query 搜索单个主题。
func (c *SearchClient) Query(ctx context.Context, topic Topic) ([]Signal, error) {
	params := url.Values{}
	params.Set("query", topic.Query)
	params.Set("num_web_results", strconv.Itoa(c.limit))
	endpoint := c.baseURL + "/search?" + params.Encode()

	var resp searchResponse
	headers := http.Header{"X-API-Key": {c.apiKey}}
	if err := c.http.GetJSON(ctx, endpoint, headers, &resp); err != nil {
		return nil, fmt.Errorf("osint: 搜索 %q 失败: %w", topic.Query, err)
	}

	signals := make([]Signal, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		snippet := hit.Description
		if len(hit.Snippets) > 0 {
			snippet = strings.Join(append([]string{snippet}, hit.Snippets...), " ")
		}
		signals = append(signals, Signal{
			Title:   strings.TrimSpace(hit.Title),
			Snippet: strings.TrimSpace(snippet),
			URL:     hit.URL,
		})
	}

	c.logger.Debug("主题搜索完成",
		zap.String("query", topic.Query),
		zap.Int("signals", len(signals)),
	)
	return signals, nil
}
