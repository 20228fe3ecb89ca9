package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/httpx"
)

// ActionExecutor 执行一个第三方集成动作并把返回数据解码到 out。
type ActionExecutor interface {
	Execute(ctx context.Context, action, connectionID string, input map[string]any, out any) error
}

// ComposioClient 调用 Composio 动作 API。
type ComposioClient struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
}

// NewComposioClient 创建客户端，未配置 api_key 时返回错误。
func NewComposioClient(cfg config.ComposioConfig, logger *zap.Logger) (*ComposioClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("composio: api_key 未配置")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("composio: base_url 不能为空")
	}
	return &ComposioClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpx.NewClient(httpx.Options{Timeout: cfg.Timeout}, logger),
	}, nil
}

type actionRequest struct {
	ConnectedAccountID string         `json:"connectedAccountId"`
	Input              map[string]any `json:"input"`
}

type actionResponse struct {
	Data       json.RawMessage `json:"data"`
	Successful bool            `json:"successful"`
	Error      string          `json:"error"`
}

// Execute 执行动作。
func (c *ComposioClient) Execute(ctx context.Context, action, connectionID string, input map[string]any, out any) error {
	endpoint := fmt.Sprintf("%s/api/v2/actions/%s/execute", c.baseURL, url.PathEscape(action))

	var resp actionResponse
	headers := http.Header{"X-API-Key": {c.apiKey}}
	if err := c.http.PostJSON(ctx, endpoint, headers, actionRequest{ConnectedAccountID: connectionID, Input: input}, &resp); err != nil {
		return fmt.Errorf("composio: 执行 %s 失败: %w", action, err)
	}
	if !resp.Successful {
		return fmt.Errorf("composio: 执行 %s 失败: %s", action, orDefault(resp.Error, "unknown error"))
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("composio: 解析 %s 数据失败: %w", action, err)
	}
	return nil
}
