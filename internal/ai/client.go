package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/osint"
	"sovereign-sentinel/internal/riskctx"
)

// ChatCompleter 是 go-openai 客户端中用到的部分，便于测试替换。
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client 封装 OpenAI 调用逻辑，实现 osint.Assessor。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    ChatCompleter
}

// NewClient 使用给定配置创建 AI 客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return newClientWithSDK(cfg, openai.NewClientWithConfig(config), logger), nil
}

func newClientWithSDK(cfg config.OpenAIConfig, sdk ChatCompleter, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    sdk,
	}
}

// Assess 根据扫描信号获取模型评估。
func (c *Client) Assess(ctx context.Context, results []osint.TopicSignals) (riskctx.RiskContext, error) {
	prompt, err := BuildPrompt(results)
	if err != nil {
		return riskctx.RiskContext{}, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("调用OpenAI失败", zap.Error(err))
		return riskctx.RiskContext{}, fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return riskctx.RiskContext{}, errors.New("OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return riskctx.RiskContext{}, errors.New("OpenAI 返回内容为空")
	}

	assessment, err := parseAssessment(rawContent)
	if err != nil {
		c.logger.Error("解析模型评估失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return riskctx.RiskContext{}, err
	}

	if err := assessment.Validate(); err != nil {
		return riskctx.RiskContext{}, err
	}

	c.logger.Info("AI 风险评估生成成功",
		zap.Int("global_risk_score", assessment.GlobalRiskScore),
		zap.Strings("affected_sectors", assessment.AffectedSectors),
		zap.String("sentiment", assessment.Sentiment),
	)

	return assessment.RiskContext(), nil
}

func parseAssessment(content string) (Assessment, error) {
	jsonPayload, err := extractJSON(content)
	if err != nil {
		return Assessment{}, err
	}

	var assessment Assessment
	if err = json.Unmarshal(jsonPayload, &assessment); err != nil {
		return Assessment{}, fmt.Errorf("解析评估JSON失败: %w", err)
	}

	return assessment, nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("模型输出未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
