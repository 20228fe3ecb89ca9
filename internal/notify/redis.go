package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/riskctx"
)

const eventRefreshed = "risk_context_refreshed"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Notification 是发布到频道的消息。
type Notification struct {
	Event       string              `json:"event"`
	Context     riskctx.RiskContext `json:"context"`
	PublishedAt int64               `json:"published_at"`
}

// Publisher 将每次提交的风险上下文发布到 Redis 频道，实现 riskctx.Observer。
type Publisher struct {
	client  publisher
	channel string
	logger  *zap.Logger
}

// NewPublisher 连接 Redis，未配置地址时返回错误。
func NewPublisher(ctx context.Context, cfg config.NotifyConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("notify: redis_addr 未配置")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("notify: 连接 redis 失败: %w", err)
	}

	return newPublisher(client, cfg.Channel, logger), nil
}

func newPublisher(client publisher, channel string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "sentinel:risk_context"
	}
	return &Publisher{client: client, channel: channel, logger: logger}
}

// Channel 返回发布频道。
func (p *Publisher) Channel() string {
	return p.channel
}

// Publish 发布一次上下文变更通知。
func (p *Publisher) Publish(ctx context.Context, snapshot riskctx.RiskContext) error {
	msg, err := json.Marshal(Notification{
		Event:       eventRefreshed,
		Context:     snapshot,
		PublishedAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("notify: 序列化通知失败: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("notify: 发布通知失败: %w", err)
	}
	return nil
}

// RefreshSucceeded 实现 riskctx.Observer，发布失败只记录日志。
func (p *Publisher) RefreshSucceeded(ctx context.Context, snapshot riskctx.RiskContext, _ time.Duration) {
	if err := p.Publish(ctx, snapshot); err != nil {
		p.logger.Warn("风险上下文通知发布失败", zap.String("channel", p.channel), zap.Error(err))
	}
}

// RefreshFailed 失败的刷新不对外通知。
func (p *Publisher) RefreshFailed(context.Context, error, time.Duration) {}

// Close 关闭 Redis 连接。
func (p *Publisher) Close() error {
	return p.client.Close()
}
