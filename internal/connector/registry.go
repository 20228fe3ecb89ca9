package connector

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"sovereign-sentinel/internal/loan"
)

// Registry 按数据源分发抽取请求。
type Registry struct {
	connectors map[Source]Connector
	logger     *zap.Logger
}

// NewRegistry 创建空注册表。
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		connectors: make(map[Source]Connector),
		logger:     logger,
	}
}

// Register 注册数据源连接器。
func (r *Registry) Register(source Source, c Connector) {
	if c == nil {
		return
	}
	r.connectors[source] = c
}

// Configured 返回已注册的数据源，按名称排序。
func (r *Registry) Configured() []Source {
	out := make([]Source, 0, len(r.connectors))
	for s := range r.connectors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len 返回已注册的连接器数量。
func (r *Registry) Len() int {
	return len(r.connectors)
}

// Extract 校验请求并调用对应连接器。
func (r *Registry) Extract(ctx context.Context, source string, req Request) ([]loan.Record, error) {
	src, err := ParseSource(source)
	if err != nil {
		return nil, err
	}
	if src.RequiresTenant() && req.TenantID == "" {
		return nil, fmt.Errorf("%w for %s", ErrTenantRequired, src)
	}
	c, ok := r.connectors[src]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, src)
	}

	records, err := c.Extract(ctx, req)
	if err != nil {
		r.logger.Error("数据抽取失败",
			zap.String("source", string(src)),
			zap.String("connection_id", req.ConnectionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("connector: 抽取 %s 失败: %w", src, err)
	}
	if err := loan.ValidateAll(records); err != nil {
		return nil, fmt.Errorf("connector: %s 返回非法记录: %w", src, err)
	}

	r.logger.Info("数据抽取完成",
		zap.String("source", string(src)),
		zap.Int("loans", len(records)),
	)
	return records, nil
}
