package riskctx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Refresher 是调度器驱动的刷新动作。
type Refresher interface {
	Refresh(ctx context.Context) (RiskContext, error)
}

// Scheduler 按固定间隔刷新风险上下文，刷新失败只记录日志，不退出循环。
type Scheduler struct {
	refresher   Refresher
	interval    time.Duration
	initialScan bool
	logger      *zap.Logger

	running atomic.Bool
}

// NewScheduler 创建定时刷新器。
func NewScheduler(refresher Refresher, interval time.Duration, initialScan bool, logger *zap.Logger) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("riskctx: refresher 不能为空")
	}
	if interval <= 0 {
		return nil, errors.New("riskctx: interval 必须大于0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		refresher:   refresher,
		interval:    interval,
		initialScan: initialScan,
		logger:      logger,
	}, nil
}

// Interval 返回刷新间隔。
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// IsRunning 报告调度循环是否在运行。
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Run 阻塞执行调度循环，直到 ctx 结束。
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("riskctx: 调度器已在运行")
	}
	defer s.running.Store(false)

	s.logger.Info("风险扫描调度已启动", zap.Duration("interval", s.interval))

	if s.initialScan {
		s.tick(ctx, "首次扫描失败")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("riskctx: 调度异常退出: %w", err)
			}
			s.logger.Info("风险扫描调度收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			s.tick(ctx, "定时扫描失败")
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, failMsg string) {
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error(failMsg, zap.Error(err))
		return
	}
	s.logger.Debug("定时扫描完成",
		zap.String("id", snap.ID),
		zap.Int("global_risk_score", snap.GlobalRiskScore),
	)
}
