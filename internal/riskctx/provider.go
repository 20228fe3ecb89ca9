package riskctx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "risk-context"

// ErrRefreshTimeout 表示信号源未能在限定时间内返回。
var ErrRefreshTimeout = errors.New("riskctx: 刷新超时")

// Source 产生新的风险上下文（OSINT 扫描）。
type Source interface {
	Capture(ctx context.Context) (RiskContext, error)
}

// SourceFunc 允许使用函数作为信号源。
type SourceFunc func(ctx context.Context) (RiskContext, error)

func (f SourceFunc) Capture(ctx context.Context) (RiskContext, error) {
	if f == nil {
		return RiskContext{}, errors.New("riskctx: 信号源未实现")
	}
	return f(ctx)
}

// Observer 接收刷新结果，用于指标、事件日志与通知。
type Observer interface {
	RefreshSucceeded(ctx context.Context, snapshot RiskContext, elapsed time.Duration)
	RefreshFailed(ctx context.Context, err error, elapsed time.Duration)
}

// Provider 持有唯一的“最新”风险上下文。
// 同一时刻最多只有一次刷新在执行，并发调用者等待并共享该次结果。
// 观察者在刷新结束、释放执行权之后异步收到通知。
type Provider struct {
	source          Source
	timeout         time.Duration
	observers       []Observer
	observerTimeout time.Duration
	logger          *zap.Logger
	now             func() time.Time

	notifyMu sync.Mutex
	notifyWG sync.WaitGroup

	latest   atomic.Pointer[RiskContext]
	inFlight atomic.Bool
	version  atomic.Uint64
	flight   singleflight.Group
}

// Option 配置 Provider。
type Option func(*Provider)

// WithObservers 注册刷新观察者。
func WithObservers(observers ...Observer) Option {
	return func(p *Provider) {
		p.observers = append(p.observers, observers...)
	}
}

// WithObserverTimeout 设置单次通知全部观察者的时限，默认与刷新超时相同。
func WithObserverTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.observerTimeout = d
		}
	}
}

// WithClock 替换时间源，测试使用。
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider 创建风险上下文提供者。
func NewProvider(source Source, timeout time.Duration, logger *zap.Logger, opts ...Option) (*Provider, error) {
	if source == nil {
		return nil, errors.New("riskctx: source 不能为空")
	}
	if timeout <= 0 {
		return nil, errors.New("riskctx: timeout 必须大于0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{
		source:  source,
		timeout: timeout,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.observerTimeout <= 0 {
		p.observerTimeout = timeout
	}
	return p, nil
}

// Current 返回最近一次提交快照的副本；从未成功刷新时 ok 为 false。
func (p *Provider) Current() (RiskContext, bool) {
	snap := p.latest.Load()
	if snap == nil {
		return RiskContext{}, false
	}
	return snap.Clone(), true
}

// IsRefreshInProgress 报告是否有刷新正在执行。
func (p *Provider) IsRefreshInProgress() bool {
	return p.inFlight.Load()
}

// Refresh 触发一次刷新并等待结果。已有刷新在执行时直接复用其结果。
// 调用方 ctx 结束只会停止等待，进行中的刷新仍会完成并提交。
func (p *Provider) Refresh(ctx context.Context) (RiskContext, error) {
	ch := p.flight.DoChan(refreshKey, func() (interface{}, error) {
		return p.refresh()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return RiskContext{}, res.Err
		}
		return res.Val.(RiskContext).Clone(), nil
	case <-ctx.Done():
		return RiskContext{}, ctx.Err()
	}
}

type captureOutcome struct {
	snapshot RiskContext
	err      error
}

func (p *Provider) refresh() (RiskContext, error) {
	p.inFlight.Store(true)
	defer p.inFlight.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	done := make(chan captureOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- captureOutcome{err: fmt.Errorf("riskctx: 信号源异常: %v", r)}
			}
		}()
		snap, err := p.source.Capture(ctx)
		done <- captureOutcome{snapshot: snap, err: err}
	}()

	var out captureOutcome
	select {
	case out = <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) {
			out.err = fmt.Errorf("%w (%s): %v", ErrRefreshTimeout, p.timeout, out.err)
		}
	case <-ctx.Done():
		// 迟到的结果被丢弃，不会覆盖已提交的快照
		out.err = fmt.Errorf("%w (%s)", ErrRefreshTimeout, p.timeout)
	}
	elapsed := time.Since(start)

	if out.err != nil {
		p.logger.Warn("风险上下文刷新失败，保留上一快照",
			zap.Duration("elapsed", elapsed),
			zap.Error(out.err),
		)
		p.dispatch(func(ctx context.Context, o Observer) { o.RefreshFailed(ctx, out.err, elapsed) })
		return RiskContext{}, out.err
	}

	snap := out.snapshot.Normalize()
	snap.ID = uuid.NewString()
	snap.Version = p.version.Inc()
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = p.now()
	}
	p.latest.Store(&snap)

	p.logger.Info("风险上下文已更新",
		zap.String("id", snap.ID),
		zap.Uint64("version", snap.Version),
		zap.Int("global_risk_score", snap.GlobalRiskScore),
		zap.Strings("affected_sectors", snap.AffectedSectors),
		zap.String("sentiment", string(snap.Sentiment)),
		zap.Duration("elapsed", elapsed),
	)
	published := snap.Clone()
	p.dispatch(func(ctx context.Context, o Observer) { o.RefreshSucceeded(ctx, published, elapsed) })

	return snap, nil
}

// dispatch 在后台依次通知全部观察者，不占用刷新的执行时间。
func (p *Provider) dispatch(notify func(ctx context.Context, o Observer)) {
	if len(p.observers) == 0 {
		return
	}
	p.notifyWG.Add(1)
	go func() {
		defer p.notifyWG.Done()
		p.notifyMu.Lock()
		defer p.notifyMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), p.observerTimeout)
		defer cancel()
		for _, o := range p.observers {
			notify(ctx, o)
		}
	}()
}

// Wait 阻塞直到已派发的观察者通知全部完成。
func (p *Provider) Wait() {
	p.notifyWG.Wait()
}
