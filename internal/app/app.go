package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"sovereign-sentinel/internal/ai"
	"sovereign-sentinel/internal/api"
	"sovereign-sentinel/internal/capability"
	"sovereign-sentinel/internal/config"
	"sovereign-sentinel/internal/metrics"
	"sovereign-sentinel/internal/monitor"
	"sovereign-sentinel/internal/notify"
	"sovereign-sentinel/internal/riskctx"
	"sovereign-sentinel/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	metrics   *metrics.Metrics
	store     *store.Store
	journal   capability.Capability[*monitor.Service]
	notifier  capability.Capability[*notify.Publisher]
	provider  *riskctx.Provider
	scheduler *riskctx.Scheduler
	server    *http.Server
}

// New 构建全部协作方。可选组件初始化失败时降级为不可用，启动继续。
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: 配置不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{cfg: cfg, logger: logger, metrics: metrics.New()}

	st, svc, err := buildJournal(cfg.Database, logger)
	a.journal = capability.FromResult(svc, err)
	a.store = st
	logUnavailable(logger, "journal", a.journal)

	a.notifier = capability.FromResult[*notify.Publisher](buildNotifier(ctx, cfg.Notify, logger))
	logUnavailable(logger, "notifier", a.notifier)

	assessor := capability.FromResult[*ai.Client](ai.NewClient(cfg.OpenAI, logger))
	logUnavailable(logger, "ai_assessor", assessor)

	observers := make([]riskctx.Observer, 0, 3)
	if j, ok := a.journal.Get(); ok {
		observers = append(observers, j)
	}
	if n, ok := a.notifier.Get(); ok {
		observers = append(observers, n)
	}
	observers = append(observers, a.metrics)

	scout, err := buildScout(cfg.OSINT, assessor, logger)
	if err != nil {
		logger.Warn("OSINT 扫描不可用，风险上下文保持为空", zap.Error(err))
	} else {
		provider, provErr := riskctx.NewProvider(scout, cfg.Scan.RefreshTimeout, logger, riskctx.WithObservers(observers...))
		if provErr != nil {
			return nil, fmt.Errorf("app: 初始化风险上下文失败: %w", provErr)
		}
		scheduler, schedErr := riskctx.NewScheduler(provider, cfg.Scan.Interval, cfg.Scan.InitialScan, logger)
		if schedErr != nil {
			return nil, fmt.Errorf("app: 初始化调度器失败: %w", schedErr)
		}
		a.provider = provider
		a.scheduler = scheduler
	}

	classifier, analyzer, riskErr := buildRisk(cfg.Risk, a.metrics)
	analyzerCap := capability.FromResult[api.PortfolioAnalyzer](analyzer, riskErr)
	logUnavailable(logger, "analyzer", analyzerCap)

	researchCap := capability.FromResult[api.Extractor](buildRegistry(cfg, logger))
	logUnavailable(logger, "research", researchCap)

	deps := api.Deps{
		Environment:       cfg.App.Environment,
		Analyzer:          analyzerCap,
		Research:          researchCap,
		AssessorAvailable: assessor.IsAvailable(),
		NotifierAvailable: a.notifier.IsAvailable(),
		Requests:          a.metrics,
		MetricsHandler:    a.metrics.Handler(),
		Logger:            logger,
	}
	if a.provider != nil {
		deps.Provider = a.provider
		deps.Scheduler = a.scheduler
	}
	if engine, stressErr := buildStress(classifier, logger); stressErr == nil {
		deps.Stress = engine
	} else {
		logger.Warn("压力测试不可用", zap.Error(stressErr))
	}
	if j, ok := a.journal.Get(); ok {
		deps.Journal = capability.Available[api.Journal](j)
	} else {
		deps.Journal = capability.Unavailable[api.Journal](a.journal.Reason())
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	a.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return a, nil
}

// Handler 返回 HTTP 路由。
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run 并行运行调度器与 HTTP 服务，直到 ctx 结束或任一方失败。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Sovereign Sentinel 已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.Bool("scanner", a.scheduler != nil),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if a.scheduler != nil {
		group.Go(func() error {
			return a.scheduler.Run(groupCtx)
		})
	}
	group.Go(func() error {
		return serveHTTP(groupCtx, a.server, a.cfg.HTTP.ShutdownTimeout, a.logger)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，已停止")
	return nil
}

// Close 等待未完成的刷新通知后释放外部连接。
func (a *App) Close() error {
	if a.provider != nil {
		a.provider.Wait()
	}
	var err error
	if n, ok := a.notifier.Get(); ok {
		err = multierr.Append(err, n.Close())
	}
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
	}
	return err
}
