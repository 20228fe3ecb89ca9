package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sovereign-sentinel/internal/capability"
	"sovereign-sentinel/internal/connector"
	"sovereign-sentinel/internal/loan"
	"sovereign-sentinel/internal/monitor"
	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
	"sovereign-sentinel/internal/stress"
)

// ContextProvider 提供当前风险上下文与手动刷新。
type ContextProvider interface {
	Current() (riskctx.RiskContext, bool)
	Refresh(ctx context.Context) (riskctx.RiskContext, error)
	IsRefreshInProgress() bool
}

// SchedulerStatus 暴露调度器状态。
type SchedulerStatus interface {
	IsRunning() bool
	Interval() time.Duration
}

// PortfolioAnalyzer 对组合执行风险分析。
type PortfolioAnalyzer interface {
	Analyze(loans []loan.Record, rc riskctx.RiskContext, method risk.Method) risk.Analysis
}

// Extractor 从外部数据源抽取贷款记录。
type Extractor interface {
	Extract(ctx context.Context, source string, req connector.Request) ([]loan.Record, error)
}

// StressRunner 在假设上下文下重放组合。
type StressRunner interface {
	Run(ctx context.Context, loans []loan.Record, current riskctx.RiskContext, scenarios []stress.Scenario) ([]stress.Result, error)
}

// Journal 记录并查询业务事件。
type Journal interface {
	RecordAnalysis(ctx context.Context, source string, contextID string, analysis risk.Analysis)
	RecordExtractionFailure(ctx context.Context, source, connectionID string, err error)
	RecordStress(ctx context.Context, totalLoans int, scenarios []string)
	ListEvents(ctx context.Context, eventType monitor.EventType, limit int) ([]monitor.Event, error)
}

// Deps 是路由所需的全部协作方，由 app 构建一次后注入。
type Deps struct {
	Environment string
	Provider    ContextProvider
	Scheduler   SchedulerStatus
	Analyzer    capability.Capability[PortfolioAnalyzer]
	Research    capability.Capability[Extractor]
	Stress      StressRunner
	Journal     capability.Capability[Journal]

	AssessorAvailable bool
	NotifierAvailable bool

	Requests       RequestObserver
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

type server struct {
	deps   Deps
	logger *zap.Logger
}

// NewRouter 构建 gin 路由。
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &server{deps: deps, logger: logger}

	r := gin.New()
	r.Use(recovery(logger), requestID(), cors(), accessLog(logger, deps.Requests))

	r.GET("/", s.root)
	r.GET("/health", s.health)
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	api := r.Group("/api")
	{
		api.GET("/risk/latest", s.latestContext)

		scan := api.Group("/scan")
		{
			scan.POST("/immediate", s.immediateScan)
			scan.GET("/status", s.scanStatus)
		}

		analysis := api.Group("/analysis")
		{
			analysis.POST("/analyze", s.analyze)
			analysis.POST("/stress", s.stressTest)
		}

		research := api.Group("/research")
		{
			research.POST("/extract", s.extract)
			research.POST("/analyze-and-extract", s.extractAndAnalyze)
		}

		api.GET("/events", s.events)
	}

	return r
}

// cors 允许任意来源访问，供仪表盘前端调用。
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// currentContext 返回当前上下文，尚未采集时使用中性基线。
func (s *server) currentContext() riskctx.RiskContext {
	if s.deps.Provider == nil {
		return riskctx.Baseline()
	}
	if rc, ok := s.deps.Provider.Current(); ok {
		return rc
	}
	return riskctx.Baseline()
}

func (s *server) journal() (Journal, bool) {
	return s.deps.Journal.Get()
}
