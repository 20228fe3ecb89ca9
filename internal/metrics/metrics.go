package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sovereign-sentinel/internal/risk"
	"sovereign-sentinel/internal/riskctx"
)

// Metrics 汇总服务指标，注册在独立的 Registry 上。
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	globalRiskScore prometheus.Gauge
	classifications *prometheus.CounterVec
	flaggedLoans    *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New 创建并注册全部指标，同时注册 Go 运行时与进程指标。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		refreshTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_context_refresh_total",
			Help: "Risk context refreshes by result",
		}, []string{"result"}),
		refreshDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_context_refresh_duration_seconds",
			Help:    "Risk context refresh duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9),
		}, []string{"result"}),
		globalRiskScore: factory.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_global_risk_score",
			Help: "Global risk score of the latest committed context",
		}),
		classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_loan_classifications_total",
			Help: "Loan classifications by resulting risk level",
		}, []string{"level"}),
		flaggedLoans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_flagged_loans_total",
			Help: "Flagged loans by analysis method",
		}, []string{"method"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry 返回底层注册表。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RefreshSucceeded 实现 riskctx.Observer。
func (m *Metrics) RefreshSucceeded(_ context.Context, snapshot riskctx.RiskContext, elapsed time.Duration) {
	m.refreshTotal.WithLabelValues("success").Inc()
	m.refreshDuration.WithLabelValues("success").Observe(elapsed.Seconds())
	m.globalRiskScore.Set(float64(snapshot.GlobalRiskScore))
}

// RefreshFailed 实现 riskctx.Observer。
func (m *Metrics) RefreshFailed(_ context.Context, _ error, elapsed time.Duration) {
	m.refreshTotal.WithLabelValues("failure").Inc()
	m.refreshDuration.WithLabelValues("failure").Observe(elapsed.Seconds())
}

// ClassificationObserved 实现 risk.Recorder。
func (m *Metrics) ClassificationObserved(level risk.Level) {
	m.classifications.WithLabelValues(level.String()).Inc()
}

// LoansFlagged 实现 risk.Recorder。
func (m *Metrics) LoansFlagged(method risk.Method, count int) {
	m.flaggedLoans.WithLabelValues(string(method)).Add(float64(count))
}

// ObserveRequest 记录一次 HTTP 请求。
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
