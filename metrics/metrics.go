// Package metrics provides Prometheus metrics for the venue adapter
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FillsEmitted 成功发出的成交事件数。
	FillsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_fills_emitted_total",
		Help: "Number of canonical fill events emitted",
	})
	// DuplicateExecutions 按 executionId 去重拦下的重复推送数。
	DuplicateExecutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_duplicate_executions_total",
		Help: "Number of execution updates suppressed as duplicates",
	})
	// IdentityDrops 身份解析超出重试预算后丢弃的更新数。
	IdentityDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_identity_drops_total",
		Help: "Number of updates dropped because the venue order id never resolved",
	})
	// MalformedRecords 单条跳过的畸形记录数。
	MalformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_malformed_records_total",
		Help: "Number of malformed records skipped",
	})
	// BarsEmitted 发出的K线事件数。
	BarsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_bars_emitted_total",
		Help: "Number of bar events emitted",
	})
	// BarPollErrors K线轮询单周期失败数（不致命）。
	BarPollErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_bar_poll_errors_total",
		Help: "Number of bar poll cycles that failed",
	})
	// RESTErrors 报告/对账路径上被降级处理的 REST 错误数。
	RESTErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gmocoin_adapter_rest_errors_total",
		Help: "Number of REST errors degraded to partial results",
	})
)

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
