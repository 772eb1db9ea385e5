// Package metrics 定义 Prometheus 指标，由 /metrics 暴露
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal HTTP 请求计数
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal",
		Name:      "http_requests_total",
		Help:      "HTTP 请求总数",
	}, []string{"method", "route", "status"})

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meal",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP 请求耗时（秒）",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// LedgerOperationsTotal 用餐记录写操作计数，result 为 ok 或错误类别
	LedgerOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal",
		Name:      "ledger_operations_total",
		Help:      "用餐记录写操作总数",
	}, []string{"operation", "result"})

	// SchedulerTicksTotal 提醒调度执行次数，result 为 ok | failed | panic
	SchedulerTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal",
		Name:      "scheduler_ticks_total",
		Help:      "用餐提醒调度执行次数",
	}, []string{"result"})

	// NotificationsTotal 提醒投递计数，result 为 sent | skipped | failed
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meal",
		Name:      "notifications_total",
		Help:      "用餐提醒投递次数",
	}, []string{"result"})

	// AuditFailuresTotal 审计日志写入失败次数
	AuditFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "meal",
		Name:      "audit_failures_total",
		Help:      "审计日志写入失败次数",
	})
)
