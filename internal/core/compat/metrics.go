package compat

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 檢查結果標籤
const (
	outcomeCompatible   = "compatible"
	outcomeConflict     = "conflict"
	outcomeUnverifiable = "unverifiable"
)

// 語言來源標籤
const (
	languageSourceStored    = "stored"
	languageSourceCache     = "cache"
	languageSourceHeuristic = "heuristic"
	languageSourceNone      = "none"
)

// Metrics 相容性檢查的 Prometheus 指標，使用獨立的 registry
type Metrics struct {
	registry          *prometheus.Registry
	checks            *prometheus.CounterVec
	checkDuration     *prometheus.HistogramVec
	languages         *prometheus.CounterVec
	dispatchDropped   prometheus.Counter
	dispatchFailed    prometheus.Counter
	dispatchProcessed prometheus.Counter
}

// NewMetrics 創建並註冊所有指標
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compat_checks_total",
				Help: "Compatibility checks by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compat_check_duration_seconds",
				Help:    "Time spent building compatibility results",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"operation"},
		),
		languages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "compat_language_resolutions_total",
				Help: "Recipe language resolutions by source and support",
			},
			[]string{"source", "supported"},
		),
		dispatchDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compat_language_dispatch_dropped_total",
			Help: "Language persistence tasks dropped because the queue was full or closed",
		}),
		dispatchFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compat_language_dispatch_failed_total",
			Help: "Language persistence writes that returned an error",
		}),
		dispatchProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "compat_language_dispatch_processed_total",
			Help: "Language persistence tasks processed",
		}),
	}

	registry.MustRegister(
		m.checks,
		m.checkDuration,
		m.languages,
		m.dispatchDropped,
		m.dispatchFailed,
		m.dispatchProcessed,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry 回傳指標 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 回傳 /metrics 處理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// observeCheck 記錄一次檢查，nil 時不做事
func (m *Metrics) observeCheck(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(operation, outcome).Inc()
	m.checkDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeLanguage(source string, supported bool) {
	if m == nil {
		return
	}
	label := "false"
	if supported {
		label = "true"
	}
	m.languages.WithLabelValues(source, label).Inc()
}

func (m *Metrics) dispatchDrop() {
	if m != nil {
		m.dispatchDropped.Inc()
	}
}

func (m *Metrics) dispatchFailure() {
	if m != nil {
		m.dispatchFailed.Inc()
	}
}

func (m *Metrics) dispatchDone() {
	if m != nil {
		m.dispatchProcessed.Inc()
	}
}

func outcome(compatible, languageSupported bool) string {
	switch {
	case !languageSupported:
		return outcomeUnverifiable
	case compatible:
		return outcomeCompatible
	default:
		return outcomeConflict
	}
}
