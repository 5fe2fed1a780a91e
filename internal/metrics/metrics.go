package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eschoolbooks/neox-go/internal/apperr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务指标
type Metrics struct {
	FlowTotal      *prometheus.CounterVec
	FlowDuration   *prometheus.HistogramVec
	FlowRetries    *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
	RecordsSaved   *prometheus.CounterVec
	TutorSessions  prometheus.Gauge
	AttachmentSize prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New 创建并注册指标，reg 为空时使用独立的 Registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		FlowTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neox_flow_requests_total",
				Help: "Total number of flow invocations by outcome",
			},
			[]string{"flow", "outcome"},
		),
		FlowDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neox_flow_duration_seconds",
				Help:    "Flow duration in seconds, including retries",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"flow"},
		),
		FlowRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neox_flow_retries_total",
				Help: "Total number of model call retries",
			},
			[]string{"flow"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neox_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		RecordsSaved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neox_records_saved_total",
				Help: "Analysis records written to the result store",
			},
			[]string{"kind", "status"},
		),
		TutorSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neox_tutor_sessions",
				Help: "Active tutor WebSocket sessions",
			},
		),
		AttachmentSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neox_attachment_bytes",
				Help:    "Decoded size of attachments sent to the model",
				Buckets: prometheus.ExponentialBuckets(16<<10, 4, 7),
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.FlowTotal,
		m.FlowDuration,
		m.FlowRetries,
		m.HTTPRequests,
		m.RecordsSaved,
		m.TutorSessions,
		m.AttachmentSize,
	)
	return m
}

// ObserveFlow 记录一次流程执行
func (m *Metrics) ObserveFlow(name string, attempts int, elapsed time.Duration, err error) {
	m.FlowTotal.WithLabelValues(name, apperr.Kind(err)).Inc()
	m.FlowDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if attempts > 1 {
		m.FlowRetries.WithLabelValues(name).Add(float64(attempts - 1))
	}
}

// ObserveHTTP 记录一次 HTTP 请求
func (m *Metrics) ObserveHTTP(route string, status int) {
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}

// ObserveRecord 记录一次结果写入
func (m *Metrics) ObserveRecord(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RecordsSaved.WithLabelValues(kind, status).Inc()
}

// ObserveAttachment 记录附件大小
func (m *Metrics) ObserveAttachment(size int) {
	m.AttachmentSize.Observe(float64(size))
}

// Handler /metrics 接口
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
