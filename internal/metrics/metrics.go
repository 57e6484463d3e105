// Package metrics 定义护士工作台的 Prometheus 指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "nurse_"

	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics 指标集合；注册到构造时传入的 Registerer
type Metrics struct {
	taskTransitions *prometheus.CounterVec
	verifications   *prometheus.CounterVec
	emergencies     prometheus.Counter
	emergencyAcks   prometheus.Counter
	alertsIngested  *prometheus.CounterVec
	remoteWrites    *prometheus.CounterVec
	broadcasts      *prometheus.CounterVec
	verifyLatency   prometheus.Histogram
	unreadAlerts    prometheus.Gauge
	gatherer        prometheus.Gatherer
}

// New 创建并注册指标；reg 为 nil 时使用独立的 Registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		taskTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "task_transitions_total",
				Help: "Task status transitions by target status",
			},
			[]string{"status"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "room_verifications_total",
				Help: "Room verification attempts by result",
			},
			[]string{"result"},
		),
		emergencies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "emergencies_total",
				Help: "Emergencies triggered",
			},
		),
		emergencyAcks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "emergency_acknowledgments_total",
				Help: "Emergencies acknowledged",
			},
		),
		alertsIngested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_ingested_total",
				Help: "Alerts ingested from devices by type",
			},
			[]string{"type"},
		),
		remoteWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "remote_writes_total",
				Help: "Remote persistence writes by operation and result",
			},
			[]string{"op", "result"},
		),
		broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "broadcasts_total",
				Help: "Emergency broadcasts by channel and result",
			},
			[]string{"channel", "result"},
		),
		verifyLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "room_verification_seconds",
				Help:    "Room verification latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		unreadAlerts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "unread_alerts",
				Help: "Current number of unread alerts",
			},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		m.taskTransitions,
		m.verifications,
		m.emergencies,
		m.emergencyAcks,
		m.alertsIngested,
		m.remoteWrites,
		m.broadcasts,
		m.verifyLatency,
		m.unreadAlerts,
	)
	return m
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func resultLabel(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// ObserveTransition 任务进入 status
func (m *Metrics) ObserveTransition(status string) {
	m.taskTransitions.WithLabelValues(status).Inc()
}

// ObserveVerification 房间验证结果及耗时
func (m *Metrics) ObserveVerification(seconds float64, err error) {
	m.verifications.WithLabelValues(resultLabel(err)).Inc()
	m.verifyLatency.Observe(seconds)
}

// ObserveEmergency 触发紧急呼叫
func (m *Metrics) ObserveEmergency() {
	m.emergencies.Inc()
}

// ObserveAcknowledgment 紧急呼叫被确认
func (m *Metrics) ObserveAcknowledgment() {
	m.emergencyAcks.Inc()
}

// ObserveAlert 设备提醒入库
func (m *Metrics) ObserveAlert(alertType string) {
	m.alertsIngested.WithLabelValues(alertType).Inc()
}

// ObserveRemoteWrite 远端写入结果（persistence.ResultFunc）
func (m *Metrics) ObserveRemoteWrite(op string, err error) {
	m.remoteWrites.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveBroadcast 广播通道结果（broadcast.ResultFunc）
func (m *Metrics) ObserveBroadcast(channel string, err error) {
	m.broadcasts.WithLabelValues(channel, resultLabel(err)).Inc()
}

// SetUnreadAlerts 当前未读提醒数
func (m *Metrics) SetUnreadAlerts(n int) {
	m.unreadAlerts.Set(float64(n))
}
