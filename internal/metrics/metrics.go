// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics interface used by the coordinator and HTTP layer
type Recorder interface {
	RecordRemoteCall(operation, outcome string, duration time.Duration)
	RecordLikeToggle(outcome string)
	RecordNicknameCheck(result string)
	RecordHTTPStatus(statusCode int)
	SetActiveSessions(n int)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	remoteCalls    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	likeToggles    *prometheus.CounterVec
	nicknameChecks *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	activeSessions prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhub_remote_calls_total",
			Help: "Remote directory calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gatherhub_remote_call_duration_seconds",
			Help:    "Remote directory call latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		likeToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhub_like_toggles_total",
			Help: "Like toggles by outcome",
		}, []string{"outcome"}),
		nicknameChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhub_nickname_checks_total",
			Help: "Nickname availability checks by result",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatherhub_http_status_total",
			Help: "HTTP responses by status code",
		}, []string{"status_code"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatherhub_active_sessions",
			Help: "Live session coordinators",
		}),
	}

	reg.MustRegister(
		c.remoteCalls,
		c.remoteLatency,
		c.likeToggles,
		c.nicknameChecks,
		c.httpStatus,
		c.activeSessions,
	)

	return c
}

// RecordRemoteCall records one remote directory call
func (c *Collector) RecordRemoteCall(operation, outcome string, duration time.Duration) {
	c.remoteCalls.WithLabelValues(operation, outcome).Inc()
	c.remoteLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLikeToggle records a finished like toggle
func (c *Collector) RecordLikeToggle(outcome string) {
	c.likeToggles.WithLabelValues(outcome).Inc()
}

// RecordNicknameCheck records a resolved nickname availability check
func (c *Collector) RecordNicknameCheck(result string) {
	c.nicknameChecks.WithLabelValues(result).Inc()
}

// RecordHTTPStatus records an HTTP response status
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetActiveSessions sets the number of live session coordinators
func (c *Collector) SetActiveSessions(n int) {
	c.activeSessions.Set(float64(n))
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NoOp discards all metrics
type NoOp struct{}

func (NoOp) RecordRemoteCall(string, string, time.Duration) {}
func (NoOp) RecordLikeToggle(string)                        {}
func (NoOp) RecordNicknameCheck(string)                     {}
func (NoOp) RecordHTTPStatus(int)                           {}
func (NoOp) SetActiveSessions(int)                          {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = NoOp{}
)
