// Package metrics holds the Prometheus collectors of the client core and
// the gateway. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Send outcomes.
const (
	SendConfirmed = "confirmed"
	SendFailed    = "failed"
	SendTimedOut  = "timed_out"
)

// Metrics groups every collector.
type Metrics struct {
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	sends        *prometheus.CounterVec
	merged       *prometheus.CounterVec
	resubscribes prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "tool_dispatch_total",
			Help:      "Agent tool invocations by tool and result status.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coffee",
			Name:      "tool_dispatch_duration_seconds",
			Help:      "Agent tool dispatch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "message_sends_total",
			Help:      "Optimistic message sends by outcome.",
		}, []string{"outcome"}),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "realtime_merged_total",
			Help:      "Pushed messages by merge result.",
		}, []string{"result"}),
		resubscribes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "realtime_resubscribes_total",
			Help:      "Push channel resubscription attempts.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coffee",
			Name:      "http_requests_total",
			Help:      "Gateway HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coffee",
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.toolCalls, m.toolDuration, m.sends, m.merged,
			m.resubscribes, m.httpRequests, m.httpDuration,
		)
	}
	return m
}

// ObserveTool records one dispatch.
func (m *Metrics) ObserveTool(tool, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// IncSend records a send outcome.
func (m *Metrics) IncSend(outcome string) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(outcome).Inc()
}

// IncMerged records the result of merging one pushed message.
func (m *Metrics) IncMerged(result string) {
	if m == nil {
		return
	}
	m.merged.WithLabelValues(result).Inc()
}

// IncResubscribe records a resubscription attempt.
func (m *Metrics) IncResubscribe() {
	if m == nil {
		return
	}
	m.resubscribes.Inc()
}

// ObserveHTTP records one gateway request.
func (m *Metrics) ObserveHTTP(method, route, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, code).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ToolCalls exposes the dispatch counter for assertions.
func (m *Metrics) ToolCalls() *prometheus.CounterVec { return m.toolCalls }

// Sends exposes the send counter for assertions.
func (m *Metrics) Sends() *prometheus.CounterVec { return m.sends }

// Resubscribes exposes the resubscription counter for assertions.
func (m *Metrics) Resubscribes() prometheus.Counter { return m.resubscribes }
