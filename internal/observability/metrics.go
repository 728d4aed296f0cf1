package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects application metrics for chat runs, model calls,
// tool executions, and knowledge lookups.
type Metrics struct {
	// ChatRuns counts chat runs by terminal outcome.
	// Labels: outcome (assistant|error)
	ChatRuns *prometheus.CounterVec

	// ModelCallDuration measures model call latency in seconds.
	// Labels: provider, turn (first|followup)
	ModelCallDuration *prometheus.HistogramVec

	// ToolExecutions counts tool invocations.
	// Labels: tool, status (success|error|unknown_tool)
	ToolExecutions *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool
	ToolExecutionDuration *prometheus.HistogramVec

	// KnowledgeLookupDuration measures knowledge search latency in seconds.
	KnowledgeLookupDuration prometheus.Histogram

	// ActiveStreams tracks chat event streams currently open.
	ActiveStreams prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all metric families on a private
// registry, so repeated construction in tests never collides.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		ChatRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudquill_chat_runs_total",
			Help: "Chat runs by terminal outcome.",
		}, []string{"outcome"}),

		ModelCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudquill_model_call_duration_seconds",
			Help:    "Model call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "turn"}),

		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudquill_tool_executions_total",
			Help: "Tool invocations by name and status.",
		}, []string{"tool", "status"}),

		ToolExecutionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudquill_tool_execution_duration_seconds",
			Help:    "Tool execution time.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),

		KnowledgeLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cloudquill_knowledge_lookup_duration_seconds",
			Help:    "Knowledge base search latency.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cloudquill_active_streams",
			Help: "Chat event streams currently open.",
		}),

		registry: registry,
	}

	registry.MustRegister(
		m.ChatRuns,
		m.ModelCallDuration,
		m.ToolExecutions,
		m.ToolExecutionDuration,
		m.KnowledgeLookupDuration,
		m.ActiveStreams,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
