package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the pipeline and the daemon.
type Metrics struct {
	registry      *prometheus.Registry
	Sources       *prometheus.CounterVec
	Examples      *prometheus.CounterVec
	Rules         *prometheus.CounterVec
	SplitSize     *prometheus.GaugeVec
	Strategies    *prometheus.CounterVec
	Tokens        prometheus.Counter
	Truncated     prometheus.Counter
	RunDuration   *prometheus.HistogramVec
	PlanRequests  *prometheus.CounterVec
	ActiveStreams *prometheus.GaugeVec
	TransportErrs *prometheus.CounterVec
}

// NewMetrics constructs a metrics registry with pipeline and transport collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	sources := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_sources_total",
		Help: "Data files visited by format and load status",
	}, []string{"format", "status"})

	examples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_examples_total",
		Help: "Normalized examples produced by source format",
	}, []string{"format"})

	rules := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_extraction_rules_total",
		Help: "Records normalized by extraction rule",
	}, []string{"rule"})

	split := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ultratune_split_examples",
		Help: "Examples per partition of the last planned split",
	}, []string{"partition"})

	strategies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_strategy_resolutions_total",
		Help: "Resolved execution strategies by mode",
	}, []string{"mode"})

	tokens := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultratune_tokens_total",
		Help: "Tokens emitted by pre-tokenization",
	})

	truncated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultratune_truncated_sequences_total",
		Help: "Sequences cut to the maximum sequence length",
	})

	durs := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ultratune_run_duration_seconds",
		Help:    "Pipeline run duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_plan_requests_total",
		Help: "Plan requests served by the daemon",
	}, []string{"transport", "outcome"})

	active := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ultratune_transport_active_streams",
		Help: "Active plan streams by transport",
	}, []string{"transport"})

	trErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultratune_transport_errors_total",
		Help: "Transport-level errors (handler/streaming) by transport and reason",
	}, []string{"transport", "reason"})

	reg.MustRegister(sources, examples, rules, split, strategies, tokens, truncated, durs, reqs, active, trErrors)

	return &Metrics{
		registry:      reg,
		Sources:       sources,
		Examples:      examples,
		Rules:         rules,
		SplitSize:     split,
		Strategies:    strategies,
		Tokens:        tokens,
		Truncated:     truncated,
		RunDuration:   durs,
		PlanRequests:  reqs,
		ActiveStreams: active,
		TransportErrs: trErrors,
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// RecordSource counts a visited data file and its examples.
func (m *Metrics) RecordSource(format, status string, examples int) {
	if m == nil {
		return
	}
	format = orUnknown(format)
	m.Sources.WithLabelValues(format, orUnknown(status)).Inc()
	if examples > 0 {
		m.Examples.WithLabelValues(format).Add(float64(examples))
	}
}

// RecordRule counts records normalized by an extraction rule.
func (m *Metrics) RecordRule(rule string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Rules.WithLabelValues(orUnknown(rule)).Add(float64(n))
}

// RecordSplit sets the partition gauges.
func (m *Metrics) RecordSplit(train, eval int) {
	if m == nil {
		return
	}
	m.SplitSize.WithLabelValues("train").Set(float64(train))
	m.SplitSize.WithLabelValues("eval").Set(float64(eval))
}

// RecordStrategy counts a resolved strategy.
func (m *Metrics) RecordStrategy(mode string) {
	if m == nil {
		return
	}
	m.Strategies.WithLabelValues(orUnknown(mode)).Inc()
}

// RecordTokens adds pre-tokenization totals.
func (m *Metrics) RecordTokens(tokens, truncated int) {
	if m == nil {
		return
	}
	m.Tokens.Add(float64(tokens))
	m.Truncated.Add(float64(truncated))
}

// RecordRun observes a pipeline run duration.
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunDuration.WithLabelValues(orUnknown(outcome)).Observe(duration.Seconds())
}

// RecordPlanRequest counts a plan request served over a transport.
func (m *Metrics) RecordPlanRequest(transport, outcome string) {
	if m == nil {
		return
	}
	m.PlanRequests.WithLabelValues(orUnknown(transport), orUnknown(outcome)).Inc()
}

// IncActiveStreams increments the active stream gauge.
func (m *Metrics) IncActiveStreams(transport string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(transport).Inc()
}

// DecActiveStreams decrements the active stream gauge.
func (m *Metrics) DecActiveStreams(transport string) {
	if m == nil {
		return
	}
	m.ActiveStreams.WithLabelValues(transport).Dec()
}

// RecordTransportError records a transport-level error.
func (m *Metrics) RecordTransportError(transport, reason string) {
	if m == nil {
		return
	}
	m.TransportErrs.WithLabelValues(orUnknown(transport), orUnknown(reason)).Inc()
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
