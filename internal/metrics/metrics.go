// Package metrics exposes Prometheus instrumentation for the session engine
// and analyzers. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "writingflow"

type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted  prometheus.Counter
	Transitions      *prometheus.CounterVec
	LiveSessions     prometheus.Gauge
	EditsRejected    prometheus.Counter
	Inactivity       prometheus.Counter
	SessionWords     prometheus.Histogram
	AnalysisDuration *prometheus.HistogramVec
	AnalysisFailures prometheus.Counter
	AnalysisFallback prometheus.Counter
}

// New registers the collectors on reg, or on a fresh registry when reg is
// nil.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Total number of writing sessions started",
		}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_transitions_total",
			Help:      "Session state transitions by target state",
		}, []string{"state"}),
		LiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Number of active or paused sessions",
		}),
		EditsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edits_rejected_total",
			Help:      "Edits rejected by the backspace guard",
		}),
		Inactivity: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inactivity_total",
			Help:      "Inactivity periods detected",
		}),
		SessionWords: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_words",
			Help:      "Word count of completed sessions",
			Buckets:   []float64{50, 100, 250, 500, 750, 1000, 1500, 2500},
		}),
		AnalysisDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Analysis latency in seconds by analyzer",
		}, []string{"source"}),
		AnalysisFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_failures_total",
			Help:      "Analyses that produced no result",
		}),
		AnalysisFallback: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_fallbacks_total",
			Help:      "Analyses answered by the fallback analyzer",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
	m.LiveSessions.Set(1)
}

// Transition counts a move into state. live reports whether a session is
// still active or paused afterwards.
func (m *Metrics) Transition(state string, live bool) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state).Inc()
	if live {
		m.LiveSessions.Set(1)
	} else {
		m.LiveSessions.Set(0)
	}
}

func (m *Metrics) SessionCompleted(words int) {
	if m == nil {
		return
	}
	m.SessionWords.Observe(float64(words))
}

func (m *Metrics) EditRejected() {
	if m == nil {
		return
	}
	m.EditsRejected.Inc()
}

func (m *Metrics) Inactive() {
	if m == nil {
		return
	}
	m.Inactivity.Inc()
}

func (m *Metrics) ObserveAnalysis(source string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (m *Metrics) AnalysisFailed() {
	if m == nil {
		return
	}
	m.AnalysisFailures.Inc()
}

// Fallback matches the analysis.Fallback OnFallback hook.
func (m *Metrics) Fallback(error) {
	if m == nil {
		return
	}
	m.AnalysisFallback.Inc()
}
