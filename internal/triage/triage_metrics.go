package triage

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the pipeline subsystem.
type Metrics struct {
	AlertsTotal      *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	LLMCallsTotal    *prometheus.CounterVec
	LLMDuration      prometheus.Histogram
	FallbacksTotal   prometheus.Counter
}

// NewMetrics registers and returns pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AlertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_alerts_total",
			Help: "Total pipeline runs by outcome.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_pipeline_duration_seconds",
			Help:    "Duration of pipeline runs in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}, []string{"outcome"}),
		LLMCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_llm_calls_total",
			Help: "Total model provider calls by outcome.",
		}, []string{"outcome"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "argus_llm_call_duration_seconds",
			Help:    "Duration of individual model calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s .. ~64s
		}),
		FallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "argus_llm_fallbacks_total",
			Help: "Total assessments built from fallbacks because the model was unavailable.",
		}),
	}

	reg.MustRegister(
		m.AlertsTotal,
		m.PipelineDuration,
		m.LLMCallsTotal,
		m.LLMDuration,
		m.FallbacksTotal,
	)

	return m
}

// Hooks returns an EngineHooks that increments the corresponding metrics.
func (m *Metrics) Hooks() EngineHooks {
	return EngineHooks{
		OnLLMCall: func(duration float64, err error) {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			m.LLMCallsTotal.WithLabelValues(outcome).Inc()
			m.LLMDuration.Observe(duration)
		},
		OnFallback: func() {
			m.FallbacksTotal.Inc()
		},
		OnComplete: func(outcome string, duration float64) {
			m.AlertsTotal.WithLabelValues(outcome).Inc()
			m.PipelineDuration.WithLabelValues(outcome).Observe(duration)
		},
	}
}
