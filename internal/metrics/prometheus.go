package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice bot
type Metrics struct {
	Registry *prometheus.Registry

	// Exchange metrics
	ExchangesStarted  prometheus.Counter
	ExchangesFinished prometheus.Counter
	ExchangesFailed   *prometheus.CounterVec
	ExchangeDuration  prometheus.Histogram
	ActiveExchanges   prometheus.Gauge

	// Continuity metrics
	ThreadDecisions *prometheus.CounterVec

	// Remote call metrics
	RemoteCallDuration *prometheus.HistogramVec
	RemoteCallErrors   *prometheus.CounterVec
	RunPolls           prometheus.Counter

	// Audio file metrics
	AudioFilesStaged      prometheus.Counter
	AudioFilesSynthesized prometheus.Counter
	AudioFilesDiscarded   prometheus.Counter
	DiscardErrors         prometheus.Counter

	// Bot update metrics
	UpdatesReceived *prometheus.CounterVec
}

// NewMetrics creates all metrics on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		ExchangesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_exchanges_started_total",
			Help: "Total number of voice exchanges started",
		}),
		ExchangesFinished: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_exchanges_finished_total",
			Help: "Total number of voice exchanges that reached the session update",
		}),
		ExchangesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_exchanges_failed_total",
			Help: "Total number of aborted voice exchanges by failing state",
		}, []string{"state"}),
		ExchangeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebot_exchange_duration_seconds",
			Help:    "End-to-end duration of a voice exchange",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}),
		ActiveExchanges: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebot_active_exchanges",
			Help: "Current number of in-flight voice exchanges",
		}),

		ThreadDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_thread_decisions_total",
			Help: "Thread continuity decisions by outcome (reuse or renew)",
		}, []string{"decision"}),

		RemoteCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebot_remote_call_duration_seconds",
			Help:    "Duration of remote calls by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		RemoteCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_remote_call_errors_total",
			Help: "Failed remote calls by operation",
		}, []string{"op"}),
		RunPolls: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_run_polls_total",
			Help: "Total number of run status polls",
		}),

		AudioFilesStaged: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_files_staged_total",
			Help: "Voice attachments written to local storage",
		}),
		AudioFilesSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_files_synthesized_total",
			Help: "Synthesized reply files written to local storage",
		}),
		AudioFilesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_files_discarded_total",
			Help: "Transient audio files deleted",
		}),
		DiscardErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_discard_errors_total",
			Help: "Failed deletions of transient audio files",
		}),

		UpdatesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_updates_received_total",
			Help: "Bot updates received by kind",
		}, []string{"kind"}),
	}
}

// ObserveRemote records the outcome of one remote call.
func (m *Metrics) ObserveRemote(op string, seconds float64, err error) {
	m.RemoteCallDuration.WithLabelValues(op).Observe(seconds)
	if err != nil {
		m.RemoteCallErrors.WithLabelValues(op).Inc()
	}
}
