// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "travel_voice"

// Metrics holds all Prometheus metrics for the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Recognition pipeline metrics
	RecognitionsTotal   *prometheus.CounterVec
	RecognitionDuration prometheus.Histogram
	AudioBytesReceived  prometheus.Counter

	// Normalizer metrics
	NormalizeTotal    *prometheus.CounterVec
	NormalizeDuration *prometheus.HistogramVec
	TranscoderRuns    *prometheus.CounterVec

	// STT session metrics
	STTSessionsTotal   *prometheus.CounterVec
	STTSessionsActive  prometheus.Gauge
	STTSessionDuration *prometheus.HistogramVec
	STTFramesSent      *prometheus.CounterVec
	STTResults         *prometheus.CounterVec
	STTErrors          *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// NewMetrics creates all Prometheus metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// HTTP metrics
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"route"}),

		// Recognition pipeline metrics
		RecognitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognitions_total",
			Help:      "Total number of recognition requests by outcome",
		}, []string{"provider", "outcome"}),
		RecognitionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "End-to-end recognition duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		AudioBytesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total raw audio bytes received",
		}),

		// Normalizer metrics
		NormalizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_total",
			Help:      "Total number of normalizations by path and result",
		}, []string{"path", "result"}),
		NormalizeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalize_duration_seconds",
			Help:      "Audio normalization duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"path"}),
		TranscoderRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcoder_runs_total",
			Help:      "Total number of external transcoder invocations by result",
		}, []string{"result"}),

		// STT session metrics
		STTSessionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_sessions_total",
			Help:      "Total number of STT sessions by provider and final state",
		}, []string{"provider", "state"}),
		STTSessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stt_sessions_active",
			Help:      "Number of currently open STT sessions",
		}),
		STTSessionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stt_session_duration_seconds",
			Help:      "Duration of STT sessions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"provider"}),
		STTFramesSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_frames_sent_total",
			Help:      "Total audio frames sent by frame status",
		}, []string{"provider", "status"}),
		STTResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_results_total",
			Help:      "Total result frames applied by merge mode",
		}, []string{"provider", "mode"}),
		STTErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total number of STT errors",
		}, []string{"provider", "error_type"}),

		// Kafka publish metrics
		KafkaPublishTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(route, code string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// RecordRecognition records the outcome of one recognition request.
func (m *Metrics) RecordRecognition(provider, outcome string, audioBytes int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.RecognitionsTotal.WithLabelValues(provider, outcome).Inc()
	m.RecognitionDuration.Observe(durationSeconds)
	m.AudioBytesReceived.Add(float64(audioBytes))
}

// RecordNormalize records one normalization. path is "wav" or "transcoder".
func (m *Metrics) RecordNormalize(path string, err error, durationSeconds float64) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.NormalizeTotal.WithLabelValues(path, result).Inc()
	m.NormalizeDuration.WithLabelValues(path).Observe(durationSeconds)
}

// RecordTranscoderRun records an external transcoder invocation.
func (m *Metrics) RecordTranscoderRun(result string) {
	if m == nil {
		return
	}
	m.TranscoderRuns.WithLabelValues(result).Inc()
}

// RecordSessionStart records a new STT session opening.
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.STTSessionsActive.Inc()
}

// RecordSessionEnd records an STT session reaching a terminal state.
func (m *Metrics) RecordSessionEnd(provider, state string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.STTSessionsActive.Dec()
	m.STTSessionsTotal.WithLabelValues(provider, state).Inc()
	m.STTSessionDuration.WithLabelValues(provider).Observe(durationSeconds)
}

// RecordFrameSent records an outbound audio frame.
func (m *Metrics) RecordFrameSent(provider, status string) {
	if m == nil {
		return
	}
	m.STTFramesSent.WithLabelValues(provider, status).Inc()
}

// RecordResult records an inbound result applied with the given merge mode.
func (m *Metrics) RecordResult(provider, mode string) {
	if m == nil {
		return
	}
	m.STTResults.WithLabelValues(provider, mode).Inc()
}

// RecordSTTError records an STT error.
func (m *Metrics) RecordSTTError(provider, errorType string) {
	if m == nil {
		return
	}
	m.STTErrors.WithLabelValues(provider, errorType).Inc()
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	if m == nil {
		return
	}
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
