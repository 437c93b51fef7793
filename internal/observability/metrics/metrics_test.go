package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics

	m.RecordHTTPRequest("/health", "200", 0.01)
	m.RecordRecognition("iflytek", "ok", 10, 1)
	m.RecordNormalize("wav", nil, 0.1)
	m.RecordTranscoderRun("ok")
	m.RecordSessionStart()
	m.RecordSessionEnd("iflytek", "COMPLETE", 1)
	m.RecordFrameSent("iflytek", "first")
	m.RecordResult("iflytek", "append")
	m.RecordSTTError("iflytek", "remote")
	m.RecordKafkaPublish("topic", "completed", nil, 0.01)
}

func TestNewMetrics_IsolatedRegistries(t *testing.T) {
	// Two registries must not collide on registration
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RecordNormalize("wav", nil, 0.01)

	if got := testutil.ToFloat64(a.NormalizeTotal.WithLabelValues("wav", "ok")); got != 1 {
		t.Errorf("expected 1 normalization on a, got %v", got)
	}
	if got := testutil.ToFloat64(b.NormalizeTotal.WithLabelValues("wav", "ok")); got != 0 {
		t.Errorf("expected 0 normalizations on b, got %v", got)
	}
}

func TestRecordSession_ActiveGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSessionStart()
	m.RecordSessionStart()
	if got := testutil.ToFloat64(m.STTSessionsActive); got != 2 {
		t.Errorf("expected 2 active sessions, got %v", got)
	}

	m.RecordSessionEnd("iflytek", "COMPLETE", 1.5)
	if got := testutil.ToFloat64(m.STTSessionsActive); got != 1 {
		t.Errorf("expected 1 active session, got %v", got)
	}
	if got := testutil.ToFloat64(m.STTSessionsTotal.WithLabelValues("iflytek", "COMPLETE")); got != 1 {
		t.Errorf("expected 1 completed session, got %v", got)
	}
}

func TestRecordNormalize_ErrorResult(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordNormalize("transcoder", errors.New("exit status 1"), 0.5)

	if got := testutil.ToFloat64(m.NormalizeTotal.WithLabelValues("transcoder", "error")); got != 1 {
		t.Errorf("expected 1 failed transcoder normalization, got %v", got)
	}
}

func TestRecordKafkaPublish_Errors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordKafkaPublish("voice.recognition.completed", "completed", nil, 0.01)
	m.RecordKafkaPublish("voice.recognition.completed", "completed", errors.New("broker down"), 0.01)

	if got := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues("voice.recognition.completed", "completed")); got != 2 {
		t.Errorf("expected 2 publishes, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("voice.recognition.completed", "completed")); got != 1 {
		t.Errorf("expected 1 publish error, got %v", got)
	}
}
