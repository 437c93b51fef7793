package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"

	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability/metrics"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func enabledPublisher(m *metrics.Metrics) (*Publisher, *fakeWriter, *fakeWriter) {
	completed, failed := &fakeWriter{}, &fakeWriter{}
	p := New(&Config{Enabled: false, Principal: "travel-voice"}, m)
	p.writerCompleted = completed
	p.writerFailed = failed
	p.enabled = true
	return p, completed, failed
}

func TestNew_DisabledMode(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"disabled", &Config{Enabled: false, Brokers: []string{"localhost:9092"}}},
		{"no brokers", &Config{Enabled: true, Brokers: []string{}}},
		{"empty brokers", &Config{Enabled: true, Brokers: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg, nil)
			if p == nil {
				t.Fatal("expected non-nil publisher")
			}
			if p.Enabled() {
				t.Error("expected publisher to be disabled")
			}
			if p.writerCompleted != nil || p.writerFailed != nil {
				t.Error("expected nil writers when disabled")
			}
		})
	}
}

func TestNew_EnabledCreatesWriters(t *testing.T) {
	p := New(&Config{Enabled: true, Brokers: []string{"localhost:9092"}}, nil)
	defer p.Close()

	if !p.Enabled() {
		t.Fatal("expected publisher to be enabled")
	}
	w, ok := p.writerCompleted.(*kafka.Writer)
	if !ok {
		t.Fatalf("expected *kafka.Writer, got %T", p.writerCompleted)
	}
	if w.Topic != DefaultTopicCompleted {
		t.Errorf("expected default completed topic, got %s", w.Topic)
	}
}

func TestNew_ConfigValues(t *testing.T) {
	p := New(&Config{
		Brokers:        []string{"localhost:9092"},
		TopicCompleted: "test.completed",
		TopicFailed:    "test.failed",
		Principal:      "test-principal",
	}, nil)

	if p.principal != "test-principal" {
		t.Errorf("expected principal 'test-principal', got %s", p.principal)
	}
	if p.topicCompleted != "test.completed" {
		t.Errorf("expected topic 'test.completed', got %s", p.topicCompleted)
	}
	if p.topicFailed != "test.failed" {
		t.Errorf("expected topic 'test.failed', got %s", p.topicFailed)
	}
}

func TestPublisher_Disabled_LogsOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	p := New(&Config{Enabled: false}, m)

	if err := p.PublishCompleted(context.Background(), models.RecognitionEvent{RequestID: "req-1"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if err := p.PublishFailed(context.Background(), models.RecognitionEvent{RequestID: "req-2"}); err != nil {
		t.Errorf("expected no error when disabled, got %v", err)
	}
	if v := testutil.ToFloat64(m.KafkaPublishTotal.WithLabelValues(DefaultTopicCompleted, "completed")); v != 1 {
		t.Errorf("expected one completed publish recorded, got %v", v)
	}
}

func TestPublisher_RoutesByOutcome(t *testing.T) {
	p, completed, failed := enabledPublisher(nil)

	ok := models.RecognitionEvent{RequestID: "req-ok", Provider: "iflytek", TranscriptLength: 12}
	if err := p.PublishCompleted(context.Background(), ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := models.RecognitionEvent{RequestID: "req-bad", Provider: "iflytek", ErrorKind: "remote"}
	if err := p.PublishFailed(context.Background(), bad); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completed.messages) != 1 || len(failed.messages) != 1 {
		t.Fatalf("expected one message per topic, got %d/%d", len(completed.messages), len(failed.messages))
	}

	msg := completed.messages[0]
	if string(msg.Key) != "req-ok" {
		t.Errorf("expected key req-ok, got %s", msg.Key)
	}
	var ev models.RecognitionEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.EventType != models.EventRecognitionCompleted {
		t.Errorf("expected completed event type, got %s", ev.EventType)
	}
	if msg.Headers[0].Key != "eventType" || string(msg.Headers[0].Value) != models.EventRecognitionCompleted {
		t.Errorf("unexpected headers %+v", msg.Headers)
	}

	if !strings.Contains(string(failed.messages[0].Value), `"errorKind":"remote"`) {
		t.Errorf("expected error kind in failed payload, got %s", failed.messages[0].Value)
	}
}

func TestPublisher_PayloadCarriesNoText(t *testing.T) {
	p, completed, _ := enabledPublisher(nil)
	p.PublishCompleted(context.Background(), models.RecognitionEvent{RequestID: "r", TranscriptLength: 5})

	var fields map[string]any
	if err := json.Unmarshal(completed.messages[0].Value, &fields); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	for _, forbidden := range []string{"text", "audio", "audio_data"} {
		if _, ok := fields[forbidden]; ok {
			t.Errorf("payload must not contain %q", forbidden)
		}
	}
}

func TestPublisher_WriteError(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	p, completed, _ := enabledPublisher(m)
	completed.err = errors.New("broker unavailable")

	err := p.PublishCompleted(context.Background(), models.RecognitionEvent{RequestID: "r"})
	if err == nil {
		t.Fatal("expected write error")
	}
	if v := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues(DefaultTopicCompleted, "completed")); v != 1 {
		t.Errorf("expected one publish error recorded, got %v", v)
	}
}

func TestPublisher_Close(t *testing.T) {
	p, completed, failed := enabledPublisher(nil)

	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !completed.closed || !failed.closed {
		t.Error("expected both writers to be closed")
	}
}

func TestPublisher_Close_NoWriters(t *testing.T) {
	p := New(&Config{Enabled: false}, nil)

	if err := p.Close(); err != nil {
		t.Errorf("expected no error closing disabled publisher, got %v", err)
	}
}
