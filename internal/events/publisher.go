// Package events publishes recognition events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
)

// Default topics.
const (
	DefaultTopicCompleted = models.EventRecognitionCompleted
	DefaultTopicFailed    = models.EventRecognitionFailed
)

// messageWriter is the subset of *kafka.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher publishes recognition events to separate Kafka topics for
// completed and failed recognitions.
type Publisher struct {
	writerCompleted messageWriter
	writerFailed    messageWriter
	principal       string
	topicCompleted  string
	topicFailed     string
	enabled         bool
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
	Enabled        bool
}

// New creates a publisher. With a nil or disabled config, or no brokers,
// events are only logged.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	logger := logging.WithComponent("events")

	if cfg == nil {
		logger.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			topicCompleted: DefaultTopicCompleted,
			topicFailed:    DefaultTopicFailed,
			metrics:        m,
			logger:         logger,
		}
	}

	p := &Publisher{
		principal:      cfg.Principal,
		topicCompleted: orDefault(cfg.TopicCompleted, DefaultTopicCompleted),
		topicFailed:    orDefault(cfg.TopicFailed, DefaultTopicFailed),
		metrics:        m,
		logger:         logger,
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		logger.Info().Msg("Kafka disabled, using log-only mode")
		return p
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p.writerCompleted = newWriter(cfg.Brokers, p.topicCompleted, transport)
	p.writerFailed = newWriter(cfg.Brokers, p.topicFailed, transport)
	p.enabled = true

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCompleted", p.topicCompleted).
		Str("topicFailed", p.topicFailed).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    transport,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Enabled reports whether events are written to Kafka.
func (p *Publisher) Enabled() bool {
	return p.enabled
}

// PublishCompleted publishes a completed recognition keyed by request id.
func (p *Publisher) PublishCompleted(ctx context.Context, ev models.RecognitionEvent) error {
	ev.EventType = models.EventRecognitionCompleted
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, "completed", ev)
}

// PublishFailed publishes a failed recognition keyed by request id.
func (p *Publisher) PublishFailed(ctx context.Context, ev models.RecognitionEvent) error {
	ev.EventType = models.EventRecognitionFailed
	return p.publish(ctx, p.writerFailed, p.topicFailed, "failed", ev)
}

func (p *Publisher) publish(ctx context.Context, writer messageWriter, topic, eventType string, ev models.RecognitionEvent) error {
	start := time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	p.logger.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", ev.RequestID).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(ev.RequestID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(ev.EventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error().
			Err(err).
			Str("topic", topic).
			Str("key", ev.RequestID).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var errs []error
	if p.writerCompleted != nil {
		if err := p.writerCompleted.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Error closing completed writer")
			errs = append(errs, err)
		}
	}
	if p.writerFailed != nil {
		if err := p.writerFailed.Close(); err != nil {
			p.logger.Error().Err(err).Msg("Error closing failed writer")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
