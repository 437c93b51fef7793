// Command eventwatch tails the recognition event topics and logs each event.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability/logging"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topicCompleted := flag.String("topic-completed", models.EventRecognitionCompleted, "Completed recognition topic")
	topicFailed := flag.String("topic-failed", models.EventRecognitionFailed, "Failed recognition topic")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("brokers", *brokers).
		Strs("topics", []string{*topicCompleted, *topicFailed}).
		Dur("since", *since).
		Msg("Watching recognition events")

	var wg sync.WaitGroup
	for _, topic := range []string{*topicCompleted, *topicFailed} {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			consume(ctx, strings.Split(*brokers, ","), topic, *since)
		}(topic)
	}
	wg.Wait()
}

func consume(ctx context.Context, brokers []string, topic string, since time.Duration) {
	logger := logging.WithComponent("eventwatch").With().Str("topic", topic).Logger()

	// Use partition reader without consumer group (works better through port-forward)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-since)); err != nil {
		logger.Warn().Err(err).Msg("Could not seek, reading from the current offset")
	}

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("Kafka read error")
			time.Sleep(time.Second)
			continue
		}

		var ev models.RecognitionEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Warn().Err(err).Int64("offset", msg.Offset).Msg("Skipping malformed event")
			continue
		}
		logEvent(logger, ev)
	}
}

func logEvent(logger zerolog.Logger, ev models.RecognitionEvent) {
	e := logger.Info()
	if ev.ErrorKind != "" {
		e = logger.Warn().Str("errorKind", ev.ErrorKind)
	}
	e.
		Str("eventType", ev.EventType).
		Str("requestId", ev.RequestID).
		Str("provider", ev.Provider).
		Str("language", ev.Language).
		Int("inputBytes", ev.InputBytes).
		Float64("audioSeconds", ev.AudioSeconds).
		Bool("transcoded", ev.Transcoded).
		Int64("durationMs", ev.DurationMs).
		Int("transcriptLength", ev.TranscriptLength).
		Time("at", time.UnixMilli(ev.Timestamp)).
		Msg("Recognition event")
}
