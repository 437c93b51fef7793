// Package voice provides the recognition pipeline that ties the audio
// normalizer, the configured speech provider and the event publisher
// together.
package voice

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
	"travel-voice-service/internal/service/audio"
	"travel-voice-service/internal/service/stt"
)

// Confidence is reported for every successful recognition. The providers do
// not return a usable score.
const Confidence = 0.9

// Errors raised before the pipeline runs.
var (
	ErrInvalidAudioEncoding = errors.New("audio_data is not valid base64")
	ErrAudioTooLarge        = errors.New("audio payload exceeds the size limit")
)

// Limits bounds the work a single request may cause.
type Limits struct {
	MaxAudioBytes int // Max decoded input size; 0 disables the check
}

// DefaultLimits returns the default request limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 10 * 1024 * 1024, // 10MB
	}
}

// Normalizer converts arbitrary audio into canonical PCM.
type Normalizer interface {
	Normalize(ctx context.Context, raw []byte) (*audio.PCM, error)
}

// Publisher receives recognition events.
type Publisher interface {
	PublishCompleted(ctx context.Context, ev models.RecognitionEvent) error
	PublishFailed(ctx context.Context, ev models.RecognitionEvent) error
}

// Service runs recognitions.
type Service struct {
	normalizer  Normalizer
	transcriber stt.Transcriber
	publisher   Publisher
	metrics     *metrics.Metrics
	limits      Limits
	now         func() time.Time
}

// NewService creates a recognition service. publisher and m may be nil.
func NewService(n Normalizer, t stt.Transcriber, p Publisher, m *metrics.Metrics, limits Limits) *Service {
	return &Service{
		normalizer:  n,
		transcriber: t,
		publisher:   p,
		metrics:     m,
		limits:      limits,
		now:         time.Now,
	}
}

// Provider returns the name of the configured speech provider.
func (s *Service) Provider() string {
	return s.transcriber.Name()
}

// Ready reports whether the speech provider has its credentials.
func (s *Service) Ready() bool {
	return s.transcriber.IsConfigured()
}

// Recognize decodes base64 audio and transcribes it.
func (s *Service) Recognize(ctx context.Context, in models.VoiceInput) (models.VoiceResponse, error) {
	raw, err := decodeAudio(in.AudioData)
	if err != nil {
		return models.VoiceResponse{}, err
	}
	return s.RecognizeFile(ctx, raw, in.Language)
}

// RecognizeFile transcribes raw audio bytes in any supported container.
func (s *Service) RecognizeFile(ctx context.Context, raw []byte, language string) (models.VoiceResponse, error) {
	if language == "" {
		language = stt.DefaultLanguage
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := logging.WithRequest(requestID, "recognize").With().
		Str("provider", s.transcriber.Name()).
		Str("language", language).
		Logger()

	start := s.now()
	ev := models.RecognitionEvent{
		RequestID:  requestID,
		Provider:   s.transcriber.Name(),
		Language:   language,
		InputBytes: len(raw),
	}

	if s.limits.MaxAudioBytes > 0 && len(raw) > s.limits.MaxAudioBytes {
		err := fmt.Errorf("%w: %d > %d bytes", ErrAudioTooLarge, len(raw), s.limits.MaxAudioBytes)
		return models.VoiceResponse{}, s.fail(ctx, logger, ev, start, err)
	}

	pcm, err := s.normalizer.Normalize(ctx, raw)
	if err != nil {
		return models.VoiceResponse{}, s.fail(ctx, logger, ev, start, fmt.Errorf("normalize audio: %w", err))
	}
	ev.PCMBytes = len(pcm.Data)
	ev.AudioSeconds = pcm.Duration()
	ev.Transcoded = pcm.Transcoded

	text, err := s.transcriber.Transcribe(ctx, pcm.Data, language)
	if err != nil {
		return models.VoiceResponse{}, s.fail(ctx, logger, ev, start, fmt.Errorf("transcribe: %w", err))
	}

	elapsed := s.now().Sub(start)
	ev.DurationMs = elapsed.Milliseconds()
	ev.TranscriptLength = utf8.RuneCountInString(text)
	ev.EventID = uuid.NewString()
	ev.Timestamp = s.now().UnixMilli()

	s.metrics.RecordRecognition(ev.Provider, "ok", len(raw), elapsed.Seconds())
	if s.publisher != nil {
		if perr := s.publisher.PublishCompleted(ctx, ev); perr != nil {
			logger.Warn().Err(perr).Msg("Failed to publish recognition event")
		}
	}

	logger.Info().
		Int("inputBytes", ev.InputBytes).
		Int("pcmBytes", ev.PCMBytes).
		Bool("transcoded", ev.Transcoded).
		Int("transcriptLength", ev.TranscriptLength).
		Int64("durationMs", ev.DurationMs).
		Msg("Recognition completed")

	return models.VoiceResponse{Text: text, Confidence: Confidence}, nil
}

func (s *Service) fail(ctx context.Context, logger zerolog.Logger, ev models.RecognitionEvent, start time.Time, err error) error {
	elapsed := s.now().Sub(start)
	ev.DurationMs = elapsed.Milliseconds()
	ev.ErrorKind = ErrorKind(err)
	ev.EventID = uuid.NewString()
	ev.Timestamp = s.now().UnixMilli()

	s.metrics.RecordRecognition(ev.Provider, ev.ErrorKind, ev.InputBytes, elapsed.Seconds())

	// The caller's context may already be done; the event still goes out.
	if s.publisher != nil {
		if perr := s.publisher.PublishFailed(context.WithoutCancel(ctx), ev); perr != nil {
			logger.Warn().Err(perr).Msg("Failed to publish recognition event")
		}
	}

	logger.Warn().
		Err(err).
		Str("errorKind", ev.ErrorKind).
		Int64("durationMs", ev.DurationMs).
		Msg("Recognition failed")

	return err
}

// ErrorKind classifies a pipeline error for metrics and events.
func ErrorKind(err error) string {
	var ufe *audio.UnsupportedFormatError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAudioEncoding):
		return "invalid_encoding"
	case errors.Is(err, ErrAudioTooLarge):
		return "too_large"
	case errors.Is(err, audio.ErrEmptyAudio):
		return "empty_audio"
	case errors.As(err, &ufe):
		return "unsupported_format"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return stt.Kind(err)
	}
}

// decodeAudio accepts standard base64 with or without padding, and a
// data URL prefix as produced by browser recorders.
func decodeAudio(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	s = strings.TrimSpace(s)

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAudioEncoding, err)
	}
	return raw, nil
}
