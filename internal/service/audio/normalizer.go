// Package audio converts uploaded audio into the canonical PCM stream the
// recognizers consume.
package audio

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
)

// Normalization paths reported in metrics.
const (
	PathWAV        = "wav"
	PathTranscoder = "transcoder"
)

// Normalizer accepts arbitrary audio bytes and produces canonical PCM.
// WAV containers with integer PCM are converted in process; anything else is
// handed to the transcoder, whose output is converted the same way.
type Normalizer struct {
	transcoder Transcoder
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewNormalizer creates a normalizer. A nil transcoder makes non-WAV input
// fail with UnsupportedFormatError.
func NewNormalizer(t Transcoder, m *metrics.Metrics) *Normalizer {
	return &Normalizer{
		transcoder: t,
		metrics:    m,
		logger:     logging.WithComponent("audio-normalizer"),
	}
}

// Normalize returns mono 16-bit 16000 Hz PCM for raw.
func (n *Normalizer) Normalize(ctx context.Context, raw []byte) (*PCM, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyAudio
	}

	start := time.Now()

	if isWAV(raw) {
		pcm, err := n.fromWAV(raw)
		if err == nil || errors.Is(err, ErrEmptyAudio) {
			n.metrics.RecordNormalize(PathWAV, err, time.Since(start).Seconds())
			return pcm, err
		}
		n.logger.Debug().Err(err).Msg("native wav parse failed, falling back to transcoder")
	}

	pcm, err := n.viaTranscoder(ctx, raw)
	n.metrics.RecordNormalize(PathTranscoder, err, time.Since(start).Seconds())
	return pcm, err
}

func (n *Normalizer) viaTranscoder(ctx context.Context, raw []byte) (*PCM, error) {
	if n.transcoder == nil {
		return nil, &UnsupportedFormatError{Reason: "input is not WAV and no transcoder is configured", Err: ErrTranscoderUnavailable}
	}

	out, err := n.transcoder.Transcode(ctx, raw)
	if err != nil {
		var ufe *UnsupportedFormatError
		if errors.As(err, &ufe) {
			return nil, err
		}
		return nil, &UnsupportedFormatError{Reason: "transcoding failed", Err: err}
	}
	if !isWAV(out) {
		return nil, &UnsupportedFormatError{Reason: "transcoder output is not WAV"}
	}

	pcm, err := n.fromWAV(out)
	if err != nil {
		if errors.Is(err, ErrEmptyAudio) {
			return nil, err
		}
		return nil, &UnsupportedFormatError{Reason: "transcoder output is unreadable", Err: err}
	}
	pcm.Transcoded = true
	return pcm, nil
}

// fromWAV decodes and converts a WAV container: bit depth first, then
// channel count, then sample rate.
func (n *Normalizer) fromWAV(data []byte) (*PCM, error) {
	samples, src, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	samples = to16Bit(samples, src.BitDepth)
	samples = downmix(samples, src.Channels)
	samples = resample(samples, src.SampleRate, CanonicalSampleRate)
	if len(samples) == 0 {
		return nil, ErrEmptyAudio
	}

	n.logger.Debug().
		Int("sourceRate", src.SampleRate).
		Int("sourceChannels", src.Channels).
		Int("sourceBitDepth", src.BitDepth).
		Int("frames", len(samples)).
		Msg("audio normalized")

	return &PCM{
		Data: encodeInt16LE(samples),
		Format: Format{
			SampleRate: CanonicalSampleRate,
			Channels:   CanonicalChannels,
			BitDepth:   CanonicalBitDepth,
		},
		Source: src,
	}, nil
}
