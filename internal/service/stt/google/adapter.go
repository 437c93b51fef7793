// Package google provides a Google Cloud Speech-to-Text transcriber.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
	"travel-voice-service/internal/service/session"
	"travel-voice-service/internal/service/stt"
)

// ProviderName identifies this provider in logs, metrics and events.
const ProviderName = "google"

// chunkSize is the audio payload per streaming request.
const chunkSize = 32 * 1024

// Config holds Google STT configuration.
type Config struct {
	CredentialsFile      string // empty uses GOOGLE_APPLICATION_CREDENTIALS
	Model                string // e.g. "latest_short", empty for the default model
	AutomaticPunctuation bool
	SessionTimeout       time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AutomaticPunctuation: true,
		SessionTimeout:       60 * time.Second,
	}
}

// streamer is the subset of *speech.Client used here.
type streamer interface {
	StreamingRecognize(ctx context.Context, opts ...gax.CallOption) (speechpb.Speech_StreamingRecognizeClient, error)
	Close() error
}

// Adapter implements stt.Transcriber over Cloud Speech StreamingRecognize.
type Adapter struct {
	client   streamer
	cfg      Config
	sessions *session.Generator
	metrics  *metrics.Metrics
}

var _ stt.Transcriber = (*Adapter)(nil)

// New creates a Google STT adapter with application default credentials or
// cfg.CredentialsFile.
func New(ctx context.Context, cfg Config, m *metrics.Metrics) (*Adapter, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return newAdapter(c, cfg, m), nil
}

func newAdapter(c streamer, cfg Config, m *metrics.Metrics) *Adapter {
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = DefaultConfig().SessionTimeout
	}
	return &Adapter{
		client:   c,
		cfg:      cfg,
		sessions: session.New(),
		metrics:  m,
	}
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return ProviderName
}

// IsConfigured reports whether a speech client is available.
func (a *Adapter) IsConfigured() bool {
	return a != nil && a.client != nil
}

// Close releases the underlying client.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// LanguageCode maps zh_cn style codes to BCP-47 (zh-CN).
func LanguageCode(language string) string {
	if language == "" {
		language = stt.DefaultLanguage
	}
	lang, region, found := strings.Cut(language, "_")
	if !found {
		return language
	}
	return strings.ToLower(lang) + "-" + strings.ToUpper(region)
}

// Transcribe streams canonical PCM and concatenates the final alternatives.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if !a.IsConfigured() {
		return "", stt.ErrNotConfigured
	}
	if len(pcm) == 0 {
		return "", stt.ErrEmptyAudio
	}

	lc := session.NewLifecycle(a.sessions.Next(ProviderName))
	logger := logging.WithSession(lc.SessionId(), ProviderName)
	start := time.Now()
	a.metrics.RecordSessionStart()

	text, err := a.run(ctx, lc, pcm, LanguageCode(language))
	if err != nil {
		lc.Fail(err)
	}
	a.metrics.RecordSessionEnd(ProviderName, lc.State().String(), time.Since(start).Seconds())

	if err != nil {
		a.metrics.RecordSTTError(ProviderName, stt.Kind(err))
		logger.Warn().Err(err).Msg("transcription failed")
		return "", err
	}
	logger.Info().
		Int("pcmBytes", len(pcm)).
		Int("textLen", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("transcription complete")
	return text, nil
}

func (a *Adapter) run(ctx context.Context, lc *session.Lifecycle, pcm []byte, languageCode string) (string, error) {
	sessCtx, cancel := context.WithTimeout(ctx, a.cfg.SessionTimeout)
	defer cancel()

	if err := lc.Connect(); err != nil {
		return "", err
	}
	stream, err := a.client.StreamingRecognize(sessCtx, gax.WithGRPCOptions(grpc.WaitForReady(true)))
	if err != nil {
		return "", a.mapError(ctx, sessCtx, err)
	}

	// Send streaming config as the first message
	err = stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz:            16000,
					AudioChannelCount:          1,
					LanguageCode:               languageCode,
					Model:                      a.cfg.Model,
					EnableAutomaticPunctuation: a.cfg.AutomaticPunctuation,
				},
			},
		},
	})
	if err != nil {
		return "", a.mapError(ctx, sessCtx, err)
	}
	if err := lc.Stream(); err != nil {
		return "", err
	}

	var g errgroup.Group
	g.Go(func() error {
		for off := 0; off < len(pcm); off += chunkSize {
			end := min(off+chunkSize, len(pcm))
			err := stream.Send(&speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: pcm[off:end],
				},
			})
			if err != nil {
				// the receive loop surfaces the stream status
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			a.metrics.RecordFrameSent(ProviderName, "audio")
		}
		_ = lc.Drain()
		return stream.CloseSend()
	})

	var parts []string
	var recvErr error
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			recvErr = err
			break
		}
		for _, r := range resp.GetResults() {
			alts := r.GetAlternatives()
			if !r.GetIsFinal() || len(alts) == 0 {
				continue
			}
			parts = append(parts, alts[0].GetTranscript())
			a.metrics.RecordResult(ProviderName, "final")
		}
	}

	if recvErr != nil {
		cancel()
		_ = g.Wait()
		return "", a.mapError(ctx, sessCtx, recvErr)
	}
	if err := g.Wait(); err != nil {
		return "", a.mapError(ctx, sessCtx, err)
	}

	if err := lc.Complete(); err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}

// mapError converts gRPC status errors to the stt error taxonomy.
func (a *Adapter) mapError(ctx, sessCtx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(sessCtx.Err(), context.DeadlineExceeded) {
		return &stt.ProtocolError{
			Provider: ProviderName,
			Reason:   fmt.Sprintf("session timed out after %s", a.cfg.SessionTimeout),
			Err:      context.DeadlineExceeded,
		}
	}
	if st, ok := status.FromError(err); ok {
		return &stt.RemoteError{
			Provider: ProviderName,
			Code:     int(st.Code()),
			Message:  st.Message(),
		}
	}
	return &stt.ProtocolError{Provider: ProviderName, Reason: "stream failed", Err: err}
}
