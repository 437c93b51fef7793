// Package app wires the service components together.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"travel-voice-service/internal/config"
	"travel-voice-service/internal/events"
	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
	"travel-voice-service/internal/schema"
	"travel-voice-service/internal/service/audio"
	"travel-voice-service/internal/service/stt"
	"travel-voice-service/internal/service/stt/google"
	"travel-voice-service/internal/service/stt/iflytek"
	"travel-voice-service/internal/service/stt/mock"
	"travel-voice-service/internal/service/voice"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Publisher *events.Publisher
	Voice     *voice.Service
	Validator *schema.Validator

	closers []func() error
}

// New constructs the application from cfg. The logger must already be
// initialized.
func New(ctx context.Context, cfg *config.Configuration) (*Application, error) {
	a := &Application{
		Cfg:       cfg,
		Logger:    logging.WithComponent("application"),
		Registry:  prometheus.NewRegistry(),
		Validator: schema.New(),
	}
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewMetrics(a.Registry)

	transcoder, err := newTranscoder(cfg.Audio, a.Metrics)
	if err != nil {
		return nil, err
	}
	normalizer := audio.NewNormalizer(transcoder, a.Metrics)

	transcriber, err := a.newTranscriber(ctx)
	if err != nil {
		return nil, err
	}

	a.Publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		TopicFailed:    cfg.Kafka.TopicFailed,
		Principal:      cfg.Kafka.Principal,
	}, a.Metrics)
	a.closers = append(a.closers, a.Publisher.Close)

	a.Voice = voice.NewService(normalizer, transcriber, a.Publisher, a.Metrics, voice.Limits{
		MaxAudioBytes: cfg.Audio.MaxBytes,
	})

	if !transcriber.IsConfigured() {
		a.Logger.Warn().
			Str("provider", transcriber.Name()).
			Msg("Speech provider credentials missing, recognitions will fail")
	}

	a.Logger.Info().
		Str("provider", transcriber.Name()).
		Bool("transcoder", transcoder != nil).
		Bool("kafka", a.Publisher.Enabled()).
		Msg("Travel voice service application created")
	return a, nil
}

// newTranscoder returns nil when the transcoder is disabled with "none".
func newTranscoder(cfg config.AudioConfig, m *metrics.Metrics) (audio.Transcoder, error) {
	command := cfg.TranscoderCommand
	switch command {
	case "none":
		return nil, nil
	case "":
		command = audio.DefaultTranscoderCommand
	}

	t, err := audio.NewCommandTranscoder(audio.TranscoderConfig{
		Command: command,
		Timeout: cfg.TranscoderTimeout,
		TempDir: cfg.TempDir,
	}, m)
	if err != nil {
		return nil, fmt.Errorf("transcoder: %w", err)
	}
	return t, nil
}

func (a *Application) newTranscriber(ctx context.Context) (stt.Transcriber, error) {
	cfg := a.Cfg
	switch cfg.STT.Provider {
	case iflytek.ProviderName:
		return iflytek.New(iflytek.Config{
			Credentials: iflytek.Credentials{
				AppID:     cfg.IFlytek.AppID,
				APIKey:    cfg.IFlytek.APIKey,
				APISecret: cfg.IFlytek.APISecret,
			},
			Endpoint:       cfg.IFlytek.Endpoint,
			FrameInterval:  cfg.IFlytek.FrameInterval,
			SessionTimeout: cfg.IFlytek.SessionTimeout,
		}, a.Metrics), nil

	case google.ProviderName:
		gcfg := google.DefaultConfig()
		gcfg.CredentialsFile = cfg.Google.CredentialsFile
		gcfg.Model = cfg.Google.Model
		gcfg.SessionTimeout = cfg.Google.SessionTimeout
		g, err := google.New(ctx, gcfg, a.Metrics)
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		a.closers = append(a.closers, g.Close)
		return g, nil

	case mock.ProviderName:
		a.Logger.Warn().Msg("Using mock speech provider, transcripts are canned")
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STT.Provider)
	}
}

// Ready reports whether recognitions can succeed.
func (a *Application) Ready() bool {
	return a.Voice != nil && a.Voice.Ready()
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Travel voice service starting")
	return nil
}

// Shutdown releases provider clients and the event publisher.
func (a *Application) Shutdown() error {
	a.Logger.Info().Msg("Travel voice service shutting down")

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
