// Package iflytek implements the streaming transcription client for the
// iFlytek IAT websocket API.
package iflytek

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
	"travel-voice-service/internal/service/session"
	"travel-voice-service/internal/service/stt"
)

// ProviderName identifies this provider in logs, metrics and events.
const ProviderName = "iflytek"

// Defaults for Config.
const (
	DefaultFrameInterval    = 40 * time.Millisecond
	DefaultSessionTimeout   = 60 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
	closeGracePeriod        = time.Second
)

// Config holds the client configuration.
type Config struct {
	Credentials

	// Endpoint is the websocket URL to dial. Defaults to DefaultEndpoint.
	Endpoint string

	FrameSize        int
	FrameInterval    time.Duration
	SessionTimeout   time.Duration
	HandshakeTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.FrameSize <= 0 {
		c.FrameSize = DefaultFrameSize
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = DefaultFrameInterval
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return c
}

// Client implements stt.Transcriber against iFlytek IAT. Each Transcribe call
// opens its own connection; nothing is shared between calls.
type Client struct {
	cfg      Config
	dialer   *websocket.Dialer
	sessions *session.Generator
	metrics  *metrics.Metrics
	now      func() time.Time
}

var _ stt.Transcriber = (*Client)(nil)

// New creates a client. m may be nil.
func New(cfg Config, m *metrics.Metrics) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		sessions: session.New(),
		metrics:  m,
		now:      time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// IsConfigured reports whether all credentials are present.
func (c *Client) IsConfigured() bool {
	return c.cfg.Credentials.Configured()
}

// Transcribe streams pcm (canonical 16 kHz mono s16le) and returns the final
// transcript, trimmed of surrounding whitespace.
func (c *Client) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if !c.IsConfigured() {
		return "", stt.ErrNotConfigured
	}
	if len(pcm) == 0 {
		return "", stt.ErrEmptyAudio
	}
	if language == "" {
		language = stt.DefaultLanguage
	}

	lc := session.NewLifecycle(c.sessions.Next(ProviderName))
	logger := logging.WithSession(lc.SessionId(), ProviderName)

	start := time.Now()
	c.metrics.RecordSessionStart()

	text, err := c.run(ctx, lc, logger, pcm, language)
	if err != nil {
		lc.Fail(err)
	}

	elapsed := time.Since(start)
	c.metrics.RecordSessionEnd(ProviderName, lc.State().String(), elapsed.Seconds())

	if err != nil {
		c.metrics.RecordSTTError(ProviderName, stt.Kind(err))
		logger.Warn().
			Err(lc.Cause()).
			Str("state", lc.State().String()).
			Dur("elapsed", elapsed).
			Msg("transcription failed")
		return "", err
	}

	logger.Info().
		Str("state", lc.State().String()).
		Int("pcmBytes", len(pcm)).
		Int("textLen", len(text)).
		Dur("elapsed", elapsed).
		Msg("transcription complete")
	return text, nil
}

func (c *Client) run(ctx context.Context, lc *session.Lifecycle, logger zerolog.Logger, pcm []byte, language string) (string, error) {
	sessCtx, cancel := context.WithTimeout(ctx, c.cfg.SessionTimeout)
	defer cancel()

	req := sign(c.cfg.Credentials, c.now())
	if err := lc.Connect(); err != nil {
		return "", err
	}

	conn, resp, err := c.dialer.DialContext(sessCtx, req.URL(c.cfg.Endpoint), req.Header())
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		reason := "handshake failed"
		if resp != nil {
			reason = fmt.Sprintf("handshake failed with HTTP %d", resp.StatusCode)
		}
		return "", &stt.ProtocolError{Provider: ProviderName, Reason: reason, Err: err}
	}
	defer conn.Close()

	if err := lc.Stream(); err != nil {
		return "", err
	}
	logger.Debug().Str("endpoint", c.cfg.Endpoint).Msg("session streaming")

	g, gctx := errgroup.WithContext(sessCtx)
	framer := NewFramer(c.cfg.AppID, language, pcm, c.cfg.FrameSize)

	var transcript string
	var sendErr error
	g.Go(func() error {
		sendErr = c.send(gctx, conn, lc, framer)
		return nil
	})
	g.Go(func() error {
		text, err := c.receive(gctx, conn, lc, logger)
		if err != nil {
			return err
		}
		transcript = text
		// completion stops the sender and the closer
		cancel()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGracePeriod),
		)
		return conn.Close()
	})

	err = g.Wait()
	if lc.State() == session.StateComplete {
		return transcript, nil
	}

	switch {
	case ctx.Err() != nil:
		return "", ctx.Err()
	case errors.Is(sessCtx.Err(), context.DeadlineExceeded):
		return "", &stt.ProtocolError{
			Provider: ProviderName,
			Reason:   fmt.Sprintf("session timed out after %s", c.cfg.SessionTimeout),
			Err:      context.DeadlineExceeded,
		}
	case err != nil:
		return "", err
	case sendErr != nil:
		return "", sendErr
	default:
		return "", &stt.ProtocolError{Provider: ProviderName, Reason: "session ended without a result"}
	}
}

// send is the only writer on conn. It paces frames at FrameInterval and stops
// after LAST or when ctx ends. A failed write breaks the connection, so the
// receiver reports the disconnect and send's own error is only a fallback.
func (c *Client) send(ctx context.Context, conn *websocket.Conn, lc *session.Lifecycle, f *Framer) error {
	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for !f.Done() {
		frame, err := f.Next()
		if err != nil {
			return err
		}

		if err := conn.WriteMessage(websocket.TextMessage, frame.Payload); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &stt.ProtocolError{Provider: ProviderName, Reason: "send frame", Err: err}
		}
		c.metrics.RecordFrameSent(ProviderName, frame.Status.String())

		if frame.Status == FrameLast {
			// the receiver may already have completed the session
			_ = lc.Drain()
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// receive is the only reader on conn and the sole owner of the segments. It
// returns the transcript once a final status arrives.
func (c *Client) receive(ctx context.Context, conn *websocket.Conn, lc *session.Lifecycle, logger zerolog.Logger) (string, error) {
	var segments Segments

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return "", &stt.ProtocolError{
					Provider: ProviderName,
					Reason:   fmt.Sprintf("unexpected disconnect: code=%d, message=%s", ce.Code, ce.Text),
				}
			}
			return "", &stt.ProtocolError{Provider: ProviderName, Reason: "unexpected disconnect", Err: err}
		}

		msg, err := decodeMessage(data)
		if err != nil {
			return "", &stt.ProtocolError{Provider: ProviderName, Reason: "malformed message", Err: err}
		}

		if msg.Code != nil && *msg.Code != 0 {
			return "", &stt.RemoteError{
				Provider: ProviderName,
				Code:     *msg.Code,
				Message:  msg.Message,
				SID:      msg.SID,
			}
		}
		if msg.Data == nil {
			continue
		}

		res, err := decodeResult(msg.Data.Result)
		if err != nil {
			return "", &stt.ProtocolError{Provider: ProviderName, Reason: "malformed result", Err: err}
		}
		if res.Text != "" {
			segments.Apply(res)
			mode := "append"
			if res.Replace {
				mode = "replace"
			}
			c.metrics.RecordResult(ProviderName, mode)
		}

		if msg.Data.Status == ResultFinal {
			if err := lc.Complete(); err != nil {
				return "", err
			}
			logger.Debug().Int("segments", segments.Len()).Msg("final result received")
			return strings.TrimSpace(segments.Text()), nil
		}
	}
}
