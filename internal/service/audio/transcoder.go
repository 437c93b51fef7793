package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/rs/zerolog"

	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/observability/metrics"
)

// Command template placeholders.
const (
	InputPlaceholder  = "{input}"
	OutputPlaceholder = "{output}"
)

// DefaultTranscoderCommand converts any input ffmpeg understands to canonical WAV.
const DefaultTranscoderCommand = "ffmpeg -hide_banner -loglevel error -y -i {input} -ac 1 -ar 16000 -acodec pcm_s16le -f wav {output}"

const maxStderrBytes = 512

// waitDelay bounds how long Run waits for pipes held by orphaned children
// after the process has been killed.
const waitDelay = 2 * time.Second

// Transcoder converts arbitrary audio bytes to a WAV container.
type Transcoder interface {
	Transcode(ctx context.Context, input []byte) ([]byte, error)
}

// TranscoderConfig configures CommandTranscoder.
type TranscoderConfig struct {
	Command string        // template containing {input} and {output}
	Timeout time.Duration // zero disables the per-run timeout
	TempDir string        // parent for per-run scratch directories, "" means os.TempDir
}

// CommandTranscoder runs an external program over temporary files. Each run
// gets its own scratch directory which is removed on every exit path.
type CommandTranscoder struct {
	args    []string
	timeout time.Duration
	tempDir string
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCommandTranscoder parses the command template.
func NewCommandTranscoder(cfg TranscoderConfig, m *metrics.Metrics) (*CommandTranscoder, error) {
	args, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse transcoder command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("transcoder command is empty")
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, InputPlaceholder) || !strings.Contains(joined, OutputPlaceholder) {
		return nil, fmt.Errorf("transcoder command must contain %s and %s", InputPlaceholder, OutputPlaceholder)
	}

	return &CommandTranscoder{
		args:    args,
		timeout: cfg.Timeout,
		tempDir: cfg.TempDir,
		metrics: m,
		logger:  logging.WithComponent("transcoder"),
	}, nil
}

// Transcode writes input to a scratch file, runs the command and returns the
// produced output file.
func (t *CommandTranscoder) Transcode(ctx context.Context, input []byte) ([]byte, error) {
	binary, err := exec.LookPath(t.args[0])
	if err != nil {
		t.metrics.RecordTranscoderRun("unavailable")
		return nil, &UnsupportedFormatError{
			Reason: fmt.Sprintf("transcoder %q not found", t.args[0]),
			Err:    fmt.Errorf("%w: %v", ErrTranscoderUnavailable, err),
		}
	}

	dir, err := os.MkdirTemp(t.tempDir, "voice-transcode-*")
	if err != nil {
		return nil, fmt.Errorf("create transcoder scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "input")
	outPath := filepath.Join(dir, "output.wav")
	if err := os.WriteFile(inPath, input, 0o600); err != nil {
		return nil, fmt.Errorf("write transcoder input: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	args := make([]string, 0, len(t.args)-1)
	for _, a := range t.args[1:] {
		a = strings.ReplaceAll(a, InputPlaceholder, inPath)
		a = strings.ReplaceAll(a, OutputPlaceholder, outPath)
		args = append(args, a)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()
	t.logger.Debug().
		Str("binary", binary).
		Int("inputBytes", len(input)).
		Dur("elapsed", time.Since(start)).
		Msg("transcoder finished")

	if runErr != nil {
		t.metrics.RecordTranscoderRun("failed")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &UnsupportedFormatError{Reason: "transcoder did not finish", Err: ctxErr}
		}
		return nil, &UnsupportedFormatError{
			Reason: "transcoder failed",
			Err:    fmt.Errorf("%w: %s", runErr, tail(stderr.String())),
		}
	}

	out, err := os.ReadFile(outPath)
	if err != nil || len(out) == 0 {
		t.metrics.RecordTranscoderRun("failed")
		return nil, &UnsupportedFormatError{Reason: "transcoder produced no output", Err: err}
	}

	t.metrics.RecordTranscoderRun("ok")
	return out, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrBytes {
		s = s[len(s)-maxStderrBytes:]
	}
	return s
}
