// Package mock provides a mock STT provider for local development without
// cloud credentials. It is only used when selected explicitly and is never a
// fallback for a failing provider.
package mock

import (
	"context"
	"sync"
	"time"

	"travel-voice-service/internal/service/stt"
)

// ProviderName identifies this provider in logs, metrics and events.
const ProviderName = "mock"

// DefaultTranscripts are returned in rotation.
var DefaultTranscripts = []string{
	"我想去日本旅游五天预算一万元",
	"帮我规划北京三日游",
	"I want to visit Paris for a week",
	"附近有什么好吃的餐厅",
	"明天上海的天气怎么样",
}

// Adapter implements stt.Transcriber with canned transcripts.
type Adapter struct {
	transcripts []string
	latency     time.Duration

	mu    sync.Mutex
	next  int
	calls []Call
}

// Call records one Transcribe invocation.
type Call struct {
	PCMBytes int
	Language string
}

// Option configures the adapter.
type Option func(*Adapter)

// WithTranscripts replaces the rotation.
func WithTranscripts(t ...string) Option {
	return func(a *Adapter) {
		a.transcripts = t
	}
}

// WithLatency adds a fixed delay to every call.
func WithLatency(d time.Duration) Option {
	return func(a *Adapter) {
		a.latency = d
	}
}

// New creates a mock adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{transcripts: DefaultTranscripts}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return ProviderName
}

// IsConfigured always reports true.
func (a *Adapter) IsConfigured() bool {
	return true
}

// Transcribe returns the next canned transcript.
func (a *Adapter) Transcribe(ctx context.Context, pcm []byte, language string) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrEmptyAudio
	}
	if language == "" {
		language = stt.DefaultLanguage
	}

	if a.latency > 0 {
		t := time.NewTimer(a.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{PCMBytes: len(pcm), Language: language})
	if len(a.transcripts) == 0 {
		return "", nil
	}
	text := a.transcripts[a.next%len(a.transcripts)]
	a.next++
	return text, nil
}

// Calls returns the recorded invocations.
func (a *Adapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call{}, a.calls...)
}
