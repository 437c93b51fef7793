// Package stt defines the interface for Speech-to-Text providers and the
// error taxonomy shared by all of them.
package stt

import "context"

// Transcriber defines the interface for STT providers (iFlytek, Google, mock).
//
// A Transcriber receives canonical PCM only: mono, 16-bit signed little-endian
// samples at 16000 Hz. It never converts formats itself.
type Transcriber interface {
	// Name returns the provider name used in logs, metrics and events.
	Name() string

	// IsConfigured reports whether the provider has every credential it needs.
	IsConfigured() bool

	// Transcribe performs one end-to-end transcription and returns the
	// finalized transcript. It blocks until the provider completes or fails.
	Transcribe(ctx context.Context, pcm []byte, language string) (string, error)
}

// DefaultLanguage is used when a caller does not specify one.
const DefaultLanguage = "zh_cn"
