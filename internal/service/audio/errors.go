package audio

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyAudio is returned when there are no audio bytes or no samples.
	ErrEmptyAudio = errors.New("audio payload is empty")

	// ErrTranscoderUnavailable is wrapped by UnsupportedFormatError when the
	// transcoder binary is missing or none is configured.
	ErrTranscoderUnavailable = errors.New("audio transcoder is not available")
)

// UnsupportedFormatError means the input is not a parseable WAV container and
// the transcoder could not convert it.
type UnsupportedFormatError struct {
	Reason string
	Err    error
}

func (e *UnsupportedFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported audio format: %s: %v", e.Reason, e.Err)
	}
	return "unsupported audio format: " + e.Reason
}

func (e *UnsupportedFormatError) Unwrap() error {
	return e.Err
}
