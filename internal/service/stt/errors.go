package stt

import (
	"errors"
	"fmt"
)

// Errors returned before any network activity takes place.
var (
	ErrNotConfigured = errors.New("speech provider credentials are not configured")
	ErrEmptyAudio    = errors.New("audio payload is empty")
)

// RemoteError is a failure reported by the remote speech service itself.
type RemoteError struct {
	Provider string
	Code     int
	Message  string
	SID      string
}

func (e *RemoteError) Error() string {
	if e.SID != "" {
		return fmt.Sprintf("%s returned error code=%d, message=%s (sid=%s)", e.Provider, e.Code, e.Message, e.SID)
	}
	return fmt.Sprintf("%s returned error code=%d, message=%s", e.Provider, e.Code, e.Message)
}

// ProtocolError covers malformed or unexpected responses, handshake and
// signature failures, and disconnects before a completion status.
type ProtocolError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s protocol error: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s protocol error: %s", e.Provider, e.Reason)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// Kind classifies an error for metrics labels and event payloads.
func Kind(err error) string {
	var remote *RemoteError
	var proto *ProtocolError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrEmptyAudio):
		return "empty_audio"
	case errors.As(err, &remote):
		return "remote"
	case errors.As(err, &proto):
		return "protocol"
	default:
		return "internal"
	}
}
