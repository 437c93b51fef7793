// Package session provides session ID generation and lifecycle management
// for streaming transcription calls.
package session

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a transcription session.
type State int

const (
	// StateUnauthenticated - Session created, connection request not yet signed.
	StateUnauthenticated State = iota
	// StateConnecting - Signed request built, waiting for the transport.
	StateConnecting
	// StateStreaming - Transport writable, audio frames flowing.
	StateStreaming
	// StateDraining - LAST frame sent, still receiving results.
	StateDraining
	// StateComplete - Completion status received. Terminal.
	StateComplete
	// StateFailed - Remote error, protocol error or disconnect. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateConnecting:
		return "CONNECTING"
	case StateStreaming:
		return "STREAMING"
	case StateDraining:
		return "DRAINING"
	case StateComplete:
		return "COMPLETE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMPLETE or FAILED).
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrSessionTerminated = errors.New("session already reached a terminal state")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// Lifecycle manages the state machine for a single transcription session.
// Thread-safe: the sender and the receiver both drive transitions.
//
// State transitions:
//
//	UNAUTHENTICATED → CONNECTING → STREAMING → DRAINING → COMPLETE
//	                      │            │          │
//	                      └────────────┴──────────┴──→ FAILED
//
// Rules:
//   - STREAMING may jump straight to COMPLETE when the service finishes early
//   - COMPLETE and FAILED are terminal; every further transition is rejected
type Lifecycle struct {
	mu        sync.RWMutex
	sessionId string
	state     State
	cause     error
}

// NewLifecycle creates a new session lifecycle in UNAUTHENTICATED state.
func NewLifecycle(sessionId string) *Lifecycle {
	return &Lifecycle{
		sessionId: sessionId,
		state:     StateUnauthenticated,
	}
}

// SessionId returns the session ID.
func (l *Lifecycle) SessionId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Cause returns the error recorded by Fail, if any.
func (l *Lifecycle) Cause() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cause
}

// IsTerminal returns true if the session is COMPLETE or FAILED.
func (l *Lifecycle) IsTerminal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// Connect transitions UNAUTHENTICATED → CONNECTING once the request is signed.
func (l *Lifecycle) Connect() error {
	return l.transition(StateConnecting, StateUnauthenticated)
}

// Stream transitions CONNECTING → STREAMING once the transport is writable.
func (l *Lifecycle) Stream() error {
	return l.transition(StateStreaming, StateConnecting)
}

// Drain transitions STREAMING → DRAINING after the LAST frame is sent.
func (l *Lifecycle) Drain() error {
	return l.transition(StateDraining, StateStreaming)
}

// Complete transitions to COMPLETE from STREAMING or DRAINING.
func (l *Lifecycle) Complete() error {
	return l.transition(StateComplete, StateStreaming, StateDraining)
}

// Fail transitions any non-terminal state to FAILED and records the cause.
// Returns true if the session was failed, false if already terminal.
func (l *Lifecycle) Fail(cause error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateFailed
	l.cause = cause
	return true
}

func (l *Lifecycle) transition(to State, from ...State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrSessionTerminated
	}
	for _, s := range from {
		if l.state == s {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, l.state, to)
}
