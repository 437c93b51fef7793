package session

import (
	"errors"
	"sync"
	"testing"
)

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle("sess-1")

	if lc.State() != StateUnauthenticated {
		t.Errorf("expected StateUnauthenticated, got %v", lc.State())
	}
	if lc.SessionId() != "sess-1" {
		t.Errorf("expected sess-1, got %v", lc.SessionId())
	}
	if lc.IsTerminal() {
		t.Error("expected IsTerminal to be false")
	}
	if lc.Cause() != nil {
		t.Errorf("expected no cause, got %v", lc.Cause())
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	lc := NewLifecycle("sess-1")

	steps := []struct {
		name string
		fn   func() error
		want State
	}{
		{"connect", lc.Connect, StateConnecting},
		{"stream", lc.Stream, StateStreaming},
		{"drain", lc.Drain, StateDraining},
		{"complete", lc.Complete, StateComplete},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			t.Fatalf("%s: unexpected error: %v", step.name, err)
		}
		if lc.State() != step.want {
			t.Fatalf("%s: expected %v, got %v", step.name, step.want, lc.State())
		}
	}

	if !lc.IsTerminal() {
		t.Error("expected session to be terminal after complete")
	}
}

func TestLifecycle_CompleteWhileStreaming(t *testing.T) {
	lc := NewLifecycle("sess-1")
	_ = lc.Connect()
	_ = lc.Stream()

	if err := lc.Complete(); err != nil {
		t.Fatalf("expected early completion to be allowed, got %v", err)
	}

	// Sender finishing after completion must not resurrect the session
	if err := lc.Drain(); !errors.Is(err, ErrSessionTerminated) {
		t.Errorf("expected ErrSessionTerminated, got %v", err)
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Lifecycle)
		fn    func(*Lifecycle) error
	}{
		{"stream before connect", func(*Lifecycle) {}, (*Lifecycle).Stream},
		{"drain before stream", func(l *Lifecycle) { _ = l.Connect() }, (*Lifecycle).Drain},
		{"complete while connecting", func(l *Lifecycle) { _ = l.Connect() }, (*Lifecycle).Complete},
		{"connect twice", func(l *Lifecycle) { _ = l.Connect() }, (*Lifecycle).Connect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle("sess-1")
			tt.setup(lc)
			before := lc.State()

			err := tt.fn(lc)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if lc.State() != before {
				t.Errorf("state changed on invalid transition: %v → %v", before, lc.State())
			}
		})
	}
}

func TestLifecycle_Fail(t *testing.T) {
	cause := errors.New("remote rejected")
	lc := NewLifecycle("sess-1")
	_ = lc.Connect()

	if !lc.Fail(cause) {
		t.Fatal("expected Fail to return true from CONNECTING")
	}
	if lc.State() != StateFailed {
		t.Errorf("expected StateFailed, got %v", lc.State())
	}
	if lc.Cause() != cause {
		t.Errorf("expected cause to be recorded, got %v", lc.Cause())
	}

	// Second failure keeps the first cause
	if lc.Fail(errors.New("later")) {
		t.Error("expected Fail to return false when already terminal")
	}
	if lc.Cause() != cause {
		t.Errorf("expected original cause to be kept, got %v", lc.Cause())
	}
}

func TestLifecycle_FailAfterComplete(t *testing.T) {
	lc := NewLifecycle("sess-1")
	_ = lc.Connect()
	_ = lc.Stream()
	_ = lc.Complete()

	if lc.Fail(errors.New("late disconnect")) {
		t.Error("expected Fail to be rejected after COMPLETE")
	}
	if lc.State() != StateComplete {
		t.Errorf("expected StateComplete to be kept, got %v", lc.State())
	}
}

func TestLifecycle_ConcurrentTerminal(t *testing.T) {
	lc := NewLifecycle("sess-1")
	_ = lc.Connect()
	_ = lc.Stream()

	var wg sync.WaitGroup
	var completed, failed int
	var mu sync.Mutex

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if lc.Complete() == nil {
				mu.Lock()
				completed++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			if lc.Fail(errors.New("disconnect")) {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if completed+failed != 1 {
		t.Errorf("expected exactly one terminal transition, got completed=%d failed=%d", completed, failed)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUnauthenticated, "UNAUTHENTICATED"},
		{StateConnecting, "CONNECTING"},
		{StateStreaming, "STREAMING"},
		{StateDraining, "DRAINING"},
		{StateComplete, "COMPLETE"},
		{StateFailed, "FAILED"},
		{State(42), "UNKNOWN(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
