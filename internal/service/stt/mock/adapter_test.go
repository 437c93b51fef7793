package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"travel-voice-service/internal/service/stt"
)

func TestAdapter_New(t *testing.T) {
	adapter := New()
	if adapter == nil {
		t.Fatal("expected non-nil adapter")
	}
	if adapter.Name() != ProviderName {
		t.Errorf("expected name %q, got %q", ProviderName, adapter.Name())
	}
	if !adapter.IsConfigured() {
		t.Error("expected mock to always be configured")
	}
}

func TestAdapter_CyclesThroughTranscripts(t *testing.T) {
	adapter := New(WithTranscripts("one", "two"))

	var got []string
	for i := 0; i < 3; i++ {
		text, err := adapter.Transcribe(context.Background(), []byte{0, 0}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, text)
	}

	want := []string{"one", "two", "one"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestAdapter_RecordsCalls(t *testing.T) {
	adapter := New()
	adapter.Transcribe(context.Background(), make([]byte, 320), "")
	adapter.Transcribe(context.Background(), make([]byte, 640), "en_us")

	calls := adapter.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Language != stt.DefaultLanguage || calls[0].PCMBytes != 320 {
		t.Errorf("unexpected first call %+v", calls[0])
	}
	if calls[1].Language != "en_us" {
		t.Errorf("expected en_us, got %s", calls[1].Language)
	}
}

func TestAdapter_EmptyAudio(t *testing.T) {
	if _, err := New().Transcribe(context.Background(), nil, ""); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestAdapter_LatencyRespectsContext(t *testing.T) {
	adapter := New(WithLatency(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := adapter.Transcribe(ctx, []byte{0, 0}, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDefaultTranscripts(t *testing.T) {
	if len(DefaultTranscripts) == 0 {
		t.Fatal("expected default transcripts")
	}
	for i, text := range DefaultTranscripts {
		if text == "" {
			t.Errorf("transcript %d is empty", i)
		}
	}
}

func TestAdapter_ThreadSafety(t *testing.T) {
	adapter := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				adapter.Transcribe(context.Background(), []byte("audio"), "")
			}
		}()
	}
	wg.Wait()

	if n := len(adapter.Calls()); n != 50 {
		t.Errorf("expected 50 calls, got %d", n)
	}
}
