package google

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"travel-voice-service/internal/service/stt"
)

// fakeStream records requests and replays canned responses once the client
// half-closes.
type fakeStream struct {
	grpc.ClientStream

	mu        sync.Mutex
	requests  []*speechpb.StreamingRecognizeRequest
	closed    chan struct{}
	responses []*speechpb.StreamingRecognizeResponse
	recvErr   error
}

func newFakeStream(recvErr error, responses ...*speechpb.StreamingRecognizeResponse) *fakeStream {
	return &fakeStream{closed: make(chan struct{}), responses: responses, recvErr: recvErr}
}

func (s *fakeStream) Send(req *speechpb.StreamingRecognizeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

func (s *fakeStream) CloseSend() error {
	close(s.closed)
	return nil
}

func (s *fakeStream) Recv() (*speechpb.StreamingRecognizeResponse, error) {
	<-s.closed
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) > 0 {
		r := s.responses[0]
		s.responses = s.responses[1:]
		return r, nil
	}
	if s.recvErr != nil {
		return nil, s.recvErr
	}
	return nil, io.EOF
}

type fakeClient struct {
	stream  *fakeStream
	openErr error
}

func (c *fakeClient) StreamingRecognize(ctx context.Context, opts ...gax.CallOption) (speechpb.Speech_StreamingRecognizeClient, error) {
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.stream, nil
}

func (c *fakeClient) Close() error { return nil }

func finalResult(text string) *speechpb.StreamingRecognizeResponse {
	return &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			IsFinal:      true,
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text, Confidence: 0.9}},
		}},
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.AutomaticPunctuation {
		t.Error("expected automatic punctuation by default")
	}
	if cfg.SessionTimeout <= 0 {
		t.Errorf("expected positive session timeout, got %v", cfg.SessionTimeout)
	}
}

func TestLanguageCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"zh_cn", "zh-CN"},
		{"en_us", "en-US"},
		{"", "zh-CN"},
		{"en-GB", "en-GB"},
		{"ja", "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LanguageCode(tt.input); got != tt.expected {
				t.Errorf("LanguageCode(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTranscribe_StreamsConfigThenChunks(t *testing.T) {
	stream := newFakeStream(nil, finalResult("你好"), finalResult("世界"))
	a := newAdapter(&fakeClient{stream: stream}, DefaultConfig(), nil)

	pcm := make([]byte, chunkSize*2+100)
	text, err := a.Transcribe(context.Background(), pcm, "zh_cn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "你好世界" {
		t.Errorf("expected 你好世界, got %q", text)
	}

	if len(stream.requests) != 4 {
		t.Fatalf("expected config + 3 audio requests, got %d", len(stream.requests))
	}
	cfg := stream.requests[0].GetStreamingConfig().GetConfig()
	if cfg.GetSampleRateHertz() != 16000 || cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("unexpected recognition config %+v", cfg)
	}
	if cfg.GetLanguageCode() != "zh-CN" {
		t.Errorf("expected zh-CN, got %s", cfg.GetLanguageCode())
	}
	if n := len(stream.requests[3].GetAudioContent()); n != 100 {
		t.Errorf("expected trailing chunk of 100 bytes, got %d", n)
	}
}

func TestTranscribe_IgnoresInterimResults(t *testing.T) {
	interim := &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{{
			Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "partial"}},
		}},
	}
	a := newAdapter(&fakeClient{stream: newFakeStream(nil, interim)}, DefaultConfig(), nil)

	text, err := a.Transcribe(context.Background(), []byte{0, 0}, "en_us")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty transcript, got %q", text)
	}
}

func TestTranscribe_StatusErrorBecomesRemoteError(t *testing.T) {
	stream := newFakeStream(status.Error(codes.InvalidArgument, "bad sample rate"))
	a := newAdapter(&fakeClient{stream: stream}, DefaultConfig(), nil)

	_, err := a.Transcribe(context.Background(), []byte{0, 0}, "")

	var remote *stt.RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Code != int(codes.InvalidArgument) || remote.Message != "bad sample rate" {
		t.Errorf("unexpected remote error %+v", remote)
	}
}

func TestTranscribe_OpenFailure(t *testing.T) {
	a := newAdapter(&fakeClient{openErr: errors.New("dial tcp: refused")}, DefaultConfig(), nil)

	_, err := a.Transcribe(context.Background(), []byte{0, 0}, "")

	var proto *stt.ProtocolError
	if !errors.As(err, &proto) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestTranscribe_Guards(t *testing.T) {
	var unconfigured *Adapter
	if _, err := unconfigured.Transcribe(context.Background(), []byte{1}, ""); !errors.Is(err, stt.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}

	a := newAdapter(&fakeClient{stream: newFakeStream(nil)}, DefaultConfig(), nil)
	if _, err := a.Transcribe(context.Background(), nil, ""); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}
