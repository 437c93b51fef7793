package iflytek

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func collectFrames(t *testing.T, f *Framer) []Frame {
	t.Helper()
	var frames []Frame
	for !f.Done() {
		fr, err := f.Next()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		frames = append(frames, fr)
		if len(frames) > 1000 {
			t.Fatal("framer did not terminate")
		}
	}
	return frames
}

func TestFramer_Sequence(t *testing.T) {
	tests := []struct {
		name       string
		pcmLen     int
		wantStatus []FrameStatus
		wantBytes  []int
	}{
		{
			name:       "partial trailing chunk",
			pcmLen:     3000,
			wantStatus: []FrameStatus{FrameFirst, FrameContinue, FrameContinue, FrameLast},
			wantBytes:  []int{1280, 1280, 440, 0},
		},
		{
			name:       "exact multiple",
			pcmLen:     2560,
			wantStatus: []FrameStatus{FrameFirst, FrameContinue, FrameLast},
			wantBytes:  []int{1280, 1280, 0},
		},
		{
			name:       "shorter than one frame",
			pcmLen:     10,
			wantStatus: []FrameStatus{FrameFirst, FrameLast},
			wantBytes:  []int{10, 0},
		},
		{
			name:       "one second of audio",
			pcmLen:     32000,
			wantStatus: append(append([]FrameStatus{FrameFirst}, repeatStatus(FrameContinue, 24)...), FrameLast),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := collectFrames(t, NewFramer("app", "", make([]byte, tt.pcmLen), 0))
			if len(frames) != len(tt.wantStatus) {
				t.Fatalf("expected %d frames, got %d", len(tt.wantStatus), len(frames))
			}
			for i, fr := range frames {
				if fr.Status != tt.wantStatus[i] {
					t.Errorf("frame %d: expected status %s, got %s", i, tt.wantStatus[i], fr.Status)
				}
				if tt.wantBytes != nil && fr.AudioBytes != tt.wantBytes[i] {
					t.Errorf("frame %d: expected %d audio bytes, got %d", i, tt.wantBytes[i], fr.AudioBytes)
				}
			}
		})
	}
}

func repeatStatus(s FrameStatus, n int) []FrameStatus {
	out := make([]FrameStatus, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func TestFramer_FrameAfterLast(t *testing.T) {
	f := NewFramer("app", "zh_cn", []byte{1, 2}, 0)
	collectFrames(t, f)

	if _, err := f.Next(); !errors.Is(err, ErrFrameAfterLast) {
		t.Errorf("expected ErrFrameAfterLast, got %v", err)
	}
}

func TestFramer_WireShape(t *testing.T) {
	pcm := make([]byte, 1300)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	frames := collectFrames(t, NewFramer("app-1", "", pcm, 0))

	first := string(frames[0].Payload)
	wantPrefix := `{"common":{"app_id":"app-1"},"business":{"language":"zh_cn","domain":"iat","accent":"mandarin","dwa":"wpgs"},"data":{"status":0,"format":"audio/L16;rate=16000","encoding":"raw","audio":"`
	if !strings.HasPrefix(first, wantPrefix) {
		t.Errorf("unexpected first frame:\n%s", first)
	}

	var cont framePayload
	if err := json.Unmarshal(frames[1].Payload, &cont); err != nil {
		t.Fatalf("decode continue frame: %v", err)
	}
	if strings.Contains(string(frames[1].Payload), "common") || strings.Contains(string(frames[1].Payload), "business") {
		t.Errorf("continue frame must carry data only: %s", frames[1].Payload)
	}
	audio, err := base64.StdEncoding.DecodeString(cont.Data.Audio)
	if err != nil {
		t.Fatalf("decode audio: %v", err)
	}
	if len(audio) != 20 || audio[0] != pcm[1280] {
		t.Errorf("expected the 20 trailing bytes, got %d bytes", len(audio))
	}

	last := string(frames[2].Payload)
	wantLast := `{"data":{"status":2,"format":"audio/L16;rate=16000","encoding":"raw","audio":""}}`
	if last != wantLast {
		t.Errorf("unexpected last frame:\n got %s\nwant %s", last, wantLast)
	}
}

func TestFramer_ExplicitLanguage(t *testing.T) {
	fr, err := NewFramer("app", "en_us", []byte{0, 0}, 0).Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var p framePayload
	if err := json.Unmarshal(fr.Payload, &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Business == nil || p.Business.Language != "en_us" {
		t.Errorf("expected en_us business language, got %+v", p.Business)
	}
}
