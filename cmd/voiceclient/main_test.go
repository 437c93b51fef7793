package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"travel-voice-service/internal/models"
)

func TestWriteTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	if err := writeTone(path, 440, 500*time.Millisecond, 8000, 2); err != nil {
		t.Fatalf("writeTone: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	buf, err := d.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.SampleRate != 8000 || d.NumChans != 2 || d.BitDepth != 16 {
		t.Errorf("unexpected format rate=%d chans=%d bits=%d", d.SampleRate, d.NumChans, d.BitDepth)
	}
	if len(buf.Data) != 8000 {
		t.Errorf("expected 4000 frames x 2 channels, got %d samples", len(buf.Data))
	}
}

func TestRecognizeRequest(t *testing.T) {
	req, err := recognizeRequest("http://localhost:8000", []byte("abc"), "en_us")
	if err != nil {
		t.Fatal(err)
	}
	if req.URL.Path != "/api/voice/recognize" {
		t.Errorf("unexpected path %s", req.URL.Path)
	}

	var in models.VoiceInput
	body, _ := io.ReadAll(req.Body)
	if err := json.Unmarshal(body, &in); err != nil {
		t.Fatal(err)
	}
	if in.AudioData != "YWJj" || in.Language != "en_us" {
		t.Errorf("unexpected body %+v", in)
	}
}

func TestUploadRequest(t *testing.T) {
	req, err := uploadRequest("http://localhost:8000", "clip.webm", []byte("abc"), "zh_cn")
	if err != nil {
		t.Fatal(err)
	}
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if req.FormValue("language") != "zh_cn" {
		t.Errorf("expected language field, got %q", req.FormValue("language"))
	}
	f, hdr, err := req.FormFile("file")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if hdr.Filename != "clip.webm" {
		t.Errorf("unexpected filename %s", hdr.Filename)
	}
}
