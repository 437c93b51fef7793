// Command voiceclient sends an audio file to the recognition API.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability/logging"
)

func main() {
	audioFile := flag.String("audio", "", "Path to an audio file (any format the server can normalize)")
	server := flag.String("server", "http://localhost:8000", "API base URL")
	language := flag.String("language", "zh_cn", "Recognition language")
	useBase64 := flag.Bool("base64", false, "Send as base64 JSON to /api/voice/recognize instead of a multipart upload")
	tone := flag.Float64("tone", 0, "Generate a sine tone of this frequency instead of reading -audio")
	toneRate := flag.Int("tone-rate", 44100, "Sample rate of the generated tone")
	toneChannels := flag.Int("tone-channels", 2, "Channel count of the generated tone")
	timeout := flag.Duration("timeout", 2*time.Minute, "Request timeout")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: "console"})

	path := *audioFile
	if *tone > 0 {
		path = filepath.Join(os.TempDir(), fmt.Sprintf("voiceclient-tone-%d.wav", os.Getpid()))
		if err := writeTone(path, *tone, time.Second, *toneRate, *toneChannels); err != nil {
			log.Fatal().Err(err).Msg("Failed to generate tone")
		}
		defer os.Remove(path)
		log.Info().Float64("freq", *tone).Int("rate", *toneRate).Int("channels", *toneChannels).Msg("Generated tone")
	}
	if path == "" {
		log.Fatal().Msg("-audio or -tone is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read audio file")
	}

	var req *http.Request
	if *useBase64 {
		req, err = recognizeRequest(*server, raw, *language)
	} else {
		req, err = uploadRequest(*server, filepath.Base(path), raw, *language)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}

	client := &http.Client{Timeout: *timeout}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal().Err(err).Msg("Request failed")
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		var e models.ErrorResponse
		_ = json.Unmarshal(body, &e)
		log.Fatal().Int("status", resp.StatusCode).Str("detail", e.Detail).Msg("Recognition failed")
	}

	var out models.VoiceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		log.Fatal().Err(err).Msg("Invalid response body")
	}
	log.Info().
		Str("text", out.Text).
		Float64("confidence", out.Confidence).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("Recognition completed")
}

func recognizeRequest(server string, raw []byte, language string) (*http.Request, error) {
	body, err := json.Marshal(models.VoiceInput{
		AudioData: base64.StdEncoding.EncodeToString(raw),
		Language:  language,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, server+"/api/voice/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func uploadRequest(server, name string, raw []byte, language string) (*http.Request, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(raw); err != nil {
		return nil, err
	}
	if err := mw.WriteField("language", language); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, server+"/api/voice/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}
