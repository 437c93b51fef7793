// Package models defines the request, response and event payloads of the
// voice recognition service.
package models

// VoiceInput is the JSON body of a recognition request.
type VoiceInput struct {
	AudioData string `json:"audio_data" validate:"required"`
	Language  string `json:"language,omitempty" validate:"omitempty,language_code"`
}

// VoiceResponse is the result of a successful recognition.
type VoiceResponse struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Recognition event types.
const (
	EventRecognitionCompleted = "voice.recognition.completed"
	EventRecognitionFailed    = "voice.recognition.failed"
)

// RecognitionEvent describes one finished recognition. It carries metadata
// only, never audio or transcript text.
type RecognitionEvent struct {
	EventType        string  `json:"eventType"`
	EventID          string  `json:"eventId"`
	RequestID        string  `json:"requestId"`
	Provider         string  `json:"provider"`
	Language         string  `json:"language"`
	InputBytes       int     `json:"inputBytes"`
	PCMBytes         int     `json:"pcmBytes"`
	AudioSeconds     float64 `json:"audioSeconds"`
	Transcoded       bool    `json:"transcoded"`
	DurationMs       int64   `json:"durationMs"`
	TranscriptLength int     `json:"transcriptLength"`
	ErrorKind        string  `json:"errorKind,omitempty"`
	Timestamp        int64   `json:"timestamp"`
}
