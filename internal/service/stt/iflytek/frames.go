package iflytek

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// FrameStatus tags each outbound audio frame.
type FrameStatus int

const (
	FrameFirst    FrameStatus = 0
	FrameContinue FrameStatus = 1
	FrameLast     FrameStatus = 2
)

func (s FrameStatus) String() string {
	switch s {
	case FrameFirst:
		return "first"
	case FrameContinue:
		return "continue"
	case FrameLast:
		return "last"
	default:
		return "unknown"
	}
}

// Wire constants of the audio data block and business parameters.
const (
	AudioFormat   = "audio/L16;rate=16000"
	AudioEncoding = "raw"

	DefaultFrameSize = 1280

	businessDomain = "iat"
	businessAccent = "mandarin"
	businessDwa    = "wpgs"
)

// ErrFrameAfterLast is returned when a frame is requested after LAST was produced.
var ErrFrameAfterLast = errors.New("frame requested after LAST frame")

type frameCommon struct {
	AppID string `json:"app_id"`
}

type frameBusiness struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	Dwa      string `json:"dwa"`
}

type frameData struct {
	Status   FrameStatus `json:"status"`
	Format   string      `json:"format"`
	Encoding string      `json:"encoding"`
	Audio    string      `json:"audio"`
}

type framePayload struct {
	Common   *frameCommon   `json:"common,omitempty"`
	Business *frameBusiness `json:"business,omitempty"`
	Data     frameData      `json:"data"`
}

// Frame is one encoded outbound message.
type Frame struct {
	Status     FrameStatus
	AudioBytes int
	Payload    []byte
}

// Framer splits canonical PCM into FIRST, CONTINUE* and LAST frames. It is
// owned by the sender goroutine.
type Framer struct {
	appID    string
	language string
	size     int
	pcm      []byte
	offset   int
	next     FrameStatus
	done     bool
}

// NewFramer creates a framer. Non-positive size selects DefaultFrameSize and
// an empty language selects zh_cn.
func NewFramer(appID, language string, pcm []byte, size int) *Framer {
	if size <= 0 {
		size = DefaultFrameSize
	}
	if language == "" {
		language = "zh_cn"
	}
	return &Framer{
		appID:    appID,
		language: language,
		size:     size,
		pcm:      pcm,
		next:     FrameFirst,
	}
}

// Done reports whether LAST has been produced.
func (f *Framer) Done() bool {
	return f.done
}

// Next returns the next frame. The chunk following the final audio chunk is
// empty and produces LAST with empty audio.
func (f *Framer) Next() (Frame, error) {
	if f.done {
		return Frame{}, ErrFrameAfterLast
	}

	end := min(len(f.pcm), f.offset+f.size)
	chunk := f.pcm[f.offset:end]
	f.offset = end

	status := f.next
	if len(chunk) == 0 {
		status = FrameLast
	}

	p := framePayload{
		Data: frameData{
			Status:   status,
			Format:   AudioFormat,
			Encoding: AudioEncoding,
			Audio:    base64.StdEncoding.EncodeToString(chunk),
		},
	}
	if status == FrameFirst {
		p.Common = &frameCommon{AppID: f.appID}
		p.Business = &frameBusiness{
			Language: f.language,
			Domain:   businessDomain,
			Accent:   businessAccent,
			Dwa:      businessDwa,
		}
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return Frame{}, err
	}

	switch status {
	case FrameFirst:
		f.next = FrameContinue
	case FrameLast:
		f.done = true
	}

	return Frame{Status: status, AudioBytes: len(chunk), Payload: payload}, nil
}
