package iflytek

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// ResultFinal is the data.status value that ends a session.
const ResultFinal = 2

const replaceMode = "rpl"

// message is one inbound websocket message.
type message struct {
	Code    *int         `json:"code"`
	Message string       `json:"message"`
	SID     string       `json:"sid"`
	Data    *messageData `json:"data"`
}

type messageData struct {
	Status int             `json:"status"`
	Result json.RawMessage `json:"result"`
}

// wordResult is the token structure of a recognition result.
type wordResult struct {
	Text json.RawMessage `json:"text"`
	Pgs  string          `json:"pgs"`
	Rg   []int           `json:"rg"`
	Ws   []struct {
		Cw []struct {
			W string `json:"w"`
		} `json:"cw"`
	} `json:"ws"`
}

func (r *wordResult) words() string {
	var b strings.Builder
	for _, ws := range r.Ws {
		for _, cw := range ws.Cw {
			b.WriteString(cw.W)
		}
	}
	return b.String()
}

// Result is a decoded recognition fragment.
type Result struct {
	Text    string
	Replace bool
	Range   [2]int // valid when Replace is set
}

func decodeMessage(data []byte) (*message, error) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// decodeResult extracts text from either result shape:
//  1. an object whose "text" is base64 JSON carrying the tokens, else the
//     object's own ws[].cw[].w tokens;
//  2. a string holding base64 JSON tokens, else the string itself.
//
// pgs and rg come from the outer object, then from the decoded inner one.
func decodeResult(raw json.RawMessage) (Result, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Result{}, nil
	}

	switch raw[0] {
	case '{':
		var outer wordResult
		if err := json.Unmarshal(raw, &outer); err != nil {
			return Result{}, fmt.Errorf("decode result object: %w", err)
		}
		var encoded string
		if len(outer.Text) > 0 && json.Unmarshal(outer.Text, &encoded) == nil && encoded != "" {
			if inner, ok := decodeBase64Words(encoded); ok {
				return withReplace(inner.words(), &outer, inner), nil
			}
		}
		return withReplace(outer.words(), &outer, nil), nil

	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Result{}, fmt.Errorf("decode result string: %w", err)
		}
		if s == "" {
			return Result{}, nil
		}
		inner, ok := decodeBase64Words(s)
		if !ok {
			if decodesToJSON(s) {
				return Result{}, nil
			}
			return Result{Text: s}, nil
		}
		return withReplace(inner.words(), nil, inner), nil

	default:
		return Result{}, nil
	}
}

func decodeBase64Words(s string) (*wordResult, bool) {
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, false
	}
	var r wordResult
	if err := json.Unmarshal(decoded, &r); err != nil {
		return nil, false
	}
	return &r, true
}

// decodesToJSON reports whether s is base64 of valid non-object JSON. Such a
// payload carries no tokens.
func decodesToJSON(s string) bool {
	decoded, err := base64.StdEncoding.DecodeString(s)
	return err == nil && json.Valid(decoded)
}

func withReplace(text string, outer, inner *wordResult) Result {
	res := Result{Text: text}
	for _, src := range []*wordResult{outer, inner} {
		if src == nil || src.Pgs == "" {
			continue
		}
		if src.Pgs == replaceMode {
			res.Replace = true
			if len(src.Rg) > 0 {
				res.Range[0] = src.Rg[0]
			}
			if len(src.Rg) > 1 {
				res.Range[1] = src.Rg[1]
			} else {
				res.Range[1] = res.Range[0]
			}
		}
		break
	}
	return res
}

// Segments is the ordered fragment list of one session. It is owned by the
// receiver goroutine.
type Segments struct {
	parts []string
}

// Apply merges r. Results with empty text leave the list untouched.
func (s *Segments) Apply(r Result) {
	if r.Text == "" {
		return
	}
	if !r.Replace {
		s.parts = append(s.parts, r.Text)
		return
	}

	start := max(0, r.Range[0])
	end := max(start, r.Range[1])
	start = min(start, len(s.parts))
	end = min(end, len(s.parts))

	parts := make([]string, 0, len(s.parts)-(end-start)+1)
	parts = append(parts, s.parts[:start]...)
	parts = append(parts, r.Text)
	parts = append(parts, s.parts[end:]...)
	s.parts = parts
}

// Text returns the concatenated transcript.
func (s *Segments) Text() string {
	return strings.Join(s.parts, "")
}

// Len returns the number of fragments.
func (s *Segments) Len() int {
	return len(s.parts)
}
