package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-audio/wav"
)

// WAV format tags accepted by the native parser.
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// isWAV checks the RIFF/WAVE container signature.
func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE"
}

// decodeWAV parses an integer PCM WAV container and returns its interleaved
// samples and stream parameters.
func decodeWAV(data []byte) ([]int, Format, error) {
	d := wav.NewDecoder(bytes.NewReader(fitDataChunk(data)))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, Format{}, fmt.Errorf("read wav header: %w", err)
	}

	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, Format{}, fmt.Errorf("wav format tag %d is not integer PCM", d.WavAudioFormat)
	}
	if d.NumChans < 1 || d.SampleRate == 0 {
		return nil, Format{}, fmt.Errorf("wav header has channels=%d sampleRate=%d", d.NumChans, d.SampleRate)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, Format{}, fmt.Errorf("wav bit depth %d is not supported", d.BitDepth)
	}

	format := Format{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		if d.PCMChunk != nil && d.PCMSize == 0 {
			return nil, format, nil
		}
		return nil, Format{}, fmt.Errorf("read wav samples: %w", err)
	}
	return buf.Data, format, nil
}

// fitDataChunk clamps the declared data chunk size to the bytes actually
// present and drops a trailing partial frame. Streaming recorders write
// 0xFFFFFFFF (or a stale length) when the final size is unknown.
func fitDataChunk(data []byte) []byte {
	blockAlign := 0
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int64(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		if id == "fmt " && size >= 14 && body+14 <= len(data) {
			blockAlign = int(binary.LittleEndian.Uint16(data[body+12 : body+14]))
		}
		if id != "data" {
			off = body + int(size) + int(size&1)
			if size > int64(len(data)) || off < body {
				return data
			}
			continue
		}

		fitted := min(size, int64(len(data)-body))
		if blockAlign > 0 {
			fitted -= fitted % int64(blockAlign)
		}
		if fitted == size {
			return data
		}

		out := make([]byte, body+int(fitted))
		copy(out, data)
		binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
		binary.LittleEndian.PutUint32(out[off+4:off+8], uint32(fitted))
		return out
	}
	return data
}
