package audio

import (
	"encoding/binary"
	"math"
)

// Canonical PCM parameters required by the transcription protocol.
const (
	CanonicalSampleRate = 16000
	CanonicalChannels   = 1
	CanonicalBitDepth   = 16
)

// Format describes the parameters of a decoded audio stream.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// IsCanonical reports whether f is mono, 16-bit, 16000 Hz.
func (f Format) IsCanonical() bool {
	return f.SampleRate == CanonicalSampleRate &&
		f.Channels == CanonicalChannels &&
		f.BitDepth == CanonicalBitDepth
}

// PCM is a canonical audio buffer: mono, 16-bit signed little-endian, 16000 Hz.
// It is created per request and never shared.
type PCM struct {
	Data       []byte
	Format     Format
	Source     Format // parameters of the input before conversion
	Transcoded bool   // true if the external transcoder produced the input
}

// Duration returns the buffer length in seconds.
func (p *PCM) Duration() float64 {
	if p == nil || p.Format.SampleRate == 0 {
		return 0
	}
	return float64(len(p.Data)/2) / float64(p.Format.SampleRate)
}

// to16Bit rescales integer samples of the given bit depth to the signed
// 16-bit range. 8-bit WAV samples are unsigned and are re-centred first.
func to16Bit(samples []int, bitDepth int) []int {
	if bitDepth == 16 {
		return samples
	}
	out := make([]int, len(samples))
	for i, v := range samples {
		switch {
		case bitDepth == 8:
			out[i] = (v - 128) << 8
		case bitDepth > 16:
			out[i] = v >> (bitDepth - 16)
		default:
			out[i] = v << (16 - bitDepth)
		}
	}
	return out
}

// downmix averages interleaved channels into a single channel with equal
// weights. A trailing partial frame is dropped.
func downmix(samples []int, channels int) []int {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / channels
	}
	return out
}

// resample converts mono samples from rate `from` to rate `to` by linear
// interpolation. The output has len(samples)*to/from frames.
func resample(samples []int, from, to int) []int {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(int64(len(samples)) * int64(to) / int64(from))
	out := make([]int, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := 0; i < n; i++ {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(j)
		v := float64(samples[j]) + (float64(samples[j+1])-float64(samples[j]))*frac
		out[i] = int(math.Round(v))
	}
	return out
}

// encodeInt16LE clamps samples to the int16 range and serialises them.
func encodeInt16LE(samples []int) []byte {
	out := make([]byte, len(samples)*2)
	for i, v := range samples {
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}
