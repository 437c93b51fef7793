package main

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeTone writes a sine tone as a 16-bit WAV. Non-canonical rates and
// channel counts are useful for exercising the server-side normalizer.
func writeTone(path string, freq float64, d time.Duration, sampleRate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	frames := int(d.Seconds() * float64(sampleRate))
	data := make([]int, 0, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(math.Round(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))))
		for c := 0; c < channels; c++ {
			data = append(data, v)
		}
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           data,
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
