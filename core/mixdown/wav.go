package mixdown

import (
	"bytes"
	"context"
	"fmt"
	"io"

	wav "github.com/youpy/go-wav"
)

// WAVDecoder decodes RIFF/WAVE files.
type WAVDecoder struct{}

func (d *WAVDecoder) Decode(_ context.Context, data []byte) (*DecodedTrack, error) {
	reader := wav.NewReader(bytes.NewReader(data))

	format, err := reader.Format()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav format: %w", err)
	}
	numChannels := int(format.NumChannels)
	if numChannels == 0 {
		return nil, fmt.Errorf("wav reports zero channels")
	}
	// go-wav samples carry at most two values; anything wider panics inside
	// ReadSamples instead of returning an error.
	if numChannels > 2 {
		return nil, fmt.Errorf("wav has %d channels, expected mono or stereo", numChannels)
	}

	channels := make([][]float32, numChannels)
	for {
		samples, err := reader.ReadSamples()
		for _, sample := range samples {
			for ch := 0; ch < numChannels; ch++ {
				channels[ch] = append(channels[ch], float32(reader.FloatValue(sample, uint(ch))))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read wav samples: %w", err)
		}
	}

	if len(channels[0]) == 0 {
		return nil, fmt.Errorf("wav contains no samples")
	}

	return &DecodedTrack{
		Channels:   channels,
		SampleRate: int(format.SampleRate),
		Gain:       1,
	}, nil
}
