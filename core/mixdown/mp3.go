package mixdown

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// MP3Decoder decodes MP3 streams. go-mp3 always produces 16-bit stereo
// interleaved PCM at the stream's sample rate.
type MP3Decoder struct{}

func (d *MP3Decoder) Decode(_ context.Context, data []byte) (*DecodedTrack, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open mp3 stream: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3 stream: %w", err)
	}

	// 2 channels x 2 bytes per frame.
	frames := len(pcm) / 4
	if frames == 0 {
		return nil, fmt.Errorf("mp3 contains no samples")
	}

	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := 0; i < frames; i++ {
		left[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*4:]))) / 32768
		right[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))) / 32768
	}

	return &DecodedTrack{
		Channels:   [][]float32{left, right},
		SampleRate: decoder.SampleRate(),
		Gain:       1,
	}, nil
}
