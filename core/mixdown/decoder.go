package mixdown

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
)

// Decoder turns encoded audio bytes into a PCM track.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*DecodedTrack, error)
}

// SniffDecoder routes bytes to a concrete decoder by container magic.
// WAV and MP3 are decoded natively; everything else (the browser recorder's
// WebM/Opus in particular) goes through ffmpeg.
type SniffDecoder struct {
	wav    Decoder
	mp3    Decoder
	ffmpeg Decoder
}

// NewSniffDecoder builds the default decoder chain. ffmpegPath may be a bare
// binary name resolved via PATH.
func NewSniffDecoder(ffmpegPath string) *SniffDecoder {
	return &SniffDecoder{
		wav:    &WAVDecoder{},
		mp3:    &MP3Decoder{},
		ffmpeg: NewFFmpegDecoder(ffmpegPath),
	}
}

func (d *SniffDecoder) Decode(ctx context.Context, data []byte) (*DecodedTrack, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("audio data too short (%d bytes)", len(data))
	}

	switch {
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		// The native decoder only handles mono and stereo; wider WAVs go
		// through ffmpeg like any other format.
		if wavChannelCount(data) > 2 {
			return d.ffmpeg.Decode(ctx, data)
		}
		return d.wav.Decode(ctx, data)
	case bytes.HasPrefix(data, []byte("ID3")),
		data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return d.mp3.Decode(ctx, data)
	default:
		return d.ffmpeg.Decode(ctx, data)
	}
}

// wavChannelCount reads the channel count from a canonical WAV header, or 0
// when the fmt chunk is not at the standard offset.
func wavChannelCount(data []byte) int {
	if len(data) < 24 || !bytes.Equal(data[12:16], []byte("fmt ")) {
		return 0
	}
	return int(binary.LittleEndian.Uint16(data[22:24]))
}
