package mixdown

import (
	"context"
	"math"
	"strings"
	"testing"
)

// encodeTestWAV builds WAV bytes for the given mix using the encode stage,
// which the header tests verify against the container layout independently.
func encodeTestWAV(t *testing.T, mix *RenderedMix) []byte {
	t.Helper()
	blob, err := encodeWAV(mix)
	if err != nil {
		t.Fatalf("failed to build test wav: %v", err)
	}
	return blob.Data
}

func TestWAVDecoderRoundtrip(t *testing.T) {
	original := &RenderedMix{
		SampleRate: 44100,
		Channels: [][]float32{
			{0, 0.5, -0.5, 0.99, -0.99},
			{0.25, -0.25, 0.75, -0.75, 0},
		},
	}
	data := encodeTestWAV(t, original)

	decoder := &WAVDecoder{}
	track, err := decoder.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if track.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", track.SampleRate)
	}
	if len(track.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(track.Channels))
	}
	if track.Frames() != 5 {
		t.Fatalf("frames = %d, want 5", track.Frames())
	}

	// Asymmetric encode scaling plus truncation costs up to two LSB.
	const tolerance = 2.0 / 32768
	for ch := range original.Channels {
		for i, want := range original.Channels[ch] {
			got := track.Channels[ch][i]
			if math.Abs(float64(got-want)) > tolerance {
				t.Errorf("channel %d sample %d = %v, want %v", ch, i, got, want)
			}
		}
	}
}

func TestSniffDecoderRoutesWAV(t *testing.T) {
	mix := &RenderedMix{
		SampleRate: 8000,
		Channels:   [][]float32{{0.5, -0.5}},
	}
	data := encodeTestWAV(t, mix)

	// A bogus ffmpeg path proves sniffing routed to the native WAV decoder.
	sniff := NewSniffDecoder("/nonexistent/ffmpeg")
	track, err := sniff.Decode(context.Background(), data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if track.SampleRate != 8000 {
		t.Errorf("sample rate = %d, want 8000", track.SampleRate)
	}
}

func TestWAVDecoderRejectsWideChannelLayouts(t *testing.T) {
	mix := &RenderedMix{
		SampleRate: 44100,
		Channels: [][]float32{
			{0.1, 0.2}, {0.3, 0.4}, {0.5, 0.6}, {0.7, 0.8},
		},
	}
	data := encodeTestWAV(t, mix)

	decoder := &WAVDecoder{}
	track, err := decoder.Decode(context.Background(), data)
	if err == nil {
		t.Fatal("expected error for 4-channel wav")
	}
	if track != nil {
		t.Fatal("expected no track for 4-channel wav")
	}
}

func TestSniffDecoderRoutesWideWAVToFFmpeg(t *testing.T) {
	mix := &RenderedMix{
		SampleRate: 44100,
		Channels:   [][]float32{{0.1}, {0.2}, {0.3}},
	}
	data := encodeTestWAV(t, mix)

	// The bogus binary path makes the ffmpeg route fail loudly, proving the
	// 3-channel file was not handed to the native WAV decoder.
	sniff := NewSniffDecoder("/nonexistent/ffmpeg")
	_, err := sniff.Decode(context.Background(), data)
	if err == nil {
		t.Fatal("expected error from unreachable ffmpeg")
	}
	if !strings.Contains(err.Error(), "ffprobe") {
		t.Fatalf("expected ffmpeg-route error, got %v", err)
	}
}

func TestSniffDecoderShortInput(t *testing.T) {
	sniff := NewSniffDecoder("ffmpeg")
	if _, err := sniff.Decode(context.Background(), []byte("xx")); err == nil {
		t.Error("expected error for truncated input")
	}
}
