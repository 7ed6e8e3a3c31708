package mixdown

import (
	"math"
	"testing"
)

func TestNormalizeChannelsMonoToStereo(t *testing.T) {
	track := monoTrack(44100, 0.1, 0.2, 0.3)

	got, err := normalizeChannels(track, 2)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(got.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(got.Channels))
	}
	for ch := 0; ch < 2; ch++ {
		for i, s := range track.Channels[0] {
			if got.Channels[ch][i] != s {
				t.Errorf("channel %d sample %d = %v, want %v", ch, i, got.Channels[ch][i], s)
			}
		}
	}
}

func TestNormalizeChannelsStereoToMono(t *testing.T) {
	track := &DecodedTrack{
		SampleRate: 44100,
		Gain:       1,
		Channels: [][]float32{
			{0.5, -0.5},
			{0.25, -0.75},
		},
	}

	got, err := normalizeChannels(track, 1)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if len(got.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(got.Channels))
	}

	want := []float32{0.375, -0.625}
	for i, w := range want {
		if math.Abs(float64(got.Channels[0][i]-w)) > 1e-6 {
			t.Errorf("mono sample %d = %v, want %v", i, got.Channels[0][i], w)
		}
	}
}

func TestNormalizeChannelsMismatch(t *testing.T) {
	track := &DecodedTrack{
		SampleRate: 44100,
		Gain:       1,
		Channels:   make([][]float32, 3),
	}

	_, err := normalizeChannels(track, 2)
	if _, ok := err.(*RenderError); !ok {
		t.Fatalf("expected RenderError for 3ch into 2ch, got %v", err)
	}
}

func TestRenderFirstTrackSetsFormat(t *testing.T) {
	tracks := []*DecodedTrack{
		{Channels: [][]float32{{0.1}, {0.1}}, SampleRate: 48000, Gain: 1},
		monoTrack(48000, 0.2),
	}

	mix, err := render(tracks, PolicyOverlay)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if mix.SampleRate != 48000 {
		t.Errorf("mix rate = %d, want 48000", mix.SampleRate)
	}
	if len(mix.Channels) != 2 {
		t.Errorf("mix channels = %d, want 2 (first track's)", len(mix.Channels))
	}
}

func TestRenderEmptyInput(t *testing.T) {
	if _, err := render(nil, PolicyOverlay); err == nil {
		t.Error("expected error for empty track list")
	}
}

func TestRenderUnknownPolicy(t *testing.T) {
	tracks := []*DecodedTrack{monoTrack(44100, 0.1)}
	_, err := render(tracks, SchedulePolicy(99))
	if _, ok := err.(*RenderError); !ok {
		t.Fatalf("expected RenderError for unknown policy, got %v", err)
	}
}

func TestRenderAppliesGainPerTrack(t *testing.T) {
	a := monoTrack(44100, 1, 1)
	a.Gain = 0.25
	b := monoTrack(44100, 1)
	b.Gain = 0.5

	mix, err := render([]*DecodedTrack{a, b}, PolicyOverlay)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	want := []float32{0.75, 0.25}
	for i, w := range want {
		if math.Abs(float64(mix.Channels[0][i]-w)) > 1e-6 {
			t.Errorf("sample %d = %v, want %v", i, mix.Channels[0][i], w)
		}
	}
}
