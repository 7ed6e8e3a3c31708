package mixdown

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeFetcher serves canned bytes per source, with optional per-source
// latency and failures to exercise the concurrent decode stage.
type fakeFetcher struct {
	data   map[string][]byte
	delays map[string]time.Duration
	fails  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	if d, ok := f.delays[source]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fails[source]; ok {
		return nil, err
	}
	data, ok := f.data[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %s", source)
	}
	return data, nil
}

// fakeDecoder maps fetched bytes straight to predefined PCM tracks.
type fakeDecoder struct {
	tracks map[string]*DecodedTrack
}

func (d *fakeDecoder) Decode(_ context.Context, data []byte) (*DecodedTrack, error) {
	def, ok := d.tracks[string(data)]
	if !ok {
		return nil, fmt.Errorf("no track for payload %q", data)
	}
	// Fresh copy per call; the engine owns the returned buffers.
	channels := make([][]float32, len(def.Channels))
	for ch, samples := range def.Channels {
		channels[ch] = append([]float32(nil), samples...)
	}
	return &DecodedTrack{Channels: channels, SampleRate: def.SampleRate, Gain: 1}, nil
}

func monoTrack(rate int, samples ...float32) *DecodedTrack {
	return &DecodedTrack{Channels: [][]float32{samples}, SampleRate: rate, Gain: 1}
}

// pcmSamples pulls the interleaved int16 data section out of an encoded blob.
func pcmSamples(t *testing.T, blob *EncodedBlob) []int16 {
	t.Helper()
	if len(blob.Data) < wavHeaderSize {
		t.Fatalf("blob shorter than header: %d bytes", len(blob.Data))
	}
	data := blob.Data[wavHeaderSize:]
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

func newTestEngine(fetcher *fakeFetcher, decoder *fakeDecoder) *Engine {
	return NewEngine(fetcher, decoder)
}

func TestRenderNoActiveTracks(t *testing.T) {
	engine := newTestEngine(&fakeFetcher{}, &fakeDecoder{})

	tests := []struct {
		name  string
		loops []LoopInput
	}{
		{name: "empty list", loops: nil},
		{
			name: "all disabled",
			loops: []LoopInput{
				{ID: "a", Source: "a", Enabled: false, Volume: 1},
				{ID: "b", Source: "b", Enabled: false, Volume: 0.5},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := engine.Render(context.Background(), tt.loops)
			if !errors.Is(err, ErrNoActiveTracks) {
				t.Fatalf("expected ErrNoActiveTracks, got %v", err)
			}
			if blob != nil {
				t.Fatal("expected no blob")
			}
		})
	}
}

func TestRenderSingleTrackPassthrough(t *testing.T) {
	input := []float32{0, 0.25, -0.25, 0.5, -0.5, 1, -1}
	fetcher := &fakeFetcher{data: map[string][]byte{"a": []byte("a")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{"a": monoTrack(44100, input...)}}
	engine := newTestEngine(fetcher, decoder)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 1},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	got := pcmSamples(t, blob)
	if len(got) != len(input) {
		t.Fatalf("expected %d samples, got %d", len(input), len(got))
	}
	for i, s := range input {
		want := sampleToInt16(s)
		if got[i] != want {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want)
		}
	}
}

func TestRenderGainScaling(t *testing.T) {
	input := []float32{0.8, -0.8, 0.4, -0.4}
	fetcher := &fakeFetcher{data: map[string][]byte{"a": []byte("a")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{"a": monoTrack(48000, input...)}}
	engine := newTestEngine(fetcher, decoder)

	full, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 1},
	})
	if err != nil {
		t.Fatalf("render at 1.0 failed: %v", err)
	}
	half, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 0.5},
	})
	if err != nil {
		t.Fatalf("render at 0.5 failed: %v", err)
	}

	fullSamples := pcmSamples(t, full)
	halfSamples := pcmSamples(t, half)
	for i := range fullSamples {
		want := fullSamples[i] / 2
		diff := int(halfSamples[i]) - int(want)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d: got %d, want %d within 1", i, halfSamples[i], want)
		}
	}
}

func TestRenderOverlayClipping(t *testing.T) {
	// Two tracks summing past full scale must hard-clip at the int16 rails.
	fetcher := &fakeFetcher{data: map[string][]byte{"a": []byte("a"), "b": []byte("b")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{
		"a": monoTrack(44100, 0.9, -0.9),
		"b": monoTrack(44100, 0.9, -0.9),
	}}
	engine := newTestEngine(fetcher, decoder)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 1},
		{ID: "b", Source: "b", Enabled: true, Volume: 1},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	got := pcmSamples(t, blob)
	if got[0] != 32767 {
		t.Errorf("positive overflow: got %d, want 32767", got[0])
	}
	if got[1] != -32768 {
		t.Errorf("negative overflow: got %d, want -32768", got[1])
	}
}

func TestRenderOverlayLength(t *testing.T) {
	short := []float32{0.1, 0.2}
	long := []float32{0.3, 0.3, 0.3, 0.3, 0.3}
	fetcher := &fakeFetcher{data: map[string][]byte{"short": []byte("short"), "long": []byte("long")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{
		"short": monoTrack(44100, short...),
		"long":  monoTrack(44100, long...),
	}}
	engine := newTestEngine(fetcher, decoder)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "s", Source: "short", Enabled: true, Volume: 1},
		{ID: "l", Source: "long", Enabled: true, Volume: 1},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if blob.Frames != len(long) {
		t.Fatalf("expected %d frames (longest track), got %d", len(long), blob.Frames)
	}

	// Beyond the short track's end only the long track contributes.
	got := pcmSamples(t, blob)
	for i := len(short); i < len(long); i++ {
		want := sampleToInt16(long[i])
		if got[i] != want {
			t.Errorf("tail sample %d: got %d, want %d", i, got[i], want)
		}
	}
}

func TestRenderOverlaySummation(t *testing.T) {
	s1 := []float32{0.5, -0.5, 0.9, 0.2}
	s2 := []float32{0.25, -0.25, 0.9, -0.6}
	v1, v2 := 0.8, 0.6
	fetcher := &fakeFetcher{data: map[string][]byte{"a": []byte("a"), "b": []byte("b")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{
		"a": monoTrack(44100, s1...),
		"b": monoTrack(44100, s2...),
	}}
	engine := newTestEngine(fetcher, decoder)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: v1},
		{ID: "b", Source: "b", Enabled: true, Volume: v2},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	got := pcmSamples(t, blob)
	for i := range s1 {
		sum := s1[i]*float32(v1) + s2[i]*float32(v2)
		want := sampleToInt16(sum)
		diff := int(got[i]) - int(want)
		if diff < -1 || diff > 1 {
			t.Errorf("sample %d: got %d, want %d within 1", i, got[i], want)
		}
	}
}

func TestRenderConcatPolicy(t *testing.T) {
	a := []float32{0.1, 0.2}
	b := []float32{-0.3, -0.4, -0.5}
	fetcher := &fakeFetcher{data: map[string][]byte{"a": []byte("a"), "b": []byte("b")}}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{
		"a": monoTrack(44100, a...),
		"b": monoTrack(44100, b...),
	}}
	engine := NewEngineWithPolicy(fetcher, decoder, PolicyConcat)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 1},
		{ID: "b", Source: "b", Enabled: true, Volume: 1},
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	if blob.Frames != len(a)+len(b) {
		t.Fatalf("expected %d frames (sum of tracks), got %d", len(a)+len(b), blob.Frames)
	}

	got := pcmSamples(t, blob)
	expected := append(append([]float32{}, a...), b...)
	for i, s := range expected {
		want := sampleToInt16(s)
		if got[i] != want {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want)
		}
	}
}

func TestDecodeFailurePropagation(t *testing.T) {
	fetcher := &fakeFetcher{
		data:  map[string][]byte{"good": []byte("good")},
		fails: map[string]error{"bad": errors.New("object not found")},
	}
	decoder := &fakeDecoder{tracks: map[string]*DecodedTrack{
		"good": monoTrack(44100, 0.5),
	}}
	engine := newTestEngine(fetcher, decoder)

	blob, err := engine.Render(context.Background(), []LoopInput{
		{ID: "loop-good", Source: "good", Enabled: true, Volume: 1},
		{ID: "loop-bad", Source: "bad", Enabled: true, Volume: 1},
	})
	if blob != nil {
		t.Fatal("expected no blob on decode failure")
	}

	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.ResourceID != "loop-bad" {
		t.Errorf("expected failing resource loop-bad, got %s", decodeErr.ResourceID)
	}
}

func TestDecodeOrderIndependence(t *testing.T) {
	// The first track finishes last; results must still land in input order,
	// so both runs produce byte-identical blobs.
	data := map[string][]byte{"a": []byte("a"), "b": []byte("b"), "c": []byte("c")}
	tracks := map[string]*DecodedTrack{
		"a": monoTrack(44100, 0.5, 0.5),
		"b": monoTrack(44100, -0.25, -0.25, -0.25),
		"c": monoTrack(44100, 0.125),
	}
	loops := []LoopInput{
		{ID: "a", Source: "a", Enabled: true, Volume: 1},
		{ID: "b", Source: "b", Enabled: true, Volume: 0.5},
		{ID: "c", Source: "c", Enabled: true, Volume: 0.25},
	}

	ordered := newTestEngine(&fakeFetcher{data: data}, &fakeDecoder{tracks: tracks})
	reference, err := ordered.Render(context.Background(), loops)
	if err != nil {
		t.Fatalf("reference render failed: %v", err)
	}

	shuffled := newTestEngine(&fakeFetcher{
		data: data,
		delays: map[string]time.Duration{
			"a": 30 * time.Millisecond,
			"b": 15 * time.Millisecond,
		},
	}, &fakeDecoder{tracks: tracks})
	delayed, err := shuffled.Render(context.Background(), loops)
	if err != nil {
		t.Fatalf("delayed render failed: %v", err)
	}

	if !bytes.Equal(reference.Data, delayed.Data) {
		t.Fatal("render output depends on decode completion order")
	}
}

func TestNewLoopInputValidation(t *testing.T) {
	tests := []struct {
		name    string
		volume  float64
		wantErr bool
	}{
		{name: "zero", volume: 0},
		{name: "full", volume: 1},
		{name: "mid", volume: 0.5},
		{name: "negative", volume: -0.01, wantErr: true},
		{name: "above one", volume: 1.01, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoopInput("id", "name", "src", true, tt.volume, 0)
			if (err != nil) != tt.wantErr {
				t.Fatalf("volume %v: err = %v, wantErr = %v", tt.volume, err, tt.wantErr)
			}
		})
	}
}

func TestMixdownFilename(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	tests := []struct {
		title string
		want  string
	}{
		{title: "Friday Jam", want: "Friday_Jam_mixdown_1700000000000.wav"},
		{title: "  ", want: "room_mixdown_1700000000000.wav"},
		{title: "lo-fi/beats", want: "lo-fi_beats_mixdown_1700000000000.wav"},
	}

	for _, tt := range tests {
		if got := MixdownFilename(tt.title, now); got != tt.want {
			t.Errorf("MixdownFilename(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
