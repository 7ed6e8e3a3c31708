package mixdown

import "fmt"

// LoopInput is one loop record handed to the engine. The engine treats it as
// read-only; enabled/volume/order belong to the room UI.
type LoopInput struct {
	ID      string
	Name    string
	Source  string // URL or object key resolvable by the engine's Fetcher
	Enabled bool
	Volume  float64 // linear gain in [0,1]
	Order   int     // display order only, not mixdown timing
}

// NewLoopInput validates the collaborator-supplied fields once at the
// pipeline boundary. Out-of-range volume is rejected, not clamped.
func NewLoopInput(id, name, source string, enabled bool, volume float64, order int) (LoopInput, error) {
	if volume < 0 || volume > 1 {
		return LoopInput{}, fmt.Errorf("volume %v out of range [0,1] for loop %s", volume, id)
	}
	return LoopInput{
		ID:      id,
		Name:    name,
		Source:  source,
		Enabled: enabled,
		Volume:  volume,
		Order:   order,
	}, nil
}

// DecodedTrack is one loop decoded to PCM, with the gain captured at the
// moment the mixdown was requested.
type DecodedTrack struct {
	// Channels holds one sample slice per channel, all the same length.
	Channels   [][]float32
	SampleRate int
	Gain       float64
}

// Frames returns the track length in sample frames.
func (t *DecodedTrack) Frames() int {
	if len(t.Channels) == 0 {
		return 0
	}
	return len(t.Channels[0])
}

// RenderedMix is the combined multichannel signal before encoding.
type RenderedMix struct {
	Channels   [][]float32
	SampleRate int
}

// Frames returns the mix length in sample frames.
func (m *RenderedMix) Frames() int {
	if len(m.Channels) == 0 {
		return 0
	}
	return len(m.Channels[0])
}

// SchedulePolicy decides how tracks are laid out on the output timeline.
type SchedulePolicy int

const (
	// PolicyOverlay starts every track at frame 0 and sums them, the way a
	// jam of simultaneous loops is meant to sound. Output length is the
	// longest track. This is the default.
	PolicyOverlay SchedulePolicy = iota
	// PolicyConcat lays tracks back-to-back, each starting where the
	// previous one ended. Kept for compatibility with exports produced by
	// the old web client, which scheduled tracks at a running frame offset.
	PolicyConcat
)

// EncodedBlob is the final WAV artifact.
type EncodedBlob struct {
	Data        []byte
	ContentType string
	SampleRate  int
	Channels    int
	Frames      int
}
