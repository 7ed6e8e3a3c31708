package mixdown

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"JamLoop/logger"
)

// Engine renders a room's enabled loops into a single downloadable WAV.
// It holds no state between invocations; each Render call is an independent,
// all-or-nothing attempt.
type Engine struct {
	fetcher Fetcher
	decoder Decoder
	policy  SchedulePolicy
}

// NewEngine creates an engine with the default overlay scheduling.
func NewEngine(fetcher Fetcher, decoder Decoder) *Engine {
	return &Engine{
		fetcher: fetcher,
		decoder: decoder,
		policy:  PolicyOverlay,
	}
}

// NewEngineWithPolicy creates an engine with an explicit scheduling policy.
func NewEngineWithPolicy(fetcher Fetcher, decoder Decoder, policy SchedulePolicy) *Engine {
	return &Engine{
		fetcher: fetcher,
		decoder: decoder,
		policy:  policy,
	}
}

// Render runs the full decode/render/encode pipeline over the given loops.
// Disabled loops are skipped; with none enabled it returns ErrNoActiveTracks.
func (e *Engine) Render(ctx context.Context, loops []LoopInput) (*EncodedBlob, error) {
	active := make([]LoopInput, 0, len(loops))
	for _, loop := range loops {
		if loop.Enabled {
			active = append(active, loop)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveTracks
	}

	start := time.Now()

	tracks, err := decodeAll(ctx, e.fetcher, e.decoder, active)
	if err != nil {
		return nil, err
	}

	mix, err := render(tracks, e.policy)
	if err != nil {
		return nil, err
	}

	blob, err := encodeWAV(mix)
	if err != nil {
		return nil, err
	}

	logger.Info("Rendered mixdown",
		logger.Int("tracks", len(active)),
		logger.Int("frames", blob.Frames),
		logger.Int("sampleRate", blob.SampleRate),
		logger.Int("channels", blob.Channels),
		logger.Duration("elapsed", time.Since(start)))

	return blob, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_\-]`)

// MixdownFilename builds the download filename for a room's export:
// {roomTitle}_mixdown_{timestampMillis}.wav, with the title sanitized.
func MixdownFilename(roomTitle string, now time.Time) string {
	title := strings.TrimSpace(roomTitle)
	title = unsafeFilenameChars.ReplaceAllString(title, "_")
	if title == "" {
		title = "room"
	}
	return fmt.Sprintf("%s_mixdown_%d.wav", title, now.UnixMilli())
}
