package mixdown

import (
	"fmt"

	"JamLoop/logger"
)

// render combines decoded tracks into one buffer. The first track's sample
// rate and channel count set the mix format. Tracks recorded at a different
// rate are mixed frame-for-frame without resampling; that shifts their pitch
// and is logged as a warning.
func render(tracks []*DecodedTrack, policy SchedulePolicy) (*RenderedMix, error) {
	if len(tracks) == 0 {
		return nil, &RenderError{Reason: "no decoded tracks"}
	}

	targetRate := tracks[0].SampleRate
	targetChannels := len(tracks[0].Channels)
	if targetChannels == 0 || tracks[0].Frames() == 0 {
		return nil, &RenderError{Reason: "first track is empty"}
	}

	normalized := make([]*DecodedTrack, len(tracks))
	for i, track := range tracks {
		if track.SampleRate != targetRate {
			logger.Warn("Mixing tracks with mismatched sample rates without resampling",
				logger.Int("trackIndex", i),
				logger.Int("trackRate", track.SampleRate),
				logger.Int("mixRate", targetRate))
		}
		nt, err := normalizeChannels(track, targetChannels)
		if err != nil {
			return nil, err
		}
		normalized[i] = nt
	}

	var totalFrames int
	switch policy {
	case PolicyOverlay:
		for _, track := range normalized {
			if track.Frames() > totalFrames {
				totalFrames = track.Frames()
			}
		}
	case PolicyConcat:
		for _, track := range normalized {
			totalFrames += track.Frames()
		}
	default:
		return nil, &RenderError{Reason: fmt.Sprintf("unknown schedule policy %d", policy)}
	}

	out := make([][]float32, targetChannels)
	for ch := range out {
		out[ch] = make([]float32, totalFrames)
	}

	// Overlay: every track starts at frame 0 and the samples sum.
	// Concat: each track starts where the previous one ended.
	offset := 0
	for _, track := range normalized {
		gain := float32(track.Gain)
		for ch := 0; ch < targetChannels; ch++ {
			samples := track.Channels[ch]
			dst := out[ch][offset:]
			for i, s := range samples {
				dst[i] += s * gain
			}
		}
		if policy == PolicyConcat {
			offset += track.Frames()
		}
	}

	return &RenderedMix{Channels: out, SampleRate: targetRate}, nil
}

// normalizeChannels reconciles a track's channel count with the mix format.
// Mono fans out to every target channel; a multichannel track folds down to
// mono by averaging. Anything else is an invariant violation.
func normalizeChannels(track *DecodedTrack, target int) (*DecodedTrack, error) {
	current := len(track.Channels)
	switch {
	case current == target:
		return track, nil
	case current == 1:
		channels := make([][]float32, target)
		for ch := range channels {
			channels[ch] = track.Channels[0]
		}
		return &DecodedTrack{Channels: channels, SampleRate: track.SampleRate, Gain: track.Gain}, nil
	case target == 1:
		frames := track.Frames()
		mono := make([]float32, frames)
		scale := float32(1) / float32(current)
		for _, samples := range track.Channels {
			for i, s := range samples {
				mono[i] += s * scale
			}
		}
		return &DecodedTrack{Channels: [][]float32{mono}, SampleRate: track.SampleRate, Gain: track.Gain}, nil
	default:
		return nil, &RenderError{Reason: fmt.Sprintf("cannot mix %d-channel track into %d-channel output", current, target)}
	}
}
