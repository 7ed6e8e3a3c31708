package mixdown

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegDecoder decodes any container ffmpeg understands to float32 PCM.
// Browser recorders hand us WebM/Opus, which has no native Go decoder in
// this stack, so those blobs land here.
type FFmpegDecoder struct {
	ffmpegPath string
}

// NewFFmpegDecoder creates an FFmpegDecoder.
func NewFFmpegDecoder(ffmpegPath string) *FFmpegDecoder {
	return &FFmpegDecoder{ffmpegPath: ffmpegPath}
}

func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte) (*DecodedTrack, error) {
	// ffprobe needs a seekable input, so the blob goes through a temp file.
	tmp, err := os.CreateTemp("", "jamloop-decode-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	sampleRate, numChannels, err := d.probeStream(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	args := []string{
		"-i", tmp.Name(),
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(numChannels),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, d.ffmpegPath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg execution failed: %w\nFFmpeg Error: %s", err, stderr.String())
	}

	raw := out.Bytes()
	frames := len(raw) / (4 * numChannels)
	if frames == 0 {
		return nil, fmt.Errorf("ffmpeg produced no samples")
	}

	channels := make([][]float32, numChannels)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			off := (i*numChannels + ch) * 4
			channels[ch][i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off:]))
		}
	}

	return &DecodedTrack{
		Channels:   channels,
		SampleRate: sampleRate,
		Gain:       1,
	}, nil
}

// probeStream reads the first audio stream's sample rate and channel count.
func (d *FFmpegDecoder) probeStream(ctx context.Context, inputFile string) (int, int, error) {
	ffprobePath := strings.Replace(d.ffmpegPath, "ffmpeg", "ffprobe", 1)

	args := []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "json",
		inputFile,
	}

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, 0, fmt.Errorf("ffprobe execution failed: %w\nFFprobe Error: %s", err, stderr.String())
	}

	var probeData struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, 0, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}
	if len(probeData.Streams) == 0 {
		return 0, 0, fmt.Errorf("no audio streams found")
	}

	stream := probeData.Streams[0]
	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return 0, 0, fmt.Errorf("invalid sample rate %q in ffprobe output", stream.SampleRate)
	}
	if stream.Channels <= 0 {
		return 0, 0, fmt.Errorf("invalid channel count %d in ffprobe output", stream.Channels)
	}

	return sampleRate, stream.Channels, nil
}
