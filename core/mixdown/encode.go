package mixdown

import (
	"encoding/binary"
	"fmt"
)

const wavHeaderSize = 44

// encodeWAV serializes a rendered mix as a 16-bit PCM RIFF/WAVE file. The
// 44-byte header layout and the asymmetric int16 scaling (32767 positive,
// 32768 negative, input clamped to [-1,1]) are an external contract; players
// expect these bytes exactly.
func encodeWAV(mix *RenderedMix) (*EncodedBlob, error) {
	numChannels := len(mix.Channels)
	if numChannels == 0 {
		return nil, &EncodeError{Reason: "mix has no channels"}
	}
	frames := mix.Frames()
	for ch, samples := range mix.Channels {
		if len(samples) != frames {
			return nil, &EncodeError{Reason: fmt.Sprintf("channel %d has %d frames, expected %d", ch, len(samples), frames)}
		}
	}

	dataSize := frames * numChannels * 2
	totalSize := wavHeaderSize + dataSize
	buf := make([]byte, totalSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(totalSize-8))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt subchunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // linear PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(mix.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(mix.SampleRate*numChannels*2)) // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(numChannels*2))                // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16)                                   // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	offset := wavHeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			binary.LittleEndian.PutUint16(buf[offset:], uint16(sampleToInt16(mix.Channels[ch][i])))
			offset += 2
		}
	}

	if offset != totalSize {
		return nil, &EncodeError{Reason: fmt.Sprintf("wrote %d bytes, declared %d", offset, totalSize)}
	}

	return &EncodedBlob{
		Data:        buf,
		ContentType: "audio/wav",
		SampleRate:  mix.SampleRate,
		Channels:    numChannels,
		Frames:      frames,
	}, nil
}

// sampleToInt16 clamps a float sample to [-1,1] and converts it to int16.
func sampleToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}
