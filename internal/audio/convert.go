package audio

import (
	"encoding/binary"
	"time"
)

const (
	SampleRate     = 16000
	BytesPerSample = 2

	DefaultSilenceDuration = 20 * time.Millisecond
)

// FrameSize is the byte length of d worth of audio.
func FrameSize(d time.Duration) int {
	samples := int(d * SampleRate / time.Second)
	return samples * BytesPerSample
}

// Silence returns a zeroed frame lasting d.
func Silence(d time.Duration) Frame {
	return make(Frame, FrameSize(d))
}

// Align drops a trailing odd byte so the frame holds whole samples.
func Align(f Frame) Frame {
	return f[:len(f)-len(f)%BytesPerSample]
}

func Duration(f Frame) time.Duration {
	samples := len(f) / BytesPerSample
	return time.Duration(samples) * time.Second / SampleRate
}

func PCMBytesToInt16(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return samples
}
