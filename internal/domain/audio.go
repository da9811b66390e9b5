package domain

import "math"

// DefaultChunkSize is the number of samples carried by one AudioFrame.
const DefaultChunkSize = 1024

// AudioFrame is one chunk of mono 16-bit PCM captured from the microphone.
type AudioFrame struct {
	Samples    []int16
	SampleRate int
}

// Bytes returns the samples as little-endian PCM.
func (f AudioFrame) Bytes() []byte {
	out := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

// ScaleSample clips a float sample to [-1, 1] and maps it onto the int16 range.
func ScaleSample(s float32) int16 {
	switch {
	case math.IsNaN(float64(s)):
		return 0
	case s >= 1:
		return math.MaxInt16
	case s <= -1:
		return math.MinInt16
	case s < 0:
		return int16(s * 32768)
	default:
		return int16(s * 32767)
	}
}

// ScaleSamples converts a float buffer into a new int16 buffer.
func ScaleSamples(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		out[i] = ScaleSample(s)
	}
	return out
}
