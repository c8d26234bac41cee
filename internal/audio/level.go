package audio

import (
	"encoding/binary"
	"math"
)

// SilenceFloorDB is reported for an all-zero input.
const SilenceFloorDB = -100.0

// DecibelLevel converts a mean magnitude into dBFS relative to ref.
func DecibelLevel(value, ref float64) float64 {
	if value <= 0 || ref <= 0 {
		return SilenceFloorDB
	}
	return 20 * math.Log10(value/ref)
}

// SpectrumLevel averages analyser frequency bins (0..255) and returns the
// level in dB.
func SpectrumLevel(bins []byte) float64 {
	if len(bins) == 0 {
		return SilenceFloorDB
	}
	var sum float64
	for _, b := range bins {
		sum += float64(b)
	}
	return DecibelLevel(sum/float64(len(bins)), 255)
}

// PCM16Level computes the level of little-endian signed 16-bit mono samples
// from their mean absolute amplitude.
func PCM16Level(frame []byte) float64 {
	n := len(frame) / 2
	if n == 0 {
		return SilenceFloorDB
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(frame[2*i:]))
		sum += math.Abs(float64(sample))
	}
	return DecibelLevel(sum/float64(n), 32768)
}
