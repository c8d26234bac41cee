package main

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
)

const testRate = 16000

func pcm(d time.Duration, amplitude int16) []byte {
	samples := int(int64(d) * testRate / int64(time.Second))
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := amplitude
		if i%2 == 1 {
			v = -amplitude
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDetectSegmentsFindsUtterances(t *testing.T) {
	cfg := audio.MonitorConfig{ThresholdDB: -50, SilenceTimeout: 200 * time.Millisecond, TickInterval: 50 * time.Millisecond}
	data := concat(
		pcm(500*time.Millisecond, 0),
		pcm(500*time.Millisecond, 12000),
		pcm(time.Second, 0),
		pcm(300*time.Millisecond, 12000),
	)

	segments := detectSegments(data, testRate, cfg)
	require.Len(t, segments, 2)

	assert.Equal(t, 500*time.Millisecond, segments[0].Start)
	assert.Equal(t, 1200*time.Millisecond, segments[0].End)
	assert.Equal(t, 2000*time.Millisecond, segments[1].Start)
	assert.Greater(t, segments[1].End, 2300*time.Millisecond, "trailing speech is closed by padded silence")
}

func TestDetectSegmentsIgnoresShortDips(t *testing.T) {
	cfg := audio.MonitorConfig{ThresholdDB: -50, SilenceTimeout: 300 * time.Millisecond, TickInterval: 50 * time.Millisecond}
	data := concat(
		pcm(200*time.Millisecond, 12000),
		pcm(100*time.Millisecond, 0),
		pcm(200*time.Millisecond, 12000),
	)

	segments := detectSegments(data, testRate, cfg)
	require.Len(t, segments, 1)
	assert.Zero(t, segments[0].Start)
}

func TestSegmentSlice(t *testing.T) {
	data := pcm(time.Second, 100)
	seg := segment{Start: 250 * time.Millisecond, End: 500 * time.Millisecond}
	assert.Len(t, seg.slice(data, testRate), 8000)

	past := segment{Start: 900 * time.Millisecond, End: 2 * time.Second}
	assert.Len(t, past.slice(data, testRate), 3200)
}

func TestStripWAVHeader(t *testing.T) {
	body := []byte{1, 2, 3, 4}
	header := []byte("RIFF\x00\x00\x00\x00WAVEfmt \x02\x00\x00\x00\xAA\xBBdata\x04\x00\x00\x00")
	assert.Equal(t, body, stripWAVHeader(append(header, body...)))
	assert.Equal(t, body, stripWAVHeader(body), "raw PCM passes through")
}
