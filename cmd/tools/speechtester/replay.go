package main

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/zhouzirui/game-friend/backend/internal/audio"
)

// segment 为一次检测到的语音区间，相对音频起点。
type segment struct {
	Start time.Duration
	End   time.Duration
}

// slice 截取片段对应的 PCM16 数据。
func (s segment) slice(pcm []byte, sampleRate int) []byte {
	offset := func(d time.Duration) int {
		n := int(int64(d) * int64(sampleRate) / int64(time.Second) * 2)
		return min(max(n, 0), len(pcm))
	}
	return pcm[offset(s.Start):offset(s.End)]
}

// detectSegments 以检测周期为帧长回放 PCM16 数据，复用实时检测的防抖逻辑。
// 音频结束后补足静音，使末尾的语音片段也能正常闭合。
func detectSegments(pcm []byte, sampleRate int, cfg audio.MonitorConfig) []segment {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	defaults := audio.DefaultMonitorConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaults.TickInterval
	}
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = defaults.SilenceTimeout
	}

	origin := time.Unix(0, 0)
	clock := audio.NewManualClock(origin)

	var (
		segments []segment
		current  *segment
	)
	monitor := audio.NewMonitor(nil, clock, cfg, audio.MonitorCallbacks{
		OnSpeechStart: func() {
			current = &segment{Start: clock.Now().Sub(origin)}
		},
		OnSpeechEnd: func() {
			if current == nil {
				return
			}
			current.End = clock.Now().Sub(origin)
			segments = append(segments, *current)
			current = nil
		},
	})

	frameBytes := int(int64(sampleRate)*int64(cfg.TickInterval)/int64(time.Second)) * 2
	if frameBytes <= 0 {
		return nil
	}

	for offset := 0; offset < len(pcm); offset += frameBytes {
		end := min(offset+frameBytes, len(pcm))
		monitor.Observe(audio.PCM16Level(pcm[offset:end]))
		clock.Advance(cfg.TickInterval)
	}

	for elapsed := time.Duration(0); current != nil && elapsed <= cfg.SilenceTimeout; elapsed += cfg.TickInterval {
		monitor.Observe(audio.SilenceFloorDB)
		clock.Advance(cfg.TickInterval)
	}
	return segments
}

// stripWAVHeader 去掉 RIFF 头，返回 data 块内容；无法识别时原样返回。
func stripWAVHeader(data []byte) []byte {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return data
	}
	for pos := 12; pos+8 <= len(data); {
		id := data[pos : pos+4]
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if bytes.Equal(id, []byte("data")) {
			return data[body:min(body+size, len(data))]
		}
		pos = body + size + size%2
	}
	return data
}
