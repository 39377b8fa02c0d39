package apu

import (
	"github.com/arl/blip"

	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/platform"
)

// channelID names a mixer input for per-channel pan/volume lookup.
type channelID int

const (
	channelSquare1 channelID = iota
	channelSquare2
	channelWave
	channelNoise
	channelFIFOA
	channelFIFOB
	numChannels
)

// mixer accumulates per-channel deltas at their native system-clock
// timestamps and resamples them down to the configured output rate
// through a pair of blip ring buffers, one per stereo side, the same
// resampling technique the retrieval pack's NES APU uses for its
// square/triangle/noise channels.
type mixer struct {
	left, right *blip.Buffer

	sampleRate uint32
	frameLen   uint64

	enableLeft, enableRight [numChannels]bool
	chanVolume              [numChannels]float64 // PSG channels: 0..1 master volume; FIFO: 0.5 or 1.0

	psgMasterLeft, psgMasterRight float64 // SOUNDCNT_L master volume, 1/8..1 in 1/8 steps

	sink platform.AudioSink
}

const mixerBufferSamples = 4096

func newMixer(sink platform.AudioSink) *mixer {
	if sink == nil {
		sink = platform.NullAudioSink{}
	}
	m := &mixer{
		left:       blip.NewBuffer(mixerBufferSamples),
		right:      blip.NewBuffer(mixerBufferSamples),
		sampleRate: 32768,
		frameLen:   clocks.CyclesPerFrame,
		sink:       sink,
	}
	for i := range m.enableLeft {
		m.enableLeft[i] = true
		m.enableRight[i] = true
		m.chanVolume[i] = 1.0
	}
	m.psgMasterLeft, m.psgMasterRight = 1.0, 1.0
	m.setRates()
	return m
}

func (m *mixer) setRates() {
	m.left.SetRates(float64(clocks.SystemClockHz), float64(m.sampleRate))
	m.right.SetRates(float64(clocks.SystemClockHz), float64(m.sampleRate))
}

// setSampleRate sets the output rate in Hz; the caller maps SOUNDBIAS's
// resolution field (0-3) to 32768, 65536, 131072 or 262144 Hz.
func (m *mixer) setSampleRate(hz uint32) {
	m.sampleRate = hz
	m.setRates()
}

func (m *mixer) samplePeriod() uint64 {
	return uint64(clocks.SystemClockHz) / uint64(m.sampleRate)
}

func (m *mixer) addDelta(ch channelID, time uint64, delta int16) {
	if delta == 0 {
		return
	}
	relTime := time % m.frameLen
	if m.enableLeft[ch] {
		v := int32(float64(delta) * m.chanVolume[ch] * m.psgMasterLeft)
		m.left.AddDelta(relTime, v)
	}
	if m.enableRight[ch] {
		v := int32(float64(delta) * m.chanVolume[ch] * m.psgMasterRight)
		m.right.AddDelta(relTime, v)
	}
}

// endFrame closes out the current accumulation window, resamples it,
// and delivers the interleaved stereo samples to the audio sink. Follows
// the same two-buffer interleave-by-stride technique as the retrieval
// pack's NES mixer: both channels are read with stride 2 into
// alternating slots of one interleaved buffer.
func (m *mixer) endFrame() {
	m.left.EndFrame(int(m.frameLen))
	m.right.EndFrame(int(m.frameLen))

	out := make([]int16, mixerBufferSamples*2)
	n := m.left.ReadSamples(out, mixerBufferSamples, blip.Stereo)
	m.right.ReadSamples(out[1:], mixerBufferSamples, blip.Stereo)
	if n <= 0 {
		return
	}
	m.sink.Deliver(out[:n*2])
}

func (m *mixer) reset() {
	m.left.Clear()
	m.right.Clear()
}
