package apu

import "github.com/oskale/goadvance/internal/scheduler"

// noiseChannel implements channel 4: a linear-feedback shift register
// clocked at a rate derived from a dividing ratio and shift, producing
// a pseudo-random 1-bit stream gated by an envelope and length counter.
type noiseChannel struct {
	sched *scheduler.Scheduler
	mixer *mixer
	class scheduler.Class

	env    envelope
	length lengthCounter

	ratio uint8 // r, bits0-2
	width7 bool // bit3: narrow (7-bit) LFSR width
	shift  uint8 // s, bits4-7

	lfsr uint16

	dacEnabled bool
	scheduled  bool
	lastOutput int8

	// mixerPeriod is the mixer's current sample interval in system
	// clocks, used to decide how many LFSR steps to fold into a single
	// burst (see advanceBurst) instead of scheduling one event per step
	// when the channel synthesizes faster than audio samples are drawn.
	mixerPeriod uint64

	// pauseDisabled points at the owning APU's PauseDisabledChannels
	// preference; see squareChannel.pauseDisabled.
	pauseDisabled *bool
}

func (nc *noiseChannel) setMixerPeriod(p uint64) { nc.mixerPeriod = p }

func newNoiseChannel(sched *scheduler.Scheduler, m *mixer, class scheduler.Class, pauseDisabled *bool) *noiseChannel {
	nc := &noiseChannel{sched: sched, mixer: m, class: class, pauseDisabled: pauseDisabled}
	sched.RegisterClass(class, func(uint64) { nc.advance() })
	return nc
}

// writeEnvelope decodes SOUND4CNT_L: length (bits0-5), envelope step
// time (bits8-10), direction (bit11), initial volume (bits12-15).
func (nc *noiseChannel) writeEnvelope(v uint16) {
	length := v & 0x3F
	stepTime := uint8(v >> 8 & 0x7)
	increase := v&0x800 != 0
	initial := uint8(v >> 12 & 0xF)

	wasActive := nc.active()
	nc.length.load(64, length)
	nc.env.applyWrite(initial, increase, stepTime, wasActive)
	nc.dacEnabled = initial != 0 || increase
}

// writeFreqControl decodes SOUND4CNT_H: ratio (bits0-2), width (bit3),
// shift (bits4-7), length flag (bit14), trigger (bit15).
func (nc *noiseChannel) writeFreqControl(v uint16) {
	nc.ratio = uint8(v & 0x7)
	nc.width7 = v&0x8 != 0
	nc.shift = uint8(v >> 4 & 0xF)
	nc.length.setEnabled(v&0x4000 != 0)
	if v&0x8000 != 0 {
		nc.trigger()
	}
}

func (nc *noiseChannel) trigger() {
	nc.lfsr = 0x7FFF
	nc.env.restart()
	nc.length.trigger()
	if !nc.dacEnabled {
		return
	}
	if !nc.scheduled {
		nc.scheduled = true
		nc.sched.AddEvent(nc.period(), nc.class, 2, 0)
	}
}

// period is the LFSR synthesis interval in system clocks, per the
// hardware's two-piece formula keyed by the dividing ratio r.
func (nc *noiseChannel) period() uint64 {
	if nc.shift >= 14 {
		// s=14/15 never synthesizes on real hardware; treat as a very
		// long period rather than dividing by zero.
		return 1 << 20
	}
	if nc.ratio == 0 {
		return 8 << nc.shift
	}
	return uint64(16) * uint64(nc.ratio) << nc.shift
}

// advanceBurst steps the LFSR n times without emitting intermediate
// mixer deltas, used when the channel's synthesis rate outpaces the
// mixer's sample interval (only the final bit value matters between
// samples).
func (nc *noiseChannel) advanceBurst(n int) {
	for i := 0; i < n; i++ {
		nc.step()
	}
}

func (nc *noiseChannel) step() {
	width := uint(15)
	if nc.width7 {
		width = 7
	}
	feedback := (nc.lfsr ^ (nc.lfsr >> 1)) & 1
	nc.lfsr >>= 1
	nc.lfsr &^= 1 << (width - 1)
	nc.lfsr |= feedback << (width - 1)
}

func (nc *noiseChannel) advance() {
	p := nc.period()
	burst := uint64(1)
	if nc.mixerPeriod > 0 && p > 0 {
		if b := nc.mixerPeriod / p; b > 1 {
			if b > 64 {
				b = 64
			}
			burst = b
		}
	}
	if burst > 1 {
		nc.advanceBurst(int(burst - 1))
	}
	nc.step()
	nc.emit()
	if nc.active() || (nc.pauseDisabled != nil && !*nc.pauseDisabled) {
		nc.sched.AddEvent(p*burst, nc.class, 2, 0)
	} else {
		nc.scheduled = false
	}
}

func (nc *noiseChannel) active() bool {
	return nc.dacEnabled && (!nc.length.enabled || nc.length.active)
}

func (nc *noiseChannel) emit() {
	var out int8
	if nc.active() && nc.lfsr&1 == 0 {
		out = int8(nc.env.volume())
	}
	if out != nc.lastOutput {
		nc.mixer.addDelta(channelNoise, nc.sched.GetTimestampNow(), int16(out-nc.lastOutput))
		nc.lastOutput = out
	}
}

func (nc *noiseChannel) tickEnvelope() { nc.env.tick() }
func (nc *noiseChannel) tickLength() {
	nc.length.tick()
	nc.emit()
}

func (nc *noiseChannel) status() bool { return nc.length.active && nc.dacEnabled }

func (nc *noiseChannel) reset() {
	nc.env.reset()
	nc.length.reset()
	nc.ratio = 0
	nc.width7 = false
	nc.shift = 0
	nc.lfsr = 0
	nc.dacEnabled = false
	nc.scheduled = false
	nc.lastOutput = 0
}
