package apu

import "github.com/oskale/goadvance/internal/scheduler"

// squareChannel implements channels 1 and 2: an 8-step duty-cycle
// sequencer clocked by an 11-bit frequency register, gated by an
// envelope and length counter, with an optional frequency sweep unit
// (channel 1 only).
type squareChannel struct {
	sched *scheduler.Scheduler
	mixer *mixer
	chID  channelID
	class scheduler.Class

	env    envelope
	length lengthCounter
	swp    *sweep // nil on channel 2

	duty    uint8
	dutyPos uint8
	freq    uint16

	dacEnabled bool
	scheduled  bool
	lastOutput int8

	// pauseDisabled points at the owning APU's PauseDisabledChannels
	// preference: when true, advance() stops rescheduling itself once
	// the channel goes inactive instead of continuing to tick silently.
	pauseDisabled *bool
}

var squareDuty = [4][8]uint8{
	{0, 0, 0, 0, 0, 0, 0, 1}, // 12.5%
	{1, 0, 0, 0, 0, 0, 0, 1}, // 25%
	{1, 0, 0, 0, 0, 1, 1, 1}, // 50%
	{0, 1, 1, 1, 1, 1, 1, 0}, // 75%
}

func newSquareChannel(sched *scheduler.Scheduler, m *mixer, id channelID, class scheduler.Class, hasSweep bool, pauseDisabled *bool) *squareChannel {
	sc := &squareChannel{sched: sched, mixer: m, chID: id, class: class, pauseDisabled: pauseDisabled}
	if hasSweep {
		sc.swp = &sweep{}
	}
	sched.RegisterClass(class, func(uint64) { sc.advance() })
	return sc
}

// writeDutyEnvelope decodes SOUND1CNT_H/SOUND2CNT_L: length (bits0-5),
// duty (bits6-7), envelope step time (bits8-10), direction (bit11),
// initial volume (bits12-15).
func (sc *squareChannel) writeDutyEnvelope(v uint16) {
	length := v & 0x3F
	sc.duty = uint8(v >> 6 & 0x3)
	stepTime := uint8(v >> 8 & 0x7)
	increase := v&0x800 != 0
	initial := uint8(v >> 12 & 0xF)

	wasActive := sc.active()
	sc.length.load(64, length)
	sc.env.applyWrite(initial, increase, stepTime, wasActive)
	sc.dacEnabled = initial != 0 || increase
}

// writeSweep decodes SOUND1CNT_L: shift (bits0-2), direction (bit3),
// period (bits4-6). Channel 2 has no sweep register.
func (sc *squareChannel) writeSweep(v uint8) {
	if sc.swp == nil {
		return
	}
	sc.swp.init(v&0x7, v&0x8 != 0, v>>4&0x7)
}

// writeFreqControl decodes SOUND1CNT_X/SOUND2CNT_H: frequency
// (bits0-10), length-enable flag (bit14), trigger (bit15).
func (sc *squareChannel) writeFreqControl(v uint16) {
	sc.freq = v & 0x7FF
	sc.length.setEnabled(v&0x4000 != 0)
	if v&0x8000 != 0 {
		sc.trigger()
	}
}

func (sc *squareChannel) trigger() {
	sc.dutyPos = 0
	sc.env.restart()
	sc.length.trigger()
	if sc.swp != nil {
		sc.swp.trigger(sc.freq)
	}
	if !sc.dacEnabled {
		return
	}
	if !sc.scheduled {
		sc.scheduled = true
		sc.sched.AddEvent(sc.period(), sc.class, 2, 0)
	}
}

// period is the system-clock cycle count per duty step: the channel's
// 8-step sequencer runs at tone_freq * 8 = 8*131072/(2048-freq) Hz,
// i.e. 16*(2048-freq) system clocks per step.
func (sc *squareChannel) period() uint64 {
	return uint64(16) * uint64(2048-sc.freq)
}

func (sc *squareChannel) advance() {
	sc.dutyPos = (sc.dutyPos + 1) & 0x7
	sc.emit()
	if sc.active() || (sc.pauseDisabled != nil && !*sc.pauseDisabled) {
		sc.sched.AddEvent(sc.period(), sc.class, 2, 0)
	} else {
		sc.scheduled = false
	}
}

func (sc *squareChannel) active() bool {
	return sc.dacEnabled && (!sc.length.enabled || sc.length.active)
}

func (sc *squareChannel) emit() {
	var out int8
	if sc.active() {
		out = int8(squareDuty[sc.duty][sc.dutyPos] * sc.env.volume())
	}
	if out != sc.lastOutput {
		sc.mixer.addDelta(sc.chID, sc.sched.GetTimestampNow(), int16(out-sc.lastOutput))
		sc.lastOutput = out
	}
}

func (sc *squareChannel) tickEnvelope() { sc.env.tick() }
func (sc *squareChannel) tickLength() {
	sc.length.tick()
	sc.emit()
}

func (sc *squareChannel) tickSweep() {
	if sc.swp == nil {
		return
	}
	newFreq, changed, disable := sc.swp.tick()
	if disable {
		sc.dacEnabled = false
		sc.emit()
		return
	}
	if changed {
		sc.freq = newFreq
	}
}

func (sc *squareChannel) status() bool { return sc.length.active && sc.dacEnabled }

func (sc *squareChannel) reset() {
	sc.env.reset()
	sc.length.reset()
	if sc.swp != nil {
		sc.swp.reset()
	}
	sc.duty = 0
	sc.dutyPos = 0
	sc.freq = 0
	sc.dacEnabled = false
	sc.scheduled = false
	sc.lastOutput = 0
}
