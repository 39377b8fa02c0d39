package apu

import "github.com/oskale/goadvance/internal/scheduler"

// waveChannel implements channel 3: a 32-step (or, in two-bank
// dimension, 64-step) wavetable read from two 16-byte (32-nibble) RAM
// banks, one of which is selected for playback while the other is
// addressable by software.
type waveChannel struct {
	sched *scheduler.Scheduler
	mixer *mixer
	class scheduler.Class

	length lengthCounter

	banks      [2][16]byte
	bank       uint8 // bank currently selected for playback
	twoBanks   bool  // dimension=1: play both banks back-to-back (64 steps)
	dacEnabled bool

	volumeShift uint8 // 0=mute, 1=100%(shift0), 2=50%(shift1), 3=25%(shift2)
	force75     bool

	freq    uint16
	phase   uint8 // 0..31 within the active bank, or 0..63 across both

	scheduled  bool
	lastOutput int8

	// pauseDisabled points at the owning APU's PauseDisabledChannels
	// preference; see squareChannel.pauseDisabled.
	pauseDisabled *bool
}

func newWaveChannel(sched *scheduler.Scheduler, m *mixer, class scheduler.Class, pauseDisabled *bool) *waveChannel {
	wc := &waveChannel{sched: sched, mixer: m, class: class, pauseDisabled: pauseDisabled}
	sched.RegisterClass(class, func(uint64) { wc.advance() })
	return wc
}

// writeControl decodes SOUND3CNT_L: dimension (bit5), bank (bit6),
// DAC power (bit7).
func (wc *waveChannel) writeControl(v uint8) {
	wc.twoBanks = v&0x20 != 0
	wc.bank = v >> 6 & 0x1
	wc.dacEnabled = v&0x80 != 0
}

// writeLengthVolume decodes SOUND3CNT_H: length (bits0-7), volume
// (bits13-14), force-75% override (bit15).
func (wc *waveChannel) writeLengthVolume(v uint16) {
	length := v & 0xFF
	wc.length.load(256, length)
	wc.volumeShift = uint8(v >> 13 & 0x3)
	wc.force75 = v&0x8000 != 0
}

// writeFreqControl decodes SOUND3CNT_X: sample rate (bits0-10), length
// flag (bit14), trigger (bit15).
func (wc *waveChannel) writeFreqControl(v uint16) {
	wc.freq = v & 0x7FF
	wc.length.setEnabled(v&0x4000 != 0)
	if v&0x8000 != 0 {
		wc.trigger()
	}
}

func (wc *waveChannel) writeWaveRAM(off uint32, v uint8) {
	// software addresses the bank not currently selected for playback.
	wc.banks[1-wc.bank][off&0xF] = v
}

func (wc *waveChannel) readWaveRAM(off uint32) uint8 {
	return wc.banks[1-wc.bank][off&0xF]
}

func (wc *waveChannel) trigger() {
	wc.phase = 0
	wc.length.trigger()
	if !wc.dacEnabled {
		return
	}
	if !wc.scheduled {
		wc.scheduled = true
		wc.sched.AddEvent(wc.period(), wc.class, 2, 0)
	}
}

// period is the cycle count per sample step: sample rate =
// 2097152/(2048-freq) Hz, so cycles/step = systemClock/rate =
// 8*(2048-freq).
func (wc *waveChannel) period() uint64 {
	return uint64(8) * uint64(2048-wc.freq)
}

func (wc *waveChannel) sample() uint8 {
	bank := wc.bank
	phase := wc.phase
	if wc.twoBanks && phase >= 32 {
		bank = 1 - wc.bank
		phase -= 32
	}
	b := wc.banks[bank][phase/2]
	if phase&1 == 0 {
		return b >> 4
	}
	return b & 0xF
}

func (wc *waveChannel) advance() {
	limit := uint8(31)
	if wc.twoBanks {
		limit = 63
	}
	if wc.phase >= limit {
		wc.phase = 0
	} else {
		wc.phase++
	}
	wc.emit()
	if wc.active() || (wc.pauseDisabled != nil && !*wc.pauseDisabled) {
		wc.sched.AddEvent(wc.period(), wc.class, 2, 0)
	} else {
		wc.scheduled = false
	}
}

func (wc *waveChannel) active() bool {
	return wc.dacEnabled && (!wc.length.enabled || wc.length.active)
}

func (wc *waveChannel) emit() {
	var out int8
	if wc.active() {
		nibble := int32(wc.sample()) - 8
		if wc.force75 {
			out = int8(nibble * 3 / 4)
		} else {
			switch wc.volumeShift {
			case 0:
				out = 0
			case 1:
				out = int8(nibble)
			case 2:
				out = int8(nibble / 2)
			case 3:
				out = int8(nibble / 4)
			}
		}
	}
	if out != wc.lastOutput {
		wc.mixer.addDelta(channelWave, wc.sched.GetTimestampNow(), int16(out-wc.lastOutput))
		wc.lastOutput = out
	}
}

func (wc *waveChannel) tickLength() {
	wc.length.tick()
	wc.emit()
}

func (wc *waveChannel) status() bool { return wc.length.active && wc.dacEnabled }

func (wc *waveChannel) reset() {
	wc.length.reset()
	wc.banks = [2][16]byte{}
	wc.bank = 0
	wc.twoBanks = false
	wc.dacEnabled = false
	wc.volumeShift = 0
	wc.force75 = false
	wc.freq = 0
	wc.phase = 0
	wc.scheduled = false
	wc.lastOutput = 0
}
