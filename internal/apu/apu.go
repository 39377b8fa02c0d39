// Package apu implements the four-channel PSG sound generator plus the
// two DMA-driven PCM FIFOs: a 512 Hz frame sequencer drives envelope,
// length and sweep ticks, each channel advances itself through
// scheduler events, and a blip-buffer mixer resamples everything down
// to the configured output rate.
package apu

import (
	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/platform"
)

// DMATrigger is the subset of the DMA controller the APU drives when a
// FIFO drains to its refill threshold.
type DMATrigger interface {
	TriggerSpecial(channel int, words uint16)
}

const sequencerPeriod = clocks.SystemClockHz / 512

// APU owns the four PSG channels, the two DMA FIFOs, and the mixer.
type APU struct {
	sched *scheduler.Scheduler
	dmac  DMATrigger
	mixer *mixer

	sq1   *squareChannel
	sq2   *squareChannel
	wave  *waveChannel
	noise *noiseChannel

	fifoA, fifoB         dmaFIFO
	fifoALast, fifoBLast int16

	seqPhase uint8

	masterEnable bool

	// SOUNDCNT_H: FIFO DMA volume (false=50%, true=100%) and timer
	// select (0 or 1) per FIFO.
	fifoAVolumeFull, fifoBVolumeFull bool
	fifoATimer, fifoBTimer           uint8
	fifoAEnableL, fifoAEnableR       bool
	fifoBEnableL, fifoBEnableR       bool

	psgVolumeShift uint8 // SOUNDCNT_H bits0-1: 0=25%,1=50%,2=100%

	biasLevel uint16

	shadow [0x30]byte

	// pauseDisabledChannels and envelopeZombieMode back the two
	// documented APU open-question toggles; channels hold a pointer to
	// these fields so a preference change takes effect immediately.
	pauseDisabledChannels bool
	envelopeZombieMode    bool
}

// New creates an APU driven by sched, delivering resampled audio to
// sink, and triggering dmac when a FIFO needs refilling.
func New(sched *scheduler.Scheduler, dmac DMATrigger, sink platform.AudioSink) *APU {
	m := newMixer(sink)
	a := &APU{sched: sched, dmac: dmac, mixer: m}

	a.sq1 = newSquareChannel(sched, m, channelSquare1, scheduler.ClassAPUChannel1, true, &a.pauseDisabledChannels)
	a.sq2 = newSquareChannel(sched, m, channelSquare2, scheduler.ClassAPUChannel2, false, &a.pauseDisabledChannels)
	a.wave = newWaveChannel(sched, m, scheduler.ClassAPUChannel3, &a.pauseDisabledChannels)
	a.noise = newNoiseChannel(sched, m, scheduler.ClassAPUChannel4, &a.pauseDisabledChannels)

	a.sq1.env.zombieMode = &a.envelopeZombieMode
	a.sq2.env.zombieMode = &a.envelopeZombieMode
	a.noise.env.zombieMode = &a.envelopeZombieMode

	sched.RegisterClass(scheduler.ClassAPUFrameSequencer, a.onSequencerTick)
	sched.RegisterClass(scheduler.ClassAPUMixerSample, a.onMixerTick)

	return a
}

// SetPauseDisabledChannels implements the Preferences.APU.PauseDisabledChannels
// toggle: when true, a channel's self-advance event stops rescheduling
// once the channel goes inactive; when false (the default) it keeps
// ticking silently, matching the documented hardware behavior.
func (a *APU) SetPauseDisabledChannels(v bool) { a.pauseDisabledChannels = v }

// SetEnvelopeZombieMode implements the Preferences.APU.EnvelopeZombieMode
// toggle described in the design notes.
func (a *APU) SetEnvelopeZombieMode(v bool) { a.envelopeZombieMode = v }

// Reset silences every channel and FIFO and restarts the sequencer.
func (a *APU) Reset() {
	a.sq1.reset()
	a.sq2.reset()
	a.wave.reset()
	a.noise.reset()
	a.fifoA.reset()
	a.fifoB.reset()
	a.mixer.reset()
	a.seqPhase = 0
	a.masterEnable = false
	a.biasLevel = 0x200
	a.noise.setMixerPeriod(a.mixer.samplePeriod())
	a.sched.AddEvent(sequencerPeriod, scheduler.ClassAPUFrameSequencer, 1, 0)
	a.sched.AddEvent(clocks.CyclesPerFrame, scheduler.ClassAPUMixerSample, 3, 0)
}

func (a *APU) onSequencerTick(uint64) {
	switch a.seqPhase {
	case 0, 2, 4, 6:
		a.sq1.tickLength()
		a.sq2.tickLength()
		a.wave.tickLength()
		a.noise.tickLength()
		if a.seqPhase == 2 || a.seqPhase == 6 {
			a.sq1.tickSweep()
		}
	case 7:
		a.sq1.tickEnvelope()
		a.sq2.tickEnvelope()
		a.noise.tickEnvelope()
	}
	a.seqPhase = (a.seqPhase + 1) & 0x7
	a.sched.AddEvent(sequencerPeriod, scheduler.ClassAPUFrameSequencer, 1, 0)
}

func (a *APU) onMixerTick(uint64) {
	a.mixer.endFrame()
	a.sched.AddEvent(clocks.CyclesPerFrame, scheduler.ClassAPUMixerSample, 3, 0)
}

// OnTimerOverflow is wired as the timer controller's OverflowListener:
// whichever FIFO is clocked by the overflowing channel advances one
// sample, and a DMA request is raised if it has drained to <=4 entries.
func (a *APU) OnTimerOverflow(channel int) {
	if !a.masterEnable {
		return
	}
	if uint8(channel) == a.fifoATimer {
		a.advanceFIFO(0)
	}
	if uint8(channel) == a.fifoBTimer {
		a.advanceFIFO(1)
	}
}

func (a *APU) advanceFIFO(idx int) {
	f := &a.fifoA
	last := &a.fifoALast
	volFull := a.fifoAVolumeFull
	ch := channelFIFOA
	dmaChannel := 1
	if idx == 1 {
		f = &a.fifoB
		last = &a.fifoBLast
		volFull = a.fifoBVolumeFull
		ch = channelFIFOB
		dmaChannel = 2
	}
	needsRefill := f.pop()

	vol := int16(f.latch) * 2
	if !volFull {
		vol /= 2
	}
	if vol != *last {
		a.mixer.addDelta(ch, a.sched.GetTimestampNow(), vol-*last)
		*last = vol
	}

	if needsRefill {
		a.dmac.TriggerSpecial(dmaChannel, 4)
	}
}

// PushFIFO receives a DMA-transferred 32-bit word (4 signed 8-bit PCM
// samples) into FIFO A or B.
func (a *APU) PushFIFO(idx int, word uint32) {
	samples := []int8{
		int8(word),
		int8(word >> 8),
		int8(word >> 16),
		int8(word >> 24),
	}
	if idx == 0 {
		a.fifoA.push(samples)
	} else {
		a.fifoB.push(samples)
	}
}

func (a *APU) ResetFIFO(idx int) {
	if idx == 0 {
		a.fifoA.reset()
	} else {
		a.fifoB.reset()
	}
}

// LengthState is a serializable snapshot of a length counter.
type LengthState struct {
	Max, Counter    uint16
	Enabled, Active bool
}

func saveLength(lc *lengthCounter) LengthState {
	return LengthState{Max: lc.max, Counter: lc.counter, Enabled: lc.enabled, Active: lc.active}
}

func loadLength(lc *lengthCounter, s LengthState) {
	lc.max, lc.counter, lc.enabled, lc.active = s.Max, s.Counter, s.Enabled, s.Active
}

// EnvelopeState is a serializable snapshot of an envelope unit.
type EnvelopeState struct {
	Initial, StepTime, Current, Divider uint8
	Increase, Active                    bool
}

func saveEnvelope(e *envelope) EnvelopeState {
	return EnvelopeState{Initial: e.initial, Increase: e.increase, StepTime: e.stepTime, Current: e.current, Divider: e.divider, Active: e.active}
}

func loadEnvelope(e *envelope, s EnvelopeState) {
	e.initial, e.increase, e.stepTime = s.Initial, s.Increase, s.StepTime
	e.current, e.divider, e.active = s.Current, s.Divider, s.Active
}

// SweepState is a serializable snapshot of channel 1's sweep unit.
type SweepState struct {
	Shift, Period, Divider uint8
	Decrease, Enabled      bool
	Shadow                 uint16
}

// SquareState is a serializable snapshot of a square channel.
type SquareState struct {
	Duty, DutyPos        uint8
	Freq                 uint16
	DacEnabled           bool
	LastOutput           int8
	Env                  EnvelopeState
	Length               LengthState
	HasSweep             bool
	Sweep                SweepState
}

func saveSquare(sc *squareChannel) SquareState {
	s := SquareState{
		Duty: sc.duty, DutyPos: sc.dutyPos, Freq: sc.freq,
		DacEnabled: sc.dacEnabled, LastOutput: sc.lastOutput,
		Env: saveEnvelope(&sc.env), Length: saveLength(&sc.length),
	}
	if sc.swp != nil {
		s.HasSweep = true
		s.Sweep = SweepState{
			Shift: sc.swp.shift, Period: sc.swp.period, Divider: sc.swp.divider,
			Decrease: sc.swp.decrease, Enabled: sc.swp.enabled, Shadow: sc.swp.shadow,
		}
	}
	return s
}

func loadSquare(sc *squareChannel, s SquareState) {
	sc.duty, sc.dutyPos, sc.freq = s.Duty, s.DutyPos, s.Freq
	sc.dacEnabled, sc.lastOutput = s.DacEnabled, s.LastOutput
	loadEnvelope(&sc.env, s.Env)
	loadLength(&sc.length, s.Length)
	if sc.swp != nil && s.HasSweep {
		sc.swp.shift, sc.swp.period, sc.swp.divider = s.Sweep.Shift, s.Sweep.Period, s.Sweep.Divider
		sc.swp.decrease, sc.swp.enabled, sc.swp.shadow = s.Sweep.Decrease, s.Sweep.Enabled, s.Sweep.Shadow
	}
}

// WaveState is a serializable snapshot of the wave channel.
type WaveState struct {
	Banks                [2][16]byte
	Bank                 uint8
	TwoBanks, DacEnabled bool
	VolumeShift          uint8
	Force75              bool
	Freq                 uint16
	Phase                uint8
	LastOutput           int8
	Length               LengthState
}

func saveWave(wc *waveChannel) WaveState {
	return WaveState{
		Banks: wc.banks, Bank: wc.bank, TwoBanks: wc.twoBanks, DacEnabled: wc.dacEnabled,
		VolumeShift: wc.volumeShift, Force75: wc.force75, Freq: wc.freq, Phase: wc.phase,
		LastOutput: wc.lastOutput, Length: saveLength(&wc.length),
	}
}

func loadWave(wc *waveChannel, s WaveState) {
	wc.banks, wc.bank, wc.twoBanks, wc.dacEnabled = s.Banks, s.Bank, s.TwoBanks, s.DacEnabled
	wc.volumeShift, wc.force75, wc.freq, wc.phase = s.VolumeShift, s.Force75, s.Freq, s.Phase
	wc.lastOutput = s.LastOutput
	loadLength(&wc.length, s.Length)
}

// NoiseState is a serializable snapshot of the noise channel.
type NoiseState struct {
	Ratio, Shift uint8
	Width7       bool
	LFSR         uint16
	DacEnabled   bool
	LastOutput   int8
	Env          EnvelopeState
	Length       LengthState
}

func saveNoise(nc *noiseChannel) NoiseState {
	return NoiseState{
		Ratio: nc.ratio, Shift: nc.shift, Width7: nc.width7, LFSR: nc.lfsr,
		DacEnabled: nc.dacEnabled, LastOutput: nc.lastOutput,
		Env: saveEnvelope(&nc.env), Length: saveLength(&nc.length),
	}
}

func loadNoise(nc *noiseChannel, s NoiseState) {
	nc.ratio, nc.shift, nc.width7, nc.lfsr = s.Ratio, s.Shift, s.Width7, s.LFSR
	nc.dacEnabled, nc.lastOutput = s.DacEnabled, s.LastOutput
	loadEnvelope(&nc.env, s.Env)
	loadLength(&nc.length, s.Length)
}

// FIFOState is a serializable snapshot of one PCM FIFO queue.
type FIFOState struct {
	Queue [8]int8
	Count int
	Latch int8
}

func saveFIFO(f *dmaFIFO) FIFOState {
	return FIFOState{Queue: f.queue, Count: f.count, Latch: f.latch}
}

func loadFIFO(f *dmaFIFO, s FIFOState) {
	f.queue, f.count, f.latch = s.Queue, s.Count, s.Latch
}

// State is a serializable snapshot of the APU: every channel, both PCM
// FIFOs, and the shared register shadow. The mixer's blip-buffer
// resampling state is not included — it holds at most one frame's worth
// of not-yet-delivered audio, which LoadState simply discards via reset,
// same as a cold Reset would.
type State struct {
	Shadow                           [0x30]byte
	MasterEnable                     bool
	FifoAVolumeFull, FifoBVolumeFull bool
	FifoATimer, FifoBTimer           uint8
	FifoAEnableL, FifoAEnableR       bool
	FifoBEnableL, FifoBEnableR       bool
	PSGVolumeShift                   uint8
	BiasLevel                        uint16
	SeqPhase                         uint8
	FifoA, FifoB                     FIFOState
	FifoALast, FifoBLast             int16
	Sq1, Sq2                         SquareState
	Wave                             WaveState
	Noise                            NoiseState
}

// SaveState captures the full APU: registers, channels, and FIFOs.
func (a *APU) SaveState() State {
	return State{
		Shadow: a.shadow, MasterEnable: a.masterEnable,
		FifoAVolumeFull: a.fifoAVolumeFull, FifoBVolumeFull: a.fifoBVolumeFull,
		FifoATimer: a.fifoATimer, FifoBTimer: a.fifoBTimer,
		FifoAEnableL: a.fifoAEnableL, FifoAEnableR: a.fifoAEnableR,
		FifoBEnableL: a.fifoBEnableL, FifoBEnableR: a.fifoBEnableR,
		PSGVolumeShift: a.psgVolumeShift, BiasLevel: a.biasLevel, SeqPhase: a.seqPhase,
		FifoA: saveFIFO(&a.fifoA), FifoB: saveFIFO(&a.fifoB),
		FifoALast: a.fifoALast, FifoBLast: a.fifoBLast,
		Sq1: saveSquare(a.sq1), Sq2: saveSquare(a.sq2),
		Wave: saveWave(a.wave), Noise: saveNoise(a.noise),
	}
}

// LoadState restores the full APU from s. The caller is responsible for
// restoring the scheduler's channel-advance and frame-sequencer events
// (scheduler.Restore) either side of this call.
func (a *APU) LoadState(s State) {
	a.shadow = s.Shadow
	a.masterEnable = s.MasterEnable
	a.fifoAVolumeFull, a.fifoBVolumeFull = s.FifoAVolumeFull, s.FifoBVolumeFull
	a.fifoATimer, a.fifoBTimer = s.FifoATimer, s.FifoBTimer
	a.fifoAEnableL, a.fifoAEnableR = s.FifoAEnableL, s.FifoAEnableR
	a.fifoBEnableL, a.fifoBEnableR = s.FifoBEnableL, s.FifoBEnableR
	a.psgVolumeShift, a.biasLevel, a.seqPhase = s.PSGVolumeShift, s.BiasLevel, s.SeqPhase
	loadFIFO(&a.fifoA, s.FifoA)
	loadFIFO(&a.fifoB, s.FifoB)
	a.fifoALast, a.fifoBLast = s.FifoALast, s.FifoBLast
	loadSquare(a.sq1, s.Sq1)
	loadSquare(a.sq2, s.Sq2)
	loadWave(a.wave, s.Wave)
	loadNoise(a.noise, s.Noise)
	a.mixer.reset()
}
