package apu

// envelope tracks a PSG channel's volume ramp: an initial 4-bit volume,
// a direction, and a step divider clocked by the frame sequencer's
// envelope phase (phase 7, 64 Hz).
type envelope struct {
	initial   uint8
	increase  bool
	stepTime  uint8
	current   uint8
	divider   uint8
	active    bool

	// zombieMode points at the owning APU's EnvelopeZombieMode
	// preference; nil is treated as false (never consulted outside
	// applyWrite).
	zombieMode *bool
}

func (e *envelope) init(initial uint8, increase bool, stepTime uint8) {
	e.initial = initial
	e.increase = increase
	e.stepTime = stepTime
}

// applyWrite updates the envelope's configured parameters from an
// NRx2-style register write. When the zombie-mode errata is enabled and
// the channel is currently playing, the write nudges the running volume
// immediately rather than waiting for the next trigger: a zero-period
// envelope that was still active bumps by one step, and a direction
// flip inverts the running volume about 16, matching the documented
// quirk instead of the simpler re-trigger-only behavior.
func (e *envelope) applyWrite(initial uint8, increase bool, stepTime uint8, channelActive bool) {
	if e.zombieMode != nil && *e.zombieMode && channelActive {
		if e.stepTime == 0 && e.active {
			e.current++
		}
		if e.increase != increase {
			e.current = 16 - e.current
		}
		e.current &= 0xF
	}
	e.init(initial, increase, stepTime)
}

// restart reloads the running volume from the initial value and resets
// the divider; called when the channel is triggered (initial=1 write).
func (e *envelope) restart() {
	e.current = e.initial
	e.divider = e.stepTime
	e.active = e.stepTime != 0
}

func (e *envelope) tick() {
	if e.stepTime == 0 || !e.active {
		return
	}
	if e.divider > 0 {
		e.divider--
	}
	if e.divider == 0 {
		e.divider = e.stepTime
		if e.increase {
			if e.current < 15 {
				e.current++
			} else {
				e.active = false
			}
		} else {
			if e.current > 0 {
				e.current--
			} else {
				e.active = false
			}
		}
	}
}

func (e *envelope) volume() uint8 { return e.current }

func (e *envelope) reset() {
	*e = envelope{}
}
