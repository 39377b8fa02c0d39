// Package keypad implements the ten-button keypad device: an
// active-low KEYINPUT register polled from an InputSource, and a
// KEYCNT interrupt-combination register (AND/OR of a selected key mask).
package keypad

import (
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/platform"
)

// Device polls a platform.InputSource and exposes KEYINPUT/KEYCNT.
type Device struct {
	source platform.InputSource
	irqc   *irq.Controller

	irqEnable bool
	irqAND    bool // false = OR combination, true = AND combination
	irqMask   uint16

	lastInput platform.Keys
}

// New creates a Device polling source and raising Keypad IRQs through
// irqc.
func New(source platform.InputSource, irqc *irq.Controller) *Device {
	if source == nil {
		source = platform.NullInputSource{}
	}
	return &Device{source: source, irqc: irqc}
}

// Reset clears KEYCNT. Idempotent.
func (d *Device) Reset() {
	d.irqEnable = false
	d.irqAND = false
	d.irqMask = 0
}

// Poll samples the input source and, if the KEYCNT combination
// condition is met, raises the keypad interrupt. Called on every read of
// KEYINPUT's low byte.
func (d *Device) Poll() {
	d.lastInput = d.source.Poll()

	if !d.irqEnable {
		return
	}

	pressed := uint16(d.lastInput) & d.irqMask
	var trigger bool
	if d.irqAND {
		trigger = pressed == d.irqMask
	} else {
		trigger = pressed != 0
	}
	if trigger {
		d.irqc.Raise(irq.Keypad)
	}
}

// keyinput returns the active-low KEYINPUT register value: a 0 bit
// means the corresponding key is held down.
func (d *Device) keyinput() uint16 {
	return ^uint16(d.lastInput) & 0x03FF
}

// State is a serializable snapshot of KEYCNT and the last polled input.
type State struct {
	IRQEnable bool
	IRQAND    bool
	IRQMask   uint16
	LastInput platform.Keys
}

// SaveState captures KEYCNT and the last-polled key state.
func (d *Device) SaveState() State {
	return State{IRQEnable: d.irqEnable, IRQAND: d.irqAND, IRQMask: d.irqMask, LastInput: d.lastInput}
}

// LoadState restores KEYCNT and the last-polled key state.
func (d *Device) LoadState(s State) {
	d.irqEnable = s.IRQEnable
	d.irqAND = s.IRQAND
	d.irqMask = s.IRQMask
	d.lastInput = s.LastInput
}
