// Package savestate captures and restores a Console's complete
// architectural state: every register, the full contents of work RAM,
// video RAM, palette and OAM, every device's registers, the scheduler's
// pending event queue, and cartridge backup memory.
//
// Encoding uses encoding/gob rather than encoding/binary: several of the
// component State structs carry platform-int-sized fields (bus.Width,
// the PPU's scanline index) that encoding/binary's fixed-width
// requirement can't serialize without per-field surgery across a dozen
// nested structs, and gob already handles arbitrary Go types directly.
package savestate

import (
	"bytes"
	"encoding/gob"

	"github.com/oskale/goadvance/cartridge"
	"github.com/oskale/goadvance/console"
	"github.com/oskale/goadvance/internal/apu"
	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/cpu/arm7tdmi"
	"github.com/oskale/goadvance/internal/curated"
	"github.com/oskale/goadvance/internal/dma"
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/keypad"
	"github.com/oskale/goadvance/internal/ppu"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/internal/timer"
)

// currentVersion is bumped whenever State's layout changes in a way
// that would make an older encoding unsafe to decode into the current
// component State structs.
const currentVersion = 1

// State is a complete, self-contained snapshot of a Console.
type State struct {
	Version int

	SchedNow    uint64
	SchedEvents []scheduler.EventSnapshot

	CPU    arm7tdmi.State
	Bus    bus.State
	IRQ    irq.State
	PPU    ppu.State
	APU    apu.State
	DMA    dma.State
	Timers timer.State
	Keypad keypad.State

	HasCartridge bool
	BackupKind   cartridge.BackupKind
	Backup       []byte
}

// CopyState captures c's complete state. The scheduler's boxed-callback
// events (currently only the IRQ synchronizer's one-shot delay) are not
// part of SchedEvents and are not re-armed by LoadState; the IRQ
// controller's own LoadState recomputes the IRQ line directly instead.
func CopyState(c *console.Console) State {
	s := State{
		Version:     currentVersion,
		SchedNow:    c.Scheduler().GetTimestampNow(),
		SchedEvents: c.Scheduler().Snapshot(),
		CPU:         c.CPU().SaveState(),
		Bus:         c.Bus().SaveState(),
		IRQ:         c.IRQ().SaveState(),
		PPU:         c.PPU().SaveState(),
		APU:         c.APU().SaveState(),
		DMA:         c.DMA().SaveState(),
		Timers:      c.Timers().SaveState(),
		Keypad:      c.Keypad().SaveState(),
	}
	if cart := c.Cartridge(); cart != nil {
		s.HasCartridge = true
		raw := cart.Backup().Raw()
		s.Backup = append([]byte(nil), raw...)
	}
	return s
}

// LoadState restores c to the state captured in s. c must already have
// the same cartridge attached (AttachROM) that was attached when s was
// captured; LoadState restores backup memory contents into it but does
// not reattach a cartridge itself.
func LoadState(c *console.Console, s State) error {
	if s.Version != currentVersion {
		return curated.KindErrorf(curated.KindVersionMismatch, "savestate: version %d, expected %d", s.Version, currentVersion)
	}

	c.Scheduler().Restore(s.SchedNow, s.SchedEvents)
	c.CPU().LoadState(s.CPU)
	c.Bus().LoadState(s.Bus)
	c.IRQ().LoadState(s.IRQ)
	c.PPU().LoadState(s.PPU)
	c.APU().LoadState(s.APU)
	c.DMA().LoadState(s.DMA)
	c.Timers().LoadState(s.Timers)
	c.Keypad().LoadState(s.Keypad)

	if s.HasCartridge {
		if cart := c.Cartridge(); cart != nil {
			cart.Backup().LoadRaw(s.Backup)
		}
	}
	return nil
}

// Encode serializes s to a self-contained byte slice.
func Encode(s State) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		return nil, curated.KindErrorf(curated.KindIO, "savestate: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a State previously produced by Encode, rejecting
// anything whose Version doesn't match the running build.
func Decode(data []byte) (State, error) {
	var s State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return State{}, curated.KindErrorf(curated.KindIO, "savestate: decode: %w", err)
	}
	if s.Version != currentVersion {
		return State{}, curated.KindErrorf(curated.KindVersionMismatch, "savestate: version %d, expected %d", s.Version, currentVersion)
	}
	return s, nil
}
