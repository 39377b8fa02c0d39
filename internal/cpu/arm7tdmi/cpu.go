// Package arm7tdmi implements an ARM7TDMI interpreter: full ARM and
// Thumb decode, the seven processor modes with their banked registers,
// the exception model, and the barrel shifter's exact flag semantics.
// Instructions execute against a Memory interface backed by the bus
// package, which does its own wait-state accounting; this package only
// decides which accesses happen and in what order.
package arm7tdmi

import (
	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/curated"
	"github.com/oskale/goadvance/internal/logger"
)

// register bank indices. User and System share a bank (they have
// identical, unbanked R13/R14); the other five privileged modes each
// get their own R13/R14 and SPSR, and FIQ additionally banks R8-R12.
const (
	bankUser = iota
	bankFIQ
	bankIRQ
	bankSVC
	bankABT
	bankUND
	bankCount
)

func bankOf(m Mode) int {
	switch m {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSupervisor:
		return bankSVC
	case ModeAbort:
		return bankABT
	case ModeUndefined:
		return bankUND
	default: // User, System
		return bankUser
	}
}

// exception vectors, per spec.md §4.2.
const (
	vectorReset         = 0x00000000
	vectorUndefined     = 0x00000004
	vectorSWI           = 0x00000008
	vectorPrefetchAbort = 0x0000000C
	vectorDataAbort     = 0x00000010
	vectorIRQ           = 0x00000018
	vectorFIQ           = 0x0000001C
)

// excKind distinguishes the two return-address conventions the
// architecture uses: synchronous exceptions (SWI, undefined
// instruction) return via "MOVS PC,LR" so LR must equal the address of
// the instruction following the one that trapped; asynchronous
// exceptions (IRQ, FIQ) return via "SUBS PC,LR,#4" so LR must be 4 more
// than the address execution should resume at.
type excKind int

const (
	excSynchronous excKind = iota
	excAsynchronous
)

// CPU is the ARM7TDMI register file, current mode/pipeline state, and
// instruction dispatch. It knows nothing about the scheduler; every bus
// access it performs self-charges through Memory, so the console facade
// only needs to call Step() in a loop.
type CPU struct {
	mem Memory

	r    [16]uint32 // live register file, R0-R15
	cpsr psr

	bankedR13, bankedR14 [bankCount]uint32
	bankedR8_12          [2][5]uint32 // index 0 = User/System, 1 = FIQ
	spsrBank             [bankCount]psr

	// irqLine is shared with the irq.Controller: it flips true/false as
	// IE/IF/IME change, and this CPU polls it once per Step() instead of
	// the controller calling back into the CPU.
	irqLine *bool

	halted bool // BIOS HLE Halt/Stop: Step() idles until an IRQ fires

	// pipe[0] is the opcode about to execute; pipe[1] is the one already
	// prefetched behind it. Together with the live r[15] (which always
	// reads as the architecture's PC-ahead value) this stands in for the
	// three-stage fetch/decode/execute pipeline spec.md §4.2 describes.
	pipe     [2]uint32
	branched bool // set by flush(); tells Step() the pipe was already refilled this instruction

	hle *hleState // nil when BIOS HLE is disabled and a real BIOS image drives SWI/boot
}

// New creates a CPU driven by mem for bus access and sharing irqLine
// with the IRQ controller.
func New(mem Memory, irqLine *bool) *CPU {
	return &CPU{mem: mem, irqLine: irqLine}
}

// EnableHLE installs the BIOS high-level-emulation SWI shim described
// in spec.md §4.2's "high-level emulation shim" clause. With HLE
// enabled, Reset() skips BIOS boot entirely and starts execution at the
// cartridge entry point, matching the well-known no-BIOS boot shortcut.
func (c *CPU) EnableHLE() { c.hle = newHLEState(c) }

// Reset puts every register in its documented post-boot state and
// flushes the pipeline from the reset vector (or, under HLE, straight
// to the cartridge entry point at 0x08000000).
func (c *CPU) Reset() {
	c.r = [16]uint32{}
	c.bankedR13 = [bankCount]uint32{}
	c.bankedR14 = [bankCount]uint32{}
	c.bankedR8_12 = [2][5]uint32{}
	c.spsrBank = [bankCount]psr{}
	c.halted = false

	c.bankedR13[bankSVC] = 0x03007FE0
	c.bankedR13[bankIRQ] = 0x03007FA0
	c.bankedR13[bankUser] = 0x03007F00

	if c.hle != nil {
		c.cpsr = psr{mode: ModeSystem}
		c.loadBank(ModeSystem)
		c.r[15] = 0x08000000
	} else {
		c.cpsr = psr{i: true, f: true, mode: ModeSupervisor}
		c.loadBank(ModeSupervisor)
		c.r[15] = vectorReset
	}
	c.flush()
}

// RaiseIRQ is a convenience entry point for tests; in normal operation
// the shared irqLine pointer is how the irq.Controller signals the CPU.
func (c *CPU) RaiseIRQ() { *c.irqLine = true }

// Step advances the CPU by one unit of work and charges the bus for every
// access it performs along the way: while halted with no IRQ line raised
// it charges one idle read; if an IRQ is latched and enabled it performs
// the IRQ exception entry and returns without executing an instruction;
// otherwise it executes exactly one instruction.
func (c *CPU) Step() {
	if c.halted {
		if c.irqLine != nil && *c.irqLine {
			c.halted = false
		} else {
			// the scheduler only advances in response to a bus access;
			// charge one throwaway cycle so every other device (PPU,
			// APU, timers, DMA) keeps running while the CPU idles.
			c.mem.Read8(c.r[15], bus.S)
			return
		}
	}

	if c.irqLine != nil && *c.irqLine && !c.cpsr.i {
		c.enterException(ModeIRQ, vectorIRQ, excAsynchronous, false)
		return
	}

	opcode := c.pipe[0]
	c.pipe[0] = c.pipe[1]
	c.branched = false

	fetchAddr := c.r[15]
	if c.cpsr.t {
		c.executeThumb(uint16(opcode))
		if !c.branched {
			c.pipe[1] = uint32(c.mem.Read16(fetchAddr, bus.S))
			c.r[15] = fetchAddr + 2
		}
	} else {
		c.executeARM(opcode)
		if !c.branched {
			c.pipe[1] = c.mem.Read32(fetchAddr, bus.S)
			c.r[15] = fetchAddr + 4
		}
	}
}

// flush performs the full two-word pipeline refill mandated whenever
// R15 is written directly: branches, mode changes, and exception entry.
// Leaves r[15] holding the architecture's PC-ahead view of the
// instruction now sitting in pipe[0].
func (c *CPU) flush() {
	if c.cpsr.t {
		c.r[15] &^= 1
		c.pipe[0] = uint32(c.mem.Read16(c.r[15], bus.N))
		c.r[15] += 2
		c.pipe[1] = uint32(c.mem.Read16(c.r[15], bus.S))
		c.r[15] += 2
	} else {
		c.r[15] &^= 3
		c.pipe[0] = c.mem.Read32(c.r[15], bus.N)
		c.r[15] += 4
		c.pipe[1] = c.mem.Read32(c.r[15], bus.S)
		c.r[15] += 4
	}
	c.branched = true
}

// writePC is how every branch/data-processing-into-R15/LDR-into-R15
// path assigns the program counter; it always triggers a pipeline flush.
func (c *CPU) writePC(addr uint32) {
	c.r[15] = addr
	c.flush()
}

// setMode swaps the banked R13/R14 (and R8-R12 for FIQ) out to their
// current bank and loads the incoming mode's bank into the live
// register file. SPSR access is independent (spsrBank is read/written
// directly by MRS/MSR and exception entry/return).
func (c *CPU) setMode(m Mode) {
	if m == c.cpsr.mode {
		return
	}
	old := bankOf(c.cpsr.mode)
	c.bankedR13[old] = c.r[13]
	c.bankedR14[old] = c.r[14]
	// R8-R12 are unbanked for every mode except FIQ, so leaving any
	// non-FIQ mode must also save them to the shared User/System slot —
	// not just leaving FIQ itself — or the outgoing values are lost.
	if c.cpsr.mode == ModeFIQ {
		copy(c.bankedR8_12[1][:], c.r[8:13])
	} else {
		copy(c.bankedR8_12[0][:], c.r[8:13])
	}

	c.cpsr.mode = m
	c.loadBank(m)
}

func (c *CPU) loadBank(m Mode) {
	bank := bankOf(m)
	c.r[13] = c.bankedR13[bank]
	c.r[14] = c.bankedR14[bank]
	if m == ModeFIQ {
		copy(c.r[8:13], c.bankedR8_12[1][:])
	} else {
		copy(c.r[8:13], c.bankedR8_12[0][:])
	}
}

// enterException performs the documented exception-entry sequence:
// compute LR per the exception's return convention, save CPSR to the
// target mode's SPSR, switch mode, clear T, set I (and F for Reset/FIQ
// entry), and flush the pipeline from the vector.
func (c *CPU) enterException(mode Mode, vector uint32, kind excKind, setF bool) {
	thumb := c.cpsr.t
	var lr uint32
	switch kind {
	case excSynchronous:
		if thumb {
			lr = c.r[15] - 2
		} else {
			lr = c.r[15] - 4
		}
	case excAsynchronous:
		if thumb {
			lr = c.r[15]
		} else {
			lr = c.r[15] - 4
		}
	}

	saved := c.cpsr
	c.setMode(mode)
	c.spsrBank[bankOf(mode)] = saved

	c.cpsr.t = false
	c.cpsr.i = true
	if setF {
		c.cpsr.f = true
	}

	c.r[14] = lr
	c.writePC(vector)
}

func (c *CPU) raiseUndefined() {
	logger.Logf("cpu", "undefined instruction at %#08x", c.r[15]-8)
	c.enterException(ModeUndefined, vectorUndefined, excSynchronous, false)
}

func (c *CPU) raiseSWI(comment uint32) {
	if c.hle != nil {
		c.hle.dispatch(comment)
		return
	}
	c.enterException(ModeSupervisor, vectorSWI, excSynchronous, false)
}

// CPSR/SPSR accessors used by MRS/MSR and save-state code.
func (c *CPU) CPSR() uint32 { return c.cpsr.toUint32() }

func (c *CPU) SetCPSR(v uint32) {
	newMode := Mode(v & 0x1F)
	if newMode != c.cpsr.mode {
		c.setMode(newMode)
	}
	flagsOnly := psrFromUint32(v)
	flagsOnly.mode = c.cpsr.mode
	c.cpsr = flagsOnly
}

func (c *CPU) SPSR() uint32 {
	if !c.cpsr.mode.hasSPSR() {
		return c.cpsr.toUint32()
	}
	return c.spsrBank[bankOf(c.cpsr.mode)].toUint32()
}

func (c *CPU) SetSPSR(v uint32) {
	if !c.cpsr.mode.hasSPSR() {
		return
	}
	c.spsrBank[bankOf(c.cpsr.mode)] = psrFromUint32(v)
}

// R reads a general register (0-15) as the currently executing
// instruction would see it: R15 reads as PC+8 (ARM) or PC+4 (Thumb),
// since c.r[15] is already maintained at that lookahead value.
func (c *CPU) R(n int) uint32 { return c.r[n] }

// SetR writes a general register; writing R15 always flushes.
func (c *CPU) SetR(n int, v uint32) {
	if n == 15 {
		c.writePC(v)
		return
	}
	c.r[n] = v
}

// Halt implements the BIOS HLE Halt/Stop SWI: the CPU stops fetching
// until an IRQ line transition wakes it, while the scheduler keeps
// advancing for every other device.
func (c *CPU) Halt() { c.halted = true }

// Halted reports whether the CPU is currently idling on Halt/Stop.
func (c *CPU) Halted() bool { return c.halted }

// fatalDecode marks a decode path that should be structurally
// unreachable (a malformed jump table entry); always a programmer
// error, never a guest condition.
func fatalDecode(opcode uint32) {
	curated.Fatal("cpu: unreachable decode state for opcode %#08x", opcode)
}
