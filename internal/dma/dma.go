// Package dma implements the four DMA channels: their control-register
// state machine, the four start-timing triggers (immediate, V-blank,
// H-blank, special), and the N-by-N transfer loop that stalls the CPU by
// running to completion (or, for H-blank DMA, to suspension) before
// control returns to it.
//
// Grounded on the same delay/countdown tick-loop shape used by simpler
// console DMA controllers (a single OAM-DMA channel counting down
// nBytes), generalized here to four independently configured channels
// with GBA's richer start-timing and addressing-control modes.
package dma

import (
	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/irq"
)

// StartTiming enumerates when a channel is allowed to activate.
type StartTiming uint8

const (
	StartImmediate StartTiming = iota
	StartVBlank
	StartHBlank
	StartSpecial // video-capture on ch3, sound-FIFO request on ch1/ch2
)

// AddrControl enumerates how a channel's source/destination address
// moves after each unit transferred.
type AddrControl uint8

const (
	AddrIncrement AddrControl = iota
	AddrDecrement
	AddrFixed
	AddrIncrementReload
)

var irqSourceForChannel = [4]irq.Source{irq.DMA0, irq.DMA1, irq.DMA2, irq.DMA3}

// Channel holds one DMA channel's registers and derived running state.
type Channel struct {
	src, dst   uint32
	count      uint16
	srcControl AddrControl
	dstControl AddrControl
	repeat     bool
	wordSize   bus.Width
	timing     StartTiming
	irqEnable  bool
	enabled    bool

	// running is the address/count pair actually in flight, distinct
	// from the registers (which may already contain the reload values
	// for a repeating channel before the current transfer finishes).
	runSrc, runDst uint32
	runCount       uint16
}

// Bus is the subset of internal/bus.Bus the transfer loop needs.
type Bus interface {
	Read8(addr uint32, kind bus.AccessKind) uint8
	Write8(addr uint32, v uint8, kind bus.AccessKind)
	Read16(addr uint32, kind bus.AccessKind) uint16
	Write16(addr uint32, v uint16, kind bus.AccessKind)
	Read32(addr uint32, kind bus.AccessKind) uint32
	Write32(addr uint32, v uint32, kind bus.AccessKind)
}

// Controller owns all four channels and runs transfers synchronously
// against the bus (which itself accounts for wait-state cycles through
// the scheduler), matching the spec's "CPU stalls until DMA completes"
// arbitration model.
type Controller struct {
	bus  Bus
	irqc *irq.Controller
	ch   [4]Channel

	// hblankSuspended marks a channel that started during an active
	// scanline's H-blank window but did not finish before H-blank
	// ended; it resumes on the next H-blank trigger.
	hblankSuspended [4]bool
}

// New creates a Controller driving transfers over b and raising DMA
// IRQs through irqc.
func New(b Bus, irqc *irq.Controller) *Controller {
	return &Controller{bus: b, irqc: irqc}
}

// Reset disables all channels. Idempotent.
func (c *Controller) Reset() {
	for i := range c.ch {
		c.ch[i] = Channel{}
		c.hblankSuspended[i] = false
	}
}

// Active reports whether any enabled channel has immediate start timing,
// i.e. an immediate transfer that RunImmediate has not yet completed.
func (c *Controller) Active() bool {
	for i := range c.ch {
		if c.ch[i].enabled && c.ch[i].timing == StartImmediate {
			return true
		}
	}
	return false
}

// activate begins (or resumes, for a suspended H-blank channel) channel
// i's transfer and runs it to completion or suspension.
func (c *Controller) activate(i int) {
	ch := &c.ch[i]
	if !ch.enabled {
		return
	}
	if !c.hblankSuspended[i] {
		ch.runSrc, ch.runDst, ch.runCount = ch.src, ch.dst, ch.count
	}
	c.hblankSuspended[i] = false

	c.run(i, ch.runCount)
}

// run performs up to `budget` units of transfer for channel i. H-blank
// channels are given a budget of one scanline's worth of transfer
// (their whole remaining count, since a single H-blank window is long
// enough to complete typical HDMA-sized transfers on this hardware) and
// suspend if not exhausted; other channels always run to completion.
func (c *Controller) run(i int, budget uint16) {
	ch := &c.ch[i]
	kind := bus.N

	for ch.runCount > 0 && budget > 0 {
		c.transferUnit(ch, kind)
		kind = bus.S
		ch.runCount--
		budget--
	}

	if ch.runCount > 0 {
		c.hblankSuspended[i] = true
		return
	}

	c.finish(i)
}

func (c *Controller) transferUnit(ch *Channel, kind bus.AccessKind) {
	switch ch.wordSize {
	case bus.Word:
		v := c.bus.Read32(ch.runSrc, kind)
		c.bus.Write32(ch.runDst, v, kind)
	default:
		v := c.bus.Read16(ch.runSrc, kind)
		c.bus.Write16(ch.runDst, v, kind)
	}

	step := uint32(ch.wordSize)
	ch.runSrc = advance(ch.runSrc, ch.srcControl, step)
	ch.runDst = advance(ch.runDst, ch.dstControl, step)
}

func advance(addr uint32, ctrl AddrControl, step uint32) uint32 {
	switch ctrl {
	case AddrDecrement:
		return addr - step
	case AddrFixed:
		return addr
	default: // increment and increment-reload both increment while running
		return addr + step
	}
}

func (c *Controller) finish(i int) {
	ch := &c.ch[i]

	if ch.irqEnable {
		c.irqc.Raise(irqSourceForChannel[i])
	}

	if ch.repeat && ch.timing != StartImmediate {
		ch.runCount = ch.count
		if ch.dstControl == AddrIncrementReload {
			ch.runDst = ch.dst
		} else {
			ch.dst = ch.runDst
		}
		ch.src = ch.runSrc
	} else {
		ch.enabled = false
	}
}

// TriggerVBlank runs every enabled V-blank-timed channel to completion.
// Called by the PPU exactly once per frame on entering line 160.
func (c *Controller) TriggerVBlank() { c.triggerTiming(StartVBlank, 0) }

// TriggerHBlank runs every enabled H-blank-timed channel for one
// scanline's window, resuming any channel left suspended from the
// previous H-blank. Called by the PPU at each line's H-blank boundary.
func (c *Controller) TriggerHBlank() { c.triggerTiming(StartHBlank, 0) }

// TriggerSpecial activates the special-timing channel `channel` (1 or 2
// for the sound FIFOs, 3 for video capture), transferring exactly the
// given number of 32-bit words (4, for a sound FIFO refill request)
// rather than the channel's full configured count.
func (c *Controller) TriggerSpecial(channel int, words uint16) {
	ch := &c.ch[channel]
	if !ch.enabled || ch.timing != StartSpecial {
		return
	}
	ch.runSrc, ch.runDst = ch.src, ch.dst
	ch.runCount = words
	width := ch.wordSize
	ch.wordSize = bus.Word
	c.run(channel, words)
	ch.wordSize = width
}

func (c *Controller) triggerTiming(t StartTiming, _ int) {
	for i := range c.ch {
		if c.ch[i].enabled && c.ch[i].timing == t {
			c.activate(i)
		}
	}
}

// ChannelState is a serializable snapshot of one DMA channel's registers
// and in-flight transfer state.
type ChannelState struct {
	Src, Dst                 uint32
	Count                    uint16
	SrcControl, DstControl   AddrControl
	Repeat                   bool
	WordSize                 bus.Width
	Timing                   StartTiming
	IRQEnable, Enabled       bool
	RunSrc, RunDst           uint32
	RunCount                 uint16
	HBlankSuspended          bool
}

// State is a serializable snapshot of all four channels.
type State struct {
	Channels [4]ChannelState
}

// SaveState captures every channel verbatim, including in-flight
// transfer progress (a channel suspended mid-H-blank-DMA resumes
// exactly where it left off after LoadState).
func (c *Controller) SaveState() State {
	var s State
	for i := range c.ch {
		ch := &c.ch[i]
		s.Channels[i] = ChannelState{
			Src: ch.src, Dst: ch.dst, Count: ch.count,
			SrcControl: ch.srcControl, DstControl: ch.dstControl,
			Repeat: ch.repeat, WordSize: ch.wordSize, Timing: ch.timing,
			IRQEnable: ch.irqEnable, Enabled: ch.enabled,
			RunSrc: ch.runSrc, RunDst: ch.runDst, RunCount: ch.runCount,
			HBlankSuspended: c.hblankSuspended[i],
		}
	}
	return s
}

// LoadState restores every channel from s.
func (c *Controller) LoadState(s State) {
	for i := range c.ch {
		cs := s.Channels[i]
		c.ch[i] = Channel{
			src: cs.Src, dst: cs.Dst, count: cs.Count,
			srcControl: cs.SrcControl, dstControl: cs.DstControl,
			repeat: cs.Repeat, wordSize: cs.WordSize, timing: cs.Timing,
			irqEnable: cs.IRQEnable, enabled: cs.Enabled,
			runSrc: cs.RunSrc, runDst: cs.RunDst, runCount: cs.RunCount,
		}
		c.hblankSuspended[i] = cs.HBlankSuspended
	}
}

// RunImmediate runs every enabled immediate-start channel to completion.
// Called by the core facade at the start of every Console.Step, before
// the CPU's next step, implementing the "CPU stalls, DMA runs to
// completion" arbitration rule for immediate-start transfers.
func (c *Controller) RunImmediate() {
	for i := range c.ch {
		if c.ch[i].enabled && c.ch[i].timing == StartImmediate {
			c.activate(i)
		}
	}
}
