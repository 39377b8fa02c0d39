// Package ppu implements the scanline-based pixel processor: four
// backgrounds (text, affine, bitmap), up to 128 sprites, two windows,
// and a composition/blend stage, driven entirely by scheduler events
// per scanline rather than per-dot or per-instruction callbacks.
package ppu

import (
	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/platform"
)

// Memory is the subset of the bus's backing arrays the PPU renders from.
type Memory interface {
	VRAM() []byte
	Palette() []byte
	OAM() []byte
}

// DMATrigger is the subset of the DMA controller the PPU drives at its
// V-blank/H-blank phase boundaries.
type DMATrigger interface {
	TriggerVBlank()
	TriggerHBlank()
}

const mmioSize = 0x56

// PPU owns the display registers, per-scanline rendering scratch state,
// and the two alternating frame buffers a VideoSink consumes.
type PPU struct {
	sched *scheduler.Scheduler
	irqc  *irq.Controller
	dmac  DMATrigger
	mem   Memory
	sink  platform.VideoSink

	mmio [mmioSize]byte

	line int

	front, back *platform.Frame

	// affine reference points: initial (written value) and current
	// (running accumulator advanced once per scanline during active
	// draw), per background 2 and 3.
	bgRefInitial [2][2]int32 // [bg2/bg3][x/y], 28.8 fixed point
	bgRefCurrent [2][2]int32

	winMask [2][240]bool // per-window horizontal enable mask, recomputed per line
	objBuf  [240]objPixel

	// affineMosaicCache holds the last actually-rendered line for each
	// affine background (2 and 3), reused on scanlines a vertical mosaic
	// block repeats instead of re-sampling. Unlike text and bitmap
	// backgrounds, an affine background's source coordinates for line y
	// depend on bgRefCurrent, a running per-scanline accumulator with no
	// history, so the only way to reproduce an earlier line's sample is
	// to keep its rendered output around.
	affineMosaicCache [2]struct {
		layer  [240]uint16
		opaque [240]bool
	}

	bldTable [32][32]uint8 // precomputed saturating blend table, [a][b] -> min(31, a+b)

	// bitmapOOBZero implements the Preferences.PPU.BitmapOOBReturnsZero
	// toggle: a bitmap-mode (3/4/5) scanline sample past the allocated
	// bitmap area returns zero when true, or an open-bus-style readback
	// when false (the default).
	bitmapOOBZero bool
}

// SetBitmapOOBReturnsZero implements the Preferences.PPU.BitmapOOBReturnsZero
// toggle described in the design notes.
func (p *PPU) SetBitmapOOBReturnsZero(v bool) { p.bitmapOOBZero = v }

type objPixel struct {
	present         bool
	priority        uint8
	color           uint16 // 15-bit BGR555, palette-resolved
	semiTransparent bool
	isWindow        bool
}

// New creates a PPU rendering from mem, driving irqc and dmac, and
// delivering completed frames to sink.
func New(sched *scheduler.Scheduler, irqc *irq.Controller, dmac DMATrigger, mem Memory, sink platform.VideoSink) *PPU {
	if sink == nil {
		sink = platform.NullVideoSink{}
	}
	p := &PPU{
		sched: sched,
		irqc:  irqc,
		dmac:  dmac,
		mem:   mem,
		sink:  sink,
		front: newFrame(),
		back:  newFrame(),
	}
	p.buildBlendTable()
	sched.RegisterClass(scheduler.ClassPPUHDraw, p.onHDraw)
	sched.RegisterClass(scheduler.ClassPPUHBlank, p.onHBlank)
	return p
}

func newFrame() *platform.Frame {
	return &platform.Frame{Width: 240, Height: 160, Pixels: make([]uint32, 240*160)}
}

// Reset returns the PPU to line 0, start-of-HDraw, with registers
// cleared. Idempotent.
func (p *PPU) Reset() {
	for i := range p.mmio {
		p.mmio[i] = 0
	}
	p.line = 0
	p.bgRefInitial = [2][2]int32{}
	p.bgRefCurrent = [2][2]int32{}
	p.setVCount(0)
	p.sched.AddEvent(clocks.CyclesPerVisibleScanline, scheduler.ClassPPUHDraw, 1, 0)
}

func (p *PPU) setVCount(line int) {
	p.line = line
	p.mmio[offVCOUNT] = uint8(line)

	setting := p.mmio[offDISPSTAT+1]
	matched := uint8(line) == setting
	if matched {
		p.mmio[offDISPSTAT] |= 0x4
	} else {
		p.mmio[offDISPSTAT] &^= 0x4
	}
	if matched && p.mmio[offDISPSTAT]&0x20 != 0 {
		p.irqc.Raise(irq.VCount)
	}
}

// onHDraw fires at the start of each scanline's visible-draw window. On
// line 0 it latches the affine reference points into their running
// values; it then renders the line (if within the visible 160 and not in
// forced blank), clears the H-blank status bit, and schedules the
// matching H-blank event.
func (p *PPU) onHDraw(uint64) {
	p.mmio[offDISPSTAT] &^= 0x2 // H-blank flag clear during draw

	if p.line == 0 {
		p.bgRefCurrent = p.bgRefInitial
	}

	if p.line < clocks.VisibleScanlines {
		p.renderScanline(p.line)
	}

	p.sched.AddEvent(clocks.CyclesPerHBlank, scheduler.ClassPPUHBlank, 1, 0)
}

// onHBlank fires at each line's H-blank boundary: raises the H-blank
// IRQ if enabled, triggers H-blank DMA, advances to the next line
// (wrapping and delivering the frame at 228), and schedules the next
// HDraw event.
func (p *PPU) onHBlank(uint64) {
	p.mmio[offDISPSTAT] |= 0x2
	if p.mmio[offDISPSTAT]&0x10 != 0 {
		p.irqc.Raise(irq.HBlank)
	}
	p.dmac.TriggerHBlank()

	next := p.line + 1
	if next == clocks.VisibleScanlines {
		p.mmio[offDISPSTAT] |= 0x1
		p.irqc.Raise(irq.VBlank)
		p.dmac.TriggerVBlank()
		p.deliverFrame()
	}
	if next >= clocks.TotalScanlines {
		next = 0
		p.mmio[offDISPSTAT] &^= 0x1
	}
	p.setVCount(next)

	p.sched.AddEvent(clocks.CyclesPerVisibleScanline, scheduler.ClassPPUHDraw, 1, 0)
}

// State is a serializable snapshot of the PPU's registers and
// scanline-position state. Per-pixel rendering scratch (window masks,
// sprite buffer, the front/back frame buffers themselves) is not
// included: it is fully recomputed by the next renderScanline call and
// carries no state across frames. affineMosaicCache is the one exception
// that spans more than a single scanline (it holds an affine
// background's vertical-mosaic-block source line); a save made mid-block
// loses it, so the first lines rendered after a LoadState can show a
// stale affine-mosaic block until the next block boundary repopulates
// the cache — at most a handful of scanlines, never more than one frame.
type State struct {
	MMIO         [mmioSize]byte
	Line         int
	BgRefInitial [2][2]int32
	BgRefCurrent [2][2]int32
}

// SaveState captures the PPU's registers and affine reference points.
func (p *PPU) SaveState() State {
	return State{
		MMIO:         p.mmio,
		Line:         p.line,
		BgRefInitial: p.bgRefInitial,
		BgRefCurrent: p.bgRefCurrent,
	}
}

// LoadState restores the PPU's registers and affine reference points.
// The caller is responsible for restoring the scheduler's HDraw/HBlank
// events (scheduler.Restore), which this does not re-arm itself.
func (p *PPU) LoadState(s State) {
	p.mmio = s.MMIO
	p.line = s.Line
	p.bgRefInitial = s.BgRefInitial
	p.bgRefCurrent = s.BgRefCurrent
}

func (p *PPU) deliverFrame() {
	p.front, p.back = p.back, p.front
	p.sink.Deliver(p.front)
}

// renderScanline fills line `y` of the back buffer per the spec's
// six-step algorithm: windows, backgrounds by mode, sprites, then
// composition/blend.
func (p *PPU) renderScanline(y int) {
	if p.mmio[offDISPCNT]&0x80 != 0 { // forced blank, DISPCNT bit 7
		row := p.back.Pixels[y*240 : y*240+240]
		for i := range row {
			row[i] = 0xFFFFFFFF
		}
		return
	}

	p.computeWindowMasks(y)

	var layers [4][240]uint16
	var layerOpaque [4][240]bool
	mode := p.mmio[offDISPCNT] & 0x7

	p.renderBackgrounds(y, mode, &layers, &layerOpaque)
	p.renderSprites(y)
	p.compose(y, mode, &layers, &layerOpaque)
}
