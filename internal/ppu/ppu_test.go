package ppu

import (
	"testing"

	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/scheduler"
	"github.com/oskale/goadvance/platform"
)

type fakeMem struct {
	vram, pal, oam []byte
}

func newFakeMem() *fakeMem {
	return &fakeMem{
		vram: make([]byte, 0x18000),
		pal:  make([]byte, 0x400),
		oam:  make([]byte, 0x400),
	}
}

func (m *fakeMem) VRAM() []byte    { return m.vram }
func (m *fakeMem) Palette() []byte { return m.pal }
func (m *fakeMem) OAM() []byte     { return m.oam }

type fakeDMA struct {
	vblanks, hblanks int
}

func (d *fakeDMA) TriggerVBlank() { d.vblanks++ }
func (d *fakeDMA) TriggerHBlank() { d.hblanks++ }

type capturingSink struct {
	frames []*platform.Frame
}

func (s *capturingSink) Deliver(f *platform.Frame) {
	cp := make([]uint32, len(f.Pixels))
	copy(cp, f.Pixels)
	s.frames = append(s.frames, &platform.Frame{Width: f.Width, Height: f.Height, Pixels: cp})
}

func newHarness() (*PPU, *fakeMem, *fakeDMA, *capturingSink, *scheduler.Scheduler) {
	sched := scheduler.New()
	var line bool
	irqc := irq.New(sched, &line)
	dmac := &fakeDMA{}
	mem := newFakeMem()
	sink := &capturingSink{}
	p := New(sched, irqc, dmac, mem, sink)
	p.Reset()
	return p, mem, dmac, sink, sched
}

func writeHalf(mmio []byte, off int, v uint16) {
	mmio[off] = uint8(v)
	mmio[off+1] = uint8(v >> 8)
}

// mode 4 fill test: fill 240 bytes of frame-0 VRAM with palette index 1,
// set palette index 1 to 0x7C00 (pure red in BGR555), then run a full
// frame and check the first scanline's output is pure red ARGB.
func TestMode4FillProducesExpectedFrame(t *testing.T) {
	p, mem, _, sink, sched := newHarness()

	writeHalf(p.mmio[:], offDISPCNT, 0x0004) // mode 4, BG2 enabled implicitly via mode
	p.mmio[offDISPCNT+1] = 0x04              // BG2 enable (bit 10 -> byte1 bit2)

	for i := 0; i < 240; i++ {
		mem.vram[i] = 1
	}
	mem.pal[2] = 0x00
	mem.pal[3] = 0x7C // palette index 1 -> 0x7C00

	sched.AddCycles(clocks.CyclesPerFrame)

	if len(sink.frames) == 0 {
		t.Fatal("expected at least one delivered frame")
	}
	f := sink.frames[0]
	want := uint32(0xFF000000 | 0x1F<<19)
	for x := 0; x < 240; x++ {
		if got := f.Pixels[x]; got != want {
			t.Fatalf("pixel %d: got %#08x, want %#08x", x, got, want)
		}
	}
}

func TestForcedBlankProducesWhiteScanline(t *testing.T) {
	p, _, _, sink, sched := newHarness()
	p.mmio[offDISPCNT] = 0x80 // forced blank

	sched.AddCycles(clocks.CyclesPerFrame)

	if len(sink.frames) == 0 {
		t.Fatal("expected at least one delivered frame")
	}
	f := sink.frames[0]
	for x := 0; x < 240; x++ {
		if f.Pixels[x] != 0xFFFFFFFF {
			t.Fatalf("pixel %d: got %#08x, want white", x, f.Pixels[x])
		}
	}
}

func TestVBlankAndHBlankIRQsAndDMATriggered(t *testing.T) {
	p, _, dmac, _, sched := newHarness()
	p.mmio[offDISPSTAT] = 0x18 // V-blank IRQ enable (bit3) + H-blank IRQ enable (bit4)

	sched.AddCycles(clocks.CyclesPerFrame)

	if p.irqc.IF()&uint16(irq.VBlank) == 0 {
		t.Fatal("expected V-blank IF bit set")
	}
	if p.irqc.IF()&uint16(irq.HBlank) == 0 {
		t.Fatal("expected H-blank IF bit set")
	}
	if dmac.vblanks == 0 {
		t.Fatal("expected TriggerVBlank to have been called")
	}
	if dmac.hblanks == 0 {
		t.Fatal("expected TriggerHBlank to have been called")
	}
}

func TestWindowWraparoundRange(t *testing.T) {
	p, _, _, _, _ := newHarness()
	// WIN0H with left > right wraps around the right edge of the screen.
	if !inRange(250, 200, 50, 256) {
		t.Fatal("expected wraparound range to include 250")
	}
	if inRange(100, 200, 50, 256) {
		t.Fatal("expected wraparound range to exclude 100")
	}
	_ = p
}

func TestBlendAlphaFormulaMatchesSaturatingMin(t *testing.T) {
	p, _, _, _, _ := newHarness()
	// channel value 20 blended at eva=8,evb=8 (half each) against channel
	// value 4 should match min(31, (20*8+4*8)/16) = min(31, 12) = 12.
	a := uint16(20)
	b := uint16(4)
	got := blendAlphaColors(a, b, 8, 8, &p.bldTable)
	want := uint16(12)
	if got&0x1F != want {
		t.Fatalf("got %d, want %d", got&0x1F, want)
	}
}

func TestVCountMatchSetsStatusBit(t *testing.T) {
	p, _, _, _, sched := newHarness()
	p.mmio[offDISPSTAT+1] = 100 // match line 100

	lineLength := uint64(clocks.CyclesPerVisibleScanline + clocks.CyclesPerHBlank)
	sched.AddCycles(100 * lineLength) // the H-blank boundary ending line 99 sets VCOUNT=100

	if p.mmio[offVCOUNT] != 100 {
		t.Fatalf("VCOUNT = %d, want 100", p.mmio[offVCOUNT])
	}
	if p.mmio[offDISPSTAT]&0x4 == 0 {
		t.Fatal("expected VCount match status bit set")
	}
}
