package dma

import (
	"testing"

	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/irq"
	"github.com/oskale/goadvance/internal/scheduler"
)

func newHarness() (*bus.Bus, *irq.Controller, *Controller) {
	sched := scheduler.New()
	var line bool
	irqc := irq.New(sched, &line)
	b := bus.New(sched)
	c := New(b, irqc)
	return b, irqc, c
}

func TestImmediateTransferCopiesWords(t *testing.T) {
	b, _, c := newHarness()

	const src, dst = 0x02000000, 0x02000100
	b.Write32(src, 0xDEADBEEF, bus.N)
	b.Write32(src+4, 0xCAFEF00D, bus.N)

	c.ch[0] = Channel{
		src: src, dst: dst, count: 2,
		wordSize: bus.Word, timing: StartImmediate, enabled: true,
	}
	c.RunImmediate()

	if got := b.Read32(dst, bus.N); got != 0xDEADBEEF {
		t.Fatalf("word 0 = %#08x, want 0xDEADBEEF", got)
	}
	if got := b.Read32(dst+4, bus.N); got != 0xCAFEF00D {
		t.Fatalf("word 1 = %#08x, want 0xCAFEF00D", got)
	}
	if c.ch[0].enabled {
		t.Fatal("non-repeating channel should disable itself after completion")
	}
}

func TestFixedDestinationDoesNotAdvance(t *testing.T) {
	b, _, c := newHarness()
	const src, dst = 0x02000000, 0x03000000
	b.Write16(src, 0x1111, bus.N)
	b.Write16(src+2, 0x2222, bus.N)

	c.ch[0] = Channel{
		src: src, dst: dst, count: 2,
		wordSize: bus.Halfword, dstControl: AddrFixed,
		timing: StartImmediate, enabled: true,
	}
	c.RunImmediate()

	if got := b.Read16(dst, bus.N); got != 0x2222 {
		t.Fatalf("fixed destination = %#04x, want last value 0x2222", got)
	}
}

func TestIRQRaisedOnCompletion(t *testing.T) {
	_, irqc, c := newHarness()
	irqc.SetIE(uint16(irq.DMA1))
	irqc.SetIME(true)

	c.ch[1] = Channel{
		src: 0x02000000, dst: 0x02000100, count: 1,
		wordSize: bus.Word, timing: StartImmediate, enabled: true, irqEnable: true,
	}
	c.RunImmediate()

	if irqc.IF()&uint16(irq.DMA1) == 0 {
		t.Fatal("DMA1 completion did not raise its IF bit")
	}
}

func TestVBlankChannelIgnoredUntilTriggered(t *testing.T) {
	b, _, c := newHarness()
	const src, dst = 0x02000000, 0x02000200
	b.Write32(src, 0x12345678, bus.N)

	c.ch[2] = Channel{
		src: src, dst: dst, count: 1,
		wordSize: bus.Word, timing: StartVBlank, enabled: true,
	}
	c.RunImmediate()
	if b.Read32(dst, bus.N) != 0 {
		t.Fatal("V-blank channel ran before its trigger")
	}

	c.TriggerVBlank()
	if got := b.Read32(dst, bus.N); got != 0x12345678 {
		t.Fatalf("after TriggerVBlank dst = %#08x, want 0x12345678", got)
	}
}

func TestRepeatChannelReloadsCount(t *testing.T) {
	b, _, c := newHarness()
	const src, dst = 0x02000000, 0x02000300
	b.Write16(src, 0xABCD, bus.N)

	c.ch[3] = Channel{
		src: src, dst: dst, count: 1,
		wordSize: bus.Halfword, timing: StartVBlank, enabled: true, repeat: true,
	}
	c.TriggerVBlank()
	if !c.ch[3].enabled {
		t.Fatal("repeating V-blank channel should remain enabled")
	}
	c.TriggerVBlank()
	if got := b.Read16(dst, bus.N); got != 0xABCD {
		t.Fatalf("second V-blank firing dst = %#04x, want 0xABCD", got)
	}
}

// fifoRegister stands in for the APU's FIFO_A register so the test can
// read back the last word the DMA wrote to it.
type fifoRegister struct{ b [4]uint8 }

func (f *fifoRegister) ReadIO(off uint32) uint8     { return f.b[off] }
func (f *fifoRegister) WriteIO(off uint32, v uint8) { f.b[off] = v }

func TestSoundFIFOSpecialTransfersFourWords(t *testing.T) {
	b, _, c := newHarness()
	b.RegisterDevice(0xA0, 4, &fifoRegister{})
	const src, dst = 0x02000000, 0x040000A0
	for i := 0; i < 4; i++ {
		b.Write32(uint32(src+4*i), uint32(0x1000+i), bus.N)
	}

	c.ch[1] = Channel{
		src: src, dst: dst, count: 4,
		wordSize: bus.Word, srcControl: AddrIncrement, dstControl: AddrFixed,
		timing: StartSpecial, enabled: true, repeat: true,
	}
	c.TriggerSpecial(1, 4)

	if got := b.Read32(dst, bus.N); got != 0x1003 {
		t.Fatalf("FIFO destination after 4-word burst = %#08x, want last word 0x1003", got)
	}
	if !c.ch[1].enabled {
		t.Fatal("special-timing sound channel should stay armed for the next request")
	}
}
