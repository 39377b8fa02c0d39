package bus

import (
	"testing"

	"github.com/oskale/goadvance/internal/scheduler"
)

func newTestBus() *Bus {
	return New(scheduler.New())
}

func TestEWRAMReadWrite(t *testing.T) {
	b := newTestBus()
	b.Write8(0x02000000, 0x42, N)
	if got := b.Read8(0x02000000, S); got != 0x42 {
		t.Fatalf("got %#x, want 0x42", got)
	}
}

func TestEWRAMMirrors(t *testing.T) {
	b := newTestBus()
	b.Write8(0x02000010, 0x7, N)
	if got := b.Read8(0x02040010, S); got != 0x7 {
		t.Fatalf("mirror read got %#x, want 0x7", got)
	}
}

func TestWordAndHalfwordRoundTrip(t *testing.T) {
	b := newTestBus()
	b.Write32(0x03000000, 0xDEADBEEF, N)
	if got := b.Read32(0x03000000, S); got != 0xDEADBEEF {
		t.Fatalf("got %#x", got)
	}
	if got := b.Read16(0x03000000, S); got != 0xBEEF {
		t.Fatalf("lo half got %#x", got)
	}
	if got := b.Read16(0x03000002, S); got != 0xDEAD {
		t.Fatalf("hi half got %#x", got)
	}
}

func TestBIOSReadOutsideExecutionReturnsLastFetch(t *testing.T) {
	b := newTestBus()
	inBIOS := true
	b.AttachBIOS(make([]byte, BIOSSize), func() bool { return inBIOS })
	b.Poke8(0, 0x11)
	b.Poke8(1, 0x22)
	b.Poke8(2, 0x33)
	b.Poke8(3, 0x44)
	_ = b.Read32(0, N) // latch lastBIOSFetch while "in BIOS"

	inBIOS = false
	got := b.Read32(0, N)
	want := uint32(0x11) | uint32(0x22)<<8 | uint32(0x33)<<16 | uint32(0x44)<<24
	if got != want {
		t.Fatalf("got %#08x want %#08x", got, want)
	}
}

func TestROMWaitStatesConfigurable(t *testing.T) {
	b := newTestBus()
	b.SetROMWaitStates(0, 2, 1)
	if got := b.Cycles(0x08000000, Byte, N); got != 2 {
		t.Fatalf("N cost = %d, want 2", got)
	}
	if got := b.Cycles(0x08000000, Byte, S); got != 1 {
		t.Fatalf("S cost = %d, want 1", got)
	}
}

type fakeDevice struct{ reg uint8 }

func (d *fakeDevice) ReadIO(off uint32) uint8    { return d.reg }
func (d *fakeDevice) WriteIO(off uint32, v uint8) { d.reg = v }

func TestMMIODispatch(t *testing.T) {
	b := newTestBus()
	dev := &fakeDevice{}
	b.RegisterDevice(0x100, 0x4, dev)
	b.Write8(0x04000100, 0x99, N)
	if dev.reg != 0x99 {
		t.Fatalf("device did not receive write")
	}
	if got := b.Read8(0x04000100, S); got != 0x99 {
		t.Fatalf("got %#x", got)
	}
}

type fakeCart struct{ rom []byte }

func (c *fakeCart) ReadROM8(addr uint32) uint8 {
	if int(addr) < len(c.rom) {
		return c.rom[addr]
	}
	return 0
}
func (c *fakeCart) WriteROM8(addr uint32, v uint8)    {}
func (c *fakeCart) ReadBackup8(addr uint32) uint8     { return 0xFF }
func (c *fakeCart) WriteBackup8(addr uint32, v uint8) {}
func (c *fakeCart) ROMSize() int                      { return len(c.rom) }

func TestCartridgeROMRead(t *testing.T) {
	b := newTestBus()
	cart := &fakeCart{rom: []byte{0xAA, 0xBB, 0xCC, 0xDD}}
	b.AttachCartridge(cart)
	if got := b.Read8(0x08000001, N); got != 0xBB {
		t.Fatalf("got %#x", got)
	}
}
