package console

import (
	"testing"

	"github.com/oskale/goadvance/cartridge"
	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/clocks"
	"github.com/oskale/goadvance/internal/curated"
	"github.com/oskale/goadvance/preferences"
)

// armMOV builds an ARM "MOV rD, #imm8" opcode (AL condition, imm8 in
// bits [7:0], no rotate) for hand-assembled boot programs.
func armMOV(rd uint32, imm8 uint32) uint32 {
	return 0xE3A00000 | rd<<12 | imm8
}

// armSTR builds an ARM "STR rD, [rN]" opcode (pre-indexed, no
// writeback, offset 0).
func armSTR(rd, rn uint32) uint32 {
	return 0xE5800000 | rn<<16 | rd<<12
}

// armB builds an ARM unconditional branch to the same address (an
// infinite loop, used to park the CPU after the interesting work runs).
func armB() uint32 { return 0xEAFFFFFE }

func putWord(rom []byte, offset int, v uint32) {
	rom[offset] = byte(v)
	rom[offset+1] = byte(v >> 8)
	rom[offset+2] = byte(v >> 16)
	rom[offset+3] = byte(v >> 24)
}

// newBootROM builds a cartridge image that, run from the HLE entry
// point, writes 0x0D to the start of EWRAM and then loops in place.
func newBootROM() *cartridge.ROM {
	rom := make([]byte, 0x100)
	putWord(rom, 0x00, 0xE3A01402)      // r1 = 0x02000000 (imm8=2, rotate=8)
	putWord(rom, 0x04, armMOV(2, 0x0D)) // r2 = 0x0D
	putWord(rom, 0x08, armSTR(2, 1))    // [r1] = r2
	putWord(rom, 0x0C, armB())
	return cartridge.NewROM(rom)
}

func newTestConsole(t *testing.T) *Console {
	t.Helper()
	c := New()
	c.AttachROM(newBootROM(), cartridge.BackupNone)
	c.Reset()
	return c
}

func TestResetUnderHLEBootsToCartridgeEntry(t *testing.T) {
	c := newTestConsole(t)
	if got := c.CPU().R(15); got != 0x08000000+8 {
		t.Fatalf("r15 = %#x, want HLE entry look-ahead 0x08000008", got)
	}
}

func TestStepExecutesBootProgram(t *testing.T) {
	c := newTestConsole(t)
	for i := 0; i < 4; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step() error at instruction %d: %v", i, err)
		}
	}
	if got := c.Bus().Read8(0x02000000, bus.N); got != 0x0D {
		t.Fatalf("EWRAM[0] = %#x, want 0x0d", got)
	}
}

func TestResetWithoutBIOSOrHLEIsFatal(t *testing.T) {
	p := preferences.New()
	p.BIOSHLE.Set(false)
	c := New(WithPreferences(p))
	c.AttachROM(newBootROM(), cartridge.BackupNone)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Reset() without a BIOS or HLE should panic with a curated.Invariant")
		}
		if _, ok := r.(curated.Invariant); !ok {
			t.Fatalf("recovered %T, want curated.Invariant", r)
		}
	}()
	c.Reset()
}

func TestLivePreferenceChangeDisablesHLE(t *testing.T) {
	p := preferences.New()
	c := New(WithPreferences(p))
	c.AttachROM(newBootROM(), cartridge.BackupNone)
	c.Reset() // succeeds: HLE still on

	p.BIOSHLE.Set(false)

	defer func() {
		if recover() == nil {
			t.Fatal("disabling HLE live should make the next Reset() require a BIOS")
		}
	}()
	c.Reset()
}

func TestRunForOneFrameAdvancesAtLeastOneFrameOfCycles(t *testing.T) {
	c := newTestConsole(t)
	elapsed, err := c.RunForOneFrame()
	if err != nil {
		t.Fatalf("RunForOneFrame() error: %v", err)
	}
	if elapsed < clocks.CyclesPerFrame {
		t.Fatalf("elapsed = %d, want at least %d", elapsed, clocks.CyclesPerFrame)
	}
}

func TestFIFOAdapterAssemblesWordOnFourthByte(t *testing.T) {
	c := newTestConsole(t)
	const fifoABase = 0x040000A0
	c.Bus().Write8(fifoABase, 0x0D, bus.N)
	c.Bus().Write8(fifoABase+1, 0xF0, bus.N)
	c.Bus().Write8(fifoABase+2, 0xFE, bus.N)
	c.Bus().Write8(fifoABase+3, 0xCA, bus.N)
	// the assembled word reaches FIFO A as four samples in little-endian
	// byte order, observable through the APU's save state.
	fifo := c.APU().SaveState().FifoA
	if fifo.Count != 4 {
		t.Fatalf("FIFO A count = %d, want 4", fifo.Count)
	}
	want := [4]int8{0x0D, -0x10, -0x02, -0x36}
	for i, w := range want {
		if fifo.Queue[i] != w {
			t.Fatalf("FIFO A sample %d = %d, want %d", i, fifo.Queue[i], w)
		}
	}
}
