package savestate

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oskale/goadvance/cartridge"
	"github.com/oskale/goadvance/console"
	"github.com/oskale/goadvance/internal/curated"
)

func putWord(rom []byte, offset int, v uint32) {
	rom[offset] = byte(v)
	rom[offset+1] = byte(v >> 8)
	rom[offset+2] = byte(v >> 16)
	rom[offset+3] = byte(v >> 24)
}

// newRunningConsole builds a console running a tight counting loop, so
// that by the time a snapshot is taken the CPU, bus and scheduler all
// carry non-initial state.
func newRunningConsole(t *testing.T) *console.Console {
	t.Helper()
	rom := make([]byte, 0x100)
	putWord(rom, 0x00, 0xE3A01402)    // r1 = 0x02000000 (imm8=2, rotate=8)
	putWord(rom, 0x04, 0xE2822001)    // loop: r2 = r2 + 1
	putWord(rom, 0x08, 0xE5812000)    // [r1] = r2
	putWord(rom, 0x0C, 0xEAFFFFFC)    // b loop

	c := console.New()
	c.AttachROM(cartridge.NewROM(rom), cartridge.BackupNone)
	c.Reset()
	for i := 0; i < 50; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step() error: %v", err)
		}
	}
	return c
}

func TestCopyLoadStateRoundTrip(t *testing.T) {
	c := newRunningConsole(t)

	saved := CopyState(c)

	// Diverge further so LoadState has something to actually undo.
	for i := 0; i < 25; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("Step() error: %v", err)
		}
	}

	if err := LoadState(c, saved); err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}

	restored := CopyState(c)
	if diff := cmp.Diff(saved, restored); diff != "" {
		t.Errorf("state after CopyState -> LoadState -> CopyState differs (-want +got):\n%s", diff)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newRunningConsole(t)
	saved := CopyState(c)

	data, err := Encode(saved)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if diff := cmp.Diff(saved, decoded); diff != "" {
		t.Errorf("state after Encode -> Decode differs (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsVersionMismatch(t *testing.T) {
	c := newRunningConsole(t)
	s := CopyState(c)
	s.Version = currentVersion + 1

	data, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if _, err := Decode(data); curated.KindOf(err) != curated.KindVersionMismatch {
		t.Fatalf("Decode() of a future-versioned state: kind = %v, want KindVersionMismatch", curated.KindOf(err))
	}
}

func TestLoadStateRejectsVersionMismatch(t *testing.T) {
	c := newRunningConsole(t)
	s := CopyState(c)
	s.Version = currentVersion + 1

	if err := LoadState(c, s); curated.KindOf(err) != curated.KindVersionMismatch {
		t.Fatalf("LoadState() of a future-versioned state: kind = %v, want KindVersionMismatch", curated.KindOf(err))
	}
}

func TestCopyStateCapturesBackupMemory(t *testing.T) {
	c := newRunningConsole(t)
	cart := c.AttachROM(cartridge.NewROM(make([]byte, 0x100)), cartridge.BackupSRAM)
	cart.WriteBackup8(0x10, 0x42)

	s := CopyState(c)
	if !s.HasCartridge {
		t.Fatal("HasCartridge = false, want true")
	}
	if len(s.Backup) == 0 {
		t.Fatal("Backup is empty, want captured SRAM contents")
	}

	cart.WriteBackup8(0x10, 0x00)
	if err := LoadState(c, s); err != nil {
		t.Fatalf("LoadState() error: %v", err)
	}
	if got := c.Cartridge().ReadBackup8(0x10); got != 0x42 {
		t.Fatalf("backup[0x10] after LoadState = %#x, want 0x42", got)
	}
}
