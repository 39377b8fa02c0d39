package arm7tdmi

// Mode is the 5-bit M field of CPSR/SPSR (bits 4-0).
type Mode uint32

const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// CPSR/SPSR flag bit positions.
const (
	flagN = 1 << 31
	flagZ = 1 << 30
	flagC = 1 << 29
	flagV = 1 << 28
	flagI = 1 << 7
	flagF = 1 << 6
	flagT = 1 << 5
)

// psr packs N/Z/C/V, I/F/T and the 5-bit mode field the way the real
// CPSR/SPSR registers do; code elsewhere reads/writes it as a raw
// uint32 (e.g. MRS/MSR, exception entry) and uses the accessors below
// for the flag tests the barrel shifter and ALU care about.
type psr struct {
	n, z, c, v bool
	i, f, t    bool
	mode       Mode
}

func psrFromUint32(v uint32) psr {
	return psr{
		n: v&flagN != 0, z: v&flagZ != 0, c: v&flagC != 0, v: v&flagV != 0,
		i: v&flagI != 0, f: v&flagF != 0, t: v&flagT != 0,
		mode: Mode(v & 0x1F),
	}
}

func (p psr) toUint32() uint32 {
	var v uint32
	if p.n {
		v |= flagN
	}
	if p.z {
		v |= flagZ
	}
	if p.c {
		v |= flagC
	}
	if p.v {
		v |= flagV
	}
	if p.i {
		v |= flagI
	}
	if p.f {
		v |= flagF
	}
	if p.t {
		v |= flagT
	}
	v |= uint32(p.mode)
	return v
}

// privileged reports whether the mode is anything other than User (the
// only mode barred from directly writing CPSR's control bits).
func (m Mode) privileged() bool { return m != ModeUser }

// hasSPSR reports whether this mode has its own banked SPSR.
func (m Mode) hasSPSR() bool {
	switch m {
	case ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined:
		return true
	default:
		return false
	}
}
