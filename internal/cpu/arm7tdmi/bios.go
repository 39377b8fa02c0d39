package arm7tdmi

import (
	"math"

	"github.com/oskale/goadvance/internal/bus"
	"github.com/oskale/goadvance/internal/logger"
)

// hleState synthesizes the effect of the documented BIOS SWI calls
// directly against register/bus state instead of interpreting the real
// BIOS image, per the "no-BIOS" boot path commercial emulators support.
// Every routine here is a functional approximation of the real BIOS's
// documented behavior, not a bit-for-bit port of its machine code: good
// enough for guest software that only depends on the documented
// contract (registers in, registers out, memory effects), not on BIOS
// timing or its own internal bugs.
type hleState struct {
	cpu *CPU
}

func newHLEState(cpu *CPU) *hleState { return &hleState{cpu: cpu} }

// dispatch runs the SWI identified by comment and returns directly to
// the instruction after the SWI — HLE never takes the Supervisor
// exception vector at all, matching the no-BIOS boot model.
func (h *hleState) dispatch(comment uint32) {
	c := h.cpu
	switch comment & 0xFF {
	case 0x00:
		h.softReset()
	case 0x01:
		h.registerRamReset()
	case 0x02, 0x03:
		c.Halt()
	case 0x04, 0x05:
		// IntrWait/VBlankIntrWait: approximated as Halt. The real BIOS
		// loops re-halting until IE&IF matches the requested flags;
		// this shim wakes on the first IRQ, which is the common case
		// for single-flag waits (VBlank, the overwhelming majority).
		c.Halt()
	case 0x06:
		h.div(c.r[0], c.r[1])
	case 0x07:
		h.div(c.r[1], c.r[0])
	case 0x08:
		c.r[0] = isqrt(c.r[0])
	case 0x09:
		c.r[0] = arctan(int32(c.r[0]))
	case 0x0A:
		c.r[0] = arctan2(int32(c.r[0]), int32(c.r[1]))
	case 0x0B:
		h.cpuSet(false)
	case 0x0C:
		h.cpuSet(true)
	case 0x0E:
		h.bgAffineSet()
	case 0x0F:
		h.objAffineSet()
	case 0x10:
		h.lz77Decompress()
	case 0x11:
		h.huffmanDecompress()
	case 0x12:
		h.rleDecompress()
	case 0x13:
		h.diffDecompress()
	case 0x19:
		// SoundBias: stub, this emulator's APU does not model the bias
		// ramp the real BIOS call drives.
	case 0x1F:
		// MidiKey2Freq: stub.
	default:
		logger.Logf("cpu", "unimplemented HLE SWI %#02x", comment&0xFF)
	}
}

func (h *hleState) softReset() {
	c := h.cpu
	c.Reset()
}

func (h *hleState) registerRamReset() {
	c := h.cpu
	flags := c.r[0]
	if flags&0x01 != 0 {
		zeroRange(c.mem, 0x02000000, 0x40000)
	}
	if flags&0x02 != 0 {
		zeroRange(c.mem, 0x03000000, 0x7E00) // spares the top of IWRAM (BIOS stack area)
	}
	if flags&0x04 != 0 {
		zeroRange(c.mem, 0x05000000, 0x400)
	}
	if flags&0x08 != 0 {
		zeroRange(c.mem, 0x06000000, 0x18000)
	}
	if flags&0x10 != 0 {
		zeroRange(c.mem, 0x07000000, 0x400)
	}
	// bits 5-7 (SIO/sound/other IO registers) are left alone: this
	// package has no reach into the APU/bus register banks from here.
}

func zeroRange(mem Memory, base uint32, length uint32) {
	for off := uint32(0); off < length; off += 4 {
		mem.Write32(base+off, 0, bus.N)
	}
}

func (h *hleState) div(numerator, denominator uint32) {
	c := h.cpu
	n, d := int32(numerator), int32(denominator)
	if d == 0 {
		c.r[0], c.r[1], c.r[3] = 0, uint32(n), 0
		return
	}
	quot := n / d
	rem := n % d
	c.r[0] = uint32(quot)
	c.r[1] = uint32(rem)
	if quot < 0 {
		c.r[3] = uint32(-quot)
	} else {
		c.r[3] = uint32(quot)
	}
}

func isqrt(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	x := uint32(math.Sqrt(float64(v)))
	for x*x > v {
		x--
	}
	for (x+1)*(x+1) <= v {
		x++
	}
	return x
}

// arctan/arctan2 reproduce the BIOS's documented output convention: a
// signed 16-bit angle where a full circle is 0x10000 (arctan: -0x4000 to
// +0x3FFF quarter-turn range; arctan2: full 0x0000-0xFFFF turn).
func arctan(tan int32) uint32 {
	rad := math.Atan(float64(tan) / 0x4000)
	return uint32(int32(rad / (2 * math.Pi) * 0x10000))
}

func arctan2(x, y int32) uint32 {
	rad := math.Atan2(float64(y), float64(x))
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return uint32(rad / (2 * math.Pi) * 0x10000)
}

// cpuSet implements CpuSet (word/halfword, count+fixed-source control
// word) and CpuFastSet (always word, count rounded up to a multiple of
// 8, fixed-source bit honored as in CpuSet) from r0=src, r1=dst,
// r2=control.
func (h *hleState) cpuSet(fast bool) {
	c := h.cpu
	src, dst, control := c.r[0], c.r[1], c.r[2]
	count := control & 0x1FFFFF
	fixedSource := control&(1<<24) != 0
	wordMode := fast || control&(1<<26) != 0

	if fast {
		count = (count + 7) &^ 7
		wordMode = true
	}

	srcAddr, dstAddr := src, dst
	for i := uint32(0); i < count; i++ {
		if wordMode {
			c.mem.Write32(dstAddr, c.mem.Read32(srcAddr, bus.S), bus.S)
			dstAddr += 4
			if !fixedSource {
				srcAddr += 4
			}
		} else {
			c.mem.Write16(dstAddr, c.mem.Read16(srcAddr, bus.S), bus.S)
			dstAddr += 2
			if !fixedSource {
				srcAddr += 2
			}
		}
	}
}

// bgAffineSet/objAffineSet build 2D rotate/scale matrices from a source
// table of {cx,cy fixed-point, scale x/y, angle} entries into the
// destination P-matrix table format the PPU's affine backgrounds and
// sprites consume.
func (h *hleState) bgAffineSet() {
	c := h.cpu
	src, dst, count := c.r[0], c.r[1], c.r[2]
	for i := uint32(0); i < count; i++ {
		base := src + i*20
		sx := int32(c.mem.Read32(base+8, bus.S))
		sy := int32(c.mem.Read32(base+12, bus.S))
		angle := c.mem.Read16(base+16, bus.S)
		pa, pb, pc, pd := affineMatrix(sx, sy, angle)
		out := dst + i*16
		c.mem.Write16(out+0, pa, bus.S)
		c.mem.Write16(out+2, pb, bus.S)
		c.mem.Write16(out+4, pc, bus.S)
		c.mem.Write16(out+6, pd, bus.S)
	}
}

func (h *hleState) objAffineSet() {
	c := h.cpu
	src, dst, count, offset := c.r[0], c.r[1], c.r[2], c.r[3]
	for i := uint32(0); i < count; i++ {
		base := src + i*8
		sx := int32(c.mem.Read32(base+0, bus.S))
		sy := int32(c.mem.Read32(base+4, bus.S))
		angle := c.mem.Read16(base+6, bus.S)
		pa, pb, pc, pd := affineMatrix(sx, sy, angle)
		out := dst + i*offset
		c.mem.Write16(out+0, pa, bus.S)
		c.mem.Write16(out+offset, pb, bus.S)
		c.mem.Write16(out+2*offset, pc, bus.S)
		c.mem.Write16(out+3*offset, pd, bus.S)
	}
}

// affineMatrix builds the 8.8 fixed-point PA/PB/PC/PD pair for a given
// 8.8 scale and a 16-bit BIOS angle unit (0x10000 == 360 degrees).
func affineMatrix(sx, sy int32, angle uint16) (pa, pb, pc, pd uint16) {
	theta := float64(angle) / 0x10000 * 2 * math.Pi
	sin, cos := math.Sin(theta), math.Cos(theta)
	scaleX, scaleY := float64(sx)/256, float64(sy)/256

	toFixed := func(v float64) uint16 {
		return uint16(int16(math.Round(v * 256)))
	}
	pa = toFixed(cos * scaleX)
	pb = toFixed(-sin * scaleX)
	pc = toFixed(sin * scaleY)
	pd = toFixed(cos * scaleY)
	return
}
