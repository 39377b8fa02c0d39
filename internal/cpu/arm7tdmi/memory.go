package arm7tdmi

import "github.com/oskale/goadvance/internal/bus"

// Memory is the subset of the bus the core drives: byte/halfword/word
// accesses tagged with the N/S access kind so the bus can charge the
// right wait-state column, exactly as spec.md's bus contract requires.
type Memory interface {
	Read8(addr uint32, kind bus.AccessKind) uint8
	Read16(addr uint32, kind bus.AccessKind) uint16
	Read32(addr uint32, kind bus.AccessKind) uint32
	Write8(addr uint32, v uint8, kind bus.AccessKind)
	Write16(addr uint32, v uint16, kind bus.AccessKind)
	Write32(addr uint32, v uint32, kind bus.AccessKind)
}

// readAlignedHalf reads a halfword for an LDRH-family instruction,
// applying the architecture's misaligned-load rotate: reading from an
// odd address rotates the loaded halfword right by 8 bits instead of
// the bus's own round-down-to-even behavior.
func (c *CPU) readAlignedHalf(addr uint32, kind bus.AccessKind) uint32 {
	v := uint32(c.mem.Read16(addr, kind))
	if addr&1 != 0 {
		v = (v >> 8) | (v << 24)
	}
	return v
}

// readSignedHalf implements LDRSH: sign-extends the (possibly rotated)
// loaded halfword. An odd address degrades to a sign-extended byte load
// per the architecture's documented behavior for misaligned LDRSH.
func (c *CPU) readSignedHalf(addr uint32, kind bus.AccessKind) uint32 {
	if addr&1 != 0 {
		v := c.mem.Read8(addr, kind)
		return uint32(int32(int8(v)))
	}
	v := c.mem.Read16(addr, kind)
	return uint32(int32(int16(v)))
}

// readSignedByte implements LDRSB.
func (c *CPU) readSignedByte(addr uint32, kind bus.AccessKind) uint32 {
	return uint32(int32(int8(c.mem.Read8(addr, kind))))
}

// readRotatedWord implements the architecture's misaligned 32-bit load
// behavior: the bus always returns the aligned word; a load from a
// non-word-aligned address rotates that word right by 8*(addr&3) bits
// instead of faulting.
func (c *CPU) readRotatedWord(addr uint32, kind bus.AccessKind) uint32 {
	v := c.mem.Read32(addr, kind)
	rot := (addr & 3) * 8
	if rot != 0 {
		v = v>>rot | v<<(32-rot)
	}
	return v
}
