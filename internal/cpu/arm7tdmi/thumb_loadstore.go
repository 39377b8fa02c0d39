package arm7tdmi

import "github.com/oskale/goadvance/internal/bus"

// format 7: LDR/STR/LDRB/STRB Rd, [Rb, Ro].
func (c *CPU) thumbLoadStoreReg(op uint32) {
	load := bit(op, 11)
	byteTransfer := bit(op, 10)
	ro := (op >> 6) & 0x7
	rb := (op >> 3) & 0x7
	rd := op & 0x7

	addr := c.R(int(rb)) + c.R(int(ro))
	if load {
		if byteTransfer {
			c.SetR(int(rd), uint32(c.mem.Read8(addr, bus.N)))
		} else {
			c.SetR(int(rd), c.readRotatedWord(addr, bus.N))
		}
	} else {
		if byteTransfer {
			c.mem.Write8(addr, uint8(c.R(int(rd))), bus.N)
		} else {
			c.mem.Write32(addr, c.R(int(rd)), bus.N)
		}
	}
}

// format 8: LDRH/STRH/LDSB/LDSH Rd, [Rb, Ro].
func (c *CPU) thumbLoadStoreSignExt(op uint32) {
	h := bit(op, 11)
	s := bit(op, 10)
	ro := (op >> 6) & 0x7
	rb := (op >> 3) & 0x7
	rd := op & 0x7

	addr := c.R(int(rb)) + c.R(int(ro))
	switch {
	case !s && !h: // STRH
		c.mem.Write16(addr, uint16(c.R(int(rd))), bus.N)
	case !s && h: // LDRH
		c.SetR(int(rd), c.readAlignedHalf(addr, bus.N))
	case s && !h: // LDSB
		c.SetR(int(rd), c.readSignedByte(addr, bus.N))
	default: // LDSH
		c.SetR(int(rd), c.readSignedHalf(addr, bus.N))
	}
}

// format 9: LDR/STR/LDRB/STRB Rd, [Rb, #Offset5].
func (c *CPU) thumbLoadStoreImm(op uint32) {
	byteTransfer := bit(op, 12)
	load := bit(op, 11)
	offset5 := (op >> 6) & 0x1F
	rb := (op >> 3) & 0x7
	rd := op & 0x7

	var offset uint32
	if byteTransfer {
		offset = offset5
	} else {
		offset = offset5 * 4
	}
	addr := c.R(int(rb)) + offset

	if load {
		if byteTransfer {
			c.SetR(int(rd), uint32(c.mem.Read8(addr, bus.N)))
		} else {
			c.SetR(int(rd), c.readRotatedWord(addr, bus.N))
		}
	} else {
		if byteTransfer {
			c.mem.Write8(addr, uint8(c.R(int(rd))), bus.N)
		} else {
			c.mem.Write32(addr, c.R(int(rd)), bus.N)
		}
	}
}

// format 10: LDRH/STRH Rd, [Rb, #Offset5] (offset scaled by 2).
func (c *CPU) thumbLoadStoreHalfword(op uint32) {
	load := bit(op, 11)
	offset5 := (op >> 6) & 0x1F
	rb := (op >> 3) & 0x7
	rd := op & 0x7

	addr := c.R(int(rb)) + offset5*2
	if load {
		c.SetR(int(rd), c.readAlignedHalf(addr, bus.N))
	} else {
		c.mem.Write16(addr, uint16(c.R(int(rd))), bus.N)
	}
}

// format 11: LDR/STR Rd, [SP, #Word8].
func (c *CPU) thumbSPRelLoadStore(op uint32) {
	load := bit(op, 11)
	rd := (op >> 8) & 0x7
	word8 := op & 0xFF

	addr := c.r[13] + word8*4
	if load {
		c.SetR(int(rd), c.readRotatedWord(addr, bus.N))
	} else {
		c.mem.Write32(addr, c.R(int(rd)), bus.N)
	}
}

// format 12: ADD Rd, PC|SP, #Word8.
func (c *CPU) thumbLoadAddress(op uint32) {
	useSP := bit(op, 11)
	rd := (op >> 8) & 0x7
	word8 := op & 0xFF

	var base uint32
	if useSP {
		base = c.r[13]
	} else {
		base = c.r[15] &^ 3
	}
	c.SetR(int(rd), base+word8*4)
}

// format 13: ADD/SUB SP, #Word7 (scaled by 4).
func (c *CPU) thumbAddSP(op uint32) {
	negative := bit(op, 7)
	word7 := op & 0x7F
	offset := word7 * 4
	if negative {
		c.r[13] -= offset
	} else {
		c.r[13] += offset
	}
}

// format 14: PUSH/POP {Rlist}{LR/PC}. Push walks the list low-to-high
// register number but stores to descending memory (full descending
// stack); pop is the mirror image.
func (c *CPU) thumbPushPop(op uint32) {
	load := bit(op, 11)
	includeExtra := bit(op, 8)
	rlist := op & 0xFF

	if load {
		addr := c.r[13]
		for i := 0; i < 8; i++ {
			if rlist&(1<<uint(i)) != 0 {
				c.r[i] = c.mem.Read32(addr, bus.S)
				addr += 4
			}
		}
		if includeExtra { // POP also pops PC
			val := c.mem.Read32(addr, bus.S)
			addr += 4
			c.cpsr.t = val&1 != 0
			c.writePC(val &^ 1)
		}
		c.r[13] = addr
	} else {
		count := 0
		for i := 0; i < 8; i++ {
			if rlist&(1<<uint(i)) != 0 {
				count++
			}
		}
		if includeExtra {
			count++
		}
		addr := c.r[13] - uint32(count)*4
		c.r[13] = addr

		for i := 0; i < 8; i++ {
			if rlist&(1<<uint(i)) != 0 {
				c.mem.Write32(addr, c.r[i], bus.S)
				addr += 4
			}
		}
		if includeExtra { // PUSH also pushes LR
			c.mem.Write32(addr, c.r[14], bus.S)
		}
	}
}

// format 15: LDMIA/STMIA Rb!, {Rlist}, always writing back Rb.
func (c *CPU) thumbMultipleLoadStore(op uint32) {
	load := bit(op, 11)
	rb := (op >> 8) & 0x7
	rlist := op & 0xFF

	addr := c.R(int(rb))
	for i := 0; i < 8; i++ {
		if rlist&(1<<uint(i)) != 0 {
			if load {
				c.r[i] = c.mem.Read32(addr, bus.S)
			} else {
				c.mem.Write32(addr, c.r[i], bus.S)
			}
			addr += 4
		}
	}
	c.r[rb] = addr
}
