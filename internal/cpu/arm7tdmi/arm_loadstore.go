package arm7tdmi

import "github.com/oskale/goadvance/internal/bus"

// armSingleDataTransfer implements LDR/STR/LDRB/STRB with both
// immediate and shifted-register offsets, and all four P/U/W
// pre/post-index writeback combinations.
func (c *CPU) armSingleDataTransfer(opcode uint32) {
	rn := (opcode >> 16) & 0xF
	rd := (opcode >> 12) & 0xF
	pre := bit(opcode, 24)
	up := bit(opcode, 23)
	byteTransfer := bit(opcode, 22)
	writeback := bit(opcode, 21)
	load := bit(opcode, 20)
	regOffset := bit(opcode, 25)

	var offset uint32
	if regOffset {
		rm := opcode & 0xF
		st := shiftType((opcode >> 5) & 0x3)
		amount := (opcode >> 7) & 0x1F
		offset, _ = shift(st, c.R(int(rm)), amount, c.cpsr.c, true)
	} else {
		offset = opcode & 0xFFF
	}

	base := c.R(int(rn))
	var indexed uint32
	if up {
		indexed = base + offset
	} else {
		indexed = base - offset
	}

	transferAddr := base
	if pre {
		transferAddr = indexed
	}

	if load {
		var val uint32
		if byteTransfer {
			val = uint32(c.mem.Read8(transferAddr, bus.N))
		} else {
			val = c.readRotatedWord(transferAddr, bus.N)
		}
		if !pre || writeback {
			c.r[rn] = indexed
		}
		c.SetR(int(rd), val)
	} else {
		val := c.R(int(rd))
		if rd == 15 {
			val += 4 // STR/STRB of PC stores one word further than the normal lookahead view
		}
		if byteTransfer {
			c.mem.Write8(transferAddr, uint8(val), bus.N)
		} else {
			c.mem.Write32(transferAddr, val, bus.N)
		}
		if !pre || writeback {
			c.r[rn] = indexed
		}
	}
}

// armHalfwordSignedTransfer implements LDRH/STRH/LDRSB/LDRSH, the
// family whose 8-bit offset is split across bits 11-8 and 3-0 when the
// immediate-offset bit (22) is set, or comes from Rm directly otherwise.
func (c *CPU) armHalfwordSignedTransfer(opcode uint32) {
	rn := (opcode >> 16) & 0xF
	rd := (opcode >> 12) & 0xF
	pre := bit(opcode, 24)
	up := bit(opcode, 23)
	immediateOffset := bit(opcode, 22)
	writeback := bit(opcode, 21)
	load := bit(opcode, 20)
	sh := (opcode >> 5) & 0x3

	var offset uint32
	if immediateOffset {
		offset = (opcode>>4)&0xF0 | opcode&0xF
	} else {
		offset = c.R(int(opcode & 0xF))
	}

	base := c.R(int(rn))
	var indexed uint32
	if up {
		indexed = base + offset
	} else {
		indexed = base - offset
	}

	transferAddr := base
	if pre {
		transferAddr = indexed
	}

	if load {
		var val uint32
		switch sh {
		case 0b01: // LDRH
			val = c.readAlignedHalf(transferAddr, bus.N)
		case 0b10: // LDRSB
			val = c.readSignedByte(transferAddr, bus.N)
		case 0b11: // LDRSH
			val = c.readSignedHalf(transferAddr, bus.N)
		default:
			fatalDecode(opcode) // SH=00 is SWP's encoding space, excluded by the dispatcher
		}
		if !pre || writeback {
			c.r[rn] = indexed
		}
		c.SetR(int(rd), val)
	} else {
		// only STRH (SH=01) is defined for stores in this family.
		val := c.R(int(rd))
		c.mem.Write16(transferAddr, uint16(val), bus.N)
		if !pre || writeback {
			c.r[rn] = indexed
		}
	}
}

// armSingleDataSwap implements SWP/SWPB: an atomic read-modify-write on
// the bus (uninterruptible since this interpreter has no concurrent bus
// user), word or byte width selected by bit 22.
func (c *CPU) armSingleDataSwap(opcode uint32) {
	rn := (opcode >> 16) & 0xF
	rd := (opcode >> 12) & 0xF
	rm := opcode & 0xF
	byteTransfer := bit(opcode, 22)
	addr := c.R(int(rn))

	if byteTransfer {
		old := c.mem.Read8(addr, bus.N)
		c.mem.Write8(addr, uint8(c.R(int(rm))), bus.N)
		c.SetR(int(rd), uint32(old))
	} else {
		old := c.readRotatedWord(addr, bus.N)
		c.mem.Write32(addr, c.R(int(rm)), bus.N)
		c.SetR(int(rd), old)
	}
}

// armBlockTransfer implements LDM/STM in all four addressing-mode
// variants (IA/IB/DA/DB, selected by P/U) plus the S-bit's two special
// cases: user-bank register access (no ^ with R15 in the list) and,
// on an LDM that includes R15, CPSR restore from SPSR.
func (c *CPU) armBlockTransfer(opcode uint32) {
	rn := (opcode >> 16) & 0xF
	pre := bit(opcode, 24)
	up := bit(opcode, 23)
	sBit := bit(opcode, 22)
	writeback := bit(opcode, 21)
	load := bit(opcode, 20)
	list := opcode & 0xFFFF

	regs := make([]int, 0, 16)
	for i := 0; i < 16; i++ {
		if list&(1<<uint(i)) != 0 {
			regs = append(regs, i)
		}
	}

	base := c.R(int(rn))
	count := uint32(len(regs))
	var lowAddr uint32
	if up {
		lowAddr = base
	} else {
		lowAddr = base - count*4
	}

	// the transfer always walks low-to-high memory regardless of
	// direction; P selects whether the first access is pre- or
	// post-incremented relative to that walk.
	addr := lowAddr
	if (up && pre) || (!up && !pre) {
		addr += 4
	}

	userBank := sBit && !(load && list&0x8000 != 0)
	// LDM...^ with R15 in the list is the other standard exception-return
	// idiom (LDMFD SP!,{...,PC}^): CPSR must be restored from SPSR before
	// R15 is loaded, since that SetR(15, ...) flushes the pipeline using
	// cpsr.t to pick the refetch width — restoring after the loop would
	// flush with the stale T bit.
	exceptionReturn := load && sBit && list&0x8000 != 0

	for _, reg := range regs {
		if load {
			val := c.mem.Read32(addr, bus.S)
			if userBank {
				c.setUserReg(reg, val)
			} else {
				if reg == 15 && exceptionReturn && c.cpsr.mode.hasSPSR() {
					c.SetCPSR(c.SPSR())
				}
				c.SetR(reg, val)
			}
		} else {
			val := c.readBlockStoreReg(reg, userBank)
			c.mem.Write32(addr, val, bus.S)
		}
		addr += 4
	}

	if writeback {
		if up {
			c.r[rn] = base + count*4
		} else {
			c.r[rn] = base - count*4
		}
	}
}

// setUserReg writes a register as the User/System bank, used by LDM's
// S-bit "load to user registers" form regardless of current mode.
func (c *CPU) setUserReg(n int, v uint32) {
	if c.cpsr.mode == ModeUser || c.cpsr.mode == ModeSystem {
		c.SetR(n, v)
		return
	}
	switch {
	case n == 13:
		c.bankedR13[bankUser] = v
	case n == 14:
		c.bankedR14[bankUser] = v
	case n >= 8 && n <= 12 && c.cpsr.mode == ModeFIQ:
		c.bankedR8_12[0][n-8] = v
	default:
		c.SetR(n, v)
	}
}

func (c *CPU) readBlockStoreReg(n int, userBank bool) uint32 {
	if !userBank {
		return c.R(n)
	}
	if c.cpsr.mode == ModeUser || c.cpsr.mode == ModeSystem {
		return c.R(n)
	}
	switch {
	case n == 13:
		return c.bankedR13[bankUser]
	case n == 14:
		return c.bankedR14[bankUser]
	case n >= 8 && n <= 12 && c.cpsr.mode == ModeFIQ:
		return c.bankedR8_12[0][n-8]
	default:
		return c.R(n)
	}
}
