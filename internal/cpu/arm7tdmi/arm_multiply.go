package arm7tdmi

// armMultiply implements MUL/MLA. Rd and Rn/Rm occupy unusual bit
// positions for this family: Rd is bits 19-16, Rn (the accumulate
// operand) is bits 15-12, Rs is bits 11-8, Rm is bits 3-0.
func (c *CPU) armMultiply(opcode uint32) {
	rd := (opcode >> 16) & 0xF
	rn := (opcode >> 12) & 0xF
	rs := (opcode >> 8) & 0xF
	rm := opcode & 0xF
	accumulate := bit(opcode, 21)
	setFlags := bit(opcode, 20)

	result := c.R(int(rm)) * c.R(int(rs))
	if accumulate {
		result += c.R(int(rn))
	}
	if setFlags {
		c.setNZ(result)
	}
	c.SetR(int(rd), result)
}

// armMultiplyLong implements UMULL/UMLAL/SMULL/SMLAL, producing a
// 64-bit product split across RdHi:RdLo.
func (c *CPU) armMultiplyLong(opcode uint32) {
	rdHi := (opcode >> 16) & 0xF
	rdLo := (opcode >> 12) & 0xF
	rs := (opcode >> 8) & 0xF
	rm := opcode & 0xF
	signed := bit(opcode, 22)
	accumulate := bit(opcode, 21)
	setFlags := bit(opcode, 20)

	var result uint64
	if signed {
		result = uint64(int64(int32(c.R(int(rm)))) * int64(int32(c.R(int(rs)))))
	} else {
		result = uint64(c.R(int(rm))) * uint64(c.R(int(rs)))
	}
	if accumulate {
		result += uint64(c.R(int(rdHi)))<<32 | uint64(c.R(int(rdLo)))
	}

	lo := uint32(result)
	hi := uint32(result >> 32)
	if setFlags {
		c.cpsr.n = hi&0x80000000 != 0
		c.cpsr.z = result == 0
	}
	c.SetR(int(rdLo), lo)
	c.SetR(int(rdHi), hi)
}
