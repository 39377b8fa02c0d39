package arm7tdmi

// armBranchExchange implements BX Rm: switch to Thumb state if Rm's bit0
// is set, then branch to Rm with that bit masked off.
func (c *CPU) armBranchExchange(opcode uint32) {
	rm := opcode & 0xF
	target := c.R(int(rm))
	c.cpsr.t = target&1 != 0
	c.writePC(target &^ 1)
}

// armBranch implements B and BL. The 24-bit signed offset is measured in
// words and pre-shifted left 2; link writes the return address (the
// instruction after the branch) to R14 before branching.
func (c *CPU) armBranch(opcode uint32) {
	offset := opcode & 0x00FFFFFF
	if offset&0x00800000 != 0 {
		offset |= 0xFF000000 // sign-extend
	}
	offset <<= 2

	if bit(opcode, 24) {
		c.r[14] = c.r[15] - 4
	}
	c.writePC(c.r[15] + offset)
}
