package arm7tdmi

// setNZ updates the N and Z flags from a 32-bit result; every data
// processing opcode that updates flags does this, logical or
// arithmetic alike.
func (c *CPU) setNZ(result uint32) {
	c.cpsr.n = result&0x80000000 != 0
	c.cpsr.z = result == 0
}

// addWithFlags computes a+b+carryIn and reports the NZCV flags an ADC
// (or ADD, with carryIn forced to 0) would set.
func addWithFlags(a, b uint32, carryIn uint32) (result uint32, n, z, cFlag, v bool) {
	sum := uint64(a) + uint64(b) + uint64(carryIn)
	result = uint32(sum)
	n = result&0x80000000 != 0
	z = result == 0
	cFlag = sum > 0xFFFFFFFF
	v = (a^result)&(b^result)&0x80000000 != 0
	return
}

// subWithFlags computes a-b-borrowIn (borrowIn is 0 for SUB/CMP, 1-C
// for SBC) and reports the NZCV flags, using the ARM convention that C
// is set when no borrow occurred (i.e. C = a >= b+borrowIn).
func subWithFlags(a, b uint32, borrowIn uint32) (result uint32, n, z, cFlag, v bool) {
	return addWithFlags(a, ^b, 1-borrowIn)
}

func (c *CPU) applyLogical(result uint32, shifterCarry bool, setFlags bool) {
	if setFlags {
		c.setNZ(result)
		c.cpsr.c = shifterCarry
	}
}

func (c *CPU) applyArith(result uint32, n, z, cFlag, v bool, setFlags bool) {
	if setFlags {
		c.cpsr.n, c.cpsr.z, c.cpsr.c, c.cpsr.v = n, z, cFlag, v
	}
}
