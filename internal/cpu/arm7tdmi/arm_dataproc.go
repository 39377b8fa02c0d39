package arm7tdmi

// data-processing opcodes, bits 24-21.
const (
	opAND = iota
	opEOR
	opSUB
	opRSB
	opADD
	opADC
	opSBC
	opRSC
	opTST
	opTEQ
	opCMP
	opCMN
	opORR
	opMOV
	opBIC
	opMVN
)

// shifterOperand resolves a data-processing instruction's second
// operand (bits 11-0), returning the value and the shifter's carry-out
// for logical ops to adopt as their C flag.
func (c *CPU) shifterOperand(opcode uint32) (value uint32, shifterCarry bool) {
	if bit(opcode, 25) {
		imm := opcode & 0xFF
		rot := (opcode >> 8) & 0xF * 2
		if rot == 0 {
			return imm, c.cpsr.c
		}
		return imm>>rot | imm<<(32-rot), imm>>(rot-1)&1 != 0
	}

	rm := opcode & 0xF
	st := shiftType((opcode >> 5) & 0x3)

	if bit(opcode, 4) {
		// register-specified shift amount: Rs's low byte, and a PC read
		// here sees PC+12 (ARM) since the extra internal cycle this
		// encoding costs pushes the pipeline one word further; modeled
		// as a simple +4 on top of the already-lookahead r[15].
		rs := (opcode >> 8) & 0xF
		amount := c.readRegPC12(rs) & 0xFF
		val := c.readRegPC12(rm)
		if amount == 0 {
			return val, c.cpsr.c
		}
		return shift(st, val, amount, c.cpsr.c, false)
	}

	amount := (opcode >> 7) & 0x1F
	val := c.R(int(rm))
	return shift(st, val, amount, c.cpsr.c, true)
}

// readRegPC12 reads a register the way a register-shifted-register
// data-processing operand sees it: R15 reads 4 further ahead than the
// normal R(n) view because of the extra internal cycle this encoding
// takes.
func (c *CPU) readRegPC12(n uint32) uint32 {
	if n == 15 {
		return c.r[15] + 4
	}
	return c.r[n]
}

func (c *CPU) armDataProcessing(opcode uint32) {
	rn := (opcode >> 16) & 0xF
	rd := (opcode >> 12) & 0xF
	setFlags := bit(opcode, 20)
	op := (opcode >> 21) & 0xF

	operand2, shifterCarry := c.shifterOperand(opcode)
	operand1 := c.R(int(rn))
	if rn == 15 && !bit(opcode, 25) && bit(opcode, 4) {
		operand1 += 4 // register-shifted-register form: Rn as PC also sees the extra lookahead
	}

	// writing R15 with S=1 on a non-compare opcode is the documented
	// "return from exception" idiom (e.g. MOVS PC,LR): CPSR must be
	// restored from the current mode's SPSR before the result reaches
	// R15, since writeResult's SetR(15, ...) flushes the pipeline using
	// cpsr.t to pick the refetch width — restoring afterward would flush
	// with the stale T bit.
	returningFromException := rd == 15 && setFlags && op != opTST && op != opTEQ && op != opCMP && op != opCMN
	if returningFromException && c.cpsr.mode.hasSPSR() {
		c.SetCPSR(c.SPSR())
	}

	var result uint32
	var n, z, cFlag, v bool

	switch op {
	case opAND:
		result = operand1 & operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	case opEOR:
		result = operand1 ^ operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	case opSUB:
		result, n, z, cFlag, v = subWithFlags(operand1, operand2, 0)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opRSB:
		result, n, z, cFlag, v = subWithFlags(operand2, operand1, 0)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opADD:
		result, n, z, cFlag, v = addWithFlags(operand1, operand2, 0)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opADC:
		carry := uint32(0)
		if c.cpsr.c {
			carry = 1
		}
		result, n, z, cFlag, v = addWithFlags(operand1, operand2, carry)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opSBC:
		borrow := uint32(1)
		if c.cpsr.c {
			borrow = 0
		}
		result, n, z, cFlag, v = subWithFlags(operand1, operand2, borrow)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opRSC:
		borrow := uint32(1)
		if c.cpsr.c {
			borrow = 0
		}
		result, n, z, cFlag, v = subWithFlags(operand2, operand1, borrow)
		c.writeResult(int(rd), result, setFlags, false, true, n, z, cFlag, v)
	case opTST:
		result = operand1 & operand2
		c.applyLogical(result, shifterCarry, true)
	case opTEQ:
		result = operand1 ^ operand2
		c.applyLogical(result, shifterCarry, true)
	case opCMP:
		result, n, z, cFlag, v = subWithFlags(operand1, operand2, 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case opCMN:
		result, n, z, cFlag, v = addWithFlags(operand1, operand2, 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case opORR:
		result = operand1 | operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	case opMOV:
		result = operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	case opBIC:
		result = operand1 &^ operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	case opMVN:
		result = ^operand2
		c.writeResult(int(rd), result, setFlags, shifterCarry, false, false, false, false, false)
	}
}

// writeResult stores a data-processing result in Rd (triggering a
// flush if Rd is R15) and applies flags per the instruction's kind:
// logical ops take the shifter's carry-out; arithmetic ops take the
// ALU's own NZCV.
func (c *CPU) writeResult(rd int, result uint32, setFlags bool, shifterCarry bool, arith bool, n, z, cFlag, v bool) {
	if arith {
		c.applyArith(result, n, z, cFlag, v, setFlags && rd != 15)
	} else {
		c.applyLogical(result, shifterCarry, setFlags && rd != 15)
	}
	c.SetR(rd, result)
}
