package arm7tdmi

import "github.com/oskale/goadvance/internal/bus"

// executeThumb decodes and executes one 16-bit Thumb instruction. Thumb
// has no per-instruction condition field (only format 16's conditional
// branch does), so there is no checkCondition gate here; each format's
// handler is reached by matching the same architectural bitfields
// GBATEK documents for the nineteen Thumb instruction formats, tested
// most-specific first since several formats share a common prefix.
func (c *CPU) executeThumb(opcode uint16) {
	op := uint32(opcode)

	switch {
	case bitsEq(op, 15, 8, 0b11011111):
		c.thumbSWI(op)

	case bitsEq(op, 15, 12, 0b1101):
		if bitsEq(op, 11, 8, 0b1110) {
			c.raiseUndefined()
			return
		}
		c.thumbCondBranch(op)

	case bitsEq(op, 15, 12, 0b1111):
		c.thumbLongBranchLink(op)

	case bitsEq(op, 15, 11, 0b11100):
		c.thumbUncondBranch(op)

	case bitsEq(op, 15, 12, 0b1100):
		c.thumbMultipleLoadStore(op)

	case bitsEq(op, 15, 12, 0b1011) && bitsEq(op, 10, 9, 0b10):
		c.thumbPushPop(op)

	case bitsEq(op, 15, 8, 0b10110000):
		c.thumbAddSP(op)

	case bitsEq(op, 15, 12, 0b1010):
		c.thumbLoadAddress(op)

	case bitsEq(op, 15, 12, 0b1001):
		c.thumbSPRelLoadStore(op)

	case bitsEq(op, 15, 12, 0b1000):
		c.thumbLoadStoreHalfword(op)

	case bitsEq(op, 15, 13, 0b011):
		c.thumbLoadStoreImm(op)

	case bitsEq(op, 15, 12, 0b0101) && bit(op, 9):
		c.thumbLoadStoreSignExt(op)

	case bitsEq(op, 15, 12, 0b0101):
		c.thumbLoadStoreReg(op)

	case bitsEq(op, 15, 11, 0b01001):
		c.thumbPCRelLoad(op)

	case bitsEq(op, 15, 10, 0b010001):
		c.thumbHiRegBX(op)

	case bitsEq(op, 15, 10, 0b010000):
		c.thumbALU(op)

	case bitsEq(op, 15, 13, 0b001):
		c.thumbImmediate(op)

	case bitsEq(op, 15, 11, 0b00011):
		c.thumbAddSub(op)

	case bitsEq(op, 15, 13, 0b000):
		c.thumbMoveShifted(op)

	default:
		c.raiseUndefined()
	}
}

// format 1: LSL/LSR/ASR Rd, Rs, #Offset5.
func (c *CPU) thumbMoveShifted(op uint32) {
	kind := (op >> 11) & 0x3
	offset5 := (op >> 6) & 0x1F
	rs := (op >> 3) & 0x7
	rd := op & 0x7

	val := c.R(int(rs))
	var result uint32
	var carry bool
	switch kind {
	case 0:
		result, carry = shift(shiftLSL, val, offset5, c.cpsr.c, true)
	case 1:
		result, carry = shift(shiftLSR, val, offset5, c.cpsr.c, true)
	case 2:
		result, carry = shift(shiftASR, val, offset5, c.cpsr.c, true)
	default:
		fatalDecode(op) // kind==3 belongs to format 2, excluded by the dispatcher
	}
	c.setNZ(result)
	c.cpsr.c = carry
	c.SetR(int(rd), result)
}

// format 2: ADD/SUB Rd, Rs, Rn (or #Offset3).
func (c *CPU) thumbAddSub(op uint32) {
	immediate := bit(op, 10)
	sub := bit(op, 9)
	rnOrImm := (op >> 6) & 0x7
	rs := (op >> 3) & 0x7
	rd := op & 0x7

	var operand2 uint32
	if immediate {
		operand2 = rnOrImm
	} else {
		operand2 = c.R(int(rnOrImm))
	}

	var result uint32
	var n, z, cFlag, v bool
	if sub {
		result, n, z, cFlag, v = subWithFlags(c.R(int(rs)), operand2, 0)
	} else {
		result, n, z, cFlag, v = addWithFlags(c.R(int(rs)), operand2, 0)
	}
	c.applyArith(result, n, z, cFlag, v, true)
	c.SetR(int(rd), result)
}

// format 3: MOV/CMP/ADD/SUB Rd, #Offset8.
func (c *CPU) thumbImmediate(op uint32) {
	kind := (op >> 11) & 0x3
	rd := (op >> 8) & 0x7
	imm := op & 0xFF

	switch kind {
	case 0: // MOV
		c.setNZ(imm)
		c.SetR(int(rd), imm)
	case 1: // CMP
		result, n, z, cFlag, v := subWithFlags(c.R(int(rd)), imm, 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case 2: // ADD
		result, n, z, cFlag, v := addWithFlags(c.R(int(rd)), imm, 0)
		c.applyArith(result, n, z, cFlag, v, true)
		c.SetR(int(rd), result)
	case 3: // SUB
		result, n, z, cFlag, v := subWithFlags(c.R(int(rd)), imm, 0)
		c.applyArith(result, n, z, cFlag, v, true)
		c.SetR(int(rd), result)
	}
}

// format 4: the sixteen two-register ALU operations.
func (c *CPU) thumbALU(op uint32) {
	kind := (op >> 6) & 0xF
	rs := (op >> 3) & 0x7
	rd := op & 0x7

	rdVal := c.R(int(rd))
	rsVal := c.R(int(rs))

	switch kind {
	case 0x0: // AND
		result := rdVal & rsVal
		c.applyLogical(result, c.cpsr.c, true)
		c.SetR(int(rd), result)
	case 0x1: // EOR
		result := rdVal ^ rsVal
		c.applyLogical(result, c.cpsr.c, true)
		c.SetR(int(rd), result)
	case 0x2: // LSL
		result, carry := shift(shiftLSL, rdVal, rsVal&0xFF, c.cpsr.c, false)
		c.applyLogical(result, carry, true)
		c.SetR(int(rd), result)
	case 0x3: // LSR
		result, carry := shift(shiftLSR, rdVal, rsVal&0xFF, c.cpsr.c, false)
		c.applyLogical(result, carry, true)
		c.SetR(int(rd), result)
	case 0x4: // ASR
		result, carry := shift(shiftASR, rdVal, rsVal&0xFF, c.cpsr.c, false)
		c.applyLogical(result, carry, true)
		c.SetR(int(rd), result)
	case 0x5: // ADC
		carryIn := uint32(0)
		if c.cpsr.c {
			carryIn = 1
		}
		result, n, z, cFlag, v := addWithFlags(rdVal, rsVal, carryIn)
		c.applyArith(result, n, z, cFlag, v, true)
		c.SetR(int(rd), result)
	case 0x6: // SBC
		borrow := uint32(1)
		if c.cpsr.c {
			borrow = 0
		}
		result, n, z, cFlag, v := subWithFlags(rdVal, rsVal, borrow)
		c.applyArith(result, n, z, cFlag, v, true)
		c.SetR(int(rd), result)
	case 0x7: // ROR
		result, carry := shift(shiftROR, rdVal, rsVal&0xFF, c.cpsr.c, false)
		c.applyLogical(result, carry, true)
		c.SetR(int(rd), result)
	case 0x8: // TST
		result := rdVal & rsVal
		c.applyLogical(result, c.cpsr.c, true)
	case 0x9: // NEG
		result, n, z, cFlag, v := subWithFlags(0, rsVal, 0)
		c.applyArith(result, n, z, cFlag, v, true)
		c.SetR(int(rd), result)
	case 0xA: // CMP
		result, n, z, cFlag, v := subWithFlags(rdVal, rsVal, 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case 0xB: // CMN
		result, n, z, cFlag, v := addWithFlags(rdVal, rsVal, 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case 0xC: // ORR
		result := rdVal | rsVal
		c.applyLogical(result, c.cpsr.c, true)
		c.SetR(int(rd), result)
	case 0xD: // MUL
		result := rdVal * rsVal
		c.setNZ(result)
		c.SetR(int(rd), result)
	case 0xE: // BIC
		result := rdVal &^ rsVal
		c.applyLogical(result, c.cpsr.c, true)
		c.SetR(int(rd), result)
	case 0xF: // MVN
		result := ^rsVal
		c.applyLogical(result, c.cpsr.c, true)
		c.SetR(int(rd), result)
	}
}

// format 5: hi-register ADD/CMP/MOV and BX, the only way Thumb code
// reaches R8-R15 with a two-operand instruction.
func (c *CPU) thumbHiRegBX(op uint32) {
	kind := (op >> 8) & 0x3
	h1 := bit(op, 7)
	h2 := bit(op, 6)

	rs := (op >> 3) & 0x7
	if h2 {
		rs += 8
	}
	rd := op & 0x7
	if h1 {
		rd += 8
	}

	switch kind {
	case 0: // ADD
		c.SetR(int(rd), c.R(int(rd))+c.R(int(rs)))
	case 1: // CMP
		result, n, z, cFlag, v := subWithFlags(c.R(int(rd)), c.R(int(rs)), 0)
		c.applyArith(result, n, z, cFlag, v, true)
	case 2: // MOV
		c.SetR(int(rd), c.R(int(rs)))
	case 3: // BX
		target := c.R(int(rs))
		c.cpsr.t = target&1 != 0
		c.writePC(target &^ 1)
	}
}

// format 6: LDR Rd, [PC, #Word8] — PC reads word-aligned regardless of
// the current Thumb PC value's bit 1.
func (c *CPU) thumbPCRelLoad(op uint32) {
	rd := (op >> 8) & 0x7
	word8 := op & 0xFF
	addr := (c.r[15] &^ 3) + word8*4
	c.SetR(int(rd), c.mem.Read32(addr, bus.N))
}
