package arm7tdmi

// condition codes, bits 31-28 of every ARM opcode.
const (
	condEQ = iota
	condNE
	condCS
	condCC
	condMI
	condPL
	condVS
	condVC
	condHI
	condLS
	condGE
	condLT
	condGT
	condLE
	condAL
	condNV // never executes on ARMv4T; reserved
)

func (c *CPU) checkCondition(opcode uint32) bool {
	switch opcode >> 28 {
	case condEQ:
		return c.cpsr.z
	case condNE:
		return !c.cpsr.z
	case condCS:
		return c.cpsr.c
	case condCC:
		return !c.cpsr.c
	case condMI:
		return c.cpsr.n
	case condPL:
		return !c.cpsr.n
	case condVS:
		return c.cpsr.v
	case condVC:
		return !c.cpsr.v
	case condHI:
		return c.cpsr.c && !c.cpsr.z
	case condLS:
		return !c.cpsr.c || c.cpsr.z
	case condGE:
		return c.cpsr.n == c.cpsr.v
	case condLT:
		return c.cpsr.n != c.cpsr.v
	case condGT:
		return !c.cpsr.z && c.cpsr.n == c.cpsr.v
	case condLE:
		return c.cpsr.z || c.cpsr.n != c.cpsr.v
	case condAL:
		return true
	default:
		return false
	}
}

// bit reads bit position n of opcode as a bool, the idiom every
// category test below is built from instead of hand-derived byte masks
// that are hard to eyeball for correctness without a compiler to check
// them against.
func bit(opcode uint32, n uint) bool { return opcode&(1<<n) != 0 }

func bitsEq(opcode uint32, hi, lo uint, want uint32) bool {
	mask := uint32(1)<<(hi-lo+1) - 1
	return (opcode>>lo)&mask == want
}

// executeARM decodes and executes one 32-bit ARM instruction. Category
// tests read the exact architectural bitfields the ARM7TDMI's own
// decode PLA does (bits [27:20] and [7:4], per spec.md §4.2) as
// individual bit predicates rather than a precomputed 4096-entry table:
// functionally identical dispatch, but auditable without a compiler to
// catch a mis-derived mask.
func (c *CPU) executeARM(opcode uint32) {
	if !c.checkCondition(opcode) {
		return
	}

	switch {
	case opcode&0x0FFFFFF0 == 0x012FFF10:
		c.armBranchExchange(opcode)

	case bitsEq(opcode, 27, 25, 0b101):
		c.armBranch(opcode)

	case bitsEq(opcode, 27, 25, 0b100):
		c.armBlockTransfer(opcode)

	case bitsEq(opcode, 27, 23, 0b00010) && bitsEq(opcode, 21, 20, 0b00) && bitsEq(opcode, 7, 4, 0b1001):
		c.armSingleDataSwap(opcode)

	case bitsEq(opcode, 27, 22, 0b000000) && bitsEq(opcode, 7, 4, 0b1001):
		c.armMultiply(opcode)

	case bitsEq(opcode, 27, 23, 0b00001) && bitsEq(opcode, 7, 4, 0b1001):
		c.armMultiplyLong(opcode)

	case bitsEq(opcode, 27, 25, 0b000) && bit(opcode, 7) && bit(opcode, 4) && !bitsEq(opcode, 6, 5, 0b00):
		c.armHalfwordSignedTransfer(opcode)

	case bitsEq(opcode, 27, 26, 0b01) && bit(opcode, 25) && bit(opcode, 4):
		c.raiseUndefined()

	case bitsEq(opcode, 27, 23, 0b00010) && bitsEq(opcode, 21, 20, 0b00) && bitsEq(opcode, 7, 4, 0b0000):
		c.armPSRTransfer(opcode, false)

	case bitsEq(opcode, 27, 23, 0b00010) && bitsEq(opcode, 21, 20, 0b10) && bitsEq(opcode, 7, 4, 0b0000):
		c.armPSRTransfer(opcode, true)

	case bitsEq(opcode, 27, 26, 0b00) && bit(opcode, 25) && bitsEq(opcode, 24, 23, 0b10) && bitsEq(opcode, 21, 20, 0b10):
		c.armPSRTransfer(opcode, true)

	case bitsEq(opcode, 27, 26, 0b01):
		c.armSingleDataTransfer(opcode)

	case bitsEq(opcode, 27, 24, 0b1111):
		c.raiseSWI(opcode & 0x00FFFFFF)

	case bitsEq(opcode, 27, 26, 0b00):
		c.armDataProcessing(opcode)

	default:
		c.raiseUndefined()
	}
}
