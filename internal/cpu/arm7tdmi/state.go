package arm7tdmi

// State is an exported, serializable snapshot of the full register file:
// the live registers, CPSR, every banked R13/R14/R8-R12 slot, every
// mode's SPSR, the two-deep pipeline, and the halted flag. Save-state
// code outside this package copies it verbatim into its own snapshot
// rather than reaching into CPU's private fields.
type State struct {
	R    [16]uint32
	CPSR uint32

	BankedR13   [bankCount]uint32
	BankedR14   [bankCount]uint32
	BankedR8_12 [2][5]uint32
	SPSR        [bankCount]uint32

	Pipe     [2]uint32
	Halted   bool
}

// SaveState captures the CPU's complete architectural state.
func (c *CPU) SaveState() State {
	var s State
	s.R = c.r
	s.CPSR = c.cpsr.toUint32()
	s.BankedR13 = c.bankedR13
	s.BankedR14 = c.bankedR14
	s.BankedR8_12 = c.bankedR8_12
	for i := range c.spsrBank {
		s.SPSR[i] = c.spsrBank[i].toUint32()
	}
	s.Pipe = c.pipe
	s.Halted = c.halted
	return s
}

// LoadState restores a previously captured State. The pipeline is
// restored verbatim rather than reflushed, so the next Step() resumes
// exactly where the snapshot was taken instead of refetching.
func (c *CPU) LoadState(s State) {
	c.r = s.R
	c.cpsr = psrFromUint32(s.CPSR)
	c.bankedR13 = s.BankedR13
	c.bankedR14 = s.BankedR14
	c.bankedR8_12 = s.BankedR8_12
	for i := range s.SPSR {
		c.spsrBank[i] = psrFromUint32(s.SPSR[i])
	}
	c.pipe = s.Pipe
	c.halted = s.Halted
	c.branched = false
}
