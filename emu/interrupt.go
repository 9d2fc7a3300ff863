package emu

// InterruptHandler services software interrupts.
//
// HandleInterrupt runs after FLAGS, CS and the return IP have been
// pushed and before they are popped again, so the saved frame is on
// the stack at SS:SP. It must not change CS or IP; results go in
// registers. Returning false leaves the vector to the interrupt vector
// table.
type InterruptHandler interface {
	HandleInterrupt(e *Emulator, vector uint8) (bool, error)
}

// InterruptHandlerFunc adapts a function to InterruptHandler.
type InterruptHandlerFunc func(e *Emulator, vector uint8) (bool, error)

// HandleInterrupt calls f.
func (f InterruptHandlerFunc) HandleInterrupt(e *Emulator, vector uint8) (bool, error) {
	return f(e, vector)
}

// IVTEntry returns the CS:IP stored for vector in the interrupt vector
// table at 0000:vector*4.
func (e *Emulator) IVTEntry(vector uint8) (cs, ip uint16) {
	base := uint32(vector) * 4
	ip = e.memory.Read16(base)
	cs = e.memory.Read16(base + 2)
	return cs, ip
}

// SetIVTEntry stores the CS:IP for vector.
func (e *Emulator) SetIVTEntry(vector uint8, cs, ip uint16) {
	base := uint32(vector) * 4
	e.memory.Write16(base, ip)
	e.memory.Write16(base+2, cs)
}

// raise performs the interrupt sequence for vector with the following
// instruction as the return address.
func (e *Emulator) raise(c *Cycle, vector uint8) error {
	r := e.regs
	sp, flags := r.GP[SP], r.Flags

	e.Push16(r.Flags | ReservedFlags)
	r.SetFlag(FlagTF, false)
	r.SetFlag(FlagIF, false)
	e.Push16(r.CS)
	e.Push16(c.NextIP())

	if e.interrupts != nil {
		handled, err := e.interrupts.HandleInterrupt(e, vector)
		if err != nil {
			r.GP[SP], r.Flags = sp, flags
			return err
		}
		if handled {
			ip := e.Pop16()
			cs := e.Pop16()
			r.Flags = e.Pop16() & DefinedFlags
			c.Branch(cs, ip)
			return nil
		}
	}

	cs, ip := e.IVTEntry(vector)
	c.Branch(cs, ip)
	return nil
}

func opINT(e *Emulator, c *Cycle) error {
	v, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	return e.raise(c, uint8(v))
}

func opINTO(e *Emulator, c *Cycle) error {
	if !e.regs.Flag(FlagOF) {
		return nil
	}
	return e.raise(c, 4)
}

func opIRET(e *Emulator, c *Cycle) error {
	ip := e.Pop16()
	cs := e.Pop16()
	e.regs.Flags = e.Pop16() & DefinedFlags
	c.Branch(cs, ip)
	return nil
}
