package emu

import "github.com/sarchlab/sim8086/insts"

func opMOV(e *Emulator, c *Cycle) error {
	v, err := c.Src.Load(e)
	if err != nil {
		return err
	}
	return c.Dst.Store(e, v)
}

func opXCHG(e *Emulator, c *Cycle) error {
	a, b, err := c.operands(e)
	if err != nil {
		return err
	}
	if err := c.Dst.Store(e, b); err != nil {
		return err
	}
	return c.Src.Store(e, a)
}

// opLEA stores the effective address, not the value behind it.
func opLEA(e *Emulator, c *Cycle) error {
	return c.Dst.Store(e, uint32(c.Src.Off))
}

func opLES(e *Emulator, c *Cycle) error { return loadFarPointer(e, c, ES) }
func opLDS(e *Emulator, c *Cycle) error { return loadFarPointer(e, c, DS) }

func loadFarPointer(e *Emulator, c *Cycle, seg Reg) error {
	s, off, err := c.Src.LoadFar(e)
	if err != nil {
		return err
	}
	if err := c.Dst.Store(e, uint32(off)); err != nil {
		return err
	}
	e.regs.SetWord(seg, s)
	return nil
}

// opPUSH stores the already decremented value for PUSH SP, as the 8086
// does.
func opPUSH(e *Emulator, c *Cycle) error {
	if c.Dst.Kind == LocRegister && c.Dst.Reg == SP {
		e.Push16(e.regs.GP[SP] - 2)
		return nil
	}
	v, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	e.Push16(uint16(v))
	return nil
}

func opPOP(e *Emulator, c *Cycle) error {
	return c.Dst.Store(e, uint32(e.Pop16()))
}

func opPUSHF(e *Emulator, c *Cycle) error {
	e.Push16(e.regs.Flags | ReservedFlags)
	return nil
}

func opPOPF(e *Emulator, c *Cycle) error {
	e.regs.Flags = e.Pop16() & DefinedFlags
	return nil
}

const sahfFlags = FlagSF | FlagZF | FlagAF | FlagPF | FlagCF

func opSAHF(e *Emulator, c *Cycle) error {
	r := e.regs
	r.UpdateFlags(sahfFlags, uint16(r.Get(AH)))
	return nil
}

func opLAHF(e *Emulator, c *Cycle) error {
	r := e.regs
	return r.Set(AH, uint32(r.Flags&sahfFlags|ReservedFlags&0xFF))
}

// opXLAT loads AL from [BX+AL] in DS or the override segment.
func opXLAT(e *Emulator, c *Cycle) error {
	r := e.regs
	off := r.GP[BX] + uint16(r.Get(AL))
	return r.Set(AL, uint32(e.memory.Load8(e.segmentFor(c, DS), off)))
}

// opIN reads a port. The port number comes from Src (Ib or DX).
func opIN(e *Emulator, c *Cycle) error {
	port, err := c.Src.Load(e)
	if err != nil {
		return err
	}
	if c.Dst.Width == insts.Byte {
		return c.Dst.Store(e, uint32(e.memory.In8(uint16(port))))
	}
	return c.Dst.Store(e, uint32(e.memory.In16(uint16(port))))
}

// opOUT writes a port. The port number comes from Dst (Ib or DX).
func opOUT(e *Emulator, c *Cycle) error {
	port, v, err := c.operands(e)
	if err != nil {
		return err
	}
	if c.Src.Width == insts.Byte {
		e.memory.Out8(uint16(port), uint8(v))
	} else {
		e.memory.Out16(uint16(port), uint16(v))
	}
	return nil
}

func opNOP(e *Emulator, c *Cycle) error { return nil }

func opHLT(e *Emulator, c *Cycle) error {
	c.Halt()
	return nil
}

func flagOp(f uint16, on bool) handler {
	return func(e *Emulator, c *Cycle) error {
		e.regs.SetFlag(f, on)
		return nil
	}
}

func opCMC(e *Emulator, c *Cycle) error {
	e.regs.SetFlag(FlagCF, !e.regs.Flag(FlagCF))
	return nil
}
