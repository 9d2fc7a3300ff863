package emu

import "github.com/sarchlab/sim8086/insts"

// String instructions read their source from DS:SI (overridable) and
// their destination from ES:DI (never overridden). A repeat prefix runs
// the whole repetition inside one cycle.

func stringWidth(op insts.Op) insts.Width {
	switch op {
	case insts.OpMOVSB, insts.OpCMPSB, insts.OpSTOSB, insts.OpLODSB, insts.OpSCASB:
		return insts.Byte
	}
	return insts.Word
}

func (e *Emulator) stringStep(w insts.Width) uint16 {
	if e.regs.Flag(FlagDF) {
		return -uint16(w)
	}
	return uint16(w)
}

// repeat runs body once, or CX times under a repeat prefix. Compare
// instructions also stop on the ZF condition of REPZ/REPNZ.
func (e *Emulator) repeat(c *Cycle, compares bool, body func() error) error {
	rep := c.Inst.Rep
	if rep == insts.RepNone {
		return body()
	}

	r := e.regs
	for r.GP[CX] != 0 {
		if err := body(); err != nil {
			return err
		}
		r.GP[CX]--

		if !compares {
			continue
		}
		if rep == insts.RepZ && !r.Flag(FlagZF) {
			break
		}
		if rep == insts.RepNZ && r.Flag(FlagZF) {
			break
		}
	}
	return nil
}

func (e *Emulator) srcLoc(c *Cycle, w insts.Width) Location {
	return MemoryLoc(e.segmentFor(c, DS), e.regs.GP[SI], w)
}

func (e *Emulator) dstLoc(w insts.Width) Location {
	return MemoryLoc(e.regs.ES, e.regs.GP[DI], w)
}

func accumulator(w insts.Width) Location {
	if w == insts.Byte {
		return RegisterLoc(AL)
	}
	return RegisterLoc(AX)
}

func opMOVS(e *Emulator, c *Cycle) error {
	w := stringWidth(c.Inst.Op())
	d := e.stringStep(w)
	r := e.regs

	return e.repeat(c, false, func() error {
		v, err := e.srcLoc(c, w).Load(e)
		if err != nil {
			return err
		}
		if err := e.dstLoc(w).Store(e, v); err != nil {
			return err
		}
		r.GP[SI] += d
		r.GP[DI] += d
		return nil
	})
}

func opCMPS(e *Emulator, c *Cycle) error {
	w := stringWidth(c.Inst.Op())
	d := e.stringStep(w)
	r := e.regs

	return e.repeat(c, true, func() error {
		a, err := e.srcLoc(c, w).Load(e)
		if err != nil {
			return err
		}
		b, err := e.dstLoc(w).Load(e)
		if err != nil {
			return err
		}
		r.UpdateFlags(arithFlags, ComputeFlags(ClassSub, w, a, b, a-b))
		r.GP[SI] += d
		r.GP[DI] += d
		return nil
	})
}

func opSTOS(e *Emulator, c *Cycle) error {
	w := stringWidth(c.Inst.Op())
	d := e.stringStep(w)
	r := e.regs

	return e.repeat(c, false, func() error {
		v, err := accumulator(w).Load(e)
		if err != nil {
			return err
		}
		if err := e.dstLoc(w).Store(e, v); err != nil {
			return err
		}
		r.GP[DI] += d
		return nil
	})
}

func opLODS(e *Emulator, c *Cycle) error {
	w := stringWidth(c.Inst.Op())
	d := e.stringStep(w)
	r := e.regs

	return e.repeat(c, false, func() error {
		v, err := e.srcLoc(c, w).Load(e)
		if err != nil {
			return err
		}
		if err := accumulator(w).Store(e, v); err != nil {
			return err
		}
		r.GP[SI] += d
		return nil
	})
}

func opSCAS(e *Emulator, c *Cycle) error {
	w := stringWidth(c.Inst.Op())
	d := e.stringStep(w)
	r := e.regs

	return e.repeat(c, true, func() error {
		a, err := accumulator(w).Load(e)
		if err != nil {
			return err
		}
		b, err := e.dstLoc(w).Load(e)
		if err != nil {
			return err
		}
		r.UpdateFlags(arithFlags, ComputeFlags(ClassSub, w, a, b, a-b))
		r.GP[DI] += d
		return nil
	})
}
