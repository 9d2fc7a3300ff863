package emu

import "github.com/sarchlab/sim8086/insts"

// operands loads the destination and source values.
func (c *Cycle) operands(e *Emulator) (a, b uint32, err error) {
	if a, err = c.Dst.Load(e); err != nil {
		return 0, 0, err
	}
	if b, err = c.Src.Load(e); err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (e *Emulator) carryIn() uint32 {
	if e.regs.Flag(FlagCF) {
		return 1
	}
	return 0
}

// arith runs an add- or sub-class operation on Dst and Src.
func (e *Emulator) arith(c *Cycle, class ALUClass, withCarry, writeBack bool) error {
	a, b, err := c.operands(e)
	if err != nil {
		return err
	}

	var carry uint32
	if withCarry {
		carry = e.carryIn()
	}

	var r uint32
	if class == ClassAdd {
		r = a + b + carry
	} else {
		r = a - b - carry
	}

	w := c.Dst.Width
	e.regs.UpdateFlags(arithFlags, ComputeFlags(class, w, a, b, r))
	if !writeBack {
		return nil
	}
	return c.Dst.Store(e, r&w.Mask())
}

// logic runs a bitwise operation on Dst and Src.
func (e *Emulator) logic(c *Cycle, fn func(a, b uint32) uint32, writeBack bool) error {
	a, b, err := c.operands(e)
	if err != nil {
		return err
	}

	w := c.Dst.Width
	r := fn(a, b) & w.Mask()
	e.regs.UpdateFlags(logicFlags, resultFlags(w, r))
	if !writeBack {
		return nil
	}
	return c.Dst.Store(e, r)
}

func opADD(e *Emulator, c *Cycle) error { return e.arith(c, ClassAdd, false, true) }
func opADC(e *Emulator, c *Cycle) error { return e.arith(c, ClassAdd, true, true) }
func opSUB(e *Emulator, c *Cycle) error { return e.arith(c, ClassSub, false, true) }
func opSBB(e *Emulator, c *Cycle) error { return e.arith(c, ClassSub, true, true) }
func opCMP(e *Emulator, c *Cycle) error { return e.arith(c, ClassSub, false, false) }

func opAND(e *Emulator, c *Cycle) error {
	return e.logic(c, func(a, b uint32) uint32 { return a & b }, true)
}

func opOR(e *Emulator, c *Cycle) error {
	return e.logic(c, func(a, b uint32) uint32 { return a | b }, true)
}

func opXOR(e *Emulator, c *Cycle) error {
	return e.logic(c, func(a, b uint32) uint32 { return a ^ b }, true)
}

func opTEST(e *Emulator, c *Cycle) error {
	return e.logic(c, func(a, b uint32) uint32 { return a & b }, false)
}

func opINC(e *Emulator, c *Cycle) error {
	a, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	w := c.Dst.Width
	r := a + 1
	e.regs.UpdateFlags(incDecFlags, ComputeFlags(ClassAdd, w, a, 1, r))
	return c.Dst.Store(e, r&w.Mask())
}

func opDEC(e *Emulator, c *Cycle) error {
	a, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	w := c.Dst.Width
	r := a - 1
	e.regs.UpdateFlags(incDecFlags, ComputeFlags(ClassSub, w, a, 1, r))
	return c.Dst.Store(e, r&w.Mask())
}

func opNEG(e *Emulator, c *Cycle) error {
	a, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	w := c.Dst.Width
	r := 0 - a
	e.regs.UpdateFlags(arithFlags, ComputeFlags(ClassSub, w, 0, a, r))
	return c.Dst.Store(e, r&w.Mask())
}

func opNOT(e *Emulator, c *Cycle) error {
	a, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	w := c.Dst.Width
	return c.Dst.Store(e, ^a&w.Mask())
}

func opMUL(e *Emulator, c *Cycle) error {
	src, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	r := e.regs

	if c.Dst.Width == insts.Byte {
		p := r.Get(AL) * src
		r.GP[AX] = uint16(p)
		r.UpdateFlags(mulFlags, overflowIf(p>>8 != 0))
		return nil
	}

	p := r.Get(AX) * src
	r.GP[AX] = uint16(p)
	r.GP[DX] = uint16(p >> 16)
	r.UpdateFlags(mulFlags, overflowIf(p>>16 != 0))
	return nil
}

func opIMUL(e *Emulator, c *Cycle) error {
	src, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	r := e.regs

	if c.Dst.Width == insts.Byte {
		p := int16(int8(r.Get(AL))) * int16(int8(src))
		r.GP[AX] = uint16(p)
		r.UpdateFlags(mulFlags, overflowIf(p != int16(int8(p))))
		return nil
	}

	p := int32(int16(r.Get(AX))) * int32(int16(src))
	r.GP[AX] = uint16(p)
	r.GP[DX] = uint16(uint32(p) >> 16)
	r.UpdateFlags(mulFlags, overflowIf(p != int32(int16(p))))
	return nil
}

func overflowIf(cond bool) uint16 {
	if cond {
		return FlagCF | FlagOF
	}
	return 0
}

// Divide errors raise interrupt 0 with the following instruction as the
// return address.
func opDIV(e *Emulator, c *Cycle) error {
	div, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	r := e.regs

	if div == 0 {
		return e.raise(c, 0)
	}

	if c.Dst.Width == insts.Byte {
		n := r.Get(AX)
		q := n / div
		if q > 0xFF {
			return e.raise(c, 0)
		}
		r.GP[AX] = uint16(n%div)<<8 | uint16(q)
		return nil
	}

	n := uint32(r.GP[DX])<<16 | uint32(r.GP[AX])
	q := n / div
	if q > 0xFFFF {
		return e.raise(c, 0)
	}
	r.GP[AX] = uint16(q)
	r.GP[DX] = uint16(n % div)
	return nil
}

func opIDIV(e *Emulator, c *Cycle) error {
	v, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	r := e.regs

	if v == 0 {
		return e.raise(c, 0)
	}

	if c.Dst.Width == insts.Byte {
		n := int32(int16(r.GP[AX]))
		div := int32(int8(v))
		q := n / div
		if q > 0x7F || q < -0x7F {
			return e.raise(c, 0)
		}
		rem := n % div
		r.GP[AX] = uint16(uint8(rem))<<8 | uint16(uint8(q))
		return nil
	}

	n := int64(int32(uint32(r.GP[DX])<<16 | uint32(r.GP[AX])))
	div := int64(int16(v))
	q := n / div
	if q > 0x7FFF || q < -0x7FFF {
		return e.raise(c, 0)
	}
	r.GP[AX] = uint16(q)
	r.GP[DX] = uint16(n % div)
	return nil
}

// opShift implements ROL, ROR, RCL, RCR, SHL, SHR and SAR. The count is
// not masked, as on the 8086.
func opShift(e *Emulator, c *Cycle) error {
	v, count, err := c.operands(e)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}

	w := c.Dst.Width
	mask := w.Mask()
	sign := w.SignBit()
	top := uint(7)
	if w == insts.Word {
		top = 15
	}

	orig := v
	cf := e.carryIn()
	op := c.Inst.Op()

	for i := uint32(0); i < count; i++ {
		switch op {
		case insts.OpROL:
			cf = v >> top & 1
			v = (v<<1 | cf) & mask
		case insts.OpROR:
			cf = v & 1
			v = v>>1 | cf<<top
		case insts.OpRCL:
			out := v >> top & 1
			v = (v<<1 | cf) & mask
			cf = out
		case insts.OpRCR:
			out := v & 1
			v = v>>1 | cf<<top
			cf = out
		case insts.OpSHL:
			cf = v >> top & 1
			v = v << 1 & mask
		case insts.OpSHR:
			cf = v & 1
			v >>= 1
		case insts.OpSAR:
			cf = v & 1
			v = v>>1 | v&sign
		}
	}

	regs := e.regs
	regs.SetFlag(FlagCF, cf != 0)

	if count == 1 {
		msb := v&sign != 0
		var of bool
		switch op {
		case insts.OpROL, insts.OpRCL, insts.OpSHL:
			of = msb != (cf != 0)
		case insts.OpROR, insts.OpRCR:
			of = msb != (v&(sign>>1) != 0)
		case insts.OpSHR:
			of = orig&sign != 0
		}
		regs.SetFlag(FlagOF, of)
	}

	switch op {
	case insts.OpSHL, insts.OpSHR, insts.OpSAR:
		regs.UpdateFlags(FlagPF|FlagZF|FlagSF, resultFlags(w, v))
	}

	return c.Dst.Store(e, v)
}

func opDAA(e *Emulator, c *Cycle) error {
	r := e.regs
	al := r.Get(AL)
	oldAL, oldCF := al, r.Flag(FlagCF)

	var f uint16
	if al&0x0F > 9 || r.Flag(FlagAF) {
		al += 6
		f |= FlagAF
		if oldCF || al > 0xFF {
			f |= FlagCF
		}
	}
	if oldAL > 0x99 || oldCF {
		al += 0x60
		f |= FlagCF
	}
	al &= 0xFF

	r.UpdateFlags(adjustFlags, f)
	r.UpdateFlags(FlagPF|FlagZF|FlagSF, resultFlags(insts.Byte, al))
	return r.Set(AL, al)
}

func opDAS(e *Emulator, c *Cycle) error {
	r := e.regs
	al := r.Get(AL)
	oldAL, oldCF := al, r.Flag(FlagCF)

	var f uint16
	if al&0x0F > 9 || r.Flag(FlagAF) {
		f |= FlagAF
		if oldCF || al < 6 {
			f |= FlagCF
		}
		al -= 6
	}
	if oldAL > 0x99 || oldCF {
		al -= 0x60
		f |= FlagCF
	}
	al &= 0xFF

	r.UpdateFlags(adjustFlags, f)
	r.UpdateFlags(FlagPF|FlagZF|FlagSF, resultFlags(insts.Byte, al))
	return r.Set(AL, al)
}

func opAAA(e *Emulator, c *Cycle) error {
	r := e.regs
	al, ah := r.Get(AL), r.Get(AH)

	if al&0x0F > 9 || r.Flag(FlagAF) {
		al += 6
		ah++
		r.UpdateFlags(adjustFlags, adjustFlags)
	} else {
		r.UpdateFlags(adjustFlags, 0)
	}

	r.GP[AX] = uint16(ah&0xFF)<<8 | uint16(al&0x0F)
	return nil
}

func opAAS(e *Emulator, c *Cycle) error {
	r := e.regs
	al, ah := r.Get(AL), r.Get(AH)

	if al&0x0F > 9 || r.Flag(FlagAF) {
		al -= 6
		ah--
		r.UpdateFlags(adjustFlags, adjustFlags)
	} else {
		r.UpdateFlags(adjustFlags, 0)
	}

	r.GP[AX] = uint16(ah&0xFF)<<8 | uint16(al&0x0F)
	return nil
}

func opCBW(e *Emulator, c *Cycle) error {
	r := e.regs
	r.GP[AX] = uint16(int16(int8(r.Get(AL))))
	return nil
}

func opCWD(e *Emulator, c *Cycle) error {
	r := e.regs
	if r.GP[AX]&0x8000 != 0 {
		r.GP[DX] = 0xFFFF
	} else {
		r.GP[DX] = 0
	}
	return nil
}
