package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// CheckCondition evaluates a conditional jump against a flags word.
func CheckCondition(op insts.Op, flags uint16) (bool, error) {
	cf := flags&FlagCF != 0
	zf := flags&FlagZF != 0
	sf := flags&FlagSF != 0
	of := flags&FlagOF != 0
	pf := flags&FlagPF != 0

	switch op {
	case insts.OpJO:
		return of, nil
	case insts.OpJNO:
		return !of, nil
	case insts.OpJB:
		return cf, nil
	case insts.OpJNB:
		return !cf, nil
	case insts.OpJZ:
		return zf, nil
	case insts.OpJNZ:
		return !zf, nil
	case insts.OpJBE:
		return cf || zf, nil
	case insts.OpJA:
		return !cf && !zf, nil
	case insts.OpJS:
		return sf, nil
	case insts.OpJNS:
		return !sf, nil
	case insts.OpJPE:
		return pf, nil
	case insts.OpJPO:
		return !pf, nil
	case insts.OpJL:
		return sf != of, nil
	case insts.OpJGE:
		return sf == of, nil
	case insts.OpJLE:
		return zf || sf != of, nil
	case insts.OpJG:
		return !zf && sf == of, nil
	}
	return false, fmt.Errorf("%v is not a conditional jump: %w", op, ErrInvalidAddressMode)
}

func opJcc(e *Emulator, c *Cycle) error {
	taken, err := CheckCondition(c.Inst.Op(), e.regs.Flags)
	if err != nil || !taken {
		return err
	}
	target, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	c.Jump(uint16(target))
	return nil
}

// opLOOP decrements CX before testing it.
func opLOOP(e *Emulator, c *Cycle) error {
	r := e.regs
	r.GP[CX]--

	taken := r.GP[CX] != 0
	switch c.Inst.Op() {
	case insts.OpLOOPZ:
		taken = taken && r.Flag(FlagZF)
	case insts.OpLOOPNZ:
		taken = taken && !r.Flag(FlagZF)
	}
	if !taken {
		return nil
	}

	target, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	c.Jump(uint16(target))
	return nil
}

func opJCXZ(e *Emulator, c *Cycle) error {
	if e.regs.GP[CX] != 0 {
		return nil
	}
	target, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	c.Jump(uint16(target))
	return nil
}

// isFar reports whether a CALL or JMP operand carries a segment.
func isFar(c *Cycle) bool {
	return c.Dst.Kind == LocFarPointer || c.Inst.Info.Dst == insts.SpecEp
}

func opJMP(e *Emulator, c *Cycle) error {
	if isFar(c) {
		seg, off, err := c.Dst.LoadFar(e)
		if err != nil {
			return err
		}
		c.Branch(seg, off)
		return nil
	}

	target, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	c.Jump(uint16(target))
	return nil
}

// opCALL pushes CS for far calls, then the return offset.
func opCALL(e *Emulator, c *Cycle) error {
	if isFar(c) {
		seg, off, err := c.Dst.LoadFar(e)
		if err != nil {
			return err
		}
		e.Push16(e.regs.CS)
		e.Push16(c.NextIP())
		c.Branch(seg, off)
		return nil
	}

	target, err := c.Dst.Load(e)
	if err != nil {
		return err
	}
	e.Push16(c.NextIP())
	c.Jump(uint16(target))
	return nil
}

// releaseBytes returns the optional stack adjustment of RET imm16.
func releaseBytes(e *Emulator, c *Cycle) (uint16, error) {
	if c.Dst.Kind == LocNone {
		return 0, nil
	}
	n, err := c.Dst.Load(e)
	return uint16(n), err
}

func opRET(e *Emulator, c *Cycle) error {
	n, err := releaseBytes(e, c)
	if err != nil {
		return err
	}
	ip := e.Pop16()
	e.regs.GP[SP] += n
	c.Jump(ip)
	return nil
}

func opRETF(e *Emulator, c *Cycle) error {
	n, err := releaseBytes(e, c)
	if err != nil {
		return err
	}
	ip := e.Pop16()
	cs := e.Pop16()
	e.regs.GP[SP] += n
	c.Branch(cs, ip)
	return nil
}
