// Package emu provides functional Intel 8086 emulation.
package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// Reg identifies a register. The word and byte registers are numbered
// in 8086 encoding order so that a reg or rm field maps directly.
type Reg uint8

// Registers.
const (
	AX Reg = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI

	AL
	CL
	DL
	BL
	AH
	CH
	DH
	BH

	ES
	CS
	SS
	DS

	IP
	FLAGS

	NumRegs
)

var regNames = [NumRegs]string{
	"AX", "CX", "DX", "BX", "SP", "BP", "SI", "DI",
	"AL", "CL", "DL", "BL", "AH", "CH", "DH", "BH",
	"ES", "CS", "SS", "DS",
	"IP", "FLAGS",
}

func (r Reg) String() string {
	if r < NumRegs {
		return regNames[r]
	}
	return fmt.Sprintf("Reg(%d)", uint8(r))
}

// ParseReg looks up a register by its upper-case name.
func ParseReg(name string) (Reg, bool) {
	for r, n := range regNames {
		if n == name {
			return Reg(r), true
		}
	}
	return 0, false
}

// Width returns the width of the register.
func (r Reg) Width() insts.Width {
	if r >= AL && r <= BH {
		return insts.Byte
	}
	return insts.Word
}

// ByteReg returns the byte register encoded by a 3-bit field.
func ByteReg(field uint8) Reg {
	return AL + Reg(field&7)
}

// WordReg returns the word register encoded by a 3-bit field.
func WordReg(field uint8) Reg {
	return Reg(field & 7)
}

// SegmentReg maps a segment override to its register.
func SegmentReg(s insts.Segment) Reg {
	switch s {
	case insts.SegES:
		return ES
	case insts.SegCS:
		return CS
	case insts.SegSS:
		return SS
	}
	return DS
}

// Flag bits of the flags word.
const (
	FlagCF uint16 = 1 << 0
	FlagPF uint16 = 1 << 2
	FlagAF uint16 = 1 << 4
	FlagZF uint16 = 1 << 6
	FlagSF uint16 = 1 << 7
	FlagTF uint16 = 1 << 8
	FlagIF uint16 = 1 << 9
	FlagDF uint16 = 1 << 10
	FlagOF uint16 = 1 << 11

	// StatusFlags are the six flags computed by arithmetic.
	StatusFlags = FlagCF | FlagPF | FlagAF | FlagZF | FlagSF | FlagOF

	// DefinedFlags are all nine flags with a meaning on the 8086.
	DefinedFlags = StatusFlags | FlagTF | FlagIF | FlagDF

	// ReservedFlags read back as ones when the flags word is pushed.
	ReservedFlags uint16 = 0xF002
)

// RegFile represents the 8086 register file.
type RegFile struct {
	// GP holds AX, CX, DX, BX, SP, BP, SI and DI in encoding order.
	GP [8]uint16

	ES uint16
	CS uint16
	SS uint16
	DS uint16

	IP uint16

	// Flags holds the defined flag bits.
	Flags uint16
}

// Get reads a register, zero-extended.
func (r *RegFile) Get(reg Reg) uint32 {
	switch {
	case reg <= DI:
		return uint32(r.GP[reg])
	case reg <= BL:
		return uint32(r.GP[reg-AL] & 0xFF)
	case reg <= BH:
		return uint32(r.GP[reg-AH] >> 8)
	}

	switch reg {
	case ES:
		return uint32(r.ES)
	case CS:
		return uint32(r.CS)
	case SS:
		return uint32(r.SS)
	case DS:
		return uint32(r.DS)
	case IP:
		return uint32(r.IP)
	case FLAGS:
		return uint32(r.Flags)
	}
	return 0
}

// Set writes a register. A byte register only changes its half of the
// parent word. Values wider than the register are rejected.
func (r *RegFile) Set(reg Reg, v uint32) error {
	if reg >= NumRegs {
		return fmt.Errorf("set %v: %w", reg, ErrInvalidAddressMode)
	}
	if v > reg.Width().Mask() {
		return fmt.Errorf("set %v=0x%X: %w", reg, v, ErrValueOverflow)
	}

	switch {
	case reg <= DI:
		r.GP[reg] = uint16(v)
		return nil
	case reg <= BL:
		p := &r.GP[reg-AL]
		*p = *p&0xFF00 | uint16(v)
		return nil
	case reg <= BH:
		p := &r.GP[reg-AH]
		*p = *p&0x00FF | uint16(v)<<8
		return nil
	}

	switch reg {
	case ES:
		r.ES = uint16(v)
	case CS:
		r.CS = uint16(v)
	case SS:
		r.SS = uint16(v)
	case DS:
		r.DS = uint16(v)
	case IP:
		r.IP = uint16(v)
	case FLAGS:
		r.Flags = uint16(v) & DefinedFlags
	}
	return nil
}

// Word reads a word register.
func (r *RegFile) Word(reg Reg) uint16 {
	return uint16(r.Get(reg))
}

// SetWord writes a word register. Byte registers are not accepted.
func (r *RegFile) SetWord(reg Reg, v uint16) {
	if reg.Width() == insts.Word {
		_ = r.Set(reg, uint32(v))
	}
}

// Flag reports whether a flag bit is set.
func (r *RegFile) Flag(f uint16) bool {
	return r.Flags&f != 0
}

// SetFlag sets or clears a flag bit.
func (r *RegFile) SetFlag(f uint16, on bool) {
	if on {
		r.Flags |= f
	} else {
		r.Flags &^= f
	}
}

// UpdateFlags replaces the flags selected by mask with those in values.
func (r *RegFile) UpdateFlags(mask, values uint16) {
	r.Flags = r.Flags&^mask | values&mask
}

func (r *RegFile) String() string {
	return fmt.Sprintf(
		"AX=%04X BX=%04X CX=%04X DX=%04X SP=%04X BP=%04X SI=%04X DI=%04X "+
			"ES=%04X CS=%04X SS=%04X DS=%04X IP=%04X FLAGS=%04X",
		r.GP[AX], r.GP[BX], r.GP[CX], r.GP[DX], r.GP[SP], r.GP[BP], r.GP[SI], r.GP[DI],
		r.ES, r.CS, r.SS, r.DS, r.IP, r.Flags)
}
