package emu

import "github.com/sarchlab/sim8086/insts"

// ALUClass selects how carry, auxiliary carry and overflow are derived.
type ALUClass uint8

// Operation classes.
const (
	ClassAdd ALUClass = iota
	ClassSub
	ClassLogic
)

var parityTable [256]bool

func init() {
	for i := range parityTable {
		bits := 0
		for v := i; v != 0; v >>= 1 {
			bits += v & 1
		}
		parityTable[i] = bits%2 == 0
	}
}

// Parity reports whether b has an even number of set bits.
func Parity(b byte) bool {
	return parityTable[b]
}

// ComputeFlags derives CF, PF, AF, ZF, SF and OF for an operation.
//
// result is the unmasked result of op1 and op2 computed in 32 bits, so a
// carry out of the operand width or a borrow that wrapped below zero
// both show up as result > width mask.
func ComputeFlags(class ALUClass, w insts.Width, op1, op2, result uint32) uint16 {
	mask := w.Mask()
	sign := w.SignBit()
	r := result & mask

	var f uint16
	if parityTable[byte(r)] {
		f |= FlagPF
	}
	if r == 0 {
		f |= FlagZF
	}
	if r&sign != 0 {
		f |= FlagSF
	}

	switch class {
	case ClassAdd:
		if result > mask {
			f |= FlagCF
		}
		if (op1^op2^result)&0x10 != 0 {
			f |= FlagAF
		}
		if (^(op1^op2))&(op1^result)&sign != 0 {
			f |= FlagOF
		}
	case ClassSub:
		if result > mask {
			f |= FlagCF
		}
		if (op1^op2^result)&0x10 != 0 {
			f |= FlagAF
		}
		if (op1^op2)&(op1^result)&sign != 0 {
			f |= FlagOF
		}
	}

	return f
}

// resultFlags returns PF, ZF and SF for a value.
func resultFlags(w insts.Width, v uint32) uint16 {
	return ComputeFlags(ClassLogic, w, 0, 0, v)
}

// Flag subsets written by each instruction family.
const (
	arithFlags  = StatusFlags
	incDecFlags = StatusFlags &^ FlagCF
	logicFlags  = FlagCF | FlagOF | FlagPF | FlagZF | FlagSF
	shiftFlags  = FlagCF | FlagPF | FlagZF | FlagSF
	mulFlags    = FlagCF | FlagOF
	adjustFlags = FlagAF | FlagCF
)
