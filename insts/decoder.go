package insts

import (
	"fmt"
	"strings"
)

// MaxLength is the longest instruction encoding not counting prefixes:
// opcode, ModR/M, disp16 and imm16.
const MaxLength = 6

// Instruction represents a decoded 8086 instruction header.
//
// Displacements and immediates are not stored here. The executor reads
// them from the code stream while resolving operands, which keeps the
// decoder independent of addressing.
type Instruction struct {
	// Opcode is the primary opcode byte following any prefixes.
	Opcode byte

	// ModRM is the raw byte following the opcode. It is always fetched,
	// HasModRM reports whether the opcode actually uses it.
	ModRM    byte
	Mod      uint8
	Reg      uint8
	RM       uint8
	HasModRM bool

	// D is the direction bit (opcode bit 1), W the width bit (bit 0).
	D uint8
	W uint8

	SegOverride Segment
	Rep         Rep
	PrefixLen   int

	// Info is the executed opcode map entry with any group resolved.
	Info OpcodeInfo
}

// Op returns the operation of the instruction.
func (i *Instruction) Op() Op {
	return i.Info.Op
}

// HeaderLen is the number of bytes taken by prefixes, the opcode and
// the ModR/M byte when present.
func (i *Instruction) HeaderLen() int {
	n := i.PrefixLen + 1
	if i.HasModRM {
		n++
	}
	return n
}

// DispLen is the number of displacement bytes implied by mod and rm.
func (i *Instruction) DispLen() int {
	if !i.HasModRM {
		return 0
	}
	switch i.Mod {
	case 0:
		if i.RM == 6 {
			return 2
		}
	case 1:
		return 1
	case 2:
		return 2
	}
	return 0
}

// Len returns the full encoded length of the instruction.
func (i *Instruction) Len() int {
	return i.HeaderLen() + i.DispLen() + i.Info.ImmediateLen()
}

// IsRegisterForm reports whether mod selects a register operand.
func (i *Instruction) IsRegisterForm() bool {
	return i.HasModRM && i.Mod == 3
}

// String renders the instruction in a compact assembler-like form
// using operand specifiers, e.g. "ES: ADD Eb, Gb".
func (i *Instruction) String() string {
	var sb strings.Builder

	switch i.Rep {
	case RepZ:
		sb.WriteString("REP ")
	case RepNZ:
		sb.WriteString("REPNE ")
	}
	if i.SegOverride != SegNone {
		sb.WriteString(i.SegOverride.String())
		sb.WriteString(": ")
	}

	if i.Info.Op == OpUnknown || i.Info.Op == OpInvalid {
		if i.Primary().IsGroup() {
			fmt.Fprintf(&sb, "%v %02X /%d", i.Info.Op, i.Opcode, i.Reg)
		} else {
			fmt.Fprintf(&sb, "%v %02X", i.Info.Op, i.Opcode)
		}
		return sb.String()
	}

	sb.WriteString(i.Info.Op.String())
	if i.Info.Dst != SpecNone {
		sb.WriteString(" ")
		sb.WriteString(i.Info.Dst.String())
	}
	if i.Info.Src != SpecNone {
		sb.WriteString(", ")
		sb.WriteString(i.Info.Src.String())
	}
	return sb.String()
}

// Primary returns the unresolved opcode map entry of the instruction.
func (i *Instruction) Primary() OpcodeInfo {
	return primary[i.Opcode]
}

// Decoder decodes 8086 machine code into instruction headers.
type Decoder struct{}

// NewDecoder creates a new 8086 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// maxPrefixRun bounds a run of prefixes to one code segment. A run that
// long leaves a prefix byte in the opcode slot, which decodes as unknown.
const maxPrefixRun = 0x10000 - MaxLength

// Decode decodes the instruction at the start of code. Bytes past the
// end of code read as zero.
func (d *Decoder) Decode(code []byte) *Instruction {
	return d.DecodeFunc(func(n int) byte {
		if n < len(code) {
			return code[n]
		}
		return 0
	})
}

// DecodeFunc decodes an instruction whose n-th byte is fetch(n). Bytes
// are pulled on demand, so any number of prefixes can precede the
// opcode.
//
// Segment override and repeat prefixes are consumed first; when several
// segment overrides appear the last one wins.
func (d *Decoder) DecodeFunc(fetch func(n int) byte) *Instruction {
	inst := &Instruction{}

	pos := 0
prefixes:
	for ; pos < maxPrefixRun; pos++ {
		switch fetch(pos) {
		case 0x26:
			inst.SegOverride = SegES
		case 0x2E:
			inst.SegOverride = SegCS
		case 0x36:
			inst.SegOverride = SegSS
		case 0x3E:
			inst.SegOverride = SegDS
		case 0xF3:
			inst.Rep = RepZ
		case 0xF2:
			inst.Rep = RepNZ
		default:
			break prefixes
		}
	}

	inst.PrefixLen = pos
	inst.Opcode = fetch(pos)
	inst.D = (inst.Opcode >> 1) & 1
	inst.W = inst.Opcode & 1

	inst.ModRM = fetch(pos + 1)
	inst.Mod = inst.ModRM >> 6
	inst.Reg = (inst.ModRM >> 3) & 7
	inst.RM = inst.ModRM & 7

	entry := primary[inst.Opcode]
	inst.HasModRM = entry.UsesModRM()
	inst.Info = Lookup(inst.Opcode, inst.Reg)

	return inst
}
