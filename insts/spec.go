package insts

// Spec is an operand specifier as it appears in the opcode map.
//
// The two-letter codes follow the Intel notation: the first letter is
// the addressing method, the second the operand size (b=byte, v/w=word).
type Spec uint8

// Operand specifiers.
const (
	SpecNone Spec = iota

	// Fixed registers.
	SpecAL
	SpecCL
	SpecDL
	SpecBL
	SpecAH
	SpecCH
	SpecDH
	SpecBH
	SpecAX
	SpecCX
	SpecDX
	SpecBX
	SpecSP
	SpecBP
	SpecSI
	SpecDI
	SpecES
	SpecCS
	SpecSS
	SpecDS

	// SpecEb is a byte register or memory operand selected by mod/rm.
	SpecEb
	// SpecEv is a word register or memory operand selected by mod/rm.
	SpecEv
	// SpecEw is SpecEv used with segment register moves.
	SpecEw
	// SpecGb is a byte register selected by the reg field.
	SpecGb
	// SpecGv is a word register selected by the reg field.
	SpecGv
	// SpecSw is a segment register selected by the reg field.
	SpecSw

	// SpecIb is an immediate byte.
	SpecIb
	// SpecIv is an immediate word.
	SpecIv
	// SpecIw is an immediate word used as a count (RET imm16).
	SpecIw
	// SpecIbs is an immediate byte sign-extended to a word.
	SpecIbs

	// SpecJb is a signed byte displacement relative to the next instruction.
	SpecJb
	// SpecJv is a word displacement relative to the next instruction.
	SpecJv

	// SpecAp is an immediate far pointer: offset word then segment word.
	SpecAp
	// SpecMp is a far pointer in memory (LES/LDS).
	SpecMp
	// SpecEp is a far pointer in memory used by indirect CALL/JMP.
	SpecEp
	// SpecM is a memory operand whose address, not value, is used (LEA).
	SpecM

	// SpecOb is a byte at a direct offset in the code stream.
	SpecOb
	// SpecOv is a word at a direct offset in the code stream.
	SpecOv

	// SpecOne is the constant 1 (shift by one).
	SpecOne
	// SpecThree is the constant 3 (INT 3).
	SpecThree

	specCount
)

var specNames = [specCount]string{
	SpecNone: "",
	SpecAL:   "AL", SpecCL: "CL", SpecDL: "DL", SpecBL: "BL",
	SpecAH: "AH", SpecCH: "CH", SpecDH: "DH", SpecBH: "BH",
	SpecAX: "AX", SpecCX: "CX", SpecDX: "DX", SpecBX: "BX",
	SpecSP: "SP", SpecBP: "BP", SpecSI: "SI", SpecDI: "DI",
	SpecES: "ES", SpecCS: "CS", SpecSS: "SS", SpecDS: "DS",
	SpecEb: "Eb", SpecEv: "Ev", SpecEw: "Ew", SpecGb: "Gb", SpecGv: "Gv", SpecSw: "Sw",
	SpecIb: "Ib", SpecIv: "Iv", SpecIw: "Iw", SpecIbs: "Ib",
	SpecJb: "Jb", SpecJv: "Jv",
	SpecAp: "Ap", SpecMp: "Mp", SpecEp: "Ep", SpecM: "M",
	SpecOb: "Ob", SpecOv: "Ov",
	SpecOne: "1", SpecThree: "3",
}

func (s Spec) String() string {
	if s < specCount {
		return specNames[s]
	}
	return "?"
}

// UsesModRM reports whether the specifier is encoded through a ModR/M byte.
func (s Spec) UsesModRM() bool {
	switch s {
	case SpecEb, SpecEv, SpecEw, SpecGb, SpecGv, SpecSw, SpecMp, SpecEp, SpecM:
		return true
	}
	return false
}

// Width returns the operand width the specifier denotes.
func (s Spec) Width() Width {
	switch s {
	case SpecAL, SpecCL, SpecDL, SpecBL, SpecAH, SpecCH, SpecDH, SpecBH,
		SpecEb, SpecGb, SpecIb, SpecJb, SpecOb, SpecOne, SpecThree:
		return Byte
	case SpecNone:
		return WidthNone
	}
	return Word
}

// ImmediateLen returns how many instruction bytes the specifier consumes
// after the ModR/M byte and displacement.
func (s Spec) ImmediateLen() int {
	switch s {
	case SpecIb, SpecIbs, SpecJb:
		return 1
	case SpecIv, SpecIw, SpecJv, SpecOb, SpecOv:
		return 2
	case SpecAp:
		return 4
	}
	return 0
}
