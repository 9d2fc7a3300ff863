// Package insts provides Intel 8086 instruction definitions and decoding.
//
// Every primary opcode byte maps to an OpcodeInfo entry naming the
// operation and its destination and source operand specifiers. Group
// opcodes (0x80-0x83, 0xD0-0xD3, 0xF6, 0xF7, 0xFE, 0xFF) select their
// entry from an 8-slot sub-table using the reg field of the ModR/M byte.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode([]byte{0x04, 0x03}) // ADD AL, 3
//	fmt.Printf("Op: %v, Dst: %v, Src: %v\n", inst.Op(), inst.Info.Dst, inst.Info.Src)
package insts

// Op is an 8086 operation mnemonic.
type Op uint8

// Operations.
const (
	OpUnknown Op = iota
	OpInvalid
	OpPrefix
	OpADD
	OpOR
	OpADC
	OpSBB
	OpAND
	OpSUB
	OpXOR
	OpCMP
	OpPUSH
	OpPOP
	OpDAA
	OpDAS
	OpAAA
	OpAAS
	OpINC
	OpDEC
	OpJO
	OpJNO
	OpJB
	OpJNB
	OpJZ
	OpJNZ
	OpJBE
	OpJA
	OpJS
	OpJNS
	OpJPE
	OpJPO
	OpJL
	OpJGE
	OpJLE
	OpJG
	OpTEST
	OpXCHG
	OpMOV
	OpLEA
	OpNOP
	OpCBW
	OpCWD
	OpCALL
	OpWAIT
	OpPUSHF
	OpPOPF
	OpSAHF
	OpLAHF
	OpMOVSB
	OpMOVSW
	OpCMPSB
	OpCMPSW
	OpSTOSB
	OpSTOSW
	OpLODSB
	OpLODSW
	OpSCASB
	OpSCASW
	OpRET
	OpRETF
	OpLES
	OpLDS
	OpINT
	OpINTO
	OpIRET
	OpROL
	OpROR
	OpRCL
	OpRCR
	OpSHL
	OpSHR
	OpSAR
	OpAAM
	OpAAD
	OpXLAT
	OpESC
	OpLOOPNZ
	OpLOOPZ
	OpLOOP
	OpJCXZ
	OpIN
	OpOUT
	OpJMP
	OpLOCK
	OpHLT
	OpCMC
	OpNOT
	OpNEG
	OpMUL
	OpIMUL
	OpDIV
	OpIDIV
	OpCLC
	OpSTC
	OpCLI
	OpSTI
	OpCLD
	OpSTD

	opCount
)

// NumOps is the number of distinct Op values.
const NumOps = int(opCount)

var opNames = [NumOps]string{
	OpUnknown: "(unknown)", OpInvalid: "(invalid)", OpPrefix: "(prefix)",
	OpADD: "ADD", OpOR: "OR", OpADC: "ADC", OpSBB: "SBB",
	OpAND: "AND", OpSUB: "SUB", OpXOR: "XOR", OpCMP: "CMP",
	OpPUSH: "PUSH", OpPOP: "POP",
	OpDAA: "DAA", OpDAS: "DAS", OpAAA: "AAA", OpAAS: "AAS",
	OpINC: "INC", OpDEC: "DEC",
	OpJO: "JO", OpJNO: "JNO", OpJB: "JB", OpJNB: "JNB",
	OpJZ: "JZ", OpJNZ: "JNZ", OpJBE: "JBE", OpJA: "JA",
	OpJS: "JS", OpJNS: "JNS", OpJPE: "JPE", OpJPO: "JPO",
	OpJL: "JL", OpJGE: "JGE", OpJLE: "JLE", OpJG: "JG",
	OpTEST: "TEST", OpXCHG: "XCHG", OpMOV: "MOV", OpLEA: "LEA", OpNOP: "NOP",
	OpCBW: "CBW", OpCWD: "CWD", OpCALL: "CALL", OpWAIT: "WAIT",
	OpPUSHF: "PUSHF", OpPOPF: "POPF", OpSAHF: "SAHF", OpLAHF: "LAHF",
	OpMOVSB: "MOVSB", OpMOVSW: "MOVSW", OpCMPSB: "CMPSB", OpCMPSW: "CMPSW",
	OpSTOSB: "STOSB", OpSTOSW: "STOSW", OpLODSB: "LODSB", OpLODSW: "LODSW",
	OpSCASB: "SCASB", OpSCASW: "SCASW",
	OpRET: "RET", OpRETF: "RETF", OpLES: "LES", OpLDS: "LDS",
	OpINT: "INT", OpINTO: "INTO", OpIRET: "IRET",
	OpROL: "ROL", OpROR: "ROR", OpRCL: "RCL", OpRCR: "RCR",
	OpSHL: "SHL", OpSHR: "SHR", OpSAR: "SAR",
	OpAAM: "AAM", OpAAD: "AAD", OpXLAT: "XLAT", OpESC: "ESC",
	OpLOOPNZ: "LOOPNZ", OpLOOPZ: "LOOPZ", OpLOOP: "LOOP", OpJCXZ: "JCXZ",
	OpIN: "IN", OpOUT: "OUT", OpJMP: "JMP",
	OpLOCK: "LOCK", OpHLT: "HLT", OpCMC: "CMC",
	OpNOT: "NOT", OpNEG: "NEG", OpMUL: "MUL", OpIMUL: "IMUL",
	OpDIV: "DIV", OpIDIV: "IDIV",
	OpCLC: "CLC", OpSTC: "STC", OpCLI: "CLI", OpSTI: "STI",
	OpCLD: "CLD", OpSTD: "STD",
}

func (o Op) String() string {
	if int(o) < NumOps {
		return opNames[o]
	}
	return "(bad op)"
}

// Width is the size of an operand.
type Width uint8

// Operand widths.
const (
	WidthNone Width = 0
	Byte      Width = 1
	Word      Width = 2
)

// Mask returns the value mask of the width.
func (w Width) Mask() uint32 {
	if w == Byte {
		return 0xFF
	}
	return 0xFFFF
}

// SignBit returns the most significant bit of the width.
func (w Width) SignBit() uint32 {
	if w == Byte {
		return 0x80
	}
	return 0x8000
}

// Segment identifies a segment register as used by an override prefix.
type Segment uint8

// Segment registers. SegNone means no override is active.
const (
	SegNone Segment = iota
	SegES
	SegCS
	SegSS
	SegDS
)

var segmentNames = [...]string{"", "ES", "CS", "SS", "DS"}

func (s Segment) String() string {
	if int(s) < len(segmentNames) {
		return segmentNames[s]
	}
	return "?"
}

// Rep is a string repeat prefix.
type Rep uint8

// Repeat prefixes.
const (
	RepNone Rep = iota
	// RepZ is 0xF3 (REP / REPE / REPZ).
	RepZ
	// RepNZ is 0xF2 (REPNE / REPNZ).
	RepNZ
)
