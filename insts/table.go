package insts

// OpcodeInfo describes one entry of the opcode map.
type OpcodeInfo struct {
	Op  Op
	Dst Spec
	Src Spec

	// Group is set for opcodes whose operation is chosen by ModR/M.reg.
	Group *[8]OpcodeInfo
}

// IsGroup reports whether the entry defers to a group sub-table.
func (i OpcodeInfo) IsGroup() bool {
	return i.Group != nil
}

// UsesModRM reports whether an instruction with this entry carries a
// ModR/M byte.
func (i OpcodeInfo) UsesModRM() bool {
	return i.Group != nil || i.Dst.UsesModRM() || i.Src.UsesModRM()
}

// ImmediateLen returns the number of immediate bytes the operands consume.
func (i OpcodeInfo) ImmediateLen() int {
	return i.Dst.ImmediateLen() + i.Src.ImmediateLen()
}

func op(o Op, dst, src Spec) OpcodeInfo {
	return OpcodeInfo{Op: o, Dst: dst, Src: src}
}

func grp(g *[8]OpcodeInfo) OpcodeInfo {
	return OpcodeInfo{Group: g}
}

var (
	unknown = OpcodeInfo{Op: OpUnknown}
	invalid = OpcodeInfo{Op: OpInvalid}
	prefix  = OpcodeInfo{Op: OpPrefix}
)

func grp1(dst, src Spec) [8]OpcodeInfo {
	return [8]OpcodeInfo{
		op(OpADD, dst, src), op(OpOR, dst, src), op(OpADC, dst, src), op(OpSBB, dst, src),
		op(OpAND, dst, src), op(OpSUB, dst, src), op(OpXOR, dst, src), op(OpCMP, dst, src),
	}
}

func grp2(dst, src Spec) [8]OpcodeInfo {
	return [8]OpcodeInfo{
		op(OpROL, dst, src), op(OpROR, dst, src), op(OpRCL, dst, src), op(OpRCR, dst, src),
		op(OpSHL, dst, src), op(OpSHR, dst, src), unknown, op(OpSAR, dst, src),
	}
}

func grp3(dst, imm Spec) [8]OpcodeInfo {
	return [8]OpcodeInfo{
		op(OpTEST, dst, imm), unknown, op(OpNOT, dst, SpecNone), op(OpNEG, dst, SpecNone),
		op(OpMUL, dst, SpecNone), op(OpIMUL, dst, SpecNone), op(OpDIV, dst, SpecNone), op(OpIDIV, dst, SpecNone),
	}
}

var (
	grp1EbIb  = grp1(SpecEb, SpecIb)
	grp1EvIv  = grp1(SpecEv, SpecIv)
	grp1EvIbs = grp1(SpecEv, SpecIbs)
	grp2Eb1   = grp2(SpecEb, SpecOne)
	grp2Ev1   = grp2(SpecEv, SpecOne)
	grp2EbCL  = grp2(SpecEb, SpecCL)
	grp2EvCL  = grp2(SpecEv, SpecCL)
	grp3Eb    = grp3(SpecEb, SpecIb)
	grp3Ev    = grp3(SpecEv, SpecIv)

	grp4 = [8]OpcodeInfo{
		op(OpINC, SpecEb, SpecNone), op(OpDEC, SpecEb, SpecNone),
		unknown, unknown, unknown, unknown, unknown, unknown,
	}
	grp5 = [8]OpcodeInfo{
		op(OpINC, SpecEv, SpecNone), op(OpDEC, SpecEv, SpecNone),
		op(OpCALL, SpecEv, SpecNone), op(OpCALL, SpecEp, SpecNone),
		op(OpJMP, SpecEv, SpecNone), op(OpJMP, SpecEp, SpecNone),
		op(OpPUSH, SpecEv, SpecNone), unknown,
	}
)

// alu expands the six-opcode block shared by ADD, OR, ADC, SBB, AND,
// SUB, XOR and CMP.
func alu(o Op) [6]OpcodeInfo {
	return [6]OpcodeInfo{
		op(o, SpecEb, SpecGb), op(o, SpecEv, SpecGv),
		op(o, SpecGb, SpecEb), op(o, SpecGv, SpecEv),
		op(o, SpecAL, SpecIb), op(o, SpecAX, SpecIv),
	}
}

var wordRegs = [8]Spec{SpecAX, SpecCX, SpecDX, SpecBX, SpecSP, SpecBP, SpecSI, SpecDI}
var byteRegs = [8]Spec{SpecAL, SpecCL, SpecDL, SpecBL, SpecAH, SpecCH, SpecDH, SpecBH}

var primary [256]OpcodeInfo

func init() {
	for i, o := range []Op{OpADD, OpOR, OpADC, OpSBB, OpAND, OpSUB, OpXOR, OpCMP} {
		base := i * 8
		block := alu(o)
		copy(primary[base:base+6], block[:])
	}

	primary[0x06] = op(OpPUSH, SpecES, SpecNone)
	primary[0x07] = op(OpPOP, SpecES, SpecNone)
	primary[0x0E] = op(OpPUSH, SpecCS, SpecNone)
	primary[0x0F] = invalid
	primary[0x16] = op(OpPUSH, SpecSS, SpecNone)
	primary[0x17] = op(OpPOP, SpecSS, SpecNone)
	primary[0x1E] = op(OpPUSH, SpecDS, SpecNone)
	primary[0x1F] = op(OpPOP, SpecDS, SpecNone)
	primary[0x26] = prefix
	primary[0x27] = op(OpDAA, SpecNone, SpecNone)
	primary[0x2E] = prefix
	primary[0x2F] = op(OpDAS, SpecNone, SpecNone)
	primary[0x36] = prefix
	primary[0x37] = op(OpAAA, SpecNone, SpecNone)
	primary[0x3E] = prefix
	primary[0x3F] = op(OpAAS, SpecNone, SpecNone)

	for r := 0; r < 8; r++ {
		primary[0x40+r] = op(OpINC, wordRegs[r], SpecNone)
		primary[0x48+r] = op(OpDEC, wordRegs[r], SpecNone)
		primary[0x50+r] = op(OpPUSH, wordRegs[r], SpecNone)
		primary[0x58+r] = op(OpPOP, wordRegs[r], SpecNone)
		primary[0xB0+r] = op(OpMOV, byteRegs[r], SpecIb)
		primary[0xB8+r] = op(OpMOV, wordRegs[r], SpecIv)
	}

	for i := 0x60; i <= 0x6F; i++ {
		primary[i] = invalid
	}

	jcc := [16]Op{
		OpJO, OpJNO, OpJB, OpJNB, OpJZ, OpJNZ, OpJBE, OpJA,
		OpJS, OpJNS, OpJPE, OpJPO, OpJL, OpJGE, OpJLE, OpJG,
	}
	for i, o := range jcc {
		primary[0x70+i] = op(o, SpecJb, SpecNone)
	}

	primary[0x80] = grp(&grp1EbIb)
	primary[0x81] = grp(&grp1EvIv)
	primary[0x82] = grp(&grp1EbIb)
	primary[0x83] = grp(&grp1EvIbs)
	primary[0x84] = op(OpTEST, SpecEb, SpecGb)
	primary[0x85] = op(OpTEST, SpecEv, SpecGv)
	primary[0x86] = op(OpXCHG, SpecEb, SpecGb)
	primary[0x87] = op(OpXCHG, SpecEv, SpecGv)
	primary[0x88] = op(OpMOV, SpecEb, SpecGb)
	primary[0x89] = op(OpMOV, SpecEv, SpecGv)
	primary[0x8A] = op(OpMOV, SpecGb, SpecEb)
	primary[0x8B] = op(OpMOV, SpecGv, SpecEv)
	primary[0x8C] = op(OpMOV, SpecEw, SpecSw)
	primary[0x8D] = op(OpLEA, SpecGv, SpecM)
	primary[0x8E] = op(OpMOV, SpecSw, SpecEw)
	primary[0x8F] = op(OpPOP, SpecEv, SpecNone)

	primary[0x90] = op(OpNOP, SpecNone, SpecNone)
	for r := 1; r < 8; r++ {
		primary[0x90+r] = op(OpXCHG, SpecAX, wordRegs[r])
	}
	primary[0x98] = op(OpCBW, SpecNone, SpecNone)
	primary[0x99] = op(OpCWD, SpecNone, SpecNone)
	primary[0x9A] = op(OpCALL, SpecAp, SpecNone)
	primary[0x9B] = op(OpWAIT, SpecNone, SpecNone)
	primary[0x9C] = op(OpPUSHF, SpecNone, SpecNone)
	primary[0x9D] = op(OpPOPF, SpecNone, SpecNone)
	primary[0x9E] = op(OpSAHF, SpecNone, SpecNone)
	primary[0x9F] = op(OpLAHF, SpecNone, SpecNone)

	primary[0xA0] = op(OpMOV, SpecAL, SpecOb)
	primary[0xA1] = op(OpMOV, SpecAX, SpecOv)
	primary[0xA2] = op(OpMOV, SpecOb, SpecAL)
	primary[0xA3] = op(OpMOV, SpecOv, SpecAX)
	primary[0xA4] = op(OpMOVSB, SpecNone, SpecNone)
	primary[0xA5] = op(OpMOVSW, SpecNone, SpecNone)
	primary[0xA6] = op(OpCMPSB, SpecNone, SpecNone)
	primary[0xA7] = op(OpCMPSW, SpecNone, SpecNone)
	primary[0xA8] = op(OpTEST, SpecAL, SpecIb)
	primary[0xA9] = op(OpTEST, SpecAX, SpecIv)
	primary[0xAA] = op(OpSTOSB, SpecNone, SpecNone)
	primary[0xAB] = op(OpSTOSW, SpecNone, SpecNone)
	primary[0xAC] = op(OpLODSB, SpecNone, SpecNone)
	primary[0xAD] = op(OpLODSW, SpecNone, SpecNone)
	primary[0xAE] = op(OpSCASB, SpecNone, SpecNone)
	primary[0xAF] = op(OpSCASW, SpecNone, SpecNone)

	primary[0xC0] = invalid
	primary[0xC1] = invalid
	primary[0xC2] = op(OpRET, SpecIw, SpecNone)
	primary[0xC3] = op(OpRET, SpecNone, SpecNone)
	primary[0xC4] = op(OpLES, SpecGv, SpecMp)
	primary[0xC5] = op(OpLDS, SpecGv, SpecMp)
	primary[0xC6] = op(OpMOV, SpecEb, SpecIb)
	primary[0xC7] = op(OpMOV, SpecEv, SpecIv)
	primary[0xC8] = invalid
	primary[0xC9] = invalid
	primary[0xCA] = op(OpRETF, SpecIw, SpecNone)
	primary[0xCB] = op(OpRETF, SpecNone, SpecNone)
	primary[0xCC] = op(OpINT, SpecThree, SpecNone)
	primary[0xCD] = op(OpINT, SpecIb, SpecNone)
	primary[0xCE] = op(OpINTO, SpecNone, SpecNone)
	primary[0xCF] = op(OpIRET, SpecNone, SpecNone)

	primary[0xD0] = grp(&grp2Eb1)
	primary[0xD1] = grp(&grp2Ev1)
	primary[0xD2] = grp(&grp2EbCL)
	primary[0xD3] = grp(&grp2EvCL)
	primary[0xD4] = op(OpAAM, SpecIb, SpecNone)
	primary[0xD5] = op(OpAAD, SpecIb, SpecNone)
	primary[0xD6] = invalid
	primary[0xD7] = op(OpXLAT, SpecNone, SpecNone)
	for i := 0xD8; i <= 0xDF; i++ {
		primary[i] = op(OpESC, SpecNone, SpecNone)
	}

	primary[0xE0] = op(OpLOOPNZ, SpecJb, SpecNone)
	primary[0xE1] = op(OpLOOPZ, SpecJb, SpecNone)
	primary[0xE2] = op(OpLOOP, SpecJb, SpecNone)
	primary[0xE3] = op(OpJCXZ, SpecJb, SpecNone)
	primary[0xE4] = op(OpIN, SpecAL, SpecIb)
	primary[0xE5] = op(OpIN, SpecAX, SpecIb)
	primary[0xE6] = op(OpOUT, SpecIb, SpecAL)
	primary[0xE7] = op(OpOUT, SpecIb, SpecAX)
	primary[0xE8] = op(OpCALL, SpecJv, SpecNone)
	primary[0xE9] = op(OpJMP, SpecJv, SpecNone)
	primary[0xEA] = op(OpJMP, SpecAp, SpecNone)
	primary[0xEB] = op(OpJMP, SpecJb, SpecNone)
	primary[0xEC] = op(OpIN, SpecAL, SpecDX)
	primary[0xED] = op(OpIN, SpecAX, SpecDX)
	primary[0xEE] = op(OpOUT, SpecDX, SpecAL)
	primary[0xEF] = op(OpOUT, SpecDX, SpecAX)

	primary[0xF0] = op(OpLOCK, SpecNone, SpecNone)
	primary[0xF1] = invalid
	primary[0xF2] = prefix
	primary[0xF3] = prefix
	primary[0xF4] = op(OpHLT, SpecNone, SpecNone)
	primary[0xF5] = op(OpCMC, SpecNone, SpecNone)
	primary[0xF6] = grp(&grp3Eb)
	primary[0xF7] = grp(&grp3Ev)
	primary[0xF8] = op(OpCLC, SpecNone, SpecNone)
	primary[0xF9] = op(OpSTC, SpecNone, SpecNone)
	primary[0xFA] = op(OpCLI, SpecNone, SpecNone)
	primary[0xFB] = op(OpSTI, SpecNone, SpecNone)
	primary[0xFC] = op(OpCLD, SpecNone, SpecNone)
	primary[0xFD] = op(OpSTD, SpecNone, SpecNone)
	primary[0xFE] = grp(&grp4)
	primary[0xFF] = grp(&grp5)
}

// Primary returns the opcode map entry for a primary opcode byte. Group
// entries are returned unresolved.
func Primary(opcode byte) OpcodeInfo {
	return primary[opcode]
}

// Lookup returns the entry that executes for opcode, selecting the group
// slot with reg when the opcode is a group opcode.
func Lookup(opcode, reg byte) OpcodeInfo {
	info := primary[opcode]
	if info.Group != nil {
		return info.Group[reg&7]
	}
	return info
}
