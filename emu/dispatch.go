package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

type handler func(e *Emulator, c *Cycle) error

// DispatchKind classifies a dispatch table entry.
type DispatchKind uint8

// Dispatch kinds. DispatchMissing only appears if the tables are
// incomplete.
const (
	DispatchMissing DispatchKind = iota
	DispatchHandler
	DispatchNotImplemented
	DispatchInvalid
	DispatchUnknown
)

func (k DispatchKind) String() string {
	switch k {
	case DispatchHandler:
		return "handler"
	case DispatchNotImplemented:
		return "not implemented"
	case DispatchInvalid:
		return "invalid"
	case DispatchUnknown:
		return "unknown"
	}
	return "missing"
}

type entry struct {
	kind  DispatchKind
	op    insts.Op
	fn    handler
	group *[8]entry
}

var (
	opHandlers [insts.NumOps]handler

	// dispatch is indexed by the primary opcode; group opcodes hold a
	// second table indexed by ModR/M.reg.
	dispatch [256]entry
)

var notImplemented = map[insts.Op]bool{
	insts.OpAAM:  true,
	insts.OpAAD:  true,
	insts.OpWAIT: true,
	insts.OpESC:  true,
	insts.OpLOCK: true,
}

func init() {
	initOpHandlers()
	initDispatch()
}

func initOpHandlers() {
	h := &opHandlers

	h[insts.OpADD] = opADD
	h[insts.OpOR] = opOR
	h[insts.OpADC] = opADC
	h[insts.OpSBB] = opSBB
	h[insts.OpAND] = opAND
	h[insts.OpSUB] = opSUB
	h[insts.OpXOR] = opXOR
	h[insts.OpCMP] = opCMP
	h[insts.OpTEST] = opTEST
	h[insts.OpINC] = opINC
	h[insts.OpDEC] = opDEC
	h[insts.OpNEG] = opNEG
	h[insts.OpNOT] = opNOT
	h[insts.OpMUL] = opMUL
	h[insts.OpIMUL] = opIMUL
	h[insts.OpDIV] = opDIV
	h[insts.OpIDIV] = opIDIV
	h[insts.OpDAA] = opDAA
	h[insts.OpDAS] = opDAS
	h[insts.OpAAA] = opAAA
	h[insts.OpAAS] = opAAS
	h[insts.OpCBW] = opCBW
	h[insts.OpCWD] = opCWD

	for _, op := range []insts.Op{
		insts.OpROL, insts.OpROR, insts.OpRCL, insts.OpRCR,
		insts.OpSHL, insts.OpSHR, insts.OpSAR,
	} {
		h[op] = opShift
	}

	for op := insts.OpJO; op <= insts.OpJG; op++ {
		h[op] = opJcc
	}
	h[insts.OpLOOP] = opLOOP
	h[insts.OpLOOPZ] = opLOOP
	h[insts.OpLOOPNZ] = opLOOP
	h[insts.OpJCXZ] = opJCXZ
	h[insts.OpJMP] = opJMP
	h[insts.OpCALL] = opCALL
	h[insts.OpRET] = opRET
	h[insts.OpRETF] = opRETF
	h[insts.OpINT] = opINT
	h[insts.OpINTO] = opINTO
	h[insts.OpIRET] = opIRET

	h[insts.OpMOV] = opMOV
	h[insts.OpXCHG] = opXCHG
	h[insts.OpLEA] = opLEA
	h[insts.OpLES] = opLES
	h[insts.OpLDS] = opLDS
	h[insts.OpPUSH] = opPUSH
	h[insts.OpPOP] = opPOP
	h[insts.OpPUSHF] = opPUSHF
	h[insts.OpPOPF] = opPOPF
	h[insts.OpSAHF] = opSAHF
	h[insts.OpLAHF] = opLAHF
	h[insts.OpXLAT] = opXLAT
	h[insts.OpIN] = opIN
	h[insts.OpOUT] = opOUT
	h[insts.OpNOP] = opNOP
	h[insts.OpHLT] = opHLT

	h[insts.OpMOVSB] = opMOVS
	h[insts.OpMOVSW] = opMOVS
	h[insts.OpCMPSB] = opCMPS
	h[insts.OpCMPSW] = opCMPS
	h[insts.OpSTOSB] = opSTOS
	h[insts.OpSTOSW] = opSTOS
	h[insts.OpLODSB] = opLODS
	h[insts.OpLODSW] = opLODS
	h[insts.OpSCASB] = opSCAS
	h[insts.OpSCASW] = opSCAS

	h[insts.OpCLC] = flagOp(FlagCF, false)
	h[insts.OpSTC] = flagOp(FlagCF, true)
	h[insts.OpCMC] = opCMC
	h[insts.OpCLI] = flagOp(FlagIF, false)
	h[insts.OpSTI] = flagOp(FlagIF, true)
	h[insts.OpCLD] = flagOp(FlagDF, false)
	h[insts.OpSTD] = flagOp(FlagDF, true)
}

func makeEntry(info insts.OpcodeInfo) entry {
	op := info.Op
	switch {
	case op == insts.OpInvalid:
		return entry{kind: DispatchInvalid, op: op}
	case op == insts.OpUnknown, op == insts.OpPrefix:
		return entry{kind: DispatchUnknown, op: op}
	case notImplemented[op]:
		return entry{kind: DispatchNotImplemented, op: op}
	case opHandlers[op] != nil:
		return entry{kind: DispatchHandler, op: op, fn: opHandlers[op]}
	}
	return entry{kind: DispatchMissing, op: op}
}

func initDispatch() {
	for b := 0; b < 256; b++ {
		info := insts.Primary(byte(b))
		if !info.IsGroup() {
			dispatch[b] = makeEntry(info)
			continue
		}

		group := new([8]entry)
		for reg := range group {
			group[reg] = makeEntry(info.Group[reg])
		}
		dispatch[b] = entry{kind: DispatchHandler, group: group}
	}
}

// lookupEntry returns the executed entry for an opcode and reg field.
func lookupEntry(opcode, reg uint8) entry {
	ent := dispatch[opcode]
	if ent.group != nil {
		return ent.group[reg&7]
	}
	return ent
}

// Dispatch reports how an opcode (with reg selecting a group slot) is
// executed.
func Dispatch(opcode, reg uint8) DispatchKind {
	return lookupEntry(opcode, reg).kind
}

// check turns a marker entry into its error.
func (ent entry) check(inst *insts.Instruction) error {
	switch ent.kind {
	case DispatchHandler:
		return nil
	case DispatchNotImplemented:
		return fmt.Errorf("%v: %w", ent.op, ErrFeatureNotImplemented)
	case DispatchInvalid:
		return fmt.Errorf("opcode %02X: %w", inst.Opcode, ErrInvalidOpcode)
	case DispatchUnknown:
		return fmt.Errorf("opcode %02X /%d: %w", inst.Opcode, inst.Reg, ErrUnknownOpcode)
	}
	return fmt.Errorf("no handler for %v: %w", ent.op, ErrFeatureNotImplemented)
}
