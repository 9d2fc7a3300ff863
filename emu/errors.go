package emu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/sim8086/insts"
)

// Execution errors. The cycle driver wraps all of them in a *Fault.
var (
	// ErrFeatureNotImplemented is returned for recognized opcodes that the
	// emulator does not execute.
	ErrFeatureNotImplemented = errors.New("feature not implemented")

	// ErrInvalidAddressMode is returned when an operand is used in a way
	// its specifier forbids, such as storing to an immediate.
	ErrInvalidAddressMode = errors.New("invalid address mode")

	// ErrValueOverflow is returned when a value wider than its destination
	// is stored.
	ErrValueOverflow = errors.New("value overflow")

	// ErrBinaryTooLarge is returned when an image does not fit in memory.
	ErrBinaryTooLarge = errors.New("binary too large for memory")

	// ErrUnknownOpcode is returned for encodings with no table entry.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrInvalidOpcode is returned for reserved opcode bytes.
	ErrInvalidOpcode = errors.New("invalid opcode")

	// ErrMaxInstructions is returned once the instruction limit is reached.
	ErrMaxInstructions = errors.New("max instructions reached")
)

// Fault describes a failed cycle. IP still points at the faulting
// instruction.
type Fault struct {
	CS   uint16
	IP   uint16
	Inst *insts.Instruction
	Regs RegFile
	Err  error
}

func (f *Fault) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04X:%04X", f.CS, f.IP)
	if f.Inst != nil {
		fmt.Fprintf(&sb, " opcode %02X (%v)", f.Inst.Opcode, f.Inst)
	}
	fmt.Fprintf(&sb, ": %v", f.Err)
	return sb.String()
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Mnemonic returns the operation name of the faulting instruction.
func (f *Fault) Mnemonic() string {
	if f.Inst == nil {
		return ""
	}
	return f.Inst.Op().String()
}
