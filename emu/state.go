package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// State is a copy of everything needed to resume execution.
type State struct {
	Memory []byte
	Ports  []byte
	Regs   RegFile

	// LastInst is the most recently decoded instruction, nil before the
	// first step. Its opcode table entry is re-derived on restore.
	LastInst *insts.Instruction

	// SegOverride is the override prefix of LastInst.
	SegOverride insts.Segment

	InstructionCount uint64
	Exited           bool
	ExitCode         int64
}

// Snapshot copies the emulator state.
func (e *Emulator) Snapshot() *State {
	s := &State{
		Memory:           append([]byte(nil), e.memory.data...),
		Ports:            append([]byte(nil), e.memory.ports...),
		Regs:             *e.regs,
		InstructionCount: e.instructionCount,
		Exited:           e.exited,
		ExitCode:         e.exitCode,
	}
	if e.lastInst != nil {
		inst := *e.lastInst
		s.LastInst = &inst
		s.SegOverride = inst.SegOverride
	}
	return s
}

// Restore replaces the emulator state with s. The dispatch entry for the
// last instruction is looked up again from its opcode and reg field.
func (e *Emulator) Restore(s *State) error {
	if len(s.Memory) != MemorySize {
		return fmt.Errorf("restore: memory is %d bytes, want %d", len(s.Memory), MemorySize)
	}
	if len(s.Ports) != PortSpaceSize {
		return fmt.Errorf("restore: port space is %d bytes, want %d", len(s.Ports), PortSpaceSize)
	}

	copy(e.memory.data, s.Memory)
	copy(e.memory.ports, s.Ports)
	*e.regs = s.Regs
	e.instructionCount = s.InstructionCount
	e.exited = s.Exited
	e.exitCode = s.ExitCode

	e.lastInst = nil
	e.lastEntry = entry{}
	if s.LastInst != nil {
		inst := *s.LastInst
		inst.SegOverride = s.SegOverride
		inst.Info = insts.Lookup(inst.Opcode, inst.Reg)
		e.lastInst = &inst
		e.lastEntry = lookupEntry(inst.Opcode, inst.Reg)
	}

	return nil
}

// LastDispatch reports the dispatch kind of the last decoded instruction.
func (e *Emulator) LastDispatch() DispatchKind {
	return e.lastEntry.kind
}
