// Package emu provides functional Intel 8086 emulation.
package emu

import (
	"context"
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Halted is true if the instruction was HLT.
	Halted bool

	// Exited is true if an interrupt service terminated the program.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is a *Fault if the cycle failed.
	Err error
}

// Emulator executes 8086 instructions functionally.
type Emulator struct {
	regs       *RegFile
	memory     *Memory
	decoder    *insts.Decoder
	interrupts InterruptHandler
	observers  []Observer

	lastInst  *insts.Instruction
	lastEntry entry

	exited   bool
	exitCode int64

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithInterruptHandler sets the software interrupt service hook.
func WithInterruptHandler(h InterruptHandler) EmulatorOption {
	return func(e *Emulator) {
		e.interrupts = h
	}
}

// WithObserver adds a cycle observer.
func WithObserver(o Observer) EmulatorOption {
	return func(e *Emulator) {
		e.observers = append(e.observers, o)
	}
}

// WithMemory uses m instead of fresh memory.
func WithMemory(m *Memory) EmulatorOption {
	return func(e *Emulator) {
		e.memory = m
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a new 8086 emulator with all registers zero.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regs:    &RegFile{},
		memory:  NewMemory(),
		decoder: insts.NewDecoder(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regs
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// LastInstruction returns the most recently decoded instruction.
func (e *Emulator) LastInstruction() *insts.Instruction {
	return e.lastInst
}

// SetInterruptHandler replaces the interrupt service hook.
func (e *Emulator) SetInterruptHandler(h InterruptHandler) {
	e.interrupts = h
}

// AddObserver adds a cycle observer.
func (e *Emulator) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Load copies a binary image into memory at a physical address.
func (e *Emulator) Load(addr uint32, image []byte) error {
	return e.memory.LoadAt(addr, image)
}

// LoadProgram loads code at cs:ip and points execution at it.
func (e *Emulator) LoadProgram(cs, ip uint16, code []byte) error {
	if err := e.Load(Translate(cs, ip), code); err != nil {
		return err
	}
	e.regs.CS = cs
	e.regs.IP = ip
	return nil
}

// Exit stops the run loop after the current instruction with code as
// the exit status. Interrupt services use it to terminate programs.
func (e *Emulator) Exit(code int64) {
	e.exited = true
	e.exitCode = code
}

// Exited reports whether Exit was called.
func (e *Emulator) Exited() bool {
	return e.exited
}

// ExitCode returns the status passed to Exit.
func (e *Emulator) ExitCode() int64 {
	return e.exitCode
}

// Reset clears registers, memory and counters. Options are kept.
func (e *Emulator) Reset() {
	*e.regs = RegFile{}
	watcher := e.memory.Watcher()
	e.memory = NewMemory()
	e.memory.SetWatcher(watcher)
	e.lastInst = nil
	e.lastEntry = entry{}
	e.exited = false
	e.exitCode = 0
	e.instructionCount = 0
}

// Step executes a single instruction.
// Returns a StepResult indicating whether execution should continue.
func (e *Emulator) Step() StepResult {
	if e.exited {
		return StepResult{Exited: true, ExitCode: e.exitCode}
	}

	if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("after %d instructions: %w", e.instructionCount, ErrMaxInstructions),
		}
	}

	r := e.regs
	cs, ip := r.CS, r.IP

	inst := e.decoder.DecodeFunc(func(n int) byte {
		return e.memory.Peek(Translate(cs, ip+uint16(n)))
	})
	ent := lookupEntry(inst.Opcode, inst.Reg)

	e.lastInst = inst
	e.lastEntry = ent

	for _, o := range e.observers {
		o.BeforeStep(inst, *r)
	}

	c := &Cycle{Inst: inst, CS: cs, IP: ip}
	if err := e.execute(c, ent); err != nil {
		r.CS, r.IP = cs, ip
		return StepResult{Err: e.fault(c, err)}
	}

	if c.branched {
		r.CS, r.IP = c.targetCS, c.targetIP
	} else {
		r.IP = c.NextIP()
	}

	if w := e.memory.Watcher(); w != nil {
		for i := 0; i < c.Len(); i++ {
			w.MemoryAccess(AccessFetch, Translate(cs, ip+uint16(i)))
		}
	}

	e.instructionCount++

	for _, o := range e.observers {
		o.AfterStep(inst, *r)
	}

	return StepResult{
		Halted:   c.halted,
		Exited:   e.exited,
		ExitCode: e.exitCode,
	}
}

func (e *Emulator) execute(c *Cycle, ent entry) error {
	if err := ent.check(c.Inst); err != nil {
		return err
	}
	if err := e.resolveOperands(c); err != nil {
		return err
	}
	return ent.fn(e, c)
}

func (e *Emulator) fault(c *Cycle, err error) *Fault {
	f := &Fault{
		CS:   c.CS,
		IP:   c.IP,
		Inst: c.Inst,
		Regs: *e.regs,
		Err:  err,
	}
	for _, o := range e.observers {
		o.Fault(f)
	}
	return f
}

// ctxCheckInterval is how many instructions Run executes between
// context checks.
const ctxCheckInterval = 1024

// Run executes instructions until HLT, an exit, a fault or cancellation
// of ctx. HLT and exits return nil.
func (e *Emulator) Run(ctx context.Context) error {
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted || result.Exited {
			return nil
		}
	}
}
