package emu

import "github.com/sarchlab/sim8086/insts"

// Observer receives cycle events. Observers must not modify the
// emulator.
type Observer interface {
	// BeforeStep is called after decode, before operands are resolved.
	BeforeStep(inst *insts.Instruction, regs RegFile)

	// AfterStep is called once the instruction has retired.
	AfterStep(inst *insts.Instruction, regs RegFile)

	// Fault is called when a cycle fails. The loop stops afterwards.
	Fault(f *Fault)
}

// ObserverFuncs implements Observer with optional callbacks.
type ObserverFuncs struct {
	Before  func(inst *insts.Instruction, regs RegFile)
	After   func(inst *insts.Instruction, regs RegFile)
	OnFault func(f *Fault)
}

// BeforeStep calls Before if set.
func (o ObserverFuncs) BeforeStep(inst *insts.Instruction, regs RegFile) {
	if o.Before != nil {
		o.Before(inst, regs)
	}
}

// AfterStep calls After if set.
func (o ObserverFuncs) AfterStep(inst *insts.Instruction, regs RegFile) {
	if o.After != nil {
		o.After(inst, regs)
	}
}

// Fault calls OnFault if set.
func (o ObserverFuncs) Fault(f *Fault) {
	if o.OnFault != nil {
		o.OnFault(f)
	}
}
