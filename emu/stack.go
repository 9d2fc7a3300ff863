package emu

// Push16 decrements SP by two and writes v at SS:SP.
func (e *Emulator) Push16(v uint16) {
	e.regs.GP[SP] -= 2
	e.memory.Store16(e.regs.SS, e.regs.GP[SP], v)
}

// Pop16 reads the word at SS:SP and increments SP by two.
func (e *Emulator) Pop16() uint16 {
	v := e.memory.Load16(e.regs.SS, e.regs.GP[SP])
	e.regs.GP[SP] += 2
	return v
}
