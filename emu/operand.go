package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// LocKind tags the variant held by a Location.
type LocKind uint8

// Location kinds.
const (
	LocNone LocKind = iota
	LocRegister
	LocMemory
	LocImmediate
	LocFarPointer
)

// Location is a resolved operand: a register, a segment:offset in
// memory, an immediate value or an immediate far pointer.
type Location struct {
	Kind  LocKind
	Width insts.Width

	// Reg is the register for LocRegister.
	Reg Reg

	// Seg and Off address memory for LocMemory and hold the target of
	// a LocFarPointer.
	Seg uint16
	Off uint16

	// Value holds a LocImmediate.
	Value uint32
}

// RegisterLoc returns a register location.
func RegisterLoc(reg Reg) Location {
	return Location{Kind: LocRegister, Width: reg.Width(), Reg: reg}
}

// MemoryLoc returns a memory location.
func MemoryLoc(seg, off uint16, w insts.Width) Location {
	return Location{Kind: LocMemory, Width: w, Seg: seg, Off: off}
}

// ImmediateLoc returns an immediate location.
func ImmediateLoc(v uint32, w insts.Width) Location {
	return Location{Kind: LocImmediate, Width: w, Value: v & w.Mask()}
}

// Addr returns the physical address of a memory location.
func (l Location) Addr() uint32 {
	return Translate(l.Seg, l.Off)
}

// IsMemory reports whether the location is in memory.
func (l Location) IsMemory() bool {
	return l.Kind == LocMemory
}

// Load reads the location's value.
func (l Location) Load(e *Emulator) (uint32, error) {
	switch l.Kind {
	case LocRegister:
		return e.regs.Get(l.Reg), nil
	case LocMemory:
		if l.Width == insts.Byte {
			return uint32(e.memory.Load8(l.Seg, l.Off)), nil
		}
		return uint32(e.memory.Load16(l.Seg, l.Off)), nil
	case LocImmediate:
		return l.Value, nil
	}
	return 0, fmt.Errorf("load from %v: %w", l, ErrInvalidAddressMode)
}

// Store writes v to the location. Immediates and far pointers are
// read-only.
func (l Location) Store(e *Emulator, v uint32) error {
	switch l.Kind {
	case LocRegister:
		return e.regs.Set(l.Reg, v)
	case LocMemory:
		if v > l.Width.Mask() {
			return fmt.Errorf("store 0x%X to %v: %w", v, l, ErrValueOverflow)
		}
		if l.Width == insts.Byte {
			e.memory.Store8(l.Seg, l.Off, byte(v))
		} else {
			e.memory.Store16(l.Seg, l.Off, uint16(v))
		}
		return nil
	}
	return fmt.Errorf("store to %v: %w", l, ErrInvalidAddressMode)
}

// LoadFar reads a far pointer: the immediate target of a LocFarPointer,
// or the offset and segment words stored at a memory location.
func (l Location) LoadFar(e *Emulator) (seg, off uint16, err error) {
	switch l.Kind {
	case LocFarPointer:
		return l.Seg, l.Off, nil
	case LocMemory:
		off = e.memory.Load16(l.Seg, l.Off)
		seg = e.memory.Load16(l.Seg, l.Off+2)
		return seg, off, nil
	}
	return 0, 0, fmt.Errorf("far pointer from %v: %w", l, ErrInvalidAddressMode)
}

func (l Location) String() string {
	switch l.Kind {
	case LocRegister:
		return l.Reg.String()
	case LocMemory:
		return fmt.Sprintf("[%04X:%04X]", l.Seg, l.Off)
	case LocImmediate:
		return fmt.Sprintf("0x%X", l.Value)
	case LocFarPointer:
		return fmt.Sprintf("%04X:%04X", l.Seg, l.Off)
	}
	return "none"
}
