package emu

import (
	"fmt"

	"github.com/sarchlab/sim8086/insts"
)

// Cycle carries the state of one instruction through operand resolution
// and execution. It is created fresh by every Step.
type Cycle struct {
	Inst *insts.Instruction

	// CS and IP locate the first byte of the instruction, prefixes
	// included.
	CS uint16
	IP uint16

	// Dst and Src are the resolved operands.
	Dst Location
	Src Location

	dispBytes int
	immBytes  int

	branched bool
	targetCS uint16
	targetIP uint16

	halted bool
}

// Len returns the number of instruction bytes consumed so far.
func (c *Cycle) Len() int {
	return c.Inst.HeaderLen() + c.dispBytes + c.immBytes
}

// NextIP returns the offset of the following instruction.
func (c *Cycle) NextIP() uint16 {
	return c.IP + uint16(c.Len())
}

// Branch redirects execution to cs:ip instead of the next instruction.
func (c *Cycle) Branch(cs, ip uint16) {
	c.branched = true
	c.targetCS = cs
	c.targetIP = ip
}

// Jump redirects execution to ip within the current code segment.
func (c *Cycle) Jump(ip uint16) {
	c.Branch(c.CS, ip)
}

// Halt marks the cycle as having executed HLT.
func (c *Cycle) Halt() {
	c.halted = true
}

func (e *Emulator) code8(c *Cycle, pos int) uint8 {
	return e.memory.Peek(Translate(c.CS, c.IP+uint16(pos)))
}

func (e *Emulator) code16(c *Cycle, pos int) uint16 {
	return uint16(e.code8(c, pos)) | uint16(e.code8(c, pos+1))<<8
}

// segmentFor returns the segment value used for a memory operand: the
// override when the instruction has one, otherwise the default.
func (e *Emulator) segmentFor(c *Cycle, def Reg) uint16 {
	if c.Inst.SegOverride != insts.SegNone {
		return e.regs.Word(SegmentReg(c.Inst.SegOverride))
	}
	return e.regs.Word(def)
}

// resolveOperands resolves the destination then the source operand and
// accounts for the instruction bytes each one consumes.
func (e *Emulator) resolveOperands(c *Cycle) error {
	info := c.Inst.Info

	dst, n, err := e.resolve(c, info.Dst)
	if err != nil {
		return err
	}
	c.Dst = dst
	e.account(c, info.Dst, n)

	src, n, err := e.resolve(c, info.Src)
	if err != nil {
		return err
	}
	c.Src = src
	e.account(c, info.Src, n)

	return nil
}

func (e *Emulator) account(c *Cycle, spec insts.Spec, n int) {
	if spec.UsesModRM() {
		c.dispBytes += n
	} else {
		c.immBytes += n
	}
}

// resolve maps an operand specifier to a location and reports how many
// displacement or immediate bytes it consumed.
func (e *Emulator) resolve(c *Cycle, spec insts.Spec) (Location, int, error) {
	inst := c.Inst
	immPos := inst.HeaderLen() + inst.DispLen() + c.immBytes

	switch {
	case spec == insts.SpecNone:
		return Location{}, 0, nil
	case spec >= insts.SpecAL && spec <= insts.SpecBH:
		return RegisterLoc(ByteReg(uint8(spec - insts.SpecAL))), 0, nil
	case spec >= insts.SpecAX && spec <= insts.SpecDI:
		return RegisterLoc(WordReg(uint8(spec - insts.SpecAX))), 0, nil
	case spec >= insts.SpecES && spec <= insts.SpecDS:
		return RegisterLoc(ES + Reg(spec-insts.SpecES)), 0, nil
	}

	switch spec {
	case insts.SpecEb:
		return e.resolveModRM(c, insts.Byte)
	case insts.SpecEv, insts.SpecEw:
		return e.resolveModRM(c, insts.Word)
	case insts.SpecGb:
		return RegisterLoc(ByteReg(inst.Reg)), 0, nil
	case insts.SpecGv:
		return RegisterLoc(WordReg(inst.Reg)), 0, nil
	case insts.SpecSw:
		if inst.Reg > 3 {
			return Location{}, 0, fmt.Errorf("segment register %d: %w", inst.Reg, ErrUnknownOpcode)
		}
		return RegisterLoc(ES + Reg(inst.Reg)), 0, nil

	case insts.SpecIb:
		return ImmediateLoc(uint32(e.code8(c, immPos)), insts.Byte), 1, nil
	case insts.SpecIbs:
		v := uint16(int16(int8(e.code8(c, immPos))))
		return ImmediateLoc(uint32(v), insts.Word), 1, nil
	case insts.SpecIv, insts.SpecIw:
		return ImmediateLoc(uint32(e.code16(c, immPos)), insts.Word), 2, nil

	case insts.SpecJb:
		disp := uint16(int16(int8(e.code8(c, immPos))))
		next := c.IP + uint16(immPos+1)
		return ImmediateLoc(uint32(next+disp), insts.Word), 1, nil
	case insts.SpecJv:
		disp := e.code16(c, immPos)
		next := c.IP + uint16(immPos+2)
		return ImmediateLoc(uint32(next+disp), insts.Word), 2, nil

	case insts.SpecAp:
		off := e.code16(c, immPos)
		seg := e.code16(c, immPos+2)
		return Location{Kind: LocFarPointer, Width: insts.Word, Seg: seg, Off: off}, 4, nil
	case insts.SpecMp, insts.SpecEp, insts.SpecM:
		loc, n, err := e.resolveModRM(c, insts.Word)
		if err != nil {
			return loc, n, err
		}
		if !loc.IsMemory() {
			return Location{}, n, fmt.Errorf("%v with register operand: %w", spec, ErrInvalidAddressMode)
		}
		return loc, n, nil

	case insts.SpecOb, insts.SpecOv:
		w := insts.Byte
		if spec == insts.SpecOv {
			w = insts.Word
		}
		off := e.code16(c, immPos)
		return MemoryLoc(e.segmentFor(c, DS), off, w), 2, nil

	case insts.SpecOne:
		return ImmediateLoc(1, insts.Byte), 0, nil
	case insts.SpecThree:
		return ImmediateLoc(3, insts.Byte), 0, nil
	}

	return Location{}, 0, fmt.Errorf("operand %v: %w", spec, ErrInvalidAddressMode)
}

// resolveModRM computes the operand selected by mod and rm.
//
// BP-based forms default to SS. The direct-address literal of mod=00
// rm=110 always comes from the code stream.
func (e *Emulator) resolveModRM(c *Cycle, w insts.Width) (Location, int, error) {
	inst := c.Inst
	if !inst.HasModRM {
		return Location{}, 0, fmt.Errorf("opcode %02X has no ModR/M: %w", inst.Opcode, ErrInvalidAddressMode)
	}

	if inst.Mod == 3 {
		if w == insts.Byte {
			return RegisterLoc(ByteReg(inst.RM)), 0, nil
		}
		return RegisterLoc(WordReg(inst.RM)), 0, nil
	}

	r := e.regs
	pos := inst.HeaderLen()
	seg := DS
	n := 0

	var ea uint16
	switch inst.RM {
	case 0:
		ea = r.GP[BX] + r.GP[SI]
	case 1:
		ea = r.GP[BX] + r.GP[DI]
	case 2:
		ea = r.GP[BP] + r.GP[SI]
		seg = SS
	case 3:
		ea = r.GP[BP] + r.GP[DI]
		seg = SS
	case 4:
		ea = r.GP[SI]
	case 5:
		ea = r.GP[DI]
	case 6:
		if inst.Mod == 0 {
			ea = e.code16(c, pos)
			n = 2
		} else {
			ea = r.GP[BP]
			seg = SS
		}
	case 7:
		ea = r.GP[BX]
	}

	switch inst.Mod {
	case 1:
		ea += uint16(int16(int8(e.code8(c, pos))))
		n = 1
	case 2:
		ea += e.code16(c, pos)
		n = 2
	}

	return MemoryLoc(e.segmentFor(c, seg), ea, w), n, nil
}
