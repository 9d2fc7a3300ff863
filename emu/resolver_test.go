package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
)

var _ = Describe("Operand resolution", func() {
	var (
		e *emu.Emulator
		r *emu.RegFile
		m *emu.Memory
	)

	load := func(code ...byte) {
		e = newTestEmulator(code...)
		r = e.RegFile()
		m = e.Memory()
		r.DS = 0x1000
		r.ES = 0x3000
	}

	It("should read [BX+SI] from DS", func() {
		load(0x8B, 0x00) // MOV AX,[BX+SI]
		r.GP[emu.BX] = 0x0010
		r.GP[emu.SI] = 0x0002
		m.Store16(0x1000, 0x0012, 0xCAFE)

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0xCAFE)))
		Expect(r.IP).To(Equal(uint16(codeStart + 2)))
	})

	It("should default [BP+disp8] to SS", func() {
		load(0x8B, 0x46, 0x02) // MOV AX,[BP+2]
		r.GP[emu.BP] = 0x0100
		m.Store16(stackSeg, 0x0102, 0x1111)
		m.Store16(0x1000, 0x0102, 0x2222)

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0x1111)))
		Expect(r.IP).To(Equal(uint16(codeStart + 3)))
	})

	It("should let an override replace the BP default", func() {
		load(0x3E, 0x8B, 0x46, 0x02) // MOV AX,DS:[BP+2]
		r.GP[emu.BP] = 0x0100
		m.Store16(stackSeg, 0x0102, 0x1111)
		m.Store16(0x1000, 0x0102, 0x2222)

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0x2222)))
		Expect(r.IP).To(Equal(uint16(codeStart + 4)))
	})

	It("should sign-extend disp8", func() {
		load(0x8A, 0x47, 0xFF) // MOV AL,[BX-1]
		r.GP[emu.BX] = 0x0010
		m.Store8(0x1000, 0x000F, 0x5A)

		step(e)

		Expect(r.Get(emu.AL)).To(Equal(uint32(0x5A)))
	})

	It("should wrap the effective address at 64K", func() {
		load(0x8A, 0x87, 0x02, 0x00) // MOV AL,[BX+0002]
		r.GP[emu.BX] = 0xFFFF
		m.Store8(0x1000, 0x0001, 0x77)

		step(e)

		Expect(r.Get(emu.AL)).To(Equal(uint32(0x77)))
	})

	It("should read the direct address literal from the code stream", func() {
		load(0x26, 0x8B, 0x06, 0x34, 0x12) // MOV AX,ES:[1234]
		m.Store16(0x3000, 0x1234, 0xBEEF)
		m.Store16(0x1000, 0x1234, 0xDEAD)

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0xBEEF)))
		Expect(r.IP).To(Equal(uint16(codeStart + 5)))
	})

	It("should clear the override on the next instruction", func() {
		load(0x26, 0x8B, 0x07, 0x8B, 0x0F) // MOV AX,ES:[BX]; MOV CX,[BX]
		m.Store16(0x3000, 0, 0xAAAA)
		m.Store16(0x1000, 0, 0xBBBB)

		stepN(e, 2)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0xAAAA)))
		Expect(r.GP[emu.CX]).To(Equal(uint16(0xBBBB)))
	})

	It("should apply the override to the destination too", func() {
		load(0x26, 0x89, 0x07) // MOV ES:[BX],AX
		r.GP[emu.AX] = 0x4242

		step(e)

		Expect(m.Load16(0x3000, 0)).To(Equal(uint16(0x4242)))
		Expect(m.Load16(0x1000, 0)).To(BeZero())
	})

	It("should account for disp16 and imm16 in one instruction", func() {
		load(0xC7, 0x87, 0x34, 0x12, 0x78, 0x56) // MOV word [BX+1234],5678
		r.GP[emu.BX] = 0x0002

		step(e)

		Expect(m.Load16(0x1000, 0x1236)).To(Equal(uint16(0x5678)))
		Expect(r.IP).To(Equal(uint16(codeStart + 6)))
	})

	It("should account for disp8 and imm8 in one instruction", func() {
		load(0x80, 0x47, 0x04, 0x09) // ADD byte [BX+4],9
		m.Store8(0x1000, 0x0004, 0x01)

		step(e)

		Expect(m.Load8(0x1000, 0x0004)).To(Equal(byte(0x0A)))
		Expect(r.IP).To(Equal(uint16(codeStart + 4)))
	})

	It("should move through a direct offset", func() {
		load(0xA3, 0x00, 0x20, 0xA0, 0x01, 0x20) // MOV [2000],AX; MOV AL,[2001]
		r.GP[emu.AX] = 0x9988

		stepN(e, 2)

		Expect(m.Load16(0x1000, 0x2000)).To(Equal(uint16(0x9988)))
		Expect(r.Get(emu.AL)).To(Equal(uint32(0x99)))
		Expect(r.IP).To(Equal(uint16(codeStart + 6)))
	})

	It("should compute LEA without reading memory", func() {
		load(0x8D, 0x40, 0x10) // LEA AX,[BX+SI+10]
		r.GP[emu.BX] = 0x0100
		r.GP[emu.SI] = 0x0020

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0x0130)))
	})

	It("should load far pointers with LES and LDS", func() {
		load(0xC4, 0x3F, 0xC5, 0x37) // LES DI,[BX]; LDS SI,[BX]
		m.Store16(0x1000, 0, 0x1234)
		m.Store16(0x1000, 2, 0x5678)

		stepN(e, 2)

		Expect(r.GP[emu.DI]).To(Equal(uint16(0x1234)))
		Expect(r.ES).To(Equal(uint16(0x5678)))
		Expect(r.GP[emu.SI]).To(Equal(uint16(0x1234)))
		Expect(r.DS).To(Equal(uint16(0x5678)))
	})

	It("should move segment registers", func() {
		load(0x8C, 0xD8, 0x8E, 0xC0) // MOV AX,DS; MOV ES,AX
		stepN(e, 2)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0x1000)))
		Expect(r.ES).To(Equal(uint16(0x1000)))
	})

	It("should exchange register and memory", func() {
		load(0x87, 0x07) // XCHG [BX],AX
		r.GP[emu.AX] = 0x1111
		m.Store16(0x1000, 0, 0x2222)

		step(e)

		Expect(r.GP[emu.AX]).To(Equal(uint16(0x2222)))
		Expect(m.Load16(0x1000, 0)).To(Equal(uint16(0x1111)))
	})

	It("should translate with XLAT", func() {
		load(0xD7)
		r.GP[emu.BX] = 0x0100
		r.GP[emu.AX] = 0x0003
		m.Store8(0x1000, 0x0103, 0x42)

		step(e)

		Expect(r.Get(emu.AL)).To(Equal(uint32(0x42)))
	})

	Describe("Location", func() {
		It("should refuse to store to an immediate", func() {
			loc := emu.ImmediateLoc(5, 1)
			Expect(loc.Store(emu.NewEmulator(), 1)).To(MatchError(emu.ErrInvalidAddressMode))
		})

		It("should refuse oversized memory stores", func() {
			e := emu.NewEmulator()
			loc := emu.MemoryLoc(0, 0x10, 1)
			Expect(loc.Store(e, 0x100)).To(MatchError(emu.ErrValueOverflow))
		})
	})
})
