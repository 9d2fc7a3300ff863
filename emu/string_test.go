package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
)

var _ = Describe("String instructions", func() {
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

	It("should copy one byte and advance SI and DI", func() {
		load(0xA4) // MOVSB
		m.Store8(0x1000, 0x10, 0x99)
		r.GP[emu.SI] = 0x10
		r.GP[emu.DI] = 0x20

		step(e)

		Expect(m.Load8(0x3000, 0x20)).To(Equal(byte(0x99)))
		Expect(r.GP[emu.SI]).To(Equal(uint16(0x11)))
		Expect(r.GP[emu.DI]).To(Equal(uint16(0x21)))
	})

	It("should run REP MOVSW to completion in one step", func() {
		load(0xF3, 0xA5, 0x90) // REP MOVSW; NOP
		for i := uint16(0); i < 4; i++ {
			m.Store16(0x1000, i*2, 0x1100+i)
		}
		r.GP[emu.CX] = 4

		step(e)

		for i := uint16(0); i < 4; i++ {
			Expect(m.Load16(0x3000, i*2)).To(Equal(0x1100 + i))
		}
		Expect(r.GP[emu.CX]).To(BeZero())
		Expect(r.GP[emu.SI]).To(Equal(uint16(8)))
		Expect(r.IP).To(Equal(uint16(codeStart + 2)))
	})

	It("should skip a REP with CX zero", func() {
		load(0xF3, 0xAA) // REP STOSB
		r.GP[emu.AX] = 0x55

		step(e)

		Expect(m.Load8(0x3000, 0)).To(BeZero())
		Expect(r.GP[emu.DI]).To(BeZero())
	})

	It("should walk backwards with DF set", func() {
		load(0xFD, 0xAB) // STD; STOSW
		r.GP[emu.AX] = 0xBEEF
		r.GP[emu.DI] = 0x10

		stepN(e, 2)

		Expect(m.Load16(0x3000, 0x10)).To(Equal(uint16(0xBEEF)))
		Expect(r.GP[emu.DI]).To(Equal(uint16(0x0E)))
	})

	It("should read the source through an override but write to ES", func() {
		load(0x2E, 0xA4) // CS: MOVSB
		m.Store8(codeSeg, 0x0000, 0x7E)
		m.Store8(0x1000, 0x0000, 0x11)

		step(e)

		Expect(m.Load8(0x3000, 0)).To(Equal(byte(0x7E)))
	})

	It("should load the accumulator with LODSB", func() {
		load(0xAC)
		m.Store8(0x1000, 0, 0x3C)

		step(e)

		Expect(r.Get(emu.AL)).To(Equal(uint32(0x3C)))
		Expect(r.GP[emu.SI]).To(Equal(uint16(1)))
	})

	It("should stop REPNE SCASB at the match", func() {
		load(0xF2, 0xAE) // REPNE SCASB
		Expect(m.LoadAt(emu.Translate(0x3000, 0), []byte("hello\x00"))).To(Succeed())
		r.GP[emu.AX] = 0
		r.GP[emu.CX] = 0xFFFF

		step(e)

		Expect(r.Flag(emu.FlagZF)).To(BeTrue())
		Expect(r.GP[emu.DI]).To(Equal(uint16(6)))
		Expect(r.GP[emu.CX]).To(Equal(uint16(0xFFFF - 6)))
	})

	It("should stop REPE CMPSB at the first difference", func() {
		load(0xF3, 0xA6) // REPE CMPSB
		Expect(m.LoadAt(emu.Translate(0x1000, 0), []byte("abcX"))).To(Succeed())
		Expect(m.LoadAt(emu.Translate(0x3000, 0), []byte("abcY"))).To(Succeed())
		r.GP[emu.CX] = 10

		step(e)

		Expect(r.Flag(emu.FlagZF)).To(BeFalse())
		Expect(r.Flag(emu.FlagCF)).To(BeTrue())
		Expect(r.GP[emu.SI]).To(Equal(uint16(4)))
		Expect(r.GP[emu.CX]).To(Equal(uint16(6)))
	})
})
