package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
)

var _ = Describe("Interrupts", func() {
	Describe("stack primitives", func() {
		It("should round-trip a value", func() {
			e := newTestEmulator()
			e.Push16(0x1234)
			Expect(e.RegFile().GP[emu.SP]).To(Equal(uint16(stackTop - 2)))
			Expect(e.Pop16()).To(Equal(uint16(0x1234)))
			Expect(e.RegFile().GP[emu.SP]).To(Equal(uint16(stackTop)))
		})

		It("should pop in reverse order", func() {
			e := newTestEmulator()
			e.Push16(0xAAAA)
			e.Push16(0xBBBB)
			Expect(e.Pop16()).To(Equal(uint16(0xBBBB)))
			Expect(e.Pop16()).To(Equal(uint16(0xAAAA)))
		})

		It("should write little-endian at SS:SP", func() {
			e := newTestEmulator()
			e.Push16(0x1234)
			Expect(e.Memory().Load8(stackSeg, stackTop-2)).To(Equal(byte(0x34)))
			Expect(e.Memory().Load8(stackSeg, stackTop-1)).To(Equal(byte(0x12)))
		})
	})

	Describe("PUSH and POP", func() {
		It("should move values through the stack", func() {
			e := newTestEmulator(0x50, 0x5B) // PUSH AX; POP BX
			e.RegFile().GP[emu.AX] = 0x4321
			stepN(e, 2)
			Expect(e.RegFile().GP[emu.BX]).To(Equal(uint16(0x4321)))
		})

		It("should push the decremented SP", func() {
			e := newTestEmulator(0x54) // PUSH SP
			step(e)
			Expect(e.Pop16()).To(Equal(uint16(stackTop - 2)))
		})

		It("should push segment registers and pop to memory", func() {
			e := newTestEmulator(0x1E, 0x8F, 0x06, 0x00, 0x05) // PUSH DS; POP [0500]
			e.RegFile().DS = 0x0123
			stepN(e, 2)
			Expect(e.Memory().Load16(0x0123, 0x0500)).To(Equal(uint16(0x0123)))
			Expect(e.RegFile().GP[emu.SP]).To(Equal(uint16(stackTop)))
		})

		It("should push flags with reserved bits set", func() {
			e := newTestEmulator(0x9C, 0x9D) // PUSHF; POPF
			e.RegFile().Flags = emu.FlagCF | emu.FlagZF

			step(e)
			Expect(e.Memory().Load16(stackSeg, stackTop-2)).To(Equal(uint16(0xF002 | 0x0041)))

			step(e)
			Expect(e.RegFile().Flags).To(Equal(emu.FlagCF | emu.FlagZF))
		})

		It("should transfer flags through AH", func() {
			e := newTestEmulator(0xB4, 0xD5, 0x9E, 0x9F) // MOV AH,D5; SAHF; LAHF
			stepN(e, 2)
			Expect(e.RegFile().Flags).To(Equal(emu.FlagSF | emu.FlagZF | emu.FlagAF | emu.FlagPF | emu.FlagCF))

			e.RegFile().GP[emu.AX] = 0
			step(e)
			Expect(e.RegFile().Get(emu.AH)).To(Equal(uint32(0xD7)))
		})
	})

	Describe("INT with a service hook", func() {
		It("should run the hook between push and pop", func() {
			var seen []uint8
			var frameIP uint16

			e := newTestEmulator(0xCD, 0x10, 0x90) // INT 10h; NOP
			e.SetInterruptHandler(emu.InterruptHandlerFunc(func(e *emu.Emulator, vector uint8) (bool, error) {
				seen = append(seen, vector)
				frameIP = e.Memory().Load16(e.RegFile().SS, e.RegFile().GP[emu.SP])
				Expect(e.RegFile().Flag(emu.FlagIF)).To(BeFalse())
				Expect(e.RegFile().Set(emu.AX, 0x0E41)).To(Succeed())
				return true, nil
			}))

			r := e.RegFile()
			r.Flags = emu.FlagIF

			step(e)

			Expect(seen).To(Equal([]uint8{0x10}))
			Expect(frameIP).To(Equal(uint16(codeStart + 2)))
			Expect(r.IP).To(Equal(uint16(codeStart + 2)))
			Expect(r.CS).To(Equal(uint16(codeSeg)))
			Expect(r.GP[emu.SP]).To(Equal(uint16(stackTop)))
			Expect(r.Flag(emu.FlagIF)).To(BeTrue())
			Expect(r.GP[emu.AX]).To(Equal(uint16(0x0E41)))
		})

		It("should fault when the hook fails", func() {
			boom := errors.New("boom")
			e := newTestEmulator(0xCD, 0x21)
			e.SetInterruptHandler(emu.InterruptHandlerFunc(func(*emu.Emulator, uint8) (bool, error) {
				return false, boom
			}))

			result := e.Step()

			Expect(errors.Is(result.Err, boom)).To(BeTrue())
			Expect(e.RegFile().IP).To(Equal(uint16(codeStart)))
			Expect(e.RegFile().GP[emu.SP]).To(Equal(uint16(stackTop)))
		})

		It("should stop the run loop when the hook exits", func() {
			e := newTestEmulator(0xCD, 0x20, 0x40)
			e.SetInterruptHandler(emu.InterruptHandlerFunc(func(e *emu.Emulator, vector uint8) (bool, error) {
				e.Exit(3)
				return true, nil
			}))

			result := step(e)

			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(Equal(int64(3)))
			Expect(e.Step().Exited).To(BeTrue())
			Expect(e.RegFile().GP[emu.AX]).To(BeZero())
		})
	})

	Describe("INT through the vector table", func() {
		It("should enter the guest handler and IRET back", func() {
			e := newTestEmulator(0xCD, 0x21, 0x90) // INT 21h; NOP
			e.SetIVTEntry(0x21, 0x0400, 0x0000)
			Expect(e.Load(emu.Translate(0x0400, 0), []byte{0x40, 0xCF})).To(Succeed()) // INC AX; IRET

			r := e.RegFile()
			r.Flags = emu.FlagIF | emu.FlagCF

			step(e)
			Expect(r.CS).To(Equal(uint16(0x0400)))
			Expect(r.IP).To(Equal(uint16(0)))
			Expect(r.Flag(emu.FlagIF)).To(BeFalse())

			stepN(e, 2)
			Expect(r.CS).To(Equal(uint16(codeSeg)))
			Expect(r.IP).To(Equal(uint16(codeStart + 2)))
			Expect(r.Flags).To(Equal(emu.FlagIF | emu.FlagCF))
			Expect(r.GP[emu.AX]).To(Equal(uint16(1)))
			Expect(r.GP[emu.SP]).To(Equal(uint16(stackTop)))
		})

		It("should use vector 3 for INT3", func() {
			e := newTestEmulator(0xCC)
			e.SetIVTEntry(3, 0x0000, 0x0600)
			step(e)
			Expect(e.RegFile().IP).To(Equal(uint16(0x0600)))
			Expect(e.Pop16()).To(Equal(uint16(codeStart + 1)))
		})

		It("should only take INTO on overflow", func() {
			e := newTestEmulator(0xCE, 0xCE)
			e.SetIVTEntry(4, 0x0000, 0x0700)

			step(e)
			Expect(e.RegFile().IP).To(Equal(uint16(codeStart + 1)))

			e.RegFile().SetFlag(emu.FlagOF, true)
			step(e)
			Expect(e.RegFile().IP).To(Equal(uint16(0x0700)))
		})
	})

	Describe("ports", func() {
		It("should move bytes and words through IN and OUT", func() {
			// MOV AL,5A; OUT 60,AL; MOV DX,3F8; MOV AX,1234; OUT DX,AX; IN AL,60; IN AX,DX
			e := newTestEmulator(0xB0, 0x5A, 0xE6, 0x60, 0xBA, 0xF8, 0x03,
				0xB8, 0x34, 0x12, 0xEF, 0xE4, 0x60, 0xED)
			stepN(e, 5)

			Expect(e.Memory().In8(0x60)).To(Equal(byte(0x5A)))
			Expect(e.Memory().In16(0x3F8)).To(Equal(uint16(0x1234)))

			e.RegFile().GP[emu.AX] = 0
			step(e)
			Expect(e.RegFile().Get(emu.AL)).To(Equal(uint32(0x5A)))

			step(e)
			Expect(e.RegFile().GP[emu.AX]).To(Equal(uint16(0x1234)))
		})
	})

	Describe("flag instructions", func() {
		It("should set, clear and complement flags", func() {
			e := newTestEmulator(0xF9, 0xF5, 0xFD, 0xFB, 0xFC, 0xFA, 0xF8)
			r := e.RegFile()

			step(e)
			Expect(r.Flag(emu.FlagCF)).To(BeTrue())
			step(e)
			Expect(r.Flag(emu.FlagCF)).To(BeFalse())
			step(e)
			Expect(r.Flag(emu.FlagDF)).To(BeTrue())
			step(e)
			Expect(r.Flag(emu.FlagIF)).To(BeTrue())
			step(e)
			Expect(r.Flag(emu.FlagDF)).To(BeFalse())
			step(e)
			Expect(r.Flag(emu.FlagIF)).To(BeFalse())
			step(e)
			Expect(r.Flags).To(BeZero())
		})
	})
})
