package emu_test

import (
	"bytes"
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/insts"
)

var _ = Describe("Emulator", func() {
	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			e := emu.NewEmulator()
			Expect(e).NotTo(BeNil())
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.InstructionCount()).To(BeZero())
		})
	})

	Describe("LoadProgram", func() {
		It("should set CS:IP and copy the code", func() {
			e := emu.NewEmulator()
			Expect(e.LoadProgram(0x1000, 0x0100, []byte{0xDE, 0xAD})).To(Succeed())

			Expect(e.RegFile().CS).To(Equal(uint16(0x1000)))
			Expect(e.RegFile().IP).To(Equal(uint16(0x0100)))
			Expect(e.Memory().Read8(0x10100)).To(Equal(byte(0xDE)))
			Expect(e.Memory().Read8(0x10101)).To(Equal(byte(0xAD)))
		})

		It("should refuse images past the end of memory", func() {
			e := emu.NewEmulator()
			err := e.Load(emu.MemorySize-1, []byte{1, 2})
			Expect(errors.Is(err, emu.ErrBinaryTooLarge)).To(BeTrue())
		})
	})

	Describe("MOV then ADD", func() {
		It("should load, add and advance IP by the encoded lengths", func() {
			e := emu.NewEmulator()
			r := e.RegFile()

			Expect(e.Load(0, []byte{0xB0, 0x05})).To(Succeed())
			step(e)
			Expect(r.Get(emu.AL)).To(Equal(uint32(5)))
			Expect(r.IP).To(Equal(uint16(2)))

			Expect(e.Load(2, []byte{0x04, 0x03})).To(Succeed())
			step(e)
			Expect(r.Get(emu.AL)).To(Equal(uint32(8)))
			Expect(r.IP).To(Equal(uint16(4)))
			Expect(r.Flag(emu.FlagCF)).To(BeFalse())
			Expect(r.Flag(emu.FlagOF)).To(BeFalse())
			Expect(r.Flag(emu.FlagSF)).To(BeFalse())
			Expect(r.Flag(emu.FlagZF)).To(BeFalse())
		})
	})

	Describe("prefix runs", func() {
		It("should execute the instruction after many prefixes", func() {
			code := append(bytes.Repeat([]byte{0x26}, 11), 0xB0, 0x05) // ES: x11; MOV AL,5
			e := newTestEmulator(code...)
			r := e.RegFile()

			step(e)

			Expect(r.Get(emu.AL)).To(Equal(uint32(5)))
			Expect(r.IP).To(Equal(uint16(codeStart + 13)))
		})

		It("should apply the override after many prefixes", func() {
			code := append(bytes.Repeat([]byte{0x2E}, 11), 0x26, 0x88, 0x07) // MOV ES:[BX],AL
			e := newTestEmulator(code...)
			r := e.RegFile()
			r.ES = 0x3000
			r.GP[emu.BX] = 0x0010
			Expect(r.Set(emu.AL, 0x7E)).To(Succeed())

			step(e)

			Expect(e.Memory().Load8(0x3000, 0x0010)).To(Equal(byte(0x7E)))
			Expect(e.Memory().Load8(codeSeg, 0x0010)).To(BeZero())
			Expect(r.IP).To(Equal(uint16(codeStart + 14)))
		})
	})

	Describe("not implemented opcodes", func() {
		It("should report AAM without touching registers", func() {
			e := newTestEmulator(0xD4, 0x0A)
			r := e.RegFile()
			r.GP[emu.AX] = 0x0123
			before := *r

			result := e.Step()

			Expect(result.Err).To(HaveOccurred())
			Expect(errors.Is(result.Err, emu.ErrFeatureNotImplemented)).To(BeTrue())
			Expect(*r).To(Equal(before))

			var fault *emu.Fault
			Expect(errors.As(result.Err, &fault)).To(BeTrue())
			Expect(fault.Mnemonic()).To(Equal("AAM"))
			Expect(fault.IP).To(Equal(uint16(codeStart)))
			Expect(fault.Regs).To(Equal(before))
			Expect(e.InstructionCount()).To(BeZero())
		})

		It("should tell invalid and unknown opcodes apart", func() {
			e := newTestEmulator(0x0F)
			result := e.Step()
			Expect(errors.Is(result.Err, emu.ErrInvalidOpcode)).To(BeTrue())

			e = newTestEmulator(0xFE, 0xD0)
			result = e.Step()
			Expect(errors.Is(result.Err, emu.ErrUnknownOpcode)).To(BeTrue())
			Expect(errors.Is(result.Err, emu.ErrInvalidOpcode)).To(BeFalse())
		})

		It("should treat segment register 4-7 as unknown", func() {
			e := newTestEmulator(0x8E, 0xE0)
			result := e.Step()
			Expect(errors.Is(result.Err, emu.ErrUnknownOpcode)).To(BeTrue())
		})

		It("should reject LEA with a register operand", func() {
			e := newTestEmulator(0x8D, 0xC0)
			result := e.Step()
			Expect(errors.Is(result.Err, emu.ErrInvalidAddressMode)).To(BeTrue())
		})
	})

	Describe("observers", func() {
		It("should see each step and faults", func() {
			var before, after []insts.Op
			var faults []*emu.Fault

			e := newTestEmulator(0x90, 0xD4, 0x0A)
			e.AddObserver(emu.ObserverFuncs{
				Before:  func(inst *insts.Instruction, _ emu.RegFile) { before = append(before, inst.Op()) },
				After:   func(inst *insts.Instruction, _ emu.RegFile) { after = append(after, inst.Op()) },
				OnFault: func(f *emu.Fault) { faults = append(faults, f) },
			})

			step(e)
			Expect(e.Step().Err).To(HaveOccurred())

			Expect(before).To(Equal([]insts.Op{insts.OpNOP, insts.OpAAM}))
			Expect(after).To(Equal([]insts.Op{insts.OpNOP}))
			Expect(faults).To(HaveLen(1))
		})

		It("should report fetches to the memory watcher", func() {
			e := newTestEmulator(0xB8, 0x34, 0x12)
			w := &recordingWatcher{}
			e.Memory().SetWatcher(w)

			step(e)

			Expect(w.accesses).To(Equal([]accessRecord{
				{emu.AccessFetch, 0x100},
				{emu.AccessFetch, 0x101},
				{emu.AccessFetch, 0x102},
			}))
		})
	})

	Describe("Run", func() {
		It("should stop at HLT", func() {
			e := newTestEmulator(0x40, 0x40, 0xF4, 0x40)

			Expect(e.Run(context.Background())).To(Succeed())
			Expect(e.RegFile().GP[emu.AX]).To(Equal(uint16(2)))
			Expect(e.RegFile().IP).To(Equal(uint16(codeStart + 3)))
		})

		It("should stop at a fault", func() {
			e := newTestEmulator(0x40, 0xD5, 0x0A)

			err := e.Run(context.Background())
			Expect(errors.Is(err, emu.ErrFeatureNotImplemented)).To(BeTrue())
			Expect(e.RegFile().IP).To(Equal(uint16(codeStart + 1)))
		})

		It("should honor the instruction limit", func() {
			// JMP $
			e := emu.NewEmulator(emu.WithMaxInstructions(10))
			Expect(e.LoadProgram(0, 0x100, []byte{0xEB, 0xFE})).To(Succeed())

			err := e.Run(context.Background())
			Expect(errors.Is(err, emu.ErrMaxInstructions)).To(BeTrue())
			Expect(e.InstructionCount()).To(Equal(uint64(10)))
		})

		It("should stop when the context is cancelled", func() {
			e := newTestEmulator(0xEB, 0xFE)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Expect(e.Run(ctx)).To(MatchError(context.Canceled))
		})
	})

	Describe("Reset", func() {
		It("should clear registers and memory", func() {
			e := newTestEmulator(0x40)
			step(e)
			e.Reset()

			Expect(*e.RegFile()).To(Equal(emu.RegFile{}))
			Expect(e.Memory().Read8(0x100)).To(BeZero())
			Expect(e.InstructionCount()).To(BeZero())
		})
	})
})
