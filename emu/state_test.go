package emu_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/insts"
)

var _ = Describe("Snapshot and Restore", func() {
	// MOV CX,5; INC AX; LOOP -3; HLT
	program := []byte{0xB9, 0x05, 0x00, 0x40, 0xE2, 0xFD, 0xF4}

	It("should resume to the same final state", func() {
		e := newTestEmulator(program...)
		stepN(e, 3)
		snap := e.Snapshot()

		Expect(e.Run(context.Background())).To(Succeed())
		final := *e.RegFile()

		Expect(e.Restore(snap)).To(Succeed())
		Expect(e.InstructionCount()).To(Equal(uint64(3)))
		Expect(e.Run(context.Background())).To(Succeed())

		Expect(*e.RegFile()).To(Equal(final))
	})

	It("should be isolated from later writes", func() {
		e := newTestEmulator(program...)
		snap := e.Snapshot()

		e.Memory().Write8(0x100, 0xF4)
		Expect(snap.Memory[0x100]).To(Equal(byte(0xB9)))

		Expect(e.Restore(snap)).To(Succeed())
		Expect(e.Memory().Read8(0x100)).To(Equal(byte(0xB9)))
	})

	It("should keep the last instruction and relink its entry", func() {
		e := newTestEmulator(0x26, 0x80, 0x07, 0x01) // ADD byte ES:[BX],1
		step(e)
		snap := e.Snapshot()

		Expect(snap.LastInst).NotTo(BeNil())
		Expect(snap.SegOverride).To(Equal(insts.SegES))

		snap.LastInst.Info = insts.OpcodeInfo{}
		other := emu.NewEmulator()
		Expect(other.Restore(snap)).To(Succeed())

		last := other.LastInstruction()
		Expect(last.Op()).To(Equal(insts.OpADD))
		Expect(last.SegOverride).To(Equal(insts.SegES))
		Expect(other.LastDispatch()).To(Equal(emu.DispatchHandler))
	})

	It("should reject a malformed state", func() {
		e := emu.NewEmulator()
		Expect(e.Restore(&emu.State{})).NotTo(Succeed())
	})
})
