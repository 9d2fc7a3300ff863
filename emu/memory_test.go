package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
)

type accessRecord struct {
	kind emu.AccessKind
	addr uint32
}

type recordingWatcher struct {
	accesses []accessRecord
}

func (w *recordingWatcher) MemoryAccess(kind emu.AccessKind, addr uint32) {
	w.accesses = append(w.accesses, accessRecord{kind, addr})
}

var _ = Describe("Memory", func() {
	var m *emu.Memory

	BeforeEach(func() {
		m = emu.NewMemory()
	})

	Describe("Translate", func() {
		It("should combine segment and offset", func() {
			Expect(emu.Translate(0x1234, 0x0010)).To(Equal(uint32(0x12350)))
		})

		It("should wrap at 1MB", func() {
			Expect(emu.Translate(0xFFFF, 0xFFFF)).To(Equal(uint32((0xFFFF*16 + 0xFFFF) % (1 << 20))))
			Expect(emu.Translate(0xFFFF, 0xFFFF)).To(Equal(uint32(0x0FFEF)))
		})
	})

	Describe("word access", func() {
		It("should be little-endian", func() {
			m.Store16(0x0100, 0x0010, 0xBEEF)
			Expect(m.Read8(0x1010)).To(Equal(byte(0xEF)))
			Expect(m.Read8(0x1011)).To(Equal(byte(0xBE)))
			Expect(m.Load16(0x0100, 0x0010)).To(Equal(uint16(0xBEEF)))
		})

		It("should translate each byte on its own at the segment end", func() {
			m.Store16(0x1000, 0xFFFF, 0x1234)
			Expect(m.Read8(emu.Translate(0x1000, 0xFFFF))).To(Equal(byte(0x34)))
			Expect(m.Read8(emu.Translate(0x1000, 0x0000))).To(Equal(byte(0x12)))
		})

		It("should wrap physical words at 1MB", func() {
			m.Write16(0xFFFFF, 0xABCD)
			Expect(m.Read8(0xFFFFF)).To(Equal(byte(0xCD)))
			Expect(m.Read8(0x00000)).To(Equal(byte(0xAB)))
		})
	})

	Describe("LoadAt", func() {
		It("should copy an image", func() {
			Expect(m.LoadAt(0x500, []byte{1, 2, 3})).To(Succeed())
			Expect(m.Slice(0x500, 3)).To(Equal([]byte{1, 2, 3}))
		})

		It("should accept an image ending exactly at the top", func() {
			Expect(m.LoadAt(emu.MemorySize-2, []byte{1, 2})).To(Succeed())
		})

		It("should reject an image that does not fit", func() {
			err := m.LoadAt(emu.MemorySize-2, []byte{1, 2, 3})
			Expect(err).To(MatchError(emu.ErrBinaryTooLarge))
		})
	})

	Describe("ports", func() {
		It("should keep a separate address space", func() {
			m.Out8(0x60, 0x42)
			Expect(m.In8(0x60)).To(Equal(byte(0x42)))
			Expect(m.Read8(0x60)).To(Equal(byte(0)))

			m.Out16(0x3F8, 0x1234)
			Expect(m.In16(0x3F8)).To(Equal(uint16(0x1234)))
		})
	})

	Describe("watcher", func() {
		It("should report reads and writes but not peeks", func() {
			w := &recordingWatcher{}
			m.SetWatcher(w)

			m.Write8(0x10, 1)
			m.Read8(0x10)
			m.Peek(0x10)

			Expect(w.accesses).To(Equal([]accessRecord{
				{emu.AccessWrite, 0x10},
				{emu.AccessRead, 0x10},
			}))
		})
	})
})
