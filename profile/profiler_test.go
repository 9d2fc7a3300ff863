package profile_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/profile"
)

var _ = Describe("Profiler", func() {
	var (
		p *profile.Profiler
		e *emu.Emulator
	)

	BeforeEach(func() {
		var err error
		p, err = profile.NewProfiler(profile.DefaultICacheConfig(), profile.DefaultDCacheConfig())
		Expect(err).NotTo(HaveOccurred())

		e = emu.NewEmulator()
		p.Attach(e)
		Expect(e.LoadProgram(0, 0x100, []byte{
			0xB9, 0x0A, 0x00, // MOV CX, 10
			0xFF, 0x06, 0x00, 0x02, // INC word [0200h]
			0xE2, 0xFA, // LOOP -6
			0xF4, // HLT
		})).To(Succeed())
	})

	It("should separate fetches from data accesses", func() {
		Expect(runToHalt(e)).To(Succeed())

		r := p.Report()
		Expect(r.Fetches).To(Equal(uint64(3 + 10*6 + 1)))
		Expect(r.Reads).To(Equal(uint64(20)))
		Expect(r.Writes).To(Equal(uint64(20)))
		Expect(e.Memory().Peek(0x200)).To(Equal(byte(10)))
	})

	It("should hit after the first touch of each line", func() {
		Expect(runToHalt(e)).To(Succeed())
		p.Reset()
		e.RegFile().IP = 0x100
		Expect(runToHalt(e)).To(Succeed())

		r := p.Report()
		Expect(r.ICache.Misses).To(Equal(uint64(1)))
		Expect(r.ICache.Hits).To(Equal(r.Fetches - 1))
		Expect(r.DCache.Misses).To(Equal(uint64(1)))
		Expect(r.MemoryCycles).To(Equal(
			r.ICache.Misses*8 + r.ICache.Hits + r.DCache.Misses*8 + r.DCache.Hits))
	})

	It("should print a report", func() {
		Expect(runToHalt(e)).To(Succeed())
		var buf bytes.Buffer
		p.Report().Print(&buf)
		Expect(buf.String()).To(ContainSubstring("I-cache:"))
		Expect(buf.String()).To(ContainSubstring("D-cache:"))
	})

	It("should reject a bad geometry", func() {
		_, err := profile.NewProfiler(profile.Config{}, profile.DefaultDCacheConfig())
		Expect(err).To(MatchError(ContainSubstring("instruction cache")))
	})
})

func runToHalt(e *emu.Emulator) error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}
