package insts_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/sim8086/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("Register forms", func() {
		// ADD AL, BL -> 00 D8 (mod=11 reg=BL rm=AL)
		It("should decode ADD Eb, Gb", func() {
			inst := decoder.Decode([]byte{0x00, 0xD8})

			Expect(inst.Op()).To(Equal(insts.OpADD))
			Expect(inst.HasModRM).To(BeTrue())
			Expect(inst.Mod).To(Equal(uint8(3)))
			Expect(inst.Reg).To(Equal(uint8(3)))
			Expect(inst.RM).To(Equal(uint8(0)))
			Expect(inst.D).To(Equal(uint8(0)))
			Expect(inst.W).To(Equal(uint8(0)))
			Expect(inst.IsRegisterForm()).To(BeTrue())
			Expect(inst.Len()).To(Equal(2))
		})

		// MOV AL, 5 -> B0 05
		It("should decode MOV AL, Ib without ModR/M", func() {
			inst := decoder.Decode([]byte{0xB0, 0x05})

			Expect(inst.Op()).To(Equal(insts.OpMOV))
			Expect(inst.Info.Dst).To(Equal(insts.SpecAL))
			Expect(inst.Info.Src).To(Equal(insts.SpecIb))
			Expect(inst.HasModRM).To(BeFalse())
			Expect(inst.HeaderLen()).To(Equal(1))
			Expect(inst.Len()).To(Equal(2))
		})

		// MOV BX, 0x1234 -> BB 34 12
		It("should decode MOV r16, Iv", func() {
			inst := decoder.Decode([]byte{0xBB, 0x34, 0x12})

			Expect(inst.Info.Dst).To(Equal(insts.SpecBX))
			Expect(inst.W).To(Equal(uint8(1)))
			Expect(inst.Len()).To(Equal(3))
		})
	})

	Describe("Memory forms", func() {
		// MOV [0x1234], AX -> 89 06 34 12
		It("should count a direct address displacement", func() {
			inst := decoder.Decode([]byte{0x89, 0x06, 0x34, 0x12})

			Expect(inst.Mod).To(Equal(uint8(0)))
			Expect(inst.RM).To(Equal(uint8(6)))
			Expect(inst.DispLen()).To(Equal(2))
			Expect(inst.Len()).To(Equal(4))
		})

		// ADD WORD [BX+SI+0x10], 0x1234 -> 81 40 10 34 12
		It("should count disp8 and an immediate word", func() {
			inst := decoder.Decode([]byte{0x81, 0x40, 0x10, 0x34, 0x12})

			Expect(inst.Op()).To(Equal(insts.OpADD))
			Expect(inst.DispLen()).To(Equal(1))
			Expect(inst.Len()).To(Equal(5))
		})

		// CMP WORD [BP+DI+0x1000], -1 -> 83 BB 00 10 FF
		It("should count disp16 and a sign-extended byte", func() {
			inst := decoder.Decode([]byte{0x83, 0xBB, 0x00, 0x10, 0xFF})

			Expect(inst.Op()).To(Equal(insts.OpCMP))
			Expect(inst.DispLen()).To(Equal(2))
			Expect(inst.Len()).To(Equal(5))
		})
	})

	Describe("Prefixes", func() {
		It("should record a segment override", func() {
			inst := decoder.Decode([]byte{0x26, 0x8B, 0x07})

			Expect(inst.SegOverride).To(Equal(insts.SegES))
			Expect(inst.PrefixLen).To(Equal(1))
			Expect(inst.Opcode).To(Equal(byte(0x8B)))
			Expect(inst.Len()).To(Equal(3))
		})

		It("should keep the last of several overrides", func() {
			inst := decoder.Decode([]byte{0x26, 0x2E, 0x36, 0x8B, 0x07})

			Expect(inst.SegOverride).To(Equal(insts.SegSS))
			Expect(inst.PrefixLen).To(Equal(3))
		})

		It("should record repeat prefixes", func() {
			inst := decoder.Decode([]byte{0xF3, 0xA4})
			Expect(inst.Rep).To(Equal(insts.RepZ))
			Expect(inst.Op()).To(Equal(insts.OpMOVSB))

			inst = decoder.Decode([]byte{0xF2, 0xAE})
			Expect(inst.Rep).To(Equal(insts.RepNZ))
			Expect(inst.Op()).To(Equal(insts.OpSCASB))
		})

		It("should read past a long prefix run", func() {
			code := append(bytes.Repeat([]byte{0x26}, 16), 0xB0, 0x05)
			inst := decoder.DecodeFunc(func(n int) byte {
				if n < len(code) {
					return code[n]
				}
				return 0
			})

			Expect(inst.PrefixLen).To(Equal(16))
			Expect(inst.Op()).To(Equal(insts.OpMOV))
			Expect(inst.Info.Src).To(Equal(insts.SpecIb))
			Expect(inst.Len()).To(Equal(18))
		})

		It("should leave a prefix in the opcode slot when prefixes never end", func() {
			inst := decoder.DecodeFunc(func(int) byte { return 0x3E })

			Expect(inst.Op()).To(Equal(insts.OpPrefix))
			Expect(inst.Opcode).To(Equal(byte(0x3E)))
		})
	})

	Describe("Groups", func() {
		// SHL AX, 1 -> D1 E0
		It("should resolve group entries by reg", func() {
			inst := decoder.Decode([]byte{0xD1, 0xE0})

			Expect(inst.Op()).To(Equal(insts.OpSHL))
			Expect(inst.Info.Src).To(Equal(insts.SpecOne))
			Expect(inst.Primary().IsGroup()).To(BeTrue())
		})

		It("should report unknown group slots", func() {
			inst := decoder.Decode([]byte{0xFE, 0xD0})

			Expect(inst.Op()).To(Equal(insts.OpUnknown))
			Expect(inst.String()).To(Equal("(unknown) FE /2"))
		})
	})

	Describe("Control flow", func() {
		It("should decode a far call", func() {
			inst := decoder.Decode([]byte{0x9A, 0x00, 0x01, 0x00, 0x20})

			Expect(inst.Op()).To(Equal(insts.OpCALL))
			Expect(inst.Info.Dst).To(Equal(insts.SpecAp))
			Expect(inst.Len()).To(Equal(5))
		})

		It("should decode a short jump", func() {
			inst := decoder.Decode([]byte{0x74, 0xFE})

			Expect(inst.Op()).To(Equal(insts.OpJZ))
			Expect(inst.Len()).To(Equal(2))
		})
	})

	Describe("String", func() {
		It("should render prefixes and operands", func() {
			Expect(decoder.Decode([]byte{0x26, 0x00, 0x07}).String()).To(Equal("ES: ADD Eb, Gb"))
			Expect(decoder.Decode([]byte{0xF3, 0xAB}).String()).To(Equal("REP STOSW"))
			Expect(decoder.Decode([]byte{0x0F}).String()).To(Equal("(invalid) 0F"))
		})
	})

	It("should read missing bytes as zero", func() {
		inst := decoder.Decode(nil)
		Expect(inst.Opcode).To(Equal(byte(0)))
		Expect(inst.Op()).To(Equal(insts.OpADD))
	})
})
