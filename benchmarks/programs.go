package benchmarks

import "github.com/sarchlab/sim8086/emu"

// GetMicrobenchmarks returns the standard set of benchmark programs.
// Each one exits through INT 21h AH=4Ch with its result in AL.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		countdownLoop(),
		memorySequential(),
		functionCalls(),
		branchHeavy(),
		stringCompare(),
		factorial(),
		bcdAdd(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countdownLoop(),
		memorySequential(),
		branchHeavy(),
	}
}

// Program assembles byte fragments into one image.
func Program(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Exit returns MOV AH, 4Ch; INT 21h.
func Exit() []byte {
	return []byte{0xB4, 0x4C, 0xCD, 0x21}
}

// MovImm16 encodes MOV reg16, imm16.
func MovImm16(reg emu.Reg, v uint16) []byte {
	return []byte{0xB8 + byte(reg), byte(v), byte(v >> 8)}
}

// Loop encodes LOOP back to a target bodyLen bytes before the LOOP.
func Loop(bodyLen int) []byte {
	return []byte{0xE2, byte(-(bodyLen + 2))}
}

func arithmeticSequential() Benchmark {
	body := make([]byte, 0, 60)
	for i := 0; i < 20; i++ {
		body = append(body, 0x05, 0x01, 0x00) // ADD AX, 1
	}
	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADD AX, imm16 in straight-line code",
		Program:      Program(MovImm16(emu.AX, 0), body, Exit()),
		ExpectedExit: 20,
	}
}

func countdownLoop() Benchmark {
	return Benchmark{
		Name:        "countdown_loop",
		Description: "INC AX inside a 100-iteration LOOP",
		Program: Program(
			MovImm16(emu.CX, 100),
			[]byte{0x31, 0xC0}, // XOR AX, AX
			[]byte{0x40},       // INC AX
			Loop(1),
			Exit(),
		),
		ExpectedExit: 100,
	}
}

func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "REP STOSW fills 32 words, then a LODSW loop sums them",
		Program: Program(
			MovImm16(emu.DI, 0x0200),
			MovImm16(emu.CX, 32),
			MovImm16(emu.AX, 1),
			[]byte{0xFC},       // CLD
			[]byte{0xF3, 0xAB}, // REP STOSW
			MovImm16(emu.SI, 0x0200),
			MovImm16(emu.CX, 32),
			[]byte{0x31, 0xDB}, // XOR BX, BX
			[]byte{
				0xAD,       // LODSW
				0x01, 0xC3, // ADD BX, AX
			},
			Loop(3),
			[]byte{0x89, 0xD8}, // MOV AX, BX
			Exit(),
		),
		ExpectedExit: 32,
	}
}

func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "10 near CALL/RET pairs to a function adding 3",
		Program: Program(
			MovImm16(emu.CX, 10),
			[]byte{0x31, 0xC0},       // XOR AX, AX
			[]byte{0xE8, 0x06, 0x00}, // CALL f
			Loop(3),
			Exit(),
			[]byte{0x05, 0x03, 0x00}, // f: ADD AX, 3
			[]byte{0xC3},             // RET
		),
		ExpectedExit: 30,
	}
}

func branchHeavy() Benchmark {
	return Benchmark{
		Name:        "branch_heavy",
		Description: "counts odd numbers below 50 with a JZ per iteration",
		Program: Program(
			MovImm16(emu.CX, 50),
			[]byte{0x31, 0xC0}, // XOR AX, AX
			[]byte{0x31, 0xD2}, // XOR DX, DX
			[]byte{
				0xF6, 0xC2, 0x01, // TEST DL, 1
				0x74, 0x01, // JZ +1
				0x40, // INC AX
				0x42, // INC DX
			},
			Loop(7),
			Exit(),
		),
		ExpectedExit: 25,
	}
}

func stringCompare() Benchmark {
	return Benchmark{
		Name:        "string_compare",
		Description: "REPE CMPSB over 16 bytes that differ at index 14",
		Setup: func(regs *emu.RegFile, memory *emu.Memory) {
			a := []byte("ABCDEFGHIJKLMNOP")
			b := []byte("ABCDEFGHIJKLMNXP")
			for i := range a {
				memory.Store8(regs.DS, 0x200+uint16(i), a[i])
				memory.Store8(regs.ES, 0x300+uint16(i), b[i])
			}
		},
		Program: Program(
			MovImm16(emu.SI, 0x0200),
			MovImm16(emu.DI, 0x0300),
			MovImm16(emu.CX, 16),
			[]byte{0xFC},       // CLD
			[]byte{0xF3, 0xA6}, // REPE CMPSB
			[]byte{0xB0, 0x10}, // MOV AL, 16
			[]byte{0x28, 0xC8}, // SUB AL, CL
			Exit(),
		),
		ExpectedExit: 15,
	}
}

func factorial() Benchmark {
	return Benchmark{
		Name:        "factorial",
		Description: "7! with MUL in a loop, then DIV by 100",
		Program: Program(
			MovImm16(emu.AX, 1),
			MovImm16(emu.CX, 7),
			[]byte{0xF7, 0xE1}, // MUL CX
			Loop(2),
			MovImm16(emu.BX, 100),
			[]byte{0xF7, 0xF3}, // DIV BX
			Exit(),
		),
		ExpectedExit: 50,
	}
}

func bcdAdd() Benchmark {
	return Benchmark{
		Name:        "bcd_add",
		Description: "packed BCD 19 + 28 with DAA",
		Program: Program(
			[]byte{0xB0, 0x19}, // MOV AL, 19h
			[]byte{0x04, 0x28}, // ADD AL, 28h
			[]byte{0x27},       // DAA
			Exit(),
		),
		ExpectedExit: 0x47,
	}
}
