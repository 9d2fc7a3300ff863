// Validate decoder allocation behavior and throughput.
package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/sarchlab/sim8086/insts"
)

// samples covers register, memory, prefixed and group encodings.
var samples = [][]byte{
	{0x01, 0xD8},                         // ADD AX, BX
	{0x8B, 0x87, 0x34, 0x12},             // MOV AX, [BX+1234h]
	{0xC7, 0x87, 0x34, 0x12, 0x78, 0x56}, // MOV word [BX+1234h], 5678h
	{0x26, 0x88, 0x07},                   // ES: MOV [BX], AL
	{0xF3, 0xA5},                         // REP MOVSW
	{0xFF, 0x16, 0x00, 0x02},             // CALL [0200h]
	{0x9A, 0x00, 0x01, 0x00, 0x20},       // CALL 2000:0100
	{0xD1, 0xE0},                         // SHL AX, 1
}

func main() {
	decoder := insts.NewDecoder()

	// Expected lengths double as a correctness check.
	lengths := []int{2, 4, 6, 3, 2, 4, 5, 2}
	failed := false
	for i, code := range samples {
		inst := decoder.Decode(code)
		if inst.Len() != lengths[i] {
			fmt.Printf("FAIL: %v decoded with length %d, want %d\n", inst, inst.Len(), lengths[i])
			failed = true
		}
	}

	// Warm up
	for i := 0; i < 1000; i++ {
		decoder.Decode(samples[0])
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000
	for i := 0; i < iterations; i++ {
		for _, code := range samples {
			decoder.Decode(code)
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalDecodes := iterations * len(samples)
	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations per decode: %.2f\n", float64(allocations)/float64(totalDecodes))
	fmt.Printf("Bytes per decode: %.1f\n", float64(allocatedBytes)/float64(totalDecodes))

	if failed {
		os.Exit(1)
	}
}
