// Package main provides the entry point for sim8086.
// sim8086 is an instruction-level Intel 8086 emulator.
//
// For the full CLI, use: go run ./cmd/sim8086
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("sim8086 - Intel 8086 Emulator")
	fmt.Println("")
	fmt.Println("Usage: sim8086 [options] <program.com|program.exe|image.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config     Machine configuration (JSON or YAML)")
	fmt.Println("  -trace      Print every executed instruction")
	fmt.Println("  -script     Lua interrupt script")
	fmt.Println("  -profile    Report cache statistics")
	fmt.Println("  -debug-addr Serve a websocket state stream")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/sim8086' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/sim8086' instead.")
	}
}
