// Command benchmark runs the sim8086 benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv         Output results in CSV format (default: human-readable)
//	-json        Output results in JSON format
//	-core        Run only the core benchmarks
//	-no-profile  Disable cache profiling
//
// Example:
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/benchmarks"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	core := flag.Bool("core", false, "Run only the core benchmarks")
	noProfile := flag.Bool("no-profile", false, "Disable cache profiling")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableProfile = !*noProfile
	config.Verbose = *verbose
	config.Output = os.Stdout

	harness := benchmarks.NewHarness(config)
	if *core {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("sim8086 Benchmark Harness")
		fmt.Println("=========================")
		fmt.Printf("Cache profiling: %v\n", config.EnableProfile)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			logrus.WithField("err", err).Fatal("failed to write JSON report")
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
		s := benchmarks.Summarize(results)
		fmt.Printf("=== Summary: %d/%d passed, %d instructions ===\n",
			s.Passed, s.TotalBenchmarks, s.TotalInstructions)
	}

	if s := benchmarks.Summarize(results); s.Passed != s.TotalBenchmarks {
		os.Exit(1)
	}
}
