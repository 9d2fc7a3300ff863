// Package benchmarks provides a harness that runs small 8086 programs
// and reports instruction counts and memory behavior.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sarchlab/sim8086/bios"
	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/loader"
	"github.com/sarchlab/sim8086/profile"
)

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark exercises
	Description string `json:"description"`

	// Instructions is the number of executed instructions
	Instructions uint64 `json:"instructions"`

	// MemoryCycles is the cache model's latency sum over all accesses
	MemoryCycles uint64 `json:"memory_cycles"`

	// CPI is memory cycles per instruction
	CPI float64 `json:"cpi"`

	Fetches uint64 `json:"fetches"`
	Reads   uint64 `json:"reads"`
	Writes  uint64 `json:"writes"`

	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// ExitCode is the program's exit code
	ExitCode int64 `json:"exit_code"`

	// Passed is true when the program exited with the expected code
	Passed bool `json:"passed"`

	// Error holds the fault message if the run failed
	Error string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the program
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark exercises
	Description string

	// Setup prepares memory and registers after the image is loaded
	Setup func(regs *emu.RegFile, memory *emu.Memory)

	// Program is a COM image; it ends with INT 21h AH=4Ch
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableProfile replays memory accesses through the cache models
	EnableProfile bool

	ICache profile.Config
	DCache profile.Config

	// MaxInstructions bounds each run
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableProfile:   true,
		ICache:          profile.DefaultICacheConfig(),
		DCache:          profile.DefaultDCacheConfig(),
		MaxInstructions: 1_000_000,
		Output:          os.Stdout,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))
	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}
	return results
}

func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	prog, err := loader.Parse(bench.Program, loader.Options{Format: loader.FormatCOM})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	e := emu.NewEmulator(
		emu.WithInterruptHandler(bios.NewServices()),
		emu.WithMaxInstructions(h.config.MaxInstructions),
	)
	if err := prog.Apply(e); err != nil {
		result.Error = err.Error()
		return result
	}
	if bench.Setup != nil {
		bench.Setup(e.RegFile(), e.Memory())
	}

	var profiler *profile.Profiler
	if h.config.EnableProfile {
		profiler, err = profile.NewProfiler(h.config.ICache, h.config.DCache)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		profiler.Attach(e)
	}

	start := time.Now()
	err = e.Run(context.Background())
	result.WallTime = time.Since(start)

	result.Instructions = e.InstructionCount()
	result.ExitCode = e.ExitCode()
	if err != nil {
		result.Error = err.Error()
	}
	result.Passed = err == nil && e.Exited() && result.ExitCode == bench.ExpectedExit

	if profiler != nil {
		r := profiler.Report()
		result.MemoryCycles = r.MemoryCycles
		result.Fetches, result.Reads, result.Writes = r.Fetches, r.Reads, r.Writes
		result.ICacheHits, result.ICacheMisses = r.ICache.Hits, r.ICache.Misses
		result.DCacheHits, result.DCacheMisses = r.DCache.Hits, r.DCache.Misses
		if result.Instructions > 0 {
			result.CPI = float64(result.MemoryCycles) / float64(result.Instructions)
		}
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== sim8086 Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		status := "ok"
		if !r.Passed {
			status = "FAILED"
		}
		_, _ = fmt.Fprintf(out, "Benchmark: %s [%s]\n", r.Name, status)
		_, _ = fmt.Fprintf(out, "  Description:  %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Exit Code:    %d\n", r.ExitCode)
		if r.Error != "" {
			_, _ = fmt.Fprintf(out, "  Error:        %s\n", r.Error)
		}
		_, _ = fmt.Fprintf(out, "  Instructions: %d\n", r.Instructions)

		if h.config.EnableProfile {
			_, _ = fmt.Fprintln(out, "  --- Memory ---")
			_, _ = fmt.Fprintf(out, "  Fetches/Reads/Writes: %d/%d/%d\n", r.Fetches, r.Reads, r.Writes)
			_, _ = fmt.Fprintf(out, "  Memory Cycles:        %d\n", r.MemoryCycles)
			_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
			_, _ = fmt.Fprintf(out, "  I-Cache hits/misses:  %d/%d\n", r.ICacheHits, r.ICacheMisses)
			_, _ = fmt.Fprintf(out, "  D-Cache hits/misses:  %d/%d\n", r.DCacheHits, r.DCacheMisses)
		}

		if h.config.Verbose {
			_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		}
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,instructions,memory_cycles,cpi,fetches,reads,writes,icache_hits,icache_misses,dcache_hits,dcache_misses,exit_code,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d,%t\n",
			r.Name,
			r.Instructions,
			r.MemoryCycles,
			r.CPI,
			r.Fetches,
			r.Reads,
			r.Writes,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitCode,
			r.Passed,
		)
	}
}

// BenchmarkReport is the JSON output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	Timestamp      string `json:"timestamp"`
	ProfileEnabled bool   `json:"profile_enabled"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	Passed            int           `json:"passed"`
	TotalInstructions uint64        `json:"total_instructions"`
	TotalMemoryCycles uint64        `json:"total_memory_cycles"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// Summarize aggregates results.
func Summarize(results []BenchmarkResult) ReportSummary {
	s := ReportSummary{TotalBenchmarks: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		}
		s.TotalInstructions += r.Instructions
		s.TotalMemoryCycles += r.MemoryCycles
		s.TotalWallTime += r.WallTime
	}
	return s
}

// PrintJSON outputs benchmark results in JSON format.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp:      time.Now().UTC().Format(time.RFC3339),
			ProfileEnabled: h.config.EnableProfile,
		},
		Results: results,
		Summary: Summarize(results),
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
