// Package main provides a profiling wrapper for sim8086 that reports
// host CPU and heap profiles alongside the guest's cache behavior.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/bios"
	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/loader"
	"github.com/sarchlab/sim8086/profile"
)

var (
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	format      = flag.String("format", "auto", "Image format: auto, raw, com or exe")
	noCache     = flag.Bool("no-cache", false, "Skip the cache models")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			logrus.WithField("err", err).Fatal("failed to create CPU profile")
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			logrus.WithField("err", err).Fatal("failed to start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	f, err := loader.ParseFormat(*format)
	if err != nil {
		logrus.WithField("err", err).Fatal("invalid format")
	}
	prog, err := loader.Load(programPath, loader.Options{Format: f})
	if err != nil {
		logrus.WithField("err", err).Fatal("failed to load program")
	}

	fmt.Printf("Loaded: %s (%v, %d bytes)\n", programPath, prog.Format, prog.Size())
	fmt.Printf("Entry point: %04X:%04X\n", prog.CS, prog.IP)

	e := emu.NewEmulator(
		emu.WithInterruptHandler(bios.NewServices(bios.WithOutput(os.Stdout))),
		emu.WithMaxInstructions(*instruction),
	)
	if err := prog.Apply(e); err != nil {
		logrus.WithField("err", err).Fatal("failed to load program")
	}

	var profiler *profile.Profiler
	if !*noCache {
		profiler, err = profile.NewProfiler(profile.DefaultICacheConfig(), profile.DefaultDCacheConfig())
		if err != nil {
			logrus.WithField("err", err).Fatal("failed to create profiler")
		}
		profiler.Attach(e)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	err = e.Run(ctx)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Printf("\nTimeout reached after %v - stopped execution\n", *duration)
	case err != nil:
		fmt.Printf("\nStopped: %v\n", err)
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			logrus.WithField("err", err).Fatal("failed to create memory profile")
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			logrus.WithField("err", err).Error("failed to write memory profile")
		}
	}

	instrCount := e.InstructionCount()
	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Exit code: %d\n", e.ExitCode())
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if profiler != nil {
		fmt.Println()
		profiler.Report().Print(os.Stdout)
	}
}
