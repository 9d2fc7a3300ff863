// Package main provides the entry point for sim8086, an Intel 8086
// instruction-level emulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/config"
)

var (
	configPath  = flag.String("config", "", "Path to machine configuration (JSON or YAML)")
	format      = flag.String("format", "auto", "Image format: auto, raw, com or exe")
	loadSeg     = flag.Uint("load-seg", 0, "PSP segment for COM and EXE images")
	rawAddr     = flag.Uint("raw-addr", 0, "Physical load address for raw images")
	maxInstr    = flag.Uint64("max-instr", 0, "Max instructions to execute (0 = unlimited)")
	trace       = flag.Bool("trace", false, "Print every executed instruction")
	traceRegs   = flag.Bool("trace-regs", false, "Dump registers after every instruction")
	script      = flag.String("script", "", "Lua interrupt script")
	noConsole   = flag.Bool("no-console", false, "Disable the built-in BIOS and DOS services")
	debugAddr   = flag.String("debug-addr", "", "Serve a websocket state stream on this address")
	debugEvery  = flag.Uint64("debug-every", 1, "Stream one state update per N instructions")
	profileFlag = flag.Bool("profile", false, "Report cache statistics for memory accesses")
	logLevel    = flag.String("log-level", "info", "Log level")
	verbose     = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: sim8086 [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, err := loadConfig()
	if err != nil {
		logger.WithField("err", err).Fatal("invalid configuration")
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	programPath := flag.Arg(0)
	m, err := newMachine(cfg, programPath, os.Stdout, os.Stdin, logger)
	if err != nil {
		logger.WithField("err", err).Fatal("failed to set up machine")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	start := time.Now()
	exitCode, err := m.run(ctx)
	elapsed := time.Since(start)
	stop()
	m.Close()

	if err != nil {
		logger.WithFields(logrus.Fields{
			"program":      programPath,
			"instructions": m.emu.InstructionCount(),
		}).Errorf("execution stopped: %v", err)
	}

	if *verbose {
		fmt.Printf("\nProgram: %s\n", programPath)
		fmt.Printf("Exit code: %d\n", exitCode)
		fmt.Printf("Instructions executed: %d\n", m.emu.InstructionCount())
		fmt.Printf("Elapsed time: %v\n", elapsed)
	}
	if m.profiler != nil {
		fmt.Println()
		m.profiler.Report().Print(os.Stdout)
	}

	os.Exit(int(exitCode))
}

// loadConfig reads the configuration file, if any, then applies the
// flags that were set on the command line.
func loadConfig() (*config.Machine, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}

	applyFlags(cfg, flag.CommandLine)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cfg *config.Machine, fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Format = *format
		case "load-seg":
			cfg.LoadSegment = uint16(*loadSeg)
		case "raw-addr":
			cfg.RawAddress = uint32(*rawAddr)
		case "max-instr":
			cfg.MaxInstructions = *maxInstr
		case "trace":
			cfg.Trace = *trace
		case "trace-regs":
			cfg.TraceRegisters = *traceRegs
			cfg.Trace = cfg.Trace || *traceRegs
		case "script":
			cfg.Script = *script
		case "no-console":
			cfg.Console = !*noConsole
		case "debug-addr":
			cfg.DebugAddr = *debugAddr
		case "debug-every":
			cfg.DebugEvery = *debugEvery
		case "profile":
			cfg.Profile = *profileFlag
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
}
