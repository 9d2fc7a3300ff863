package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/bios"
	"github.com/sarchlab/sim8086/config"
	"github.com/sarchlab/sim8086/debug"
	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/loader"
	"github.com/sarchlab/sim8086/profile"
)

// machine is an emulator wired up according to a configuration.
type machine struct {
	emu      *emu.Emulator
	program  *loader.Program
	profiler *profile.Profiler
	logger   *logrus.Logger

	lua    *bios.LuaHandler
	server *debug.Server
	httpd  *http.Server
}

// newMachine loads the image at path and attaches the services and
// observers the configuration asks for.
func newMachine(
	cfg *config.Machine,
	path string,
	stdout io.Writer,
	stdin io.Reader,
	logger *logrus.Logger,
) (*machine, error) {
	opts, err := cfg.LoaderOptions()
	if err != nil {
		return nil, err
	}

	prog, err := loader.Load(path, opts)
	if err != nil {
		return nil, err
	}

	m := &machine{program: prog, logger: logger}

	var handlers bios.Chain
	if cfg.Script != "" {
		m.lua, err = bios.LoadLuaHandler(cfg.Script, stdout)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, m.lua)
	}
	if cfg.Console {
		handlers = append(handlers, bios.NewServices(
			bios.WithOutput(stdout),
			bios.WithInput(stdin),
			bios.WithLogger(logger),
		))
	}

	emuOpts := []emu.EmulatorOption{
		emu.WithMaxInstructions(cfg.MaxInstructions),
	}
	if len(handlers) > 0 {
		emuOpts = append(emuOpts, emu.WithInterruptHandler(handlers))
	}
	if cfg.Trace {
		emuOpts = append(emuOpts, emu.WithObserver(debug.NewTracer(
			debug.WithTraceOutput(stdout),
			debug.WithTraceLogger(logger),
			debug.WithRegisters(cfg.TraceRegisters),
			debug.WithColor(debug.IsTerminal(stdout)),
		)))
	} else {
		// faults are still logged
		emuOpts = append(emuOpts, emu.WithObserver(debug.NewTracer(
			debug.WithTraceOutput(nil),
			debug.WithTraceLogger(logger),
		)))
	}
	if cfg.DebugAddr != "" {
		m.server = debug.NewServer(
			debug.WithEvery(cfg.DebugEvery),
			debug.WithServerLogger(logger),
		)
		emuOpts = append(emuOpts, emu.WithObserver(m.server))
	}

	m.emu = emu.NewEmulator(emuOpts...)
	if err := prog.Apply(m.emu); err != nil {
		m.Close()
		return nil, err
	}
	cfg.Registers.Apply(m.emu.RegFile())

	if cfg.Profile {
		m.profiler, err = profile.NewProfiler(cfg.ICache.Profile(), cfg.DCache.Profile())
		if err != nil {
			m.Close()
			return nil, err
		}
		m.profiler.Attach(m.emu)
	}

	if m.server != nil {
		if err := m.serve(cfg.DebugAddr); err != nil {
			m.Close()
			return nil, err
		}
	}

	return m, nil
}

func (m *machine) serve(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/state", m.server)
	m.httpd = &http.Server{Handler: mux}

	m.logger.WithField("addr", ln.Addr().String()).Info("debug stream listening on /state")
	go func() {
		if err := m.httpd.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.WithField("err", err).Error("debug server stopped")
		}
	}()
	return nil
}

// run executes until the program halts, exits or faults. The returned
// code is the program's exit status, or 0 after HLT.
func (m *machine) run(ctx context.Context) (int64, error) {
	r := m.emu.RegFile()
	m.logger.WithFields(logrus.Fields{
		"format": m.program.Format.String(),
		"cs":     fmt.Sprintf("%04X", r.CS),
		"ip":     fmt.Sprintf("%04X", r.IP),
		"bytes":  m.program.Size(),
	}).Debug("program loaded")

	if err := m.emu.Run(ctx); err != nil {
		return 1, err
	}
	return m.emu.ExitCode(), nil
}

// Close releases the script state and stops the debug server.
func (m *machine) Close() {
	if m.lua != nil {
		m.lua.Close()
	}
	if m.server != nil {
		m.server.Close()
	}
	if m.httpd != nil {
		_ = m.httpd.Close()
	}
}
