// Package debug provides emulator observers for tracing and live
// inspection.
package debug

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sarchlab/sim8086/emu"
	"github.com/sarchlab/sim8086/insts"
)

// Tracer writes one line per executed instruction and logs faults.
type Tracer struct {
	out       io.Writer
	logger    *logrus.Logger
	registers bool

	addr  *color.Color
	mnem  *color.Color
	regs  *color.Color
	fault *color.Color

	cs, ip uint16
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTraceOutput sets where the instruction listing goes. A nil writer
// disables the listing; faults are still logged.
func WithTraceOutput(w io.Writer) TracerOption {
	return func(t *Tracer) {
		t.out = w
	}
}

// WithTraceLogger sets the logger for faults and trace-level events.
func WithTraceLogger(l *logrus.Logger) TracerOption {
	return func(t *Tracer) {
		t.logger = l
	}
}

// WithRegisters adds a register dump after every instruction.
func WithRegisters(on bool) TracerOption {
	return func(t *Tracer) {
		t.registers = on
	}
}

// WithColor forces colored output on or off.
func WithColor(on bool) TracerOption {
	return func(t *Tracer) {
		for _, c := range []*color.Color{t.addr, t.mnem, t.regs, t.fault} {
			if on {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
	}
}

// NewTracer creates a tracer writing to stdout. Color is used when
// stdout is a terminal.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		out:    os.Stdout,
		logger: logrus.StandardLogger(),
		addr:   color.New(color.FgCyan),
		mnem:   color.New(color.FgGreen),
		regs:   color.New(color.FgHiBlack),
		fault:  color.New(color.FgRed, color.Bold),
	}
	WithColor(IsTerminal(os.Stdout))(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// BeforeStep records the address of the instruction.
func (t *Tracer) BeforeStep(_ *insts.Instruction, regs emu.RegFile) {
	t.cs, t.ip = regs.CS, regs.IP
}

// AfterStep prints the executed instruction.
func (t *Tracer) AfterStep(inst *insts.Instruction, regs emu.RegFile) {
	if t.logger.IsLevelEnabled(logrus.TraceLevel) {
		t.logger.WithFields(logrus.Fields{
			"cs":       fmt.Sprintf("%04X", t.cs),
			"ip":       fmt.Sprintf("%04X", t.ip),
			"opcode":   fmt.Sprintf("%02X", inst.Opcode),
			"mnemonic": inst.String(),
		}).Trace("step")
	}

	if t.out == nil {
		return
	}

	fmt.Fprintf(t.out, "%s  %s\n",
		t.addr.Sprintf("%04X:%04X", t.cs, t.ip),
		t.mnem.Sprint(inst.String()))
	if t.registers {
		fmt.Fprintf(t.out, "           %s\n", t.regs.Sprint(regs.String()))
	}
}

// Fault logs the fault with the machine state.
func (t *Tracer) Fault(f *emu.Fault) {
	fields := logrus.Fields{
		"cs":       fmt.Sprintf("%04X", f.CS),
		"ip":       fmt.Sprintf("%04X", f.IP),
		"mnemonic": f.Mnemonic(),
		"err":      f.Err,
	}
	if f.Inst != nil {
		fields["opcode"] = fmt.Sprintf("%02X", f.Inst.Opcode)
	}
	for r := emu.AX; r <= emu.DI; r++ {
		fields[r.String()] = fmt.Sprintf("%04X", f.Regs.GP[r])
	}
	t.logger.WithFields(fields).Error("execution fault")

	if t.out != nil {
		fmt.Fprintf(t.out, "%s  %s\n",
			t.addr.Sprintf("%04X:%04X", f.CS, f.IP),
			t.fault.Sprintf("fault: %v", f.Err))
	}
}
