// Package bios provides interrupt services for programs running on the
// emulator: video teletype output, keyboard input and the small subset
// of DOS INT 21h that console programs use.
package bios

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sim8086/emu"
)

// Interrupt vectors serviced by Services.
const (
	VectorVideo     uint8 = 0x10
	VectorKeyboard  uint8 = 0x16
	VectorTerminate uint8 = 0x20
	VectorDOS       uint8 = 0x21
)

// maxStringLen bounds the scan for the '$' terminator of INT 21h AH=09h.
const maxStringLen = 0x10000

// eofChar is returned by the input services at end of input.
const eofChar = 0x1A

// Services implements emu.InterruptHandler for the video, keyboard and
// DOS vectors. Functions it does not know are left unclaimed.
type Services struct {
	out    io.Writer
	in     *bufio.Reader
	logger logrus.FieldLogger
}

// Option configures Services.
type Option func(*Services)

// WithOutput sets the console output.
func WithOutput(w io.Writer) Option {
	return func(s *Services) {
		s.out = w
	}
}

// WithInput sets the console input. A nil reader leaves input empty.
func WithInput(r io.Reader) Option {
	return func(s *Services) {
		if r != nil {
			s.in = bufio.NewReader(r)
		}
	}
}

// WithLogger sets the logger used for unclaimed functions.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Services) {
		s.logger = l
	}
}

// NewServices creates interrupt services. Output is discarded and
// input is empty unless configured.
func NewServices(opts ...Option) *Services {
	s := &Services{
		out:    io.Discard,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.in == nil {
		s.in = bufio.NewReader(eofReader{})
	}
	return s
}

// HandleInterrupt implements emu.InterruptHandler.
func (s *Services) HandleInterrupt(e *emu.Emulator, vector uint8) (bool, error) {
	r := e.RegFile()
	ah := uint8(r.Get(emu.AH))

	var (
		handled bool
		err     error
	)
	switch vector {
	case VectorVideo:
		handled, err = s.video(e, ah)
	case VectorKeyboard:
		handled, err = s.keyboard(e, ah)
	case VectorTerminate:
		e.Exit(0)
		handled = true
	case VectorDOS:
		handled, err = s.dos(e, ah)
	}

	if !handled && err == nil {
		s.logger.WithFields(logrus.Fields{
			"vector": fmt.Sprintf("%02Xh", vector),
			"ah":     fmt.Sprintf("%02Xh", ah),
		}).Debug("interrupt not serviced")
	}
	return handled, err
}

func (s *Services) video(e *emu.Emulator, ah uint8) (bool, error) {
	r := e.RegFile()
	switch ah {
	case 0x0E:
		return true, s.write(byte(r.Get(emu.AL)))
	case 0x0F:
		// 80x25 colour text, page 0
		r.SetWord(emu.AX, 80<<8|0x03)
		r.SetWord(emu.BX, r.Word(emu.BX)&0x00FF)
		return true, nil
	}
	return false, nil
}

func (s *Services) keyboard(e *emu.Emulator, ah uint8) (bool, error) {
	if ah != 0x00 {
		return false, nil
	}
	ch, err := s.read()
	if err != nil {
		return true, err
	}
	e.RegFile().SetWord(emu.AX, uint16(ch))
	return true, nil
}

func (s *Services) dos(e *emu.Emulator, ah uint8) (bool, error) {
	r := e.RegFile()
	switch ah {
	case 0x00:
		e.Exit(0)
	case 0x01, 0x08:
		ch, err := s.read()
		if err != nil {
			return true, err
		}
		_ = r.Set(emu.AL, uint32(ch))
		if ah == 0x01 {
			return true, s.write(ch)
		}
	case 0x02:
		dl := byte(r.Get(emu.DL))
		_ = r.Set(emu.AL, uint32(dl))
		return true, s.write(dl)
	case 0x06:
		dl := byte(r.Get(emu.DL))
		if dl != 0xFF {
			_ = r.Set(emu.AL, uint32(dl))
			return true, s.write(dl)
		}
		// no character waiting
		_ = r.Set(emu.AL, 0)
		SetReturnFlag(e, emu.FlagZF, true)
	case 0x09:
		return true, s.writeString(e)
	case 0x30:
		r.SetWord(emu.AX, 0x0005)
		r.SetWord(emu.BX, 0)
		r.SetWord(emu.CX, 0)
	case 0x4C:
		e.Exit(int64(r.Get(emu.AL)))
	default:
		return false, nil
	}
	return true, nil
}

// writeString prints the '$'-terminated string at DS:DX.
func (s *Services) writeString(e *emu.Emulator) error {
	r := e.RegFile()
	m := e.Memory()
	off := r.Word(emu.DX)

	buf := make([]byte, 0, 64)
	for i := 0; i < maxStringLen; i++ {
		b := m.Load8(r.DS, off+uint16(i))
		if b == '$' {
			_, err := s.out.Write(buf)
			return err
		}
		buf = append(buf, b)
	}
	return fmt.Errorf("string at %04X:%04X has no terminator", r.DS, off)
}

func (s *Services) write(b byte) error {
	_, err := s.out.Write([]byte{b})
	return err
}

func (s *Services) read() (byte, error) {
	b, err := s.in.ReadByte()
	if errors.Is(err, io.EOF) {
		return eofChar, nil
	}
	return b, err
}

// SetReturnFlag changes a flag in the FLAGS word saved by the interrupt
// sequence, so the interrupted program sees it after the return. It
// must only be called from inside HandleInterrupt.
func SetReturnFlag(e *emu.Emulator, flag uint16, on bool) {
	r := e.RegFile()
	off := r.GP[emu.SP] + 4
	flags := e.Memory().Load16(r.SS, off)
	if on {
		flags |= flag
	} else {
		flags &^= flag
	}
	e.Memory().Store16(r.SS, off, flags)
}

// Chain tries each handler in order. The first to claim a vector wins.
type Chain []emu.InterruptHandler

// HandleInterrupt implements emu.InterruptHandler.
func (c Chain) HandleInterrupt(e *emu.Emulator, vector uint8) (bool, error) {
	for _, h := range c {
		handled, err := h.HandleInterrupt(e, vector)
		if err != nil || handled {
			return handled, err
		}
	}
	return false, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
