// Package loader provides program image loading for 8086 executables.
//
// Three formats are understood: raw binaries placed at a physical
// address, DOS .COM images and DOS MZ .EXE images.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sarchlab/sim8086/emu"
)

// Format is a program image format.
type Format uint8

const (
	// FormatAuto picks the format from the file extension and contents.
	FormatAuto Format = iota
	// FormatRaw is a flat binary.
	FormatRaw
	// FormatCOM is a DOS .COM image.
	FormatCOM
	// FormatEXE is a DOS MZ executable.
	FormatEXE
)

var formatNames = map[Format]string{
	FormatAuto: "auto",
	FormatRaw:  "raw",
	FormatCOM:  "com",
	FormatEXE:  "exe",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat converts a format name to a Format.
func ParseFormat(s string) (Format, error) {
	for f, name := range formatNames {
		if strings.EqualFold(s, name) {
			return f, nil
		}
	}
	return FormatAuto, fmt.Errorf("unknown image format %q", s)
}

// DefaultLoadSegment is the PSP segment used for COM and EXE images.
const DefaultLoadSegment = 0x1000

// MaxLoadSegment is the highest PSP segment whose 64KB lies below 1MB.
const MaxLoadSegment = 0xF000

// Options control where and how an image is placed.
type Options struct {
	Format Format

	// LoadSegment is the PSP segment for COM and EXE images.
	LoadSegment uint16

	// RawAddress is the physical load address of raw images.
	RawAddress uint32
}

// Segment is a block of bytes to copy into memory.
type Segment struct {
	// Addr is the physical address of the first byte.
	Addr uint32
	// Data contains the bytes.
	Data []byte
}

// Program represents a loaded image ready for execution.
type Program struct {
	Format   Format
	Segments []Segment

	CS, IP uint16
	SS, SP uint16
	DS, ES uint16
}

// Load reads an image file and lays it out according to opts.
func Load(path string, opts Options) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if opts.Format == FormatAuto {
		opts.Format = Detect(path, data)
	}

	return Parse(data, opts)
}

// Detect guesses the format of an image.
func Detect(path string, data []byte) Format {
	if bytes.HasPrefix(data, []byte("MZ")) || bytes.HasPrefix(data, []byte("ZM")) {
		return FormatEXE
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".com":
		return FormatCOM
	case ".exe":
		return FormatEXE
	}
	return FormatRaw
}

// Parse lays out an in-memory image. FormatAuto is treated as raw
// unless the data carries an MZ signature.
func Parse(data []byte, opts Options) (*Program, error) {
	if opts.LoadSegment == 0 {
		opts.LoadSegment = DefaultLoadSegment
	}

	format := opts.Format
	if format == FormatAuto {
		format = Detect("", data)
	}

	switch format {
	case FormatRaw:
		return parseRaw(data, opts)
	case FormatCOM:
		return parseCOM(data, opts)
	case FormatEXE:
		return parseEXE(data, opts)
	}
	return nil, fmt.Errorf("unsupported format %v", format)
}

func parseRaw(data []byte, opts Options) (*Program, error) {
	if uint64(opts.RawAddress)+uint64(len(data)) > emu.MemorySize {
		return nil, fmt.Errorf("%w: %d bytes at 0x%05X", emu.ErrBinaryTooLarge, len(data), opts.RawAddress)
	}

	seg := uint16(opts.RawAddress >> 4)
	return &Program{
		Format:   FormatRaw,
		Segments: []Segment{{Addr: opts.RawAddress, Data: data}},
		CS:       seg,
		IP:       uint16(opts.RawAddress & 0xF),
		SS:       seg,
		SP:       0xFFFE,
		DS:       seg,
		ES:       seg,
	}, nil
}

// Apply copies the program into the emulator's memory and sets up the
// registers for its entry point.
func (p *Program) Apply(e *emu.Emulator) error {
	for _, s := range p.Segments {
		if err := e.Load(s.Addr, s.Data); err != nil {
			return fmt.Errorf("failed to load segment at 0x%05X: %w", s.Addr, err)
		}
	}

	r := e.RegFile()
	r.CS, r.IP = p.CS, p.IP
	r.SS, r.GP[emu.SP] = p.SS, p.SP
	r.DS, r.ES = p.DS, p.ES
	return nil
}

// Size returns the total number of bytes in all segments.
func (p *Program) Size() int {
	n := 0
	for _, s := range p.Segments {
		n += len(s.Data)
	}
	return n
}
