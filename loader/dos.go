package loader

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sarchlab/sim8086/emu"
)

const (
	pspSize = 0x100

	// maxCOMSize leaves room for the PSP and the initial stack word.
	maxCOMSize = 0x10000 - pspSize - 2

	mzHeaderSize = 0x1C
	pageSize     = 512
	paragraph    = 16

	// topOfMemory is the segment stored at PSP:0002.
	topOfMemory = 0xA000
)

// ErrBadHeader is returned when an MZ header is malformed.
var ErrBadHeader = errors.New("malformed MZ header")

// buildPSP returns a minimal program segment prefix. PSP:0000 holds
// INT 20h so a near RET to offset 0 terminates the program.
func buildPSP() []byte {
	psp := make([]byte, pspSize)
	psp[0x00], psp[0x01] = 0xCD, 0x20
	binary.LittleEndian.PutUint16(psp[0x02:], topOfMemory)
	psp[0x80] = 0
	psp[0x81] = 0x0D
	return psp
}

func checkLoadSegment(psp uint16) error {
	if psp > MaxLoadSegment {
		return fmt.Errorf("%w: load segment %04X is above %04X",
			emu.ErrBinaryTooLarge, psp, MaxLoadSegment)
	}
	return nil
}

func parseCOM(data []byte, opts Options) (*Program, error) {
	if len(data) > maxCOMSize {
		return nil, fmt.Errorf("%w: COM image is %d bytes", emu.ErrBinaryTooLarge, len(data))
	}

	psp := opts.LoadSegment
	if err := checkLoadSegment(psp); err != nil {
		return nil, err
	}
	base := uint32(psp) << 4

	return &Program{
		Format: FormatCOM,
		Segments: []Segment{
			{Addr: base, Data: buildPSP()},
			{Addr: base + pspSize, Data: data},
			// zero return address at the top of the stack
			{Addr: base + 0xFFFE, Data: []byte{0, 0}},
		},
		CS: psp, IP: pspSize,
		SS: psp, SP: 0xFFFE,
		DS: psp, ES: psp,
	}, nil
}

// MZHeader is the fixed part of a DOS executable header.
type MZHeader struct {
	Signature     uint16
	LastPageBytes uint16
	Pages         uint16
	Relocations   uint16
	HeaderParas   uint16
	MinAlloc      uint16
	MaxAlloc      uint16
	SS            uint16
	SP            uint16
	Checksum      uint16
	IP            uint16
	CS            uint16
	RelocOffset   uint16
	Overlay       uint16
}

// ImageSize returns the size of the load module following the header.
func (h *MZHeader) ImageSize() int {
	size := int(h.Pages) * pageSize
	if h.LastPageBytes != 0 {
		size -= pageSize - int(h.LastPageBytes)
	}
	return size - int(h.HeaderParas)*paragraph
}

// ParseMZHeader decodes the header at the start of data.
func ParseMZHeader(data []byte) (*MZHeader, error) {
	if len(data) < mzHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(data))
	}

	w := func(off int) uint16 { return binary.LittleEndian.Uint16(data[off:]) }
	h := &MZHeader{
		Signature:     w(0x00),
		LastPageBytes: w(0x02),
		Pages:         w(0x04),
		Relocations:   w(0x06),
		HeaderParas:   w(0x08),
		MinAlloc:      w(0x0A),
		MaxAlloc:      w(0x0C),
		SS:            w(0x0E),
		SP:            w(0x10),
		Checksum:      w(0x12),
		IP:            w(0x14),
		CS:            w(0x16),
		RelocOffset:   w(0x18),
		Overlay:       w(0x1A),
	}

	if h.Signature != 0x5A4D && h.Signature != 0x4D5A {
		return nil, fmt.Errorf("%w: bad signature %04X", ErrBadHeader, h.Signature)
	}
	if h.LastPageBytes >= pageSize {
		return nil, fmt.Errorf("%w: last page holds %d bytes", ErrBadHeader, h.LastPageBytes)
	}

	return h, nil
}

func parseEXE(data []byte, opts Options) (*Program, error) {
	h, err := ParseMZHeader(data)
	if err != nil {
		return nil, err
	}

	start := int(h.HeaderParas) * paragraph
	size := h.ImageSize()
	if size < 0 || start+size > len(data) {
		return nil, fmt.Errorf("%w: image spans %d bytes from 0x%X, file has %d",
			ErrBadHeader, size, start, len(data))
	}

	relocEnd := int(h.RelocOffset) + int(h.Relocations)*4
	if h.Relocations > 0 && relocEnd > len(data) {
		return nil, fmt.Errorf("%w: relocation table past end of file", ErrBadHeader)
	}

	psp := opts.LoadSegment
	if err := checkLoadSegment(psp); err != nil {
		return nil, err
	}
	loadSeg := psp + pspSize/paragraph
	base := uint32(loadSeg) << 4
	if uint64(base)+uint64(size) > emu.MemorySize {
		return nil, fmt.Errorf("%w: EXE image is %d bytes", emu.ErrBinaryTooLarge, size)
	}

	image := make([]byte, size)
	copy(image, data[start:start+size])

	for i := 0; i < int(h.Relocations); i++ {
		entry := data[int(h.RelocOffset)+i*4:]
		off := binary.LittleEndian.Uint16(entry)
		seg := binary.LittleEndian.Uint16(entry[2:])

		pos := int(seg)*paragraph + int(off)
		if pos+2 > len(image) {
			return nil, fmt.Errorf("%w: relocation %d at %04X:%04X outside image",
				ErrBadHeader, i, seg, off)
		}
		v := binary.LittleEndian.Uint16(image[pos:])
		binary.LittleEndian.PutUint16(image[pos:], v+loadSeg)
	}

	return &Program{
		Format: FormatEXE,
		Segments: []Segment{
			{Addr: uint32(psp) << 4, Data: buildPSP()},
			{Addr: base, Data: image},
		},
		CS: loadSeg + h.CS, IP: h.IP,
		SS: loadSeg + h.SS, SP: h.SP,
		DS: psp, ES: psp,
	}, nil
}
