// Package emu provides functional Intel 8086 emulation.
package emu

import "fmt"

// MemorySize is the size of the physical address space (1MB).
const MemorySize = 1 << 20

// PortSpaceSize is the size of the I/O port space.
const PortSpaceSize = MemorySize

const addrMask = MemorySize - 1

// AccessKind classifies a memory access reported to an AccessWatcher.
type AccessKind uint8

// Access kinds.
const (
	AccessFetch AccessKind = iota
	AccessRead
	AccessWrite
)

func (k AccessKind) String() string {
	switch k {
	case AccessFetch:
		return "fetch"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	}
	return "?"
}

// AccessWatcher receives one call per byte accessed. It must not
// modify memory.
type AccessWatcher interface {
	MemoryAccess(kind AccessKind, addr uint32)
}

// Memory is the 1MB physical memory together with the port space.
type Memory struct {
	data    []byte
	ports   []byte
	watcher AccessWatcher
}

// NewMemory creates zeroed memory and port space.
func NewMemory() *Memory {
	return &Memory{
		data:  make([]byte, MemorySize),
		ports: make([]byte, PortSpaceSize),
	}
}

// Translate converts a segment:offset pair to a physical address,
// wrapping at 1MB.
func Translate(seg, off uint16) uint32 {
	return (uint32(seg)<<4 + uint32(off)) & addrMask
}

// SetWatcher installs w to observe reads and writes. nil removes it.
func (m *Memory) SetWatcher(w AccessWatcher) {
	m.watcher = w
}

// Watcher returns the installed access watcher.
func (m *Memory) Watcher() AccessWatcher {
	return m.watcher
}

// Read8 reads the byte at a physical address.
func (m *Memory) Read8(addr uint32) byte {
	addr &= addrMask
	if m.watcher != nil {
		m.watcher.MemoryAccess(AccessRead, addr)
	}
	return m.data[addr]
}

// Write8 writes the byte at a physical address.
func (m *Memory) Write8(addr uint32, v byte) {
	addr &= addrMask
	if m.watcher != nil {
		m.watcher.MemoryAccess(AccessWrite, addr)
	}
	m.data[addr] = v
}

// Peek reads a byte without notifying the watcher.
func (m *Memory) Peek(addr uint32) byte {
	return m.data[addr&addrMask]
}

// Read16 reads a little-endian word at a physical address.
func (m *Memory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian word at a physical address.
func (m *Memory) Write16(addr uint32, v uint16) {
	m.Write8(addr, byte(v))
	m.Write8(addr+1, byte(v>>8))
}

// Load8 reads the byte at seg:off.
func (m *Memory) Load8(seg, off uint16) byte {
	return m.Read8(Translate(seg, off))
}

// Store8 writes the byte at seg:off.
func (m *Memory) Store8(seg, off uint16, v byte) {
	m.Write8(Translate(seg, off), v)
}

// Load16 reads the word at seg:off. Each byte is translated on its own,
// so a word at offset 0xFFFF takes its high byte from offset 0.
func (m *Memory) Load16(seg, off uint16) uint16 {
	lo := m.Load8(seg, off)
	hi := m.Load8(seg, off+1)
	return uint16(lo) | uint16(hi)<<8
}

// Store16 writes the word at seg:off, translating each byte on its own.
func (m *Memory) Store16(seg, off uint16, v uint16) {
	m.Store8(seg, off, byte(v))
	m.Store8(seg, off+1, byte(v>>8))
}

// LoadAt copies data into memory starting at a physical address.
func (m *Memory) LoadAt(addr uint32, data []byte) error {
	if uint64(addr)+uint64(len(data)) > MemorySize {
		return fmt.Errorf("%w: %d bytes at 0x%05X", ErrBinaryTooLarge, len(data), addr)
	}
	copy(m.data[addr:], data)
	return nil
}

// Slice returns a copy of n bytes starting at a physical address,
// wrapping at 1MB. The watcher is not notified.
func (m *Memory) Slice(addr uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = m.data[(addr+uint32(i))&addrMask]
	}
	return out
}

// In8 reads a byte from the port space.
func (m *Memory) In8(port uint16) byte {
	return m.ports[port]
}

// Out8 writes a byte to the port space.
func (m *Memory) Out8(port uint16, v byte) {
	m.ports[port] = v
}

// In16 reads a little-endian word from port and port+1.
func (m *Memory) In16(port uint16) uint16 {
	return uint16(m.ports[port]) | uint16(m.ports[port+1])<<8
}

// Out16 writes a little-endian word to port and port+1.
func (m *Memory) Out16(port uint16, v uint16) {
	m.ports[port] = byte(v)
	m.ports[port+1] = byte(v >> 8)
}
