// Package mem holds the flat, byte-addressable memory arrays backing the
// PSX address space: main RAM, the scratchpad/D-cache, the BIOS ROM, and
// the small memory-control register blocks. None of these apply alignment
// checks themselves — that is the bus's responsibility.
package mem

import "encoding/binary"

const (
	MainRAMSize    = 2 * 1024 * 1024
	ScratchpadSize = 1024
	BIOSSize       = 512 * 1024
	MemCtrlSize    = 36
)

// Memory owns the emulator's flat backing arrays.
type Memory struct {
	MainRAM    [MainRAMSize]byte
	Scratchpad [ScratchpadSize]byte
	BIOS       [BIOSSize]byte
	MemCtrl    [MemCtrlSize]byte

	RAMSize      uint32
	CacheControl uint32
}

// New returns a zeroed Memory.
func New() *Memory {
	return &Memory{}
}

// LoadBIOS copies data verbatim into the BIOS region; data must be exactly
// BIOSSize bytes.
func (m *Memory) LoadBIOS(data []byte) {
	copy(m.BIOS[:], data)
}

// RAM accessors, offset already masked to MainRAMSize by the caller (the
// bus).

func (m *Memory) ReadRAM8(off uint32) uint8   { return m.MainRAM[off] }
func (m *Memory) ReadRAM16(off uint32) uint16 { return binary.LittleEndian.Uint16(m.MainRAM[off:]) }
func (m *Memory) ReadRAM32(off uint32) uint32 { return binary.LittleEndian.Uint32(m.MainRAM[off:]) }

func (m *Memory) WriteRAM8(off uint32, v uint8) { m.MainRAM[off] = v }
func (m *Memory) WriteRAM16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.MainRAM[off:], v)
}
func (m *Memory) WriteRAM32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.MainRAM[off:], v)
}

func (m *Memory) ReadScratch8(off uint32) uint8 { return m.Scratchpad[off] }
func (m *Memory) ReadScratch16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(m.Scratchpad[off:])
}
func (m *Memory) ReadScratch32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(m.Scratchpad[off:])
}

func (m *Memory) WriteScratch8(off uint32, v uint8) { m.Scratchpad[off] = v }
func (m *Memory) WriteScratch16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.Scratchpad[off:], v)
}
func (m *Memory) WriteScratch32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.Scratchpad[off:], v)
}

func (m *Memory) ReadBIOS8(off uint32) uint8 { return m.BIOS[off] }
func (m *Memory) ReadBIOS16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(m.BIOS[off:])
}
func (m *Memory) ReadBIOS32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(m.BIOS[off:])
}

func (m *Memory) ReadMemCtrl8(off uint32) uint8 { return m.MemCtrl[off] }
func (m *Memory) ReadMemCtrl16(off uint32) uint16 {
	return binary.LittleEndian.Uint16(m.MemCtrl[off:])
}
func (m *Memory) ReadMemCtrl32(off uint32) uint32 {
	return binary.LittleEndian.Uint32(m.MemCtrl[off:])
}

func (m *Memory) WriteMemCtrl8(off uint32, v uint8) { m.MemCtrl[off] = v }
func (m *Memory) WriteMemCtrl16(off uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.MemCtrl[off:], v)
}
func (m *Memory) WriteMemCtrl32(off uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.MemCtrl[off:], v)
}
