// Package stub holds side-effect-free placeholders for peripherals this
// core does not emulate (SPU, CD-ROM, MDEC, gamepad/memory-card) and the
// GTE register file: they satisfy the bus's read/write contract, never
// raise a bus error, and simply log and return 0, so BIOS code that probes
// them at boot continues regardless. Per spec.md §4.8, GTE arithmetic
// correctness is an explicit non-goal; only its register-move surface
// (MFC2/MTC2/CFC2/CTC2) needs to exist.
package stub

import "log/slog"

// Peripheral is a minimal memory-mapped register block: reads return the
// last written value (or 0), writes are recorded but otherwise inert.
type Peripheral struct {
	name string
	log  *slog.Logger
	regs map[uint32]uint32
}

// NewPeripheral returns a Peripheral identified by name for logging.
func NewPeripheral(name string, log *slog.Logger) *Peripheral {
	if log == nil {
		log = slog.Default()
	}
	return &Peripheral{name: name, log: log, regs: make(map[uint32]uint32)}
}

func (p *Peripheral) Read8(addr uint32) uint8 {
	p.log.Debug("stub read", "peripheral", p.name, "addr", addr, "width", 8)
	return uint8(p.regs[addr&^3])
}

func (p *Peripheral) Read16(addr uint32) uint16 {
	p.log.Debug("stub read", "peripheral", p.name, "addr", addr, "width", 16)
	return uint16(p.regs[addr&^3])
}

func (p *Peripheral) Read32(addr uint32) uint32 {
	p.log.Debug("stub read", "peripheral", p.name, "addr", addr, "width", 32)
	return p.regs[addr&^3]
}

func (p *Peripheral) Write8(addr uint32, v uint8) {
	p.log.Debug("stub write", "peripheral", p.name, "addr", addr, "width", 8, "value", v)
	p.regs[addr&^3] = uint32(v)
}

func (p *Peripheral) Write16(addr uint32, v uint16) {
	p.log.Debug("stub write", "peripheral", p.name, "addr", addr, "width", 16, "value", v)
	p.regs[addr&^3] = uint32(v)
}

func (p *Peripheral) Write32(addr uint32, v uint32) {
	p.log.Debug("stub write", "peripheral", p.name, "addr", addr, "width", 32, "value", v)
	p.regs[addr&^3] = v
}

// GTE is a pure register-file stub for coprocessor 2: no arithmetic, just
// storage for the data and control register banks so MFC2/MTC2/CFC2/CTC2
// round-trip values without faulting.
type GTE struct {
	data    [32]uint32
	control [32]uint32
	log     *slog.Logger
}

// NewGTE returns a zeroed GTE register file.
func NewGTE(log *slog.Logger) *GTE {
	if log == nil {
		log = slog.Default()
	}
	return &GTE{log: log}
}

func (g *GTE) Data(reg uint8) uint32          { return g.data[reg&0x1F] }
func (g *GTE) SetData(reg uint8, v uint32)    { g.data[reg&0x1F] = v }
func (g *GTE) Control(reg uint8) uint32       { return g.control[reg&0x1F] }
func (g *GTE) SetControl(reg uint8, v uint32) { g.control[reg&0x1F] = v }
