// Package psx wires the memory bus's segmented address decoder, the three
// programmable timers, the interrupt controller, the GPU front-end, the
// peripheral stubs, and the CPU into a single emulator core.
package psx

import (
	"fmt"
	"log/slog"

	"github.com/boeker/psxgo/psx/gpu"
	"github.com/boeker/psxgo/psx/irq"
	"github.com/boeker/psxgo/psx/mem"
	"github.com/boeker/psxgo/psx/stub"
	"github.com/boeker/psxgo/psx/timer"
)

// Bus implements cpu.Bus: it decodes a 32-bit virtual address into the
// owning component per spec.md §4.2's mask-equality routing table.
type Bus struct {
	Mem   *mem.Memory
	IRQ   *irq.Controller
	Timers *timer.Timers
	GPU   *gpu.GPU

	Gamepad *stub.Peripheral
	DMA     *stub.Peripheral
	CDROM   *stub.Peripheral
	MDEC    *stub.Peripheral
	SPU     *stub.Peripheral

	isolateCache func() bool
	log          *slog.Logger
}

// NewBus wires mem/irq/timers/gpu together with freshly constructed
// peripheral stubs. isolateCache is called on every Main-RAM-range access
// to decide whether it should be redirected to the scratchpad, mirroring
// CP0 SR.IsC.
func NewBus(m *mem.Memory, irqc *irq.Controller, timers *timer.Timers, g *gpu.GPU, isolateCache func() bool, log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{
		Mem:          m,
		IRQ:          irqc,
		Timers:       timers,
		GPU:          g,
		Gamepad:      stub.NewPeripheral("gamepad", log),
		DMA:          stub.NewPeripheral("dma", log),
		CDROM:        stub.NewPeripheral("cdrom", log),
		MDEC:         stub.NewPeripheral("mdec", log),
		SPU:          stub.NewPeripheral("spu", log),
		isolateCache: isolateCache,
		log:          log,
	}
}

func physical(addr uint32) uint32 { return addr & 0x1FFFFFFF }

type decodeTarget int

const (
	targetRAM decodeTarget = iota
	targetScratchpad
	targetBIOS
	targetIO
	targetCacheControl
	targetExpansion1
	targetExpansion2
	targetUnmapped
)

func decode(addr uint32) (decodeTarget, uint32) {
	if addr == 0xFFFE0130 {
		return targetCacheControl, 0
	}
	p := physical(addr)
	switch {
	case p&0x1FE00000 == 0x00000000:
		return targetRAM, p & (mem.MainRAMSize - 1)
	case p&0x1F800000 == 0x1F000000:
		return targetExpansion1, p
	case p&0x1FFFFC00 == 0x1F8FFC00:
		return targetScratchpad, p & (mem.ScratchpadSize - 1)
	case p&0x1FFFF000 == 0x1F801000:
		return targetIO, p
	case p&0x1FFFF000 == 0x1F802000:
		return targetExpansion2, p
	case p&0x1FF80000 == 0x1FC00000:
		return targetBIOS, p & (mem.BIOSSize - 1)
	}
	return targetUnmapped, p
}

// Read8 implements cpu.Bus.
func (b *Bus) Read8(addr uint32) (uint8, error) {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			return b.Mem.ReadScratch8(off & (mem.ScratchpadSize - 1)), nil
		}
		return b.Mem.ReadRAM8(off), nil
	case targetScratchpad:
		return b.Mem.ReadScratch8(off), nil
	case targetBIOS:
		return b.Mem.ReadBIOS8(off), nil
	case targetCacheControl:
		return uint8(b.Mem.CacheControl), nil
	case targetExpansion1, targetExpansion2:
		b.log.Warn("read from unimplemented expansion region", "addr", fmt.Sprintf("0x%08X", addr))
		return 0, nil
	case targetIO:
		v, err := b.readIO32(off)
		return uint8(v), err
	}
	return 0, fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// Read16 implements cpu.Bus.
func (b *Bus) Read16(addr uint32) (uint16, error) {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			return b.Mem.ReadScratch16(off & (mem.ScratchpadSize - 1)), nil
		}
		return b.Mem.ReadRAM16(off), nil
	case targetScratchpad:
		return b.Mem.ReadScratch16(off), nil
	case targetBIOS:
		return b.Mem.ReadBIOS16(off), nil
	case targetCacheControl:
		return uint16(b.Mem.CacheControl), nil
	case targetExpansion1, targetExpansion2:
		b.log.Warn("read from unimplemented expansion region", "addr", fmt.Sprintf("0x%08X", addr))
		return 0, nil
	case targetIO:
		v, err := b.readIO32(off)
		return uint16(v), err
	}
	return 0, fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// Read32 implements cpu.Bus.
func (b *Bus) Read32(addr uint32) (uint32, error) {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			return b.Mem.ReadScratch32(off & (mem.ScratchpadSize - 1)), nil
		}
		return b.Mem.ReadRAM32(off), nil
	case targetScratchpad:
		return b.Mem.ReadScratch32(off), nil
	case targetBIOS:
		return b.Mem.ReadBIOS32(off), nil
	case targetCacheControl:
		return b.Mem.CacheControl, nil
	case targetExpansion1:
		b.log.Warn("read from unimplemented expansion region", "addr", fmt.Sprintf("0x%08X", addr))
		return 0, nil
	case targetExpansion2:
		if off == 0x1F802041 {
			return 0, nil // boot-status byte, read as "ok"
		}
		return 0, nil
	case targetIO:
		return b.readIO32(off)
	}
	return 0, fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// Write8 implements cpu.Bus.
func (b *Bus) Write8(addr uint32, v uint8) error {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			b.Mem.WriteScratch8(off&(mem.ScratchpadSize-1), v)
			return nil
		}
		b.Mem.WriteRAM8(off, v)
		return nil
	case targetScratchpad:
		b.Mem.WriteScratch8(off, v)
		return nil
	case targetBIOS:
		b.log.Warn("write to read-only BIOS dropped", "addr", fmt.Sprintf("0x%08X", addr))
		return nil
	case targetCacheControl:
		b.Mem.CacheControl = (b.Mem.CacheControl &^ 0xFF) | uint32(v)
		return nil
	case targetExpansion1, targetExpansion2:
		return nil
	case targetIO:
		return b.writeIO32(off, uint32(v))
	}
	return fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// Write16 implements cpu.Bus.
func (b *Bus) Write16(addr uint32, v uint16) error {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			b.Mem.WriteScratch16(off&(mem.ScratchpadSize-1), v)
			return nil
		}
		b.Mem.WriteRAM16(off, v)
		return nil
	case targetScratchpad:
		b.Mem.WriteScratch16(off, v)
		return nil
	case targetBIOS:
		b.log.Warn("write to read-only BIOS dropped", "addr", fmt.Sprintf("0x%08X", addr))
		return nil
	case targetCacheControl:
		b.Mem.CacheControl = (b.Mem.CacheControl &^ 0xFFFF) | uint32(v)
		return nil
	case targetExpansion1, targetExpansion2:
		return nil
	case targetIO:
		return b.writeIO32(off, uint32(v))
	}
	return fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// Write32 implements cpu.Bus.
func (b *Bus) Write32(addr uint32, v uint32) error {
	target, off := decode(addr)
	switch target {
	case targetRAM:
		if b.isolateCache() {
			b.Mem.WriteScratch32(off&(mem.ScratchpadSize-1), v)
			return nil
		}
		b.Mem.WriteRAM32(off, v)
		return nil
	case targetScratchpad:
		b.Mem.WriteScratch32(off, v)
		return nil
	case targetBIOS:
		b.log.Warn("write to read-only BIOS dropped", "addr", fmt.Sprintf("0x%08X", addr))
		return nil
	case targetCacheControl:
		b.Mem.CacheControl = v
		return nil
	case targetExpansion1, targetExpansion2:
		return nil
	case targetIO:
		return b.writeIO32(off, v)
	}
	return fmt.Errorf("bus: address out of bounds: 0x%08X", addr)
}

// readIO32 sub-decodes the 4 KiB I/O window per spec.md §4.2's table.
func (b *Bus) readIO32(addr uint32) (uint32, error) {
	switch {
	case addr >= 0x1F801040 && addr <= 0x1F80105F:
		return b.Gamepad.Read32(addr), nil
	case addr >= 0x1F801000 && addr <= 0x1F801060:
		off := addr - 0x1F801000
		if off+4 > mem.MemCtrlSize {
			return 0, nil
		}
		return b.Mem.ReadMemCtrl32(off), nil
	case addr >= 0x1F801070 && addr <= 0x1F801077:
		if addr == 0x1F801070 {
			return b.IRQ.Stat(), nil
		}
		return b.IRQ.Mask(), nil
	case addr >= 0x1F801080 && addr <= 0x1F8010FF:
		return b.DMA.Read32(addr), nil
	case addr >= 0x1F801100 && addr <= 0x1F80112A:
		return b.readTimer(addr), nil
	case addr >= 0x1F801800 && addr <= 0x1F801803:
		return b.CDROM.Read32(addr), nil
	case addr >= 0x1F801810 && addr <= 0x1F801817:
		if addr&0xF < 4 {
			return b.GPU.ReadGPU(), nil
		}
		return b.GPU.Status(), nil
	case addr >= 0x1F801820 && addr <= 0x1F801827:
		return b.MDEC.Read32(addr), nil
	case addr >= 0x1F801C00 && addr <= 0x1F801FFF:
		return b.SPU.Read32(addr), nil
	}
	return 0, nil
}

func (b *Bus) writeIO32(addr uint32, v uint32) error {
	switch {
	case addr >= 0x1F801040 && addr <= 0x1F80105F:
		b.Gamepad.Write32(addr, v)
	case addr >= 0x1F801000 && addr <= 0x1F801060:
		off := addr - 0x1F801000
		if off+4 <= mem.MemCtrlSize {
			b.Mem.WriteMemCtrl32(off, v)
		}
	case addr >= 0x1F801070 && addr <= 0x1F801077:
		if addr == 0x1F801070 {
			b.IRQ.WriteStat(v)
		} else {
			b.IRQ.WriteMask(v)
		}
	case addr >= 0x1F801080 && addr <= 0x1F8010FF:
		b.DMA.Write32(addr, v)
	case addr >= 0x1F801100 && addr <= 0x1F80112A:
		b.writeTimer(addr, v)
	case addr >= 0x1F801800 && addr <= 0x1F801803:
		b.CDROM.Write32(addr, v)
	case addr >= 0x1F801810 && addr <= 0x1F801817:
		if addr&0xF < 4 {
			b.GPU.WriteGP0(v)
		} else {
			b.GPU.WriteGP1(v)
		}
	case addr >= 0x1F801820 && addr <= 0x1F801827:
		b.MDEC.Write32(addr, v)
	case addr >= 0x1F801C00 && addr <= 0x1F801FFF:
		b.SPU.Write32(addr, v)
	}
	return nil
}

// timerRegisterIndex decodes one of the three 16-byte-spaced timer blocks
// starting at 0x1F801100; each block holds Current/Mode/Target at +0/+4/+8.
func timerRegisterIndex(addr uint32) (timerNum int, reg int, ok bool) {
	if addr < 0x1F801100 || addr > 0x1F80112F {
		return 0, 0, false
	}
	off := addr - 0x1F801100
	return int(off / 0x10), int(off % 0x10 / 4), true
}

func (b *Bus) readTimer(addr uint32) uint32 {
	n, reg, ok := timerRegisterIndex(addr)
	if !ok || n > 2 {
		return 0
	}
	t := b.Timers.T[n]
	switch reg {
	case 0:
		return uint32(t.Current())
	case 1:
		return uint32(t.Mode())
	case 2:
		return uint32(t.Target())
	}
	return 0
}

func (b *Bus) writeTimer(addr uint32, v uint32) {
	n, reg, ok := timerRegisterIndex(addr)
	if !ok || n > 2 {
		return
	}
	t := b.Timers.T[n]
	switch reg {
	case 0:
		t.SetCurrent(uint16(v))
	case 1:
		t.SetMode(uint16(v))
	case 2:
		t.SetTarget(uint16(v))
	}
}
