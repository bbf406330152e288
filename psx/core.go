package psx

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/boeker/psxgo/psx/cpu"
	"github.com/boeker/psxgo/psx/disasm"
	"github.com/boeker/psxgo/psx/gpu"
	"github.com/boeker/psxgo/psx/irq"
	"github.com/boeker/psxgo/psx/mem"
	"github.com/boeker/psxgo/psx/render"
	"github.com/boeker/psxgo/psx/stub"
	"github.com/boeker/psxgo/psx/timer"
)

// blockInstructions is the number of CPU instructions executed per
// emulate_block before the GPU is caught up, per spec.md §4.8.
const blockInstructions = 10

// cpuVBlankFrequency is the safety-net cycle budget for one NTSC field,
// used alongside the GPU's own dot-clock-driven VBlank as a redundant
// backstop against timing drift.
const cpuVBlankFrequency = 33868800 / 60

// DebuggerState is the Emulator's run-state, inspected and mutated from a
// UI goroutine while the emulation goroutine owns actual stepping.
type DebuggerState int

const (
	DebuggerRunning DebuggerState = iota
	DebuggerPaused
	DebuggerStep
	DebuggerStepFrame
)

// Emulator is the root driver: it wires the CPU, Bus, GPU, timers and
// interrupt controller together and exposes a mutex-guarded run-state so a
// terminal or SDL2 frontend can pause, single-step, and read back debug
// state without the core itself becoming concurrent.
type Emulator struct {
	CPU      *cpu.CPU
	Bus      *Bus
	GPU      *gpu.GPU
	Timers   *timer.Timers
	IRQ      *irq.Controller
	Mem      *mem.Memory
	renderer gpu.Renderer

	sideload *sideload
	log      *slog.Logger

	debugMutex     sync.RWMutex
	debugState     DebuggerState
	stepRequested  bool
	frameRequested bool

	instructionCount uint64
	frameCount       uint64
	vblankBudget     uint64
}

// New constructs an Emulator wired to renderer, with bios loaded verbatim
// into the BIOS region.
func New(bios []byte, renderer gpu.Renderer, log *slog.Logger) (*Emulator, error) {
	if log == nil {
		log = slog.Default()
	}
	if len(bios) != mem.BIOSSize {
		return nil, fmt.Errorf("psx: BIOS must be exactly %d bytes, got %d", mem.BIOSSize, len(bios))
	}

	m := mem.New()
	m.LoadBIOS(bios)

	e := &Emulator{Mem: m, log: log, renderer: renderer}

	irqc := irq.New(nil, log) // cpu wired in below, after construction
	timers := timer.New(irqc, irq.Timer0, irq.Timer1, irq.Timer2)
	g := gpu.New(renderer, irqc, timers, log)

	bus := NewBus(m, irqc, timers, g, func() bool { return e.CPU.CP0.IsolateCache() }, log)
	gte := stub.NewGTE(log)
	c := cpu.New(bus, gte, log)

	e.CPU, e.Bus, e.GPU, e.Timers, e.IRQ = c, bus, g, timers, irqc

	irqc.SetCPU(c)

	return e, nil
}

// LoadSideload parses a PSX-EXE file for injection once the CPU reaches
// the BIOS shell's sideload trigger PC.
func (e *Emulator) LoadSideload(data []byte) error {
	s, err := parseSideload(data)
	if err != nil {
		return err
	}
	e.sideload = s
	return nil
}

// checkSideload injects the pending sideload exactly once, when the CPU's
// architectural PC reaches the trigger address.
func (e *Emulator) checkSideload() {
	if e.sideload == nil || e.sideload.injected {
		return
	}
	if e.CPU.PC()&0x1FFFFFFF != sideloadTriggerPC {
		return
	}

	s := e.sideload
	off := s.destAddr & 0x1FFFFFFF & (mem.MainRAMSize - 1)
	copy(e.Mem.MainRAM[off:], s.body)

	e.CPU.Regs.SetGPR(28, s.initialGP)
	if s.initialSP != 0 {
		e.CPU.Regs.SetGPR(29, s.initialSP)
		e.CPU.Regs.SetGPR(30, s.initialSP)
	}
	e.CPU.JumpTo(s.entryPC)

	s.injected = true
	e.log.Info("sideload injected", "entry", fmt.Sprintf("0x%08X", s.entryPC), "dest", fmt.Sprintf("0x%08X", s.destAddr), "bytes", len(s.body))
}

// emulateBlock steps the CPU blockInstructions times, catches the GPU up
// to the elapsed cycle count, and applies the VBlank safety net.
func (e *Emulator) emulateBlock() {
	e.checkSideload()

	c0 := e.CPU.Cycles()
	for i := 0; i < blockInstructions; i++ {
		e.CPU.Step()
	}
	delta := uint32(e.CPU.Cycles() - c0)
	e.instructionCount += uint64(blockInstructions)

	e.GPU.CatchUpToCPU(delta)

	e.vblankBudget += uint64(delta)
	if e.vblankBudget >= cpuVBlankFrequency {
		e.vblankBudget -= cpuVBlankFrequency
		e.IRQ.Notify(irq.VBlank)
		e.frameCount++
	}
}

// Run executes emulate_block forever; it only returns on a caught fatal
// error (none are raised by this core today, but the signature matches
// the driver contract for a future CD/BIOS I/O failure path).
func (e *Emulator) Run() error {
	for {
		e.RunUntilFrame()
	}
}

// RunUntilFrame executes blocks according to the current debugger state:
// paused emulators do nothing, DebuggerStep executes exactly one block
// then pauses, DebuggerStepFrame executes blocks until the VBlank safety
// net fires then pauses, and DebuggerRunning free-runs one VBlank period.
func (e *Emulator) RunUntilFrame() {
	e.debugMutex.RLock()
	state := e.debugState
	e.debugMutex.RUnlock()

	switch state {
	case DebuggerPaused:
		return

	case DebuggerStep:
		e.debugMutex.Lock()
		requested := e.stepRequested
		e.stepRequested = false
		e.debugMutex.Unlock()
		if !requested {
			return
		}
		e.emulateBlock()
		e.SetDebuggerState(DebuggerPaused)

	case DebuggerStepFrame:
		e.debugMutex.Lock()
		requested := e.frameRequested
		e.frameRequested = false
		e.debugMutex.Unlock()
		if !requested {
			return
		}
		startFrame := e.frameCount
		for e.frameCount == startFrame {
			e.emulateBlock()
		}
		e.SetDebuggerState(DebuggerPaused)

	default: // DebuggerRunning
		startFrame := e.frameCount
		for e.frameCount == startFrame {
			e.emulateBlock()
		}
	}
}

// SetDebuggerState transitions the run-state.
func (e *Emulator) SetDebuggerState(state DebuggerState) {
	e.debugMutex.Lock()
	defer e.debugMutex.Unlock()
	e.debugState = state
}

// DebuggerState returns the current run-state.
func (e *Emulator) DebuggerState() DebuggerState {
	e.debugMutex.RLock()
	defer e.debugMutex.RUnlock()
	return e.debugState
}

// Pause stops block execution until Resume or a step is requested.
func (e *Emulator) Pause() { e.SetDebuggerState(DebuggerPaused) }

// Resume returns to free-running execution.
func (e *Emulator) Resume() { e.SetDebuggerState(DebuggerRunning) }

// StepInstruction requests exactly one emulate_block on the next
// RunUntilFrame call, then pauses again.
func (e *Emulator) StepInstruction() {
	e.debugMutex.Lock()
	defer e.debugMutex.Unlock()
	e.stepRequested = true
	e.debugState = DebuggerStep
}

// StepFrame requests execution through the next VBlank safety-net trigger,
// then pauses.
func (e *Emulator) StepFrame() {
	e.debugMutex.Lock()
	defer e.debugMutex.Unlock()
	e.frameRequested = true
	e.debugState = DebuggerStepFrame
}

// FrameCount returns the number of VBlank safety-net triggers seen so far.
func (e *Emulator) FrameCount() uint64 {
	e.debugMutex.RLock()
	defer e.debugMutex.RUnlock()
	return e.frameCount
}

// ReadFromVRAM satisfies render.FrameSource by delegating to the GPU's
// renderer, letting the Emulator itself be handed to a presentation
// backend instead of threading the renderer through separately.
func (e *Emulator) ReadFromVRAM(x, y int32) uint16 {
	return e.renderer.ReadFromVRAM(x, y)
}

// ExtractDebugData satisfies render.DebugProvider with a point-in-time
// snapshot of CPU state and a small disassembly window around PC.
func (e *Emulator) ExtractDebugData() *render.DebugData {
	pc := e.CPU.PC()
	data := &render.DebugData{
		PC:      pc,
		HI:      e.CPU.Regs.HI(),
		LO:      e.CPU.Regs.LO(),
		SR:      e.CPU.CP0.SR(),
		Cause:   e.CPU.CP0.Cause(),
		Cycles:  e.CPU.Cycles(),
		Running: e.DebuggerState() == DebuggerRunning,
	}
	for i := 0; i < 32; i++ {
		data.GPR[i] = e.CPU.Regs.GPR(uint8(i))
	}

	const window = 8
	start := pc - window*4/2
	for addr := start; addr < start+window*4; addr += 4 {
		word, err := e.Bus.Read32(addr)
		if err != nil {
			continue
		}
		data.Disasm = append(data.Disasm, render.DebugLine{
			Address:     addr,
			Instruction: disasm.Disassemble(word),
		})
	}
	return data
}
