// Package cpu implements the MIPS R3000A-derived core: the general-purpose
// register file, coprocessor 0, the two-slot branch-delay pipeline, and the
// primary/SPECIAL/REGIMM/CP0/CP2 dispatch tables.
package cpu

import (
	"fmt"
	"log/slog"

	"github.com/boeker/psxgo/psx/bitutil"
)

// Bus is the narrow memory surface the CPU needs: typed, width-generic
// load/store that may fail with an error (an out-of-bounds access, turned
// into a CPU bus-error exception by the caller).
type Bus interface {
	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write8(addr uint32, v uint8) error
	Write16(addr uint32, v uint16) error
	Write32(addr uint32, v uint32) error
}

// GTE is the pass-through surface for CP2 move instructions (MFC2/MTC2/
// CTC2); the GTE itself is an explicit non-goal register-file stub.
type GTE interface {
	Data(reg uint8) uint32
	SetData(reg uint8, v uint32)
	Control(reg uint8) uint32
	SetControl(reg uint8, v uint32)
}

// Exception carries the information needed to drive exception entry; it is
// the CPU's internal control-flow mechanism, not a Go error returned to
// callers of Step.
type Exception struct {
	Code     uint32
	BadVaddr uint32
	HasVaddr bool
}

// slot holds one instruction's fetch state as it moves through the
// two-stage software pipeline described by spec.md §4.1: the instruction
// under execution, and the pre-fetched word sitting in the branch-delay
// slot.
type slot struct {
	pc      uint32
	word    uint32
	isDelay bool
}

// CPU is the MIPS R3000A execution core.
type CPU struct {
	Regs *Registers
	CP0  *CP0
	bus  Bus
	gte  GTE

	instruction slot
	delaySlot   slot

	cycles uint64

	// nextIsDelaySlot lets an executed branch/jump mark the delay slot
	// Step already fetched this cycle as a branch-delay slot for
	// exception bookkeeping, per spec.md §4.1.
	nextIsDelaySlot bool

	tty     []byte
	Log     *slog.Logger
	Verbose bool
}

// New constructs a CPU wired to bus for memory access and gte for CP2
// pass-through, and performs a power-on reset.
func New(bus Bus, gte GTE, log *slog.Logger) *CPU {
	if log == nil {
		log = slog.Default()
	}
	c := &CPU{
		Regs: NewRegisters(),
		CP0:  NewCP0(),
		bus:  bus,
		gte:  gte,
		Log:  log,
	}
	c.Reset()
	return c
}

// Reset restores the register file, CP0 and the pipeline to their
// post-power-on state and re-primes the delay slot from ResetPC.
func (c *CPU) Reset() {
	c.Regs.Reset()
	c.CP0.Reset()
	c.cycles = 0
	c.nextIsDelaySlot = false
	c.delaySlot = slot{pc: c.Regs.PC(), isDelay: false}
	c.primeDelaySlot()
}

// Cycles returns the cumulative number of instructions the CPU has retired,
// used by the Core driver as the cycle budget handed to the GPU.
func (c *CPU) Cycles() uint64 { return c.cycles }

// PC returns the architectural program counter: the address of the
// instruction currently sitting in the delay slot, i.e. the next
// instruction to retire. This is distinct from the internal fetch cursor
// (Regs.PC), which always runs one fetch ahead of it.
func (c *CPU) PC() uint32 { return c.delaySlot.pc }

// primeDelaySlot fetches the word at the current PC into the delay slot and
// advances PC by 4, without promoting anything: used at reset and after an
// exception vector change, where the handler's first instruction must not
// appear to "follow" the faulting one.
func (c *CPU) primeDelaySlot() {
	pc := c.Regs.PC()
	word, err := c.bus.Read32(pc)
	if err != nil {
		word = 0
	}
	c.delaySlot = slot{pc: pc, word: word, isDelay: false}
	c.Regs.SetPC(pc + 4)
}

// Step executes exactly one instruction: the word currently sitting in the
// delay slot is promoted to "current", a new word is fetched into the
// delay slot, and the promoted instruction is dispatched. Returns the
// number of cycles this step is worth (always 1 for this scheduler).
func (c *CPU) Step() int {
	c.instruction = c.delaySlot
	c.nextIsDelaySlot = false

	nextPC := c.Regs.PC()
	word, err := c.bus.Read32(nextPC)
	c.Regs.SetPC(nextPC + 4)
	if err != nil {
		c.delaySlot = slot{pc: nextPC, word: 0, isDelay: false}
		c.raise(Exception{Code: ExcBusErrorI, BadVaddr: nextPC, HasVaddr: true})
		c.cycles++
		return 1
	}
	c.delaySlot = slot{pc: nextPC, word: word, isDelay: false}

	c.dispatch(c.instruction.word)

	c.delaySlot.isDelay = c.nextIsDelaySlot

	c.checkInterrupts()

	c.cycles++
	return 1
}

func (c *CPU) dispatch(word uint32) {
	c.interceptTTY()

	primary := uint8(word >> 26)
	op, ok := primaryTable[primary]
	if !ok {
		c.raise(Exception{Code: ExcReservedInstr})
		return
	}
	op(c, word)
}

// interceptTTY recognises the BIOS putchar syscall convention (PC ==
// 0xA0/r9==0x3C or PC == 0xB0/r9==0x3D) and records r4 as a debug-only
// output byte stream; this is a side channel, not required semantics.
func (c *CPU) interceptTTY() {
	pc := c.instruction.pc & 0x1FFFFFFF
	r9 := c.Regs.GPR(9)
	if (pc == 0xA0 && r9 == 0x3C) || (pc == 0xB0 && r9 == 0x3D) {
		ch := byte(c.Regs.GPR(4))
		c.tty = append(c.tty, ch)
		if ch == '\n' {
			c.Log.Info("tty", "line", string(c.tty))
			c.tty = c.tty[:0]
		}
	}
}

// rs/rt/rd/shamt/funct/imm16/target decode the fixed instruction fields.
func rs(word uint32) uint8     { return uint8((word >> 21) & 0x1F) }
func rt(word uint32) uint8     { return uint8((word >> 16) & 0x1F) }
func rd(word uint32) uint8     { return uint8((word >> 11) & 0x1F) }
func shamt(word uint32) uint8  { return uint8((word >> 6) & 0x1F) }
func funct(word uint32) uint8  { return uint8(word & 0x3F) }
func imm16(word uint32) uint16 { return uint16(word & 0xFFFF) }
func target26(word uint32) uint32 { return word & 0x03FFFFFF }

// branch computes the branch target from the delay slot's PC (the PC of
// the instruction after the branch) and a sign-extended 16-bit word
// offset. It does NOT touch the delay slot that Step already fetched this
// cycle — that word is the legitimate branch-delay instruction and must
// still execute next, per spec.md §4.1: "they do NOT skip the delay slot".
// Only the fetch cursor (the PC driving the *following* fetch) is
// redirected to the branch target, and the already-fetched delay slot is
// marked as having been a branch-delay slot for exception bookkeeping.
func (c *CPU) branch(word uint32) {
	offset := bitutil.SignExtend16(imm16(word)) << 2
	target := c.delaySlot.pc + offset
	c.Regs.SetPC(target)
	c.nextIsDelaySlot = true
}

// jumpTo redirects the fetch cursor to an absolute target (JR/JALR/J/JAL),
// leaving the already-fetched delay slot untouched and marking it as a
// branch-delay slot, for the same reason as branch above.
func (c *CPU) jumpTo(target uint32) {
	c.Regs.SetPC(target)
	c.nextIsDelaySlot = true
}

// refetchDelaySlot re-fetches the word at the (just updated) PC into the
// delay slot; exception entry uses it, since jumping to the vector
// invalidates the sequential fetch Step already performed.
func (c *CPU) refetchDelaySlot() {
	pc := c.Regs.PC()
	word, err := c.bus.Read32(pc)
	if err != nil {
		word = 0
	}
	c.delaySlot = slot{pc: pc, word: word, isDelay: false}
	c.Regs.SetPC(pc + 4)
}

// raise drives exception entry per spec.md §4.1: compute EPC/BD from
// whether the faulting instruction was itself in a branch-delay slot, push
// the SR mode stack, set Cause.ExcCode, vector PC to the BIOS or RAM
// handler, and re-fetch the delay slot from the new vector.
func (c *CPU) raise(e Exception) {
	if c.instruction.isDelay {
		c.CP0.SetEPC(c.instruction.pc - 4)
		c.CP0.SetBD(true)
	} else {
		c.CP0.SetEPC(c.instruction.pc)
		c.CP0.SetBD(false)
	}

	c.CP0.PushModeStack()
	c.CP0.SetExcCode(e.Code)
	if e.HasVaddr {
		c.CP0.Set(CP0BadVaddr, e.BadVaddr)
	}

	vector := uint32(0x80000080)
	if c.CP0.BEV() {
		vector = 0xBFC00180
	}
	c.Regs.SetPC(vector)
	c.refetchDelaySlot()
	c.nextIsDelaySlot = false
}

// checkInterrupts implements spec.md §4.1's "Interrupt check": if SR.IEc is
// set and any unmasked Cause.IP bit is pending, raise exception 0x00.
func (c *CPU) checkInterrupts() {
	if !c.CP0.InterruptsEnabled() {
		return
	}
	if c.CP0.PendingInterrupts()&c.CP0.InterruptMask() == 0 {
		return
	}
	c.raise(Exception{Code: ExcInterrupt})
}

// CheckInterrupts re-evaluates the pending/masked interrupt condition; it
// is exported so the interrupt controller can request a re-check
// immediately after it recomputes Cause.IP2, matching the source's
// checkAndExecuteInterrupts call convention.
func (c *CPU) CheckInterrupts() { c.checkInterrupts() }

// SetIP2 forwards to CP0, satisfying irq.Controller's narrow CPU surface.
func (c *CPU) SetIP2(on bool) { c.CP0.SetIP2(on) }

// JumpTo redirects the fetch cursor to pc and re-primes the delay slot,
// for a cold jump outside normal branch/jump dispatch, such as the
// sideload loader handing control to an EXE's entry point.
func (c *CPU) JumpTo(pc uint32) {
	c.Regs.SetPC(pc)
	c.primeDelaySlot()
}

// String renders a short diagnostic identifying the currently executing
// instruction, for panics/log lines.
func (s slot) String() string {
	return fmt.Sprintf("0x%08X: 0x%08X (delay=%v)", s.pc, s.word, s.isDelay)
}
