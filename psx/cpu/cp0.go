package cpu

import (
	"fmt"
	"strings"

	"github.com/boeker/psxgo/psx/bitutil"
)

// CP0 register numbers that carry semantics; the remaining numbers are
// plain named storage (breakpoint/debug registers on real hardware, unused
// here beyond register-dump display).
const (
	CP0BadVaddr = 8
	CP0SR       = 12
	CP0Cause    = 13
	CP0EPC      = 14
	CP0PRId     = 15
)

// Status register bit positions.
const (
	srIEc = 0
	srKUc = 1
	srIEp = 2
	srKUp = 3
	srIEo = 4
	srKUo = 5
	srIsC = 16
	srBEV = 22
)

// Cause register bit positions/fields.
const (
	causeExcCodeLow  = 2
	causeExcCodeHigh = 6
	causeIPLow       = 8
	causeIPHigh      = 15
	causeIP2         = 10
	causeBD          = 31
)

// Exception codes (ExcCode field of Cause), per the MIPS R3000A convention.
const (
	ExcInterrupt     = 0x00
	ExcAddressErrorL = 0x04
	ExcAddressErrorS = 0x05
	ExcBusErrorI     = 0x06
	ExcBusErrorD     = 0x07
	ExcSyscall       = 0x08
	ExcBreak         = 0x09
	ExcReservedInstr = 0x0A
	ExcCoprocessor   = 0x0B
	ExcOverflow      = 0x0C
)

var cp0RegisterNames = [32]string{
	"CP0_r0", "CP0_r1",
	"BusCtrl", "BPC", "CP0_r4", "BDA", "JUMPDEST", "DCIC",
	"BadVaddr", "BDAM", "CP0_r10", "BPCM",
	"SR", "Cause", "EPC", "PRId",
	"CP0_r16", "CP0_r17", "CP0_r18", "CP0_r19",
	"CP0_r20", "CP0_r21", "CP0_r22", "CP0_r23",
	"CP0_r24", "CP0_r25", "CP0_r26", "CP0_r27",
	"CP0_r28", "CP0_r29", "CP0_r30", "CP0_r31",
}

// CP0 is the system control coprocessor register file.
type CP0 struct {
	regs [32]uint32
}

// NewCP0 returns a CP0 in its post-reset state.
func NewCP0() *CP0 {
	c := &CP0{}
	c.Reset()
	return c
}

// Reset zeroes every register except PRId, which holds the fixed CPU
// identification/revision value.
func (c *CP0) Reset() {
	for i := range c.regs {
		c.regs[i] = 0
	}
	c.regs[CP0PRId] = 0x00000001
}

// Get reads CP0 register rd.
func (c *CP0) Get(rd uint8) uint32 { return c.regs[rd&0x1F] }

// Set writes CP0 register rd.
func (c *CP0) Set(rd uint8, value uint32) { c.regs[rd&0x1F] = value }

// SR returns the status register.
func (c *CP0) SR() uint32 { return c.regs[CP0SR] }

// SetSR overwrites the status register.
func (c *CP0) SetSR(v uint32) { c.regs[CP0SR] = v }

// Cause returns the cause register.
func (c *CP0) Cause() uint32 { return c.regs[CP0Cause] }

// SetCause overwrites the cause register.
func (c *CP0) SetCause(v uint32) { c.regs[CP0Cause] = v }

// EPC returns the exception program counter.
func (c *CP0) EPC() uint32 { return c.regs[CP0EPC] }

// SetEPC overwrites the exception program counter.
func (c *CP0) SetEPC(v uint32) { c.regs[CP0EPC] = v }

// IsolateCache reports whether SR.IsC (bit 16) is set.
func (c *CP0) IsolateCache() bool {
	return bitutil.IsSet(c.SR(), srIsC)
}

// BEV reports whether SR.BEV (bit 22) is set, selecting the ROM exception
// vector over the RAM one.
func (c *CP0) BEV() bool {
	return bitutil.IsSet(c.SR(), srBEV)
}

// InterruptsEnabled reports SR.IEc, the current-mode interrupt-enable bit.
func (c *CP0) InterruptsEnabled() bool {
	return bitutil.IsSet(c.SR(), srIEc)
}

// InterruptMask returns SR's IM0-IM7 field (bits 8-15), the per-source
// interrupt mask seen by the CPU.
func (c *CP0) InterruptMask() uint32 {
	return bitutil.ExtractField(c.SR(), 15, 8)
}

// PendingInterrupts returns Cause's IP0-IP7 field (bits 8-15).
func (c *CP0) PendingInterrupts() uint32 {
	return bitutil.ExtractField(c.Cause(), causeIPHigh, causeIPLow)
}

// SetIP2 sets or clears Cause.IP2, the peripheral interrupt line driven by
// the interrupt controller.
func (c *CP0) SetIP2(on bool) {
	c.regs[CP0Cause] = bitutil.AssignBit(c.regs[CP0Cause], causeIP2, on)
}

// PushModeStack shifts SR's 6-bit interrupt/mode stack left by 2 on
// exception entry: IEp/KUp move to IEo/KUo, IEc/KUc move to IEp/KUp, and
// the new IEc/KUc are cleared.
func (c *CP0) PushModeStack() {
	sr := c.SR()
	low6 := sr & 0x3F
	sr &^= 0x3F
	sr |= (low6 << 2) & 0x3F
	c.SetSR(sr)
}

// PopModeStack shifts SR's 6-bit interrupt/mode stack right by 2 on RFE.
func (c *CP0) PopModeStack() {
	sr := c.SR()
	low6 := sr & 0x3F
	sr &^= 0x3F
	sr |= low6 >> 2
	c.SetSR(sr)
}

// SetExcCode replaces Cause's ExcCode field (bits 2-6) with code.
func (c *CP0) SetExcCode(code uint32) {
	cause := c.Cause()
	cause &^= 0x7C
	cause |= (code << causeExcCodeLow) & 0x7C
	c.SetCause(cause)
}

// SetBD sets or clears Cause.BD (bit 31), marking whether the faulting
// instruction was in a branch delay slot.
func (c *CP0) SetBD(on bool) {
	c.regs[CP0Cause] = bitutil.AssignBit(c.regs[CP0Cause], causeBD, on)
}

func cp0RegisterName(reg uint8) string { return cp0RegisterNames[reg&0x1F] }

// DumpSR renders the status register's bit fields for debug display.
func (c *CP0) DumpSR() string {
	sr := c.SR()
	var b strings.Builder
	fmt.Fprintf(&b, "CU3[%d] CU2[%d] CU1[%d] CU0[%d] ",
		(sr>>31)&1, (sr>>30)&1, (sr>>29)&1, (sr>>28)&1)
	fmt.Fprintf(&b, "BEV[%d] IsC[%d] IM[%08b] ",
		(sr>>22)&1, (sr>>16)&1, (sr>>8)&0xFF)
	fmt.Fprintf(&b, "KUo[%d] IEo[%d] KUp[%d] IEp[%d] KUc[%d] IEc[%d]",
		(sr>>5)&1, (sr>>4)&1, (sr>>3)&1, (sr>>2)&1, (sr>>1)&1, sr&1)
	return b.String()
}

// DumpCause renders the cause register's bit fields for debug display.
func (c *CP0) DumpCause() string {
	cause := c.Cause()
	return fmt.Sprintf("BD[%d] IP[%08b] ExcCode[%05b]",
		(cause>>31)&1, (cause>>8)&0xFF, (cause>>2)&0x1F)
}
