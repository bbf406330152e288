package cpu

import (
	"fmt"
	"log/slog"
	"strings"
)

// RegisterNames holds the MIPS calling-convention names for r0-r31, in the
// order the ABI assigns them (zero, at, v0-v1, a0-a3, t0-t7, s0-s7, t8-t9,
// k0-k1, gp, sp, fp, ra).
var RegisterNames = [32]string{
	"zero", "at",
	"v0", "v1",
	"a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9",
	"k0", "k1",
	"gp", "sp", "fp", "ra",
}

// ResetPC is the program counter value after power-on reset.
const ResetPC = 0xBFC00000

// Registers holds the 32 general-purpose registers, the program counter and
// the HI/LO multiply/divide results. Register 0 always reads as zero;
// SetGPR silently discards writes to it.
type Registers struct {
	gpr [32]uint32
	pc  uint32
	hi  uint32
	lo  uint32

	Log *slog.Logger
}

// NewRegisters returns a Registers in its post-reset state.
func NewRegisters() *Registers {
	r := &Registers{}
	r.Reset()
	return r
}

// Reset zeroes every general-purpose register, HI and LO, and sets PC to
// ResetPC.
func (r *Registers) Reset() {
	for i := range r.gpr {
		r.gpr[i] = 0
	}
	r.pc = ResetPC
	r.hi = 0
	r.lo = 0
}

// GPR reads general-purpose register rt. Register 0 always returns 0.
func (r *Registers) GPR(rt uint8) uint32 {
	return r.gpr[rt&0x1F]
}

// SetGPR writes value to general-purpose register rt. Writes to register 0
// are silently discarded.
func (r *Registers) SetGPR(rt uint8, value uint32) {
	if rt == 0 {
		return
	}
	r.gpr[rt&0x1F] = value
}

// PC returns the current program counter.
func (r *Registers) PC() uint32 { return r.pc }

// SetPC overwrites the program counter.
func (r *Registers) SetPC(pc uint32) { r.pc = pc }

// HI returns the multiply/divide high result register.
func (r *Registers) HI() uint32 { return r.hi }

// SetHI writes the HI register.
func (r *Registers) SetHI(v uint32) { r.hi = v }

// LO returns the multiply/divide low result register.
func (r *Registers) LO() uint32 { return r.lo }

// SetLO writes the LO register.
func (r *Registers) SetLO(v uint32) { r.lo = v }

// Dump renders the register file for debug panels and crash diagnostics.
func (r *Registers) Dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc\t0x%08X\n", r.pc)
	for i := 0; i < 16; i++ {
		fmt.Fprintf(&b, "%s/r%d\t0x%08X, %s/r%d\t0x%08X\n",
			RegisterNames[i], i, r.gpr[i],
			RegisterNames[16+i], 16+i, r.gpr[16+i])
	}
	fmt.Fprintf(&b, "hi\t0x%08X, lo\t0x%08X\n", r.hi, r.lo)
	return b.String()
}
