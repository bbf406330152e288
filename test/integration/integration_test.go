// Package integration exercises the psx core end-to-end, covering the
// concrete scenarios named in the design's "Testable properties" section:
// reset/fetch, branch-delay semantics, load/store round-trips, the
// isolate-cache redirect, the GPU-driven VBlank, and a VRAM transfer
// round-trip.
package integration

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boeker/psxgo/psx"
	"github.com/boeker/psxgo/psx/cpu"
	"github.com/boeker/psxgo/psx/gpu"
	"github.com/boeker/psxgo/psx/mem"
	"github.com/boeker/psxgo/psx/render"
)

func encodeI(op, rs, rt uint32, imm uint16) uint32 {
	return op<<26 | rs<<21 | rt<<16 | uint32(imm)
}

func blankBIOS() []byte { return make([]byte, mem.BIOSSize) }

func newEmulator(t *testing.T, bios []byte) *psx.Emulator {
	t.Helper()
	e, err := psx.New(bios, render.NewMemoryRenderer(), nil)
	require.NoError(t, err)
	return e
}

// writeRAMProgram places words into MainRAM starting at physical offset 0
// (KUSEG/KSEG0 address 0x00000000/0x80000000) and points the CPU's fetch
// cursor at the KSEG0 mirror.
func writeRAMProgram(e *psx.Emulator, words ...uint32) {
	for i, w := range words {
		binary.LittleEndian.PutUint32(e.Mem.MainRAM[i*4:], w)
	}
	e.CPU.JumpTo(0x80000000)
}

func TestResetThenLUI(t *testing.T) {
	bios := blankBIOS()
	binary.LittleEndian.PutUint32(bios, encodeI(0x0F, 0, 1, 0x1F80)) // LUI r1, 0x1F80
	e := newEmulator(t, bios)

	e.CPU.Step()
	e.CPU.Step()

	assert.Equal(t, uint32(0x1F800000), e.CPU.Regs.GPR(1))
	assert.Equal(t, uint32(cpu.ResetPC+8), e.CPU.PC())
}

func TestBranchWithDelaySlot(t *testing.T) {
	e := newEmulator(t, blankBIOS())
	e.CPU.Regs.SetGPR(1, 1) // r1 != 0, so BNE r0,r1 is taken

	writeRAMProgram(e,
		encodeI(0x05, 0, 1, 2),      // BNE r0, r1, +2 words -> skips the next word entirely
		encodeI(0x0D, 0, 2, 0x1234), // ORI r2, r0, 0x1234 (delay slot, must still execute)
		0,                           // skipped by the branch
		encodeI(0x09, 0, 3, 0x5678), // ADDIU r3, r0, 0x5678 (branch target)
	)

	e.CPU.Step() // BNE
	e.CPU.Step() // delay slot ORI
	e.CPU.Step() // branch target ADDIU

	assert.Equal(t, uint32(0x1234), e.CPU.Regs.GPR(2), "the delay-slot instruction must still execute")
	assert.Equal(t, uint32(0x5678), e.CPU.Regs.GPR(3), "the branch target must execute next")
	// PC() is the next instruction to retire: the word after the branch target.
	assert.Equal(t, uint32(0x80000010), e.CPU.PC())
}

func TestStoreLoadRoundTrip(t *testing.T) {
	e := newEmulator(t, blankBIOS())
	e.CPU.Regs.SetGPR(1, 0xCAFEBABE)
	e.CPU.Regs.SetGPR(29, 0x80010000) // sp

	writeRAMProgram(e,
		encodeI(0x2B, 29, 1, 0), // SW r1, 0(sp)
		encodeI(0x23, 29, 2, 0), // LW r2, 0(sp)
	)

	e.CPU.Step() // SW
	e.CPU.Step() // LW

	assert.Equal(t, e.CPU.Regs.GPR(1), e.CPU.Regs.GPR(2))
}

func TestIsolateCacheWrite(t *testing.T) {
	// The program runs from the BIOS: with IsC set, the bus redirects every
	// Main-RAM access, instruction fetches included, to the scratchpad.
	bios := blankBIOS()
	binary.LittleEndian.PutUint32(bios[0:], encodeI(0x2B, 4, 1, 0)) // SW r1, 0(r4)
	binary.LittleEndian.PutUint32(bios[4:], encodeI(0x23, 4, 2, 0)) // LW r2, 0(r4)
	e := newEmulator(t, bios)
	e.CPU.CP0.SetSR(1 << 16) // IsC
	e.CPU.Regs.SetGPR(1, 0xDEADBEEF)
	e.CPU.Regs.SetGPR(4, 0) // base address 0x00000000

	e.CPU.Step() // SW, redirected to scratchpad
	e.CPU.Step() // LW, still isolated, reads the redirected value back

	assert.Equal(t, e.CPU.Regs.GPR(1), e.CPU.Regs.GPR(2), "an isolated LW must see its own isolated SW")
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(e.Mem.MainRAM[0:4]), "MainRAM itself must be untouched")
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(e.Mem.Scratchpad[0:4]), "the write must land in the scratchpad instead")
}

// recordingRenderer wraps a MemoryRenderer to count SwapBuffers calls, for
// the VBlank scenario's "invoked exactly once" assertion.
type recordingRenderer struct {
	*render.MemoryRenderer
	swaps int
}

func (r *recordingRenderer) SwapBuffers() {
	r.swaps++
	r.MemoryRenderer.SwapBuffers()
}

func TestVBlankRaisesAfterOneField(t *testing.T) {
	rr := &recordingRenderer{MemoryRenderer: render.NewMemoryRenderer()}
	e, err := psx.New(blankBIOS(), rr, nil)
	require.NoError(t, err)

	// Cycles to advance the GPU's scanline counter to 240 (one NTSC field),
	// per the fixed-point GPU/CPU cycle ratio, with a small margin so the
	// wrap is guaranteed without overshooting into a second VBlank.
	const cpuCyclesForOneField = 517688
	e.GPU.CatchUpToCPU(cpuCyclesForOneField)

	assert.Equal(t, uint32(1), e.IRQ.Stat()&1, "VBlank (I_STAT bit 0) must be latched")
	assert.Equal(t, 1, rr.swaps, "SwapBuffers must fire exactly once per field")
}

func TestVRAMRoundTrip(t *testing.T) {
	e := newEmulator(t, blankBIOS())

	words := []uint32{0xAAAA_BBBB, 0xCCCC_DDDD}

	e.GPU.WriteGP0(uint32(0xA0) << 24) // CopyRectangleToVRAM
	e.GPU.WriteGP0(0)                  // x=0, y=0
	e.GPU.WriteGP0(uint32(2) | uint32(2)<<16) // w=2, h=2: 4 pixels, 2 packed words
	for _, w := range words {
		e.GPU.WriteGP0(w)
	}

	e.GPU.WriteGP0(uint32(0xC0) << 24) // CopyRectangleVRAMToCPU
	e.GPU.WriteGP0(0)
	e.GPU.WriteGP0(uint32(2) | uint32(2)<<16)

	got := []uint32{e.GPU.ReadGPU(), e.GPU.ReadGPU()}
	assert.Equal(t, words, got)
}

var _ gpu.Renderer = (*recordingRenderer)(nil)
