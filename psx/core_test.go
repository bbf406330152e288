package psx

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boeker/psxgo/psx/mem"
	"github.com/boeker/psxgo/psx/render"
)

func newTestEmulator(t *testing.T) *Emulator {
	t.Helper()
	bios := make([]byte, mem.BIOSSize)
	e, err := New(bios, render.NewMemoryRenderer(), nil)
	require.NoError(t, err)
	return e
}

func TestNew_RejectsWrongSizedBIOS(t *testing.T) {
	_, err := New(make([]byte, 16), render.NewMemoryRenderer(), nil)
	assert.Error(t, err)
}

func TestEmulateBlock_AdvancesCyclesAndFiresVBlankSafetyNet(t *testing.T) {
	e := newTestEmulator(t)
	e.vblankBudget = cpuVBlankFrequency - blockInstructions // one block away from the trigger

	before := e.FrameCount()
	e.emulateBlock()
	assert.Equal(t, before+1, e.FrameCount(), "crossing the cpuVBlankFrequency budget must fire the VBlank safety net")
}

func TestRunUntilFrame_Paused_DoesNothing(t *testing.T) {
	e := newTestEmulator(t)
	e.SetDebuggerState(DebuggerPaused)

	before := e.CPU.Cycles()
	e.RunUntilFrame()
	assert.Equal(t, before, e.CPU.Cycles(), "a paused emulator must not step the CPU")
}

func TestStepInstruction_ExecutesExactlyOneBlockThenPauses(t *testing.T) {
	e := newTestEmulator(t)
	e.SetDebuggerState(DebuggerPaused)
	e.StepInstruction()

	before := e.CPU.Cycles()
	e.RunUntilFrame()
	assert.Equal(t, before+blockInstructions, e.CPU.Cycles())
	assert.Equal(t, DebuggerPaused, e.DebuggerState(), "a single step returns to paused")

	// A second RunUntilFrame call without a new step request must do nothing.
	after := e.CPU.Cycles()
	e.RunUntilFrame()
	assert.Equal(t, after, e.CPU.Cycles())
}

func TestStepFrame_RunsUntilNextFrameThenPauses(t *testing.T) {
	e := newTestEmulator(t)
	e.vblankBudget = cpuVBlankFrequency - blockInstructions
	e.SetDebuggerState(DebuggerPaused)
	e.StepFrame()

	beforeFrame := e.FrameCount()
	e.RunUntilFrame()
	assert.Equal(t, beforeFrame+1, e.FrameCount())
	assert.Equal(t, DebuggerPaused, e.DebuggerState())
}

func TestSideload_InjectsAtTriggerPCExactlyOnce(t *testing.T) {
	e := newTestEmulator(t)

	const entryPC = 0x00010000
	const destAddr = 0x00010000
	const initialGP = 0x12345678
	const initialSP = 0x801FFF00

	body := []byte{0xEF, 0xBE, 0xAD, 0xDE, 0x11, 0x22, 0x33, 0x44}
	header := make([]byte, sideloadHeaderSize)
	copy(header[:8], sideloadMagic)
	binary.LittleEndian.PutUint32(header[0x10:], entryPC)
	binary.LittleEndian.PutUint32(header[0x14:], initialGP)
	binary.LittleEndian.PutUint32(header[0x18:], destAddr)
	binary.LittleEndian.PutUint32(header[0x1C:], uint32(len(body)))
	binary.LittleEndian.PutUint32(header[0x30:], initialSP)
	exe := append(header, body...)

	require.NoError(t, e.LoadSideload(exe))

	e.CPU.JumpTo(sideloadTriggerPC)
	e.checkSideload()

	assert.Equal(t, uint32(initialGP), e.CPU.Regs.GPR(28))
	assert.Equal(t, uint32(initialSP), e.CPU.Regs.GPR(29))
	assert.Equal(t, uint32(initialSP), e.CPU.Regs.GPR(30))
	assert.Equal(t, uint32(entryPC), e.CPU.PC())
	assert.Equal(t, body, e.Mem.MainRAM[destAddr:destAddr+len(body)])

	// A second trigger must not re-inject: move the GP register and confirm
	// it survives a repeated checkSideload at the same PC.
	e.CPU.Regs.SetGPR(28, 0)
	e.checkSideload()
	assert.Equal(t, uint32(0), e.CPU.Regs.GPR(28), "an already-injected sideload must not fire again")
}

func TestExtractDebugData_PopulatesRegistersAndDisasm(t *testing.T) {
	e := newTestEmulator(t)
	data := e.ExtractDebugData()
	assert.Equal(t, e.CPU.PC(), data.PC)
	assert.NotEmpty(t, data.Disasm)
}
