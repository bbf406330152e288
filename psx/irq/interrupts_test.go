package irq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCPU struct {
	ip2      bool
	checked  int
}

func (f *fakeCPU) SetIP2(on bool)     { f.ip2 = on }
func (f *fakeCPU) CheckInterrupts()   { f.checked++ }

func TestNotify_SetsStatBitAndIP2(t *testing.T) {
	cpu := &fakeCPU{}
	c := New(cpu, nil)

	c.Notify(VBlank)

	assert.Equal(t, uint32(1), c.Stat())
	assert.True(t, cpu.ip2, "IP2 should be raised once an unmasked source notifies")
}

func TestWriteStat_OnlyClearsBits(t *testing.T) {
	cpu := &fakeCPU{}
	c := New(cpu, nil)

	c.Notify(VBlank)
	c.Notify(GPU)
	assert.Equal(t, uint32(0x3), c.Stat())

	// Writing a 0 to VBlank's bit should clear it; writing 1 elsewhere
	// should not set anything (I_STAT is AND-cleared, never OR-set, by
	// the CPU side).
	c.WriteStat(0xFFFFFFFE)
	assert.Equal(t, uint32(0x2), c.Stat(), "only the written-1 bit should survive")
}

func TestMask_GatesIP2(t *testing.T) {
	cpu := &fakeCPU{}
	c := New(cpu, nil)

	c.WriteMask(0) // nothing unmasked
	c.Notify(VBlank)
	assert.False(t, cpu.ip2, "a masked-out source must not raise IP2")

	c.WriteMask(1 << VBlank)
	c.Notify(CDROM) // still masked out
	assert.False(t, cpu.ip2)

	c.Notify(VBlank)
	assert.True(t, cpu.ip2)
}

func TestCheckAndExecute_AlwaysReEvaluatesCPU(t *testing.T) {
	cpu := &fakeCPU{}
	c := New(cpu, nil)
	c.Notify(VBlank)
	assert.Equal(t, 1, cpu.checked)
	c.WriteMask(0xFFFF)
	assert.Equal(t, 2, cpu.checked)
}
