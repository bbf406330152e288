package psx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boeker/psxgo/psx/gpu"
	"github.com/boeker/psxgo/psx/irq"
	"github.com/boeker/psxgo/psx/mem"
	"github.com/boeker/psxgo/psx/render"
	"github.com/boeker/psxgo/psx/timer"
)

// newTestBus wires a Bus with real components but a caller-controlled
// isolateCache flag, so address-decoding tests don't need a CPU/CP0.
func newTestBus(isC *bool) *Bus {
	m := mem.New()
	irqc := irq.New(nil, nil)
	timers := timer.New(irqc, irq.Timer0, irq.Timer1, irq.Timer2)
	g := gpu.New(render.NewMemoryRenderer(), irqc, timers, nil)
	return NewBus(m, irqc, timers, g, func() bool { return *isC }, nil)
}

func TestSegmentMirroring_RouteToSameRAM(t *testing.T) {
	isC := false
	b := newTestBus(&isC)

	err := b.Write32(0x00001000, 0xCAFEBABE) // KUSEG
	assert.NoError(t, err)

	v, err := b.Read32(0x80001000) // KSEG0 mirror
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v)

	v2, err := b.Read32(0xA0001000) // KSEG1 mirror
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEBABE), v2)
}

func TestBIOSWrite_IsDropped(t *testing.T) {
	isC := false
	b := newTestBus(&isC)

	before, err := b.Read32(0xBFC00000)
	assert.NoError(t, err)

	err = b.Write32(0xBFC00000, 0x12345678)
	assert.NoError(t, err, "a dropped BIOS write is not itself a bus error")

	after, err := b.Read32(0xBFC00000)
	assert.NoError(t, err)
	assert.Equal(t, before, after, "BIOS is read-only")
}

func TestIsolateCache_RedirectsRAMToScratchpad(t *testing.T) {
	isC := true
	b := newTestBus(&isC)

	err := b.Write32(0x00000000, 0xDEADBEEF)
	assert.NoError(t, err)

	isC = false
	v, err := b.Read32(0x00000000)
	assert.NoError(t, err)
	assert.NotEqual(t, uint32(0xDEADBEEF), v, "write under IsC must not land in Main RAM")

	scratch, err := b.Read32(0x1F8FFC00)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), scratch, "write under IsC must land in the scratchpad instead")
}

func TestUnmappedAddress_ReturnsBusError(t *testing.T) {
	isC := false
	b := newTestBus(&isC)

	_, err := b.Read32(0x1F900000)
	assert.Error(t, err)
}

func TestIORouting_IRQRegisters(t *testing.T) {
	isC := false
	b := newTestBus(&isC)

	err := b.Write32(0x1F801074, 0x1)
	assert.NoError(t, err)
	v, err := b.Read32(0x1F801074)
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), v, "0x1F801074 is I_MASK")

	v2, err := b.Read32(0x1F801070)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), v2, "0x1F801070 is I_STAT, nothing pending yet")
}

func TestIORouting_GPUStatusAndGamepadDontOverlap(t *testing.T) {
	isC := false
	b := newTestBus(&isC)

	stat, err := b.Read32(0x1F801814)
	assert.NoError(t, err)
	assert.NotEqual(t, uint32(0), stat, "GPUSTAT has non-zero reset bits, e.g. idle/ready flags")

	_, err = b.Read32(0x1F801040)
	assert.NoError(t, err, "gamepad register reads are stubbed, not bus errors")
}
