package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeRenderer is a minimal Renderer for exercising GPU dispatch without
// pulling in psx/render (which imports this package).
type fakeRenderer struct {
	vram map[[2]int32]uint16
}

func newFakeRenderer() *fakeRenderer { return &fakeRenderer{vram: make(map[[2]int32]uint16)} }

func (r *fakeRenderer) Clear(Color)                                 {}
func (r *fakeRenderer) DrawTriangle(Triangle)                       {}
func (r *fakeRenderer) DrawTexturedTriangle(TexturedTriangle)       {}
func (r *fakeRenderer) FillRectangleInVRAM(c Color, x, y, w, h int32) {}
func (r *fakeRenderer) WriteToVRAM(x, y int32, pixel uint16)        { r.vram[[2]int32{x, y}] = pixel }
func (r *fakeRenderer) ReadFromVRAM(x, y int32) uint16              { return r.vram[[2]int32{x, y}] }
func (r *fakeRenderer) SwapBuffers()                                {}
func (r *fakeRenderer) SetDrawingAreaTopLeft(x, y int32)            {}
func (r *fakeRenderer) SetDrawingAreaBottomRight(x, y int32)        {}

type fakeIrqSink struct {
	notified []uint
}

func (f *fakeIrqSink) Notify(bit uint) { f.notified = append(f.notified, bit) }

type fakeTimerSink struct {
	dots           uint32
	hblankStarts   int
	hblankEnds     int
	vblankStarts   int
	vblankEnds     int
}

func (f *fakeTimerSink) NotifyDots(dots uint32)  { f.dots += dots }
func (f *fakeTimerSink) NotifyHBlankStart()      { f.hblankStarts++ }
func (f *fakeTimerSink) NotifyHBlankEnd()        { f.hblankEnds++ }
func (f *fakeTimerSink) NotifyVBlankStart()      { f.vblankStarts++ }
func (f *fakeTimerSink) NotifyVBlankEnd()        { f.vblankEnds++ }

func newTestGPU() (*GPU, *fakeIrqSink, *fakeTimerSink) {
	irq := &fakeIrqSink{}
	timers := &fakeTimerSink{}
	g := New(newFakeRenderer(), irq, timers, nil)
	return g, irq, timers
}

func TestGP0_FillRectangle_DispatchesAfterAllParams(t *testing.T) {
	g, _, _ := newTestGPU()

	g.WriteGP0(uint32(0x02) << 24) // opcode, wants 2 more params
	assert.Equal(t, WaitingForGP0Params, g.state, "command isn't complete until all params arrive")

	g.WriteGP0(0)                          // x/y
	g.WriteGP0(uint32(4) | uint32(4)<<16) // w=4, h=4
	assert.Equal(t, Idle, g.state, "a fully-parameterized command executes and returns to idle")
}

func TestGP0_VRAMWriteThenReadback_RoundTrips(t *testing.T) {
	g, _, _ := newTestGPU()

	const x, y, w, h = 2, 3, 4, 2
	words := []uint32{0x1111_2222, 0x3333_4444, 0x5555_6666, 0x7777_8888}

	g.WriteGP0(uint32(0xA0) << 24)
	g.WriteGP0(uint32(x) | uint32(y)<<16)
	g.WriteGP0(uint32(w) | uint32(h)<<16)
	assert.Equal(t, TransferToVRAM, g.state)

	for _, w := range words {
		g.WriteGP0(w)
	}
	assert.Equal(t, Idle, g.state, "transfer completes once w*h pixels have arrived")

	g.WriteGP0(uint32(0xC0) << 24)
	g.WriteGP0(uint32(x) | uint32(y)<<16)
	g.WriteGP0(uint32(w) | uint32(h)<<16)
	assert.Equal(t, TransferToCPU, g.state)

	got := make([]uint32, 0, len(words))
	for range words {
		got = append(got, g.ReadGPU())
	}
	assert.Equal(t, words, got, "VRAM read-back must match the exact words written")
	assert.Equal(t, Idle, g.state)
}

func TestGP0_MoreImmediateCommandsThanFIFOSize_StayIdle(t *testing.T) {
	g, _, _ := newTestGPU()

	for i := 0; i < fifoSize+4; i++ {
		g.WriteGP0(uint32(0xE1) << 24) // 0-param command, immediately executes, never queues
	}
	assert.Equal(t, Idle, g.state)
}

func TestGP1_DisplayOrigin_RoundTrips(t *testing.T) {
	g, _, _ := newTestGPU()

	g.WriteGP1(uint32(0x05)<<24 | (100) | (50 << 10))
	x, y := g.DisplayOrigin()
	assert.Equal(t, int32(100), x)
	assert.Equal(t, int32(50), y)
}

func TestGP1_Reset_RestoresStatusBits(t *testing.T) {
	g, _, _ := newTestGPU()

	g.WriteGP1(uint32(0x05)<<24 | 10)
	g.WriteGP1(uint32(0x00) << 24) // reset

	x, _ := g.DisplayOrigin()
	assert.Equal(t, int32(0), x, "GP1 0x00 resets display origin along with everything else")
	assert.NotEqual(t, uint32(0), g.Status(), "reset status still carries the ready bits")
}

func TestCatchUpToCPU_FiresVBlankOncePerFrame(t *testing.T) {
	g, irq, timers := newTestGPU()

	// One full frame's worth of CPU cycles: scanlinesPerFrame * scanlineTotalCycles
	// GPU cycles, converted back to CPU cycles via the fixed-point ratio.
	gpuCyclesPerFrame := uint64(scanlinesPerFrame) * uint64(scanlineTotalCycles)
	cpuCyclesPerFrame := uint32((gpuCyclesPerFrame * gpuCyclesPerCPUCycleDen) / gpuCyclesPerCPUCycleNum)

	g.CatchUpToCPU(cpuCyclesPerFrame + 10) // a small margin to guarantee the wrap

	assert.GreaterOrEqual(t, len(irq.notified), 1, "VBlank start must raise the VBlank IRQ source")
	assert.GreaterOrEqual(t, timers.vblankStarts, 1)
	assert.GreaterOrEqual(t, timers.vblankEnds, 1)
	assert.GreaterOrEqual(t, timers.hblankStarts, activeScanlines)
}

func TestReadGPU_OutsideTransfer_ReturnsLastResponse(t *testing.T) {
	g, _, _ := newTestGPU()

	g.WriteGP1(uint32(0x10)<<24 | 0x07) // GetGPUInfo sub 0x7: GPU version
	assert.Equal(t, uint32(2), g.ReadGPU())
}
