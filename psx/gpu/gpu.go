// Package gpu implements the GPU command-processing front-end: the GP0
// command FIFO and dispatch state machine, GP1 system commands, GPUSTAT,
// the VRAM transfer state machine, and video/dot-clock timing. Pixel
// storage and presentation are delegated to a Renderer implementation.
package gpu

import "log/slog"

// State is the GP0 command-processor state, per spec.md §4.5.
type State int

const (
	Idle State = iota
	WaitingForGP0Params
	ExecutingGP0
	TransferToVRAM
	TransferToCPU
)

const fifoSize = 16

// IrqSink is the narrow notification surface the GPU needs on the
// interrupt controller, for the VBlank and GPU-command interrupt bits.
type IrqSink interface {
	Notify(bit uint)
}

// TimerSink is the narrow notification surface the GPU needs on the timer
// subsystem for dot-clock and blank-edge events.
type TimerSink interface {
	NotifyDots(dots uint32)
	NotifyHBlankStart()
	NotifyHBlankEnd()
	NotifyVBlankStart()
	NotifyVBlankEnd()
}

// transfer tracks an in-progress VRAM<->CPU rectangle transfer.
type transfer struct {
	x0, y0         int32
	w, h           int32
	curX, curY     int32
	remainingWords uint32
}

// GPU is the command-processing front-end.
type GPU struct {
	renderer Renderer
	irq      IrqSink
	timers   TimerSink
	log      *slog.Logger

	fifo      [fifoSize]uint32
	fifoHead  int
	fifoCount int

	state   State
	opcode  uint8
	params  []uint32
	wantLen uint32

	status       uint32
	readResponse uint32

	xfer transfer

	drawModeBits     uint32
	textureDisable   bool
	drawAreaX1       int32
	drawAreaY1       int32
	drawAreaX2       int32
	drawAreaY2       int32
	drawOffsetX      int32
	drawOffsetY      int32
	texWindowMaskX   uint32
	texWindowMaskY   uint32
	texWindowOffX    uint32
	texWindowOffY    uint32
	startDisplayX    int32
	startDisplayY    int32
	hRangeX1, hRangeX2 uint32
	vRangeY1, vRangeY2 uint32
	displayMode      uint32

	remainingGPUCycles uint64 // 16.16 fixed-point accumulator
	scanline           uint32
	scanlineCycle      uint32
	dotAccum           uint32
	inHBlank           bool
}

const (
	statIRQ          = 24
	statDataRequest  = 25
	statDisplayEnable = 23 // 0 = enabled, 1 = disabled
)

// New returns a GPU wired to renderer, irq, and timers.
func New(renderer Renderer, irq IrqSink, timers TimerSink, log *slog.Logger) *GPU {
	if log == nil {
		log = slog.Default()
	}
	g := &GPU{renderer: renderer, irq: irq, timers: timers, log: log}
	g.resetGPU()
	return g
}

// Status returns the GPUSTAT register (I/O 0x1F801814 read).
func (g *GPU) Status() uint32 { return g.status }

// ReadResponse returns the last GPUREAD-or-GetGPUInfo word (I/O 0x1F801810
// read, outside an active TransferToCPU).
func (g *GPU) ReadResponse() uint32 { return g.readResponse }

// DisplayOrigin returns the VRAM coordinate GP1 0x05 last set as the
// top-left of the visible display area, for a presentation backend to
// align its framebuffer read window.
func (g *GPU) DisplayOrigin() (x, y int32) { return g.startDisplayX, g.startDisplayY }

// WriteGP0 pushes a GP0 command word, or if a CPU-to-VRAM transfer is in
// progress, consumes it as transfer data instead.
func (g *GPU) WriteGP0(word uint32) {
	if g.state == TransferToVRAM {
		g.consumeTransferWord(word)
		return
	}
	g.pushFIFO(word)
	g.runStateMachine()
}

// ReadGPU implements the GPUREAD register: during TransferToCPU it emits
// packed pixel words, otherwise it returns the last response word.
func (g *GPU) ReadGPU() uint32 {
	if g.state == TransferToCPU {
		return g.produceTransferWord()
	}
	return g.readResponse
}

// WriteGP1 executes a GP1 system command.
func (g *GPU) WriteGP1(word uint32) {
	op := uint8(word >> 24)
	param := word & 0xFFFFFF
	switch {
	case op == 0x00:
		g.resetGPU()
	case op == 0x01:
		g.fifoHead, g.fifoCount = 0, 0
		g.state = Idle
	case op == 0x02:
		g.status &^= 1 << statIRQ
	case op == 0x03:
		g.setBitFrom(statDisplayEnable, param&1 == 0)
	case op == 0x04:
		g.status = (g.status &^ (0x3 << 29)) | ((param & 0x3) << 29)
		g.recomputeDataRequest()
	case op == 0x05:
		g.startDisplayX = int32(param & 0x3FF)
		g.startDisplayY = int32((param >> 10) & 0x1FF)
	case op == 0x06:
		g.hRangeX1 = param & 0xFFF
		g.hRangeX2 = (param >> 12) & 0xFFF
	case op == 0x07:
		g.vRangeY1 = param & 0x3FF
		g.vRangeY2 = (param >> 10) & 0x3FF
	case op == 0x08:
		g.displayMode = param
		g.status = (g.status &^ (0x3F << 17)) | ((param & 0x3F) << 17)
		g.setBitFrom(16, param&0x40 != 0)
		g.setBitFrom(14, param&0x20 != 0)
	case op == 0x09:
		g.textureDisable = param&1 != 0
		g.setBitFrom(15, g.textureDisable)
	case op >= 0x10 && op <= 0x1F:
		g.getGPUInfo(uint8(param & 0xFF))
	default:
		g.log.Debug("gp1 unhandled", "op", op)
	}
}

func (g *GPU) setBitFrom(bit uint, on bool) {
	if on {
		g.status |= 1 << bit
	} else {
		g.status &^= 1 << bit
	}
}

func (g *GPU) resetGPU() {
	g.fifoHead, g.fifoCount = 0, 0
	g.state = Idle
	g.status = 0
	g.status |= 1 << 26 // CmdWordReceiveReady
	g.status |= 1 << 27 // VRAM_SendReady
	g.status |= 1 << 28 // DMA_ReceiveReady
	g.drawModeBits = 0
	g.textureDisable = false
	g.drawAreaX1, g.drawAreaY1 = 0, 0
	g.drawAreaX2, g.drawAreaY2 = 0, 0
	g.drawOffsetX, g.drawOffsetY = 0, 0
	g.texWindowMaskX, g.texWindowMaskY = 0, 0
	g.texWindowOffX, g.texWindowOffY = 0, 0
	g.startDisplayX, g.startDisplayY = 0, 0
	g.hRangeX1, g.hRangeX2 = 0x200, 0xC00
	g.vRangeY1, g.vRangeY2 = 0x10, 0x100
	g.displayMode = 0
	g.recomputeDataRequest()
}

// getGPUInfo implements GP1 0x10-0x1F: the original source stubs this to
// always return 0; this front-end answers the small set of registers real
// BIOS/game code actually probes, per SPEC_FULL.md's resolved open question.
func (g *GPU) getGPUInfo(sub uint8) {
	switch sub & 0xF {
	case 0x2: // texture window, in GP0 0xE2's field layout
		g.readResponse = g.texWindowMaskX | g.texWindowMaskY<<5 | g.texWindowOffX<<10 | g.texWindowOffY<<15
	case 0x3: // draw area top-left
		g.readResponse = uint32(g.drawAreaX1) | uint32(g.drawAreaY1)<<10
	case 0x4: // draw area bottom-right
		g.readResponse = uint32(g.drawAreaX2) | uint32(g.drawAreaY2)<<10
	case 0x5: // drawing offset
		g.readResponse = (uint32(g.drawOffsetX) & 0x7FF) | (uint32(g.drawOffsetY)&0x7FF)<<11
	case 0x7: // GPU version
		g.readResponse = 2
	default:
		g.readResponse = 0
	}
}

func (g *GPU) pushFIFO(word uint32) {
	if g.fifoCount >= fifoSize {
		g.log.Warn("gp0 fifo overflow, dropping word")
		return
	}
	idx := (g.fifoHead + g.fifoCount) % fifoSize
	g.fifo[idx] = word
	g.fifoCount++
	if (g.status>>29)&0x3 == 1 && g.fifoCount == fifoSize { // DMA_Direction == FIFO mode
		g.status &^= 1 << 26
	}
	g.recomputeDataRequest()
}

func (g *GPU) popFIFO() (uint32, bool) {
	if g.fifoCount == 0 {
		return 0, false
	}
	w := g.fifo[g.fifoHead]
	g.fifoHead = (g.fifoHead + 1) % fifoSize
	g.fifoCount--
	g.status |= 1 << 26
	g.recomputeDataRequest()
	return w, true
}

// runStateMachine drains the FIFO as far as it currently can, per the
// Idle/WaitingForGP0Params/ExecutingGP0 loop of spec.md §4.5.
func (g *GPU) runStateMachine() {
	for {
		switch g.state {
		case Idle:
			word, ok := g.popFIFO()
			if !ok {
				return
			}
			g.opcode = uint8(word >> 24)
			g.params = g.params[:0]
			g.params = append(g.params, word)
			g.wantLen = gp0ParamCount[g.opcode]
			if g.wantLen == 0 {
				g.state = ExecutingGP0
			} else {
				g.state = WaitingForGP0Params
			}
		case WaitingForGP0Params:
			for uint32(len(g.params)-1) < g.wantLen {
				word, ok := g.popFIFO()
				if !ok {
					return
				}
				g.params = append(g.params, word)
			}
			g.state = ExecutingGP0
		case ExecutingGP0:
			g.executeGP0()
			if g.state == ExecutingGP0 {
				g.state = Idle
			}
		default:
			return
		}
	}
}

func (g *GPU) executeGP0() {
	if !gp0Handled[g.opcode] {
		g.log.Debug("gp0 unhandled", "op", g.opcode)
		return
	}
	p := g.params
	switch g.opcode {
	case 0x00, 0x01:
		// NOP / ClearCache
	case 0x02:
		c := colorFromWord(p[0])
		x, y := int32(p[1]&0x3FF), int32((p[1]>>16)&0x1FF)
		w, h := int32(p[2]&0x3FF), int32((p[2]>>16)&0x1FF)
		g.renderer.FillRectangleInVRAM(c, x, y, w, h)
	case 0x28:
		c := colorFromWord(p[0])
		v1, v2, v3, v4 := vertexFromWord(p[1]), vertexFromWord(p[2]), vertexFromWord(p[3]), vertexFromWord(p[4])
		g.renderer.DrawTriangle(Triangle{V1: v1, V2: v2, V3: v3, C1: c, C2: c, C3: c})
		g.renderer.DrawTriangle(Triangle{V1: v2, V2: v3, V3: v4, C1: c, C2: c, C3: c})
	case 0x2C, 0x2D, 0x2F:
		c := colorFromWord(p[0])
		v1, tex0 := vertexFromWord(p[1]), p[2]
		v2, tex1 := vertexFromWord(p[3]), p[4]
		v3, tex2 := vertexFromWord(p[5]), p[6]
		v4, tex3 := vertexFromWord(p[7]), p[8]
		clut := uint16(tex0 >> 16)
		texPage := uint16(tex1 >> 16)
		tc1, tc2, tc3, tc4 := texCoordFromWord(tex0), texCoordFromWord(tex1), texCoordFromWord(tex2), texCoordFromWord(tex3)
		g.renderer.DrawTexturedTriangle(TexturedTriangle{Color: c, V1: v1, V2: v2, V3: v3, T1: tc1, T2: tc2, T3: tc3, TexPage: texPage, ClutPalette: clut})
		g.renderer.DrawTexturedTriangle(TexturedTriangle{Color: c, V1: v2, V2: v3, V3: v4, T1: tc2, T2: tc3, T3: tc4, TexPage: texPage, ClutPalette: clut})
	case 0x30:
		c1 := colorFromWord(p[0])
		v1 := vertexFromWord(p[1])
		c2 := colorFromWord(p[2])
		v2 := vertexFromWord(p[3])
		c3 := colorFromWord(p[4])
		v3 := vertexFromWord(p[5])
		g.renderer.DrawTriangle(Triangle{V1: v1, V2: v2, V3: v3, C1: c1, C2: c2, C3: c3})
	case 0x38:
		c1 := colorFromWord(p[0])
		v1 := vertexFromWord(p[1])
		c2 := colorFromWord(p[2])
		v2 := vertexFromWord(p[3])
		c3 := colorFromWord(p[4])
		v3 := vertexFromWord(p[5])
		c4 := colorFromWord(p[6])
		v4 := vertexFromWord(p[7])
		g.renderer.DrawTriangle(Triangle{V1: v1, V2: v2, V3: v3, C1: c1, C2: c2, C3: c3})
		g.renderer.DrawTriangle(Triangle{V1: v2, V2: v3, V3: v4, C1: c2, C2: c3, C3: c4})
	case 0x65:
		c := colorFromWord(p[0])
		v1 := vertexFromWord(p[1])
		tc1 := texCoordFromWord(p[2])
		wh := p[3]
		w, h := int32(wh&0xFFFF), int32((wh>>16)&0xFFFF)
		v2 := Vertex{X: v1.X + w, Y: v1.Y}
		v3 := Vertex{X: v1.X, Y: v1.Y + h}
		v4 := Vertex{X: v1.X + w, Y: v1.Y + h}
		g.renderer.DrawTexturedTriangle(TexturedTriangle{Color: c, V1: v1, V2: v2, V3: v3, T1: tc1, T2: tc1, T3: tc1})
		g.renderer.DrawTexturedTriangle(TexturedTriangle{Color: c, V1: v2, V2: v3, V3: v4, T1: tc1, T2: tc1, T3: tc1})
	case 0x68:
		c := colorFromWord(p[0])
		v := vertexFromWord(p[1])
		g.renderer.FillRectangleInVRAM(c, v.X, v.Y, 1, 1)
	case 0xA0, 0xC0:
		// handled below once the full parameter set (including w/h) has
		// arrived; nothing to render here.
	case 0xE1:
		g.drawModeBits = p[0] & 0x7FF
		g.status = (g.status &^ 0x7FF) | g.drawModeBits
		g.setBitFrom(15, p[0]&0x800 != 0)
	case 0xE2:
		g.texWindowMaskX = p[0] & 0x1F
		g.texWindowMaskY = (p[0] >> 5) & 0x1F
		g.texWindowOffX = (p[0] >> 10) & 0x1F
		g.texWindowOffY = (p[0] >> 15) & 0x1F
	case 0xE3:
		x := int32(p[0] & 0x3FF)
		y := int32((p[0] >> 10) & 0x1FF)
		g.drawAreaX1, g.drawAreaY1 = x, y
		g.renderer.SetDrawingAreaTopLeft(x, y)
	case 0xE4:
		x := int32(p[0] & 0x3FF)
		y := int32((p[0] >> 10) & 0x1FF)
		g.drawAreaX2, g.drawAreaY2 = x, y
		g.renderer.SetDrawingAreaBottomRight(x, y)
	case 0xE5:
		g.drawOffsetX = signExtend11(p[0])
		g.drawOffsetY = signExtend11(p[0] >> 11)
	case 0xE6:
		g.setBitFrom(11, p[0]&1 != 0)
		g.setBitFrom(12, p[0]&2 != 0)
	}

	switch g.opcode {
	case 0xA0:
		g.beginTransferToVRAM()
	case 0xC0:
		g.beginTransferToCPU()
	}
}

// beginTransferToVRAM reads params[1] (x/y) and params[2] (w/h) — the
// command's two parameter words besides the leading opcode word — and
// switches the state machine to TransferToVRAM to consume the pixel data
// that follows as raw GP0 words.
func (g *GPU) beginTransferToVRAM() {
	if len(g.params) < 3 {
		g.state = Idle
		return
	}
	xy, wh := g.params[1], g.params[2]
	x, y := int32(xy&0x3FF), int32((xy>>16)&0x1FF)
	w, h := rectSize(wh)
	g.xfer = transfer{x0: x, y0: y, w: w, h: h, curX: x, curY: y, remainingWords: uint32((w*h + 1) / 2)}
	g.state = TransferToVRAM
}

func rectSize(wh uint32) (int32, int32) {
	w, h := int32(wh&0xFFFF), int32((wh>>16)&0xFFFF)
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	return w, h
}

func (g *GPU) beginTransferToCPU() {
	if len(g.params) < 3 {
		g.state = Idle
		return
	}
	xy := g.params[1]
	x, y := int32(xy&0x3FF), int32((xy>>16)&0x1FF)
	w, h := rectSize(g.params[2])
	g.xfer = transfer{x0: x, y0: y, w: w, h: h, curX: x, curY: y, remainingWords: uint32((w*h + 1) / 2)}
	g.state = TransferToCPU
}

func (g *GPU) advanceTransferCursor() {
	g.xfer.curX++
	if g.xfer.curX >= g.xfer.x0+g.xfer.w {
		g.xfer.curX = g.xfer.x0
		g.xfer.curY++
	}
}

func (g *GPU) consumeTransferWord(word uint32) {
	low := uint16(word)
	high := uint16(word >> 16)
	g.renderer.WriteToVRAM(g.xfer.curX, g.xfer.curY, low)
	g.advanceTransferCursor()
	g.renderer.WriteToVRAM(g.xfer.curX, g.xfer.curY, high)
	g.advanceTransferCursor()
	if g.xfer.remainingWords > 0 {
		g.xfer.remainingWords--
	}
	if g.xfer.remainingWords == 0 {
		g.state = Idle
	}
}

// produceTransferWord packs two successive VRAM half-words into a 32-bit
// GPUREAD response; per spec.md §4.5 the second sample occupies the high
// half of the packed word.
func (g *GPU) produceTransferWord() uint32 {
	v1 := g.renderer.ReadFromVRAM(g.xfer.curX, g.xfer.curY)
	g.advanceTransferCursor()
	v2 := g.renderer.ReadFromVRAM(g.xfer.curX, g.xfer.curY)
	g.advanceTransferCursor()
	if g.xfer.remainingWords > 0 {
		g.xfer.remainingWords--
	}
	if g.xfer.remainingWords == 0 {
		g.state = Idle
	}
	return (uint32(v2) << 16) | uint32(v1)
}

func (g *GPU) recomputeDataRequest() {
	dir := (g.status >> 29) & 0x3
	var on bool
	switch dir {
	case 0:
		on = false
	case 1:
		on = g.fifoCount < fifoSize
	case 2:
		on = g.status&(1<<28) != 0
	case 3:
		on = g.status&(1<<27) != 0
	}
	g.setBitFrom(statDataRequest, on)
}

const (
	gpuCyclesPerCPUCycleNum = 103896
	gpuCyclesPerCPUCycleDen = 65536
	scanlineTotalCycles     = 3413
	scanlineActiveCycles    = 2560
	scanlinesPerFrame       = 263
	activeScanlines         = 240
)

// CatchUpToCPU advances GPU/video timing by cpuCycles worth of CPU clock,
// driving scanline/HBlank/VBlank transitions and dot-clock notifications,
// per spec.md §4.5's "Video timing" section.
func (g *GPU) CatchUpToCPU(cpuCycles uint32) {
	g.remainingGPUCycles += uint64(cpuCycles) * gpuCyclesPerCPUCycleNum
	for g.remainingGPUCycles >= gpuCyclesPerCPUCycleDen {
		g.remainingGPUCycles -= gpuCyclesPerCPUCycleDen
		g.tickGPUCycle()
	}
}

// resolutionFactor returns 2560/horizontal_resolution_px; GPUSTAT bit 16
// ("horizontal resolution 368") aside, the common case is bits 17-18
// selecting 256/320/512/640 (values 0-3); this front-end distinguishes only
// the 640-wide mode (factor 4) from everything else (factor 8, 320-wide),
// the two resolutions the teacher's terminal renderer actually targets.
func (g *GPU) resolutionFactor() uint32 {
	if (g.status>>17)&0x3 == 3 { // 3 = 640 px wide
		return 2560 / 640
	}
	return 2560 / 320
}

func (g *GPU) tickGPUCycle() {
	g.scanlineCycle++
	g.dotAccum++
	if g.dotAccum >= g.resolutionFactor() {
		g.dotAccum = 0
		g.timers.NotifyDots(1)
	}
	if g.scanlineCycle == scanlineActiveCycles {
		g.inHBlank = true
		g.timers.NotifyHBlankStart()
	}
	if g.scanlineCycle >= scanlineTotalCycles {
		g.scanlineCycle = 0
		g.inHBlank = false
		g.timers.NotifyHBlankEnd()
		g.scanline++
		if g.scanline == activeScanlines {
			g.timers.NotifyVBlankStart()
			g.renderer.SwapBuffers()
			g.irq.Notify(0)
		}
		if g.scanline >= scanlinesPerFrame {
			g.scanline = 0
			g.timers.NotifyVBlankEnd()
		}
	}
}
