package render

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
)

const (
	displayWidth  = 320
	displayHeight = 240

	registerHeight = 10
	disasmHeight   = 9
	minTermWidth   = 90
	minTermHeight  = 30

	frameTime = time.Second / 60
)

// DebugLine is one disassembled instruction shown in the debug panel.
type DebugLine struct {
	Address     uint32
	Instruction string
}

// DebugData is the snapshot of emulator state the terminal panel renders;
// a nil *DebugData means debug display is unavailable.
type DebugData struct {
	PC       uint32
	GPR      [32]uint32
	HI, LO   uint32
	SR       uint32
	Cause    uint32
	Cycles   uint64
	Disasm   []DebugLine
	Running  bool
}

// FrameSource exposes the GPU's VRAM plane to the terminal backend (the
// display origin is set separately via SetDisplayOrigin); MemoryRenderer
// satisfies it directly.
type FrameSource interface {
	ReadFromVRAM(x, y int32) uint16
}

// DebugProvider supplies the terminal backend with a point-in-time debug
// snapshot, decoupling it from the concrete CPU/core types.
type DebugProvider interface {
	ExtractDebugData() *DebugData
}

// Terminal is a tcell-based presentation layer: it reads VRAM directly out
// of a FrameSource and renders it as half-block characters, alongside an
// optional CPU/disassembly/log debug panel.
type Terminal struct {
	screen  tcell.Screen
	source  FrameSource
	debug   DebugProvider
	logs    *LogBuffer
	running bool

	showDebug  bool
	displayX0  int32
	displayY0  int32
}

// NewTerminal constructs (but does not Init) a terminal backend reading
// frames from source and debug snapshots from debug (either may be used
// without the other).
func NewTerminal(source FrameSource, debug DebugProvider) *Terminal {
	return &Terminal{source: source, debug: debug, logs: NewLogBuffer(200)}
}

// Init opens the terminal screen and installs a log-capturing slog handler.
func (t *Terminal) Init() error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("terminal init: %w", err)
	}
	t.screen = screen
	t.running = true

	handler := NewLogBufferHandler(t.logs, slog.LevelDebug)
	slog.SetDefault(slog.New(handler))

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	return nil
}

// Close tears down the terminal screen.
func (t *Terminal) Close() {
	if t.screen != nil {
		t.screen.Fini()
	}
}

// Running reports false once the user has requested to quit (via Ctrl-C or q).
func (t *Terminal) Running() bool { return t.running }

// ToggleDebug flips the debug panel on/off.
func (t *Terminal) ToggleDebug() { t.showDebug = !t.showDebug }

// PollEvents drains pending tcell events, updating Running()/ToggleDebug()
// state as keys are pressed.
func (t *Terminal) PollEvents() {
	for t.screen.HasPendingEvent() {
		switch ev := t.screen.PollEvent().(type) {
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyCtrlC, ev.Rune() == 'q':
				t.running = false
			case ev.Rune() == 'd':
				t.showDebug = !t.showDebug
			}
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}
}

// SetDisplayOrigin sets the VRAM coordinate the top-left of the visible
// framebuffer maps to (GP1 0x05's StartOfDisplayArea).
func (t *Terminal) SetDisplayOrigin(x, y int32) {
	t.displayX0, t.displayY0 = x, y
}

// Present draws one frame: it should be called once per GPU VBlank.
func (t *Terminal) Present() {
	termWidth, termHeight := t.screen.Size()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		t.screen.Clear()
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("terminal too small, need at least %dx%d", minTermWidth, minTermHeight)
		drawText(t.screen, 0, termHeight/2, msg, style)
		t.screen.Show()
		return
	}

	t.screen.Clear()
	dividerX := displayWidth/2 + 2
	t.drawFramebuffer(dividerX)
	t.drawDivider(dividerX, termHeight)

	if t.showDebug && t.debug != nil {
		panelX := dividerX + 2
		panelWidth := termWidth - panelX
		data := t.debug.ExtractDebugData()
		t.drawRegisters(panelX, 0, panelWidth, data)
		t.drawDisassembly(panelX, registerHeight+1, panelWidth, data)
		t.drawLogs(panelX, registerHeight+disasmHeight+2, panelWidth, termHeight)
	} else {
		t.drawLogs(dividerX+2, 0, termWidth-dividerX-2, termHeight)
	}

	t.screen.Show()
}

func (t *Terminal) drawDivider(x, termHeight int) {
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for y := 0; y < termHeight; y++ {
		t.screen.SetContent(x, y, '│', nil, style)
	}
}

// drawFramebuffer renders VRAM's visible window using half-block
// characters (two vertical pixels per terminal cell); each 15-bit BGR VRAM
// sample is expanded to 8-bit RGB and handed to tcell as an RGB color, and
// any fitting to a smaller terminal palette is left to tcell.
func (t *Terminal) drawFramebuffer(dividerX int) {
	for row := 0; row < displayHeight/2; row++ {
		for col := 0; col < displayWidth/2; col++ {
			px := int32(col * 2)
			py := int32(row * 2)
			top := t.source.ReadFromVRAM(t.displayX0+px, t.displayY0+py)
			bottom := t.source.ReadFromVRAM(t.displayX0+px, t.displayY0+py+1)

			fg := vramColorToTcell(top)
			bg := vramColorToTcell(bottom)
			style := tcell.StyleDefault.Foreground(fg).Background(bg)
			if col < dividerX {
				t.screen.SetContent(col, row+1, '▀', nil, style)
			}
		}
	}
}

func vramColorToTcell(v uint16) tcell.Color {
	r := uint8((v & 0x1F) << 3)
	g := uint8(((v >> 5) & 0x1F) << 3)
	b := uint8(((v >> 10) & 0x1F) << 3)
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	cr, cg, cb := c.RGB255()
	return tcell.NewRGBColor(int32(cr), int32(cg), int32(cb))
}

func (t *Terminal) drawRegisters(x, y, width int, data *DebugData) {
	if data == nil || width <= 0 {
		return
	}
	lines := []string{
		fmt.Sprintf("PC: 0x%08X  Cycles: %d", data.PC, data.Cycles),
		fmt.Sprintf("SR: 0x%08X  Cause: 0x%08X", data.SR, data.Cause),
		fmt.Sprintf("HI: 0x%08X  LO: 0x%08X", data.HI, data.LO),
	}
	for i := 0; i < 32; i += 4 {
		lines = append(lines, fmt.Sprintf("r%-2d=%08X r%-2d=%08X r%-2d=%08X r%-2d=%08X",
			i, data.GPR[i], i+1, data.GPR[i+1], i+2, data.GPR[i+2], i+3, data.GPR[i+3]))
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	for i, line := range lines {
		if i >= registerHeight {
			break
		}
		drawText(t.screen, x, y+i, runewidth.Truncate(line, width, ""), style)
	}
}

func (t *Terminal) drawDisassembly(x, y, width int, data *DebugData) {
	if data == nil || width <= 0 {
		return
	}
	normalStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	currentStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	for i, line := range data.Disasm {
		if i >= disasmHeight {
			break
		}
		text := fmt.Sprintf("0x%08X: %s", line.Address, line.Instruction)
		style := normalStyle
		if line.Address == data.PC {
			style = currentStyle
		}
		drawText(t.screen, x, y+i, runewidth.Truncate(text, width, ""), style)
	}
}

func (t *Terminal) drawLogs(x, y, width, termHeight int) {
	available := termHeight - y - 1
	if available <= 0 || width <= 0 {
		return
	}
	entries := t.logs.GetRecent(available)
	styles := map[slog.Level]tcell.Style{
		slog.LevelDebug: tcell.StyleDefault.Foreground(tcell.ColorGray),
		slog.LevelInfo:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
		slog.LevelWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
		slog.LevelError: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}
	for i, e := range entries {
		drawText(t.screen, x, y+i, runewidth.Truncate(FormatLogEntry(e), width, ""), styles[e.Level])
	}
}

func drawText(screen tcell.Screen, x, y int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		screen.SetContent(col, y, r, nil, style)
		col += runewidth.RuneWidth(r)
	}
}
