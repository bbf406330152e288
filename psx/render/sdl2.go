//go:build sdl2

package render

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	sdlWindowWidth  = displayWidth * 2
	sdlWindowHeight = displayHeight * 2
)

// SDL2Presenter blits a FrameSource's VRAM window to an SDL2 window; it is
// an alternative to Terminal, selected by the sdl2 build tag, for running
// with real window output instead of a terminal.
type SDL2Presenter struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	source   FrameSource

	displayX0, displayY0 int32
	running              bool
}

// NewSDL2Presenter constructs a presenter reading frames from source.
func NewSDL2Presenter(source FrameSource) *SDL2Presenter {
	return &SDL2Presenter{source: source}
}

// Init creates the SDL2 window, renderer, and streaming texture.
func (p *SDL2Presenter) Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return fmt.Errorf("sdl2 init: %w", err)
	}
	window, err := sdl.CreateWindow("psxgo", sdl.WINDOWPOS_CENTERED, sdl.WINDOWPOS_CENTERED,
		sdlWindowWidth, sdlWindowHeight, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("sdl2 create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("sdl2 create renderer: %w", err)
	}
	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_RGB555, sdl.TEXTUREACCESS_STREAMING, displayWidth, displayHeight)
	if err != nil {
		return fmt.Errorf("sdl2 create texture: %w", err)
	}

	p.window, p.renderer, p.texture = window, renderer, texture
	p.running = true
	return nil
}

// Close tears down SDL2 resources.
func (p *SDL2Presenter) Close() {
	if p.texture != nil {
		p.texture.Destroy()
	}
	if p.renderer != nil {
		p.renderer.Destroy()
	}
	if p.window != nil {
		p.window.Destroy()
	}
	sdl.Quit()
}

// Running reports false once the user has closed the window.
func (p *SDL2Presenter) Running() bool { return p.running }

// PollEvents drains pending SDL2 events.
func (p *SDL2Presenter) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch event.(type) {
		case *sdl.QuitEvent:
			p.running = false
		}
	}
}

// SetDisplayOrigin sets the VRAM coordinate the window's top-left maps to.
func (p *SDL2Presenter) SetDisplayOrigin(x, y int32) {
	p.displayX0, p.displayY0 = x, y
}

// Present copies one frame worth of VRAM samples into the texture and
// blits it to the window.
func (p *SDL2Presenter) Present() {
	pixels, pitch, err := p.texture.Lock(nil)
	if err != nil {
		return
	}
	for y := 0; y < displayHeight; y++ {
		for x := 0; x < displayWidth; x++ {
			v := p.source.ReadFromVRAM(p.displayX0+int32(x), p.displayY0+int32(y))
			offset := y*pitch + x*2
			pixels[offset] = byte(v)
			pixels[offset+1] = byte(v >> 8)
		}
	}
	p.texture.Unlock()

	p.renderer.Clear()
	p.renderer.Copy(p.texture, nil, nil)
	p.renderer.Present()
}
