// Package render provides Renderer implementations consumed by psx/gpu: an
// in-memory software rasterizer holding the 1024x512 VRAM plane, and a
// tcell-based terminal presentation built on top of it.
package render

import (
	"github.com/boeker/psxgo/psx/gpu"
)

const (
	vramWidth  = 1024
	vramHeight = 512
)

// MemoryRenderer rasterizes triangles and rectangles into a flat VRAM plane
// using the scanline fill algorithm of the original software renderer; it
// holds no GPU state of its own beyond drawing-area clipping and VRAM
// contents.
type MemoryRenderer struct {
	vram [vramWidth * vramHeight]uint16

	clipX1, clipY1 int32
	clipX2, clipY2 int32
}

// NewMemoryRenderer returns a renderer with a zeroed VRAM plane and the
// default full-screen clip rectangle.
func NewMemoryRenderer() *MemoryRenderer {
	r := &MemoryRenderer{}
	r.clipX2, r.clipY2 = vramWidth - 1, vramHeight - 1
	return r
}

func packColor15(c gpu.Color) uint16 {
	r := uint16(c.R>>3) & 0x1F
	g := uint16(c.G>>3) & 0x1F
	b := uint16(c.B>>3) & 0x1F
	return r | g<<5 | b<<10
}

func unpackColor15(v uint16) gpu.Color {
	return gpu.Color{
		R: uint8((v & 0x1F) << 3),
		G: uint8(((v >> 5) & 0x1F) << 3),
		B: uint8(((v >> 10) & 0x1F) << 3),
	}
}

func (r *MemoryRenderer) clamp(x, y int32) (int32, int32, bool) {
	if x < r.clipX1 || x > r.clipX2 || y < r.clipY1 || y > r.clipY2 {
		return 0, 0, false
	}
	return x, y, true
}

func (r *MemoryRenderer) putPixel(x, y int32, c uint16) {
	x, y, ok := r.clamp(x, y)
	if !ok {
		return
	}
	r.vram[y*vramWidth+x] = c
}

// Clear fills the whole VRAM plane with c.
func (r *MemoryRenderer) Clear(c gpu.Color) {
	v := packColor15(c)
	for i := range r.vram {
		r.vram[i] = v
	}
}

// FillRectangleInVRAM implements GP0 0x02.
func (r *MemoryRenderer) FillRectangleInVRAM(c gpu.Color, x, y, w, h int32) {
	v := packColor15(c)
	for dy := int32(0); dy < h; dy++ {
		for dx := int32(0); dx < w; dx++ {
			r.putPixel(x+dx, y+dy, v)
		}
	}
}

// WriteToVRAM implements a raw VRAM write used by the CopyRectangleToVRAM
// transfer state machine.
func (r *MemoryRenderer) WriteToVRAM(x, y int32, pixel uint16) {
	if x < 0 || x >= vramWidth || y < 0 || y >= vramHeight {
		return
	}
	r.vram[y*vramWidth+x] = pixel
}

// ReadFromVRAM implements the CopyRectangleVRAMToCPU transfer's raw read.
func (r *MemoryRenderer) ReadFromVRAM(x, y int32) uint16 {
	if x < 0 || x >= vramWidth || y < 0 || y >= vramHeight {
		return 0
	}
	return r.vram[y*vramWidth+x]
}

// SetDrawingAreaTopLeft narrows the rasterizer's clip rectangle.
func (r *MemoryRenderer) SetDrawingAreaTopLeft(x, y int32) {
	r.clipX1, r.clipY1 = x, y
}

// SetDrawingAreaBottomRight narrows the rasterizer's clip rectangle.
func (r *MemoryRenderer) SetDrawingAreaBottomRight(x, y int32) {
	r.clipX2, r.clipY2 = x, y
}

// SwapBuffers is a no-op for a plane that is read directly by the terminal
// presentation layer; it exists to satisfy the Renderer interface and give
// backends a natural per-frame hook.
func (r *MemoryRenderer) SwapBuffers() {}

// DrawTriangle fills t with a single flat color (the first vertex's),
// following the scanline-fill split used by the reference software
// rasterizer: sort vertices by y, fill the bottom half then the top half.
func (r *MemoryRenderer) DrawTriangle(t gpu.Triangle) {
	r.fillFlatTriangle(t.V1, t.V2, t.V3, packColor15(t.C1))
}

func (r *MemoryRenderer) fillFlatTriangle(a, b, c gpu.Vertex, color uint16) {
	if a.Y > b.Y {
		a, b = b, a
	}
	if a.Y > c.Y {
		a, c = c, a
	}
	if b.Y > c.Y {
		b, c = c, b
	}
	totalHeight := c.Y - a.Y
	if totalHeight == 0 {
		return
	}
	if a.Y != b.Y {
		segmentHeight := b.Y - a.Y
		for y := a.Y; y <= b.Y; y++ {
			x1 := a.X + (c.X-a.X)*(y-a.Y)/totalHeight
			x2 := a.X + (b.X-a.X)*(y-a.Y)/segmentHeight
			r.fillSpan(x1, x2, y, color)
		}
	}
	if b.Y != c.Y {
		segmentHeight := c.Y - b.Y
		for y := b.Y; y <= c.Y; y++ {
			x1 := a.X + (c.X-a.X)*(y-a.Y)/totalHeight
			x2 := b.X + (c.X-b.X)*(y-b.Y)/segmentHeight
			r.fillSpan(x1, x2, y, color)
		}
	}
}

func (r *MemoryRenderer) fillSpan(x1, x2, y int32, color uint16) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x < x2; x++ {
		r.putPixel(x, y, color)
	}
}

// DrawTexturedTriangle approximates hardware texturing with an affine
// (non-perspective-correct) per-scanline texture-coordinate lerp, modulated
// by t.Color; the reference implementation's VRAM-resident CLUT decoding is
// out of scope here, so texels are read directly as 15-bit VRAM samples at
// the texture page's base offset.
func (r *MemoryRenderer) DrawTexturedTriangle(t gpu.TexturedTriangle) {
	xBase := int32(t.TexPage&0xF) * 64
	yBase := int32((t.TexPage>>4)&1) * 256

	a, b, c := t.V1, t.V2, t.V3
	ta, tb, tc := t.T1, t.T2, t.T3
	if a.Y > b.Y {
		a, b = b, a
		ta, tb = tb, ta
	}
	if a.Y > c.Y {
		a, c = c, a
		ta, tc = tc, ta
	}
	if b.Y > c.Y {
		b, c = c, b
		tb, tc = tc, tb
	}
	totalHeight := c.Y - a.Y
	if totalHeight == 0 {
		return
	}

	sample := func(tx, ty uint8) uint16 {
		v := r.ReadFromVRAM(xBase+int32(tx)/4, yBase+int32(ty))
		return v
	}

	drawHalf := func(yStart, yEnd, segHeight int32, xRightOf func(y int32) int32) {
		for y := yStart; y <= yEnd; y++ {
			x1 := a.X + (c.X-a.X)*(y-a.Y)/totalHeight
			x2 := xRightOf(y)
			if x1 > x2 {
				x1, x2 = x2, x1
			}
			for x := x1; x < x2; x++ {
				var u, v uint8
				if x2 != x1 {
					t0 := (x - x1) * 256 / (x2 - x1)
					u = uint8(int32(ta.X) + (int32(tc.X)-int32(ta.X))*t0/256)
					v = uint8(int32(ta.Y) + (int32(tc.Y)-int32(ta.Y))*t0/256)
				} else {
					u, v = ta.X, ta.Y
				}
				texel := unpackColor15(sample(u, v))
				modulated := gpu.Color{
					R: uint8(uint16(texel.R) * uint16(t.Color.R) / 255),
					G: uint8(uint16(texel.G) * uint16(t.Color.G) / 255),
					B: uint8(uint16(texel.B) * uint16(t.Color.B) / 255),
				}
				r.putPixel(x, y, packColor15(modulated))
			}
		}
		_ = segHeight
	}

	if a.Y != b.Y {
		segHeight := b.Y - a.Y
		drawHalf(a.Y, b.Y, segHeight, func(y int32) int32 {
			return a.X + (b.X-a.X)*(y-a.Y)/segHeight
		})
	}
	if b.Y != c.Y {
		segHeight := c.Y - b.Y
		drawHalf(b.Y, c.Y, segHeight, func(y int32) int32 {
			return b.X + (c.X-b.X)*(y-b.Y)/segHeight
		})
	}
}
