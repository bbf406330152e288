package gpu

// Renderer is the narrow surface the GPU front-end drives; a backend
// (in-memory framebuffer, terminal, SDL2) implements it and owns the actual
// pixel storage and presentation.
type Renderer interface {
	Clear(c Color)
	DrawTriangle(t Triangle)
	DrawTexturedTriangle(t TexturedTriangle)
	FillRectangleInVRAM(c Color, x, y, w, h int32)
	WriteToVRAM(x, y int32, pixel uint16)
	ReadFromVRAM(x, y int32) uint16
	SwapBuffers()
	SetDrawingAreaTopLeft(x, y int32)
	SetDrawingAreaBottomRight(x, y int32)
}
