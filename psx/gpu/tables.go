package gpu

// gp0ParamCount gives the number of parameter words (beyond the leading
// command word) each GP0 opcode expects, for the minimum opcode set named
// in spec.md §4.5. Opcodes not listed default to 0 parameters and are
// treated as a no-op render-wise (ClearCache-style): real hardware accepts
// a much larger set, but these are the ones this front-end renders.
var gp0ParamCount = map[uint8]uint32{
	0x00: 0, // NOP
	0x01: 0, // ClearCache
	0x02: 2, // FillRectangleInVRAM
	0x28: 4, // MonochromeFourPointPolygonOpaque
	0x2C: 8, // TexturedFourPointPolygonOpaqueBlend
	0x2D: 8, // TexturedFourPointPolygonOpaqueRaw
	0x2F: 8, // TexturedFourPointPolygonSemiRaw
	0x30: 5, // ShadedThreePointPolygonOpaque
	0x38: 7, // ShadedFourPointPolygonOpaque
	0x65: 3, // TexturedRectangleVariableSizeOpaqueRaw
	0x68: 1, // MonochromeRectangleDotOpaque
	0xA0: 2, // CopyRectangleToVRAM
	0xC0: 2, // CopyRectangleVRAMToCPU
	0xE1: 0, // DrawModeSetting
	0xE2: 0, // TextureWindowSetting
	0xE3: 0, // SetDrawingAreaTopLeft
	0xE4: 0, // SetDrawingAreaBottomRight
	0xE5: 0, // SetDrawingOffset
	0xE6: 0, // MaskBitSetting
}

// gp0Handled marks opcodes that do more than the default no-op, so Idle's
// dispatch can tell "known, zero-param command" apart from "unrecognized,
// silently dropped command" when logging.
var gp0Handled = map[uint8]bool{
	0x00: true, 0x01: true, 0x02: true,
	0x28: true, 0x2C: true, 0x2D: true, 0x2F: true,
	0x30: true, 0x38: true, 0x65: true, 0x68: true,
	0xA0: true, 0xC0: true,
	0xE1: true, 0xE2: true, 0xE3: true, 0xE4: true, 0xE5: true, 0xE6: true,
}
