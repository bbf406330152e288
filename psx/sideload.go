package psx

import (
	"encoding/binary"
	"fmt"
)

// sideloadHeaderSize is the fixed size of a PSX-EXE header; the raw
// code/data body follows immediately after it.
const sideloadHeaderSize = 2048

const sideloadMagic = "PS-X EXE"

// sideloadTriggerPC is the physical PC the BIOS shell reaches right after
// its own initialisation, watched by the Core to hand control to a
// sideloaded executable exactly once per run.
const sideloadTriggerPC = 0x00030000

// sideload holds a parsed PSX-EXE awaiting injection at the trigger PC.
type sideload struct {
	entryPC    uint32
	initialGP  uint32
	destAddr   uint32
	length     uint32
	initialSP  uint32
	body       []byte
	injected   bool
}

// parseSideload validates and decodes a raw PSX-EXE file.
func parseSideload(data []byte) (*sideload, error) {
	if len(data) < sideloadHeaderSize {
		return nil, fmt.Errorf("sideload: file too short for a header (%d bytes)", len(data))
	}
	if string(data[:8]) != sideloadMagic {
		return nil, fmt.Errorf("sideload: missing %q magic", sideloadMagic)
	}
	s := &sideload{
		entryPC:   binary.LittleEndian.Uint32(data[0x10:]),
		initialGP: binary.LittleEndian.Uint32(data[0x14:]),
		destAddr:  binary.LittleEndian.Uint32(data[0x18:]),
		length:    binary.LittleEndian.Uint32(data[0x1C:]),
		initialSP: binary.LittleEndian.Uint32(data[0x30:]),
	}
	end := sideloadHeaderSize + int(s.length)
	if end > len(data) {
		return nil, fmt.Errorf("sideload: declared length %d exceeds file size", s.length)
	}
	s.body = data[sideloadHeaderSize:end]
	return s, nil
}
