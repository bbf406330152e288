package cpu

// Dispatch tables, realised as byte-keyed map literals the way the teacher
// keys its own opcode map by the instruction's leading byte (jeebie/cpu/
// mapping.go's opcodeMap) instead of the source's member-function-pointer
// arrays. Content, not representation, is the part that must be preserved:
// every opcode named in spec.md §4.1 has an entry here; anything absent
// falls through to the Reserved Instruction exception in dispatch/
// regimmDispatch/specialDispatch, while cop2Dispatch ignores it.

// primaryTable dispatches on the 6-bit primary opcode field (bits 31-26).
var primaryTable = map[uint8]Opcode{
	0x00: specialDispatch,
	0x01: regimmDispatch,
	0x02: opJ,
	0x03: opJAL,
	0x04: opBEQ,
	0x05: opBNE,
	0x06: opBLEZ,
	0x07: opBGTZ,
	0x08: opADDI,
	0x09: opADDIU,
	0x0A: opSLTI,
	0x0B: opSLTIU,
	0x0C: opANDI,
	0x0D: opORI,
	0x0E: opXORI,
	0x0F: opLUI,
	0x10: cop0Dispatch,
	0x12: cop2Dispatch,
	0x20: opLB,
	0x21: opLH,
	0x22: opLWL,
	0x23: opLW,
	0x24: opLBU,
	0x25: opLHU,
	0x26: opLWR,
	0x28: opSB,
	0x29: opSH,
	0x2A: opSWL,
	0x2B: opSW,
	0x2E: opSWR,
	0x32: opLWC2,
	0x3A: opSWC2,
}

// specialTable dispatches on the 6-bit function field (bits 5-0) when the
// primary opcode is 0b000000 (SPECIAL).
var specialTable = map[uint8]Opcode{
	0x00: opSLL,
	0x02: opSRL,
	0x03: opSRA,
	0x04: opSLLV,
	0x06: opSRLV,
	0x07: opSRAV,
	0x08: opJR,
	0x09: opJALR,
	0x0C: opSYSCALL,
	0x10: opMFHI,
	0x11: opMTHI,
	0x12: opMFLO,
	0x13: opMTLO,
	0x18: opMULT,
	0x19: opMULTU,
	0x1A: opDIV,
	0x1B: opDIVU,
	0x20: opADD,
	0x21: opADDU,
	0x22: opSUB,
	0x23: opSUBU,
	0x24: opAND,
	0x25: opOR,
	0x26: opXOR,
	0x27: opNOR,
	0x2A: opSLT,
	0x2B: opSLTU,
}

// regimmTable dispatches on the rt field (bits 20-16) when the primary
// opcode is 0b000001 (REGIMM).
var regimmTable = map[uint8]Opcode{
	0x00: opBLTZ,
	0x01: opBGEZ,
	0x10: opBLTZAL,
	0x11: opBGEZAL,
}

// cp0MoveTable dispatches on the rs field (bits 25-21) for COP0 instructions
// whose rs is not the CO-class marker (0x10, handled directly in
// cop0Dispatch for RFE).
var cp0MoveTable = map[uint8]Opcode{
	0x00: opMFC0,
	0x04: opMTC0,
}

// cp2MoveTable dispatches on the rs field for COP2 (GTE) move instructions.
var cp2MoveTable = map[uint8]Opcode{
	0x00: opMFC2,
	0x02: opCFC2,
	0x04: opMTC2,
	0x06: opCTC2,
}

// opLWC2/opSWC2 are the GTE vector load/store coprocessor instructions;
// since the GTE is a register-file stub (spec.md §9), these degrade to a
// plain data-register move through the same pass-through surface MTC2/MFC2
// use, rather than true memory-to-GTE DMA.
func opLWC2(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load32(addr); ok && c.gte != nil {
		c.gte.SetData(rt(word), v)
	}
}

func opSWC2(c *CPU, word uint32) {
	if c.gte == nil {
		return
	}
	c.store32(c.effectiveAddress(word), c.gte.Data(rt(word)))
}
