package cpu

import "github.com/boeker/psxgo/psx/bitutil"

// Opcode is the dispatch-table entry shape: a function taking the CPU and
// the raw instruction word. This realises the source's member-function-
// pointer arrays as Go map literals, the way the teacher keys its own
// opcode map.
type Opcode func(c *CPU, word uint32)

func zeroExt16(v uint16) uint32 { return uint32(v) }

// --- memory access helpers -------------------------------------------------

func (c *CPU) effectiveAddress(word uint32) uint32 {
	base := c.Regs.GPR(rs(word))
	offset := bitutil.SignExtend16(imm16(word))
	return base + offset
}

func (c *CPU) checkAlign(addr uint32, width uint32, isStore bool) bool {
	if addr%width == 0 {
		return true
	}
	code := uint32(ExcAddressErrorL)
	if isStore {
		code = ExcAddressErrorS
	}
	c.raise(Exception{Code: code, BadVaddr: addr, HasVaddr: true})
	return false
}

func (c *CPU) load8(addr uint32) (uint8, bool) {
	v, err := c.bus.Read8(addr)
	if err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
		return 0, false
	}
	return v, true
}

func (c *CPU) load16(addr uint32) (uint16, bool) {
	if !c.checkAlign(addr, 2, false) {
		return 0, false
	}
	v, err := c.bus.Read16(addr)
	if err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
		return 0, false
	}
	return v, true
}

func (c *CPU) load32(addr uint32) (uint32, bool) {
	if !c.checkAlign(addr, 4, false) {
		return 0, false
	}
	v, err := c.bus.Read32(addr)
	if err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
		return 0, false
	}
	return v, true
}

func (c *CPU) store8(addr uint32, v uint8) {
	if err := c.bus.Write8(addr, v); err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
	}
}

func (c *CPU) store16(addr uint32, v uint16) {
	if !c.checkAlign(addr, 2, true) {
		return
	}
	if err := c.bus.Write16(addr, v); err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
	}
}

func (c *CPU) store32(addr uint32, v uint32) {
	if !c.checkAlign(addr, 4, true) {
		return
	}
	if err := c.bus.Write32(addr, v); err != nil {
		c.raise(Exception{Code: ExcBusErrorD, BadVaddr: addr, HasVaddr: true})
	}
}

// --- immediate arithmetic / logic ------------------------------------------

func opLUI(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), zeroExt16(imm16(word))<<16)
}

func opORI(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), c.Regs.GPR(rs(word))|zeroExt16(imm16(word)))
}

func opANDI(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), c.Regs.GPR(rs(word))&zeroExt16(imm16(word)))
}

func opXORI(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), c.Regs.GPR(rs(word))^zeroExt16(imm16(word)))
}

func opADDI(c *CPU, word uint32) {
	a := int32(c.Regs.GPR(rs(word)))
	b := int32(bitutil.SignExtend16(imm16(word)))
	sum := a + b
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		c.raise(Exception{Code: ExcOverflow})
		return
	}
	c.Regs.SetGPR(rt(word), uint32(sum))
}

func opADDIU(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), c.Regs.GPR(rs(word))+bitutil.SignExtend16(imm16(word)))
}

func opSLTI(c *CPU, word uint32) {
	v := uint32(0)
	if int32(c.Regs.GPR(rs(word))) < int32(bitutil.SignExtend16(imm16(word))) {
		v = 1
	}
	c.Regs.SetGPR(rt(word), v)
}

func opSLTIU(c *CPU, word uint32) {
	v := uint32(0)
	if c.Regs.GPR(rs(word)) < bitutil.SignExtend16(imm16(word)) {
		v = 1
	}
	c.Regs.SetGPR(rt(word), v)
}

// --- loads / stores ---------------------------------------------------------

func opLB(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load8(addr); ok {
		c.Regs.SetGPR(rt(word), bitutil.SignExtend8(v))
	}
}

func opLBU(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load8(addr); ok {
		c.Regs.SetGPR(rt(word), uint32(v))
	}
}

func opLH(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load16(addr); ok {
		c.Regs.SetGPR(rt(word), bitutil.SignExtend16(v))
	}
}

func opLHU(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load16(addr); ok {
		c.Regs.SetGPR(rt(word), uint32(v))
	}
}

func opLW(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	if v, ok := c.load32(addr); ok {
		c.Regs.SetGPR(rt(word), v)
	}
}

func opSB(c *CPU, word uint32) {
	c.store8(c.effectiveAddress(word), uint8(c.Regs.GPR(rt(word))))
}

func opSH(c *CPU, word uint32) {
	c.store16(c.effectiveAddress(word), uint16(c.Regs.GPR(rt(word))))
}

func opSW(c *CPU, word uint32) {
	c.store32(c.effectiveAddress(word), c.Regs.GPR(rt(word)))
}

var lwlMask = [4]uint32{0x00FFFFFF, 0x0000FFFF, 0x000000FF, 0x00000000}
var lwlShift = [4]uint32{24, 16, 8, 0}
var lwrMask = [4]uint32{0x00000000, 0xFF000000, 0xFFFF0000, 0xFFFFFF00}
var lwrShift = [4]uint32{0, 8, 16, 24}
var swlMask = [4]uint32{0xFFFFFF00, 0xFFFF0000, 0xFF000000, 0x00000000}
var swlShift = [4]uint32{24, 16, 8, 0}
var swrMask = [4]uint32{0x00000000, 0x000000FF, 0x0000FFFF, 0x00FFFFFF}
var swrShift = [4]uint32{0, 8, 16, 24}

// opLWL/opLWR/opSWL/opSWR implement the unaligned partial-word transfers
// using the little-endian mask/shift tables common to PSX-class MIPS
// emulators: they operate on the aligned word containing the address and
// merge with the existing register/memory contents rather than raising an
// alignment exception.
func opLWL(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	aligned, ok := c.load32(addr &^ 3)
	if !ok {
		return
	}
	i := addr & 3
	old := c.Regs.GPR(rt(word))
	c.Regs.SetGPR(rt(word), (old&lwlMask[i])|(aligned<<lwlShift[i]))
}

func opLWR(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	aligned, ok := c.load32(addr &^ 3)
	if !ok {
		return
	}
	i := addr & 3
	old := c.Regs.GPR(rt(word))
	c.Regs.SetGPR(rt(word), (old&lwrMask[i])|(aligned>>lwrShift[i]))
}

func opSWL(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	alignedAddr := addr &^ 3
	old, ok := c.load32(alignedAddr)
	if !ok {
		return
	}
	i := addr & 3
	v := c.Regs.GPR(rt(word))
	c.store32(alignedAddr, (old&swlMask[i])|(v>>swlShift[i]))
}

func opSWR(c *CPU, word uint32) {
	addr := c.effectiveAddress(word)
	alignedAddr := addr &^ 3
	old, ok := c.load32(alignedAddr)
	if !ok {
		return
	}
	i := addr & 3
	v := c.Regs.GPR(rt(word))
	c.store32(alignedAddr, (old&swrMask[i])|(v<<swrShift[i]))
}

// --- jumps / branches --------------------------------------------------------

func opJ(c *CPU, word uint32) {
	target := (c.delaySlot.pc & 0xF0000000) | (target26(word) << 2)
	c.jumpTo(target)
}

func opJAL(c *CPU, word uint32) {
	returnAddr := c.delaySlot.pc + 4
	target := (c.delaySlot.pc & 0xF0000000) | (target26(word) << 2)
	c.Regs.SetGPR(31, returnAddr)
	c.jumpTo(target)
}

func opJR(c *CPU, word uint32) {
	c.jumpTo(c.Regs.GPR(rs(word)))
}

func opJALR(c *CPU, word uint32) {
	returnAddr := c.delaySlot.pc + 4
	target := c.Regs.GPR(rs(word))
	dest := rd(word)
	if dest == 0 {
		dest = 31
	}
	c.Regs.SetGPR(dest, returnAddr)
	c.jumpTo(target)
}

func opBEQ(c *CPU, word uint32) {
	if c.Regs.GPR(rs(word)) == c.Regs.GPR(rt(word)) {
		c.branch(word)
	}
}

func opBNE(c *CPU, word uint32) {
	if c.Regs.GPR(rs(word)) != c.Regs.GPR(rt(word)) {
		c.branch(word)
	}
}

func opBGTZ(c *CPU, word uint32) {
	if int32(c.Regs.GPR(rs(word))) > 0 {
		c.branch(word)
	}
}

func opBLEZ(c *CPU, word uint32) {
	if int32(c.Regs.GPR(rs(word))) <= 0 {
		c.branch(word)
	}
}

// --- REGIMM: BLTZ/BGEZ/BLTZAL/BGEZAL ---------------------------------------

func regimmDispatch(c *CPU, word uint32) {
	op, ok := regimmTable[rt(word)]
	if !ok {
		c.raise(Exception{Code: ExcReservedInstr})
		return
	}
	op(c, word)
}

func opBLTZ(c *CPU, word uint32) {
	if int32(c.Regs.GPR(rs(word))) < 0 {
		c.branch(word)
	}
}

func opBGEZ(c *CPU, word uint32) {
	if int32(c.Regs.GPR(rs(word))) >= 0 {
		c.branch(word)
	}
}

func opBLTZAL(c *CPU, word uint32) {
	c.Regs.SetGPR(31, c.delaySlot.pc+4)
	if int32(c.Regs.GPR(rs(word))) < 0 {
		c.branch(word)
	}
}

func opBGEZAL(c *CPU, word uint32) {
	c.Regs.SetGPR(31, c.delaySlot.pc+4)
	if int32(c.Regs.GPR(rs(word))) >= 0 {
		c.branch(word)
	}
}

// --- SPECIAL: shifts, ALU, mult/div, syscall ---------------------------------

func specialDispatch(c *CPU, word uint32) {
	op, ok := specialTable[funct(word)]
	if !ok {
		c.raise(Exception{Code: ExcReservedInstr})
		return
	}
	op(c, word)
}

func opSLL(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rt(word))<<shamt(word))
}

func opSRL(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rt(word))>>shamt(word))
}

func opSRA(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), uint32(int32(c.Regs.GPR(rt(word)))>>shamt(word)))
}

func opSLLV(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rt(word))<<(c.Regs.GPR(rs(word))&0x1F))
}

func opSRLV(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rt(word))>>(c.Regs.GPR(rs(word))&0x1F))
}

func opSRAV(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), uint32(int32(c.Regs.GPR(rt(word)))>>(c.Regs.GPR(rs(word))&0x1F)))
}

func opADD(c *CPU, word uint32) {
	a := int32(c.Regs.GPR(rs(word)))
	b := int32(c.Regs.GPR(rt(word)))
	sum := a + b
	if (a >= 0) == (b >= 0) && (sum >= 0) != (a >= 0) {
		c.raise(Exception{Code: ExcOverflow})
		return
	}
	c.Regs.SetGPR(rd(word), uint32(sum))
}

func opADDU(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rs(word))+c.Regs.GPR(rt(word)))
}

func opSUB(c *CPU, word uint32) {
	a := int32(c.Regs.GPR(rs(word)))
	b := int32(c.Regs.GPR(rt(word)))
	diff := a - b
	if (a >= 0) != (b >= 0) && (diff >= 0) != (a >= 0) {
		c.raise(Exception{Code: ExcOverflow})
		return
	}
	c.Regs.SetGPR(rd(word), uint32(diff))
}

func opSUBU(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rs(word))-c.Regs.GPR(rt(word)))
}

func opAND(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rs(word))&c.Regs.GPR(rt(word)))
}

func opOR(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rs(word))|c.Regs.GPR(rt(word)))
}

func opXOR(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), c.Regs.GPR(rs(word))^c.Regs.GPR(rt(word)))
}

func opNOR(c *CPU, word uint32) {
	c.Regs.SetGPR(rd(word), ^(c.Regs.GPR(rs(word)) | c.Regs.GPR(rt(word))))
}

func opSLT(c *CPU, word uint32) {
	v := uint32(0)
	if int32(c.Regs.GPR(rs(word))) < int32(c.Regs.GPR(rt(word))) {
		v = 1
	}
	c.Regs.SetGPR(rd(word), v)
}

func opSLTU(c *CPU, word uint32) {
	v := uint32(0)
	if c.Regs.GPR(rs(word)) < c.Regs.GPR(rt(word)) {
		v = 1
	}
	c.Regs.SetGPR(rd(word), v)
}

func opMULT(c *CPU, word uint32) {
	a := int64(int32(c.Regs.GPR(rs(word))))
	b := int64(int32(c.Regs.GPR(rt(word))))
	p := uint64(a * b)
	c.Regs.SetHI(uint32(p >> 32))
	c.Regs.SetLO(uint32(p))
}

func opMULTU(c *CPU, word uint32) {
	a := uint64(c.Regs.GPR(rs(word)))
	b := uint64(c.Regs.GPR(rt(word)))
	p := a * b
	c.Regs.SetHI(uint32(p >> 32))
	c.Regs.SetLO(uint32(p))
}

// opDIV implements the PSX's well-known non-trapping division conventions
// for divide-by-zero and INT_MIN/-1, per spec.md §4.1.
func opDIV(c *CPU, word uint32) {
	n := int32(c.Regs.GPR(rs(word)))
	d := int32(c.Regs.GPR(rt(word)))
	switch {
	case d == 0:
		c.Regs.SetHI(uint32(n))
		if n >= 0 {
			c.Regs.SetLO(0xFFFFFFFF)
		} else {
			c.Regs.SetLO(1)
		}
	case n == -0x80000000 && d == -1:
		c.Regs.SetLO(0x80000000)
		c.Regs.SetHI(0)
	default:
		c.Regs.SetLO(uint32(n / d))
		c.Regs.SetHI(uint32(n % d))
	}
}

func opDIVU(c *CPU, word uint32) {
	n := c.Regs.GPR(rs(word))
	d := c.Regs.GPR(rt(word))
	if d == 0 {
		c.Regs.SetLO(0xFFFFFFFF)
		c.Regs.SetHI(n)
		return
	}
	c.Regs.SetLO(n / d)
	c.Regs.SetHI(n % d)
}

func opMFHI(c *CPU, word uint32) { c.Regs.SetGPR(rd(word), c.Regs.HI()) }
func opMFLO(c *CPU, word uint32) { c.Regs.SetGPR(rd(word), c.Regs.LO()) }
func opMTHI(c *CPU, word uint32) { c.Regs.SetHI(c.Regs.GPR(rs(word))) }
func opMTLO(c *CPU, word uint32) { c.Regs.SetLO(c.Regs.GPR(rs(word))) }

func opSYSCALL(c *CPU, word uint32) {
	c.raise(Exception{Code: ExcSyscall})
}

// --- COP0 / COP2 --------------------------------------------------------------

func cop0Dispatch(c *CPU, word uint32) {
	if rs(word) == 0x10 {
		// CO-class: funct field selects the operation (only RFE, 0x10,
		// is required).
		if funct(word) == 0x10 {
			c.CP0.PopModeStack()
			return
		}
		c.raise(Exception{Code: ExcReservedInstr})
		return
	}
	op, ok := cp0MoveTable[rs(word)]
	if !ok {
		c.raise(Exception{Code: ExcReservedInstr})
		return
	}
	op(c, word)
}

func opMFC0(c *CPU, word uint32) {
	c.Regs.SetGPR(rt(word), c.CP0.Get(rd(word)))
}

func opMTC0(c *CPU, word uint32) {
	reg := rd(word)
	c.CP0.Set(reg, c.Regs.GPR(rt(word)))
	if reg == CP0SR || reg == CP0Cause {
		c.checkInterrupts()
	}
}

func cop2Dispatch(c *CPU, word uint32) {
	op, ok := cp2MoveTable[rs(word)]
	if !ok {
		// GTE data-processing opcodes (rs bit 4 set) are accepted and
		// ignored: the GTE is a register-file stub per spec.md §9.
		return
	}
	op(c, word)
}

func opMFC2(c *CPU, word uint32) {
	if c.gte == nil {
		return
	}
	c.Regs.SetGPR(rt(word), c.gte.Data(rd(word)))
}

func opMTC2(c *CPU, word uint32) {
	if c.gte == nil {
		return
	}
	c.gte.SetData(rd(word), c.Regs.GPR(rt(word)))
}

func opCFC2(c *CPU, word uint32) {
	if c.gte == nil {
		return
	}
	c.Regs.SetGPR(rt(word), c.gte.Control(rd(word)))
}

func opCTC2(c *CPU, word uint32) {
	if c.gte == nil {
		return
	}
	c.gte.SetControl(rd(word), c.Regs.GPR(rt(word)))
}
