// Package disasm renders a 32-bit MIPS R3000A instruction word as a
// mnemonic string for the debug panel, in the spirit of the teacher's
// table-driven instruction disassembler.
package disasm

import (
	"fmt"

	"github.com/boeker/psxgo/psx/cpu"
)

var registerNames = cpu.RegisterNames

func reg(n uint32) string { return registerNames[n&0x1F] }

func signExtend16(v uint32) int32 {
	return int32(int16(uint16(v)))
}

// Disassemble renders word as a single instruction-line string. Unknown
// primary opcodes render as "??? (0x%08X)"; unknown SPECIAL, REGIMM and
// COP0 encodings use their own fallback strings.
func Disassemble(word uint32) string {
	op := word >> 26
	rs := (word >> 21) & 0x1F
	rt := (word >> 16) & 0x1F
	rd := (word >> 11) & 0x1F
	shamt := (word >> 6) & 0x1F
	funct := word & 0x3F
	imm := word & 0xFFFF
	target := word & 0x3FFFFFF

	switch op {
	case 0x00:
		return disassembleSpecial(rs, rt, rd, shamt, funct)
	case 0x01:
		return disassembleRegimm(rs, rt, imm)
	case 0x02:
		return fmt.Sprintf("j       0x%08X", target<<2)
	case 0x03:
		return fmt.Sprintf("jal     0x%08X", target<<2)
	case 0x04:
		return fmt.Sprintf("beq     %s, %s, %d", reg(rs), reg(rt), signExtend16(imm)<<2)
	case 0x05:
		return fmt.Sprintf("bne     %s, %s, %d", reg(rs), reg(rt), signExtend16(imm)<<2)
	case 0x06:
		return fmt.Sprintf("blez    %s, %d", reg(rs), signExtend16(imm)<<2)
	case 0x07:
		return fmt.Sprintf("bgtz    %s, %d", reg(rs), signExtend16(imm)<<2)
	case 0x08:
		return fmt.Sprintf("addi    %s, %s, %d", reg(rt), reg(rs), signExtend16(imm))
	case 0x09:
		return fmt.Sprintf("addiu   %s, %s, %d", reg(rt), reg(rs), signExtend16(imm))
	case 0x0A:
		return fmt.Sprintf("slti    %s, %s, %d", reg(rt), reg(rs), signExtend16(imm))
	case 0x0B:
		return fmt.Sprintf("sltiu   %s, %s, %d", reg(rt), reg(rs), signExtend16(imm))
	case 0x0C:
		return fmt.Sprintf("andi    %s, %s, 0x%04X", reg(rt), reg(rs), imm)
	case 0x0D:
		return fmt.Sprintf("ori     %s, %s, 0x%04X", reg(rt), reg(rs), imm)
	case 0x0E:
		return fmt.Sprintf("xori    %s, %s, 0x%04X", reg(rt), reg(rs), imm)
	case 0x0F:
		return fmt.Sprintf("lui     %s, 0x%04X", reg(rt), imm)
	case 0x10:
		return disassembleCop0(rs, rt, rd, funct)
	case 0x12:
		return "cop2    ..."
	case 0x20:
		return fmt.Sprintf("lb      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x21:
		return fmt.Sprintf("lh      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x22:
		return fmt.Sprintf("lwl     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x23:
		return fmt.Sprintf("lw      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x24:
		return fmt.Sprintf("lbu     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x25:
		return fmt.Sprintf("lhu     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x26:
		return fmt.Sprintf("lwr     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x28:
		return fmt.Sprintf("sb      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x29:
		return fmt.Sprintf("sh      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x2A:
		return fmt.Sprintf("swl     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x2B:
		return fmt.Sprintf("sw      %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x2E:
		return fmt.Sprintf("swr     %s, %d(%s)", reg(rt), signExtend16(imm), reg(rs))
	case 0x32:
		return fmt.Sprintf("lwc2    %d, %d(%s)", rt, signExtend16(imm), reg(rs))
	case 0x3A:
		return fmt.Sprintf("swc2    %d, %d(%s)", rt, signExtend16(imm), reg(rs))
	}
	return fmt.Sprintf("??? (0x%08X)", word)
}

func disassembleSpecial(rs, rt, rd, shamt, funct uint32) string {
	switch funct {
	case 0x00:
		if rd == 0 && rt == 0 && shamt == 0 {
			return "nop"
		}
		return fmt.Sprintf("sll     %s, %s, %d", reg(rd), reg(rt), shamt)
	case 0x02:
		return fmt.Sprintf("srl     %s, %s, %d", reg(rd), reg(rt), shamt)
	case 0x03:
		return fmt.Sprintf("sra     %s, %s, %d", reg(rd), reg(rt), shamt)
	case 0x04:
		return fmt.Sprintf("sllv    %s, %s, %s", reg(rd), reg(rt), reg(rs))
	case 0x06:
		return fmt.Sprintf("srlv    %s, %s, %s", reg(rd), reg(rt), reg(rs))
	case 0x07:
		return fmt.Sprintf("srav    %s, %s, %s", reg(rd), reg(rt), reg(rs))
	case 0x08:
		return fmt.Sprintf("jr      %s", reg(rs))
	case 0x09:
		return fmt.Sprintf("jalr    %s, %s", reg(rd), reg(rs))
	case 0x0C:
		return "syscall"
	case 0x10:
		return fmt.Sprintf("mfhi    %s", reg(rd))
	case 0x11:
		return fmt.Sprintf("mthi    %s", reg(rs))
	case 0x12:
		return fmt.Sprintf("mflo    %s", reg(rd))
	case 0x13:
		return fmt.Sprintf("mtlo    %s", reg(rs))
	case 0x18:
		return fmt.Sprintf("mult    %s, %s", reg(rs), reg(rt))
	case 0x19:
		return fmt.Sprintf("multu   %s, %s", reg(rs), reg(rt))
	case 0x1A:
		return fmt.Sprintf("div     %s, %s", reg(rs), reg(rt))
	case 0x1B:
		return fmt.Sprintf("divu    %s, %s", reg(rs), reg(rt))
	case 0x20:
		return fmt.Sprintf("add     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x21:
		return fmt.Sprintf("addu    %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x22:
		return fmt.Sprintf("sub     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x23:
		return fmt.Sprintf("subu    %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x24:
		return fmt.Sprintf("and     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x25:
		return fmt.Sprintf("or      %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x26:
		return fmt.Sprintf("xor     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x27:
		return fmt.Sprintf("nor     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x2A:
		return fmt.Sprintf("slt     %s, %s, %s", reg(rd), reg(rs), reg(rt))
	case 0x2B:
		return fmt.Sprintf("sltu    %s, %s, %s", reg(rd), reg(rs), reg(rt))
	}
	return fmt.Sprintf("spec ??? funct=0x%02X", funct)
}

func disassembleRegimm(rs, rt, imm uint32) string {
	offset := signExtend16(imm) << 2
	switch rt {
	case 0x00:
		return fmt.Sprintf("bltz    %s, %d", reg(rs), offset)
	case 0x01:
		return fmt.Sprintf("bgez    %s, %d", reg(rs), offset)
	case 0x10:
		return fmt.Sprintf("bltzal  %s, %d", reg(rs), offset)
	case 0x11:
		return fmt.Sprintf("bgezal  %s, %d", reg(rs), offset)
	}
	return fmt.Sprintf("regimm ??? rt=0x%02X", rt)
}

func disassembleCop0(rs, rt, rd, funct uint32) string {
	if rs == 0x10 && funct == 0x10 {
		return "rfe"
	}
	switch rs {
	case 0x00:
		return fmt.Sprintf("mfc0    %s, $%d", reg(rt), rd)
	case 0x04:
		return fmt.Sprintf("mtc0    %s, $%d", reg(rt), rd)
	}
	return "cop0    ..."
}
