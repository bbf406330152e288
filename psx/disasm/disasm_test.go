package disasm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisassemble_KnownEncodings(t *testing.T) {
	tests := []struct {
		name       string
		word       uint32
		wantPrefix string
		wantParts  []string
	}{
		{"nop", 0x00000000, "nop", nil},
		{"addiu", uint32(0x09)<<26 | 8<<21 | 9<<16 | 5, "addiu", []string{"t1", "t0", "5"}},
		{"syscall", uint32(0x0C), "syscall", nil},
		{"jr ra", uint32(31)<<21 | 0x08, "jr", []string{"ra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Disassemble(tt.word)
			assert.True(t, strings.HasPrefix(strings.TrimSpace(got), tt.wantPrefix), "got %q", got)
			for _, part := range tt.wantParts {
				assert.Contains(t, got, part)
			}
		})
	}
}

func TestDisassemble_RFE(t *testing.T) {
	word := uint32(0x10)<<26 | uint32(0x10)<<21 | 0x10
	assert.Equal(t, "rfe", Disassemble(word))
}

func TestDisassemble_UnknownEncodingRendersFallback(t *testing.T) {
	word := uint32(0x3F) << 26
	got := Disassemble(word)
	assert.True(t, strings.HasPrefix(got, "???"))
}
