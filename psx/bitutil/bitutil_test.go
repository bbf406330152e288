package bitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignExtend16(t *testing.T) {
	assert.Equal(t, uint32(0xFFFFFFFF), SignExtend16(0xFFFF))
	assert.Equal(t, uint32(0x00007FFF), SignExtend16(0x7FFF))
}

func TestSignExtend8(t *testing.T) {
	assert.Equal(t, uint32(0xFFFFFF80), SignExtend8(0x80))
	assert.Equal(t, uint32(0x0000007F), SignExtend8(0x7F))
}

func TestSignExtend11(t *testing.T) {
	assert.Equal(t, int32(-1), SignExtend11(0x7FF))
	assert.Equal(t, int32(0x3FF), SignExtend11(0x3FF))
}

func TestIsSetSetClearAssignBit(t *testing.T) {
	var v uint32 = 0
	v = SetBit(v, 3)
	assert.True(t, IsSet(v, 3))

	v = ClearBit(v, 3)
	assert.False(t, IsSet(v, 3))

	v = AssignBit(v, 5, true)
	assert.True(t, IsSet(v, 5))
	v = AssignBit(v, 5, false)
	assert.False(t, IsSet(v, 5))
}

func TestExtractField(t *testing.T) {
	v := uint32(0b1011_0100)
	assert.Equal(t, uint32(0b1011), ExtractField(v, 7, 4))
	assert.Equal(t, uint32(0b0100), ExtractField(v, 3, 0))
}
