package iomgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_AddToOffsetPair(t *testing.T) {
	lo, hi := AddToOffsetPair(0x12345678, 0x1, 0x200000001)
	assert.Equal(t, uint32(0x12345679), lo)
	assert.Equal(t, uint32(0x3), hi)
}

func Test_AddToOffsetPair_Carry(t *testing.T) {
	lo, hi := AddToOffsetPair(0xffffffff, 0x1, 0x1)
	assert.Equal(t, uint32(0), lo)
	assert.Equal(t, uint32(0x2), hi)

	lo, hi = AddToOffsetPair(0xfffff000, 0x7, 0x1000 * 3)
	assert.Equal(t, uint32(0x2000), lo)
	assert.Equal(t, uint32(0x8), hi)

	// carry from the low half and a high part in the increment at the same time
	lo, hi = AddToOffsetPair(0x80000000, 0x0, 0x180000000)
	assert.Equal(t, uint32(0), lo)
	assert.Equal(t, uint32(0x2), hi)
}

func Test_Header_Advance(t *testing.T) {
	var h Header
	h.SetPos(0xfffff000)
	for range 4 {
		h.Advance(0x1000)
	}
	assert.Equal(t, uint64(0x100003000), h.Pos())
	assert.Equal(t, uint32(0x3000), h.Offset)
	assert.Equal(t, uint32(0x1), h.OffsetHigh)
}
