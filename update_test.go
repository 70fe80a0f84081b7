package hll

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PositionOfFirstOne(t *testing.T) {
	tests := []struct {
		label    string
		leading  [8]byte
		expected byte
	}{
		{
			label:    "all zero bytes",
			leading:  [8]byte{0, 0, 0, 0, 0, 0, 0, 0},
			expected: 64,
		},
		{
			label:    "set bit in first byte",
			leading:  [8]byte{0b00100000, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
			expected: 3,
		},
		{
			label:    "leading zero byte, then a set bit",
			leading:  [8]byte{0, 0b00000001, 0, 0, 0, 0, 0, 0},
			expected: 8 + 8,
		},
		{
			label:    "highest bit set in the first byte",
			leading:  [8]byte{0x80, 0, 0, 0, 0, 0, 0, 0},
			expected: 1,
		},
		{
			label:    "lowest bit set in the first byte",
			leading:  [8]byte{0x01, 0, 0, 0, 0, 0, 0, 0},
			expected: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got := positionOfFirstOne(tt.leading[:])
			assert.Equal(t, tt.expected, got)
		})
	}
}

func Test_BucketOf(t *testing.T) {
	hashed := make([]byte, 10)
	binary.BigEndian.PutUint16(hashed[8:], 0xFFFF)

	bucket := bucketOf(hashed)
	assert.Equal(t, uint16(NumBuckets-1), bucket)
}

func Test_Add_RejectsShortInput(t *testing.T) {
	s := New()
	err := s.Add(make([]byte, 9))
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func Test_AddRegister_BelowWindowIsDiscarded(t *testing.T) {
	s := New()
	s.registerOffset = 5

	s.addRegister(0, 5) // pos == off
	assert.Equal(t, uint16(0), s.numNonZero)

	s.addRegister(0, 3) // pos < off
	assert.Equal(t, uint16(0), s.numNonZero)
}

func Test_AddRegister_StoresClampedValue(t *testing.T) {
	s := New()
	s.addRegister(5, 3)

	assert.Equal(t, uint16(1), s.numNonZero)

	// bucket 5 is odd: lives in the lower nibble of byte 2.
	assert.Zero(t, upperNibble(s.dense[2]))
	assert.Equal(t, byte(3), lowerNibble(s.dense[2]))
}

func Test_AddRegister_KeepsMax(t *testing.T) {
	s := New()
	s.addRegister(4, 7)
	s.addRegister(4, 3) // smaller; should not overwrite
	assert.Equal(t, byte(7), upperNibble(s.dense[2]))

	s.addRegister(4, 9) // bigger; should overwrite
	assert.Equal(t, byte(9), upperNibble(s.dense[2]))
}

func Test_AddRegister_Overflow(t *testing.T) {
	s := New() // registerOffset == 0, so the window is [1, Range] == [1, 15]

	s.addRegister(7, 40) // 40 > Range -> overflow
	assert.Equal(t, byte(40), s.maxOverflowValue)
	assert.Equal(t, uint16(7), s.maxOverflowRegister)
	assert.Equal(t, uint16(0), s.numNonZero, "overflow must not touch the payload nibble")

	s.addRegister(9, 20) // smaller overflow candidate; ignored
	assert.Equal(t, byte(40), s.maxOverflowValue)
	assert.Equal(t, uint16(7), s.maxOverflowRegister)

	s.addRegister(9, 55) // bigger overflow candidate; replaces
	assert.Equal(t, byte(55), s.maxOverflowValue)
	assert.Equal(t, uint16(9), s.maxOverflowRegister)
}

func Test_AddRegister_SlidesOffsetWhenFull(t *testing.T) {
	s := New()

	// Fill every register to value 2 above the zero offset, which tips
	// numNonZero up to NumBuckets on the last call and forces a slide. Using
	// 2 rather than the minimum representable value of 1 keeps every
	// register's nibble non-zero after the slide decrements it, so the true
	// value (nibble + offset) comes out unchanged at 2.
	for bucket := 0; bucket < NumBuckets; bucket++ {
		s.addRegister(bucket, 2)
	}

	require.Equal(t, byte(1), s.registerOffset)
	require.Equal(t, uint16(NumBuckets), s.numNonZero, "every register should still be non-zero after the slide")

	for _, b := range s.dense {
		assert.Equal(t, byte(1), upperNibble(b))
		assert.Equal(t, byte(1), lowerNibble(b))
	}
}

func Test_AddRegister_DensifiesSparseSketch(t *testing.T) {
	s := &Sketch{
		sparse:      true,
		sparsePairs: []sparseEntry{{byteIndex: 2, value: 0x30}},
		numNonZero:  1,
	}

	s.addRegister(5, 4)

	require.False(t, s.sparse)
	require.True(t, s.writable)
	assert.Equal(t, byte(4), lowerNibble(s.dense[2]))
	assert.Equal(t, byte(3), upperNibble(s.dense[2]))
}
