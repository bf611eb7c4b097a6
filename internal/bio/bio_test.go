package bio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jxlcore/jxl/internal/xerr"
)

func TestPeekThenConsumeEqualsRead(t *testing.T) {
	data := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC}
	for n := uint(1); n <= 32; n++ {
		r1 := NewReader(data)
		peeked, err := r1.PeekBits(n)
		require.NoError(t, err)
		require.NoError(t, r1.ConsumeBits(n))

		r2 := NewReader(data)
		read, err := r2.ReadBits(n)
		require.NoError(t, err)

		require.Equal(t, read, peeked, "n=%d", n)
		require.Equal(t, r1.NumReadBits(), r2.NumReadBits())
	}
}

func TestNumReadBitsMonotonic(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i * 7)
	}
	r := NewReader(data)
	var total uint64
	for _, n := range []uint{1, 3, 7, 16, 32, 2} {
		_, err := r.ReadBits(n)
		require.NoError(t, err)
		total += uint64(n)
		require.Equal(t, total, r.NumReadBits())
	}
}

func TestZeroPadToByte(t *testing.T) {
	data := []byte{0b10110000, 0x00, 0xFF}
	for k := uint(1); k <= 8; k++ {
		r := NewReader(data)
		_, err := r.ReadBits(k)
		require.NoError(t, err)
		before := r.NumReadBits()
		err = r.ZeroPadToByte()
		want := (8 - k%8) % 8
		if err == nil {
			require.Equal(t, before+uint64(want), r.NumReadBits())
		}
	}
}

func TestZeroPadRejectsSetBits(t *testing.T) {
	// Byte 0xFF: reading 1 bit then padding must see the remaining 7 set
	// bits and fail.
	r := NewReader([]byte{0xFF})
	_, err := r.ReadBits(1)
	require.NoError(t, err)
	err = r.ZeroPadToByte()
	require.ErrorIs(t, err, xerr.ErrNonZeroPadding)
}

func TestReadU32Literal(t *testing.T) {
	// selector bits "00" (LSB-first, so first 2 read bits select branch 0).
	r := NewReader([]byte{0b00000000})
	v, err := r.ReadU32(Direct(5), Direct(6), Direct(7), Direct(8))
	require.NoError(t, err)
	require.EqualValues(t, 5, v)
}

func TestReadU64Zero(t *testing.T) {
	r := NewReader([]byte{0x00})
	v, err := r.ReadU64()
	require.NoError(t, err)
	require.EqualValues(t, 0, v)
}

func TestUnexpectedEOF(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadBits(32)
	require.Error(t, err)
}
