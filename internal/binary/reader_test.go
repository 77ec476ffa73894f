package binary

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFixedWidth(t *testing.T) {
	r := NewBytesReader([]byte{
		0x42,
		0x34, 0x12,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
	}, DefaultConfig())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), u16)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102030405060708), u64)

	_, err = r.ReadUint8()
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestReaderBigEndian(t *testing.T) {
	cfg := Config{ByteOrder: binary.BigEndian, OffsetSize: 4, LengthSize: 2}
	r := NewBytesReader([]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x10}, cfg)

	off, err := r.ReadOffset()
	require.NoError(t, err)
	assert.EqualValues(t, 256, off)

	n, err := r.ReadLength()
	require.NoError(t, err)
	assert.EqualValues(t, 16, n)
}

func TestReaderCString(t *testing.T) {
	data := append([]byte("src.h5\x00/data\x00"), 0xAA)
	r := NewBytesReader(data, DefaultConfig())

	s, err := r.ReadCString(64)
	require.NoError(t, err)
	assert.Equal(t, "src.h5", s)
	assert.EqualValues(t, 7, r.Pos())

	s, err = r.ReadCString(64)
	require.NoError(t, err)
	assert.Equal(t, "/data", s)

	_, err = r.ReadCString(64)
	assert.ErrorIs(t, err, ErrUnterminated)

	// Limit reached before the terminator.
	_, err = NewBytesReader([]byte("abcdef\x00"), DefaultConfig()).ReadCString(3)
	assert.ErrorIs(t, err, ErrUnterminated)
}

func TestReaderPositioning(t *testing.T) {
	r := NewBytesReader([]byte{1, 2, 3, 4, 5}, DefaultConfig())

	p, err := r.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, p)
	assert.EqualValues(t, 0, r.Pos())

	r.Skip(3)
	b, err := r.ReadUint8()
	require.NoError(t, err)
	assert.EqualValues(t, 4, b)

	other := r.At(1)
	b, err = other.ReadUint8()
	require.NoError(t, err)
	assert.EqualValues(t, 2, b)
	assert.EqualValues(t, 4, r.Pos())
}

func TestUndefinedOffset(t *testing.T) {
	for _, size := range []int{2, 4, 8} {
		cfg := DefaultConfig()
		cfg.OffsetSize = size
		buf := NewBuffer(nil)
		w := NewWriter(buf, cfg)
		require.NoError(t, w.WriteUndefinedOffset())

		r := NewReader(buf, cfg)
		off, err := r.ReadOffset()
		require.NoError(t, err)
		assert.True(t, r.IsUndefinedOffset(off), "size %d", size)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.ErrorIs(t, Config{OffsetSize: 3, LengthSize: 8}.Validate(), ErrInvalidSize)
}
