package superblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binpkg "github.com/robert-malhotra/go-vds/internal/binary"
)

func TestWriteRead(t *testing.T) {
	for _, size := range []int{4, 8} {
		cfg := binpkg.DefaultConfig()
		cfg.OffsetSize, cfg.LengthSize = size, size

		sb := New(cfg)
		sb.EOFAddress = 4096
		sb.RootAddress = uint64(sb.Size())

		buf := binpkg.NewBuffer(nil)
		n, err := sb.Write(buf)
		require.NoError(t, err)
		assert.EqualValues(t, sb.Size(), n)

		got, err := Read(buf)
		require.NoError(t, err)
		assert.Equal(t, sb, got)
		assert.Equal(t, cfg.OffsetSize, got.Config().OffsetSize)
	}
}

func TestReadErrors(t *testing.T) {
	_, err := Read(binpkg.NewBuffer(make([]byte, 64)))
	assert.ErrorIs(t, err, ErrNotContainer)

	_, err = Read(binpkg.NewBuffer([]byte{1, 2}))
	assert.ErrorIs(t, err, ErrNotContainer)

	sb := New(binpkg.DefaultConfig())
	buf := binpkg.NewBuffer(nil)
	_, err = sb.Write(buf)
	require.NoError(t, err)

	data := append([]byte(nil), buf.Bytes()...)
	data[8] = 3
	_, err = Read(binpkg.NewBuffer(data))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	data = append([]byte(nil), buf.Bytes()...)
	data[20] ^= 0x01
	_, err = Read(binpkg.NewBuffer(data))
	assert.ErrorIs(t, err, ErrInvalidSuperblock)

	data = append([]byte(nil), buf.Bytes()...)
	data[9] = 3
	_, err = Read(binpkg.NewBuffer(data))
	assert.ErrorIs(t, err, ErrInvalidSuperblock)
}
