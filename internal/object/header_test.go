package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/message"
)

func datasetMessages() []message.Serializable {
	return DatasetMessages(
		message.NewDataspace([]uint64{8, 4}, []uint64{message.Unlimited, 4}),
		message.NewInteger(4, true),
		&message.FillValue{Value: []byte{0xFF, 0xFF, 0xFF, 0xFF}},
		message.NewVirtualLayout(0x300, 1),
	)
}

func TestWriteReadHeader(t *testing.T) {
	buf := binary.NewBuffer(nil)
	w := binary.NewWriter(buf, binary.DefaultConfig()).At(48)
	msgs := datasetMessages()

	n, err := WriteHeader(w, msgs)
	require.NoError(t, err)
	assert.EqualValues(t, HeaderSize(w, msgs), n)

	h, err := Read(binary.NewReader(buf, binary.DefaultConfig()), 48)
	require.NoError(t, err)
	assert.Equal(t, n, h.Size)
	require.Len(t, h.Messages, 4)

	ds, dt, fv, dl, err := h.Dataset()
	require.NoError(t, err)
	assert.Equal(t, []uint64{8, 4}, ds.Dimensions)
	assert.EqualValues(t, 4, dt.Size)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF}, fv.Value)
	assert.True(t, dl.IsVirtual())
}

func TestReadHeaderChecksum(t *testing.T) {
	buf := binary.NewBuffer(nil)
	_, err := WriteHeader(binary.NewWriter(buf, binary.DefaultConfig()), datasetMessages())
	require.NoError(t, err)

	buf.Bytes()[10] ^= 0xFF
	_, err = Read(binary.NewReader(buf, binary.DefaultConfig()), 0)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestReadHeaderInvalid(t *testing.T) {
	r := binary.NewBytesReader([]byte("OHDR\x01\x00\x00\x00\x00\x00"), binary.DefaultConfig())
	_, err := Read(r, 0)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	r = binary.NewBytesReader([]byte("JUNKJUNKJUNK"), binary.DefaultConfig())
	_, err = Read(r, 0)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestMissingMessages(t *testing.T) {
	h := &Header{Messages: []message.Message{message.NewDataspace([]uint64{1}, nil)}}
	_, _, _, _, err := h.Dataset()
	assert.ErrorIs(t, err, ErrMissingMessage)
	assert.Nil(t, h.DataLayout())
	assert.NotNil(t, h.Dataspace())
}

func TestChunkSizeField(t *testing.T) {
	assert.Equal(t, 1, chunkSizeFieldBytes(200))
	assert.Equal(t, 2, chunkSizeFieldBytes(300))
	assert.Equal(t, 4, chunkSizeFieldBytes(70000))
}
