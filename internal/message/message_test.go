package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/selection"
)

func roundTrip(t *testing.T, msg Serializable, cfg binary.Config) Message {
	t.Helper()
	enc, err := Encode(msg, cfg)
	require.NoError(t, err)
	assert.Len(t, enc, msg.SerializedSize(binary.NewWriter(binary.NewBuffer(nil), cfg)))

	got, err := Parse(msg.Type(), enc, binary.NewBytesReader(enc, cfg))
	require.NoError(t, err)
	return got
}

func TestDataspace(t *testing.T) {
	narrow := binary.Config{ByteOrder: binary.DefaultConfig().ByteOrder, OffsetSize: 4, LengthSize: 4}
	for name, cfg := range map[string]binary.Config{"wide": binary.DefaultConfig(), "narrow": narrow} {
		t.Run(name, func(t *testing.T) {
			ds := NewDataspace([]uint64{10, 4}, []uint64{Unlimited, 4})
			got := roundTrip(t, ds, cfg).(*Dataspace)
			assert.Equal(t, ds, got)
			assert.EqualValues(t, 40, got.NumElements())
			assert.Equal(t, 2, got.Rank())
		})
	}

	fixed := roundTrip(t, NewDataspace([]uint64{3}, nil), binary.DefaultConfig()).(*Dataspace)
	assert.Nil(t, fixed.MaxDims)

	_, err := Parse(TypeDataspace, []byte{1, 0, 0, 0}, binary.NewBytesReader(nil, binary.DefaultConfig()))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDatatype(t *testing.T) {
	i32 := NewInteger(4, true)
	got := roundTrip(t, i32, binary.DefaultConfig()).(*Datatype)
	assert.Equal(t, i32, got)
	assert.True(t, got.Signed())
	assert.Equal(t, "integer", got.Class.String())

	op := roundTrip(t, NewOpaque(12), binary.DefaultConfig()).(*Datatype)
	assert.EqualValues(t, 12, op.Size)
	assert.False(t, op.Signed())
}

func TestFillValue(t *testing.T) {
	tests := map[string]*FillValue{
		"default":   {SpaceAllocTime: 2, FillWriteTime: 1},
		"undefined": {Undefined: true},
		"value":     {Value: []byte{0xFF, 0xFF}},
	}
	for name, fv := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, fv, roundTrip(t, fv, binary.DefaultConfig()))
		})
	}

	_, err := Parse(TypeFillValue, []byte{3, fillFlagDefined, 4, 0, 0, 0, 1}, nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDataLayout(t *testing.T) {
	cfg := binary.DefaultConfig()
	c := roundTrip(t, NewContiguousLayout(0x200, 64), cfg).(*DataLayout)
	assert.Equal(t, NewContiguousLayout(0x200, 64), c)
	assert.False(t, c.IsVirtual())

	v := roundTrip(t, NewVirtualLayout(0x400, 1), cfg).(*DataLayout)
	assert.True(t, v.IsVirtual())
	assert.EqualValues(t, 0x400, v.HeapAddress)
	assert.EqualValues(t, 1, v.HeapIndex)

	// Chunked layouts are not readable.
	_, err := Parse(TypeDataLayout, []byte{4, 2, 0}, binary.NewBytesReader(nil, cfg))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestUnknownMessage(t *testing.T) {
	m, err := Parse(Type(0x0099), []byte{1, 2}, nil)
	require.NoError(t, err)
	u, ok := m.(*Unknown)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2}, u.Data())
	assert.Equal(t, "message 0x0099", u.Type().String())
}

func testEntries(t *testing.T) []MappingEntry {
	t.Helper()
	unl, err := selection.Hyperslab(nil, []selection.Dim{
		{Start: 0, Stride: 5, Count: selection.Unlimited, Block: 5},
		{Start: 0, Stride: 1, Count: 1, Block: 3},
	})
	require.NoError(t, err)
	blk, err := selection.Block(nil, []uint64{0, 0}, []uint64{5, 3})
	require.NoError(t, err)
	return []MappingEntry{
		{SourceFile: "src-%b.h5", SourceDataset: "/data", Source: selection.All(nil), Virtual: unl},
		{SourceFile: ".", SourceDataset: "/local", Source: blk, Virtual: blk},
	}
}

func TestMappingBlockRoundTrip(t *testing.T) {
	cfg := binary.DefaultConfig()
	entries := testEntries(t)

	enc, err := EncodeMappingBlock(entries, cfg)
	require.NoError(t, err)
	assert.Len(t, enc, MappingBlockSize(entries, cfg))
	assert.EqualValues(t, 0, enc[0])

	dec, err := DecodeMappingBlock(enc, cfg)
	require.NoError(t, err)
	require.Len(t, dec, 2)
	for i := range entries {
		assert.Equal(t, entries[i].SourceFile, dec[i].SourceFile)
		assert.Equal(t, entries[i].SourceDataset, dec[i].SourceDataset)
		assert.True(t, selection.Equal(entries[i].Source, dec[i].Source))
		assert.True(t, selection.Equal(entries[i].Virtual, dec[i].Virtual))
	}

	again, err := EncodeMappingBlock(dec, cfg)
	require.NoError(t, err)
	assert.Equal(t, enc, again)
}

func TestMappingBlockCorruption(t *testing.T) {
	cfg := binary.DefaultConfig()
	enc, err := EncodeMappingBlock(testEntries(t), cfg)
	require.NoError(t, err)

	bad := append([]byte(nil), enc...)
	bad[12] ^= 0x40
	_, err = DecodeMappingBlock(bad, cfg)
	assert.ErrorIs(t, err, binary.ErrChecksum)

	// A valid checksum over an unsupported version.
	bad = binary.AppendLookup3(append([]byte{1}, enc[1:len(enc)-4]...))
	_, err = DecodeMappingBlock(bad, cfg)
	assert.ErrorIs(t, err, ErrUnsupported)

	empty, err := EncodeMappingBlock(nil, cfg)
	require.NoError(t, err)
	dec, err := DecodeMappingBlock(empty, cfg)
	require.NoError(t, err)
	assert.Empty(t, dec)
}
