package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-vds/internal/binary"
)

// LayoutClass represents the storage layout class.
type LayoutClass uint8

const (
	LayoutContiguous LayoutClass = 1 // Data in single contiguous block
	LayoutVirtual    LayoutClass = 3 // Mapping block in the global heap
)

// DataLayout represents a data layout message (type 0x0008).
type DataLayout struct {
	Class LayoutClass

	// Contiguous layout
	Address uint64 // Address of data
	Size    uint64 // Size of data in bytes

	// Virtual layout: global heap ID of the mapping block
	HeapAddress uint64
	HeapIndex   uint32
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsVirtual reports whether the layout points at a mapping block.
func (m *DataLayout) IsVirtual() bool {
	return m.Class == LayoutVirtual
}

// NewContiguousLayout creates a new contiguous layout message.
func NewContiguousLayout(address, size uint64) *DataLayout {
	return &DataLayout{Class: LayoutContiguous, Address: address, Size: size}
}

// NewVirtualLayout creates a virtual layout message referencing the mapping
// block stored at the given global heap object.
func NewVirtualLayout(heapAddr uint64, index uint32) *DataLayout {
	return &DataLayout{Class: LayoutVirtual, HeapAddress: heapAddr, HeapIndex: index}
}

func parseDataLayout(data []byte, r *binpkg.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	version, class := data[0], LayoutClass(data[1])
	os, ls := r.OffsetSize(), r.LengthSize()
	body := data[2:]

	switch {
	case class == LayoutContiguous && (version == 3 || version == 4):
		if len(body) < os+ls {
			return nil, ErrTruncated
		}
		return NewContiguousLayout(
			binpkg.DecodeUint(body, os, r.ByteOrder()),
			binpkg.DecodeUint(body[os:], ls, r.ByteOrder()),
		), nil
	case class == LayoutVirtual && version == 4:
		if len(body) < os+4 {
			return nil, ErrTruncated
		}
		return NewVirtualLayout(
			binpkg.DecodeUint(body, os, r.ByteOrder()),
			binary.LittleEndian.Uint32(body[os:]),
		), nil
	default:
		return nil, fmt.Errorf("%w: layout version %d class %d", ErrUnsupported, version, class)
	}
}

// Serialize writes a version 3 contiguous or version 4 virtual layout.
func (m *DataLayout) Serialize(w *binpkg.Writer) error {
	switch m.Class {
	case LayoutContiguous:
		if err := w.WriteBytes([]byte{3, uint8(m.Class)}); err != nil {
			return err
		}
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	case LayoutVirtual:
		if err := w.WriteBytes([]byte{4, uint8(m.Class)}); err != nil {
			return err
		}
		if err := w.WriteOffset(m.HeapAddress); err != nil {
			return err
		}
		return w.WriteUint32(m.HeapIndex)
	default:
		return fmt.Errorf("%w: layout class %d", ErrUnsupported, m.Class)
	}
}

// SerializedSize returns the size in bytes when serialized.
func (m *DataLayout) SerializedSize(w *binpkg.Writer) int {
	if m.Class == LayoutVirtual {
		return 2 + w.OffsetSize() + 4
	}
	return 2 + w.OffsetSize() + w.LengthSize()
}
