package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-vds/internal/binary"
)

// FillValue represents a version 3 fill value message (type 0x0005).
type FillValue struct {
	SpaceAllocTime uint8
	FillWriteTime  uint8
	Undefined      bool
	Value          []byte // nil with !Undefined means the default (zeros)
}

func (m *FillValue) Type() Type { return TypeFillValue }

const (
	fillFlagUndefined = 1 << 4
	fillFlagDefined   = 1 << 5
)

func parseFillValue(data []byte) (*FillValue, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	if data[0] != 3 {
		return nil, fmt.Errorf("%w: fill value version %d", ErrUnsupported, data[0])
	}
	flags := data[1]
	fv := &FillValue{
		SpaceAllocTime: flags & 0x03,
		FillWriteTime:  (flags >> 2) & 0x03,
		Undefined:      flags&fillFlagUndefined != 0,
	}
	if flags&fillFlagDefined == 0 {
		return fv, nil
	}
	if fv.Undefined {
		return nil, fmt.Errorf("%w: fill value both undefined and defined", ErrUnsupported)
	}
	if len(data) < 6 {
		return nil, ErrTruncated
	}
	size := int(binary.LittleEndian.Uint32(data[2:6]))
	if len(data) < 6+size {
		return nil, ErrTruncated
	}
	fv.Value = append([]byte{}, data[6:6+size]...)
	return fv, nil
}

// Serialize writes a version 3 fill value.
func (m *FillValue) Serialize(w *binpkg.Writer) error {
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	switch {
	case m.Undefined:
		flags |= fillFlagUndefined
	case m.Value != nil:
		flags |= fillFlagDefined
	}
	if err := w.WriteBytes([]byte{3, flags}); err != nil {
		return err
	}
	if flags&fillFlagDefined == 0 {
		return nil
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}

// SerializedSize returns the size in bytes when serialized.
func (m *FillValue) SerializedSize(*binpkg.Writer) int {
	if m.Undefined || m.Value == nil {
		return 2
	}
	return 6 + len(m.Value)
}
