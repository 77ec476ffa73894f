package message

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/robert-malhotra/go-vds/internal/binary"
)

// DatatypeClass represents the class of an element datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0 // Integers
	ClassFloatPoint DatatypeClass = 1 // Floating-point
	ClassString     DatatypeClass = 3 // Fixed-length strings
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5 // Raw bytes
)

func (c DatatypeClass) String() string {
	switch c {
	case ClassFixedPoint:
		return "integer"
	case ClassFloatPoint:
		return "float"
	case ClassString:
		return "string"
	case ClassBitfield:
		return "bitfield"
	case ClassOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("class %d", uint8(c))
	}
}

// Datatype represents a datatype message (type 0x0003). The mapping layer
// only needs the element size; class properties are carried through
// unchanged.
type Datatype struct {
	Class      DatatypeClass
	ClassBits  uint32 // 24-bit class bit field
	Size       uint32
	Properties []byte
}

func (m *Datatype) Type() Type { return TypeDatatype }

// Signed reports whether an integer type is signed.
func (m *Datatype) Signed() bool {
	return m.Class == ClassFixedPoint && m.ClassBits&0x08 != 0
}

// NewInteger creates a little-endian integer datatype of size bytes.
func NewInteger(size uint32, signed bool) *Datatype {
	dt := &Datatype{Class: ClassFixedPoint, Size: size}
	if signed {
		dt.ClassBits |= 0x08
	}
	dt.Properties = make([]byte, 4)
	binary.LittleEndian.PutUint16(dt.Properties[2:], uint16(8*size))
	return dt
}

// NewOpaque creates an opaque datatype of size bytes with an empty tag.
func NewOpaque(size uint32) *Datatype {
	return &Datatype{Class: ClassOpaque, Size: size, Properties: make([]byte, 8)}
}

func parseDatatype(data []byte) (*Datatype, error) {
	if len(data) < 8 {
		return nil, ErrTruncated
	}
	if v := data[0] >> 4; v != 1 {
		return nil, fmt.Errorf("%w: datatype version %d", ErrUnsupported, v)
	}
	dt := &Datatype{
		Class:     DatatypeClass(data[0] & 0x0F),
		ClassBits: uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16,
		Size:      binary.LittleEndian.Uint32(data[4:8]),
	}
	if dt.Size == 0 {
		return nil, fmt.Errorf("%w: zero element size", ErrUnsupported)
	}
	dt.Properties = append([]byte(nil), data[8:]...)
	return dt, nil
}

// Serialize writes a version 1 datatype.
func (m *Datatype) Serialize(w *binpkg.Writer) error {
	hdr := []byte{
		1<<4 | uint8(m.Class)&0x0F,
		uint8(m.ClassBits), uint8(m.ClassBits >> 8), uint8(m.ClassBits >> 16),
	}
	hdr = binary.LittleEndian.AppendUint32(hdr, m.Size)
	if err := w.WriteBytes(hdr); err != nil {
		return err
	}
	return w.WriteBytes(m.Properties)
}

// SerializedSize returns the size in bytes when serialized.
func (m *Datatype) SerializedSize(*binpkg.Writer) int {
	return 8 + len(m.Properties)
}
