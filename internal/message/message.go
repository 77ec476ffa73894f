package message

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
)

// Type identifies a header message.
type Type uint16

// Header message types
const (
	TypeNIL        Type = 0x0000
	TypeDataspace  Type = 0x0001
	TypeDatatype   Type = 0x0003
	TypeFillValue  Type = 0x0005
	TypeDataLayout Type = 0x0008
)

// Errors
var (
	ErrTruncated   = errors.New("message truncated")
	ErrUnsupported = errors.New("unsupported message encoding")
)

func (t Type) String() string {
	switch t {
	case TypeNIL:
		return "nil"
	case TypeDataspace:
		return "dataspace"
	case TypeDatatype:
		return "datatype"
	case TypeFillValue:
		return "fill value"
	case TypeDataLayout:
		return "data layout"
	default:
		return fmt.Sprintf("message 0x%04x", uint16(t))
	}
}

// Message is the interface implemented by all header messages.
type Message interface {
	Type() Type
}

// Parse parses a header message from raw bytes. The reader supplies the
// container's offset and length widths.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, r)
	case TypeDatatype:
		msg, err = parseDatatype(data)
	case TypeFillValue:
		msg, err = parseFillValue(data)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", typ, err)
	}
	return msg, nil
}

// Unknown represents an unrecognized message type.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }
