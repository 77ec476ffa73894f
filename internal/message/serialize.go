package message

import (
	"github.com/robert-malhotra/go-vds/internal/binary"
)

// Serializable is the interface for messages that can be serialized to bytes.
type Serializable interface {
	Message
	// Serialize writes the message to the writer.
	Serialize(w *binary.Writer) error
	// SerializedSize returns the size in bytes when serialized.
	SerializedSize(w *binary.Writer) int
}

// Encode serializes msg on its own using the given widths.
func Encode(msg Serializable, cfg binary.Config) ([]byte, error) {
	buf := binary.NewBuffer(nil)
	w := binary.NewWriter(buf, cfg)
	if err := msg.Serialize(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
