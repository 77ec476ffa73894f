package object

import (
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/message"
)

// messageHeaderSize is type(1) + size(2) + flags(1).
const messageHeaderSize = 4

// WriteHeader writes a v2 object header at the writer's position and
// returns the number of bytes written.
func WriteHeader(w *binary.Writer, messages []message.Serializable) (int64, error) {
	chunkSize := 0
	for _, msg := range messages {
		n := msg.SerializedSize(w)
		if n > 0xFFFF {
			return 0, fmt.Errorf("%s message too large: %d bytes", msg.Type(), n)
		}
		chunkSize += messageHeaderSize + n
	}
	fieldSize := chunkSizeFieldBytes(int64(chunkSize))

	buf := binary.NewBuffer(make([]byte, 0, HeaderSize(w, messages)))
	bw := binary.NewWriter(buf, w.Config())
	if err := bw.WriteBytes(SignatureV2); err != nil {
		return 0, err
	}
	flags := uint8(0)
	for 1<<flags < fieldSize {
		flags++
	}
	if err := bw.WriteBytes([]byte{2, flags}); err != nil {
		return 0, err
	}
	if err := bw.WriteUintN(uint64(chunkSize), fieldSize); err != nil {
		return 0, err
	}
	for _, msg := range messages {
		if err := bw.WriteUint8(uint8(msg.Type())); err != nil {
			return 0, err
		}
		if err := bw.WriteUint16(uint16(msg.SerializedSize(w))); err != nil {
			return 0, err
		}
		if err := bw.WriteUint8(0); err != nil {
			return 0, err
		}
		if err := msg.Serialize(bw); err != nil {
			return 0, fmt.Errorf("writing %s: %w", msg.Type(), err)
		}
	}

	out := binary.AppendLookup3(buf.Bytes())
	if err := w.WriteBytes(out); err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

// HeaderSize calculates the total size of a v2 object header with the given
// messages, checksum included.
func HeaderSize(w *binary.Writer, messages []message.Serializable) int {
	chunkSize := 0
	for _, msg := range messages {
		chunkSize += messageHeaderSize + msg.SerializedSize(w)
	}
	return 4 + 1 + 1 + chunkSizeFieldBytes(int64(chunkSize)) + chunkSize + 4
}

// chunkSizeFieldBytes returns the number of bytes needed to store the chunk size.
func chunkSizeFieldBytes(size int64) int {
	switch {
	case size <= 0xFF:
		return 1
	case size <= 0xFFFF:
		return 2
	case size <= 0xFFFFFFFF:
		return 4
	default:
		return 8
	}
}

// DatasetMessages orders the messages of a dataset header.
func DatasetMessages(ds *message.Dataspace, dt *message.Datatype, fv *message.FillValue, dl *message.DataLayout) []message.Serializable {
	return []message.Serializable{ds, dt, fv, dl}
}
