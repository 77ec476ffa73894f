package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/internal/message"
)

// Object header signature
var SignatureV2 = []byte{'O', 'H', 'D', 'R'}

// Errors
var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
	ErrMissingMessage     = errors.New("required header message missing")
)

const flagsSizeMask = 0x03

// Header represents a parsed object header.
type Header struct {
	// Address is the file address where this header was found
	Address uint64

	// Size is the number of bytes the header occupies, checksum included
	Size int64

	// Messages contains all parsed header messages
	Messages []message.Message
}

// Read parses and verifies an object header at the given address.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))

	prefix, err := hr.ReadBytes(6)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	if string(prefix[:4]) != string(SignatureV2) {
		return nil, fmt.Errorf("%w: bad signature at address %d", ErrInvalidHeader, address)
	}
	if prefix[4] != 2 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, prefix[4])
	}
	flags := prefix[5]
	if flags&^flagsSizeMask != 0 {
		return nil, fmt.Errorf("%w: unsupported flags 0x%02x", ErrInvalidHeader, flags)
	}
	fieldSize := 1 << (flags & flagsSizeMask)
	chunkSize, err := hr.ReadUintN(fieldSize)
	if err != nil {
		return nil, err
	}

	// Re-read the whole header so the checksum covers the exact bytes.
	total := 6 + fieldSize + int(chunkSize) + 4
	raw, err := r.At(int64(address)).ReadBytes(total)
	if err != nil {
		return nil, fmt.Errorf("reading object header: %w", err)
	}
	body, err := binary.SplitLookup3(raw)
	if err != nil {
		return nil, fmt.Errorf("%w at address %d", ErrChecksumMismatch, address)
	}

	hdr := &Header{Address: address, Size: int64(total)}
	msgs := body[6+fieldSize:]
	for len(msgs) > 0 {
		if len(msgs) < 4 {
			return nil, fmt.Errorf("%w: truncated message header", ErrInvalidHeader)
		}
		typ := message.Type(msgs[0])
		size := int(r.ByteOrder().Uint16(msgs[1:3]))
		if len(msgs) < 4+size {
			return nil, fmt.Errorf("%w: %s overruns header", ErrInvalidHeader, typ)
		}
		data := msgs[4 : 4+size]
		msgs = msgs[4+size:]
		if typ == message.TypeNIL {
			continue
		}
		msg, err := message.Parse(typ, data, r)
		if err != nil {
			return nil, err
		}
		hdr.Messages = append(hdr.Messages, msg)
	}
	return hdr, nil
}

// GetMessage returns the first message of the given type, or nil if not found.
func (h *Header) GetMessage(typ message.Type) message.Message {
	for _, msg := range h.Messages {
		if msg.Type() == typ {
			return msg
		}
	}
	return nil
}

// Dataspace returns the dataspace message if present.
func (h *Header) Dataspace() *message.Dataspace {
	msg, _ := h.GetMessage(message.TypeDataspace).(*message.Dataspace)
	return msg
}

// Datatype returns the datatype message if present.
func (h *Header) Datatype() *message.Datatype {
	msg, _ := h.GetMessage(message.TypeDatatype).(*message.Datatype)
	return msg
}

// FillValue returns the fill value message if present.
func (h *Header) FillValue() *message.FillValue {
	msg, _ := h.GetMessage(message.TypeFillValue).(*message.FillValue)
	return msg
}

// DataLayout returns the data layout message if present.
func (h *Header) DataLayout() *message.DataLayout {
	msg, _ := h.GetMessage(message.TypeDataLayout).(*message.DataLayout)
	return msg
}

// Dataset returns the four messages describing a dataset, failing if any is
// missing.
func (h *Header) Dataset() (*message.Dataspace, *message.Datatype, *message.FillValue, *message.DataLayout, error) {
	ds, dt, fv, dl := h.Dataspace(), h.Datatype(), h.FillValue(), h.DataLayout()
	switch {
	case ds == nil:
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", ErrMissingMessage, message.TypeDataspace)
	case dt == nil:
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", ErrMissingMessage, message.TypeDatatype)
	case dl == nil:
		return nil, nil, nil, nil, fmt.Errorf("%w: %s", ErrMissingMessage, message.TypeDataLayout)
	}
	if fv == nil {
		fv = &message.FillValue{}
	}
	return ds, dt, fv, dl, nil
}
