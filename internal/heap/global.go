package heap

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
)

// Errors
var (
	ErrSignature = errors.New("invalid global heap signature")
	ErrNoObject  = errors.New("global heap object not found")
)

const (
	signature = "GCOL"
	version   = 1
)

// ID references an object in a global heap collection.
type ID struct {
	Collection uint64 // Address of the collection
	Index      uint32 // 1-based object index
}

// Collection is a parsed global heap collection.
type Collection struct {
	Address uint64
	Size    uint64
	objects map[uint16][]byte
}

func headerSize(lengthSize int) int   { return 4 + 1 + 3 + lengthSize }
func objHeaderSize(lengthSize int) int { return 2 + 2 + 4 + lengthSize }
func pad8(n int) int                   { return (8 - n%8) % 8 }

// Read parses the collection at address.
func Read(r *binary.Reader, address uint64) (*Collection, error) {
	if address == 0 || r.IsUndefinedOffset(address) {
		return nil, fmt.Errorf("invalid global heap address 0x%x", address)
	}
	hr := r.At(int64(address))

	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading global heap signature: %w", err)
	}
	if string(sig) != signature {
		return nil, fmt.Errorf("%w: %q", ErrSignature, sig)
	}
	v, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if v != version {
		return nil, fmt.Errorf("unsupported global heap version: %d", v)
	}
	hr.Skip(3)
	size, err := hr.ReadLength()
	if err != nil {
		return nil, err
	}

	col := &Collection{Address: address, Size: size, objects: make(map[uint16][]byte)}
	end := int64(address) + int64(size)
	for hr.Pos()+2 <= end {
		index, err := hr.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("reading global heap object: %w", err)
		}
		if index == 0 {
			break
		}
		hr.Skip(2 + 4) // reference count, reserved
		n, err := hr.ReadLength()
		if err != nil {
			return nil, err
		}
		if hr.Pos()+int64(n) > end {
			return nil, fmt.Errorf("global heap object %d overruns collection", index)
		}
		data, err := hr.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		col.objects[index] = data
		hr.Skip(int64(pad8(int(n))))
	}
	return col, nil
}

// Object returns a copy of the object with the given index.
func (c *Collection) Object(index uint32) ([]byte, error) {
	data, ok := c.objects[uint16(index)]
	if !ok || index > 0xFFFF {
		return nil, fmt.Errorf("%w: index %d in collection 0x%x", ErrNoObject, index, c.Address)
	}
	return append([]byte(nil), data...), nil
}

// Len returns the number of objects in the collection.
func (c *Collection) Len() int {
	return len(c.objects)
}

// ReadObject reads the collection id points at and returns the object.
func ReadObject(r *binary.Reader, id ID) ([]byte, error) {
	col, err := Read(r, id.Collection)
	if err != nil {
		return nil, err
	}
	return col.Object(id.Index)
}

// Writer accumulates objects for a single new collection.
type Writer struct {
	w        *binary.Writer
	allocate func(size int64) uint64
	objects  [][]byte
}

// NewWriter creates a collection writer. allocate reserves size bytes in the
// output and returns their address.
func NewWriter(w *binary.Writer, allocate func(size int64) uint64) *Writer {
	return &Writer{w: w, allocate: allocate}
}

// Add queues an object and returns its 1-based index.
func (hw *Writer) Add(data []byte) uint32 {
	hw.objects = append(hw.objects, data)
	return uint32(len(hw.objects))
}

// Size returns the collection size Write will allocate.
func (hw *Writer) Size() int {
	ls := hw.w.LengthSize()
	n := headerSize(ls)
	for _, obj := range hw.objects {
		n += objHeaderSize(ls) + len(obj) + pad8(len(obj))
	}
	n += 2 // terminating index
	return n + pad8(n)
}

// Write allocates and writes the collection and returns its address.
func (hw *Writer) Write() (uint64, error) {
	if len(hw.objects) == 0 {
		return 0, errors.New("empty global heap collection")
	}
	if len(hw.objects) > 0xFFFF {
		return 0, fmt.Errorf("global heap collection holds at most 65535 objects, have %d", len(hw.objects))
	}
	size := hw.Size()
	addr := hw.allocate(int64(size))
	w := hw.w.At(int64(addr))

	if err := w.WriteBytes([]byte{'G', 'C', 'O', 'L', version, 0, 0, 0}); err != nil {
		return 0, err
	}
	if err := w.WriteLength(uint64(size)); err != nil {
		return 0, err
	}
	for i, obj := range hw.objects {
		if err := w.WriteUint16(uint16(i + 1)); err != nil {
			return 0, err
		}
		if err := w.WriteUint16(1); err != nil {
			return 0, err
		}
		if err := w.WriteZeros(4); err != nil {
			return 0, err
		}
		if err := w.WriteLength(uint64(len(obj))); err != nil {
			return 0, err
		}
		if err := w.WriteBytes(obj); err != nil {
			return 0, err
		}
		if err := w.WriteZeros(pad8(len(obj))); err != nil {
			return 0, err
		}
	}
	if err := w.WriteZeros(size - int(w.Pos()-int64(addr))); err != nil {
		return 0, err
	}
	return addr, nil
}
