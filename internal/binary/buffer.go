package binary

import "io"

// Buffer is a growable in-memory io.ReaderAt and io.WriterAt. Writes past
// the end extend the buffer with zeros.
type Buffer struct {
	buf []byte
}

// NewBuffer wraps data; the buffer takes ownership of it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{buf: data}
}

// WriteAt implements io.WriterAt.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, max(end, 2*cap(b.buf)))
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the buffer contents. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// Len returns the buffer length.
func (b *Buffer) Len() int {
	return len(b.buf)
}
