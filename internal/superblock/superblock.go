package superblock

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	binpkg "github.com/robert-malhotra/go-vds/internal/binary"
)

// Signature opens every container file.
var Signature = []byte{0x89, 'V', 'D', 'S', '\r', '\n', 0x1a, '\n'}

// Version is the only prefix version written and read.
const Version = 2

// Errors
var (
	ErrNotContainer       = errors.New("not a container file: signature not found")
	ErrUnsupportedVersion = errors.New("unsupported superblock version")
	ErrInvalidSuperblock  = errors.New("invalid superblock structure")
)

// Superblock is the container prefix.
type Superblock struct {
	// OffsetSize is the number of bytes used for file offsets (2, 4, or 8)
	OffsetSize uint8

	// LengthSize is the number of bytes used for lengths (2, 4, or 8)
	LengthSize uint8

	BaseAddress uint64

	// EOFAddress is the end-of-file address (logical EOF)
	EOFAddress uint64

	// RootAddress is the address of the root object header
	RootAddress uint64
}

// New returns a prefix using the widths in cfg.
func New(cfg binpkg.Config) *Superblock {
	return &Superblock{OffsetSize: uint8(cfg.OffsetSize), LengthSize: uint8(cfg.LengthSize)}
}

// Size returns the encoded size of the prefix, checksum included.
func (sb *Superblock) Size() int {
	return 12 + 4*int(sb.OffsetSize) + 4
}

// Config returns a binary.Config for the rest of the file.
func (sb *Superblock) Config() binpkg.Config {
	return binpkg.Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: int(sb.OffsetSize),
		LengthSize: int(sb.LengthSize),
	}
}

// Read parses and verifies the prefix at offset 0.
func Read(r io.ReaderAt) (*Superblock, error) {
	fixed := make([]byte, 12)
	if _, err := r.ReadAt(fixed, 0); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNotContainer
		}
		return nil, err
	}
	if !bytes.Equal(fixed[:8], Signature) {
		return nil, ErrNotContainer
	}
	if fixed[8] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, fixed[8])
	}
	sb := &Superblock{OffsetSize: fixed[9], LengthSize: fixed[10]}
	if err := sb.Config().Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuperblock, err)
	}

	raw := make([]byte, sb.Size())
	if _, err := r.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	body, err := binpkg.SplitLookup3(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSuperblock, err)
	}

	br := binpkg.NewBytesReader(body, sb.Config()).At(12)
	addrs := []*uint64{&sb.BaseAddress, nil, &sb.EOFAddress, &sb.RootAddress}
	for _, dst := range addrs {
		v, err := br.ReadOffset()
		if err != nil {
			return nil, err
		}
		if dst != nil {
			*dst = v
		}
	}
	return sb, nil
}

// Write writes the prefix at offset 0 of w and returns the bytes written.
func (sb *Superblock) Write(w io.WriterAt) (int64, error) {
	buf := binpkg.NewBuffer(make([]byte, 0, sb.Size()))
	bw := binpkg.NewWriter(buf, sb.Config())
	if err := bw.WriteBytes(Signature); err != nil {
		return 0, err
	}
	if err := bw.WriteBytes([]byte{Version, sb.OffsetSize, sb.LengthSize, 0}); err != nil {
		return 0, err
	}
	if err := bw.WriteOffset(sb.BaseAddress); err != nil {
		return 0, err
	}
	if err := bw.WriteUndefinedOffset(); err != nil {
		return 0, err
	}
	if err := bw.WriteOffset(sb.EOFAddress); err != nil {
		return 0, err
	}
	if err := bw.WriteOffset(sb.RootAddress); err != nil {
		return 0, err
	}
	out := binpkg.AppendLookup3(buf.Bytes())
	n, err := w.WriteAt(out, 0)
	return int64(n), err
}
