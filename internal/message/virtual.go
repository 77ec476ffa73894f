package message

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-vds/internal/binary"
	"github.com/robert-malhotra/go-vds/selection"
)

const mappingBlockVersion = 0

// MappingEntry is one persisted mapping: the source file and dataset name
// templates and the two selections, exactly as stored.
type MappingEntry struct {
	SourceFile    string
	SourceDataset string
	Source        *selection.Selection
	Virtual       *selection.Selection
}

/*
Mapping block layout:

	version           1 byte (0)
	entry count       length-size
	per entry:
	  source file     NUL-terminated
	  source dataset  NUL-terminated
	  source          selection encoding
	  virtual         selection encoding
	checksum          4 bytes, lookup3 over everything before it
*/

// MappingBlockSize returns the encoded size of a mapping block.
func MappingBlockSize(entries []MappingEntry, cfg binary.Config) int {
	n := 1 + cfg.LengthSize + 4
	for _, e := range entries {
		n += len(e.SourceFile) + 1 + len(e.SourceDataset) + 1
		n += e.Source.EncodedSize() + e.Virtual.EncodedSize()
	}
	return n
}

// EncodeMappingBlock serializes entries in order.
func EncodeMappingBlock(entries []MappingEntry, cfg binary.Config) ([]byte, error) {
	buf := binary.NewBuffer(make([]byte, 0, MappingBlockSize(entries, cfg)))
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteUint8(mappingBlockVersion); err != nil {
		return nil, err
	}
	if err := w.WriteLength(uint64(len(entries))); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if err := w.WriteCString(e.SourceFile); err != nil {
			return nil, err
		}
		if err := w.WriteCString(e.SourceDataset); err != nil {
			return nil, err
		}
		for _, s := range []*selection.Selection{e.Source, e.Virtual} {
			enc, err := s.Encode(nil)
			if err != nil {
				return nil, fmt.Errorf("mapping %d: %w", i, err)
			}
			if err := w.WriteBytes(enc); err != nil {
				return nil, err
			}
		}
	}
	return binary.AppendLookup3(buf.Bytes()), nil
}

// DecodeMappingBlock verifies the checksum and parses the entries. The
// decoded selections have unknown extents.
func DecodeMappingBlock(data []byte, cfg binary.Config) ([]MappingEntry, error) {
	body, err := binary.SplitLookup3(data)
	if err != nil {
		return nil, fmt.Errorf("mapping block: %w", err)
	}
	if len(body) < 1+cfg.LengthSize {
		return nil, ErrTruncated
	}
	if body[0] != mappingBlockVersion {
		return nil, fmt.Errorf("%w: mapping block version %d", ErrUnsupported, body[0])
	}
	count := binary.DecodeUint(body[1:], cfg.LengthSize, cfg.ByteOrder)
	p := body[1+cfg.LengthSize:]
	if count > uint64(len(p)) {
		return nil, fmt.Errorf("%w: %d mappings in %d bytes", ErrTruncated, count, len(p))
	}

	cstring := func() (string, error) {
		i := bytes.IndexByte(p, 0)
		if i < 0 {
			return "", binary.ErrUnterminated
		}
		s := string(p[:i])
		p = p[i+1:]
		return s, nil
	}
	sel := func() (*selection.Selection, error) {
		s, n, err := selection.Decode(p)
		if err != nil {
			return nil, err
		}
		p = p[n:]
		return s, nil
	}

	entries := make([]MappingEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		var e MappingEntry
		if e.SourceFile, err = cstring(); err != nil {
			return nil, fmt.Errorf("mapping %d source file: %w", i, err)
		}
		if e.SourceDataset, err = cstring(); err != nil {
			return nil, fmt.Errorf("mapping %d source dataset: %w", i, err)
		}
		if e.Source, err = sel(); err != nil {
			return nil, fmt.Errorf("mapping %d source selection: %w", i, err)
		}
		if e.Virtual, err = sel(); err != nil {
			return nil, fmt.Errorf("mapping %d virtual selection: %w", i, err)
		}
		entries = append(entries, e)
	}
	if len(p) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes in mapping block", ErrUnsupported, len(p))
	}
	return entries, nil
}
