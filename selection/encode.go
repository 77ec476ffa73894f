package selection

import (
	"encoding/binary"
	"fmt"
	"math"
)

/*
Serialized selection layout (little-endian):

none / all (version 1):
  0   4   type
  4   4   version (1)
  8   4   reserved
  12  4   length of the rest (0)

points (version 1):
  0   4   type (1)
  4   4   version (1)
  8   4   reserved
  12  4   length of the rest
  16  4   rank
  20  4   number of points
  24  ... rank 32-bit coordinates per point

hyperslab, irregular (version 1):
  0   4   type (2)
  4   4   version (1)
  8   4   reserved
  12  4   length of the rest
  16  4   rank
  20  4   number of blocks
  24  ... per block: rank 32-bit start coordinates, rank 32-bit end
          coordinates (inclusive)

hyperslab, regular (version 2):
  0   4   type (2)
  4   4   version (2)
  8   1   flags (0x01 = regular)
  9   4   length of the rest
  13  4   rank
  17  ... per dimension: 64-bit start, stride, count, block
*/

const (
	encVersion1      = 1
	encVersion2      = 2
	encFlagRegular   = 0x01
	encRegularHeader = 13
	encHeader        = 16
)

var le = binary.LittleEndian

// Encode appends the serialized selection to buf.
func (s *Selection) Encode(buf []byte) ([]byte, error) {
	switch s.kind {
	case KindNone, KindAll:
		buf = le.AppendUint32(buf, uint32(s.kind))
		buf = le.AppendUint32(buf, encVersion1)
		buf = le.AppendUint32(buf, 0)
		return le.AppendUint32(buf, 0), nil

	case KindPoints:
		buf = le.AppendUint32(buf, uint32(s.kind))
		buf = le.AppendUint32(buf, encVersion1)
		buf = le.AppendUint32(buf, 0)
		buf = le.AppendUint32(buf, uint32(8+4*s.rank*len(s.points)))
		buf = le.AppendUint32(buf, uint32(s.rank))
		buf = le.AppendUint32(buf, uint32(len(s.points)))
		for _, p := range s.points {
			for _, c := range p {
				if c > math.MaxUint32 {
					return nil, ErrNotEncodable
				}
				buf = le.AppendUint32(buf, uint32(c))
			}
		}
		return buf, nil
	}

	if s.regular != nil {
		buf = le.AppendUint32(buf, uint32(KindHyperslab))
		buf = le.AppendUint32(buf, encVersion2)
		buf = append(buf, encFlagRegular)
		buf = le.AppendUint32(buf, uint32(4+32*s.rank))
		buf = le.AppendUint32(buf, uint32(s.rank))
		for _, d := range s.regular {
			buf = le.AppendUint64(buf, d.Start)
			buf = le.AppendUint64(buf, d.Stride)
			buf = le.AppendUint64(buf, d.Count)
			buf = le.AppendUint64(buf, d.Block)
		}
		return buf, nil
	}

	buf = le.AppendUint32(buf, uint32(KindHyperslab))
	buf = le.AppendUint32(buf, encVersion1)
	buf = le.AppendUint32(buf, 0)
	buf = le.AppendUint32(buf, uint32(8+8*s.rank*len(s.boxes)))
	buf = le.AppendUint32(buf, uint32(s.rank))
	buf = le.AppendUint32(buf, uint32(len(s.boxes)))
	for _, b := range s.boxes {
		for _, c := range b.Start {
			if c > math.MaxUint32 {
				return nil, ErrNotEncodable
			}
			buf = le.AppendUint32(buf, uint32(c))
		}
		for i, c := range b.Count {
			end := b.Start[i] + c - 1
			if end > math.MaxUint32 {
				return nil, ErrNotEncodable
			}
			buf = le.AppendUint32(buf, uint32(end))
		}
	}
	return buf, nil
}

// EncodedSize returns the number of bytes Encode appends.
func (s *Selection) EncodedSize() int {
	switch {
	case s.kind == KindNone || s.kind == KindAll:
		return encHeader
	case s.kind == KindPoints:
		return encHeader + 8 + 4*s.rank*len(s.points)
	case s.regular != nil:
		return encRegularHeader + 4 + 32*s.rank
	default:
		return encHeader + 8 + 8*s.rank*len(s.boxes)
	}
}

// Decode parses one serialized selection from the front of buf and returns
// it with the number of bytes consumed. The decoded selection has an unknown
// extent.
func Decode(buf []byte) (*Selection, int, error) {
	if len(buf) < 8 {
		return nil, 0, fmt.Errorf("%w: short header", ErrEncoding)
	}
	kind := Kind(le.Uint32(buf))
	version := le.Uint32(buf[4:])

	if kind == KindHyperslab && version == encVersion2 {
		return decodeRegular(buf)
	}
	if version != encVersion1 {
		return nil, 0, fmt.Errorf("%w: unsupported version %d for %s", ErrEncoding, version, kind)
	}
	if len(buf) < encHeader {
		return nil, 0, fmt.Errorf("%w: short header", ErrEncoding)
	}
	length := int(le.Uint32(buf[12:]))
	if len(buf) < encHeader+length {
		return nil, 0, fmt.Errorf("%w: truncated %s selection", ErrEncoding, kind)
	}
	body := buf[encHeader : encHeader+length]
	n := encHeader + length

	switch kind {
	case KindNone:
		return &Selection{kind: KindNone}, n, nil
	case KindAll:
		return &Selection{kind: KindAll}, n, nil
	case KindPoints:
		rank, count, coords, err := decodeCoords(body, 1)
		if err != nil {
			return nil, 0, err
		}
		pts := make([][]uint64, count)
		for i := range pts {
			pts[i] = coords[i*rank : (i+1)*rank]
		}
		return &Selection{kind: KindPoints, rank: rank, points: pts}, n, nil
	case KindHyperslab:
		rank, count, coords, err := decodeCoords(body, 2)
		if err != nil {
			return nil, 0, err
		}
		boxes := make([]Box, count)
		for i := range boxes {
			start := coords[2*i*rank : (2*i+1)*rank]
			end := coords[(2*i+1)*rank : (2*i+2)*rank]
			b := Box{Start: start, Count: make([]uint64, rank)}
			for j := range end {
				if end[j] < start[j] {
					return nil, 0, fmt.Errorf("%w: block end before start", ErrEncoding)
				}
				b.Count[j] = end[j] - start[j] + 1
			}
			boxes[i] = b
		}
		return fromBoxes(nil, rank, boxes), n, nil
	default:
		return nil, 0, fmt.Errorf("%w: unknown selection type %d", ErrEncoding, kind)
	}
}

// decodeCoords reads rank, item count, and perItem*rank 32-bit coordinates
// per item.
func decodeCoords(body []byte, perItem int) (rank, count int, coords []uint64, err error) {
	if len(body) < 8 {
		return 0, 0, nil, fmt.Errorf("%w: short coordinate header", ErrEncoding)
	}
	rank = int(le.Uint32(body))
	count = int(le.Uint32(body[4:]))
	want := 8 + 4*rank*count*perItem
	if rank == 0 || len(body) != want {
		return 0, 0, nil, fmt.Errorf("%w: coordinate list length %d, want %d", ErrEncoding, len(body), want)
	}
	coords = make([]uint64, rank*count*perItem)
	for i := range coords {
		coords[i] = uint64(le.Uint32(body[8+4*i:]))
	}
	return rank, count, coords, nil
}

func decodeRegular(buf []byte) (*Selection, int, error) {
	if len(buf) < encRegularHeader+4 {
		return nil, 0, fmt.Errorf("%w: short regular hyperslab", ErrEncoding)
	}
	if buf[8]&encFlagRegular == 0 {
		return nil, 0, fmt.Errorf("%w: irregular version 2 hyperslab", ErrEncoding)
	}
	length := int(le.Uint32(buf[9:]))
	rank := int(le.Uint32(buf[encRegularHeader:]))
	if length != 4+32*rank || len(buf) < encRegularHeader+length {
		return nil, 0, fmt.Errorf("%w: regular hyperslab length %d for rank %d", ErrEncoding, length, rank)
	}
	p := buf[encRegularHeader+4:]
	dims := make([]Dim, rank)
	for i := range dims {
		dims[i] = Dim{
			Start:  le.Uint64(p[32*i:]),
			Stride: le.Uint64(p[32*i+8:]),
			Count:  le.Uint64(p[32*i+16:]),
			Block:  le.Uint64(p[32*i+24:]),
		}
	}
	sel, err := Hyperslab(nil, dims)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return sel, encRegularHeader + length, nil
}
