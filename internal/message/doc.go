// Package message encodes the header messages that describe a stored
// dataset: its dataspace, element datatype, fill value, and data layout.
// The layout message of a virtual dataset points at a mapping block, whose
// codec lives here as well (see [EncodeMappingBlock]).
//
// Messages are parsed with [Parse] and written through the [Serializable]
// interface. Offsets and lengths use the widths configured on the
// binary.Reader or binary.Writer, so a message decoded from a container
// with 4-byte lengths re-encodes identically.
//
// Supported encodings:
//
//   - Dataspace version 2, simple or scalar. Unlimited maximum dimensions
//     are stored as the all-ones length value.
//   - Datatype version 1 (class, class bit field, size, raw properties).
//   - Fill value version 3.
//   - Data layout version 3 (contiguous) and version 4 (virtual).
package message
