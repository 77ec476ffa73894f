// Package object reads and writes version 2 object headers (signature
// "OHDR"), the checksummed container of header messages that describes a
// stored dataset.
//
// Header layout:
//
//	Offset  Size  Description
//	0       4     Signature ("OHDR")
//	4       1     Version (2)
//	5       1     Flags (bits 0-1: width of the chunk size field, 1 << value)
//	6       1-8   Chunk size (messages only)
//	var     var   Messages: type (1), size (2), flags (1), data
//	var     4     Lookup3 checksum of everything before it
//
// Read verifies the checksum before parsing any message. Timestamps,
// attribute phase values and continuation blocks are not written and are
// rejected on read.
package object
