// Package superblock reads and writes the fixed prefix of a container file.
//
// The prefix identifies the file, records the offset and length widths used
// by everything after it, and points at the root object header.
//
//	Offset  Size  Description
//	0       8     Signature (0x89 V D S \r \n 0x1a \n)
//	8       1     Version (2)
//	9       1     Size of offsets
//	10      1     Size of lengths
//	11      1     Flags (reserved, 0)
//	12      O     Base address
//	12+O    O     Extension address (undefined)
//	12+2O   O     End-of-file address
//	12+3O   O     Root object header address
//	12+4O   4     Lookup3 checksum
//
// The prefix is always at offset 0 and always little-endian.
package superblock
