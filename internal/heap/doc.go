// Package heap implements the global heap collection (signature "GCOL"),
// which stores variable-size objects referenced by an [ID]: the address of
// the collection plus a 1-based object index.
//
// A virtual dataset keeps its mapping block in a global heap object; the
// layout message holds the ID.
//
// Collection structure:
//   - Header: signature, version 1, 3 reserved bytes, collection size
//   - Objects: index (2), reference count (2), reserved (4), size, data
//     padded to an 8-byte boundary
//   - An object with index 0 ends the list
//
// Usage:
//
//	w := heap.NewWriter(bw, allocate)
//	idx := w.Add(block)
//	addr, err := w.Write()
//
//	col, err := heap.Read(reader, addr)
//	block, err := col.Object(idx)
package heap
