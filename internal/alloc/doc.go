// Package alloc places the structures of a container file (object header,
// global heap collection, raw data) at non-overlapping addresses.
//
// Allocation is append-only: every range is carved from the current
// end-of-file, optionally aligned. Each allocation carries a tag so a
// container's layout can be listed (see vdsinfo inspect --debug).
//
//	a := alloc.New(uint64(sb.Size()))
//	hdr := a.AllocAligned(n, 8, "object header")
//	heapAddr, err := heap.NewWriter(w, a.Func("global heap")).Write()
package alloc
