// Package layout moves elements between a caller's memory buffer and a
// dataset's raw storage according to a pair of selections.
//
// # Element Order
//
// A memory selection and a file selection with the same number of elements
// are paired in row-major order: the i-th selected memory element
// corresponds to the i-th selected file element. [Plan] reduces the pairing
// to a list of [Step]s, each a contiguous run on both sides, so a transfer
// costs one copy per step regardless of the selections' shapes.
//
// # Storage
//
// [Contiguous] stores a dataset as one row-major block at a fixed address in
// an io.ReaderAt / io.WriterAt. [Fill] writes a fill value into the memory
// elements of a selection, and [Reshape] carries the contents of a dataset
// over to new dimensions when it is resized.
package layout
