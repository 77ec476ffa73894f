// Package selection implements the dataspace selection algebra used by the
// virtual dataset layer.
//
// A Selection picks elements out of an N-dimensional index space (its
// extent). Four kinds exist:
//
//   - None: no elements
//   - All: every element of the extent
//   - Points: an explicit coordinate list
//   - Hyperslab: either a regular pattern described per dimension by
//     start/stride/count/block, or an irregular set of disjoint boxes
//
// A regular hyperslab may have an unlimited count in at most one dimension.
// Such a selection describes an open-ended repeating pattern; the unlimited
// helpers (ClipUnlimited, ClipExtent, UnlimitedBlock, FirstIncompleteBlock)
// convert between "how many slices of the pattern exist" and "how large the
// extent must be".
//
// # Element order
//
// Elements of a selection are ordered by their row-major position, which is
// the lexicographic order of their coordinates. ProjectIntersection relies on
// this: two selections with equal element counts correspond element by
// element in that order.
//
// # Immutability
//
// Selections are immutable. Every operation returns a new value and never
// aliases the receiver's slices, so selections can be cached and shared.
//
// # Encoding
//
// Encode and Decode use the HDF5 selection serialization: version 1 for
// none, all, points and irregular hyperslabs (32-bit coordinates), version 2
// for regular hyperslabs (64-bit start/stride/count/block, unlimited counts
// allowed). The extent is not part of the encoding; decoded selections have
// an unknown extent until WithExtent is called.
package selection
