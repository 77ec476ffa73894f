// Package store holds what the source backends share: the container format
// a source dataset is stored in, a [Dataset] that serves selection I/O from
// any random-access [Storage], and the reference counting of open files.
//
// A container is a superblock, one object header (dataspace, datatype,
// fill value, contiguous layout) and the raw data. Backends decide only
// where the container bytes live: store/fsstore keeps one file per dataset
// on an afero filesystem, store/kvstore one badger value per dataset.
package store
