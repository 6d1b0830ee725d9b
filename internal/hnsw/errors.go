package hnsw

import "errors"

// ErrReadOnly is returned by any mutating call (Add, AddBatch, Remove) on
// an index opened with View, which memory-maps the file read-only.
var ErrReadOnly = errors.New("hnsw: index is opened read-only")

// ErrNotLoaded is returned by operations on a Manager-owned index slot
// that has no on-disk file and no rows to rebuild from yet.
var ErrNotLoaded = errors.New("hnsw: no index available for this model")
