// Package labeled provides the in-memory model for labeled multi-dimensional
// numeric arrays: a typed rectangular buffer (Block), named dimensions with
// coordinate vectors and units (Array), half-open index slices, and a lazy
// chunked view that defers loading to a caller-supplied loader.
package labeled
