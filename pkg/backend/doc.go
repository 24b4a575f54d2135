// Package backend presents one uniform store contract over two
// interchangeable container engines: a pebble-backed store with per-dataset
// compression and a simpler, uncompressed badger-backed store. Backends are
// selected by name at open time; capability differences (compression,
// attribute enumeration) are normalized behind the Store interface.
package backend
