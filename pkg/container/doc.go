// Package container maps labeled arrays onto a hierarchical on-disk
// container and back. A Session owns one container (path, access mode) and
// exposes the write path (WriteArray: data node plus one scale node per
// dimension), the read path (ReadArray: eager, index-sliced, lazy chunked,
// or raw), and flat listing of stored arrays.
//
// Container layout:
//
//	/                     attrs: rev_fileformat = 2
//	/data/...             stored arrays (may nest)
//	/scales/<name>_<dim>  coordinate vectors, attrs: unit
//	/diag/...             reserved
package container
