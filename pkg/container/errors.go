package container

import "errors"

// Common errors. Backend-level failures (unknown backend name, unsupported
// compression, missing nodes) surface as the backend package's errors.
var (
	// ErrInvalidMode is returned for an access mode outside r, r+, w, w+,
	// a, a+.
	ErrInvalidMode = errors.New("invalid access mode")

	// ErrMissingFile is returned when a read or append mode targets a
	// container that does not exist.
	ErrMissingFile = errors.New("container does not exist")

	// ErrExistingFile is returned when a write mode targets an existing
	// container and overwrite was not requested.
	ErrExistingFile = errors.New("container already exists")

	// ErrWriteModeUnsupported is returned when Open is asked for a write
	// mode: overwriting an initialized container through Open is
	// disallowed, writes after construction use append modes.
	ErrWriteModeUnsupported = errors.New("write mode would overwrite the container, use an append mode")

	// ErrMissingName is returned by WriteArray for an array without a name.
	ErrMissingName = errors.New("array has no name")

	// ErrInvalidPath is returned for a location that does not resolve to a
	// dataset name.
	ErrInvalidPath = errors.New("invalid array path")

	// ErrMissingUnit is returned by WriteArray when a dimension has no
	// declared unit.
	ErrMissingUnit = errors.New("dimension unit is missing")

	// ErrConflictingOptions is returned when mutually exclusive read
	// options are combined.
	ErrConflictingOptions = errors.New("conflicting read options")

	// ErrMissingDependency is returned for a chunked read on a session
	// without a lazy adapter.
	ErrMissingDependency = errors.New("no lazy adapter configured for chunked reads")
)
