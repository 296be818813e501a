package domain

import "errors"

var (
	// ErrInvalidInput marks missing or malformed caller-supplied fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrResolution marks a failure of the external provider to supply
	// metadata or a stream for a URL.
	ErrResolution = errors.New("resolution failed")
	// ErrTransfer marks a network or disk failure mid-stream.
	ErrTransfer = errors.New("transfer failed")
	// ErrUnsupportedFormat marks a requested container no download path
	// exists for.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrNotFound marks an unknown job id or an artifact absent from disk.
	ErrNotFound = errors.New("not found")
	// ErrNotReady marks an artifact that cannot be served yet.
	ErrNotReady = errors.New("not ready")
)
