package contentstore

import "errors"

var (
	// ErrInvalidPath indicates a path that resolves outside the bucket root
	// or an unusable bucket ID.
	ErrInvalidPath = errors.New("invalid path")
	// ErrEmptyPath indicates a relative path that is empty after sanitizing.
	ErrEmptyPath = errors.New("empty path")
	// ErrNotExist indicates the requested file is absent. This is a normal
	// outcome for reads, not a fault.
	ErrNotExist = errors.New("file does not exist")

	ErrFailedToCreateDirectory = errors.New("failed to create directory")
	ErrFailedToWriteFile       = errors.New("failed to write file")
	ErrFailedToOpenFile        = errors.New("failed to open file")
	ErrFailedToDeleteFile      = errors.New("failed to delete file")
	ErrFailedToDeleteBucket    = errors.New("failed to delete bucket directory")
	ErrInvalidConfig           = errors.New("invalid configuration")
)
