package songbook

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrValidation indicates missing or invalid input
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates a missing session or a caller without admin rights
	ErrUnauthorized = errors.New("unauthorized: admin access required")

	// ErrSongNotFound indicates a song was not found
	ErrSongNotFound = errors.New("song not found")

	// ErrSongExists indicates a song with the same id is already stored
	ErrSongExists = errors.New("song already exists")

	// ErrPresignUnsupported indicates the blob store cannot issue presigned URLs
	ErrPresignUnsupported = errors.New("presigned URLs not supported by storage backend")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// SongError represents an error related to song operations
type SongError struct {
	ID  string
	Op  string
	Err error
}

func (e *SongError) Error() string {
	return fmt.Sprintf("song operation %s failed for song %s: %v", e.Op, e.ID, e.Err)
}

func (e *SongError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
