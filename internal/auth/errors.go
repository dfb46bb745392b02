package auth

import "errors"

var (
	// ErrFileRead indicates the stored token file exists but could not
	// be read or parsed.
	ErrFileRead = errors.New("auth: failed to read authentication file")

	// ErrFileWrite indicates the token file could not be written.
	ErrFileWrite = errors.New("auth: failed to write authentication file")

	// ErrFileDeletion indicates the token file could not be removed.
	ErrFileDeletion = errors.New("auth: failed to delete authentication file")
)
