package device

import "errors"

var (
	// ErrInvalidMAC indicates a malformed station MAC address.
	ErrInvalidMAC = errors.New("device: invalid MAC address")

	// ErrInfoFileWrite indicates the device info file could not be written.
	ErrInfoFileWrite = errors.New("device: failed to write info file")

	// ErrInfoFileDeletion indicates the device info file could not be removed.
	ErrInfoFileDeletion = errors.New("device: failed to delete info file")

	// ErrDirectoryDeletion indicates the device directory could not be removed.
	ErrDirectoryDeletion = errors.New("device: failed to delete device directory")

	// ErrDirectoryMove indicates the device directory could not be renamed.
	ErrDirectoryMove = errors.New("device: failed to move device directory")
)
