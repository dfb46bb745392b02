package firmware

import "errors"

// Domain errors for the firmware package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, firmware.ErrInvalidVersion) {
//	    // handle malformed version string
//	}
var (
	// ErrInvalidVersion is returned when a version string does not
	// match the n.n[.n] format.
	ErrInvalidVersion = errors.New("firmware: invalid version")

	// ErrDeviceNotExists is returned when an operation targets a
	// device whose directory is not present.
	ErrDeviceNotExists = errors.New("firmware: device does not exist")

	// ErrDeviceInvalid is returned when the device directory is
	// present but the device was never fully persisted (no info file).
	ErrDeviceInvalid = errors.New("firmware: device not valid")

	// ErrUploadedFile is returned when a supplied image upload cannot
	// be stored.
	ErrUploadedFile = errors.New("firmware: uploaded file error")

	// ErrInfoFileWrite is returned when the version info file cannot
	// be written.
	ErrInfoFileWrite = errors.New("firmware: cannot write version info file")

	// ErrInfoFileDeletion is returned when the version info file
	// cannot be deleted.
	ErrInfoFileDeletion = errors.New("firmware: cannot delete version info file")

	// ErrImageFileDeletion is returned when the firmware image cannot
	// be deleted.
	ErrImageFileDeletion = errors.New("firmware: cannot delete image file")

	// ErrDirectoryDeletion is returned when the version directory
	// cannot be removed.
	ErrDirectoryDeletion = errors.New("firmware: cannot delete version directory")

	// ErrDirectoryMove is returned when relocating a version directory
	// to a renamed version fails.
	ErrDirectoryMove = errors.New("firmware: cannot move version directory")
)
