package firmware

import "io"

// Version is one stored firmware version of a device.
//
// Exists and Valid are derived from filesystem state at load time and
// never cached beyond a single load: Exists means the version
// directory is present, Valid additionally requires the metadata file
// and the binary image.
type Version struct {
	Version      string `json:"version"`
	SoftwareName string `json:"softwareName"`
	Description  string `json:"description"`
	Exists       bool   `json:"exists"`
	Valid        bool   `json:"valid"`
}

// versionInfo is the JSON shape of a version's info.json file.
type versionInfo struct {
	SoftwareName string `json:"softwareName"`
	Description  string `json:"description"`
}

// Upload is a firmware image being uploaded by an admin.
//
// A nil *Upload, or one with Size < 1, means no image was supplied;
// on update that is allowed (the stored image is kept).
type Upload struct {
	Reader io.Reader
	Size   int64
}

// hasData reports whether the upload carries an actual image.
func (u *Upload) hasData() bool {
	return u != nil && u.Size >= 1 && u.Reader != nil
}

// Form holds the admin-submitted fields for creating or updating a
// version. CurrentVersion is only set on update.
type Form struct {
	Version        string
	CurrentVersion string
	SoftwareName   string
	Description    string
}

// Logger is the logging capability injected into the repository.
// Compatible with logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
