package storage

import "path/filepath"

// File names inside a device or version directory.
const (
	InfoFileName  = "info.json"
	AuthFileName  = "authentification.json"
	ImageFileName = "image.bin"
)

// Layout builds the on-disk paths for the portal's data root.
//
// The layout is one directory per device MAC address under Root,
// one subdirectory per stored firmware version:
//
//	<root>/<MAC>/info.json
//	<root>/<MAC>/authentification.json
//	<root>/<MAC>/<version>/info.json
//	<root>/<MAC>/<version>/image.bin
//
// All path construction goes through these builders so the naming
// scheme lives in exactly one place.
type Layout struct {
	Root string
}

// NewLayout creates a Layout rooted at the given data directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// DeviceDir returns the directory holding everything for one device.
func (l Layout) DeviceDir(mac string) string {
	return filepath.Join(l.Root, mac)
}

// DeviceInfoFile returns the path of a device's metadata file.
func (l Layout) DeviceInfoFile(mac string) string {
	return filepath.Join(l.Root, mac, InfoFileName)
}

// AuthFile returns the path of a device's authentication record.
func (l Layout) AuthFile(mac string) string {
	return filepath.Join(l.Root, mac, AuthFileName)
}

// VersionDir returns the directory of one stored firmware version.
func (l Layout) VersionDir(mac, version string) string {
	return filepath.Join(l.Root, mac, version)
}

// VersionInfoFile returns the path of a version's metadata file.
func (l Layout) VersionInfoFile(mac, version string) string {
	return filepath.Join(l.Root, mac, version, InfoFileName)
}

// ImageFile returns the path of a version's firmware binary.
func (l Layout) ImageFile(mac, version string) string {
	return filepath.Join(l.Root, mac, version, ImageFileName)
}
