package device

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
	"github.com/gpioneers/esp-firmware-portal/internal/storage"
)

const infoFilePerm = 0o640

// Repository manages device directories under the data root and
// aggregates each device's firmware versions and handshake token.
type Repository struct {
	layout   storage.Layout
	versions *firmware.Repository
	auths    *auth.Repository
	compare  firmware.Comparator
	log      Logger
}

// NewRepository returns a device repository rooted at dataDir. The
// comparator decides version ordering for HighestVersion.
func NewRepository(
	dataDir string,
	versions *firmware.Repository,
	auths *auth.Repository,
	compare firmware.Comparator,
	log Logger,
) *Repository {
	return &Repository{
		layout:   storage.NewLayout(dataDir),
		versions: versions,
		auths:    auths,
		compare:  compare,
		log:      log,
	}
}

// Load reads one device by MAC address.
//
// An empty MAC yields a transient record for admin create forms. A
// malformed MAC is rejected with ErrInvalidMAC. A missing directory,
// or a directory without a readable info file, yields a record with
// Exists=false; only a device whose info file parses is marked valid
// and gets its versions and handshake token aggregated in.
func (r *Repository) Load(mac string) (*Device, error) {
	if mac == "" {
		return &Device{}, nil
	}
	if !IsValidMAC(mac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}

	d := &Device{MAC: mac}

	data, err := os.ReadFile(r.layout.DeviceInfoFile(mac))
	if err != nil {
		return d, nil
	}
	d.Exists = true

	var info deviceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		r.log.Warn("unparseable device info file", "mac", mac, "error", err)
		return d, nil
	}
	d.Type = info.Type
	d.Info = info.Info
	d.Valid = true

	versions, err := r.versions.GetAll(mac)
	if err != nil {
		return nil, err
	}
	d.Versions = versions

	token, err := r.auths.Load(mac)
	if err != nil {
		return nil, err
	}
	d.Auth = token

	return d, nil
}

// GetAll returns every registered device, skipping root entries that
// are not directories named by a MAC address and devices whose info
// file is missing or unreadable.
func (r *Repository) GetAll() ([]Device, error) {
	entries, err := os.ReadDir(r.layout.Root)
	if err != nil {
		return nil, fmt.Errorf("reading data root: %w", err)
	}

	devices := make([]Device, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !IsValidMAC(entry.Name()) {
			continue
		}

		d, err := r.Load(entry.Name())
		if err != nil {
			return nil, err
		}
		if d.Exists && d.Valid {
			devices = append(devices, *d)
		}
	}

	return devices, nil
}

// Save persists a device's metadata, creating its directory on first
// save.
func (r *Repository) Save(d *Device) error {
	if !IsValidMAC(d.MAC) {
		return fmt.Errorf("%w: %q", ErrInvalidMAC, d.MAC)
	}

	if err := storage.EnsureDir(r.layout.DeviceDir(d.MAC)); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileWrite, err)
	}

	data, err := json.Marshal(deviceInfo{Type: d.Type, Info: d.Info})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileWrite, err)
	}
	if err := os.WriteFile(r.layout.DeviceInfoFile(d.MAC), data, infoFilePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileWrite, err)
	}

	d.Exists = true
	d.Valid = true

	r.log.Info("saved device", "mac", d.MAC, "type", d.Type)

	return nil
}

// Update persists metadata changes. When the MAC address changed, the
// whole device directory is renamed first so versions and handshake
// token move along with it.
func (r *Repository) Update(current, next *Device) error {
	if current.MAC != next.MAC {
		r.log.Info("moving device directory", "from", current.MAC, "to", next.MAC)
		if err := storage.MoveDir(r.layout.DeviceDir(current.MAC), r.layout.DeviceDir(next.MAC)); err != nil {
			return fmt.Errorf("%w: %w", ErrDirectoryMove, err)
		}
	}

	return r.Save(next)
}

// Delete removes a device and everything stored for it: each firmware
// version, the handshake token, the info file, and finally the emptied
// directory. The first failure aborts the remaining steps.
func (r *Repository) Delete(d *Device) error {
	for i := range d.Versions {
		if err := r.versions.Delete(d.MAC, &d.Versions[i]); err != nil {
			return err
		}
	}

	if err := r.auths.Delete(d.MAC); err != nil {
		return err
	}

	if err := os.Remove(r.layout.DeviceInfoFile(d.MAC)); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileDeletion, err)
	}
	r.log.Info("deleted device info file", "mac", d.MAC)

	if err := os.Remove(r.layout.DeviceDir(d.MAC)); err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryDeletion, err)
	}
	r.log.Info("deleted device directory", "mac", d.MAC)

	return nil
}

// HighestVersion returns the device's newest stored version according
// to the configured comparator, or nil when none are stored.
func (r *Repository) HighestVersion(d *Device) *firmware.Version {
	var highest *firmware.Version
	for i := range d.Versions {
		if highest == nil || r.compare(d.Versions[i].Version, highest.Version) > 0 {
			highest = &d.Versions[i]
		}
	}

	return highest
}

// UpdateFor returns the stored version a device currently running the
// given version string should upgrade to, or nil when nothing newer is
// stored. Ordering follows the configured comparator; with the default
// lexicographic one a board on "1.9" will not be offered "1.10".
func (r *Repository) UpdateFor(d *Device, running string) *firmware.Version {
	highest := r.HighestVersion(d)
	if highest == nil || r.compare(highest.Version, running) <= 0 {
		return nil
	}

	return highest
}
