package firmware

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/gpioneers/esp-firmware-portal/internal/storage"
)

// Repository persists firmware versions under a device's directory,
// one subdirectory per version holding info.json and image.bin.
//
// A single logical writer per device is assumed; multi-step
// operations are not transactional and a crash mid-sequence leaves
// partial state on disk.
type Repository struct {
	layout storage.Layout
	log    Logger
}

// NewRepository creates a firmware version repository rooted at the
// given data directory.
func NewRepository(dataDir string, log Logger) *Repository {
	return &Repository{
		layout: storage.NewLayout(dataDir),
		log:    log,
	}
}

// deviceReady checks that the owning device is persisted and valid.
func (r *Repository) deviceReady(mac string) error {
	if _, err := os.Stat(r.layout.DeviceDir(mac)); err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceNotExists, mac)
	}
	if _, err := os.Stat(r.layout.DeviceInfoFile(mac)); err != nil {
		return fmt.Errorf("%w: %s", ErrDeviceInvalid, mac)
	}
	return nil
}

// GetAll returns every fully persisted version of a device: directory
// entries that are directories, carry a well-formed version name and
// load as existing and valid. Entries that fail to load are skipped.
func (r *Repository) GetAll(mac string) ([]Version, error) {
	if err := r.deviceReady(mac); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.layout.DeviceDir(mac))
	if err != nil {
		return nil, fmt.Errorf("scanning device directory: %w", err)
	}

	versions := make([]Version, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() || !IsValidVersion(entry.Name()) {
			continue
		}
		v, loadErr := r.Load(mac, entry.Name())
		if loadErr != nil {
			r.log.Warn("skipping unreadable version directory",
				"mac", mac,
				"version", entry.Name(),
				"error", loadErr,
			)
			continue
		}
		if v.Exists && v.Valid {
			versions = append(versions, *v)
		}
	}

	return versions, nil
}

// Load reads one version of a device from disk.
//
// An empty version string yields a transient, empty Version for "new
// version" forms. Otherwise the returned record reflects filesystem
// state: Exists when the version directory is present, populated
// metadata when info.json is readable, Valid only when the firmware
// image is present as well.
func (r *Repository) Load(mac, version string) (*Version, error) {
	if err := r.deviceReady(mac); err != nil {
		return nil, err
	}

	v := &Version{Version: version}
	if version == "" {
		return v, nil
	}
	if !IsValidVersion(version) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}

	if _, err := os.Stat(r.layout.VersionDir(mac, version)); err != nil {
		return v, nil
	}
	v.Exists = true

	data, err := os.ReadFile(r.layout.VersionInfoFile(mac, version))
	if err != nil {
		return v, nil
	}

	var info versionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing version info file: %w", err)
	}
	v.SoftwareName = info.SoftwareName
	v.Description = info.Description

	if _, err := os.Stat(r.layout.ImageFile(mac, version)); err == nil {
		v.Valid = true
	}

	return v, nil
}

// Save writes a version's metadata, creating the version directory if
// absent, and stores the uploaded firmware image when one is supplied.
func (r *Repository) Save(mac string, v *Version, upload *Upload) error {
	dir := r.layout.VersionDir(mac, v.Version)
	if err := storage.EnsureDir(dir); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileWrite, err)
	}

	data, err := json.Marshal(versionInfo{
		SoftwareName: v.SoftwareName,
		Description:  v.Description,
	})
	if err != nil {
		return fmt.Errorf("encoding version info: %w", err)
	}
	if err := os.WriteFile(r.layout.VersionInfoFile(mac, v.Version), data, 0o640); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileWrite, err)
	}

	if upload.hasData() {
		if err := r.storeImage(mac, v.Version, upload); err != nil {
			return err
		}
	}

	v.Exists = true
	if _, err := os.Stat(r.layout.ImageFile(mac, v.Version)); err == nil {
		v.Valid = true
	}

	return nil
}

// storeImage streams the upload into a temp file in the version
// directory, then renames it into place so a half-written image never
// sits at the final path.
func (r *Repository) storeImage(mac, version string, upload *Upload) error {
	dir := r.layout.VersionDir(mac, version)
	tmpPath := filepath.Join(dir, "upload-"+uuid.NewString())

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUploadedFile, err)
	}

	if _, err := io.Copy(tmp, upload.Reader); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrUploadedFile, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrUploadedFile, err)
	}

	if err := os.Rename(tmpPath, r.layout.ImageFile(mac, version)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %w", ErrUploadedFile, err)
	}

	return nil
}

// OpenImage opens a version's firmware image for streaming and
// returns its exact size. The caller owns the returned file.
func (r *Repository) OpenImage(mac, version string) (*os.File, int64, error) {
	f, err := os.Open(r.layout.ImageFile(mac, version))
	if err != nil {
		return nil, 0, fmt.Errorf("opening firmware image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("sizing firmware image: %w", err)
	}

	return f, info.Size(), nil
}

// Update applies a version change: if the version string changed, the
// whole version directory is relocated first; if a fresh image is
// supplied while one already sits at the target path, the old image
// is deleted so the new one can take its place. Field updates are
// then persisted via Save.
func (r *Repository) Update(mac string, current, next *Version, upload *Upload) error {
	if current.Version != next.Version {
		oldDir := r.layout.VersionDir(mac, current.Version)
		newDir := r.layout.VersionDir(mac, next.Version)

		r.log.Info("moving version directory",
			"mac", mac,
			"from", current.Version,
			"to", next.Version,
		)
		if err := storage.MoveDir(oldDir, newDir); err != nil {
			return fmt.Errorf("%w: %w", ErrDirectoryMove, err)
		}
	}

	if upload.hasData() {
		imagePath := r.layout.ImageFile(mac, next.Version)
		if _, err := os.Stat(imagePath); err == nil {
			if err := os.Remove(imagePath); err != nil {
				return fmt.Errorf("%w: %w", ErrImageFileDeletion, err)
			}
		}
	}

	return r.Save(mac, next, upload)
}

// Delete removes a version: info file, then image file, then the
// emptied directory. Each step is gated on the previous one; the
// first failure aborts the remaining steps.
func (r *Repository) Delete(mac string, v *Version) error {
	if err := os.Remove(r.layout.VersionInfoFile(mac, v.Version)); err != nil {
		return fmt.Errorf("%w: %w", ErrInfoFileDeletion, err)
	}
	r.log.Info("deleted version info file", "mac", mac, "version", v.Version)

	if err := os.Remove(r.layout.ImageFile(mac, v.Version)); err != nil {
		return fmt.Errorf("%w: %w", ErrImageFileDeletion, err)
	}
	r.log.Info("deleted version image file", "mac", mac, "version", v.Version)

	if err := os.Remove(r.layout.VersionDir(mac, v.Version)); err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryDeletion, err)
	}
	r.log.Info("deleted version directory", "mac", mac, "version", v.Version)

	return nil
}

// Validate checks admin form data for creating or updating a version.
//
// It returns a field-to-message mapping; an empty map means the form
// is valid. A firmware image is required on create but optional on
// update, and a version number may never collide with another stored
// version.
func (r *Repository) Validate(mac string, form Form, upload *Upload, isUpdate bool) (map[string]string, error) {
	msgs := make(map[string]string)

	switch {
	case form.Version == "":
		msgs["version"] = "no version given"
	case !IsValidVersion(form.Version):
		msgs["version"] = "invalid version given"
	default:
		existing, err := r.Load(mac, form.Version)
		if err != nil {
			return nil, err
		}
		if !isUpdate && existing.Exists {
			msgs["version"] = "this version already exists"
		} else if isUpdate && form.Version != form.CurrentVersion && existing.Exists {
			msgs["version"] = fmt.Sprintf("you tried to change the version number to %q, but this version already exists", form.Version)
		}
	}

	if form.SoftwareName == "" {
		msgs["softwareName"] = "no software name given"
	}
	if form.Description == "" {
		msgs["description"] = "no description given"
	}

	// On update the file may be empty; the stored image is kept.
	if !isUpdate && !upload.hasData() {
		msgs["file"] = "no file sent"
	}

	r.log.Debug("validated version form", "mac", mac, "messages", msgs)

	return msgs, nil
}
