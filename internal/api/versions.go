package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gpioneers/esp-firmware-portal/internal/device"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/mqtt"
)

// maxUploadMemory is how much of a multipart upload is buffered in
// memory before spilling to a temp file.
const maxUploadMemory = 8 << 20

// requireDevice loads the device addressed by the URL and writes the
// appropriate error response when it cannot be served. The bool
// reports whether the caller should proceed.
func (s *Server) requireDevice(w http.ResponseWriter, r *http.Request) (*device.Device, bool) {
	mac := chi.URLParam(r, "staMac")

	d, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			writeBadRequest(w, "invalid mac address")
			return nil, false
		}
		s.logger.Error("loading device", "mac", mac, "error", err)
		writeInternalError(w, "failed to load device")
		return nil, false
	}
	if !d.Exists || !d.Valid {
		writeNotFound(w, "device not found")
		return nil, false
	}

	return d, true
}

// versionForm extracts the firmware form fields and the optional
// uploaded image from a multipart request. A missing file part is not
// an error here; Validate decides whether one was required.
func (s *Server) versionForm(w http.ResponseWriter, r *http.Request) (firmware.Form, *firmware.Upload, func(), bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeBadRequest(w, "invalid multipart form")
		return firmware.Form{}, nil, nil, false
	}

	form := firmware.Form{
		Version:        r.FormValue("version"),
		CurrentVersion: r.FormValue("currentVersion"),
		SoftwareName:   r.FormValue("softwareName"),
		Description:    r.FormValue("description"),
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil, func() {}, true
		}
		writeBadRequest(w, "invalid file upload")
		return firmware.Form{}, nil, nil, false
	}

	upload := &firmware.Upload{Reader: file, Size: header.Size}
	cleanup := func() { file.Close() }

	return form, upload, cleanup, true
}

// announceFirmware publishes a firmware change when MQTT is wired in.
func (s *Server) announceFirmware(event, mac string, v *firmware.Version) {
	if s.mqtt == nil {
		return
	}

	err := s.mqtt.AnnounceFirmware(mqtt.FirmwareAnnouncement{
		Event:        event,
		Mac:          mac,
		Version:      v.Version,
		SoftwareName: v.SoftwareName,
	})
	if err != nil {
		s.logger.Warn("publishing firmware announcement",
			"event", event,
			"mac", mac,
			"version", v.Version,
			"error", err,
		)
	}
}

// handleListVersions returns all stored versions for a device.
func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	d, ok := s.requireDevice(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versions": d.Versions,
		"count":    len(d.Versions),
	})
}

// handleGetVersion returns one stored version.
func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	d, ok := s.requireDevice(w, r)
	if !ok {
		return
	}

	v, err := s.versions.Load(d.MAC, chi.URLParam(r, "version"))
	if err != nil {
		if errors.Is(err, firmware.ErrInvalidVersion) {
			writeBadRequest(w, "invalid version")
			return
		}
		s.logger.Error("loading version", "mac", d.MAC, "error", err)
		writeInternalError(w, "failed to load version")
		return
	}
	if !v.Exists {
		writeNotFound(w, "version not found")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleCreateVersion stores a new firmware version from a multipart
// upload.
func (s *Server) handleCreateVersion(w http.ResponseWriter, r *http.Request) {
	d, ok := s.requireDevice(w, r)
	if !ok {
		return
	}

	form, upload, cleanup, ok := s.versionForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	msgs, err := s.versions.Validate(d.MAC, form, upload, false)
	if err != nil {
		s.logger.Error("validating version form", "mac", d.MAC, "error", err)
		writeInternalError(w, "failed to validate version")
		return
	}
	if len(msgs) > 0 {
		writeValidationErrors(w, msgs)
		return
	}

	v := &firmware.Version{
		Version:      form.Version,
		SoftwareName: form.SoftwareName,
		Description:  form.Description,
	}
	if err := s.versions.Save(d.MAC, v, upload); err != nil {
		s.logger.Error("saving version", "mac", d.MAC, "version", form.Version, "error", err)
		writeInternalError(w, "failed to save version")
		return
	}

	s.announceFirmware(mqtt.EventReleased, d.MAC, v)

	writeJSON(w, http.StatusCreated, v)
}

// handleUpdateVersion updates a stored version's metadata, optionally
// renaming it or replacing its image.
func (s *Server) handleUpdateVersion(w http.ResponseWriter, r *http.Request) {
	d, ok := s.requireDevice(w, r)
	if !ok {
		return
	}

	current, err := s.versions.Load(d.MAC, chi.URLParam(r, "version"))
	if err != nil {
		if errors.Is(err, firmware.ErrInvalidVersion) {
			writeBadRequest(w, "invalid version")
			return
		}
		s.logger.Error("loading version", "mac", d.MAC, "error", err)
		writeInternalError(w, "failed to load version")
		return
	}
	if !current.Exists {
		writeNotFound(w, "version not found")
		return
	}

	form, upload, cleanup, ok := s.versionForm(w, r)
	if !ok {
		return
	}
	defer cleanup()

	form.CurrentVersion = current.Version

	msgs, err := s.versions.Validate(d.MAC, form, upload, true)
	if err != nil {
		s.logger.Error("validating version form", "mac", d.MAC, "error", err)
		writeInternalError(w, "failed to validate version")
		return
	}
	if len(msgs) > 0 {
		writeValidationErrors(w, msgs)
		return
	}

	next := &firmware.Version{
		Version:      form.Version,
		SoftwareName: form.SoftwareName,
		Description:  form.Description,
	}
	if err := s.versions.Update(d.MAC, current, next, upload); err != nil {
		s.logger.Error("updating version", "mac", d.MAC, "version", current.Version, "error", err)
		writeInternalError(w, "failed to update version")
		return
	}

	s.announceFirmware(mqtt.EventUpdated, d.MAC, next)

	writeJSON(w, http.StatusOK, next)
}

// handleDeleteVersion removes a stored version.
func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	d, ok := s.requireDevice(w, r)
	if !ok {
		return
	}

	v, err := s.versions.Load(d.MAC, chi.URLParam(r, "version"))
	if err != nil {
		if errors.Is(err, firmware.ErrInvalidVersion) {
			writeBadRequest(w, "invalid version")
			return
		}
		s.logger.Error("loading version", "mac", d.MAC, "error", err)
		writeInternalError(w, "failed to load version")
		return
	}
	if !v.Exists {
		writeNotFound(w, "version not found")
		return
	}

	if err := s.versions.Delete(d.MAC, v); err != nil {
		s.logger.Error("deleting version", "mac", d.MAC, "version", v.Version, "error", err)
		writeInternalError(w, "failed to delete version")
		return
	}

	s.announceFirmware(mqtt.EventWithdrawn, d.MAC, v)

	w.WriteHeader(http.StatusNoContent)
}
