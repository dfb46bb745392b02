package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/device"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/influxdb"
)

// Identity headers the ESP8266 HTTP update client sends with every
// request. Header names are case-insensitive on the wire; these match
// what the Arduino core emits.
const (
	headerSTAMac   = "x-ESP8266-STA-MAC"
	headerAPMac    = "x-ESP8266-AP-MAC"
	headerChipSize = "x-ESP8266-chip-size"
	headerVersion  = "x-ESP8266-version"
)

// presentedIdentity extracts the device identity from the request
// headers.
func presentedIdentity(r *http.Request) auth.Presented {
	return auth.Presented{
		StaMac:   r.Header.Get(headerSTAMac),
		ApMac:    r.Header.Get(headerAPMac),
		ChipSize: r.Header.Get(headerChipSize),
	}
}

// audit records one handshake step when the audit trail is wired in.
func (s *Server) audit(mac, operation, outcome string) {
	if s.influx != nil {
		s.influx.WriteHandshakeEvent(mac, operation, outcome)
	}
}

// handleAuthenticate is the first step of the OTA handshake.
//
// The board POSTs its identity headers; if it is a registered device,
// a fresh token is written that authorises one download within the
// configured freshness window. A request whose headers are incomplete,
// or whose URL MAC disagrees with the header MAC, violates the
// protocol and gets a 420 instead of a 4xx that the update client
// would misread.
func (s *Server) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "staMac")
	p := presentedIdentity(r)

	if p.StaMac == "" || p.ApMac == "" || p.ChipSize == "" || p.StaMac != mac {
		s.audit(mac, influxdb.OperationAuthenticate, "policy_violation")
		writePolicyNotFulfilled(w, "identity headers missing or inconsistent")
		return
	}

	d, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			s.audit(mac, influxdb.OperationAuthenticate, "invalid_mac")
			writeBadRequest(w, "invalid mac address")
			return
		}
		s.logger.Error("loading device for handshake", "mac", mac, "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	if !d.Exists || !d.Valid {
		s.audit(mac, influxdb.OperationAuthenticate, "unknown_device")
		writeUnprocessable(w, "unknown device")
		return
	}

	if _, err := s.auths.Issue(mac, p); err != nil {
		s.logger.Error("issuing handshake token", "mac", mac, "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	s.audit(mac, influxdb.OperationAuthenticate, "ok")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDownload is the second step of the OTA handshake.
//
// The endpoint is public; authorisation comes from the token the
// handshake wrote. The presented identity must match the token exactly
// and the token must still be fresh. When the device already runs the
// newest stored version (or nothing is stored), a 304 tells the update
// client there is nothing to do.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "staMac")
	p := presentedIdentity(r)
	running := r.Header.Get(headerVersion)

	if p.StaMac == "" || p.ApMac == "" || p.ChipSize == "" || running == "" || p.StaMac != mac {
		s.audit(mac, influxdb.OperationDownload, "policy_violation")
		writePolicyNotFulfilled(w, "identity headers missing or inconsistent")
		return
	}

	d, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			s.audit(mac, influxdb.OperationDownload, "invalid_mac")
			writeBadRequest(w, "invalid mac address")
			return
		}
		s.logger.Error("loading device for download", "mac", mac, "error", err)
		writeInternalError(w, "internal server error")
		return
	}
	if !d.Exists || !d.Valid {
		s.audit(mac, influxdb.OperationDownload, "unknown_device")
		writeNotFound(w, "unknown device")
		return
	}

	if !s.auths.Authenticate(d.Auth, p) {
		s.audit(mac, influxdb.OperationDownload, "stale_token")
		writeUnauthorized(w, "no valid handshake token")
		return
	}

	target := s.devices.UpdateFor(d, running)
	if target == nil {
		s.audit(mac, influxdb.OperationDownload, "not_newer")
		w.WriteHeader(http.StatusNotModified)
		return
	}

	image, size, err := s.versions.OpenImage(mac, target.Version)
	if err != nil {
		s.logger.Error("opening firmware image",
			"mac", mac,
			"version", target.Version,
			"error", err,
		)
		writeInternalError(w, "internal server error")
		return
	}
	defer image.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Transfer-Encoding", "Binary")
	w.Header().Set("Content-Disposition", `attachment; filename="image.bin"`)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, image); err != nil {
		s.logger.Warn("streaming firmware image interrupted",
			"mac", mac,
			"version", target.Version,
			"error", err,
		)
		return
	}

	s.logger.Info("served firmware image",
		"mac", mac,
		"running", running,
		"version", target.Version,
		"bytes", size,
	)
	s.audit(mac, influxdb.OperationDownload, "ok")
	if s.influx != nil {
		s.influx.WriteDownloadEvent(mac, target.Version, size)
	}
}
