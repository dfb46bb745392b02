package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gpioneers/esp-firmware-portal/internal/device"
)

// deviceRequest is the JSON body for creating or updating a device.
type deviceRequest struct {
	Mac  string `json:"mac"`
	Type string `json:"type"`
	Info string `json:"info"`
}

// handleListDevices returns all registered devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices, err := s.devices.GetAll()
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device with its versions and handshake
// token.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "staMac")

	d, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			writeBadRequest(w, "invalid mac address")
			return
		}
		s.logger.Error("loading device", "mac", mac, "error", err)
		writeInternalError(w, "failed to load device")
		return
	}
	if !d.Exists || !d.Valid {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, d)
}

// handleCreateDevice registers a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	form := device.Form{MAC: req.Mac, Type: req.Type, Info: req.Info}
	msgs, err := s.devices.Validate(form, false)
	if err != nil {
		s.logger.Error("validating device form", "mac", req.Mac, "error", err)
		writeInternalError(w, "failed to validate device")
		return
	}
	if len(msgs) > 0 {
		writeValidationErrors(w, msgs)
		return
	}

	d := &device.Device{MAC: req.Mac, Type: req.Type, Info: req.Info}
	if err := s.devices.Save(d); err != nil {
		s.logger.Error("saving device", "mac", req.Mac, "error", err)
		writeInternalError(w, "failed to save device")
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice updates a device's metadata, optionally changing
// its MAC address (which renames its data directory).
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "staMac")

	current, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			writeBadRequest(w, "invalid mac address")
			return
		}
		s.logger.Error("loading device", "mac", mac, "error", err)
		writeInternalError(w, "failed to load device")
		return
	}
	if !current.Exists || !current.Valid {
		writeNotFound(w, "device not found")
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Mac == "" {
		req.Mac = current.MAC
	}

	form := device.Form{MAC: req.Mac, CurrentMAC: current.MAC, Type: req.Type, Info: req.Info}
	msgs, err := s.devices.Validate(form, true)
	if err != nil {
		s.logger.Error("validating device form", "mac", req.Mac, "error", err)
		writeInternalError(w, "failed to validate device")
		return
	}
	if len(msgs) > 0 {
		writeValidationErrors(w, msgs)
		return
	}

	next := &device.Device{MAC: req.Mac, Type: req.Type, Info: req.Info}
	if err := s.devices.Update(current, next); err != nil {
		s.logger.Error("updating device", "mac", mac, "error", err)
		writeInternalError(w, "failed to update device")
		return
	}

	writeJSON(w, http.StatusOK, next)
}

// handleDeleteDevice removes a device and everything stored for it.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "staMac")

	d, err := s.devices.Load(mac)
	if err != nil {
		if errors.Is(err, device.ErrInvalidMAC) {
			writeBadRequest(w, "invalid mac address")
			return
		}
		s.logger.Error("loading device", "mac", mac, "error", err)
		writeInternalError(w, "failed to load device")
		return
	}
	if !d.Exists || !d.Valid {
		writeNotFound(w, "device not found")
		return
	}

	if err := s.devices.Delete(d); err != nil {
		s.logger.Error("deleting device", "mac", mac, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
