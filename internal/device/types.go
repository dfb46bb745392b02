package device

import (
	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
)

// Device is one managed ESP8266 board, aggregated from its on-disk
// directory: descriptive metadata, the stored firmware versions and
// the current handshake token (nil when no handshake happened yet).
//
// Exists reports whether the device directory is present; Valid
// whether its info file could be read. A device missing its info file
// is treated as unknown by the OTA endpoints.
type Device struct {
	MAC      string               `json:"mac"`
	Type     string               `json:"type"`
	Info     string               `json:"info"`
	Versions []firmware.Version   `json:"versions"`
	Auth     *auth.Authentication `json:"auth,omitempty"`
	Exists   bool                 `json:"exists"`
	Valid    bool                 `json:"valid"`
}

// deviceInfo is the on-disk shape of a device's info.json.
type deviceInfo struct {
	Type string `json:"type"`
	Info string `json:"info"`
}

// Form carries admin form input for creating or updating a device.
type Form struct {
	MAC        string
	CurrentMAC string
	Type       string
	Info       string
}

// Logger is the logging interface the repository depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
