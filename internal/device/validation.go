package device

import (
	"fmt"
	"regexp"
)

// macPattern matches a colon-separated MAC address, case-insensitive.
var macPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// IsValidMAC reports whether s is a well-formed MAC address.
func IsValidMAC(s string) bool {
	return macPattern.MatchString(s)
}

// Validate checks admin form data for creating or updating a device.
//
// It returns a field-to-message mapping; an empty map means the form
// is valid. A MAC address may never collide with another registered
// device.
func (r *Repository) Validate(form Form, isUpdate bool) (map[string]string, error) {
	msgs := make(map[string]string)

	switch {
	case form.MAC == "":
		msgs["mac"] = "no mac address given"
	case !IsValidMAC(form.MAC):
		msgs["mac"] = "invalid mac address given"
	default:
		existing, err := r.Load(form.MAC)
		if err != nil {
			return nil, err
		}
		if !isUpdate && existing.Exists {
			msgs["mac"] = "a device with this mac address already exists"
		} else if isUpdate && form.MAC != form.CurrentMAC && existing.Exists {
			msgs["mac"] = fmt.Sprintf("you tried to change the mac address to %q, but a device with this address already exists", form.MAC)
		}
	}

	if form.Type == "" {
		msgs["type"] = "no type given"
	}
	if form.Info == "" {
		msgs["info"] = "no info given"
	}

	r.log.Debug("validated device form", "mac", form.MAC, "messages", msgs)

	return msgs, nil
}
