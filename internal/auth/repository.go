package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gpioneers/esp-firmware-portal/internal/storage"
)

const tokenFilePerm = 0o640

// Repository persists handshake tokens as JSON files inside each
// device's data directory.
type Repository struct {
	layout storage.Layout
	maxAge time.Duration
	log    Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewRepository returns a token repository rooted at dataDir. Tokens
// older than maxAge no longer authenticate.
func NewRepository(dataDir string, maxAge time.Duration, log Logger) *Repository {
	return &Repository{
		layout: storage.NewLayout(dataDir),
		maxAge: maxAge,
		log:    log,
		now:    time.Now,
	}
}

// Load reads the stored token for a device. A missing file is not an
// error: it returns (nil, nil), meaning the device has never completed
// a handshake or its token was removed.
func (r *Repository) Load(mac string) (*Authentication, error) {
	data, err := os.ReadFile(r.layout.AuthFile(mac))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	var a Authentication
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileRead, err)
	}

	return &a, nil
}

// Issue stamps the presented identity with the current time and
// persists it, replacing any previous token for the device.
func (r *Repository) Issue(mac string, p Presented) (*Authentication, error) {
	a := &Authentication{
		StaMac:    p.StaMac,
		ApMac:     p.ApMac,
		ChipSize:  p.ChipSize,
		Timestamp: r.now().Unix(),
	}
	if err := r.Save(mac, a); err != nil {
		return nil, err
	}

	r.log.Info("issued handshake token", "mac", mac)

	return a, nil
}

// Save writes a token to the device's data directory, overwriting any
// existing one.
func (r *Repository) Save(mac string, a *Authentication) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileWrite, err)
	}
	if err := os.WriteFile(r.layout.AuthFile(mac), data, tokenFilePerm); err != nil {
		return fmt.Errorf("%w: %w", ErrFileWrite, err)
	}

	return nil
}

// Delete removes a device's token file. A token that is already absent
// is not an error.
func (r *Repository) Delete(mac string) error {
	if err := os.Remove(r.layout.AuthFile(mac)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrFileDeletion, err)
	}

	r.log.Info("deleted handshake token", "mac", mac)

	return nil
}

// Authenticate reports whether a stored token authorises the presented
// identity: the token must exist, be younger than the configured
// maximum age, and match the presented station MAC, access-point MAC
// and chip size exactly.
func (r *Repository) Authenticate(a *Authentication, p Presented) bool {
	if a == nil {
		return false
	}

	if r.now().Sub(time.Unix(a.Timestamp, 0)) > r.maxAge {
		return false
	}

	return a.StaMac == p.StaMac &&
		a.ApMac == p.ApMac &&
		a.ChipSize == p.ChipSize
}
