package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gpioneers/esp-firmware-portal/internal/auth"
	"github.com/gpioneers/esp-firmware-portal/internal/device"
	"github.com/gpioneers/esp-firmware-portal/internal/firmware"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/config"
	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/logging"
)

const (
	testMAC   = "AA:BB:CC:DD:EE:FF"
	testAPMac = "5E:CF:7F:01:02:03"
	testChip  = "4194304"
)

// testImage is a minimal stand-in for a firmware binary; 0xE9 is the
// ESP8266 image magic byte.
var testImage = []byte{0xe9, 0x02, 0x00, 0x40, 0xde, 0xad, 0xbe, 0xef}

type testPortal struct {
	server  *Server
	handler http.Handler
	auths   *auth.Repository
}

func newTestPortal(t *testing.T) *testPortal {
	t.Helper()

	root := t.TempDir()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	adminHash, err := auth.HashPassword("admin-secret")
	if err != nil {
		t.Fatalf("hashing admin password: %v", err)
	}
	deviceHash, err := auth.HashPassword("device-secret")
	if err != nil {
		t.Fatalf("hashing device password: %v", err)
	}

	versions := firmware.NewRepository(root, log)
	auths := auth.NewRepository(root, 23*time.Second, log)
	devices := device.NewRepository(root, versions, auths, firmware.Compare, log)

	srv, err := New(Deps{
		Config: config.APIConfig{Host: "127.0.0.1", Port: 8001},
		Auth: config.AuthConfig{
			AdminUsers:  map[string]string{"admin": adminHash},
			DeviceUsers: map[string]string{"firmware": deviceHash},
			TokenMaxAge: 23,
		},
		Logger:   log,
		Devices:  devices,
		Versions: versions,
		Auths:    auths,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testPortal{
		server:  srv,
		handler: srv.buildRouter(),
		auths:   auths,
	}
}

func (p *testPortal) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	p.handler.ServeHTTP(rec, req)
	return rec
}

// adminRequest builds a request carrying valid admin credentials.
func adminRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.SetBasicAuth("admin", "admin-secret")
	return req
}

// deviceHeaders attaches the identity headers the update client sends.
func deviceHeaders(req *http.Request, running string) *http.Request {
	req.Header.Set("x-ESP8266-STA-MAC", testMAC)
	req.Header.Set("x-ESP8266-AP-MAC", testAPMac)
	req.Header.Set("x-ESP8266-chip-size", testChip)
	if running != "" {
		req.Header.Set("x-ESP8266-version", running)
	}
	return req
}

// registerDevice creates the test device through the admin API.
func (p *testPortal) registerDevice(t *testing.T) {
	t.Helper()

	body := strings.NewReader(`{"mac":"` + testMAC + `","type":"ESP-12F","info":"bench board"}`)
	req := adminRequest(http.MethodPost, "/admin/devices/", body)
	req.Header.Set("Content-Type", "application/json")

	if rec := p.do(t, req); rec.Code != http.StatusCreated {
		t.Fatalf("registering device: status %d, body %s", rec.Code, rec.Body.String())
	}
}

// uploadVersion stores a firmware version through the admin API.
func (p *testPortal) uploadVersion(t *testing.T, version string, image []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("version", version)
	mw.WriteField("softwareName", "blinker")
	mw.WriteField("description", "test build")
	fw, err := mw.CreateFormFile("file", "image.bin")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	fw.Write(image)
	mw.Close()

	req := adminRequest(http.MethodPost, "/admin/devices/"+testMAC+"/versions/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if rec := p.do(t, req); rec.Code != http.StatusCreated {
		t.Fatalf("uploading version %s: status %d, body %s", version, rec.Code, rec.Body.String())
	}
}

// authenticate performs the handshake POST with valid credentials and
// headers.
func (p *testPortal) authenticate(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/device/authenticate/"+testMAC, nil)
	req.SetBasicAuth("firmware", "device-secret")
	deviceHeaders(req, "")
	return p.do(t, req)
}

func TestAdminAuth(t *testing.T) {
	portal := newTestPortal(t)

	t.Run("missing credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/devices/", nil)
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/devices/", nil)
		req.SetBasicAuth("admin", "wrong")
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid credentials", func(t *testing.T) {
		req := adminRequest(http.MethodGet, "/admin/devices/", nil)
		if rec := portal.do(t, req); rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestAdminDeviceCRUD(t *testing.T) {
	portal := newTestPortal(t)
	portal.registerDevice(t)

	t.Run("list", func(t *testing.T) {
		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("count = %d, want 1", resp.Count)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var d device.Device
		if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if d.MAC != testMAC || d.Type != "ESP-12F" {
			t.Errorf("device = %+v", d)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/11:22:33:44:55:66/", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("create with invalid form", func(t *testing.T) {
		req := adminRequest(http.MethodPost, "/admin/devices/", strings.NewReader(`{"mac":"nope"}`))
		req.Header.Set("Content-Type", "application/json")

		rec := portal.do(t, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}

		var resp ValidationError
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		for _, field := range []string{"mac", "type", "info"} {
			if _, ok := resp.Errors[field]; !ok {
				t.Errorf("missing validation message for %q: %v", field, resp.Errors)
			}
		}
	})

	t.Run("create duplicate", func(t *testing.T) {
		body := strings.NewReader(`{"mac":"` + testMAC + `","type":"ESP-12F","info":"again"}`)
		req := adminRequest(http.MethodPost, "/admin/devices/", body)
		req.Header.Set("Content-Type", "application/json")

		if rec := portal.do(t, req); rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("update metadata", func(t *testing.T) {
		body := strings.NewReader(`{"type":"ESP-01","info":"relocated"}`)
		req := adminRequest(http.MethodPut, "/admin/devices/"+testMAC+"/", body)
		req.Header.Set("Content-Type", "application/json")

		if rec := portal.do(t, req); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/", nil))
		var d device.Device
		if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if d.Type != "ESP-01" || d.Info != "relocated" {
			t.Errorf("device after update = %+v", d)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if rec := portal.do(t, adminRequest(http.MethodDelete, "/admin/devices/"+testMAC+"/", nil)); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/", nil)); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d after delete, want 404", rec.Code)
		}
	})
}

func TestAdminVersionCRUD(t *testing.T) {
	portal := newTestPortal(t)
	portal.registerDevice(t)
	portal.uploadVersion(t, "1.0", testImage)

	t.Run("list", func(t *testing.T) {
		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/versions/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Count != 1 {
			t.Errorf("count = %d, want 1", resp.Count)
		}
	})

	t.Run("get", func(t *testing.T) {
		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/versions/1.0/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var v firmware.Version
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if v.SoftwareName != "blinker" || !v.Valid {
			t.Errorf("version = %+v", v)
		}
	})

	t.Run("upload without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("version", "1.1")
		mw.WriteField("softwareName", "blinker")
		mw.WriteField("description", "no image")
		mw.Close()

		req := adminRequest(http.MethodPost, "/admin/devices/"+testMAC+"/versions/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := portal.do(t, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}

		var resp ValidationError
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if _, ok := resp.Errors["file"]; !ok {
			t.Errorf("missing validation message for file: %v", resp.Errors)
		}
	})

	t.Run("update metadata without file", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("version", "1.0")
		mw.WriteField("softwareName", "blinker")
		mw.WriteField("description", "corrected notes")
		mw.Close()

		req := adminRequest(http.MethodPut, "/admin/devices/"+testMAC+"/versions/1.0/", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		if rec := portal.do(t, req); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/versions/1.0/", nil))
		var v firmware.Version
		if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if v.Description != "corrected notes" {
			t.Errorf("Description = %q", v.Description)
		}
		if !v.Valid {
			t.Error("image lost on metadata-only update")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if rec := portal.do(t, adminRequest(http.MethodDelete, "/admin/devices/"+testMAC+"/versions/1.0/", nil)); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
		if rec := portal.do(t, adminRequest(http.MethodGet, "/admin/devices/"+testMAC+"/versions/1.0/", nil)); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d after delete, want 404", rec.Code)
		}
	})
}

func TestHandshakeAuthenticate(t *testing.T) {
	t.Run("missing basic auth", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)

		req := httptest.NewRequest(http.MethodPost, "/device/authenticate/"+testMAC, nil)
		deviceHeaders(req, "")
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing identity headers", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)

		req := httptest.NewRequest(http.MethodPost, "/device/authenticate/"+testMAC, nil)
		req.SetBasicAuth("firmware", "device-secret")
		if rec := portal.do(t, req); rec.Code != StatusPolicyNotFulfilled {
			t.Errorf("status = %d, want 420", rec.Code)
		}
	})

	t.Run("url and header mac disagree", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)

		req := httptest.NewRequest(http.MethodPost, "/device/authenticate/11:22:33:44:55:66", nil)
		req.SetBasicAuth("firmware", "device-secret")
		deviceHeaders(req, "")
		if rec := portal.do(t, req); rec.Code != StatusPolicyNotFulfilled {
			t.Errorf("status = %d, want 420", rec.Code)
		}
	})

	t.Run("unregistered device", func(t *testing.T) {
		portal := newTestPortal(t)

		rec := portal.authenticate(t)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("successful handshake issues token", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)

		if rec := portal.authenticate(t); rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		token, err := portal.auths.Load(testMAC)
		if err != nil {
			t.Fatalf("loading token: %v", err)
		}
		if token == nil {
			t.Fatal("no token written by handshake")
		}
		if token.StaMac != testMAC || token.ApMac != testAPMac || token.ChipSize != testChip {
			t.Errorf("token = %+v", token)
		}
	})
}

func TestHandshakeDownload(t *testing.T) {
	t.Run("without prior handshake", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.0", testImage)

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "0.9")
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("missing identity headers", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)

		req := httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil)
		if rec := portal.do(t, req); rec.Code != StatusPolicyNotFulfilled {
			t.Errorf("status = %d, want 420", rec.Code)
		}
	})

	t.Run("unregistered device", func(t *testing.T) {
		portal := newTestPortal(t)

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "0.9")
		if rec := portal.do(t, req); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("serves exact image bytes", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.0", testImage)
		portal.authenticate(t)

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "0.9")
		rec := portal.do(t, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		if got := rec.Header().Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("Content-Type = %q", got)
		}
		if got := rec.Header().Get("Content-Transfer-Encoding"); got != "Binary" {
			t.Errorf("Content-Transfer-Encoding = %q", got)
		}
		if got := rec.Header().Get("Content-Length"); got != "8" {
			t.Errorf("Content-Length = %q, want 8", got)
		}
		if !bytes.Equal(rec.Body.Bytes(), testImage) {
			t.Errorf("body = %v, want exact image bytes", rec.Body.Bytes())
		}
	})

	t.Run("already on newest version", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.0", testImage)
		portal.authenticate(t)

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "1.0")
		if rec := portal.do(t, req); rec.Code != http.StatusNotModified {
			t.Errorf("status = %d, want 304", rec.Code)
		}
	})

	t.Run("no versions stored", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.authenticate(t)

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "0.9")
		if rec := portal.do(t, req); rec.Code != http.StatusNotModified {
			t.Errorf("status = %d, want 304", rec.Code)
		}
	})

	t.Run("lexicographic ordering holds", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.10", testImage)
		portal.authenticate(t)

		// With the default comparator "1.9" sorts above "1.10", so a
		// board already running 1.9 is up to date.
		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "1.9")
		if rec := portal.do(t, req); rec.Code != http.StatusNotModified {
			t.Errorf("status = %d, want 304", rec.Code)
		}
	})

	t.Run("stale token", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.0", testImage)

		stale := &auth.Authentication{
			StaMac:    testMAC,
			ApMac:     testAPMac,
			ChipSize:  testChip,
			Timestamp: time.Now().Add(-time.Minute).Unix(),
		}
		if err := portal.auths.Save(testMAC, stale); err != nil {
			t.Fatalf("saving stale token: %v", err)
		}

		req := deviceHeaders(httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil), "0.9")
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("identity mismatch with token", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.registerDevice(t)
		portal.uploadVersion(t, "1.0", testImage)
		portal.authenticate(t)

		req := httptest.NewRequest(http.MethodGet, "/device/"+testMAC+"/download", nil)
		req.Header.Set("x-ESP8266-STA-MAC", testMAC)
		req.Header.Set("x-ESP8266-AP-MAC", "00:00:00:00:00:00")
		req.Header.Set("x-ESP8266-chip-size", testChip)
		req.Header.Set("x-ESP8266-version", "0.9")
		if rec := portal.do(t, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	portal := newTestPortal(t)

	rec := portal.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %v", resp["status"])
	}
}
