package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Handshake operations recorded in the audit trail.
const (
	OperationAuthenticate = "authenticate"
	OperationDownload     = "download"
)

// WriteHandshakeEvent records one OTA handshake step for a device.
//
// The write is non-blocking; points are batched and sent
// asynchronously.
//
// Parameters:
//   - mac: The device's station MAC address
//   - operation: OperationAuthenticate or OperationDownload
//   - outcome: The HTTP-level result (e.g. "ok", "stale_token",
//     "not_newer", "policy_violation")
func (c *Client) WriteHandshakeEvent(mac, operation, outcome string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"handshake",
		map[string]string{
			"mac":       mac,
			"operation": operation,
			"outcome":   outcome,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDownloadEvent records a served firmware image: which version
// went out and how many bytes. Lets the audit trail answer which
// devices actually picked up a release.
func (c *Client) WriteDownloadEvent(mac, version string, bytes int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"download",
		map[string]string{
			"mac":     mac,
			"version": version,
		},
		map[string]interface{}{
			"bytes": bytes,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and
// fields. Use for measurements that don't fit the helpers.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}
