// Package influxdb provides the portal's handshake audit trail.
//
// It wraps the official influxdb-client-go v2 library with connection
// management and non-blocking batched writes. Every authentication
// attempt and firmware download is recorded as a point, which makes
// questions like "which devices have not checked in this week" or
// "how often does this board fail its handshake" answerable without
// grepping logs.
//
// Writes are fire-and-forget: a down InfluxDB never blocks or fails
// an OTA request. Batch errors surface through SetOnError.
package influxdb
