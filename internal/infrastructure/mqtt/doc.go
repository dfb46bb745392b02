// Package mqtt wraps paho.mqtt.golang for the portal's outbound
// announcements.
//
// The portal is publish-only: it reports its own online/offline status
// on a retained system topic and announces firmware changes per device
// so dashboards and notification services can react without polling
// the HTTP API. Devices themselves never consume these topics; the
// OTA handshake stays pull-based over HTTP.
//
// Connection management (auto-reconnect with backoff, Last Will and
// Testament for crash detection) is handled internally; callers only
// see Publish and the typed announcement helpers.
package mqtt
