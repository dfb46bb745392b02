package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// QoS levels: 0 at most once, 1 at least once, 2 exactly once.
// Retained messages are stored by the broker and delivered to new
// subscribers immediately; use them for state topics, not events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// FirmwareAnnouncement is the payload published when a device's stored
// firmware changes through the admin surface.
type FirmwareAnnouncement struct {
	Event        string `json:"event"` // "released", "updated" or "withdrawn"
	Mac          string `json:"mac"`
	Version      string `json:"version"`
	SoftwareName string `json:"softwareName,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Firmware announcement event names.
const (
	EventReleased  = "released"
	EventUpdated   = "updated"
	EventWithdrawn = "withdrawn"
)

// AnnounceFirmware publishes a firmware change on the device's
// announcement topic. The message is retained so a subscriber joining
// later still sees the device's latest firmware event.
func (c *Client) AnnounceFirmware(a FirmwareAnnouncement) error {
	if a.Timestamp == "" {
		a.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return c.Publish(Topics{}.DeviceFirmware(a.Mac), payload, byte(c.cfg.QoS), true)
}
