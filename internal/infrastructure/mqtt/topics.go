package mqtt

import "fmt"

// topicPrefix roots every topic the portal publishes.
const topicPrefix = "espportal"

// Topics builds the portal's topic names. Using a type rather than
// free functions keeps call sites uniform: mqtt.Topics{}.SystemStatus().
type Topics struct{}

// SystemStatus is the retained online/offline status topic for the
// portal itself. The broker publishes the Last Will here when the
// portal disconnects unexpectedly.
func (Topics) SystemStatus() string {
	return topicPrefix + "/system/status"
}

// DeviceFirmware is the per-device firmware announcement topic. The
// MAC address is used verbatim as a topic segment; colons are legal in
// MQTT topic names.
func (Topics) DeviceFirmware(mac string) string {
	return fmt.Sprintf("%s/device/%s/firmware", topicPrefix, mac)
}
