// Package device manages the portal's device inventory.
//
// Each device is keyed by its station MAC address and stored as a
// directory under the data root. The directory holds the device's
// info.json (hardware type plus free-form notes), its handshake token
// and one subdirectory per firmware version. Loading a device
// aggregates all three so the admin surface and the OTA endpoints see
// one coherent record.
package device
