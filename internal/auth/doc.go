// Package auth handles device handshake tokens and credential hashing.
//
// A device proves its identity by POSTing its station MAC, access-point
// MAC and flash chip size; the portal persists these as a timestamped
// token next to the device's firmware directory. A later download is
// only served when the presented identity matches the stored token and
// the token is still fresh.
//
// The package also provides Argon2id password hashing for the HTTP
// Basic Auth credentials of both the admin surface and the device
// handshake endpoint.
package auth
