// Package api provides the portal's HTTP server.
//
// It exposes two surfaces with different trust levels:
//
//   - /device/... — the OTA endpoints the boards themselves talk to.
//     Authentication is a two-step handshake: a Basic-Auth protected
//     POST registers the board's identity as a short-lived token, and
//     the subsequent public GET must present the same identity while
//     the token is still fresh.
//
//   - /admin/... — the Basic-Auth protected management API for
//     registering devices and uploading firmware versions.
//
// The server follows the usual lifecycle pattern:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
