// Package logging provides structured logging for the firmware portal.
//
// It wraps log/slog to give every component the same leveled,
// structured output with default service/version fields. The logger
// is injected into stores and the API server as a pure side-effect
// sink; nothing reads it back for control flow.
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
package logging
