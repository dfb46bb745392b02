// Package config loads and validates the portal configuration.
//
// Configuration comes from a YAML file with three layers of
// precedence: hardcoded defaults, the file itself, and ESPPORTAL_*
// environment variable overrides. Load returns a validated *Config
// or an error describing every problem found.
//
// The storage root (storage.data_dir) is deliberately plain
// configuration rather than a process-wide constant: it is passed
// into each store's constructor so tests can point stores at
// isolated temporary directories.
package config
