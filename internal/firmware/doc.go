// Package firmware stores per-device firmware versions on the
// filesystem.
//
// Each version lives in its own directory under the owning device's
// MAC directory and consists of an info.json metadata file plus the
// image.bin binary. A version is "existing" when its directory is
// present and "valid" only when both files are there; both flags are
// re-derived from disk on every load.
//
// Version ordering is lexicographic by default (see Compare); a
// numeric comparator can be selected via configuration.
package firmware
