package firmware

import (
	"regexp"
	"strconv"
	"strings"
)

// versionPattern matches 1-2 digits, a dot, 1-3 digits, optionally a
// dot and 1-3 more digits, e.g. "1.0", "12.345.6".
var versionPattern = regexp.MustCompile(`^[0-9]{1,2}\.[0-9]{1,3}(\.[0-9]{1,3})?$`)

// IsValidVersion reports whether s is a well-formed version string.
func IsValidVersion(s string) bool {
	return versionPattern.MatchString(s)
}

// Comparator orders two version strings. It returns a negative value
// when a < b, zero when equal, positive when a > b.
type Comparator func(a, b string) int

// Compare orders version strings lexicographically.
//
// This is the portal's default and matches what the on-device update
// client does with the x-ESP8266-version header. It mis-orders
// mixed-width segments ("1.9" > "1.10"); version numbering is
// expected to keep segment widths consistent.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// CompareNumeric orders version strings segment by segment as
// integers, so "1.10" > "1.9". Opt-in via storage.version_compare.
// Non-numeric segments fall back to string comparison.
func CompareNumeric(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		ai, errA := strconv.Atoi(as[i])
		bi, errB := strconv.Atoi(bs[i])
		if errA != nil || errB != nil {
			if c := strings.Compare(as[i], bs[i]); c != 0 {
				return c
			}
			continue
		}
		if ai != bi {
			if ai < bi {
				return -1
			}
			return 1
		}
	}

	return len(as) - len(bs)
}

// ComparatorFor returns the comparator selected by the configuration
// value: "numeric" for CompareNumeric, anything else for the
// lexicographic default.
func ComparatorFor(name string) Comparator {
	if name == "numeric" {
		return CompareNumeric
	}
	return Compare
}
