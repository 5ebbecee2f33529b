package domain

import "strings"

// NormalizeHardwareID trims, uppercases and drops any leading "0X" prefix.
// Stripping repeats until no prefix remains so the result is a fixed point:
// NormalizeHardwareID(NormalizeHardwareID(x)) == NormalizeHardwareID(x).
func NormalizeHardwareID(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	for strings.HasPrefix(id, "0X") {
		id = strings.TrimSpace(id[2:])
	}
	return id
}
