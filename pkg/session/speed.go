package session

import (
	"fmt"
	"strconv"
	"strings"
)

// Size units for ParseSpeedLimit.
const (
	B  int64 = 1
	KB       = 1024 * B
	MB       = 1024 * KB
	GB       = 1024 * MB
)

// ParseSpeedLimit parses a human-readable speed limit string and returns
// bytes per second. "-1" and "unlimited" return -1.
//
// Supported formats:
//   - Plain bytes: "100", "1024"
//   - With B suffix: "100B", "1024B"
//   - Kilobytes: "512KB", "512kb", "512K"
//   - Megabytes: "1MB", "1.5mb"
//   - Gigabytes: "1GB", "2.5gb"
func ParseSpeedLimit(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "":
		return 0, fmt.Errorf("empty speed limit")
	case "0":
		return 0, nil
	case "-1", "UNLIMITED":
		return -1, nil
	}

	numStr, unit := s, ""
	for i, c := range s {
		if (c < '0' || c > '9') && c != '.' && c != '-' {
			numStr, unit = s[:i], s[i:]
			break
		}
	}
	if numStr == "" {
		return 0, fmt.Errorf("invalid speed limit: no numeric value in %q", s)
	}
	if strings.HasPrefix(numStr, "-") {
		return 0, fmt.Errorf("invalid speed limit: negative value not allowed in %q", s)
	}
	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid speed limit: %q is not a valid number", numStr)
	}

	var multiplier int64
	switch unit {
	case "", "B":
		multiplier = B
	case "KB", "K":
		multiplier = KB
	case "MB", "M":
		multiplier = MB
	case "GB", "G":
		multiplier = GB
	default:
		return 0, fmt.Errorf("invalid speed limit unit: %q (use B, KB, MB, or GB)", unit)
	}
	return int64(num * float64(multiplier)), nil
}

// KiBPerSecond converts a ParseSpeedLimit result to the KiB/s unit used by
// the schedule configuration, keeping -1 as unlimited.
func KiBPerSecond(bps int64) float64 {
	if bps < 0 {
		return -1
	}
	return float64(bps) / float64(KB)
}
