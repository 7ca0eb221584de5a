package compressible

import (
	"fmt"
	"strconv"
	"strings"
)

const bytesPerUnit = 1024

// DefaultMinSize is the smallest file find-compressible considers by
// default: 512 MiB.
const DefaultMinSize = 512 * bytesPerUnit * bytesPerUnit

var sizeMultipliers = map[byte]int64{
	'k': bytesPerUnit,
	'm': bytesPerUnit * bytesPerUnit,
	'g': bytesPerUnit * bytesPerUnit * bytesPerUnit,
	't': bytesPerUnit * bytesPerUnit * bytesPerUnit * bytesPerUnit,
}

// ParseSize parses a human-friendly size like "512M" or "2G" into bytes,
// accepting a bare integer for an exact byte count.
func ParseSize(value string) (int64, error) {
	raw := strings.ToLower(strings.TrimSpace(value))
	if raw == "" {
		return 0, fmt.Errorf("size cannot be empty")
	}

	suffix := raw[len(raw)-1]
	if mult, ok := sizeMultipliers[suffix]; ok {
		number := raw[:len(raw)-1]
		base, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid size value %q: %w", value, err)
		}
		return int64(base * float64(mult)), nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	return n, nil
}
