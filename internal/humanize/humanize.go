// Package humanize renders byte counts and durations the way the
// migration's status output does: binary-prefixed sizes and
// coarse-grained "1h 2m"-style durations.
package humanize

import "fmt"

// Size formats n bytes as a human-readable string using binary
// (1024-based) units, matching the original tool's B/KB/MB/GB/TB/PB
// ladder.
func Size(n int64) string {
	value := float64(n)
	units := []string{"B", "KB", "MB", "GB", "TB"}
	for _, unit := range units {
		if value < 1024.0 {
			return fmt.Sprintf("%.2f %s", value, unit)
		}
		value /= 1024.0
	}
	return fmt.Sprintf("%.2f PB", value)
}

// Duration formats seconds as a coarse human-readable string.
func Duration(seconds float64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", int(seconds))
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", int(seconds)/60, int(seconds)%60)
	case seconds < 86400:
		return fmt.Sprintf("%dh %dm", int(seconds)/3600, (int(seconds)%3600)/60)
	default:
		return fmt.Sprintf("%dd %dh", int(seconds)/86400, (int(seconds)%86400)/3600)
	}
}
