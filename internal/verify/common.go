// Package verify implements the verification phase: confirming that
// every object tracked for a bucket actually landed on local disk,
// matches its expected size, and (where cheaply possible) its checksum,
// before the orchestrator allows that bucket to be deleted from S3.
package verify

import (
	"strings"
)

// MaxErrorDisplay caps how many individual mismatch lines are rendered
// before the output collapses into a "... and N more" summary.
const MaxErrorDisplay = 10

// ignoredSystemFiles lists local files that commonly appear inside a
// synced directory tree but were never objects in S3 (OS-generated
// metadata from macOS and Windows) and so must not be reported as "extra" during
// the inventory check.
var ignoredSystemFiles = map[string]bool{
	".DS_Store":       true,
	"._.DS_Store":     true,
	"Thumbs.db":       true,
	"desktop.ini":     true,
	".Spotlight-V100": true,
	".TemporaryItems": true,
	".Trashes":        true,
}

// ShouldIgnoreKey reports whether a local-only key is a known system
// metadata file rather than a genuine extra file. A base name matches
// a pattern either exactly or as a suffix, since some of these patterns
// (e.g. ".TemporaryItems") appear nested under other directory names.
func ShouldIgnoreKey(key string) bool {
	base := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		base = key[idx+1:]
	}
	for pattern := range ignoredSystemFiles {
		if base == pattern || strings.HasSuffix(base, pattern) {
			return true
		}
	}
	return false
}
