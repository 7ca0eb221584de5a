// Package compressible implements the companion find-compressible tool:
// scanning the migration database for large locally downloaded files
// that are not already compressed, and optionally compressing them with
// xz in place.
package compressible

import (
	"path/filepath"
	"strings"
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true,
	"tiff": true, "tif": true, "webp": true, "heic": true, "heif": true,
	"svg": true, "ico": true, "dng": true, "cr2": true, "nef": true,
}

var videoExtensions = map[string]bool{
	"mp4": true, "m4v": true, "mov": true, "avi": true, "wmv": true,
	"mkv": true, "flv": true, "webm": true, "mpg": true, "mpeg": true,
	"3gp": true, "mts": true, "m2ts": true, "ts": true,
}

var alreadyCompressedExtensions = map[string]bool{
	"xz": true, "gz": true, "gzip": true, "tgz": true, "bz2": true,
	"tbz": true, "tbz2": true, "zip": true, "rar": true, "zst": true,
	"lz": true, "lzma": true, "7z": true, "parquet": true, "vmdk": true,
	"ipa": true, "ipsw": true, "deb": true, "pkg": true, "dmg": true,
	"pdf": true, "pack": true, "keras": true, "so": true, "cfs": true,
	"mem": true, "db": true,
}

// suffixTokens returns the lower-cased, dot-stripped suffix components of
// name, handling multi-suffix files like "archive.tar.gz" the same way
// filepath.Ext would if it returned every trailing extension instead of
// just the last one.
func suffixTokens(name string) []string {
	var tokens []string
	base := name
	for {
		ext := filepath.Ext(base)
		if ext == "" || ext == base {
			break
		}
		token := strings.ToLower(strings.TrimPrefix(ext, "."))
		if token != "" {
			tokens = append(tokens, token)
		}
		base = strings.TrimSuffix(base, ext)
	}
	return tokens
}

func collectUniqueSuffixTokens(names ...string) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, name := range names {
		for _, token := range suffixTokens(name) {
			if seen[token] {
				continue
			}
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func isNumericSuffix(token string) bool {
	if token == "" {
		return false
	}
	last := token[len(token)-1]
	return last >= '0' && last <= '9'
}

// ShouldSkipBySuffix inspects names (typically the S3 key and the local
// file's base name) and returns the reason a candidate should be
// excluded, or "" if none of the known skip categories apply. Checks run
// in priority order: image, then video, then already-compressed, then a
// trailing numeric extension (a common pattern for split/part files).
func ShouldSkipBySuffix(names ...string) string {
	tokens := collectUniqueSuffixTokens(names...)

	for _, t := range tokens {
		if imageExtensions[t] {
			return "image"
		}
	}
	for _, t := range tokens {
		if videoExtensions[t] {
			return "video"
		}
	}
	for _, t := range tokens {
		if alreadyCompressedExtensions[t] {
			return "compressed"
		}
	}
	for _, t := range tokens {
		if isNumericSuffix(t) {
			return "numeric_extension"
		}
	}
	return ""
}
