package store

import "strings"

// isUniqueViolation reports whether err is a primary-key / unique index
// violation. Both the mattn/go-sqlite3 (cgo) and modernc.org/sqlite
// (pure Go, used in tests) drivers surface this as an error whose
// message contains "UNIQUE constraint" or "constraint failed", so the
// check works against either driver without importing driver-specific
// error types.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "constraint failed")
}
