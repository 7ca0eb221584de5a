package orchestrator

import (
	"os"
	"path/filepath"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
)

// DriveChecker verifies the destination mount is present and writable
// before each bucket is processed, distinguishing a disconnected drive
// from a migration logic error.
type DriveChecker struct {
	BasePath string
}

// CheckAvailable creates BasePath if its parent already exists, or
// returns a *migerr.DriveUnavailableError if the parent is missing or
// the directory can't be created (e.g. permission denied, drive
// unmounted).
func (c DriveChecker) CheckAvailable() error {
	if info, err := os.Stat(c.BasePath); err == nil {
		if !info.IsDir() {
			return &migerr.DriveUnavailableError{Path: c.BasePath, Err: os.ErrExist}
		}
		return nil
	}

	parent := filepath.Dir(c.BasePath)
	if _, err := os.Stat(parent); err != nil {
		return &migerr.DriveUnavailableError{Path: c.BasePath, Err: err}
	}

	if err := os.MkdirAll(c.BasePath, 0o755); err != nil {
		return &migerr.DriveUnavailableError{Path: c.BasePath, Err: err}
	}
	return nil
}
