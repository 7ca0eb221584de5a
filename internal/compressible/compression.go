package compressible

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// CompressWithXZ compresses path in place using xz --keep -9e, leaving
// the original file intact so VerifyCompressedFile and the caller's own
// size-comparison logic can run before anything is removed. It returns
// the path of the new ".xz" file.
func CompressWithXZ(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, "xz", "--keep", "-9e", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("xz binary not found, install xz-utils: %w", err)
		}
		return "", fmt.Errorf("xz failed for %s: %w (stderr: %s)", path, err, stderr.String())
	}
	return path + ".xz", nil
}

// VerifyCompressedFile runs xz -t against path to confirm the archive is
// intact before the caller removes the original.
func VerifyCompressedFile(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "xz", "-t", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("xz binary not found, install xz-utils: %w", err)
		}
		return fmt.Errorf("xz verification failed for %s: %w (stderr: %s)", path, err, stderr.String())
	}
	return nil
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}
