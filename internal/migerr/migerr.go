// Package migerr defines the sentinel error types used across the
// evacuation pipeline so callers can branch on failure class with
// errors.As instead of string matching.
package migerr

import (
	"errors"
	"fmt"
)

// Category classifies a failure into one of a small closed set, the way
// the teacher's safety checks carry a Severity instead of a bare error
// string, so the orchestrator can dispatch on failure class with a
// switch instead of matching error text.
type Category int

const (
	// CategoryUnknown is any error not recognized by Classify.
	CategoryUnknown Category = iota
	// CategoryDrive covers a missing or unwritable destination mount.
	CategoryDrive
	// CategoryConfig covers malformed or missing configuration.
	CategoryConfig
	// CategoryBucketInfra covers bucket-level S3 API failures (list,
	// delete-bucket, multipart abort) that affect an entire bucket.
	CategoryBucketInfra
	// CategoryPerObject covers a single object's download or checksum
	// failure that shouldn't halt the rest of the bucket.
	CategoryPerObject
	// CategoryTransient names retryable failures such as SQLite busy
	// errors or throttled API calls. Classify never returns it: no error
	// type in this package maps to it.
	CategoryTransient
)

func (c Category) String() string {
	switch c {
	case CategoryDrive:
		return "drive"
	case CategoryConfig:
		return "config"
	case CategoryBucketInfra:
		return "bucket_infra"
	case CategoryPerObject:
		return "per_object"
	case CategoryTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Classify maps a known migerr type, found anywhere in err's wrap chain,
// to its Category. Any other error, including stdlib, SQLite and AWS SDK
// errors, classifies as CategoryUnknown.
func Classify(err error) Category {
	var driveErr *DriveUnavailableError
	if errors.As(err, &driveErr) {
		return CategoryDrive
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return CategoryConfig
	}

	var notEmpty *BucketNotEmptyError
	if errors.As(err, &notEmpty) {
		return CategoryBucketInfra
	}

	var pathErr *PathTraversalError
	if errors.As(err, &pathErr) {
		return CategoryPerObject
	}

	var verifyErr *VerificationFailedError
	if errors.As(err, &verifyErr) {
		return CategoryBucketInfra
	}

	var countErr *VerificationCountMismatchError
	if errors.As(err, &countErr) {
		return CategoryBucketInfra
	}

	var localPathErr *LocalPathMissingError
	if errors.As(err, &localPathErr) {
		return CategoryDrive
	}

	return CategoryUnknown
}

// ConfigError wraps a configuration validation or load failure.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// PathTraversalError is returned when an S3 key would resolve to a local
// path outside the bucket's destination directory.
type PathTraversalError struct {
	Bucket string
	Key    string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("key %q in bucket %q escapes local destination path", e.Key, e.Bucket)
}

// VerificationFailedError wraps any verification-stage failure message so
// the orchestrator can display it and halt the affected bucket without
// advancing its phase flags.
type VerificationFailedError struct {
	Bucket  string
	Message string
}

func (e *VerificationFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Bucket, e.Message)
}

// LocalPathMissingError is returned when a bucket's local destination
// directory does not exist at verification or deletion time.
type LocalPathMissingError struct {
	Path string
}

func (e *LocalPathMissingError) Error() string {
	return fmt.Sprintf("local path does not exist: %s", e.Path)
}

// VerificationCountMismatchError is raised when the number of files that
// passed the size/checksum pass differs from the number of expected
// objects.
type VerificationCountMismatchError struct {
	Bucket   string
	Expected int64
	Actual   int64
}

func (e *VerificationCountMismatchError) Error() string {
	return fmt.Sprintf("%s: verification count mismatch (expected %d, got %d)", e.Bucket, e.Expected, e.Actual)
}

// BucketNotEmptyError is returned when a bucket still has objects after
// the deletion pass, so the final DeleteBucket call would fail.
type BucketNotEmptyError struct {
	Bucket       string
	RemainingKey string
}

func (e *BucketNotEmptyError) Error() string {
	return fmt.Sprintf("bucket %q is not empty, residual object: %s", e.Bucket, e.RemainingKey)
}

// DriveUnavailableError is returned when the configured destination mount
// is missing or unwritable, distinguishing operator-fixable drive issues
// from migration logic errors in the orchestrator's exit-code mapping.
type DriveUnavailableError struct {
	Path string
	Err  error
}

func (e *DriveUnavailableError) Error() string {
	return fmt.Sprintf("destination drive unavailable at %s: %v", e.Path, e.Err)
}

func (e *DriveUnavailableError) Unwrap() error { return e.Err }
