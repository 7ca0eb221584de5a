package verify

import (
	"fmt"
	"strings"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
	"github.com/SatoshiReport/s3evacuate/internal/migration"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Store is the subset of the state store the verifier reads from and
// writes to.
type Store interface {
	ListBucketFiles(bucket string) ([]migration.ObjectRecord, error)
	MarkBucketVerifyComplete(bucket string, metrics migration.VerifyMetrics) error
}

// Verifier checks a bucket's local copy against the state store's
// expected inventory, first by key presence and then by size/checksum,
// before the bucket is allowed into the deletion phase.
type Verifier struct {
	Store    Store
	Logger   *telemetry.Logger
	BasePath string
}

// New builds a Verifier rooted at basePath.
func New(st Store, logger *telemetry.Logger, basePath string) *Verifier {
	return &Verifier{Store: st, Logger: logger, BasePath: basePath}
}

// VerifyBucket runs both verification passes for bucket. It returns a
// *migerr.VerificationFailedError (or LocalPathMissingError /
// VerificationCountMismatchError) when verification fails, and persists
// VerifyMetrics via the store only on success.
func (v *Verifier) VerifyBucket(bucket string) error {
	records, err := v.Store.ListBucketFiles(bucket)
	if err != nil {
		return fmt.Errorf("list files for %s: %w", bucket, err)
	}

	expected := make([]ExpectedFile, 0, len(records))
	expectedKeys := make([]string, 0, len(records))
	var totalExpectedSize int64
	for _, r := range records {
		expected = append(expected, ExpectedFile{Key: r.Key, Size: r.Size, ETag: r.ETag})
		expectedKeys = append(expectedKeys, r.Key)
		totalExpectedSize += r.Size
	}

	localFiles, err := ScanLocalDirectory(v.BasePath, bucket)
	if err != nil {
		return err
	}
	localKeys := make([]string, 0, len(localFiles))
	for k := range localFiles {
		localKeys = append(localKeys, k)
	}

	inventory := CheckInventory(expectedKeys, localKeys)
	if err := inventory.Validate(bucket); err != nil {
		return err
	}

	results, checksumErrs, err := VerifyFiles(expected, localFiles)
	if err != nil {
		return err
	}
	if len(checksumErrs) > 0 {
		return v.verificationFailedError(bucket, checksumErrs)
	}

	if int64(len(results)) != int64(len(expected)) {
		return &migerr.VerificationCountMismatchError{
			Bucket:   bucket,
			Expected: int64(len(expected)),
			Actual:   int64(len(results)),
		}
	}

	var totalBytesVerified int64
	var sizeVerified, checksumVerified int64
	for _, r := range results {
		if r.SizeVerified {
			sizeVerified++
		}
		if r.ChecksumVerified {
			checksumVerified++
		}
		totalBytesVerified += r.Bytes
	}

	metrics := migration.VerifyMetrics{
		VerifiedFileCount:     int64(len(results)),
		SizeVerifiedCount:     sizeVerified,
		ChecksumVerifiedCount: checksumVerified,
		TotalBytesVerified:    totalBytesVerified,
		LocalFileCount:        int64(len(localFiles)),
	}

	return v.Store.MarkBucketVerifyComplete(bucket, metrics)
}

// verificationFailedError logs up to MaxErrorDisplay of the accumulated
// checksum/size mismatches (with a truncation summary for the rest) and
// builds the resulting error, matching the original tool's
// check_verification_errors behavior. The error message carries the same
// first MaxErrorDisplay details.
func (v *Verifier) verificationFailedError(bucket string, errs []string) *migerr.VerificationFailedError {
	shown := errs
	if len(shown) > MaxErrorDisplay {
		shown = shown[:MaxErrorDisplay]
	}
	if v.Logger != nil {
		for _, e := range shown {
			v.Logger.Error().Str("bucket", bucket).Str("detail", e).Msg("verification mismatch")
		}
		if remaining := len(errs) - MaxErrorDisplay; remaining > 0 {
			v.Logger.Error().Str("bucket", bucket).Int("more", remaining).Msg("additional verification mismatches truncated")
		}
	}
	return &migerr.VerificationFailedError{
		Bucket:  bucket,
		Message: fmt.Sprintf("Verification failed: %d file(s) with issues: %s", len(errs), strings.Join(shown, "; ")),
	}
}
