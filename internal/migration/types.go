// Package migration holds the shared data model for the evacuation
// pipeline: migration phases and the object/bucket records persisted in
// the state store.
package migration

import "time"

// Phase identifies where the overall migration stands. Phases advance
// monotonically; resuming a run re-enters the persisted phase rather
// than restarting from scanning.
type Phase string

const (
	PhaseScanning       Phase = "scanning"
	PhaseGlacierRestore Phase = "glacier_restore"
	PhaseGlacierWait    Phase = "glacier_wait"
	PhaseSyncing        Phase = "syncing"
	PhaseVerifying      Phase = "verifying"
	PhaseDeleting       Phase = "deleting"
	PhaseComplete       Phase = "complete"
)

// order gives each phase its position for monotonic-advancement checks.
var order = map[Phase]int{
	PhaseScanning:       0,
	PhaseGlacierRestore: 1,
	PhaseGlacierWait:    2,
	PhaseSyncing:        3,
	PhaseVerifying:      4,
	PhaseDeleting:       5,
	PhaseComplete:       6,
}

// Before reports whether p sorts ahead of other in the phase sequence.
func (p Phase) Before(other Phase) bool {
	return order[p] < order[other]
}

const (
	StorageClassStandard   = "STANDARD"
	StorageClassGlacier    = "GLACIER"
	StorageClassDeepArchive = "DEEP_ARCHIVE"
)

// IsColdStorage reports whether class requires a restore request before it
// can be read.
func IsColdStorage(class string) bool {
	return class == StorageClassGlacier || class == StorageClassDeepArchive
}

// ObjectRecord mirrors one row of the files table: an S3 object discovered
// during scanning, tracked through restore, download and verification.
type ObjectRecord struct {
	Bucket                     string
	Key                        string
	Size                       int64
	ETag                       string
	StorageClass               string
	LastModified               string
	LocalPath                  string
	LocalChecksum              string
	State                      string
	ErrorMessage               string
	GlacierRestoreRequestedAt  *time.Time
	GlacierRestoredAt          *time.Time
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// BucketRecord mirrors one row of the bucket_status table.
type BucketRecord struct {
	Bucket              string
	FileCount           int64
	TotalSize           int64
	StorageClassCounts  map[string]int64
	ScanComplete        bool
	SyncComplete        bool
	VerifyComplete      bool
	DeleteComplete      bool
	LocalFileCount      *int64
	LocalTotalSize      *int64
	VerifiedFileCount   *int64
	SizeVerifiedCount   *int64
	ChecksumVerifiedCount *int64
	TotalBytesVerified  *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// VerifyMetrics summarizes the outcome of verifying one bucket, persisted
// via Store.MarkBucketVerifyComplete.
type VerifyMetrics struct {
	VerifiedFileCount     int64
	SizeVerifiedCount     int64
	ChecksumVerifiedCount int64
	TotalBytesVerified    int64
	LocalFileCount        int64
}

// ScanSummary is the aggregate view used by the status report.
type ScanSummary struct {
	BucketCount    int64
	TotalFiles     int64
	TotalSize      int64
	StorageClasses map[string]int64
}
