package store

import (
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

// bucketManager owns the bucket_status table: per-bucket aggregate
// counts and the four phase-completion flags (scan, sync, verify,
// delete) that let a resumed run skip work already done.
type bucketManager struct {
	db *sql.DB
}

// SaveBucketStatus inserts or replaces the aggregate row for bucket,
// preserving the original created_at on update via COALESCE against the
// existing row.
func (m *bucketManager) SaveBucketStatus(bucket string, fileCount, totalSize int64, storageClasses map[string]int64, scanComplete bool) error {
	now := nowISO()
	storageJSON, err := json.Marshal(storageClasses)
	if err != nil {
		return fmt.Errorf("marshal storage class counts: %w", err)
	}
	_, err = m.db.Exec(`
		INSERT OR REPLACE INTO bucket_status
			(bucket, file_count, total_size, storage_class_counts,
			 scan_complete, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?,
			COALESCE((SELECT created_at FROM bucket_status WHERE bucket = ?), ?), ?)`,
		bucket, fileCount, totalSize, string(storageJSON), scanComplete, bucket, now, now,
	)
	return err
}

// MarkBucketSyncComplete flags bucket as fully downloaded.
func (m *bucketManager) MarkBucketSyncComplete(bucket string) error {
	return m.updateFlag(bucket, "sync_complete")
}

// MarkBucketDeleteComplete flags bucket as deleted from S3.
func (m *bucketManager) MarkBucketDeleteComplete(bucket string) error {
	return m.updateFlag(bucket, "delete_complete")
}

// MarkBucketVerifyComplete flags bucket as verified and stores the
// verification metrics alongside the flag in a single update.
func (m *bucketManager) MarkBucketVerifyComplete(bucket string, metrics migration.VerifyMetrics) error {
	now := nowISO()
	_, err := m.db.Exec(`
		UPDATE bucket_status SET verify_complete = 1, verified_file_count = ?,
			size_verified_count = ?, checksum_verified_count = ?, total_bytes_verified = ?,
			local_file_count = ?, updated_at = ? WHERE bucket = ?`,
		metrics.VerifiedFileCount, metrics.SizeVerifiedCount, metrics.ChecksumVerifiedCount,
		metrics.TotalBytesVerified, metrics.LocalFileCount, now, bucket,
	)
	return err
}

func (m *bucketManager) updateFlag(bucket, flagName string) error {
	now := nowISO()
	_, err := m.db.Exec(
		"UPDATE bucket_status SET "+flagName+" = 1, updated_at = ? WHERE bucket = ?",
		now, bucket,
	)
	return err
}

// GetAllBuckets returns every tracked bucket in alphabetical order.
func (m *bucketManager) GetAllBuckets() ([]string, error) {
	rows, err := m.db.Query("SELECT bucket FROM bucket_status ORDER BY bucket")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var bucket string
		if err := rows.Scan(&bucket); err != nil {
			return nil, err
		}
		out = append(out, bucket)
	}
	return out, rows.Err()
}

// completedPhaseColumns whitelists the boolean flag columns that may be
// queried by GetCompletedBucketsForPhase, since the column name is
// otherwise interpolated into the query string.
var completedPhaseColumns = map[string]bool{
	"scan_complete":   true,
	"sync_complete":   true,
	"verify_complete": true,
	"delete_complete": true,
}

// GetCompletedBucketsForPhase returns buckets with phaseField set, in
// alphabetical order.
func (m *bucketManager) GetCompletedBucketsForPhase(phaseField string) ([]string, error) {
	if !completedPhaseColumns[phaseField] {
		return nil, fmt.Errorf("unknown phase field %q", phaseField)
	}
	rows, err := m.db.Query("SELECT bucket FROM bucket_status WHERE " + phaseField + " = 1 ORDER BY bucket")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var bucket string
		if err := rows.Scan(&bucket); err != nil {
			return nil, err
		}
		out = append(out, bucket)
	}
	return out, rows.Err()
}

// GetBucketInfo returns the bucket_status row for bucket, or nil if it
// has not been scanned.
func (m *bucketManager) GetBucketInfo(bucket string) (*migration.BucketRecord, error) {
	row := m.db.QueryRow(`
		SELECT bucket, file_count, total_size, storage_class_counts,
			scan_complete, sync_complete, verify_complete, delete_complete,
			local_file_count, local_total_size, verified_file_count,
			size_verified_count, checksum_verified_count, total_bytes_verified
		FROM bucket_status WHERE bucket = ?`, bucket)

	var rec migration.BucketRecord
	var storageJSON sql.NullString
	var localFileCount, localTotalSize, verifiedFileCount sql.NullInt64
	var sizeVerified, checksumVerified, totalBytesVerified sql.NullInt64

	err := row.Scan(
		&rec.Bucket, &rec.FileCount, &rec.TotalSize, &storageJSON,
		&rec.ScanComplete, &rec.SyncComplete, &rec.VerifyComplete, &rec.DeleteComplete,
		&localFileCount, &localTotalSize, &verifiedFileCount,
		&sizeVerified, &checksumVerified, &totalBytesVerified,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec.LocalFileCount = nullableInt64(localFileCount)
	rec.LocalTotalSize = nullableInt64(localTotalSize)
	rec.VerifiedFileCount = nullableInt64(verifiedFileCount)
	rec.SizeVerifiedCount = nullableInt64(sizeVerified)
	rec.ChecksumVerifiedCount = nullableInt64(checksumVerified)
	rec.TotalBytesVerified = nullableInt64(totalBytesVerified)

	rec.StorageClassCounts = map[string]int64{}
	if storageJSON.Valid && storageJSON.String != "" {
		if err := json.Unmarshal([]byte(storageJSON.String), &rec.StorageClassCounts); err != nil {
			return nil, fmt.Errorf("unmarshal storage class counts: %w", err)
		}
	}

	return &rec, nil
}

func nullableInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	val := v.Int64
	return &val
}

// GetScanSummary aggregates file/bucket counts across scanned buckets
// and the per-storage-class histogram across all tracked objects.
func (m *bucketManager) GetScanSummary() (migration.ScanSummary, error) {
	var summary migration.ScanSummary
	row := m.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(file_count), 0), COALESCE(SUM(total_size), 0)
		FROM bucket_status WHERE scan_complete = 1`)
	if err := row.Scan(&summary.BucketCount, &summary.TotalFiles, &summary.TotalSize); err != nil {
		return summary, err
	}

	rows, err := m.db.Query("SELECT storage_class, COUNT(*) FROM files GROUP BY storage_class")
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	summary.StorageClasses = map[string]int64{}
	for rows.Next() {
		var class string
		var count int64
		if err := rows.Scan(&class, &count); err != nil {
			return summary, err
		}
		summary.StorageClasses[class] = count
	}
	return summary, rows.Err()
}
