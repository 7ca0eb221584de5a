package store

import (
	"database/sql"
	"time"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

// objectManager owns the files table: discovery, glacier restore
// tracking, and read paths used by downstream stages.
type objectManager struct {
	db *sql.DB
}

// AddFile records a discovered object. It is idempotent: a duplicate
// primary key (bucket, key) is swallowed rather than returned as an
// error, since rescanning a bucket must not fail on objects already
// known from a prior run.
func (m *objectManager) AddFile(bucket, key string, size int64, etag, storageClass, lastModified string) error {
	now := nowISO()
	_, err := m.db.Exec(`
		INSERT INTO files (bucket, key, size, etag, storage_class, last_modified,
			state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'discovered', ?, ?)`,
		bucket, key, size, etag, storageClass, lastModified, now, now,
	)
	if err != nil && isUniqueViolation(err) {
		return nil
	}
	return err
}

// MarkGlacierRestoreRequested records that a restore request was issued
// for bucket/key.
func (m *objectManager) MarkGlacierRestoreRequested(bucket, key string) error {
	now := nowISO()
	_, err := m.db.Exec(`
		UPDATE files SET glacier_restore_requested_at = ?, updated_at = ?
		WHERE bucket = ? AND key = ?`,
		now, now, bucket, key,
	)
	return err
}

// MarkGlacierRestored records that a restore finished for bucket/key.
func (m *objectManager) MarkGlacierRestored(bucket, key string) error {
	now := nowISO()
	_, err := m.db.Exec(`
		UPDATE files SET glacier_restored_at = ?, updated_at = ?
		WHERE bucket = ? AND key = ?`,
		now, now, bucket, key,
	)
	return err
}

// GetGlacierFilesNeedingRestore returns cold-storage objects that have
// not yet had a restore request issued.
func (m *objectManager) GetGlacierFilesNeedingRestore() ([]migration.ObjectRecord, error) {
	rows, err := m.db.Query(`
		SELECT bucket, key, size, etag, storage_class, last_modified, state
		FROM files
		WHERE storage_class IN ('GLACIER', 'DEEP_ARCHIVE')
		AND glacier_restore_requested_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBasicObjectRows(rows)
}

// GetFilesRestoring returns cold-storage objects that have a pending
// restore request but have not yet completed restoration.
func (m *objectManager) GetFilesRestoring() ([]migration.ObjectRecord, error) {
	rows, err := m.db.Query(`
		SELECT bucket, key, size, etag, storage_class, last_modified, state
		FROM files
		WHERE storage_class IN ('GLACIER', 'DEEP_ARCHIVE')
		AND glacier_restore_requested_at IS NOT NULL
		AND glacier_restored_at IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBasicObjectRows(rows)
}

// ListBucketFiles returns every tracked object for bucket, used by the
// verifier to build the expected inventory.
func (m *objectManager) ListBucketFiles(bucket string) ([]migration.ObjectRecord, error) {
	rows, err := m.db.Query(`
		SELECT bucket, key, size, etag, storage_class, last_modified, state
		FROM files WHERE bucket = ?`, bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBasicObjectRows(rows)
}

func scanBasicObjectRows(rows *sql.Rows) ([]migration.ObjectRecord, error) {
	var out []migration.ObjectRecord
	for rows.Next() {
		var rec migration.ObjectRecord
		if err := rows.Scan(&rec.Bucket, &rec.Key, &rec.Size, &rec.ETag, &rec.StorageClass, &rec.LastModified, &rec.State); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
