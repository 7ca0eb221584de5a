package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const filesTableSQL = `
CREATE TABLE IF NOT EXISTS files (
	bucket TEXT NOT NULL,
	key TEXT NOT NULL,
	size INTEGER NOT NULL,
	etag TEXT,
	storage_class TEXT,
	last_modified TEXT,
	local_path TEXT,
	local_checksum TEXT,
	state TEXT NOT NULL,
	error_message TEXT,
	glacier_restore_requested_at TEXT,
	glacier_restored_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (bucket, key)
)`

const bucketStatusTableSQL = `
CREATE TABLE IF NOT EXISTS bucket_status (
	bucket TEXT PRIMARY KEY,
	file_count INTEGER NOT NULL,
	total_size INTEGER NOT NULL,
	storage_class_counts TEXT,
	scan_complete BOOLEAN DEFAULT 0,
	sync_complete BOOLEAN DEFAULT 0,
	verify_complete BOOLEAN DEFAULT 0,
	delete_complete BOOLEAN DEFAULT 0,
	local_file_count INTEGER,
	local_total_size INTEGER,
	verified_file_count INTEGER,
	size_verified_count INTEGER,
	checksum_verified_count INTEGER,
	total_bytes_verified INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const metadataTableSQL = `
CREATE TABLE IF NOT EXISTS migration_metadata (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

var tableDefinitions = []string{filesTableSQL, bucketStatusTableSQL, metadataTableSQL}

var indexDefinitions = []string{
	"CREATE INDEX IF NOT EXISTS idx_files_state ON files(state)",
	"CREATE INDEX IF NOT EXISTS idx_files_storage_class ON files(storage_class)",
	"CREATE INDEX IF NOT EXISTS idx_files_bucket ON files(bucket)",
}

// bucketStatusMigrations lists columns added to bucket_status after the
// initial release. ALTER TABLE ... ADD COLUMN fails with "duplicate
// column name" once a column already exists; that failure is swallowed
// so the migration list can be replayed against an up-to-date database.
var bucketStatusMigrations = []string{
	"verified_file_count INTEGER",
	"size_verified_count INTEGER",
	"checksum_verified_count INTEGER",
	"total_bytes_verified INTEGER",
}

func initSchema(db *sql.DB) error {
	for _, stmt := range tableDefinitions {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, stmt := range indexDefinitions {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	for _, column := range bucketStatusMigrations {
		_, err := db.Exec("ALTER TABLE bucket_status ADD COLUMN " + column)
		if err != nil && !isDuplicateColumn(err) {
			return fmt.Errorf("migrate bucket_status: %w", err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}
