// Package store is the durable state layer for an evacuation run: every
// discovered object, every bucket's aggregate counts and phase flags,
// and the single current migration phase, all backed by a local SQLite
// database so a run can be killed and resumed without losing progress.
//
// The original Python implementation composed this behavior through
// three mixin classes forwarding to three manager objects. Go has no
// mixins, so Store instead holds three unexported manager structs as
// named fields and forwards to their methods explicitly; this is more verbose
// but keeps every operation's owner obvious from the call site.
package store

import (
	"database/sql"
	"fmt"

	"github.com/SatoshiReport/s3evacuate/internal/migration"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable migration state store. Construct with Open for
// production use, or with New against a pre-opened *sql.DB (e.g. the
// pure-Go modernc.org/sqlite driver) in tests.
type Store struct {
	db      *sql.DB
	objects *objectManager
	buckets *bucketManager
	phases  *phaseManager
}

// Open opens (creating if necessary) a SQLite database at path using the
// cgo-backed mattn/go-sqlite3 driver, initializes its schema, and
// returns a ready Store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=30000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

// New wraps an already-open database connection, running schema
// initialization and migration before returning.
func New(db *sql.DB) (*Store, error) {
	db.SetMaxOpenConns(1) // SQLite allows one writer; serialize through the pool.

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{
		db:      db,
		objects: &objectManager{db: db},
		buckets: &bucketManager{db: db},
		phases:  &phaseManager{db: db},
	}
	if err := s.phases.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize phase: %w", err)
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- file operations, forwarded to objectManager ---

func (s *Store) AddFile(bucket, key string, size int64, etag, storageClass, lastModified string) error {
	return s.objects.AddFile(bucket, key, size, etag, storageClass, lastModified)
}

func (s *Store) MarkGlacierRestoreRequested(bucket, key string) error {
	return s.objects.MarkGlacierRestoreRequested(bucket, key)
}

func (s *Store) MarkGlacierRestored(bucket, key string) error {
	return s.objects.MarkGlacierRestored(bucket, key)
}

func (s *Store) GetGlacierFilesNeedingRestore() ([]migration.ObjectRecord, error) {
	return s.objects.GetGlacierFilesNeedingRestore()
}

func (s *Store) GetFilesRestoring() ([]migration.ObjectRecord, error) {
	return s.objects.GetFilesRestoring()
}

func (s *Store) ListBucketFiles(bucket string) ([]migration.ObjectRecord, error) {
	return s.objects.ListBucketFiles(bucket)
}

// --- bucket operations, forwarded to bucketManager ---

func (s *Store) SaveBucketStatus(bucket string, fileCount, totalSize int64, storageClasses map[string]int64, scanComplete bool) error {
	return s.buckets.SaveBucketStatus(bucket, fileCount, totalSize, storageClasses, scanComplete)
}

func (s *Store) MarkBucketSyncComplete(bucket string) error {
	return s.buckets.MarkBucketSyncComplete(bucket)
}

func (s *Store) MarkBucketVerifyComplete(bucket string, metrics migration.VerifyMetrics) error {
	return s.buckets.MarkBucketVerifyComplete(bucket, metrics)
}

func (s *Store) MarkBucketDeleteComplete(bucket string) error {
	return s.buckets.MarkBucketDeleteComplete(bucket)
}

func (s *Store) GetAllBuckets() ([]string, error) {
	return s.buckets.GetAllBuckets()
}

func (s *Store) GetCompletedBucketsForPhase(phaseField string) ([]string, error) {
	return s.buckets.GetCompletedBucketsForPhase(phaseField)
}

func (s *Store) GetBucketInfo(bucket string) (*migration.BucketRecord, error) {
	return s.buckets.GetBucketInfo(bucket)
}

func (s *Store) GetScanSummary() (migration.ScanSummary, error) {
	return s.buckets.GetScanSummary()
}

// --- phase operations, forwarded to phaseManager ---

func (s *Store) GetCurrentPhase() (migration.Phase, error) {
	return s.phases.GetPhase()
}

func (s *Store) SetCurrentPhase(phase migration.Phase) error {
	return s.phases.SetPhase(phase)
}
