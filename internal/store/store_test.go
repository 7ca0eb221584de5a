package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddFile_Idempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.AddFile("b1", "k1", 100, "etag1", "STANDARD", "2024-01-01T00:00:00Z"))
	require.NoError(t, s.AddFile("b1", "k1", 100, "etag1", "STANDARD", "2024-01-01T00:00:00Z"))

	files, err := s.ListBucketFiles("b1")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestGlacierRestoreLifecycle(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddFile("b1", "cold.bin", 10, "e", "GLACIER", "2024-01-01T00:00:00Z"))
	require.NoError(t, s.AddFile("b1", "hot.bin", 10, "e", "STANDARD", "2024-01-01T00:00:00Z"))

	needing, err := s.GetGlacierFilesNeedingRestore()
	require.NoError(t, err)
	require.Len(t, needing, 1)
	assert.Equal(t, "cold.bin", needing[0].Key)

	require.NoError(t, s.MarkGlacierRestoreRequested("b1", "cold.bin"))

	needing, err = s.GetGlacierFilesNeedingRestore()
	require.NoError(t, err)
	assert.Empty(t, needing)

	restoring, err := s.GetFilesRestoring()
	require.NoError(t, err)
	require.Len(t, restoring, 1)

	require.NoError(t, s.MarkGlacierRestored("b1", "cold.bin"))

	restoring, err = s.GetFilesRestoring()
	require.NoError(t, err)
	assert.Empty(t, restoring)
}

func TestSaveBucketStatus_PreservesCreatedAt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveBucketStatus("b1", 5, 500, map[string]int64{"STANDARD": 5}, true))

	first, err := s.GetBucketInfo("b1")
	require.NoError(t, err)
	require.NotNil(t, first)
	var createdBefore string
	require.NoError(t, s.db.QueryRow(`SELECT created_at FROM bucket_status WHERE bucket = ?`, "b1").Scan(&createdBefore))

	require.NoError(t, s.SaveBucketStatus("b1", 7, 700, map[string]int64{"STANDARD": 7}, true))
	second, err := s.GetBucketInfo("b1")
	require.NoError(t, err)
	require.NotNil(t, second)
	var createdAfter string
	require.NoError(t, s.db.QueryRow(`SELECT created_at FROM bucket_status WHERE bucket = ?`, "b1").Scan(&createdAfter))

	assert.Equal(t, int64(7), second.FileCount)
	assert.Equal(t, int64(700), second.TotalSize)
	assert.Equal(t, createdBefore, createdAfter)
}

func TestBucketFlags(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveBucketStatus("b1", 1, 1, nil, true))

	require.NoError(t, s.MarkBucketSyncComplete("b1"))
	metrics := migration.VerifyMetrics{
		VerifiedFileCount:     1,
		SizeVerifiedCount:     1,
		ChecksumVerifiedCount: 1,
		TotalBytesVerified:    1,
		LocalFileCount:        1,
	}
	require.NoError(t, s.MarkBucketVerifyComplete("b1", metrics))
	require.NoError(t, s.MarkBucketDeleteComplete("b1"))

	info, err := s.GetBucketInfo("b1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.SyncComplete)
	assert.True(t, info.VerifyComplete)
	assert.True(t, info.DeleteComplete)
	require.NotNil(t, info.VerifiedFileCount)
	assert.Equal(t, int64(1), *info.VerifiedFileCount)
}

func TestGetAllBuckets_SortedAlphabetically(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveBucketStatus("zebra", 1, 1, nil, true))
	require.NoError(t, s.SaveBucketStatus("alpha", 1, 1, nil, true))

	buckets, err := s.GetAllBuckets()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zebra"}, buckets)
}

func TestGetCompletedBucketsForPhase_RejectsUnknownColumn(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetCompletedBucketsForPhase("bucket; DROP TABLE files")
	require.Error(t, err)
}

func TestPhase_DefaultsToScanning(t *testing.T) {
	s := newTestStore(t)
	phase, err := s.GetCurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, migration.PhaseScanning, phase)
}

func TestPhase_SetAndGet(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SetCurrentPhase(migration.PhaseVerifying))
	phase, err := s.GetCurrentPhase()
	require.NoError(t, err)
	assert.Equal(t, migration.PhaseVerifying, phase)
}

func TestGetScanSummary(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddFile("b1", "k1", 100, "e", "STANDARD", "2024-01-01T00:00:00Z"))
	require.NoError(t, s.AddFile("b1", "k2", 50, "e", "GLACIER", "2024-01-01T00:00:00Z"))
	require.NoError(t, s.SaveBucketStatus("b1", 2, 150, map[string]int64{"STANDARD": 1, "GLACIER": 1}, true))

	summary, err := s.GetScanSummary()
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.BucketCount)
	assert.Equal(t, int64(2), summary.TotalFiles)
	assert.Equal(t, int64(150), summary.TotalSize)
	assert.Equal(t, int64(1), summary.StorageClasses["STANDARD"])
	assert.Equal(t, int64(1), summary.StorageClasses["GLACIER"])
}
