package compressible

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func newCandidateDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE files (bucket TEXT, key TEXT, size INTEGER)`)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeLocalFile(t *testing.T, basePath, bucket, key string, size int64) {
	t.Helper()
	path := filepath.Join(basePath, bucket, key)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestFindCandidates_ReturnsLargeUncompressedFilesSortedBySize(t *testing.T) {
	db := newCandidateDB(t)
	base := t.TempDir()

	_, err := db.Exec(`INSERT INTO files (bucket, key, size) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)`,
		"b1", "small.bin", 100,
		"b1", "big.bin", 2000,
		"b1", "bigger.bin", 3000,
	)
	require.NoError(t, err)

	writeLocalFile(t, base, "b1", "small.bin", 100)
	writeLocalFile(t, base, "b1", "big.bin", 2000)
	writeLocalFile(t, base, "b1", "bigger.bin", 3000)

	var stats Stats
	candidates, err := FindCandidates(db, base, 1000, nil, &stats)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, int64(3000), candidates[0].Size)
	require.Equal(t, int64(2000), candidates[1].Size)
	require.Equal(t, 2, stats.RowsExamined)
	require.Equal(t, 0, stats.SkippedBelowThreshold)
}

func TestFindCandidates_SkipsImagesAndMissingFiles(t *testing.T) {
	db := newCandidateDB(t)
	base := t.TempDir()

	_, err := db.Exec(`INSERT INTO files (bucket, key, size) VALUES (?, ?, ?), (?, ?, ?)`,
		"b1", "photo.jpg", 5000,
		"b1", "ghost.bin", 5000,
	)
	require.NoError(t, err)
	writeLocalFile(t, base, "b1", "photo.jpg", 5000)

	var stats Stats
	candidates, err := FindCandidates(db, base, 1000, nil, &stats)
	require.NoError(t, err)
	require.Empty(t, candidates)
	require.Equal(t, 1, stats.SkippedImage)
	require.Equal(t, 1, stats.MissingLocalFiles)
}

func TestFindCandidates_FiltersByBucket(t *testing.T) {
	db := newCandidateDB(t)
	base := t.TempDir()

	_, err := db.Exec(`INSERT INTO files (bucket, key, size) VALUES (?, ?, ?), (?, ?, ?)`,
		"b1", "a.bin", 5000,
		"b2", "b.bin", 5000,
	)
	require.NoError(t, err)
	writeLocalFile(t, base, "b1", "a.bin", 5000)
	writeLocalFile(t, base, "b2", "b.bin", 5000)

	var stats Stats
	candidates, err := FindCandidates(db, base, 1000, []string{"b1"}, &stats)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "b1", candidates[0].Bucket)
}
