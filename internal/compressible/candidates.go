package compressible

import (
	"database/sql"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/SatoshiReport/s3evacuate/internal/download"
)

// Candidate is a local file that passed every compression-eligibility
// check: large enough, not already compressed, and present on disk.
type Candidate struct {
	Bucket string
	Key    string
	Size   int64
	Path   string
}

// Stats accumulates the same skip-reason counters the original scan
// reports, so an operator can see why the candidate list is smaller
// than the raw row count.
type Stats struct {
	RowsExamined          int
	SkippedInvalidPath    int
	MissingLocalFiles     int
	SkippedNonFile        int
	SkippedImage          int
	SkippedVideo          int
	SkippedCompressed     int
	SkippedNumericExt     int
	SkippedBelowThreshold int
	SkippedAlreadyXZ      int
	CandidatesFound       int
}

// FindCandidates scans the files table for rows at or above minSize
// (optionally restricted to buckets), resolves each to its local path,
// and returns every row that survives every eligibility check, sorted by
// descending size to match the original tool's largest-first reporting.
func FindCandidates(db *sql.DB, basePath string, minSize int64, buckets []string, stats *Stats) ([]Candidate, error) {
	query := "SELECT bucket, key, size FROM files WHERE size >= ?"
	args := []any{minSize}
	if len(buckets) > 0 {
		placeholders := make([]string, len(buckets))
		for i, b := range buckets {
			placeholders[i] = "?"
			args = append(args, b)
		}
		query += fmt.Sprintf(" AND bucket IN (%s)", strings.Join(placeholders, ","))
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate files: %w", err)
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var bucket, key string
		var size int64
		if err := rows.Scan(&bucket, &key, &size); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		stats.RowsExamined++

		candidate, ok, err := evaluateCandidate(basePath, bucket, key, minSize, stats)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, candidate)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Size > candidates[j].Size })
	return candidates, nil
}

func evaluateCandidate(basePath, bucket, key string, minSize int64, stats *Stats) (Candidate, bool, error) {
	localPath, err := download.DeriveLocalPath(basePath, bucket, key)
	if err != nil {
		stats.SkippedInvalidPath++
		return Candidate{}, false, nil
	}

	info, err := os.Stat(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			stats.MissingLocalFiles++
			return Candidate{}, false, nil
		}
		return Candidate{}, false, fmt.Errorf("stat %s: %w", localPath, err)
	}
	if info.IsDir() {
		stats.SkippedNonFile++
		return Candidate{}, false, nil
	}

	switch ShouldSkipBySuffix(key, info.Name()) {
	case "image":
		stats.SkippedImage++
		return Candidate{}, false, nil
	case "video":
		stats.SkippedVideo++
		return Candidate{}, false, nil
	case "compressed":
		stats.SkippedCompressed++
		return Candidate{}, false, nil
	case "numeric_extension":
		stats.SkippedNumericExt++
		return Candidate{}, false, nil
	}

	actualSize := info.Size()
	if actualSize < minSize {
		stats.SkippedBelowThreshold++
		return Candidate{}, false, nil
	}
	if strings.HasSuffix(strings.ToLower(localPath), ".xz") {
		stats.SkippedAlreadyXZ++
		return Candidate{}, false, nil
	}

	stats.CandidatesFound++
	return Candidate{Bucket: bucket, Key: key, Size: actualSize, Path: localPath}, true, nil
}
