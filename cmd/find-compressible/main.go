// Command find-compressible scans an evacuation's state database for
// large, locally downloaded files that are good candidates for xz
// compression, and optionally compresses them in place.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SatoshiReport/s3evacuate/internal/compressible"
	"github.com/SatoshiReport/s3evacuate/internal/humanize"
)

type bucketFlags []string

func (b *bucketFlags) String() string { return strings.Join(*b, ",") }

func (b *bucketFlags) Set(value string) error {
	*b = append(*b, value)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		dbPath         string
		basePath       string
		minSizeRaw     string
		buckets        bucketFlags
		limit          int
		compress       bool
		resetStateDB   bool
		skipConfirm    bool
	)

	flag.StringVar(&dbPath, "db-path", "migration_state.db", "path to migration SQLite database")
	flag.StringVar(&basePath, "base-path", "/mnt/evacuation", "base path of the external drive")
	flag.StringVar(&minSizeRaw, "min-size", "", "minimum file size to consider (accepts suffixes like 512M, 2G); default 512M")
	flag.Var(&buckets, "bucket", "optional bucket filter; repeat for multiple buckets")
	flag.IntVar(&limit, "limit", 0, "stop after reporting this many candidates (0 means no limit)")
	flag.BoolVar(&compress, "compress", false, "compress each reported file in place using xz -9e")
	flag.BoolVar(&resetStateDB, "reset-state-db", false, "delete and recreate the state database before scanning")
	flag.BoolVar(&skipConfirm, "yes", false, "skip confirmation when using -reset-state-db")
	flag.Parse()

	minSize := int64(compressible.DefaultMinSize)
	if minSizeRaw != "" {
		parsed, err := compressible.ParseSize(minSizeRaw)
		if err != nil {
			return fmt.Errorf("parse -min-size: %w", err)
		}
		minSize = parsed
	}

	base, err := filepath.Abs(expandHome(basePath))
	if err != nil {
		return fmt.Errorf("resolve -base-path: %w", err)
	}
	if _, err := os.Stat(base); err != nil {
		return fmt.Errorf("base path does not exist: %s", base)
	}

	db := expandHome(dbPath)
	if resetStateDB {
		if err := resetDatabase(db, skipConfirm); err != nil {
			return err
		}
	}
	if _, err := os.Stat(db); err != nil {
		return fmt.Errorf("state database not found at %s: run s3evacuate first", db)
	}

	conn, err := sql.Open("sqlite3", db)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = conn.Close() }()

	sort.Strings(buckets)
	var stats compressible.Stats
	candidates, err := compressible.FindCandidates(conn, base, minSize, dedup(buckets), &stats)
	if err != nil {
		return fmt.Errorf("find candidates: %w", err)
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	var totalBytes int64
	for _, c := range candidates {
		totalBytes += c.Size
	}

	extensions := reportCandidates(candidates, compress, &stats)
	printScanSummary(base, db, stats, len(candidates), totalBytes, extensions)
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func dedup(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func resetDatabase(dbPath string, skipConfirm bool) error {
	if _, err := os.Stat(dbPath); err != nil {
		return nil
	}
	if !skipConfirm {
		fmt.Printf("Delete and recreate state database at %s? (yes/no): ", dbPath)
		var answer string
		_, _ = fmt.Scanln(&answer)
		if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
			return errors.New("reset aborted")
		}
	}
	return os.Remove(dbPath)
}

// reportCandidates prints one line per candidate that has a file
// extension, largest first, and optionally compresses each printed file;
// candidates without an extension are counted in stats.SkippedNonFile and
// not printed. It returns the set of file extensions actually reported.
func reportCandidates(candidates []compressible.Candidate, compress bool, stats *compressible.Stats) map[string]bool {
	extensions := make(map[string]bool)
	width := 2
	if n := len(fmt.Sprintf("%d", len(candidates))); n > width {
		width = n
	}

	for i, c := range candidates {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(c.Path), "."))
		if ext == "" {
			stats.SkippedNonFile++
			continue
		}
		extensions[ext] = true
		fmt.Printf("%*d. %12s  %s  (bucket=%s)\n", width, i+1, humanize.Size(c.Size), c.Path, c.Bucket)

		if !compress {
			continue
		}
		compressOne(c)
	}
	return extensions
}

func compressOne(c compressible.Candidate) {
	ctx := context.Background()
	compressedPath, err := compressible.CompressWithXZ(ctx, c.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "    ! Compression failed: %v\n", err)
		return
	}
	if err := compressible.VerifyCompressedFile(ctx, compressedPath); err != nil {
		_ = os.Remove(compressedPath)
		fmt.Fprintf(os.Stderr, "    ! Compression failed verification: %v\n", err)
		return
	}
	info, err := os.Stat(compressedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "    ! Compression failed: %v\n", err)
		return
	}
	if err := os.Remove(c.Path); err != nil {
		fmt.Fprintf(os.Stderr, "    ! Failed to remove original: %v\n", err)
		return
	}
	savings := c.Size - info.Size()
	fmt.Printf("    -> Compressed to %s (saved %s, verified with xz -t)\n", compressedPath, humanize.Size(savings))
}

func printScanSummary(base, db string, stats compressible.Stats, totalReported int, totalBytes int64, extensions map[string]bool) {
	fmt.Println("\nScan summary")
	fmt.Println("============")
	fmt.Printf("Local base:      %s\n", base)
	fmt.Printf("Database:        %s\n", db)
	fmt.Printf("Rows examined:   %d\n", stats.RowsExamined)
	fmt.Printf("Candidates:      %d\n", stats.CandidatesFound)
	fmt.Printf("Reported (desc): %d\n", totalReported)
	fmt.Printf("Total size:      %s\n", humanize.Size(totalBytes))
	fmt.Printf("Missing files:   %d\n", stats.MissingLocalFiles)
	fmt.Printf("Skipped images:  %d\n", stats.SkippedImage)
	fmt.Printf("Skipped videos:  %d\n", stats.SkippedVideo)
	fmt.Printf("Skipped archive: %d\n", stats.SkippedCompressed)
	fmt.Printf("Already .xz:     %d\n", stats.SkippedAlreadyXZ)
	fmt.Printf("Path issues:     %d\n", stats.SkippedInvalidPath)
	fmt.Printf("Non-files:       %d\n", stats.SkippedNonFile)
	fmt.Printf("Too small now:   %d\n", stats.SkippedBelowThreshold)
	fmt.Printf("Numeric ext:     %d\n", stats.SkippedNumericExt)

	names := make([]string, 0, len(extensions))
	for ext := range extensions {
		names = append(names, ext)
	}
	sort.Strings(names)
	list := "(none)"
	if len(names) > 0 {
		list = strings.Join(names, ", ")
	}
	fmt.Printf("Extensions:      %s\n", list)
}
