package verify

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/btree"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
)

// ExpectedFile is the subset of a tracked object needed for inventory
// and checksum comparison.
type ExpectedFile struct {
	Key  string
	Size int64
	ETag string
}

func newKeyTree() *btree.BTreeG[string] {
	return btree.NewG(32, func(a, b string) bool { return a < b })
}

// ScanLocalDirectory walks basePath/bucket and returns every regular
// file's S3 key (its path relative to that directory, with backslashes
// normalized to forward slashes).
func ScanLocalDirectory(basePath, bucket string) (map[string]string, error) {
	root := filepath.Join(basePath, bucket)
	local := map[string]string{}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if isNotExist(err) && p != root {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		key := strings.ReplaceAll(rel, string(filepath.Separator), "/")
		local[key] = p
		return nil
	})
	if err != nil {
		if isNotExist(err) {
			return nil, &migerr.LocalPathMissingError{Path: root}
		}
		return nil, fmt.Errorf("scan local directory %s: %w", root, err)
	}
	return local, nil
}

func isNotExist(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory") || strings.Contains(err.Error(), "cannot find the path")
}

// InventoryResult holds the outcome of comparing expected S3 keys against
// what is actually present on local disk.
type InventoryResult struct {
	Missing       []string
	Extra         []string
	IgnoredCount  int
}

// CheckInventory partitions expectedKeys and localKeys into missing
// (expected but absent locally) and extra (present locally but not
// expected), silently dropping known system metadata files from the
// extra set.
func CheckInventory(expectedKeys, localKeys []string) InventoryResult {
	expectedTree := newKeyTree()
	for _, k := range expectedKeys {
		expectedTree.ReplaceOrInsert(k)
	}
	localTree := newKeyTree()
	for _, k := range localKeys {
		localTree.ReplaceOrInsert(k)
	}

	var result InventoryResult
	expectedTree.Ascend(func(k string) bool {
		if _, ok := localTree.Get(k); !ok {
			result.Missing = append(result.Missing, k)
		}
		return true
	})
	localTree.Ascend(func(k string) bool {
		if _, ok := expectedTree.Get(k); ok {
			return true
		}
		if ShouldIgnoreKey(k) {
			result.IgnoredCount++
			return true
		}
		result.Extra = append(result.Extra, k)
		return true
	})
	return result
}

// ErrorMessages renders result as a truncated message list, capping
// each side at MaxErrorDisplay entries.
func (r InventoryResult) ErrorMessages() []string {
	var errs []string
	for i, key := range r.Missing {
		if i >= MaxErrorDisplay {
			errs = append(errs, fmt.Sprintf("... and %d more missing files", len(r.Missing)-MaxErrorDisplay))
			break
		}
		errs = append(errs, fmt.Sprintf("Missing file: %s", key))
	}
	for i, key := range r.Extra {
		if i >= MaxErrorDisplay {
			errs = append(errs, fmt.Sprintf("... and %d more extra files", len(r.Extra)-MaxErrorDisplay))
			break
		}
		errs = append(errs, fmt.Sprintf("Extra file (not in S3): %s", key))
	}
	return errs
}

// Validate raises a VerificationFailedError with the canonical
// "inventory mismatch: M missing, X extra" message whenever either side
// is non-empty.
func (r InventoryResult) Validate(bucket string) error {
	if len(r.Missing) == 0 && len(r.Extra) == 0 {
		return nil
	}
	return &migerr.VerificationFailedError{
		Bucket:  bucket,
		Message: fmt.Sprintf("inventory mismatch: %d missing, %d extra", len(r.Missing), len(r.Extra)),
	}
}
