package download

import (
	"path"
	"strings"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
)

// DeriveLocalPath maps an S3 key to its local destination path under
// basePath/bucket, rejecting any key whose components would escape that
// directory. Keys are split on "/"; empty segments and "." segments are
// skipped (mirroring how S3 tolerates redundant separators), and any
// ".." segment is rejected outright rather than resolved, since
// resolving it could walk outside the bucket directory entirely.
func DeriveLocalPath(basePath, bucket, key string) (string, error) {
	clean, ok := safeJoin(key)
	if !ok {
		return "", &migerr.PathTraversalError{Bucket: bucket, Key: key}
	}
	return path.Join(basePath, bucket, clean), nil
}

func safeJoin(key string) (string, bool) {
	parts := strings.Split(key, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", false
		default:
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.Join(kept, "/"), true
}
