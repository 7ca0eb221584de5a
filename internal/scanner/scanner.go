// Package scanner implements the first migration phase: enumerating
// every bucket and object in the account (minus any excluded buckets)
// and recording them in the state store before anything is downloaded.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
	"github.com/SatoshiReport/s3evacuate/internal/s3client"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Store is the subset of the state store the scanner writes to.
type Store interface {
	AddFile(bucket, key string, size int64, etag, storageClass, lastModified string) error
	SaveBucketStatus(bucket string, fileCount, totalSize int64, storageClasses map[string]int64, scanComplete bool) error
}

// Scanner lists buckets and their objects, recording each discovered
// object in the store. A bucket already marked scan_complete is not
// rescanned.
type Scanner struct {
	S3              s3client.API
	Store           Store
	Logger          *telemetry.Logger
	ExcludedBuckets map[string]bool
	// ProgressInterval controls how often scan progress is logged,
	// mirroring the original tool's 10,000-file print cadence.
	ProgressInterval int
}

// New builds a Scanner with the default progress interval.
func New(client s3client.API, st Store, logger *telemetry.Logger, excluded []string) *Scanner {
	excludedSet := make(map[string]bool, len(excluded))
	for _, b := range excluded {
		excludedSet[b] = true
	}
	return &Scanner{
		S3:               client,
		Store:            st,
		Logger:           logger,
		ExcludedBuckets:  excludedSet,
		ProgressInterval: 10000,
	}
}

// ListBuckets returns every bucket name not in ExcludedBuckets.
func (s *Scanner) ListBuckets(ctx context.Context) ([]string, error) {
	resp, err := s.S3.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	var buckets []string
	for _, b := range resp.Buckets {
		name := aws(b.Name)
		if s.ExcludedBuckets[name] {
			continue
		}
		buckets = append(buckets, name)
	}
	return buckets, nil
}

// ScanBucket pages through every object in bucket, recording each
// non-directory-marker object in the store, then saves the bucket's
// aggregate counts with scan_complete set.
func (s *Scanner) ScanBucket(ctx context.Context, bucket string) error {
	var fileCount int64
	var totalSize int64
	storageClasses := map[string]int64{}

	var continuationToken *string
	for {
		page, err := s.S3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return fmt.Errorf("list objects in %s: %w", bucket, err)
		}

		for _, obj := range page.Contents {
			key := aws(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue // S3 directory marker, not a real object
			}
			storageClass := string(obj.StorageClass)
			if storageClass == "" {
				storageClass = migration.StorageClassStandard
			}
			etag := strings.Trim(aws(obj.ETag), `"`)
			lastModified := ""
			if obj.LastModified != nil {
				lastModified = obj.LastModified.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
			}
			size := int64(0)
			if obj.Size != nil {
				size = *obj.Size
			}

			if err := s.Store.AddFile(bucket, key, size, etag, storageClass, lastModified); err != nil {
				return fmt.Errorf("record object %s/%s: %w", bucket, key, err)
			}

			fileCount++
			totalSize += size
			storageClasses[storageClass]++

			if s.Logger != nil && s.ProgressInterval > 0 && fileCount%int64(s.ProgressInterval) == 0 {
				s.Logger.LogBucketProgress(ctx, bucket, fileCount, totalSize)
			}
		}

		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		continuationToken = page.NextContinuationToken

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return s.Store.SaveBucketStatus(bucket, fileCount, totalSize, storageClasses, true)
}

// ScanAll lists every bucket and scans each in turn, skipping any bucket
// already present in alreadyScanned.
func (s *Scanner) ScanAll(ctx context.Context, alreadyScanned map[string]bool) error {
	buckets, err := s.ListBuckets(ctx)
	if err != nil {
		return err
	}
	for _, bucket := range buckets {
		if alreadyScanned[bucket] {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.Logger != nil {
			s.Logger.LogPhaseStart(ctx, "scan_bucket")
		}
		if err := s.ScanBucket(ctx, bucket); err != nil {
			return err
		}
	}
	return nil
}

func aws(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
