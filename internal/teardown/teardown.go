// Package teardown implements the final migration phase: removing every
// version and delete marker from a verified bucket, aborting any
// in-progress multipart uploads, and deleting the now-empty bucket
// itself from S3.
package teardown

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/SatoshiReport/s3evacuate/internal/migerr"
	"github.com/SatoshiReport/s3evacuate/internal/s3client"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Store is the subset of the state store the deleter writes to.
type Store interface {
	MarkBucketDeleteComplete(bucket string) error
}

// maxDeleteBatch is S3's limit on objects per DeleteObjects call.
const maxDeleteBatch = 1000

// Deleter removes every object version and delete marker from a bucket,
// aborts outstanding multipart uploads, and deletes the bucket itself.
type Deleter struct {
	S3     s3client.API
	Store  Store
	Logger *telemetry.Logger
}

// New builds a Deleter.
func New(client s3client.API, st Store, logger *telemetry.Logger) *Deleter {
	return &Deleter{S3: client, Store: st, Logger: logger}
}

// DeleteBucket empties and removes bucket, returning a
// *migerr.BucketNotEmptyError if objects remain after the delete pass
// (e.g. a concurrent writer raced the migration) instead of issuing a
// DeleteBucket call that S3 would reject anyway.
func (d *Deleter) DeleteBucket(ctx context.Context, bucket string) error {
	if err := d.abortMultipartUploads(ctx, bucket); err != nil {
		return err
	}
	deleted, err := d.deleteAllVersions(ctx, bucket)
	if err != nil {
		return err
	}
	if d.Logger != nil {
		d.Logger.Info().Str("bucket", bucket).Int("deleted", deleted).Msg("deleted object versions")
	}

	residual, err := d.firstResidualKey(ctx, bucket)
	if err != nil {
		return err
	}
	if residual != "" {
		return &migerr.BucketNotEmptyError{Bucket: bucket, RemainingKey: residual}
	}

	if _, err := d.S3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("delete bucket %s: %w", bucket, err)
	}

	return d.Store.MarkBucketDeleteComplete(bucket)
}

func (d *Deleter) abortMultipartUploads(ctx context.Context, bucket string) error {
	var keyMarker, uploadIDMarker *string
	for {
		resp, err := d.S3.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
			Bucket:         aws.String(bucket),
			KeyMarker:      keyMarker,
			UploadIdMarker: uploadIDMarker,
		})
		if err != nil {
			return fmt.Errorf("list multipart uploads in %s: %w", bucket, err)
		}
		for _, upload := range resp.Uploads {
			_, err := d.S3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
				Bucket:   aws.String(bucket),
				Key:      upload.Key,
				UploadId: upload.UploadId,
			})
			if err != nil {
				return fmt.Errorf("abort multipart upload %s/%s: %w", bucket, aws.ToString(upload.Key), err)
			}
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			return nil
		}
		keyMarker = resp.NextKeyMarker
		uploadIDMarker = resp.NextUploadIdMarker

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (d *Deleter) deleteAllVersions(ctx context.Context, bucket string) (int, error) {
	var keyMarker, versionIDMarker *string
	var totalDeleted int
	for {
		resp, err := d.S3.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
			Bucket:          aws.String(bucket),
			KeyMarker:       keyMarker,
			VersionIdMarker: versionIDMarker,
		})
		if err != nil {
			return totalDeleted, fmt.Errorf("list object versions in %s: %w", bucket, err)
		}

		var toDelete []types.ObjectIdentifier
		for _, v := range resp.Versions {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: v.Key, VersionId: v.VersionId})
		}
		for _, m := range resp.DeleteMarkers {
			toDelete = append(toDelete, types.ObjectIdentifier{Key: m.Key, VersionId: m.VersionId})
		}

		deleted, err := d.deleteInBatches(ctx, bucket, toDelete)
		totalDeleted += deleted
		if err != nil {
			return totalDeleted, err
		}

		if resp.IsTruncated == nil || !*resp.IsTruncated {
			return totalDeleted, nil
		}
		keyMarker = resp.NextKeyMarker
		versionIDMarker = resp.NextVersionIdMarker

		if ctx.Err() != nil {
			return totalDeleted, ctx.Err()
		}
	}
}

// deleteInBatches deletes objects in batches of at most maxDeleteBatch,
// logging per-object detail for any errors S3 reports back and
// returning the number of objects actually deleted (submitted minus
// errored).
func (d *Deleter) deleteInBatches(ctx context.Context, bucket string, objects []types.ObjectIdentifier) (int, error) {
	var deleted int
	for i := 0; i < len(objects); i += maxDeleteBatch {
		end := i + maxDeleteBatch
		if end > len(objects) {
			end = len(objects)
		}
		batch := objects[i:end]
		resp, err := d.S3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{Objects: batch},
		})
		if err != nil {
			return deleted, fmt.Errorf("delete %d object(s) from %s: %w", len(batch), bucket, err)
		}

		for _, objErr := range resp.Errors {
			if d.Logger != nil {
				d.Logger.Error().
					Str("bucket", bucket).
					Str("key", aws.ToString(objErr.Key)).
					Str("version_id", aws.ToString(objErr.VersionId)).
					Str("code", aws.ToString(objErr.Code)).
					Str("message", aws.ToString(objErr.Message)).
					Msg("delete object failed")
			}
		}
		deleted += len(batch) - len(resp.Errors)
	}
	return deleted, nil
}

func (d *Deleter) firstResidualKey(ctx context.Context, bucket string) (string, error) {
	resp, err := d.S3.ListObjectVersions(ctx, &s3.ListObjectVersionsInput{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return "", fmt.Errorf("probe residual objects in %s: %w", bucket, err)
	}
	if len(resp.Versions) > 0 {
		return aws.ToString(resp.Versions[0].Key), nil
	}
	if len(resp.DeleteMarkers) > 0 {
		return aws.ToString(resp.DeleteMarkers[0].Key), nil
	}
	return "", nil
}
