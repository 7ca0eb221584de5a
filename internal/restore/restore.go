// Package restore implements the Glacier restore request and wait
// phases: requesting retrieval for every cold-storage object discovered
// by the scanner, then polling until each retrieval completes.
package restore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/SatoshiReport/s3evacuate/internal/migration"
	"github.com/SatoshiReport/s3evacuate/internal/s3client"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
)

// Store is the subset of the state store the restore coordinator uses.
type Store interface {
	GetGlacierFilesNeedingRestore() ([]migration.ObjectRecord, error)
	GetFilesRestoring() ([]migration.ObjectRecord, error)
	MarkGlacierRestoreRequested(bucket, key string) error
	MarkGlacierRestored(bucket, key string) error
}

// Config tunes the restore request tier and days, and the poll cadence
// used while waiting.
type Config struct {
	Days         int32
	Tier         string
	PollInterval time.Duration
}

// DefaultConfig matches the original tool's hardcoded constants.
func DefaultConfig() Config {
	return Config{Days: 90, Tier: "Standard", PollInterval: 5 * time.Minute}
}

// Coordinator drives the glacier_restore and glacier_wait phases.
type Coordinator struct {
	S3     s3client.API
	Store  Store
	Logger *telemetry.Logger
	Config Config
}

// New builds a Coordinator with cfg.
func New(client s3client.API, st Store, logger *telemetry.Logger, cfg Config) *Coordinator {
	return &Coordinator{S3: client, Store: st, Logger: logger, Config: cfg}
}

// RequestAll requests a Glacier restore for every cold-storage object
// that does not already have one outstanding. A RestoreAlreadyInProgress
// response is treated as success rather than an error, since it means a
// prior run already made this same request.
func (c *Coordinator) RequestAll(ctx context.Context) error {
	files, err := c.Store.GetGlacierFilesNeedingRestore()
	if err != nil {
		return fmt.Errorf("list files needing restore: %w", err)
	}
	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.requestOne(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) requestOne(ctx context.Context, f migration.ObjectRecord) error {
	tier := c.Config.Tier
	if f.StorageClass == migration.StorageClassDeepArchive {
		tier = "Bulk"
	}

	_, err := c.S3.RestoreObject(ctx, &s3.RestoreObjectInput{
		Bucket: aws.String(f.Bucket),
		Key:    aws.String(f.Key),
		RestoreRequest: &types.RestoreRequest{
			Days: aws.Int32(c.Config.Days),
			GlacierJobParameters: &types.GlacierJobParameters{
				Tier: types.Tier(tier),
			},
		},
	})
	if err != nil {
		if isRestoreAlreadyInProgress(err) {
			return c.Store.MarkGlacierRestoreRequested(f.Bucket, f.Key)
		}
		return fmt.Errorf("restore %s/%s: %w", f.Bucket, f.Key, err)
	}
	if c.Logger != nil {
		c.Logger.LogBucketProgress(ctx, f.Bucket, 1, f.Size)
	}
	return c.Store.MarkGlacierRestoreRequested(f.Bucket, f.Key)
}

func isRestoreAlreadyInProgress(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "RestoreAlreadyInProgress"
	}
	return false
}

// WaitForAll polls every file still restoring until none remain,
// sleeping Config.PollInterval between passes. It returns as soon as
// ctx is canceled so an interrupted run leaves a clean, resumable state.
func (c *Coordinator) WaitForAll(ctx context.Context) error {
	for {
		restoring, err := c.Store.GetFilesRestoring()
		if err != nil {
			return fmt.Errorf("list files restoring: %w", err)
		}
		if len(restoring) == 0 {
			return nil
		}

		for _, f := range restoring {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			done, err := c.checkOne(ctx, f)
			if err != nil {
				return err
			}
			if done && c.Logger != nil {
				c.Logger.LogBucketProgress(ctx, f.Bucket, 1, f.Size)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Config.PollInterval):
		}
	}
}

func (c *Coordinator) checkOne(ctx context.Context, f migration.ObjectRecord) (bool, error) {
	resp, err := c.S3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(f.Bucket),
		Key:    aws.String(f.Key),
	})
	if err != nil {
		return false, fmt.Errorf("head object %s/%s: %w", f.Bucket, f.Key, err)
	}
	if resp.Restore == nil {
		return false, nil
	}
	if !restoreComplete(*resp.Restore) {
		return false, nil
	}
	if err := c.Store.MarkGlacierRestored(f.Bucket, f.Key); err != nil {
		return false, err
	}
	return true, nil
}

func restoreComplete(restoreHeader string) bool {
	return strings.Contains(restoreHeader, `ongoing-request="false"`)
}
