// Package orchestrator drives the full resumable phase machine:
// scanning, Glacier restore coordination, and the per-bucket
// sync/verify/delete loop, persisting the current phase after every
// transition so an interrupted run resumes exactly where it left off.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/SatoshiReport/s3evacuate/internal/audit"
	"github.com/SatoshiReport/s3evacuate/internal/download"
	"github.com/SatoshiReport/s3evacuate/internal/humanize"
	"github.com/SatoshiReport/s3evacuate/internal/migration"
	"github.com/SatoshiReport/s3evacuate/internal/policy"
	"github.com/SatoshiReport/s3evacuate/internal/preflight"
	"github.com/SatoshiReport/s3evacuate/internal/restore"
	"github.com/SatoshiReport/s3evacuate/internal/scanner"
	"github.com/SatoshiReport/s3evacuate/internal/teardown"
	"github.com/SatoshiReport/s3evacuate/internal/telemetry"
	"github.com/SatoshiReport/s3evacuate/internal/verify"
)

// auditWindow bounds how far back a pre-delete CloudTrail lookup looks
// for recent activity against a bucket.
const auditWindow = 24 * time.Hour

// Store is the full surface the orchestrator and its components need
// from the durable state store.
type Store interface {
	scanner.Store
	restore.Store
	download.Store
	verify.Store
	teardown.Store

	GetAllBuckets() ([]string, error)
	GetCompletedBucketsForPhase(phaseField string) ([]string, error)
	GetCurrentPhase() (migration.Phase, error)
	SetCurrentPhase(phase migration.Phase) error
	GetBucketInfo(bucket string) (*migration.BucketRecord, error)
	GetScanSummary() (migration.ScanSummary, error)
}

// Orchestrator wires every phase component together and drives the
// state machine to completion, one phase transition and one bucket at
// a time.
type Orchestrator struct {
	Store     Store
	Scanner   *scanner.Scanner
	Restore   *restore.Coordinator
	Download  *download.Downloader
	Verify    *verify.Verifier
	Teardown  *teardown.Deleter
	Policy    *policy.Gate       // nil disables the protected-bucket gate
	Audit     *audit.Trail       // nil disables the pre-delete CloudTrail lookup
	Preflight *preflight.Checker // nil disables the pre-delete IAM simulation
	Logger    *telemetry.Logger
	Drive     DriveChecker
	Confirm   Confirmer
	Out       io.Writer
}

// Run executes every phase from the store's current phase through to
// PhaseComplete, or until ctx is canceled. It is safe to call Run again
// on the same store after an interruption; each phase and each
// per-bucket step checks for already-completed work before repeating it.
func (o *Orchestrator) Run(ctx context.Context) error {
	phase, err := o.Store.GetCurrentPhase()
	if err != nil {
		return fmt.Errorf("read current phase: %w", err)
	}

	if phase == migration.PhaseComplete {
		fmt.Fprintln(o.Out, "✓ Migration already complete!")
		return StatusReporter{Store: o.Store, Out: o.Out}.Show()
	}

	if phase == migration.PhaseScanning {
		if err := o.runScanPhase(ctx); err != nil {
			return err
		}
		phase = migration.PhaseGlacierRestore
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if phase == migration.PhaseGlacierRestore {
		if err := o.runGlacierRestorePhase(ctx); err != nil {
			return err
		}
		phase = migration.PhaseGlacierWait
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if phase == migration.PhaseGlacierWait {
		if err := o.runGlacierWaitPhase(ctx); err != nil {
			return err
		}
		phase = migration.PhaseSyncing
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	return o.runBucketPipeline(ctx)
}

func (o *Orchestrator) runScanPhase(ctx context.Context) error {
	fmt.Fprintln(o.Out, separator)
	fmt.Fprintln(o.Out, "PHASE 1/4: SCANNING BUCKETS")
	fmt.Fprintln(o.Out, separator)

	scanned, err := o.Store.GetCompletedBucketsForPhase("scan_complete")
	if err != nil {
		return err
	}
	already := make(map[string]bool, len(scanned))
	for _, b := range scanned {
		already[b] = true
	}

	if err := o.Scanner.ScanAll(ctx, already); err != nil {
		return fmt.Errorf("scan phase: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fmt.Fprintln(o.Out, "✓ PHASE 1 COMPLETE: Scanning")
	return o.Store.SetCurrentPhase(migration.PhaseGlacierRestore)
}

func (o *Orchestrator) runGlacierRestorePhase(ctx context.Context) error {
	fmt.Fprintln(o.Out, separator)
	fmt.Fprintln(o.Out, "PHASE 2/4: REQUESTING GLACIER RESTORES")
	fmt.Fprintln(o.Out, separator)

	if err := o.Restore.RequestAll(ctx); err != nil {
		return fmt.Errorf("glacier restore phase: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fmt.Fprintln(o.Out, "✓ PHASE 2 COMPLETE: Glacier Restore Requests")
	return o.Store.SetCurrentPhase(migration.PhaseGlacierWait)
}

func (o *Orchestrator) runGlacierWaitPhase(ctx context.Context) error {
	fmt.Fprintln(o.Out, separator)
	fmt.Fprintln(o.Out, "PHASE 3/4: WAITING FOR GLACIER RESTORES")
	fmt.Fprintln(o.Out, separator)

	if err := o.Restore.WaitForAll(ctx); err != nil {
		return fmt.Errorf("glacier wait phase: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	fmt.Fprintln(o.Out, "✓ PHASE 3 COMPLETE: Glacier Restores")
	return o.Store.SetCurrentPhase(migration.PhaseSyncing)
}

// runBucketPipeline implements spec's per-bucket loop: for every bucket
// not yet delete_complete, sync it if needed, verify it if needed, then
// offer the delete confirmation prompt. Buckets are visited in
// deterministic (sorted) order.
func (o *Orchestrator) runBucketPipeline(ctx context.Context) error {
	fmt.Fprintln(o.Out, separator)
	fmt.Fprintln(o.Out, "PHASE 4/4: MIGRATING BUCKETS (Sync -> Verify -> Delete)")
	fmt.Fprintln(o.Out, separator)

	allBuckets, err := o.Store.GetAllBuckets()
	if err != nil {
		return err
	}
	sort.Strings(allBuckets)

	completed, err := o.Store.GetCompletedBucketsForPhase("delete_complete")
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(completed))
	for _, b := range completed {
		done[b] = true
	}

	var remaining []string
	for _, b := range allBuckets {
		if !done[b] {
			remaining = append(remaining, b)
		}
	}

	if len(remaining) == 0 {
		fmt.Fprintln(o.Out, "✓ All buckets already migrated")
		return o.finishPipeline(allBuckets)
	}

	fmt.Fprintf(o.Out, "Migrating %d bucket(s)\n", len(remaining))
	fmt.Fprintf(o.Out, "Already complete: %d bucket(s)\n\n", len(completed))

	for idx, bucket := range remaining {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := o.processBucket(ctx, bucket, idx+1, len(remaining)); err != nil {
			return err
		}
	}

	return o.finishPipeline(allBuckets)
}

func (o *Orchestrator) processBucket(ctx context.Context, bucket string, idx, total int) error {
	if err := o.Drive.CheckAvailable(); err != nil {
		return err
	}

	fmt.Fprintf(o.Out, "BUCKET %d/%d: %s\n\n", idx, total, bucket)

	info, err := o.Store.GetBucketInfo(bucket)
	if err != nil {
		return err
	}
	if info == nil {
		return fmt.Errorf("bucket %s has no recorded scan data", bucket)
	}

	if !info.SyncComplete {
		fmt.Fprintln(o.Out, "-> Step 1/3: Syncing from S3...")
		if _, err := o.Download.SyncBucket(ctx, bucket); err != nil {
			return fmt.Errorf("sync %s: %w", bucket, err)
		}
		fmt.Fprintln(o.Out, "  Sync complete")
	} else {
		fmt.Fprintln(o.Out, "-> Step 1/3: Already synced")
	}

	info, err = o.Store.GetBucketInfo(bucket)
	if err != nil {
		return err
	}
	if verifyNeeded(info) {
		fmt.Fprintln(o.Out, "-> Step 2/3: Verifying local files...")
		if err := o.Verify.VerifyBucket(bucket); err != nil {
			return fmt.Errorf("verify %s: %w", bucket, err)
		}
		fmt.Fprintln(o.Out, "  Verification complete")
	} else {
		fmt.Fprintln(o.Out, "-> Step 2/3: Already verified")
	}

	info, err = o.Store.GetBucketInfo(bucket)
	if err != nil {
		return err
	}
	if !info.DeleteComplete {
		fmt.Fprintln(o.Out, "-> Step 3/3: Delete from S3")
		if err := o.deleteWithConfirmation(ctx, bucket, info); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(o.Out, "-> Step 3/3: Already deleted")
	}

	fmt.Fprintf(o.Out, "\n✓ Bucket %d/%d complete: %s\n\n", idx, total, bucket)
	return nil
}

func verifyNeeded(info *migration.BucketRecord) bool {
	if !info.VerifyComplete {
		return true
	}
	return info.VerifiedFileCount == nil
}

func (o *Orchestrator) deleteWithConfirmation(ctx context.Context, bucket string, info *migration.BucketRecord) error {
	if o.Policy != nil {
		decision, err := o.Policy.Evaluate(ctx, bucket)
		if err != nil {
			return fmt.Errorf("evaluate protected bucket policy: %w", err)
		}
		if !decision.AllowDelete {
			fmt.Fprintf(o.Out, "  Skipped - %s\n\n", decision.Reason)
			return nil
		}
	}

	showVerificationSummary(o.Out, info)

	if o.Preflight != nil {
		if denials := o.Preflight.CheckBucket(ctx, bucket); len(denials) > 0 {
			fmt.Fprintln(o.Out, "  WARNING: IAM simulation reports denied actions:")
			for _, d := range denials {
				fmt.Fprintf(o.Out, "    - %s on %s\n", d.Action, d.Resource)
			}
		}
	}

	if o.Audit != nil {
		if events := o.Audit.RecentEventsForBucket(ctx, bucket, auditWindow); len(events) > 0 {
			fmt.Fprintf(o.Out, "  Recent activity: %s\n", audit.Summary(events))
		}
	}

	fmt.Fprintln(o.Out)
	fmt.Fprintln(o.Out, "========================================")
	fmt.Fprintln(o.Out, "       READY TO DELETE BUCKET")
	fmt.Fprintln(o.Out, "========================================")
	fmt.Fprintf(o.Out, "  Bucket: %s\n", bucket)
	fmt.Fprintf(o.Out, "  Files:  %d\n", info.FileCount)
	fmt.Fprintf(o.Out, "  Size:   %s\n\n", humanize.Size(info.TotalSize))
	fmt.Fprintln(o.Out, "  Local verification: PASSED")

	if !o.Confirm.PromptYesNo("  Delete this bucket from S3? (yes/no): ") {
		fmt.Fprintln(o.Out, "  Skipped - bucket NOT deleted")
		fmt.Fprintln(o.Out, "  (You can delete it later manually)")
		return nil
	}

	fmt.Fprintf(o.Out, "  Deleting bucket '%s'...\n", bucket)
	if err := o.Teardown.DeleteBucket(ctx, bucket); err != nil {
		return fmt.Errorf("delete %s: %w", bucket, err)
	}
	fmt.Fprintln(o.Out, "  Deleted from S3")
	return nil
}

func showVerificationSummary(out io.Writer, info *migration.BucketRecord) {
	fmt.Fprintln(out, "  VERIFICATION SUMMARY")
	fmt.Fprintf(out, "  Files in S3:          %d\n", info.FileCount)
	if info.LocalFileCount != nil {
		fmt.Fprintf(out, "  Files found locally:  %d\n", *info.LocalFileCount)
	}
	if info.SizeVerifiedCount != nil {
		fmt.Fprintf(out, "  Size verified:        %d files\n", *info.SizeVerifiedCount)
	}
	if info.ChecksumVerifiedCount != nil {
		fmt.Fprintf(out, "  Checksum verified:    %d files\n", *info.ChecksumVerifiedCount)
	}
	if info.VerifiedFileCount != nil {
		fmt.Fprintf(out, "  Total verified:       %d files\n", *info.VerifiedFileCount)
	}
	if info.TotalBytesVerified != nil {
		fmt.Fprintf(out, "  Total size:           %s\n", humanize.Size(*info.TotalBytesVerified))
	}
}

func (o *Orchestrator) finishPipeline(allBuckets []string) error {
	completed, err := o.Store.GetCompletedBucketsForPhase("delete_complete")
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(completed))
	for _, b := range completed {
		done[b] = true
	}

	var incomplete int
	for _, b := range allBuckets {
		if !done[b] {
			incomplete++
		}
	}

	if incomplete == 0 {
		fmt.Fprintln(o.Out, separator)
		fmt.Fprintln(o.Out, "✓ PHASE 4 COMPLETE: All Buckets Migrated")
		fmt.Fprintln(o.Out, separator)
		return o.Store.SetCurrentPhase(migration.PhaseComplete)
	}

	fmt.Fprintln(o.Out, separator)
	fmt.Fprintln(o.Out, "MIGRATION PAUSED")
	fmt.Fprintln(o.Out, separator)
	fmt.Fprintf(o.Out, "Completed: %d/%d buckets\n", len(allBuckets)-incomplete, len(allBuckets))
	fmt.Fprintf(o.Out, "Remaining: %d buckets\n", incomplete)
	fmt.Fprintln(o.Out, "Run again to continue.")
	fmt.Fprintln(o.Out, separator)
	return nil
}
