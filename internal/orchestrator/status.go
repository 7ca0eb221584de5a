package orchestrator

import (
	"fmt"
	"io"

	"github.com/SatoshiReport/s3evacuate/internal/humanize"
	"github.com/SatoshiReport/s3evacuate/internal/migration"
)

// StatusReporter prints the current phase and per-bucket progress grid,
// the same information the orchestrator's resumed run starts from.
type StatusReporter struct {
	Store Store
	Out   io.Writer
}

// Show prints the full status report.
func (r StatusReporter) Show() error {
	fmt.Fprintln(r.Out)
	fmt.Fprintln(r.Out, separator)
	fmt.Fprintln(r.Out, "MIGRATION STATUS")
	fmt.Fprintln(r.Out, separator)

	phase, err := r.Store.GetCurrentPhase()
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Out, "Current Phase: %s\n\n", phase)

	if !phase.Before(migration.PhaseGlacierRestore) {
		summary, err := r.Store.GetScanSummary()
		if err != nil {
			return err
		}
		fmt.Fprintln(r.Out, "Overall Summary:")
		fmt.Fprintf(r.Out, "  Total Buckets: %d\n", summary.BucketCount)
		fmt.Fprintf(r.Out, "  Total Files: %d\n", summary.TotalFiles)
		fmt.Fprintf(r.Out, "  Total Size: %s\n\n", humanize.Size(summary.TotalSize))
	}

	allBuckets, err := r.Store.GetAllBuckets()
	if err != nil {
		return err
	}
	if len(allBuckets) == 0 {
		fmt.Fprintln(r.Out, separator)
		return nil
	}

	completed, err := r.Store.GetCompletedBucketsForPhase("delete_complete")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.Out, "Bucket Progress:")
	fmt.Fprintf(r.Out, "  Completed: %d/%d buckets\n\n", len(completed), len(allBuckets))
	fmt.Fprintln(r.Out, "Bucket Details:")

	for _, bucket := range allBuckets {
		info, err := r.Store.GetBucketInfo(bucket)
		if err != nil {
			return err
		}
		if info == nil {
			continue
		}
		fmt.Fprintf(r.Out, "  %s\n", bucket)
		fmt.Fprintf(r.Out, "    Sync:%s Verify:%s Delete:%s  (%d files, %s)\n",
			flagMark(info.SyncComplete), flagMark(info.VerifyComplete), flagMark(info.DeleteComplete),
			info.FileCount, humanize.Size(info.TotalSize))
	}
	fmt.Fprintln(r.Out, separator)
	return nil
}

func flagMark(done bool) string {
	if done {
		return "✓"
	}
	return "○"
}

const separator = "======================================================================"
