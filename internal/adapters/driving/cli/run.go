package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveindex/internal/core/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync pass",
	Long: `Runs one full pass: deleted files are removed from the index, then new
and changed files are downloaded, analysed and indexed.

Only one run may be active per lock file. A second run exits with an error.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lockPath, err := cfg.LockPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := withRunLock(app.Pipeline, lockPath).Run(ctx)
	if err != nil {
		return err
	}
	printSummary(cmd, summary)
	// Exit non-zero so that a root that keeps failing is noticed.
	return summary.Incomplete()
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printSummary(cmd *cobra.Command, s *domain.RunSummary) {
	cmd.Printf("Run finished in %s\n", s.Duration().Round(time.Millisecond))
	cmd.Printf("  Enumerated:  %d\n", s.Enumerated)
	cmd.Printf("  Processed:   %d\n", s.Processed())
	cmd.Printf("  Unchanged:   %d\n", s.Unchanged)
	cmd.Printf("  Skipped:     %d\n", s.Skipped())
	cmd.Printf("  Failed:      %d\n", s.Failed())
	cmd.Printf("  Timed out:   %d\n", s.TimedOut())
	cmd.Printf("  Deleted:     %d (images removed %d, failed %d)\n",
		s.Deleted, s.BlobsDeleted, s.BlobDeleteFailures)
	if s.ReconcileSkipped {
		cmd.Printf("  Deletion reconciliation skipped: %d enumeration failure(s)\n", s.EnumerationFailures)
		for _, msg := range s.EnumerationErrors {
			cmd.Printf("    %s\n", msg)
		}
	}

	for _, o := range s.Outcomes {
		if o.Status == domain.StatusFailed || o.Status == domain.StatusTimedOut {
			cmd.Printf("  %s %s (%s): %s\n", o.Status, o.FileName, o.FileID, o.Reason)
		}
	}
}
