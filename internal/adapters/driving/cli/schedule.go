package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/driveindex/internal/core/domain"
	"github.com/custodia-labs/driveindex/internal/core/services"
	"github.com/custodia-labs/driveindex/internal/logger"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run sync passes on a fixed interval",
	Long: `Starts the scheduler in the foreground. A pass runs when the ingestion
task is due (every 12h by default, see [scheduler] interval). Task state
and the last 100 results are kept in the local store.`,
	RunE: runSchedule,
}

var scheduleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scheduled task state and recent runs",
	RunE:  runScheduleStatus,
}

var historyLimit int

func init() {
	scheduleStatusCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of recent runs to show")
	scheduleCmd.AddCommand(scheduleStatusCmd)
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
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

	scheduler := services.NewScheduler(cfg.SchedulerSettings(), app.Schedules, withRunLock(app.Pipeline, lockPath))
	logger.Info("Scheduler started, interval %s", cfg.Scheduler.Interval)
	if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Scheduler stopped")
	return scheduler.Stop()
}

func runScheduleStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd)

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	task, err := app.Schedules.GetTask(ctx, domain.TaskIDIngestion)
	if err != nil {
		return err
	}
	if task == nil {
		cmd.Println("No scheduled runs recorded yet.")
		return nil
	}

	cmd.Printf("Task:         %s\n", task.Name)
	cmd.Printf("Interval:     %s\n", task.Interval)
	cmd.Printf("Last run:     %s\n", formatTime(task.LastRun))
	cmd.Printf("Last success: %s\n", formatTime(task.LastSuccess))
	cmd.Printf("Next run:     %s\n", formatTime(task.NextRun))
	if task.LastError != "" {
		cmd.Printf("Last error:   %s\n", task.LastError)
	}

	history, err := app.Schedules.GetTaskHistory(ctx, domain.TaskIDIngestion, historyLimit)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	cmd.Println()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tDURATION\tRESULT\tPROCESSED\tFAILED")
	for _, r := range history {
		result := "ok"
		if !r.Success {
			result = "error: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
			formatTime(r.StartedAt), r.EndedAt.Sub(r.StartedAt).Round(time.Second),
			result, r.ItemsProcessed, r.ItemsFailed)
	}
	return w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(time.RFC3339)
}
