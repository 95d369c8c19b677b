package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List supported files that are not indexed",
	Long: `Lists files whose last analysis did not complete and supported files
that were never ingested because they exceed the size limit.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
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

	files, err := app.Reporter.Unprocessed(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		cmd.Println("All supported files are indexed.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tSIZE\tMODIFIED\tREASON")
	for _, f := range files {
		size := "-"
		if f.Size != nil {
			size = formatBytes(*f.Size)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.FileName, f.FileID, size, formatTime(f.LastModified), f.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	cmd.Printf("\n%d file(s) not indexed\n", len(files))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
