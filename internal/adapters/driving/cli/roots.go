package cli

import (
	"github.com/spf13/cobra"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List shared drives visible to the credentials",
	Long: `Lists every shared drive the configured Google credentials can see.
Use it to check the names configured under [source] roots.`,
	RunE: runRoots,
}

func init() {
	rootCmd.AddCommand(rootsCmd)
}

func runRoots(cmd *cobra.Command, _ []string) error {
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

	roots, err := app.Reporter.Roots(ctx)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		cmd.Println("No shared drives visible.")
		return nil
	}

	configured := make(map[string]bool, len(cfg.Pipeline.Roots))
	for _, name := range cfg.Pipeline.Roots {
		configured[name] = true
	}
	for _, r := range roots {
		marker := " "
		if configured[r.Name] {
			marker = "*"
		}
		cmd.Printf("%s %s  %s\n", marker, r.Name, r.ID)
	}
	return nil
}
