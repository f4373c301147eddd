package cmd

import (
	"fmt"

	"c3dl/core/config"
	"c3dl/core/logger"
	"c3dl/feature/mirror"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cleanEvent  string
	cleanOutput string
)

// cleanCmd removes leftover partial transfer files.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover partial transfer files",
	Long: `Remove .part files left behind by interrupted transfers.

Normally partial files should be kept, the next run resumes them from
where they stopped. Use this only when partials are known to be stale,
for example after the remote files were replaced.`,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVarP(&cleanEvent, "event", "c", "", "Event identifier, e.g. 39c3")
	cleanCmd.Flags().StringVarP(&cleanOutput, "output", "o", "", "Base directory of the event tree")

	RootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("event") {
		cfg.Mirror.Event = cleanEvent
	}
	if cmd.Flags().Changed("output") {
		cfg.Mirror.BaseDir = cleanOutput
	}

	layout, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	l = logger.WithEvent(l, layout.Event)

	removed, err := mirror.CleanPartials(layout.ReleasesDir, layout.ReliveDir)
	if err != nil {
		return err
	}

	l.Info("removed partial transfer files", zap.Int("count", removed))
	return nil
}
