package cmd

import (
	"fmt"
	"os"
	"strings"

	"c3dl/core/catalog"
	"c3dl/core/config"
	"c3dl/core/logger"
	"c3dl/core/transfer"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	statsEvent  string
	statsOutput string
)

// statsCmd reports the state of a local mirror.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the state of a local mirror",
	Long: `Show file counts and sizes of the local event tree, plus the most
recent reconciliation passes from the history catalog.`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVarP(&statsEvent, "event", "c", "", "Event identifier, e.g. 39c3")
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "", "Base directory of the event tree")

	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("event") {
		cfg.Mirror.Event = statsEvent
	}
	if cmd.Flags().Changed("output") {
		cfg.Mirror.BaseDir = statsOutput
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

	for _, dir := range []string{layout.ReleasesDir, layout.ReliveDir} {
		files, partials, size := dirStats(dir)
		l.Info("directory contents",
			zap.String("directory", dir),
			zap.Int("files", files),
			zap.Int("partials", partials),
			zap.String("size", humanize.IBytes(uint64(size))))
	}

	if _, err := os.Stat(layout.CatalogPath); err != nil {
		return nil
	}

	store, err := catalog.Open(layout.CatalogPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cycles, err := store.RecentCycles(layout.Event, 5)
	if err != nil {
		return err
	}
	for _, c := range cycles {
		l.Info("recent pass",
			zap.String("source", c.Source),
			zap.Time("finished", c.FinishedAt),
			zap.Int("found", c.Found),
			zap.Int("downloaded", c.Downloaded),
			zap.Int("failed", c.Failed),
			zap.Int("removed", c.Removed))
	}
	return nil
}

// dirStats counts finished files, partial files and total bytes in a
// directory. A missing directory counts as empty.
func dirStats(dir string) (files, partials int, size int64) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, 0
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if strings.HasSuffix(entry.Name(), transfer.PartSuffix) {
			partials++
		} else {
			files++
		}
		size += info.Size()
	}
	return files, partials, size
}
