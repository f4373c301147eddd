package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"c3dl/core/catalog"
	"c3dl/core/config"
	"c3dl/core/lock"
	"c3dl/core/logger"
	"c3dl/core/replica"
	"c3dl/core/transfer"
	"c3dl/feature/mirror"
	"c3dl/feature/releases"
	"c3dl/feature/relive"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the run command
	runEvent        string
	runOutput       string
	runQuality      string
	runWaitSeconds  int
	runConcurrency  int
	runOnce         bool
	runReleasesOnly bool
	runReliveOnly   bool
	runDryRun       bool
	runNoCleanup    bool
)

// runCmd mirrors an event until interrupted.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Mirror an event's recordings",
	Long: `Mirror the recordings of a congress event into a local directory tree.

Releases are stored under <output>/<event>/releases, preliminary relive
recordings under <output>/<event>/relive. The command loops until
interrupted, re-checking both sources after each wait interval; transfers
interrupted at any point are resumed on the next pass.

Examples:
  # Mirror 39c3 in 1080p MP4 into the current directory
  c3dl run -c 39c3

  # Audio only, single pass, custom output directory
  c3dl run -c 39c3 -q opus --once -o /srv/media

  # Show what would happen without downloading
  c3dl run -c 39c3 --dry-run --once`,
	RunE: runMirror,
}

func init() {
	runCmd.Flags().StringVarP(&runEvent, "event", "c", "", "Event identifier, e.g. 39c3 (required unless MIRROR_EVENT is set)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "Base directory for the event tree")
	runCmd.Flags().StringVarP(&runQuality, "quality", "q", "", "Format preset (hd, sd, webm, webm-sd, mp3, opus)")
	runCmd.Flags().IntVarP(&runWaitSeconds, "wait", "w", 0, "Seconds between passes in loop mode")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Number of simultaneous downloads")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "Run a single pass instead of looping")
	runCmd.Flags().BoolVar(&runReleasesOnly, "releases-only", false, "Only mirror published releases")
	runCmd.Flags().BoolVar(&runReliveOnly, "relive-only", false, "Only mirror relive recordings")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Log planned transfers and deletions without performing them")
	runCmd.Flags().BoolVar(&runNoCleanup, "no-cleanup", false, "Keep relive recordings even after a release exists")

	RootCmd.AddCommand(runCmd)
}

func runMirror(cmd *cobra.Command, args []string) error {
	if runReleasesOnly && runReliveOnly {
		return errors.New("--releases-only and --relive-only are mutually exclusive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyRunFlags(cmd, cfg)

	layout, err := config.Resolve(cfg)
	if err != nil {
		return err
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	l = logger.WithEvent(l, layout.Event)

	// One mirror session per event; a second invocation must not race the
	// first over the same tree.
	session, err := lock.Acquire(ctx, layout.Event)
	if err != nil {
		return err
	}
	defer session.Release()

	if err := layout.EnsureDirectories(); err != nil {
		return err
	}

	if resumable := mirror.CountResumable(layout.ReleasesDir, layout.ReliveDir); resumable > 0 {
		l.Info("found interrupted transfers, they will be resumed",
			zap.Int("count", resumable))
	}

	engine, cleanup, err := buildEngine(ctx, cfg, layout, l)
	if err != nil {
		return err
	}
	defer cleanup()

	l.Info("starting mirror",
		zap.String("quality", layout.Quality),
		zap.String("format", layout.Preset.Description),
		zap.String("directory", layout.EventDir),
		zap.Bool("dry_run", runDryRun))

	for {
		summary := runPass(ctx, engine, layout, l)
		l.Info("pass finished",
			zap.Int("found", summary.Found),
			zap.Int("already_have", summary.AlreadyHave),
			zap.Int("incomplete", summary.Incomplete),
			zap.Int("matched", summary.Matched),
			zap.Int("downloaded", summary.Downloaded),
			zap.Int("failed", summary.Failed),
			zap.Int("removed", summary.Removed))

		if runOnce || ctx.Err() != nil {
			break
		}

		l.Info("waiting for next pass", zap.Duration("wait", layout.WaitTime))
		select {
		case <-ctx.Done():
		case <-time.After(layout.WaitTime):
			continue
		}
		break
	}

	if ctx.Err() != nil {
		l.Info("interrupted, partial transfers will resume on the next run")
	}
	return nil
}

// applyRunFlags overlays explicitly set command line flags onto the loaded
// configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("event") {
		cfg.Mirror.Event = runEvent
	}
	if flags.Changed("output") {
		cfg.Mirror.BaseDir = runOutput
	}
	if flags.Changed("quality") {
		cfg.Mirror.Quality = runQuality
	}
	if flags.Changed("wait") {
		cfg.Mirror.WaitSeconds = runWaitSeconds
	}
	if flags.Changed("concurrency") {
		cfg.Mirror.Concurrency = runConcurrency
	}
	if runNoCleanup {
		cfg.Mirror.Cleanup = false
	}
}

// buildEngine wires the engine's collaborators from the configuration. The
// returned cleanup closes whatever was opened.
func buildEngine(ctx context.Context, cfg *config.Config, layout *config.Layout, l *zap.Logger) (*mirror.Engine, func(), error) {
	downloader := transfer.NewDownloader(cfg.Transfer, &transfer.LogReporter{Log: l}, l)
	releaseSource := releases.NewSource(layout.FeedURL, cfg.Transfer.TimeoutSeconds, l)
	reliveSource := relive.NewSource(layout.ReliveListURL, layout.ReliveCDN, cfg.Transfer.TimeoutSeconds, l)

	cleanup := func() {}

	var history mirror.History
	if cfg.Catalog.Enabled && !runDryRun {
		store, err := catalog.Open(layout.CatalogPath)
		if err != nil {
			return nil, nil, err
		}
		history = store
		cleanup = func() { _ = store.Close() }
	}

	var replicator mirror.Replicator
	if cfg.Replica.Enabled {
		client, err := replica.NewClient(cfg.Replica)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		r := replica.NewReplicator(client, cfg.Replica.Bucket, l)
		if err := r.EnsureBucket(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		replicator = r
	}

	engine := mirror.NewEngine(mirror.Params{
		Layout:   layout,
		Fetcher:  downloader,
		Releases: releaseSource,
		Relive:   reliveSource,
		History:  history,
		Replica:  replicator,
		Log:      l,
		DryRun:   runDryRun,
	})
	return engine, cleanup, nil
}

// runPass runs one reconciliation pass honoring the source selection flags.
func runPass(ctx context.Context, engine *mirror.Engine, layout *config.Layout, l *zap.Logger) mirror.Summary {
	switch {
	case runReleasesOnly:
		var total mirror.Summary
		if summary, err := engine.SyncReleases(ctx); err != nil {
			l.Error("release pass failed", zap.Error(err))
		} else {
			total.Add(summary)
		}
		if layout.Cleanup {
			if summary, err := engine.PruneSuperseded(ctx); err != nil {
				l.Error("cleanup pass failed", zap.Error(err))
			} else {
				total.Add(summary)
			}
		}
		return total
	case runReliveOnly:
		summary, err := engine.SyncRelive(ctx)
		if err != nil {
			l.Error("relive pass failed", zap.Error(err))
		}
		return summary
	default:
		return engine.RunCycle(ctx)
	}
}
