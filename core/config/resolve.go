package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"c3dl/core/lock"
)

// Layout is the fully resolved shape of one mirror session: every path and
// URL derived from the configuration, computed once up front so the rest of
// the code never concatenates URLs or joins paths itself.
type Layout struct {
	// Event is the congress identifier.
	Event string
	// Quality is the selected quality name.
	Quality string
	// Preset is the resolved format preset.
	Preset Preset

	// EventDir is the root directory of the event tree.
	EventDir string
	// ReleasesDir holds final release recordings.
	ReleasesDir string
	// ReliveDir holds preliminary relive recordings.
	ReliveDir string

	// FeedURL is the release podcast feed for the selected preset.
	FeedURL string
	// ReliveListURL is the page listing currently available relive ids.
	ReliveListURL string
	// ReliveCDN is the base URL relive content for this event is fetched from.
	ReliveCDN string

	// LockPath is the per-event advisory lock file.
	LockPath string
	// CatalogPath is the sqlite history database.
	CatalogPath string

	// WaitTime is the pause between cycles in loop mode.
	WaitTime time.Duration
	// Concurrency is the number of simultaneous downloads.
	Concurrency int
	// Cleanup enables pruning relive files superseded by releases.
	Cleanup bool
}

// Resolve validates the mirror configuration and computes the session layout.
func Resolve(cfg *Config) (*Layout, error) {
	if cfg.Mirror.Event == "" {
		return nil, errors.New("no event configured, set mirror.event or pass --event")
	}

	preset, err := PresetFor(cfg.Mirror.Quality)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Mirror.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	eventDir := filepath.Join(cfg.Mirror.BaseDir, cfg.Mirror.Event)

	catalogPath := cfg.Catalog.Path
	if catalogPath == "" {
		catalogPath = filepath.Join(eventDir, "history.db")
	}

	return &Layout{
		Event:       cfg.Mirror.Event,
		Quality:     cfg.Mirror.Quality,
		Preset:      preset,
		EventDir:    eventDir,
		ReleasesDir: filepath.Join(eventDir, "releases"),
		ReliveDir:   filepath.Join(eventDir, "relive"),

		FeedURL: fmt.Sprintf("%s/c/%s/podcast/%s.xml",
			cfg.Mirror.MediaBase, cfg.Mirror.Event, preset.FeedName),
		ReliveListURL: fmt.Sprintf("%s/%s/relive", cfg.Mirror.StreamBase, cfg.Mirror.Event),
		ReliveCDN:     fmt.Sprintf("%s/%s", cfg.Mirror.CDNBase, cfg.Mirror.Event),

		LockPath:    lock.PathFor(cfg.Mirror.Event),
		CatalogPath: catalogPath,

		WaitTime:    time.Duration(cfg.Mirror.WaitSeconds) * time.Second,
		Concurrency: concurrency,
		Cleanup:     cfg.Mirror.Cleanup,
	}, nil
}

// EnsureDirectories creates the event directory tree if needed.
func (l *Layout) EnsureDirectories() error {
	for _, dir := range []string{l.ReleasesDir, l.ReliveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
