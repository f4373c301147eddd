package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"c3dl/core/catalog"
	"c3dl/core/config"
	"c3dl/core/match"
	"c3dl/core/names"
	"c3dl/core/transfer"
	"c3dl/feature/releases"
)

// sizeTolerance accepts existing release files whose size is at least 99% of
// the feed's advertised size. Feeds occasionally overstate sizes slightly.
const sizeTolerance = 0.99

// Fetcher downloads one object to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, job transfer.Job) error
}

// ReleaseLister lists published recordings.
type ReleaseLister interface {
	List(ctx context.Context) ([]releases.Item, error)
}

// ReliveLister discovers preliminary recordings.
type ReliveLister interface {
	List(ctx context.Context) ([]string, error)
	Title(ctx context.Context, id string) (string, bool, error)
	ContentURL(id string) string
}

// Replicator mirrors local file changes into object storage.
type Replicator interface {
	Store(ctx context.Context, localPath, objectName string) error
	Remove(ctx context.Context, objectName string) error
}

// History records finished cycles.
type History interface {
	RecordCycle(cycle *catalog.Cycle, items []catalog.Item) error
}

// Summary counts what one reconciliation pass did.
type Summary struct {
	Found       int
	AlreadyHave int
	Incomplete  int
	Matched     int
	Downloaded  int
	Failed      int
	Removed     int
}

// Add accumulates another summary into this one.
func (s *Summary) Add(other Summary) {
	s.Found += other.Found
	s.AlreadyHave += other.AlreadyHave
	s.Incomplete += other.Incomplete
	s.Matched += other.Matched
	s.Downloaded += other.Downloaded
	s.Failed += other.Failed
	s.Removed += other.Removed
}

// Params bundles the collaborators of an Engine.
type Params struct {
	Layout   *config.Layout
	Fetcher  Fetcher
	Releases ReleaseLister
	Relive   ReliveLister
	// History is optional; nil disables cycle recording.
	History History
	// Replica is optional; nil disables object-storage replication.
	Replica Replicator
	Log     *zap.Logger
	// DryRun logs planned transfers and deletions without performing them.
	DryRun bool
}

// Engine reconciles the local event tree against the release and relive
// sources. The directory tree is the only state it trusts; every cycle
// re-derives its decisions from what is on disk.
type Engine struct {
	layout   *config.Layout
	fetcher  Fetcher
	releases ReleaseLister
	relive   ReliveLister
	history  History
	replica  Replicator
	log      *zap.Logger
	dryRun   bool
}

// NewEngine creates a reconciliation engine.
func NewEngine(p Params) *Engine {
	return &Engine{
		layout:   p.Layout,
		fetcher:  p.Fetcher,
		releases: p.Releases,
		relive:   p.Relive,
		history:  p.History,
		replica:  p.Replica,
		log:      p.Log,
		dryRun:   p.DryRun,
	}
}

// cycleState collects counters and item outcomes across download workers.
type cycleState struct {
	mu      sync.Mutex
	summary Summary
	items   []catalog.Item
}

func (c *cycleState) record(title string, outcome catalog.Outcome, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch outcome {
	case catalog.OutcomeAlreadyHave:
		c.summary.AlreadyHave++
	case catalog.OutcomeIncomplete:
		c.summary.Incomplete++
	case catalog.OutcomeMatchedRelease:
		c.summary.Matched++
	case catalog.OutcomeDownloaded:
		c.summary.Downloaded++
	case catalog.OutcomeFailed:
		c.summary.Failed++
	case catalog.OutcomeRemoved:
		c.summary.Removed++
	}
	c.items = append(c.items, catalog.Item{Title: title, Outcome: outcome, SizeBytes: size})
}

// SyncReleases reconciles the releases directory against the podcast feed.
// Existing files are kept when their size is plausible, undersized ones are
// re-downloaded, and missing ones are fetched in feed order.
func (e *Engine) SyncReleases(ctx context.Context) (Summary, error) {
	items, err := e.releases.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list releases: %w", err)
	}

	started := time.Now()
	state := &cycleState{summary: Summary{Found: len(items)}}

	type job struct {
		item releases.Item
		path string
	}
	var pending []job

	for _, item := range items {
		fileName := names.Sanitize(item.Title, e.layout.Preset.Extension)
		path := filepath.Join(e.layout.ReleasesDir, fileName)

		info, err := os.Stat(path)
		if err == nil {
			if item.Length > 0 && float64(info.Size()) < float64(item.Length)*sizeTolerance {
				e.log.Warn("release file is undersized, re-downloading",
					zap.String("title", item.Title),
					zap.Int64("have", info.Size()),
					zap.Int64("want", item.Length))
				state.record(item.Title, catalog.OutcomeIncomplete, info.Size())
				if e.dryRun {
					continue
				}
				if err := os.Remove(path); err != nil {
					e.log.Error("failed to remove undersized file", zap.Error(err))
					continue
				}
			} else {
				state.record(item.Title, catalog.OutcomeAlreadyHave, info.Size())
				continue
			}
		}

		pending = append(pending, job{item: item, path: path})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.layout.Concurrency)
	for _, j := range pending {
		j := j
		g.Go(func() error {
			e.download(gctx, state, j.item.Title, transfer.Job{
				URL:          j.item.URL,
				OutputPath:   j.path,
				Description:  j.item.Title,
				ExpectedSize: j.item.Length,
			}, "releases")
			return nil
		})
	}
	_ = g.Wait()

	e.finishCycle(ctx, "releases", started, state)
	return state.summary, ctx.Err()
}

// SyncRelive reconciles the relive directory against the streaming site. A
// relive recording is skipped when a sufficiently similar release already
// exists; the release supersedes it.
func (e *Engine) SyncRelive(ctx context.Context) (Summary, error) {
	ids, err := e.relive.List(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list relive recordings: %w", err)
	}

	started := time.Now()
	state := &cycleState{summary: Summary{Found: len(ids)}}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.layout.Concurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			e.syncReliveOne(gctx, state, id)
			return nil
		})
	}
	_ = g.Wait()

	e.finishCycle(ctx, "relive", started, state)
	return state.summary, ctx.Err()
}

func (e *Engine) syncReliveOne(ctx context.Context, state *cycleState, id string) {
	title, ok, err := e.relive.Title(ctx, id)
	if err != nil {
		// Not a hard failure, the id is just unusable this cycle.
		e.log.Warn("failed to resolve relive title",
			zap.String("id", id), zap.Error(err))
		return
	}
	if !ok {
		// Recording still being cut, it will show up in a later cycle.
		return
	}

	fileName := names.Sanitize(title, ".mp4")
	path := filepath.Join(e.layout.ReliveDir, fileName)

	if info, err := os.Stat(path); err == nil {
		state.record(title, catalog.OutcomeAlreadyHave, info.Size())
		return
	}

	if released, found := match.FindMatch(title, e.layout.ReleasesDir, match.MediaExtensions, match.DefaultThreshold); found {
		e.log.Debug("relive recording already released",
			zap.String("title", title),
			zap.String("release", released))
		state.record(title, catalog.OutcomeMatchedRelease, 0)
		return
	}

	e.download(ctx, state, title, transfer.Job{
		URL:         e.relive.ContentURL(id),
		OutputPath:  path,
		Description: title,
	}, "relive")
}

// download runs one transfer, records its outcome and replicates the result.
func (e *Engine) download(ctx context.Context, state *cycleState, title string, job transfer.Job, subdir string) {
	if e.dryRun {
		e.log.Info("dry run, would download",
			zap.String("title", title),
			zap.String("url", job.URL))
		return
	}

	if err := e.fetcher.Fetch(ctx, job); err != nil {
		e.log.Error("download failed",
			zap.String("title", title),
			zap.Error(err))
		state.record(title, catalog.OutcomeFailed, 0)
		return
	}

	var size int64
	if info, err := os.Stat(job.OutputPath); err == nil {
		size = info.Size()
	}
	state.record(title, catalog.OutcomeDownloaded, size)
	e.log.Info("downloaded",
		zap.String("title", title),
		zap.Int64("size", size))

	e.replicate(ctx, job.OutputPath, subdir)
}

// PruneSuperseded removes relive recordings that a release now covers. Safe
// to run repeatedly; a pass over an already pruned tree removes nothing.
func (e *Engine) PruneSuperseded(ctx context.Context) (Summary, error) {
	entries, err := os.ReadDir(e.layout.ReliveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return Summary{}, nil
		}
		return Summary{}, fmt.Errorf("failed to read relive directory: %w", err)
	}

	started := time.Now()
	state := &cycleState{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) == transfer.PartSuffix {
			continue
		}

		released, found := match.FindMatch(name, e.layout.ReleasesDir, match.MediaExtensions, match.DefaultThreshold)
		if !found {
			continue
		}

		if e.dryRun {
			e.log.Info("dry run, would remove superseded relive recording",
				zap.String("file", name),
				zap.String("release", released))
			continue
		}

		path := filepath.Join(e.layout.ReliveDir, name)
		if err := os.Remove(path); err != nil {
			e.log.Error("failed to remove superseded recording",
				zap.String("file", name), zap.Error(err))
			continue
		}

		e.log.Info("removed superseded relive recording",
			zap.String("file", name),
			zap.String("release", released))
		state.record(name, catalog.OutcomeRemoved, 0)

		if e.replica != nil {
			objectName := e.layout.Event + "/relive/" + name
			if err := e.replica.Remove(ctx, objectName); err != nil {
				e.log.Warn("failed to remove replica object",
					zap.String("object", objectName), zap.Error(err))
			}
		}
	}

	e.finishCycle(ctx, "cleanup", started, state)
	return state.summary, nil
}

// RunCycle runs one full pass: releases, then relive, then cleanup. A source
// that fails to list is logged and skipped so a flaky feed never stalls the
// other source.
func (e *Engine) RunCycle(ctx context.Context) Summary {
	var total Summary

	if summary, err := e.SyncReleases(ctx); err != nil {
		e.log.Error("release pass failed", zap.Error(err))
	} else {
		total.Add(summary)
	}
	if ctx.Err() != nil {
		return total
	}

	if summary, err := e.SyncRelive(ctx); err != nil {
		e.log.Error("relive pass failed", zap.Error(err))
	} else {
		total.Add(summary)
	}
	if ctx.Err() != nil {
		return total
	}

	if e.layout.Cleanup {
		if summary, err := e.PruneSuperseded(ctx); err != nil {
			e.log.Error("cleanup pass failed", zap.Error(err))
		} else {
			total.Add(summary)
		}
	}

	return total
}

func (e *Engine) replicate(ctx context.Context, localPath, subdir string) {
	if e.replica == nil {
		return
	}
	objectName := e.layout.Event + "/" + subdir + "/" + filepath.Base(localPath)
	if err := e.replica.Store(ctx, localPath, objectName); err != nil {
		e.log.Warn("failed to replicate object",
			zap.String("object", objectName), zap.Error(err))
	}
}

func (e *Engine) finishCycle(ctx context.Context, source string, started time.Time, state *cycleState) {
	if e.history == nil || e.dryRun {
		return
	}
	if ctx.Err() != nil {
		return
	}
	// Passes that did nothing (idle cleanup in loop mode) leave no row.
	if state.summary == (Summary{}) && len(state.items) == 0 {
		return
	}

	s := state.summary
	cycle := &catalog.Cycle{
		Event:       e.layout.Event,
		Source:      source,
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Found:       s.Found,
		AlreadyHave: s.AlreadyHave,
		Incomplete:  s.Incomplete,
		Matched:     s.Matched,
		Downloaded:  s.Downloaded,
		Failed:      s.Failed,
		Removed:     s.Removed,
	}
	if err := e.history.RecordCycle(cycle, state.items); err != nil {
		e.log.Warn("failed to record cycle", zap.Error(err))
	}
}
