// Package check drives a whole consistency run: it reconciles the primary
// and mirror directories against the catalog index and dispatches file pairs
// to the block comparator.
package check

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/replicheck/replicheck/internal/catalog"
	"github.com/replicheck/replicheck/internal/classify"
	"github.com/replicheck/replicheck/internal/compare"
	"github.com/replicheck/replicheck/internal/event"
	"github.com/replicheck/replicheck/internal/pagemask"
	"github.com/replicheck/replicheck/internal/stats"
	"github.com/replicheck/replicheck/internal/wal"
)

// Config describes one check run.
type Config struct {
	PrimaryDir string
	MirrorDir  string
	Include    classify.IncludeSet
	Catalog    catalog.Catalog
	Checkpoint wal.Checkpointer
	Sync       compare.Syncer
	Masks      *pagemask.Registry // nil means the default registry
	Events     chan<- event.Event
	Stats      *stats.Collector
	Log        *slog.Logger
}

func (cfg *Config) log() *slog.Logger {
	if cfg.Log != nil {
		return cfg.Log
	}
	return slog.Default()
}

// Run performs the full reconciliation. The boolean is the conjunction of
// every file comparison; warnings (unresolvable files, extra mirror files)
// are diagnostics only and never flip it. An error return means the run could
// not start at all: those are the only fatal conditions.
func Run(ctx context.Context, cfg Config) (bool, error) {
	masks := cfg.Masks
	if masks == nil {
		masks = pagemask.NewRegistry()
	}
	comparator := &compare.Comparator{
		Sync:   cfg.Sync,
		Masks:  masks,
		Events: cfg.Events,
		Stats:  cfg.Stats,
		Log:    cfg.Log,
	}

	event.Emit(cfg.Events, event.Event{Type: event.CheckStarted, Path: cfg.PrimaryDir})

	// Checkpoint up front so the primary's on-disk state is reasonably
	// current before any comparison begins. The standby may not have applied
	// it yet; the comparator's retry path re-checkpoints and waits.
	if err := cfg.Checkpoint.RequestCheckpoint(ctx, true, true); err != nil {
		return false, fmt.Errorf("initial checkpoint: %w", err)
	}

	index, err := catalog.BuildIndex(ctx, cfg.Catalog)
	if err != nil {
		return false, err
	}
	cfg.log().Debug("catalog index built", "objects", index.Len())

	allMatch, err := scanPrimary(ctx, cfg, index, comparator)
	if err != nil {
		return false, err
	}

	if err := scanMirror(ctx, cfg, index); err != nil {
		return false, err
	}

	event.Emit(cfg.Events, event.Event{Type: event.CheckCompleted, Path: cfg.PrimaryDir})
	return allMatch, nil
}

// scanPrimary compares every recognized, included primary file against its
// mirror counterpart, recording observed segment numbers as it goes.
func scanPrimary(ctx context.Context, cfg Config, index *catalog.Index, comparator *compare.Comparator) (bool, error) {
	entries, err := os.ReadDir(cfg.PrimaryDir)
	if err != nil {
		return false, fmt.Errorf("read primary directory: %w", err)
	}

	allMatch := true
	for _, dent := range entries {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		name := dent.Name()
		if dent.IsDir() || shouldSkip(name) {
			continue
		}

		filenode, segment, hasSegment, ok := parseName(name)
		var entry *catalog.Entry
		if ok {
			entry = index.Lookup(filenode)
		}
		if entry == nil {
			cfg.log().Warn("filenode not present in primary catalog", "name", name)
			event.Emit(cfg.Events, event.Event{Type: event.FileUnresolved, Path: name})
			if cfg.Stats != nil {
				cfg.Stats.AddFilesUnresolved(1)
			}
			continue
		}

		// No access method means no comparable storage (partitioned parent,
		// for instance).
		if entry.AccessMethod == catalog.AMNone {
			continue
		}

		category := classify.Classify(entry.AccessMethod, entry.Kind)
		if !cfg.Include.Contains(category) {
			cfg.log().Debug("category not requested", "name", name, "category", category.String())
			event.Emit(cfg.Events, event.Event{
				Type:     event.FileSkipped,
				Path:     name,
				Category: category.String(),
			})
			if cfg.Stats != nil {
				cfg.Stats.AddFilesSkipped(1)
			}
			continue
		}

		if hasSegment {
			entry.AddSegment(segment)
		}

		match := comparator.CompareFiles(ctx,
			filepath.Join(cfg.PrimaryDir, name),
			filepath.Join(cfg.MirrorDir, name),
			entry)
		allMatch = allMatch && match
	}

	return allMatch, nil
}

// scanMirror verifies that every recognized mirror file was observed on the
// primary, warning about leftovers. Warnings only; the result is phase 2's.
func scanMirror(ctx context.Context, cfg Config, index *catalog.Index) error {
	entries, err := os.ReadDir(cfg.MirrorDir)
	if err != nil {
		return fmt.Errorf("read mirror directory: %w", err)
	}

	for _, dent := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := dent.Name()
		if dent.IsDir() || shouldSkip(name) {
			continue
		}

		filenode, segment, hasSegment, ok := parseName(name)
		var entry *catalog.Entry
		if ok {
			entry = index.Lookup(filenode)
		}
		if entry == nil {
			cfg.log().Warn("found extra unknown file on mirror",
				"path", filepath.Join(cfg.MirrorDir, name))
			event.Emit(cfg.Events, event.Event{Type: event.ExtraUnknownFile, Path: name})
			if cfg.Stats != nil {
				cfg.Stats.AddExtraFiles(1)
			}
			continue
		}

		if !hasSegment || entry.HasSegment(segment) {
			continue
		}
		category := classify.Classify(entry.AccessMethod, entry.Kind)
		if !cfg.Include.Contains(category) {
			continue
		}

		cfg.log().Warn("found extra file on mirror",
			"category", category.String(),
			"path", filepath.Join(cfg.MirrorDir, name))
		event.Emit(cfg.Events, event.Event{
			Type:     event.ExtraFile,
			Path:     name,
			Category: category.String(),
		})
		if cfg.Stats != nil {
			cfg.Stats.AddExtraFiles(1)
		}
	}

	return nil
}
