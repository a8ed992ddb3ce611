// Package sourcesync imports word lists from local directories and git
// repositories into a collection.
package sourcesync

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/conorfennell/vocabdeck/internal/domain"
	"github.com/conorfennell/vocabdeck/internal/gitsource"
	"github.com/conorfennell/vocabdeck/internal/parser"
	"github.com/conorfennell/vocabdeck/internal/scheduler"
	"github.com/conorfennell/vocabdeck/internal/storage"
	"github.com/conorfennell/vocabdeck/internal/term"
)

// Options controls a sync run.
type Options struct {
	// Sources are local paths (directories or single files) and git URLs.
	Sources []string
	// ReposDir holds git checkouts.
	ReposDir string
	// Prune removes cards whose word no longer appears in any source.
	Prune  bool
	Logger *zap.Logger
}

// Report summarizes a sync run.
type Report struct {
	Parsed   int
	Inserted int
	Updated  int
	Removed  int
	Errors   []error
}

func (r Report) changed() bool {
	return r.Inserted+r.Updated+r.Removed > 0
}

// Run reads every source, reconciles the entries into s and saves the
// collection when anything changed. Problems with individual sources or
// files are collected in the report; only a failed save is returned as an
// error. With Prune set, a run in which any source failed removes nothing.
func Run(ctx context.Context, s *scheduler.Scheduler, opts Options) (Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Starting sync", zap.Int("sources", len(opts.Sources)))

	var report Report
	found := make(map[string]domain.Entry) // folded key -> entry
	sourceFailed := false

	for _, source := range opts.Sources {
		path := source
		if gitsource.IsRemote(source) {
			localPath, err := gitsource.LocalPath(opts.ReposDir, source)
			if err != nil {
				report.Errors = append(report.Errors, err)
				sourceFailed = true
				continue
			}
			if err := gitsource.Sync(ctx, logger, source, localPath); err != nil {
				logger.Error("Error syncing git repo", zap.String("url", source), zap.Error(err))
				report.Errors = append(report.Errors, err)
				sourceFailed = true
				continue
			}
			path = localPath
		}

		entries, errs := readSource(path)
		if len(errs) > 0 {
			sourceFailed = true
		}
		report.Errors = append(report.Errors, errs...)
		for _, e := range entries {
			key := term.Normalize(e.Key)
			if key == "" {
				continue
			}
			folded := term.Fold(key)
			if _, dup := found[folded]; dup {
				logger.Debug("Word listed twice, keeping first", zap.String("key", key), zap.String("source", source))
				continue
			}
			found[folded] = domain.Entry{Key: key, Content: e.Content}
			report.Parsed++
		}
	}

	for _, e := range found {
		existing, ok := s.Find(e.Key)
		if !ok {
			if _, err := s.Insert(e.Key, e.Content); err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			report.Inserted++
			continue
		}
		if term.Fingerprint(existing.Content()) != term.Fingerprint(e.Content) {
			if err := s.UpdateContent(existing.Key(), e.Content); err != nil {
				report.Errors = append(report.Errors, err)
				continue
			}
			logger.Info("Refreshed content", zap.String("key", existing.Key()))
			report.Updated++
		}
	}

	if opts.Prune && !sourceFailed {
		for _, key := range s.Keys() {
			if _, ok := found[term.Fold(key)]; ok {
				continue
			}
			logger.Info("Word no longer listed, removing", zap.String("key", key))
			if err := s.Remove(key); err != nil {
				logger.Warn("Failed to remove card", zap.String("key", key), zap.Error(err))
				continue
			}
			report.Removed++
		}
	} else if opts.Prune {
		logger.Warn("Skipping prune because a source failed")
	}

	if report.changed() {
		if err := s.Save(ctx); err != nil {
			return report, fmt.Errorf("failed to save after sync: %w", err)
		}
	}

	logger.Info("Sync complete",
		zap.Int("parsed", report.Parsed),
		zap.Int("inserted", report.Inserted),
		zap.Int("updated", report.Updated),
		zap.Int("removed", report.Removed),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// readSource walks path and parses every supported word list under it.
func readSource(path string) ([]domain.Entry, []error) {
	var entries []domain.Entry
	var errs []error

	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		fileEntries, err := readFile(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("parsing %s: %w", p, err))
		}
		entries = append(entries, fileEntries...)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, fmt.Errorf("walking %s: %w", path, walkErr))
	}
	return entries, errs
}

func readFile(path string) ([]domain.Entry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".md":
		return parser.ParseFile(path)
	case ".json", ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		words, err := storage.ReadSeed(f, ext)
		if err != nil {
			return nil, err
		}
		entries := make([]domain.Entry, 0, len(words))
		for key, content := range words {
			entries = append(entries, domain.Entry{Key: key, Content: content})
		}
		return entries, nil
	default:
		return nil, nil
	}
}
