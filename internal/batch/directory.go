package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/keyword-estimator/constants"
)

// Discover walks root and returns the PDFs below it in walk order. Walk
// errors are returned as failed results and do not stop the walk.
func Discover(root string, skipHidden bool) ([]string, []FileResult, Stats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, Stats{}, errors.New("root path is required")
	}

	var (
		paths  []string
		failed []FileResult
		stats  Stats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			failed = append(failed, FileResult{Path: path, Outcome: constants.OutcomeFailed, Err: walkErr})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !constants.IsPDF(path) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, failed, stats, fmt.Errorf("walk: %w", err)
	}
	return paths, failed, stats, nil
}

// ProcessDirectory values every PDF under root with at most workers
// documents in flight. Results follow walk order.
func (p *Processor) ProcessDirectory(ctx context.Context, root string, workers int, skipHidden bool) ([]FileResult, Stats, error) {
	paths, failed, stats, err := Discover(root, skipHidden)
	if err != nil {
		return failed, stats, err
	}
	if workers <= 0 {
		workers = 1
	}
	p.logger.Info("batch.directory.start", "root", root, "files", len(paths), "workers", workers)

	results := make([]FileResult, len(paths))
	g := new(errgroup.Group)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.processFile(ctx, root, path)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		stats.add(r)
	}
	p.logger.Info("batch.directory.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"cancelled", stats.Cancelled,
	)
	return append(failed, results...), stats, nil
}

// IsHidden reports whether a file or directory name starts with '.'.
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
