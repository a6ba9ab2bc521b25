package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/extract"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/ocr/ocrtest"
)

var spec = keywords.Spec{{Keyword: "apple", Value: 10}, {Keyword: "banana", Value: -5}}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

// tree lays out a directory with two readable PDFs, one unreadable PDF,
// a hidden PDF and a non-PDF.
func tree(t *testing.T) (string, *ocrtest.Fake) {
	root := t.TempDir()
	a := filepath.Join(root, "a.pdf")
	b := filepath.Join(root, "sub", "a.PDF")
	for _, p := range []string{
		a, b,
		filepath.Join(root, "broken.pdf"),
		filepath.Join(root, ".hidden", "c.pdf"),
		filepath.Join(root, "notes.txt"),
	} {
		touch(t, p)
	}
	fake := &ocrtest.Fake{Docs: map[string][]ocrtest.Page{
		a: ocrtest.Text("apple apple banana"),
		b: ocrtest.Text("banana"),
	}}
	return root, fake
}

func TestDiscover(t *testing.T) {
	root, _ := tree(t)

	paths, failed, stats, err := Discover(root, true)
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Len(t, paths, 3)
	assert.Equal(t, uint32(3), stats.Matched)

	paths, _, _, err = Discover(root, false)
	require.NoError(t, err)
	assert.Len(t, paths, 4)

	_, _, _, err = Discover("  ", true)
	assert.Error(t, err)
	_, _, _, err = Discover(filepath.Join(root, "missing"), true)
	assert.Error(t, err)
}

func TestProcessDirectory(t *testing.T) {
	root, fake := tree(t)
	out := t.TempDir()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	proc := NewProcessor(extract.NewPipeline(fake, fake, nil), spec, nil,
		WithExport(out, nil), WithClock(func() time.Time { return now }))

	results, stats, err := proc.ProcessDirectory(context.Background(), root, 2, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	assert.Zero(t, stats.Cancelled)
	require.Len(t, results, 3)

	byName := map[string]FileResult{}
	for _, r := range results {
		rel, _ := filepath.Rel(root, r.Path)
		byName[filepath.ToSlash(rel)] = r
	}
	assert.Equal(t, int64(15), byName["a.pdf"].Results.GrandTotal)
	assert.Equal(t, int64(-5), byName["sub/a.PDF"].Results.GrandTotal)
	assert.Equal(t, constants.OutcomeFailed, byName["broken.pdf"].Outcome)
	assert.ErrorIs(t, byName["broken.pdf"].Err, extract.ErrOpenDocument)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"a_results_20240102_030405.xlsx",
		"sub_a_results_20240102_030405.xlsx",
	}, names)
}

func TestProcessDirectoryCancelled(t *testing.T) {
	root, fake := tree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proc := NewProcessor(extract.NewPipeline(fake, fake, nil), spec, nil)

	_, stats, err := proc.ProcessDirectory(ctx, root, 1, true)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), stats.Cancelled)
	_, _, _, recognized := fake.Counts()
	assert.Zero(t, recognized)
}

func TestProcessFileWithoutKeywords(t *testing.T) {
	root, fake := tree(t)
	proc := NewProcessor(extract.NewPipeline(fake, fake, nil), nil, nil)

	res := proc.ProcessFile(context.Background(), filepath.Join(root, "a.pdf"))
	assert.Equal(t, constants.OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

func TestQueue(t *testing.T) {
	root, fake := tree(t)
	proc := NewProcessor(extract.NewPipeline(fake, fake, nil), spec, nil)

	var (
		mu  sync.Mutex
		got []FileResult
	)
	q := NewQueue(proc, nil, WithWorkers(2), WithQueueSize(1), WithResultHandler(func(r FileResult) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}))
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, filepath.Join(root, "a.pdf")))
	require.NoError(t, q.Enqueue(ctx, filepath.Join(root, "sub", "a.PDF")))
	require.NoError(t, q.Enqueue(ctx, filepath.Join(root, "broken.pdf")))

	q.Shutdown(ctx)
	q.Shutdown(ctx)
	assert.ErrorIs(t, q.Enqueue(ctx, "late.pdf"), ErrQueueClosed)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	var stats Stats
	for _, r := range got {
		stats.add(r)
	}
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "old.pdf")
	touch(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	next := func() string {
		select {
		case p := <-events:
			return p
		case <-time.After(5 * time.Second):
			t.Fatal("no watch event")
			return ""
		}
	}
	assert.Equal(t, existing, next())

	fresh := filepath.Join(root, "new.pdf")
	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, fresh)
	assert.Equal(t, fresh, next())

	cancel()
	for range events {
	}
}

func TestAddCreatedDirWatchesOnlyDirectories(t *testing.T) {
	root := t.TempDir()
	w, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	file := filepath.Join(root, "a.pdf")
	touch(t, file)
	dir := filepath.Join(root, "sub")
	hidden := filepath.Join(root, ".cache")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.Mkdir(hidden, 0o755))

	assert.False(t, addCreatedDir(w, file, true))
	assert.False(t, addCreatedDir(w, hidden, true))
	assert.False(t, addCreatedDir(w, filepath.Join(root, "gone"), true))
	assert.True(t, addCreatedDir(w, dir, true))
	assert.Equal(t, []string{dir}, w.WatchList())
}

func TestWatchRequiresRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
