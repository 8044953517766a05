package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan struct{}, 16)}
}

func (r *recorder) onChange(_ context.Context, paths []string) {
	r.mu.Lock()
	r.batches = append(r.batches, paths)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *recorder) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[len(r.batches)-1]
}

func TestWatcher_FileAndDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	dump := filepath.Join(dir, "out", "graph.cfg")
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(filepath.Dir(dump), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(dump, []byte("begin_compilation\n"), 0644))

	rec := newRecorder()
	w, err := New([]string{dump, src}, []string{".java"}, 30*time.Millisecond, rec.onChange)
	require.NoError(t, err)
	assert.Len(t, w.GetWatchedDirs(), 3)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "README"), []byte("x"), 0644))

	require.NoError(t, os.WriteFile(dump, []byte("begin_cfg\n"), 0644))
	assert.Equal(t, []string{dump}, rec.wait(t))

	java := filepath.Join(src, "sub", "Main.java")
	require.NoError(t, os.WriteFile(java, []byte("/// CHECK-START: a b\n"), 0644))
	assert.Equal(t, []string{java}, rec.wait(t))

	stats := w.GetStats()
	assert.GreaterOrEqual(t, stats.Runs, 2)
	assert.GreaterOrEqual(t, stats.Events, 2)
	assert.Equal(t, java, stats.LastEventPath)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	file := filepath.Join(t.TempDir(), "graph.cfg")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	w, err := New([]string{file}, nil, 0, func(context.Context, []string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
}

func TestWatcher_NewDirectoryUnderRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := t.TempDir()
	rec := newRecorder()
	w, err := New([]string{src}, []string{".java"}, 30*time.Millisecond, rec.onChange)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	nested := filepath.Join(src, "pkg")
	require.NoError(t, os.Mkdir(nested, 0755))
	require.Eventually(t, func() bool {
		return slices.Contains(w.GetWatchedDirs(), nested)
	}, 5*time.Second, 10*time.Millisecond)

	java := filepath.Join(nested, "Added.java")
	require.NoError(t, os.WriteFile(java, []byte("/// CHECK-START: a b\n"), 0644))
	assert.Contains(t, rec.wait(t), java)
}

func TestWatcher_StartFailureClosesWatcher(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := filepath.Join(t.TempDir(), "src")
	require.NoError(t, os.Mkdir(dir, 0755))
	w, err := New([]string{dir}, []string{".java"}, 0, func(context.Context, []string) {})
	require.NoError(t, err)

	require.NoError(t, os.Remove(dir))
	assert.Error(t, w.Start(context.Background()))
	// Nothing is running after a failed Start.
	w.Stop()
}

func TestNew_MissingPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := New([]string{filepath.Join(t.TempDir(), "nope")}, nil, 0, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
