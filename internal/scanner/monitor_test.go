package scanner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(t *testing.T, s *Scanner, root string) *Monitor {
	t.Helper()
	m, err := NewMonitor(s, root)
	require.NoError(t, err)
	t.Cleanup(func() { m.watcher.Close() })
	return m
}

func TestMonitorRegistersCreatedFileAfterDebounce(t *testing.T) {
	root := t.TempDir()
	movie := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{}
	m := newTestMonitor(t, newTestScanner(cat, &fakeRequests{}), root)

	ev := fsnotify.Event{Name: movie, Op: fsnotify.Create}
	m.handle(context.Background(), ev)
	m.handle(context.Background(), ev)

	require.Eventually(t, func() bool {
		return len(cat.createdBatches()) > 0
	}, 3*time.Second, 25*time.Millisecond)
	assert.Len(t, cat.createdBatches(), 1, "repeated events within the window coalesce")
}

func TestMonitorRemovesDeletedFile(t *testing.T) {
	root := t.TempDir()
	gone := filepath.Join(root, "Old Movie (1999).mkv")

	cat := &fakeCatalog{}
	m := newTestMonitor(t, newTestScanner(cat, &fakeRequests{}), root)

	m.handle(context.Background(), fsnotify.Event{Name: gone, Op: fsnotify.Remove})

	require.Eventually(t, func() bool {
		return len(cat.deletedBatches()) > 0
	}, 3*time.Second, 25*time.Millisecond)
	assert.Equal(t, []string{gone}, cat.deletedBatches()[0])
}

func TestMonitorIgnoresPartialDownloads(t *testing.T) {
	root := t.TempDir()
	cat := &fakeCatalog{}
	m := newTestMonitor(t, newTestScanner(cat, &fakeRequests{}), root)

	for _, name := range []string{"movie.mkv.part", ".movie.mkv.tmp", ".hidden.mkv"} {
		m.handle(context.Background(), fsnotify.Event{
			Name: filepath.Join(root, name), Op: fsnotify.Create,
		})
	}
	m.handle(context.Background(), fsnotify.Event{
		Name: filepath.Join(root, "movie.mkv"), Op: fsnotify.Write,
	})

	time.Sleep(debounceDelay + 200*time.Millisecond)
	assert.Empty(t, cat.createdBatches())
	assert.Empty(t, cat.deletedBatches())
}
