package scanner

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/catalog"
	"github.com/solidstone/mediascan/internal/models"
	"github.com/solidstone/mediascan/internal/parser"
)

type fakeCatalog struct {
	info    catalog.VideosInfo
	matched map[string]bool

	// The monitor dispatches from timer goroutines.
	mu      sync.Mutex
	created [][]models.Video
	deleted [][]string
	issues  map[string]string
	cleared []string
}

func (f *fakeCatalog) createdBatches() [][]models.Video {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]models.Video(nil), f.created...)
}

func (f *fakeCatalog) deletedBatches() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.deleted...)
}

func (f *fakeCatalog) GetVideos(ctx context.Context) (*catalog.VideosInfo, error) {
	info := f.info
	if info.Guesses == nil {
		info.Guesses = map[string]map[string]catalog.GuessHit{}
	}
	return &info, nil
}

func (f *fakeCatalog) CreateVideos(ctx context.Context, videos []models.Video) ([]catalog.CreatedVideo, error) {
	f.mu.Lock()
	f.created = append(f.created, videos)
	f.mu.Unlock()
	out := make([]catalog.CreatedVideo, len(videos))
	for i, v := range videos {
		out[i] = catalog.CreatedVideo{ID: "id-" + filepath.Base(v.Path), Path: v.Path, Guess: v.Guess}
		if f.matched[v.Path] {
			out[i].Entries = []struct {
				Slug string `json:"slug"`
			}{{Slug: "matched"}}
		}
	}
	return out, nil
}

func (f *fakeCatalog) DeleteVideos(ctx context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, paths)
	return nil
}

func (f *fakeCatalog) CreateIssue(ctx context.Context, path, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.issues == nil {
		f.issues = map[string]string{}
	}
	f.issues[path] = reason
	return nil
}

func (f *fakeCatalog) DeleteIssue(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, path)
	return nil
}

type fakeRequests struct {
	enqueued     []models.Request
	clearedCount int
}

func (f *fakeRequests) Enqueue(ctx context.Context, req models.Request) error {
	f.enqueued = append(f.enqueued, req)
	return nil
}

func (f *fakeRequests) ClearFailed(ctx context.Context) error {
	f.clearedCount++
	return nil
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func newTestScanner(cat *fakeCatalog, reqs *fakeRequests) *Scanner {
	return New(cat, reqs, parser.New(), nil, nil)
}

func TestScanRegistersNewFilesAndEnqueues(t *testing.T) {
	root := t.TempDir()
	movie := touch(t, filepath.Join(root, "Inception (2010).mkv"))
	touch(t, filepath.Join(root, "notes.txt"))

	cat := &fakeCatalog{}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	assert.Equal(t, 1, reqs.clearedCount)
	require.Len(t, cat.created, 1)
	require.Len(t, cat.created[0], 1)
	assert.Equal(t, movie, cat.created[0][0].Path)
	assert.Empty(t, cat.deleted)

	require.Len(t, reqs.enqueued, 1)
	req := reqs.enqueued[0]
	assert.Equal(t, models.RequestMovie, req.Kind)
	assert.Equal(t, "Inception", req.Title)
	require.NotNil(t, req.Year)
	assert.Equal(t, 2010, *req.Year)
	require.Len(t, req.Videos, 1)
	assert.Equal(t, "id-Inception (2010).mkv", req.Videos[0].ID)

	assert.Contains(t, cat.cleared, movie, "a successful registration clears any stale issue")
}

func TestScanIsIdempotentForKnownFiles(t *testing.T) {
	root := t.TempDir()
	movie := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{info: catalog.VideosInfo{Paths: []string{movie}}}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	assert.Empty(t, cat.created)
	assert.Empty(t, cat.deleted)
	assert.Empty(t, reqs.enqueued)
}

func TestScanDeletesMissingFiles(t *testing.T) {
	root := t.TempDir()
	kept := touch(t, filepath.Join(root, "Inception (2010).mkv"))
	gone := filepath.Join(root, "Old Movie (1999).mkv")

	cat := &fakeCatalog{info: catalog.VideosInfo{Paths: []string{kept, gone}}}
	s := newTestScanner(cat, &fakeRequests{})

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.deleted, 1)
	assert.Equal(t, []string{gone}, cat.deleted[0])
}

func TestScanSkipsDeletionWhenTheWholeLibraryVanished(t *testing.T) {
	root := t.TempDir()

	cat := &fakeCatalog{info: catalog.VideosInfo{Paths: []string{
		"/video/a.mkv", "/video/b.mkv",
	}}}
	s := newTestScanner(cat, &fakeRequests{})

	require.NoError(t, s.Scan(context.Background(), root, true))

	assert.Empty(t, cat.deleted, "an empty disk must not wipe the catalog")
}

func TestScanReRegistersUnmatchedFiles(t *testing.T) {
	root := t.TempDir()
	movie := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{info: catalog.VideosInfo{
		Paths:     []string{movie},
		Unmatched: []string{movie},
	}}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.created, 1)
	assert.Equal(t, movie, cat.created[0][0].Path)
	assert.Len(t, reqs.enqueued, 1)
}

func TestScanHonorsIgnoreMarkerAndPattern(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "hidden", ".ignore"))
	touch(t, filepath.Join(root, "hidden", "Secret (2020).mkv"))
	touch(t, filepath.Join(root, "samples", "sample.mkv"))
	wanted := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{}
	s := New(cat, &fakeRequests{}, parser.New(), nil, mustCompile(t, "samples"))

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.created, 1)
	require.Len(t, cat.created[0], 1)
	assert.Equal(t, wanted, cat.created[0][0].Path)
}

func TestScanBatchesRegistrations(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < registerBatchSize+5; i++ {
		touch(t, filepath.Join(root, "Movies", "Movie "+string(rune('A'+i))+" (2010).mkv"))
	}

	cat := &fakeCatalog{}
	s := newTestScanner(cat, &fakeRequests{})

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.created, 2)
	assert.Len(t, cat.created[0], registerBatchSize)
	assert.Len(t, cat.created[1], 5)
}

func TestUnparseablePathBecomesAnIssue(t *testing.T) {
	root := t.TempDir()
	// Two seasons with no episode marker is ambiguous on purpose.
	bad := touch(t, filepath.Join(root, "Some Show S01 - S02.mkv"))
	good := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	assert.Contains(t, cat.issues, bad)
	require.Len(t, cat.created, 1)
	require.Len(t, cat.created[0], 1)
	assert.Equal(t, good, cat.created[0][0].Path)
}

func TestMatchedVideosAreNotEnqueued(t *testing.T) {
	root := t.TempDir()
	movie := touch(t, filepath.Join(root, "Inception (2010).mkv"))

	cat := &fakeCatalog{matched: map[string]bool{movie: true}}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.created, 1)
	assert.Empty(t, reqs.enqueued)
}

func TestExtrasAreRegisteredButNeverEnqueued(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Inception (2010)", "trailers", "teaser.mkv"))

	cat := &fakeCatalog{}
	reqs := &fakeRequests{}
	s := newTestScanner(cat, reqs)

	require.NoError(t, s.Scan(context.Background(), root, true))

	require.Len(t, cat.created, 1)
	assert.Equal(t, models.GuessKindExtra, cat.created[0][0].Guess.Kind)
	assert.Empty(t, reqs.enqueued)
}

func TestTargetsResolveAgainstExistingGuesses(t *testing.T) {
	one := 1
	info := &catalog.VideosInfo{Guesses: map[string]map[string]catalog.GuessHit{
		"Frieren": {
			"unknown": {ID: "x", Slug: "frieren"},
			"2023":    {ID: "y", Slug: "frieren-2023"},
		},
	}}
	s := newTestScanner(&fakeCatalog{}, &fakeRequests{})

	video := &models.Video{Guess: models.Guess{
		Title:    "Frieren",
		Kind:     models.GuessKindEpisode,
		Years:    []int{2023},
		Episodes: []models.GuessEpisode{{Season: &one, Episode: 4}},
	}}
	targets := s.targets(video, info)

	require.Len(t, targets, 2)
	assert.Equal(t, models.TargetEpisode, targets[0].Kind)
	assert.Equal(t, "frieren", targets[0].Serie)
	assert.Equal(t, "frieren-2023", targets[1].Serie)
	assert.Equal(t, 1, targets[1].Season)
	assert.Equal(t, 4, targets[1].Episode)
}

func TestTargetsFileSeasonlessEpisodesAsSpecials(t *testing.T) {
	zero := 0
	info := &catalog.VideosInfo{Guesses: map[string]map[string]catalog.GuessHit{
		"One Piece": {"unknown": {ID: "x", Slug: "one-piece"}},
	}}
	s := newTestScanner(&fakeCatalog{}, &fakeRequests{})

	video := &models.Video{Guess: models.Guess{
		Title:    "One Piece",
		Kind:     models.GuessKindEpisode,
		Episodes: []models.GuessEpisode{{Episode: 1090}, {Season: &zero, Episode: 3}},
	}}
	targets := s.targets(video, info)

	require.Len(t, targets, 2)
	assert.Equal(t, models.TargetSpecial, targets[0].Kind)
	assert.Equal(t, "one-piece", targets[0].Serie)
	assert.Equal(t, 1090, targets[0].Special)
	assert.Equal(t, models.TargetSpecial, targets[1].Kind)
	assert.Equal(t, 3, targets[1].Special)
}

func TestTargetsCarryGuessedExternalIDs(t *testing.T) {
	info := &catalog.VideosInfo{Guesses: map[string]map[string]catalog.GuessHit{}}
	s := newTestScanner(&fakeCatalog{}, &fakeRequests{})

	video := &models.Video{Guess: models.Guess{
		Title:      "Bubble",
		Kind:       models.GuessKindMovie,
		ExternalID: map[string]string{"themoviedatabase": "912598"},
	}}
	targets := s.targets(video, info)

	require.Len(t, targets, 1)
	assert.Equal(t, models.TargetExternalID, targets[0].Kind)
	assert.Equal(t, "912598", targets[0].ExternalID["themoviedatabase"].DataID)
}

func TestScanFileIgnoresNonVideos(t *testing.T) {
	cat := &fakeCatalog{}
	s := newTestScanner(cat, &fakeRequests{})

	require.NoError(t, s.ScanFile(context.Background(), "/video/notes.txt"))
	assert.Empty(t, cat.created)
}

func mustCompile(t *testing.T, pattern string) *regexp.Regexp {
	t.Helper()
	rx, err := regexp.Compile(pattern)
	require.NoError(t, err)
	return rx
}
