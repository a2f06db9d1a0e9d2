// Package scanner walks the library, keeps the catalog in sync with the
// filesystem and watches for live changes.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/solidstone/mediascan/internal/catalog"
	"github.com/solidstone/mediascan/internal/models"
	"github.com/solidstone/mediascan/internal/parser"
	"github.com/solidstone/mediascan/internal/provider"
)

// registerBatchSize bounds one POST /videos body.
const registerBatchSize = 20

// identifyParallelism caps concurrent identify calls within a batch.
const identifyParallelism = 10

// ignoreMarker makes a directory (and everything under it) invisible to the
// scanner.
const ignoreMarker = ".ignore"

// Catalog is the slice of the catalog client the scanner needs.
type Catalog interface {
	GetVideos(ctx context.Context) (*catalog.VideosInfo, error)
	CreateVideos(ctx context.Context, videos []models.Video) ([]catalog.CreatedVideo, error)
	DeleteVideos(ctx context.Context, paths []string) error
	CreateIssue(ctx context.Context, path, reason string) error
	DeleteIssue(ctx context.Context, path string) error
}

// Requests is the queue surface the scanner uses.
type Requests interface {
	Enqueue(ctx context.Context, req models.Request) error
	ClearFailed(ctx context.Context) error
}

type Scanner struct {
	catalog  Catalog
	requests Requests
	parser   *parser.Parser
	xem      *provider.Xem
	ignore   *regexp.Regexp
}

func New(cat Catalog, requests Requests, p *parser.Parser, xem *provider.Xem, ignore *regexp.Regexp) *Scanner {
	return &Scanner{catalog: cat, requests: requests, parser: p, xem: xem, ignore: ignore}
}

// Prime feeds TheXEM's known titles to the parser so multi-word show names
// survive tokenisation. Failing is fine; the parser just works unprimed.
func (s *Scanner) Prime(ctx context.Context) {
	if s.xem == nil {
		return
	}
	titles, err := s.xem.ExpectedTitles(ctx)
	if err != nil {
		log.Printf("[scanner] thexem titles unavailable: %v", err)
		return
	}
	s.parser.SetExpectedTitles(titles)
	log.Printf("[scanner] primed parser with %d known titles", len(titles))
}

// Scan reconciles the whole library with the catalog.
func (s *Scanner) Scan(ctx context.Context, root string, removeDeleted bool) error {
	log.Printf("[scanner] scanning %s", root)
	if err := s.requests.ClearFailed(ctx); err != nil {
		return fmt.Errorf("scanner: clear failed requests: %w", err)
	}

	found, err := s.walk(root)
	if err != nil {
		return err
	}
	info, err := s.catalog.GetVideos(ctx)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(info.Paths))
	for _, p := range info.Paths {
		known[p] = true
	}
	onDisk := make(map[string]bool, len(found))
	var toRegister []string
	for _, p := range found {
		onDisk[p] = true
		if !known[p] {
			toRegister = append(toRegister, p)
		}
	}
	// Unmatched paths are already registered but never got identified;
	// re-posting them re-runs identification with the current guesses.
	for _, p := range info.Unmatched {
		if onDisk[p] && known[p] {
			toRegister = append(toRegister, p)
		}
	}

	var toDelete []string
	if removeDeleted {
		for _, p := range info.Paths {
			if !onDisk[p] {
				toDelete = append(toDelete, p)
			}
		}
		// A dead mount looks like an empty library; deleting the whole
		// catalog because a disk is missing is never what anyone wants.
		if len(toRegister) == 0 && len(toDelete) > 0 && len(toDelete) == len(info.Paths) {
			log.Printf("[scanner] nothing to add and everything to delete, assuming the disk is unavailable")
			toDelete = nil
		}
	}

	for start := 0; start < len(toDelete); start += registerBatchSize {
		batch := toDelete[start:min(start+registerBatchSize, len(toDelete))]
		if err := s.catalog.DeleteVideos(ctx, batch); err != nil {
			return err
		}
	}

	log.Printf("[scanner] %d to register, %d deleted", len(toRegister), len(toDelete))
	return s.register(ctx, toRegister, info)
}

// ScanFile identifies and registers a single path, used by the monitor.
func (s *Scanner) ScanFile(ctx context.Context, path string) error {
	if !isVideo(path) {
		return nil
	}
	info, err := s.catalog.GetVideos(ctx)
	if err != nil {
		return err
	}
	return s.register(ctx, []string{path}, info)
}

// Remove unregisters a deleted path.
func (s *Scanner) Remove(ctx context.Context, path string) error {
	return s.catalog.DeleteVideos(ctx, []string{path})
}

// walk lists every video file under root, honoring .ignore markers and the
// configured ignore pattern.
func (s *Scanner) walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if s.ignored(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, err := os.Stat(filepath.Join(path, ignoreMarker)); err == nil {
				return filepath.SkipDir
			}
			return nil
		}
		if isVideo(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: walk %s: %w", root, err)
	}
	return out, nil
}

func (s *Scanner) ignored(path string) bool {
	return s.ignore != nil && s.ignore.MatchString(path)
}

// The stdlib mime table knows almost no video containers and /etc/mime.types
// is absent in scratch images, so the common ones are registered up front.
func init() {
	for ext, typ := range map[string]string{
		".mkv":  "video/x-matroska",
		".mp4":  "video/mp4",
		".m4v":  "video/mp4",
		".avi":  "video/x-msvideo",
		".mov":  "video/quicktime",
		".wmv":  "video/x-ms-wmv",
		".ts":   "video/mp2t",
		".m2ts": "video/mp2t",
		".mpg":  "video/mpeg",
		".mpeg": "video/mpeg",
		".webm": "video/webm",
		".flv":  "video/x-flv",
		".ogv":  "video/ogg",
	} {
		mime.AddExtensionType(ext, typ)
	}
}

func isVideo(path string) bool {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	return strings.HasPrefix(t, "video/")
}

// register identifies paths in batches, posts them and enqueues whatever the
// catalog could not match on its own.
func (s *Scanner) register(ctx context.Context, paths []string, info *catalog.VideosInfo) error {
	for start := 0; start < len(paths); start += registerBatchSize {
		chunk := paths[start:min(start+registerBatchSize, len(paths))]

		// Identification hits TheXEM, so the chunk runs concurrently.
		videos := make([]*models.Video, len(chunk))
		identifyErrs := make([]error, len(chunk))
		var g errgroup.Group
		g.SetLimit(identifyParallelism)
		for i, path := range chunk {
			g.Go(func() error {
				videos[i], identifyErrs[i] = s.identify(ctx, path, info)
				return nil
			})
		}
		g.Wait()

		var batch []models.Video
		for i, path := range chunk {
			if err := identifyErrs[i]; err != nil {
				// One unparseable file must not sink the batch.
				var pe *parser.ParseError
				if errors.As(err, &pe) {
					log.Printf("[scanner] %s: %s", pe.Path, pe.Reason)
					if err := s.catalog.CreateIssue(ctx, pe.Path, pe.Reason); err != nil {
						log.Printf("[scanner] report issue for %s: %v", path, err)
					}
					continue
				}
				return err
			}
			batch = append(batch, *videos[i])
		}
		if len(batch) == 0 {
			continue
		}

		created, err := s.catalog.CreateVideos(ctx, batch)
		if err != nil {
			return err
		}
		for _, c := range created {
			if err := s.catalog.DeleteIssue(ctx, c.Path); err != nil {
				log.Printf("[scanner] clear issue for %s: %v", c.Path, err)
			}
			if len(c.Entries) > 0 || c.Guess.Kind == models.GuessKindExtra {
				continue
			}
			if err := s.enqueue(ctx, c); err != nil {
				log.Printf("[scanner] enqueue %s: %v", c.Path, err)
			}
		}
	}
	return nil
}

// identify parses one path into a Video and hints the catalog with every
// target the existing library already knows.
func (s *Scanner) identify(ctx context.Context, path string, info *catalog.VideosInfo) (*models.Video, error) {
	video, err := s.parser.Parse(path)
	if err != nil {
		return nil, err
	}
	s.applyXem(ctx, video)
	video.For = s.targets(video, info)
	return video, nil
}

// applyXem rewrites a release title to its canonical show name and resolves
// season aliases before any search happens.
func (s *Scanner) applyXem(ctx context.Context, video *models.Video) {
	if s.xem == nil || video.Guess.Kind != models.GuessKindEpisode {
		return
	}
	canonical, season, ids, err := s.xem.TitleOverride(ctx, video.Guess.Title)
	if err != nil {
		log.Printf("[scanner] thexem lookup for %q: %v", video.Guess.Title, err)
		return
	}
	if canonical == "" {
		return
	}
	video.Guess.Title = canonical
	for k, v := range ids {
		if _, ok := video.Guess.ExternalID[k]; !ok {
			video.Guess.ExternalID[k] = v
		}
	}
	if season != nil {
		for i := range video.Guess.Episodes {
			if video.Guess.Episodes[i].Season == nil {
				sn := *season
				video.Guess.Episodes[i].Season = &sn
			}
		}
	}
}

// targets maps a guess onto the shows and movies the catalog already holds,
// keyed by (title, year).
func (s *Scanner) targets(video *models.Video, info *catalog.VideosInfo) []models.Target {
	guess := video.Guess
	if guess.Kind == models.GuessKindExtra {
		return nil
	}

	var out []models.Target
	byYear := info.Guesses[guess.Title]
	yearKeys := []string{"unknown"}
	for _, y := range guess.Years {
		yearKeys = append(yearKeys, strconv.Itoa(y))
	}
	seen := map[string]bool{}
	for _, key := range yearKeys {
		hit, ok := byYear[key]
		if !ok || seen[hit.Slug] {
			continue
		}
		seen[hit.Slug] = true
		if guess.Kind == models.GuessKindMovie {
			out = append(out, models.MovieTarget(hit.Slug))
			continue
		}
		for _, ep := range guess.Episodes {
			if ep.Season == nil || *ep.Season == 0 {
				out = append(out, models.SpecialTarget(hit.Slug, ep.Episode))
			} else {
				out = append(out, models.EpisodeTarget(hit.Slug, *ep.Season, ep.Episode))
			}
		}
	}

	if len(guess.ExternalID) > 0 {
		if guess.Kind == models.GuessKindMovie {
			ids := make(map[string]models.MetadataID, len(guess.ExternalID))
			for prov, id := range guess.ExternalID {
				ids[prov] = models.MetadataID{DataID: id}
			}
			out = append(out, models.ExternalIDTarget(ids))
		} else {
			for _, ep := range guess.Episodes {
				ids := make(map[string]models.EpisodeID, len(guess.ExternalID))
				for prov, id := range guess.ExternalID {
					ids[prov] = models.EpisodeID{SerieID: id, Season: ep.Season, Episode: ep.Episode}
				}
				out = append(out, models.EpisodeIDTarget(ids))
			}
		}
	}
	return out
}

func (s *Scanner) enqueue(ctx context.Context, created catalog.CreatedVideo) error {
	guess := created.Guess
	kind := models.RequestMovie
	if guess.Kind == models.GuessKindEpisode {
		kind = models.RequestEpisode
	}
	var year *int
	if len(guess.Years) > 0 {
		y := guess.Years[0]
		year = &y
	}
	externalID := guess.ExternalID
	if externalID == nil {
		externalID = map[string]string{}
	}
	return s.requests.Enqueue(ctx, models.Request{
		Kind:       kind,
		Title:      guess.Title,
		Year:       year,
		ExternalID: externalID,
		Videos:     []models.RequestVideo{{ID: created.ID, Episodes: guess.Episodes}},
	})
}
