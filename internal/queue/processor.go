package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/solidstone/mediascan/internal/catalog"
	"github.com/solidstone/mediascan/internal/models"
	"github.com/solidstone/mediascan/internal/provider"
)

// Catalog is the slice of the catalog client the processor needs.
type Catalog interface {
	CreateMovie(ctx context.Context, movie *models.Movie) (*catalog.Resource, error)
	CreateSerie(ctx context.Context, serie *models.Serie) (*catalog.Resource, error)
	LinkVideos(ctx context.Context, links []models.VideoLink) error
}

// Metadata resolves a request to a full record, searching when no id is
// known. Implemented by the composite provider.
type Metadata interface {
	FindMovie(ctx context.Context, title string, year *int, externalID map[string]string) (*models.Movie, error)
	FindSerie(ctx context.Context, title string, year *int, externalID map[string]string, skipEntries bool) (*models.Serie, error)
}

// store is the slice of the queue the drain loop touches, separated so tests
// can drive the processor without a database.
type store interface {
	Dequeue(ctx context.Context) (*models.Request, error)
	Complete(ctx context.Context, pk int64) ([]models.RequestVideo, error)
	Fail(ctx context.Context, pk int64) error
}

// Processor drains the request queue: one logical worker per process,
// horizontal scale through SKIP LOCKED.
type Processor struct {
	queue    store
	listener *Listener
	catalog  Catalog
	meta     Metadata
}

func NewProcessor(q *Queue, l *Listener, c Catalog, m Metadata) *Processor {
	return &Processor{queue: q, listener: l, catalog: c, meta: m}
}

// Run drains on startup, then once per notification, until ctx is done.
func (p *Processor) Run(ctx context.Context) error {
	p.drain(ctx)

	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.listener.Notify():
			p.drain(ctx)
		case <-ping.C:
			if err := p.listener.Ping(); err != nil {
				return fmt.Errorf("queue: listen connection lost: %w", err)
			}
		}
	}
}

func (p *Processor) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		req, err := p.queue.Dequeue(ctx)
		if err != nil {
			log.Printf("[queue] dequeue: %v", err)
			return
		}
		if req == nil {
			return
		}

		if err := p.process(ctx, req); err != nil {
			log.Printf("[queue] request %d (%s %q): %v", req.PK, req.Kind, req.Title, err)
			if err := p.queue.Fail(ctx, req.PK); err != nil {
				log.Printf("[queue] fail %d: %v", req.PK, err)
			}
		}
	}
}

func (p *Processor) process(ctx context.Context, req *models.Request) error {
	log.Printf("[queue] processing %s %q (%d videos)", req.Kind, req.Title, len(req.Videos))
	switch req.Kind {
	case models.RequestMovie:
		return p.processMovie(ctx, req)
	case models.RequestEpisode:
		return p.processEpisode(ctx, req)
	}
	return fmt.Errorf("unknown request kind %q", req.Kind)
}

func (p *Processor) processMovie(ctx context.Context, req *models.Request) error {
	movie, err := p.meta.FindMovie(ctx, req.Title, req.Year, req.ExternalID)
	if err != nil {
		return err
	}
	for _, v := range req.Videos {
		movie.Videos = append(movie.Videos, v.ID)
	}

	res, err := p.catalog.CreateMovie(ctx, movie)
	if err != nil {
		return err
	}
	return p.complete(ctx, req, res.Slug)
}

func (p *Processor) processEpisode(ctx context.Context, req *models.Request) error {
	serie, err := p.meta.FindSerie(ctx, req.Title, req.Year, req.ExternalID, false)
	if err != nil {
		return err
	}

	for _, v := range req.Videos {
		for _, ep := range v.Episodes {
			entry := matchEntry(serie.Entries, ep)
			if entry == nil {
				log.Printf("[queue] no entry for %q S%vE%d, skipping video %s",
					req.Title, formatSeason(ep.Season), ep.Episode, v.ID)
				continue
			}
			entry.Videos = append(entry.Videos, v.ID)
		}
	}

	res, err := p.catalog.CreateSerie(ctx, serie)
	if err != nil {
		return err
	}
	return p.complete(ctx, req, res.Slug)
}

// complete deletes the row and links any videos that were merged into it
// while it was being processed.
func (p *Processor) complete(ctx context.Context, req *models.Request, slug string) error {
	final, err := p.queue.Complete(ctx, req.PK)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(req.Videos))
	for _, v := range req.Videos {
		seen[v.ID] = true
	}
	var links []models.VideoLink
	for _, v := range final {
		if seen[v.ID] {
			continue
		}
		links = append(links, models.VideoLink{ID: v.ID, For: linkTargets(req.Kind, slug, v)})
	}
	if len(links) == 0 {
		return nil
	}
	log.Printf("[queue] linking %d late videos to %s", len(links), slug)
	return p.catalog.LinkVideos(ctx, links)
}

func linkTargets(kind models.RequestKind, slug string, v models.RequestVideo) []models.Target {
	if kind == models.RequestMovie {
		return []models.Target{models.MovieTarget(slug)}
	}
	var out []models.Target
	for _, ep := range v.Episodes {
		// A missing season means an absolute number; the catalog files both
		// that and season 0 under specials.
		if ep.Season == nil || *ep.Season == 0 {
			out = append(out, models.SpecialTarget(slug, ep.Episode))
		} else {
			out = append(out, models.EpisodeTarget(slug, *ep.Season, ep.Episode))
		}
	}
	return out
}

// matchEntry finds the serie entry a guessed episode refers to. Season-less
// guesses are absolute numbers and match on Entry.Order.
func matchEntry(entries []models.Entry, ep models.GuessEpisode) *models.Entry {
	for i := range entries {
		e := &entries[i]
		if ep.Season == nil {
			if e.Order == float64(ep.Episode) {
				return e
			}
			continue
		}
		if e.SeasonNumber != nil && *e.SeasonNumber == *ep.Season &&
			e.EpisodeNumber != nil && *e.EpisodeNumber == ep.Episode {
			return e
		}
	}
	return nil
}

func formatSeason(season *int) string {
	if season == nil {
		return "?"
	}
	return fmt.Sprint(*season)
}

// Ensure the real implementations satisfy the processor's views.
var (
	_ Catalog  = (*catalog.Client)(nil)
	_ Metadata = (*provider.Composite)(nil)
)
