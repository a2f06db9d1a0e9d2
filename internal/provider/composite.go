package provider

import (
	"context"
	"log"

	"github.com/solidstone/mediascan/internal/models"
)

// Composite fans a lookup out to the configured upstreams and merges the
// results. TheMovieDatabase is the primary source for movies and TheTVDB for
// series; the other one backfills what the primary misses, and AniList joins
// in when the query carries an anime id. Any upstream may be disabled, in
// which case the next one takes over as primary.
type Composite struct {
	tmdb    *TMDB
	tvdb    *TVDB
	anilist *AniList
}

func NewComposite(tmdb *TMDB, tvdb *TVDB, anilist *AniList) *Composite {
	return &Composite{tmdb: tmdb, tvdb: tvdb, anilist: anilist}
}

func (c *Composite) Name() string { return "composite" }

func (c *Composite) SearchMovies(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	if c.tmdb != nil {
		return c.tmdb.SearchMovies(ctx, title, year)
	}
	if c.tvdb != nil {
		return c.tvdb.SearchMovies(ctx, title, year)
	}
	if c.anilist != nil {
		return c.anilist.SearchMovies(ctx, title, year)
	}
	return nil, &NotFoundError{Provider: "composite", Query: title}
}

func (c *Composite) SearchSeries(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	if c.tvdb != nil {
		return c.tvdb.SearchSeries(ctx, title, year)
	}
	if c.tmdb != nil {
		return c.tmdb.SearchSeries(ctx, title, year)
	}
	if c.anilist != nil {
		return c.anilist.SearchSeries(ctx, title, year)
	}
	return nil, &NotFoundError{Provider: "composite", Query: title}
}

func (c *Composite) GetMovie(ctx context.Context, externalID map[string]string) (*models.Movie, error) {
	var movie *models.Movie
	var err error
	enrichWithTVDB := false

	if c.tmdb != nil {
		movie, err = c.tmdb.GetMovie(ctx, externalID)
		if err != nil {
			return nil, err
		}
		enrichWithTVDB = movie != nil
	}
	if movie == nil && c.tvdb != nil {
		movie, err = c.tvdb.GetMovie(ctx, externalID)
		if err != nil {
			return nil, err
		}
	}
	if movie == nil && c.anilist != nil {
		movie, err = c.anilist.GetMovie(ctx, externalID)
		if err != nil {
			return nil, err
		}
	}
	if movie == nil {
		return nil, &NotFoundError{Provider: "composite", Query: idsQuery(externalID)}
	}

	if enrichWithTVDB && c.tvdb != nil {
		other, err := c.tvdb.GetMovie(ctx, mergeFlatIDs(externalID, movie.ExternalID))
		if err != nil {
			if !IsNotFound(err) {
				log.Printf("[composite] tvdb enrich movie: %v", err)
			}
		} else if other != nil {
			if len(movie.Collections) == 0 {
				movie.Collections = other.Collections
			}
			// The primary's ids win on conflict.
			movie.ExternalID = models.MergeExternalIDs(other.ExternalID, movie.ExternalID)
		}
	}

	if c.anilist != nil && hasAnimeID(externalID, movie.ExternalID) {
		other, err := c.anilist.GetMovie(ctx, mergeFlatIDs(externalID, movie.ExternalID))
		if err != nil {
			if !IsNotFound(err) {
				log.Printf("[composite] anilist enrich movie: %v", err)
			}
		} else if other != nil {
			movie.ExternalID = models.MergeExternalIDs(other.ExternalID, movie.ExternalID)
			mergeTranslations(movie.Translations, other.Translations)
			movie.Genres = unionGenres(movie.Genres, other.Genres)
		}
	}
	return movie, nil
}

func (c *Composite) GetSerie(ctx context.Context, externalID map[string]string, skipEntries bool) (*models.Serie, error) {
	var serie *models.Serie
	var err error
	enrichWithTMDB := false

	if c.tvdb != nil {
		serie, err = c.tvdb.GetSerie(ctx, externalID, skipEntries)
		if err != nil {
			return nil, err
		}
		enrichWithTMDB = serie != nil
	}
	if serie == nil && c.tmdb != nil {
		serie, err = c.tmdb.GetSerie(ctx, externalID, skipEntries)
		if err != nil {
			return nil, err
		}
	}
	if serie == nil && c.anilist != nil {
		serie, err = c.anilist.GetSerie(ctx, externalID, skipEntries)
		if err != nil {
			return nil, err
		}
	}
	if serie == nil {
		return nil, &NotFoundError{Provider: "composite", Query: idsQuery(externalID)}
	}

	if enrichWithTMDB && c.tmdb != nil {
		// Entries and seasons stay TVDB's; TMDB only contributes global
		// fields and artwork.
		other, err := c.tmdb.GetSerie(ctx, mergeFlatIDs(externalID, serie.ExternalID), true)
		if err != nil {
			if !IsNotFound(err) {
				log.Printf("[composite] tmdb enrich serie: %v", err)
			}
		} else if other != nil {
			serie.ExternalID = models.MergeExternalIDs(other.ExternalID, serie.ExternalID)
			mergeTranslations(serie.Translations, other.Translations)
			serie.Genres = unionGenres(serie.Genres, other.Genres)
			if serie.Rating == nil {
				serie.Rating = other.Rating
			}
			if serie.Runtime == nil {
				serie.Runtime = other.Runtime
			}
			if len(serie.Studios) == 0 {
				serie.Studios = other.Studios
			}
			if len(serie.Staff) == 0 {
				serie.Staff = other.Staff
			}
		}
	}

	if c.anilist != nil && hasAnimeID(externalID, serie.ExternalID) {
		other, err := c.anilist.GetSerie(ctx, mergeFlatIDs(externalID, serie.ExternalID), true)
		if err != nil {
			if !IsNotFound(err) {
				log.Printf("[composite] anilist enrich serie: %v", err)
			}
		} else if other != nil {
			serie.ExternalID = models.MergeExternalIDs(other.ExternalID, serie.ExternalID)
			mergeTranslations(serie.Translations, other.Translations)
			serie.Genres = unionGenres(serie.Genres, other.Genres)
		}
	}
	return serie, nil
}

// FindMovie resolves a guess to a full record: straight get when an id is
// known, otherwise search by title and take the best hit.
func (c *Composite) FindMovie(ctx context.Context, title string, year *int, externalID map[string]string) (*models.Movie, error) {
	if len(externalID) > 0 {
		movie, err := c.GetMovie(ctx, externalID)
		if err == nil || !IsNotFound(err) {
			return movie, err
		}
	}
	results, err := c.SearchMovies(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &NotFoundError{Provider: "composite", Query: title}
	}
	return c.GetMovie(ctx, results[0].ExternalID)
}

// FindSerie is FindMovie for series.
func (c *Composite) FindSerie(ctx context.Context, title string, year *int, externalID map[string]string, skipEntries bool) (*models.Serie, error) {
	if len(externalID) > 0 {
		serie, err := c.GetSerie(ctx, externalID, skipEntries)
		if err == nil || !IsNotFound(err) {
			return serie, err
		}
	}
	results, err := c.SearchSeries(ctx, title, year)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, &NotFoundError{Provider: "composite", Query: title}
	}
	return c.GetSerie(ctx, results[0].ExternalID, skipEntries)
}

// mergeFlatIDs widens the original query with the ids discovered so far.
func mergeFlatIDs(query map[string]string, known map[string]models.MetadataID) map[string]string {
	out := make(map[string]string, len(query)+len(known))
	for k, v := range known {
		out[k] = v.DataID
	}
	for k, v := range query {
		out[k] = v
	}
	return out
}

func hasAnimeID(query map[string]string, known map[string]models.MetadataID) bool {
	if _, ok := query[models.ProviderAniList]; ok {
		return true
	}
	_, ok := known[models.ProviderAniList]
	return ok
}

// mergeTranslations backfills dst with languages and fields it lacks. An
// existing translation never loses data to the enriching source.
func mergeTranslations(dst, src map[string]models.Translation) {
	for lang, tr := range src {
		cur, ok := dst[lang]
		if !ok {
			dst[lang] = tr
			continue
		}
		if cur.Latinized == nil {
			cur.Latinized = tr.Latinized
		}
		if cur.Description == nil {
			cur.Description = tr.Description
		}
		if cur.Tagline == nil {
			cur.Tagline = tr.Tagline
		}
		if len(cur.Aliases) == 0 {
			cur.Aliases = tr.Aliases
		}
		if len(cur.Tags) == 0 {
			cur.Tags = tr.Tags
		}
		if cur.Poster == nil {
			cur.Poster = tr.Poster
		}
		if cur.Thumbnail == nil {
			cur.Thumbnail = tr.Thumbnail
		}
		if cur.Banner == nil {
			cur.Banner = tr.Banner
		}
		if cur.Logo == nil {
			cur.Logo = tr.Logo
		}
		dst[lang] = cur
	}
}

func unionGenres(left, right []models.Genre) []models.Genre {
	seen := make(map[models.Genre]bool, len(left))
	out := left
	for _, g := range left {
		seen[g] = true
	}
	for _, g := range right {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}

func idsQuery(ids map[string]string) string {
	if len(ids) == 0 {
		return "no external ids"
	}
	out := ""
	for k, v := range ids {
		if out != "" {
			out += ", "
		}
		out += k + ":" + v
	}
	return out
}
