package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/solidstone/mediascan/internal/cache"
	"github.com/solidstone/mediascan/internal/models"
)

// AniList queries graphql.anilist.co. It only knows anime, so it never acts
// as a primary source; the composite consults it for romaji titles, native
// aliases and MyAnimeList ids.
type AniList struct {
	c *apiClient

	// AniList enforces 90 requests per minute per ip and, unlike the REST
	// upstreams, returns errors in a 200 body, so throttling up front beats
	// reacting to 429s.
	limiter *rate.Limiter
}

// AniList genres with no catalog equivalent (Ecchi, Mecha, Slice of Life and
// friends) are surfaced as tags instead of being dropped.
var anilistGenreMap = map[string]models.Genre{
	"Action":    models.GenreAction,
	"Adventure": models.GenreAdventure,
	"Comedy":    models.GenreComedy,
	"Drama":     models.GenreDrama,
	"Fantasy":   models.GenreFantasy,
	"Horror":    models.GenreHorror,
	"Music":     models.GenreMusic,
	"Mystery":   models.GenreMystery,
	"Romance":   models.GenreRomance,
	"Sci-Fi":    models.GenreScienceFiction,
	"Thriller":  models.GenreThriller,
}

const anilistMediaFields = `
id
idMal
title { romaji english native }
description
status
startDate { year month day }
endDate { year month day }
episodes
duration
genres
tags { name }
synonyms
coverImage { extraLarge }
bannerImage
averageScore
siteUrl
studios { nodes { id name } }`

func NewAniList(shared *cache.Map[string, []byte]) *AniList {
	return &AniList{
		c:       newAPIClient("anilist", "https://graphql.anilist.co", shared),
		limiter: rate.NewLimiter(rate.Every(time.Minute/90), 10),
	}
}

func (a *AniList) Name() string { return models.ProviderAniList }

type anilistDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

func (d anilistDate) format() *string {
	if d.Year == nil {
		return nil
	}
	month, day := 1, 1
	if d.Month != nil {
		month = *d.Month
	}
	if d.Day != nil {
		day = *d.Day
	}
	s := fmt.Sprintf("%04d-%02d-%02d", *d.Year, month, day)
	return &s
}

type anilistMedia struct {
	ID    int  `json:"id"`
	IDMal *int `json:"idMal"`
	Title struct {
		Romaji  *string `json:"romaji"`
		English *string `json:"english"`
		Native  *string `json:"native"`
	} `json:"title"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	StartDate   anilistDate `json:"startDate"`
	EndDate     anilistDate `json:"endDate"`
	Episodes    *int        `json:"episodes"`
	Duration    *int        `json:"duration"`
	Genres      []string    `json:"genres"`
	Tags        []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Synonyms   []string `json:"synonyms"`
	CoverImage struct {
		ExtraLarge string `json:"extraLarge"`
	} `json:"coverImage"`
	BannerImage  *string `json:"bannerImage"`
	AverageScore *int    `json:"averageScore"`
	SiteURL      string  `json:"siteUrl"`
	Studios      struct {
		Nodes []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"studios"`
}

type anilistResponse struct {
	Data struct {
		Media *anilistMedia `json:"Media"`
		Page  *struct {
			Media []anilistMedia `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"errors"`
}

// query posts a GraphQL document. GraphQL has no cacheable GET, so the
// response cache is keyed on the serialized request instead of the URL.
func (a *AniList) query(ctx context.Context, doc string, vars map[string]any, out *anilistResponse) error {
	payload := map[string]any{"query": doc, "variables": vars}
	key := fmt.Sprintf("anilist|%s|%v", doc, vars)
	body, err := a.c.cache.GetOrFill(ctx, key, func(ctx context.Context) ([]byte, error) {
		if a.limiter != nil {
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		var resp anilistResponse
		if err := a.c.postJSON(ctx, "", payload, &resp); err != nil {
			return nil, err
		}
		for _, e := range resp.Errors {
			if e.Status == 404 {
				return nil, &NotFoundError{Provider: "anilist", Query: fmt.Sprint(vars)}
			}
		}
		if len(resp.Errors) > 0 {
			return nil, fmt.Errorf("anilist: %s", resp.Errors[0].Message)
		}
		return json.Marshal(resp)
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func (a *AniList) SearchMovies(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return a.search(ctx, title, year)
}

func (a *AniList) SearchSeries(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return a.search(ctx, title, year)
}

func (a *AniList) search(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	doc := fmt.Sprintf(`query ($search: String, $year: Int) {
  Page(perPage: 10) {
    media(search: $search, type: ANIME, seasonYear: $year) {%s}
  }
}`, anilistMediaFields)
	vars := map[string]any{"search": title}
	if year != nil {
		vars["year"] = *year
	}

	var resp anilistResponse
	if err := a.query(ctx, doc, vars, &resp); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if resp.Data.Page == nil {
		return nil, nil
	}
	out := make([]models.SearchResult, 0, len(resp.Data.Page.Media))
	for _, m := range resp.Data.Page.Media {
		out = append(out, models.SearchResult{
			Name:       anilistName(m),
			Year:       m.StartDate.Year,
			ExternalID: anilistSearchIDs(m),
		})
	}
	return out, nil
}

func (a *AniList) getMedia(ctx context.Context, externalID map[string]string) (*anilistMedia, error) {
	id, ok := externalID[models.ProviderAniList]
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf("anilist: bad id %q: %w", id, err)
	}

	doc := fmt.Sprintf(`query ($id: Int) {
  Media(id: $id, type: ANIME) {%s}
}`, anilistMediaFields)
	var resp anilistResponse
	if err := a.query(ctx, doc, map[string]any{"id": n}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Media == nil {
		return nil, &NotFoundError{Provider: "anilist", Query: fmt.Sprintf("media %d", n)}
	}
	return resp.Data.Media, nil
}

func (a *AniList) GetMovie(ctx context.Context, externalID map[string]string) (*models.Movie, error) {
	m, err := a.getMedia(ctx, externalID)
	if err != nil || m == nil {
		return nil, err
	}

	status := models.MoviePlanned
	if m.Status == "FINISHED" {
		status = models.MovieFinished
	}
	genres, extraTags := a.splitGenres(m.Genres)

	return &models.Movie{
		Slug:         ToSlug(anilistName(*m)),
		Genres:       genres,
		Rating:       m.AverageScore,
		Status:       status,
		Runtime:      m.Duration,
		AirDate:      m.StartDate.format(),
		ExternalID:   anilistIDs(*m),
		Translations: map[string]models.Translation{"en": a.translation(*m, extraTags)},
		Studios:      a.mapStudios(*m),
	}, nil
}

func (a *AniList) GetSerie(ctx context.Context, externalID map[string]string, skipEntries bool) (*models.Serie, error) {
	m, err := a.getMedia(ctx, externalID)
	if err != nil || m == nil {
		return nil, err
	}

	var status models.SerieStatus
	switch m.Status {
	case "FINISHED":
		status = models.SerieFinished
	case "RELEASING":
		status = models.SerieAiring
	default:
		status = models.SeriePlanned
	}
	genres, extraTags := a.splitGenres(m.Genres)

	return &models.Serie{
		Slug:         ToSlug(anilistName(*m)),
		Genres:       genres,
		Rating:       m.AverageScore,
		Status:       status,
		Runtime:      m.Duration,
		StartAir:     m.StartDate.format(),
		EndAir:       m.EndDate.format(),
		ExternalID:   anilistIDs(*m),
		Translations: map[string]models.Translation{"en": a.translation(*m, extraTags)},
		Studios:      a.mapStudios(*m),
	}, nil
}

func (a *AniList) splitGenres(names []string) ([]models.Genre, []string) {
	var genres []models.Genre
	var tags []string
	for _, n := range names {
		if g, ok := anilistGenreMap[n]; ok {
			genres = append(genres, g)
		} else {
			tags = append(tags, n)
		}
	}
	return genres, tags
}

func (a *AniList) translation(m anilistMedia, extraTags []string) models.Translation {
	tags := extraTags
	for _, t := range m.Tags {
		tags = append(tags, t.Name)
	}
	var aliases []string
	if m.Title.Native != nil {
		aliases = append(aliases, *m.Title.Native)
	}
	aliases = append(aliases, m.Synonyms...)

	var banner *models.Image
	if m.BannerImage != nil {
		banner = imagePtr(*m.BannerImage)
	}
	return models.Translation{
		Name:        anilistName(m),
		Latinized:   m.Title.Romaji,
		Description: strPtr(m.Description),
		Aliases:     aliases,
		Tags:        tags,
		Poster:      imagePtr(m.CoverImage.ExtraLarge),
		Banner:      banner,
	}
}

func (a *AniList) mapStudios(m anilistMedia) []models.Studio {
	out := make([]models.Studio, 0, len(m.Studios.Nodes))
	for _, s := range m.Studios.Nodes {
		out = append(out, models.Studio{
			Slug: ToSlug(s.Name),
			ExternalID: map[string]models.MetadataID{
				models.ProviderAniList: {
					DataID: strconv.Itoa(s.ID),
					Link:   strPtr(fmt.Sprintf("https://anilist.co/studio/%d", s.ID)),
				},
			},
			Translations: map[string]models.StudioTranslation{
				"en": {Name: s.Name},
			},
		})
	}
	return out
}

func anilistName(m anilistMedia) string {
	if m.Title.English != nil {
		return *m.Title.English
	}
	if m.Title.Romaji != nil {
		return *m.Title.Romaji
	}
	if m.Title.Native != nil {
		return *m.Title.Native
	}
	return ""
}

func anilistIDs(m anilistMedia) map[string]models.MetadataID {
	out := map[string]models.MetadataID{
		models.ProviderAniList: {
			DataID: strconv.Itoa(m.ID),
			Link:   strPtr(m.SiteURL),
		},
	}
	if m.IDMal != nil {
		out[models.ProviderMAL] = models.MetadataID{
			DataID: strconv.Itoa(*m.IDMal),
			Link:   strPtr(fmt.Sprintf("https://myanimelist.net/anime/%d", *m.IDMal)),
		}
	}
	return out
}

func anilistSearchIDs(m anilistMedia) map[string]string {
	out := map[string]string{models.ProviderAniList: strconv.Itoa(m.ID)}
	if m.IDMal != nil {
		out[models.ProviderMAL] = strconv.Itoa(*m.IDMal)
	}
	return out
}
