package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/solidstone/mediascan/internal/cache"
	"github.com/solidstone/mediascan/internal/models"
)

// tvdbTokenTTL is how long a login token is reused before logging in again.
// TVDB tokens are valid for a month.
const tvdbTokenTTL = 30 * 24 * time.Hour

// TVDB talks to api4.thetvdb.com. It is the primary source for series and
// enriches movies with collections.
type TVDB struct {
	c      *apiClient
	apikey string
	pin    string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
	artwork  map[string]int
}

var tvdbGenreMap = map[string]models.Genre{
	"action":          models.GenreAction,
	"adventure":       models.GenreAdventure,
	"animation":       models.GenreAnimation,
	"anime":           models.GenreAnimation,
	"children":        models.GenreKids,
	"comedy":          models.GenreComedy,
	"crime":           models.GenreCrime,
	"documentary":     models.GenreDocumentary,
	"drama":           models.GenreDrama,
	"family":          models.GenreFamily,
	"fantasy":         models.GenreFantasy,
	"history":         models.GenreHistory,
	"horror":          models.GenreHorror,
	"musical":         models.GenreMusic,
	"mystery":         models.GenreMystery,
	"reality":         models.GenreReality,
	"romance":         models.GenreRomance,
	"science-fiction": models.GenreScienceFiction,
	"soap":            models.GenreSoap,
	"suspense":        models.GenreThriller,
	"talk-show":       models.GenreTalk,
	"thriller":        models.GenreThriller,
	"war":             models.GenreWar,
	"western":         models.GenreWestern,
}

var tvdbPeopleMap = map[string]models.Role{
	"Actor":              models.RoleActor,
	"Guest Star":         models.RoleActor,
	"Director":           models.RoleDirector,
	"Writer":             models.RoleWriter,
	"Producer":           models.RoleProducer,
	"Executive Producer": models.RoleProducer,
	"Musical Guest":      models.RoleMusic,
	"Crew":               models.RoleCrew,
}

// NewTVDB returns nil when the api key is empty or "disabled".
func NewTVDB(apikey, pin string, shared *cache.Map[string, []byte]) *TVDB {
	if apikey == "" || apikey == "disabled" {
		return nil
	}
	t := &TVDB{
		c:      newAPIClient("tvdb", "https://api4.thetvdb.com/v4/", shared),
		apikey: apikey,
		pin:    pin,
	}
	t.c.authorize = func(ctx context.Context, req *http.Request) error {
		tok, err := t.bearer(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		return nil
	}
	return t
}

func (t *TVDB) Name() string { return models.ProviderTVDB }

// bearer returns a valid login token, logging in when the cached one expired.
// Login bypasses the apiClient because the authorize hook would recurse.
func (t *TVDB) bearer(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && time.Now().Before(t.tokenExp) {
		return t.token, nil
	}

	payload, _ := json.Marshal(map[string]string{"apikey": t.apikey, "pin": t.pin})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.c.base+"login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("tvdb: login: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("tvdb: login: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	var out struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	t.token = out.Data.Token
	t.tokenExp = time.Now().Add(tvdbTokenTTL)
	return t.token, nil
}

// artworkType resolves an artwork type id by record kind and slug, loading
// the type list on first use.
func (t *TVDB) artworkType(ctx context.Context, record, slug string) int {
	t.mu.Lock()
	types := t.artwork
	t.mu.Unlock()

	if types == nil {
		var out struct {
			Data []struct {
				ID         int    `json:"id"`
				RecordType string `json:"recordType"`
				Slug       string `json:"slug"`
			} `json:"data"`
		}
		if err := t.c.getJSON(ctx, "artwork/types", nil, &out, ""); err != nil {
			log.Printf("[tvdb] artwork types: %v", err)
			return -1
		}
		types = make(map[string]int, len(out.Data))
		for _, at := range out.Data {
			types[at.RecordType+"/"+at.Slug] = at.ID
		}
		t.mu.Lock()
		t.artwork = types
		t.mu.Unlock()
	}
	id, ok := types[record+"/"+slug]
	if !ok {
		return -1
	}
	return id
}

type tvdbSearchItem struct {
	TVDBID string `json:"tvdb_id"`
	Name   string `json:"name"`
	Year   string `json:"year"`
}

func (t *TVDB) SearchMovies(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return t.search(ctx, "movie", title, year)
}

func (t *TVDB) SearchSeries(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return t.search(ctx, "series", title, year)
}

func (t *TVDB) search(ctx context.Context, kind, title string, year *int) ([]models.SearchResult, error) {
	q := url.Values{"query": {title}, "type": {kind}}
	if year != nil {
		q.Set("year", strconv.Itoa(*year))
	}
	var out struct {
		Data []tvdbSearchItem `json:"data"`
	}
	if err := t.c.getJSON(ctx, "search", q, &out, ""); err != nil {
		return nil, err
	}
	results := make([]models.SearchResult, 0, len(out.Data))
	for _, x := range out.Data {
		var y *int
		if n, err := strconv.Atoi(x.Year); err == nil {
			y = &n
		}
		results = append(results, models.SearchResult{
			Name:       x.Name,
			Year:       y,
			ExternalID: map[string]string{models.ProviderTVDB: x.TVDBID},
		})
	}
	return results, nil
}

// remoteSearch resolves a TVDB id from an imdb id.
func (t *TVDB) remoteSearch(ctx context.Context, imdb string) (string, error) {
	var out struct {
		Data []struct {
			Series *struct {
				ID int `json:"id"`
			} `json:"series"`
			Movie *struct {
				ID int `json:"id"`
			} `json:"movie"`
		} `json:"data"`
	}
	err := t.c.getJSON(ctx, "search/remoteid/"+url.PathEscape(imdb), nil, &out,
		fmt.Sprintf("remote id %s", imdb))
	if err != nil {
		return "", err
	}
	for _, d := range out.Data {
		if d.Series != nil {
			return strconv.Itoa(d.Series.ID), nil
		}
		if d.Movie != nil {
			return strconv.Itoa(d.Movie.ID), nil
		}
	}
	return "", &NotFoundError{Provider: "tvdb", Query: fmt.Sprintf("remote id %s", imdb)}
}

type tvdbRemoteID struct {
	ID         string `json:"id"`
	SourceName string `json:"sourceName"`
}

type tvdbArtwork struct {
	Image    string  `json:"image"`
	Type     int     `json:"type"`
	Language *string `json:"language"`
	Score    float64 `json:"score"`
}

type tvdbGenre struct {
	Slug string `json:"slug"`
}

type tvdbCompany struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type tvdbCharacter struct {
	Name       string  `json:"name"`
	PeopleID   int     `json:"peopleId"`
	PersonName string  `json:"personName"`
	PeopleType string  `json:"peopleType"`
	Image      *string `json:"image"`
}

type tvdbTranslations struct {
	NameTranslations []struct {
		Language string `json:"language"`
		Name     string `json:"name"`
	} `json:"nameTranslations"`
	OverviewTranslations []struct {
		Language string `json:"language"`
		Overview string `json:"overview"`
	} `json:"overviewTranslations"`
	Aliases []struct {
		Language string `json:"language"`
		Name     string `json:"name"`
	} `json:"aliases"`
}

type tvdbList struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	IsOfficial bool   `json:"isOfficial"`
}

type tvdbMovieData struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	Year             string  `json:"year"`
	Runtime          *int    `json:"runtime"`
	OriginalLanguage string  `json:"originalLanguage"`
	Score            float64 `json:"score"`
	Status           struct {
		Name string `json:"name"`
	} `json:"status"`
	FirstRelease struct {
		Date string `json:"date"`
	} `json:"first_release"`
	Genres    []tvdbGenre    `json:"genres"`
	RemoteIDs []tvdbRemoteID `json:"remoteIds"`
	Artworks  []tvdbArtwork  `json:"artworks"`
	Companies struct {
		Studio     []tvdbCompany `json:"studio"`
		Production []tvdbCompany `json:"production"`
	} `json:"companies"`
	Characters   []tvdbCharacter  `json:"characters"`
	Lists        []tvdbList       `json:"lists"`
	Translations tvdbTranslations `json:"translations"`
}

func (t *TVDB) GetMovie(ctx context.Context, externalID map[string]string) (*models.Movie, error) {
	id, ok := externalID[models.ProviderTVDB]
	if !ok {
		imdb, hasIMDB := externalID[models.ProviderIMDB]
		if !hasIMDB {
			return nil, nil
		}
		resolved, err := t.remoteSearch(ctx, imdb)
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	var out struct {
		Data tvdbMovieData `json:"data"`
	}
	err := t.c.getJSON(ctx, "movies/"+id+"/extended",
		url.Values{"meta": {"translations"}}, &out,
		fmt.Sprintf("movie with tvdb id %s", id))
	if err != nil {
		return nil, err
	}
	m := out.Data

	status := models.MoviePlanned
	if m.Status.Name == "Released" {
		status = models.MovieFinished
	}
	rating := int(m.Score)

	movie := &models.Movie{
		Slug:             ToSlug(m.Name),
		OriginalLanguage: strPtr(m.OriginalLanguage),
		Genres:           t.mapGenres(m.Genres),
		Rating:           &rating,
		Status:           status,
		Runtime:          m.Runtime,
		AirDate:          datePtr(m.FirstRelease.Date),
		ExternalID:       t.mapRemoteIDs(m.RemoteIDs, id, "movies"),
		Translations:     map[string]models.Translation{},
		Studios:          t.mapStudios(append(m.Companies.Studio, m.Companies.Production...)),
		Staff:            t.mapStaff(m.Characters),
	}

	poster := t.artworkType(ctx, "movie", "poster")
	background := t.artworkType(ctx, "movie", "background")
	for lang, tr := range t.mapTranslations(m.Translations, m.Name) {
		tr.Poster = imagePtr(pickArtwork(m.Artworks, poster, lang))
		tr.Thumbnail = imagePtr(pickArtwork(m.Artworks, background, lang))
		movie.Translations[lang] = tr
	}

	if col := t.officialList(m.Lists); col != nil {
		c, err := t.getCollection(ctx, col.ID)
		if err != nil {
			log.Printf("[tvdb] collection %d for movie %s: %v", col.ID, id, err)
		} else {
			movie.Collections = []models.Collection{*c}
		}
	}
	return movie, nil
}

type tvdbSerieData struct {
	ID               int     `json:"id"`
	Name             string  `json:"name"`
	OriginalLanguage string  `json:"originalLanguage"`
	AverageRuntime   *int    `json:"averageRuntime"`
	Score            float64 `json:"score"`
	FirstAired       string  `json:"firstAired"`
	LastAired        string  `json:"lastAired"`
	Status           struct {
		Name string `json:"name"`
	} `json:"status"`
	Genres     []tvdbGenre     `json:"genres"`
	RemoteIDs  []tvdbRemoteID  `json:"remoteIds"`
	Artworks   []tvdbArtwork   `json:"artworks"`
	Companies  []tvdbCompany   `json:"companies"`
	Characters []tvdbCharacter `json:"characters"`
	Lists      []tvdbList      `json:"lists"`
	Seasons    []struct {
		ID     int `json:"id"`
		Number int `json:"number"`
		Type   struct {
			Type string `json:"type"`
		} `json:"type"`
	} `json:"seasons"`
	Translations tvdbTranslations `json:"translations"`
}

func (t *TVDB) GetSerie(ctx context.Context, externalID map[string]string, skipEntries bool) (*models.Serie, error) {
	id, ok := externalID[models.ProviderTVDB]
	if !ok {
		imdb, hasIMDB := externalID[models.ProviderIMDB]
		if !hasIMDB {
			return nil, nil
		}
		resolved, err := t.remoteSearch(ctx, imdb)
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	var out struct {
		Data tvdbSerieData `json:"data"`
	}
	err := t.c.getJSON(ctx, "series/"+id+"/extended",
		url.Values{"meta": {"translations"}}, &out,
		fmt.Sprintf("serie with tvdb id %s", id))
	if err != nil {
		return nil, err
	}
	s := out.Data

	var status models.SerieStatus
	switch s.Status.Name {
	case "Ended":
		status = models.SerieFinished
	case "Continuing":
		status = models.SerieAiring
	default:
		status = models.SeriePlanned
	}
	rating := int(s.Score)

	serie := &models.Serie{
		Slug:             ToSlug(s.Name),
		OriginalLanguage: strPtr(s.OriginalLanguage),
		Genres:           t.mapGenres(s.Genres),
		Rating:           &rating,
		Status:           status,
		Runtime:          s.AverageRuntime,
		StartAir:         datePtr(s.FirstAired),
		EndAir:           datePtr(s.LastAired),
		ExternalID:       t.mapRemoteIDs(s.RemoteIDs, id, "series"),
		Translations:     map[string]models.Translation{},
		Studios:          t.mapStudios(s.Companies),
		Staff:            t.mapStaff(s.Characters),
	}

	poster := t.artworkType(ctx, "series", "poster")
	background := t.artworkType(ctx, "series", "background")
	banner := t.artworkType(ctx, "series", "banner")
	for lang, tr := range t.mapTranslations(s.Translations, s.Name) {
		tr.Poster = imagePtr(pickArtwork(s.Artworks, poster, lang))
		tr.Thumbnail = imagePtr(pickArtwork(s.Artworks, background, lang))
		tr.Banner = imagePtr(pickArtwork(s.Artworks, banner, lang))
		serie.Translations[lang] = tr
	}

	if col := t.officialList(s.Lists); col != nil {
		c, err := t.getCollection(ctx, col.ID)
		if err != nil {
			log.Printf("[tvdb] collection %d for serie %s: %v", col.ID, id, err)
		} else {
			serie.Collections = []models.Collection{*c}
		}
	}

	if skipEntries {
		return serie, nil
	}

	for _, sn := range s.Seasons {
		// TVDB exposes several numbering systems per show; only the
		// official one maps to catalog seasons.
		if sn.Type.Type != "official" {
			continue
		}
		season, err := t.getSeason(ctx, sn.ID, sn.Number, id)
		if err != nil {
			return nil, err
		}
		serie.Seasons = append(serie.Seasons, *season)
	}
	sort.Slice(serie.Seasons, func(i, j int) bool {
		return serie.Seasons[i].SeasonNumber < serie.Seasons[j].SeasonNumber
	})

	entries, err := t.getEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	serie.Entries = entries
	return serie, nil
}

func (t *TVDB) getSeason(ctx context.Context, seasonID, number int, serieID string) (*models.Season, error) {
	var out struct {
		Data struct {
			Number int     `json:"number"`
			Year   string  `json:"year"`
			Image  *string `json:"image"`
		} `json:"data"`
	}
	err := t.c.getJSON(ctx, fmt.Sprintf("seasons/%d/extended", seasonID), nil, &out, "")
	if err != nil {
		return nil, err
	}

	season := &models.Season{
		SeasonNumber: number,
		ExternalID: map[string]models.SeasonID{
			models.ProviderTVDB: {
				SerieID: serieID,
				Season:  number,
				Link:    strPtr(fmt.Sprintf("https://thetvdb.com/series/%s/seasons/official/%d", serieID, number)),
			},
		},
		Translations: map[string]models.SeasonTranslation{},
	}
	if out.Data.Image != nil {
		season.Translations["eng"] = models.SeasonTranslation{Poster: imagePtr(*out.Data.Image)}
	}
	return season, nil
}

type tvdbEpisode struct {
	ID                int     `json:"id"`
	SeasonNumber      int     `json:"seasonNumber"`
	Number            int     `json:"number"`
	AbsoluteNumber    int     `json:"absoluteNumber"`
	Name              string  `json:"name"`
	Overview          string  `json:"overview"`
	Aired             string  `json:"aired"`
	Runtime           *int    `json:"runtime"`
	Image             *string `json:"image"`
	IsMovie           int     `json:"isMovie"`
	AirsAfterSeason   *int    `json:"airsAfterSeason"`
	AirsBeforeSeason  *int    `json:"airsBeforeSeason"`
	AirsBeforeEpisode *int    `json:"airsBeforeEpisode"`
	LinkedMovie       int     `json:"linkedMovie"`
}

// getEntries walks the default ordering of a serie, page by page.
func (t *TVDB) getEntries(ctx context.Context, serieID string) ([]models.Entry, error) {
	var eps []tvdbEpisode
	for page := 0; ; page++ {
		var out struct {
			Data struct {
				Episodes []tvdbEpisode `json:"episodes"`
			} `json:"data"`
			Links struct {
				Next *string `json:"next"`
			} `json:"links"`
		}
		err := t.c.getJSON(ctx, "series/"+serieID+"/episodes/default",
			url.Values{"page": {strconv.Itoa(page)}}, &out, "")
		if err != nil {
			return nil, err
		}
		eps = append(eps, out.Data.Episodes...)
		if out.Links.Next == nil || len(out.Data.Episodes) == 0 {
			break
		}
	}

	var entries []models.Entry
	for _, ep := range eps {
		kind := models.EntryEpisode
		switch {
		case ep.IsMovie != 0:
			kind = models.EntryMovie
		case ep.SeasonNumber == 0:
			kind = models.EntrySpecial
		}
		season, number := ep.SeasonNumber, ep.Number
		entry := models.Entry{
			Kind:          kind,
			Order:         float64(ep.AbsoluteNumber),
			Runtime:       ep.Runtime,
			AirDate:       datePtr(ep.Aired),
			SeasonNumber:  &season,
			EpisodeNumber: &number,
			Number:        &number,
			ExternalID: map[string]models.EpisodeID{
				models.ProviderTVDB: {
					SerieID: serieID,
					Season:  &season,
					Episode: number,
					Link:    strPtr(fmt.Sprintf("https://thetvdb.com/series/%s/episodes/%d", serieID, ep.ID)),
				},
			},
			Translations: map[string]models.EntryTranslation{
				"eng": {
					Name:        strPtr(ep.Name),
					Description: strPtr(ep.Overview),
				},
			},
			AirsAfterSeason:   ep.AirsAfterSeason,
			AirsBeforeSeason:  ep.AirsBeforeSeason,
			AirsBeforeEpisode: ep.AirsBeforeEpisode,
		}
		if ep.Image != nil {
			tr := entry.Translations["eng"]
			tr.Poster = imagePtr(*ep.Image)
			entry.Translations["eng"] = tr
		}
		if ep.LinkedMovie != 0 {
			t.enrichLinkedMovie(ctx, &entry, ep.LinkedMovie)
		}
		entries = append(entries, entry)
	}

	placeSpecials(entries)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
	return entries, nil
}

// enrichLinkedMovie pulls the movie record behind a movie-kind entry for its
// translated names and descriptions.
func (t *TVDB) enrichLinkedMovie(ctx context.Context, entry *models.Entry, movieID int) {
	var out struct {
		Data tvdbMovieData `json:"data"`
	}
	err := t.c.getJSON(ctx, fmt.Sprintf("movies/%d/extended", movieID),
		url.Values{"meta": {"translations"}}, &out, "")
	if err != nil {
		log.Printf("[tvdb] linked movie %d: %v", movieID, err)
		return
	}
	for lang, tr := range t.mapTranslations(out.Data.Translations, out.Data.Name) {
		prev := entry.Translations[lang]
		if prev.Name == nil {
			prev.Name = strPtr(tr.Name)
		}
		if prev.Description == nil {
			prev.Description = tr.Description
		}
		entry.Translations[lang] = prev
	}
}

// placeSpecials gives specials without an absolute number a fractional order
// between the episodes they aired around.
func placeSpecials(entries []models.Entry) {
	maxOrderOfSeason := func(season int) (float64, bool) {
		best, found := 0.0, false
		for _, e := range entries {
			if e.SeasonNumber != nil && *e.SeasonNumber == season && e.Order > 0 && (!found || e.Order > best) {
				best, found = e.Order, true
			}
		}
		return best, found
	}
	minOrderOfSeason := func(season int) (float64, bool) {
		best, found := 0.0, false
		for _, e := range entries {
			if e.SeasonNumber != nil && *e.SeasonNumber == season && e.Order > 0 && (!found || e.Order < best) {
				best, found = e.Order, true
			}
		}
		return best, found
	}
	minAbove := func(limit float64) float64 {
		best, found := 0.0, false
		for _, e := range entries {
			if e.Order > limit && (!found || e.Order < best) {
				best, found = e.Order, true
			}
		}
		if !found {
			return limit + 2
		}
		return best
	}
	maxBelow := func(limit float64) float64 {
		best := 0.0
		for _, e := range entries {
			if e.Order > 0 && e.Order < limit && e.Order > best {
				best = e.Order
			}
		}
		return best
	}

	for i := range entries {
		e := &entries[i]
		if e.Order != 0 {
			continue
		}
		switch {
		case e.AirsAfterSeason != nil:
			before, ok := maxOrderOfSeason(*e.AirsAfterSeason)
			if !ok {
				continue
			}
			e.Order = (before + minAbove(before)) / 2
		case e.AirsBeforeEpisode != nil && e.AirsBeforeSeason != nil:
			var before float64
			found := false
			for _, other := range entries {
				if other.SeasonNumber != nil && *other.SeasonNumber == *e.AirsBeforeSeason &&
					other.EpisodeNumber != nil && *other.EpisodeNumber == *e.AirsBeforeEpisode {
					before, found = other.Order, true
					break
				}
			}
			if !found {
				continue
			}
			e.Order = (maxBelow(before) + before) / 2
		case e.AirsBeforeSeason != nil:
			before, ok := minOrderOfSeason(*e.AirsBeforeSeason)
			if !ok {
				continue
			}
			e.Order = (maxBelow(before) + before) / 2
		}
	}
}

func (t *TVDB) getCollection(ctx context.Context, listID int) (*models.Collection, error) {
	var out struct {
		Data struct {
			ID       int     `json:"id"`
			Name     string  `json:"name"`
			Overview string  `json:"overview"`
			Image    *string `json:"image"`
		} `json:"data"`
	}
	err := t.c.getJSON(ctx, fmt.Sprintf("lists/%d/extended", listID), nil, &out, "")
	if err != nil {
		return nil, err
	}

	col := &models.Collection{
		Slug: ToSlug(out.Data.Name),
		ExternalID: map[string]models.MetadataID{
			models.ProviderTVDB: {
				DataID: strconv.Itoa(out.Data.ID),
				Link:   strPtr(fmt.Sprintf("https://thetvdb.com/lists/%d", out.Data.ID)),
			},
		},
		Translations: map[string]models.Translation{
			"eng": {
				Name:        out.Data.Name,
				Description: strPtr(out.Data.Overview),
			},
		},
	}
	if out.Data.Image != nil {
		tr := col.Translations["eng"]
		tr.Poster = imagePtr(*out.Data.Image)
		col.Translations["eng"] = tr
	}
	return col, nil
}

// officialList picks the collection-worthy list of a record. List 4 is
// TVDB's sitewide "continuation" list and never a real collection.
func (t *TVDB) officialList(lists []tvdbList) *tvdbList {
	for _, l := range lists {
		if l.IsOfficial && l.ID != 4 {
			return &l
		}
	}
	return nil
}

func (t *TVDB) mapGenres(genres []tvdbGenre) []models.Genre {
	var out []models.Genre
	for _, g := range genres {
		if mapped, ok := tvdbGenreMap[g.Slug]; ok {
			out = append(out, mapped)
		}
	}
	return out
}

func (t *TVDB) mapRemoteIDs(ids []tvdbRemoteID, tvdbID, kind string) map[string]models.MetadataID {
	out := map[string]models.MetadataID{
		models.ProviderTVDB: {
			DataID: tvdbID,
			Link:   strPtr(fmt.Sprintf("https://thetvdb.com/dereferrer/%s/%s", kind, tvdbID)),
		},
	}
	for _, r := range ids {
		switch r.SourceName {
		case "IMDB":
			out[models.ProviderIMDB] = models.MetadataID{
				DataID: r.ID,
				Link:   strPtr("https://www.imdb.com/title/" + r.ID),
			}
		case "TheMovieDB.com":
			out[models.ProviderTMDB] = models.MetadataID{DataID: r.ID}
		}
	}
	return out
}

// mapTranslations builds one Translation per language seen in the name or
// overview translation lists.
func (t *TVDB) mapTranslations(tr tvdbTranslations, fallbackName string) map[string]models.Translation {
	out := map[string]models.Translation{}
	get := func(lang string) models.Translation {
		if v, ok := out[lang]; ok {
			return v
		}
		return models.Translation{Name: fallbackName}
	}
	for _, n := range tr.NameTranslations {
		v := get(n.Language)
		if n.Name != "" {
			v.Name = n.Name
		}
		out[n.Language] = v
	}
	for _, o := range tr.OverviewTranslations {
		v := get(o.Language)
		v.Description = strPtr(o.Overview)
		out[o.Language] = v
	}
	for _, a := range tr.Aliases {
		v := get(a.Language)
		v.Aliases = append(v.Aliases, a.Name)
		out[a.Language] = v
	}
	return out
}

func (t *TVDB) mapStudios(companies []tvdbCompany) []models.Studio {
	out := make([]models.Studio, 0, len(companies))
	for _, c := range companies {
		out = append(out, models.Studio{
			Slug: ToSlug(c.Name),
			ExternalID: map[string]models.MetadataID{
				models.ProviderTVDB: {
					DataID: strconv.Itoa(c.ID),
					Link:   strPtr(fmt.Sprintf("https://thetvdb.com/companies/%d", c.ID)),
				},
			},
			Translations: map[string]models.StudioTranslation{
				"eng": {Name: c.Name},
			},
		})
	}
	return out
}

func (t *TVDB) mapStaff(chars []tvdbCharacter) []models.Staff {
	out := make([]models.Staff, 0, len(chars))
	for _, c := range chars {
		role, ok := tvdbPeopleMap[c.PeopleType]
		if !ok {
			role = models.RoleOther
		}
		var img *models.Image
		if c.Image != nil {
			img = imagePtr(*c.Image)
		}
		out = append(out, models.Staff{
			Kind:      role,
			Character: &models.Character{Name: c.Name},
			Person: models.Person{
				Slug:  ToSlug(c.PersonName),
				Name:  c.PersonName,
				Image: img,
				ExternalID: map[string]models.MetadataID{
					models.ProviderTVDB: {
						DataID: strconv.Itoa(c.PeopleID),
						Link:   strPtr(fmt.Sprintf("https://thetvdb.com/people/%d", c.PeopleID)),
					},
				},
			},
		})
	}
	return out
}

// pickArtwork keeps the highest scored artwork of a type, preferring the
// requested language, then language-less art.
func pickArtwork(artworks []tvdbArtwork, typeID int, lang string) string {
	if typeID < 0 {
		return ""
	}
	sorted := make([]tvdbArtwork, 0, len(artworks))
	for _, a := range artworks {
		if a.Type == typeID {
			sorted = append(sorted, a)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	for _, a := range sorted {
		if a.Language != nil && *a.Language == lang {
			return a.Image
		}
	}
	for _, a := range sorted {
		if a.Language == nil {
			return a.Image
		}
	}
	if len(sorted) > 0 {
		return sorted[0].Image
	}
	return ""
}
