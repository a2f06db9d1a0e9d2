package provider

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/solidstone/mediascan/internal/cache"
	"github.com/solidstone/mediascan/internal/models"
)

const tmdbImageBase = "https://image.tmdb.org/t/p/original"

// tmdbParallelism caps concurrent season and episode fetches per serie.
const tmdbParallelism = 10

// TMDB talks to api.themoviedb.org. It is the primary source for movies and
// the secondary, entry-less source for series.
type TMDB struct {
	c *apiClient
}

// tmdb genre ids; a few compound ids expand to two genres.
var tmdbGenreMap = map[int][]models.Genre{
	28:    {models.GenreAction},
	12:    {models.GenreAdventure},
	16:    {models.GenreAnimation},
	35:    {models.GenreComedy},
	80:    {models.GenreCrime},
	99:    {models.GenreDocumentary},
	18:    {models.GenreDrama},
	10751: {models.GenreFamily},
	14:    {models.GenreFantasy},
	36:    {models.GenreHistory},
	27:    {models.GenreHorror},
	10402: {models.GenreMusic},
	9648:  {models.GenreMystery},
	10749: {models.GenreRomance},
	878:   {models.GenreScienceFiction},
	53:    {models.GenreThriller},
	10752: {models.GenreWar},
	37:    {models.GenreWestern},
	10759: {models.GenreAction, models.GenreAdventure},
	10762: {models.GenreKids},
	10764: {models.GenreReality},
	10765: {models.GenreScienceFiction, models.GenreFantasy},
	10766: {models.GenreSoap},
	10767: {models.GenreTalk},
	10768: {models.GenreWar, models.GenrePolitics},
}

var tmdbRoleMap = map[string]models.Role{
	"Actors":     models.RoleActor,
	"Directing":  models.RoleDirector,
	"Writing":    models.RoleWriter,
	"Production": models.RoleProducer,
	"Sound":      models.RoleMusic,
	"Crew":       models.RoleCrew,
}

// NewTMDB returns nil when the token is empty or "disabled".
func NewTMDB(token string, shared *cache.Map[string, []byte]) *TMDB {
	if token == "" || token == "disabled" {
		return nil
	}
	c := newAPIClient("tmdb", "https://api.themoviedb.org/3/", shared)
	c.authorize = func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
	return &TMDB{c: c}
}

func (t *TMDB) Name() string { return models.ProviderTMDB }

type tmdbSearchPage struct {
	Results []tmdbSearchItem `json:"results"`
}

type tmdbSearchItem struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	VoteCount    float64 `json:"vote_count"`
	Popularity   float64 `json:"popularity"`
}

func (t *TMDB) SearchMovies(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return t.search(ctx, "search/movie", title, year)
}

func (t *TMDB) SearchSeries(ctx context.Context, title string, year *int) ([]models.SearchResult, error) {
	return t.search(ctx, "search/tv", title, year)
}

func (t *TMDB) search(ctx context.Context, path, title string, year *int) ([]models.SearchResult, error) {
	q := url.Values{"query": {title}}
	if year != nil {
		q.Set("year", strconv.Itoa(*year))
	}
	var page tmdbSearchPage
	if err := t.c.getJSON(ctx, path, q, &page, ""); err != nil {
		return nil, err
	}

	cands := make([]candidate, 0, len(page.Results))
	for _, x := range page.Results {
		name, date := x.Title, x.ReleaseDate
		if name == "" {
			name, date = x.Name, x.FirstAirDate
		}
		var y *int
		if len(date) >= 4 {
			if n, err := strconv.Atoi(date[:4]); err == nil {
				y = &n
			}
		}
		cands = append(cands, candidate{
			name:       name,
			date:       date,
			voteCount:  x.VoteCount,
			popularity: x.Popularity,
			result: models.SearchResult{
				Name:       name,
				Year:       y,
				ExternalID: map[string]string{models.ProviderTMDB: strconv.Itoa(x.ID)},
			},
		})
	}
	return rankSearch(cands, title, year), nil
}

type tmdbTranslation struct {
	ISO6391 string `json:"iso_639_1"`
	ISO3166 string `json:"iso_3166_1"`
	Data    struct {
		Title    string `json:"title"`
		Name     string `json:"name"`
		Overview string `json:"overview"`
		Tagline  string `json:"tagline"`
	} `json:"data"`
}

type tmdbAltTitle struct {
	ISO3166 string `json:"iso_3166_1"`
	Title   string `json:"title"`
	Type    string `json:"type"`
}

type tmdbImage struct {
	FilePath    string  `json:"file_path"`
	VoteAverage float64 `json:"vote_average"`
	Width       int     `json:"width"`
	ISO6391     *string `json:"iso_639_1"`
}

type tmdbImages struct {
	Posters   []tmdbImage `json:"posters"`
	Backdrops []tmdbImage `json:"backdrops"`
	Logos     []tmdbImage `json:"logos"`
}

type tmdbCompany struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	LogoPath *string `json:"logo_path"`
}

type tmdbCast struct {
	ID                 int     `json:"id"`
	Name               string  `json:"name"`
	OriginalName       string  `json:"original_name"`
	Character          string  `json:"character"`
	KnownForDepartment string  `json:"known_for_department"`
	ProfilePath        *string `json:"profile_path"`
}

type tmdbGenreRef struct {
	ID int `json:"id"`
}

type tmdbMovie struct {
	ID               int            `json:"id"`
	Title            string         `json:"title"`
	OriginalTitle    string         `json:"original_title"`
	OriginalLanguage string         `json:"original_language"`
	Genres           []tmdbGenreRef `json:"genres"`
	VoteAverage      float64        `json:"vote_average"`
	Status           string         `json:"status"`
	Runtime          *int           `json:"runtime"`
	ReleaseDate      string         `json:"release_date"`
	IMDBID           string         `json:"imdb_id"`
	BelongsTo        *struct {
		ID int `json:"id"`
	} `json:"belongs_to_collection"`
	AlternativeTitles struct {
		Titles []tmdbAltTitle `json:"titles"`
	} `json:"alternative_titles"`
	Keywords struct {
		Keywords []struct {
			Name string `json:"name"`
		} `json:"keywords"`
	} `json:"keywords"`
	Images       tmdbImages `json:"images"`
	Translations struct {
		Translations []tmdbTranslation `json:"translations"`
	} `json:"translations"`
	ProductionCompanies []tmdbCompany `json:"production_companies"`
	Credits             struct {
		Cast []tmdbCast `json:"cast"`
	} `json:"credits"`
}

func (t *TMDB) GetMovie(ctx context.Context, externalID map[string]string) (*models.Movie, error) {
	id, ok := externalID[models.ProviderTMDB]
	if !ok {
		return nil, nil
	}

	var m tmdbMovie
	err := t.c.getJSON(ctx, "movie/"+id,
		url.Values{"append_to_response": {"alternative_titles,credits,keywords,images,translations"}},
		&m, fmt.Sprintf("movie with tmdb id %s", id))
	if err != nil {
		return nil, err
	}

	status := models.MoviePlanned
	if m.Status == "Released" {
		status = models.MovieFinished
	}
	rating := int(math.Round(m.VoteAverage * 10))

	ids := map[string]models.MetadataID{
		models.ProviderTMDB: {
			DataID: strconv.Itoa(m.ID),
			Link:   strPtr(fmt.Sprintf("https://www.themoviedb.org/movie/%d", m.ID)),
		},
	}
	if m.IMDBID != "" {
		ids[models.ProviderIMDB] = models.MetadataID{
			DataID: m.IMDBID,
			Link:   strPtr("https://www.imdb.com/title/" + m.IMDBID),
		}
	}

	movie := &models.Movie{
		Slug:             ToSlug(m.Title),
		OriginalLanguage: strPtr(m.OriginalLanguage),
		Genres:           t.mapGenres(m.Genres),
		Rating:           &rating,
		Status:           status,
		Runtime:          m.Runtime,
		AirDate:          datePtr(m.ReleaseDate),
		ExternalID:       ids,
		Translations:     map[string]models.Translation{},
		Studios:          t.mapStudios(m.ProductionCompanies),
		Staff:            t.mapStaff(m.Credits.Cast),
	}

	for _, tr := range m.Translations.Translations {
		name := tr.Data.Title
		if name == "" && m.OriginalLanguage == tr.ISO6391 {
			name = m.OriginalTitle
		}
		if name == "" {
			name = m.Title
		}
		movie.Translations[langKey(tr.ISO6391, tr.ISO3166)] = models.Translation{
			Name:        name,
			Latinized:   romajiTitle(m.AlternativeTitles.Titles, tr.ISO3166),
			Description: strPtr(tr.Data.Overview),
			Tagline:     strPtr(tr.Data.Tagline),
			Aliases:     altTitles(m.AlternativeTitles.Titles, tr.ISO3166),
			Tags:        keywordNames(m.Keywords.Keywords),
			Poster:      imagePtr(pickImage(m.Images.Posters, tr.ISO6391)),
			Logo:        imagePtr(pickImage(m.Images.Logos, tr.ISO6391)),
			Thumbnail:   imagePtr(pickImage(m.Images.Backdrops, tr.ISO6391)),
		}
	}

	if m.BelongsTo != nil {
		col, err := t.getCollection(ctx, m.BelongsTo.ID)
		if err != nil {
			log.Printf("[tmdb] collection %d for movie %s: %v", m.BelongsTo.ID, id, err)
		} else {
			movie.Collections = []models.Collection{*col}
		}
	}
	return movie, nil
}

type tmdbSerie struct {
	ID               int            `json:"id"`
	Name             string         `json:"name"`
	OriginalName     string         `json:"original_name"`
	OriginalLanguage string         `json:"original_language"`
	Genres           []tmdbGenreRef `json:"genres"`
	VoteAverage      float64        `json:"vote_average"`
	Status           string         `json:"status"`
	InProduction     bool           `json:"in_production"`
	FirstAirDate     string         `json:"first_air_date"`
	LastAirDate      string         `json:"last_air_date"`
	LastEpisodeToAir *struct {
		Runtime *int `json:"runtime"`
	} `json:"last_episode_to_air"`
	Seasons []struct {
		SeasonNumber int `json:"season_number"`
	} `json:"seasons"`
	ExternalIDs struct {
		IMDBID string `json:"imdb_id"`
		TVDBID int    `json:"tvdb_id"`
	} `json:"external_ids"`
	AlternativeTitles struct {
		Results []tmdbAltTitle `json:"results"`
	} `json:"alternative_titles"`
	Keywords struct {
		Results []struct {
			Name string `json:"name"`
		} `json:"results"`
	} `json:"keywords"`
	Images       tmdbImages `json:"images"`
	Translations struct {
		Translations []tmdbTranslation `json:"translations"`
	} `json:"translations"`
	ProductionCompanies []tmdbCompany `json:"production_companies"`
	Credits             struct {
		Cast []tmdbCast `json:"cast"`
	} `json:"credits"`
}

func (t *TMDB) GetSerie(ctx context.Context, externalID map[string]string, skipEntries bool) (*models.Serie, error) {
	id, ok := externalID[models.ProviderTMDB]
	if !ok {
		return nil, nil
	}

	var s tmdbSerie
	err := t.c.getJSON(ctx, "tv/"+id,
		url.Values{"append_to_response": {"alternative_titles,credits,keywords,images,external_ids,translations"}},
		&s, fmt.Sprintf("serie with tmdb id %s", id))
	if err != nil {
		return nil, err
	}

	status := models.SerieFinished
	if s.InProduction {
		status = models.SerieAiring
	}
	rating := int(math.Round(s.VoteAverage * 10))

	ids := map[string]models.MetadataID{
		models.ProviderTMDB: {
			DataID: strconv.Itoa(s.ID),
			Link:   strPtr(fmt.Sprintf("https://www.themoviedb.org/tv/%d", s.ID)),
		},
	}
	if s.ExternalIDs.IMDBID != "" {
		ids[models.ProviderIMDB] = models.MetadataID{
			DataID: s.ExternalIDs.IMDBID,
			Link:   strPtr("https://www.imdb.com/title/" + s.ExternalIDs.IMDBID),
		}
	}
	if s.ExternalIDs.TVDBID != 0 {
		ids[models.ProviderTVDB] = models.MetadataID{DataID: strconv.Itoa(s.ExternalIDs.TVDBID)}
	}

	var runtime *int
	if s.LastEpisodeToAir != nil {
		runtime = s.LastEpisodeToAir.Runtime
	}

	serie := &models.Serie{
		Slug:             ToSlug(s.Name),
		OriginalLanguage: strPtr(s.OriginalLanguage),
		Genres:           t.mapGenres(s.Genres),
		Rating:           &rating,
		Status:           status,
		Runtime:          runtime,
		StartAir:         datePtr(s.FirstAirDate),
		EndAir:           datePtr(s.LastAirDate),
		ExternalID:       ids,
		Translations:     map[string]models.Translation{},
		Studios:          t.mapStudios(s.ProductionCompanies),
		Staff:            t.mapStaff(s.Credits.Cast),
	}

	for _, tr := range s.Translations.Translations {
		name := tr.Data.Name
		if name == "" && s.OriginalLanguage == tr.ISO6391 {
			name = s.OriginalName
		}
		if name == "" {
			name = s.Name
		}
		serie.Translations[langKey(tr.ISO6391, tr.ISO3166)] = models.Translation{
			Name:        name,
			Latinized:   romajiTitle(s.AlternativeTitles.Results, tr.ISO3166),
			Description: strPtr(tr.Data.Overview),
			Tagline:     strPtr(tr.Data.Tagline),
			Aliases:     altTitles(s.AlternativeTitles.Results, tr.ISO3166),
			Tags:        keywordNames(s.Keywords.Results),
			Poster:      imagePtr(pickImage(s.Images.Posters, tr.ISO6391)),
			Logo:        imagePtr(pickImage(s.Images.Logos, tr.ISO6391)),
			Thumbnail:   imagePtr(pickImage(s.Images.Backdrops, tr.ISO6391)),
		}
	}

	if skipEntries {
		return serie, nil
	}

	seasons, err := t.getSeasons(ctx, s.ID, s.Seasons)
	if err != nil {
		return nil, err
	}
	for _, info := range seasons {
		serie.Seasons = append(serie.Seasons, info.season)
	}
	entries, err := t.getAllEntries(ctx, s.ID, seasons)
	if err != nil {
		return nil, err
	}
	serie.Entries = entries
	return serie, nil
}

// seasonInfo tracks what the ordering pass needs per season: where episode
// numbering starts (it does not reset for some long shows) and how many
// entries the season holds.
type seasonInfo struct {
	season     models.Season
	number     int
	firstEntry int
	count      int
}

type tmdbSeason struct {
	SeasonNumber int    `json:"season_number"`
	AirDate      string `json:"air_date"`
	Episodes     []struct {
		EpisodeNumber int `json:"episode_number"`
	} `json:"episodes"`
	Images struct {
		Posters []tmdbImage `json:"posters"`
	} `json:"images"`
	Translations struct {
		Translations []tmdbTranslation `json:"translations"`
	} `json:"translations"`
}

func (t *TMDB) getSeasons(ctx context.Context, serieID int, refs []struct {
	SeasonNumber int `json:"season_number"`
}) ([]seasonInfo, error) {
	infos := make([]seasonInfo, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tmdbParallelism)
	for i, ref := range refs {
		g.Go(func() error {
			var sn tmdbSeason
			err := t.c.getJSON(gctx,
				fmt.Sprintf("tv/%d/season/%d", serieID, ref.SeasonNumber),
				url.Values{"append_to_response": {"translations,images"}},
				&sn, "")
			if err != nil {
				return err
			}

			season := models.Season{
				SeasonNumber: sn.SeasonNumber,
				StartAir:     datePtr(sn.AirDate),
				ExternalID: map[string]models.SeasonID{
					models.ProviderTMDB: {
						SerieID: strconv.Itoa(serieID),
						Season:  sn.SeasonNumber,
						Link:    strPtr(fmt.Sprintf("https://www.themoviedb.org/tv/%d/season/%d", serieID, sn.SeasonNumber)),
					},
				},
				Translations: map[string]models.SeasonTranslation{},
			}
			for _, tr := range sn.Translations.Translations {
				season.Translations[langKey(tr.ISO6391, tr.ISO3166)] = models.SeasonTranslation{
					Name:        strPtr(tr.Data.Name),
					Description: strPtr(tr.Data.Overview),
					Poster:      imagePtr(pickImage(sn.Images.Posters, tr.ISO6391)),
				}
			}

			first := 1
			if len(sn.Episodes) > 0 {
				first = sn.Episodes[0].EpisodeNumber
			}
			infos[i] = seasonInfo{season: season, number: sn.SeasonNumber, firstEntry: first, count: len(sn.Episodes)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].number < infos[j].number })
	return infos, nil
}

type tmdbEpisode struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Runtime       *int   `json:"runtime"`
	AirDate       string `json:"air_date"`
	Translations  struct {
		Translations []tmdbTranslation `json:"translations"`
	} `json:"translations"`
}

func (t *TMDB) getAllEntries(ctx context.Context, serieID int, seasons []seasonInfo) ([]models.Entry, error) {
	type slot struct {
		season, episode int
	}
	var slots []slot
	for _, s := range seasons {
		for e := 0; e < s.count; e++ {
			slots = append(slots, slot{season: s.number, episode: s.firstEntry + e})
		}
	}

	entries := make([]models.Entry, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tmdbParallelism)
	for i, sl := range slots {
		g.Go(func() error {
			var ep tmdbEpisode
			err := t.c.getJSON(gctx,
				fmt.Sprintf("tv/%d/season/%d/episode/%d", serieID, sl.season, sl.episode),
				url.Values{"append_to_response": {"translations"}},
				&ep, "")
			if err != nil {
				return err
			}
			kind := models.EntryEpisode
			if ep.SeasonNumber == 0 {
				kind = models.EntrySpecial
			}
			season := ep.SeasonNumber
			episode := ep.EpisodeNumber
			entry := models.Entry{
				Kind:          kind,
				Runtime:       ep.Runtime,
				AirDate:       datePtr(ep.AirDate),
				SeasonNumber:  &season,
				EpisodeNumber: &episode,
				Number:        &episode,
				ExternalID: map[string]models.EpisodeID{
					models.ProviderTMDB: {
						SerieID: strconv.Itoa(serieID),
						Season:  &season,
						Episode: episode,
						Link:    strPtr(fmt.Sprintf("https://www.themoviedb.org/tv/%d/season/%d/episode/%d", serieID, season, episode)),
					},
				},
				Translations: map[string]models.EntryTranslation{},
			}
			for _, tr := range ep.Translations.Translations {
				entry.Translations[langKey(tr.ISO6391, tr.ISO3166)] = models.EntryTranslation{
					Name:        strPtr(tr.Data.Name),
					Description: strPtr(tr.Data.Overview),
				}
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.assignAbsoluteOrder(ctx, serieID, seasons, entries)
	return entries, nil
}

type tmdbEpisodeGroups struct {
	Results []struct {
		ID           string `json:"id"`
		Type         int    `json:"type"`
		EpisodeCount int    `json:"episode_count"`
	} `json:"results"`
}

type tmdbGroupDetail struct {
	Groups []struct {
		Order    int `json:"order"`
		Episodes []struct {
			SeasonNumber  int `json:"season_number"`
			EpisodeNumber int `json:"episode_number"`
			Order         int `json:"order"`
		} `json:"episodes"`
	} `json:"groups"`
}

// assignAbsoluteOrder sets Entry.Order from the show's absolute episode
// group when a maintained one exists (type 2 covering at least 75% of the
// entries; the largest such group wins). Otherwise entries are ordered by
// ascending (season, episode).
func (t *TMDB) assignAbsoluteOrder(ctx context.Context, serieID int, seasons []seasonInfo, entries []models.Entry) {
	fallback := func() {
		sort.SliceStable(entries, func(i, j int) bool {
			si, sj := *entries[i].SeasonNumber, *entries[j].SeasonNumber
			if si != sj {
				return si < sj
			}
			return *entries[i].EpisodeNumber < *entries[j].EpisodeNumber
		})
		for i := range entries {
			entries[i].Order = float64(i + 1)
		}
	}

	var groups tmdbEpisodeGroups
	if err := t.c.getJSON(ctx, fmt.Sprintf("tv/%d/episode_groups", serieID), nil, &groups, ""); err != nil {
		log.Printf("[tmdb] episode groups for %d: %v", serieID, err)
		fallback()
		return
	}
	bestID, bestCount := "", -1
	for _, g := range groups.Results {
		if g.Type == 2 && g.EpisodeCount > bestCount {
			bestID, bestCount = g.ID, g.EpisodeCount
		}
	}
	// An absolute group covering under 75% of the episodes is probably
	// unmaintained; the default order is safer.
	if bestID == "" || float64(bestCount) < float64(len(entries))/1.5 {
		fallback()
		return
	}

	var detail tmdbGroupDetail
	if err := t.c.getJSON(ctx, "tv/episode_group/"+bestID, nil, &detail, ""); err != nil {
		log.Printf("[tmdb] episode group %s: %v", bestID, err)
		fallback()
		return
	}

	type ref struct{ season, episode int }
	var ordered []ref
	sort.Slice(detail.Groups, func(i, j int) bool { return detail.Groups[i].Order < detail.Groups[j].Order })
	for _, grp := range detail.Groups {
		eps := grp.Episodes
		sort.Slice(eps, func(i, j int) bool { return eps[i].Order < eps[j].Order })
		for _, ep := range eps {
			ordered = append(ordered, ref{season: ep.SeasonNumber, episode: ep.EpisodeNumber})
		}
	}

	// Some shows never reset episode numbers at season boundaries, so an
	// entry may be listed by its in-season number or by its running number
	// offset by the season's first episode.
	seasonStart := map[int]int{}
	for _, s := range seasons {
		seasonStart[s.number] = s.firstEntry
	}
	contains := func(season, episode int) bool {
		for _, r := range ordered {
			if r.season == season && (r.episode == episode || r.episode == seasonStart[season]+episode) {
				return true
			}
		}
		return false
	}

	if len(ordered) != len(entries) {
		log.Printf("[tmdb] incomplete absolute group for %d, filling gaps in season order", serieID)
		for _, s := range seasons {
			for e := 1; e <= s.count; e++ {
				if !contains(s.number, e) {
					ordered = append(ordered, ref{season: s.number, episode: e})
				}
			}
		}
	}

	for i := range entries {
		season, episode := *entries[i].SeasonNumber, *entries[i].EpisodeNumber
		found := false
		for pos, r := range ordered {
			if r.season == season && (r.episode == episode || r.episode == episode+seasonStart[season]) {
				entries[i].Order = float64(pos + 1)
				found = true
				break
			}
		}
		if !found {
			fallback()
			return
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Order < entries[j].Order })
}

type tmdbCollection struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Images       tmdbImages `json:"images"`
	Translations struct {
		Translations []tmdbTranslation `json:"translations"`
	} `json:"translations"`
}

func (t *TMDB) getCollection(ctx context.Context, id int) (*models.Collection, error) {
	var col tmdbCollection
	err := t.c.getJSON(ctx, fmt.Sprintf("collection/%d", id),
		url.Values{"append_to_response": {"images,translations"}},
		&col, fmt.Sprintf("collection %d", id))
	if err != nil {
		return nil, err
	}

	out := &models.Collection{
		Slug: ToSlug(col.Name),
		ExternalID: map[string]models.MetadataID{
			models.ProviderTMDB: {
				DataID: strconv.Itoa(col.ID),
				Link:   strPtr(fmt.Sprintf("https://www.themoviedb.org/collection/%d", col.ID)),
			},
		},
		Translations: map[string]models.Translation{},
	}
	for _, tr := range col.Translations.Translations {
		name := tr.Data.Title
		if name == "" {
			name = col.Name
		}
		out.Translations[langKey(tr.ISO6391, tr.ISO3166)] = models.Translation{
			Name:        name,
			Description: strPtr(tr.Data.Overview),
			Poster:      imagePtr(pickImage(col.Images.Posters, tr.ISO6391)),
			Thumbnail:   imagePtr(pickImage(col.Images.Backdrops, tr.ISO6391)),
		}
	}
	return out, nil
}

func (t *TMDB) mapGenres(refs []tmdbGenreRef) []models.Genre {
	var out []models.Genre
	for _, g := range refs {
		out = append(out, tmdbGenreMap[g.ID]...)
	}
	return out
}

func (t *TMDB) mapStudios(companies []tmdbCompany) []models.Studio {
	out := make([]models.Studio, 0, len(companies))
	for _, c := range companies {
		var logo *models.Image
		if c.LogoPath != nil {
			logo = imagePtr(tmdbImageBase + *c.LogoPath)
		}
		out = append(out, models.Studio{
			Slug: ToSlug(c.Name),
			ExternalID: map[string]models.MetadataID{
				models.ProviderTMDB: {
					DataID: strconv.Itoa(c.ID),
					Link:   strPtr(fmt.Sprintf("https://www.themoviedb.org/company/%d", c.ID)),
				},
			},
			Translations: map[string]models.StudioTranslation{
				"en": {Name: c.Name, Logo: logo},
			},
		})
	}
	return out
}

func (t *TMDB) mapStaff(cast []tmdbCast) []models.Staff {
	out := make([]models.Staff, 0, len(cast))
	for _, p := range cast {
		role, ok := tmdbRoleMap[p.KnownForDepartment]
		if !ok {
			role = models.RoleOther
		}
		var img *models.Image
		if p.ProfilePath != nil {
			img = imagePtr(tmdbImageBase + *p.ProfilePath)
		}
		out = append(out, models.Staff{
			Kind:      role,
			Character: &models.Character{Name: p.Character},
			Person: models.Person{
				Slug:      ToSlug(p.Name),
				Name:      p.OriginalName,
				Latinized: strPtr(p.Name),
				Image:     img,
				ExternalID: map[string]models.MetadataID{
					models.ProviderTMDB: {
						DataID: strconv.Itoa(p.ID),
						Link:   strPtr(fmt.Sprintf("https://www.themoviedb.org/person/%d", p.ID)),
					},
				},
			},
		})
	}
	return out
}

// pickImage sorts by (vote_average, width) and prefers the requested
// language, then language-less art, then anything.
func pickImage(images []tmdbImage, lang string) string {
	sorted := make([]tmdbImage, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].VoteAverage != sorted[j].VoteAverage {
			return sorted[i].VoteAverage > sorted[j].VoteAverage
		}
		return sorted[i].Width > sorted[j].Width
	})

	for _, img := range sorted {
		if img.ISO6391 != nil && *img.ISO6391 == lang {
			return tmdbImageBase + img.FilePath
		}
	}
	for _, img := range sorted {
		if img.ISO6391 == nil {
			return tmdbImageBase + img.FilePath
		}
	}
	if len(sorted) > 0 {
		return tmdbImageBase + sorted[0].FilePath
	}
	return ""
}

func langKey(iso639, iso3166 string) string {
	if iso3166 != "" {
		return iso639 + "-" + iso3166
	}
	return iso639
}

func romajiTitle(titles []tmdbAltTitle, region string) *string {
	for _, t := range titles {
		if t.ISO3166 == region && t.Type == "Romaji" {
			return strPtr(t.Title)
		}
	}
	return nil
}

func altTitles(titles []tmdbAltTitle, region string) []string {
	var out []string
	for _, t := range titles {
		if t.ISO3166 == region {
			out = append(out, t.Title)
		}
	}
	return out
}

func keywordNames(kws []struct {
	Name string `json:"name"`
}) []string {
	out := make([]string, len(kws))
	for i, k := range kws {
		out[i] = k.Name
	}
	return out
}
