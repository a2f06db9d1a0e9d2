package models

// Canonical language-neutral records produced by the providers and pushed to
// the catalog. Dates travel as "2006-01-02" strings so partial provider data
// round-trips without timezone guessing.

type Genre string

const (
	GenreAction         Genre = "action"
	GenreAdventure      Genre = "adventure"
	GenreAnimation      Genre = "animation"
	GenreComedy         Genre = "comedy"
	GenreCrime          Genre = "crime"
	GenreDocumentary    Genre = "documentary"
	GenreDrama          Genre = "drama"
	GenreFamily         Genre = "family"
	GenreFantasy        Genre = "fantasy"
	GenreHistory        Genre = "history"
	GenreHorror         Genre = "horror"
	GenreMusic          Genre = "music"
	GenreMystery        Genre = "mystery"
	GenreRomance        Genre = "romance"
	GenreScienceFiction Genre = "science-fiction"
	GenreThriller       Genre = "thriller"
	GenreWar            Genre = "war"
	GenreWestern        Genre = "western"
	GenreKids           Genre = "kids"
	GenreReality        Genre = "reality"
	GenrePolitics       Genre = "politics"
	GenreSoap           Genre = "soap"
	GenreTalk           Genre = "talk"
)

type MovieStatus string

const (
	MovieUnknown  MovieStatus = "unknown"
	MovieFinished MovieStatus = "finished"
	MoviePlanned  MovieStatus = "planned"
)

type SerieStatus string

const (
	SerieUnknown  SerieStatus = "unknown"
	SerieFinished SerieStatus = "finished"
	SerieAiring   SerieStatus = "airing"
	SeriePlanned  SerieStatus = "planned"
)

// Image is a provider artwork candidate already reduced to its best pick.
type Image struct {
	Source string `json:"source"`
}

// Translation carries the language-dependent fields of a movie or serie.
type Translation struct {
	Name        string   `json:"name"`
	Latinized   *string  `json:"latinName,omitempty"`
	Description *string  `json:"description"`
	Tagline     *string  `json:"tagline"`
	Aliases     []string `json:"aliases"`
	Tags        []string `json:"tags"`
	Poster      *Image   `json:"poster"`
	Thumbnail   *Image   `json:"thumbnail"`
	Banner      *Image   `json:"banner"`
	Logo        *Image   `json:"logo"`
	Trailer     *string  `json:"trailerUrl,omitempty"`
}

type Movie struct {
	Slug             string                 `json:"slug"`
	OriginalLanguage *string                `json:"originalLanguage"`
	Genres           []Genre                `json:"genres"`
	Rating           *int                   `json:"rating"`
	Status           MovieStatus            `json:"status"`
	Runtime          *int                   `json:"runtime"`
	AirDate          *string                `json:"airDate"`
	ExternalID       map[string]MetadataID  `json:"externalId"`
	Translations     map[string]Translation `json:"translations"`
	Collections      []Collection           `json:"collections"`
	Studios          []Studio               `json:"studios"`
	Staff            []Staff                `json:"staff"`
	Videos           []string               `json:"videos"`
}

type Serie struct {
	Slug             string                 `json:"slug"`
	OriginalLanguage *string                `json:"originalLanguage"`
	Genres           []Genre                `json:"genres"`
	Rating           *int                   `json:"rating"`
	Status           SerieStatus            `json:"status"`
	Runtime          *int                   `json:"runtime"`
	StartAir         *string                `json:"startAir"`
	EndAir           *string                `json:"endAir"`
	ExternalID       map[string]MetadataID  `json:"externalId"`
	Translations     map[string]Translation `json:"translations"`
	Seasons          []Season               `json:"seasons"`
	Entries          []Entry                `json:"entries"`
	Extra            []Extra                `json:"extras"`
	Collections      []Collection           `json:"collections"`
	Studios          []Studio               `json:"studios"`
	Staff            []Staff                `json:"staff"`
}

type Season struct {
	SeasonNumber int                          `json:"seasonNumber"`
	StartAir     *string                      `json:"startAir"`
	EndAir       *string                      `json:"endAir"`
	ExternalID   map[string]SeasonID          `json:"externalId"`
	Translations map[string]SeasonTranslation `json:"translations"`
}

type SeasonTranslation struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Poster      *Image  `json:"poster"`
	Thumbnail   *Image  `json:"thumbnail"`
	Banner      *Image  `json:"banner"`
}

type EntryKind string

const (
	EntryEpisode EntryKind = "episode"
	EntrySpecial EntryKind = "special"
	EntryMovie   EntryKind = "movie"
)

// Entry is one watchable unit of a serie. Order is a global float across
// seasons, so a special can sit at 12.5 between two episodes.
type Entry struct {
	Kind          EntryKind                   `json:"kind"`
	Order         float64                     `json:"order"`
	Runtime       *int                        `json:"runtime"`
	AirDate       *string                     `json:"airDate"`
	SeasonNumber  *int                        `json:"seasonNumber"`
	EpisodeNumber *int                        `json:"episodeNumber"`
	Number        *int                        `json:"number"`
	ExternalID    map[string]EpisodeID        `json:"externalId"`
	Translations  map[string]EntryTranslation `json:"translations"`
	Videos        []string                    `json:"videos"`

	// Scheduling hints used while computing fractional orders for specials.
	// They never reach the catalog.
	AirsAfterSeason   *int `json:"-"`
	AirsBeforeSeason  *int `json:"-"`
	AirsBeforeEpisode *int `json:"-"`
}

type EntryTranslation struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Poster      *Image  `json:"poster"`
}

type ExtraKind string

const (
	ExtraTrailer      ExtraKind = "trailer"
	ExtraInterview    ExtraKind = "interview"
	ExtraBehindScenes ExtraKind = "behind-the-scene"
	ExtraDeletedScene ExtraKind = "deleted-scene"
	ExtraFeaturette   ExtraKind = "featurette"
	ExtraOther        ExtraKind = "other"
)

type Extra struct {
	Kind       ExtraKind             `json:"kind"`
	Name       string                `json:"name"`
	Runtime    *int                  `json:"runtime"`
	ExternalID map[string]MetadataID `json:"externalId"`
	Video      *string               `json:"video"`
}

type Collection struct {
	Slug         string                 `json:"slug"`
	ExternalID   map[string]MetadataID  `json:"externalId"`
	Translations map[string]Translation `json:"translations"`
}

type Studio struct {
	Slug         string                       `json:"slug"`
	ExternalID   map[string]MetadataID        `json:"externalId"`
	Translations map[string]StudioTranslation `json:"translations"`
}

type StudioTranslation struct {
	Name string `json:"name"`
	Logo *Image `json:"logo"`
}

type Role string

const (
	RoleActor    Role = "actor"
	RoleDirector Role = "director"
	RoleWriter   Role = "writer"
	RoleProducer Role = "producer"
	RoleMusic    Role = "music"
	RoleCrew     Role = "crew"
	RoleOther    Role = "other"
)

type Staff struct {
	Kind      Role       `json:"kind"`
	Character *Character `json:"character"`
	Person    Person     `json:"staff"`
}

type Character struct {
	Name      string  `json:"name"`
	Latinized *string `json:"latinName,omitempty"`
	Image     *Image  `json:"image"`
}

type Person struct {
	Slug       string                `json:"slug"`
	Name       string                `json:"name"`
	Latinized  *string               `json:"latinName,omitempty"`
	Image      *Image                `json:"image"`
	ExternalID map[string]MetadataID `json:"externalId"`
}

// SearchResult is the reduced shape returned by provider searches; the full
// record is fetched afterwards through the cached get path.
type SearchResult struct {
	Name       string            `json:"name"`
	Year       *int              `json:"year"`
	ExternalID map[string]string `json:"externalId"`
}
