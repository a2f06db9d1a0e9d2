package models

// Guess is the parser's reading of a file path, kept alongside the video so
// operators can audit why a file was matched the way it was.
type Guess struct {
	Title      string            `json:"title"`
	Kind       GuessKind         `json:"kind"`
	ExtraKind  *string           `json:"extraKind,omitempty"`
	Years      []int             `json:"years"`
	Episodes   []GuessEpisode    `json:"episodes"`
	ExternalID map[string]string `json:"externalId"`
	From       string            `json:"from"`
	Raw        map[string]any    `json:"raw,omitempty"`
}

type GuessKind string

const (
	GuessKindMovie   GuessKind = "movie"
	GuessKindEpisode GuessKind = "episode"
	GuessKindExtra   GuessKind = "extra"
)

// GuessEpisode is one (season, episode) pair guessed from a path. Season is
// nil when only an absolute number was found.
type GuessEpisode struct {
	Season  *int `json:"season"`
	Episode int  `json:"episode"`
}

// Video is one file on disk as the catalog sees it. RenderingHash groups
// versions and parts of the same rendition; Part and Version come from the
// filename.
type Video struct {
	ID            string   `json:"id,omitempty"`
	Path          string   `json:"path"`
	RenderingHash string   `json:"rendering"`
	Part          *int     `json:"part"`
	Version       int      `json:"version"`
	Guess         Guess    `json:"guess"`
	For           []Target `json:"for,omitempty"`
}

// VideoLink ties an already-registered video to one or more targets.
type VideoLink struct {
	ID  string   `json:"id"`
	For []Target `json:"for"`
}
