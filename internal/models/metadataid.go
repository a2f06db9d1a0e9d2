package models

// Provider names used as keys of external id maps. The catalog and the sync
// services both key on these, so they are part of the wire contract.
const (
	ProviderTMDB    = "themoviedatabase"
	ProviderTVDB    = "thetvdb"
	ProviderIMDB    = "imdb"
	ProviderAniList = "anilist"
	ProviderMAL     = "mal"
)

// MetadataID points to a movie, serie, collection, studio or person on an
// external metadata provider.
type MetadataID struct {
	DataID string  `json:"dataId"`
	Link   *string `json:"link,omitempty"`
}

// EpisodeID points to a single episode of a serie on an external provider.
// Season is nil for absolute-numbered references.
type EpisodeID struct {
	SerieID string  `json:"serieId"`
	Season  *int    `json:"season"`
	Episode int     `json:"episode"`
	Link    *string `json:"link,omitempty"`
}

// SeasonID points to a season of a serie on an external provider.
type SeasonID struct {
	SerieID string  `json:"serieId"`
	Season  int     `json:"season"`
	Link    *string `json:"link,omitempty"`
}

// MergeExternalIDs unions two external id maps. Keys present on both sides
// keep the right-hand side's DataID; a missing Link is backfilled from the
// other side. The bias makes merge order significant: merge(a, b) prefers b.
func MergeExternalIDs(left, right map[string]MetadataID) map[string]MetadataID {
	out := make(map[string]MetadataID, len(left)+len(right))
	for k, v := range left {
		out[k] = v
	}
	for k, v := range right {
		if prev, ok := out[k]; ok && v.Link == nil {
			v.Link = prev.Link
		}
		out[k] = v
	}
	return out
}
