package models

import (
	"encoding/json"
	"fmt"
)

// TargetKind discriminates the Target variants.
type TargetKind string

const (
	TargetSlug       TargetKind = "slug"
	TargetExternalID TargetKind = "external_id"
	TargetMovie      TargetKind = "movie"
	TargetEpisode    TargetKind = "episode"
	TargetOrder      TargetKind = "order"
	TargetSpecial    TargetKind = "special"
)

// Target hints the catalog about what a video maps to. Exactly one variant is
// populated, selected by Kind. On the wire each variant has a distinct shape;
// decoding dispatches on which fields are present.
type Target struct {
	Kind TargetKind

	// TargetSlug
	Slug string
	// TargetExternalID; values are MetadataID for movies/series and EpisodeID
	// for episodes (EpisodeID embeds the serie reference).
	ExternalID map[string]MetadataID
	EpisodeIDs map[string]EpisodeID
	// TargetMovie
	Movie string
	// TargetEpisode / TargetOrder / TargetSpecial
	Serie   string
	Season  int
	Episode int
	Order   float64
	Special int
}

func SlugTarget(slug string) Target {
	return Target{Kind: TargetSlug, Slug: slug}
}

func ExternalIDTarget(ids map[string]MetadataID) Target {
	return Target{Kind: TargetExternalID, ExternalID: ids}
}

func EpisodeIDTarget(ids map[string]EpisodeID) Target {
	return Target{Kind: TargetExternalID, EpisodeIDs: ids}
}

func MovieTarget(slug string) Target {
	return Target{Kind: TargetMovie, Movie: slug}
}

func EpisodeTarget(serie string, season, episode int) Target {
	return Target{Kind: TargetEpisode, Serie: serie, Season: season, Episode: episode}
}

func OrderTarget(serie string, order float64) Target {
	return Target{Kind: TargetOrder, Serie: serie, Order: order}
}

func SpecialTarget(serie string, special int) Target {
	return Target{Kind: TargetSpecial, Serie: serie, Special: special}
}

func (t Target) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TargetSlug:
		return json.Marshal(struct {
			Slug string `json:"slug"`
		}{t.Slug})
	case TargetExternalID:
		if t.EpisodeIDs != nil {
			return json.Marshal(struct {
				ExternalID map[string]EpisodeID `json:"externalId"`
			}{t.EpisodeIDs})
		}
		return json.Marshal(struct {
			ExternalID map[string]MetadataID `json:"externalId"`
		}{t.ExternalID})
	case TargetMovie:
		return json.Marshal(struct {
			Movie string `json:"movie"`
		}{t.Movie})
	case TargetEpisode:
		return json.Marshal(struct {
			Serie   string `json:"serie"`
			Season  int    `json:"season"`
			Episode int    `json:"episode"`
		}{t.Serie, t.Season, t.Episode})
	case TargetOrder:
		return json.Marshal(struct {
			Serie string  `json:"serie"`
			Order float64 `json:"order"`
		}{t.Serie, t.Order})
	case TargetSpecial:
		return json.Marshal(struct {
			Serie   string `json:"serie"`
			Special int    `json:"special"`
		}{t.Serie, t.Special})
	}
	return nil, fmt.Errorf("target: unknown kind %q", t.Kind)
}

func (t *Target) UnmarshalJSON(data []byte) error {
	var probe struct {
		Slug       *string         `json:"slug"`
		ExternalID json.RawMessage `json:"externalId"`
		Movie      *string         `json:"movie"`
		Serie      *string         `json:"serie"`
		Season     *int            `json:"season"`
		Episode    *int            `json:"episode"`
		Order      *float64        `json:"order"`
		Special    *int            `json:"special"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	switch {
	case probe.Slug != nil:
		*t = SlugTarget(*probe.Slug)
	case probe.ExternalID != nil:
		// Episode references carry a serieId field; try those first.
		var eps map[string]EpisodeID
		if err := json.Unmarshal(probe.ExternalID, &eps); err == nil && hasSerieID(eps) {
			*t = EpisodeIDTarget(eps)
			return nil
		}
		var ids map[string]MetadataID
		if err := json.Unmarshal(probe.ExternalID, &ids); err != nil {
			return err
		}
		*t = ExternalIDTarget(ids)
	case probe.Movie != nil:
		*t = MovieTarget(*probe.Movie)
	case probe.Serie != nil && probe.Order != nil:
		*t = OrderTarget(*probe.Serie, *probe.Order)
	case probe.Serie != nil && probe.Special != nil:
		*t = SpecialTarget(*probe.Serie, *probe.Special)
	case probe.Serie != nil && probe.Episode != nil:
		season := 0
		if probe.Season != nil {
			season = *probe.Season
		}
		*t = EpisodeTarget(*probe.Serie, season, *probe.Episode)
	default:
		return fmt.Errorf("target: unrecognised shape %s", string(data))
	}
	return nil
}

func hasSerieID(eps map[string]EpisodeID) bool {
	for _, e := range eps {
		if e.SerieID != "" {
			return true
		}
	}
	return false
}
