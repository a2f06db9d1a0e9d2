package provider

import (
	"context"
	"net/url"

	"github.com/solidstone/mediascan/internal/cache"
	"github.com/solidstone/mediascan/internal/models"
	"github.com/solidstone/mediascan/internal/parser"
)

// Xem queries thexem.info, the crowd-sourced map between TVDB numbering and
// the alternate titles fansub groups release under. It feeds the parser's
// expected titles and rewrites release titles to their canonical show name
// before any provider search.
type Xem struct {
	c *apiClient
}

func NewXem(shared *cache.Map[string, []byte]) *Xem {
	return &Xem{c: newAPIClient("thexem", "https://thexem.info/", shared)}
}

// xemNames maps a tvdb id to its known names. Each name carries the season
// it belongs to; -1 marks a show-wide name.
type xemNames map[string][]map[string]int

func (x *Xem) masterMap(ctx context.Context) (xemNames, error) {
	var out struct {
		Data xemNames `json:"data"`
	}
	err := x.c.getJSON(ctx, "map/allNames",
		url.Values{
			"origin":        {"tvdb"},
			"seasonNumbers": {"1"},
			"defaultNames":  {"1"},
			"language":      {"us"},
		}, &out, "")
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// ExpectedTitles lists every name the map knows, for the parser to treat as
// unsplittable titles.
func (x *Xem) ExpectedTitles(ctx context.Context) ([]string, error) {
	names, err := x.masterMap(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entries := range names {
		for _, entry := range entries {
			for name := range entry {
				out = append(out, name)
			}
		}
	}
	return out, nil
}

// TitleOverride matches a parsed title against the map. On a hit it returns
// the canonical show-wide name, the season the alias stands for (nil when
// the alias is itself show-wide) and the show's tvdb id.
func (x *Xem) TitleOverride(ctx context.Context, title string) (string, *int, map[string]string, error) {
	names, err := x.masterMap(ctx)
	if err != nil {
		return "", nil, nil, err
	}

	cleaned := parser.Clean(title)
	for id, entries := range names {
		matched := ""
		season := -1
		canonical := ""
		for _, entry := range entries {
			for name, s := range entry {
				if canonical == "" && s == -1 {
					canonical = name
				}
				if parser.Clean(name) == cleaned {
					matched, season = name, s
				}
			}
		}
		if matched == "" {
			continue
		}
		if canonical == "" {
			canonical = matched
		}
		ids := map[string]string{models.ProviderTVDB: id}
		if season < 0 {
			return canonical, nil, ids, nil
		}
		return canonical, &season, ids, nil
	}
	return "", nil, nil, nil
}

// SeasonOverride returns the canonical season an absolute-numbered release
// maps to for a given show, or nil when the show is not in the map.
func (x *Xem) SeasonOverride(ctx context.Context, tvdbID string, title string) (*int, error) {
	names, err := x.masterMap(ctx)
	if err != nil {
		return nil, err
	}
	cleaned := parser.Clean(title)
	for _, entry := range names[tvdbID] {
		for name, s := range entry {
			if parser.Clean(name) == cleaned && s >= 0 {
				season := s
				return &season, nil
			}
		}
	}
	return nil, nil
}
