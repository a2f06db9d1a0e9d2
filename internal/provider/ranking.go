package provider

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/solidstone/mediascan/internal/models"
)

// candidate is a raw search hit before ranking.
type candidate struct {
	name       string
	date       string
	voteCount  float64
	popularity float64
	result     models.SearchResult
}

// rankSearch orders search hits the way operators expect:
//  1. when a year is known, results airing that year are preferred (falling
//     back to the whole list if none match, since upstreams sometimes ignore
//     the year parameter),
//  2. exact case-insensitive name matches win, most voted first,
//  3. otherwise the original order is kept but barely-rated entries sink to
//     the bottom.
func rankSearch(cands []candidate, title string, year *int) []models.SearchResult {
	results := cands
	if year != nil {
		prefix := strconv.Itoa(*year)
		filtered := make([]candidate, 0, len(cands))
		for _, c := range cands {
			if strings.HasPrefix(c.date, prefix) {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			results = filtered
		}
	}

	var exact []candidate
	for _, c := range results {
		if strings.EqualFold(c.name, title) {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		sort.SliceStable(exact, func(i, j int) bool {
			if exact[i].voteCount != exact[j].voteCount {
				return exact[i].voteCount > exact[j].voteCount
			}
			return exact[i].popularity > exact[j].popularity
		})
		results = exact
	} else {
		unpopular := func(c candidate) bool { return c.voteCount < 5 || c.popularity < 5 }
		sort.SliceStable(results, func(i, j int) bool {
			return !unpopular(results[i]) && unpopular(results[j])
		})
	}

	out := make([]models.SearchResult, len(results))
	for i, c := range results {
		out[i] = c.result
	}
	return out
}

var slugInvalidRx = regexp.MustCompile(`[^a-z0-9]+`)

// ToSlug lowercases a name into a url-safe slug.
func ToSlug(name string) string {
	s := strings.ToLower(name)
	s = slugInvalidRx.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
