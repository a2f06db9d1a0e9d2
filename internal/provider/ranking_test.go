package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/models"
)

func cand(name, date string, votes, popularity float64) candidate {
	return candidate{
		name: name, date: date, voteCount: votes, popularity: popularity,
		result: models.SearchResult{Name: name},
	}
}

func TestRankSearchPrefersMatchingYear(t *testing.T) {
	year := 2017
	out := rankSearch([]candidate{
		cand("Dune", "1984-12-14", 3000, 50),
		cand("Dune", "2021-09-15", 9000, 90),
	}, "Dune", &year)

	// Nothing aired in 2017; the year filter must fall back to everything.
	require.Len(t, out, 2)
	assert.Equal(t, "Dune", out[0].Name)

	year = 1984
	out = rankSearch([]candidate{
		cand("Dune", "1984-12-14", 3000, 50),
		cand("Dune", "2021-09-15", 9000, 90),
	}, "Dune", &year)
	require.Len(t, out, 1)
}

func TestRankSearchExactMatchesWinByVotes(t *testing.T) {
	out := rankSearch([]candidate{
		cand("Avatar: The Last Airbender", "2005-02-21", 4000, 80),
		cand("Avatar", "2009-12-10", 30000, 300),
		cand("avatar", "2004-01-01", 10, 1),
	}, "Avatar", nil)

	require.Len(t, out, 2)
	assert.Equal(t, "Avatar", out[0].Name)
	assert.Equal(t, "avatar", out[1].Name)
}

func TestRankSearchSinksBarelyRatedResults(t *testing.T) {
	out := rankSearch([]candidate{
		cand("Fan Cut", "2020-01-01", 2, 1),
		cand("The Thing", "1982-06-25", 9000, 70),
	}, "Something Else", nil)

	require.Len(t, out, 2)
	assert.Equal(t, "The Thing", out[0].Name)
	assert.Equal(t, "Fan Cut", out[1].Name)
}

func TestToSlug(t *testing.T) {
	assert.Equal(t, "spider-man-no-way-home", ToSlug("Spider-Man: No Way Home"))
	assert.Equal(t, "the-100", ToSlug("The 100"))
	assert.Equal(t, "k-on", ToSlug("K-On!"))
}
