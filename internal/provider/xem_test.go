package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/models"
)

func testXem(t *testing.T) *Xem {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tvdb", r.URL.Query().Get("origin"))
		w.Write([]byte(`{"data": {
			"248835": [
				{"Jormungand": -1},
				{"Jormungand: Perfect Order": 2}
			],
			"79824": [
				{"Bakemonogatari": -1}
			]
		}}`))
	}))
	t.Cleanup(srv.Close)
	return &Xem{c: newAPIClient("thexem", srv.URL+"/", nil)}
}

func TestTitleOverrideResolvesSeasonAliases(t *testing.T) {
	x := testXem(t)
	canonical, season, ids, err := x.TitleOverride(context.Background(), "jormungand.perfect.order")
	require.NoError(t, err)

	assert.Equal(t, "Jormungand", canonical)
	require.NotNil(t, season)
	assert.Equal(t, 2, *season)
	assert.Equal(t, "248835", ids[models.ProviderTVDB])
}

func TestTitleOverrideShowWideNameHasNoSeason(t *testing.T) {
	x := testXem(t)
	canonical, season, ids, err := x.TitleOverride(context.Background(), "Bakemonogatari")
	require.NoError(t, err)

	assert.Equal(t, "Bakemonogatari", canonical)
	assert.Nil(t, season)
	assert.Equal(t, "79824", ids[models.ProviderTVDB])
}

func TestTitleOverrideMissFallsThrough(t *testing.T) {
	x := testXem(t)
	canonical, season, ids, err := x.TitleOverride(context.Background(), "Breaking Bad")
	require.NoError(t, err)

	assert.Empty(t, canonical)
	assert.Nil(t, season)
	assert.Nil(t, ids)
}

func TestExpectedTitlesListsEveryAlias(t *testing.T) {
	x := testXem(t)
	titles, err := x.ExpectedTitles(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"Jormungand", "Jormungand: Perfect Order", "Bakemonogatari",
	}, titles)
}

func TestSeasonOverride(t *testing.T) {
	x := testXem(t)
	season, err := x.SeasonOverride(context.Background(), "248835", "Jormungand: Perfect Order")
	require.NoError(t, err)
	require.NotNil(t, season)
	assert.Equal(t, 2, *season)

	season, err = x.SeasonOverride(context.Background(), "248835", "Jormungand")
	require.NoError(t, err)
	assert.Nil(t, season)
}
