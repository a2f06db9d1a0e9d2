package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/models"
)

func testTVDB(t *testing.T, handler http.Handler) *TVDB {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	tv := &TVDB{
		c:      newAPIClient("tvdb", srv.URL+"/", nil),
		apikey: "key",
	}
	tv.c.authorize = func(ctx context.Context, req *http.Request) error {
		tok, err := tv.bearer(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		return nil
	}
	return tv
}

func TestLoginTokenIsReused(t *testing.T) {
	var logins atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		w.Write([]byte(`{"data": {"token": "tok-1"}}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data": []}`))
	})
	tv := testTVDB(t, mux)

	_, err := tv.SearchSeries(context.Background(), "Dark", nil)
	require.NoError(t, err)
	_, err = tv.SearchSeries(context.Background(), "1899", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), logins.Load())
}

func TestSearchSeriesMapsResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"token": "tok"}}`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "series", r.URL.Query().Get("type"))
		assert.Equal(t, "2011", r.URL.Query().Get("year"))
		w.Write([]byte(`{"data": [{"tvdb_id": "121361", "name": "Game of Thrones", "year": "2011"}]}`))
	})
	tv := testTVDB(t, mux)

	year := 2011
	results, err := tv.SearchSeries(context.Background(), "Game of Thrones", &year)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "121361", results[0].ExternalID[models.ProviderTVDB])
	require.NotNil(t, results[0].Year)
	assert.Equal(t, 2011, *results[0].Year)
}

func orderedEntry(season, episode int, order float64) models.Entry {
	e := numberedEntry(season, episode)
	e.Order = order
	if season == 0 {
		e.Kind = models.EntrySpecial
	}
	return e
}

func TestSpecialsAreSlottedAfterTheirSeason(t *testing.T) {
	after := 1
	special := orderedEntry(0, 1, 0)
	special.AirsAfterSeason = &after
	entries := []models.Entry{
		orderedEntry(1, 1, 1),
		orderedEntry(1, 2, 2),
		orderedEntry(2, 1, 3),
		special,
	}

	placeSpecials(entries)
	assert.Equal(t, 2.5, entries[3].Order)
}

func TestSpecialsAreSlottedBeforeAnEpisode(t *testing.T) {
	season, episode := 2, 1
	special := orderedEntry(0, 2, 0)
	special.AirsBeforeSeason = &season
	special.AirsBeforeEpisode = &episode
	entries := []models.Entry{
		orderedEntry(1, 1, 1),
		orderedEntry(1, 2, 2),
		orderedEntry(2, 1, 3),
		orderedEntry(2, 2, 4),
		special,
	}

	placeSpecials(entries)
	assert.Equal(t, 2.5, entries[4].Order)
}

func TestMapTranslationsMergesNameAndOverview(t *testing.T) {
	tv := &TVDB{}
	out := tv.mapTranslations(tvdbTranslations{
		NameTranslations: []struct {
			Language string `json:"language"`
			Name     string `json:"name"`
		}{
			{Language: "eng", Name: "Dark"},
			{Language: "fra", Name: ""},
		},
		OverviewTranslations: []struct {
			Language string `json:"language"`
			Overview string `json:"overview"`
		}{
			{Language: "eng", Overview: "A missing child."},
		},
		Aliases: []struct {
			Language string `json:"language"`
			Name     string `json:"name"`
		}{
			{Language: "eng", Name: "Dark (2017)"},
		},
	}, "Dark")

	require.Contains(t, out, "eng")
	assert.Equal(t, "Dark", out["eng"].Name)
	require.NotNil(t, out["eng"].Description)
	assert.Equal(t, "A missing child.", *out["eng"].Description)
	assert.Equal(t, []string{"Dark (2017)"}, out["eng"].Aliases)

	// Empty translated names fall back to the record's default name.
	require.Contains(t, out, "fra")
	assert.Equal(t, "Dark", out["fra"].Name)
}

func TestRemoteIDsMapKnownSources(t *testing.T) {
	tv := &TVDB{}
	out := tv.mapRemoteIDs([]tvdbRemoteID{
		{ID: "tt1839578", SourceName: "IMDB"},
		{ID: "1399", SourceName: "TheMovieDB.com"},
		{ID: "whatever", SourceName: "Official Website"},
	}, "121361", "series")

	assert.Equal(t, "121361", out[models.ProviderTVDB].DataID)
	assert.Equal(t, "tt1839578", out[models.ProviderIMDB].DataID)
	assert.Equal(t, "1399", out[models.ProviderTMDB].DataID)
	assert.NotContains(t, out, "Official Website")
}
