package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solidstone/mediascan/internal/models"
)

func TestCreateMovieRetriesSlugWithYearOnConflict(t *testing.T) {
	var slugs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/movies", r.URL.Path)
		var movie models.Movie
		require.NoError(t, json.NewDecoder(r.Body).Decode(&movie))
		slugs = append(slugs, movie.Slug)

		if movie.Slug == "dune" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(Resource{ID: "abc", Slug: movie.Slug})
	}))
	defer srv.Close()

	air := "2021-09-15"
	c := New(srv.URL, "")
	res, err := c.CreateMovie(context.Background(), &models.Movie{Slug: "dune", AirDate: &air})
	require.NoError(t, err)

	assert.Equal(t, []string{"dune", "dune-2021"}, slugs)
	assert.Equal(t, "dune-2021", res.Slug)
}

func TestCreateSerieConflictWithoutYearSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	_, err := c.CreateSerie(context.Background(), &models.Serie{Slug: "dune"})
	require.Error(t, err)
	assert.True(t, isConflict(err))
}

func TestGetVideosDecodesGuessMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{
			"paths": ["/m/Inception (2010).mkv"],
			"unmatched": ["/m/odd.mkv"],
			"guesses": {"inception": {"2010": {"id": "i1", "slug": "inception"}}}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret")
	info, err := c.GetVideos(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/m/Inception (2010).mkv"}, info.Paths)
	assert.Equal(t, []string{"/m/odd.mkv"}, info.Unmatched)
	assert.Equal(t, "inception", info.Guesses["inception"]["2010"].Slug)
}

func TestDeleteIssueToleratesMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/issues", r.URL.Path)
		assert.Equal(t, "/m/fixed.mkv", r.URL.Query().Get("cause"))
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	assert.NoError(t, c.DeleteIssue(context.Background(), "/m/fixed.mkv"))
}

func TestCreateIssueShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var issue Issue
		require.NoError(t, json.NewDecoder(r.Body).Decode(&issue))
		assert.Equal(t, "scanner", issue.Domain)
		assert.Equal(t, "/m/garbled.mkv", issue.Cause)
		assert.Equal(t, "no title found", issue.Reason)
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	require.NoError(t, c.CreateIssue(context.Background(), "/m/garbled.mkv", "no title found"))
}

func TestDeleteVideosSkipsEmptyBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for an empty batch")
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	assert.NoError(t, c.DeleteVideos(context.Background(), nil))
}
