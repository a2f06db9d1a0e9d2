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

// fakeMovieUpstreams wires a composite where TMDB owns the movie record and
// TVDB knows the same movie under another id, with a collection attached.
func fakeMovieUpstreams(t *testing.T) *Composite {
	tmdbMux := http.NewServeMux()
	tmdbMux.HandleFunc("/movie/5", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"id": 5, "title": "Foo", "original_title": "Foo",
			"original_language": "en", "status": "Released",
			"imdb_id": "tt0000001", "vote_average": 7.5,
			"release_date": "2020-01-01",
			"translations": {"translations": []}
		}`))
	})
	tmdbSrv := httptest.NewServer(tmdbMux)
	t.Cleanup(tmdbSrv.Close)

	tvdbMux := http.NewServeMux()
	tvdbMux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"token": "tok"}}`))
	})
	tvdbMux.HandleFunc("/artwork/types", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": []}`))
	})
	tvdbMux.HandleFunc("/search/remoteid/tt0000001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": [{"movie": {"id": 9}}]}`))
	})
	tvdbMux.HandleFunc("/movies/9/extended", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {
			"id": 9, "name": "Foo", "status": {"name": "Released"},
			"remoteIds": [{"id": "999", "sourceName": "TheMovieDB.com"}],
			"lists": [{"id": 10, "name": "Foo Collection", "isOfficial": true}],
			"translations": {}
		}}`))
	})
	tvdbMux.HandleFunc("/lists/10/extended", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"id": 10, "name": "Foo Collection", "overview": "All of Foo."}}`))
	})
	tvdbSrv := httptest.NewServer(tvdbMux)
	t.Cleanup(tvdbSrv.Close)

	tmdb := &TMDB{c: newAPIClient("tmdb", tmdbSrv.URL+"/", nil)}
	tvdb := &TVDB{c: newAPIClient("tvdb", tvdbSrv.URL+"/", nil), apikey: "key"}
	tvdb.c.authorize = func(ctx context.Context, req *http.Request) error {
		tok, err := tvdb.bearer(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		return nil
	}
	return NewComposite(tmdb, tvdb, nil)
}

func TestCompositeMovieKeepsPrimaryIDsOnConflict(t *testing.T) {
	c := fakeMovieUpstreams(t)
	movie, err := c.GetMovie(context.Background(), map[string]string{models.ProviderTMDB: "5"})
	require.NoError(t, err)
	require.NotNil(t, movie)

	// TVDB claims the movie has tmdb id 999; the id the record was fetched
	// with must survive the merge.
	assert.Equal(t, "5", movie.ExternalID[models.ProviderTMDB].DataID)
	assert.Equal(t, "9", movie.ExternalID[models.ProviderTVDB].DataID)
	assert.Equal(t, "tt0000001", movie.ExternalID[models.ProviderIMDB].DataID)
}

func TestCompositeMovieBorrowsCollections(t *testing.T) {
	c := fakeMovieUpstreams(t)
	movie, err := c.GetMovie(context.Background(), map[string]string{models.ProviderTMDB: "5"})
	require.NoError(t, err)

	require.Len(t, movie.Collections, 1)
	assert.Equal(t, "foo-collection", movie.Collections[0].Slug)
}

func TestCompositeNotFoundWithoutUpstreams(t *testing.T) {
	c := NewComposite(nil, nil, nil)
	_, err := c.SearchMovies(context.Background(), "anything", nil)
	assert.True(t, IsNotFound(err))
}

func TestMergeExternalIDsBackfillsLinks(t *testing.T) {
	link := "https://example.org/5"
	out := models.MergeExternalIDs(
		map[string]models.MetadataID{"a": {DataID: "1", Link: &link}},
		map[string]models.MetadataID{"a": {DataID: "2"}, "b": {DataID: "3"}},
	)

	assert.Equal(t, "2", out["a"].DataID)
	require.NotNil(t, out["a"].Link)
	assert.Equal(t, link, *out["a"].Link)
	assert.Equal(t, "3", out["b"].DataID)
}

func TestMergeTranslationsNeverOverwrites(t *testing.T) {
	desc := "kept"
	other := "discarded"
	dst := map[string]models.Translation{
		"en": {Name: "Foo", Description: &desc},
	}
	mergeTranslations(dst, map[string]models.Translation{
		"en": {Name: "Bar", Description: &other, Tagline: strPtr("added")},
		"fr": {Name: "Fou"},
	})

	assert.Equal(t, "Foo", dst["en"].Name)
	assert.Equal(t, "kept", *dst["en"].Description)
	assert.Equal(t, "added", *dst["en"].Tagline)
	assert.Equal(t, "Fou", dst["fr"].Name)
}
