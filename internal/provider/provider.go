// Package provider fetches canonical metadata records from the upstream
// databases (TheMovieDatabase, TheTVDB, AniList) and merges them through a
// composite facade. All outward calls go through a TTL cache so repeated
// lookups during a scan hit the network once.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/solidstone/mediascan/internal/models"
)

// Provider is implemented by every metadata upstream. Get methods return
// (nil, nil) when the external id map carries no id this provider knows.
type Provider interface {
	Name() string
	SearchMovies(ctx context.Context, title string, year *int) ([]models.SearchResult, error)
	SearchSeries(ctx context.Context, title string, year *int) ([]models.SearchResult, error)
	GetMovie(ctx context.Context, externalID map[string]string) (*models.Movie, error)
	GetSerie(ctx context.Context, externalID map[string]string, skipEntries bool) (*models.Serie, error)
}

// NotFoundError reports that a provider has no record for the query. The
// worker turns it into a failed request instead of retrying.
type NotFoundError struct {
	Provider string
	Query    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found: %s", e.Provider, e.Query)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func datePtr(s string) *string {
	if s == "" {
		return nil
	}
	if len(s) > 10 {
		s = s[:10]
	}
	return &s
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func imagePtr(src string) *models.Image {
	if src == "" {
		return nil
	}
	return &models.Image{Source: src}
}
