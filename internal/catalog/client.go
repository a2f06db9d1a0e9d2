// Package catalog is the typed HTTP client to the downstream catalog
// service. The catalog owns all persistence; this client only moves records
// and reports scan issues.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/solidstone/mediascan/internal/models"
)

type Client struct {
	base   string
	apikey string
	http   *http.Client
}

func New(base, apikey string) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apikey: apikey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError is any non-2xx catalog answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: status %d: %s", e.Code, e.Body)
}

func isConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusConflict
}

// VideosInfo is the catalog's view of every registered video file.
type VideosInfo struct {
	Paths     []string                       `json:"paths"`
	Unmatched []string                       `json:"unmatched"`
	Guesses   map[string]map[string]GuessHit `json:"guesses"`
}

// GuessHit is a known show or movie under a (title, year) guess key. The
// year key is the string form of the year, or "unknown".
type GuessHit struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// CreatedVideo is the catalog's answer to a video registration. Entries is
// empty when the catalog could not match the guess to anything it knows.
type CreatedVideo struct {
	ID      string       `json:"id"`
	Path    string       `json:"path"`
	Guess   models.Guess `json:"guess"`
	Entries []struct {
		Slug string `json:"slug"`
	} `json:"entries"`
}

// Resource is the id/slug pair returned by movie and serie upserts.
type Resource struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

func (c *Client) GetVideos(ctx context.Context) (*VideosInfo, error) {
	var out VideosInfo
	if err := c.do(ctx, http.MethodGet, "/videos", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateVideos(ctx context.Context, videos []models.Video) ([]CreatedVideo, error) {
	var out []CreatedVideo
	if err := c.do(ctx, http.MethodPost, "/videos", nil, videos, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteVideos(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodDelete, "/videos", nil, paths, nil)
}

func (c *Client) LinkVideos(ctx context.Context, links []models.VideoLink) error {
	if len(links) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/videos/link", nil, links, nil)
}

// CreateMovie upserts a movie. A slug conflict means another work already
// claimed the name, so the post is retried once with the year appended.
func (c *Client) CreateMovie(ctx context.Context, movie *models.Movie) (*Resource, error) {
	var out Resource
	err := c.do(ctx, http.MethodPost, "/movies", nil, movie, &out)
	if isConflict(err) && movie.AirDate != nil && len(*movie.AirDate) >= 4 {
		retry := *movie
		retry.Slug = movie.Slug + "-" + (*movie.AirDate)[:4]
		log.Printf("[catalog] slug %q taken, retrying as %q", movie.Slug, retry.Slug)
		err = c.do(ctx, http.MethodPost, "/movies", nil, &retry, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSerie upserts a serie with the same conflict handling as movies.
func (c *Client) CreateSerie(ctx context.Context, serie *models.Serie) (*Resource, error) {
	var out Resource
	err := c.do(ctx, http.MethodPost, "/series", nil, serie, &out)
	if isConflict(err) && serie.StartAir != nil && len(*serie.StartAir) >= 4 {
		retry := *serie
		retry.Slug = serie.Slug + "-" + (*serie.StartAir)[:4]
		log.Printf("[catalog] slug %q taken, retrying as %q", serie.Slug, retry.Slug)
		err = c.do(ctx, http.MethodPost, "/series", nil, &retry, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue is a per-path record of why the scanner could not identify a file.
type Issue struct {
	Domain string         `json:"domain"`
	Cause  string         `json:"cause"`
	Reason string         `json:"reason"`
	Extra  map[string]any `json:"extra,omitempty"`
}

func (c *Client) CreateIssue(ctx context.Context, path, reason string) error {
	issue := Issue{Domain: "scanner", Cause: path, Reason: reason}
	return c.do(ctx, http.MethodPost, "/issues", nil, issue, nil)
}

// DeleteIssue clears the issue for a path once the file identifies cleanly.
// A 404 is fine: most files never had an issue.
func (c *Client) DeleteIssue(ctx context.Context, path string) error {
	err := c.do(ctx, http.MethodDelete, "/issues", url.Values{"cause": {path}}, nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apikey != "" {
		req.Header.Set("X-API-KEY", c.apikey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("catalog: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(raw))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
