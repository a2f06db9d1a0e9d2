package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/solidstone/mediascan/internal/cache"
)

const responseTTL = 24 * time.Hour

// apiClient wraps an upstream REST API: bearer auth, response caching and
// 429 backoff. Responses are cached by full URL in a map that may be shared
// across providers.
type apiClient struct {
	name      string
	base      string
	http      *http.Client
	cache     *cache.Cache[string, []byte]
	userAgent string

	// authorize injects credentials right before the request goes out. TVDB
	// swaps tokens at login time, so this is a hook rather than a header.
	authorize func(ctx context.Context, req *http.Request) error
}

func newAPIClient(name, base string, shared *cache.Map[string, []byte]) *apiClient {
	c := &apiClient{
		name:      name,
		base:      base,
		http:      &http.Client{Timeout: 30 * time.Second},
		userAgent: "mediascan v1",
	}
	if shared != nil {
		c.cache = cache.New(responseTTL, cache.WithMap(shared))
	} else {
		c.cache = cache.New[string, []byte](responseTTL)
	}
	return c
}

// getJSON fetches path relative to the base URL and decodes the body into
// out. notFound, when non-empty, is the query context reported on a 404.
func (c *apiClient) getJSON(ctx context.Context, path string, query url.Values, out any, notFound string) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	key := c.name + "|" + u
	body, err := c.cache.GetOrFill(ctx, key, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, u, notFound)
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *apiClient) fetch(ctx context.Context, u, notFound string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		if c.authorize != nil {
			if err := c.authorize(ctx, req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: get %s: %w", c.name, u, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: read %s: %w", c.name, u, err)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			q := notFound
			if q == "" {
				q = u
			}
			return nil, &NotFoundError{Provider: c.name, Query: q}
		case resp.StatusCode == http.StatusTooManyRequests && attempt < 4:
			delay := retryDelay(resp.Header)
			log.Printf("[%s] rate limited, retrying in %s", c.name, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%s: get %s: status %d: %s", c.name, u, resp.StatusCode, bytes.TrimSpace(body))
		}
		return body, nil
	}
}

// postJSON sends a JSON body and decodes the response. Uncached; only login
// and GraphQL queries go through here.
func (c *apiClient) postJSON(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Content-Type", "application/json")
		if c.authorize != nil {
			if err := c.authorize(ctx, req); err != nil {
				return err
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s: post %s: %w", c.name, path, err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusTooManyRequests && attempt < 4 {
			delay := retryDelay(resp.Header)
			log.Printf("[%s] rate limited, retrying in %s", c.name, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s: post %s: status %d: %s", c.name, path, resp.StatusCode, bytes.TrimSpace(body))
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(body, out)
	}
}

// retryDelay reads Retry-After or X-RateLimit-Reset, defaulting to a minute.
func retryDelay(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)); d > 0 {
				return d
			}
		}
	}
	return time.Minute
}
