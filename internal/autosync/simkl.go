package autosync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/solidstone/mediascan/internal/models"
)

const simklBase = "https://api.simkl.com"

// Simkl forwards watch progress to simkl.com for users who linked their
// account.
type Simkl struct {
	clientID string
	base     string
	http     *http.Client
}

func NewSimkl(clientID string) *Simkl {
	return &Simkl{
		clientID: clientID,
		base:     simklBase,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Simkl) Name() string { return "simkl" }

func (s *Simkl) Enabled() bool { return s.clientID != "" }

// simklIDs translates the catalog's provider keys to simkl's. TMDB ids are
// numeric on simkl's side.
func simklIDs(ids map[string]ResourceID) map[string]any {
	out := map[string]any{}
	if id, ok := ids[models.ProviderTMDB]; ok {
		if n, err := strconv.Atoi(id.DataID); err == nil {
			out["tmdb"] = n
		}
	}
	if id, ok := ids[models.ProviderIMDB]; ok {
		out["imdb"] = id.DataID
	}
	return out
}

func simklListStatus(status WatchStatus) string {
	switch status {
	case StatusCompleted:
		return "completed"
	case StatusWatching:
		return "watching"
	case StatusDroped:
		return "dropped"
	case StatusPlanned:
		return "plantowatch"
	default:
		return ""
	}
}

type simklSeason struct {
	Number   int `json:"number"`
	Episodes []struct {
		Number int `json:"number"`
	} `json:"episodes"`
}

func oneEpisode(season, episode int) simklSeason {
	return simklSeason{
		Number: season,
		Episodes: []struct {
			Number int `json:"number"`
		}{{Number: episode}},
	}
}

func (s *Simkl) Update(ctx context.Context, msg *WatchStatusMessage) error {
	token, ok := msg.User.ExternalID["simkl"]
	if !ok {
		return nil
	}

	var watchedAt string
	if msg.Status == StatusCompleted {
		at := msg.AddedDate
		if msg.PlayedDate != nil {
			at = *msg.PlayedDate
		}
		watchedAt = at.UTC().Format(time.RFC3339)
	}

	switch r := msg.Resource.(type) {
	case Episode:
		// Simkl only records finished episodes; partial progress has no
		// representation in its history API.
		if msg.Status != StatusCompleted {
			return nil
		}
		show := map[string]any{
			"title": r.Show.Name,
			"ids":   simklIDs(r.Show.ExternalID),
			// The absolute number goes under season 1, simkl's convention
			// for absolute-ordered anime.
			"seasons": []simklSeason{
				oneEpisode(r.SeasonNumber, r.EpisodeNumber),
				oneEpisode(1, r.AbsoluteNumber),
			},
		}
		if watchedAt != "" {
			show["watched_at"] = watchedAt
		}
		return s.post(ctx, token.Token, "/sync/history", map[string]any{
			"shows": []map[string]any{show},
		})
	case Movie:
		status := simklListStatus(msg.Status)
		if status == "" {
			return nil
		}
		movie := map[string]any{
			"title": r.Name,
			"ids":   simklIDs(r.ExternalID),
			"to":    status,
		}
		if watchedAt != "" {
			movie["watched_at"] = watchedAt
		}
		return s.post(ctx, token.Token, "/sync/add-to-list", map[string]any{
			"movies": []map[string]any{movie},
		})
	case Show:
		status := simklListStatus(msg.Status)
		if status == "" {
			return nil
		}
		show := map[string]any{
			"title": r.Name,
			"ids":   simklIDs(r.ExternalID),
			"to":    status,
		}
		if watchedAt != "" {
			show["watched_at"] = watchedAt
		}
		return s.post(ctx, token.Token, "/sync/add-to-list", map[string]any{
			"shows": []map[string]any{show},
		})
	default:
		return fmt.Errorf("unhandled resource kind %T", msg.Resource)
	}
}

func (s *Simkl) post(ctx context.Context, token, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("simkl-api-key", s.clientID)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("simkl: %s returned %d", path, resp.StatusCode)
	}
	log.Printf("[autosync] simkl accepted %s", path)
	return nil
}
