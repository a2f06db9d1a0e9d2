// Package autosync consumes watch-status events from the broker and forwards
// per-user progress to third-party tracking services.
package autosync

import (
	"encoding/json"
	"fmt"
	"time"
)

type WatchStatus string

const (
	StatusCompleted WatchStatus = "Completed"
	StatusWatching  WatchStatus = "Watching"
	StatusDroped    WatchStatus = "Droped"
	StatusPlanned   WatchStatus = "Planned"
	StatusDeleted   WatchStatus = "Deleted"
)

// message is the broker envelope. Only "WatchStatus" payloads are consumed.
type message struct {
	Action string             `json:"action"`
	Type   string             `json:"type"`
	Value  WatchStatusMessage `json:"value"`
}

// User carries the per-service tokens the owner linked to their account.
type User struct {
	ID         string               `json:"id"`
	Username   string               `json:"username"`
	ExternalID map[string]UserToken `json:"external_id"`
}

type UserToken struct {
	Token string `json:"token"`
}

// ResourceID points to the item on an external provider. The event stream
// snake_cases its fields, unlike the catalog API.
type ResourceID struct {
	DataID string  `json:"data_id"`
	Link   *string `json:"link"`
}

// Resource is the watched item, one of Movie, Show or Episode.
type Resource interface {
	resourceKind() string
}

type Movie struct {
	ID         string                `json:"id"`
	Slug       string                `json:"slug"`
	Name       string                `json:"name"`
	ExternalID map[string]ResourceID `json:"external_id"`
}

type Show struct {
	ID         string                `json:"id"`
	Slug       string                `json:"slug"`
	Name       string                `json:"name"`
	ExternalID map[string]ResourceID `json:"external_id"`
}

type Episode struct {
	ID             string                `json:"id"`
	Slug           string                `json:"slug"`
	Name           string                `json:"name"`
	ExternalID     map[string]ResourceID `json:"external_id"`
	Show           Show                  `json:"show"`
	SeasonNumber   int                   `json:"season_number"`
	EpisodeNumber  int                   `json:"episode_number"`
	AbsoluteNumber int                   `json:"absolute_number"`
}

func (Movie) resourceKind() string   { return "movie" }
func (Show) resourceKind() string    { return "show" }
func (Episode) resourceKind() string { return "episode" }

type WatchStatusMessage struct {
	User           User        `json:"user"`
	Resource       Resource    `json:"-"`
	Status         WatchStatus `json:"status"`
	AddedDate      time.Time   `json:"added_date"`
	PlayedDate     *time.Time  `json:"played_date"`
	WatchedTime    *int        `json:"watched_time"`
	WatchedPercent *int        `json:"watched_percent"`
}

func (m *WatchStatusMessage) UnmarshalJSON(data []byte) error {
	type alias WatchStatusMessage
	var raw struct {
		alias
		Resource json.RawMessage `json:"resource"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = WatchStatusMessage(raw.alias)

	var kind struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw.Resource, &kind); err != nil {
		return err
	}
	switch kind.Kind {
	case "movie":
		var r Movie
		if err := json.Unmarshal(raw.Resource, &r); err != nil {
			return err
		}
		m.Resource = r
	case "show", "serie":
		var r Show
		if err := json.Unmarshal(raw.Resource, &r); err != nil {
			return err
		}
		m.Resource = r
	case "episode":
		var r Episode
		if err := json.Unmarshal(raw.Resource, &r); err != nil {
			return err
		}
		m.Resource = r
	default:
		return fmt.Errorf("unknown resource kind %q", kind.Kind)
	}
	return nil
}
