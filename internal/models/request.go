package models

import "time"

// RequestKind restricts what the queue identifies. Extras never reach the
// queue; they are registered directly against their rendering.
type RequestKind string

const (
	RequestMovie   RequestKind = "movie"
	RequestEpisode RequestKind = "episode"
)

type RequestStatus string

const (
	RequestPending RequestStatus = "pending"
	RequestRunning RequestStatus = "running"
	RequestFailed  RequestStatus = "failed"
)

// RequestVideo is one video attached to a queued request, with the episode
// pairs it claims to contain.
type RequestVideo struct {
	ID       string         `json:"id"`
	Episodes []GuessEpisode `json:"episodes"`
}

// Request is one row of the identification queue. Rows are unique by
// (kind, title, year); concurrent enqueues merge their videos arrays.
type Request struct {
	PK         int64             `json:"pk"`
	Kind       RequestKind       `json:"kind"`
	Title      string            `json:"title"`
	Year       *int              `json:"year"`
	ExternalID map[string]string `json:"externalId"`
	Videos     []RequestVideo    `json:"videos"`
	Status     RequestStatus     `json:"status"`
	StartedAt  *time.Time        `json:"startedAt"`
}
