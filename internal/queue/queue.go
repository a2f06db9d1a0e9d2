// Package queue is the durable, coalescing request queue backed by the
// scanner.requests table. Rows are unique by (kind, title, year); concurrent
// enqueues for the same work merge their video lists instead of queueing
// twice.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/solidstone/mediascan/internal/models"
)

// Channel is the NOTIFY channel the processor listens on.
const Channel = "scanner_requests"

type Queue struct {
	db *sql.DB
}

func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue inserts a request or merges its videos into the existing row for
// the same (kind, title, year), then wakes the processors.
func (q *Queue) Enqueue(ctx context.Context, req models.Request) error {
	externalID, err := json.Marshal(req.ExternalID)
	if err != nil {
		return err
	}
	videos, err := json.Marshal(req.Videos)
	if err != nil {
		return err
	}

	_, err = q.db.ExecContext(ctx, `
		insert into scanner.requests (kind, title, year, external_id, videos)
		values ($1, $2, $3, $4, $5)
		on conflict (kind, title, year) do update
			set videos = requests.videos || excluded.videos`,
		req.Kind, req.Title, nullYear(req.Year), externalID, videos)
	if err != nil {
		return fmt.Errorf("queue: enqueue %s %q: %w", req.Kind, req.Title, err)
	}

	_, err = q.db.ExecContext(ctx, `select pg_notify($1, '')`, Channel)
	return err
}

// Dequeue claims one pending request, marking it running. Returns nil when
// the queue is drained. SKIP LOCKED keeps concurrent workers from blocking
// on each other's claim.
func (q *Queue) Dequeue(ctx context.Context) (*models.Request, error) {
	row := q.db.QueryRowContext(ctx, `
		update scanner.requests
		set status = 'running', started_at = now() at time zone 'utc'
		where pk in (
			select pk from scanner.requests
			where status = 'pending'
			for update skip locked
			limit 1
		)
		returning pk, kind, title, year, external_id, videos, status, started_at`)

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return req, err
}

// Complete removes a finished request and returns the video list as it was
// at deletion time. A longer list than the one dequeued means a concurrent
// enqueue merged into the row mid-flight; the caller links the difference.
func (q *Queue) Complete(ctx context.Context, pk int64) ([]models.RequestVideo, error) {
	var raw []byte
	err := q.db.QueryRowContext(ctx,
		`delete from scanner.requests where pk = $1 returning videos`, pk).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("queue: complete %d: %w", pk, err)
	}
	var videos []models.RequestVideo
	if err := json.Unmarshal(raw, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

// Fail parks a request for operator inspection. Failed rows are cleared at
// the start of the next full scan, which is also when they get retried.
func (q *Queue) Fail(ctx context.Context, pk int64) error {
	_, err := q.db.ExecContext(ctx,
		`update scanner.requests set status = 'failed' where pk = $1`, pk)
	return err
}

// ClearFailed drops all failed rows. Called at full-scan start so the scan
// re-enqueues them from the filesystem truth.
func (q *Queue) ClearFailed(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx,
		`delete from scanner.requests where status = 'failed'`)
	return err
}

// RecoverStale re-queues rows left running by a crashed worker. The elected
// master runs this once at startup, before any worker can dequeue.
func (q *Queue) RecoverStale(ctx context.Context) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		update scanner.requests
		set status = 'pending', started_at = null
		where status = 'running'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns requests, optionally filtered by status.
func (q *Queue) List(ctx context.Context, status string) ([]models.Request, error) {
	query := `select pk, kind, title, year, external_id, videos, status, started_at
		from scanner.requests`
	args := []any{}
	if status != "" {
		query += ` where status = $1`
		args = append(args, status)
	}
	query += ` order by pk`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var req models.Request
	var year sql.NullInt64
	var startedAt sql.NullTime
	var externalID, videos []byte

	err := row.Scan(&req.PK, &req.Kind, &req.Title, &year, &externalID, &videos, &req.Status, &startedAt)
	if err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		req.Year = &y
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		req.StartedAt = &t
	}
	if err := json.Unmarshal(externalID, &req.ExternalID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(videos, &req.Videos); err != nil {
		return nil, err
	}
	return &req, nil
}

func nullYear(year *int) any {
	if year == nil {
		return nil
	}
	return *year
}
