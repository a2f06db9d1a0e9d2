// Package db opens the queue database and applies migrations.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// Advisory lock keys for process elections. The master runs migrations, the
// full scan and the monitor; every process runs the queue processor and the
// HTTP API.
const (
	MasterLock   = 198347
	HTTPOnlyLock = 645633
)

type DB struct {
	*sql.DB
	url string
}

func Connect(url string) (*DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &DB{DB: db, url: url}, nil
}

// URL returns the connection string, for the LISTEN connection which must
// live outside the pool.
func (d *DB) URL() string { return d.url }

// TryLock attempts a session advisory lock on the given key. The lock is
// held for the life of the connection, so the election survives until the
// process exits.
func (d *DB) TryLock(ctx context.Context, key int64) (bool, error) {
	// A pooled connection could be recycled and drop the lock; pin one.
	conn, err := d.Conn(ctx)
	if err != nil {
		return false, err
	}
	var got bool
	if err := conn.QueryRowContext(ctx, "select pg_try_advisory_lock($1)", key).Scan(&got); err != nil {
		conn.Close()
		return false, err
	}
	if !got {
		conn.Close()
	}
	// The winning conn is intentionally leaked: closing it would release
	// the lock.
	return got, nil
}

// Migrate applies every *.up.sql file under dir in lexicographic order,
// skipping the ones already applied. The applied count is the cursor, so
// migration files must never be reordered or removed.
func (d *DB) Migrate(ctx context.Context, dir string) error {
	_, err := d.ExecContext(ctx, `create schema if not exists scanner`)
	if err != nil {
		return fmt.Errorf("db: create schema: %w", err)
	}
	_, err = d.ExecContext(ctx, `
		create table if not exists scanner._migrations (
			pk serial primary key,
			name text not null,
			applied_at timestamptz not null default now() at time zone 'utc'
		)`)
	if err != nil {
		return fmt.Errorf("db: migrations table: %w", err)
	}

	var applied int
	if err := d.QueryRowContext(ctx, `select count(*) from scanner._migrations`).Scan(&applied); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("db: read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for i, name := range files {
		if i < applied {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		tx, err := d.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(raw)); err != nil {
			tx.Rollback()
			return fmt.Errorf("db: migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `insert into scanner._migrations (name) values ($1)`, name); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("[db] applied migration %s", name)
	}
	return nil
}
