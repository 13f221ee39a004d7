// Package sqlxstore is a Postgres-backed session.Storage using sqlx.
package sqlxstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS dashboard_session (
	sid        TEXT PRIMARY KEY,
	snapshot   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS dashboard_flash (
	id         BIGSERIAL PRIMARY KEY,
	sid        TEXT NOT NULL,
	level      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dashboard_flash_sid_idx ON dashboard_flash (sid);
`

type Store struct {
	db *sqlx.DB
}

var _ session.Storage = (*Store)(nil)

func Open(conf *core.Config) (*Store, error) {
	db, err := sqlx.Open("postgres", conf.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = db.Ping(); err != nil {
		return nil, errors.Wrap(err, "pinging database")
	}
	if _, err = db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "ensuring session schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) LoadSnapshot(ctx context.Context, sid string) (session.Snapshot, error) {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `SELECT snapshot FROM dashboard_session WHERE sid = $1`, sid)
	if err == sql.ErrNoRows {
		return session.Snapshot{}, session.ErrNoSnapshot
	}
	if err != nil {
		return session.Snapshot{}, errors.Wrap(err, "reading session snapshot")
	}

	var snap session.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return session.Snapshot{}, errors.Wrap(err, "unmarshaling session snapshot")
	}
	return snap, nil
}

func (s *Store) SaveSnapshot(ctx context.Context, sid string, snap session.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "marshaling session snapshot")
	}
	// full replace of the persisted snapshot, never a merge
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dashboard_session (sid, snapshot, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (sid) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = EXCLUDED.updated_at`,
		sid, raw, time.Now().UTC(),
	)
	return errors.Wrap(err, "writing session snapshot")
}

func (s *Store) ClearNamespace(ctx context.Context, sid string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err = tx.ExecContext(ctx, `DELETE FROM dashboard_session WHERE sid = $1`, sid); err != nil {
		return errors.Wrap(err, "deleting session snapshot")
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM dashboard_flash WHERE sid = $1`, sid); err != nil {
		return errors.Wrap(err, "deleting session flashes")
	}
	return errors.Wrap(tx.Commit(), "committing namespace wipe")
}

func (s *Store) PushFlash(ctx context.Context, sid string, f session.Flash) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dashboard_flash (sid, level, message, created_at) VALUES ($1, $2, $3, $4)`,
		sid, f.Level, f.Message, time.Now().UTC(),
	)
	return errors.Wrap(err, "writing flash")
}

func (s *Store) PopFlashes(ctx context.Context, sid string) ([]session.Flash, error) {
	rows, err := s.db.QueryxContext(ctx, `
		DELETE FROM dashboard_flash WHERE sid = $1
		RETURNING level, message`, sid)
	if err != nil {
		return nil, errors.Wrap(err, "popping flashes")
	}
	defer rows.Close()

	var flashes []session.Flash
	for rows.Next() {
		var f session.Flash
		if err := rows.Scan(&f.Level, &f.Message); err != nil {
			return nil, errors.Wrap(err, "scanning flash")
		}
		flashes = append(flashes, f)
	}
	return flashes, errors.Wrap(rows.Err(), "iterating flashes")
}
