// Copyright 2026 © The Edict Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"github.com/jllopis/edict/pkg/errors"
)

// SQLiteStore persists invocation records in SQLite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStore wraps an existing database handle and ensures the schema.
// The caller keeps ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New(errors.KindHistory, "db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return nil, errors.Wrap(errors.KindHistory, "ensure schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Open opens (creating if needed) a SQLite history file and ensures the
// schema. Close releases the handle.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New(errors.KindHistory, "empty history path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.KindHistory, "open history db", err).
			WithContext("path", path)
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// Append stores a single record.
func (s *SQLiteStore) Append(ctx context.Context, rec Record) error {
	tokens, err := encodeJSON(rec.Tokens)
	if err != nil {
		return errors.Wrap(errors.KindHistory, "encode tokens", err)
	}
	state, err := encodeJSON(rec.State)
	if err != nil {
		return errors.Wrap(errors.KindHistory, "encode state", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invocations (
			record_id, session, ts, verb, plugin, tokens_json, state_json, output, error_kind, duration_us
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Session,
		normalizeTime(rec.Timestamp),
		rec.Verb,
		rec.Plugin,
		string(tokens),
		string(state),
		rec.Output,
		rec.ErrorKind,
		rec.Duration.Microseconds(),
	)
	if err != nil {
		return errors.Wrap(errors.KindHistory, "append record", err)
	}
	return nil
}

// Query returns matching records, most recent first.
func (s *SQLiteStore) Query(ctx context.Context, filter Filter) ([]Record, error) {
	query := `
		SELECT record_id, session, ts, verb, plugin, tokens_json, state_json, output, error_kind, duration_us
		FROM invocations
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		if value != nil {
			args = append(args, value)
		}
	}
	if filter.Session != "" {
		addFilter("session = ?", filter.Session)
	}
	if filter.Verb != "" {
		addFilter("verb = ?", filter.Verb)
	}
	if filter.Plugin != "" {
		addFilter("plugin = ?", filter.Plugin)
	}
	if filter.OnlyFailed {
		addFilter("error_kind != ''", nil)
	}
	query += where + " ORDER BY ts DESC, seq DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.KindHistory, "query records", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			ts         sql.NullTime
			tokensJSON string
			stateJSON  string
			durationUS int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Session,
			&ts,
			&rec.Verb,
			&rec.Plugin,
			&tokensJSON,
			&stateJSON,
			&rec.Output,
			&rec.ErrorKind,
			&durationUS,
		); err != nil {
			return nil, errors.Wrap(errors.KindHistory, "scan record", err)
		}
		if ts.Valid {
			rec.Timestamp = ts.Time
		}
		rec.Tokens = decodeStrings(tokensJSON)
		rec.State = decodeStringMap(stateJSON)
		rec.Duration = microseconds(durationUS)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.KindHistory, "iterate records", err)
	}
	return records, nil
}

// Close releases the database handle when this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS invocations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id TEXT NOT NULL,
			session TEXT,
			ts TIMESTAMP NOT NULL,
			verb TEXT NOT NULL,
			plugin TEXT,
			tokens_json TEXT,
			state_json TEXT,
			output TEXT,
			error_kind TEXT,
			duration_us INTEGER
		);
		CREATE INDEX IF NOT EXISTS idx_invocations_session ON invocations(session);
		CREATE INDEX IF NOT EXISTS idx_invocations_verb ON invocations(verb);
		CREATE INDEX IF NOT EXISTS idx_invocations_error ON invocations(error_kind);
	`)
	return err
}
