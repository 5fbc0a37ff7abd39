package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/target/gradesync/internal/core"
	"github.com/target/gradesync/internal/data/pgxutil"
	"github.com/target/gradesync/internal/domain/model"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS run_state (
	scope      TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS run_lease (
	scope      TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS last_success (
	scope    TEXT PRIMARY KEY,
	document TEXT NOT NULL
);`

// OpenSQLite opens (creating if needed) the single-file run store database
// and ensures its tables exist.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps read-modify-write transactions serialised.
	db.SetMaxOpenConns(1)

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return db, nil
}

// SQLiteRunStore implements core.RunStore on a local SQLite file for
// single-host deployments without Redis.
type SQLiteRunStore struct {
	db           *sql.DB
	timeProvider core.TimeProvider
}

// NewSQLiteRunStore creates a run store over an already-opened database.
func NewSQLiteRunStore(db *sql.DB, tp core.TimeProvider) *SQLiteRunStore {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &SQLiteRunStore{db: db, timeProvider: tp}
}

// Get returns the stored state or nil when the scope has none.
func (s *SQLiteRunStore) Get(ctx context.Context, scope string) (*model.RunState, error) {
	if scope == "" {
		return nil, ErrScopeRequired
	}
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM run_state WHERE scope = ?`, scope).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get run state: %w", err)
	}
	state, err := model.DecodeRunState([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("decode run state for %s: %w", scope, err)
	}
	return state, nil
}

// Set applies patch inside a transaction and returns the merged state.
func (s *SQLiteRunStore) Set(ctx context.Context, scope string, patch model.RunStatePatch) (*model.RunState, error) {
	if scope == "" {
		return nil, ErrScopeRequired
	}
	var result *model.RunState
	err := pgxutil.WithSQLTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		state := &model.RunState{}
		var doc string
		err := tx.QueryRowContext(ctx, `SELECT document FROM run_state WHERE scope = ?`, scope).Scan(&doc)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("get run state: %w", err)
		default:
			if state, err = model.DecodeRunState([]byte(doc)); err != nil {
				return fmt.Errorf("decode run state for %s: %w", scope, err)
			}
		}

		now := s.timeProvider.Now()
		patch.Apply(state, now)
		data, err := model.EncodeRunState(state)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_state (scope, document, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(scope) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
			scope, string(data), now.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("upsert run state: %w", err)
		}
		result = state
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear removes the scope's state.
func (s *SQLiteRunStore) Clear(ctx context.Context, scope string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM run_state WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("clear run state: %w", err)
	}
	return nil
}

// SaveLastSuccess replaces the scope's last successful run. Clear leaves it in place.
func (s *SQLiteRunStore) SaveLastSuccess(ctx context.Context, scope string, rec *model.RunRecord) error {
	if scope == "" {
		return ErrScopeRequired
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode last success: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO last_success (scope, document) VALUES (?, ?)
		ON CONFLICT(scope) DO UPDATE SET document = excluded.document`,
		scope, string(data))
	if err != nil {
		return fmt.Errorf("upsert last success: %w", err)
	}
	return nil
}

// LastSuccess returns the scope's last successful run or nil.
func (s *SQLiteRunStore) LastSuccess(ctx context.Context, scope string) (*model.RunRecord, error) {
	if scope == "" {
		return nil, ErrScopeRequired
	}
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM last_success WHERE scope = ?`, scope).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get last success: %w", err)
	}
	var rec model.RunRecord
	if err = json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("decode last success for %s: %w", scope, err)
	}
	return &rec, nil
}

// SQLiteRunLease implements core.RunLease with an expiry column.
type SQLiteRunLease struct {
	db           *sql.DB
	timeProvider core.TimeProvider
}

// NewSQLiteRunLease creates a lease over an already-opened database.
func NewSQLiteRunLease(db *sql.DB, tp core.TimeProvider) *SQLiteRunLease {
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &SQLiteRunLease{db: db, timeProvider: tp}
}

// Acquire takes a free or expired lease, or refreshes one owner already holds.
func (l *SQLiteRunLease) Acquire(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error) {
	if scope == "" || owner == "" {
		return false, ErrLeaseOwnerRequired
	}
	now := l.timeProvider.Now()
	acquired := false
	err := pgxutil.WithSQLTx(ctx, l.db, nil, func(tx *sql.Tx) error {
		var current string
		var expires int64
		err := tx.QueryRowContext(ctx,
			`SELECT owner, expires_at FROM run_lease WHERE scope = ?`, scope).Scan(&current, &expires)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("read lease: %w", err)
		case current != owner && expires > now.UnixMilli():
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_lease (scope, owner, expires_at) VALUES (?, ?, ?)
			ON CONFLICT(scope) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at`,
			scope, owner, now.Add(ttl).UnixMilli())
		if err != nil {
			return fmt.Errorf("write lease: %w", err)
		}
		acquired = true
		return nil
	})
	return acquired, err
}

// Renew extends a live lease held by owner.
func (l *SQLiteRunLease) Renew(ctx context.Context, scope, owner string, ttl time.Duration) (bool, error) {
	now := l.timeProvider.Now()
	res, err := l.db.ExecContext(ctx,
		`UPDATE run_lease SET expires_at = ? WHERE scope = ? AND owner = ? AND expires_at > ?`,
		now.Add(ttl).UnixMilli(), scope, owner, now.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	return n == 1, nil
}

// Release drops the lease if owner holds it.
func (l *SQLiteRunLease) Release(ctx context.Context, scope, owner string) (bool, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM run_lease WHERE scope = ? AND owner = ?`, scope, owner)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	return n == 1, nil
}

// Holder returns the live owner or "".
func (l *SQLiteRunLease) Holder(ctx context.Context, scope string) (string, error) {
	var owner string
	err := l.db.QueryRowContext(ctx,
		`SELECT owner FROM run_lease WHERE scope = ? AND expires_at > ?`,
		scope, l.timeProvider.Now().UnixMilli()).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("lease holder: %w", err)
	}
	return owner, nil
}
