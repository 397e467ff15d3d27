package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"timeclock/internal/domain"
	"timeclock/internal/repository"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	version INTEGER NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const (
	usersKey   = "users"
	sessionKey = "current_user"
)

// RecordStore keeps the user collection as a single JSON value keyed "users",
// and the logged-in user snapshot under "current_user".
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

var (
	_ repository.RecordStore  = (*RecordStore)(nil)
	_ repository.SessionStore = (*RecordStore)(nil)
)

func (r *RecordStore) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createEntriesTable); err != nil {
		return fmt.Errorf("create kv_entries table: %w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

func (r *RecordStore) Load(ctx context.Context) ([]domain.User, error) {
	snap, err := r.LoadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Users, nil
}

func (r *RecordStore) LoadSnapshot(ctx context.Context) (repository.Snapshot, error) {
	value, version, err := r.get(ctx, usersKey)
	if err != nil {
		return repository.Snapshot{}, err
	}
	if version == 0 {
		return repository.Snapshot{Users: []domain.User{}}, nil
	}

	users, err := repository.DecodeUsers([]byte(value))
	if err != nil {
		return repository.Snapshot{}, err
	}
	return repository.Snapshot{Users: users, Version: version}, nil
}

func (r *RecordStore) Save(ctx context.Context, users []domain.User) error {
	payload, err := repository.EncodeUsers(users)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO kv_entries (key, value, version, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, version=kv_entries.version+1, updated_at=excluded.updated_at`,
		usersKey,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save users: %w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

func (r *RecordStore) SaveIfVersion(ctx context.Context, users []domain.User, version int64) error {
	payload, err := repository.EncodeUsers(users)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var res sql.Result
	if version == 0 {
		res, err = r.db.ExecContext(ctx, `
INSERT INTO kv_entries (key, value, version, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO NOTHING`,
			usersKey,
			string(payload),
			now,
		)
	} else {
		res, err = r.db.ExecContext(ctx, `
UPDATE kv_entries
SET value=?, version=version+1, updated_at=?
WHERE key=? AND version=?`,
			string(payload),
			now,
			usersKey,
			version,
		)
	}
	if err != nil {
		return fmt.Errorf("save users: %w: %w", domain.ErrStorageIO, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save users rows affected: %w: %w", domain.ErrStorageIO, err)
	}
	if affected == 0 {
		return fmt.Errorf("save users at version %d: %w", version, domain.ErrVersionConflict)
	}
	return nil
}

func (r *RecordStore) SaveSession(ctx context.Context, user domain.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO kv_entries (key, value, version, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, version=kv_entries.version+1, updated_at=excluded.updated_at`,
		sessionKey,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save session: %w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

func (r *RecordStore) LoadSession(ctx context.Context) (*domain.User, error) {
	value, version, err := r.get(ctx, sessionKey)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, domain.ErrNoSession
	}

	var user domain.User
	if err := json.Unmarshal([]byte(value), &user); err != nil {
		return nil, fmt.Errorf("decode session: %w: %w", domain.ErrStorageCorrupt, err)
	}
	return &user, nil
}

func (r *RecordStore) ClearSession(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, sessionKey); err != nil {
		return fmt.Errorf("clear session: %w: %w", domain.ErrStorageIO, err)
	}
	return nil
}

// get returns the value and version for key; version 0 means the key is absent.
func (r *RecordStore) get(ctx context.Context, key string) (string, int64, error) {
	var (
		value   string
		version int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT value, version FROM kv_entries WHERE key = ?`, key).Scan(&value, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("read %s: %w: %w", key, domain.ErrStorageIO, err)
	}
	return value, version, nil
}
