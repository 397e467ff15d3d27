package repository

import (
	"context"

	"timeclock/internal/domain"
)

// Snapshot is the user collection together with the version it was read at.
// Version 0 means nothing has been stored yet.
type Snapshot struct {
	Users   []domain.User
	Version int64
}

// RecordStore persists the whole user collection as one unit.
type RecordStore interface {
	Init(ctx context.Context) error
	Load(ctx context.Context) ([]domain.User, error)
	Save(ctx context.Context, users []domain.User) error
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	// SaveIfVersion writes only when the stored version still equals version,
	// otherwise it returns domain.ErrVersionConflict.
	SaveIfVersion(ctx context.Context, users []domain.User, version int64) error
}

// SessionStore caches the currently logged-in user for session restoration.
type SessionStore interface {
	SaveSession(ctx context.Context, user domain.User) error
	LoadSession(ctx context.Context) (*domain.User, error)
	ClearSession(ctx context.Context) error
}
